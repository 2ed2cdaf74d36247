// Package version implements PEP 440 version parsing, canonicalization and
// ordering.
//
// The shape of this package — a parse-once constructor backed by a single
// compiled regexp, a process-wide parse cache, and Compare/LessThan/Equal
// convenience methods — mirrors github.com/Masterminds/semver's version.go.
// It cannot reuse that package directly: PEP 440 releases carry an epoch,
// an arbitrary-length release segment, and pre/post/dev/local qualifiers
// that a bare X.Y.Z-pre+meta semver.Version has no room for.
package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// InstallStatus records whether the knowledge-graph population pipeline
// successfully installed and imported a given version.
type InstallStatus int

const (
	// StatusUnknown means the version was never probed, or probing did not
	// complete.
	StatusUnknown InstallStatus = iota
	// StatusSuccess means install + import both succeeded.
	StatusSuccess
	// StatusFail means install or import failed.
	StatusFail
)

func (s InstallStatus) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusFail:
		return "Fail"
	default:
		return "Unknown"
	}
}

// ErrInvalidVersion is returned when a version string does not match the
// PEP 440 grammar.
var ErrInvalidVersion = errors.New("invalid PEP 440 version")

// pep440Regex is adapted from the canonical regex published in PEP 440's
// reference implementation (packaging.version).
var pep440Regex = regexp.MustCompile(`(?i)^\s*v?` +
	`(?:(?P<epoch>[0-9]+)!)?` +
	`(?P<release>[0-9]+(?:\.[0-9]+)*)` +
	`(?P<pre>[-_.]?(?P<pre_l>a|b|c|rc|alpha|beta|pre|preview)[-_.]?(?P<pre_n>[0-9]+)?)?` +
	`(?P<post>(?:-(?P<post_n1>[0-9]+))|(?:[-_.]?(?P<post_l>post|rev|r)[-_.]?(?P<post_n2>[0-9]+)?))?` +
	`(?P<dev>[-_.]?dev[-_.]?(?P<dev_n>[0-9]+)?)?` +
	`(?:\+(?P<local>[a-z0-9]+(?:[-_.][a-z0-9]+)*))?` +
	`\s*$`)

// qualifier holds an optional numbered suffix (pre/post/dev segment).
type qualifier struct {
	present bool
	label   string // "a", "b", "rc", "post", "dev" (normalized)
	num     int64
}

// Version is an opaque, totally-ordered PEP 440 version value.
type Version struct {
	original string
	epoch    int64
	release  []int64
	pre      qualifier
	post     qualifier
	dev      qualifier
	local    []string // local segment, split and normalized

	status InstallStatus
}

type parseResult struct {
	v   *Version
	err error
}

var (
	parseCache   = make(map[string]parseResult)
	parseCacheMu sync.RWMutex
)

// normalizePreLabel canonicalizes the spellings PEP 440 treats as equivalent.
func normalizePreLabel(l string) string {
	switch strings.ToLower(l) {
	case "alpha":
		return "a"
	case "beta":
		return "b"
	case "c", "pre", "preview":
		return "rc"
	default:
		return strings.ToLower(l)
	}
}

// Parse parses a version string under PEP 440 semantics. Parsed values are
// cached process-wide, keyed on the exact input string.
func Parse(raw string) (*Version, error) {
	parseCacheMu.RLock()
	if r, ok := parseCache[raw]; ok {
		parseCacheMu.RUnlock()
		return r.v, r.err
	}
	parseCacheMu.RUnlock()

	v, err := parse(raw)

	parseCacheMu.Lock()
	parseCache[raw] = parseResult{v: v, err: err}
	parseCacheMu.Unlock()

	return v, err
}

func parse(raw string) (*Version, error) {
	m := pep440Regex.FindStringSubmatch(raw)
	if m == nil {
		return nil, errors.Wrapf(ErrInvalidVersion, "%q", raw)
	}
	names := pep440Regex.SubexpNames()
	get := func(name string) string {
		for i, n := range names {
			if n == name && i < len(m) {
				return m[i]
			}
		}
		return ""
	}

	v := &Version{original: raw}

	if e := get("epoch"); e != "" {
		ep, err := strconv.ParseInt(e, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing epoch of %q", raw)
		}
		v.epoch = ep
	}

	for _, seg := range strings.Split(get("release"), ".") {
		n, err := strconv.ParseInt(seg, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing release segment of %q", raw)
		}
		v.release = append(v.release, n)
	}

	if l := get("pre_l"); l != "" {
		v.pre.present = true
		v.pre.label = normalizePreLabel(l)
		if n := get("pre_n"); n != "" {
			num, _ := strconv.ParseInt(n, 10, 64)
			v.pre.num = num
		}
	}

	if pn := get("post_n1"); pn != "" {
		v.post.present = true
		v.post.label = "post"
		num, _ := strconv.ParseInt(pn, 10, 64)
		v.post.num = num
	} else if get("post") != "" {
		v.post.present = true
		v.post.label = "post"
		if pn2 := get("post_n2"); pn2 != "" {
			num, _ := strconv.ParseInt(pn2, 10, 64)
			v.post.num = num
		}
	}

	if get("dev") != "" {
		v.dev.present = true
		v.dev.label = "dev"
		if dn := get("dev_n"); dn != "" {
			num, _ := strconv.ParseInt(dn, 10, 64)
			v.dev.num = num
		}
	}

	if l := get("local"); l != "" {
		v.local = strings.FieldsFunc(strings.ToLower(l), func(r rune) bool {
			return r == '-' || r == '_' || r == '.'
		})
	}

	return v, nil
}

// MustParse is like Parse but panics on error. Intended for literal
// constants in tests and fixtures.
func MustParse(raw string) *Version {
	v, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// Original returns the exact string that was parsed.
func (v *Version) Original() string { return v.original }

// Status returns the install status tag attached to this version.
func (v *Version) Status() InstallStatus { return v.status }

// WithStatus returns a copy of v carrying the given install status. Version
// values are otherwise immutable once parsed.
func (v *Version) WithStatus(s InstallStatus) *Version {
	cp := *v
	cp.status = s
	return &cp
}

// Release returns the release segment, e.g. [1, 21, 0] for "1.21.0".
func (v *Version) Release() []int64 {
	out := make([]int64, len(v.release))
	copy(out, v.release)
	return out
}

// IsPrerelease reports whether v carries a pre-release or dev segment.
func (v *Version) IsPrerelease() bool {
	return v.pre.present || v.dev.present
}

// String renders the canonical PEP 440 form of the version (not necessarily
// identical to Original, e.g. "1.0.0" canonicalizes "01.0.00" -> "1.0.0",
// and "1.0a" canonicalizes "1.0.alpha" -> "1.0a0").
func (v *Version) String() string {
	var b strings.Builder
	if v.epoch != 0 {
		fmt.Fprintf(&b, "%d!", v.epoch)
	}
	for i, seg := range v.release {
		if i > 0 {
			b.WriteByte('.')
		}
		fmt.Fprintf(&b, "%d", seg)
	}
	if v.pre.present {
		fmt.Fprintf(&b, "%s%d", v.pre.label, v.pre.num)
	}
	if v.post.present {
		fmt.Fprintf(&b, ".post%d", v.post.num)
	}
	if v.dev.present {
		fmt.Fprintf(&b, ".dev%d", v.dev.num)
	}
	if len(v.local) > 0 {
		b.WriteByte('+')
		b.WriteString(strings.Join(v.local, "."))
	}
	return b.String()
}

// Compare returns -1, 0, or 1 if v is less than, equal to, or greater than
// o, under PEP 440 total ordering.
func (v *Version) Compare(o *Version) int {
	if d := compareInt64(v.epoch, o.epoch); d != 0 {
		return d
	}
	if d := compareRelease(v.release, o.release); d != 0 {
		return d
	}
	if d := comparePre(v, o); d != 0 {
		return d
	}
	if d := comparePost(v, o); d != 0 {
		return d
	}
	if d := compareDev(v, o); d != 0 {
		return d
	}
	return compareLocal(v.local, o.local)
}

func (v *Version) LessThan(o *Version) bool    { return v.Compare(o) < 0 }
func (v *Version) GreaterThan(o *Version) bool { return v.Compare(o) > 0 }
func (v *Version) Equal(o *Version) bool       { return v.Compare(o) == 0 }

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareRelease(a, b []int64) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var av, bv int64
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if d := compareInt64(av, bv); d != 0 {
			return d
		}
	}
	return 0
}

// preRank implements packaging's _cmpkey ordering for the pre-release slot:
// a dev-only release sorts before every pre-release; a final release (no
// pre/post/dev) sorts after every pre-release.
func preRank(v *Version) (bool, string, int64) {
	switch {
	case !v.pre.present && !v.post.present && v.dev.present:
		return true, "", -1 // NegativeInfinity band
	case !v.pre.present:
		return true, "zzz", 1<<62 - 1 // Infinity band: sorts after all real pre labels
	default:
		return false, v.pre.label, v.pre.num
	}
}

func comparePre(v, o *Version) int {
	_, vl, vn := preRank(v)
	_, ol, on := preRank(o)
	if vl != ol {
		if vl < ol {
			return -1
		}
		return 1
	}
	return compareInt64(vn, on)
}

func comparePost(v, o *Version) int {
	vn, on := int64(-1), int64(-1)
	if v.post.present {
		vn = v.post.num
	}
	if o.post.present {
		on = o.post.num
	}
	return compareInt64(vn, on)
}

func compareDev(v, o *Version) int {
	// Absence of a dev segment sorts after presence of one (a dev release
	// is "earlier" than its eventual final release).
	vn, on := int64(1<<62-1), int64(1<<62-1)
	if v.dev.present {
		vn = v.dev.num
	}
	if o.dev.present {
		on = o.dev.num
	}
	return compareInt64(vn, on)
}

func compareLocal(a, b []string) int {
	// Absence of a local segment sorts lowest.
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	if len(a) == 0 {
		return -1
	}
	if len(b) == 0 {
		return 1
	}
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var as, bs string
		hasA, hasB := i < len(a), i < len(b)
		if hasA {
			as = a[i]
		}
		if hasB {
			bs = b[i]
		}
		if !hasA {
			return -1
		}
		if !hasB {
			return 1
		}
		an, aerr := strconv.ParseInt(as, 10, 64)
		bn, berr := strconv.ParseInt(bs, 10, 64)
		switch {
		case aerr == nil && berr == nil:
			if d := compareInt64(an, bn); d != 0 {
				return d
			}
		case aerr == nil:
			// numeric segments sort before alphanumeric ones
			return -1
		case berr == nil:
			return 1
		default:
			if as != bs {
				if as < bs {
					return -1
				}
				return 1
			}
		}
	}
	return 0
}

// Canonicalize lowercases a package name and normalizes '_'/'.' separators
// to '-', per spec.md §3 / PEP 503.
func Canonicalize(name string) string {
	name = strings.ToLower(name)
	var b strings.Builder
	prevDash := false
	for _, r := range name {
		if r == '_' || r == '.' || r == '-' {
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
			continue
		}
		b.WriteRune(r)
		prevDash = false
	}
	return b.String()
}
