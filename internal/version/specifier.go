package version

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// Operator is a single PEP 440 specifier comparison operator.
type Operator string

const (
	OpEQ     Operator = "=="
	OpNE     Operator = "!="
	OpLT     Operator = "<"
	OpLE     Operator = "<="
	OpGT     Operator = ">"
	OpGE     Operator = ">="
	OpCompat Operator = "~="
)

// clause is a single "<op><version>" predicate. A trailing ".*" on an ==
// or != version makes it a wildcard/prefix clause.
type clause struct {
	op       Operator
	ver      *Version
	wildcard bool
	raw      string
}

var clauseRegex = regexp.MustCompile(`^\s*(~=|==|!=|<=|>=|<|>)\s*([^,\s]+)\s*$`)

func parseClause(raw string) (clause, error) {
	m := clauseRegex.FindStringSubmatch(raw)
	if m == nil {
		return clause{}, errors.Errorf("malformed version specifier %q", raw)
	}
	op := Operator(m[1])
	verStr := m[2]
	wildcard := false
	if strings.HasSuffix(verStr, ".*") {
		if op != OpEQ && op != OpNE {
			return clause{}, errors.Errorf("wildcard only allowed with == or != (%q)", raw)
		}
		wildcard = true
		verStr = strings.TrimSuffix(verStr, ".*")
	}
	v, err := Parse(verStr)
	if err != nil {
		return clause{}, errors.Wrapf(err, "specifier %q", raw)
	}
	return clause{op: op, ver: v, wildcard: wildcard, raw: raw}, nil
}

func (c clause) contains(v *Version) bool {
	if c.wildcard {
		want := c.ver.Release()
		got := v.Release()
		matches := true
		for i, seg := range want {
			if i >= len(got) || got[i] != seg {
				matches = false
				break
			}
		}
		if matches && v.epoch != c.ver.epoch {
			matches = false
		}
		if c.op == OpNE {
			return !matches
		}
		return matches
	}

	switch c.op {
	case OpEQ:
		return v.Compare(c.ver) == 0
	case OpNE:
		return v.Compare(c.ver) != 0
	case OpLT:
		return v.Compare(c.ver) < 0
	case OpLE:
		return v.Compare(c.ver) <= 0
	case OpGT:
		return v.Compare(c.ver) > 0
	case OpGE:
		return v.Compare(c.ver) >= 0
	case OpCompat:
		// ~=X.Y(.Z) means >=X.Y(.Z), ==X.Y.* (bump the second-to-last segment)
		rel := c.ver.Release()
		if len(rel) < 2 {
			return false
		}
		prefix := rel[:len(rel)-1]
		got := v.Release()
		if v.Compare(c.ver) < 0 {
			return false
		}
		for i, seg := range prefix {
			if i >= len(got) || got[i] != seg {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// SpecifierSet is a conjunction of clauses over Version, per spec.md §3.
// Pre-releases are always admissible (the zero-config default in PEP 440
// tooling); this package never filters them out based on "stable only"
// policy, matching spec.md's explicit statement that "pre-releases are
// always admissible."
type SpecifierSet struct {
	clauses []clause
	raw     string
}

// Any returns an unconstrained SpecifierSet (contains every version).
func Any() SpecifierSet {
	return SpecifierSet{raw: ""}
}

// ParseSpecifierSet parses a comma-separated conjunction of clauses, e.g.
// ">=1.0,<2.0". An empty string parses to Any().
func ParseSpecifierSet(raw string) (SpecifierSet, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Any(), nil
	}
	var cs []clause
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		c, err := parseClause(part)
		if err != nil {
			return SpecifierSet{}, err
		}
		cs = append(cs, c)
	}
	return SpecifierSet{clauses: cs, raw: raw}, nil
}

// MustParseSpecifierSet is like ParseSpecifierSet but panics on error.
func MustParseSpecifierSet(raw string) SpecifierSet {
	s, err := ParseSpecifierSet(raw)
	if err != nil {
		panic(err)
	}
	return s
}

// Contains reports whether v satisfies every clause in s.
func (s SpecifierSet) Contains(v *Version) bool {
	for _, c := range s.clauses {
		if !c.contains(v) {
			return false
		}
	}
	return true
}

// Intersect returns the logical AND of s and o.
func (s SpecifierSet) Intersect(o SpecifierSet) SpecifierSet {
	cs := make([]clause, 0, len(s.clauses)+len(o.clauses))
	cs = append(cs, s.clauses...)
	cs = append(cs, o.clauses...)
	raw := s.raw
	if o.raw != "" {
		if raw == "" {
			raw = o.raw
		} else {
			raw = raw + "," + o.raw
		}
	}
	return SpecifierSet{clauses: cs, raw: raw}
}

// IsAny reports whether s has no constraining clauses.
func (s SpecifierSet) IsAny() bool { return len(s.clauses) == 0 }

// String returns the comma-joined specifier text.
func (s SpecifierSet) String() string { return s.raw }

// SortVersions implements spec.md §4.E.1 `_sort_versions`: newest-first by
// semantic ordering, then stable-partitioned into Success/Unknown/Fail
// bands. versions is not mutated.
func SortVersions(versions []*Version) []*Version {
	sorted := make([]*Version, len(versions))
	copy(sorted, versions)

	// Stable insertion sort on Compare descending; small N in practice
	// (per-package version counts), and stability matters for testable
	// property 5 ("swapping equal keys never changes observable output").
	for i := 1; i < len(sorted); i++ {
		j := i
		for j > 0 && sorted[j-1].Compare(sorted[j]) < 0 {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
			j--
		}
	}

	var success, unknown, fail []*Version
	for _, v := range sorted {
		switch v.Status() {
		case StatusSuccess:
			success = append(success, v)
		case StatusFail:
			fail = append(fail, v)
		default:
			unknown = append(unknown, v)
		}
	}

	out := make([]*Version, 0, len(sorted))
	out = append(out, success...)
	out = append(out, unknown...)
	out = append(out, fail...)
	return out
}
