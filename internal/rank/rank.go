// Package rank implements the candidate-library ranker (component C): it
// turns the per-dialect name sets the parser adapter observed in a snippet
// into, for each top-level imported identifier, a module-match score, an
// attribute-match score, and a set of candidate (package, version-id-set)
// bindings.
//
// The prefix lookups in §4.C.1 and §4.C step 3 (finding the longest
// observed-attribute prefix that is already a known submodule) are a
// classic radix-tree longest-prefix-match, the same shape golang-dep's
// solver.go uses when matching an import path against known project
// roots (see its radix.New()/xt.LongestPrefix call) and typed_radix.go's
// generic wrapper pattern.
package rank

import (
	"sort"
	"strings"

	"github.com/armon/go-radix"

	"github.com/nju-websoft/pycre-go/internal/kg"
	"github.com/nju-websoft/pycre-go/internal/parseadapter"
	"github.com/nju-websoft/pycre-go/internal/version"
)

// prefixTrie is a typed wrapper over a radix.Tree holding presence markers,
// following the same pattern as the teacher's deducerTrie.
type prefixTrie struct {
	t *radix.Tree
}

func newPrefixTrie() prefixTrie {
	return prefixTrie{t: radix.New()}
}

func (t prefixTrie) Insert(s string) {
	t.t.Insert(s, struct{}{})
}

// LongestPrefix returns the longest key in the trie that is a dotted-path
// prefix of s: the match must land on a '.' boundary (or consume all of s),
// the same guard golang-dep's solver.go applies to its LongestPrefix call so
// "os" never matches inside "oslo.config.cfg".
func (t prefixTrie) LongestPrefix(s string) (string, bool) {
	q := s
	for {
		p, _, has := t.t.LongestPrefix(q)
		if !has {
			return "", false
		}
		if len(p) == len(s) || s[len(p)] == '.' {
			return p, true
		}
		// p ends inside a segment of s; retry before that segment so a
		// shorter, dot-aligned key can still match.
		i := strings.LastIndexByte(p, '.')
		if i < 0 {
			return "", false
		}
		q = s[:i]
	}
}

// SlotTree is the forest node for one top-level imported identifier,
// keyed by its first dotted segment (spec §4.C).
type SlotTree struct {
	TopModule string
	Modules   map[string]struct{} // imports ∪ resources, filtered to this root
	Attrs     map[string]struct{} // attrs ∪ resources, filtered to this root
	MaxHop    int                 // deepest dotted-path depth observed, minus 1
}

func newSlotTree(top string) *SlotTree {
	return &SlotTree{
		TopModule: top,
		Modules:   make(map[string]struct{}),
		Attrs:     make(map[string]struct{}),
	}
}

func topSegment(dotted string) string {
	if i := strings.IndexByte(dotted, '.'); i >= 0 {
		return dotted[:i]
	}
	return dotted
}

func dottedDepth(s string) int {
	return strings.Count(s, ".") + 1
}

// BuildForest groups a dialect's observed names into one SlotTree per
// top-level identifier.
func BuildForest(n *parseadapter.Names) map[string]*SlotTree {
	forest := make(map[string]*SlotTree)

	get := func(top string) *SlotTree {
		st, ok := forest[top]
		if !ok {
			st = newSlotTree(top)
			forest[top] = st
		}
		return st
	}

	observe := func(name string, into func(*SlotTree) map[string]struct{}) {
		top := topSegment(name)
		st := get(top)
		into(st)[name] = struct{}{}
		if d := dottedDepth(name) - 1; d > st.MaxHop {
			st.MaxHop = d
		}
	}

	for name := range n.Imports {
		observe(name, func(st *SlotTree) map[string]struct{} { return st.Modules })
	}
	for name := range n.Resources {
		observe(name, func(st *SlotTree) map[string]struct{} { return st.Modules })
		observe(name, func(st *SlotTree) map[string]struct{} { return st.Attrs })
	}
	for name := range n.Attrs {
		observe(name, func(st *SlotTree) map[string]struct{} { return st.Attrs })
	}

	return forest
}

// Candidate is a (package, version-id-set) binding offered for a ModuleSlot.
// A nil/empty Versions set means "unconstrained - any version".
type Candidate struct {
	Package  string
	Versions map[kg.VersionID]struct{}
}

// SlotResult is the ranked outcome for one ModuleSlot.
type SlotResult struct {
	TopModule   string
	ModuleScore float64
	AttrScore   float64
	Candidates  []Candidate
}

// matchDegree implements §4.C.1: for every name in nameSet, score 1 if it
// is present verbatim in treeSet, else a partial credit proportional to how
// many dotted suffixes had to be stripped before a prefix landed in
// treeSet. Zero if either set is empty.
func matchDegree(treeSet, nameSet map[string]struct{}) float64 {
	if len(treeSet) == 0 || len(nameSet) == 0 {
		return 0
	}
	var score float64
	for n := range nameSet {
		if _, ok := treeSet[n]; ok {
			score++
			continue
		}
		depth := dottedDepth(n)
		seg := n
		k := depth
		for i := 1; i <= depth; i++ {
			idx := strings.LastIndex(seg, ".")
			if idx < 0 {
				break
			}
			seg = seg[:idx]
			if _, ok := treeSet[seg]; ok {
				k = i
				break
			}
		}
		score += 1 - float64(k)/float64(depth)
	}
	return score
}

// RankSlot scores a single ModuleSlot against the knowledge graph and
// produces its candidate package set, per spec §4.C steps 1-4.
func RankSlot(client kg.Client, st *SlotTree) (*SlotResult, error) {
	res := &SlotResult{TopModule: st.TopModule}

	mods, err := client.ModuleByName(st.TopModule)
	if err != nil {
		return nil, err
	}

	if len(mods) == 0 {
		// §4.C step 1 / §7 UnknownPackage: synthesize a single candidate
		// under the canonicalized name, unconstrained version.
		res.Candidates = []Candidate{{
			Package:  version.Canonicalize(st.TopModule),
			Versions: nil,
		}}
		return res, nil
	}

	// §4.C step 2: per-candidate-module match degree against observed
	// modules, tracking the best scorers.
	type scored struct {
		id     kg.ModuleID
		degree float64
	}
	submodulesByID := make(map[kg.ModuleID][]string)
	idName := make(map[kg.ModuleID]string, len(mods))
	for _, m := range mods {
		idName[m.ID] = m.Name
		if err := client.SubmodulesWithin(m.ID, st.MaxHop, submodulesByID); err != nil {
			return nil, err
		}
	}

	var degrees []scored
	var maxDegree float64
	for _, m := range mods {
		treeSet := make(map[string]struct{})
		treeSet[m.Name] = struct{}{}
		for _, sub := range submodulesByID[m.ID] {
			treeSet[sub] = struct{}{}
		}
		d := matchDegree(treeSet, st.Modules)
		degrees = append(degrees, scored{id: m.ID, degree: d})
		if d > maxDegree {
			maxDegree = d
		}
	}
	if len(st.Modules) > 0 {
		res.ModuleScore = maxDegree / float64(len(st.Modules))
	}

	var bestIDs []kg.ModuleID
	for _, s := range degrees {
		if s.degree == maxDegree {
			bestIDs = append(bestIDs, s.id)
		}
	}
	sort.Slice(bestIDs, func(i, j int) bool { return bestIDs[i] < bestIDs[j] })

	// §4.C step 3: derive submodule-prefixed attribute candidates from the
	// best-scoring modules, via longest-observed-attribute-prefix lookup.
	if len(st.Attrs) > 0 {
		prefixes := make(map[kg.ModuleID][]string)
		for _, id := range bestIDs {
			trie := newPrefixTrie()
			trie.Insert(idName[id])
			for _, sub := range submodulesByID[id] {
				trie.Insert(sub)
			}
			seen := make(map[string]struct{})
			for attr := range st.Attrs {
				prefix := attr
				if p, ok := trie.LongestPrefix(attr); ok {
					prefix = p
				}
				if _, dup := seen[prefix]; dup {
					continue
				}
				seen[prefix] = struct{}{}
				prefixes[id] = append(prefixes[id], prefix)
			}
		}

		attrAcc := make(map[kg.ModuleID][]string)
		for _, id := range bestIDs {
			if err := client.AttributesOf([]kg.ModuleID{id}, prefixes[id], attrAcc); err != nil {
				return nil, err
			}
		}

		var maxAttrDegree float64
		for _, id := range bestIDs {
			treeSet := make(map[string]struct{})
			for _, a := range attrAcc[id] {
				treeSet[a] = struct{}{}
			}
			d := matchDegree(treeSet, st.Attrs)
			if d > maxAttrDegree {
				maxAttrDegree = d
			}
		}
		res.AttrScore = maxAttrDegree / float64(len(st.Attrs))
	}

	// §4.C step 4: packages/versions exposed by the best-scoring modules.
	pv, err := client.PackagesVersionsOf(bestIDs)
	if err != nil {
		return nil, err
	}
	pkgNames := make([]string, 0, len(pv))
	for name := range pv {
		pkgNames = append(pkgNames, name)
	}
	sort.Strings(pkgNames)
	for _, name := range pkgNames {
		res.Candidates = append(res.Candidates, Candidate{
			Package:  version.Canonicalize(name),
			Versions: pv[name],
		})
	}

	return res, nil
}

// RankForest ranks every slot in a forest, returning a map keyed by top
// module name.
func RankForest(client kg.Client, forest map[string]*SlotTree) (map[string]*SlotResult, error) {
	out := make(map[string]*SlotResult, len(forest))
	for top, st := range forest {
		r, err := RankSlot(client, st)
		if err != nil {
			return nil, err
		}
		out[top] = r
	}
	return out, nil
}
