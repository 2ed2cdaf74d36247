// Package resolve implements the heuristic backtracking resolver
// (component E, spec §4.F): a depth-first search over a reqgraph.Graph
// that picks exactly one Version per Package and one Package per
// ModuleSlot, honoring specifier constraints and preferring installable,
// newer versions.
//
// The search is written in continuation-passing style: every solve step
// takes a "rest of the search" closure and only reports success once that
// continuation also succeeds, so a conflict discovered several decisions
// later correctly backtracks all the way to the choice that caused it
// (e.g. two packages sharing a third dependency with incompatible
// version ranges). State is carried as an explicit snapshot (a `state`
// value cloned before each trial) rather than mutated graph nodes, the
// same "snapshot, try, commit-or-discard" shape as the teacher's
// solver.go backtracking loop around its selection stack.
package resolve

import (
	"sort"

	"github.com/nju-websoft/pycre-go/internal/kg"
	"github.com/nju-websoft/pycre-go/internal/reqgraph"
	"github.com/nju-websoft/pycre-go/internal/version"
)

// Solution is a successful resolver outcome: one chosen Version per
// resolved Package, and one chosen Package per ModuleSlot.
type Solution struct {
	SlotChoice    map[*reqgraph.ModuleSlotNode]*reqgraph.PackageNode
	PackageChoice map[*reqgraph.PackageNode]*reqgraph.VersionNode
}

// state is the mutable search state, cloned before every trial so a
// failed branch never perturbs the state its caller backtracks to
// (copy-on-write).
type state struct {
	slotChoice    map[*reqgraph.ModuleSlotNode]*reqgraph.PackageNode
	packageChoice map[*reqgraph.PackageNode]*reqgraph.VersionNode

	// Constraints currently active on a Package from its selected
	// in-neighbors: specifiers from chosen parent Versions (tagged with
	// the Version that pushed them, so they can be retracted if that
	// Version is later deselected), and version-id-set filters from
	// parent ModuleSlots.
	specifiers  map[*reqgraph.PackageNode][]specifierEntry
	versionSets map[*reqgraph.PackageNode][]map[kg.VersionID]struct{}

	// inProgress marks a Package currently on the recursion stack, so a
	// requirement cycle short-circuits by reusing the in-flight selection
	// instead of recursing forever (spec §9 "cyclic requirement graphs").
	inProgress map[*reqgraph.PackageNode]bool
}

// specifierEntry is one pushed specifier constraint, tagged with the Version
// whose Requires edge pushed it.
type specifierEntry struct {
	owner *reqgraph.VersionNode
	raw   string
}

func newState() *state {
	return &state{
		slotChoice:    make(map[*reqgraph.ModuleSlotNode]*reqgraph.PackageNode),
		packageChoice: make(map[*reqgraph.PackageNode]*reqgraph.VersionNode),
		specifiers:    make(map[*reqgraph.PackageNode][]specifierEntry),
		versionSets:   make(map[*reqgraph.PackageNode][]map[kg.VersionID]struct{}),
		inProgress:    make(map[*reqgraph.PackageNode]bool),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.slotChoice {
		c.slotChoice[k] = v
	}
	for k, v := range s.packageChoice {
		c.packageChoice[k] = v
	}
	for k, v := range s.specifiers {
		c.specifiers[k] = append([]specifierEntry(nil), v...)
	}
	for k, v := range s.versionSets {
		c.versionSets[k] = append([]map[kg.VersionID]struct{}(nil), v...)
	}
	for k, v := range s.inProgress {
		c.inProgress[k] = v
	}
	return c
}

// cont is "the rest of the search": given the state after the current
// decision, either continue resolving and report overall success, or
// report failure so the caller backtracks to its next option.
type cont func(*state) (*state, bool)

func succeed(s *state) (*state, bool) { return s, true }

// Solve runs the heuristic backtracking search over g. It returns false
// if no assignment satisfies every constraint (the caller should then try
// the SAT fallback).
func Solve(g *reqgraph.Graph) (*Solution, bool) {
	s := newState()
	final, ok := solveSlots(s, g.ModuleSlots, succeed)
	if !ok {
		return nil, false
	}
	return &Solution{SlotChoice: final.slotChoice, PackageChoice: final.packageChoice}, true
}

// solveSlots resolves slots[0] and then, for each way of doing so, tries
// the rest of the slots before reporting success — so a later slot's
// failure backtracks into an earlier slot's package/version choice.
func solveSlots(s *state, slots []*reqgraph.ModuleSlotNode, k cont) (*state, bool) {
	if len(slots) == 0 {
		return k(s)
	}
	slot, rest := slots[0], slots[1:]

	for _, edge := range reorderPreferringSelected(s, slot.Edges) {
		attempt := s.clone()
		final, ok := resolvePackageUnder(attempt, edge.Package, nil, "", edge.VersionIDs, func(s2 *state) (*state, bool) {
			s2.slotChoice[slot] = edge.Package
			return solveSlots(s2, rest, k)
		})
		if ok {
			return final, true
		}
	}
	return nil, false
}

func reorderPreferringSelected(s *state, edges []reqgraph.ModuleSlotEdge) []reqgraph.ModuleSlotEdge {
	out := make([]reqgraph.ModuleSlotEdge, len(edges))
	copy(out, edges)
	sort.SliceStable(out, func(i, j int) bool {
		_, iSel := s.packageChoice[out[i].Package]
		_, jSel := s.packageChoice[out[j].Package]
		return iSel && !jSel
	})
	return out
}

// resolvePackageUnder records an additional constraint on pkg — coming
// from a ModuleSlot edge (versionIDs) or a Version's require edge
// (specifier, tagged with the requiring owner) — then resolves it (spec
// §4.F step 4, Package variant, and §4.F.1 prune).
func resolvePackageUnder(s *state, pkg *reqgraph.PackageNode, owner *reqgraph.VersionNode, specifier string, versionIDs map[kg.VersionID]struct{}, k cont) (*state, bool) {
	s2 := s.clone()
	if specifier != "" {
		s2.specifiers[pkg] = append(s2.specifiers[pkg], specifierEntry{owner: owner, raw: specifier})
	}
	if len(versionIDs) > 0 {
		s2.versionSets[pkg] = append(s2.versionSets[pkg], versionIDs)
	}
	return resolvePackage(s2, pkg, k)
}

// resolvePackage is the OR-node case for a Package: §4.F step 4.
func resolvePackage(s *state, pkg *reqgraph.PackageNode, k cont) (*state, bool) {
	if !pkg.Known {
		// Unknown package with no children: commit immediately.
		return k(s)
	}

	if s.inProgress[pkg] {
		// Requirement cycle: reuse whatever is already chosen (or the
		// lack of a choice) rather than recursing forever; the constraint
		// just recorded is checked against the in-flight version when
		// that version commits below.
		return k(s)
	}

	chosen, hasChoice := s.packageChoice[pkg]
	if hasChoice && versionSatisfies(chosen, s) {
		return k(s)
	}

	// Either nothing is chosen yet, or the prior choice no longer
	// satisfies the now-combined constraints. The prior selection is
	// discarded (we only ever commit a clone on success), and per
	// §4.F.2 delete propagation so are the specifier constraints that
	// selection pushed onto its required Packages: leaving them behind
	// would AND a replacement candidate against a range an abandoned
	// branch invented, not one anything still selected actually wants.
	base := s.clone()
	if hasChoice {
		cascadeRemove(base, chosen)
	}
	delete(base.packageChoice, pkg)

	candidates := prune(pkg, base)
	base.inProgress[pkg] = true
	for _, vn := range candidates {
		attempt := base.clone()
		attempt.inProgress[pkg] = true
		final, ok := resolveVersion(attempt, vn, func(s2 *state) (*state, bool) {
			if !versionSatisfies(vn, s2) {
				// A requirement cycle pushed a constraint vn fails.
				return nil, false
			}
			s2.packageChoice[pkg] = vn
			delete(s2.inProgress, pkg)
			return k(s2)
		})
		if ok {
			return final, true
		}
	}
	return nil, false
}

// resolveVersion is the AND-node case for a Version: every required
// Package must resolve (§4.F step 3).
func resolveVersion(s *state, vn *reqgraph.VersionNode, k cont) (*state, bool) {
	return resolveRequires(s, vn, vn.Requires, k)
}

func resolveRequires(s *state, owner *reqgraph.VersionNode, reqs []reqgraph.RequireEdge, k cont) (*state, bool) {
	if len(reqs) == 0 {
		return k(s)
	}
	req, rest := reqs[0], reqs[1:]
	return resolvePackageUnder(s, req.Package, owner, req.Specifier, nil, func(s2 *state) (*state, bool) {
		return resolveRequires(s2, owner, rest, k)
	})
}

// cascadeRemove implements §4.F.2 delete propagation: strip every
// specifier entry owner pushed onto its directly required Packages.
// Deeper descendants are unaffected here — their entries are tagged with
// whatever Version is currently chosen for their own direct parent, and
// get retracted in turn if and when that parent itself is discarded (the
// same code path, triggered the next time resolvePackage revisits it).
func cascadeRemove(s *state, owner *reqgraph.VersionNode) {
	for _, req := range owner.Requires {
		entries := s.specifiers[req.Package]
		if len(entries) == 0 {
			continue
		}
		kept := make([]specifierEntry, 0, len(entries))
		for _, e := range entries {
			if e.owner != owner {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(s.specifiers, req.Package)
		} else {
			s.specifiers[req.Package] = kept
		}
	}
}

// prune implements §4.F.1: intersect every active specifier and
// version-id-set constraint on pkg, retain satisfying versions, and
// re-apply _sort_versions.
func prune(pkg *reqgraph.PackageNode, s *state) []*reqgraph.VersionNode {
	allReq := version.Any()
	for _, entry := range s.specifiers[pkg] {
		spec, err := version.ParseSpecifierSet(entry.raw)
		if err != nil {
			continue
		}
		allReq = allReq.Intersect(spec)
	}

	var setReq map[kg.VersionID]struct{}
	for i, set := range s.versionSets[pkg] {
		if i == 0 {
			setReq = set
			continue
		}
		intersected := make(map[kg.VersionID]struct{})
		for id := range setReq {
			if _, ok := set[id]; ok {
				intersected[id] = struct{}{}
			}
		}
		setReq = intersected
	}

	var kept []*reqgraph.VersionNode
	for _, vn := range pkg.Versions {
		if vn.Version.Status() == version.StatusFail {
			continue
		}
		if setReq != nil {
			if _, ok := setReq[vn.ID]; !ok {
				continue
			}
		}
		if !allReq.Contains(vn.Version) {
			continue
		}
		kept = append(kept, vn)
	}

	// pkg.Versions is already _sort_versions-ordered by reqgraph.Build;
	// filtering preserves that relative order.
	return kept
}

func versionSatisfies(vn *reqgraph.VersionNode, s *state) bool {
	for _, entry := range s.specifiers[vn.Package] {
		spec, err := version.ParseSpecifierSet(entry.raw)
		if err != nil {
			continue
		}
		if !spec.Contains(vn.Version) {
			return false
		}
	}
	for _, set := range s.versionSets[vn.Package] {
		if _, ok := set[vn.ID]; !ok {
			return false
		}
	}
	return vn.Version.Status() != version.StatusFail
}
