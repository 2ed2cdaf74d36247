// Package plan implements the install-plan extractor (component G, spec
// §4.H): project a solver's assignment onto a package-version DAG, decide
// which packages are explicit vs implicit, and topologically order them.
package plan

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/nju-websoft/pycre-go/internal/kg"
	"github.com/nju-websoft/pycre-go/internal/reqgraph"
	"github.com/nju-websoft/pycre-go/internal/resolve"
	"github.com/nju-websoft/pycre-go/internal/sat"
	"github.com/nju-websoft/pycre-go/internal/version"
)

// Pair is one (package_name, version_or_null) output entry.
type Pair struct {
	Name      string
	Version   string // "" when Null is true
	Null      bool
	Explicit  bool
}

// ErrCycle is a diagnostic-only signal (spec §7 CycleInInstallOrder): a
// cycle was detected during topological sort. The caller still gets a
// usable (warned, arbitrarily ordered) plan back, not an error result.
var ErrCycle = errors.New("cycle detected in install order")

// Selection is the common shape both the heuristic resolver and the SAT
// solver produce; Degraded also produces one when both fail.
type Selection struct {
	SlotChoice    map[*reqgraph.ModuleSlotNode]*reqgraph.PackageNode
	PackageChoice map[*reqgraph.PackageNode]*reqgraph.VersionNode
}

// FromResolve adapts a heuristic resolver solution.
func FromResolve(s *resolve.Solution) Selection {
	return Selection{SlotChoice: s.SlotChoice, PackageChoice: s.PackageChoice}
}

// FromSAT adapts a SAT solver solution.
func FromSAT(s *sat.Solution) Selection {
	return Selection{SlotChoice: s.SlotChoice, PackageChoice: s.PackageChoice}
}

// Degraded builds a best-effort Selection when both the heuristic and
// SAT solvers fail: one best Package/Version per ModuleSlot, with no
// solvability check across slots (spec §4.H / §7 NoCompatible).
func Degraded(g *reqgraph.Graph) Selection {
	sel := Selection{
		SlotChoice:    make(map[*reqgraph.ModuleSlotNode]*reqgraph.PackageNode),
		PackageChoice: make(map[*reqgraph.PackageNode]*reqgraph.VersionNode),
	}
	for _, slot := range g.ModuleSlots {
		if len(slot.Edges) == 0 {
			continue
		}
		pkg := slot.Edges[0].Package
		sel.SlotChoice[slot] = pkg
		assignNewest(pkg, slot.Edges[0].VersionIDs, sel.PackageChoice)
	}
	return sel
}

// assignNewest picks the newest installable version of pkg, restricted to
// versionIDs when non-empty: the original's infer_install_pairs degraded
// fallback only ever picks from the candidate set a ModuleSlot edge actually
// offered, not just any version the package ever had.
func assignNewest(pkg *reqgraph.PackageNode, versionIDs map[kg.VersionID]struct{}, choice map[*reqgraph.PackageNode]*reqgraph.VersionNode) {
	if _, done := choice[pkg]; done {
		return
	}
	if !pkg.Known || len(pkg.Versions) == 0 {
		return
	}
	candidates := pkg.Versions
	if len(versionIDs) > 0 {
		candidates = nil
		for _, vn := range pkg.Versions {
			if _, ok := versionIDs[vn.ID]; ok {
				candidates = append(candidates, vn)
			}
		}
		if len(candidates) == 0 {
			return
		}
	}
	// candidates is already _sort_versions-ordered (newest installable
	// first); take the first non-Fail entry, else the newest regardless.
	best := candidates[0]
	for _, vn := range candidates {
		if vn.Version.Status() != version.StatusFail {
			best = vn
			break
		}
	}
	choice[pkg] = best
	for _, req := range best.Requires {
		assignNewest(req.Package, nil, choice)
	}
}

// node is the internal DAG node built while extracting the plan.
type node struct {
	pkg      *reqgraph.PackageNode
	ver      *reqgraph.VersionNode // nil for an unknown/null package
	explicit bool
	requires []*node
}

// Extract implements spec §4.H: survivors are every Package reachable
// from the selected ModuleSlot bindings via chosen-version require
// edges (this reachability walk is also what discards SAT "witness"
// nodes the solver set true but left disconnected, per §4.G's
// fixpoint-trim description).
func Extract(g *reqgraph.Graph, sel Selection) ([]Pair, error) {
	nodes := make(map[*reqgraph.PackageNode]*node)

	var visit func(pkg *reqgraph.PackageNode) *node
	visit = func(pkg *reqgraph.PackageNode) *node {
		if n, ok := nodes[pkg]; ok {
			return n
		}
		n := &node{pkg: pkg}
		nodes[pkg] = n
		if vn, ok := sel.PackageChoice[pkg]; ok {
			n.ver = vn
			for _, req := range vn.Requires {
				n.requires = append(n.requires, visit(req.Package))
			}
		}
		return n
	}

	order := make([]*reqgraph.ModuleSlotNode, len(g.ModuleSlots))
	copy(order, g.ModuleSlots)
	sort.Slice(order, func(i, j int) bool { return order[i].TopModule < order[j].TopModule })

	for _, slot := range order {
		pkg, ok := sel.SlotChoice[slot]
		if !ok {
			continue
		}
		visit(pkg)
	}

	markExplicit(nodes)

	sorted, cycle := kahnSort(nodes)

	pairs := make([]Pair, 0, len(sorted))
	for _, n := range sorted {
		p := Pair{Name: n.pkg.Name, Explicit: n.explicit}
		if n.ver == nil {
			p.Null = true
		} else {
			p.Version = n.ver.Version.Original()
		}
		pairs = append(pairs, p)
	}

	if cycle {
		return pairs, ErrCycle
	}
	return pairs, nil
}

// markExplicit implements the explicit-vs-implicit rule of §4.H.
func markExplicit(nodes map[*reqgraph.PackageNode]*node) {
	// parentSpecs[pkg] collects the specifier string from every chosen
	// parent Version that requires it.
	parentSpecs := make(map[*reqgraph.PackageNode][]string)
	for _, n := range nodes {
		if n.ver == nil {
			continue
		}
		for _, req := range n.ver.Requires {
			if _, ok := nodes[req.Package]; ok {
				parentSpecs[req.Package] = append(parentSpecs[req.Package], req.Specifier)
			}
		}
	}

	for pkg, n := range nodes {
		specs := parentSpecs[pkg]
		if len(specs) == 0 {
			// Zero in-edges: always explicit (bound directly from a
			// ModuleSlot, not pulled transitively).
			n.explicit = true
			continue
		}
		if n.ver == nil {
			n.explicit = true
			continue
		}

		allReq := version.Any()
		for _, raw := range specs {
			s, err := version.ParseSpecifierSet(raw)
			if err != nil {
				continue
			}
			allReq = allReq.Intersect(s)
		}
		natural := firstSatisfying(pkg.Versions, allReq)

		// perParentBest holds one entry per requiring parent (not per
		// distinct specifier string): two parents that happen to write
		// the same specifier always agree, but two parents with
		// different specifier text can still pick the same newest
		// version, so disagreement has to be judged on the resulting
		// versions, not on string identity.
		var perParentBest []*version.Version
		disagree := false
		for _, raw := range specs {
			s, err := version.ParseSpecifierSet(raw)
			if err != nil {
				continue
			}
			best := firstSatisfying(pkg.Versions, s)
			var bv *version.Version
			if best != nil {
				bv = best.Version
			}
			for _, prior := range perParentBest {
				if !sameVersion(prior, bv) {
					disagree = true
				}
			}
			perParentBest = append(perParentBest, bv)
		}

		switch {
		case disagree:
			n.explicit = true
		case natural == nil || n.ver.Version != natural.Version:
			n.explicit = true
		default:
			n.explicit = false
		}
	}
}

func sameVersion(a, b *version.Version) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(b)
}

func firstSatisfying(versions []*reqgraph.VersionNode, req version.SpecifierSet) *reqgraph.VersionNode {
	for _, vn := range versions {
		if vn.Version.Status() == version.StatusFail {
			continue
		}
		if req.Contains(vn.Version) {
			return vn
		}
	}
	return nil
}

// kahnSort topologically orders nodes by Kahn's algorithm: requirements
// before dependents. Returns (order, true) if a cycle was detected, in
// which case order holds the nodes sorted before progress stopped,
// followed by the remaining explicit nodes in arbitrary order; remaining
// implicit nodes are left out (spec §4.H).
func kahnSort(nodes map[*reqgraph.PackageNode]*node) ([]*node, bool) {
	outDegree := make(map[*node]int, len(nodes))
	dependents := make(map[*node][]*node, len(nodes))
	for _, n := range nodes {
		outDegree[n] = len(n.requires)
		for _, req := range n.requires {
			dependents[req] = append(dependents[req], n)
		}
	}

	var ready []*node
	for _, n := range nodes {
		if outDegree[n] == 0 {
			ready = append(ready, n)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i].pkg.Name < ready[j].pkg.Name })

	var order []*node
	visited := make(map[*node]bool, len(nodes))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		if visited[n] {
			continue
		}
		visited[n] = true
		order = append(order, n)
		var newlyReady []*node
		for _, dep := range dependents[n] {
			outDegree[dep]--
			if outDegree[dep] == 0 {
				newlyReady = append(newlyReady, dep)
			}
		}
		sort.Slice(newlyReady, func(i, j int) bool { return newlyReady[i].pkg.Name < newlyReady[j].pkg.Name })
		ready = append(ready, newlyReady...)
	}

	if len(order) == len(nodes) {
		return order, false
	}

	// Cycle: flush remaining explicit packages in arbitrary (map
	// iteration) order, per spec §7 CycleInInstallOrder.
	for _, n := range nodes {
		if visited[n] {
			continue
		}
		if n.explicit {
			order = append(order, n)
			visited[n] = true
		}
	}
	return order, true
}
