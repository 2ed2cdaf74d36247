// Package reqgraph builds and orders the four-layer AND/OR requirement
// graph (component D, spec §3 + §4.E): Root -> ModuleSlot -> Package ->
// Version -> Package ... . The heuristic resolver (internal/resolve) and
// the SAT encoder (internal/sat) both walk this same structure; this
// package only builds and sorts it.
//
// The four node variants are a natural tagged union, the same way the
// teacher's gps atom/bimodalIdentifier types tag a node with the role it
// plays in the dependency graph (see types.go's atom/completeDep). Here
// each variant is its own Go type (ModuleSlotNode, PackageNode,
// VersionNode), Root is implicit as Graph.ModuleSlots, and Variant is a
// separate tag type that no node stores.
package reqgraph

import (
	"sort"

	"github.com/nju-websoft/pycre-go/internal/kg"
	"github.com/nju-websoft/pycre-go/internal/rank"
	"github.com/nju-websoft/pycre-go/internal/version"
)

// Variant tags which of the four node kinds a node is.
type Variant int

const (
	VariantModuleSlot Variant = iota
	VariantPackage
	VariantVersion
)

// IsConjunction reports whether every out-neighbor of a node of this
// variant must be satisfied simultaneously (AND), as opposed to exactly
// one (OR). Root and Version are AND; ModuleSlot and Package are OR.
func (v Variant) IsConjunction() bool { return v == VariantVersion }

// ModuleSlotEdge is one Root->ModuleSlot->Package binding: the candidate
// version-id-set restricting which versions of Package are admissible
// through this slot. A nil set means unconstrained.
type ModuleSlotEdge struct {
	Package    *PackageNode
	VersionIDs map[kg.VersionID]struct{}
}

// RequireEdge is one Version->Package edge, labeled with the specifier
// string that constrains which versions of Package satisfy it.
type RequireEdge struct {
	Package   *PackageNode
	Specifier string
}

// ModuleSlotNode is the OR choice point for one top-level imported
// identifier.
type ModuleSlotNode struct {
	TopModule string
	Edges     []ModuleSlotEdge
}

// PackageNode is a library: OR over its known Versions. Known == false
// means the package has no KG entry at all (spec's UnknownPackage case);
// it has no versions and is satisfied trivially.
type PackageNode struct {
	Name     string
	Known    bool
	Versions []*VersionNode
}

// VersionNode is a concrete release: AND over every package it requires.
type VersionNode struct {
	Package  *PackageNode
	ID       kg.VersionID
	Version  *version.Version
	Requires []RequireEdge
}

// Graph is the full requirement graph for one dialect-resolution attempt.
type Graph struct {
	ModuleSlots []*ModuleSlotNode
	Packages    map[string]*PackageNode
}

func newGraph() *Graph {
	return &Graph{Packages: make(map[string]*PackageNode)}
}

func (g *Graph) packageNode(name string) *PackageNode {
	if p, ok := g.Packages[name]; ok {
		return p
	}
	p := &PackageNode{Name: name, Known: true}
	g.Packages[name] = p
	return p
}

// Build materializes the graph from the ranker's candidate_libraries
// (per §4.C, already filtered to the picked dialect) and the KG's
// induced require_subgraph over the union of candidate package names
// (spec §4.E).
func Build(candidates map[string]*rank.SlotResult, sub kg.RequireSubgraph) (*Graph, error) {
	g := newGraph()

	// Step 1: every KG Package/Version becomes a node.
	versionsByID := make(map[kg.VersionID]*VersionNode)
	for _, name := range sub.Packages {
		g.packageNode(name)
	}
	for _, hv := range sub.HasVersion {
		pkg := g.packageNode(hv.Package)
		vi, ok := sub.Versions[hv.Version]
		if !ok {
			continue
		}
		v, err := version.Parse(vi.Version)
		if err != nil {
			// An unparseable version coming out of the KG is a diagnostic
			// anomaly (spec §7's "all other internal anomalies"); skip it
			// rather than fail the whole build.
			continue
		}
		v = v.WithStatus(vi.Status)
		vn := &VersionNode{Package: pkg, ID: hv.Version, Version: v}
		pkg.Versions = append(pkg.Versions, vn)
		versionsByID[hv.Version] = vn
	}

	// Step 2: REQUIRES(v -> p) edges.
	for _, re := range sub.RequireEdges {
		vn, ok := versionsByID[re.FromVersion]
		if !ok {
			continue
		}
		toPkg, ok := g.Packages[re.ToPackage]
		if !ok {
			// Required, but with no KG entry of its own.
			toPkg = &PackageNode{Name: re.ToPackage, Known: false}
			g.Packages[re.ToPackage] = toPkg
		}
		vn.Requires = append(vn.Requires, RequireEdge{Package: toPkg, Specifier: re.Specifier})
	}

	// Steps 3-5: Root is implicit (g.ModuleSlots *is* Root's child list);
	// build one ModuleSlot per top_module, with edges to its candidates.
	tops := make([]string, 0, len(candidates))
	for top := range candidates {
		tops = append(tops, top)
	}
	sort.Strings(tops)

	for _, top := range tops {
		slot := &ModuleSlotNode{TopModule: top}
		for _, cand := range candidates[top].Candidates {
			pkg, known := g.Packages[cand.Package]
			if !known {
				pkg = &PackageNode{Name: cand.Package, Known: false}
				g.Packages[cand.Package] = pkg
			}
			slot.Edges = append(slot.Edges, ModuleSlotEdge{
				Package:    pkg,
				VersionIDs: cand.Versions,
			})
		}
		g.ModuleSlots = append(g.ModuleSlots, slot)
	}

	g.sortAll()
	return g, nil
}

// sortAll applies the §4.E out-neighbor orderings throughout the graph.
func (g *Graph) sortAll() {
	// Root: ModuleSlots ascending by child count (fail fast on the most
	// constrained slot first).
	sort.SliceStable(g.ModuleSlots, func(i, j int) bool {
		return len(g.ModuleSlots[i].Edges) < len(g.ModuleSlots[j].Edges)
	})

	for _, slot := range g.ModuleSlots {
		// ModuleSlot: Packages descending by number of candidate versions
		// (more options deferred to last).
		sort.SliceStable(slot.Edges, func(i, j int) bool {
			return edgeOptionCount(slot.Edges[i]) > edgeOptionCount(slot.Edges[j])
		})
	}

	for _, pkg := range g.Packages {
		// Package: Versions by _sort_versions.
		pkg.Versions = sortVersionNodes(pkg.Versions)
	}

	for _, pkg := range g.Packages {
		for _, vn := range pkg.Versions {
			// Version: required Packages ascending by child count (their
			// own known-version count).
			sort.SliceStable(vn.Requires, func(i, j int) bool {
				return len(vn.Requires[i].Package.Versions) < len(vn.Requires[j].Package.Versions)
			})
		}
	}
}

func edgeOptionCount(e ModuleSlotEdge) int {
	if len(e.VersionIDs) > 0 {
		return len(e.VersionIDs)
	}
	return len(e.Package.Versions)
}

// sortVersionNodes applies §4.E.1 _sort_versions to a package's version
// nodes: newest-first by semantic order, then stable-partitioned by
// install status into Success, Unknown, Fail bands.
func sortVersionNodes(vs []*VersionNode) []*VersionNode {
	vals := make([]*version.Version, len(vs))
	byVal := make(map[*version.Version]*VersionNode, len(vs))
	for i, vn := range vs {
		vals[i] = vn.Version
		byVal[vn.Version] = vn
	}
	sorted := version.SortVersions(vals)
	out := make([]*VersionNode, len(sorted))
	for i, v := range sorted {
		out[i] = byVal[v]
	}
	return out
}
