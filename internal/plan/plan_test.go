package plan

import (
	"testing"

	"github.com/nju-websoft/pycre-go/internal/kg"
	"github.com/nju-websoft/pycre-go/internal/rank"
	"github.com/nju-websoft/pycre-go/internal/reqgraph"
	"github.com/nju-websoft/pycre-go/internal/resolve"
	"github.com/nju-websoft/pycre-go/internal/version"
)

func buildGraph(t *testing.T) *reqgraph.Graph {
	t.Helper()
	sub := kg.RequireSubgraph{
		Packages: []string{"numpy", "six"},
		Versions: map[kg.VersionID]kg.VersionInfo{
			1: {ID: 1, Version: "1.20.0", Status: version.StatusSuccess},
			2: {ID: 2, Version: "1.21.0", Status: version.StatusSuccess},
			3: {ID: 3, Version: "1.10.0", Status: version.StatusSuccess},
			4: {ID: 4, Version: "1.16.0", Status: version.StatusSuccess},
		},
		HasVersion: []kg.HasVersionEdge{
			{Package: "numpy", Version: 1},
			{Package: "numpy", Version: 2},
			{Package: "six", Version: 3},
			{Package: "six", Version: 4},
		},
		RequireEdges: []kg.RequireEdge{
			{FromVersion: 2, ToPackage: "six", Specifier: ">=1.12"},
		},
	}
	candidates := map[string]*rank.SlotResult{
		"numpy": {Candidates: []rank.Candidate{{Package: "numpy"}}},
	}
	g, err := reqgraph.Build(candidates, sub)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestExtractOrdersRequirementsBeforeDependents(t *testing.T) {
	g := buildGraph(t)
	sol, ok := resolve.Solve(g)
	if !ok {
		t.Fatal("expected resolver to succeed")
	}
	pairs, err := Extract(g, FromResolve(sol))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pos := make(map[string]int, len(pairs))
	for i, p := range pairs {
		pos[p.Name] = i
	}
	if _, ok := pos["numpy"]; !ok {
		t.Fatal("expected numpy in install plan")
	}
	if _, ok := pos["six"]; !ok {
		t.Fatal("expected six (transitive dependency) in install plan")
	}
	if pos["six"] >= pos["numpy"] {
		t.Errorf("expected six before numpy, got order %v", pairs)
	}
}

func TestExtractMarksRootSlotPackageExplicit(t *testing.T) {
	g := buildGraph(t)
	sol, ok := resolve.Solve(g)
	if !ok {
		t.Fatal("expected resolver to succeed")
	}
	pairs, err := Extract(g, FromResolve(sol))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, p := range pairs {
		if p.Name == "numpy" && !p.Explicit {
			t.Error("expected numpy (bound directly from a ModuleSlot) to be explicit")
		}
	}
}

func TestExtractDetectsCycle(t *testing.T) {
	sub := kg.RequireSubgraph{
		Packages: []string{"a", "b"},
		Versions: map[kg.VersionID]kg.VersionInfo{
			1: {ID: 1, Version: "1.0", Status: version.StatusSuccess},
			2: {ID: 2, Version: "1.0", Status: version.StatusSuccess},
		},
		HasVersion: []kg.HasVersionEdge{
			{Package: "a", Version: 1},
			{Package: "b", Version: 2},
		},
		RequireEdges: []kg.RequireEdge{
			{FromVersion: 1, ToPackage: "b", Specifier: ""},
			{FromVersion: 2, ToPackage: "a", Specifier: ""},
		},
	}
	candidates := map[string]*rank.SlotResult{
		"a": {Candidates: []rank.Candidate{{Package: "a"}}},
	}
	g, err := reqgraph.Build(candidates, sub)
	if err != nil {
		t.Fatal(err)
	}
	sel := Selection{
		SlotChoice:    map[*reqgraph.ModuleSlotNode]*reqgraph.PackageNode{g.ModuleSlots[0]: g.Packages["a"]},
		PackageChoice: map[*reqgraph.PackageNode]*reqgraph.VersionNode{},
	}
	for _, pkg := range g.Packages {
		sel.PackageChoice[pkg] = pkg.Versions[0]
	}
	pairs, err := Extract(g, sel)
	if err != ErrCycle {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
	// Each package has a chosen parent in the other whose (empty)
	// specifier picks exactly the chosen version, so both are implicit;
	// only explicit packages are flushed on a cycle.
	if len(pairs) != 0 {
		t.Fatalf("expected no pairs flushed (neither package in the cycle is explicit), got %v", pairs)
	}
}

func TestExtractMarksDisagreeingTransitiveDependencyExplicit(t *testing.T) {
	// two top-level packages both require "six", under differently
	// worded specifiers that each resolve to a different best version.
	sub := kg.RequireSubgraph{
		Packages: []string{"alpha", "beta", "six"},
		Versions: map[kg.VersionID]kg.VersionInfo{
			1: {ID: 1, Version: "1.0", Status: version.StatusSuccess},
			2: {ID: 2, Version: "1.0", Status: version.StatusSuccess},
			3: {ID: 3, Version: "1.16.0", Status: version.StatusSuccess},
			4: {ID: 4, Version: "1.10.0", Status: version.StatusSuccess},
		},
		HasVersion: []kg.HasVersionEdge{
			{Package: "alpha", Version: 1},
			{Package: "beta", Version: 2},
			{Package: "six", Version: 3},
			{Package: "six", Version: 4},
		},
		RequireEdges: []kg.RequireEdge{
			{FromVersion: 1, ToPackage: "six", Specifier: ">=1.12"},
			{FromVersion: 2, ToPackage: "six", Specifier: "<1.12"},
		},
	}
	candidates := map[string]*rank.SlotResult{
		"alpha": {Candidates: []rank.Candidate{{Package: "alpha"}}},
		"beta":  {Candidates: []rank.Candidate{{Package: "beta"}}},
	}
	g, err := reqgraph.Build(candidates, sub)
	if err != nil {
		t.Fatal(err)
	}
	sel := Selection{
		SlotChoice: map[*reqgraph.ModuleSlotNode]*reqgraph.PackageNode{},
		PackageChoice: map[*reqgraph.PackageNode]*reqgraph.VersionNode{
			g.Packages["alpha"]: g.Packages["alpha"].Versions[0],
			g.Packages["beta"]:  g.Packages["beta"].Versions[0],
			g.Packages["six"]:   g.Packages["six"].Versions[0],
		},
	}
	for _, slot := range g.ModuleSlots {
		sel.SlotChoice[slot] = g.Packages[slot.TopModule]
	}

	pairs, err := Extract(g, sel)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, p := range pairs {
		if p.Name == "six" && !p.Explicit {
			t.Error("expected six explicit: its two parents' specifiers disagree on the best version")
		}
	}
}

func TestDegradedPicksFirstCandidatePerSlot(t *testing.T) {
	g := buildGraph(t)
	sel := Degraded(g)
	pkg := g.Packages["numpy"]
	if _, ok := sel.PackageChoice[pkg]; !ok {
		t.Fatal("expected degraded selection to assign numpy a version")
	}
}

// TestDegradedHonorsSlotEdgeVersionIDs: when a ModuleSlot edge restricts a
// package to a specific candidate version-id-set, the degraded fallback
// must pick from that restricted set, not the package's newest version
// overall (which the ranker never actually offered for this slot).
func TestDegradedHonorsSlotEdgeVersionIDs(t *testing.T) {
	sub := kg.RequireSubgraph{
		Packages: []string{"numpy"},
		Versions: map[kg.VersionID]kg.VersionInfo{
			1: {ID: 1, Version: "1.20.0", Status: version.StatusSuccess},
			2: {ID: 2, Version: "1.21.0", Status: version.StatusSuccess},
		},
		HasVersion: []kg.HasVersionEdge{
			{Package: "numpy", Version: 1},
			{Package: "numpy", Version: 2},
		},
	}
	restricted := map[kg.VersionID]struct{}{1: {}}
	candidates := map[string]*rank.SlotResult{
		"numpy": {Candidates: []rank.Candidate{{Package: "numpy", Versions: restricted}}},
	}
	g, err := reqgraph.Build(candidates, sub)
	if err != nil {
		t.Fatal(err)
	}

	sel := Degraded(g)
	pkg := g.Packages["numpy"]
	vn, ok := sel.PackageChoice[pkg]
	if !ok {
		t.Fatal("expected degraded selection to assign numpy a version")
	}
	if vn.Version.Original() != "1.20.0" {
		t.Errorf("expected the restricted candidate 1.20.0, got %s (the ranker never offered 1.21.0 for this slot)", vn.Version.Original())
	}
}
