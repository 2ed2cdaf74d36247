package reqgraph

import (
	"testing"

	"github.com/nju-websoft/pycre-go/internal/kg"
	"github.com/nju-websoft/pycre-go/internal/rank"
	"github.com/nju-websoft/pycre-go/internal/version"
)

func TestBuildSortsModuleSlotsByChildCount(t *testing.T) {
	candidates := map[string]*rank.SlotResult{
		"big": {Candidates: []rank.Candidate{{Package: "a"}, {Package: "b"}}},
		"small": {Candidates: []rank.Candidate{{Package: "c"}}},
	}
	g, err := Build(candidates, kg.RequireSubgraph{Versions: map[kg.VersionID]kg.VersionInfo{}})
	if err != nil {
		t.Fatal(err)
	}
	if len(g.ModuleSlots) != 2 {
		t.Fatalf("expected 2 module slots, got %d", len(g.ModuleSlots))
	}
	if g.ModuleSlots[0].TopModule != "small" {
		t.Errorf("expected 'small' slot first (fewer children), got %q", g.ModuleSlots[0].TopModule)
	}
}

func TestBuildMarksUnknownPackages(t *testing.T) {
	candidates := map[string]*rank.SlotResult{
		"widget": {Candidates: []rank.Candidate{{Package: "mycorp-widget", Versions: nil}}},
	}
	g, err := Build(candidates, kg.RequireSubgraph{Versions: map[kg.VersionID]kg.VersionInfo{}})
	if err != nil {
		t.Fatal(err)
	}
	pkg := g.Packages["mycorp-widget"]
	if pkg == nil {
		t.Fatal("expected synthetic package node")
	}
	if pkg.Known {
		t.Error("synthetic package should be marked unknown")
	}
	if len(pkg.Versions) != 0 {
		t.Error("synthetic package should have no versions")
	}
}

func TestBuildSortsVersionsByStatusBand(t *testing.T) {
	sub := kg.RequireSubgraph{
		Packages: []string{"numpy"},
		Versions: map[kg.VersionID]kg.VersionInfo{
			1: {ID: 1, Version: "1.20.0", Status: version.StatusSuccess},
			2: {ID: 2, Version: "1.21.0", Status: version.StatusSuccess},
			3: {ID: 3, Version: "1.22.0", Status: version.StatusFail},
		},
		HasVersion: []kg.HasVersionEdge{
			{Package: "numpy", Version: 1},
			{Package: "numpy", Version: 2},
			{Package: "numpy", Version: 3},
		},
	}
	candidates := map[string]*rank.SlotResult{
		"numpy": {Candidates: []rank.Candidate{{Package: "numpy"}}},
	}
	g, err := Build(candidates, sub)
	if err != nil {
		t.Fatal(err)
	}
	pkg := g.Packages["numpy"]
	if len(pkg.Versions) != 3 {
		t.Fatalf("expected 3 versions, got %d", len(pkg.Versions))
	}
	if pkg.Versions[0].Version.Original() != "1.21.0" {
		t.Errorf("expected 1.21.0 first (newest success), got %s", pkg.Versions[0].Version.Original())
	}
	if pkg.Versions[2].Version.Original() != "1.22.0" {
		t.Errorf("expected 1.22.0 last (fail band), got %s", pkg.Versions[2].Version.Original())
	}
}
