package rank

import (
	"math"
	"testing"

	"github.com/nju-websoft/pycre-go/internal/kg/kgmem"
	"github.com/nju-websoft/pycre-go/internal/parseadapter"
	"github.com/nju-websoft/pycre-go/internal/version"
)

func TestBuildForestGroupsByTopSegment(t *testing.T) {
	n := parseadapter.NewNames()
	n.AddImport("numpy")
	n.AddImport("numpy.core")
	n.AddAttr("numpy.array")
	n.AddResource("pandas.DataFrame")

	forest := BuildForest(n)
	if len(forest) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(forest))
	}
	np := forest["numpy"]
	if np == nil {
		t.Fatal("missing numpy slot")
	}
	if _, ok := np.Modules["numpy.core"]; !ok {
		t.Error("expected numpy.core in modules")
	}
	if _, ok := np.Attrs["numpy.array"]; !ok {
		t.Error("expected numpy.array in attrs")
	}
	if np.MaxHop != 1 {
		t.Errorf("MaxHop = %d, want 1", np.MaxHop)
	}

	pd := forest["pandas"]
	if pd == nil {
		t.Fatal("missing pandas slot")
	}
	if _, ok := pd.Modules["pandas.DataFrame"]; !ok {
		t.Error("expected pandas.DataFrame counted as a module (resource)")
	}
	if _, ok := pd.Attrs["pandas.DataFrame"]; !ok {
		t.Error("expected pandas.DataFrame counted as an attr (resource)")
	}
}

func TestMatchDegreeExactAndPartial(t *testing.T) {
	tree := map[string]struct{}{"a.b": {}}
	exact := map[string]struct{}{"a.b": {}}
	if got := matchDegree(tree, exact); got != 1 {
		t.Errorf("exact match degree = %v, want 1", got)
	}

	// one strip ("a.b.c" -> "a.b") out of depth 3: 1 - 1/3
	partial := map[string]struct{}{"a.b.c": {}}
	if got := matchDegree(tree, partial); math.Abs(got-2.0/3.0) > 1e-12 {
		t.Errorf("partial match degree = %v, want 2/3", got)
	}

	miss := map[string]struct{}{"x.y.z": {}}
	if got := matchDegree(tree, miss); got != 0 {
		t.Errorf("full miss degree = %v, want 0", got)
	}

	if got := matchDegree(map[string]struct{}{}, exact); got != 0 {
		t.Errorf("empty tree set should score 0, got %v", got)
	}
}

func TestPrefixTrieLongestPrefixRespectsDottedBoundary(t *testing.T) {
	trie := newPrefixTrie()
	trie.Insert("os")

	if _, ok := trie.LongestPrefix("oslo.config.cfg"); ok {
		t.Error(`expected no match: "os" is a byte-prefix but not a dotted-path prefix of "oslo.config.cfg"`)
	}
	if p, ok := trie.LongestPrefix("os.path"); !ok || p != "os" {
		t.Errorf(`expected "os" to match "os.path" at a dot boundary, got %q, %v`, p, ok)
	}
	if p, ok := trie.LongestPrefix("os"); !ok || p != "os" {
		t.Errorf(`expected exact match "os", got %q, %v`, p, ok)
	}
}

func TestRankSlotUnknownTopModuleSynthesizesCandidate(t *testing.T) {
	g := kgmem.New()
	n := parseadapter.NewNames()
	n.AddImport("mycorp_widget")
	forest := BuildForest(n)

	res, err := RankSlot(g, forest["mycorp_widget"])
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Candidates) != 1 {
		t.Fatalf("expected 1 synthesized candidate, got %d", len(res.Candidates))
	}
	if got := res.Candidates[0].Package; got != "mycorp-widget" {
		t.Errorf("synthesized package name = %q, want mycorp-widget", got)
	}
	if res.Candidates[0].Versions != nil {
		t.Error("synthesized candidate should have an unconstrained (nil) version set")
	}
}

func TestRankSlotExactMatch(t *testing.T) {
	g := kgmem.New()
	g.AddModule(kgmem.Module{Name: "numpy", ImportStatus: true, Attributes: []string{"array"}})
	g.AddPackage(kgmem.Package{
		Name:    "numpy",
		Modules: []string{"numpy"},
		Versions: []kgmem.PkgVersion{
			{Version: "1.20.0", Status: version.StatusSuccess},
			{Version: "1.21.0", Status: version.StatusSuccess},
			{Version: "1.22.0", Status: version.StatusFail},
		},
	})

	n := parseadapter.NewNames()
	n.AddImport("numpy")
	n.AddAttr("numpy.array")
	forest := BuildForest(n)

	res, err := RankSlot(g, forest["numpy"])
	if err != nil {
		t.Fatal(err)
	}
	if res.ModuleScore != 1 {
		t.Errorf("module score = %v, want 1", res.ModuleScore)
	}
	if res.AttrScore != 1 {
		t.Errorf("attr score = %v, want 1", res.AttrScore)
	}
	if len(res.Candidates) != 1 || res.Candidates[0].Package != "numpy" {
		t.Fatalf("unexpected candidates: %+v", res.Candidates)
	}
	if len(res.Candidates[0].Versions) != 3 {
		t.Errorf("expected 3 known version ids, got %d", len(res.Candidates[0].Versions))
	}
}
