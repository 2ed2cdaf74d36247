package dialect

import (
	"testing"

	"github.com/nju-websoft/pycre-go/internal/kg"
	"github.com/nju-websoft/pycre-go/internal/kg/kgmem"
	"github.com/nju-websoft/pycre-go/internal/parseadapter"
	"github.com/nju-websoft/pycre-go/internal/version"
)

func fixture() *kgmem.KG {
	g := kgmem.New()
	g.AddModule(kgmem.Module{Name: "requests", ImportStatus: kg.ImportOK})
	g.AddPackage(kgmem.Package{
		Name:    "requests",
		Modules: []string{"requests"},
		Versions: []kgmem.PkgVersion{
			{Version: "2.25.0", Status: version.StatusSuccess},
		},
	})
	return g
}

func TestSelectPrefersHigherModuleScore(t *testing.T) {
	g := fixture()

	d2 := parseadapter.NewNames()
	d2.AddImport("urllib2")

	d3 := parseadapter.NewNames()
	d3.AddImport("requests")

	snippet := &parseadapter.Snippet{Parses: map[parseadapter.Dialect]*parseadapter.Names{
		parseadapter.D2: d2,
		parseadapter.D3: d3,
	}}

	res, err := Select(g, snippet)
	if err != nil {
		t.Fatal(err)
	}
	if res.Dialect != parseadapter.D3 {
		t.Errorf("expected D3 to win (exact module match vs unknown), got %s", res.Dialect)
	}
}

func TestSelectFailsWhenNeitherDialectParsed(t *testing.T) {
	snippet := &parseadapter.Snippet{Parses: map[parseadapter.Dialect]*parseadapter.Names{}}
	_, err := Select(fixture(), snippet)
	if err != ErrNoParse {
		t.Fatalf("expected ErrNoParse, got %v", err)
	}
}

func TestSelectPrefersD3OnFullTie(t *testing.T) {
	g := kgmem.New()
	g.AddModule(kgmem.Module{Name: "shared", ImportStatus: kg.ImportOK})
	g.AddPackage(kgmem.Package{
		Name:    "shared",
		Modules: []string{"shared"},
		Versions: []kgmem.PkgVersion{
			{Version: "1.0.0", Status: version.StatusSuccess},
		},
	})

	d2 := parseadapter.NewNames()
	d2.AddImport("shared")
	d3 := parseadapter.NewNames()
	d3.AddImport("shared")

	snippet := &parseadapter.Snippet{Parses: map[parseadapter.Dialect]*parseadapter.Names{
		parseadapter.D2: d2,
		parseadapter.D3: d3,
	}}

	res, err := Select(g, snippet)
	if err != nil {
		t.Fatal(err)
	}
	if res.Dialect != parseadapter.D3 {
		t.Errorf("expected D3 to win a full tie, got %s", res.Dialect)
	}
}
