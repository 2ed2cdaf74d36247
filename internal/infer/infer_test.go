package infer

import (
	"testing"

	"github.com/nju-websoft/pycre-go/internal/kg"
	"github.com/nju-websoft/pycre-go/internal/kg/kgmem"
	"github.com/nju-websoft/pycre-go/internal/parseadapter"
	"github.com/nju-websoft/pycre-go/internal/version"
)

func TestInferEmptySnippetYieldsEmptyPlan(t *testing.T) {
	g := kgmem.New()
	names := parseadapter.NewNames()
	snippet := &parseadapter.Snippet{Parses: map[parseadapter.Dialect]*parseadapter.Names{
		parseadapter.D3: names,
	}}
	out, err := Infer(g, snippet, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != StatusHeuristic {
		t.Errorf("expected status 1, got %d", out.Status)
	}
	if out.InstallPairs == nil || len(out.InstallPairs) != 0 {
		t.Errorf("expected empty (non-nil) plan, got %v", out.InstallPairs)
	}
	if out.Dialect != parseadapter.D3 {
		t.Errorf("expected D3, got %s", out.Dialect)
	}
}

func TestInferUnknownTopModuleSynthesizesCandidate(t *testing.T) {
	g := kgmem.New()
	names := parseadapter.NewNames()
	names.AddImport("mycorp_widget")
	snippet := &parseadapter.Snippet{Parses: map[parseadapter.Dialect]*parseadapter.Names{
		parseadapter.D3: names,
	}}
	out, err := Infer(g, snippet, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != StatusHeuristic {
		t.Errorf("expected status 1, got %d", out.Status)
	}
	if len(out.InstallPairs) != 1 {
		t.Fatalf("expected one install pair, got %v", out.InstallPairs)
	}
	p := out.InstallPairs[0]
	if p.Name != "mycorp-widget" || !p.Null {
		t.Errorf("expected (mycorp-widget, null), got %+v", p)
	}
}

func TestInferExactMatchResolvesWithHeuristic(t *testing.T) {
	g := kgmem.New()
	g.AddModule(kgmem.Module{Name: "requests", ImportStatus: kg.ImportOK})
	g.AddPackage(kgmem.Package{
		Name:    "requests",
		Modules: []string{"requests"},
		Versions: []kgmem.PkgVersion{
			{Version: "2.25.0", Status: version.StatusSuccess},
		},
	})
	names := parseadapter.NewNames()
	names.AddImport("requests")
	snippet := &parseadapter.Snippet{Parses: map[parseadapter.Dialect]*parseadapter.Names{
		parseadapter.D3: names,
	}}
	out, err := Infer(g, snippet, Options{InterpreterVersion: "3.8.11"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != StatusHeuristic {
		t.Errorf("expected status 1, got %d", out.Status)
	}
	if len(out.InstallPairs) != 1 || out.InstallPairs[0].Name != "requests" || out.InstallPairs[0].Version != "2.25.0" {
		t.Fatalf("expected requests 2.25.0, got %v", out.InstallPairs)
	}
	if out.InterpreterVersion != "3.8.11" {
		t.Errorf("expected interpreter version passed through, got %q", out.InterpreterVersion)
	}
}

func TestInferFailsWhenNeitherDialectParsed(t *testing.T) {
	g := kgmem.New()
	snippet := &parseadapter.Snippet{Parses: map[parseadapter.Dialect]*parseadapter.Names{}}
	out, err := Infer(g, snippet, Options{})
	if err != ErrParseFailed {
		t.Fatalf("expected ErrParseFailed, got %v", err)
	}
	if out.InstallPairs != nil {
		t.Errorf("expected null install plan, got %v", out.InstallPairs)
	}
}
