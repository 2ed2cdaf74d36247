package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadKGBuildsQueryableGraph(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kg.json")
	body := `{
		"modules": [{"Name": "requests", "ImportStatus": true, "Attributes": ["get", "post"]}],
		"packages": [{
			"name": "requests",
			"modules": ["requests"],
			"versions": [{"version": "2.25.0", "status": "success", "requires": {}}]
		}]
	}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	client, err := loadKG(path)
	if err != nil {
		t.Fatal(err)
	}

	mods, err := client.ModuleByName("requests")
	if err != nil {
		t.Fatal(err)
	}
	if len(mods) != 1 || mods[0].Name != "requests" {
		t.Errorf("expected one module named requests, got %v", mods)
	}

	sub, err := client.RequireSubgraph([]string{"requests"})
	if err != nil {
		t.Fatal(err)
	}
	if len(sub.Packages) != 1 || sub.Packages[0] != "requests" {
		t.Errorf("expected requests in the require subgraph, got %v", sub.Packages)
	}
}

func TestLoadKGMissingFile(t *testing.T) {
	if _, err := loadKG(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected an error for a missing dump file")
	}
}
