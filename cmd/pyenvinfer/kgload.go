package main

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/nju-websoft/pycre-go/internal/kg"
	"github.com/nju-websoft/pycre-go/internal/kg/kgmem"
	"github.com/nju-websoft/pycre-go/internal/version"
)

// kgDump is the on-disk shape of a fixture knowledge-graph snapshot: the
// same module/package/version triples kgmem.KG is built from in tests,
// serialized so a corpus can ship alongside the binary without a live
// graph database. No Neo4j Go driver module turned up anywhere in the
// retrieval pack (see internal/kg/kgneo4j's package doc); until an
// integrator supplies one through kgneo4j.BoltRunner, this dump loader is
// the CLI's default, fully-functional backend.
type kgDump struct {
	Modules  []kgmem.Module  `json:"modules"`
	Packages []dumpedPackage `json:"packages"`
}

type dumpedPackage struct {
	Name     string             `json:"name"`
	Modules  []string           `json:"modules"`
	Versions []dumpedPkgVersion `json:"versions"`
}

type dumpedPkgVersion struct {
	Version  string            `json:"version"`
	Status   string            `json:"status"`
	Requires map[string]string `json:"requires"`
}

func loadKG(path string) (kg.Client, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading kg dump %s", path)
	}
	var dump kgDump
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, errors.Wrapf(err, "parsing kg dump %s", path)
	}

	g := kgmem.New()
	for _, m := range dump.Modules {
		g.AddModule(m)
	}
	for _, p := range dump.Packages {
		pkg := kgmem.Package{Name: p.Name, Modules: p.Modules}
		for _, v := range p.Versions {
			pkg.Versions = append(pkg.Versions, kgmem.PkgVersion{
				Version:  v.Version,
				Status:   statusFromString(v.Status),
				Requires: v.Requires,
			})
		}
		g.AddPackage(pkg)
	}
	return g, nil
}

func statusFromString(s string) version.InstallStatus {
	switch s {
	case "success":
		return version.StatusSuccess
	case "fail":
		return version.StatusFail
	default:
		return version.StatusUnknown
	}
}
