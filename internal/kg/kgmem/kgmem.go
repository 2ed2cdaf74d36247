// Package kgmem is an in-memory fixture implementation of kg.Client, used
// by tests and by the CLI's JSON-dump loader in place of a live graph
// database. The shape
// mirrors the teacher's in-memory SourceManager test doubles (see
// manager_test.go's naiveAnalyzer/mkNaiveSM): build up a small fixture
// graph with plain Go literals, then exercise the CORE against it.
package kgmem

import (
	"sort"
	"strings"

	"github.com/nju-websoft/pycre-go/internal/kg"
	"github.com/nju-websoft/pycre-go/internal/version"
)

// Module is a fixture module node: a dotted submodule name (e.g.
// "numpy.core"), its import status, and its own attribute set.
type Module struct {
	Name         string
	ImportStatus kg.ImportStatus
	Attributes   []string
}

// PkgVersion is a fixture (version, status, requirements) tuple.
type PkgVersion struct {
	Version  string
	Status   version.InstallStatus
	Requires map[string]string // package name -> specifier string
}

// Package is a fixture package: the modules it exposes (by name) and its
// known versions.
type Package struct {
	Name     string
	Modules  []string
	Versions []PkgVersion
}

// KG is the mutable fixture graph. Zero value is usable; populate via
// AddModule/AddPackage before use.
type KG struct {
	modules  []Module
	packages map[string]*Package

	modID     map[string]kg.ModuleID // module name -> id
	idMod     map[kg.ModuleID]Module
	nextMID   kg.ModuleID
	verID     map[string]kg.VersionID // "pkg@version" -> id
	idVer     map[kg.VersionID]verRef
	nextVID   kg.VersionID
	attrIndex map[string][]string // module name -> "module.attr" strings
}

type verRef struct {
	pkg string
	pv  PkgVersion
}

// New returns an empty fixture KG.
func New() *KG {
	return &KG{
		packages:  make(map[string]*Package),
		modID:     make(map[string]kg.ModuleID),
		idMod:     make(map[kg.ModuleID]Module),
		verID:     make(map[string]kg.VersionID),
		idVer:     make(map[kg.VersionID]verRef),
		attrIndex: make(map[string][]string),
	}
}

// AddModule registers a module node. HAS_MODULE edges are derived
// implicitly from dotted-name prefixes: "numpy.core" is a submodule of
// "numpy".
func (g *KG) AddModule(m Module) *KG {
	g.nextMID++
	id := g.nextMID
	g.modID[m.Name] = id
	g.idMod[id] = m
	for _, a := range m.Attributes {
		g.attrIndex[m.Name] = append(g.attrIndex[m.Name], m.Name+"."+a)
	}
	return g
}

// AddPackage registers a package and its versions.
func (g *KG) AddPackage(p Package) *KG {
	cp := p
	g.packages[p.Name] = &cp
	for _, pv := range p.Versions {
		g.nextVID++
		id := g.nextVID
		key := p.Name + "@" + pv.Version
		g.verID[key] = id
		g.idVer[id] = verRef{pkg: p.Name, pv: pv}
	}
	return g
}

func (g *KG) ModuleByName(name string) ([]kg.ModuleInfo, error) {
	id, ok := g.modID[name]
	if !ok {
		return nil, nil
	}
	m := g.idMod[id]
	return []kg.ModuleInfo{{ID: id, Name: m.Name, ImportStatus: m.ImportStatus}}, nil
}

func (g *KG) SubmodulesWithin(topID kg.ModuleID, maxHop int, acc map[kg.ModuleID][]string) error {
	top := g.idMod[topID]
	for id, m := range g.idMod {
		if m.Name == top.Name {
			continue
		}
		if !strings.HasPrefix(m.Name, top.Name+".") {
			continue
		}
		hop := strings.Count(strings.TrimPrefix(m.Name, top.Name+"."), ".") + 1
		if hop > maxHop {
			continue
		}
		if m.ImportStatus != kg.ImportOK {
			continue
		}
		acc[topID] = append(acc[topID], m.Name)
		_ = id
	}
	return nil
}

func (g *KG) AttributesOf(moduleIDs []kg.ModuleID, submoduleNames []string, acc map[kg.ModuleID][]string) error {
	want := make(map[string]bool, len(submoduleNames))
	for _, s := range submoduleNames {
		want[s] = true
	}
	for _, id := range moduleIDs {
		top := g.idMod[id]
		for name, attrs := range g.attrIndex {
			if name != top.Name && !strings.HasPrefix(name, top.Name+".") {
				continue
			}
			if !want[name] {
				continue
			}
			acc[id] = append(acc[id], attrs...)
		}
	}
	return nil
}

func (g *KG) PackagesVersionsOf(moduleIDs []kg.ModuleID) (map[string]map[kg.VersionID]struct{}, error) {
	names := make(map[string]bool, len(moduleIDs))
	for _, id := range moduleIDs {
		names[g.idMod[id].Name] = true
	}
	out := make(map[string]map[kg.VersionID]struct{})
	for pname, p := range g.packages {
		exposesWanted := false
		for _, m := range p.Modules {
			if names[m] {
				exposesWanted = true
				break
			}
		}
		if !exposesWanted {
			continue
		}
		for _, pv := range p.Versions {
			vid := g.verID[pname+"@"+pv.Version]
			if out[pname] == nil {
				out[pname] = make(map[kg.VersionID]struct{})
			}
			out[pname][vid] = struct{}{}
		}
	}
	return out, nil
}

func (g *KG) RequireSubgraph(packageNames []string) (kg.RequireSubgraph, error) {
	sub := kg.RequireSubgraph{
		Versions: make(map[kg.VersionID]kg.VersionInfo),
	}
	seen := make(map[string]bool)
	queue := append([]string(nil), packageNames...)
	for len(queue) > 0 {
		pname := queue[0]
		queue = queue[1:]
		if seen[pname] {
			continue
		}
		seen[pname] = true
		p, ok := g.packages[pname]
		if !ok {
			continue
		}
		sub.Packages = append(sub.Packages, pname)
		for _, pv := range p.Versions {
			vid := g.verID[pname+"@"+pv.Version]
			sub.Versions[vid] = kg.VersionInfo{ID: vid, Version: pv.Version, Status: pv.Status}
			sub.HasVersion = append(sub.HasVersion, kg.HasVersionEdge{Package: pname, Version: vid})
			for reqPkg, spec := range pv.Requires {
				sub.RequireEdges = append(sub.RequireEdges, kg.RequireEdge{
					FromVersion: vid,
					ToPackage:   reqPkg,
					Specifier:   spec,
				})
				if !seen[reqPkg] {
					queue = append(queue, reqPkg)
				}
			}
		}
	}
	sort.Strings(sub.Packages)
	return sub, nil
}

func (g *KG) ModuleInfoByID(id kg.ModuleID) (kg.ModuleInfo, error) {
	m := g.idMod[id]
	return kg.ModuleInfo{ID: id, Name: m.Name, ImportStatus: m.ImportStatus}, nil
}

func (g *KG) VersionInfoByID(id kg.VersionID) (kg.VersionInfo, error) {
	r := g.idVer[id]
	return kg.VersionInfo{ID: id, Version: r.pv.Version, Status: r.pv.Status}, nil
}

var _ kg.Client = (*KG)(nil)
