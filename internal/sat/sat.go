// Package sat implements the SAT fallback (component F, spec §4.G):
// translate a reqgraph.Graph into CNF and invoke a CDCL solver when the
// heuristic resolver (internal/resolve) fails to find an assignment.
//
// The solver invocation shape — build a []solver.PBConstr via
// solver.PropClause/solver.AtMost, parse it with
// solver.ParsePBConstrs, then solver.New(prob).Solve() and read back
// s.Model() — is grounded on the one gophersat call site retrieved for
// this domain (a module dependency SAT resolver); no complete repo in
// the pack depends on gophersat itself, so this package pins the
// dependency directly off that reference rather than off the teacher.
package sat

import (
	"github.com/crillab/gophersat/solver"
	"github.com/pkg/errors"

	"github.com/nju-websoft/pycre-go/internal/kg"
	"github.com/nju-websoft/pycre-go/internal/reqgraph"
	"github.com/nju-websoft/pycre-go/internal/version"
)

// Solution mirrors internal/resolve.Solution so internal/plan can accept
// either a heuristic or a SAT result uniformly.
type Solution struct {
	SlotChoice    map[*reqgraph.ModuleSlotNode]*reqgraph.PackageNode
	PackageChoice map[*reqgraph.PackageNode]*reqgraph.VersionNode
}

// ErrUnsat is returned when the CNF encoding has no satisfying
// assignment.
var ErrUnsat = errors.New("no assignment satisfies the requirement graph")

type varInfo struct {
	slot *reqgraph.ModuleSlotNode
	pkg  *reqgraph.PackageNode
	ver  *reqgraph.VersionNode
}

type encoder struct {
	vars      []varInfo
	slotVar   map[*reqgraph.ModuleSlotNode]solver.Var
	pkgVar    map[*reqgraph.PackageNode]solver.Var
	verVar    map[*reqgraph.VersionNode]solver.Var
	visitedPkg map[*reqgraph.PackageNode]bool
}

func newEncoder() *encoder {
	return &encoder{
		slotVar:    make(map[*reqgraph.ModuleSlotNode]solver.Var),
		pkgVar:     make(map[*reqgraph.PackageNode]solver.Var),
		verVar:     make(map[*reqgraph.VersionNode]solver.Var),
		visitedPkg: make(map[*reqgraph.PackageNode]bool),
	}
}

func (e *encoder) newVar(info varInfo) solver.Var {
	v := solver.Var(len(e.vars))
	e.vars = append(e.vars, info)
	return v
}

func (e *encoder) slot(s *reqgraph.ModuleSlotNode) solver.Var {
	if v, ok := e.slotVar[s]; ok {
		return v
	}
	v := e.newVar(varInfo{slot: s})
	e.slotVar[s] = v
	return v
}

func (e *encoder) pkg(p *reqgraph.PackageNode) solver.Var {
	if v, ok := e.pkgVar[p]; ok {
		return v
	}
	v := e.newVar(varInfo{pkg: p})
	e.pkgVar[p] = v
	return v
}

func (e *encoder) ver(vn *reqgraph.VersionNode) solver.Var {
	if v, ok := e.verVar[vn]; ok {
		return v
	}
	v := e.newVar(varInfo{ver: vn})
	e.verVar[vn] = v
	return v
}

// Solve encodes g per §4.G and invokes the CDCL solver. Returns
// (nil, ErrUnsat) on UNSAT.
func Solve(g *reqgraph.Graph) (*Solution, error) {
	e := newEncoder()
	var constrs []solver.PBConstr

	for _, slot := range g.ModuleSlots {
		sv := e.slot(slot)
		// Root is AND over ModuleSlots; Root itself is a sentinel with no
		// other role, so its unit clause collapses to forcing every slot
		// var true directly.
		constrs = append(constrs, solver.PropClause(int(sv.Int())))
		e.encodeModuleSlot(slot, &constrs)
	}

	prob := solver.ParsePBConstrs(constrs)
	s := solver.New(prob)
	if status := s.Solve(); status != solver.Sat {
		return nil, ErrUnsat
	}
	return e.extract(s.Model(), g), nil
}

func (e *encoder) encodeModuleSlot(slot *reqgraph.ModuleSlotNode, constrs *[]solver.PBConstr) {
	sv := e.slot(slot)

	// Version-anchored clause (§4.G's ModuleSlot row): for every package
	// child with a non-empty version-id-set, every one of those versions
	// implies the package; and the slot implies at least one version
	// across the union of all such sets. Packages with an empty
	// (unconstrained) set get no additional linking clause here, per the
	// table's explicit "not further constrained beyond their own
	// package-level clauses."
	var unionVersions []int
	for _, edge := range slot.Edges {
		e.encodePackage(edge.Package, constrs)
		if len(edge.VersionIDs) == 0 {
			continue
		}
		pv := e.pkg(edge.Package)
		for id := range edge.VersionIDs {
			vn := findVersion(edge.Package, id)
			if vn == nil {
				continue
			}
			vv := e.ver(vn)
			*constrs = append(*constrs, solver.PropClause(-int(vv.Int()), int(pv.Int())))
			unionVersions = append(unionVersions, int(vv.Int()))
		}
	}
	if len(unionVersions) > 0 {
		lits := append([]int{-int(sv.Int())}, unionVersions...)
		*constrs = append(*constrs, solver.PropClause(lits...))
	}
}

func findVersion(pkg *reqgraph.PackageNode, id kg.VersionID) *reqgraph.VersionNode {
	for _, vn := range pkg.Versions {
		if vn.ID == id {
			return vn
		}
	}
	return nil
}

func (e *encoder) encodePackage(pkg *reqgraph.PackageNode, constrs *[]solver.PBConstr) {
	if e.visitedPkg[pkg] {
		return
	}
	e.visitedPkg[pkg] = true
	pv := e.pkg(pkg)

	if !pkg.Known || len(pkg.Versions) == 0 {
		return
	}

	verLits := make([]int, 0, len(pkg.Versions))
	for _, vn := range pkg.Versions {
		vv := e.ver(vn)
		verLits = append(verLits, int(vv.Int()))
	}
	// [¬x, v_1, ..., v_n]: package selected implies some version selected.
	*constrs = append(*constrs, solver.PropClause(append([]int{-int(pv.Int())}, verLits...)...))
	// Pairwise mutual exclusion.
	for i := 0; i < len(verLits); i++ {
		for j := i + 1; j < len(verLits); j++ {
			*constrs = append(*constrs, solver.PropClause(-verLits[i], -verLits[j]))
		}
		vn := pkg.Versions[i]
		if vn.Version.Status() == version.StatusFail {
			*constrs = append(*constrs, solver.PropClause(-verLits[i]))
		}
	}

	for _, vn := range pkg.Versions {
		e.encodeVersion(vn, constrs)
	}
}

func (e *encoder) encodeVersion(vn *reqgraph.VersionNode, constrs *[]solver.PBConstr) {
	vv := e.ver(vn)
	for _, req := range vn.Requires {
		e.encodePackage(req.Package, constrs)
		pv := e.pkg(req.Package)
		*constrs = append(*constrs, solver.PropClause(-int(vv.Int()), int(pv.Int())))

		spec, err := version.ParseSpecifierSet(req.Specifier)
		if err != nil {
			continue
		}
		for _, candidate := range req.Package.Versions {
			if !spec.Contains(candidate.Version) {
				cv := e.ver(candidate)
				*constrs = append(*constrs, solver.PropClause(-int(vv.Int()), -int(cv.Int())))
			}
		}
	}
}

func (e *encoder) extract(model []bool, g *reqgraph.Graph) *Solution {
	kept := make(map[int]bool, len(model))
	for i, on := range model {
		if on {
			kept[i] = true
		}
	}

	sol := &Solution{
		SlotChoice:    make(map[*reqgraph.ModuleSlotNode]*reqgraph.PackageNode),
		PackageChoice: make(map[*reqgraph.PackageNode]*reqgraph.VersionNode),
	}

	for _, slot := range g.ModuleSlots {
		sv, ok := e.slotVar[slot]
		if !ok || int(sv.Int()) >= len(model) || !model[sv.Int()] {
			continue
		}
		for _, edge := range slot.Edges {
			pv, ok := e.pkgVar[edge.Package]
			if ok && int(pv.Int()) < len(model) && model[pv.Int()] {
				sol.SlotChoice[slot] = edge.Package
				break
			}
		}
	}

	for pkg, pv := range e.pkgVar {
		if int(pv.Int()) >= len(model) || !model[pv.Int()] {
			continue
		}
		var chosen []*reqgraph.VersionNode
		for _, vn := range pkg.Versions {
			vv, ok := e.verVar[vn]
			if ok && int(vv.Int()) < len(model) && model[vv.Int()] {
				chosen = append(chosen, vn)
			}
		}
		if len(chosen) == 0 {
			continue
		}
		if len(chosen) > 1 {
			// Anomalous but diagnostic-only per spec §7/§9: salvage via
			// _sort_versions rather than fail.
			vals := make([]*version.Version, len(chosen))
			byVal := make(map[*version.Version]*reqgraph.VersionNode, len(chosen))
			for i, vn := range chosen {
				vals[i] = vn.Version
				byVal[vn.Version] = vn
			}
			sorted := version.SortVersions(vals)
			chosen = []*reqgraph.VersionNode{byVal[sorted[0]]}
		}
		sol.PackageChoice[pkg] = chosen[0]
	}

	return sol
}
