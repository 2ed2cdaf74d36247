// Package infer is the top-level orchestrator (component I, spec §4.I):
// it drives the parser adapter's output through the dialect selector,
// requirement-graph builder, heuristic resolver, SAT fallback, and
// install-plan extractor, and assembles the §6.3 output record.
package infer

import (
	"time"

	"github.com/pkg/errors"

	"github.com/nju-websoft/pycre-go/internal/dialect"
	"github.com/nju-websoft/pycre-go/internal/kg"
	"github.com/nju-websoft/pycre-go/internal/parseadapter"
	"github.com/nju-websoft/pycre-go/internal/plan"
	"github.com/nju-websoft/pycre-go/internal/reqgraph"
	"github.com/nju-websoft/pycre-go/internal/resolve"
	"github.com/nju-websoft/pycre-go/internal/sat"
)

// Status mirrors spec §6.3's status codes. The "error" case is carried by
// Infer's returned error instead; when that error is non-nil, Status is
// meaningless.
type Status int

const (
	StatusHeuristic Status = 1
	StatusSAT       Status = 0
	StatusDegraded  Status = -1
)

// Timings records how long each phase took.
type Timings struct {
	Parse   time.Duration
	Match   time.Duration
	Solving time.Duration
}

// Output is the §6.3 result record.
type Output struct {
	Dialect            parseadapter.Dialect // "" means null
	InterpreterVersion string               // "" means null
	InstallPairs       []plan.Pair          // nil means null (ParseFailed); empty-non-nil means "[]"
	Timings            Timings
	Status             Status
}

// Options carries inputs the CORE itself does not derive: the target
// interpreter version string (supplied by an out-of-scope sandbox/prober
// collaborator) and a parse-phase duration already spent by the (also
// out-of-scope) parser adapter before Infer was called.
type Options struct {
	InterpreterVersion string
	ParseElapsed       time.Duration
}

// Infer runs the full pipeline over an already-parsed snippet.
func Infer(client kg.Client, snippet *parseadapter.Snippet, opts Options) (*Output, error) {
	t := Timings{Parse: opts.ParseElapsed}

	matchStart := time.Now()
	sel, err := dialect.Select(client, snippet)
	t.Match = time.Since(matchStart)
	if err != nil {
		if err == dialect.ErrNoParse {
			return &Output{InstallPairs: nil, Timings: t, Status: StatusHeuristic}, ErrParseFailed
		}
		return nil, kgFailure("dialect selection", err)
	}

	out := &Output{
		Dialect:            sel.Dialect,
		InterpreterVersion: opts.InterpreterVersion,
		Timings:            t,
	}

	if !sel.HasThirdPartyImports() {
		// spec §7 NoThirdPartyImports: empty (not null) plan, status 1.
		out.InstallPairs = []plan.Pair{}
		out.Status = StatusHeuristic
		return out, nil
	}

	names := unionPackageNames(sel)
	sub, err := client.RequireSubgraph(names)
	if err != nil {
		return nil, kgFailure("require subgraph", err)
	}

	g, err := reqgraph.Build(sel.Slots, sub)
	if err != nil {
		return nil, errors.Wrap(err, "building requirement graph")
	}

	solveStart := time.Now()
	if heuristicSol, ok := resolve.Solve(g); ok {
		out.Status = StatusHeuristic
		out.Timings.Solving = time.Since(solveStart)
		return finish(out, g, plan.FromResolve(heuristicSol))
	}

	if satSol, err := sat.Solve(g); err == nil {
		out.Status = StatusSAT
		out.Timings.Solving = time.Since(solveStart)
		return finish(out, g, plan.FromSAT(satSol))
	} else if err != sat.ErrUnsat {
		return nil, errors.Wrap(err, "SAT solving")
	}

	// spec §7 NoCompatible: both the heuristic and SAT failed. Emit a
	// degraded best-effort plan rather than an error.
	out.Status = StatusDegraded
	out.Timings.Solving = time.Since(solveStart)
	return finish(out, g, plan.Degraded(g))
}

func finish(out *Output, g *reqgraph.Graph, sel plan.Selection) (*Output, error) {
	pairs, err := plan.Extract(g, sel)
	if err != nil && err != plan.ErrCycle {
		return nil, errors.Wrap(err, "extracting install plan")
	}
	// plan.ErrCycle is diagnostic-only (spec §7 CycleInInstallOrder): the
	// partial, explicit-flushed plan it returns alongside is still used.
	out.InstallPairs = pairs
	return out, nil
}

func unionPackageNames(sel *dialect.Result) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, slot := range sel.Slots {
		for _, cand := range slot.Candidates {
			if _, ok := seen[cand.Package]; ok {
				continue
			}
			seen[cand.Package] = struct{}{}
			names = append(names, cand.Package)
		}
	}
	return names
}
