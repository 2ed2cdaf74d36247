// Package dialect implements the dialect selector (component H, spec
// §4.D): run the candidate ranker once per parseable dialect and pick
// between D2 and D3 by comparing the resulting scores.
package dialect

import (
	"github.com/pkg/errors"

	"github.com/nju-websoft/pycre-go/internal/kg"
	"github.com/nju-websoft/pycre-go/internal/parseadapter"
	"github.com/nju-websoft/pycre-go/internal/rank"
)

// ErrNoParse is returned when neither dialect's parse result is present
// (spec §7's "both dialects failed to parse").
var ErrNoParse = errors.New("neither D2 nor D3 parsed the snippet")

// Result is the winning dialect's ranked forest.
type Result struct {
	Dialect     parseadapter.Dialect
	ModuleScore float64
	AttrScore   float64
	Slots       map[string]*rank.SlotResult
}

// HasThirdPartyImports reports whether the winning dialect observed any
// non-standard-library top-level identifier at all (spec §7's
// NoThirdPartyImports case hinges on this).
func (r *Result) HasThirdPartyImports() bool {
	return len(r.Slots) > 0
}

type attempt struct {
	dialect parseadapter.Dialect
	slots   map[string]*rank.SlotResult
	module  float64
	attr    float64
}

// Select runs §4.C for every dialect the parser adapter successfully
// parsed and applies §4.D's tie-break: higher module_score wins; ties
// broken by higher attr_score; remaining ties prefer D3.
func Select(client kg.Client, snippet *parseadapter.Snippet) (*Result, error) {
	var attempts []attempt

	for _, d := range []parseadapter.Dialect{parseadapter.D2, parseadapter.D3} {
		names := snippet.Get(d)
		if names == nil {
			continue
		}
		forest := rank.BuildForest(names)
		slots, err := rank.RankForest(client, forest)
		if err != nil {
			return nil, err
		}
		a := attempt{dialect: d, slots: slots}
		for _, s := range slots {
			a.module += s.ModuleScore
			a.attr += s.AttrScore
		}
		attempts = append(attempts, a)
	}

	if len(attempts) == 0 {
		return nil, ErrNoParse
	}

	best := attempts[0]
	for _, a := range attempts[1:] {
		if better(a, best) {
			best = a
		}
	}

	return &Result{
		Dialect:     best.dialect,
		ModuleScore: best.module,
		AttrScore:   best.attr,
		Slots:       best.slots,
	}, nil
}

// better reports whether a beats incumbent under §4.D's ordering:
// module_score, then attr_score, then "prefer D3" as the final
// tiebreak.
func better(a, incumbent attempt) bool {
	if a.module != incumbent.module {
		return a.module > incumbent.module
	}
	if a.attr != incumbent.attr {
		return a.attr > incumbent.attr
	}
	return a.dialect == parseadapter.D3 && incumbent.dialect != parseadapter.D3
}
