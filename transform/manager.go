// SPDX-License-Identifier: MIT
package transform

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/janus-lang/janus-ir/ir"
)

// Pass is one named graph rewrite. Apply reports whether it changed g, so
// the manager can both log progress and detect a fixpoint (P6/P7:
// re-running gate cancellation or matmul+relu fusion on its own output
// must yield no further changes).
type Pass struct {
	Name  string
	Apply func(g *ir.Graph) (changed bool, err error)
}

// Report is the outcome of one Run: every pass that ran, and the subset
// that actually changed the graph, in registration order with duplicates
// removed (a pass registered twice only appears once in Changed).
type Report struct {
	Ran     []string
	Changed []string
}

// Run applies passes to g in registration order, the way builder.BuildGraph
// applies its Constructor list: a nil Pass.Apply or a pass error aborts
// immediately and is wrapped with the failing pass's name.
func Run(g *ir.Graph, passes ...Pass) (Report, error) {
	var rep Report
	var changed []string

	for i, p := range passes {
		if p.Apply == nil {
			return Report{}, fmt.Errorf("transform.Run: nil pass at index %d (%s): %w", i, p.Name, ErrNilPass)
		}
		rep.Ran = append(rep.Ran, p.Name)
		ok, err := p.Apply(g)
		if err != nil {
			return Report{}, fmt.Errorf("transform.Run: pass %q: %w", p.Name, err)
		}
		if ok {
			changed = append(changed, p.Name)
		}
	}

	rep.Changed = lo.Uniq(changed)
	return rep, nil
}

// RunUntilFixpoint repeats the full pass list until a full pass over all of
// passes changes nothing, or maxRounds is reached. It returns the round
// count actually used. This is how P6/P7 idempotence is exercised in
// practice: gate cancellation and fusion are meant to converge in one
// round on any input, so tests can assert round == 1.
func RunUntilFixpoint(g *ir.Graph, maxRounds int, passes ...Pass) (int, error) {
	for round := 1; round <= maxRounds; round++ {
		rep, err := Run(g, passes...)
		if err != nil {
			return round, err
		}
		if len(rep.Changed) == 0 {
			return round, nil
		}
	}
	return maxRounds, nil
}
