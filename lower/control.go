// SPDX-License-Identifier: MIT
package lower

import (
	"sort"

	"github.com/janus-lang/janus-ir/ast"
	"github.com/janus-lang/janus-ir/ir"
)

// detectAssignedNames scans a loop body for plain "x = ..." reassignments
// of an identifier, including inside if/else blocks nested at any depth
// (nested loop bodies are not scanned), and returns the
// distinct names in sorted order (P9 — lowering output must not depend on
// map iteration order). It is a heuristic, not a full dataflow pass,
// mirroring the SSA converter's own heuristic nature (spec §9).
func detectAssignedNames(snap ast.Snapshot, blockID ast.NodeID) []string {
	seen := make(map[string]bool)

	var walk func(id ast.NodeID)
	walk = func(id ast.NodeID) {
		switch snap.Kind(id) {
		case ast.KindExprStmt:
			for _, c := range snap.Children(id) {
				walk(c)
			}
		case ast.KindBinaryExpr:
			if snap.StringValue(id) != "=" {
				return
			}
			children := snap.Children(id)
			if len(children) > 0 && snap.Kind(children[0]) == ast.KindIdentifier {
				seen[snap.StringValue(children[0])] = true
			}
		case ast.KindIfStmt:
			for _, c := range snap.Children(id)[1:] {
				walk(c)
			}
		case ast.KindBlock:
			for _, c := range snap.Children(id) {
				walk(c)
			}
		}
	}

	for _, stmt := range snap.Children(blockID) {
		walk(stmt)
	}

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// loopCarry tracks the header Phi nodes of a while/for loop: one per
// outer-scope variable reassigned somewhere in the body, plus (for a
// for_stmt) the induction variable.
type loopCarry struct {
	names []string
	phis  map[string]int
}

// newLoopCarry allocates the header Phis for bodyBlockID's carried
// variables and returns a scope in which those names resolve to their
// Phi, seeded with the loop's own induction variable first (seedName ==
// "" for a while loop with no explicit induction variable).
func newLoopCarry(g *ir.Graph, snap ast.Snapshot, outer *scope, bodyBlockID ast.NodeID, seedName string, seedInit int) (*scope, *loopCarry) {
	carry := &loopCarry{phis: make(map[string]int)}
	loopScope := newScope(outer)

	if seedName != "" {
		phi := g.CreateNodeWithInputs(ir.OpPhi, seedInit)
		carry.phis[seedName] = phi
		carry.names = append(carry.names, seedName)
		loopScope.define(seedName, binding{nodeID: phi, kind: bindLet})
	}

	for _, name := range detectAssignedNames(snap, bodyBlockID) {
		if name == seedName {
			continue
		}
		b, ok := outer.lookup(name)
		if !ok {
			continue
		}
		phi := g.CreateNodeWithInputs(ir.OpPhi, b.nodeID)
		carry.phis[name] = phi
		carry.names = append(carry.names, name)
		loopScope.define(name, binding{nodeID: phi, kind: bindLet})
	}

	return loopScope, carry
}

// closeBackEdges wires each Phi's second (loop-carried) input from the
// body's final value for that name, per the two-pass Phi protocol.
func (c *loopCarry) closeBackEdges(g *ir.Graph, loopScope *scope) {
	for _, name := range c.names {
		b, _ := loopScope.lookup(name)
		g.AddInput(c.phis[name], b.nodeID)
	}
}

// exportToOuter makes the post-loop value of each carried variable (other
// than the induction variable itself) visible to statements after the
// loop, by rebinding outer in place.
func (c *loopCarry) exportToOuter(outer *scope, skip string) {
	for _, name := range c.names {
		if name == skip {
			continue
		}
		outer.assign(name, c.phis[name])
	}
}
