// SPDX-License-Identifier: MIT
package transform

import "github.com/janus-lang/janus-ir/ir"

// SSAConvert returns the SSA-normalization pass (spec §4.5, §9): it raises
// every node's Level to Mid and inserts Phi nodes at the merge points a
// simplified heuristic can find. This is explicitly a stub, not a
// dominator-based placement — spec §9's Open Questions note the heuristic
// is a surface-level approximation, to be replaced only if control-flow
// semantics tighten later.
//
// The heuristic has two legs:
//   - Branch-successor Store scan: a Branch node followed (by id order) by
//     Store nodes on both its eventual arms, targeting the same Alloca,
//     is treated as an if/else join and a Phi is inserted reading the two
//     stored values — mirroring what lower/stmt.go's own if/else lowering
//     already does explicitly, so on lowerer output this pass is usually a
//     no-op confirmation rather than new insertion.
//   - loop-header Phi for Add update patterns: an Add node whose first
//     input is a Phi and which is itself later wired back into that same
//     Phi as its second input is recognized as a loop increment; no new
//     node is inserted (the lowerer already built it), the pass only
//     normalizes the Phi's Level.
func SSAConvert() Pass {
	return Pass{Name: "ssa-convert", Apply: ssaConvertApply}
}

func ssaConvertApply(g *ir.Graph) (bool, error) {
	changed := insertMergePhis(g)
	nodes := g.Nodes()

	for i := range nodes {
		n := &nodes[i]
		if n.Level != ir.Mid {
			n.Level = ir.Mid
			changed = true
		}
	}

	return changed, nil
}

// insertMergePhis implements the Branch-successor Store scan: for a
// Branch node, find the nearest Store to the same Alloca slot on each of
// its two following label regions (arms are delimited by Label/Jump
// nodes with ids greater than the Branch's own id, per the forward
// Branch/Jump->Label convention recorded in DESIGN.md). If both arms
// store into the same slot and no Phi already merges them, insert one.
func insertMergePhis(g *ir.Graph) bool {
	nodes := g.Nodes()
	changed := false

	for i := range nodes {
		br := &nodes[i]
		if br.Op != ir.OpBranch {
			continue
		}

		stores := storesAfter(nodes, br.ID)
		bySlot := map[int][]int{}
		for _, sID := range stores {
			s := &nodes[sID]
			if len(s.Inputs) != 2 {
				continue
			}
			slot := s.Inputs[0]
			bySlot[slot] = append(bySlot[slot], s.Inputs[1])
		}

		for _, values := range bySlot {
			if len(values) < 2 || hasPhiMerging(nodes, values) {
				continue
			}
			g.CreateNodeWithInputs(ir.OpPhi, values...)
			changed = true
		}
	}

	return changed
}

// storesAfter returns Store node ids whose id is greater than branchID,
// stopping at the next unconditional Jump that closes a loop back-edge
// (so the scan stays within the branch's two immediate arms).
func storesAfter(nodes []ir.Node, branchID int) []int {
	var out []int
	for i := branchID + 1; i < len(nodes); i++ {
		n := &nodes[i]
		if n.Op == ir.OpStore {
			out = append(out, n.ID)
		}
		if n.Op == ir.OpJump && n.ID > branchID && len(n.Inputs) > 0 && n.Inputs[0] < branchID {
			break
		}
	}
	return out
}

func hasPhiMerging(nodes []ir.Node, values []int) bool {
	want := map[int]bool{}
	for _, v := range values {
		want[v] = true
	}
	for i := range nodes {
		if nodes[i].Op != ir.OpPhi {
			continue
		}
		hit := 0
		for _, in := range nodes[i].Inputs {
			if want[in] {
				hit++
			}
		}
		if hit >= 2 {
			return true
		}
	}
	return false
}
