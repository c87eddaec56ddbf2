// SPDX-License-Identifier: MIT
package transform

import (
	"github.com/janus-lang/janus-ir/ir"
	"github.com/janus-lang/janus-ir/validate"
)

// GateCancel returns the quantum gate cancellation pass (spec §4.5): when
// a self-inverse Quantum_Gate (Hadamard, PauliX/Y/Z — the fixed set in
// validate.IsSelfInverse) has
// exactly one consumer, and that consumer is another Quantum_Gate of the
// same kind targeting the same qubit, every node that reads the second
// gate's output is rewired to read the first gate's own input directly —
// the two gates cancel and become unreachable, never physically removed
// from the node table (spec §5: passes never free nodes). Nodes are never
// deleted or renumbered, so P1/P9 hold unchanged.
//
// Only QPU_Quantum-tenanted gates participate (I7's opcode/tenancy rule).
func GateCancel() Pass {
	return Pass{Name: "quantum-gate-cancellation", Apply: gateCancelApply}
}

func gateCancelApply(g *ir.Graph) (bool, error) {
	nodes := g.Nodes()

	refCount := make([]int, len(nodes))
	refBy := make([]int, len(nodes))
	for i := range refBy {
		refBy[i] = -1
	}
	for i := range nodes {
		for _, in := range nodes[i].Inputs {
			refCount[in]++
			refBy[in] = nodes[i].ID
		}
	}

	changed := false
	for i := range nodes {
		a := &nodes[i]
		if !isCancellableGate(a) || refCount[a.ID] != 1 || len(a.Inputs) == 0 {
			continue
		}

		bID := refBy[a.ID]
		b := &nodes[bID]
		if !isCancellableGate(b) {
			continue
		}
		if b.Quantum.GateType != a.Quantum.GateType || !sameQubits(a.Quantum.Qubits, b.Quantum.Qubits) {
			continue
		}

		bypass := a.Inputs[0]
		for j := range nodes {
			n := &nodes[j]
			for k, in := range n.Inputs {
				if in == bID {
					n.Inputs[k] = bypass
					changed = true
				}
			}
		}
	}

	return changed, nil
}

func isCancellableGate(n *ir.Node) bool {
	return n.Op == ir.OpQuantumGate && n.Tenancy == ir.QPUQuantum &&
		n.Quantum != nil && validate.IsSelfInverse(n.Quantum.GateType)
}

func sameQubits(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
