// SPDX-License-Identifier: MIT
package validate

import (
	"fmt"
	"math"

	"github.com/janus-lang/janus-ir/ir"
)

// Severity classifies a Diagnostic.
type Severity int

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "Warning"
	}
	return "Error"
}

// Diagnostic is one finding produced by Validate.
type Diagnostic struct {
	Level         Severity
	NodeID        int
	RelatedNodeID *int
	Message       string
}

func (d Diagnostic) String() string {
	if d.RelatedNodeID != nil {
		return fmt.Sprintf("%s: node %d (related %d): %s", d.Level, d.NodeID, *d.RelatedNodeID, d.Message)
	}
	return fmt.Sprintf("%s: node %d: %s", d.Level, d.NodeID, d.Message)
}

// Result is the ordered outcome of validating one Graph.
type Result struct {
	Diagnostics []Diagnostic
	HasErrors   bool
}

func related(id int) *int { return &id }

func (r *Result) add(level Severity, nodeID int, related *int, format string, args ...any) {
	r.Diagnostics = append(r.Diagnostics, Diagnostic{
		Level:         level,
		NodeID:        nodeID,
		RelatedNodeID: related,
		Message:       fmt.Sprintf(format, args...),
	})
	if level == Error {
		r.HasErrors = true
	}
}

// color marks three-color DFS state for cycle detection.
type color int

const (
	white color = iota
	grey
	black
)

// Validate runs the full structural/semantic check over g and returns an
// ordered Result. It never panics and never mutates g. Complexity is
// O(V+E) as required by spec §4.2.
func Validate(g *ir.Graph) *Result {
	res := &Result{}
	nodes := g.Nodes()

	checkEdges(nodes, res)
	checkAcyclic(nodes, res)
	checkPhiArity(nodes, res)
	checkTensor(nodes, res)
	checkQuantum(nodes, res)
	checkOpcodeTenancy(nodes, res)

	return res
}

// checkEdges implements I1 (dangling edges are errors) and I6 (tenancy
// mismatch between a node and its inputs is a warning, never an error).
func checkEdges(nodes []ir.Node, res *Result) {
	for i := range nodes {
		n := &nodes[i]
		for _, in := range n.Inputs {
			if in < 0 || in >= len(nodes) {
				res.add(Error, n.ID, nil, "dangling edge: input %d does not exist", in)
				continue
			}
			src := &nodes[in]
			if src.Tenancy != n.Tenancy {
				res.add(Warning, n.ID, related(src.ID), "tenancy mismatch: %s consumes %s input from %s", n.Tenancy, n.Op, src.Tenancy)
			}
		}
	}
}

// checkAcyclic implements I2: the graph must be acyclic except for
// back-edges into a Phi node whose source id is strictly greater than the
// Phi's own id (loop back-edge, spec §9). A three-color DFS walks the
// edge graph node-by-node in id order so results are deterministic
// regardless of traversal order choices within a single connected
// component.
func checkAcyclic(nodes []ir.Node, res *Result) {
	colors := make([]color, len(nodes))

	var visit func(id int)
	visit = func(id int) {
		if id < 0 || id >= len(nodes) {
			return // dangling edge already reported by checkEdges
		}
		if colors[id] == black {
			return
		}
		if colors[id] == grey {
			res.add(Error, id, nil, "cycle detected at node %d", id)
			return
		}
		colors[id] = grey
		n := &nodes[id]
		for _, in := range n.Inputs {
			if n.Op == ir.OpPhi && in > id {
				// Whitelisted loop back-edge: the producer hasn't run
				// its own visit yet in this walk, so don't recurse into
				// it from here; it is reached independently by the
				// outer loop below.
				continue
			}
			visit(in)
		}
		colors[id] = black
	}

	for i := range nodes {
		if colors[i] == white {
			visit(i)
		}
	}
}

// checkPhiArity implements I3: every Phi must have >= 2 inputs.
func checkPhiArity(nodes []ir.Node, res *Result) {
	for i := range nodes {
		n := &nodes[i]
		if n.Op == ir.OpPhi && len(n.Inputs) < 2 {
			res.add(Error, n.ID, nil, "Phi node has %d input(s), need at least 2", len(n.Inputs))
		}
	}
}

// checkTensor implements I4: shape-law compatibility for tensor ops when
// both operands carry TensorMetadata; missing metadata is a warning, not
// an error.
func checkTensor(nodes []ir.Node, res *Result) {
	for i := range nodes {
		n := &nodes[i]
		if !n.Op.IsTensor() {
			continue
		}
		if n.Tensor == nil {
			res.add(Warning, n.ID, nil, "%s missing tensor metadata", n.Op)
		}
		if len(n.Inputs) < 1 {
			continue
		}
		lhs := operandTensor(nodes, n.Inputs, 0)
		if lhs == nil {
			res.add(Warning, n.ID, nil, "%s operand 0 missing tensor metadata", n.Op)
		}
		if len(n.Inputs) < 2 {
			continue
		}
		rhs := operandTensor(nodes, n.Inputs, 1)
		if rhs == nil {
			res.add(Warning, n.ID, nil, "%s operand 1 missing tensor metadata", n.Op)
			continue
		}
		if lhs == nil {
			continue
		}
		checkShapeLaw(n, lhs, rhs, res)
	}
}

func operandTensor(nodes []ir.Node, inputs []int, idx int) *ir.TensorMetadata {
	if idx >= len(inputs) {
		return nil
	}
	id := inputs[idx]
	if id < 0 || id >= len(nodes) {
		return nil
	}
	return nodes[id].Tensor
}

func checkShapeLaw(n *ir.Node, lhs, rhs *ir.TensorMetadata, res *Result) {
	switch n.Op {
	case ir.OpTensorMatmul, ir.OpTensorFusedMatmulRelu, ir.OpTensorFusedMatmulAdd:
		if lhs.Rank() < 2 || rhs.Rank() < 2 {
			res.add(Error, n.ID, nil, "matmul operands need rank >= 2, got %v and %v", lhs.Shape, rhs.Shape)
			return
		}
		lInner := lhs.Shape[len(lhs.Shape)-1]
		rInner := rhs.Shape[len(rhs.Shape)-2]
		if lInner != rInner {
			res.add(Error, n.ID, nil, "matmul inner dims mismatch: %v vs %v", lhs.Shape, rhs.Shape)
		}
	case ir.OpTensorContract:
		if lhs.Rank() == 0 || rhs.Rank() == 0 {
			res.add(Error, n.ID, nil, "contract requires non-scalar ranks, got %v and %v", lhs.Shape, rhs.Shape)
		}
	case ir.OpTensorScalarMul:
		if lhs.Rank() != 0 && rhs.Rank() != 0 {
			res.add(Error, n.ID, nil, "scalar_mul requires one 0-rank operand, got %v and %v", lhs.Shape, rhs.Shape)
		}
	}
}

// checkQuantum implements I5: gate/measure metadata presence, gate-kind
// arity (derived from itsubaki/q), distinct-qubit requirements for
// multi-qubit gates, qubit sanity bound (warning), and finite rotation
// parameters (error on NaN/Inf).
func checkQuantum(nodes []ir.Node, res *Result) {
	const qubitSanityBound = 64

	for i := range nodes {
		n := &nodes[i]
		if !n.Op.IsQuantum() {
			continue
		}
		if n.Quantum == nil {
			res.add(Error, n.ID, nil, "%s missing quantum metadata", n.Op)
			continue
		}
		qm := n.Quantum

		for _, q := range qm.Qubits {
			if q > qubitSanityBound {
				res.add(Warning, n.ID, nil, "qubit index %d exceeds sanity bound %d", q, qubitSanityBound)
			}
		}

		if n.Op != ir.OpQuantumGate {
			continue
		}

		if want, ok := gateArity(qm.GateType); ok && want > 0 {
			if len(qm.Qubits) != want {
				res.add(Error, n.ID, nil, "%s requires %d qubit(s), got %d", qm.GateType, want, len(qm.Qubits))
			}
		}
		if hasDuplicateQubits(qm.Qubits) {
			res.add(Error, n.ID, nil, "%s requires distinct qubits, got %v", qm.GateType, qm.Qubits)
		}

		switch qm.GateType {
		case ir.RX, ir.RY, ir.RZ, ir.Phase:
			if len(qm.Parameters) != 1 {
				res.add(Error, n.ID, nil, "%s requires exactly one parameter, got %d", qm.GateType, len(qm.Parameters))
				continue
			}
			p := qm.Parameters[0]
			if math.IsNaN(p) || math.IsInf(p, 0) {
				res.add(Error, n.ID, nil, "%s parameter is not finite: %v", qm.GateType, p)
			}
		}
	}
}

func hasDuplicateQubits(qubits []uint64) bool {
	seen := make(map[uint64]bool, len(qubits))
	for _, q := range qubits {
		if seen[q] {
			return true
		}
		seen[q] = true
	}
	return false
}

// checkOpcodeTenancy implements I7: Tensor_* nodes not tenanted
// NPU_Tensor, and Quantum_* nodes not tenanted QPU_Quantum, are warnings.
func checkOpcodeTenancy(nodes []ir.Node, res *Result) {
	for i := range nodes {
		n := &nodes[i]
		if n.Op.IsTensor() && n.Tenancy != ir.NPUTensor {
			res.add(Warning, n.ID, nil, "%s tenanted %s, expected NPU_Tensor", n.Op, n.Tenancy)
		}
		if n.Op.IsQuantum() && n.Tenancy != ir.QPUQuantum {
			res.add(Warning, n.ID, nil, "%s tenanted %s, expected QPU_Quantum", n.Op, n.Tenancy)
		}
	}
}
