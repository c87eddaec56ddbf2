// SPDX-License-Identifier: MIT
package validate

import (
	"math"
	"reflect"

	"github.com/itsubaki/q/pkg/quantum/gate"

	"github.com/janus-lang/janus-ir/ir"
)

// gateArity reports how many qubits a gate kind requires, derived from
// the dimension of itsubaki/q's own gate matrix rather than a
// hand-maintained table (SPEC_FULL.md "Domain stack"). Self-inverse
// single-qubit gates and rotations built from a 2x2 base matrix report
// arity 1; CNOT/SWAP (built at n=2) report 2; Toffoli (built at n=3)
// reports 3.
func gateArity(kind ir.GateType) (int, bool) {
	switch kind {
	case ir.Hadamard:
		return dim(gate.H()), true
	case ir.PauliX:
		return dim(gate.X()), true
	case ir.PauliY:
		return dim(gate.Y()), true
	case ir.PauliZ:
		return dim(gate.Z()), true
	case ir.RX:
		return dim(gate.RX(0)), true
	case ir.RY:
		return dim(gate.RY(0)), true
	case ir.RZ, ir.Phase:
		return dim(gate.RZ(0)), true
	case ir.CNOT:
		return dim(gate.CNOT(2, 0, 1)), true
	case ir.SWAP:
		return dim(gate.Swap(2, 0, 1)), true
	case ir.Toffoli:
		return dim(gate.Toffoli(3, 0, 1, 2)), true
	default:
		return 0, false
	}
}

// dim recovers the qubit count n from a 2^n x 2^n gate matrix, returning
// 0 for an empty matrix or a row count that is not a power of two
// (caller treats that as "unknown", never as a false arity of zero
// qubits). It reads the row count via reflection from a slice or array
// value, dereferencing pointers first; any other representation of the
// matrix yields 0.
func dim(m any) int {
	v := reflect.ValueOf(m)
	for v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return 0
	}
	n := v.Len()
	if n == 0 {
		return 0
	}
	log2 := math.Log2(float64(n))
	if log2 != math.Trunc(log2) {
		return 0
	}
	return int(log2)
}

// selfInverseKinds are the gate kinds the quantum gate-cancellation
// transform may fold away when applied twice in sequence to the same
// qubit (H, X, Y, Z are each their own inverse).
var selfInverseKinds = map[ir.GateType]bool{
	ir.Hadamard: true,
	ir.PauliX:   true,
	ir.PauliY:   true,
	ir.PauliZ:   true,
}

// IsSelfInverse reports whether kind cancels with itself.
func IsSelfInverse(kind ir.GateType) bool { return selfInverseKinds[kind] }
