// SPDX-License-Identifier: MIT
package ir_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/janus-lang/janus-ir/ir"
)

// TestGraph_CreateConstant_IdsAreMonotonic locks in P1/P9: node ids equal
// creation order and are the only ordering consumers may rely on.
func TestGraph_CreateConstant_IdsAreMonotonic(t *testing.T) {
	g := ir.NewGraph("main")

	a := g.CreateConstant(ir.Int(1))
	b := g.CreateConstant(ir.Int(2))
	add := g.CreateNodeWithInputs(ir.OpAdd, a, b)

	require.Equal(t, 0, a)
	require.Equal(t, 1, b)
	require.Equal(t, 2, add)
	require.Equal(t, 3, g.NodeCount())

	addNode := g.Node(add)
	require.Equal(t, ir.OpAdd, addNode.Op)
	require.Equal(t, []int{a, b}, addNode.Inputs)

	for _, input := range addNode.Inputs {
		require.Less(t, input, addNode.ID, "every input must precede its consumer")
	}
}

// TestGraph_CreateCall_CarriesSymbol verifies the Call convenience sets
// Data.String to the callee and Inputs to the argument list, per §4.1.
func TestGraph_CreateCall_CarriesSymbol(t *testing.T) {
	g := ir.NewGraph("main")
	arg := g.CreateConstant(ir.Int(7))
	call := g.CreateCall("janus_print_int", arg)

	n := g.Node(call)
	require.Equal(t, ir.OpCall, n.Op)
	require.Equal(t, "janus_print_int", n.Data.String)
	require.Equal(t, []int{arg}, n.Inputs)
}

// TestGraph_CreateNodeTenancy_OverridesDefault verifies `@` (matmul)
// style forced tenancy regardless of the graph's default.
func TestGraph_CreateNodeTenancy_OverridesDefault(t *testing.T) {
	g := ir.NewGraph("main", ir.WithDefaultTenancy(ir.CPUSerial))
	id := g.CreateNodeTenancy(ir.OpTensorMatmul, ir.NPUTensor)

	require.Equal(t, ir.NPUTensor, g.Node(id).Tenancy)
}

// TestGraph_Lookup_OutOfRange verifies the non-panicking accessor.
func TestGraph_Lookup_OutOfRange(t *testing.T) {
	g := ir.NewGraph("main")
	g.CreateConstant(ir.Int(1))

	_, ok := g.Lookup(5)
	require.False(t, ok)

	n, ok := g.Lookup(0)
	require.True(t, ok)
	require.Equal(t, ir.OpConstant, n.Op)
}

func TestOpcode_String_UnknownFormatsAsNumeric(t *testing.T) {
	require.Equal(t, "Add", ir.OpAdd.String())
	require.Contains(t, ir.Opcode(9999).String(), "Opcode(9999)")
}
