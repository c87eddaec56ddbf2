// SPDX-License-Identifier: MIT
package emit

import (
	"fmt"

	"github.com/llir/llvm/ir/constant"
	lltypes "github.com/llir/llvm/ir/types"
	llvalue "github.com/llir/llvm/ir/value"

	janus "github.com/janus-lang/janus-ir/ir"
)

// emitClosureCreate allocates the environment struct a Closure_Create
// node captures (one field per input, in capture-index order), stores
// each captured value into it, and records the concrete struct type
// under the target closure's name so the closure's own Closure_Env_Load
// nodes — emitted later, possibly in a different emitGraph call — know
// what to GEP into (spec §4.6, §6).
func (fc *funcCtx) emitClosureCreate(e *emitter, n *janus.Node) (llvalue.Value, error) {
	fieldTypes := make([]lltypes.Type, len(n.Inputs))
	vals := make([]llvalue.Value, len(n.Inputs))
	for i, in := range n.Inputs {
		vals[i] = fc.valueFor(in)
		fieldTypes[i] = vals[i].Type()
	}
	envType := lltypes.NewStruct(fieldTypes...)
	e.envTypes[n.Data.String] = envType

	envSlot := fc.block.NewAlloca(envType)
	for i, v := range vals {
		gep := fc.block.NewGetElementPtr(envType, envSlot, constant.NewInt(lltypes.I32, 0), constant.NewInt(lltypes.I32, int64(i)))
		fc.block.NewStore(v, gep)
	}
	return fc.block.NewBitCast(envSlot, lltypes.I8Ptr), nil
}

// emitClosureEnvLoad GEPs into the current function's __env parameter
// (always parameter 0 of a lifted closure graph) at the captured field's
// index and loads it. The env struct's concrete type comes from the
// Closure_Create site that built it; a closure graph reachable only
// through an Fn_Ref-shaped call path (never actually captured — should
// not happen for a nonzero-capture graph, but emission stays total) falls
// back to a conservative all-i64 struct sized to the graph's own capture
// count.
func (fc *funcCtx) emitClosureEnvLoad(e *emitter, n *janus.Node) (llvalue.Value, error) {
	if len(fc.f.Params) == 0 {
		return nil, fmt.Errorf("Closure_Env_Load in a graph with no __env parameter")
	}
	envPtr := fc.f.Params[0]
	envType := e.envTypeFor(fc.graph)

	idx := int(n.Data.Integer)
	bitcastPtr := fc.block.NewBitCast(envPtr, lltypes.NewPointer(envType))
	gep := fc.block.NewGetElementPtr(envType, bitcastPtr, constant.NewInt(lltypes.I32, 0), constant.NewInt(lltypes.I32, int64(idx)))
	elemType := lltypes.I32
	if idx < len(envType.Fields) {
		elemType = envType.Fields[idx]
	}
	return fc.block.NewLoad(elemType, gep), nil
}

func (e *emitter) envTypeFor(g *janus.Graph) *lltypes.StructType {
	if t, ok := e.envTypes[g.FunctionName]; ok {
		if st, ok := t.(*lltypes.StructType); ok {
			return st
		}
	}
	fields := make([]lltypes.Type, len(g.Captures))
	for i := range fields {
		fields[i] = lltypes.I64
	}
	st := lltypes.NewStruct(fields...)
	e.envTypes[g.FunctionName] = st
	return st
}

// emitClosureCall calls the closure's lifted function, passing the
// environment struct pointer as the implicit first argument followed by
// the user-supplied arguments (spec §4.6).
func (fc *funcCtx) emitClosureCall(e *emitter, n *janus.Node) (llvalue.Value, error) {
	if len(n.Inputs) == 0 {
		return nil, fmt.Errorf("Closure_Call node %d has no closure operand", n.ID)
	}
	closureVal := fc.valueFor(n.Inputs[0])
	closureName := fc.closureCreateName(n.Inputs[0])
	callee, ok := e.funcs[closureName]
	if !ok {
		return nil, fmt.Errorf("Closure_Call: %q never lowered to a function", closureName)
	}

	args := []llvalue.Value{closureVal}
	for _, in := range n.Inputs[1:] {
		args = append(args, fc.valueFor(in))
	}
	return fc.block.NewCall(callee, args...), nil
}

// closureCreateName recovers the mangled target-function name a
// Closure_Create node recorded, by re-reading it straight from the
// graph's node table rather than threading a parallel side map —
// Closure_Call's only input[0] producer is always that Closure_Create.
func (fc *funcCtx) closureCreateName(closureNodeID int) string {
	node := fc.graph.Node(closureNodeID)
	if node.Op == janus.OpClosureCreate {
		return node.Data.String
	}
	if node.Op == janus.OpFnRef {
		return node.Data.String
	}
	return ""
}
