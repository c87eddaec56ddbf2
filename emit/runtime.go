// SPDX-License-Identifier: MIT
package emit

import (
	"fmt"

	"github.com/llir/llvm/ir/constant"
	lltypes "github.com/llir/llvm/ir/types"
	llvalue "github.com/llir/llvm/ir/value"

	janus "github.com/janus-lang/janus-ir/ir"
)

// tensorRuntimeSymbol maps each Tensor_* opcode to the runtime-ABI
// symbol the emitter calls for it (spec §6).
var tensorRuntimeSymbol = map[janus.Opcode]string{
	janus.OpTensorMatmul:           "npu_tensor_matmul",
	janus.OpTensorConv:             "npu_tensor_conv",
	janus.OpTensorReduce:           "npu_tensor_reduce",
	janus.OpTensorScalarMul:        "npu_tensor_scalar_mul",
	janus.OpTensorFusedMatmulRelu:  "npu_tensor_fused_matmul_relu",
	janus.OpTensorFusedMatmulAdd:   "npu_tensor_fused_matmul_add",
	janus.OpTensorContract:         "npu_tensor_contract",
	janus.OpTensorRelu:             "npu_tensor_relu",
	janus.OpTensorSoftmax:          "npu_tensor_softmax",
}

// emitTensorOp emits a call to the tensor opcode's runtime primitive,
// passing each operand as an opaque pointer plus, for Matmul, the
// m/n/k dimensions recovered from its tensor metadata (spec §4.6).
func (fc *funcCtx) emitTensorOp(e *emitter, n *janus.Node) (llvalue.Value, error) {
	symbol, ok := tensorRuntimeSymbol[n.Op]
	if !ok {
		return nil, fmt.Errorf("no runtime symbol registered for %s", n.Op)
	}
	callee, err := e.resolveCallee(symbol)
	if err != nil {
		return nil, err
	}

	args := make([]llvalue.Value, 0, len(n.Inputs)+3)
	for _, in := range n.Inputs {
		args = append(args, fc.asPtr(fc.valueFor(in)))
	}
	if n.Op == janus.OpTensorMatmul {
		m, nn, k := matmulDims(n)
		args = append(args,
			constant.NewInt(lltypes.I64, m),
			constant.NewInt(lltypes.I64, nn),
			constant.NewInt(lltypes.I64, k))
	}
	return fc.block.NewCall(callee, args...), nil
}

// matmulDims recovers (m, n, k) from a Tensor_Matmul node's own tensor
// metadata when present; a node validated clean (I4) always carries rank
// >= 2 shapes, so this only needs a conservative fallback for graphs
// built without metadata attached (e.g. focused opcode-dispatch tests).
func matmulDims(n *janus.Node) (m, nn, k int64) {
	if n.Tensor == nil || len(n.Tensor.Shape) < 2 {
		return 0, 0, 0
	}
	shape := n.Tensor.Shape
	return int64(shape[0]), int64(shape[len(shape)-1]), int64(shape[len(shape)-1])
}

// asPtr bitcasts v to an opaque pointer if it isn't one already —
// runtime-ABI calls take every tensor/state operand as `ptr`.
func (fc *funcCtx) asPtr(v llvalue.Value) llvalue.Value {
	if v.Type().Equal(lltypes.I8Ptr) {
		return v
	}
	if _, ok := v.Type().(*lltypes.PointerType); ok {
		return fc.block.NewBitCast(v, lltypes.I8Ptr)
	}
	slot := fc.block.NewAlloca(v.Type())
	fc.block.NewStore(v, slot)
	return fc.block.NewBitCast(slot, lltypes.I8Ptr)
}

// emitQuantumGate emits qpu_apply_gate(state, gate_code, qubits, qubit_count,
// params, param_count) (spec §6). The gate's own operand is the evolving
// quantum-state pointer, conventionally input 0.
func (fc *funcCtx) emitQuantumGate(e *emitter, n *janus.Node) error {
	callee, err := e.resolveCallee("qpu_apply_gate")
	if err != nil {
		return err
	}
	statePtr := fc.valueOrNull(n.Inputs, 0)

	var gateCode int64
	var qubits []uint64
	var params []float64
	if n.Quantum != nil {
		gateCode = int64(n.Quantum.GateType)
		qubits = n.Quantum.Qubits
		params = n.Quantum.Parameters
	}

	qubitsPtr, qubitCount := e.u64ArrayConst("qubits", qubits)
	paramsPtr, paramCount := e.f64ArrayConst("params", params)

	fc.block.NewCall(callee,
		statePtr,
		constant.NewInt(lltypes.I32, gateCode),
		qubitsPtr, qubitCount,
		paramsPtr, paramCount)
	return nil
}

// emitQuantumMeasure emits qpu_measure(state, qubit_idx) -> i32.
func (fc *funcCtx) emitQuantumMeasure(e *emitter, n *janus.Node) (llvalue.Value, error) {
	callee, err := e.resolveCallee("qpu_measure")
	if err != nil {
		return nil, err
	}
	statePtr := fc.valueOrNull(n.Inputs, 0)
	var qubit int64
	if n.Quantum != nil && len(n.Quantum.Qubits) > 0 {
		qubit = int64(n.Quantum.Qubits[0])
	}
	return fc.block.NewCall(callee, statePtr, constant.NewInt(lltypes.I64, qubit)), nil
}

// u64ArrayConst interns vals as a private constant [N x i64] global (the
// uint64 qubit indices of ir.QuantumMetadata, one i64 element each) and
// returns an opaque pointer to it plus its i64 element count. An
// empty slice returns a null pointer and a zero count rather than an
// empty global.
func (e *emitter) u64ArrayConst(prefix string, vals []uint64) (llvalue.Value, llvalue.Value) {
	if len(vals) == 0 {
		return constant.NewNull(lltypes.I8Ptr), constant.NewInt(lltypes.I64, 0)
	}
	elems := make([]constant.Constant, len(vals))
	for i, v := range vals {
		elems[i] = constant.NewInt(lltypes.I64, int64(v))
	}
	arrType := lltypes.NewArray(uint64(len(vals)), lltypes.I64)
	g := e.module.NewGlobalDef(e.nextArrayName(prefix), constant.NewArray(arrType, elems...))
	g.Immutable = true
	return constant.NewBitCast(g, lltypes.I8Ptr), constant.NewInt(lltypes.I64, int64(len(vals)))
}

// f64ArrayConst is u64ArrayConst's float analogue for gate parameters.
func (e *emitter) f64ArrayConst(prefix string, vals []float64) (llvalue.Value, llvalue.Value) {
	if len(vals) == 0 {
		return constant.NewNull(lltypes.I8Ptr), constant.NewInt(lltypes.I64, 0)
	}
	elems := make([]constant.Constant, len(vals))
	for i, v := range vals {
		elems[i] = constant.NewFloat(lltypes.Double, v)
	}
	arrType := lltypes.NewArray(uint64(len(vals)), lltypes.Double)
	g := e.module.NewGlobalDef(e.nextArrayName(prefix), constant.NewArray(arrType, elems...))
	g.Immutable = true
	return constant.NewBitCast(g, lltypes.I8Ptr), constant.NewInt(lltypes.I64, int64(len(vals)))
}

// emitAsyncCall and emitSpawn both lower to the same runtime primitive
// (spec §5: a nursery-scoped Spawn and a bare Async_Call share the same
// handle-producing semantics — only Nursery_End's join/cancel behavior
// tells them apart, and that lives entirely in the runtime library, out
// of scope here): janus_async_spawn(fn_ptr, ctx_ptr) -> handle.
func (fc *funcCtx) emitAsyncCall(e *emitter, n *janus.Node) (llvalue.Value, error) {
	fnName := n.Data.String
	fnVal, err := e.resolveCallee(fnName)
	if err != nil {
		return nil, err
	}
	fnPtr := fc.asPtr(fnVal)
	ctxPtr := fc.packArgsAsCtx(n.Inputs)

	spawn, err := e.resolveCallee("janus_async_spawn")
	if err != nil {
		return nil, err
	}
	return fc.block.NewCall(spawn, fnPtr, ctxPtr), nil
}

func (fc *funcCtx) emitSpawn(e *emitter, n *janus.Node) (llvalue.Value, error) {
	return fc.emitAsyncCall(e, n)
}

// emitAwait emits janus_async_await(handle) -> i64.
func (fc *funcCtx) emitAwait(e *emitter, n *janus.Node) (llvalue.Value, error) {
	if len(n.Inputs) == 0 {
		return nil, fmt.Errorf("Await node %d has no handle operand", n.ID)
	}
	callee, err := e.resolveCallee("janus_async_await")
	if err != nil {
		return nil, err
	}
	return fc.block.NewCall(callee, fc.valueFor(n.Inputs[0])), nil
}

// packArgsAsCtx stack-allocates a struct of the call's argument values
// and returns an opaque pointer to it, the closure-environment-struct
// pattern reused for the async-call context blob the runtime passes back
// to the spawned function (spec §6 describes the closure env layout;
// async context packing follows the identical convention).
func (fc *funcCtx) packArgsAsCtx(inputs []int) llvalue.Value {
	if len(inputs) == 0 {
		return constant.NewNull(lltypes.I8Ptr)
	}
	vals := make([]llvalue.Value, len(inputs))
	fieldTypes := make([]lltypes.Type, len(inputs))
	for i, in := range inputs {
		vals[i] = fc.valueFor(in)
		fieldTypes[i] = vals[i].Type()
	}
	structType := lltypes.NewStruct(fieldTypes...)
	slot := fc.block.NewAlloca(structType)
	for i, v := range vals {
		gep := fc.block.NewGetElementPtr(structType, slot, constant.NewInt(lltypes.I32, 0), constant.NewInt(lltypes.I32, int64(i)))
		fc.block.NewStore(v, gep)
	}
	return fc.block.NewBitCast(slot, lltypes.I8Ptr)
}
