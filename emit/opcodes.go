// SPDX-License-Identifier: MIT
package emit

import (
	"fmt"

	llvmir "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	lltypes "github.com/llir/llvm/ir/types"
	llvalue "github.com/llir/llvm/ir/value"

	janus "github.com/janus-lang/janus-ir/ir"
)

// funcCtx is the per-graph state threaded through one emitGraph call: the
// node-id -> LLVM-value map, the block each value was defined in (needed
// to wire Phi incoming edges to the right predecessor), the Label-node ->
// basic-block map, and the pending-Phi back-edge bookkeeping the two-pass
// protocol requires (spec §4.6, §9).
type funcCtx struct {
	graph *janus.Graph
	f     *llvmir.Func
	block *llvmir.Block

	values   map[int]llvalue.Value
	defBlock map[int]*llvmir.Block
	blocks   map[int]*llvmir.Block
	pending  map[int][]*llvmir.InstPhi // producer node id -> phis still waiting on it
	allocas  map[int]lltypes.Type      // Alloca node id -> element type
}

func (e *emitter) emitGraph(g *janus.Graph) error {
	f := e.funcs[g.FunctionName]
	fc := &funcCtx{
		graph:    g,
		f:        f,
		block:    f.NewBlock("entry"),
		values:   make(map[int]llvalue.Value),
		defBlock: make(map[int]*llvmir.Block),
		blocks:   make(map[int]*llvmir.Block),
		pending:  make(map[int][]*llvmir.InstPhi),
		allocas:  make(map[int]lltypes.Type),
	}

	for i := range g.Nodes() {
		n := g.Node(i)
		val, err := fc.emitNode(e, n)
		if err != nil {
			return fmt.Errorf("emit: graph %s node %d (%s): %w", g.FunctionName, n.ID, n.Op, err)
		}
		if val != nil {
			fc.bind(n.ID, val, fc.block)
		}
	}

	if fc.block.Term == nil {
		fc.block.NewRet(fc.zeroOf(llvmType(g.ReturnType)))
	}
	return nil
}

// bind records n's value and defining block, then resolves any Phi that
// was waiting on this node as a back-edge producer.
func (fc *funcCtx) bind(id int, val llvalue.Value, block *llvmir.Block) {
	fc.values[id] = val
	fc.defBlock[id] = block
	for _, phi := range fc.pending[id] {
		phi.Incs = append(phi.Incs, llvmir.NewIncoming(val, block))
	}
	delete(fc.pending, id)
}

func (fc *funcCtx) valueFor(id int) llvalue.Value {
	if v, ok := fc.values[id]; ok {
		return v
	}
	return constant.NewInt(lltypes.I32, 0)
}

func (fc *funcCtx) valueOrNull(inputs []int, idx int) llvalue.Value {
	if idx >= len(inputs) {
		return constant.NewNull(lltypes.I8Ptr)
	}
	return fc.valueFor(inputs[idx])
}

func (fc *funcCtx) zeroOf(t lltypes.Type) llvalue.Value {
	switch tt := t.(type) {
	case *lltypes.IntType:
		return constant.NewInt(tt, 0)
	case *lltypes.FloatType:
		return constant.NewFloat(tt, 0)
	case *lltypes.PointerType:
		return constant.NewNull(tt)
	default:
		return constant.NewInt(lltypes.I32, 0)
	}
}

// blockFor lazily creates (and registers) the basic block a Label node
// id denotes — the forward Branch/Jump->Label convention (DESIGN.md)
// means a Branch may reference a Label id before that Label node is
// itself walked.
func (fc *funcCtx) blockFor(id int) *llvmir.Block {
	if b, ok := fc.blocks[id]; ok {
		return b
	}
	b := fc.f.NewBlock(fmt.Sprintf("L%d", id))
	fc.blocks[id] = b
	return b
}

// asI1 coerces a value to i1 for use as a branch condition, comparing
// against zero when it isn't already boolean-typed.
func (fc *funcCtx) asI1(v llvalue.Value) llvalue.Value {
	if v.Type().Equal(lltypes.I1) {
		return v
	}
	if it, ok := v.Type().(*lltypes.IntType); ok {
		return fc.block.NewICmp(enum.IPredNE, v, constant.NewInt(it, 0))
	}
	return v
}

// emitNode dispatches on n.Op, returning the value it produces (nil for
// void/control ops) or an error.
func (fc *funcCtx) emitNode(e *emitter, n *janus.Node) (llvalue.Value, error) {
	switch n.Op {
	case janus.OpConstant:
		return fc.emitConstant(e, n), nil

	case janus.OpArgument:
		idx := int(n.Data.Integer)
		if idx < 0 || idx >= len(fc.f.Params) {
			return nil, fmt.Errorf("argument index %d out of range (%d params)", idx, len(fc.f.Params))
		}
		return fc.f.Params[idx], nil

	case janus.OpAlloca:
		elemType := lltypes.I32
		inst := fc.block.NewAlloca(elemType)
		fc.allocas[n.ID] = elemType
		return inst, nil

	case janus.OpLoad:
		ptr := fc.valueFor(n.Inputs[0])
		return fc.block.NewLoad(fc.allocaElemType(n.Inputs[0]), ptr), nil

	case janus.OpStore:
		ptr := fc.valueFor(n.Inputs[0])
		val := fc.valueFor(n.Inputs[1])
		fc.block.NewStore(val, ptr)
		return nil, nil

	case janus.OpPhi:
		return fc.emitPhi(n), nil

	case janus.OpAdd, janus.OpSub, janus.OpMul, janus.OpDiv, janus.OpMod,
		janus.OpBitAnd, janus.OpBitOr, janus.OpXor, janus.OpShl, janus.OpShr:
		return fc.emitArith(n)

	case janus.OpBitNot:
		v := fc.valueFor(n.Inputs[0])
		return fc.block.NewXor(v, constant.NewInt(lltypes.I32, -1)), nil

	case janus.OpEqual, janus.OpNotEqual, janus.OpLess, janus.OpLessEqual,
		janus.OpGreater, janus.OpGreaterEqual:
		return fc.emitCompare(n), nil

	case janus.OpCall:
		return fc.emitCall(e, n)

	case janus.OpReturn:
		val := fc.valueOrNull(n.Inputs, 0)
		fc.block.NewRet(val)
		return nil, nil

	case janus.OpBranch:
		cond := fc.asI1(fc.valueFor(n.Inputs[0]))
		thenB := fc.blockFor(n.Inputs[1])
		elseB := fc.blockFor(n.Inputs[2])
		fc.block.NewCondBr(cond, thenB, elseB)
		return nil, nil

	case janus.OpJump:
		target := fc.blockFor(n.Inputs[0])
		fc.block.NewBr(target)
		return nil, nil

	case janus.OpLabel:
		target := fc.blockFor(n.ID)
		if fc.block.Term == nil && fc.block != target {
			fc.block.NewBr(target)
		}
		fc.block = target
		return nil, nil

	case janus.OpArrayConstruct:
		return fc.emitArrayConstruct(n), nil

	case janus.OpIndex:
		return fc.emitIndex(n), nil

	case janus.OpIndexStore:
		return nil, fc.emitIndexStore(n)

	case janus.OpStructConstruct:
		return fc.emitStructConstruct(n), nil

	case janus.OpStructAlloca:
		return fc.emitStructAlloca(n), nil

	case janus.OpFieldAccess:
		return fc.emitFieldAccess(n), nil

	case janus.OpFieldStore:
		return nil, fc.emitFieldStore(n)

	case janus.OpRange:
		return fc.emitRange(n), nil

	case janus.OpFnRef:
		if f, ok := e.funcs[n.Data.String]; ok {
			return f, nil
		}
		return nil, fmt.Errorf("Fn_Ref to undeclared function %q", n.Data.String)

	case janus.OpClosureCreate:
		return fc.emitClosureCreate(e, n)

	case janus.OpClosureEnvLoad:
		return fc.emitClosureEnvLoad(e, n)

	case janus.OpClosureCall:
		return fc.emitClosureCall(e, n)

	case janus.OpVtableConstruct:
		return fc.emitVtableConstruct(e, n)

	case janus.OpVtableLookup:
		return fc.emitVtableLookup(e, n)

	case janus.OpUnionConstruct:
		return fc.emitUnionConstruct(n), nil

	case janus.OpUnionTagCheck:
		return fc.emitUnionTagCheck(n), nil

	case janus.OpUnionPayloadExtract:
		return fc.emitUnionPayloadExtract(n), nil

	case janus.OpTensorMatmul, janus.OpTensorConv, janus.OpTensorReduce,
		janus.OpTensorScalarMul, janus.OpTensorFusedMatmulRelu,
		janus.OpTensorFusedMatmulAdd, janus.OpTensorContract,
		janus.OpTensorRelu, janus.OpTensorSoftmax:
		return fc.emitTensorOp(e, n)

	case janus.OpQuantumGate:
		return nil, fc.emitQuantumGate(e, n)

	case janus.OpQuantumMeasure:
		return fc.emitQuantumMeasure(e, n)

	case janus.OpAsyncCall:
		return fc.emitAsyncCall(e, n)

	case janus.OpAwait:
		return fc.emitAwait(e, n)

	case janus.OpSpawn:
		return fc.emitSpawn(e, n)

	case janus.OpNurseryBegin:
		return fc.emitCallBuiltin(e, "janus_nursery_begin")

	case janus.OpNurseryEnd:
		nursery := fc.valueFor(n.Inputs[0])
		return fc.emitCallBuiltinArgs(e, "janus_nursery_end", nursery)
	}

	return nil, fmt.Errorf("emit: unsupported opcode %s", n.Op)
}

func (fc *funcCtx) emitConstant(e *emitter, n *janus.Node) llvalue.Value {
	switch n.Data.Kind {
	case janus.DataInteger:
		return constant.NewInt(lltypes.I32, n.Data.Integer)
	case janus.DataFloat:
		return constant.NewFloat(lltypes.Double, n.Data.Float)
	case janus.DataBoolean:
		if n.Data.Boolean {
			return constant.NewInt(lltypes.I1, 1)
		}
		return constant.NewInt(lltypes.I1, 0)
	case janus.DataString:
		return e.stringPtr(n.Data.String)
	default:
		return constant.NewInt(lltypes.I32, 0)
	}
}

// stringPtr interns n.Data.String as a private global constant byte
// array and returns a pointer to its first byte, deduplicating identical
// payloads (they are read-only, so sharing them is safe and keeps the
// module smaller — the same dedup the teacher's interning helpers do for
// repeated symbol lookups).
func (e *emitter) stringPtr(s string) llvalue.Value {
	if g, ok := e.strConsts[s]; ok {
		return g
	}
	data := constant.NewCharArrayFromString(s + "\x00")
	g := e.module.NewGlobalDef(fmt.Sprintf("__str.%d", len(e.strConsts)), data)
	g.Immutable = true
	e.strConsts[s] = g
	return g
}

func (fc *funcCtx) emitPhi(n *janus.Node) llvalue.Value {
	phi := fc.block.NewPhi()
	for _, in := range n.Inputs {
		if v, ok := fc.values[in]; ok {
			phi.Incs = append(phi.Incs, llvmir.NewIncoming(v, fc.defBlock[in]))
			continue
		}
		fc.pending[in] = append(fc.pending[in], phi)
	}
	return phi
}

func (fc *funcCtx) emitArith(n *janus.Node) (llvalue.Value, error) {
	lhs, rhs := fc.valueFor(n.Inputs[0]), fc.valueFor(n.Inputs[1])
	switch n.Op {
	case janus.OpAdd:
		return fc.block.NewAdd(lhs, rhs), nil
	case janus.OpSub:
		return fc.block.NewSub(lhs, rhs), nil
	case janus.OpMul:
		return fc.block.NewMul(lhs, rhs), nil
	case janus.OpDiv:
		return fc.block.NewSDiv(lhs, rhs), nil
	case janus.OpMod:
		return fc.block.NewSRem(lhs, rhs), nil
	case janus.OpBitAnd:
		return fc.block.NewAnd(lhs, rhs), nil
	case janus.OpBitOr:
		return fc.block.NewOr(lhs, rhs), nil
	case janus.OpXor:
		return fc.block.NewXor(lhs, rhs), nil
	case janus.OpShl:
		return fc.block.NewShl(lhs, rhs), nil
	case janus.OpShr:
		return fc.block.NewAShr(lhs, rhs), nil
	}
	return nil, fmt.Errorf("unreachable arithmetic opcode %s", n.Op)
}

var comparePreds = map[janus.Opcode]enum.IPred{
	janus.OpEqual:        enum.IPredEQ,
	janus.OpNotEqual:     enum.IPredNE,
	janus.OpLess:         enum.IPredSLT,
	janus.OpLessEqual:    enum.IPredSLE,
	janus.OpGreater:      enum.IPredSGT,
	janus.OpGreaterEqual: enum.IPredSGE,
}

func (fc *funcCtx) emitCompare(n *janus.Node) llvalue.Value {
	lhs, rhs := fc.valueFor(n.Inputs[0]), fc.valueFor(n.Inputs[1])
	return fc.block.NewICmp(comparePreds[n.Op], lhs, rhs)
}

func (fc *funcCtx) allocaElemType(id int) lltypes.Type {
	if t, ok := fc.allocas[id]; ok {
		return t
	}
	return lltypes.I32
}

func (fc *funcCtx) emitCall(e *emitter, n *janus.Node) (llvalue.Value, error) {
	callee, err := e.resolveCallee(n.Data.String)
	if err != nil {
		return nil, err
	}
	args := make([]llvalue.Value, len(n.Inputs))
	for i, in := range n.Inputs {
		args[i] = fc.valueFor(in)
	}
	return fc.block.NewCall(callee, args...), nil
}

func (fc *funcCtx) emitCallBuiltin(e *emitter, symbol string) (llvalue.Value, error) {
	return fc.emitCallBuiltinArgs(e, symbol)
}

func (fc *funcCtx) emitCallBuiltinArgs(e *emitter, symbol string, args ...llvalue.Value) (llvalue.Value, error) {
	callee, err := e.resolveCallee(symbol)
	if err != nil {
		return nil, err
	}
	return fc.block.NewCall(callee, args...), nil
}

func (e *emitter) resolveCallee(symbol string) (llvalue.Value, error) {
	if f, ok := e.funcs[symbol]; ok {
		return f, nil
	}
	if f, ok := e.externs[symbol]; ok {
		return f, nil
	}
	if e.declareExtern(symbol) {
		return e.externs[symbol], nil
	}
	return nil, fmt.Errorf("%s: %w", symbol, ErrUnresolvedCall)
}

func (fc *funcCtx) emitArrayConstruct(n *janus.Node) llvalue.Value {
	if len(n.Inputs) == 0 {
		arrType := lltypes.NewArray(0, lltypes.I32)
		return fc.block.NewAlloca(arrType)
	}
	elemType := fc.valueFor(n.Inputs[0]).Type()
	arrType := lltypes.NewArray(uint64(len(n.Inputs)), elemType)
	slot := fc.block.NewAlloca(arrType)
	for i, in := range n.Inputs {
		gep := fc.block.NewGetElementPtr(arrType, slot, constant.NewInt(lltypes.I32, 0), constant.NewInt(lltypes.I32, int64(i)))
		fc.block.NewStore(fc.valueFor(in), gep)
	}
	return slot
}

func (fc *funcCtx) emitIndex(n *janus.Node) llvalue.Value {
	arr := fc.valueFor(n.Inputs[0])
	idx := fc.valueFor(n.Inputs[1])
	elemType := elementTypeOf(arr.Type())
	gep := fc.block.NewGetElementPtr(elementArrayTypeOf(arr.Type()), arr, constant.NewInt(lltypes.I32, 0), idx)
	return fc.block.NewLoad(elemType, gep)
}

func (fc *funcCtx) emitIndexStore(n *janus.Node) error {
	arr := fc.valueFor(n.Inputs[0])
	idx := fc.valueFor(n.Inputs[1])
	val := fc.valueFor(n.Inputs[2])
	gep := fc.block.NewGetElementPtr(elementArrayTypeOf(arr.Type()), arr, constant.NewInt(lltypes.I32, 0), idx)
	fc.block.NewStore(val, gep)
	return nil
}

func elementArrayTypeOf(t lltypes.Type) lltypes.Type {
	if pt, ok := t.(*lltypes.PointerType); ok {
		return pt.ElemType
	}
	return lltypes.NewArray(0, lltypes.I32)
}

func elementTypeOf(t lltypes.Type) lltypes.Type {
	if pt, ok := t.(*lltypes.PointerType); ok {
		if at, ok := pt.ElemType.(*lltypes.ArrayType); ok {
			return at.ElemType
		}
	}
	return lltypes.I32
}

func (fc *funcCtx) emitStructConstruct(n *janus.Node) llvalue.Value {
	return fc.emitAggregateAlloca(n.Inputs)
}

func (fc *funcCtx) emitStructAlloca(n *janus.Node) llvalue.Value {
	return fc.emitAggregateAlloca(n.Inputs)
}

func (fc *funcCtx) emitAggregateAlloca(inputs []int) llvalue.Value {
	fieldTypes := make([]lltypes.Type, len(inputs))
	vals := make([]llvalue.Value, len(inputs))
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
	return slot
}

func (fc *funcCtx) emitFieldAccess(n *janus.Node) llvalue.Value {
	obj := fc.valueFor(n.Inputs[0])
	idx := fc.fieldIndexHeuristic(n.Data.String)
	structType := structTypeOf(obj.Type())
	gep := fc.block.NewGetElementPtr(structType, obj, constant.NewInt(lltypes.I32, 0), constant.NewInt(lltypes.I32, int64(idx)))
	elemType := lltypes.I32
	if idx < len(structType.Fields) {
		elemType = structType.Fields[idx]
	}
	return fc.block.NewLoad(elemType, gep)
}

func (fc *funcCtx) emitFieldStore(n *janus.Node) error {
	obj := fc.valueFor(n.Inputs[0])
	val := fc.valueFor(n.Inputs[1])
	idx := fc.fieldIndexHeuristic(n.Data.String)
	structType := structTypeOf(obj.Type())
	gep := fc.block.NewGetElementPtr(structType, obj, constant.NewInt(lltypes.I32, 0), constant.NewInt(lltypes.I32, int64(idx)))
	fc.block.NewStore(val, gep)
	return nil
}

// fieldIndexHeuristic has no type-checker-backed field table to consult
// (spec §1: a type checker is out of scope), so it falls back to a
// stable hash of the field name modulo 8; callers that need a specific slot set it directly via the
// Struct_Construct order and read it back in the same order.
func (fc *funcCtx) fieldIndexHeuristic(name string) int {
	h := 0
	for _, r := range name {
		h = h*31 + int(r)
	}
	if h < 0 {
		h = -h
	}
	return h % 8
}

func structTypeOf(t lltypes.Type) *lltypes.StructType {
	if pt, ok := t.(*lltypes.PointerType); ok {
		if st, ok := pt.ElemType.(*lltypes.StructType); ok {
			return st
		}
	}
	return lltypes.NewStruct(lltypes.I32)
}

func (fc *funcCtx) emitRange(n *janus.Node) llvalue.Value {
	start := fc.valueFor(n.Inputs[0])
	end := fc.valueFor(n.Inputs[1])
	inclusive := fc.zeroOf(lltypes.I1)
	if n.Data.Kind == janus.DataBoolean && n.Data.Boolean {
		inclusive = constant.NewInt(lltypes.I1, 1)
	}
	return fc.emitAggregateAlloca3(start, end, inclusive)
}

func (fc *funcCtx) emitAggregateAlloca3(vals ...llvalue.Value) llvalue.Value {
	fieldTypes := make([]lltypes.Type, len(vals))
	for i, v := range vals {
		fieldTypes[i] = v.Type()
	}
	structType := lltypes.NewStruct(fieldTypes...)
	slot := fc.block.NewAlloca(structType)
	for i, v := range vals {
		gep := fc.block.NewGetElementPtr(structType, slot, constant.NewInt(lltypes.I32, 0), constant.NewInt(lltypes.I32, int64(i)))
		fc.block.NewStore(v, gep)
	}
	return slot
}
