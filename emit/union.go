// SPDX-License-Identifier: MIT
package emit

import (
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	lltypes "github.com/llir/llvm/ir/types"
	llvalue "github.com/llir/llvm/ir/value"

	janus "github.com/janus-lang/janus-ir/ir"
)

// unionPayloadFields is the payload slot count (all i32) unionStructTypeOf
// assumes when the operand's type is not a pointer to a struct.
// emitUnionConstruct itself sizes its struct from its own inputs, one
// typed field per payload value (spec §6: "a
// struct {tag: i32, payload: [max_payload_bytes x i8]}" — here modeled
// directly as typed fields rather than a raw byte blob, since the core
// carries no byte-level layout computation of its own).
const unionPayloadFields = 4

// emitUnionConstruct stack-allocates {tag: i32, payload...}, stores the
// discriminant and each field value (spec §4.6, §6).
func (fc *funcCtx) emitUnionConstruct(n *janus.Node) llvalue.Value {
	fieldTypes := []lltypes.Type{lltypes.I32}
	vals := []llvalue.Value{constant.NewInt(lltypes.I32, n.Data.Integer)}
	for _, in := range n.Inputs {
		v := fc.valueFor(in)
		vals = append(vals, v)
		fieldTypes = append(fieldTypes, v.Type())
	}
	structType := lltypes.NewStruct(fieldTypes...)
	slot := fc.block.NewAlloca(structType)
	for i, v := range vals {
		gep := fc.block.NewGetElementPtr(structType, slot, constant.NewInt(lltypes.I32, 0), constant.NewInt(lltypes.I32, int64(i)))
		fc.block.NewStore(v, gep)
	}
	return slot
}

// emitUnionTagCheck loads the tag field and compares it for equality
// against the arm's expected discriminant.
func (fc *funcCtx) emitUnionTagCheck(n *janus.Node) llvalue.Value {
	scrutinee := fc.valueFor(n.Inputs[0])
	structType := unionStructTypeOf(scrutinee.Type())
	gep := fc.block.NewGetElementPtr(structType, scrutinee, constant.NewInt(lltypes.I32, 0), constant.NewInt(lltypes.I32, 0))
	tag := fc.block.NewLoad(lltypes.I32, gep)
	return fc.block.NewICmp(enum.IPredEQ, tag, constant.NewInt(lltypes.I32, n.Data.Integer))
}

// emitUnionPayloadExtract GEPs into the payload at 1+field index (slot 0
// is always the tag) and loads it.
func (fc *funcCtx) emitUnionPayloadExtract(n *janus.Node) llvalue.Value {
	scrutinee := fc.valueFor(n.Inputs[0])
	structType := unionStructTypeOf(scrutinee.Type())
	slot := 1 + int(n.Data.Integer)
	gep := fc.block.NewGetElementPtr(structType, scrutinee, constant.NewInt(lltypes.I32, 0), constant.NewInt(lltypes.I32, int64(slot)))
	elemType := lltypes.I32
	if slot < len(structType.Fields) {
		elemType = structType.Fields[slot]
	}
	return fc.block.NewLoad(elemType, gep)
}

func unionStructTypeOf(t lltypes.Type) *lltypes.StructType {
	if pt, ok := t.(*lltypes.PointerType); ok {
		if st, ok := pt.ElemType.(*lltypes.StructType); ok {
			return st
		}
	}
	fields := make([]lltypes.Type, unionPayloadFields+1)
	for i := range fields {
		fields[i] = lltypes.I32
	}
	return lltypes.NewStruct(fields...)
}
