// SPDX-License-Identifier: MIT
package emit

import (
	"fmt"

	llvmir "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	lltypes "github.com/llir/llvm/ir/types"
	llvalue "github.com/llir/llvm/ir/value"

	janus "github.com/janus-lang/janus-ir/ir"
)

// buildVtableGlobal emits the private constant global backing one
// (Type, Trait) pair: a [N x ptr] array of the mangled method functions,
// slot-ordered by the trait's declared signature order (spec §6, P5).
// The global's name is "__vtable_" + spec.Key ("Type_Trait").
func (e *emitter) buildVtableGlobal(spec janus.VtableSpec) (*llvmir.Global, error) {
	elems := make([]constant.Constant, len(spec.Methods))
	for i, mangled := range spec.Methods {
		f, ok := e.funcs[mangled]
		if !ok {
			return nil, fmt.Errorf("emit: vtable %s: method %s never lowered to a function", spec.Key, mangled)
		}
		elems[i] = constant.NewBitCast(f, lltypes.I8Ptr)
	}

	arrType := lltypes.NewArray(uint64(len(elems)), lltypes.I8Ptr)
	g := e.module.NewGlobalDef("__vtable_"+spec.Key, constant.NewArray(arrType, elems...))
	g.Immutable = true
	return g, nil
}

// emitVtableConstruct builds the fat pointer {data_ptr, vtable_ptr} for a
// Vtable_Construct node: two insertvalue ops into an undef aggregate of
// type {ptr, ptr} (spec §4.6).
func (fc *funcCtx) emitVtableConstruct(e *emitter, n *janus.Node) (llvalue.Value, error) {
	key := n.Data.String
	vtable, ok := e.vtables[key]
	if !ok {
		return nil, fmt.Errorf("emit: %s: %w", key, ErrUnknownVtable)
	}
	dataPtr := fc.valueOrNull(n.Inputs, 0)

	undef := constant.NewUndef(fatPointerType)
	withData := fc.block.NewInsertValue(undef, dataPtr, 0)
	vtablePtr := constant.NewBitCast(vtable, lltypes.I8Ptr)
	withVtable := fc.block.NewInsertValue(withData, vtablePtr, 1)
	return withVtable, nil
}

// emitVtableLookup extracts the fat pointer's two fields, GEPs into the
// vtable array at the method's slot, loads the function pointer, and
// issues an indirect call with the data pointer as implicit self
// followed by the remaining argument values (spec §4.6).
func (fc *funcCtx) emitVtableLookup(e *emitter, n *janus.Node) (llvalue.Value, error) {
	if len(n.Inputs) == 0 {
		return nil, fmt.Errorf("emit: Vtable_Lookup node %d has no fat-pointer input", n.ID)
	}
	fatPtr := fc.valueOrNull(n.Inputs, 0)

	dataPtr := fc.block.NewExtractValue(fatPtr, 0)
	vtablePtr := fc.block.NewExtractValue(fatPtr, 1)

	slot := int(n.Data.Integer)
	arrType := lltypes.NewArray(1, lltypes.I8Ptr) // element count is opaque to the caller; GEP indexing only needs the element type
	zero := constant.NewInt(lltypes.I32, 0)
	idx := constant.NewInt(lltypes.I32, int64(slot))
	slotPtr := fc.block.NewGetElementPtr(arrType, vtablePtr, zero, idx)
	fnPtr := fc.block.NewLoad(lltypes.I8Ptr, slotPtr)

	args := []llvalue.Value{dataPtr}
	for _, in := range n.Inputs[1:] {
		args = append(args, fc.valueFor(in))
	}
	return fc.block.NewCall(fnPtr, args...), nil
}
