// SPDX-License-Identifier: MIT
package emit

import (
	"strings"

	lltypes "github.com/llir/llvm/ir/types"
)

// fatPointerType is the two-word trait-object representation (spec §6):
// {data pointer, vtable pointer}, in that field order.
var fatPointerType = lltypes.NewStruct(lltypes.I8Ptr, lltypes.I8Ptr)

// llvmType resolves a Janus source type name to its LLVM representation.
// Unknown names default to i32, matching ir.Graph's own "i32" default
// return type (spec §3) rather than failing emission over a cosmetic
// type-name gap — the core has no type checker of its own (spec §1).
func llvmType(name string) lltypes.Type {
	if trait, ok := strings.CutPrefix(name, "dyn "); ok {
		_ = trait
		return fatPointerType
	}
	switch name {
	case "i1", "bool":
		return lltypes.I1
	case "i8", "u8":
		return lltypes.I8
	case "i16", "u16":
		return lltypes.I16
	case "i32", "u32":
		return lltypes.I32
	case "i64", "u64":
		return lltypes.I64
	case "f32":
		return lltypes.Float
	case "f64", "double":
		return lltypes.Double
	case "void":
		return lltypes.Void
	case "ptr":
		return lltypes.I8Ptr
	default:
		return lltypes.I32
	}
}
