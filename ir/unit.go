// SPDX-License-Identifier: MIT
package ir

// EnumTable maps an enum name to its variant -> discriminant mapping.
type EnumTable map[string]map[string]int64

// UnionField is one named, typed field of a union variant.
type UnionField struct {
	Name     string
	TypeName string
}

// UnionVariant is one variant of a tagged union: its name, its 0-based
// index (the Union_Construct/Union_Tag_Check discriminator), and its
// ordered field list (empty for a unit variant).
type UnionVariant struct {
	Name   string
	Index  int
	Fields []UnionField
}

// UnionDecl is the ordered variant list for one union type.
type UnionDecl struct {
	Name     string
	Variants []UnionVariant
}

// UnionTable maps a union name to its declaration.
type UnionTable map[string]UnionDecl

// MethodSignature is one method entry in a trait declaration.
type MethodSignature struct {
	Name       string
	Parameters []Param
	ReturnType string
	HasDefault bool
}

// TraitDecl is the ordered method-signature list for one trait. Method
// order is load-bearing: it fixes vtable slot order (spec §4.4.3, P5).
type TraitDecl struct {
	Name    string
	Methods []MethodSignature
}

// TraitTable maps a trait name to its declaration.
type TraitTable map[string]TraitDecl

// ImplKey identifies one impl block: (trait name, type name). TraitName
// is empty for a standalone (non-trait) impl.
type ImplKey struct {
	TraitName string
	TypeName  string
}

// ImplTable maps an (trait,type) pair to its method -> lowered-graph-name
// mapping.
type ImplTable map[ImplKey]map[string]string

// VtableSpec is the slot-ordered list of mangled method names backing one
// (Type, Trait) pair's dynamic dispatch table.
type VtableSpec struct {
	Key     string // "Type_Trait"
	Methods []string
}

// Unit is the compilation-unit-scoped side-table bundle the lowerer
// produces alongside its function graphs (spec §3, "Compilation unit
// metadata"). It is passed through explicitly by lower.LowerUnit; there is
// no package-level global state (spec §9).
type Unit struct {
	Enums   EnumTable
	Unions  UnionTable
	Traits  TraitTable
	Impls   ImplTable
	Vtables map[string]VtableSpec
}

// NewUnit returns an empty, ready-to-populate Unit.
func NewUnit() *Unit {
	return &Unit{
		Enums:   make(EnumTable),
		Unions:  make(UnionTable),
		Traits:  make(TraitTable),
		Impls:   make(ImplTable),
		Vtables: make(map[string]VtableSpec),
	}
}
