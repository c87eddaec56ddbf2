// Package ast defines the read-only AST-snapshot query contract the
// lowerer consumes (spec §6). The parser that produces a concrete
// Snapshot, the AST-database storage service that persists one, and the
// CLI that drives either, are all out-of-scope external collaborators:
// this package only fixes the interface between them and lower.LowerUnit.
package ast

// NodeID addresses one node within a Snapshot.
type NodeID int

// NilNode is the zero value, never a valid node.
const NilNode NodeID = -1

// Kind is one AST node kind the lowerer recognizes.
type Kind string

const (
	KindSourceFile    Kind = "source_file"
	KindFuncDecl      Kind = "func_decl"
	KindParam         Kind = "param"
	KindTypeRef       Kind = "type_ref"
	KindBlock         Kind = "block"
	KindExprStmt      Kind = "expr_stmt"
	KindLetStmt       Kind = "let_stmt"
	KindVarStmt       Kind = "var_stmt"
	KindReturnStmt    Kind = "return_stmt"
	KindIfStmt        Kind = "if_stmt"
	KindWhileStmt     Kind = "while_stmt"
	KindForStmt       Kind = "for_stmt"
	KindMatchStmt     Kind = "match_stmt"
	KindNurseryStmt   Kind = "nursery_stmt"
	KindLiteralInt    Kind = "literal_int"
	KindLiteralFloat  Kind = "literal_float"
	KindLiteralString Kind = "literal_string"
	KindLiteralBool   Kind = "literal_bool"
	KindIdentifier    Kind = "identifier"
	KindBinaryExpr    Kind = "binary_expr"
	KindUnaryExpr     Kind = "unary_expr"
	KindCallExpr      Kind = "call_expr"
	KindFieldExpr     Kind = "field_expr"
	KindIndexExpr     Kind = "index_expr"
	KindRangeExpr     Kind = "range_expr"
	KindArrayLiteral  Kind = "array_literal"
	KindStructLiteral Kind = "struct_literal"
	KindEnumDecl      Kind = "enum_decl"
	KindEnumVariant   Kind = "enum_variant"
	KindUnionDecl     Kind = "union_decl"
	KindUnionVariant  Kind = "union_variant"
	KindTraitDecl     Kind = "trait_decl"
	KindImplDecl      Kind = "impl_decl"
	KindFuncLit       Kind = "func_lit"
	KindAwaitExpr     Kind = "await_expr"
	KindAsyncExpr     Kind = "async_expr"
	KindSpawnExpr     Kind = "spawn_expr"
)

// Snapshot is the read-only, unit-scoped query interface the lowerer uses
// to walk an AST produced elsewhere. Implementations need not be
// thread-safe; the core consumes a Snapshot from a single goroutine for
// the duration of one LowerUnit call.
type Snapshot interface {
	// Root returns the source_file node for this unit.
	Root() NodeID

	// Kind reports the node kind of id.
	Kind(id NodeID) Kind

	// Children returns id's ordered child node ids.
	Children(id NodeID) []NodeID

	// StringValue returns the string payload of id: the name of an
	// identifier/param/type_ref/field_expr, the text of a literal_string,
	// or the mangled-free source name of a func_decl/enum_decl/
	// union_decl/trait_decl/impl_decl/enum_variant/union_variant.
	StringValue(id NodeID) string

	// IntValue returns the integer payload of a literal_int, or the
	// explicit `=N` discriminant override of an enum_variant (callers
	// must check HasExplicitDiscriminant first).
	IntValue(id NodeID) int64

	// FloatValue returns the float payload of a literal_float.
	FloatValue(id NodeID) float64

	// BoolValue returns the boolean payload of a literal_bool, the
	// mutability flag of a var_stmt/param ("var" vs "let"), the
	// inclusive/exclusive flag of a range_expr, or the has-default flag
	// of a trait method signature.
	BoolValue(id NodeID) bool

	// HasExplicitDiscriminant reports whether an enum_variant carries an
	// explicit `=N` override (see spec §4.4 discriminant rules, P8).
	HasExplicitDiscriminant(id NodeID) bool
}
