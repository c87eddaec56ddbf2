// Package lower translates an AST snapshot into a set of named function
// graphs plus trait/impl/vtable side tables (spec §4.4). It is a
// tree-walking, fail-fast translator: the first semantic error
// (MissingTraitImpl, DuplicateTraitImpl, UndeclaredIdentifier,
// ArityMismatch) aborts lowering and is returned as a typed error; there
// is no partial-result recovery, matching spec §7's "lowerer fails fast"
// policy.
//
// # AST child-layout convention
//
// ast.Snapshot fixes node *kinds* (spec §6); the positional layout of a
// kind's children is an internal contract between the out-of-scope AST
// producer and this package. This lowerer assumes:
//
//   - source_file: children are top-level decls (func_decl / enum_decl /
//     union_decl / trait_decl / impl_decl), in source order.
//   - func_decl: StringValue is the function name; children are zero or
//     more param nodes, an optional single type_ref giving the return
//     type (default "i32" if absent), and exactly one block (the body) —
//     except inside a trait_decl, where the block is omitted for a
//     signature with no default.
//   - param: StringValue is the parameter name; its single type_ref child
//     gives the declared type.
//   - block: children are statements, in order.
//   - let_stmt / var_stmt: StringValue is the bound name; the single
//     child is the initializer expression.
//   - if_stmt: children are [cond, then_block] or [cond, then_block,
//     else_block].
//   - while_stmt: children are [cond, body_block].
//   - for_stmt: StringValue is the loop variable name; children are
//     [range_expr, body_block].
//   - range_expr: BoolValue is the inclusive flag; children are [lo, hi].
//   - match_stmt: children are [scrutinee, arm...]; each arm is a
//     union_variant node whose StringValue is "Union.Variant", whose
//     leading children are binder identifiers (one per declared field,
//     "_" to discard), and whose last child is the arm body expression.
//   - nursery_stmt: single child is the body block.
//   - binary_expr: StringValue is the operator ("+","-","*","/","%",
//     "==","!=","<","<=",">",">=","&","|","^","<<",">>","@","="); "="
//     is assignment (lhs must be identifier/field_expr/index_expr);
//     children are [lhs, rhs].
//   - unary_expr: StringValue is the operator; single child is the
//     operand.
//   - call_expr: children are [callee, arg...]; callee is an identifier
//     (function/closure call) or a field_expr (method call through a
//     trait object).
//   - field_expr: StringValue is the field/variant/method name; single
//     child is the object expression. `EnumName.Variant` and
//     `UnionName.Variant` (unit variant, no braces) reuse this shape with
//     an identifier object naming the enum/union type.
//   - index_expr: children are [object, index].
//   - array_literal: children are element expressions.
//   - struct_literal: StringValue is "TypeName" or "UnionName.Variant";
//     children are field-value expressions in declared field order.
//   - enum_decl: StringValue is the enum name; children are enum_variant
//     nodes.
//   - enum_variant: StringValue is the variant name; IntValue/
//     HasExplicitDiscriminant give an explicit `=N` override.
//   - union_decl: StringValue is the union name; children are
//     union_variant nodes.
//   - union_variant: StringValue is the variant name; children are param
//     nodes giving ordered fields (empty for a unit variant).
//   - trait_decl: StringValue is the trait name; children are func_decl
//     method signatures (block present iff has_default).
//   - impl_decl: StringValue is "TraitName:TypeName" (TraitName empty for
//     a standalone impl); children are func_decl method bodies.
//   - func_lit: children are zero or more param nodes, an optional return
//     type_ref, and exactly one block.
//   - async_expr / spawn_expr: StringValue is the callee name; children
//     are the call's argument expressions.
//   - await_expr: single child is the awaited handle expression.
package lower
