// SPDX-License-Identifier: MIT
package lower

import (
	"github.com/janus-lang/janus-ir/ast"
	"github.com/janus-lang/janus-ir/ir"
)

// lowerUnionDecl populates unit.Unions for one union_decl. Variant index
// is simply its 0-based position (the Union_Construct/Union_Tag_Check
// discriminator); unions have no `=N` override, unlike enums.
func (l *lowerer) lowerUnionDecl(declID ast.NodeID) {
	name := l.snap.StringValue(declID)
	decl := ir.UnionDecl{Name: name}

	for i, v := range l.snap.Children(declID) {
		variant := ir.UnionVariant{Name: l.snap.StringValue(v), Index: i}
		for _, f := range l.snap.Children(v) {
			typeName := "i32"
			if refs := l.snap.Children(f); len(refs) > 0 {
				typeName = l.snap.StringValue(refs[0])
			}
			variant.Fields = append(variant.Fields, ir.UnionField{
				Name:     l.snap.StringValue(f),
				TypeName: typeName,
			})
		}
		decl.Variants = append(decl.Variants, variant)
	}

	l.unit.Unions[name] = decl
}

// findUnionVariant looks up variant in decl by name.
func findUnionVariant(decl ir.UnionDecl, name string) (ir.UnionVariant, bool) {
	for _, v := range decl.Variants {
		if v.Name == name {
			return v, true
		}
	}
	return ir.UnionVariant{}, false
}
