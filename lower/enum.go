// SPDX-License-Identifier: MIT
package lower

import "github.com/janus-lang/janus-ir/ast"

// lowerEnumDecl populates unit.Enums for one enum_decl. Discriminant
// assignment follows P8: a variant's discriminant is its explicit `=N`
// override if present, otherwise one greater than the previous variant's
// discriminant (0 for the first variant), exactly like C/Rust enums.
func (l *lowerer) lowerEnumDecl(declID ast.NodeID) {
	name := l.snap.StringValue(declID)
	variants := make(map[string]int64)

	next := int64(0)
	for _, v := range l.snap.Children(declID) {
		vName := l.snap.StringValue(v)
		disc := next
		if l.snap.HasExplicitDiscriminant(v) {
			disc = l.snap.IntValue(v)
		}
		variants[vName] = disc
		next = disc + 1
	}

	l.unit.Enums[name] = variants
}
