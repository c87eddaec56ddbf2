// SPDX-License-Identifier: MIT
package lower

import (
	"fmt"
	"strings"

	"github.com/janus-lang/janus-ir/ast"
	"github.com/janus-lang/janus-ir/ir"
)

// mangleMethod names a (TypeName, method) pair's lowered graph per spec
// §4.4's name-mangling convention: `Type_method` for a standalone impl,
// `Type_Trait_method` for a trait impl (traitName empty selects the
// former).
func mangleMethod(typeName, traitName, method string) string {
	if traitName == "" {
		return typeName + "_" + method
	}
	return typeName + "_" + traitName + "_" + method
}

// lowerTraitDecl populates unit.Traits with sig.Name in declaration order
// (that order fixes vtable slot order, P5) and lowers any default-bodied
// method into its own graph, keyed for later fallback by lowerImplDecl.
func (l *lowerer) lowerTraitDecl(declID ast.NodeID) {
	name := l.snap.StringValue(declID)
	decl := ir.TraitDecl{Name: name}

	for _, m := range l.snap.Children(declID) {
		sig := l.methodSignature(m)
		decl.Methods = append(decl.Methods, sig)

		if sig.HasDefault {
			graphName := name + "__" + sig.Name + "__default"
			if _, err := l.lowerFuncDecl(m, graphName); err == nil {
				if l.traitDefaults == nil {
					l.traitDefaults = make(map[string]map[string]string)
				}
				if l.traitDefaults[name] == nil {
					l.traitDefaults[name] = make(map[string]string)
				}
				l.traitDefaults[name][sig.Name] = graphName
			}
		}
	}

	l.unit.Traits[name] = decl
}

func (l *lowerer) methodSignature(methodID ast.NodeID) ir.MethodSignature {
	sig := ir.MethodSignature{
		Name:       l.snap.StringValue(methodID),
		ReturnType: "i32",
		HasDefault: l.snap.BoolValue(methodID),
	}
	for _, c := range l.snap.Children(methodID) {
		switch l.snap.Kind(c) {
		case ast.KindParam:
			typeName := "i32"
			if refs := l.snap.Children(c); len(refs) > 0 {
				typeName = l.snap.StringValue(refs[0])
			}
			sig.Parameters = append(sig.Parameters, ir.Param{Name: l.snap.StringValue(c), TypeName: typeName})
		case ast.KindTypeRef:
			sig.ReturnType = l.snap.StringValue(c)
		}
	}
	return sig
}

// lowerImplDecl lowers one impl_decl's method bodies, checks trait
// completeness (ErrMissingTraitImpl), rejects a duplicate (trait, type)
// pair (ErrDuplicateTraitImpl), and — for a trait impl — populates the
// (Type, Trait) vtable in the trait's declared method order.
func (l *lowerer) lowerImplDecl(declID ast.NodeID) error {
	traitName, typeName, _ := strings.Cut(l.snap.StringValue(declID), ":")

	methodGraphs := make(map[string]string)
	for _, m := range l.snap.Children(declID) {
		methodName := l.snap.StringValue(m)
		g, err := l.lowerFuncDecl(m, mangleMethod(typeName, traitName, methodName))
		if err != nil {
			return err
		}
		methodGraphs[methodName] = g.FunctionName
	}

	key := ir.ImplKey{TraitName: traitName, TypeName: typeName}
	if _, exists := l.unit.Impls[key]; exists {
		return wrapf(ErrDuplicateTraitImpl, "%s for %s", traitName, typeName)
	}

	if traitName != "" {
		traitDecl, ok := l.unit.Traits[traitName]
		if ok {
			var vtableMethods []string
			for _, sig := range traitDecl.Methods {
				graphName, has := methodGraphs[sig.Name]
				if !has {
					if sig.HasDefault {
						graphName = l.traitDefaults[traitName][sig.Name]
					} else {
						return wrapf(ErrMissingTraitImpl, "%s.%s for %s", traitName, sig.Name, typeName)
					}
				}
				vtableMethods = append(vtableMethods, graphName)
			}
			vtableKey := fmt.Sprintf("%s_%s", typeName, traitName)
			l.unit.Vtables[vtableKey] = ir.VtableSpec{Key: vtableKey, Methods: vtableMethods}
		}
	}

	l.unit.Impls[key] = methodGraphs
	return nil
}
