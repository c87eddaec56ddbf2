// SPDX-License-Identifier: MIT
package lower

import (
	"strings"

	"github.com/janus-lang/janus-ir/ast"
	"github.com/janus-lang/janus-ir/ir"
)

// lowerExpr lowers one expression node to the value it produces.
func (l *lowerer) lowerExpr(g *ir.Graph, scope *scope, exprID ast.NodeID) (int, error) {
	switch l.snap.Kind(exprID) {
	case ast.KindLiteralInt:
		return g.CreateConstant(ir.Int(l.snap.IntValue(exprID))), nil
	case ast.KindLiteralFloat:
		return g.CreateConstant(ir.Flt(l.snap.FloatValue(exprID))), nil
	case ast.KindLiteralString:
		return g.CreateConstant(ir.Str(l.snap.StringValue(exprID))), nil
	case ast.KindLiteralBool:
		return g.CreateConstant(ir.Bool(l.snap.BoolValue(exprID))), nil
	case ast.KindIdentifier:
		return l.lowerIdentifier(g, scope, exprID)
	case ast.KindBinaryExpr:
		return l.lowerBinaryExpr(g, scope, exprID)
	case ast.KindUnaryExpr:
		return l.lowerUnaryExpr(g, scope, exprID)
	case ast.KindCallExpr:
		return l.lowerCallExpr(g, scope, exprID)
	case ast.KindFieldExpr:
		return l.lowerFieldExpr(g, scope, exprID)
	case ast.KindIndexExpr:
		children := l.snap.Children(exprID)
		objVal, err := l.lowerExpr(g, scope, children[0])
		if err != nil {
			return -1, err
		}
		idxVal, err := l.lowerExpr(g, scope, children[1])
		if err != nil {
			return -1, err
		}
		return g.CreateNodeWithInputs(ir.OpIndex, objVal, idxVal), nil
	case ast.KindRangeExpr:
		children := l.snap.Children(exprID)
		lo, err := l.lowerExpr(g, scope, children[0])
		if err != nil {
			return -1, err
		}
		hi, err := l.lowerExpr(g, scope, children[1])
		if err != nil {
			return -1, err
		}
		id := g.CreateNodeWithInputs(ir.OpRange, lo, hi)
		g.SetData(id, ir.Bool(l.snap.BoolValue(exprID)))
		return id, nil
	case ast.KindArrayLiteral:
		var vals []int
		for _, c := range l.snap.Children(exprID) {
			v, err := l.lowerExpr(g, scope, c)
			if err != nil {
				return -1, err
			}
			vals = append(vals, v)
		}
		return g.CreateNodeWithInputs(ir.OpArrayConstruct, vals...), nil
	case ast.KindStructLiteral:
		return l.lowerStructLiteral(g, scope, exprID)
	case ast.KindFuncLit:
		return l.lowerFuncLit(g, scope, exprID)
	case ast.KindAwaitExpr:
		inner, err := l.lowerExpr(g, scope, l.snap.Children(exprID)[0])
		if err != nil {
			return -1, err
		}
		return g.CreateNodeWithInputs(ir.OpAwait, inner), nil
	case ast.KindAsyncExpr:
		return l.lowerAsyncLike(g, scope, exprID, ir.OpAsyncCall)
	case ast.KindSpawnExpr:
		return l.lowerAsyncLike(g, scope, exprID, ir.OpSpawn)
	}
	return -1, wrapf(ErrUndeclaredIdentifier, "cannot lower expression kind %s", l.snap.Kind(exprID))
}

func (l *lowerer) lowerIdentifier(g *ir.Graph, scope *scope, exprID ast.NodeID) (int, error) {
	name := l.snap.StringValue(exprID)
	b, ok := scope.lookup(name)
	if !ok {
		return -1, wrapf(ErrUndeclaredIdentifier, "%q", name)
	}
	if b.kind == bindVar {
		return g.CreateNodeWithInputs(ir.OpLoad, b.nodeID), nil
	}
	return b.nodeID, nil
}

var binaryOps = map[string]ir.Opcode{
	"+": ir.OpAdd, "-": ir.OpSub, "*": ir.OpMul, "/": ir.OpDiv, "%": ir.OpMod,
	"==": ir.OpEqual, "!=": ir.OpNotEqual,
	"<": ir.OpLess, "<=": ir.OpLessEqual, ">": ir.OpGreater, ">=": ir.OpGreaterEqual,
	"&": ir.OpBitAnd, "|": ir.OpBitOr, "^": ir.OpXor, "<<": ir.OpShl, ">>": ir.OpShr,
}

func (l *lowerer) lowerBinaryExpr(g *ir.Graph, scope *scope, exprID ast.NodeID) (int, error) {
	op := l.snap.StringValue(exprID)
	children := l.snap.Children(exprID)
	lhs, err := l.lowerExpr(g, scope, children[0])
	if err != nil {
		return -1, err
	}
	rhs, err := l.lowerExpr(g, scope, children[1])
	if err != nil {
		return -1, err
	}

	if op == "@" {
		id := g.CreateNodeTenancy(ir.OpTensorMatmul, ir.NPUTensor)
		g.AddInput(id, lhs)
		g.AddInput(id, rhs)
		return id, nil
	}
	opcode, ok := binaryOps[op]
	if !ok {
		return -1, wrapf(ErrUndeclaredIdentifier, "unknown binary operator %q", op)
	}
	return g.CreateNodeWithInputs(opcode, lhs, rhs), nil
}

func (l *lowerer) lowerUnaryExpr(g *ir.Graph, scope *scope, exprID ast.NodeID) (int, error) {
	operand, err := l.lowerExpr(g, scope, l.snap.Children(exprID)[0])
	if err != nil {
		return -1, err
	}
	switch l.snap.StringValue(exprID) {
	case "-":
		zero := g.CreateConstant(ir.Int(0))
		return g.CreateNodeWithInputs(ir.OpSub, zero, operand), nil
	case "~":
		return g.CreateNodeWithInputs(ir.OpBitNot, operand), nil
	case "!":
		f := g.CreateConstant(ir.Bool(false))
		return g.CreateNodeWithInputs(ir.OpEqual, operand, f), nil
	}
	return -1, wrapf(ErrUndeclaredIdentifier, "unknown unary operator %q", l.snap.StringValue(exprID))
}

// lowerCallExpr lowers call_expr. Its callee is either an identifier
// (ordinary function/closure call) or a field_expr (method call through a
// trait object or a concrete impl). An argument passed to a declared
// `dyn Trait` parameter is wrapped in Vtable_Construct here, at the call
// site, since only the caller knows both the argument's concrete type
// and the callee's declared parameter type (spec §4.4.3).
func (l *lowerer) lowerCallExpr(g *ir.Graph, scope *scope, exprID ast.NodeID) (int, error) {
	children := l.snap.Children(exprID)
	callee, argExprs := children[0], children[1:]

	argVals := make([]int, len(argExprs))
	for i, a := range argExprs {
		v, err := l.lowerExpr(g, scope, a)
		if err != nil {
			return -1, err
		}
		argVals[i] = v
	}

	switch l.snap.Kind(callee) {
	case ast.KindIdentifier:
		name := l.snap.StringValue(callee)
		if b, ok := scope.lookup(name); ok {
			target := g.Node(b.nodeID)
			if target.Op == ir.OpFnRef {
				return g.CreateCall(target.Data.String, argVals...), nil
			}
			return g.CreateNodeWithInputs(ir.OpClosureCall, append([]int{b.nodeID}, argVals...)...), nil
		}
		if !l.isCallable(name) {
			return -1, wrapf(ErrUndeclaredIdentifier, "call to %q", name)
		}
		l.wrapDynArgs(g, scope, name, argExprs, argVals)
		return g.CreateCall(name, argVals...), nil

	case ast.KindFieldExpr:
		return l.lowerMethodCall(g, scope, callee, argVals)
	}

	return -1, wrapf(ErrUndeclaredIdentifier, "unsupported call target kind %s", l.snap.Kind(callee))
}

// wrapDynArgs rewrites argVals in place, replacing any argument passed to
// a `dyn Trait` parameter with a Vtable_Construct fat pointer over it.
func (l *lowerer) wrapDynArgs(g *ir.Graph, scope *scope, calleeName string, argExprs []ast.NodeID, argVals []int) {
	types := l.funcParamTypes[calleeName]
	for i := 0; i < len(types) && i < len(argVals); i++ {
		trait, ok := strings.CutPrefix(types[i], "dyn ")
		if !ok {
			continue
		}
		typeName, ok := l.staticTypeName(scope, argExprs[i])
		if !ok {
			continue
		}
		wrapped := g.CreateNodeWithInputs(ir.OpVtableConstruct, argVals[i])
		g.SetData(wrapped, ir.Str(typeName+"_"+trait))
		argVals[i] = wrapped
	}
}

// staticTypeName recovers the concrete struct type an expression was
// built from, when statically knowable: a struct_literal names itself
// directly; an identifier carries it through its binding if it was
// initialized from one.
func (l *lowerer) staticTypeName(scope *scope, exprID ast.NodeID) (string, bool) {
	switch l.snap.Kind(exprID) {
	case ast.KindStructLiteral:
		return l.snap.StringValue(exprID), true
	case ast.KindIdentifier:
		if b, ok := scope.lookup(l.snap.StringValue(exprID)); ok && b.typeName != "" {
			return b.typeName, true
		}
	}
	return "", false
}

// lowerMethodCall lowers `obj.method(args)`. A receiver bound through a
// `dyn Trait` parameter dispatches dynamically via Vtable_Lookup; a
// receiver with a statically known concrete type dispatches via a direct
// Call to the mangled impl method (spec §4.4.3).
func (l *lowerer) lowerMethodCall(g *ir.Graph, scope *scope, fieldExprID ast.NodeID, argVals []int) (int, error) {
	objID := l.snap.Children(fieldExprID)[0]
	methodName := l.snap.StringValue(fieldExprID)

	objVal, err := l.lowerExpr(g, scope, objID)
	if err != nil {
		return -1, err
	}

	if l.snap.Kind(objID) == ast.KindIdentifier {
		if b, ok := scope.lookup(l.snap.StringValue(objID)); ok && b.traitName != "" {
			trait := l.unit.Traits[b.traitName]
			slot := -1
			for i, sig := range trait.Methods {
				if sig.Name == methodName {
					slot = i
					break
				}
			}
			if slot < 0 {
				return -1, wrapf(ErrUndeclaredIdentifier, "%s has no method %q", b.traitName, methodName)
			}
			id := g.CreateNodeWithInputs(ir.OpVtableLookup, append([]int{objVal}, argVals...)...)
			g.SetData(id, ir.Int(int64(slot)))
			return id, nil
		}
	}

	typeName, ok := l.staticTypeName(scope, objID)
	if !ok {
		return -1, wrapf(ErrUndeclaredIdentifier, "cannot resolve receiver type for %q", methodName)
	}
	if methods, ok := l.unit.Impls[ir.ImplKey{TypeName: typeName}]; ok {
		if graphName, ok := methods[methodName]; ok {
			return g.CreateCall(graphName, append([]int{objVal}, argVals...)...), nil
		}
	}
	for key, methods := range l.unit.Impls {
		if key.TypeName != typeName || key.TraitName == "" {
			continue
		}
		if graphName, ok := methods[methodName]; ok {
			return g.CreateCall(graphName, append([]int{objVal}, argVals...)...), nil
		}
	}
	return -1, wrapf(ErrUndeclaredIdentifier, "%s has no method %q", typeName, methodName)
}

// lowerFieldExpr lowers field_expr used as a value (not a call): plain
// struct field access, or, when the object names a known enum/union
// type rather than a bound variable, an EnumName.Variant constant or a
// UnionName.Variant unit-variant construction.
func (l *lowerer) lowerFieldExpr(g *ir.Graph, scope *scope, exprID ast.NodeID) (int, error) {
	objID := l.snap.Children(exprID)[0]
	fieldName := l.snap.StringValue(exprID)

	if l.snap.Kind(objID) == ast.KindIdentifier {
		name := l.snap.StringValue(objID)
		if _, bound := scope.lookup(name); !bound {
			if disc, ok := l.unit.Enums[name][fieldName]; ok {
				return g.CreateConstant(ir.Int(disc)), nil
			}
			if decl, ok := l.unit.Unions[name]; ok {
				if variant, ok := findUnionVariant(decl, fieldName); ok {
					if len(variant.Fields) != 0 {
						return -1, wrapf(ErrArityMismatch, "%s.%s requires %d field(s)", name, fieldName, len(variant.Fields))
					}
					id := g.CreateNodeWithInputs(ir.OpUnionConstruct)
					g.SetData(id, ir.Int(int64(variant.Index)))
					return id, nil
				}
			}
		}
	}

	objVal, err := l.lowerExpr(g, scope, objID)
	if err != nil {
		return -1, err
	}
	id := g.CreateNodeWithInputs(ir.OpFieldAccess, objVal)
	g.SetData(id, ir.Str(fieldName))
	return id, nil
}

// lowerStructLiteral lowers struct_literal: a plain aggregate
// construction, or, when StringValue is "Union.Variant", a tagged
// Union_Construct checked against the declared field arity.
func (l *lowerer) lowerStructLiteral(g *ir.Graph, scope *scope, exprID ast.NodeID) (int, error) {
	raw := l.snap.StringValue(exprID)
	args := l.snap.Children(exprID)

	if unionName, variantName, ok := strings.Cut(raw, "."); ok {
		if decl, ok := l.unit.Unions[unionName]; ok {
			variant, ok := findUnionVariant(decl, variantName)
			if !ok {
				return -1, wrapf(ErrUndeclaredIdentifier, "%s has no variant %q", unionName, variantName)
			}
			if len(args) != len(variant.Fields) {
				return -1, wrapf(ErrArityMismatch, "%s.%s wants %d field(s), got %d", unionName, variantName, len(variant.Fields), len(args))
			}
			vals := make([]int, len(args))
			for i, a := range args {
				v, err := l.lowerExpr(g, scope, a)
				if err != nil {
					return -1, err
				}
				vals[i] = v
			}
			id := g.CreateNodeWithInputs(ir.OpUnionConstruct, vals...)
			g.SetData(id, ir.Int(int64(variant.Index)))
			return id, nil
		}
	}

	vals := make([]int, len(args))
	for i, a := range args {
		v, err := l.lowerExpr(g, scope, a)
		if err != nil {
			return -1, err
		}
		vals[i] = v
	}
	id := g.CreateNodeWithInputs(ir.OpStructConstruct, vals...)
	g.SetData(id, ir.Str(raw))
	return id, nil
}

func (l *lowerer) lowerAsyncLike(g *ir.Graph, scope *scope, exprID ast.NodeID, op ir.Opcode) (int, error) {
	var vals []int
	for _, a := range l.snap.Children(exprID) {
		v, err := l.lowerExpr(g, scope, a)
		if err != nil {
			return -1, err
		}
		vals = append(vals, v)
	}
	id := g.CreateNodeWithInputs(op, vals...)
	g.SetData(id, ir.Str(l.snap.StringValue(exprID)))
	return id, nil
}
