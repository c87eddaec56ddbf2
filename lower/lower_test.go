// SPDX-License-Identifier: MIT
package lower_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/janus-lang/janus-ir/ast"
	"github.com/janus-lang/janus-ir/ast/fixture"
	"github.com/janus-lang/janus-ir/ir"
	"github.com/janus-lang/janus-ir/lower"
)

// findGraph returns the graph named name, failing the test if absent.
func findGraph(t *testing.T, graphs []*ir.Graph, name string) *ir.Graph {
	t.Helper()
	for _, g := range graphs {
		if g.FunctionName == name {
			return g
		}
	}
	t.Fatalf("no graph named %q among %d graphs", name, len(graphs))
	return nil
}

func countOp(g *ir.Graph, op ir.Opcode) int {
	n := 0
	for _, node := range g.Nodes() {
		if node.Op == op {
			n++
		}
	}
	return n
}

// buildSimpleFunc builds:
//
//	func add(a, b) -> i32 {
//	    return a + b
//	}
func buildSimpleFunc(b *fixture.Builder) ast.NodeID {
	a := b.Add(ast.KindParam)
	b.SetString(a, "a")
	bPar := b.Add(ast.KindParam)
	b.SetString(bPar, "b")

	aIdent := b.Add(ast.KindIdentifier)
	b.SetString(aIdent, "a")
	bIdent := b.Add(ast.KindIdentifier)
	b.SetString(bIdent, "b")
	sum := b.Add(ast.KindBinaryExpr)
	b.SetString(sum, "+")
	b.SetChildren(sum, aIdent, bIdent)

	ret := b.Add(ast.KindReturnStmt)
	b.SetChildren(ret, sum)

	block := b.Add(ast.KindBlock)
	b.SetChildren(block, ret)

	fn := b.Add(ast.KindFuncDecl)
	b.SetString(fn, "add")
	b.SetChildren(fn, a, bPar, block)
	return fn
}

func TestLowerUnit_SimpleFunction(t *testing.T) {
	b := fixture.NewBuilder()
	fn := buildSimpleFunc(b)
	root := b.Add(ast.KindSourceFile)
	b.SetChildren(root, fn)
	b.SetRoot(root)

	graphs, unit, err := lower.LowerUnit(b.Build(), "unit1")
	require.NoError(t, err)
	require.NotNil(t, unit)
	require.Len(t, graphs, 1)

	g := findGraph(t, graphs, "add")
	require.Equal(t, 1, countOp(g, ir.OpAdd))
	require.Equal(t, 1, countOp(g, ir.OpReturn))
	require.Equal(t, 2, countOp(g, ir.OpArgument))

	ret := g.Node(g.NodeCount() - 1)
	require.Equal(t, ir.OpReturn, ret.Op)
	require.Less(t, ret.Inputs[0], ret.ID)
}

// buildIfElseFunc builds:
//
//	func pick(c) -> i32 {
//	    if c {
//	        x = 1
//	    } else {
//	        x = 2
//	    }
//	    return x
//	}
//
// modeled directly as an assignment to a name bound in each arm's own
// scope (matching how lowerIfStmt merges arm-local bindings), rather than
// a pre-existing outer `let x`.
func buildIfElseFunc(b *fixture.Builder) ast.NodeID {
	c := b.Add(ast.KindParam)
	b.SetString(c, "c")

	cIdent := b.Add(ast.KindIdentifier)
	b.SetString(cIdent, "c")

	one := b.Add(ast.KindLiteralInt)
	b.SetInt(one, 1)
	letX1 := b.Add(ast.KindLetStmt)
	b.SetString(letX1, "x")
	b.SetChildren(letX1, one)
	thenBlock := b.Add(ast.KindBlock)
	b.SetChildren(thenBlock, letX1)

	two := b.Add(ast.KindLiteralInt)
	b.SetInt(two, 2)
	letX2 := b.Add(ast.KindLetStmt)
	b.SetString(letX2, "x")
	b.SetChildren(letX2, two)
	elseBlock := b.Add(ast.KindBlock)
	b.SetChildren(elseBlock, letX2)

	ifStmt := b.Add(ast.KindIfStmt)
	b.SetChildren(ifStmt, cIdent, thenBlock, elseBlock)

	xIdent := b.Add(ast.KindIdentifier)
	b.SetString(xIdent, "x")
	ret := b.Add(ast.KindReturnStmt)
	b.SetChildren(ret, xIdent)

	block := b.Add(ast.KindBlock)
	b.SetChildren(block, ifStmt, ret)

	fn := b.Add(ast.KindFuncDecl)
	b.SetString(fn, "pick")
	b.SetChildren(fn, c, block)
	return fn
}

func TestLowerUnit_IfElsePhiMerge(t *testing.T) {
	b := fixture.NewBuilder()
	fn := buildIfElseFunc(b)
	root := b.Add(ast.KindSourceFile)
	b.SetChildren(root, fn)
	b.SetRoot(root)

	graphs, _, err := lower.LowerUnit(b.Build(), "unit1")
	require.NoError(t, err)

	g := findGraph(t, graphs, "pick")
	require.Equal(t, 1, countOp(g, ir.OpBranch))
	require.Equal(t, 1, countOp(g, ir.OpPhi))
	require.GreaterOrEqual(t, countOp(g, ir.OpLabel), 3)

	for _, n := range g.Nodes() {
		for _, in := range n.Inputs {
			require.Less(t, in, len(g.Nodes()))
		}
	}

	ret := g.Node(g.NodeCount() - 1)
	require.Equal(t, ir.OpReturn, ret.Op)
	phiID := ret.Inputs[0]
	require.Equal(t, ir.OpPhi, g.Node(phiID).Op)
	require.Len(t, g.Node(phiID).Inputs, 2)
}

// buildForLoopFunc builds:
//
//	func sumTo(n) -> i32 {
//	    var total = 0
//	    for i in 0..n {
//	        total = total + i
//	    }
//	    return total
//	}
func buildForLoopFunc(b *fixture.Builder) ast.NodeID {
	n := b.Add(ast.KindParam)
	b.SetString(n, "n")

	zero := b.Add(ast.KindLiteralInt)
	b.SetInt(zero, 0)
	varTotal := b.Add(ast.KindVarStmt)
	b.SetString(varTotal, "total")
	b.SetChildren(varTotal, zero)

	lo := b.Add(ast.KindLiteralInt)
	b.SetInt(lo, 0)
	nIdent := b.Add(ast.KindIdentifier)
	b.SetString(nIdent, "n")
	rangeExpr := b.Add(ast.KindRangeExpr)
	b.SetBool(rangeExpr, false)
	b.SetChildren(rangeExpr, lo, nIdent)

	totalIdent := b.Add(ast.KindIdentifier)
	b.SetString(totalIdent, "total")
	iIdent := b.Add(ast.KindIdentifier)
	b.SetString(iIdent, "i")
	addExpr := b.Add(ast.KindBinaryExpr)
	b.SetString(addExpr, "+")
	b.SetChildren(addExpr, totalIdent, iIdent)

	assign := b.Add(ast.KindBinaryExpr)
	b.SetString(assign, "=")
	totalIdent2 := b.Add(ast.KindIdentifier)
	b.SetString(totalIdent2, "total")
	b.SetChildren(assign, totalIdent2, addExpr)
	assignStmt := b.Add(ast.KindExprStmt)
	b.SetChildren(assignStmt, assign)

	bodyBlock := b.Add(ast.KindBlock)
	b.SetChildren(bodyBlock, assignStmt)

	forStmt := b.Add(ast.KindForStmt)
	b.SetString(forStmt, "i")
	b.SetChildren(forStmt, rangeExpr, bodyBlock)

	totalIdent3 := b.Add(ast.KindIdentifier)
	b.SetString(totalIdent3, "total")
	ret := b.Add(ast.KindReturnStmt)
	b.SetChildren(ret, totalIdent3)

	block := b.Add(ast.KindBlock)
	b.SetChildren(block, varTotal, forStmt, ret)

	fn := b.Add(ast.KindFuncDecl)
	b.SetString(fn, "sumTo")
	b.SetChildren(fn, n, block)
	return fn
}

func TestLowerUnit_ForLoopCarriesInductionAndOuterVar(t *testing.T) {
	b := fixture.NewBuilder()
	fn := buildForLoopFunc(b)
	root := b.Add(ast.KindSourceFile)
	b.SetChildren(root, fn)
	b.SetRoot(root)

	graphs, _, err := lower.LowerUnit(b.Build(), "unit1")
	require.NoError(t, err)

	g := findGraph(t, graphs, "sumTo")
	// one Phi for the induction variable `i`, one for the carried `total`
	require.Equal(t, 2, countOp(g, ir.OpPhi))
	require.Equal(t, 1, countOp(g, ir.OpJump)) // the single back-jump to the header

	for _, n := range g.Nodes() {
		if n.Op != ir.OpPhi {
			continue
		}
		require.Len(t, n.Inputs, 2, "every Phi needs exactly a seed and a back-edge input")
	}
}

// buildClosureFunc builds:
//
//	func makeAdder(base) -> i32 {
//	    let f = func(x) { return base + x }
//	    return f(base)
//	}
func buildClosureFunc(b *fixture.Builder) ast.NodeID {
	base := b.Add(ast.KindParam)
	b.SetString(base, "base")

	xParam := b.Add(ast.KindParam)
	b.SetString(xParam, "x")
	baseIdentInner := b.Add(ast.KindIdentifier)
	b.SetString(baseIdentInner, "base")
	xIdentInner := b.Add(ast.KindIdentifier)
	b.SetString(xIdentInner, "x")
	innerSum := b.Add(ast.KindBinaryExpr)
	b.SetString(innerSum, "+")
	b.SetChildren(innerSum, baseIdentInner, xIdentInner)
	innerRet := b.Add(ast.KindReturnStmt)
	b.SetChildren(innerRet, innerSum)
	innerBlock := b.Add(ast.KindBlock)
	b.SetChildren(innerBlock, innerRet)

	funcLit := b.Add(ast.KindFuncLit)
	b.SetChildren(funcLit, xParam, innerBlock)

	letF := b.Add(ast.KindLetStmt)
	b.SetString(letF, "f")
	b.SetChildren(letF, funcLit)

	fIdent := b.Add(ast.KindIdentifier)
	b.SetString(fIdent, "f")
	baseIdentOuter := b.Add(ast.KindIdentifier)
	b.SetString(baseIdentOuter, "base")
	call := b.Add(ast.KindCallExpr)
	b.SetChildren(call, fIdent, baseIdentOuter)

	ret := b.Add(ast.KindReturnStmt)
	b.SetChildren(ret, call)

	block := b.Add(ast.KindBlock)
	b.SetChildren(block, letF, ret)

	fn := b.Add(ast.KindFuncDecl)
	b.SetString(fn, "makeAdder")
	b.SetChildren(fn, base, block)
	return fn
}

func TestLowerUnit_ClosureCapturesByValue(t *testing.T) {
	b := fixture.NewBuilder()
	fn := buildClosureFunc(b)
	root := b.Add(ast.KindSourceFile)
	b.SetChildren(root, fn)
	b.SetRoot(root)

	graphs, _, err := lower.LowerUnit(b.Build(), "unit1")
	require.NoError(t, err)
	require.Len(t, graphs, 2)

	outer := findGraph(t, graphs, "makeAdder")
	require.Equal(t, 1, countOp(outer, ir.OpClosureCreate))
	require.Equal(t, 1, countOp(outer, ir.OpClosureCall))

	closure := findGraph(t, graphs, "__closure_0")
	require.Len(t, closure.Captures, 1)
	require.Equal(t, "base", closure.Captures[0].Name)
	require.Equal(t, 1, countOp(closure, ir.OpClosureEnvLoad))
	require.Equal(t, "__env", closure.Parameters[0].Name)
}

// buildZeroCaptureClosureFunc builds a func_lit referencing nothing from
// its enclosing scope, which must lower to a bare Fn_Ref rather than a
// Closure_Create.
func buildZeroCaptureClosureFunc(b *fixture.Builder) ast.NodeID {
	xParam := b.Add(ast.KindParam)
	b.SetString(xParam, "x")
	xIdent := b.Add(ast.KindIdentifier)
	b.SetString(xIdent, "x")
	innerRet := b.Add(ast.KindReturnStmt)
	b.SetChildren(innerRet, xIdent)
	innerBlock := b.Add(ast.KindBlock)
	b.SetChildren(innerBlock, innerRet)

	funcLit := b.Add(ast.KindFuncLit)
	b.SetChildren(funcLit, xParam, innerBlock)

	letF := b.Add(ast.KindLetStmt)
	b.SetString(letF, "f")
	b.SetChildren(letF, funcLit)

	fIdent := b.Add(ast.KindIdentifier)
	b.SetString(fIdent, "f")
	seven := b.Add(ast.KindLiteralInt)
	b.SetInt(seven, 7)
	call := b.Add(ast.KindCallExpr)
	b.SetChildren(call, fIdent, seven)

	ret := b.Add(ast.KindReturnStmt)
	b.SetChildren(ret, call)

	block := b.Add(ast.KindBlock)
	b.SetChildren(block, letF, ret)

	fn := b.Add(ast.KindFuncDecl)
	b.SetString(fn, "identityCaller")
	b.SetChildren(fn, block)
	return fn
}

func TestLowerUnit_ZeroCaptureClosureLowersToFnRef(t *testing.T) {
	b := fixture.NewBuilder()
	fn := buildZeroCaptureClosureFunc(b)
	root := b.Add(ast.KindSourceFile)
	b.SetChildren(root, fn)
	b.SetRoot(root)

	graphs, _, err := lower.LowerUnit(b.Build(), "unit1")
	require.NoError(t, err)

	outer := findGraph(t, graphs, "identityCaller")
	require.Equal(t, 1, countOp(outer, ir.OpFnRef))
	require.Equal(t, 0, countOp(outer, ir.OpClosureCreate))
	require.Equal(t, 1, countOp(outer, ir.OpCall))
}

// buildEnumUnit builds:
//
//	enum Color { Red, Green, Blue = 10 }
func buildEnumUnit(b *fixture.Builder) ast.NodeID {
	red := b.Add(ast.KindEnumVariant)
	b.SetString(red, "Red")
	green := b.Add(ast.KindEnumVariant)
	b.SetString(green, "Green")
	blue := b.Add(ast.KindEnumVariant)
	b.SetString(blue, "Blue")
	b.SetExplicitDiscriminant(blue, true)
	b.SetInt(blue, 10)

	enumDecl := b.Add(ast.KindEnumDecl)
	b.SetString(enumDecl, "Color")
	b.SetChildren(enumDecl, red, green, blue)
	return enumDecl
}

func TestLowerUnit_EnumDiscriminants(t *testing.T) {
	b := fixture.NewBuilder()
	enumDecl := buildEnumUnit(b)
	root := b.Add(ast.KindSourceFile)
	b.SetChildren(root, enumDecl)
	b.SetRoot(root)

	_, unit, err := lower.LowerUnit(b.Build(), "unit1")
	require.NoError(t, err)

	require.Equal(t, int64(0), unit.Enums["Color"]["Red"])
	require.Equal(t, int64(1), unit.Enums["Color"]["Green"])
	require.Equal(t, int64(10), unit.Enums["Color"]["Blue"])
}

// buildUnionUnitAndMatch builds:
//
//	union Shape { Circle(r), Square(side) }
//	func area(s) -> i32 {
//	    match s {
//	        Shape.Circle(r) => r,
//	        Shape.Square(side) => side,
//	    }
//	}
func buildUnionUnitAndMatch(b *fixture.Builder) (ast.NodeID, ast.NodeID) {
	rField := b.Add(ast.KindParam)
	b.SetString(rField, "r")
	circle := b.Add(ast.KindUnionVariant)
	b.SetString(circle, "Circle")
	b.SetChildren(circle, rField)

	sideField := b.Add(ast.KindParam)
	b.SetString(sideField, "side")
	square := b.Add(ast.KindUnionVariant)
	b.SetString(square, "Square")
	b.SetChildren(square, sideField)

	unionDecl := b.Add(ast.KindUnionDecl)
	b.SetString(unionDecl, "Shape")
	b.SetChildren(unionDecl, circle, square)

	sParam := b.Add(ast.KindParam)
	b.SetString(sParam, "s")
	sIdent := b.Add(ast.KindIdentifier)
	b.SetString(sIdent, "s")

	rBinder := b.Add(ast.KindIdentifier)
	b.SetString(rBinder, "r")
	rIdent := b.Add(ast.KindIdentifier)
	b.SetString(rIdent, "r")
	armCircle := b.Add(ast.KindBlock) // reused generically as "match_arm"
	b.SetString(armCircle, "Shape.Circle")
	b.SetChildren(armCircle, rBinder, rIdent)

	sideBinder := b.Add(ast.KindIdentifier)
	b.SetString(sideBinder, "side")
	sideIdent := b.Add(ast.KindIdentifier)
	b.SetString(sideIdent, "side")
	armSquare := b.Add(ast.KindBlock)
	b.SetString(armSquare, "Shape.Square")
	b.SetChildren(armSquare, sideBinder, sideIdent)

	matchStmt := b.Add(ast.KindMatchStmt)
	b.SetChildren(matchStmt, sIdent, armCircle, armSquare)

	block := b.Add(ast.KindBlock)
	b.SetChildren(block, matchStmt)

	fn := b.Add(ast.KindFuncDecl)
	b.SetString(fn, "area")
	b.SetChildren(fn, sParam, block)

	return unionDecl, fn
}

func TestLowerUnit_UnionMatchTagCheckAndPayloadExtract(t *testing.T) {
	b := fixture.NewBuilder()
	unionDecl, fn := buildUnionUnitAndMatch(b)
	root := b.Add(ast.KindSourceFile)
	b.SetChildren(root, unionDecl, fn)
	b.SetRoot(root)

	graphs, unit, err := lower.LowerUnit(b.Build(), "unit1")
	require.NoError(t, err)
	require.Contains(t, unit.Unions, "Shape")

	g := findGraph(t, graphs, "area")
	require.Equal(t, 2, countOp(g, ir.OpUnionTagCheck))
	require.Equal(t, 2, countOp(g, ir.OpUnionPayloadExtract))
	require.Equal(t, 2, countOp(g, ir.OpBranch))
}

func TestLowerUnit_UnionConstructArityMismatch(t *testing.T) {
	b := fixture.NewBuilder()
	rField := b.Add(ast.KindParam)
	b.SetString(rField, "r")
	circle := b.Add(ast.KindUnionVariant)
	b.SetString(circle, "Circle")
	b.SetChildren(circle, rField)
	unionDecl := b.Add(ast.KindUnionDecl)
	b.SetString(unionDecl, "Shape")
	b.SetChildren(unionDecl, circle)

	lit := b.Add(ast.KindStructLiteral)
	b.SetString(lit, "Shape.Circle") // zero args supplied, but Circle wants one
	exprStmt := b.Add(ast.KindExprStmt)
	b.SetChildren(exprStmt, lit)
	block := b.Add(ast.KindBlock)
	b.SetChildren(block, exprStmt)
	fn := b.Add(ast.KindFuncDecl)
	b.SetString(fn, "bad")
	b.SetChildren(fn, block)

	root := b.Add(ast.KindSourceFile)
	b.SetChildren(root, unionDecl, fn)
	b.SetRoot(root)

	_, _, err := lower.LowerUnit(b.Build(), "unit1")
	require.ErrorIs(t, err, lower.ErrArityMismatch)
}

// buildTraitAndImpl builds:
//
//	trait Drawable { fn draw(self) }
//	struct Point {}
//	impl Drawable for Point { fn draw(self) { return 1 } }
func buildTraitAndImpl(b *fixture.Builder, withDrawMethod bool) (ast.NodeID, ast.NodeID) {
	drawSig := b.Add(ast.KindFuncDecl) // method signature, no default
	b.SetString(drawSig, "draw")
	b.SetBool(drawSig, false)
	selfSigParam := b.Add(ast.KindParam)
	b.SetString(selfSigParam, "self")
	b.SetChildren(drawSig, selfSigParam)

	traitDecl := b.Add(ast.KindTraitDecl)
	b.SetString(traitDecl, "Drawable")
	b.SetChildren(traitDecl, drawSig)

	var implChildren []ast.NodeID
	if withDrawMethod {
		selfParam := b.Add(ast.KindParam)
		b.SetString(selfParam, "self")
		one := b.Add(ast.KindLiteralInt)
		b.SetInt(one, 1)
		ret := b.Add(ast.KindReturnStmt)
		b.SetChildren(ret, one)
		implBlock := b.Add(ast.KindBlock)
		b.SetChildren(implBlock, ret)
		drawImpl := b.Add(ast.KindFuncDecl)
		b.SetString(drawImpl, "draw")
		b.SetChildren(drawImpl, selfParam, implBlock)
		implChildren = append(implChildren, drawImpl)
	}

	implDecl := b.Add(ast.KindImplDecl)
	b.SetString(implDecl, "Drawable:Point")
	b.SetChildren(implDecl, implChildren...)

	return traitDecl, implDecl
}

func TestLowerUnit_TraitImplComplete(t *testing.T) {
	b := fixture.NewBuilder()
	traitDecl, implDecl := buildTraitAndImpl(b, true)
	root := b.Add(ast.KindSourceFile)
	b.SetChildren(root, traitDecl, implDecl)
	b.SetRoot(root)

	graphs, unit, err := lower.LowerUnit(b.Build(), "unit1")
	require.NoError(t, err)
	require.Contains(t, unit.Vtables, "Point_Drawable")
	require.Equal(t, []string{"Point_Drawable_draw"}, unit.Vtables["Point_Drawable"].Methods)
	findGraph(t, graphs, "Point_Drawable_draw")
}

func TestLowerUnit_TraitImplMissingMethod(t *testing.T) {
	b := fixture.NewBuilder()
	traitDecl, implDecl := buildTraitAndImpl(b, false)
	root := b.Add(ast.KindSourceFile)
	b.SetChildren(root, traitDecl, implDecl)
	b.SetRoot(root)

	_, _, err := lower.LowerUnit(b.Build(), "unit1")
	require.ErrorIs(t, err, lower.ErrMissingTraitImpl)
}

func TestLowerUnit_DuplicateTraitImpl(t *testing.T) {
	b := fixture.NewBuilder()
	traitDecl, implDecl1 := buildTraitAndImpl(b, true)
	_, implDecl2 := buildTraitAndImpl(b, true)
	root := b.Add(ast.KindSourceFile)
	b.SetChildren(root, traitDecl, implDecl1, implDecl2)
	b.SetRoot(root)

	_, _, err := lower.LowerUnit(b.Build(), "unit1")
	require.ErrorIs(t, err, lower.ErrDuplicateTraitImpl)
}

// buildDynDispatchUnit builds a trait/impl pair plus a function taking a
// `dyn Drawable` parameter and calling its method, and a caller that
// constructs a Point and passes it in.
func buildDynDispatchUnit(b *fixture.Builder) []ast.NodeID {
	traitDecl, implDecl := buildTraitAndImpl(b, true)

	dynParam := b.Add(ast.KindParam)
	b.SetString(dynParam, "d")
	typeRef := b.Add(ast.KindTypeRef)
	b.SetString(typeRef, "dyn Drawable")
	b.SetChildren(dynParam, typeRef)

	dIdent := b.Add(ast.KindIdentifier)
	b.SetString(dIdent, "d")
	methodCall := b.Add(ast.KindFieldExpr)
	b.SetString(methodCall, "draw")
	b.SetChildren(methodCall, dIdent)
	call := b.Add(ast.KindCallExpr)
	b.SetChildren(call, methodCall)
	ret := b.Add(ast.KindReturnStmt)
	b.SetChildren(ret, call)
	renderBlock := b.Add(ast.KindBlock)
	b.SetChildren(renderBlock, ret)

	renderFn := b.Add(ast.KindFuncDecl)
	b.SetString(renderFn, "render")
	b.SetChildren(renderFn, dynParam, renderBlock)

	pointLit := b.Add(ast.KindStructLiteral)
	b.SetString(pointLit, "Point")
	letP := b.Add(ast.KindLetStmt)
	b.SetString(letP, "p")
	b.SetChildren(letP, pointLit)

	renderIdent := b.Add(ast.KindIdentifier)
	b.SetString(renderIdent, "render")
	pIdent := b.Add(ast.KindIdentifier)
	b.SetString(pIdent, "p")
	renderCall := b.Add(ast.KindCallExpr)
	b.SetChildren(renderCall, renderIdent, pIdent)
	mainRet := b.Add(ast.KindReturnStmt)
	b.SetChildren(mainRet, renderCall)

	mainBlock := b.Add(ast.KindBlock)
	b.SetChildren(mainBlock, letP, mainRet)
	mainFn := b.Add(ast.KindFuncDecl)
	b.SetString(mainFn, "main")
	b.SetChildren(mainFn, mainBlock)

	return []ast.NodeID{traitDecl, implDecl, renderFn, mainFn}
}

func TestLowerUnit_DynamicDispatchViaVtable(t *testing.T) {
	b := fixture.NewBuilder()
	decls := buildDynDispatchUnit(b)
	root := b.Add(ast.KindSourceFile)
	b.SetChildren(root, decls...)
	b.SetRoot(root)

	graphs, _, err := lower.LowerUnit(b.Build(), "unit1")
	require.NoError(t, err)

	render := findGraph(t, graphs, "render")
	require.Equal(t, 1, countOp(render, ir.OpVtableLookup))
	lookup := render.Nodes()[countOpIndex(render, ir.OpVtableLookup)]
	require.Equal(t, int64(0), lookup.Data.Integer)

	main := findGraph(t, graphs, "main")
	require.Equal(t, 1, countOp(main, ir.OpVtableConstruct))
}

func countOpIndex(g *ir.Graph, op ir.Opcode) int {
	for i, n := range g.Nodes() {
		if n.Op == op {
			return i
		}
	}
	return -1
}

// buildStaticDispatchUnit builds a standalone (non-trait) impl and a
// caller resolving the method statically through its tracked typeName.
func buildStaticDispatchUnit(b *fixture.Builder) []ast.NodeID {
	selfParam := b.Add(ast.KindParam)
	b.SetString(selfParam, "self")
	five := b.Add(ast.KindLiteralInt)
	b.SetInt(five, 5)
	ret := b.Add(ast.KindReturnStmt)
	b.SetChildren(ret, five)
	implBlock := b.Add(ast.KindBlock)
	b.SetChildren(implBlock, ret)
	areaImpl := b.Add(ast.KindFuncDecl)
	b.SetString(areaImpl, "area")
	b.SetChildren(areaImpl, selfParam, implBlock)

	implDecl := b.Add(ast.KindImplDecl)
	b.SetString(implDecl, ":Square") // no trait name before the colon
	b.SetChildren(implDecl, areaImpl)

	lit := b.Add(ast.KindStructLiteral)
	b.SetString(lit, "Square")
	letSq := b.Add(ast.KindLetStmt)
	b.SetString(letSq, "sq")
	b.SetChildren(letSq, lit)

	sqIdent := b.Add(ast.KindIdentifier)
	b.SetString(sqIdent, "sq")
	methodCall := b.Add(ast.KindFieldExpr)
	b.SetString(methodCall, "area")
	b.SetChildren(methodCall, sqIdent)
	call := b.Add(ast.KindCallExpr)
	b.SetChildren(call, methodCall)
	mainRet := b.Add(ast.KindReturnStmt)
	b.SetChildren(mainRet, call)

	block := b.Add(ast.KindBlock)
	b.SetChildren(block, letSq, mainRet)
	fn := b.Add(ast.KindFuncDecl)
	b.SetString(fn, "main")
	b.SetChildren(fn, block)

	return []ast.NodeID{implDecl, fn}
}

func TestLowerUnit_StaticMethodDispatch(t *testing.T) {
	b := fixture.NewBuilder()
	decls := buildStaticDispatchUnit(b)
	root := b.Add(ast.KindSourceFile)
	b.SetChildren(root, decls...)
	b.SetRoot(root)

	graphs, _, err := lower.LowerUnit(b.Build(), "unit1")
	require.NoError(t, err)

	main := findGraph(t, graphs, "main")
	require.Equal(t, 1, countOp(main, ir.OpCall))
	found := false
	for _, n := range main.Nodes() {
		if n.Op == ir.OpCall && n.Data.String == "Square_area" {
			found = true
		}
	}
	require.True(t, found)
}

func TestLowerUnit_UndeclaredIdentifier(t *testing.T) {
	b := fixture.NewBuilder()
	ident := b.Add(ast.KindIdentifier)
	b.SetString(ident, "missing")
	ret := b.Add(ast.KindReturnStmt)
	b.SetChildren(ret, ident)
	block := b.Add(ast.KindBlock)
	b.SetChildren(block, ret)
	fn := b.Add(ast.KindFuncDecl)
	b.SetString(fn, "f")
	b.SetChildren(fn, block)
	root := b.Add(ast.KindSourceFile)
	b.SetChildren(root, fn)
	b.SetRoot(root)

	_, _, err := lower.LowerUnit(b.Build(), "unit1")
	require.ErrorIs(t, err, lower.ErrUndeclaredIdentifier)
}

// buildNurseryFunc builds:
//
//	func run() -> i32 {
//	    nursery { spawn_expr_stmt }
//	    return 0
//	}
func buildNurseryFunc(b *fixture.Builder) ast.NodeID {
	spawnExpr := b.Add(ast.KindSpawnExpr)
	b.SetString(spawnExpr, "task")
	b.SetChildren(spawnExpr)
	spawnStmt := b.Add(ast.KindExprStmt)
	b.SetChildren(spawnStmt, spawnExpr)

	nurseryBody := b.Add(ast.KindBlock)
	b.SetChildren(nurseryBody, spawnStmt)
	nurseryStmt := b.Add(ast.KindNurseryStmt)
	b.SetChildren(nurseryStmt, nurseryBody)

	block := b.Add(ast.KindBlock)
	b.SetChildren(block, nurseryStmt)
	fn := b.Add(ast.KindFuncDecl)
	b.SetString(fn, "run")
	b.SetChildren(fn, block)
	return fn
}

func TestLowerUnit_NurseryAndSpawn(t *testing.T) {
	b := fixture.NewBuilder()
	fn := buildNurseryFunc(b)
	root := b.Add(ast.KindSourceFile)
	b.SetChildren(root, fn)
	b.SetRoot(root)

	graphs, _, err := lower.LowerUnit(b.Build(), "unit1")
	require.NoError(t, err)

	g := findGraph(t, graphs, "run")
	require.Equal(t, 1, countOp(g, ir.OpNurseryBegin))
	require.Equal(t, 1, countOp(g, ir.OpNurseryEnd))
	require.Equal(t, 1, countOp(g, ir.OpSpawn))
}

// buildAwaitFunc builds:
//
//	func run() -> i32 {
//	    return await async task()
//	}
func buildAwaitFunc(b *fixture.Builder) ast.NodeID {
	asyncExpr := b.Add(ast.KindAsyncExpr)
	b.SetString(asyncExpr, "task")
	b.SetChildren(asyncExpr)
	awaitExpr := b.Add(ast.KindAwaitExpr)
	b.SetChildren(awaitExpr, asyncExpr)
	ret := b.Add(ast.KindReturnStmt)
	b.SetChildren(ret, awaitExpr)
	block := b.Add(ast.KindBlock)
	b.SetChildren(block, ret)
	fn := b.Add(ast.KindFuncDecl)
	b.SetString(fn, "run")
	b.SetChildren(fn, block)
	return fn
}

func TestLowerUnit_AsyncAwait(t *testing.T) {
	b := fixture.NewBuilder()
	fn := buildAwaitFunc(b)
	root := b.Add(ast.KindSourceFile)
	b.SetChildren(root, fn)
	b.SetRoot(root)

	graphs, _, err := lower.LowerUnit(b.Build(), "unit1")
	require.NoError(t, err)

	g := findGraph(t, graphs, "run")
	require.Equal(t, 1, countOp(g, ir.OpAsyncCall))
	require.Equal(t, 1, countOp(g, ir.OpAwait))
}

// buildMatmulFunc builds:
//
//	func mm(a, b) -> i32 {
//	    return a @ b
//	}
func buildMatmulFunc(b *fixture.Builder) ast.NodeID {
	a := b.Add(ast.KindParam)
	b.SetString(a, "a")
	bp := b.Add(ast.KindParam)
	b.SetString(bp, "b")

	aIdent := b.Add(ast.KindIdentifier)
	b.SetString(aIdent, "a")
	bIdent := b.Add(ast.KindIdentifier)
	b.SetString(bIdent, "b")
	matmul := b.Add(ast.KindBinaryExpr)
	b.SetString(matmul, "@")
	b.SetChildren(matmul, aIdent, bIdent)
	ret := b.Add(ast.KindReturnStmt)
	b.SetChildren(ret, matmul)
	block := b.Add(ast.KindBlock)
	b.SetChildren(block, ret)

	fn := b.Add(ast.KindFuncDecl)
	b.SetString(fn, "mm")
	b.SetChildren(fn, a, bp, block)
	return fn
}

func TestLowerUnit_MatmulForcesNPUTensorTenancy(t *testing.T) {
	b := fixture.NewBuilder()
	fn := buildMatmulFunc(b)
	root := b.Add(ast.KindSourceFile)
	b.SetChildren(root, fn)
	b.SetRoot(root)

	graphs, _, err := lower.LowerUnit(b.Build(), "unit1")
	require.NoError(t, err)

	g := findGraph(t, graphs, "mm")
	require.Equal(t, 1, countOp(g, ir.OpTensorMatmul))
	for _, n := range g.Nodes() {
		if n.Op == ir.OpTensorMatmul {
			require.Equal(t, ir.NPUTensor, n.Tenancy)
			require.Len(t, n.Inputs, 2)
		}
	}
}
