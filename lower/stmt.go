// SPDX-License-Identifier: MIT
package lower

import (
	"sort"
	"strings"

	"github.com/janus-lang/janus-ir/ast"
	"github.com/janus-lang/janus-ir/ir"
)

// lowerBlock lowers every statement of blockID in order into g, using
// scope as the enclosing lexical scope.
func (l *lowerer) lowerBlock(g *ir.Graph, scope *scope, blockID ast.NodeID) error {
	for _, stmt := range l.snap.Children(blockID) {
		if err := l.lowerStmt(g, scope, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (l *lowerer) lowerStmt(g *ir.Graph, scope *scope, stmtID ast.NodeID) error {
	switch l.snap.Kind(stmtID) {
	case ast.KindExprStmt:
		return l.lowerExprStmt(g, scope, stmtID)
	case ast.KindLetStmt:
		return l.lowerLetStmt(g, scope, stmtID)
	case ast.KindVarStmt:
		return l.lowerVarStmt(g, scope, stmtID)
	case ast.KindReturnStmt:
		return l.lowerReturnStmt(g, scope, stmtID)
	case ast.KindIfStmt:
		return l.lowerIfStmt(g, scope, stmtID)
	case ast.KindWhileStmt:
		return l.lowerWhileStmt(g, scope, stmtID)
	case ast.KindForStmt:
		return l.lowerForStmt(g, scope, stmtID)
	case ast.KindMatchStmt:
		return l.lowerMatchStmt(g, scope, stmtID)
	case ast.KindNurseryStmt:
		return l.lowerNurseryStmt(g, scope, stmtID)
	default:
		_, err := l.lowerExpr(g, scope, stmtID)
		return err
	}
}

func (l *lowerer) lowerExprStmt(g *ir.Graph, scope *scope, stmtID ast.NodeID) error {
	children := l.snap.Children(stmtID)
	if len(children) == 0 {
		return nil
	}
	expr := children[0]
	if l.snap.Kind(expr) == ast.KindBinaryExpr && l.snap.StringValue(expr) == "=" {
		return l.lowerAssignment(g, scope, expr)
	}
	_, err := l.lowerExpr(g, scope, expr)
	return err
}

// lowerAssignment lowers "lhs = rhs": a Store through the lhs's Alloca if
// it names a `var`, an in-place scope rebind for a `let` (this is how
// loop-carried variables feed their header Phi's back-edge), or a
// Field_Store / Index_Store for a compound lvalue.
func (l *lowerer) lowerAssignment(g *ir.Graph, scope *scope, exprID ast.NodeID) error {
	children := l.snap.Children(exprID)
	lhs, rhs := children[0], children[1]

	rhsVal, err := l.lowerExpr(g, scope, rhs)
	if err != nil {
		return err
	}

	switch l.snap.Kind(lhs) {
	case ast.KindIdentifier:
		name := l.snap.StringValue(lhs)
		if b, ok := scope.lookup(name); ok && b.kind == bindVar {
			g.CreateNodeWithInputs(ir.OpStore, b.nodeID, rhsVal)
			return nil
		}
		scope.assign(name, rhsVal)
		return nil

	case ast.KindFieldExpr:
		objVal, err := l.lowerExpr(g, scope, l.snap.Children(lhs)[0])
		if err != nil {
			return err
		}
		id := g.CreateNodeWithInputs(ir.OpFieldStore, objVal, rhsVal)
		g.SetData(id, ir.Str(l.snap.StringValue(lhs)))
		return nil

	case ast.KindIndexExpr:
		idxChildren := l.snap.Children(lhs)
		objVal, err := l.lowerExpr(g, scope, idxChildren[0])
		if err != nil {
			return err
		}
		idxVal, err := l.lowerExpr(g, scope, idxChildren[1])
		if err != nil {
			return err
		}
		g.CreateNodeWithInputs(ir.OpIndexStore, objVal, idxVal, rhsVal)
		return nil
	}

	return wrapf(ErrUndeclaredIdentifier, "invalid assignment target kind %s", l.snap.Kind(lhs))
}

func (l *lowerer) lowerLetStmt(g *ir.Graph, scope *scope, stmtID ast.NodeID) error {
	name := l.snap.StringValue(stmtID)
	init := l.snap.Children(stmtID)[0]
	val, err := l.lowerExpr(g, scope, init)
	if err != nil {
		return err
	}
	b := binding{nodeID: val, kind: bindLet}
	if l.snap.Kind(init) == ast.KindStructLiteral {
		b.typeName = l.snap.StringValue(init)
	}
	scope.define(name, b)
	return nil
}

func (l *lowerer) lowerVarStmt(g *ir.Graph, scope *scope, stmtID ast.NodeID) error {
	name := l.snap.StringValue(stmtID)
	init := l.snap.Children(stmtID)[0]
	val, err := l.lowerExpr(g, scope, init)
	if err != nil {
		return err
	}
	allocaID := g.CreateNode(ir.OpAlloca)
	g.CreateNodeWithInputs(ir.OpStore, allocaID, val)
	b := binding{nodeID: allocaID, kind: bindVar}
	if l.snap.Kind(init) == ast.KindStructLiteral {
		b.typeName = l.snap.StringValue(init)
	}
	scope.define(name, b)
	return nil
}

func (l *lowerer) lowerReturnStmt(g *ir.Graph, scope *scope, stmtID ast.NodeID) error {
	children := l.snap.Children(stmtID)
	if len(children) == 0 {
		g.CreateReturn(g.CreateConstant(ir.Int(0)))
		return nil
	}
	val, err := l.lowerExpr(g, scope, children[0])
	if err != nil {
		return err
	}
	g.CreateReturn(val)
	return nil
}

// lowerIfStmt lowers if/else using the forward-labeled Branch/Jump
// pattern: Branch is created first (cond only), then each arm's Label is
// allocated at the point its block begins and patched onto Branch via
// AddInput — a forward control reference structurally identical to a
// loop Phi's back-edge (neither can create a cycle, since Label carries
// no Inputs of its own). If both arms locally bind the same name, a Phi
// merges the two definitions and becomes that name's binding afterward.
func (l *lowerer) lowerIfStmt(g *ir.Graph, scope *scope, stmtID ast.NodeID) error {
	children := l.snap.Children(stmtID)
	condVal, err := l.lowerExpr(g, scope, children[0])
	if err != nil {
		return err
	}

	branchID := g.CreateNodeWithInputs(ir.OpBranch, condVal)

	thenLabel := g.CreateNode(ir.OpLabel)
	g.AddInput(branchID, thenLabel)
	thenScope := newScope(scope)
	if err := l.lowerBlock(g, thenScope, children[1]); err != nil {
		return err
	}
	thenJump := g.CreateNodeWithInputs(ir.OpJump)

	elseLabel := g.CreateNode(ir.OpLabel)
	g.AddInput(branchID, elseLabel)
	elseScope := newScope(scope)
	var elseJump = -1
	if len(children) > 2 {
		if err := l.lowerBlock(g, elseScope, children[2]); err != nil {
			return err
		}
		elseJump = g.CreateNodeWithInputs(ir.OpJump)
	}

	joinLabel := g.CreateNode(ir.OpLabel)
	g.AddInput(thenJump, joinLabel)
	if elseJump >= 0 {
		g.AddInput(elseJump, joinLabel)
	}

	merged := make([]string, 0, len(thenScope.names))
	for name := range thenScope.names {
		if _, ok := elseScope.names[name]; ok {
			merged = append(merged, name)
		}
	}
	sort.Strings(merged)
	for _, name := range merged {
		phi := g.CreateNodeWithInputs(ir.OpPhi, thenScope.names[name].nodeID, elseScope.names[name].nodeID)
		scope.assign(name, phi)
	}

	return nil
}

// lowerWhileStmt lowers a condition-first loop with a header Phi per
// outer variable reassigned in the body (spec §9's loop-carried-value
// protocol, generalized beyond the explicit for-loop induction variable).
func (l *lowerer) lowerWhileStmt(g *ir.Graph, scope *scope, stmtID ast.NodeID) error {
	children := l.snap.Children(stmtID)
	condExpr, bodyBlock := children[0], children[1]

	headerLabel := g.CreateNode(ir.OpLabel)
	loopScope, carry := newLoopCarry(g, l.snap, scope, bodyBlock, "", 0)

	condVal, err := l.lowerExpr(g, loopScope, condExpr)
	if err != nil {
		return err
	}
	branchID := g.CreateNodeWithInputs(ir.OpBranch, condVal)

	bodyLabel := g.CreateNode(ir.OpLabel)
	g.AddInput(branchID, bodyLabel)
	bodyScope := newScope(loopScope)
	if err := l.lowerBlock(g, bodyScope, bodyBlock); err != nil {
		return err
	}
	carry.closeBackEdges(g, loopScope)
	g.CreateNodeWithInputs(ir.OpJump, headerLabel)

	exitLabel := g.CreateNode(ir.OpLabel)
	g.AddInput(branchID, exitLabel)

	carry.exportToOuter(scope, "")
	return nil
}

// lowerForStmt lowers `for i in lo..hi do ... end` as a counted loop whose
// induction variable is itself the header Phi (spec §9's worked example).
func (l *lowerer) lowerForStmt(g *ir.Graph, scope *scope, stmtID ast.NodeID) error {
	name := l.snap.StringValue(stmtID)
	children := l.snap.Children(stmtID)
	rangeExpr, bodyBlock := children[0], children[1]

	rangeChildren := l.snap.Children(rangeExpr)
	lo, err := l.lowerExpr(g, scope, rangeChildren[0])
	if err != nil {
		return err
	}
	hi, err := l.lowerExpr(g, scope, rangeChildren[1])
	if err != nil {
		return err
	}
	inclusive := l.snap.BoolValue(rangeExpr)

	headerLabel := g.CreateNode(ir.OpLabel)
	loopScope, carry := newLoopCarry(g, l.snap, scope, bodyBlock, name, lo)
	inductionPhi := carry.phis[name]

	cmpOp := ir.OpLess
	if inclusive {
		cmpOp = ir.OpLessEqual
	}
	cmpVal := g.CreateNodeWithInputs(cmpOp, inductionPhi, hi)
	branchID := g.CreateNodeWithInputs(ir.OpBranch, cmpVal)

	bodyLabel := g.CreateNode(ir.OpLabel)
	g.AddInput(branchID, bodyLabel)
	bodyScope := newScope(loopScope)
	if err := l.lowerBlock(g, bodyScope, bodyBlock); err != nil {
		return err
	}

	one := g.CreateConstant(ir.Int(1))
	next := g.CreateNodeWithInputs(ir.OpAdd, inductionPhi, one)
	loopScope.assign(name, next)
	carry.closeBackEdges(g, loopScope)
	g.CreateNodeWithInputs(ir.OpJump, headerLabel)

	exitLabel := g.CreateNode(ir.OpLabel)
	g.AddInput(branchID, exitLabel)

	carry.exportToOuter(scope, name)
	return nil
}

// lowerMatchStmt lowers a sequence of Union_Tag_Check/Branch pairs, one
// per arm, chained so a failed check falls through to the next arm's
// check; matched payload fields are bound via Union_Payload_Extract
// before the arm body is lowered as a (value-discarding) statement.
func (l *lowerer) lowerMatchStmt(g *ir.Graph, scope *scope, stmtID ast.NodeID) error {
	children := l.snap.Children(stmtID)
	scrutineeVal, err := l.lowerExpr(g, scope, children[0])
	if err != nil {
		return err
	}

	var exitJumps []int
	for _, arm := range children[1:] {
		unionName, variantName, _ := strings.Cut(l.snap.StringValue(arm), ".")
		variant, _ := findUnionVariant(l.unit.Unions[unionName], variantName)

		tagID := g.CreateNodeWithInputs(ir.OpUnionTagCheck, scrutineeVal)
		g.SetData(tagID, ir.Int(int64(variant.Index)))

		branchID := g.CreateNodeWithInputs(ir.OpBranch, tagID)
		armLabel := g.CreateNode(ir.OpLabel)
		g.AddInput(branchID, armLabel)

		armChildren := l.snap.Children(arm)
		binders, bodyExpr := armChildren[:len(armChildren)-1], armChildren[len(armChildren)-1]

		armScope := newScope(scope)
		for i, b := range binders {
			bName := l.snap.StringValue(b)
			if bName == "_" {
				continue
			}
			extractID := g.CreateNodeWithInputs(ir.OpUnionPayloadExtract, scrutineeVal)
			g.SetData(extractID, ir.Int(int64(i)))
			armScope.define(bName, binding{nodeID: extractID, kind: bindLet})
		}
		if _, err := l.lowerExpr(g, armScope, bodyExpr); err != nil {
			return err
		}

		exitJumps = append(exitJumps, g.CreateNodeWithInputs(ir.OpJump))

		nextLabel := g.CreateNode(ir.OpLabel)
		g.AddInput(branchID, nextLabel)
	}

	matchEnd := g.CreateNode(ir.OpLabel)
	for _, j := range exitJumps {
		g.AddInput(j, matchEnd)
	}
	return nil
}

func (l *lowerer) lowerNurseryStmt(g *ir.Graph, scope *scope, stmtID ast.NodeID) error {
	beginID := g.CreateNode(ir.OpNurseryBegin)
	if err := l.lowerBlock(g, newScope(scope), l.snap.Children(stmtID)[0]); err != nil {
		return err
	}
	g.CreateNodeWithInputs(ir.OpNurseryEnd, beginID)
	return nil
}
