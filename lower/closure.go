// SPDX-License-Identifier: MIT
package lower

import (
	"fmt"
	"sort"

	"github.com/janus-lang/janus-ir/ast"
	"github.com/janus-lang/janus-ir/ir"
)

// analyzeCaptures returns, in sorted order (P9), every identifier
// referenced in funcLitID's body that is neither one of its own
// parameters nor a name it introduces itself (let/var/for/match-binder),
// and that does resolve in outer — i.e. the free variables it must
// capture. This is a syntactic heuristic, not full scope-accurate
// shadowing, consistent with the rest of the lowerer's control-flow
// heuristics.
func (l *lowerer) analyzeCaptures(funcLitID ast.NodeID, outer *scope) []string {
	bound := make(map[string]bool)
	for _, c := range l.snap.Children(funcLitID) {
		if l.snap.Kind(c) == ast.KindParam {
			bound[l.snap.StringValue(c)] = true
		}
	}

	free := make(map[string]bool)
	var walk func(id ast.NodeID)
	walk = func(id ast.NodeID) {
		switch l.snap.Kind(id) {
		case ast.KindIdentifier:
			name := l.snap.StringValue(id)
			if bound[name] {
				return
			}
			if _, ok := outer.lookup(name); ok {
				free[name] = true
			}
		case ast.KindLetStmt, ast.KindVarStmt:
			children := l.snap.Children(id)
			if len(children) > 0 {
				walk(children[0])
			}
			bound[l.snap.StringValue(id)] = true
		case ast.KindForStmt:
			children := l.snap.Children(id)
			walk(children[0])
			bound[l.snap.StringValue(id)] = true
			walk(children[1])
		case ast.KindMatchStmt:
			children := l.snap.Children(id)
			walk(children[0])
			for _, arm := range children[1:] {
				armChildren := l.snap.Children(arm)
				binders, body := armChildren[:len(armChildren)-1], armChildren[len(armChildren)-1]
				for _, b := range binders {
					if n := l.snap.StringValue(b); n != "_" {
						bound[n] = true
					}
				}
				walk(body)
			}
		case ast.KindFuncLit:
			for _, p := range l.snap.Children(id) {
				if l.snap.Kind(p) == ast.KindParam {
					bound[l.snap.StringValue(p)] = true
				}
			}
			for _, c := range l.snap.Children(id) {
				walk(c)
			}
		default:
			for _, c := range l.snap.Children(id) {
				walk(c)
			}
		}
	}

	for _, c := range l.snap.Children(funcLitID) {
		if l.snap.Kind(c) == ast.KindBlock {
			walk(c)
		}
	}

	names := make([]string, 0, len(free))
	for n := range free {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// lowerFuncLit lifts a function literal into its own graph and returns
// the value denoting it at the definition site: a bare Fn_Ref for a
// zero-capture literal (called directly via Call at its use sites), or a
// Closure_Create carrying the captured environment otherwise (spec
// §4.4.2).
func (l *lowerer) lowerFuncLit(g *ir.Graph, scope *scope, funcLitID ast.NodeID) (int, error) {
	freeNames := l.analyzeCaptures(funcLitID, scope)
	name := fmt.Sprintf("__closure_%d", l.closureCounter)
	l.closureCounter++

	if len(freeNames) == 0 {
		if _, err := l.lowerFuncDecl(funcLitID, name); err != nil {
			return -1, err
		}
		id := g.CreateNode(ir.OpFnRef)
		g.SetData(id, ir.Str(name))
		return id, nil
	}

	captures := make([]ir.Capture, len(freeNames))
	envValues := make([]int, len(freeNames))
	for i, n := range freeNames {
		b, _ := scope.lookup(n)
		captures[i] = ir.Capture{Name: n, Index: i}
		envValues[i] = b.nodeID
	}

	childGraph, err := l.lowerClosureFuncLit(funcLitID, name, captures)
	if err != nil {
		return -1, err
	}

	id := g.CreateNodeWithInputs(ir.OpClosureCreate, envValues...)
	g.SetData(id, ir.Str(childGraph.FunctionName))
	return id, nil
}

// lowerClosureFuncLit lowers a captures-carrying func_lit into its own
// graph. The graph's leading parameter is the opaque __env pointer;
// each capture is read back out of it via Closure_Env_Load at function
// entry before the literal's own declared parameters are bound.
func (l *lowerer) lowerClosureFuncLit(funcLitID ast.NodeID, name string, captures []ir.Capture) (*ir.Graph, error) {
	children := l.snap.Children(funcLitID)

	var params []ast.NodeID
	var returnType ast.NodeID = ast.NilNode
	var body ast.NodeID = ast.NilNode
	for _, c := range children {
		switch l.snap.Kind(c) {
		case ast.KindParam:
			params = append(params, c)
		case ast.KindTypeRef:
			returnType = c
		case ast.KindBlock:
			body = c
		}
	}

	rt := "i32"
	if returnType != ast.NilNode {
		rt = l.snap.StringValue(returnType)
	}

	g := ir.NewGraph(name,
		ir.WithReturnType(rt),
		ir.WithCaptures(captures...),
		ir.WithParameters(ir.Param{Name: "__env", TypeName: "ptr"}))

	root := newScope(nil)
	envArg := g.CreateNodeWithInputs(ir.OpArgument)
	g.SetData(envArg, ir.Int(0))

	for _, c := range captures {
		loadID := g.CreateNodeWithInputs(ir.OpClosureEnvLoad, envArg)
		g.SetData(loadID, ir.Int(int64(c.Index)))
		root.define(c.Name, binding{nodeID: loadID, kind: bindLet})
	}

	for i, p := range params {
		paramName := l.snap.StringValue(p)
		typeRefs := l.snap.Children(p)
		typeName := "i32"
		if len(typeRefs) > 0 {
			typeName = l.snap.StringValue(typeRefs[0])
		}
		g.Parameters = append(g.Parameters, ir.Param{Name: paramName, TypeName: typeName})

		argID := g.CreateNodeWithInputs(ir.OpArgument)
		g.SetData(argID, ir.Int(int64(1+i)))
		root.define(paramName, binding{nodeID: argID, kind: bindParam})
	}

	if body != ast.NilNode {
		if err := l.lowerBlock(g, root, body); err != nil {
			return nil, err
		}
	}
	if g.NodeCount() == 0 || g.Node(g.NodeCount()-1).Op != ir.OpReturn {
		g.CreateReturn(g.CreateConstant(ir.Int(0)))
	}

	l.graphs = append(l.graphs, g)
	return g, nil
}
