// SPDX-License-Identifier: MIT
package lower

import (
	"strings"

	"github.com/janus-lang/janus-ir/ast"
	"github.com/janus-lang/janus-ir/extern"
	"github.com/janus-lang/janus-ir/ir"
)

// lowerer is the mutable state threaded through one LowerUnit call. There
// is no package-level global state (spec §9): every table here is local
// to this value and discarded once LowerUnit returns.
type lowerer struct {
	snap   ast.Snapshot
	sess   *session
	unit   *ir.Unit
	graphs []*ir.Graph

	closureCounter int
	funcNames      map[string]bool              // top-level func_decl names, for call resolution
	funcParamTypes map[string][]string           // func name -> declared parameter type names, for dyn-wrapping call args
	traitDefaults  map[string]map[string]string // trait -> method -> default-body graph name
}

// LowerUnit translates snapshot into the unit's function graphs plus its
// trait/impl/vtable/enum/union side tables (spec §4.4). It fails fast:
// the first semantic error aborts and is returned, with whatever graphs
// were produced so far discarded by the caller.
func LowerUnit(snap ast.Snapshot, unitID string, opts ...Option) ([]*ir.Graph, *ir.Unit, error) {
	l := &lowerer{
		snap:           snap,
		sess:           newSession(unitID, opts...),
		unit:           ir.NewUnit(),
		funcNames:      make(map[string]bool),
		funcParamTypes: make(map[string][]string),
	}

	root := snap.Root()
	decls := snap.Children(root)

	// Pass 1: declarations that other declarations refer to by name
	// (enums, unions, traits) must be fully known before lowering any
	// body that might reference them.
	for _, d := range decls {
		switch snap.Kind(d) {
		case ast.KindEnumDecl:
			l.lowerEnumDecl(d)
		case ast.KindUnionDecl:
			l.lowerUnionDecl(d)
		case ast.KindTraitDecl:
			l.lowerTraitDecl(d)
		}
	}

	// Pass 1b: collect top-level function names and declared parameter
	// types so call sites can distinguish "known local function" from
	// "undeclared identifier", and can tell whether an argument must be
	// wrapped as a trait object (param type "dyn Trait") before any body
	// is lowered.
	for _, d := range decls {
		if snap.Kind(d) != ast.KindFuncDecl {
			continue
		}
		name := snap.StringValue(d)
		l.funcNames[name] = true
		var types []string
		for _, c := range snap.Children(d) {
			if snap.Kind(c) != ast.KindParam {
				continue
			}
			typeName := "i32"
			if refs := snap.Children(c); len(refs) > 0 {
				typeName = snap.StringValue(refs[0])
			}
			types = append(types, typeName)
		}
		l.funcParamTypes[name] = types
	}

	// Pass 2: impls, which validate completeness against the trait table
	// and emit one graph per method.
	for _, d := range decls {
		if snap.Kind(d) == ast.KindImplDecl {
			if err := l.lowerImplDecl(d); err != nil {
				return nil, nil, err
			}
		}
	}

	// Pass 3: top-level functions.
	for _, d := range decls {
		if snap.Kind(d) == ast.KindFuncDecl {
			if _, err := l.lowerFuncDecl(d, snap.StringValue(d)); err != nil {
				return nil, nil, err
			}
		}
	}

	l.sess.log.Debug().Int("graphs", len(l.graphs)).Msg("lowering complete")
	return l.graphs, l.unit, nil
}

// lowerFuncDecl lowers one func_decl (or a zero-capture func_lit, via
// closure.go) into a new Graph named name.
func (l *lowerer) lowerFuncDecl(declID ast.NodeID, name string) (*ir.Graph, error) {
	children := l.snap.Children(declID)

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

	g := ir.NewGraph(name, ir.WithReturnType(rt))

	root := newScope(nil)
	for i, p := range params {
		paramName := l.snap.StringValue(p)
		typeRefs := l.snap.Children(p)
		typeName := "i32"
		if len(typeRefs) > 0 {
			typeName = l.snap.StringValue(typeRefs[0])
		}
		g.Parameters = append(g.Parameters, ir.Param{Name: paramName, TypeName: typeName})

		argID := g.CreateNodeWithInputs(ir.OpArgument)
		g.SetData(argID, ir.Int(int64(i)))
		b := binding{nodeID: argID, kind: bindParam}
		if trait, ok := strings.CutPrefix(typeName, "dyn "); ok {
			b.traitName = trait
		}
		root.define(paramName, b)
	}

	if body != ast.NilNode {
		if err := l.lowerBlock(g, root, body); err != nil {
			return nil, err
		}
	}

	// A function with no explicit return implicitly returns integer 0.
	if g.NodeCount() == 0 || g.Node(g.NodeCount()-1).Op != ir.OpReturn {
		zero := g.CreateConstant(ir.Int(0))
		g.CreateReturn(zero)
	}

	l.graphs = append(l.graphs, g)
	return g, nil
}

// isCallable reports whether name resolves to something the lowerer
// accepts as a Call target when no local scope binding shadows it: a
// top-level function, a registered extern, or a builtin.
func (l *lowerer) isCallable(name string) bool {
	if l.funcNames[name] {
		return true
	}
	if _, ok := l.sess.registry.Lookup(name); ok {
		return true
	}
	return extern.IsBuiltin(name)
}
