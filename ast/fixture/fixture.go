// Package fixture provides an in-memory ast.Snapshot implementation used
// only by tests in this module, the way core/test_helpers_test.go builds
// small fixture graphs in-process rather than depending on a real parser
// (which is an out-of-scope external collaborator per spec §1).
package fixture

import "github.com/janus-lang/janus-ir/ast"

type node struct {
	kind                     ast.Kind
	children                 []ast.NodeID
	str                      string
	intVal                   int64
	floatVal                 float64
	boolVal                  bool
	hasExplicitDiscriminant bool
}

// Builder assembles an in-memory Snapshot node by node. Node ids are
// assigned in creation order, mirroring ir.Graph's id discipline.
type Builder struct {
	nodes []node
	root  ast.NodeID
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder { return &Builder{root: ast.NilNode} }

// Add allocates a new node of the given kind and returns its id.
func (b *Builder) Add(kind ast.Kind) ast.NodeID {
	b.nodes = append(b.nodes, node{kind: kind})
	return ast.NodeID(len(b.nodes) - 1)
}

// SetRoot marks id as the snapshot's root (normally a source_file node).
func (b *Builder) SetRoot(id ast.NodeID) { b.root = id }

// SetChildren replaces id's ordered child list.
func (b *Builder) SetChildren(id ast.NodeID, children ...ast.NodeID) {
	b.nodes[id].children = append([]ast.NodeID(nil), children...)
}

// SetString sets id's string payload.
func (b *Builder) SetString(id ast.NodeID, v string) { b.nodes[id].str = v }

// SetInt sets id's integer payload.
func (b *Builder) SetInt(id ast.NodeID, v int64) { b.nodes[id].intVal = v }

// SetFloat sets id's float payload.
func (b *Builder) SetFloat(id ast.NodeID, v float64) { b.nodes[id].floatVal = v }

// SetBool sets id's boolean payload.
func (b *Builder) SetBool(id ast.NodeID, v bool) { b.nodes[id].boolVal = v }

// SetExplicitDiscriminant marks an enum_variant as carrying an explicit
// `=N` override (the value itself is set via SetInt).
func (b *Builder) SetExplicitDiscriminant(id ast.NodeID, v bool) {
	b.nodes[id].hasExplicitDiscriminant = v
}

// Build returns the finished, read-only Snapshot.
func (b *Builder) Build() ast.Snapshot {
	return &snapshot{nodes: append([]node(nil), b.nodes...), root: b.root}
}

type snapshot struct {
	nodes []node
	root  ast.NodeID
}

func (s *snapshot) Root() ast.NodeID                 { return s.root }
func (s *snapshot) Kind(id ast.NodeID) ast.Kind       { return s.nodes[id].kind }
func (s *snapshot) Children(id ast.NodeID) []ast.NodeID { return s.nodes[id].children }
func (s *snapshot) StringValue(id ast.NodeID) string  { return s.nodes[id].str }
func (s *snapshot) IntValue(id ast.NodeID) int64      { return s.nodes[id].intVal }
func (s *snapshot) FloatValue(id ast.NodeID) float64  { return s.nodes[id].floatVal }
func (s *snapshot) BoolValue(id ast.NodeID) bool      { return s.nodes[id].boolVal }
func (s *snapshot) HasExplicitDiscriminant(id ast.NodeID) bool {
	return s.nodes[id].hasExplicitDiscriminant
}
