// SPDX-License-Identifier: MIT
package ir

// GraphOption configures a Graph at construction time, mirroring the
// teacher's functional-option pattern (core.GraphOption).
type GraphOption func(g *Graph)

// WithReturnType overrides the default "i32" return type.
func WithReturnType(t string) GraphOption {
	return func(g *Graph) { g.ReturnType = t }
}

// WithParameters sets the ordered parameter list.
func WithParameters(params ...Param) GraphOption {
	return func(g *Graph) { g.Parameters = append(g.Parameters, params...) }
}

// WithCaptures marks g as a lifted closure graph with the given ordered
// capture list; CreateNode will not synthesize a leading __env parameter
// automatically — callers that want one append it via WithParameters.
func WithCaptures(captures ...Capture) GraphOption {
	return func(g *Graph) { g.Captures = append(g.Captures, captures...) }
}

// WithDefaultTenancy sets the tenancy assigned to nodes created without an
// explicit override (see Graph.CreateNodeTenancy).
func WithDefaultTenancy(t Tenancy) GraphOption {
	return func(g *Graph) { g.defaultTenancy = t }
}

// Graph is the owning container for a set of Nodes belonging to one
// function. It is exclusively owned by whichever component currently
// holds it (lowerer -> caller -> transform passes -> emitter); there is
// no internal synchronization (see package doc).
type Graph struct {
	FunctionName string
	Parameters   []Param
	ReturnType   string
	Captures     []Capture

	nodes          []Node
	defaultTenancy Tenancy
}

// NewGraph creates an empty, named Graph with ReturnType defaulting to
// "i32" per spec §3.
func NewGraph(name string, opts ...GraphOption) *Graph {
	g := &Graph{
		FunctionName: name,
		ReturnType:   "i32",
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewGraphUnnamed creates an empty Graph whose FunctionName is assigned
// later by the caller (e.g. once a mangled name is known).
func NewGraphUnnamed(opts ...GraphOption) *Graph {
	return NewGraph("", opts...)
}

// NodeCount returns the number of nodes currently owned by g.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// Node returns the node with the given id. It panics on an out-of-range
// id; validated callers should check id against NodeCount first, and
// untrusted callers should use Lookup.
func (g *Graph) Node(id int) *Node { return &g.nodes[id] }

// Lookup returns the node with the given id, or false if id is out of
// range (ErrInvalidNodeID territory without allocating an error).
func (g *Graph) Lookup(id int) (*Node, bool) {
	if id < 0 || id >= len(g.nodes) {
		return nil, false
	}
	return &g.nodes[id], true
}

// Nodes returns the full node table in id order. The returned slice
// aliases the graph's storage and must not be resized by the caller;
// individual Node fields may be mutated in place by transform passes.
func (g *Graph) Nodes() []Node { return g.nodes }

// createNode allocates a new node with the given opcode, the graph's
// current default tenancy, level High, and no inputs/data, and returns
// its id. Node ids are strictly monotonic: id == creation order.
func (g *Graph) createNode(op Opcode) *Node {
	n := Node{
		ID:      len(g.nodes),
		Op:      op,
		Level:   High,
		Tenancy: g.defaultTenancy,
	}
	g.nodes = append(g.nodes, n)
	return &g.nodes[len(g.nodes)-1]
}

// CreateNode allocates a bare node of the given opcode and returns its id.
func (g *Graph) CreateNode(op Opcode) int {
	n := g.createNode(op)
	return n.ID
}

// CreateNodeTenancy allocates a node of the given opcode pinned to an
// explicit tenancy, overriding the graph's default (used by the lowerer
// for e.g. the `@` matmul operator, which forces NPU_Tensor regardless of
// the surrounding default).
func (g *Graph) CreateNodeTenancy(op Opcode, tenancy Tenancy) int {
	n := g.createNode(op)
	n.Tenancy = tenancy
	return n.ID
}

// CreateNodeWithInputs allocates a node of the given opcode with the
// supplied ordered input ids.
func (g *Graph) CreateNodeWithInputs(op Opcode, inputs ...int) int {
	n := g.createNode(op)
	n.Inputs = append(n.Inputs, inputs...)
	return n.ID
}

// CreateConstant allocates a Constant node carrying the given payload.
func (g *Graph) CreateConstant(value Data) int {
	n := g.createNode(OpConstant)
	n.Data = value
	return n.ID
}

// CreateCall allocates a Call node targeting symbol, with args as its
// ordered inputs.
func (g *Graph) CreateCall(symbol string, args ...int) int {
	n := g.createNode(OpCall)
	n.Data = Str(symbol)
	n.Inputs = append(n.Inputs, args...)
	return n.ID
}

// CreateReturn allocates a Return node whose single input is value.
func (g *Graph) CreateReturn(value int) int {
	n := g.createNode(OpReturn)
	n.Inputs = append(n.Inputs, value)
	return n.ID
}

// SetData overwrites the Data payload of an existing node (used once a
// discriminant, slot index, or symbol name is known after creation).
func (g *Graph) SetData(id int, value Data) { g.nodes[id].Data = value }

// SetTensorMetadata attaches tensor metadata to an existing node.
func (g *Graph) SetTensorMetadata(id int, meta TensorMetadata) { g.nodes[id].Tensor = &meta }

// SetQuantumMetadata attaches quantum metadata to an existing node.
func (g *Graph) SetQuantumMetadata(id int, meta QuantumMetadata) { g.nodes[id].Quantum = &meta }

// AddInput appends an edge to an existing node (used for back-edge
// wiring of loop-header Phi nodes, per the two-pass Phi protocol in
// spec §9).
func (g *Graph) AddInput(id int, input int) { g.nodes[id].Inputs = append(g.nodes[id].Inputs, input) }

// SetLevel overrides the Level of an existing node (used by the SSA
// converter and platform-lowering transform passes).
func (g *Graph) SetLevel(id int, level Level) { g.nodes[id].Level = level }
