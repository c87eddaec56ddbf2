// Package ir defines the multi-level, heterogeneous-tenancy hyper-graph
// that is the shared data structure of the Janus compiler core.
//
// A Node is a single-assignment value-or-effect carrying an opcode, an
// ordered list of input node ids (uses), an execution-domain tag
// (Tenancy), an abstraction Level, and optional per-opcode metadata
// (tensor shape/dtype/layout, quantum gate/qubits/parameters, a constant
// or symbol payload). A Graph owns a monotonically id-ordered table of
// Nodes belonging to one function.
//
// Package ir is deliberately free of synchronization primitives: the
// core is single-threaded and non-suspending end to end (lowering,
// transforms, emission), and at any moment exactly one component owns a
// given Graph (see the lowerer, the transform pass manager, and the
// emitter). There is no shared mutable state to protect.
package ir
