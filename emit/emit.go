// SPDX-License-Identifier: MIT
package emit

import (
	"fmt"

	"github.com/rs/zerolog"

	llvmir "github.com/llir/llvm/ir"
	lltypes "github.com/llir/llvm/ir/types"

	"github.com/janus-lang/janus-ir/extern"
	janus "github.com/janus-lang/janus-ir/ir"
)

// EmitOption configures one Emit call, mirroring ir.GraphOption and
// lower.Option's functional-option shape.
type EmitOption func(*emitter)

// WithLogger overrides the package default (a disabled logger).
func WithLogger(logger zerolog.Logger) EmitOption {
	return func(e *emitter) { e.log = logger }
}

// Module is the emitted target program: an in-memory LLVM module plus
// its textual rendering. The emitter never retains e after Emit returns
// (spec §5).
type Module struct {
	llvm *llvmir.Module
}

// String renders the module as textual LLVM-C IR.
func (m *Module) String() string { return m.llvm.String() }

// emitter is the per-Emit-call state threaded through predeclaration and
// per-graph walking. There is no package-level global state.
type emitter struct {
	log      zerolog.Logger
	module   *llvmir.Module
	registry *extern.Registry
	unit     *janus.Unit

	funcs      map[string]*llvmir.Func // mangled graph name -> declared function
	externs    map[string]*llvmir.Func // extern/builtin symbol -> declared function
	vtables    map[string]*llvmir.Global
	strConsts  map[string]*llvmir.Global // dedup of Constant string payloads
	graphByKey map[string]*janus.Graph   // FunctionName -> owning graph, for parameter-type lookups
	envTypes   map[string]lltypes.Type   // closure graph name -> its __env struct type, recorded at the Closure_Create site
	arrCounter int                       // disambiguates successive runtime-ABI constant-array globals
}

// nextArrayName returns a fresh, unique global name for a constant array
// built to pass shape/qubit/parameter data to a runtime-ABI call.
func (e *emitter) nextArrayName(prefix string) string {
	e.arrCounter++
	return fmt.Sprintf("__%s.%d", prefix, e.arrCounter)
}

// Emit walks graphs in order, consulting unit for trait/vtable metadata
// and registry for extern/builtin signatures, and produces a single
// verified LLVM module (spec §4.6).
func Emit(graphs []*janus.Graph, unit *janus.Unit, registry *extern.Registry, opts ...EmitOption) (*Module, error) {
	if unit == nil {
		unit = janus.NewUnit()
	}
	if registry == nil {
		registry = extern.NewRegistry()
	}

	e := &emitter{
		log:        zerolog.Nop(),
		module:     llvmir.NewModule(),
		registry:   registry,
		unit:       unit,
		funcs:      make(map[string]*llvmir.Func),
		externs:    make(map[string]*llvmir.Func),
		vtables:    make(map[string]*llvmir.Global),
		strConsts:  make(map[string]*llvmir.Global),
		graphByKey: make(map[string]*janus.Graph),
		envTypes:   make(map[string]lltypes.Type),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.predeclareFuncs(graphs)
	e.predeclareExterns(graphs)
	e.predeclareVtables()

	for _, g := range graphs {
		if err := e.emitGraph(g); err != nil {
			return nil, err
		}
	}

	if err := verifyModule(e.module); err != nil {
		return nil, fmt.Errorf("%s: %w", err, ErrInvalidModule)
	}

	return &Module{llvm: e.module}, nil
}

// predeclareFuncs declares every lowered graph as an LLVM function with
// its mangled name, return type, and parameter types — a leading `ptr`
// for closures carries the `__env` name, matching g.Parameters (the
// lowerer already prepends it there for capture-carrying graphs).
func (e *emitter) predeclareFuncs(graphs []*janus.Graph) {
	for _, g := range graphs {
		e.graphByKey[g.FunctionName] = g
		params := make([]*llvmir.Param, len(g.Parameters))
		for i, p := range g.Parameters {
			params[i] = llvmir.NewParam(p.Name, llvmType(p.TypeName))
		}
		f := e.module.NewFunc(g.FunctionName, llvmType(g.ReturnType), params...)
		e.funcs[g.FunctionName] = f
		e.log.Debug().Str("func", g.FunctionName).Int("params", len(params)).Msg("declared function")
	}
}

// predeclareExterns scans every Call/Async_Call node across all graphs
// for a symbol not already declared as a local function, and declares it
// against the registry's signature up front (spec §4.3). Tensor/quantum/
// nursery runtime symbols are declared lazily instead, the first time an
// opcode that needs one is actually emitted (declareExtern) — they never
// appear as a Call node's own symbol, only as an emitter-internal
// runtime-ABI target.
func (e *emitter) predeclareExterns(graphs []*janus.Graph) {
	for _, g := range graphs {
		for _, n := range g.Nodes() {
			if n.Op != janus.OpCall && n.Op != janus.OpAsyncCall {
				continue
			}
			e.declareExtern(n.Data.String)
		}
	}
}

// declareExtern declares symbol as an external function against the
// registry's signature, unless it is already a local function or
// already declared. Reports whether a signature was found at all (a
// caller with no registry entry — an unresolved call — reports this
// back as ErrUnresolvedCall rather than silently skipping).
func (e *emitter) declareExtern(symbol string) bool {
	if symbol == "" || e.funcs[symbol] != nil || e.externs[symbol] != nil {
		return e.funcs[symbol] != nil || e.externs[symbol] != nil
	}
	sig, ok := e.registry.Lookup(symbol)
	if !ok {
		return false
	}
	params := make([]*llvmir.Param, len(sig.ParameterTypes))
	for i, t := range sig.ParameterTypes {
		params[i] = llvmir.NewParam("", llvmType(t))
	}
	f := e.module.NewFunc(symbol, llvmType(sig.ReturnType), params...)
	if sig.Variadic {
		f.Sig.Variadic = true
	}
	e.externs[symbol] = f
	e.log.Debug().Str("extern", symbol).Msg("declared extern")
	return true
}

// predeclareVtables emits one private constant global per (Type,Trait)
// pair, a [N x ptr] array of the mangled method functions in the
// trait's signature order (spec §4.4.3/§6, P5).
func (e *emitter) predeclareVtables() {
	for _, spec := range e.unit.Vtables {
		g, err := e.buildVtableGlobal(spec)
		if err != nil {
			// A vtable whose methods were never lowered into functions is a
			// lowerer/emitter contract bug, not a legitimate runtime state;
			// skip rather than crash so a partially-built unit still emits
			// whatever did lower cleanly.
			e.log.Warn().Str("vtable", spec.Key).Err(err).Msg("skipping incomplete vtable")
			continue
		}
		e.vtables[spec.Key] = g
		e.log.Debug().Str("vtable", spec.Key).Int("methods", len(spec.Methods)).Msg("declared vtable")
	}
}
