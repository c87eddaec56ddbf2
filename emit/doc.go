// Package emit is the target-code emitter (spec §4.6): it consumes the
// lowered function graphs plus the compilation unit's trait/impl/vtable
// side tables and produces a single verifiable LLVM-C IR module in
// textual form, using github.com/llir/llvm's in-memory constructors
// rather than hand-formatted strings.
//
// Emission is a pure read of its input graphs (spec §5: "the emitter
// only reads graphs") and is deterministic given the same graphs (P9):
// nodes are walked in id order, and the only nondeterministic-looking
// step — the two-pass Phi-wiring protocol for loop back-edges — resolves
// to the same incoming-edge order the lowerer recorded.
package emit
