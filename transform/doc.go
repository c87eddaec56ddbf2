// SPDX-License-Identifier: MIT

// Package transform implements the graph-rewriting passes of §4.5: quantum
// gate cancellation, matmul+relu fusion, SSA-level normalization, and
// per-tenancy platform-lowering stubs. Every pass is a named Pass whose
// Apply func(*ir.Graph) (changed bool, err error) reports whether it
// rewrote the graph, and runs through Run, the pass-manager
// entry point mirroring builder.BuildGraph's single-orchestrator shape: one
// function resolves order and wraps the first failing pass's error, while
// each pass itself stays a small, independently testable unit.
//
// Passes mutate their Graph in place (spec §5: passes extend node tables,
// they never free nodes) and never read or mutate any other graph; there is
// no cross-graph state and no global mutable state anywhere in the package.
package transform
