// SPDX-License-Identifier: MIT
package ir

import "errors"

// Sentinel errors for structural graph faults (spec §7, "Structural").
// Callers branch with errors.Is; messages are never matched by string.
var (
	// ErrInvalidNodeID indicates a node id outside the graph's allocated range.
	ErrInvalidNodeID = errors.New("ir: invalid node id")

	// ErrInvalidNodeInputs indicates an edge referencing a node outside the
	// owning graph, or violating the strictly-increasing-id rule for a
	// non-Phi consumer.
	ErrInvalidNodeInputs = errors.New("ir: invalid node inputs")

	// ErrMissingMetadata indicates a tensor or quantum opcode missing its
	// required metadata block.
	ErrMissingMetadata = errors.New("ir: missing metadata")
)
