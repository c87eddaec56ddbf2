// SPDX-License-Identifier: MIT
package emit

import "errors"

// ErrInvalidModule wraps a target-verifier failure (spec §7). The
// verifier's own message is attached via fmt.Errorf's %w/%s composition
// at the call site, never discarded.
var ErrInvalidModule = errors.New("emit: invalid module")

// ErrUnresolvedCall indicates a Call/Async_Call node whose symbol is
// neither a declared graph, a registered extern, nor a builtin — the
// lowerer is supposed to reject this earlier (ArityMismatch/
// UndeclaredIdentifier territory), so reaching it here means a pass
// rewired a Call node into an inconsistent state.
var ErrUnresolvedCall = errors.New("emit: unresolved call target")

// ErrUnknownVtable indicates a Vtable_Construct/Vtable_Lookup node whose
// "Type_Trait" key has no corresponding entry in the unit's vtable specs.
var ErrUnknownVtable = errors.New("emit: unknown vtable")
