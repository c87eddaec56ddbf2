// SPDX-License-Identifier: MIT
package emit

import (
	"fmt"

	llvmir "github.com/llir/llvm/ir"
)

// verifyModule is the structural pre-verification gate spec §4.6 step 4
// calls "the target's module verifier": every basic block of every
// defined function must end in exactly one terminator instruction
// (Ret/Br/CondBr), and a function with at least one block must have a
// non-empty entry block. llir/llvm's own printer does not itself refuse
// to render an unterminated block, so this check is what actually
// catches the two-pass Phi protocol or a forward-label bug leaving a
// block open — the failure mode spec §4.6/§7 calls InvalidModule.
func verifyModule(m *llvmir.Module) error {
	for _, f := range m.Funcs {
		if len(f.Blocks) == 0 {
			continue // a pure declaration (extern), nothing to verify
		}
		for _, b := range f.Blocks {
			if b.Term == nil {
				return fmt.Errorf("function %q: block %q has no terminator", f.Name(), b.Name())
			}
		}
	}
	return nil
}
