// SPDX-License-Identifier: MIT
package lower

import (
	"errors"
	"fmt"
)

// Sentinel errors for §4.4's "Failure modes". Wrapped with %w and a
// method/name context the way builder/errors.go does for the teacher.
var (
	ErrMissingTraitImpl    = errors.New("lower: trait impl missing required method")
	ErrDuplicateTraitImpl  = errors.New("lower: duplicate (trait, type) impl")
	ErrUndeclaredIdentifier = errors.New("lower: undeclared identifier")
	ErrArityMismatch       = errors.New("lower: arity mismatch")
)

func wrapf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), sentinel)
}
