// SPDX-License-Identifier: MIT
package extern_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/janus-lang/janus-ir/extern"
)

func TestRegistry_BuiltinsPredeclared(t *testing.T) {
	r := extern.NewRegistry()
	sig, ok := r.Lookup("janus_print")
	require.True(t, ok)
	require.Equal(t, "void", sig.ReturnType)
	require.True(t, extern.IsBuiltin("janus_print"))
	require.False(t, extern.IsBuiltin("my_extern"))
}

func TestRegistry_WithoutBuiltins(t *testing.T) {
	r := extern.NewRegistry(extern.WithoutBuiltins())
	_, ok := r.Lookup("janus_print")
	require.False(t, ok)
}

func TestRegistry_RegisterExtern_ConflictingSignature(t *testing.T) {
	r := extern.NewRegistry()
	require.NoError(t, r.RegisterExtern("pow", extern.Signature{
		ParameterTypes: []string{"double", "double"},
		ReturnType:     "double",
	}))
	// Identical re-registration is a no-op.
	require.NoError(t, r.RegisterExtern("pow", extern.Signature{
		ParameterTypes: []string{"double", "double"},
		ReturnType:     "double",
	}))
	err := r.RegisterExtern("pow", extern.Signature{
		ParameterTypes: []string{"double"},
		ReturnType:     "double",
	})
	require.True(t, errors.Is(err, extern.ErrAlreadyRegistered))
}
