// SPDX-License-Identifier: MIT
package lower

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/janus-lang/janus-ir/extern"
)

// Option configures one LowerUnit call.
type Option func(*session)

// WithLogger overrides the package default (a disabled logger) with the
// caller's zerolog.Logger. Nothing on the lowering hot path depends on
// logging succeeding.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *session) { s.log = logger }
}

// WithRegistry supplies a pre-populated extern.Registry (e.g. carrying
// unit-declared externs parsed elsewhere); the default is a fresh
// registry predeclared with only the builtin catalog.
func WithRegistry(r *extern.Registry) Option {
	return func(s *session) { s.registry = r }
}

// session is the per-LowerUnit-call state: a correlation id (for log
// lines only — never read back into graph contents, so P9/determinism is
// unaffected by it) plus the shared mutable lowering context threaded
// through every expr/stmt helper.
type session struct {
	id       uuid.UUID
	log      zerolog.Logger
	registry *extern.Registry
}

func newSession(unitID string, opts ...Option) *session {
	s := &session{
		id:       uuid.New(),
		log:      zerolog.Nop().With().Str("unit", unitID).Logger(),
		registry: extern.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("session", s.id.String()).Logger()
	return s
}
