// Package validate implements the structural and semantic checker for
// ir.Graph values (spec §4.2). Validate is a pure analysis: it never
// mutates its input and never panics on malformed graphs — it reports a
// Result carrying an ordered diagnostic list instead. Diagnostics
// preserve registration order for deterministic output (P9); promoting a
// Warning to an Error, or vice versa, is left entirely to callers.
package validate
