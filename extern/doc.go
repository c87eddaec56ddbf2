// Package extern is the registry of names and signatures the lowerer and
// emitter both treat as predeclared: locally-unresolved Call targets must
// be either a registered extern or one of the builtins in BuiltinCatalog
// (spec §4.3). The emitter consults the same registry to synthesize a
// matching external declaration at module scope on first use.
package extern
