// Package main hosts the fieldscribe CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration once, opens the configured
// storage backend and hands off to the internal packages: `run` drives the
// pipeline, `status` reports preflight and dependency checks, `ledger` and
// `vocabulary` inspect persisted state, and `label` dry-runs the label
// heuristic against a transcript.
//
// Keep this package lean: new behaviour belongs in internal packages first and
// is surfaced here through dedicated commands or flags.
package main
