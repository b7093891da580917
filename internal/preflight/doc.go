// Package preflight provides readiness checks for the paths, binaries and
// services a fieldscribe run depends on.
//
// These checks run in two contexts:
//   - The pipeline calls RunAll before touching the ledger. If any check
//     fails the run stops before downloading or transcribing anything.
//   - The CLI "fieldscribe status" command renders RunAll, CheckSystemDeps
//     and CheckStorage results as a table.
package preflight
