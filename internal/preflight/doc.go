// Package preflight provides readiness checks for the binaries and
// filesystem paths a merge depends on.
//
// These checks run in two contexts:
//   - The merge command calls RunAll before analyzing any input.
//     If any check fails, the run aborts instead of failing an hour in.
//   - The CLI "bindery status" command uses the same checks to display
//     environment health.
package preflight
