// Package pipeline provides the stage execution engine of the assistant.
//
// A pipeline is an ordered list of stages sharing one domain.State. Each
// stage reads the current State and returns a domain.Update; the engine merges
// updates field by field and enforces the audit contract after every stage.
//
// # Backends
//
// Build compiles the stages onto one of two backends:
//   - graph: an eino compose graph with one lambda node per stage, chained
//     START -> stage1 -> ... -> stageN -> END. Compiled in unless the binary
//     is built with the noeino tag.
//   - sequential: a plain in-process loop.
//
// The graph backend is optional. When it is not compiled in, or compiling
// the graph fails, Build falls back to the sequential runner and logs why.
// Both backends run stages through the same step function, so their results,
// errors, spans, and log lines are identical.
//
// # Audit contract
//
// After each stage the returned trail must be the prior trail plus exactly
// one record whose node equals the stage name. Violations fail the run with
// ErrAuditContract wrapped in a StageError.
//
// # Errors
//
// Stage errors are not recovered. They surface as *StageError naming the
// stage, and no partial State is returned.
package pipeline
