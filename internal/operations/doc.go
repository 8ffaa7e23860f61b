// Package operations orchestrates pipeline runs.
//
// A run executes the registered steps in order (load, clean, unify, export),
// sharing data through a RunState. Each step has a StepState that moves through
// pending, active and completed, failed or skipped. Only one run may be active;
// a second request fails with ErrRunInProgress.
//
// Progress snapshots are pushed to an optional ProgressReporter, which the
// server wires to the websocket hub.
package operations
