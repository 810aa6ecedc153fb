// Package logging assembles structured slog loggers and formatting helpers used
// across stopmo components.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so capture and export code can tag log
// lines with the session id, frame index, and operation automatically. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail, a progress sampler for export loops, and log retention pruning.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits records with the same shape.
package logging
