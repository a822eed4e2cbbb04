// Package dag builds the dependency graph of a run. It evaluates every
// platform-conditional edge once against the run's platform facts, rejects
// cycles with the full cycle path, checks typed product references against
// the declared package rules and produces a Plan: a deterministic
// dependencies-first build order.
//
// Targets are never mutated; the Plan only references them.
package dag
