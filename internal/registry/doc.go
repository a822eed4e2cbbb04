// Package registry is the Product Registry of a run: for every target, the
// map from product kind to the resolved artifact paths it exported.
//
// Entries are write-once. A target's products are staged with Put while its
// package step runs and become readable only after Publish seals them, which
// the orchestrator does exactly at the Packaged transition. Reading a target
// that was declared but not yet published is an ordering violation, never a
// silent empty answer.
//
// Each target has its own lock; writers for different targets never contend.
package registry
