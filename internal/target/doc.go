// Package target defines the Target Descriptor model: the immutable
// declaration of one buildable unit, its platform-conditional dependency
// edges, its configuration options and the package rules that select which
// build outputs become products for dependents.
//
// Products are addressed by a typed ProductKey (target name + ProductKind)
// rather than free-form strings, so references can be checked when the
// dependency graph is built instead of at configure time.
package target
