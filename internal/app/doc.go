// Package app contains the core application logic. It wires the declaration
// loader, the dependency graph, the cache and the build orchestrator into
// one run, decoupled from any specific entrypoint like a CLI or server.
package app
