// Package cache records the products of packaged targets so an unchanged
// target can skip its native build in a later run.
//
// A snapshot is keyed by target name and input hash. The hash covers the
// target name, its source location and revision, every configuration option
// after upstream product references were resolved, and the input hashes of
// its direct dependencies. A change anywhere below a target therefore
// changes its hash.
//
// Store implementations live in subpackages: filecache (YAML files on local
// disk) and s3cache (an S3-compatible bucket). Memory is provided here for
// tests and single-process reuse.
package cache
