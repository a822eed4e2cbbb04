package target

import "errors"

var (
	// ErrUnknownDependency is returned when a declaration references a target
	// name that is not declared, or not declared as one of its dependencies.
	ErrUnknownDependency = errors.New("unknown dependency")
	// ErrUnknownTarget is returned for lookups of a target that is not part of the run.
	ErrUnknownTarget = errors.New("unknown target")
	// ErrMissingProduct is returned when a referenced product kind was never
	// exported by its target.
	ErrMissingProduct = errors.New("missing product")
	// ErrDuplicateProduct is returned when a package step exports the same
	// product key twice.
	ErrDuplicateProduct = errors.New("duplicate product")
	// ErrDuplicateTarget is returned when two declarations share a name and the
	// later one does not explicitly override the earlier.
	ErrDuplicateTarget = errors.New("duplicate target")
	// ErrOrderingViolation is returned when a product is read before its target
	// reached the Packaged state.
	ErrOrderingViolation = errors.New("product read before target was packaged")
	// ErrConflictingOption is returned when one target declares the same option
	// twice with different values.
	ErrConflictingOption = errors.New("conflicting option")
)
