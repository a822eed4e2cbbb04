package dag

import "strings"

// CycleError reports a dependency cycle. Path starts and ends with the same
// target, e.g. [a b a] for a depending on b depending on a.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "dependency cycle detected: " + strings.Join(e.Path, " -> ")
}
