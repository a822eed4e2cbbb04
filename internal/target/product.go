package target

import (
	"fmt"
	"sort"
	"strings"
)

// ProductKind is the type of artifact a target exports to its dependents.
type ProductKind int

const (
	// IncludePath is a directory of headers.
	IncludePath ProductKind = iota + 1
	// Library is a library file on disk.
	Library
	// SystemLibrary is a link-time library name with no filesystem artifact.
	// It propagates to dependents exactly like Library.
	SystemLibrary
)

var productKindNames = map[ProductKind]string{
	IncludePath:   "include_path",
	Library:       "library",
	SystemLibrary: "system_library",
}

func (k ProductKind) String() string {
	if name, ok := productKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ProductKind(%d)", int(k))
}

// ParseProductKind maps the declaration spelling of a kind to its value.
func ParseProductKind(s string) (ProductKind, error) {
	for k, name := range productKindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown product kind %q: must be one of %s", s, strings.Join(ProductKindNames(), ", "))
}

// ProductKindNames lists the declaration spellings of all kinds in stable order.
func ProductKindNames() []string {
	return []string{IncludePath.String(), Library.String(), SystemLibrary.String()}
}

// ProductKey identifies one product of one target.
type ProductKey struct {
	Target string
	Kind   ProductKind
}

func (k ProductKey) String() string {
	return k.Target + "." + k.Kind.String()
}

// ProductSet maps each exported kind to its resolved paths (or, for
// SystemLibrary, link names).
type ProductSet map[ProductKind][]string

// Clone returns a deep copy so callers can never mutate a published set.
func (s ProductSet) Clone() ProductSet {
	if s == nil {
		return nil
	}
	out := make(ProductSet, len(s))
	for k, paths := range s {
		out[k] = append([]string(nil), paths...)
	}
	return out
}

// Kinds returns the exported kinds in ascending order.
func (s ProductSet) Kinds() []ProductKind {
	kinds := make([]ProductKind, 0, len(s))
	for k := range s {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// ProductLookup resolves another target's products by name.
type ProductLookup interface {
	Products(target string, kind ProductKind) ([]string, error)
}

// JoinPaths renders a path list the way CMake expects list-valued options.
func JoinPaths(paths []string) string {
	return strings.Join(paths, ";")
}
