// Package platform describes the host facts that platform-conditional
// dependency edges and package rules are evaluated against.
//
// Facts are captured once per run, either detected from the running process or
// injected (tests, cross-platform CI matrices), so graph construction itself
// stays platform-oblivious.
package platform

import (
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// Facts is the set of host properties a declaration may branch on.
type Facts struct {
	// OS uses GOOS spelling: "linux", "windows", "darwin", ...
	OS   string
	Arch string
}

// Detect returns the facts of the running process.
func Detect() Facts {
	return Facts{OS: runtime.GOOS, Arch: runtime.GOARCH}
}

// ForOS builds facts for the named operating system. "macos" is accepted as an
// alias of "darwin". The architecture is taken from the running process.
func ForOS(name string) (Facts, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "linux":
		return Facts{OS: "linux", Arch: runtime.GOARCH}, nil
	case "windows":
		return Facts{OS: "windows", Arch: runtime.GOARCH}, nil
	case "macos", "darwin":
		return Facts{OS: "darwin", Arch: runtime.GOARCH}, nil
	default:
		return Facts{}, fmt.Errorf("unsupported platform %q: must be 'linux', 'windows' or 'macos'", name)
	}
}

func (f Facts) Linux() bool   { return f.OS == "linux" }
func (f Facts) Windows() bool { return f.OS == "windows" }
func (f Facts) MacOS() bool   { return f.OS == "darwin" }

// Unix reports whether the platform is a unix flavour.
func (f Facts) Unix() bool { return !f.Windows() && f.OS != "" }

// Flags returns the boolean facts keyed by the names declarations use.
func (f Facts) Flags() map[string]bool {
	return map[string]bool{
		"linux":   f.Linux(),
		"windows": f.Windows(),
		"macos":   f.MacOS(),
		"unix":    f.Unix(),
	}
}

// String renders the facts for logs, e.g. "linux/amd64".
func (f Facts) String() string {
	return f.OS + "/" + f.Arch
}

// CtyValue exposes the facts as the `platform` object of HCL expressions.
func (f Facts) CtyValue() cty.Value {
	attrs := map[string]cty.Value{
		"os":   cty.StringVal(f.OS),
		"arch": cty.StringVal(f.Arch),
	}
	for name, v := range f.Flags() {
		attrs[name] = cty.BoolVal(v)
	}
	return cty.ObjectVal(attrs)
}

// Condition is a predicate over platform facts. A nil Condition always holds.
type Condition func(Facts) bool

// Eval evaluates c against f.
func (c Condition) Eval(f Facts) bool {
	if c == nil {
		return true
	}
	return c(f)
}

// Always is the unconditional predicate.
func Always(Facts) bool { return true }

// Flag returns a condition that holds when the named boolean fact is true.
// Unknown names never hold.
func Flag(name string) Condition {
	return func(f Facts) bool {
		return f.Flags()[name]
	}
}

// Not negates c.
func Not(c Condition) Condition {
	return func(f Facts) bool { return !c.Eval(f) }
}

// AnyOf holds when at least one of cs holds.
func AnyOf(cs ...Condition) Condition {
	return func(f Facts) bool {
		for _, c := range cs {
			if c.Eval(f) {
				return true
			}
		}
		return false
	}
}

// FlagNames lists the boolean fact names in stable order.
func FlagNames() []string {
	names := make([]string, 0, 4)
	for name := range (Facts{}).Flags() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
