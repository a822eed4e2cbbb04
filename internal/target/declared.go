package target

import (
	"fmt"

	"github.com/specialistvlad/buildgrid/internal/platform"
)

// Declared is a Target built entirely from static data, optionally extended
// by Go hooks. HCL declarations and Go callers both produce Declared values.
type Declared struct {
	TargetName string
	SourceRef  SourceRef
	Deps       []Dependency
	Opts       Options
	Rules      []PackageRule
	Build      *Hook
	TestHook   *Hook
	// Override allows this declaration to replace an earlier one of the same name.
	Override bool

	// ConfigureFunc, when set, receives the static options and returns the
	// options the target is configured with.
	ConfigureFunc func(ctx ConfigureContext, static Options) (Options, error)
	// PackageFunc, when set, runs after the declared rules are exported.
	PackageFunc func(p Packager) error
}

var (
	_ Target = (*Declared)(nil)
	_ Builds = (*Declared)(nil)
)

func (d *Declared) Name() string      { return d.TargetName }
func (d *Declared) Source() SourceRef { return d.SourceRef }
func (d *Declared) Options() Options  { return d.Opts }
func (d *Declared) Test() *Hook       { return d.TestHook }
func (d *Declared) BuildHook() *Hook  { return d.Build }

func (d *Declared) Dependencies(f platform.Facts) []Dependency {
	var out []Dependency
	for _, dep := range d.Deps {
		if dep.When.Eval(f) {
			out = append(out, dep)
		}
	}
	return out
}

func (d *Declared) Exports(f platform.Facts) []PackageRule {
	var out []PackageRule
	for _, r := range d.Rules {
		if r.When.Eval(f) {
			out = append(out, r)
		}
	}
	return out
}

func (d *Declared) Configure(ctx ConfigureContext) (Options, error) {
	if d.ConfigureFunc == nil {
		return d.Opts, nil
	}
	return d.ConfigureFunc(ctx, d.Opts)
}

func (d *Declared) Package(p Packager) error {
	for _, r := range d.Exports(p.Platform()) {
		if err := p.Export(r); err != nil {
			return fmt.Errorf("export %s: %w", r, err)
		}
	}
	if d.PackageFunc != nil {
		return d.PackageFunc(p)
	}
	return nil
}

// WithDependency returns a copy of d that also depends on name. An existing
// edge to name is kept as is.
func (d *Declared) WithDependency(name string) *Declared {
	for _, dep := range d.Deps {
		if dep.Target == name && dep.When == nil {
			return d
		}
	}
	cp := *d
	cp.Deps = append(append([]Dependency(nil), d.Deps...), Dependency{Target: name})
	return &cp
}

// WithOptions returns a copy of d with its static options replaced.
func (d *Declared) WithOptions(opts Options) *Declared {
	cp := *d
	cp.Opts = opts
	return &cp
}

// overrides is implemented by declarations that may replace earlier ones.
type overrides interface {
	Overrides() bool
}

func (d *Declared) Overrides() bool { return d.Override }

// Resolve merges declarations into a name-unique list. A later declaration of
// an existing name replaces it in place only when it is marked as an
// override; otherwise the result is ErrDuplicateTarget. onOverride is called
// for every replacement and may be nil.
func Resolve(targets []Target, onOverride func(name string)) ([]Target, error) {
	index := make(map[string]int, len(targets))
	out := make([]Target, 0, len(targets))
	for _, t := range targets {
		i, seen := index[t.Name()]
		if !seen {
			index[t.Name()] = len(out)
			out = append(out, t)
			continue
		}
		if o, ok := t.(overrides); !ok || !o.Overrides() {
			return nil, fmt.Errorf("%w: %q is declared more than once", ErrDuplicateTarget, t.Name())
		}
		if onOverride != nil {
			onOverride(t.Name())
		}
		out[i] = t
	}
	return out, nil
}
