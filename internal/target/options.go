package target

import (
	"fmt"
	"sort"
)

// Value is one option value: a literal string, a typed reference to an
// upstream product, or a computed value derived from one or more references.
type Value struct {
	literal string
	refs    []ProductKey
	compute func(ProductLookup) (string, error)
}

// Literal returns a constant option value.
func Literal(s string) Value {
	return Value{literal: s}
}

// Ref returns a value that resolves to the paths of target's kind products,
// joined as a CMake list.
func Ref(target string, kind ProductKind) Value {
	return Value{refs: []ProductKey{{Target: target, Kind: kind}}}
}

// Computed returns a value produced by fn at configure time. refs must list
// every product fn reads so it can be validated before the run starts.
func Computed(refs []ProductKey, fn func(ProductLookup) (string, error)) Value {
	return Value{refs: append([]ProductKey(nil), refs...), compute: fn}
}

// Refs lists the products the value depends on.
func (v Value) Refs() []ProductKey {
	return append([]ProductKey(nil), v.refs...)
}

// IsLiteral reports whether the value needs no upstream products.
func (v Value) IsLiteral() bool {
	return len(v.refs) == 0 && v.compute == nil
}

// Resolve produces the concrete option string.
func (v Value) Resolve(l ProductLookup) (string, error) {
	if v.compute != nil {
		return v.compute(l)
	}
	if len(v.refs) == 0 {
		return v.literal, nil
	}
	ref := v.refs[0]
	paths, err := l.Products(ref.Target, ref.Kind)
	if err != nil {
		return "", err
	}
	return JoinPaths(paths), nil
}

// sameAs reports whether two values are known to be identical. Computed
// values never compare equal.
func (v Value) sameAs(o Value) bool {
	if v.compute != nil || o.compute != nil {
		return false
	}
	if len(v.refs) != len(o.refs) {
		return false
	}
	for i := range v.refs {
		if v.refs[i] != o.refs[i] {
			return false
		}
	}
	return v.literal == o.literal
}

func (v Value) String() string {
	switch {
	case v.compute != nil:
		return fmt.Sprintf("<computed from %v>", v.refs)
	case len(v.refs) > 0:
		return "<" + v.refs[0].String() + ">"
	default:
		return fmt.Sprintf("%q", v.literal)
	}
}

// Options is an immutable set of named option values. Every modifying method
// returns a new Options and leaves the receiver untouched.
type Options struct {
	values map[string]Value
}

// NewOptions returns an empty option set.
func NewOptions() Options {
	return Options{}
}

func (o Options) clone(extra int) map[string]Value {
	m := make(map[string]Value, len(o.values)+extra)
	for k, v := range o.values {
		m[k] = v
	}
	return m
}

// With returns a copy with name set to v, replacing any previous value.
func (o Options) With(name string, v Value) Options {
	m := o.clone(1)
	m[name] = v
	return Options{values: m}
}

// WithLiteral is shorthand for With(name, Literal(s)).
func (o Options) WithLiteral(name, s string) Options {
	return o.With(name, Literal(s))
}

// WithRef is shorthand for With(name, Ref(target, kind)).
func (o Options) WithRef(name, target string, kind ProductKind) Options {
	return o.With(name, Ref(target, kind))
}

// Add returns a copy with name set to v. Declaring the same value twice is
// accepted; declaring a different value is ErrConflictingOption.
func (o Options) Add(name string, v Value) (Options, error) {
	if prev, ok := o.values[name]; ok {
		if prev.sameAs(v) {
			return o, nil
		}
		return o, fmt.Errorf("%w: %s declared as %s and %s", ErrConflictingOption, name, prev, v)
	}
	return o.With(name, v), nil
}

// Merge adds every value of other using Add semantics.
func (o Options) Merge(other Options) (Options, error) {
	out := o
	for _, name := range other.Names() {
		var err error
		if out, err = out.Add(name, other.values[name]); err != nil {
			return o, err
		}
	}
	return out, nil
}

// Get returns the value declared for name.
func (o Options) Get(name string) (Value, bool) {
	v, ok := o.values[name]
	return v, ok
}

// Len returns the number of declared options.
func (o Options) Len() int {
	return len(o.values)
}

// Names returns option names in sorted order.
func (o Options) Names() []string {
	names := make([]string, 0, len(o.values))
	for name := range o.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Refs returns every product referenced by any option, in option-name order.
func (o Options) Refs() []ProductKey {
	var refs []ProductKey
	for _, name := range o.Names() {
		refs = append(refs, o.values[name].Refs()...)
	}
	return refs
}

// Resolve evaluates every option against l.
func (o Options) Resolve(l ProductLookup) (map[string]string, error) {
	out := make(map[string]string, len(o.values))
	for _, name := range o.Names() {
		s, err := o.values[name].Resolve(l)
		if err != nil {
			return nil, fmt.Errorf("option %s: %w", name, err)
		}
		out[name] = s
	}
	return out, nil
}
