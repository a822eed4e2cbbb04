// This file turns the expressions of a declaration into the target model:
// `when` attributes become platform conditions and option values become
// literals, product references or computed values.

package hcl_adapter

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/buildgrid/internal/platform"
	"github.com/specialistvlad/buildgrid/internal/target"
	"github.com/zclconf/go-cty/cty"
)

const (
	platformVar = "platform"
	targetVar   = "target"
)

// probeFacts are the platforms a condition is checked against at load time,
// so a broken expression fails the load instead of silently never holding.
var probeFacts = []platform.Facts{
	{OS: "linux", Arch: "amd64"},
	{OS: "windows", Arch: "amd64"},
	{OS: "darwin", Arch: "arm64"},
}

func platformContext(f platform.Facts) *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{platformVar: f.CtyValue()},
		Functions: functions(),
	}
}

// translateCondition converts a `when` expression into a platform.Condition.
func translateCondition(expr hcl.Expression) (platform.Condition, error) {
	for _, tr := range expr.Variables() {
		if root := tr.RootName(); root != platformVar {
			return nil, fmt.Errorf("%s: condition may only reference %q, got %q", tr.SourceRange(), platformVar, root)
		}
	}

	eval := func(f platform.Facts) (bool, error) {
		v, diags := expr.Value(platformContext(f))
		if diags.HasErrors() {
			return false, diags
		}
		if v.IsNull() || v.Type() != cty.Bool || !v.IsKnown() {
			return false, fmt.Errorf("%s: condition must be a bool", expr.Range())
		}
		return v.True(), nil
	}

	for _, f := range probeFacts {
		if _, err := eval(f); err != nil {
			return nil, err
		}
	}

	return func(f platform.Facts) bool {
		ok, err := eval(f)
		return err == nil && ok
	}, nil
}

// productRef parses a `target.<name>.<kind>` traversal.
func productRef(tr hcl.Traversal) (target.ProductKey, error) {
	rng := tr.SourceRange()
	if len(tr) != 3 {
		return target.ProductKey{}, fmt.Errorf("%s: product reference must have the form target.<name>.<kind>", rng)
	}
	name, ok := tr[1].(hcl.TraverseAttr)
	if !ok {
		return target.ProductKey{}, fmt.Errorf("%s: expected a target name after %q", rng, targetVar)
	}
	kindStep, ok := tr[2].(hcl.TraverseAttr)
	if !ok {
		return target.ProductKey{}, fmt.Errorf("%s: expected a product kind after target.%s", rng, name.Name)
	}
	kind, err := target.ParseProductKind(kindStep.Name)
	if err != nil {
		return target.ProductKey{}, fmt.Errorf("%s: %w", rng, err)
	}
	return target.ProductKey{Target: name.Name, Kind: kind}, nil
}

// translateValue converts one option expression. A plain literal is
// evaluated immediately, a bare `target.<name>.<kind>` becomes a typed
// reference, and anything else is evaluated at configure time against the
// upstream products and the platform of the run.
func translateValue(expr hcl.Expression) (target.Value, error) {
	var (
		refs      []target.ProductKey
		usesFacts bool
		seen      = make(map[target.ProductKey]bool)
	)
	for _, tr := range expr.Variables() {
		switch tr.RootName() {
		case platformVar:
			usesFacts = true
		case targetVar:
			ref, err := productRef(tr)
			if err != nil {
				return target.Value{}, err
			}
			if !seen[ref] {
				seen[ref] = true
				refs = append(refs, ref)
			}
		default:
			return target.Value{}, fmt.Errorf("%s: unknown variable %q", tr.SourceRange(), tr.RootName())
		}
	}

	if len(refs) == 0 && !usesFacts {
		v, diags := expr.Value(&hcl.EvalContext{Functions: functions()})
		if diags.HasErrors() {
			return target.Value{}, diags
		}
		s, err := ctyToOption(v)
		if err != nil {
			return target.Value{}, fmt.Errorf("%s: %w", expr.Range(), err)
		}
		return target.Literal(s), nil
	}

	if len(refs) == 1 && !usesFacts {
		if tr, diags := hcl.AbsTraversalForExpr(expr); !diags.HasErrors() && len(tr) == 3 {
			return target.Ref(refs[0].Target, refs[0].Kind), nil
		}
	}

	return target.Computed(refs, func(l target.ProductLookup) (string, error) {
		ctx, err := evalContext(l, refs)
		if err != nil {
			return "", err
		}
		v, diags := expr.Value(ctx)
		if diags.HasErrors() {
			return "", diags
		}
		return ctyToOption(v)
	}), nil
}

// platformSource is implemented by lookups that know the run's platform,
// such as the configure context.
type platformSource interface {
	Platform() platform.Facts
}

func evalContext(l target.ProductLookup, refs []target.ProductKey) (*hcl.EvalContext, error) {
	byTarget := make(map[string]map[string]cty.Value)
	for _, ref := range refs {
		paths, err := l.Products(ref.Target, ref.Kind)
		if err != nil {
			return nil, err
		}
		if byTarget[ref.Target] == nil {
			byTarget[ref.Target] = make(map[string]cty.Value)
		}
		byTarget[ref.Target][ref.Kind.String()] = cty.StringVal(target.JoinPaths(paths))
	}

	targets := make(map[string]cty.Value, len(byTarget))
	for name, kinds := range byTarget {
		targets[name] = cty.ObjectVal(kinds)
	}

	facts := platform.Detect()
	if ps, ok := l.(platformSource); ok {
		facts = ps.Platform()
	}

	ctx := platformContext(facts)
	ctx.Variables[targetVar] = cty.ObjectVal(targets)
	return ctx, nil
}
