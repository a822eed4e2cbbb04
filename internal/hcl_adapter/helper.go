package hcl_adapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/target"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"github.com/zclconf/go-cty/cty/gocty"
)

// isExprDefined checks if an HCL expression was actually present in the source
// code. The HCL decoder populates omitted optional expression fields with
// zero-width placeholder expressions, so a nil check alone is insufficient.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	logger := ctxlog.FromContext(ctx)

	if expr == nil {
		return false
	}

	// A real attribute occupies bytes in the file; a placeholder has a
	// zero-width range.
	exprRange := expr.Range()
	isDefined := exprRange.End.Byte > exprRange.Start.Byte

	logger.Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName,
		"hcl_range", exprRange.String(),
		"is_defined", isDefined,
	)
	return isDefined
}

// functions are the cty functions available in option expressions.
func functions() map[string]function.Function {
	return map[string]function.Function{
		"concat":    stdlib.ConcatFunc,
		"format":    stdlib.FormatFunc,
		"join":      stdlib.JoinFunc,
		"lower":     stdlib.LowerFunc,
		"replace":   stdlib.ReplaceFunc,
		"split":     stdlib.SplitFunc,
		"trimspace": stdlib.TrimSpaceFunc,
		"upper":     stdlib.UpperFunc,
	}
}

// ctyToOption renders an evaluated option expression as the string handed to
// the build. Lists and tuples become a ";" separated CMake list and bools
// render as ON/OFF.
func ctyToOption(v cty.Value) (string, error) {
	if v.IsNull() {
		return "", fmt.Errorf("option value is null")
	}
	if !v.IsWhollyKnown() {
		return "", fmt.Errorf("option value is not known")
	}
	ty := v.Type()
	switch {
	case ty == cty.Bool:
		if v.True() {
			return "ON", nil
		}
		return "OFF", nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		list, err := convert.Convert(v, cty.List(cty.String))
		if err != nil {
			return "", fmt.Errorf("option list must hold strings: %w", err)
		}
		var items []string
		if err := gocty.FromCtyValue(list, &items); err != nil {
			return "", err
		}
		return target.JoinPaths(items), nil
	}
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", fmt.Errorf("option value of type %s cannot be used as a string", ty.FriendlyName())
	}
	return s.AsString(), nil
}

// keyName returns the option name of an object key expression, accepting both
// bare identifiers and quoted strings.
func keyName(expr hcl.Expression) (string, error) {
	if kw := hcl.ExprAsKeyword(expr); kw != "" {
		return kw, nil
	}
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return "", diags
	}
	if v.IsNull() || v.Type() != cty.String {
		return "", fmt.Errorf("%s: option name must be a string", expr.Range())
	}
	return strings.TrimSpace(v.AsString()), nil
}
