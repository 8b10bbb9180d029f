package domain

import (
	"fmt"
	"strings"

	"github.com/danielgtaylor/mexpr"
)

// Expression is a compiled value expression evaluated against feature
// attributes. Attributes are reachable both by bare name and through the
// `feature.` prefix; the `$feature.` form used by web map expressions is
// accepted as an alias.
type Expression struct {
	source string
	ast    *mexpr.Node
}

// CompileExpression parses src once so it can be evaluated per feature.
func CompileExpression(src string) (*Expression, error) {
	rewritten := strings.ReplaceAll(src, "$feature", "feature")
	ast, err := mexpr.Parse(rewritten, nil)
	if err != nil {
		return nil, fmt.Errorf("compile expression %q: %w", src, err)
	}
	return &Expression{source: src, ast: ast}, nil
}

// String returns the expression as written.
func (e *Expression) String() string {
	return e.source
}

// Evaluate runs the expression against a feature's attributes. Integer
// attribute values are widened to float64 so arithmetic behaves uniformly.
func (e *Expression) Evaluate(attributes map[string]any) (any, error) {
	input := make(map[string]any, len(attributes)+1)
	feature := make(map[string]any, len(attributes))
	for k, v := range attributes {
		v = widenNumber(v)
		input[k] = v
		feature[k] = v
	}
	input["feature"] = feature

	result, err := mexpr.NewInterpreter(e.ast).Run(input)
	if err != nil {
		return nil, fmt.Errorf("evaluate expression %q: %w", e.source, err)
	}
	return result, nil
}

func widenNumber(v any) any {
	if f, ok := toFloat(v); ok {
		return f
	}
	return v
}
