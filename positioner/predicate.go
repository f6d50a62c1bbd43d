package positioner

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/arloliu/go-motion/internal/util"
)

func compileDonePredicate(expression string) (*vm.Program, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, fmt.Errorf("empty done predicate")
	}

	program, err := expr.Compile(expression,
		expr.Env(map[string]any{"value": nil}),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("compile done predicate %q: %w", expression, err)
	}

	return program, nil
}

// isDone reports whether v, a done channel value, means "not moving".
func (cfg *Config) isDone(v any) (bool, error) {
	if cfg.donePredicate == nil {
		return util.ValuesEqual(v, cfg.doneValue), nil
	}

	// numeric values are normalized so "value == 0" holds for int16(0) and 0.0 alike
	if f, ok := util.ToFloat64(v); ok {
		if _, isBool := v.(bool); !isBool {
			v = f
		}
	}

	out, err := expr.Run(cfg.donePredicate, map[string]any{"value": v})
	if err != nil {
		return false, fmt.Errorf("evaluate done predicate %q: %w", cfg.doneExpr, err)
	}
	done, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("done predicate %q returned %T", cfg.doneExpr, out)
	}

	return done, nil
}
