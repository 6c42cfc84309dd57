// internal/service/order/infrastructure/rule/cel_price_rule.go
package rule

import (
	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// CELPriceRule 是 port.PriceRule 的一个具体实现。
// 规则是一条 CEL 表达式，可以使用 submitted 和 computed 两个 double 变量，例如
// "submitted == computed" 或 "submitted >= computed * 0.99"。
type CELPriceRule struct {
	expr    string
	program cel.Program
}

// NewCELPriceRule 编译规则；表达式有语法错误或结果不是 bool 时返回错误。
func NewCELPriceRule(expr string) (*CELPriceRule, error) {
	env, err := cel.NewEnv(
		cel.Variable("submitted", cel.DoubleType),
		cel.Variable("computed", cel.DoubleType),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create cel env")
	}

	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, errors.Wrapf(iss.Err(), "compile price rule %q", expr)
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, errors.Errorf("price rule %q must evaluate to bool, got %s", expr, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, errors.Wrapf(err, "build price rule %q", expr)
	}
	return &CELPriceRule{expr: expr, program: prg}, nil
}

// Accept 实现了 port.PriceRule 接口。
func (r *CELPriceRule) Accept(submitted, computed decimal.Decimal) (bool, error) {
	out, _, err := r.program.Eval(map[string]any{
		"submitted": submitted.InexactFloat64(),
		"computed":  computed.InexactFloat64(),
	})
	if err != nil {
		return false, errors.Wrapf(err, "evaluate price rule %q", r.expr)
	}
	accepted, ok := out.Value().(bool)
	if !ok {
		return false, errors.Errorf("price rule %q returned %T", r.expr, out.Value())
	}
	return accepted, nil
}
