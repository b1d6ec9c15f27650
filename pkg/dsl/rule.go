// Package dsl 用 CEL (Common Expression Language) 表达针对商品记录的布尔规则。
//
// 表达式中可用的变量：
//   - id：商品 id（string）
//   - item：属性名到取值的 map，数值为 double，文本/类目为 string
//
// 示例：
//   - `item.cost >= 0`
//   - `has(item.brand) && item.brand != ""`
//   - `item.department in ["Women", "Men", "Kids"]`
//   - `!has(item.return_rate_percent) || item.return_rate_percent <= 100`
//
// 访问不存在的属性会在求值时报错，可选属性请先用 has() 判断。
package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/procurekit/core"
)

var (
	// celEnv 线程安全，全局复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("id", cel.StringType),
			cel.Variable("item", cel.MapType(cel.StringType, cel.DynType)),
			// 允许 item.cost >= 0 这类 double 与 int 字面量的比较
			cel.CrossTypeNumericComparisons(true),
		)
	})
	return celEnv, celEnvErr
}

// Rule 是编译后的规则，可并发求值。
type Rule struct {
	Name string
	Expr string
	prg  cel.Program
}

// Compile 编译表达式；语法错误或返回类型不是 bool 时报错。
func Compile(name, expr string) (*Rule, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("rule %q: compile error: %w", name, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) && !ast.OutputType().IsExactType(cel.DynType) {
		return nil, fmt.Errorf("rule %q: expression must return bool, got %s", name, ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("rule %q: program error: %w", name, err)
	}
	return &Rule{Name: name, Expr: expr, prg: prg}, nil
}

// Eval 对一条记录求值。
func (r *Rule) Eval(e *core.Entity) (bool, error) {
	out, _, err := r.prg.Eval(map[string]any{
		"id":   e.ID,
		"item": e.Fields(),
	})
	if err != nil {
		return false, fmt.Errorf("rule %q: eval error: %w", r.Name, err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("rule %q: expression must return bool, got %T", r.Name, out.Value())
	}
	return result, nil
}

// RuleSet 是一组按顺序求值的规则，全部通过才算通过。
type RuleSet []*Rule

// CompileAll 编译 name → expr 列表，任一失败即返回错误。
func CompileAll(rules []RuleSpec) (RuleSet, error) {
	out := make(RuleSet, 0, len(rules))
	for _, spec := range rules {
		r, err := Compile(spec.Name, spec.Expr)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// RuleSpec 是配置文件中的规则声明。
type RuleSpec struct {
	Name string `yaml:"name" json:"name"`
	Expr string `yaml:"expr" json:"expr"`
}

// Check 返回第一条不通过的规则；求值出错视为不通过。
func (s RuleSet) Check(e *core.Entity) (*Rule, error) {
	for _, r := range s {
		ok, err := r.Eval(e)
		if err != nil {
			return r, err
		}
		if !ok {
			return r, nil
		}
	}
	return nil, nil
}
