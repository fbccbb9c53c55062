// Package rule 用 CEL 表达式实现可配置的咨询分诊规则。
package rule

import (
	_ "embed"
	"os"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"storefront/internal/service/inquiry/domain"
)

//go:embed default_rules.yaml
var defaultRules []byte

// Spec 是一条规则的配置
type Spec struct {
	Name  string `yaml:"name"`
	Group string `yaml:"group"`
	When  string `yaml:"when"`
	Score string `yaml:"score"`
}

// RuleSet 是完整的规则配置：关键词、品牌等名单和有序的规则列表
type RuleSet struct {
	Lists map[string][]string `yaml:"lists"`
	Rules []Spec              `yaml:"rules"`
}

// LoadRuleSet 读取规则文件，path 为空时使用内置默认规则
func LoadRuleSet(path string) (*RuleSet, error) {
	data := defaultRules
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, errors.Wrapf(err, "read triage rules %s", path)
		}
	}
	return ParseRuleSet(data)
}

func ParseRuleSet(data []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, errors.Wrap(err, "parse triage rules")
	}
	if len(rs.Rules) == 0 {
		return nil, errors.New("triage rule set has no rules")
	}
	return &rs, nil
}

type compiledRule struct {
	Spec
	when  cel.Program // nil 表示总是命中
	score cel.Program
}

// CELEngine 实现 domain.RuleEngine。编译在构造时完成，Evaluate 可并发调用。
type CELEngine struct {
	lists map[string][]string
	rules []compiledRule
}

func newEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("category", cel.StringType),
		cel.Variable("text", cel.StringType),
		cel.Variable("brand", cel.StringType),
		cel.Variable("vip_level", cel.IntType),
		cel.Variable("sms_opt_in", cel.BoolType),
		cel.Variable("minute_of_day", cel.IntType),
		cel.Variable("lists", cel.MapType(cel.StringType, cel.ListType(cel.StringType))),
	)
}

// NewCELEngine 编译规则。名单统一转为小写，与输入文本的比较不区分大小写。
func NewCELEngine(rs *RuleSet) (*CELEngine, error) {
	env, err := newEnv()
	if err != nil {
		return nil, errors.Wrap(err, "create cel env")
	}

	e := &CELEngine{lists: make(map[string][]string, len(rs.Lists))}
	for name, values := range rs.Lists {
		lowered := make([]string, len(values))
		for i, v := range values {
			lowered[i] = strings.ToLower(strings.TrimSpace(v))
		}
		e.lists[name] = lowered
	}

	for _, spec := range rs.Rules {
		if spec.Name == "" || spec.Score == "" {
			return nil, errors.Errorf("triage rule %q: name and score are required", spec.Name)
		}
		r := compiledRule{Spec: spec}
		if spec.When != "" {
			if r.when, err = compile(env, spec.When, cel.BoolType); err != nil {
				return nil, errors.Wrapf(err, "triage rule %s: when", spec.Name)
			}
		}
		if r.score, err = compile(env, spec.Score, cel.IntType); err != nil {
			return nil, errors.Wrapf(err, "triage rule %s: score", spec.Name)
		}
		e.rules = append(e.rules, r)
	}
	return e, nil
}

func compile(env *cel.Env, expr string, want *cel.Type) (cel.Program, error) {
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	if !ast.OutputType().IsExactType(want) {
		return nil, errors.Errorf("expression %q has type %s, want %s", expr, ast.OutputType(), want)
	}
	return env.Program(ast)
}

// Evaluate 按配置顺序执行规则并累加分数
func (e *CELEngine) Evaluate(f domain.Fact) (domain.Scoring, error) {
	vars := map[string]any{
		"category":      string(f.Category),
		"text":          strings.ToLower(f.Text),
		"brand":         strings.ToLower(strings.TrimSpace(f.Brand)),
		"vip_level":     int64(f.VIPLevel),
		"sms_opt_in":    f.SMSOptIn,
		"minute_of_day": int64(f.SubmittedAt.Hour()*60 + f.SubmittedAt.Minute()),
		"lists":         e.lists,
	}

	var (
		result  domain.Scoring
		matched = map[string]bool{}
	)
	for _, r := range e.rules {
		if r.Group != "" && matched[r.Group] {
			continue
		}
		if r.when != nil {
			out, _, err := r.when.Eval(vars)
			if err != nil {
				return domain.Scoring{}, errors.Wrapf(err, "evaluate rule %s", r.Name)
			}
			if hit, ok := out.Value().(bool); !ok || !hit {
				continue
			}
		}
		out, _, err := r.score.Eval(vars)
		if err != nil {
			return domain.Scoring{}, errors.Wrapf(err, "score rule %s", r.Name)
		}
		score, ok := out.Value().(int64)
		if !ok {
			return domain.Scoring{}, errors.Errorf("rule %s produced %T, want int", r.Name, out.Value())
		}

		result.Score += int(score)
		result.MatchedRules = append(result.MatchedRules, r.Name)
		if r.Group != "" {
			matched[r.Group] = true
		}
	}
	return result, nil
}
