package persona

import (
	"fmt"
	"os"
	"sync"

	"github.com/google/cel-go/cel"
	"gopkg.in/yaml.v3"

	"github.com/custkit/custkit/pkg/utils"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
)

func getCELEnv() (*cel.Env, error) {
	var err error
	celEnvOnce.Do(func() {
		celEnv, err = cel.NewEnv(
			cel.Variable("user", cel.DynType),
		)
	})
	if celEnv == nil && err == nil {
		err = fmt.Errorf("persona: cel env not initialised")
	}
	return celEnv, err
}

// Rule 是画像规则表中的一行：CEL 条件 + 命中后的画像结论。
//
// 表达式语法（CEL 标准语法）示例：
//   - user.purchases >= 10 && user.category_diversity >= 5
//   - user.total_events <= 5
//   - user.top_category == "sports"
//
// 规则按声明顺序自上而下求值，首个命中生效（显式优先级）。
type Rule struct {
	Name        string `yaml:"name" json:"name"`
	Expr        string `yaml:"expr" json:"expr"`
	Persona     string `yaml:"persona" json:"persona"`
	Description string `yaml:"description" json:"description"`
}

// DefaultRules 是内置画像规则表。阈值来自历史调参，没有推导依据，
// 可通过规则文件整体替换。
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:        "explorer",
			Expr:        "user.category_diversity >= 5 && user.purchases >= 10",
			Persona:     "Tech Explorer",
			Description: "An adventurous user who loves exploring new products across multiple categories",
		},
		{
			Name:        "specialist",
			Expr:        "user.purchases >= 8 && user.category_diversity <= 2",
			Persona:     "Category Specialist",
			Description: "A focused buyer who knows exactly what they want in their preferred categories",
		},
		{
			Name:        "bargain_hunter",
			Expr:        "user.purchases >= 5 && user.view_to_cart_rate >= 0.5",
			Persona:     "Bargain Hunter",
			Description: "A savvy shopper who carefully compares options and fills the cart before committing",
		},
		{
			Name:        "casual",
			Expr:        "user.total_events <= 5 && user.purchases <= 1",
			Persona:     "Casual Browser",
			Description: "A relaxed user who browses occasionally without strong purchasing intent",
		},
	}
}

// fallbackRule 是所有规则都未命中时的兜底结论。
var fallbackRule = Rule{
	Name:        "default",
	Persona:     "Balanced Shopper",
	Description: "A well-rounded user with moderate engagement across various categories",
}

// Evaluator 持有编译后的规则表。规则在构造时编译一次，Evaluate 可并发调用。
type Evaluator struct {
	rules []compiledRule
}

type compiledRule struct {
	rule Rule
	prg  cel.Program
}

// NewEvaluator 编译规则表。任何一条规则编译失败都整体拒绝，
// 避免部分规则静默失效导致优先级错位。
func NewEvaluator(rules []Rule) (*Evaluator, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, err
	}

	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		ast, issues := env.Compile(r.Expr)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("persona: rule %q: compile error: %w", r.Name, issues.Err())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("persona: rule %q: program error: %w", r.Name, err)
		}
		compiled = append(compiled, compiledRule{rule: r, prg: prg})
	}
	return &Evaluator{rules: compiled}, nil
}

// Match 对指标求值规则表，返回首个命中的规则；全部未命中返回兜底规则。
// 单条规则求值出错按未命中处理（规则降级不影响整表）。
func (ev *Evaluator) Match(m UserMetrics) Rule {
	input := map[string]any{"user": m.celInput()}
	for _, cr := range ev.rules {
		out, _, err := cr.prg.Eval(input)
		if err != nil {
			continue
		}
		if b, ok := out.Value().(bool); ok && b {
			return cr.rule
		}
	}
	return fallbackRule
}

// Analysis 是一次完整的用户行为分析产物。
type Analysis struct {
	UserID      string      `json:"user_id"`
	Persona     string      `json:"persona"`
	Description string      `json:"description"`
	Metrics     UserMetrics `json:"metrics"`

	// 预测分（0-100）
	PurchaseProbability float64 `json:"purchase_probability"`
	ChurnRisk           float64 `json:"churn_risk"`

	// CategoryShift 是类目迁移预测：次高频类目，无数据时为空
	CategoryShift string `json:"category_shift,omitempty"`

	// Labels 是解释性标记：persona 结论、命中的规则、风险分档等
	Labels map[string]utils.Label `json:"labels,omitempty"`
}

// PutLabel 写入解释性 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (a *Analysis) PutLabel(key string, lbl utils.Label) {
	if a.Labels == nil {
		a.Labels = make(map[string]utils.Label)
	}
	if old, ok := a.Labels[key]; ok {
		a.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	a.Labels[key] = lbl
}

// Analyze 对指标产出完整分析：画像规则 + 预测分 + 解释标记。
func (ev *Evaluator) Analyze(m UserMetrics) Analysis {
	rule := ev.Match(m)
	a := Analysis{
		UserID:              m.UserID,
		Persona:             rule.Persona,
		Description:         rule.Description,
		Metrics:             m,
		PurchaseProbability: PurchaseProbability(m),
		ChurnRisk:           ChurnRisk(m),
		CategoryShift:       secondCategory(m.CategoryCounts, m.TopCategory),
	}
	a.PutLabel("persona", utils.Label{Value: rule.Persona, Source: rule.Name})
	a.PutLabel("churn_band", utils.Label{Value: churnBand(a.ChurnRisk), Source: "predict"})
	return a
}

// rulesFile 是规则文件的顶层结构。
type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules 从 YAML 文件加载规则表。
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	var rf rulesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if len(rf.Rules) == 0 {
		return nil, fmt.Errorf("persona: rules file %s contains no rules", path)
	}
	return rf.Rules, nil
}
