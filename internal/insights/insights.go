// Package insights turns metric thresholds into short, prioritized messages.
package insights

import (
	"fincoach/internal/core"
)

// Insight types.
const (
	TypeWelcome         = "welcome"
	TypeSpendingPattern = "spending_pattern"
	TypeSavingsAlert    = "savings_alert"
	TypeSavingsSuccess  = "savings_success"
	TypeTrendAlert      = "trend_alert"
	TypeAnomaly         = "anomaly_detection"
	TypeRecommendation  = "recommendation"
	TypeIncomeAlert     = "income_alert"
)

const (
	// MaxInsights caps a single generation run.
	MaxInsights = 5
	// minTransactions is the history below which only the welcome insight is produced.
	minTransactions = 3
)

// Snapshot is the input every rule sees.
type Snapshot struct {
	Transactions []core.Transaction
	Expenses     []core.Transaction
	Incomes      []core.Transaction
}

func NewSnapshot(txs []core.Transaction) Snapshot {
	return Snapshot{
		Transactions: txs,
		Expenses:     core.Filter(txs, core.Expense),
		Incomes:      core.Filter(txs, core.Income),
	}
}

// Rule produces at most one insight.
type Rule interface {
	Name() string
	Evaluate(s Snapshot) (core.Insight, bool)
}

// RuleFunc adapts a function to Rule.
type RuleFunc struct {
	RuleName string
	Fn       func(Snapshot) (core.Insight, bool)
}

func (r RuleFunc) Name() string                             { return r.RuleName }
func (r RuleFunc) Evaluate(s Snapshot) (core.Insight, bool) { return r.Fn(s) }

// DefaultRules is the evaluation order used when a Generator is built
// without explicit rules. Order decides which insights survive the cap.
func DefaultRules() []Rule {
	return []Rule{
		TopCategoryRule{},
		SavingsRateRule{},
		SpendingTrendRule{},
		LargeTransactionRule{},
		CategoryBudgetRule{},
	}
}

type Generator struct {
	rules []Rule
	limit int
}

// NewGenerator evaluates rules in order; with no rules DefaultRules is used.
func NewGenerator(rules ...Rule) *Generator {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Generator{rules: rules, limit: MaxInsights}
}

// Generate evaluates the rules over txs and keeps the first MaxInsights results.
func (g *Generator) Generate(txs []core.Transaction) []core.Insight {
	if len(txs) < minTransactions {
		return []core.Insight{Welcome()}
	}
	s := NewSnapshot(txs)
	out := make([]core.Insight, 0, g.limit)
	for _, r := range g.rules {
		if len(out) == g.limit {
			break
		}
		if in, ok := r.Evaluate(s); ok {
			out = append(out, in)
		}
	}
	return out
}

func Welcome() core.Insight {
	return core.Insight{
		Type:     TypeWelcome,
		Message:  "Welcome! Start adding transactions to get personalized AI insights about your spending patterns, savings opportunities, and financial health.",
		Priority: core.PriorityLow,
	}
}
