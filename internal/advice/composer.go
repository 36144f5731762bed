package advice

import (
	"context"
	"fmt"

	"fincoach/internal/core"
	"fincoach/internal/llm"
	applog "fincoach/internal/log"
	"fincoach/internal/metrics"
)

const (
	analystSystem = "You are a financial analyst providing recommendations."
	coachSystem   = "You are an expert financial coach."
	maxTokens     = 1000
	temperature   = 0.7
)

const recommendationPrompt = `Based on the following financial data, provide 5 specific, actionable recommendations:

%s

Consider:
1. Income stability and patterns
2. Spending habits and categories
3. Savings opportunities
4. Risk management
5. Long-term financial goals

Format as a JSON array of recommendations with:
- category: (savings, investment, debt_management, budgeting, emergency_fund)
- priority: (high, medium, low)
- action: specific action item
- impact: expected impact
- timeline: recommended timeline`

// Result is the composed answer and where it came from.
type Result struct {
	Recommendations []Recommendation `json:"recommendations"`
	Source          Source           `json:"source"`
}

type Composer struct {
	llm    llm.Completer
	stages []Stage
	logger *applog.StructuredLogger
}

func NewComposer(c llm.Completer, logger *applog.Logger) *Composer {
	if c == nil {
		c = llm.Disabled{}
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Composer{
		llm:    c,
		stages: DefaultStages(),
		logger: applog.NewStructuredLogger(logger),
	}
}

// Recommend never fails; an unusable model answer degrades to Fallback.
func (c *Composer) Recommend(ctx context.Context, txs []core.Transaction, profile *core.Profile) Result {
	bctx := BuildContext(txs, profile)
	text, err := c.llm.Complete(ctx, llm.Request{
		System:      analystSystem,
		Prompt:      fmt.Sprintf(recommendationPrompt, bctx.JSON()),
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		c.logger.LogFallback(ctx, applog.ComponentAdvice, applog.OpGenerate, err)
		return Result{Recommendations: Fallback(txs, profile), Source: SourceFallback}
	}
	for _, st := range c.stages {
		if recs, ok := st.Parse(text); ok {
			return Result{Recommendations: recs, Source: st.Source()}
		}
	}
	c.logger.LogFallback(ctx, applog.ComponentAdvice, applog.OpParse, fmt.Errorf("unparseable recommendations"))
	return Result{Recommendations: Fallback(txs, profile), Source: SourceFallback}
}

// Fallback derives recommendations from savings rate and employment type.
func Fallback(txs []core.Transaction, profile *core.Profile) []Recommendation {
	recs := []Recommendation{}
	if metrics.ComputeTotals(txs).SavingsRate < 0.1 {
		recs = append(recs, Recommendation{
			Category: "savings",
			Priority: "high",
			Action:   "Increase savings rate to at least 10% of income",
			Impact:   "Build financial security and emergency fund",
			Timeline: "1-3 months",
		})
	}
	if profile != nil && profile.EmploymentType.Irregular() {
		recs = append(recs, Recommendation{
			Category: "emergency_fund",
			Priority: "high",
			Action:   "Build emergency fund covering 6-12 months of expenses",
			Impact:   "Protect against income volatility",
			Timeline: "6-12 months",
		})
	}
	return recs
}
