package advice

import (
	"context"
	"fmt"
	"strings"

	"fincoach/internal/core"
	"fincoach/internal/llm"
	"fincoach/internal/metrics"
)

// CoachRequest is the input of a free-text coaching question.
type CoachRequest struct {
	User    core.User
	Profile core.Profile
	// Recent should hold the latest transactions, newest first.
	Recent []core.Transaction
	// Question is optional extra context from the user.
	Question string
}

const coachPrompt = `As an expert financial coach specializing in gig workers and informal sector employees,
provide personalized advice based on the following financial data:

User Profile: %s
Specific Context: %s

Consider:
1. Income variability and irregular cash flow
2. Emergency fund needs for unstable income
3. Debt management strategies
4. Savings automation for irregular income
5. Investment options for risk tolerance level: %s

Provide actionable, specific advice in 3-5 bullet points. Be encouraging and practical.`

// Summary renders the plain-text profile used by the coach prompt.
func Summary(u core.User, p core.Profile, txs []core.Transaction) string {
	t := metrics.ComputeTotals(txs)
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", u.Name)
	fmt.Fprintf(&b, "Employment Type: %s\n", p.EmploymentType)
	fmt.Fprintf(&b, "Monthly Income: %s\n", p.MonthlyIncome)
	fmt.Fprintf(&b, "Risk Tolerance: %s\n", p.RiskTolerance)
	fmt.Fprintf(&b, "Financial Goals: %s\n", strings.Join(p.FinancialGoals, ", "))
	fmt.Fprintf(&b, "Recent Income: %.2f\n", t.Income)
	fmt.Fprintf(&b, "Recent Expenses: %.2f\n", t.Expenses)
	fmt.Fprintf(&b, "Net Income: %.2f", t.Savings)
	return b.String()
}

// Coach asks the model for free-text advice. Unlike Recommend it has no
// rule-based answer, so errors are returned.
func (c *Composer) Coach(ctx context.Context, req CoachRequest) (string, error) {
	prompt := fmt.Sprintf(coachPrompt, Summary(req.User, req.Profile, req.Recent), req.Question, req.Profile.RiskTolerance)
	text, err := c.llm.Complete(ctx, llm.Request{
		System:      coachSystem,
		Prompt:      prompt,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("coach advice: %w", err)
	}
	return text, nil
}
