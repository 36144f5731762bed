// Package advice composes personalized recommendations from transaction
// history, using the LLM when it answers and fixed rules when it does not.
package advice

import (
	"encoding/json"

	"fincoach/internal/core"
	"fincoach/internal/metrics"
)

type FinancialSummary struct {
	TotalIncome      float64         `json:"total_income"`
	TotalExpenses    float64         `json:"total_expenses"`
	TransactionCount int             `json:"transaction_count"`
	Categories       []core.Category `json:"categories"`
}

type ProfileSummary struct {
	EmploymentType  core.EmploymentType `json:"employment_type"`
	MonthlyIncome   float64             `json:"monthly_income"`
	MonthlyExpenses float64             `json:"monthly_expenses"`
}

// Context is the JSON blob handed to the model.
type Context struct {
	FinancialSummary FinancialSummary `json:"financial_summary"`
	UserProfile      ProfileSummary   `json:"user_profile"`
	IncomeVolatility float64          `json:"income_volatility"`
	SavingsRate      float64          `json:"savings_rate"`
}

// BuildContext lists categories in order of first appearance. A nil profile
// is reported as employment type "unknown".
func BuildContext(txs []core.Transaction, profile *core.Profile) Context {
	t := metrics.ComputeTotals(txs)
	seen := make(map[core.Category]bool)
	cats := []core.Category{}
	for _, tx := range txs {
		if !seen[tx.Category] {
			seen[tx.Category] = true
			cats = append(cats, tx.Category)
		}
	}

	c := Context{
		FinancialSummary: FinancialSummary{
			TotalIncome:      t.Income,
			TotalExpenses:    t.Expenses,
			TransactionCount: len(txs),
			Categories:       cats,
		},
		UserProfile:      ProfileSummary{EmploymentType: core.Unknown},
		IncomeVolatility: metrics.IncomeVolatility(txs),
		SavingsRate:      t.SavingsRate,
	}
	if profile != nil {
		c.UserProfile = ProfileSummary{
			EmploymentType:  profile.EmploymentType,
			MonthlyIncome:   profile.MonthlyIncome.Dollars(),
			MonthlyExpenses: profile.MonthlyExpenses.Dollars(),
		}
	}
	return c
}

// JSON renders the context indented, as embedded in the prompt.
func (c Context) JSON() string {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
