package metrics

import (
	"strings"

	"fincoach/internal/core"
)

const (
	GoalEmergencyFund = "emergency_fund"
	GoalSavings       = "savings_goals"
	GoalDebtReduction = "debt_reduction"
	GoalInvestment    = "investment_goals"
)

type EmergencyFundProgress struct {
	Status             string  `json:"status"`
	TargetMonths       int     `json:"target_months"`
	CurrentSavings     float64 `json:"current_savings"`
	TargetAmount       float64 `json:"target_amount"`
	ProgressPercentage float64 `json:"progress_percentage"`
	MonthsCovered      int     `json:"months_covered"`
}

// EmergencyFund compares net savings with targetMonths of average monthly
// expenses. Months are counted by distinct expense months.
func EmergencyFund(txs []core.Transaction, targetMonths int) EmergencyFundProgress {
	p := EmergencyFundProgress{TargetMonths: targetMonths}
	expenseMonths := MonthlyTotals(txs, core.Expense)
	if len(expenseMonths) == 0 {
		p.Status = "no_data"
		return p
	}
	t := ComputeTotals(txs)
	monthly := t.Expenses / float64(len(expenseMonths))
	p.CurrentSavings = t.Savings
	p.TargetAmount = monthly * float64(targetMonths)
	if p.TargetAmount > 0 {
		p.ProgressPercentage = t.Savings / p.TargetAmount * 100
	}
	if monthly > 0 {
		p.MonthsCovered = int(t.Savings / monthly)
	}
	p.Status = "in_progress"
	if p.ProgressPercentage >= 100 {
		p.Status = "on_track"
	}
	return p
}

type SavingsProgress struct {
	SavingsRate    float64 `json:"savings_rate"`
	TotalSaved     float64 `json:"total_saved"`
	TargetRate     float64 `json:"target_rate"`
	Recommendation string  `json:"recommendation"`
}

func SavingsGoal(txs []core.Transaction, targetRate float64) SavingsProgress {
	t := ComputeTotals(txs)
	return SavingsProgress{
		SavingsRate:    t.SavingsRate,
		TotalSaved:     t.Savings,
		TargetRate:     targetRate,
		Recommendation: "Aim for 20% savings rate for optimal financial health",
	}
}

// CategoryProgress summarizes payments into a set of category names.
type CategoryProgress struct {
	Status         string  `json:"status,omitempty"`
	Total          float64 `json:"total"`
	Frequency      int     `json:"frequency"`
	Recommendation string  `json:"recommendation,omitempty"`
}

var (
	debtCategories       = []string{"debt", "loan", "credit card"}
	investmentCategories = []string{"investment", "stocks", "retirement"}
)

func DebtReduction(txs []core.Transaction) CategoryProgress {
	p := categoryProgress(txs, debtCategories)
	if p.Frequency == 0 {
		p.Status = "no_debt_detected"
		return p
	}
	p.Recommendation = "Consider increasing debt payments to save on interest"
	return p
}

func InvestmentProgress(txs []core.Transaction) CategoryProgress {
	p := categoryProgress(txs, investmentCategories)
	if p.Frequency == 0 {
		p.Status = "no_investments_detected"
		return p
	}
	p.Recommendation = "Consider regular investment contributions for long-term growth"
	return p
}

func categoryProgress(txs []core.Transaction, names []string) CategoryProgress {
	var p CategoryProgress
	for _, tx := range txs {
		cat := strings.ToLower(string(tx.Category))
		for _, n := range names {
			if cat == n {
				p.Total += tx.Amount.Dollars()
				p.Frequency++
				break
			}
		}
	}
	return p
}

type GoalsAnalysis struct {
	EmergencyFund   EmergencyFundProgress `json:"emergency_fund"`
	SavingsGoals    SavingsProgress       `json:"savings_goals"`
	DebtReduction   CategoryProgress      `json:"debt_reduction"`
	InvestmentGoals CategoryProgress      `json:"investment_goals"`
}

func AnalyzeGoals(txs []core.Transaction, emergencyMonths int, savingsTarget float64) GoalsAnalysis {
	return GoalsAnalysis{
		EmergencyFund:   EmergencyFund(txs, emergencyMonths),
		SavingsGoals:    SavingsGoal(txs, savingsTarget),
		DebtReduction:   DebtReduction(txs),
		InvestmentGoals: InvestmentProgress(txs),
	}
}
