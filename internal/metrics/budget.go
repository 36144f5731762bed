package metrics

import (
	"sort"

	"fincoach/internal/core"
)

// BudgetSplit is the 50/30/20 allocation of monthly income.
type BudgetSplit struct {
	Needs   float64 `json:"needs"`
	Wants   float64 `json:"wants"`
	Savings float64 `json:"savings"`
}

type BudgetPlan struct {
	Budget          *BudgetSplit              `json:"budget_recommendations,omitempty"`
	CategoryBudgets map[core.Category]float64 `json:"category_budgets"`
	TotalExpenses   float64                   `json:"total_expenses"`
}

// PlanBudget splits income 50/30/20 and trims every expense category above
// 10% of income by 15%.
func PlanBudget(monthlyIncome float64, txs []core.Transaction) BudgetPlan {
	spending := CategoryTotals(txs, core.Expense)
	plan := BudgetPlan{CategoryBudgets: make(map[core.Category]float64, len(spending))}
	if monthlyIncome > 0 {
		plan.Budget = &BudgetSplit{
			Needs:   monthlyIncome * 0.5,
			Wants:   monthlyIncome * 0.3,
			Savings: monthlyIncome * 0.2,
		}
	}
	for cat, amount := range spending {
		plan.TotalExpenses += amount
		if amount > monthlyIncome*0.1 {
			plan.CategoryBudgets[cat] = amount * 0.85
		} else {
			plan.CategoryBudgets[cat] = amount
		}
	}
	return plan
}

type InvestmentStrategy struct {
	Allocation       map[string]int `json:"allocation"`
	RecommendedFunds []string       `json:"recommended_funds"`
	ExpectedReturn   string         `json:"expected_return"`
}

var investmentStrategies = map[string]InvestmentStrategy{
	"conservative": {
		Allocation:       map[string]int{"bonds": 60, "stocks": 30, "cash": 10},
		RecommendedFunds: []string{"Index funds", "Government bonds", "High-yield savings"},
		ExpectedReturn:   "4-6% annually",
	},
	"moderate": {
		Allocation:       map[string]int{"bonds": 40, "stocks": 50, "cash": 10},
		RecommendedFunds: []string{"Balanced index funds", "ETFs", "Some growth stocks"},
		ExpectedReturn:   "6-8% annually",
	},
	"aggressive": {
		Allocation:       map[string]int{"bonds": 20, "stocks": 70, "cash": 10},
		RecommendedFunds: []string{"Growth stocks", "Tech ETFs", "Emerging markets"},
		ExpectedReturn:   "8-12% annually",
	},
}

// StrategyFor returns the allocation for a risk tolerance, defaulting to moderate,
// and the recommended monthly investment (20% of income).
func StrategyFor(riskTolerance string, monthlyIncome float64) (InvestmentStrategy, float64) {
	s, ok := investmentStrategies[riskTolerance]
	if !ok {
		s = investmentStrategies["moderate"]
	}
	return s, monthlyIncome * 0.2
}

type Debt struct {
	Name           string  `json:"name"`
	Amount         float64 `json:"amount"`
	MonthlyPayment float64 `json:"monthly_payment"`
	InterestRate   float64 `json:"interest_rate"`
}

type DebtAnalysis struct {
	TotalDebt         float64 `json:"total_debt"`
	DebtToIncomeRatio float64 `json:"debt_to_income_ratio"`
	// PrioritizedDebts is the avalanche order: highest interest first.
	PrioritizedDebts []Debt `json:"prioritized_debts"`
	// SnowballOrder pays the smallest balance first.
	SnowballOrder []Debt `json:"snowball_order"`
}

func AnalyzeDebts(debts []Debt, monthlyIncome float64) DebtAnalysis {
	var a DebtAnalysis
	var payments float64
	for _, d := range debts {
		a.TotalDebt += d.Amount
		payments += d.MonthlyPayment
	}
	if monthlyIncome > 0 {
		a.DebtToIncomeRatio = payments / monthlyIncome
	}
	a.PrioritizedDebts = append([]Debt(nil), debts...)
	sort.SliceStable(a.PrioritizedDebts, func(i, j int) bool {
		return a.PrioritizedDebts[i].InterestRate > a.PrioritizedDebts[j].InterestRate
	})
	a.SnowballOrder = append([]Debt(nil), debts...)
	sort.SliceStable(a.SnowballOrder, func(i, j int) bool {
		return a.SnowballOrder[i].Amount < a.SnowballOrder[j].Amount
	})
	return a
}
