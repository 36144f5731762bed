package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"fincoach/internal/core"
	"fincoach/internal/llm"
	"fincoach/internal/metrics"
)

const coachSystem = "You are an expert financial coach."

const advicePrompt = `As a financial coach, provide specific, actionable advice based on this context:

Context: %s
Advice Type: %s

Provide 3-5 specific recommendations. Each recommendation should be:
- Actionable and specific
- Tailored to the financial situation
- Include expected outcomes
- Be realistic and practical

Format as a JSON array of strings.`

var (
	defaultAdvice = []string{
		"Focus on increasing your savings rate",
		"Review and reduce unnecessary expenses",
		"Build an emergency fund",
	}
	unavailableAdvice = []string{
		"Track your spending to identify areas for improvement",
		"Aim to save at least 20% of your income",
		"Build an emergency fund covering 3-6 months of expenses",
	}
	debtStrategies = map[string]map[string]string{
		"avalanche": {
			"description":          "Pay highest interest debt first",
			"total_interest_saved": "Maximum",
			"time_to_debt_free":    "Fastest for high-interest debt",
		},
		"snowball": {
			"description":          "Pay smallest debt first",
			"total_interest_saved": "More than minimum payments",
			"time_to_debt_free":    "Psychological wins",
		},
	}
)

// FinancialAgent answers from the user's transactions and profile, and asks
// the model only for the advice list.
type FinancialAgent struct {
	llm llm.Completer
}

func NewFinancialAgent(c llm.Completer) *FinancialAgent {
	if c == nil {
		c = llm.Disabled{}
	}
	return &FinancialAgent{llm: c}
}

func (a *FinancialAgent) ID() string   { return "financial_agent" }
func (a *FinancialAgent) Name() string { return "Financial Coach" }
func (a *FinancialAgent) Type() Type   { return Financial }

func (a *FinancialAgent) Capabilities() []string {
	return []string{
		"Analyze spending patterns and identify trends",
		"Assess income stability and variability",
		"Create personalized budgets",
		"Provide investment recommendations",
		"Develop debt reduction strategies",
		"Optimize emergency fund planning",
		"Generate financial health reports",
		"Predict financial trends",
	}
}

func (a *FinancialAgent) Process(ctx context.Context, req Request) Result {
	switch req.TaskType {
	case "spending_analysis":
		return a.spending(ctx, req)
	case "income_analysis":
		return a.income(ctx, req)
	case "budget_planning":
		return a.budget(ctx, req)
	case "investment_guidance":
		return a.investment(ctx, req)
	case "debt_management":
		return a.debt(ctx, req)
	case "comprehensive_analysis":
		return a.comprehensive(ctx, req)
	default:
		return a.general(ctx, req)
	}
}

func (a *FinancialAgent) spending(ctx context.Context, req Request) Result {
	r := envelope(a, "spending_analysis", true)
	if len(req.Transactions) == 0 {
		r["message"] = "No transaction data available"
		r["recommendations"] = []string{"Start adding transactions to see spending patterns"}
		return r
	}
	spending := metrics.CategoryTotals(req.Transactions, core.Expense)
	var total float64
	for _, v := range spending {
		total += v
	}
	insights := []string{}
	if top, amount, ok := largest(spending); ok && total > 0 {
		if pct := amount / total * 100; pct > 40 {
			insights = append(insights, fmt.Sprintf("%.1f%% of spending is in %s", pct, top))
		}
	}
	r["category_spending"] = spending
	r["total_spending"] = total
	r["insights"] = insights
	r["recommendations"] = a.advise(ctx, "Spending by category: "+formatAmounts(spending), "spending_patterns")
	return r
}

func (a *FinancialAgent) income(ctx context.Context, req Request) Result {
	r := envelope(a, "income_analysis", true)
	if len(core.Filter(req.Transactions, core.Income)) == 0 {
		r["message"] = "No income data available"
		r["recommendations"] = []string{"Add income transactions to see income patterns"}
		return r
	}
	monthly := metrics.MonthlyTotals(req.Transactions, core.Income)
	volatility := monthlyVolatility(metrics.MonthlySeries(req.Transactions, core.Income))
	summary := fmt.Sprintf("Monthly income: %s, Volatility: %.2f", formatMonthly(monthly), volatility)
	r["monthly_income"] = monthly
	r["volatility"] = volatility
	r["stability_score"] = max(0, 1-volatility)
	r["recommendations"] = a.advise(ctx, summary, "income_stability")
	return r
}

func (a *FinancialAgent) budget(ctx context.Context, req Request) Result {
	income := monthlyIncome(req)
	plan := metrics.PlanBudget(income, req.Transactions)
	spending := metrics.CategoryTotals(req.Transactions, core.Expense)
	r := envelope(a, "budget_planning", true)
	r["budget_recommendations"] = plan.Budget
	r["category_budgets"] = plan.CategoryBudgets
	r["total_expenses"] = plan.TotalExpenses
	summary := fmt.Sprintf("Current spending: %s, Monthly income: %.2f", formatAmounts(spending), income)
	r["recommendations"] = a.advise(ctx, summary, "budget_planning")
	return r
}

func (a *FinancialAgent) investment(ctx context.Context, req Request) Result {
	tolerance := field(req.Data, "risk_tolerance", "")
	goals := field(req.Data, "investment_goals", "")
	if req.Profile != nil {
		if tolerance == "" {
			tolerance = req.Profile.RiskTolerance
		}
		if goals == "" {
			goals = strings.Join(req.Profile.FinancialGoals, ", ")
		}
	}
	if tolerance == "" {
		tolerance = "moderate"
	}
	income := monthlyIncome(req)
	strategy, amount := metrics.StrategyFor(tolerance, income)
	r := envelope(a, "investment_guidance", true)
	r["strategy"] = strategy
	r["recommended_monthly_investment"] = amount
	summary := fmt.Sprintf("Risk tolerance: %s, Monthly income: %.2f, Goals: [%s]", tolerance, income, goals)
	r["recommendations"] = a.advise(ctx, summary, "investment_guidance")
	return r
}

func (a *FinancialAgent) debt(ctx context.Context, req Request) Result {
	var debts []metrics.Debt
	if err := decode(req.Data, "debts", &debts); err != nil {
		return failure(a, "debt_management", err)
	}
	r := envelope(a, "debt_management", true)
	if len(debts) == 0 {
		r["message"] = "No debt data available"
		r["recommendations"] = []string{"Continue debt-free status"}
		return r
	}
	analysis := metrics.AnalyzeDebts(debts, monthlyIncome(req))
	r["total_debt"] = analysis.TotalDebt
	r["debt_to_income_ratio"] = analysis.DebtToIncomeRatio
	r["prioritized_debts"] = analysis.PrioritizedDebts
	r["snowball_order"] = analysis.SnowballOrder
	r["strategies"] = debtStrategies
	raw, _ := json.Marshal(debts)
	summary := fmt.Sprintf("Total debt: %.2f, Debt-to-income: %.2f, Debts: %s",
		analysis.TotalDebt, analysis.DebtToIncomeRatio, raw)
	r["recommendations"] = a.advise(ctx, summary, "debt_management")
	return r
}

func (a *FinancialAgent) comprehensive(ctx context.Context, req Request) Result {
	spending := a.spending(ctx, req)
	income := a.income(ctx, req)
	budget := a.budget(ctx, req)

	totals := metrics.ComputeTotals(req.Transactions)
	volatility, _ := income["volatility"].(float64)
	employment := core.Unknown
	if req.Profile != nil {
		employment = req.Profile.EmploymentType
	}
	summary := fmt.Sprintf(`Financial Profile:
- Total Income: $%.2f
- Total Expenses: $%.2f
- Savings Rate: %.2f%%
- Income Volatility: %.2f
- Employment Type: %s`, totals.Income, totals.Expenses, totals.SavingsRate*100, volatility, employment)

	r := envelope(a, "comprehensive_analysis", true)
	r["health_score"] = metrics.HealthScore(totals.SavingsRate, totals.ExpenseRatio, volatility, employment)
	r["savings_rate"] = totals.SavingsRate
	r["spending_analysis"] = spending
	r["income_analysis"] = income
	r["budget_plan"] = budget
	r["comprehensive_recommendations"] = a.advise(ctx, summary, "comprehensive_analysis")
	return r
}

func (a *FinancialAgent) general(ctx context.Context, req Request) Result {
	raw, err := json.MarshalIndent(req.Data, "", "  ")
	if err != nil {
		return failure(a, "general_advice", err)
	}
	r := envelope(a, "general_advice", true)
	r["recommendations"] = a.advise(ctx, string(raw), "general_advice")
	return r
}

// advise always returns a list; model failures fall back to stock advice.
func (a *FinancialAgent) advise(ctx context.Context, summary, adviceType string) []string {
	text, err := ask(ctx, a.llm, coachSystem, fmt.Sprintf(advicePrompt, summary, adviceType))
	if err != nil {
		return append([]string(nil), unavailableAdvice...)
	}
	return ParseAdvice(text)
}

// ParseAdvice reads a JSON array of strings, then up to five bullet lines
// ("-", "•" or "*"), and otherwise returns the stock advice.
func ParseAdvice(text string) []string {
	body := strings.TrimSpace(text)
	if i, j := strings.Index(body, "["), strings.LastIndex(body, "]"); i >= 0 && j > i {
		var items []any
		if err := json.Unmarshal([]byte(body[i:j+1]), &items); err == nil {
			out := make([]string, 0, len(items))
			for _, item := range items {
				if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
					out = append(out, strings.TrimSpace(s))
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	var bullets []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "•") && !strings.HasPrefix(line, "*") {
			continue
		}
		if item := strings.TrimSpace(strings.Trim(line, "-•* ")); item != "" {
			bullets = append(bullets, item)
		}
		if len(bullets) == 5 {
			break
		}
	}
	if len(bullets) > 0 {
		return bullets
	}
	return append([]string(nil), defaultAdvice...)
}

func monthlyIncome(req Request) float64 {
	if v, ok := number(req.Data, "monthly_income"); ok {
		return v
	}
	if req.Profile != nil {
		return req.Profile.MonthlyIncome.Dollars()
	}
	return 0
}

// monthlyVolatility is the population coefficient of variation; a single
// month has none.
func monthlyVolatility(series []float64) float64 {
	if len(series) < 2 {
		return 0
	}
	return metrics.CoefficientOfVariation(metrics.PopStdDev(series), metrics.Mean(series))
}

func largest(m map[core.Category]float64) (core.Category, float64, bool) {
	var (
		top   core.Category
		value float64
		found bool
	)
	for _, cat := range metrics.SortedCategories(m) {
		if !found || m[cat] > value {
			top, value, found = cat, m[cat], true
		}
	}
	return top, value, found
}

func formatAmounts(m map[core.Category]float64) string {
	parts := make([]string, 0, len(m))
	for _, cat := range metrics.SortedCategories(m) {
		parts = append(parts, fmt.Sprintf("%s: %.2f", cat, m[cat]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func formatMonthly(m map[string]float64) string {
	byMonth := make(map[core.Category]float64, len(m))
	for k, v := range m {
		byMonth[core.Category(k)] = v
	}
	return formatAmounts(byMonth)
}
