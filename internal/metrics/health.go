package metrics

import "fincoach/internal/core"

// HealthScore is the canonical 0-100 financial health score.
//
// Base 50, plus savings-rate points (25/15/5), expense-ratio points
// (15/10/5) and income-volatility points (10/7/3); irregular employment
// costs 10. The result is clamped to [0, 100].
func HealthScore(savingsRate, expenseRatio, volatility float64, employment core.EmploymentType) int {
	score := 50

	switch {
	case savingsRate >= 0.20:
		score += 25
	case savingsRate >= 0.10:
		score += 15
	case savingsRate >= 0.05:
		score += 5
	}

	switch {
	case expenseRatio <= 0.70:
		score += 15
	case expenseRatio <= 0.85:
		score += 10
	case expenseRatio <= 0.95:
		score += 5
	}

	switch {
	case volatility <= 0.10:
		score += 10
	case volatility <= 0.20:
		score += 7
	case volatility <= 0.30:
		score += 3
	}

	if employment.Irregular() {
		score -= 10
	}
	return min(100, max(0, score))
}

// Risk is a single identified financial risk.
type Risk struct {
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Mitigation  string `json:"mitigation,omitempty"`
}

const (
	RiskLowSavings       = "low_savings"
	RiskHighExpenses     = "high_expenses"
	RiskHighVolatility   = "high_volatility"
	RiskIncomeVolatility = "income_volatility"
	RiskOverspending     = "overspending"
	RiskEmergencyFund    = "emergency_fund"
)

// RiskFactors flags the ratios that feed the health report.
func RiskFactors(savingsRate, expenseRatio, volatility float64) []Risk {
	var risks []Risk
	if savingsRate < 0.05 {
		risks = append(risks, Risk{Type: RiskLowSavings, Severity: SeverityHigh, Description: "Savings rate below 5%"})
	}
	if expenseRatio > 0.95 {
		risks = append(risks, Risk{Type: RiskHighExpenses, Severity: SeverityHigh, Description: "Expenses exceed 95% of income"})
	}
	if volatility > 0.4 {
		risks = append(risks, Risk{Type: RiskHighVolatility, Severity: SeverityMedium, Description: "High income volatility detected"})
	}
	return risks
}

// OverallRisk collapses risk severities into one level. Rules are checked in
// order: two highs, one high, two mediums, one medium.
func OverallRisk(risks []Risk) string {
	var high, medium int
	for _, r := range risks {
		switch r.Severity {
		case SeverityHigh:
			high++
		case SeverityMedium:
			medium++
		}
	}
	switch {
	case high >= 2:
		return "very_high"
	case high >= 1:
		return "high"
	case medium >= 2:
		return "medium"
	case medium >= 1:
		return "low-medium"
	default:
		return "low"
	}
}

// AssessRisks inspects income volatility, overspending and employment type.
func AssessRisks(txs []core.Transaction, employment core.EmploymentType) []Risk {
	var risks []Risk
	incomes := core.Filter(txs, core.Income)
	if len(incomes) > 0 {
		if v := IncomeVolatility(incomes); v > 0.3 {
			severity := SeverityMedium
			if v > 0.5 {
				severity = SeverityHigh
			}
			risks = append(risks, Risk{
				Type:        RiskIncomeVolatility,
				Severity:    severity,
				Description: "High income volatility detected",
				Mitigation:  "Build larger emergency fund (6-12 months expenses)",
			})
		}
	}

	t := ComputeTotals(txs)
	if t.Income > 0 && t.Expenses > 0 && t.Expenses > t.Income*0.9 {
		risks = append(risks, Risk{
			Type:        RiskOverspending,
			Severity:    SeverityHigh,
			Description: "Spending exceeds 90% of income",
			Mitigation:  "Review and reduce non-essential expenses",
		})
	}

	if employment.Irregular() {
		risks = append(risks, Risk{
			Type:        RiskEmergencyFund,
			Severity:    SeverityHigh,
			Description: "Irregular income requires larger emergency fund",
			Mitigation:  "Build 6-12 months of expenses as emergency fund",
		})
	}
	return risks
}

type MitigationStrategy struct {
	Risk     string `json:"risk"`
	Strategy string `json:"strategy"`
	Timeline string `json:"timeline"`
	Priority string `json:"priority"`
}

// MitigationPlan maps assessed risks to strategies; unknown risk types are skipped.
func MitigationPlan(risks []Risk) []MitigationStrategy {
	plan := make([]MitigationStrategy, 0, len(risks))
	for _, r := range risks {
		switch r.Type {
		case RiskIncomeVolatility:
			plan = append(plan, MitigationStrategy{r.Type, "Build emergency fund covering 6-12 months of expenses", "6-12 months", SeverityHigh})
		case RiskOverspending:
			plan = append(plan, MitigationStrategy{r.Type, "Create and follow a strict budget, reduce non-essential expenses", "1-3 months", SeverityHigh})
		case RiskEmergencyFund:
			plan = append(plan, MitigationStrategy{r.Type, "Automate savings to build emergency fund gradually", "12-18 months", SeverityMedium})
		}
	}
	return plan
}

type RiskAssessment struct {
	Risks            []Risk               `json:"risks"`
	OverallRiskLevel string               `json:"overall_risk_level"`
	Recommendations  []MitigationStrategy `json:"recommendations"`
}

func AssessFinancialRisks(txs []core.Transaction, employment core.EmploymentType) RiskAssessment {
	risks := AssessRisks(txs, employment)
	if risks == nil {
		risks = []Risk{}
	}
	return RiskAssessment{
		Risks:            risks,
		OverallRiskLevel: OverallRisk(risks),
		Recommendations:  MitigationPlan(risks),
	}
}

type FinancialHealth struct {
	HealthScore      int     `json:"health_score"`
	SavingsRate      float64 `json:"savings_rate"`
	ExpenseRatio     float64 `json:"expense_ratio"`
	IncomeVolatility float64 `json:"income_volatility"`
	RiskFactors      []Risk  `json:"risk_factors"`
}

func ComputeFinancialHealth(txs []core.Transaction, employment core.EmploymentType) FinancialHealth {
	t := ComputeTotals(txs)
	vol := IncomeVolatility(txs)
	factors := RiskFactors(t.SavingsRate, t.ExpenseRatio, vol)
	if factors == nil {
		factors = []Risk{}
	}
	return FinancialHealth{
		HealthScore:      HealthScore(t.SavingsRate, t.ExpenseRatio, vol, employment),
		SavingsRate:      t.SavingsRate,
		ExpenseRatio:     t.ExpenseRatio,
		IncomeVolatility: vol,
		RiskFactors:      factors,
	}
}
