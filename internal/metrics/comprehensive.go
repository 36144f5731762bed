package metrics

import "fincoach/internal/core"

// Comprehensive bundles every derived metric for one user.
type Comprehensive struct {
	Totals           Totals           `json:"totals"`
	SpendingPatterns SpendingPatterns `json:"spending_patterns"`
	Anomalies        []Anomaly        `json:"anomalies"`
	IncomeStability  IncomeStability  `json:"income_stability"`
	Seasonality      Seasonality      `json:"seasonality"`
	Projection       Projection       `json:"income_projection"`
	Predictions      Predictions      `json:"predictions"`
	Health           FinancialHealth  `json:"financial_health"`
	RiskAssessment   RiskAssessment   `json:"risk_assessment"`
}

func ComprehensiveAnalysis(txs []core.Transaction, employment core.EmploymentType) Comprehensive {
	income := MonthlySeries(txs, core.Income)
	anomalies := DetectAnomalies(txs)
	if anomalies == nil {
		anomalies = []Anomaly{}
	}
	return Comprehensive{
		Totals:           ComputeTotals(txs),
		SpendingPatterns: AnalyzeSpendingPatterns(txs),
		Anomalies:        anomalies,
		IncomeStability:  ComputeIncomeStability(income),
		Seasonality:      DetectSeasonality(txs),
		Projection:       ProjectTrend(income),
		Predictions:      PredictTrends(txs),
		Health:           ComputeFinancialHealth(txs, employment),
		RiskAssessment:   AssessFinancialRisks(txs, employment),
	}
}
