package metrics

import (
	"fmt"

	"fincoach/internal/core"
)

const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// minAnomalySample is the smallest category size that can contain an anomaly.
const minAnomalySample = 3

// Anomaly is an expense far above its category's usual amount.
type Anomaly struct {
	Date          core.Date     `json:"date"`
	Description   string        `json:"description"`
	Category      core.Category `json:"category"`
	Amount        float64       `json:"amount"`
	ExpectedRange string        `json:"expected_range"`
	Severity      string        `json:"severity"`
}

// DetectAnomalies flags expenses above mean + 3σ of their category, using the
// population standard deviation. Anything above mean + 4σ is "high".
// Categories are visited alphabetically; within a category input order is kept.
func DetectAnomalies(txs []core.Transaction) []Anomaly {
	byCat := make(map[core.Category][]core.Transaction)
	for _, tx := range txs {
		if tx.Type == core.Expense {
			byCat[tx.Category] = append(byCat[tx.Category], tx)
		}
	}

	var out []Anomaly
	for _, cat := range SortedCategories(byCat) {
		group := byCat[cat]
		if len(group) < minAnomalySample {
			continue
		}
		amounts := make([]float64, len(group))
		for i, tx := range group {
			amounts[i] = tx.Amount.Dollars()
		}
		mean := Mean(amounts)
		std := PopStdDev(amounts)
		threshold := mean + 3*std
		for i, tx := range group {
			if amounts[i] <= threshold {
				continue
			}
			severity := SeverityMedium
			if amounts[i] > mean+4*std {
				severity = SeverityHigh
			}
			out = append(out, Anomaly{
				Date:          tx.Date,
				Description:   tx.Description,
				Category:      cat,
				Amount:        amounts[i],
				ExpectedRange: fmt.Sprintf("$%.2f ± $%.2f", mean, std),
				Severity:      severity,
			})
		}
	}
	return out
}
