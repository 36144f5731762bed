package insights

import (
	"fmt"
	"sort"

	"fincoach/internal/core"
	"fincoach/internal/metrics"
)

const (
	// RecentWindow is how many latest transactions real-time rules look at.
	RecentWindow     = 30
	minRecentHistory = 5
	minSpikeSample   = 3
	minIncomeSample  = 3
	maxIncomeGapDays = 14
)

// RealTime inspects a newly stored transaction against the user's most
// recent transactions, which include tx itself.
func RealTime(tx core.Transaction, recent []core.Transaction) []core.Insight {
	if len(recent) < minRecentHistory {
		return nil
	}
	var out []core.Insight
	switch tx.Type {
	case core.Expense:
		if in, ok := spendingSpike(tx, recent); ok {
			out = append(out, in)
		}
	case core.Income:
		if in, ok := incomeGap(recent); ok {
			out = append(out, in)
		}
	}
	return out
}

func spendingSpike(tx core.Transaction, recent []core.Transaction) (core.Insight, bool) {
	var amounts []float64
	for _, r := range recent {
		if r.Type == core.Expense && r.Category == tx.Category {
			amounts = append(amounts, r.Amount.Dollars())
		}
	}
	if len(amounts) < minSpikeSample {
		return core.Insight{}, false
	}
	avg := metrics.Mean(amounts)
	if tx.Amount.Dollars() <= avg+2*metrics.PopStdDev(amounts) {
		return core.Insight{}, false
	}
	return core.Insight{
		Type:     TypeSpendingPattern,
		Message:  fmt.Sprintf("Unusual spending detected in %s: $%.2f is significantly higher than your average of $%.2f", tx.Category, tx.Amount.Dollars(), avg),
		Priority: core.PriorityHigh,
	}, true
}

func incomeGap(recent []core.Transaction) (core.Insight, bool) {
	incomes := core.Filter(recent, core.Income)
	if len(incomes) < minIncomeSample {
		return core.Insight{}, false
	}
	sort.Slice(incomes, func(i, j int) bool { return incomes[i].Date.Before(incomes[j].Date.Time) })
	gaps := make([]float64, 0, len(incomes)-1)
	for i := 1; i < len(incomes); i++ {
		days := int(incomes[i].Date.Sub(incomes[i-1].Date.Time).Hours() / 24)
		gaps = append(gaps, float64(days))
	}
	avg := metrics.Mean(gaps)
	if avg <= maxIncomeGapDays {
		return core.Insight{}, false
	}
	return core.Insight{
		Type:           TypeIncomeAlert,
		Message:        fmt.Sprintf("Irregular income pattern detected: Average gap of %.1f days between income sources.", avg),
		Recommendation: "Consider building a larger emergency fund.",
		Priority:       core.PriorityMedium,
	}, true
}
