package insights

import (
	"fmt"
	"math"
	"strings"
	"time"

	"fincoach/internal/core"
	"fincoach/internal/metrics"
)

// TopCategoryRule fires when one category exceeds 30% of expenses.
type TopCategoryRule struct{}

func (TopCategoryRule) Name() string { return TypeSpendingPattern }

func (TopCategoryRule) Evaluate(s Snapshot) (core.Insight, bool) {
	if len(s.Expenses) == 0 {
		return core.Insight{}, false
	}
	totals := metrics.CategoryTotals(s.Expenses, core.Expense)
	var (
		top    core.Category
		topAmt float64
		sum    float64
	)
	for _, cat := range metrics.SortedCategories(totals) {
		v := totals[cat]
		sum += v
		if v > topAmt {
			top, topAmt = cat, v
		}
	}
	if sum <= 0 {
		return core.Insight{}, false
	}
	pct := topAmt / sum * 100
	if pct <= 30 {
		return core.Insight{}, false
	}
	priority := core.PriorityMedium
	if pct > 50 {
		priority = core.PriorityHigh
	}
	return core.Insight{
		Type:           TypeSpendingPattern,
		Message:        fmt.Sprintf("Your %s spending accounts for %.1f%% ($%.2f) of total expenses.", top, pct, topAmt),
		Recommendation: "Consider reviewing this category for potential savings.",
		Priority:       priority,
	}, true
}

// SavingsRateRule needs both income and expenses. Rates between 10% and 20% are silent.
type SavingsRateRule struct{}

func (SavingsRateRule) Name() string { return "savings_rate" }

func (SavingsRateRule) Evaluate(s Snapshot) (core.Insight, bool) {
	if len(s.Incomes) == 0 || len(s.Expenses) == 0 {
		return core.Insight{}, false
	}
	rate := metrics.ComputeTotals(s.Transactions).SavingsRate * 100
	switch {
	case rate < 10:
		return core.Insight{
			Type:           TypeSavingsAlert,
			Message:        fmt.Sprintf("Your savings rate is %.1f%%. Financial experts recommend saving at least 20%% of your income.", rate),
			Recommendation: "Try to reduce expenses or increase income.",
			Priority:       core.PriorityHigh,
		}, true
	case rate >= 20:
		return core.Insight{
			Type:           TypeSavingsSuccess,
			Message:        fmt.Sprintf("Great job! You're saving %.1f%% of your income.", rate),
			Recommendation: "Keep up the excellent financial discipline!",
			Priority:       core.PriorityLow,
		}, true
	}
	return core.Insight{}, false
}

// SpendingTrendRule compares the 30 days up to the latest expense with the 30 days before.
type SpendingTrendRule struct{}

const trendWindow = 30 * 24 * time.Hour

func (SpendingTrendRule) Name() string { return TypeTrendAlert }

func (SpendingTrendRule) Evaluate(s Snapshot) (core.Insight, bool) {
	if len(s.Expenses) == 0 {
		return core.Insight{}, false
	}
	latest := s.Expenses[0].Date.Time
	for _, tx := range s.Expenses[1:] {
		if tx.Date.After(latest) {
			latest = tx.Date.Time
		}
	}
	lastStart := latest.Add(-trendWindow)
	prevStart := latest.Add(-2 * trendWindow)

	var recent, previous float64
	var nRecent, nPrevious int
	for _, tx := range s.Expenses {
		d := tx.Date.Time
		switch {
		case !d.Before(lastStart):
			recent += tx.Amount.Dollars()
			nRecent++
		case !d.Before(prevStart):
			previous += tx.Amount.Dollars()
			nPrevious++
		}
	}
	if nRecent == 0 || nPrevious == 0 || previous <= 0 {
		return core.Insight{}, false
	}
	change := (recent - previous) / previous * 100
	if math.Abs(change) <= 20 {
		return core.Insight{}, false
	}
	direction := "increased"
	if change < 0 {
		direction = "decreased"
	}
	return core.Insight{
		Type:           TypeTrendAlert,
		Message:        fmt.Sprintf("Your spending has %s by %.1f%% in the last 30 days compared to the previous period.", direction, math.Abs(change)),
		Recommendation: "Review your recent transactions to understand this change.",
		Priority:       core.PriorityMedium,
	}, true
}

// LargeTransactionRule looks for expenses above mean + 2σ over all expenses
// (sample σ, not per category) once ten expenses exist.
type LargeTransactionRule struct{}

const minLargeTransactionSample = 10

func (LargeTransactionRule) Name() string { return TypeAnomaly }

func (LargeTransactionRule) Evaluate(s Snapshot) (core.Insight, bool) {
	if len(s.Expenses) < minLargeTransactionSample {
		return core.Insight{}, false
	}
	amounts := make([]float64, len(s.Expenses))
	for i, tx := range s.Expenses {
		amounts[i] = tx.Amount.Dollars()
	}
	threshold := metrics.Mean(amounts) + 2*metrics.SampleStdDev(amounts)

	count := 0
	var largest core.Transaction
	for i, tx := range s.Expenses {
		if amounts[i] <= threshold {
			continue
		}
		count++
		if count == 1 || tx.Amount.Cents > largest.Amount.Cents {
			largest = tx
		}
	}
	if count == 0 {
		return core.Insight{}, false
	}
	return core.Insight{
		Type:     TypeAnomaly,
		Message:  fmt.Sprintf("Detected %d unusually large transaction(s). Largest: $%.2f in %s.", count, largest.Amount.Dollars(), largest.Category),
		Priority: core.PriorityMedium,
	}, true
}

// CategoryBudgetRule suggests a budget for the first discretionary category,
// alphabetically, whose average transaction exceeds $100.
type CategoryBudgetRule struct{}

var discretionary = map[string]bool{"shopping": true, "entertainment": true, "dining": true}

func (CategoryBudgetRule) Name() string { return TypeRecommendation }

func (CategoryBudgetRule) Evaluate(s Snapshot) (core.Insight, bool) {
	summaries := metrics.CategorySummaries(s.Expenses)
	for _, cat := range metrics.SortedCategories(summaries) {
		sum := summaries[cat]
		if sum.Mean <= 100 || !discretionary[strings.ToLower(string(cat))] {
			continue
		}
		return core.Insight{
			Type:           TypeRecommendation,
			Message:        fmt.Sprintf("Your average %s transaction is $%.2f.", cat, sum.Mean),
			Recommendation: "Consider setting a budget limit for this category to control spending.",
			Priority:       core.PriorityLow,
		}, true
	}
	return core.Insight{}, false
}
