package metrics

import (
	"sort"

	"fincoach/internal/core"
)

// CategorySummary aggregates expense amounts for one category.
type CategorySummary struct {
	Sum   float64 `json:"sum"`
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
}

// Totals are the headline figures of a transaction set.
type Totals struct {
	Income           float64 `json:"total_income"`
	Expenses         float64 `json:"total_expenses"`
	Savings          float64 `json:"savings"`
	SavingsRate      float64 `json:"savings_rate"`
	ExpenseRatio     float64 `json:"expense_ratio"`
	TransactionCount int     `json:"transaction_count"`
}

// ComputeTotals derives savings rate and expense ratio; both are 0 without income.
func ComputeTotals(txs []core.Transaction) Totals {
	t := Totals{TransactionCount: len(txs)}
	for _, tx := range txs {
		switch tx.Type {
		case core.Income:
			t.Income += tx.Amount.Dollars()
		case core.Expense:
			t.Expenses += tx.Amount.Dollars()
		}
	}
	t.Savings = t.Income - t.Expenses
	if t.Income > 0 {
		t.SavingsRate = t.Savings / t.Income
		t.ExpenseRatio = t.Expenses / t.Income
	}
	return t
}

// CategorySummaries covers expense transactions only.
func CategorySummaries(txs []core.Transaction) map[core.Category]CategorySummary {
	out := make(map[core.Category]CategorySummary)
	for _, tx := range txs {
		if tx.Type != core.Expense {
			continue
		}
		s := out[tx.Category]
		s.Sum += tx.Amount.Dollars()
		s.Count++
		out[tx.Category] = s
	}
	for c, s := range out {
		s.Mean = s.Sum / float64(s.Count)
		out[c] = s
	}
	return out
}

func CategoryTotals(txs []core.Transaction, typ core.TxType) map[core.Category]float64 {
	out := make(map[core.Category]float64)
	for _, tx := range txs {
		if tx.Type == typ {
			out[tx.Category] += tx.Amount.Dollars()
		}
	}
	return out
}

// MonthlyTotals buckets amounts of one type by "YYYY-MM".
func MonthlyTotals(txs []core.Transaction, typ core.TxType) map[string]float64 {
	out := make(map[string]float64)
	for _, tx := range txs {
		if tx.Type == typ {
			out[tx.Date.MonthKey()] += tx.Amount.Dollars()
		}
	}
	return out
}

// MonthlySeries returns MonthlyTotals as a chronologically ordered slice.
func MonthlySeries(txs []core.Transaction, typ core.TxType) []float64 {
	buckets := MonthlyTotals(txs, typ)
	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	series := make([]float64, len(keys))
	for i, k := range keys {
		series[i] = buckets[k]
	}
	return series
}

// SortedCategories returns map keys in alphabetical order.
func SortedCategories[V any](m map[core.Category]V) []core.Category {
	keys := make([]core.Category, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

type SpendingPatterns struct {
	CategorySpending map[core.Category]float64 `json:"category_spending"`
	MonthlyTrends    map[string]float64        `json:"monthly_trends"`
	TotalExpenses    float64                   `json:"total_expenses"`
	AverageMonthly   float64                   `json:"average_monthly"`
}

func AnalyzeSpendingPatterns(txs []core.Transaction) SpendingPatterns {
	p := SpendingPatterns{
		CategorySpending: CategoryTotals(txs, core.Expense),
		MonthlyTrends:    MonthlyTotals(txs, core.Expense),
	}
	for _, v := range p.CategorySpending {
		p.TotalExpenses += v
	}
	if len(p.MonthlyTrends) > 0 {
		p.AverageMonthly = p.TotalExpenses / float64(len(p.MonthlyTrends))
	}
	return p
}

// Income stability labels used by IncomeVariability.
const (
	IncomeStable         = "stable"
	IncomeModerate       = "moderate"
	IncomeHighlyVariable = "highly_variable"
)

type IncomeVariability struct {
	MonthlyIncome   map[string]float64 `json:"monthly_income"`
	AverageIncome   float64            `json:"average_income"`
	TotalIncome     float64            `json:"total_income"`
	Variability     float64            `json:"variability"`
	IncomeStability string             `json:"income_stability"`
}

func AnalyzeIncomeVariability(txs []core.Transaction) IncomeVariability {
	v := IncomeVariability{MonthlyIncome: MonthlyTotals(txs, core.Income)}
	series := MonthlySeries(txs, core.Income)
	for _, x := range series {
		v.TotalIncome += x
	}
	v.AverageIncome = Mean(series)
	v.Variability = CoefficientOfVariation(SampleStdDev(series), v.AverageIncome)
	switch {
	case v.Variability < 0.2:
		v.IncomeStability = IncomeStable
	case v.Variability < 0.5:
		v.IncomeStability = IncomeModerate
	default:
		v.IncomeStability = IncomeHighlyVariable
	}
	return v
}
