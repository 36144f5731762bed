package metrics

import (
	"sort"

	"fincoach/internal/core"
)

const (
	TrendIncreasing       = "increasing"
	TrendDecreasing       = "decreasing"
	TrendStable           = "stable"
	TrendInsufficientData = "insufficient_data"
)

const (
	minStabilityMonths   = 3
	minSeasonalityMonths = 3
	minProjectionPoints  = 3
	seasonalityThreshold = 0.3
)

type IncomeRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// IncomeStability scores a monthly income series. With fewer than three
// months it is the fixed sentinel {0.5, 0, "insufficient_data"}.
type IncomeStability struct {
	StabilityScore float64      `json:"stability_score"`
	Volatility     float64      `json:"volatility"`
	Trend          string       `json:"trend"`
	AverageIncome  float64      `json:"average_income,omitempty"`
	IncomeRange    *IncomeRange `json:"income_range,omitempty"`
}

// InsufficientData reports whether the sentinel was returned.
func (s IncomeStability) InsufficientData() bool {
	return s.Trend == TrendInsufficientData
}

// ComputeIncomeStability expects monthly totals in chronological order.
func ComputeIncomeStability(monthly []float64) IncomeStability {
	if len(monthly) < minStabilityMonths {
		return IncomeStability{StabilityScore: 0.5, Volatility: 0, Trend: TrendInsufficientData}
	}
	mean := Mean(monthly)
	volatility := CoefficientOfVariation(SampleStdDev(monthly), mean)

	slope, _ := LinearFit(monthly)
	trend := TrendStable
	switch {
	case slope > 0:
		trend = TrendIncreasing
	case slope < 0:
		trend = TrendDecreasing
	}

	r := IncomeRange{Min: monthly[0], Max: monthly[0]}
	for _, v := range monthly[1:] {
		r.Min = min(r.Min, v)
		r.Max = max(r.Max, v)
	}

	return IncomeStability{
		StabilityScore: max(0, 1-volatility),
		Volatility:     volatility,
		Trend:          trend,
		AverageIncome:  mean,
		IncomeRange:    &r,
	}
}

// IncomeVolatility is the coefficient of variation of monthly income sums,
// 0 with fewer than two months.
func IncomeVolatility(txs []core.Transaction) float64 {
	series := MonthlySeries(txs, core.Income)
	if len(series) < 2 {
		return 0
	}
	return CoefficientOfVariation(SampleStdDev(series), Mean(series))
}

type SeasonalPattern struct {
	PeakMonths           []int   `json:"peak_months"`
	LowMonths            []int   `json:"low_months"`
	VariationCoefficient float64 `json:"variation_coefficient"`
}

type Seasonality struct {
	Detected bool             `json:"seasonality_detected"`
	Pattern  *SeasonalPattern `json:"pattern"`
}

// DetectSeasonality averages income amounts per calendar month across all
// years. It needs three distinct months and a variation coefficient above 0.3.
func DetectSeasonality(txs []core.Transaction) Seasonality {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, tx := range txs {
		if tx.Type != core.Income {
			continue
		}
		m := int(tx.Date.Month())
		sums[m] += tx.Amount.Dollars()
		counts[m]++
	}
	if len(sums) < minSeasonalityMonths {
		return Seasonality{}
	}

	type monthAvg struct {
		month int
		avg   float64
	}
	avgs := make([]monthAvg, 0, len(sums))
	values := make([]float64, 0, len(sums))
	for m, s := range sums {
		a := s / float64(counts[m])
		avgs = append(avgs, monthAvg{m, a})
		values = append(values, a)
	}

	cv := CoefficientOfVariation(SampleStdDev(values), Mean(values))
	if cv <= seasonalityThreshold {
		return Seasonality{}
	}

	sort.Slice(avgs, func(i, j int) bool {
		if avgs[i].avg != avgs[j].avg {
			return avgs[i].avg > avgs[j].avg
		}
		return avgs[i].month < avgs[j].month
	})
	n := min(3, len(avgs))
	peak := make([]int, 0, n)
	for _, a := range avgs[:n] {
		peak = append(peak, a.month)
	}
	low := make([]int, 0, n)
	for i := len(avgs) - 1; i >= len(avgs)-n; i-- {
		low = append(low, avgs[i].month)
	}
	return Seasonality{
		Detected: true,
		Pattern:  &SeasonalPattern{PeakMonths: peak, LowMonths: low, VariationCoefficient: cv},
	}
}

const (
	ProjectionAvailable        = "available"
	ProjectionInsufficientData = "insufficient_data"
)

type Projection struct {
	Projection      string    `json:"projection"`
	NextThreeMonths []float64 `json:"next_3_months,omitempty"`
	TrendSlope      float64   `json:"trend_slope,omitempty"`
	Confidence      string    `json:"confidence,omitempty"`
}

// ProjectTrend fits the series against x = 0..n-1 and extrapolates to
// x = n+1, n+2 and n+3. Confidence is "medium" from six points, else "low".
func ProjectTrend(monthly []float64) Projection {
	if len(monthly) < minProjectionPoints {
		return Projection{Projection: ProjectionInsufficientData}
	}
	slope, intercept := LinearFit(monthly)
	n := len(monthly)
	next := make([]float64, 3)
	for i := range next {
		next[i] = slope*float64(n+i+1) + intercept
	}
	confidence := "low"
	if n >= 6 {
		confidence = "medium"
	}
	return Projection{
		Projection:      ProjectionAvailable,
		NextThreeMonths: next,
		TrendSlope:      slope,
		Confidence:      confidence,
	}
}

// TimeSeriesPrediction is the result of PredictTimeSeries. Error is set
// instead of the other fields when the series is too short.
type TimeSeriesPrediction struct {
	Predictions []float64 `json:"predictions,omitempty"`
	Trend       string    `json:"trend,omitempty"`
	RSquared    float64   `json:"r_squared,omitempty"`
	Error       string    `json:"error,omitempty"`
}

func PredictTimeSeries(series []float64) TimeSeriesPrediction {
	if len(series) < minProjectionPoints {
		return TimeSeriesPrediction{Error: "Insufficient data for prediction"}
	}
	slope, intercept := LinearFit(series)
	n := len(series)
	preds := make([]float64, 3)
	for i := range preds {
		preds[i] = slope*float64(n+i+1) + intercept
	}
	trend := TrendDecreasing
	if slope > 0 {
		trend = TrendIncreasing
	}
	return TimeSeriesPrediction{
		Predictions: preds,
		Trend:       trend,
		RSquared:    RSquared(series, slope, intercept),
	}
}

// Predictions holds income and expense forecasts keyed by type.
type Predictions struct {
	Income   *TimeSeriesPrediction `json:"income,omitempty"`
	Expenses *TimeSeriesPrediction `json:"expenses,omitempty"`
}

func PredictTrends(txs []core.Transaction) Predictions {
	var p Predictions
	if s := MonthlySeries(txs, core.Income); len(s) > 0 {
		pred := PredictTimeSeries(s)
		p.Income = &pred
	}
	if s := MonthlySeries(txs, core.Expense); len(s) > 0 {
		pred := PredictTimeSeries(s)
		p.Expenses = &pred
	}
	return p
}
