// Package metrics computes spending and income statistics over a snapshot of
// transactions. Every function is pure: inputs are never modified.
package metrics

import "math"

// Mean returns 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// PopStdDev is the population standard deviation (divides by n).
func PopStdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return math.Sqrt(sumSquares(xs) / float64(len(xs)))
}

// SampleStdDev is the sample standard deviation (divides by n-1); 0 below two points.
func SampleStdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return math.Sqrt(sumSquares(xs) / float64(len(xs)-1))
}

func sumSquares(xs []float64) float64 {
	m := Mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return ss
}

// LinearFit is an ordinary least squares fit of ys against x = 0..n-1.
func LinearFit(ys []float64) (slope, intercept float64) {
	n := float64(len(ys))
	if n == 0 {
		return 0, 0
	}
	xMean := (n - 1) / 2
	yMean := Mean(ys)
	var num, den float64
	for i, y := range ys {
		dx := float64(i) - xMean
		num += dx * (y - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0, yMean
	}
	slope = num / den
	return slope, yMean - slope*xMean
}

// RSquared is the coefficient of determination of the fit. A constant series
// is perfectly explained and yields 1.
func RSquared(ys []float64, slope, intercept float64) float64 {
	yMean := Mean(ys)
	var ssRes, ssTot float64
	for i, y := range ys {
		pred := slope*float64(i) + intercept
		ssRes += (y - pred) * (y - pred)
		ssTot += (y - yMean) * (y - yMean)
	}
	if ssTot == 0 {
		return 1
	}
	return 1 - ssRes/ssTot
}

// CoefficientOfVariation is std/mean, or 0 when the mean is not positive.
func CoefficientOfVariation(std, mean float64) float64 {
	if mean <= 0 {
		return 0
	}
	return std / mean
}
