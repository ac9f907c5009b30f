package analysis

import (
	"github.com/shopspring/decimal"

	"spese-insights/internal/core"
)

const (
	TrendIncreasing = "Your expenses are increasing over time. Review your budget."
	TrendDecreasing = "Your expenses are decreasing. Great job!"
	TrendStable     = "Your expenses are stable."
)

// Slope fits total = a*index + b by ordinary least squares and returns a.
// Fewer than two points, or points sharing one index, give a flat fit.
//
// The numerator n*Σxy - Σx*Σy is computed in decimal so that its sign is
// exact: a constant series yields exactly zero.
func Slope(points []core.MonthTotal) float64 {
	n := int64(len(points))
	if n < 2 {
		return 0
	}

	var sumX, sumXX int64
	sumY, sumXY := decimal.Zero, decimal.Zero
	for _, p := range points {
		x := int64(p.Index)
		sumX += x
		sumXX += x * x
		sumY = sumY.Add(p.Total)
		sumXY = sumXY.Add(p.Total.Mul(decimal.NewFromInt(x)))
	}

	den := n*sumXX - sumX*sumX
	if den == 0 {
		return 0
	}
	num := sumXY.Mul(decimal.NewFromInt(n)).Sub(sumY.Mul(decimal.NewFromInt(sumX)))
	if num.IsZero() {
		return 0
	}
	return num.InexactFloat64() / float64(den)
}

// TrendMessage describes the direction of a slope.
func TrendMessage(slope float64) string {
	switch {
	case slope > 0:
		return TrendIncreasing
	case slope < 0:
		return TrendDecreasing
	default:
		return TrendStable
	}
}
