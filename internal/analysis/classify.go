package analysis

import (
	"github.com/shopspring/decimal"

	"spese-insights/internal/core"
)

var (
	saverMaxMean      = decimal.NewFromInt(10000)
	saverMinRatio     = decimal.RequireFromString("0.7")
	spenderMinMean    = decimal.NewFromInt(20000)
	spenderMaxRatio   = decimal.RequireFromString("0.5")
	nonEssentialLimit = decimal.RequireFromString("0.5")
)

// Classify maps a user's mean spend and essential ratio to a label. Bounds
// are strict: values on a threshold fall into Balanced.
func Classify(mean, ratio decimal.Decimal) core.Label {
	switch {
	case mean.LessThan(saverMaxMean) && ratio.GreaterThan(saverMinRatio):
		return core.LabelSaver
	case mean.GreaterThan(spenderMinMean) && ratio.LessThan(spenderMaxRatio):
		return core.LabelSpender
	default:
		return core.LabelBalanced
	}
}

// ClassifyAggregate labels an aggregate; an undefined mean or ratio is Balanced.
func ClassifyAggregate(agg Aggregate) core.Label {
	if !agg.HasMean || !agg.HasRatio {
		return core.LabelBalanced
	}
	return Classify(agg.MeanAmount, agg.EssentialRatio)
}
