// Package analysis turns a TransactionSet into a behavioral Report.
//
// The pipeline is strictly sequential: aggregate, classify, fit the monthly
// trend, flag anomalous amounts, then evaluate the suggestion rules.
package analysis

import (
	"context"

	"spese-insights/internal/core"
	"spese-insights/internal/log"
)

// OutlierDetector flags outliers among a list of amounts.
type OutlierDetector interface {
	Detect(values []float64) []bool
}

// Analyzer runs the analysis pipeline. It is stateless; a single Analyzer
// can serve any number of sets.
type Analyzer struct {
	aggregator Aggregator
	detector   OutlierDetector
}

func NewAnalyzer(detector OutlierDetector) *Analyzer {
	return &Analyzer{detector: detector}
}

// Analyze builds the report for the set's subject user. The set must hold at
// least one transaction.
func (a *Analyzer) Analyze(ctx context.Context, set core.TransactionSet) core.Report {
	logger := log.FromContext(ctx).WithComponent(log.ComponentAnalysis)

	if users := set.DistinctUsers(); users > 1 {
		logger.WarnContext(ctx, "Input mixes users; per-user figures cover the first user only, pooled figures cover all",
			log.FieldUserID, set.Subject().String(),
			log.FieldUsers, users)
	}

	agg := a.aggregator.Aggregate(set)
	label := ClassifyAggregate(agg)
	slope := Slope(agg.MonthlyTotals)
	anomalies := a.anomalies(set)

	logger.DebugContext(ctx, "Aggregates computed",
		log.FieldUserID, agg.Subject.String(),
		log.FieldMonths, len(agg.MonthlyTotals),
		log.FieldSlope, slope,
		log.FieldLabel, string(label))

	return core.Report{
		UserID:      agg.Subject,
		TopCategory: agg.TopCategory,
		Label:       label,
		Trend:       TrendMessage(slope),
		Suggestions: Suggest(SuggestionInput{
			Aggregate:    agg,
			Label:        label,
			Slope:        slope,
			AnomalyCount: len(anomalies),
			Set:          set,
		}),
		Anomalies: anomalies,
	}
}

// anomalies runs the detector over every valid amount in the set, pooled
// across users, and projects the flagged transactions in input order.
func (a *Analyzer) anomalies(set core.TransactionSet) []core.Anomaly {
	values := make([]float64, 0, set.Len())
	positions := make([]int, 0, set.Len())
	for i, t := range set.Transactions {
		if v, ok := t.Amount.Float64(); ok {
			values = append(values, v)
			positions = append(positions, i)
		}
	}

	out := []core.Anomaly{}
	for j, flagged := range a.detector.Detect(values) {
		if !flagged {
			continue
		}
		i := positions[j]
		t := set.Transactions[i]
		out = append(out, core.Anomaly{
			Index:           i,
			Date:            t.Date,
			Amount:          t.Amount,
			Category:        t.Category,
			Description:     t.Description,
			WithDescription: set.HasDescription,
		})
	}
	return out
}
