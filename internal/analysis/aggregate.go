package analysis

import (
	"sort"

	"github.com/shopspring/decimal"

	"spese-insights/internal/core"
)

// Aggregate holds the statistics the classifier, trend estimator and
// suggestion rules read. Per-user figures are about the subject user only;
// category totals are pooled over the whole set.
type Aggregate struct {
	Subject core.UserID

	// MeanAmount is undefined (HasMean false) when the subject has no amounts.
	MeanAmount decimal.Decimal
	HasMean    bool

	// EssentialRatio is undefined when the subject's total spend is zero.
	EssentialRatio decimal.Decimal
	HasRatio       bool

	MonthlyTotals  []core.MonthTotal
	CategoryTotals []core.CategoryAmount
	TopCategory    string
}

// Aggregator computes an Aggregate from a TransactionSet.
type Aggregator struct{}

func (Aggregator) Aggregate(set core.TransactionSet) Aggregate {
	subject := set.Subject()
	agg := Aggregate{Subject: subject}

	var (
		total     = decimal.Zero
		essential = decimal.Zero
		count     int64
	)
	monthly := make(map[string]decimal.Decimal)
	for _, t := range set.Transactions {
		if !t.UserID.Equal(subject) {
			continue
		}
		if !t.Date.IsEmpty() {
			key := t.Date.MonthKey()
			sum := monthly[key]
			if t.Amount.Valid {
				sum = sum.Add(t.Amount.Value)
			}
			monthly[key] = sum
		}
		if !t.Amount.Valid {
			continue
		}
		total = total.Add(t.Amount.Value)
		count++
		if t.Category != nil && core.IsEssential(*t.Category) {
			essential = essential.Add(t.Amount.Value)
		}
	}

	if count > 0 {
		agg.MeanAmount = total.Div(decimal.NewFromInt(count))
		agg.HasMean = true
	}
	if !total.IsZero() {
		agg.EssentialRatio = essential.Div(total)
		agg.HasRatio = true
	}

	agg.MonthlyTotals = monthlyTotals(monthIndex(set), monthly)
	agg.CategoryTotals = categoryTotals(set)
	agg.TopCategory = topCategory(agg.CategoryTotals)

	return agg
}

// monthIndex assigns every month that appears anywhere in the set its
// chronological ordinal.
func monthIndex(set core.TransactionSet) map[string]int {
	seen := make(map[string]struct{})
	for _, t := range set.Transactions {
		if !t.Date.IsEmpty() {
			seen[t.Date.MonthKey()] = struct{}{}
		}
	}
	months := make([]string, 0, len(seen))
	for m := range seen {
		months = append(months, m)
	}
	sort.Strings(months)

	index := make(map[string]int, len(months))
	for i, m := range months {
		index[m] = i
	}
	return index
}

func monthlyTotals(index map[string]int, monthly map[string]decimal.Decimal) []core.MonthTotal {
	totals := make([]core.MonthTotal, 0, len(monthly))
	for month, sum := range monthly {
		totals = append(totals, core.MonthTotal{Month: month, Index: index[month], Total: sum})
	}
	sort.Slice(totals, func(i, j int) bool {
		return totals[i].Month < totals[j].Month
	})
	return totals
}

// categoryTotals sums amounts by category, sorted by name. A category whose
// amounts are all null still appears with a zero total.
func categoryTotals(set core.TransactionSet) []core.CategoryAmount {
	sums := make(map[string]decimal.Decimal)
	for _, t := range set.Transactions {
		if t.Category == nil {
			continue
		}
		sum := sums[*t.Category]
		if t.Amount.Valid {
			sum = sum.Add(t.Amount.Value)
		}
		sums[*t.Category] = sum
	}

	totals := make([]core.CategoryAmount, 0, len(sums))
	for name, sum := range sums {
		totals = append(totals, core.CategoryAmount{Name: name, Amount: sum})
	}
	sort.Slice(totals, func(i, j int) bool {
		return totals[i].Name < totals[j].Name
	})
	return totals
}

// topCategory picks the largest total; on ties the first name in
// lexicographic order wins because totals are sorted by name.
func topCategory(totals []core.CategoryAmount) string {
	if len(totals) == 0 {
		return core.NoDataCategory
	}
	best := totals[0]
	for _, c := range totals[1:] {
		if c.Amount.GreaterThan(best.Amount) {
			best = c
		}
	}
	return best.Name
}
