package analysis

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spese-insights/internal/core"
)

func TestAggregate_MeanAndRatio(t *testing.T) {
	set := buildSet(t,
		tx{date: "2024-01-05", amount: 3000, category: "food"},
		tx{date: "2024-01-20", amount: 1000, category: "entertainment"},
		tx{date: "2024-02-03", amount: 2000, category: "health"},
		tx{date: "2024-02-04", noAmount: true, category: "food"},
	)

	agg := Aggregator{}.Aggregate(set)

	require.True(t, agg.HasMean)
	assert.True(t, agg.MeanAmount.Equal(decimal.NewFromInt(2000)), "mean skips null amounts, got %s", agg.MeanAmount)
	require.True(t, agg.HasRatio)
	assert.True(t, agg.EssentialRatio.Equal(decimal.RequireFromString("0.8333333333333333")), "got %s", agg.EssentialRatio)
	assert.Equal(t, "food", agg.TopCategory)
}

func TestAggregate_MonthlyTotalsUseGlobalMonthIndex(t *testing.T) {
	set := buildSet(t,
		tx{user: "1", date: "2024-03-01", amount: 300, category: "food"},
		tx{user: "2", date: "2024-01-01", amount: 50, category: "food"},
		tx{user: "2", date: "2024-02-01", amount: 50, category: "food"},
		tx{user: "1", date: "2024-01-15", amount: 100, category: "food"},
		tx{user: "1", date: "2024-01-20", amount: 20, category: "food"},
		tx{user: "1", amount: 999, category: "food"},
	)

	agg := Aggregator{}.Aggregate(set)

	require.Len(t, agg.MonthlyTotals, 2)
	assert.Equal(t, "2024-01", agg.MonthlyTotals[0].Month)
	assert.Equal(t, 0, agg.MonthlyTotals[0].Index)
	assert.True(t, agg.MonthlyTotals[0].Total.Equal(decimal.NewFromInt(120)))
	assert.Equal(t, "2024-03", agg.MonthlyTotals[1].Month)
	assert.Equal(t, 2, agg.MonthlyTotals[1].Index, "February exists only for another user but still takes an index")
	assert.True(t, agg.MonthlyTotals[1].Total.Equal(decimal.NewFromInt(300)))
}

func TestAggregate_MonthWithOnlyNullAmountsCountsAsZero(t *testing.T) {
	set := buildSet(t,
		tx{date: "2024-01-01", amount: 100, category: "food"},
		tx{date: "2024-02-01", noAmount: true, category: "food"},
	)
	agg := Aggregator{}.Aggregate(set)
	require.Len(t, agg.MonthlyTotals, 2)
	assert.True(t, agg.MonthlyTotals[1].Total.IsZero())
}

func TestAggregate_PerUserFiguresCoverSubjectOnly(t *testing.T) {
	set := buildSet(t,
		tx{user: `"a"`, date: "2024-01-01", amount: 100, category: "food"},
		tx{user: `"b"`, date: "2024-01-01", amount: 900, category: "gifts"},
	)
	agg := Aggregator{}.Aggregate(set)

	assert.Equal(t, "a", agg.Subject.String())
	assert.True(t, agg.MeanAmount.Equal(decimal.NewFromInt(100)))
	assert.True(t, agg.EssentialRatio.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, "gifts", agg.TopCategory, "category totals are pooled across users")
}

func TestAggregate_TopCategoryTieBreak(t *testing.T) {
	set := buildSet(t,
		tx{date: "2024-01-01", amount: 500, category: "utilities"},
		tx{date: "2024-01-02", amount: 500, category: "food"},
		tx{date: "2024-01-03", amount: 200, category: "gifts"},
	)
	agg := Aggregator{}.Aggregate(set)
	assert.Equal(t, "food", agg.TopCategory)

	require.Len(t, agg.CategoryTotals, 3)
	assert.Equal(t, []string{"food", "gifts", "utilities"}, []string{
		agg.CategoryTotals[0].Name, agg.CategoryTotals[1].Name, agg.CategoryTotals[2].Name,
	})
}

func TestAggregate_Degenerate(t *testing.T) {
	t.Run("no categories", func(t *testing.T) {
		agg := Aggregator{}.Aggregate(buildSet(t, tx{date: "2024-01-01", amount: 10}))
		assert.Equal(t, core.NoDataCategory, agg.TopCategory)
	})

	t.Run("no amounts", func(t *testing.T) {
		agg := Aggregator{}.Aggregate(buildSet(t, tx{date: "2024-01-01", noAmount: true, category: "food"}))
		assert.False(t, agg.HasMean)
		assert.False(t, agg.HasRatio)
		assert.Equal(t, "food", agg.TopCategory)
	})

	t.Run("zero total", func(t *testing.T) {
		agg := Aggregator{}.Aggregate(buildSet(t,
			tx{date: "2024-01-01", amount: 0, category: "food"},
		))
		assert.True(t, agg.HasMean)
		assert.False(t, agg.HasRatio)
	})

	t.Run("no essentials", func(t *testing.T) {
		agg := Aggregator{}.Aggregate(buildSet(t, tx{date: "2024-01-01", amount: 10, category: "gifts"}))
		require.True(t, agg.HasRatio)
		assert.True(t, agg.EssentialRatio.IsZero())
	})

	t.Run("no dates", func(t *testing.T) {
		agg := Aggregator{}.Aggregate(buildSet(t, tx{amount: 10, category: "food"}))
		assert.Empty(t, agg.MonthlyTotals)
	})
}
