package analysis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"spese-insights/internal/anomaly"
	"spese-insights/internal/core"
)

type mockDetector struct {
	mock.Mock
}

func (m *mockDetector) Detect(values []float64) []bool {
	args := m.Called(values)
	return args.Get(0).([]bool)
}

func TestAnalyze_ExampleReport(t *testing.T) {
	set := buildSet(t,
		tx{date: "2024-01-01", amount: 5000, category: "food"},
		tx{date: "2024-02-01", amount: 6000, category: "utilities"},
	)

	report := NewAnalyzer(anomaly.NewDetector(anomaly.DefaultSeed)).Analyze(context.Background(), set)

	assert.Equal(t, "1", report.UserID.String())
	assert.Equal(t, core.LabelSaver, report.Label)
	assert.Equal(t, "utilities", report.TopCategory)
	assert.Equal(t, TrendIncreasing, report.Trend)
	assert.Equal(t, []string{SuggestKeepTracking}, report.Suggestions)
	assert.Empty(t, report.Anomalies)
	assert.NotNil(t, report.Anomalies, "anomalies serialize as an empty list")

	b, err := json.Marshal(report)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"userId": 1,
		"topCategory": "utilities",
		"label": "Saver",
		"trend": "Your expenses are increasing over time. Review your budget.",
		"suggestions": ["You're doing well! Continue tracking and refining your spending habits."],
		"anomalies": []
	}`, string(b))
}

func TestAnalyze_AnomalyProjection(t *testing.T) {
	desc := strPtr("new laptop")
	set := buildSet(t,
		tx{date: "2024-01-01", amount: 10, category: "food", desc: strPtr("lunch")},
		tx{date: "2024-01-02", noAmount: true, category: "food"},
		tx{date: "2024-01-03", amount: 90000, category: "items", desc: desc},
		tx{amount: 20, category: "food"},
	)

	det := new(mockDetector)
	det.On("Detect", []float64{10, 90000, 20}).Return([]bool{false, true, false}).Once()

	report := NewAnalyzer(det).Analyze(context.Background(), set)
	det.AssertExpectations(t)

	require.Len(t, report.Anomalies, 1)
	a := report.Anomalies[0]
	assert.Equal(t, 2, a.Index, "positions refer to the input, skipping null amounts only in the model")
	assert.Equal(t, desc, a.Description)

	b, err := json.Marshal(report.Anomalies)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"expense_date":"2024-01-03T00:00:00","amount":90000,"category":"items","description":"new laptop"}]`, string(b))
}

func TestAnalyze_IrregularSuggestionUsesAnomalyCount(t *testing.T) {
	set := buildSet(t,
		tx{date: "2024-01-01", amount: 1, category: "food"},
		tx{date: "2024-01-02", amount: 2, category: "food"},
		tx{date: "2024-01-03", amount: 3, category: "food"},
	)
	det := new(mockDetector)
	det.On("Detect", mock.Anything).Return([]bool{true, true, true})

	report := NewAnalyzer(det).Analyze(context.Background(), set)
	assert.Len(t, report.Anomalies, 3)
	assert.Contains(t, report.Suggestions, "We noticed 3 irregular transactions. Review these to ensure they were intentional.")
}

func TestAnalyze_Deterministic(t *testing.T) {
	faker := gofakeit.New(2024)
	categories := []string{"food", "utilities", "health", "entertainment", "gifts", "items", "travel"}
	methods := []string{"cash", "upi", "card"}
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	rows := make([]tx, 300)
	for i := range rows {
		rows[i] = tx{
			date:     faker.DateRange(start, end).Format("2006-01-02"),
			amount:   float64(faker.Number(50, 40000)),
			category: faker.RandomString(categories),
			pay:      faker.RandomString(methods),
			desc:     strPtr(faker.Word()),
		}
	}
	set := buildSet(t, rows...)

	first := NewAnalyzer(anomaly.NewDetector(anomaly.DefaultSeed)).Analyze(context.Background(), set)
	for range 3 {
		again := NewAnalyzer(anomaly.NewDetector(anomaly.DefaultSeed)).Analyze(context.Background(), set)
		assert.Equal(t, first, again)
	}
	assert.NotEmpty(t, first.Suggestions)
}

func TestAnalyze_MonotonicSeries(t *testing.T) {
	cases := []struct {
		name    string
		amounts []float64
		want    string
	}{
		{"increasing", []float64{100, 200, 300, 400}, TrendIncreasing},
		{"decreasing", []float64{400, 300, 200, 100}, TrendDecreasing},
		{"constant", []float64{250, 250, 250, 250}, TrendStable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rows := make([]tx, len(tc.amounts))
			for i, a := range tc.amounts {
				rows[i] = tx{date: time.Date(2024, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC).Format("2006-01-02"), amount: a, category: "food"}
			}
			report := NewAnalyzer(anomaly.NewDetector(anomaly.DefaultSeed)).Analyze(context.Background(), buildSet(t, rows...))
			assert.Equal(t, tc.want, report.Trend)
		})
	}
}
