package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"spese-insights/internal/amqp"
	"spese-insights/internal/analysis"
	"spese-insights/internal/anomaly"
	"spese-insights/internal/core"
	"spese-insights/internal/loader"
	"spese-insights/internal/log"
	"spese-insights/internal/metrics"
)

const exampleInput = `[{"user_id":1,"amount":5000,"category":"food","expense_date":"2024-01-01"},
{"user_id":1,"amount":6000,"category":"utilities","expense_date":"2024-02-01"}]`

const exampleReport = `{
	"userId": 1,
	"topCategory": "utilities",
	"label": "Saver",
	"trend": "Your expenses are increasing over time. Review your budget.",
	"suggestions": ["You're doing well! Continue tracking and refining your spending habits."],
	"anomalies": []
}`

type mockStore struct {
	mock.Mock
}

func (m *mockStore) SaveInsight(ctx context.Context, id string, report core.Report) error {
	return m.Called(ctx, id, report).Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishInsight(ctx context.Context, msg *amqp.InsightGeneratedMessage) error {
	return m.Called(ctx, msg).Error(0)
}

type mockPusher struct {
	mock.Mock
}

func (m *mockPusher) Push(ctx context.Context, r *metrics.Recorder) error {
	return m.Called(ctx, r).Error(0)
}

func newAnalyzer() *analysis.Analyzer {
	return analysis.NewAnalyzer(anomaly.NewDetector(anomaly.DefaultSeed))
}

func fixedID(id string) Option {
	return func(s *InsightService) { s.newID = func() string { return id } }
}

func TestInsightService_RunWithoutSinks(t *testing.T) {
	var out bytes.Buffer
	outcome, err := NewInsightService(newAnalyzer()).Run(context.Background(), strings.NewReader(exampleInput), &out)

	require.NoError(t, err)
	assert.Equal(t, loader.OutcomeTable, outcome)
	assert.JSONEq(t, exampleReport, out.String())
	assert.True(t, strings.HasSuffix(out.String(), "}\n"))
}

func TestInsightService_SinksReceiveWrittenReport(t *testing.T) {
	store := new(mockStore)
	publisher := new(mockPublisher)
	pusher := new(mockPusher)
	recorder := metrics.NewRecorder()

	var stored core.Report
	store.On("SaveInsight", mock.Anything, "insight-1", mock.AnythingOfType("core.Report")).
		Run(func(args mock.Arguments) { stored = args.Get(2).(core.Report) }).
		Return(nil).Once()
	publisher.On("PublishInsight", mock.Anything, mock.MatchedBy(func(msg *amqp.InsightGeneratedMessage) bool {
		return msg.ID == "insight-1" && msg.UserID == "1" && msg.Label == "Saver" && msg.TopCategory == "utilities"
	})).Return(nil).Once()
	pusher.On("Push", mock.Anything, recorder).Return(nil).Once()

	svc := NewInsightService(newAnalyzer(),
		WithStore(store),
		WithPublisher(publisher),
		WithMetrics(recorder, pusher),
		fixedID("insight-1"),
	)

	var out bytes.Buffer
	_, err := svc.Run(context.Background(), strings.NewReader(exampleInput), &out)
	require.NoError(t, err)

	store.AssertExpectations(t)
	publisher.AssertExpectations(t)
	pusher.AssertExpectations(t)

	assert.Equal(t, core.LabelSaver, stored.Label)
	assert.Equal(t, "utilities", stored.TopCategory)
	assert.JSONEq(t, exampleReport, out.String())

	expected := `
# HELP spending_insights_runs_total Analyzer runs by outcome
# TYPE spending_insights_runs_total counter
spending_insights_runs_total{outcome="report"} 1
`
	require.NoError(t, testutil.GatherAndCompare(recorder.Registry(), strings.NewReader(expected), "spending_insights_runs_total"))
}

func TestInsightService_NoSinksForNonReports(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		outcome loader.Outcome
		want    string
	}{
		{"empty array", `[]`, loader.OutcomeNoData, `{"label":"No data","trend":"No data available for analysis.","topCategory":"None","suggestions":[],"anomalies":[]}`},
		{"not an array", `{"user_id":1}`, loader.OutcomeNoData, `{"label":"No data","trend":"No data available for analysis.","topCategory":"None","suggestions":[],"anomalies":[]}`},
		{"fieldless records", `[{},{}]`, loader.OutcomeEmpty, `{"message":"No expenses found"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := new(mockStore)
			publisher := new(mockPublisher)
			svc := NewInsightService(newAnalyzer(), WithStore(store), WithPublisher(publisher))

			var out bytes.Buffer
			outcome, err := svc.Run(context.Background(), strings.NewReader(tc.input), &out)
			require.NoError(t, err)

			assert.Equal(t, tc.outcome, outcome)
			assert.JSONEq(t, tc.want, out.String())
			store.AssertNotCalled(t, "SaveInsight", mock.Anything, mock.Anything, mock.Anything)
			publisher.AssertNotCalled(t, "PublishInsight", mock.Anything, mock.Anything)
		})
	}
}

func TestInsightService_LoadErrors(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  error
	}{
		{"malformed json", `[{"user_id":1,`, loader.ErrMalformedInput},
		{"missing column", `[{"user_id":1,"amount":5}]`, loader.ErrMissingColumn},
		{"non-object element", `[1,2]`, loader.ErrInvalidRecord},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recorder := metrics.NewRecorder()
			pusher := new(mockPusher)
			pusher.On("Push", mock.Anything, recorder).Return(nil).Once()

			var out bytes.Buffer
			_, err := NewInsightService(newAnalyzer(), WithMetrics(recorder, pusher)).
				Run(context.Background(), strings.NewReader(tc.input), &out)

			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			assert.Empty(t, out.String(), "nothing is written on failure")
			pusher.AssertExpectations(t)
		})
	}
}

func TestInsightService_LoadErrorsAreLoggedUnderLoader(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelError, Format: log.FormatJSON, Component: log.ComponentApp, Output: &buf})
	ctx := log.NewContext(context.Background(), logger)

	_, err := NewInsightService(newAnalyzer()).Run(ctx, strings.NewReader(`[] ]`), &bytes.Buffer{})
	require.Error(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, log.ComponentLoader, rec[log.FieldComponent])
	assert.Equal(t, log.OpParse, rec[log.FieldOperation])
	assert.Equal(t, false, rec[log.FieldSuccess])
}

func TestInsightService_SinkFailuresDoNotFailRun(t *testing.T) {
	store := new(mockStore)
	publisher := new(mockPublisher)
	pusher := new(mockPusher)
	recorder := metrics.NewRecorder()

	store.On("SaveInsight", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()
	publisher.On("PublishInsight", mock.Anything, mock.Anything).Return(errors.New("channel closed")).Once()
	pusher.On("Push", mock.Anything, recorder).Return(errors.New("gateway down")).Once()

	svc := NewInsightService(newAnalyzer(), WithStore(store), WithPublisher(publisher), WithMetrics(recorder, pusher))

	var out bytes.Buffer
	outcome, err := svc.Run(context.Background(), strings.NewReader(exampleInput), &out)

	require.NoError(t, err)
	assert.Equal(t, loader.OutcomeTable, outcome)
	assert.JSONEq(t, exampleReport, out.String())
	store.AssertExpectations(t)
	publisher.AssertExpectations(t)
	pusher.AssertExpectations(t)

	expected := `
# HELP spending_insights_sink_failures_total Post-report sink failures
# TYPE spending_insights_sink_failures_total counter
spending_insights_sink_failures_total{sink="amqp"} 1
spending_insights_sink_failures_total{sink="storage"} 1
`
	require.NoError(t, testutil.GatherAndCompare(recorder.Registry(), strings.NewReader(expected), "spending_insights_sink_failures_total"))
}

func TestInsightService_SinkTimeout(t *testing.T) {
	store := new(mockStore)
	store.On("SaveInsight", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(context.DeadlineExceeded).Once()

	svc := NewInsightService(newAnalyzer(), WithStore(store), WithSinkTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := svc.Run(context.Background(), strings.NewReader(exampleInput), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	store.AssertExpectations(t)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestInsightService_WriteFailure(t *testing.T) {
	store := new(mockStore)
	_, err := NewInsightService(newAnalyzer(), WithStore(store)).
		Run(context.Background(), strings.NewReader(exampleInput), failingWriter{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken pipe")
	store.AssertNotCalled(t, "SaveInsight", mock.Anything, mock.Anything, mock.Anything)
}
