package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"spese-insights/internal/amqp"
	"spese-insights/internal/core"
	"spese-insights/internal/loader"
	"spese-insights/internal/log"
	"spese-insights/internal/metrics"
	"spese-insights/internal/report"
)

const (
	DefaultSinkTimeout = 10 * time.Second

	sinkStorage = "storage"
	sinkAMQP    = "amqp"
	sinkMetrics = "metrics"

	outcomeError = "error"
)

type Analyzer interface {
	Analyze(ctx context.Context, set core.TransactionSet) core.Report
}

type InsightStore interface {
	SaveInsight(ctx context.Context, id string, report core.Report) error
}

type InsightPublisher interface {
	PublishInsight(ctx context.Context, msg *amqp.InsightGeneratedMessage) error
}

type MetricsPusher interface {
	Push(ctx context.Context, r *metrics.Recorder) error
}

// InsightService turns one input document into one report on the output
// stream, then hands full reports to the configured sinks. Sink failures
// are logged and never fail the run.
type InsightService struct {
	analyzer    Analyzer
	store       InsightStore
	publisher   InsightPublisher
	recorder    *metrics.Recorder
	pusher      MetricsPusher
	sinkTimeout time.Duration
	newID       func() string
}

type Option func(*InsightService)

func WithStore(store InsightStore) Option {
	return func(s *InsightService) { s.store = store }
}

func WithPublisher(publisher InsightPublisher) Option {
	return func(s *InsightService) { s.publisher = publisher }
}

// WithMetrics records run metrics on recorder. A nil pusher keeps them local.
func WithMetrics(recorder *metrics.Recorder, pusher MetricsPusher) Option {
	return func(s *InsightService) {
		s.recorder = recorder
		s.pusher = pusher
	}
}

func WithSinkTimeout(d time.Duration) Option {
	return func(s *InsightService) {
		if d > 0 {
			s.sinkTimeout = d
		}
	}
}

func NewInsightService(analyzer Analyzer, opts ...Option) *InsightService {
	s := &InsightService{
		analyzer:    analyzer,
		sinkTimeout: DefaultSinkTimeout,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run reads the whole input, writes exactly one JSON document to out and
// returns which shape was written. Errors are load or write failures only.
func (s *InsightService) Run(ctx context.Context, in io.Reader, out io.Writer) (loader.Outcome, error) {
	start := time.Now()
	logger := log.FromContext(ctx).WithComponent(log.ComponentInsights)
	structured := log.NewStructuredLogger(logger)

	outcome, rep, err := s.process(ctx, in, out)
	duration := time.Since(start)
	if err != nil {
		component, op := log.ComponentInsights, log.OpAnalyze
		if isLoadError(err) {
			component, op = log.ComponentLoader, log.OpParse
		}
		structured.LogError(ctx, "Analysis failed", err, component, op, nil)
		s.recordRun(outcomeError, duration)
		s.pushMetrics(ctx)
		return outcome, err
	}

	if outcome == loader.OutcomeTable {
		structured.LogAnalysisCompleted(ctx, rep.UserID.String(), rep.transactions, string(rep.Label), len(rep.Anomalies), duration)
		s.dispatch(ctx, rep.Report)
	} else {
		structured.LogOutcome(ctx, outcome.String(), duration)
	}

	s.recordRun(outcome.String(), duration)
	s.pushMetrics(ctx)
	return outcome, nil
}

func isLoadError(err error) bool {
	return errors.Is(err, loader.ErrMalformedInput) ||
		errors.Is(err, loader.ErrInvalidRecord) ||
		errors.Is(err, loader.ErrMissingColumn)
}

type analyzedReport struct {
	core.Report
	transactions int
}

func (s *InsightService) process(ctx context.Context, in io.Reader, out io.Writer) (loader.Outcome, analyzedReport, error) {
	data, err := io.ReadAll(in)
	if err != nil {
		return loader.OutcomeNoData, analyzedReport{}, fmt.Errorf("read input: %w", err)
	}

	res, err := loader.Parse(data)
	if err != nil {
		return res.Outcome, analyzedReport{}, err
	}

	switch res.Outcome {
	case loader.OutcomeNoData:
		return res.Outcome, analyzedReport{}, report.Write(out, core.NewNoDataReport())
	case loader.OutcomeEmpty:
		return res.Outcome, analyzedReport{}, report.Write(out, core.NewNoExpensesReport())
	}

	rep := s.analyzer.Analyze(ctx, res.Set)
	if s.recorder != nil {
		s.recorder.RecordReport(string(rep.Label), res.Set.Len(), len(rep.Anomalies))
	}
	if err := report.Write(out, rep); err != nil {
		return res.Outcome, analyzedReport{}, err
	}
	return res.Outcome, analyzedReport{Report: rep, transactions: res.Set.Len()}, nil
}

// dispatch stores and publishes a written report in parallel, bounded by
// the sink timeout. Both sinks see the same insight ID.
func (s *InsightService) dispatch(ctx context.Context, rep core.Report) {
	if s.store == nil && s.publisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.sinkTimeout)
	defer cancel()

	id := s.newID()
	var g errgroup.Group

	if s.store != nil {
		g.Go(func() error {
			if err := s.store.SaveInsight(ctx, id, rep); err != nil {
				s.sinkFailed(ctx, sinkStorage, log.ComponentStorage, log.OpSave, id, err)
				return fmt.Errorf("%s: %w", sinkStorage, err)
			}
			return nil
		})
	}

	if s.publisher != nil {
		g.Go(func() error {
			if err := s.publisher.PublishInsight(ctx, amqp.NewInsightGeneratedMessage(id, rep)); err != nil {
				s.sinkFailed(ctx, sinkAMQP, log.ComponentAMQP, log.OpPublish, id, err)
				return fmt.Errorf("%s: %w", sinkAMQP, err)
			}
			return nil
		})
	}

	// Failures were logged per sink above; the run still succeeds.
	_ = g.Wait()
}

func (s *InsightService) sinkFailed(ctx context.Context, sink, component, op, id string, err error) {
	log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx, "Insight sink failed", err, component, op,
		log.NewFields().WithSink(sink).WithInsightID(id))
	if s.recorder != nil {
		s.recorder.RecordSinkFailure(sink)
	}
}

func (s *InsightService) recordRun(outcome string, d time.Duration) {
	if s.recorder != nil {
		s.recorder.RecordRun(outcome, d)
	}
}

func (s *InsightService) pushMetrics(ctx context.Context) {
	if s.recorder == nil || s.pusher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.sinkTimeout)
	defer cancel()

	if err := s.pusher.Push(ctx, s.recorder); err != nil {
		log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx, "Insight sink failed", err,
			log.ComponentMetrics, log.OpPush, log.NewFields().WithSink(sinkMetrics))
	}
}
