// Package metrics records per-run analyzer metrics on a private registry
// and pushes them to a Prometheus Pushgateway.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"spese-insights/internal/log"
)

const namespace = "spending_insights"

type Recorder struct {
	registry     *prometheus.Registry
	runs         *prometheus.CounterVec
	runDuration  prometheus.Histogram
	transactions prometheus.Gauge
	anomalies    prometheus.Gauge
	labels       *prometheus.CounterVec
	sinkFailures *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Analyzer runs by outcome",
			},
			[]string{"outcome"},
		),
		runDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_milliseconds",
				Help:      "Time from reading input to writing the report",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
			},
		),
		transactions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "transactions",
				Help:      "Transactions in the last analyzed batch",
			},
		),
		anomalies: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "anomalies",
				Help:      "Anomalies flagged in the last analyzed batch",
			},
		),
		labels: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "labels_total",
				Help:      "Reports by spending label",
			},
			[]string{"label"},
		),
		sinkFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sink_failures_total",
				Help:      "Post-report sink failures",
			},
			[]string{"sink"},
		),
	}
}

// Registry exposes the private registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) RecordRun(outcome string, duration time.Duration) {
	r.runs.WithLabelValues(outcome).Inc()
	r.runDuration.Observe(float64(duration.Milliseconds()))
}

func (r *Recorder) RecordReport(label string, transactions, anomalies int) {
	r.labels.WithLabelValues(label).Inc()
	r.transactions.Set(float64(transactions))
	r.anomalies.Set(float64(anomalies))
}

func (r *Recorder) RecordSinkFailure(sink string) {
	r.sinkFailures.WithLabelValues(sink).Inc()
}

// Pusher sends a Recorder's registry to a Pushgateway under a job name.
type Pusher struct {
	url string
	job string
}

func NewPusher(url, job string) *Pusher {
	return &Pusher{url: url, job: job}
}

func (p *Pusher) Push(ctx context.Context, r *Recorder) error {
	err := push.New(p.url, p.job).
		Gatherer(r.registry).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics to %s: %w", p.url, err)
	}

	log.FromContext(ctx).WithComponent(log.ComponentMetrics).DebugContext(ctx, "Metrics pushed",
		"url", p.url,
		"job", p.job)
	return nil
}
