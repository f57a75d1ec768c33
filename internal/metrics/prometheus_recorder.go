package metrics

import (
	"strconv"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "mobilebuild"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once             sync.Once
	stageDuration    *prom.HistogramVec
	stageResults     *prom.CounterVec
	retries          *prom.CounterVec
	retriesExhausted *prom.CounterVec
	pollErrors       prom.Counter
	runDuration      prom.Histogram
	runOutcome       *prom.CounterVec
	apiDuration      *prom.HistogramVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual orchestrator steps",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Step result counts by outcome",
		}, []string{"stage", "result"})
		pr.retries = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_retries_total",
			Help:      "Total step retries (transient failures)",
		}, []string{"stage"})
		pr.retriesExhausted = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_retry_exhausted_total",
			Help:      "Count of steps where retries were exhausted",
		}, []string{"stage"})
		pr.pollErrors = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "poll_errors_total",
			Help:      "Build status fetches that failed while polling",
		})
		pr.runDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Total orchestrator run duration",
			Buckets:   []float64{60, 300, 600, 900, 1200, 1800, 2700, 3600},
		})
		pr.runOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "run_outcomes_total",
			Help:      "Orchestrator runs by final outcome",
		}, []string{"outcome"})
		pr.apiDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Remote API request latency by method and status code",
			Buckets:   prom.DefBuckets,
		}, []string{"method", "code"})
		reg.MustRegister(pr.stageDuration, pr.stageResults, pr.retries, pr.retriesExhausted,
			pr.pollErrors, pr.runDuration, pr.runOutcome, pr.apiDuration)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncRetry(stage string) {
	if p == nil || p.retries == nil {
		return
	}
	p.retries.WithLabelValues(stage).Inc()
}

func (p *PrometheusRecorder) IncRetryExhausted(stage string) {
	if p == nil || p.retriesExhausted == nil {
		return
	}
	p.retriesExhausted.WithLabelValues(stage).Inc()
}

func (p *PrometheusRecorder) IncPollError() {
	if p == nil || p.pollErrors == nil {
		return
	}
	p.pollErrors.Inc()
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil || p.runDuration == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRunOutcome(outcome OutcomeLabel) {
	if p == nil || p.runOutcome == nil {
		return
	}
	p.runOutcome.WithLabelValues(string(outcome)).Inc()
}

// ObserveAPIRequest records a remote call; code 0 means the request never got a response.
func (p *PrometheusRecorder) ObserveAPIRequest(method string, code int, d time.Duration) {
	if p == nil || p.apiDuration == nil {
		return
	}
	p.apiDuration.WithLabelValues(method, strconv.Itoa(code)).Observe(d.Seconds())
}
