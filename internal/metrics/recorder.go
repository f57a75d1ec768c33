package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultIgnored  ResultLabel = "ignored"
	ResultFailed   ResultLabel = "failed"
	ResultCanceled ResultLabel = "canceled"
)

// OutcomeLabel is the final outcome of an orchestrator run.
type OutcomeLabel string

const (
	OutcomeSucceeded OutcomeLabel = "succeeded"
	OutcomeFailed    OutcomeLabel = "failed"
	OutcomeAborted   OutcomeLabel = "aborted"
	OutcomeCanceled  OutcomeLabel = "canceled"
)

// Recorder defines observability hooks for orchestrator runs, wrapped steps and
// remote calls.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncRetry(stage string)
	IncRetryExhausted(stage string)
	IncPollError()
	ObserveRunDuration(d time.Duration)
	IncRunOutcome(outcome OutcomeLabel)
	ObserveAPIRequest(method string, code int, d time.Duration)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration)    {}
func (NoopRecorder) IncStageResult(string, ResultLabel)            {}
func (NoopRecorder) IncRetry(string)                               {}
func (NoopRecorder) IncRetryExhausted(string)                      {}
func (NoopRecorder) IncPollError()                                 {}
func (NoopRecorder) ObserveRunDuration(time.Duration)              {}
func (NoopRecorder) IncRunOutcome(OutcomeLabel)                    {}
func (NoopRecorder) ObserveAPIRequest(string, int, time.Duration) {}
