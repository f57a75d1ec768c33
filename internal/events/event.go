// Package events publishes build run lifecycle events.
package events

import (
	"context"
	"errors"
	"time"
)

// Type names a lifecycle transition.
type Type string

const (
	RunStarted     Type = "run.started"
	RunSucceeded   Type = "run.succeeded"
	RunFailed      Type = "run.failed"
	StageStarted   Type = "stage.started"
	StageSucceeded Type = "stage.succeeded"
	StageFailed    Type = "stage.failed"
	StageIgnored   Type = "stage.ignored"
	BuildTriggered Type = "build.triggered"
	BuildPolled    Type = "build.polled"
)

// Event is one lifecycle transition of a run.
type Event struct {
	Type      Type      `json:"type"`
	RunID     string    `json:"run_id"`
	Project   string    `json:"project"`
	Owner     string    `json:"owner"`
	Stage     string    `json:"stage,omitempty"`
	BuildID   int       `json:"build_id,omitempty"`
	Status    string    `json:"status,omitempty"`
	Result    string    `json:"result,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher delivers events. Publishing is best effort: callers log failures and continue.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
func (NoopPublisher) Close() error                         { return nil }

// Recorder keeps published events in memory. It is used by tests and the report renderer.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.Events = append(r.Events, ev)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Types returns the recorded event types in order.
func (r *Recorder) Types() []Type {
	out := make([]Type, 0, len(r.Events))
	for _, ev := range r.Events {
		out = append(out, ev.Type)
	}
	return out
}

// Multi fans each event out to every publisher. All publishers are attempted; their
// errors are joined.
func Multi(pubs ...Publisher) Publisher {
	return multi(pubs)
}

type multi []Publisher

func (m multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
