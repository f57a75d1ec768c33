package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mobilebuild/internal/config"
	"git.home.luguber.info/inful/mobilebuild/internal/foundation/errors"
)

func TestFromConfigWithoutURLIsNoop(t *testing.T) {
	p, err := FromConfig(config.EventsConfig{})
	require.NoError(t, err)
	require.IsType(t, NoopPublisher{}, p)
	require.NoError(t, p.Publish(context.Background(), Event{Type: RunStarted}))
	require.NoError(t, p.Close())
}

func TestNATSPublisherRequiresURL(t *testing.T) {
	_, err := NewNATSPublisher(config.EventsConfig{})
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestNATSPublisherConnectFailure(t *testing.T) {
	_, err := NewNATSPublisher(config.EventsConfig{NATSURL: "nats://127.0.0.1:1"})
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryEvents))
}

func TestRecorderKeepsOrder(t *testing.T) {
	r := &Recorder{}
	ctx := context.Background()
	require.NoError(t, r.Publish(ctx, Event{Type: RunStarted}))
	require.NoError(t, r.Publish(ctx, Event{Type: StageStarted, Stage: "connect_repo"}))
	require.Equal(t, []Type{RunStarted, StageStarted}, r.Types())
}

func TestEventJSONShape(t *testing.T) {
	ev := Event{Type: BuildTriggered, RunID: "r1", Project: "demo", BuildID: 7, Timestamp: time.Unix(0, 0).UTC()}
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"build.triggered","run_id":"r1","project":"demo","owner":"","build_id":7,"timestamp":"1970-01-01T00:00:00Z"}`, string(data))
}

type failingPublisher struct{ err error }

func (f failingPublisher) Publish(context.Context, Event) error { return f.err }
func (f failingPublisher) Close() error                         { return nil }

func TestMultiDeliversToEveryPublisher(t *testing.T) {
	first, second := &Recorder{}, &Recorder{}
	boom := errors.RuntimeError("broker down").Build()
	p := Multi(first, failingPublisher{err: boom}, second)

	err := p.Publish(context.Background(), Event{Type: RunStarted})
	require.ErrorIs(t, err, boom)
	require.Equal(t, []Type{RunStarted}, first.Types())
	require.Equal(t, []Type{RunStarted}, second.Types())
	require.NoError(t, p.Close())
}
