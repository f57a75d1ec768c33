package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/mobilebuild/internal/config"
	"git.home.luguber.info/inful/mobilebuild/internal/foundation/errors"
)

// NATSPublisher publishes events as JSON to a NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

// NewNATSPublisher connects to the configured NATS server.
func NewNATSPublisher(cfg config.EventsConfig) (*NATSPublisher, error) {
	if cfg.NATSURL == "" {
		return nil, errors.ConfigError("events.nats_url is required for NATS publishing").Build()
	}
	subject := cfg.Subject
	if subject == "" {
		subject = config.DefaultEventsSubject
	}

	conn, err := nats.Connect(cfg.NATSURL,
		nats.Name("mobilebuild"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(5),
	)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryEvents, "failed to connect to NATS").
			WithContext("url", cfg.NATSURL).
			Build()
	}

	slog.Info("NATS publisher initialized", "url", cfg.NATSURL, "subject", subject)
	return &NATSPublisher{conn: conn, subject: subject}, nil
}

// Publish sends ev on the configured subject suffixed by the event type,
// e.g. mobilebuild.runs.stage.failed.
func (p *NATSPublisher) Publish(ctx context.Context, ev Event) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return errors.WrapError(err, errors.CategoryEvents, "failed to marshal event").Build()
	}
	subject := p.subject + "." + string(ev.Type)
	if err := p.conn.Publish(subject, data); err != nil {
		return errors.WrapError(err, errors.CategoryEvents, "failed to publish event").
			WithContext("subject", subject).
			Build()
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return errors.WrapError(err, errors.CategoryEvents, "failed to flush event").
			WithContext("subject", subject).
			Build()
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}

// FromConfig returns a NATS publisher when events are configured and a NoopPublisher otherwise.
func FromConfig(cfg config.EventsConfig) (Publisher, error) {
	if cfg.NATSURL == "" {
		return NoopPublisher{}, nil
	}
	return NewNATSPublisher(cfg)
}
