// Package notify announces finished builds to other systems.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
	"git.home.luguber.info/inful/blogbuilder/internal/retry"
	"git.home.luguber.info/inful/blogbuilder/internal/version"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "blogbuilder.builds"

// BuildCompleted is published once per build, whatever its outcome.
type BuildCompleted struct {
	BuildID     string    `json:"build_id"`
	Outcome     string    `json:"outcome"`
	Site        string    `json:"site"`
	SiteURL     string    `json:"site_url"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Documents   int       `json:"documents"`
	Posts       int       `json:"posts"`
	Tags        int       `json:"tags"`
	FeedEntries int       `json:"feed_entries"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	Error       string    `json:"error,omitempty"`
	Version     string    `json:"version"`
}

// Publisher delivers build events.
type Publisher interface {
	Publish(ctx context.Context, event BuildCompleted) error
	Close() error
}

// NoopPublisher discards events (default when no broker is configured).
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, BuildCompleted) error { return nil }
func (NoopPublisher) Close() error                                  { return nil }

// NATSPublisher publishes events as JSON on a NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	policy  retry.Policy
}

// NewNATSPublisher connects to the NATS server at url.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	conn, err := nats.Connect(url,
		nats.Name("blogbuilder"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(3),
	)
	if err != nil {
		return nil, errors.NetworkError("failed to connect to NATS").
			WithCause(err).
			WithContext("url", url).
			Build()
	}
	slog.Info("NATS publisher connected", "url", conn.ConnectedUrlRedacted(), "subject", subject)
	return &NATSPublisher{conn: conn, subject: subject, policy: retry.DefaultPolicy()}, nil
}

// WithRetry sets the backoff used when publishing fails.
func (p *NATSPublisher) WithRetry(policy retry.Policy) *NATSPublisher {
	p.policy = policy
	return p
}

// Publish sends event and waits for the server to acknowledge the flush.
func (p *NATSPublisher) Publish(ctx context.Context, event BuildCompleted) error {
	data, err := Encode(event)
	if err != nil {
		return err
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	err = p.policy.Do(ctx, func() error {
		if err := p.conn.Publish(p.subject, data); err != nil {
			return errors.NetworkError("failed to publish build event").
				WithCause(err).
				WithContext("subject", p.subject).
				Build()
		}
		if err := p.conn.FlushWithContext(ctx); err != nil {
			return errors.NetworkError("failed to flush build event").
				WithCause(err).
				WithContext("subject", p.subject).
				Build()
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.Debug("Published build event", logfields.BuildID(event.BuildID), logfields.Outcome(event.Outcome))
	return nil
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}

// Encode marshals event, filling in the version when unset.
func Encode(event BuildCompleted) ([]byte, error) {
	if event.Version == "" {
		event.Version = version.Version
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, errors.InternalError("failed to marshal build event").
			WithCause(err).
			WithContext("build_id", event.BuildID).
			Build()
	}
	return data, nil
}
