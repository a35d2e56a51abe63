// Package natspub mirrors run events onto NATS JetStream so external
// consumers can follow runs without polling the run store.
package natspub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/conveyor/internal/config"
	"git.home.luguber.info/inful/conveyor/internal/events"
	"git.home.luguber.info/inful/conveyor/internal/logfields"
	"git.home.luguber.info/inful/conveyor/internal/retry"
)

// Publisher manages the NATS connection and stream for run event mirroring.
type Publisher struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	cfg    config.NATSConfig
	policy retry.Policy
}

// NewPublisher connects to NATS and ensures the run event stream exists.
func NewPublisher(cfg config.NATSConfig) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("nats publishing is disabled")
	}

	conn, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	p := &Publisher{
		conn:   conn,
		js:     js,
		cfg:    cfg,
		policy: retry.DefaultPolicy(),
	}

	if err := p.ensureStream(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ensure stream: %w", err)
	}

	slog.Info("NATS publisher initialized",
		"url", cfg.URL,
		logfields.Subject(cfg.Subject),
		"stream", cfg.Stream)

	return p, nil
}

// ensureStream creates or reuses the JetStream stream for run events.
func (p *Publisher) ensureStream() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := p.js.Stream(ctx, p.cfg.Stream); err == nil {
		return nil
	}

	_, err := p.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        p.cfg.Stream,
		Description: "Conveyor run events",
		Subjects:    []string{p.cfg.Subject + ".>"},
		MaxBytes:    100 * 1024 * 1024,
		Retention:   jetstream.LimitsPolicy,
	})
	return err
}

// Handler returns a bus handler that mirrors every event it receives.
// Publish failures are logged, never propagated: a broken mirror must not
// fail the run.
func (p *Publisher) Handler() events.Handler {
	return func(e events.Event) error {
		if err := p.publish(e); err != nil {
			slog.Warn("failed to publish run event",
				"event", e.Name(),
				logfields.RunID(e.GetRunID()),
				logfields.Error(err))
		}
		return nil
	}
}

func (p *Publisher) publish(e events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	subject := p.cfg.Subject + "." + e.Name()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return p.policy.Do(ctx, func() error {
		_, err := p.js.Publish(ctx, subject, data)
		return err
	}, func(error) bool { return true })
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if p.conn != nil {
		if err := p.conn.Drain(); err != nil {
			p.conn.Close()
		}
	}
}
