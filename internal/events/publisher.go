// Package events publishes discussion lifecycle events to NATS JetStream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/ashureev/speakup-gd/internal/discussion"
)

const (
	// StreamName is the JetStream stream that holds session events.
	StreamName    = "GD_SESSIONS"
	subjectPrefix = "gd.session."

	defaultQueueSize = 256
	publishTimeout   = 5 * time.Second
)

// Subject returns the subject an event is published on, e.g. gd.session.ended.
func Subject(e discussion.Event) string {
	return subjectPrefix + string(e.Type)
}

type publishFunc func(ctx context.Context, subject string, data []byte) error

// Publisher forwards discussion events to JetStream from a background goroutine.
// Observe never blocks; events are dropped when the queue is full.
type Publisher struct {
	publish publishFunc
	queue   chan discussion.Event
	nc      *nats.Conn
	logger  *slog.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Connect dials natsURL, ensures the session stream exists and starts publishing.
func Connect(ctx context.Context, natsURL string, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	if err := ensureStream(ctx, js, logger); err != nil {
		nc.Close()
		return nil, err
	}

	p := newPublisher(func(ctx context.Context, subject string, data []byte) error {
		_, err := js.Publish(ctx, subject, data)
		return err
	}, defaultQueueSize, logger)
	p.nc = nc
	return p, nil
}

func ensureStream(ctx context.Context, js jetstream.JetStream, logger *slog.Logger) error {
	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{subjectPrefix + ">"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   jetstream.FileStorage,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", StreamName, err)
	}

	logger.Info("created stream", "name", StreamName)
	return nil
}

func newPublisher(publish publishFunc, queueSize int, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	p := &Publisher{
		publish: publish,
		queue:   make(chan discussion.Event, queueSize),
		logger:  logger,
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// Observe implements discussion.Observer.
func (p *Publisher) Observe(_ context.Context, e discussion.Event) {
	defer func() {
		// Observe may race with Close during shutdown.
		_ = recover()
	}()
	select {
	case p.queue <- e:
	default:
		p.logger.Warn("Event queue full, dropping event", "session_id", e.SessionID, "type", e.Type)
	}
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for e := range p.queue {
		data, err := json.Marshal(e)
		if err != nil {
			p.logger.Error("Failed to encode event", "session_id", e.SessionID, "error", err)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := p.publish(ctx, Subject(e), data); err != nil {
			p.logger.Warn("Failed to publish event", "subject", Subject(e), "session_id", e.SessionID, "error", err)
		}
		cancel()
	}
}

// Close drains queued events and closes the NATS connection.
func (p *Publisher) Close() error {
	p.closeOnce.Do(func() {
		close(p.queue)
		p.wg.Wait()
		if p.nc != nil {
			if err := p.nc.Drain(); err != nil {
				p.logger.Warn("NATS drain failed", "error", err)
			}
		}
	})
	return nil
}
