package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/newsradar-io/newsradar/internal/config"
)

// Client wraps a NATS connection with JetStream support.
type Client struct {
	conn *nats.Conn
	js   jetstream.JetStream
}

// NewClient connects to NATS and ensures the events stream exists.
func NewClient(ctx context.Context, cfg config.NATSConfig) (*Client, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slog.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	c := &Client{conn: nc, js: js}

	if err := c.ensureStreams(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensuring streams: %w", err)
	}

	slog.Info("connected to NATS", "url", cfg.URL)
	return c, nil
}

func (c *Client) ensureStreams(ctx context.Context) error {
	streams := []jetstream.StreamConfig{
		{
			Name:      StreamEvents,
			Subjects:  []string{"newsradar.events.>"},
			Retention: jetstream.LimitsPolicy,
			MaxAge:    7 * 24 * time.Hour,
		},
		{
			Name:      StreamTasks,
			Subjects:  []string{"newsradar.tasks.>"},
			Retention: jetstream.WorkQueuePolicy,
			MaxAge:    1 * time.Hour,
		},
	}

	for _, cfg := range streams {
		if _, err := c.js.CreateOrUpdateStream(ctx, cfg); err != nil {
			return fmt.Errorf("creating stream %s: %w", cfg.Name, err)
		}
		slog.Debug("ensured NATS stream", "name", cfg.Name)
	}
	return nil
}

// JetStream returns the JetStream context.
func (c *Client) JetStream() jetstream.JetStream {
	return c.js
}

// Healthy returns true if NATS connection is active.
func (c *Client) Healthy() bool {
	return c.conn.IsConnected()
}

// Close drains and closes the NATS connection.
func (c *Client) Close() {
	if err := c.conn.Drain(); err != nil {
		slog.Warn("draining NATS connection", "error", err)
	}
}
