// Package stream consumes the transaction notification feed for one account.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"solana-mirror/internal/observability"
	"solana-mirror/internal/solana"
)

// DefaultReconnectDelay is the fixed wait between reconnect attempts.
const DefaultReconnectDelay = 3 * time.Second

// Consumer maintains a transactionSubscribe session and delivers raw
// notification payloads on an unbuffered channel. A slow receiver blocks
// the read loop; socket-level buffering absorbs short bursts.
type Consumer struct {
	endpoint       string
	target         solana.Pubkey
	logger         *log.Logger
	reconnectDelay time.Duration

	events chan json.RawMessage
}

// Options configures Consumer.
type Options struct {
	// Endpoint is the websocket RPC URL.
	Endpoint string

	// Target is the account whose transactions are streamed.
	Target solana.Pubkey

	Logger *log.Logger

	// ReconnectDelay overrides the fixed delay between reconnect attempts.
	ReconnectDelay time.Duration
}

// NewConsumer creates a feed consumer. It does not connect; call Run.
func NewConsumer(opts Options) *Consumer {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	return &Consumer{
		endpoint:       opts.Endpoint,
		target:         opts.Target,
		logger:         opts.Logger,
		reconnectDelay: opts.ReconnectDelay,
		events:         make(chan json.RawMessage),
	}
}

// Events returns the notification channel. It is closed when Run returns.
func (c *Consumer) Events() <-chan json.RawMessage {
	return c.events
}

// Run connects, subscribes, and pumps notifications until ctx is canceled.
// Any session failure logs the cause and reconnects after a fixed delay;
// the loop never gives up on its own.
func (c *Consumer) Run(ctx context.Context) error {
	defer close(c.events)

	for {
		err := c.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.logger.Printf("stream: session ended: %v, reconnecting in %s", err, c.reconnectDelay)
		observability.RecordReconnect()

		select {
		case <-time.After(c.reconnectDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// runOnce runs a single dial-subscribe-read session.
func (c *Consumer) runOnce(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.endpoint, err)
	}
	defer conn.Close()

	// Unblock ReadMessage on cancellation.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if err := conn.WriteJSON(c.subscribeRequest()); err != nil {
		return fmt.Errorf("send subscribe: %w", err)
	}
	c.logger.Printf("stream: subscribed to transactions mentioning %s", c.target)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		if !json.Valid(data) {
			continue
		}

		// ReadMessage reuses its buffer; hand out a copy.
		raw := make(json.RawMessage, len(data))
		copy(raw, data)

		select {
		case c.events <- raw:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// subscribeRequest builds the transactionSubscribe request for the target.
func (c *Consumer) subscribeRequest() map[string]interface{} {
	return map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "transactionSubscribe",
		"params": []interface{}{
			map[string]interface{}{
				"mentions": []string{c.target.String()},
			},
			map[string]interface{}{
				"commitment":                     "processed",
				"encoding":                       "base64",
				"transactionDetails":             "full",
				"showRewards":                    false,
				"maxSupportedTransactionVersion": 0,
			},
		},
	}
}
