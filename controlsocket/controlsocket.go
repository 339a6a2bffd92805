// Package controlsocket is the optional JSON-RPC-ish control-plane client
// the host may dial out to, reporting session lifecycle events a monitoring
// tool or dashboard can subscribe to. It has nothing to do with the
// protocol engine's own UDP control messages; it's a side channel for
// observability (spec.md §1 "the optional JSON-RPC control socket").
package controlsocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// ErrClosed is returned by Notify once the client has been closed.
var ErrClosed = errors.New("controlsocket: connection is closed")

// StatusEvent is one notification published over the socket: an id for
// correlation, a method name describing what happened, and an opaque
// params payload.
type StatusEvent struct {
	ID     string      `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

// Client is a thin, rate-limited wrapper around a websocket connection to
// the control plane.
type Client struct {
	conn      *websocket.Conn
	sendLimit *rate.Limiter
	closed    bool
}

// Dial connects to addr and returns a ready-to-use Client.
func Dial(ctx context.Context, addr string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, addr, nil)
	if err != nil {
		return nil, errors.Wrap(err, "controlsocket: dial")
	}

	return &Client{
		conn:      conn,
		sendLimit: rate.NewLimiter(rate.Every(100*time.Millisecond), 5),
	}, nil
}

// Notify publishes a status event with a freshly generated id. It blocks
// briefly if the client is sending faster than the configured rate limit.
func (c *Client) Notify(ctx context.Context, method string, params interface{}) error {
	if c.closed {
		return ErrClosed
	}

	if err := c.sendLimit.Wait(ctx); err != nil {
		return errors.Wrap(err, "controlsocket: rate limit wait")
	}

	ev := StatusEvent{ID: uuid.NewString(), Method: method, Params: params}
	b, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "controlsocket: marshal event")
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return errors.Wrap(err, "controlsocket: write")
	}
	return nil
}

// Close tears down the underlying connection. Safe to call more than once.
func (c *Client) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}
