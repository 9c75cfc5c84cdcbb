package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler is invoked after each frame has been applied to the view.
type Handler func(frame Frame, affected []string, view *View)

// Client reads frames from a live channel endpoint.
type Client struct {
	url    string
	dialer *websocket.Dialer
	logger *zap.Logger
	view   *View

	minBackoff time.Duration
	maxBackoff time.Duration
}

// NewClient builds a client for a ws:// or wss:// URL.
func NewClient(url string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		url: url,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		logger:     logger,
		view:       NewView(),
		minBackoff: 500 * time.Millisecond,
		maxBackoff: 30 * time.Second,
	}
}

// View exposes the local mirror.
func (c *Client) View() *View {
	return c.view
}

// Run connects once and applies frames until ctx is cancelled or the
// connection drops.
func (c *Client) Run(ctx context.Context, handle Handler) error {
	_, err := c.run(ctx, handle)
	return err
}

// run reports whether a snapshot was applied before the session ended.
func (c *Client) run(ctx context.Context, handle Handler) (bool, error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		if resp != nil {
			return false, fmt.Errorf("dial %s: %s: %w", c.url, resp.Status, err)
		}
		return false, fmt.Errorf("dial %s: %w", c.url, err)
	}
	defer conn.Close()
	c.logger.Debug("connected", zap.String("url", c.url))

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer stop()

	synced := false
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return synced, ctx.Err()
			}
			return synced, fmt.Errorf("read frame: %w", err)
		}
		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.logger.Warn("skipping undecodable frame", zap.Error(err))
			continue
		}
		affected, err := c.view.Apply(frame)
		if err != nil {
			c.logger.Warn("skipping frame", zap.String("type", frame.Type), zap.Error(err))
			continue
		}
		if frame.Type == "initial_data" {
			synced = true
		}
		if handle != nil {
			handle(frame, affected, c.view)
		}
	}
}

// RunWithRetry reconnects with capped exponential backoff until ctx ends. Every
// reconnect starts with a fresh snapshot, so missed frames are recovered. The
// backoff starts over after any session that received its snapshot.
func (c *Client) RunWithRetry(ctx context.Context, handle Handler) error {
	backoff := c.minBackoff
	for {
		synced, err := c.run(ctx, handle)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if synced {
			backoff = c.minBackoff
		}
		c.logger.Warn("live channel disconnected", zap.Error(err), zap.Duration("retry_in", backoff))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
	}
}
