// Package client subscribes to live config updates over WebSocket using a
// config's capability key.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/juhojo/blabbermouth/pkg/cuid"
)

var (
	ErrInvalidURL = errors.New("client: url must be ws:// or wss:// with a host")
	ErrInvalidKey = errors.New("client: ck query parameter is not a valid capability key")
	// ErrUnauthorized means the server rejected the key. Retrying will not help.
	ErrUnauthorized = errors.New("client: capability key rejected")
)

type Field struct {
	ID       int64  `json:"id"`
	ConfigID int64  `json:"config_id"`
	Key      string `json:"key"`
	Value    string `json:"value"`
}

// Update is pushed after every field change of the subscribed config.
type Update struct {
	ID     int64   `json:"id"`
	Fields []Field `json:"fields"`
}

// Values returns the fields as a key/value map. Later duplicates win.
func (u Update) Values() map[string]string {
	m := make(map[string]string, len(u.Fields))
	for _, f := range u.Fields {
		m[f.Key] = f.Value
	}
	return m
}

type Client struct {
	url    string
	dialer *websocket.Dialer
	log    *slog.Logger

	minBackoff time.Duration
	maxBackoff time.Duration
}

type Option func(*Client)

func WithLogger(log *slog.Logger) Option {
	return func(c *Client) { c.log = log }
}

func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// WithBackoff sets the reconnect delay bounds used by Run.
func WithBackoff(initial, limit time.Duration) Option {
	return func(c *Client) {
		c.minBackoff = initial
		c.maxBackoff = limit
	}
}

// ParseURL validates a subscription URL such as ws://localhost:3001/?ck=<key>
// and returns the key.
func ParseURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return "", ErrInvalidURL
	}
	ck := u.Query().Get("ck")
	if !cuid.IsValid(ck) {
		return "", ErrInvalidKey
	}
	return ck, nil
}

// BuildURL joins a server address and a capability key.
func BuildURL(server, ck string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", ErrInvalidURL
	}
	q := u.Query()
	q.Set("ck", ck)
	u.RawQuery = q.Encode()
	if u.Path == "" {
		u.Path = "/"
	}
	raw := u.String()
	if _, err := ParseURL(raw); err != nil {
		return "", err
	}
	return raw, nil
}

func New(rawURL string, opts ...Option) (*Client, error) {
	if _, err := ParseURL(rawURL); err != nil {
		return nil, err
	}
	c := &Client{
		url:        rawURL,
		dialer:     websocket.DefaultDialer,
		log:        slog.Default(),
		minBackoff: time.Second,
		maxBackoff: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Subscribe connects once and calls onUpdate for every pushed update until
// ctx is cancelled (nil is returned) or the connection fails.
func (c *Client) Subscribe(ctx context.Context, onUpdate func(Update)) error {
	conn, resp, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusUnauthorized {
				return ErrUnauthorized
			}
		}
		return fmt.Errorf("client: dial: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		var u Update
		if err := conn.ReadJSON(&u); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("client: read: %w", err)
		}
		onUpdate(u)
	}
}

// Run is Subscribe with reconnects. It backs off exponentially between
// attempts and gives up only on ctx cancellation or ErrUnauthorized.
func (c *Client) Run(ctx context.Context, onUpdate func(Update)) error {
	backoff := c.minBackoff
	for {
		start := time.Now()
		err := c.Subscribe(ctx, onUpdate)
		if err == nil || errors.Is(err, ErrUnauthorized) {
			return err
		}
		// a long-lived session resets the backoff
		if time.Since(start) > c.maxBackoff {
			backoff = c.minBackoff
		}
		c.log.Warn("subscription lost, reconnecting", "error", err, "retry_in", backoff)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
	}
}
