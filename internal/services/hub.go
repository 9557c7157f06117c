package services

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/juhojo/blabbermouth/internal/metrics"
	"github.com/juhojo/blabbermouth/internal/models"
)

// DefaultSendQueue is the number of pending events buffered per connection
// before further events for that connection are dropped.
const DefaultSendQueue = 16

// ConfigEvent is the payload pushed to subscribers of a config.
type ConfigEvent struct {
	ID     int64          `json:"id"`
	Fields []models.Field `json:"fields"`
}

// Conn is the part of *websocket.Conn the hub uses.
type Conn interface {
	WriteJSON(v any) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

type ConnState int32

const (
	StateConnecting ConnState = iota
	StateOpen
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

// Client is one subscriber connection tagged with the capability key it
// connected with.
type Client struct {
	hub   *Hub
	key   string
	conn  Conn
	send  chan ConfigEvent
	state atomic.Int32
	done  chan struct{}
	once  sync.Once
}

func (c *Client) Key() string { return c.key }

func (c *Client) State() ConnState { return ConnState(c.state.Load()) }

// Done is closed once the connection has been closed and unregistered.
func (c *Client) Done() <-chan struct{} { return c.done }

// Close closes the underlying connection and removes the client from the hub.
// Safe to call more than once.
func (c *Client) Close() {
	c.once.Do(func() {
		c.state.Store(int32(StateClosed))
		c.hub.unregister(c)
		if err := c.conn.Close(); err != nil {
			c.hub.log.Debug("websocket close", "error", err)
		}
		close(c.done)
	})
}

func (c *Client) writePump() {
	for {
		select {
		case ev := <-c.send:
			if err := c.conn.WriteJSON(ev); err != nil {
				c.hub.log.Debug("websocket write failed", "config_id", ev.ID, "error", err)
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// readPump discards inbound frames; a read error means the peer is gone.
func (c *Client) readPump() {
	defer c.Close()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Hub is the registry of open subscriber connections, keyed by capability
// key. It is local to one process; RedisSubscriber feeds it updates made on
// other instances.
type Hub struct {
	mu        sync.RWMutex
	clients   map[string]map[*Client]struct{}
	log       *slog.Logger
	metrics   metrics.Recorder
	queueSize int
}

func NewHub(log *slog.Logger, rec metrics.Recorder) *Hub {
	return &Hub{
		clients:   make(map[string]map[*Client]struct{}),
		log:       log,
		metrics:   rec,
		queueSize: DefaultSendQueue,
	}
}

// Register adds conn to the registry under key and marks it open.
func (h *Hub) Register(key string, conn Conn) *Client {
	c := &Client{
		hub:  h,
		key:  key,
		conn: conn,
		send: make(chan ConfigEvent, h.queueSize),
		done: make(chan struct{}),
	}
	c.state.Store(int32(StateConnecting))

	h.mu.Lock()
	set, ok := h.clients[key]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[key] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	c.state.Store(int32(StateOpen))
	h.metrics.WebSocketOpened()
	return c
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.key]
	if ok {
		if _, present := set[c]; present {
			delete(set, c)
			if len(set) == 0 {
				delete(h.clients, c.key)
			}
		} else {
			ok = false
		}
	}
	h.mu.Unlock()

	if ok {
		h.metrics.WebSocketClosed()
	}
}

// Serve registers conn and pumps events to it until the peer disconnects or
// a write fails. It blocks for the lifetime of the connection.
func (h *Hub) Serve(key string, conn Conn) {
	c := h.Register(key, conn)
	go c.writePump()
	c.readPump()
}

// Broadcast queues ev for every open connection subscribed with key and
// returns how many connections it was queued for. Connections whose queue
// is full miss the event.
func (h *Hub) Broadcast(key string, ev ConfigEvent) int {
	delivered, dropped := 0, 0

	h.mu.RLock()
	for c := range h.clients[key] {
		if c.State() != StateOpen {
			continue
		}
		select {
		case c.send <- ev:
			delivered++
		default:
			dropped++
		}
	}
	h.mu.RUnlock()

	if dropped > 0 {
		h.log.Warn("subscriber queue full, event dropped", "config_id", ev.ID, "dropped", dropped)
	}
	h.metrics.RecordNotification(delivered, dropped)
	return delivered
}

// Publish implements Publisher for single-instance deployments.
func (h *Hub) Publish(_ context.Context, key string, ev ConfigEvent) error {
	h.Broadcast(key, ev)
	return nil
}

// Subscribers returns the number of open connections for key.
func (h *Hub) Subscribers(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[key])
}

// Len returns the total number of registered connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// Close closes every registered connection. Used on shutdown.
func (h *Hub) Close() {
	h.mu.RLock()
	all := make([]*Client, 0)
	for _, set := range h.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range all {
		c.Close()
	}
}
