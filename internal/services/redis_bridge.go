package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/juhojo/blabbermouth/internal/models"
	"github.com/redis/go-redis/v9"
)

// ConfigUpdatesChannel carries config events between server instances.
const ConfigUpdatesChannel = "blabbermouth:config-updates"

type configUpdate struct {
	Key   string      `json:"ck"`
	Event ConfigEvent `json:"event"`
}

// RedisPublisher publishes config events so that every instance's hub can
// deliver them to its own connections.
type RedisPublisher struct {
	client redis.UniversalClient
}

func NewRedisPublisher(client redis.UniversalClient) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, key string, ev ConfigEvent) error {
	data, err := json.Marshal(configUpdate{Key: key, Event: ev})
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, ConfigUpdatesChannel, data).Err()
}

// RedisSubscriber forwards events from ConfigUpdatesChannel to the local hub.
type RedisSubscriber struct {
	client redis.UniversalClient
	hub    *Hub
	log    *slog.Logger
}

func NewRedisSubscriber(client redis.UniversalClient, hub *Hub, log *slog.Logger) *RedisSubscriber {
	return &RedisSubscriber{client: client, hub: hub, log: log}
}

// Run subscribes until ctx is cancelled, resubscribing with exponential
// backoff (1s doubling, capped at 30s) after errors.
func (s *RedisSubscriber) Run(ctx context.Context) {
	backoff := time.Second

	for {
		if ctx.Err() != nil {
			return
		}

		err := s.receive(ctx, func() { backoff = time.Second })
		if ctx.Err() != nil {
			return
		}
		s.log.Warn("redis subscriber error", "error", err, "retry_in", backoff)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
	}
}

func (s *RedisSubscriber) receive(ctx context.Context, onMessage func()) error {
	pubsub := s.client.Subscribe(ctx, ConfigUpdatesChannel)
	defer pubsub.Close()

	s.log.Info("redis subscriber started", "channel", ConfigUpdatesChannel)

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			return err
		}
		onMessage()

		if err := s.dispatch(msg.Payload); err != nil {
			s.log.Warn("dropping malformed config update", "error", err)
		}
	}
}

func (s *RedisSubscriber) dispatch(payload string) error {
	var u configUpdate
	if err := json.Unmarshal([]byte(payload), &u); err != nil {
		return fmt.Errorf("decode config update: %w", err)
	}
	if u.Key == "" {
		return fmt.Errorf("config update %d has no key", u.Event.ID)
	}
	if u.Event.Fields == nil {
		u.Event.Fields = []models.Field{}
	}
	s.hub.Broadcast(u.Key, u.Event)
	return nil
}
