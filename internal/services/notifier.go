package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/juhojo/blabbermouth/internal/models"
)

type ConfigLoader interface {
	GetByID(ctx context.Context, id int64) (*models.ConfigWithFields, error)
}

// Publisher delivers a config event to the subscribers holding key.
type Publisher interface {
	Publish(ctx context.Context, key string, ev ConfigEvent) error
}

// Notifier pushes the current state of a config to its subscribers after a
// mutation.
type Notifier struct {
	configs ConfigLoader
	pub     Publisher
	log     *slog.Logger
}

func NewNotifier(configs ConfigLoader, pub Publisher, log *slog.Logger) *Notifier {
	return &Notifier{configs: configs, pub: pub, log: log}
}

// OnConfigUpdated re-reads config id with its key and fields and publishes
// {id, fields} to connections subscribed with that config's key.
func (n *Notifier) OnConfigUpdated(ctx context.Context, id int64) error {
	cfg, err := n.configs.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load config %d: %w", id, err)
	}

	ev := ConfigEvent{ID: cfg.ID, Fields: cfg.Fields}
	if ev.Fields == nil {
		ev.Fields = []models.Field{}
	}
	if err := n.pub.Publish(ctx, cfg.Key.Value, ev); err != nil {
		return fmt.Errorf("publish config %d: %w", id, err)
	}

	n.log.Debug("config update published", "config_id", id, "fields", len(ev.Fields))
	return nil
}
