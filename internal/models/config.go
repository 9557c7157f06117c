package models

import "time"

type Config struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	OwnerID   int64     `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Key is the capability key of a config. Holding its value grants access to
// the config's live updates.
type Key struct {
	ID       int64  `json:"id"`
	Value    string `json:"value"`
	ConfigID int64  `json:"config_id"`
}

type Field struct {
	ID       int64  `json:"id"`
	ConfigID int64  `json:"config_id"`
	Key      string `json:"key"`
	Value    string `json:"value"`
}

// ConfigWithFields is the detail view of a config.
type ConfigWithFields struct {
	Config
	Key    Key     `json:"key"`
	Fields []Field `json:"fields"`
}
