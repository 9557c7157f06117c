package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/juhojo/blabbermouth/internal/database"
	"github.com/juhojo/blabbermouth/internal/models"
	"github.com/juhojo/blabbermouth/pkg/cuid"
)

type ConfigService struct {
	db     *sql.DB
	newKey func() string
}

func NewConfigService(db *sql.DB) *ConfigService {
	return &ConfigService{db: db, newKey: cuid.CreateID}
}

// ListByOwner returns the configs owned by ownerID without keys or fields.
func (s *ConfigService) ListByOwner(ctx context.Context, ownerID int64) ([]models.Config, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, owner_id, created_at FROM configs WHERE owner_id = $1 ORDER BY id`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	configs := []models.Config{}
	for rows.Next() {
		var c models.Config
		if err := rows.Scan(&c.ID, &c.Name, &c.OwnerID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		configs = append(configs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return configs, nil
}

// Get returns config id with its key and fields if ownerID owns it.
func (s *ConfigService) Get(ctx context.Context, ownerID, id int64) (*models.ConfigWithFields, error) {
	return s.load(ctx, `
		SELECT c.id, c.name, c.owner_id, c.created_at, k.id, k.value
		FROM configs c
		JOIN keys k ON k.config_id = c.id
		WHERE c.id = $1 AND c.owner_id = $2
	`, id, ownerID)
}

// GetByID returns config id with its key and fields regardless of owner.
func (s *ConfigService) GetByID(ctx context.Context, id int64) (*models.ConfigWithFields, error) {
	return s.load(ctx, `
		SELECT c.id, c.name, c.owner_id, c.created_at, k.id, k.value
		FROM configs c
		JOIN keys k ON k.config_id = c.id
		WHERE c.id = $1
	`, id)
}

func (s *ConfigService) load(ctx context.Context, query string, args ...any) (*models.ConfigWithFields, error) {
	var c models.ConfigWithFields
	err := s.db.QueryRowContext(ctx, query, args...).
		Scan(&c.ID, &c.Name, &c.OwnerID, &c.CreatedAt, &c.Key.ID, &c.Key.Value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	c.Key.ConfigID = c.ID

	c.Fields, err = listFields(ctx, s.db, c.ID)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Exists reports whether config id exists and is owned by ownerID.
func (s *ConfigService) Exists(ctx context.Context, ownerID, id int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM configs WHERE id = $1 AND owner_id = $2)`,
		id, ownerID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

// Create inserts the config and its capability key in one transaction.
func (s *ConfigService) Create(ctx context.Context, ownerID int64, name string) (*models.ConfigWithFields, error) {
	c := &models.ConfigWithFields{
		Config: models.Config{Name: name, OwnerID: ownerID},
		Fields: []models.Field{},
	}

	err := database.WithTx(ctx, s.db, func(ctx context.Context, tx database.DBTX) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO configs (name, owner_id) VALUES ($1, $2) RETURNING id, created_at`,
			name, ownerID).Scan(&c.ID, &c.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert config: %w", err)
		}

		c.Key = models.Key{Value: s.newKey(), ConfigID: c.ID}
		err = tx.QueryRowContext(ctx,
			`INSERT INTO keys (value, config_id) VALUES ($1, $2) RETURNING id`,
			c.Key.Value, c.ID).Scan(&c.Key.ID)
		if err != nil {
			return fmt.Errorf("insert key: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (s *ConfigService) Rename(ctx context.Context, ownerID, id int64, name string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE configs SET name = $1 WHERE id = $2 AND owner_id = $3`,
		name, id, ownerID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectAffected(res)
}

// Delete removes the config; its fields and key cascade.
func (s *ConfigService) Delete(ctx context.Context, ownerID, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM configs WHERE id = $1 AND owner_id = $2`,
		id, ownerID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectAffected(res)
}
