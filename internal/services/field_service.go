package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/juhojo/blabbermouth/internal/database"
	"github.com/juhojo/blabbermouth/internal/models"
)

// FieldService manages the fields of a config. Every operation is scoped by
// config id; callers check config ownership first.
type FieldService struct {
	db database.DBTX
}

func NewFieldService(db database.DBTX) *FieldService {
	return &FieldService{db: db}
}

func (s *FieldService) List(ctx context.Context, configID int64) ([]models.Field, error) {
	return listFields(ctx, s.db, configID)
}

func listFields(ctx context.Context, db database.DBTX, configID int64) ([]models.Field, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, config_id, key, value FROM fields WHERE config_id = $1 ORDER BY id`,
		configID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	fields := []models.Field{}
	for rows.Next() {
		var f models.Field
		if err := rows.Scan(&f.ID, &f.ConfigID, &f.Key, &f.Value); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		fields = append(fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return fields, nil
}

func (s *FieldService) Get(ctx context.Context, configID, id int64) (*models.Field, error) {
	var f models.Field
	err := s.db.QueryRowContext(ctx,
		`SELECT id, config_id, key, value FROM fields WHERE id = $1 AND config_id = $2`,
		id, configID).Scan(&f.ID, &f.ConfigID, &f.Key, &f.Value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &f, nil
}

// Create adds a field. Keys are not unique within a config.
func (s *FieldService) Create(ctx context.Context, configID int64, key, value string) (*models.Field, error) {
	f := &models.Field{ConfigID: configID, Key: key, Value: value}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO fields (config_id, key, value) VALUES ($1, $2, $3) RETURNING id`,
		configID, key, value).Scan(&f.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

func (s *FieldService) UpdateValue(ctx context.Context, configID, id int64, value string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE fields SET value = $1 WHERE id = $2 AND config_id = $3`,
		value, id, configID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectAffected(res)
}

func (s *FieldService) Delete(ctx context.Context, configID, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM fields WHERE id = $1 AND config_id = $2`,
		id, configID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectAffected(res)
}
