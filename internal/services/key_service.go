package services

import (
	"context"
	"fmt"

	"github.com/juhojo/blabbermouth/internal/database"
	"github.com/juhojo/blabbermouth/pkg/cuid"
)

type KeyService struct {
	db database.DBTX
}

func NewKeyService(db database.DBTX) *KeyService {
	return &KeyService{db: db}
}

// IsValidKey reports whether value is a well-formed capability key that
// belongs to an existing config. Malformed values never reach the database.
func (s *KeyService) IsValidKey(ctx context.Context, value string) (bool, error) {
	if !cuid.IsValid(value) {
		return false, nil
	}

	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM keys WHERE value = $1)`, value).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}
