package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/juhojo/blabbermouth/internal/database"
	"github.com/juhojo/blabbermouth/internal/models"
)

type PasscodeService struct {
	db      database.DBTX
	now     func() time.Time
	randInt func() (int, error)
}

func NewPasscodeService(db database.DBTX) *PasscodeService {
	return &PasscodeService{db: db, now: time.Now, randInt: randomPasscode}
}

// randomPasscode draws uniformly from [PasscodeMin, PasscodeMax].
func randomPasscode() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(models.PasscodeMax-models.PasscodeMin+1))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()) + models.PasscodeMin, nil
}

// Issue creates a new passcode for userID. The insert trigger removes the
// user's previous passcode, so exactly one row remains afterwards.
func (s *PasscodeService) Issue(ctx context.Context, userID int64) (*models.Passcode, error) {
	value, err := s.randInt()
	if err != nil {
		return nil, fmt.Errorf("passcode generation: %w", err)
	}

	p := &models.Passcode{Value: value, UserID: userID, CreatedAt: s.now().UTC()}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO passcodes (value, user_id, created_at) VALUES ($1, $2, $3) RETURNING id`,
		p.Value, p.UserID, p.CreatedAt).Scan(&p.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

// Current returns the user's passcode row regardless of whether it is still active.
func (s *PasscodeService) Current(ctx context.Context, userID int64) (*models.Passcode, error) {
	p := &models.Passcode{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, value, user_id, created_at FROM passcodes WHERE user_id = $1`,
		userID).Scan(&p.ID, &p.Value, &p.UserID, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

// Delete removes passcode id if it belongs to userID.
func (s *PasscodeService) Delete(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM passcodes WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectAffected(res)
}
