package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/juhojo/blabbermouth/internal/database"
	"github.com/juhojo/blabbermouth/internal/models"
)

// PasscodeSender delivers an issued passcode to its user.
type PasscodeSender interface {
	SendPasscode(ctx context.Context, user *models.User, passcode *models.Passcode) error
}

// LogPasscodeSender stands in for email delivery by logging the passcode.
type LogPasscodeSender struct {
	Log *slog.Logger
}

func (s LogPasscodeSender) SendPasscode(ctx context.Context, user *models.User, passcode *models.Passcode) error {
	// TODO: replace with an SMTP sender once a mail provider is chosen.
	s.Log.InfoContext(ctx, "passcode issued", "user_id", user.ID, "email", user.Email, "passcode", passcode.Value)
	return nil
}

type AuthService struct {
	db        database.DBTX
	users     *UserService
	passcodes *PasscodeService
	sender    PasscodeSender
	now       func() time.Time
}

func NewAuthService(db database.DBTX, users *UserService, passcodes *PasscodeService, sender PasscodeSender) *AuthService {
	return &AuthService{db: db, users: users, passcodes: passcodes, sender: sender, now: time.Now}
}

// RequestPasscode provisions the user for email if needed and issues a fresh passcode.
func (s *AuthService) RequestPasscode(ctx context.Context, email string) (*models.User, *models.Passcode, error) {
	user, err := s.users.GetOrCreate(ctx, email)
	if err != nil {
		return nil, nil, err
	}

	passcode, err := s.passcodes.Issue(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	if s.sender != nil {
		if err := s.sender.SendPasscode(ctx, user, passcode); err != nil {
			return nil, nil, fmt.Errorf("passcode delivery: %w", err)
		}
	}
	return user, passcode, nil
}

// Verify checks an email and passcode pair. Unknown email, missing passcode,
// wrong value and expired passcode all return ErrUnauthorized.
func (s *AuthService) Verify(ctx context.Context, email string, passcode int) (*models.User, error) {
	row, err := s.userWithPasscode(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	if row.Passcode == nil || row.Passcode.Value != passcode || !row.Passcode.IsActive(s.now()) {
		return nil, ErrUnauthorized
	}

	user := row.User
	return &user, nil
}

func (s *AuthService) userWithPasscode(ctx context.Context, email string) (*models.UserWithPasscode, error) {
	var (
		row      models.UserWithPasscode
		pid      sql.NullInt64
		pvalue   sql.NullInt64
		pcreated sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.email, u.created_at, p.id, p.value, p.created_at
		FROM users u
		LEFT JOIN passcodes p ON p.user_id = u.id
		WHERE u.email = $1
	`, email).Scan(&row.ID, &row.Email, &row.CreatedAt, &pid, &pvalue, &pcreated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if pid.Valid {
		row.Passcode = &models.Passcode{
			ID:        pid.Int64,
			Value:     int(pvalue.Int64),
			UserID:    row.ID,
			CreatedAt: pcreated.Time,
		}
	}
	return &row, nil
}
