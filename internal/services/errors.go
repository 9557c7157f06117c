package services

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned for every failed credential check. Callers
	// cannot tell an unknown email from a wrong or expired passcode.
	ErrUnauthorized = errors.New("unauthorized")

	ErrConflict = errors.New("already exists")
)

const pqUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
