package models

import "time"

const (
	PasscodeMin = 1000
	PasscodeMax = 9999

	// PasscodeTTL is how long a passcode stays active after creation.
	PasscodeTTL = 5 * time.Minute
)

type Passcode struct {
	ID        int64     `json:"id"`
	Value     int       `json:"value"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// IsActive reports whether the passcode is still inside its expiry window at now.
func (p *Passcode) IsActive(now time.Time) bool {
	if p == nil {
		return false
	}
	return now.Sub(p.CreatedAt) < PasscodeTTL
}
