package models

import "time"

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// UserWithPasscode is a user joined with their current passcode, if any.
type UserWithPasscode struct {
	User
	Passcode *Passcode `json:"passcode,omitempty"`
}
