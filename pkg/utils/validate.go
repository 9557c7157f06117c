package utils

import (
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/juhojo/blabbermouth/internal/models"
)

const (
	MinConfigNameLength = 2
	MaxConfigNameLength = 32
	MaxEmailLength      = 254
)

var fieldKeyRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// ValidationError represents a single field-level validation issue.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors collects the issues found in one request.
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, e := range v {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// Add appends err if it is a *ValidationError.
func (v *ValidationErrors) Add(err error) {
	if ve, ok := err.(*ValidationError); ok && ve != nil {
		*v = append(*v, ve)
	}
}

// Err returns nil when no issues were collected.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// ValidateEmail accepts a bare address such as "name@example.com".
func ValidateEmail(email string) error {
	if email == "" {
		return &ValidationError{Field: "email", Message: "Email is required"}
	}
	if len(email) > MaxEmailLength {
		return &ValidationError{Field: "email", Message: "Email is too long"}
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		return &ValidationError{Field: "email", Message: "Invalid email"}
	}
	return nil
}

// NormalizeEmail trims surrounding whitespace.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

// ValidateConfigName: 2-32 characters.
func ValidateConfigName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < MinConfigNameLength {
		return &ValidationError{Field: "name", Message: "Name must be at least 2 characters"}
	}
	if n > MaxConfigNameLength {
		return &ValidationError{Field: "name", Message: "Name must be at most 32 characters"}
	}
	return nil
}

// ValidateFieldKey: letters, numbers and underscores only.
func ValidateFieldKey(key string) error {
	if !fieldKeyRegex.MatchString(key) {
		return &ValidationError{Field: "key", Message: "Key can only contain letters, numbers, and underscores"}
	}
	return nil
}

// ValidatePasscode checks the passcode is inside the issued range.
func ValidatePasscode(passcode int) error {
	if passcode < models.PasscodeMin || passcode > models.PasscodeMax {
		return &ValidationError{Field: "passcode", Message: "Passcode must be a number between 1000 and 9999"}
	}
	return nil
}

// ParseID parses a positive integer path parameter.
func ParseID(field, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, &ValidationError{Field: field, Message: "Not an ID"}
	}
	return id, nil
}
