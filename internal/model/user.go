package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// User represents an account as stored in the `users` table.
// Accounts are soft-deleted: a non-nil DeletedAt hides the row from
// every lookup used for authentication.
//
// Fields:
//
//	ID           – primary key identifier.
//	Email        – unique, lower-cased email address.
//	PasswordHash – bcrypt hash; never serialized.
//	NickName     – display name, copied onto workout logs.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
//	DeletedAt    – soft-deletion timestamp (nil while active).
type User struct {
	ID           uint64     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	NickName     string     `json:"nickName"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	DeletedAt    *time.Time `json:"-"`
}

// emailPattern is deliberately narrower than RFC 5322: local part of
// letters, digits and ._%+-, a dotted domain and a 2+ letter TLD.
var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9\-]+(\.[A-Za-z0-9\-]+)*\.[A-Za-z]{2,}$`)

// ValidEmail reports whether s matches the accepted account email format.
func ValidEmail(s string) bool {
	return len(s) <= 254 && emailPattern.MatchString(s)
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NewNickName trims and validates a nickname (2–20 characters).
func NewNickName(s string) (string, error) {
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	if n < 2 || n > 20 {
		return "", fmt.Errorf("%w: nickName must be 2-20 characters", ErrValidation)
	}
	return s, nil
}
