package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Identity is a statement a user makes about who they are becoming.
type Identity struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Statement string    `json:"statement"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IdentityInput is an identity write.
type IdentityInput struct {
	Statement string `json:"statement"`
	Category  string `json:"category"`
}

func (in *IdentityInput) Validate() error {
	in.Statement = strings.TrimSpace(in.Statement)
	in.Category = strings.TrimSpace(in.Category)
	if in.Statement == "" {
		return invalid("statement", "required")
	}
	if utf8.RuneCountInString(in.Statement) > 255 {
		return invalid("statement", "must be at most 255 characters")
	}
	if in.Category == "" {
		return invalid("category", "required")
	}
	if utf8.RuneCountInString(in.Category) > 50 {
		return invalid("category", "must be at most 50 characters")
	}
	return nil
}
