package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// CustomNotification is an admin-authored broadcast.
type CustomNotification struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Content     string     `json:"content"`
	ImageURL    string     `json:"image_url,omitempty"`
	SentAt      *time.Time `json:"sent_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NotificationInput is a custom notification write.
type NotificationInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	ImageURL    string `json:"image_url"`
}

func (in *NotificationInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	if in.Title == "" {
		return invalid("title", "required")
	}
	if utf8.RuneCountInString(in.Title) > 255 {
		return invalid("title", "must be at most 255 characters")
	}
	if utf8.RuneCountInString(in.Description) > 255 {
		return invalid("description", "must be at most 255 characters")
	}
	if strings.TrimSpace(in.Content) == "" {
		return invalid("content", "required")
	}
	return nil
}

// DispatchOutcome summarises what the dispatch policy did for a task write.
type DispatchOutcome string

const (
	DispatchNone      DispatchOutcome = "none"
	DispatchSent      DispatchOutcome = "sent"
	DispatchFailed    DispatchOutcome = "failed"
	DispatchScheduled DispatchOutcome = "scheduled"
)
