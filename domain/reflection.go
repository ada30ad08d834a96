package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// ReflectionType classifies the content of a daily reflection.
type ReflectionType string

const (
	ReflectionText  ReflectionType = "text"
	ReflectionAudio ReflectionType = "audio"
	ReflectionQuote ReflectionType = "quote"
	ReflectionVerse ReflectionType = "verse"
)

// Reflection is the content shown to every user on ScheduledDate.
type Reflection struct {
	ID            int64          `json:"id"`
	Title         string         `json:"title"`
	Type          ReflectionType `json:"type"`
	Content       string         `json:"content,omitempty"`
	MediaURL      string         `json:"media_url,omitempty"`
	Author        string         `json:"author,omitempty"`
	Reference     string         `json:"reference,omitempty"`
	ScheduledDate Date           `json:"scheduled_date"`
	CreatedAt     time.Time      `json:"created_at"`
}

// ReflectionRequest is the client representation of a reflection write.
type ReflectionRequest struct {
	Title         string         `json:"title"`
	Type          ReflectionType `json:"type"`
	Content       string         `json:"content"`
	MediaURL      string         `json:"media_url"`
	Author        string         `json:"author"`
	Reference     string         `json:"reference"`
	ScheduledDate string         `json:"scheduled_date"`
}

// ReflectionInput is a reflection write.
type ReflectionInput struct {
	Title         string
	Type          ReflectionType
	Content       string
	MediaURL      string
	Author        string
	Reference     string
	ScheduledDate Date
}

// NewReflectionInput validates req. Timestamps in scheduled_date are read in
// loc.
func NewReflectionInput(req ReflectionRequest, loc *time.Location) (ReflectionInput, error) {
	in := ReflectionInput{
		Title:     req.Title,
		Type:      req.Type,
		Content:   req.Content,
		MediaURL:  strings.TrimSpace(req.MediaURL),
		Author:    strings.TrimSpace(req.Author),
		Reference: strings.TrimSpace(req.Reference),
	}
	if s := strings.TrimSpace(req.ScheduledDate); s != "" {
		d, err := ParseDate(s, loc)
		if err != nil {
			return ReflectionInput{}, invalid("scheduled_date", "expected YYYY-MM-DD or RFC 3339")
		}
		in.ScheduledDate = d
	}
	if err := in.Validate(); err != nil {
		return ReflectionInput{}, err
	}
	return in, nil
}

// Validate normalises and checks the input.
func (in *ReflectionInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return invalid("title", "required")
	}
	if utf8.RuneCountInString(in.Title) > 255 {
		return invalid("title", "must be at most 255 characters")
	}
	if in.Type == "" {
		in.Type = ReflectionText
	}
	switch in.Type {
	case ReflectionText, ReflectionAudio, ReflectionQuote, ReflectionVerse:
	default:
		return invalid("type", "must be one of text, audio, quote, verse")
	}
	if in.ScheduledDate.IsZero() {
		return invalid("scheduled_date", "required")
	}
	return nil
}
