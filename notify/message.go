package notify

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dmachibya/faithexercises-api/domain"
)

const customBodyLimit = 100

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// TaskMessage composes the broadcast announcing task.
func TaskMessage(task domain.Task) Message {
	body := strings.TrimSpace(task.Description)
	if title := strings.TrimSpace(task.ExerciseTitle); title != "" {
		body = strings.TrimSpace(title + ": " + body)
	}
	return Message{
		Title: task.Title,
		Body:  body,
		Data: StringifyData(map[string]any{
			"type":        "task",
			"task_id":     task.ID,
			"exercise_id": task.ExerciseID,
			"schedule":    string(task.Schedule),
		}),
	}
}

// CustomMessage composes the broadcast for an admin notification. The body is
// the description, or the start of the content with markup removed.
func CustomMessage(n domain.CustomNotification) Message {
	body := n.Description
	if body == "" {
		body = truncate(strings.TrimSpace(tagPattern.ReplaceAllString(n.Content, "")), customBodyLimit)
	}
	return Message{
		Title: n.Title,
		Body:  body,
		Data: map[string]string{
			"type":  "custom_notification",
			"id":    strconv.FormatInt(n.ID, 10),
			"title": n.Title,
		},
		ImageURL: n.ImageURL,
	}
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit])
}
