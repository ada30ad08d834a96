package notify

import (
	"time"

	"github.com/dmachibya/faithexercises-api/domain"
)

// Action is the outcome of the dispatch policy.
type Action int

const (
	ActionNone Action = iota
	ActionImmediate
	ActionDeferred
)

func (a Action) String() string {
	switch a {
	case ActionImmediate:
		return "immediate"
	case ActionDeferred:
		return "deferred"
	default:
		return "none"
	}
}

// Decision tells the dispatcher what to do with a task notification. At is
// set for deferred decisions only.
type Decision struct {
	Action Action
	At     time.Time
}

// ActivationTime is midnight of the task's start date in loc, or the zero
// time when the task has no start date.
func ActivationTime(task domain.Task, loc *time.Location) time.Time {
	if task.StartDate == nil || task.StartDate.IsZero() {
		return time.Time{}
	}
	return task.StartDate.In(loc)
}

// Decide applies the dispatch policy: inactive tasks are not announced, tasks
// without a future start date are announced now, the rest at their start.
func Decide(task domain.Task, now time.Time) Decision {
	if !task.IsActive {
		return Decision{Action: ActionNone}
	}
	at := ActivationTime(task, now.Location())
	if at.IsZero() || !at.After(now) {
		return Decision{Action: ActionImmediate}
	}
	return Decision{Action: ActionDeferred, At: at}
}
