package progress

import "github.com/dmachibya/faithexercises-api/domain"

// Window returns the inclusive range of days a daily task accepts progress
// for. ok is false when the task is unconstrained.
func Window(task domain.Task) (start, end domain.Date, ok bool) {
	if task.StartDate == nil || task.DurationDays == nil || *task.DurationDays <= 0 {
		return domain.Date{}, domain.Date{}, false
	}
	start = *task.StartDate
	return start, start.AddDays(*task.DurationDays - 1), true
}

// AssertWithinWindow resolves the day a progress operation applies to and
// rejects days outside of the task's duration window. A nil candidate means
// today according to clock. Only daily periods are constrained.
func AssertWithinWindow(task domain.Task, p domain.Period, candidate *domain.Date, clock domain.Clock) (domain.Date, error) {
	day := domain.Today(clock)
	if candidate != nil && !candidate.IsZero() {
		day = *candidate
	}
	if p != domain.PeriodDaily {
		return day, nil
	}
	start, end, ok := Window(task)
	if !ok {
		return day, nil
	}
	if day.Before(start) || day.After(end) {
		return domain.Date{}, &domain.OutOfWindowError{Date: day, Start: start, End: end}
	}
	return day, nil
}
