package domain

import "time"

// Clock supplies the current time in the application time zone.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock and converts it to Location.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.Location)
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// Today is the calendar day of c.Now().
func Today(c Clock) Date {
	return DateOf(c.Now())
}
