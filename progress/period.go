// Package progress tracks task completion per period occurrence and derives
// streaks from it.
package progress

import (
	"fmt"

	"github.com/dmachibya/faithexercises-api/domain"
)

const singleKey = "single"

// ResolveKey maps a period and a calendar day to the key of the occurrence
// containing that day: "single" for single tasks, YYYY-MM-DD for daily tasks
// and the ISO 8601 week (YYYY-Www) for weekly tasks.
func ResolveKey(p domain.Period, day domain.Date) string {
	switch p {
	case domain.PeriodDaily:
		return day.String()
	case domain.PeriodWeekly:
		year, week := day.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	default:
		return singleKey
	}
}
