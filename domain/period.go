package domain

// Period is a task's recurrence granularity.
type Period string

const (
	PeriodSingle Period = "single"
	PeriodDaily  Period = "daily"
	PeriodWeekly Period = "weekly"
)

// ParsePeriod validates a period name received from a client.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case PeriodSingle, PeriodDaily, PeriodWeekly:
		return p, nil
	case "":
		return "", invalid("period", "required")
	default:
		return "", invalid("period", "must be one of single, daily, weekly")
	}
}
