package progress

import (
	"sort"

	"github.com/dmachibya/faithexercises-api/domain"
)

// ComputeStreak counts consecutive days with at least one completion, ending
// at the most recent completion day. The streak survives until a full day
// passes without completion: a last completion yesterday still counts, one
// from the day before yesterday yields zero.
func ComputeStreak(days []domain.Date, today domain.Date) int {
	if len(days) == 0 {
		return 0
	}
	uniq := make(map[domain.Date]struct{}, len(days))
	sorted := make([]domain.Date, 0, len(days))
	for _, d := range days {
		if _, seen := uniq[d]; seen {
			continue
		}
		uniq[d] = struct{}{}
		sorted = append(sorted, d)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].After(sorted[j]) })

	latest := sorted[0]
	if !latest.Equal(today) && !latest.Equal(today.AddDays(-1)) {
		return 0
	}

	streak := 0
	expected := latest
	for _, d := range sorted {
		if !d.Equal(expected) {
			break
		}
		streak++
		expected = expected.AddDays(-1)
	}
	return streak
}
