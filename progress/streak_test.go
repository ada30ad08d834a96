package progress

import (
	"testing"
	"time"

	"github.com/dmachibya/faithexercises-api/domain"
)

func june(day int) domain.Date { return domain.NewDate(2025, time.June, day) }

func TestComputeStreak(t *testing.T) {
	logged := []domain.Date{june(1), june(2), june(3)}

	tests := []struct {
		name  string
		days  []domain.Date
		today domain.Date
		want  int
	}{
		{name: "empty", days: nil, today: june(3), want: 0},
		{name: "loggedToday", days: logged, today: june(3), want: 3},
		{name: "graceDay", days: logged, today: june(4), want: 3},
		{name: "gapExceeded", days: logged, today: june(5), want: 0},
		{name: "gapInHistory", days: []domain.Date{june(1), june(3), june(4)}, today: june(4), want: 2},
		{name: "duplicatesCountOnce", days: []domain.Date{june(3), june(3), june(2), june(2), june(2)}, today: june(3), want: 2},
		{name: "unsorted", days: []domain.Date{june(2), june(4), june(3)}, today: june(4), want: 3},
		{name: "onlyYesterday", days: []domain.Date{june(9)}, today: june(10), want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeStreak(tt.days, tt.today); got != tt.want {
				t.Fatalf("ComputeStreak = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestComputeStreakAcrossMonthBoundary(t *testing.T) {
	days := []domain.Date{
		domain.NewDate(2025, time.February, 27),
		domain.NewDate(2025, time.February, 28),
		domain.NewDate(2025, time.March, 1),
	}
	if got := ComputeStreak(days, domain.NewDate(2025, time.March, 1)); got != 3 {
		t.Fatalf("expected 3 across month boundary, got %d", got)
	}
}
