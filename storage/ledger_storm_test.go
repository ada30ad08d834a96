package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/dmachibya/faithexercises-api/domain"
	"github.com/dmachibya/faithexercises-api/progress"
)

func TestConcurrentTogglesOnFileStore(t *testing.T) {
	s, err := New(t.TempDir() + "/faith.db")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	ctx := context.Background()
	ex := mustExercise(t, s, "Lent", nil)
	task := mustTask(t, s, domain.TaskInput{ExerciseID: ex.ID, Title: "Fast", Schedule: domain.PeriodDaily, IsActive: true})

	now := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	logger, _ := test.NewNullLogger()
	ledger := progress.NewLedger(s, s, domain.ClockFunc(func() time.Time { return now }), logger)

	const workers = 64
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := ledger.Toggle(ctx, "alice", task.ID, domain.PeriodDaily, nil); err != nil {
				errs <- err
			}
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		if !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected only conflicts under contention, got %v", err)
		}
	}

	var rows int
	if err := s.db.QueryRow(
		`SELECT COUNT(1) FROM task_progresses WHERE user_id = ? AND task_id = ?`, "alice", task.ID,
	).Scan(&rows); err != nil {
		t.Fatal(err)
	}
	if rows > 1 {
		t.Fatalf("expected at most one entry for the occurrence, got %d", rows)
	}

	done, err := s.HasEntry(ctx, "alice", task.ID, domain.PeriodDaily, "2025-03-10")
	if err != nil {
		t.Fatal(err)
	}
	if done != (rows == 1) {
		t.Fatalf("HasEntry = %v disagrees with %d stored rows", done, rows)
	}
}
