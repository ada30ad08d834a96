package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmachibya/faithexercises-api/domain"
)

func TestJournalEntries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ex := mustExercise(t, s, "Lent", nil)
	task := mustTask(t, s, domain.TaskInput{ExerciseID: ex.ID, Title: "Fast", Schedule: domain.PeriodDaily, IsActive: true})

	write := func(user string, day domain.Date, content string, taskID *int64) domain.JournalEntry {
		t.Helper()
		j, err := s.CreateJournal(ctx, user, domain.JournalInput{EntryDate: day, Content: content, TaskID: taskID})
		if err != nil {
			t.Fatalf("create journal: %v", err)
		}
		return j
	}
	first := write("alice", domain.NewDate(2025, time.March, 1), "one", nil)
	second := write("alice", domain.NewDate(2025, time.March, 5), "two", &task.ID)
	write("alice", domain.NewDate(2025, time.March, 9), "three", nil)
	write("bob", domain.NewDate(2025, time.March, 5), "other", &task.ID)

	if second.TaskTitle != "Fast" || second.ExerciseTitle != "Lent" || second.UserID != "alice" {
		t.Fatalf("unexpected joined entry %+v", second)
	}

	all, err := s.ListJournal(ctx, "alice", domain.JournalFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].Content != "three" || all[2].ID != first.ID {
		t.Fatalf("expected alice's entries latest first, got %+v", all)
	}

	from, to := domain.NewDate(2025, time.March, 2), domain.NewDate(2025, time.March, 9)
	ranged, err := s.ListJournal(ctx, "alice", domain.JournalFilter{From: &from, To: &to})
	if err != nil {
		t.Fatal(err)
	}
	if len(ranged) != 2 {
		t.Fatalf("expected inclusive range to match 2 entries, got %+v", ranged)
	}

	byTask, err := s.ListJournal(ctx, "alice", domain.JournalFilter{TaskID: &task.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(byTask) != 1 || byTask[0].ID != second.ID {
		t.Fatalf("unexpected task filtered entries %+v", byTask)
	}

	recent, err := s.RecentJournal(ctx, "alice", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 || recent[1].ID != second.ID {
		t.Fatalf("unexpected recent entries %+v", recent)
	}

	if n, err := s.CountJournal(ctx, "alice"); err != nil || n != 3 {
		t.Fatalf("expected 3 entries for alice, got %d, %v", n, err)
	}
	counts, err := s.JournalCounts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts["alice"] != 3 || counts["bob"] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
	if n, err := s.JournalEntriesSince(ctx, domain.NewDate(2025, time.March, 5)); err != nil || n != 3 {
		t.Fatalf("expected 3 entries since March 5, got %d, %v", n, err)
	}
}

func TestJournalOwnerScopedWrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	day := domain.NewDate(2025, time.March, 10)
	entry, err := s.CreateJournal(ctx, "alice", domain.JournalInput{EntryDate: day, Content: "mine"})
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.UpdateJournal(ctx, "bob", entry.ID, domain.JournalInput{EntryDate: day, Content: "theirs"})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden on foreign update, got %v", err)
	}
	if err := s.DeleteJournal(ctx, "bob", entry.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden on foreign delete, got %v", err)
	}
	if _, err := s.UpdateJournal(ctx, "alice", 999, domain.JournalInput{EntryDate: day, Content: "x"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on missing entry, got %v", err)
	}

	updated, err := s.UpdateJournal(ctx, "alice", entry.ID, domain.JournalInput{EntryDate: day.AddDays(1), Content: "edited"})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Content != "edited" || updated.EntryDate.String() != "2025-03-11" {
		t.Fatalf("unexpected updated entry %+v", updated)
	}

	if err := s.DeleteJournal(ctx, "alice", entry.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetJournal(ctx, entry.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected deleted entry to be gone, got %v", err)
	}
}

func TestJournalUnknownTask(t *testing.T) {
	s := newTestStore(t)
	missing := int64(42)
	_, err := s.CreateJournal(context.Background(), "alice", domain.JournalInput{EntryDate: domain.NewDate(2025, time.March, 10), Content: "x", TaskID: &missing})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteTaskDetachesJournal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ex := mustExercise(t, s, "Lent", nil)
	task := mustTask(t, s, domain.TaskInput{ExerciseID: ex.ID, Title: "Fast", Schedule: domain.PeriodSingle, IsActive: true})
	entry, err := s.CreateJournal(ctx, "alice", domain.JournalInput{EntryDate: domain.NewDate(2025, time.March, 10), Content: "x", TaskID: &task.ID})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteTask(ctx, task.ID); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetJournal(ctx, entry.ID)
	if err != nil {
		t.Fatalf("expected entry to survive task deletion: %v", err)
	}
	if got.TaskID != nil || got.TaskTitle != "" {
		t.Fatalf("expected entry to be detached from the task, got %+v", got)
	}
}

func TestIdentities(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.CreateIdentity(ctx, "alice", domain.IdentityInput{Statement: "I am patient", Category: "character"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateIdentity(ctx, "bob", domain.IdentityInput{Statement: "I am kind", Category: "character"}); err != nil {
		t.Fatal(err)
	}

	list, err := s.ListIdentities(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != a.ID || list[0].Statement != "I am patient" {
		t.Fatalf("unexpected identities %+v", list)
	}

	if _, err := s.UpdateIdentity(ctx, "bob", a.ID, domain.IdentityInput{Statement: "x", Category: "y"}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	updated, err := s.UpdateIdentity(ctx, "alice", a.ID, domain.IdentityInput{Statement: "I am generous", Category: "giving"})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Statement != "I am generous" || updated.Category != "giving" {
		t.Fatalf("unexpected updated identity %+v", updated)
	}

	if err := s.DeleteIdentity(ctx, "bob", a.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := s.DeleteIdentity(ctx, "alice", a.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteIdentity(ctx, "alice", a.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestTaskAnnouncements(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ex := mustExercise(t, s, "Lent", nil)
	task := mustTask(t, s, domain.TaskInput{ExerciseID: ex.ID, Title: "Fast", Schedule: domain.PeriodSingle, IsActive: true})

	if ok, err := s.Announced(ctx, task.ID); err != nil || ok {
		t.Fatalf("expected new task to be unannounced, got %v, %v", ok, err)
	}
	if err := s.MarkAnnounced(ctx, task.ID, time.Now()); err != nil {
		t.Fatal(err)
	}
	if ok, err := s.Announced(ctx, task.ID); err != nil || !ok {
		t.Fatalf("expected task to be announced, got %v, %v", ok, err)
	}

	if _, err := s.UpdateTask(ctx, task.ID, domain.TaskInput{ExerciseID: ex.ID, Title: "Fast", Schedule: domain.PeriodSingle}); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.Announced(ctx, task.ID); !ok {
		t.Fatal("expected announcement to survive deactivation")
	}
	if ok, err := s.Announced(ctx, 999); err != nil || ok {
		t.Fatalf("expected unknown task to be unannounced, got %v, %v", ok, err)
	}
}
