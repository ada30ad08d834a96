package storage

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dmachibya/faithexercises-api/domain"
)

const (
	dashboardTop     = 10
	activeUserWindow = 7 * 24 * time.Hour
	recentActivity   = 25
	recentJournals   = 10
)

// EntrySource enumerates ledger entries.
type EntrySource interface {
	ForEachEntry(ctx context.Context, fn func(domain.ProgressEntry) error) error
}

// Projector computes the admin dashboard from the catalogue and a ledger.
type Projector struct {
	store  *Store
	ledger EntrySource
}

func NewProjector(store *Store, ledger EntrySource) *Projector {
	if ledger == nil {
		ledger = store
	}
	return &Projector{store: store, ledger: ledger}
}

// Dashboard aggregates engagement counters as of now. The month boundary is
// taken in now's location.
func (p *Projector) Dashboard(ctx context.Context, now time.Time) (domain.Dashboard, error) {
	var d domain.Dashboard
	if err := p.store.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(1) FROM exercises), (SELECT COUNT(1) FROM tasks)`,
	).Scan(&d.Totals.Exercises, &d.Totals.Tasks); err != nil {
		return domain.Dashboard{}, fmt.Errorf("count catalogue: %w", err)
	}

	titles, taskExercise, err := p.catalogue(ctx)
	if err != nil {
		return domain.Dashboard{}, err
	}

	activeSince := now.Add(-activeUserWindow)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	perUser := map[string]int{}
	active := map[string]struct{}{}
	readers := map[int64]map[string]struct{}{}

	err = p.ledger.ForEachEntry(ctx, func(e domain.ProgressEntry) error {
		d.Totals.TaskCompletions++
		perUser[e.UserID]++
		if !e.DoneAt.Before(activeSince) {
			active[e.UserID] = struct{}{}
		}
		if !e.DoneAt.Before(monthStart) {
			d.Totals.TaskCompletionsThisMonth++
		}
		if ex, ok := taskExercise[e.TaskID]; ok {
			if readers[ex] == nil {
				readers[ex] = map[string]struct{}{}
			}
			readers[ex][e.UserID] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return domain.Dashboard{}, err
	}
	d.Totals.ActiveUsers7d = len(active)

	journals, err := p.store.JournalCounts(ctx)
	if err != nil {
		return domain.Dashboard{}, err
	}
	d.Totals.Journalers = len(journals)
	d.TopJournalers = make([]domain.JournalerCount, 0, len(journals))
	for user, n := range journals {
		d.Totals.JournalEntries += n
		d.TopJournalers = append(d.TopJournalers, domain.JournalerCount{UserID: user, Count: n})
	}
	slices.SortFunc(d.TopJournalers, func(a, b domain.JournalerCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID, b.UserID)
	})
	if len(d.TopJournalers) > dashboardTop {
		d.TopJournalers = d.TopJournalers[:dashboardTop]
	}
	if d.Totals.JournalEntriesThisMonth, err = p.store.JournalEntriesSince(ctx, domain.DateOf(monthStart)); err != nil {
		return domain.Dashboard{}, err
	}

	d.TopDoers = make([]domain.UserCount, 0, len(perUser))
	for user, n := range perUser {
		d.TopDoers = append(d.TopDoers, domain.UserCount{UserID: user, Count: n})
	}
	slices.SortFunc(d.TopDoers, func(a, b domain.UserCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID, b.UserID)
	})
	if len(d.TopDoers) > dashboardTop {
		d.TopDoers = d.TopDoers[:dashboardTop]
	}

	d.UsersByExerciseReads = make([]domain.ExerciseReaders, 0, len(readers))
	for ex, users := range readers {
		d.UsersByExerciseReads = append(d.UsersByExerciseReads, domain.ExerciseReaders{
			ExerciseID: ex,
			Title:      titles[ex],
			Readers:    len(users),
		})
	}
	slices.SortFunc(d.UsersByExerciseReads, func(a, b domain.ExerciseReaders) int {
		if c := cmp.Compare(b.Readers, a.Readers); c != 0 {
			return c
		}
		return cmp.Compare(a.ExerciseID, b.ExerciseID)
	})
	if len(d.UsersByExerciseReads) > dashboardTop {
		d.UsersByExerciseReads = d.UsersByExerciseReads[:dashboardTop]
	}

	d.GeneratedAt = now
	return d, nil
}

func (p *Projector) catalogue(ctx context.Context) (map[int64]string, map[int64]int64, error) {
	titles := map[int64]string{}
	taskExercise := map[int64]int64{}

	rows, err := p.store.db.QueryContext(ctx, `SELECT id, title FROM exercises`)
	if err != nil {
		return nil, nil, fmt.Errorf("load exercises: %w", err)
	}
	for rows.Next() {
		var id int64
		var title string
		if err := rows.Scan(&id, &title); err != nil {
			rows.Close()
			return nil, nil, err
		}
		titles[id] = title
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	rows, err = p.store.db.QueryContext(ctx, `SELECT id, exercise_id FROM tasks`)
	if err != nil {
		return nil, nil, fmt.Errorf("load tasks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, ex int64
		if err := rows.Scan(&id, &ex); err != nil {
			return nil, nil, err
		}
		taskExercise[id] = ex
	}
	return titles, taskExercise, rows.Err()
}

// Users lists every user with ledger entries or journal entries, most
// completions first.
func (p *Projector) Users(ctx context.Context) ([]domain.UserSummary, error) {
	done := map[string]int{}
	err := p.ledger.ForEachEntry(ctx, func(e domain.ProgressEntry) error {
		done[e.UserID]++
		return nil
	})
	if err != nil {
		return nil, err
	}
	journals, err := p.store.JournalCounts(ctx)
	if err != nil {
		return nil, err
	}

	users := make([]domain.UserSummary, 0, len(done)+len(journals))
	for user, n := range done {
		users = append(users, domain.UserSummary{UserID: user, TasksDone: n, Journals: journals[user]})
	}
	for user, n := range journals {
		if _, ok := done[user]; !ok {
			users = append(users, domain.UserSummary{UserID: user, Journals: n})
		}
	}
	slices.SortFunc(users, func(a, b domain.UserSummary) int {
		if c := cmp.Compare(b.TasksDone, a.TasksDone); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Journals, a.Journals); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID, b.UserID)
	})
	return users, nil
}

// UserOverview returns a user's counters with the latest completions and
// journal entries.
func (p *Projector) UserOverview(ctx context.Context, userID string) (domain.UserOverview, error) {
	o := domain.UserOverview{UserID: userID, RecentActivity: []domain.Activity{}}
	err := p.ledger.ForEachEntry(ctx, func(e domain.ProgressEntry) error {
		if e.UserID != userID {
			return nil
		}
		o.Stats.TasksDone++
		o.RecentActivity = append(o.RecentActivity, domain.Activity{
			TaskID:    e.TaskID,
			Period:    e.Period,
			PeriodKey: e.PeriodKey,
			DoneAt:    e.DoneAt,
		})
		return nil
	})
	if err != nil {
		return domain.UserOverview{}, err
	}
	slices.SortFunc(o.RecentActivity, func(a, b domain.Activity) int {
		return b.DoneAt.Compare(a.DoneAt)
	})
	if len(o.RecentActivity) > recentActivity {
		o.RecentActivity = o.RecentActivity[:recentActivity]
	}

	if len(o.RecentActivity) > 0 {
		titles, taskExercise, err := p.catalogue(ctx)
		if err != nil {
			return domain.UserOverview{}, err
		}
		tasks, err := p.taskTitles(ctx)
		if err != nil {
			return domain.UserOverview{}, err
		}
		for i := range o.RecentActivity {
			a := &o.RecentActivity[i]
			a.TaskTitle = tasks[a.TaskID]
			if ex, ok := taskExercise[a.TaskID]; ok {
				a.ExerciseID = ex
				a.ExerciseTitle = titles[ex]
			}
		}
	}

	if o.Stats.Journals, err = p.store.CountJournal(ctx, userID); err != nil {
		return domain.UserOverview{}, err
	}
	if o.RecentJournals, err = p.store.RecentJournal(ctx, userID, recentJournals); err != nil {
		return domain.UserOverview{}, err
	}
	return o, nil
}

func (p *Projector) taskTitles(ctx context.Context) (map[int64]string, error) {
	rows, err := p.store.db.QueryContext(ctx, `SELECT id, title FROM tasks`)
	if err != nil {
		return nil, fmt.Errorf("load task titles: %w", err)
	}
	defer rows.Close()

	titles := map[int64]string{}
	for rows.Next() {
		var id int64
		var title string
		if err := rows.Scan(&id, &title); err != nil {
			return nil, err
		}
		titles[id] = title
	}
	return titles, rows.Err()
}
