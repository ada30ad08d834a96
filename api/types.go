package api

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dmachibya/faithexercises-api/domain"
	"github.com/dmachibya/faithexercises-api/notify"
	"github.com/dmachibya/faithexercises-api/progress"
)

// Catalog reads and writes exercises and tasks.
type Catalog interface {
	ListExercises(ctx context.Context) ([]domain.Exercise, error)
	GetExercise(ctx context.Context, id int64) (domain.Exercise, error)
	CreateExercise(ctx context.Context, in domain.ExerciseInput) (domain.Exercise, error)
	ListActiveTasks(ctx context.Context, exerciseID int64) ([]domain.Task, error)
	ListTasks(ctx context.Context) ([]domain.Task, error)
	GetTask(ctx context.Context, id int64) (domain.Task, error)
	CreateTask(ctx context.Context, in domain.TaskInput) (domain.Task, error)
	UpdateTask(ctx context.Context, id int64, in domain.TaskInput) (domain.Task, error)
	DeleteTask(ctx context.Context, id int64) error
}

// LedgerAdmin exposes the progress ledger operations used by task
// administration.
type LedgerAdmin interface {
	HasProgress(ctx context.Context, taskID int64) (bool, error)
	PurgeTask(ctx context.Context, taskID int64) error
}

// ProgressService records and reports task completions.
type ProgressService interface {
	Toggle(ctx context.Context, userID string, taskID int64, p domain.Period, date *domain.Date) (progress.Status, error)
	Show(ctx context.Context, userID string, taskID int64, p domain.Period, date *domain.Date) (progress.Status, error)
	Streak(ctx context.Context, userID string, taskIDs []int64) (int, error)
}

// ReflectionStore persists daily reflections.
type ReflectionStore interface {
	ReflectionsBetween(ctx context.Context, from, to domain.Date) ([]domain.Reflection, error)
	ListReflections(ctx context.Context) ([]domain.Reflection, error)
	GetReflection(ctx context.Context, id int64) (domain.Reflection, error)
	CreateReflection(ctx context.Context, in domain.ReflectionInput) (domain.Reflection, error)
	UpdateReflection(ctx context.Context, id int64, in domain.ReflectionInput) (domain.Reflection, error)
	DeleteReflection(ctx context.Context, id int64) error
}

// NotificationStore persists custom notifications.
type NotificationStore interface {
	CreateNotification(ctx context.Context, in domain.NotificationInput) (domain.CustomNotification, error)
	GetNotification(ctx context.Context, id int64) (domain.CustomNotification, error)
	ListNotifications(ctx context.Context, limit, offset int) ([]domain.CustomNotification, int, error)
}

// JournalStore persists journal entries scoped to their author.
type JournalStore interface {
	ListJournal(ctx context.Context, userID string, f domain.JournalFilter) ([]domain.JournalEntry, error)
	CreateJournal(ctx context.Context, userID string, in domain.JournalInput) (domain.JournalEntry, error)
	UpdateJournal(ctx context.Context, userID string, id int64, in domain.JournalInput) (domain.JournalEntry, error)
	DeleteJournal(ctx context.Context, userID string, id int64) error
}

// IdentityStore persists identity statements scoped to their author.
type IdentityStore interface {
	ListIdentities(ctx context.Context, userID string) ([]domain.Identity, error)
	CreateIdentity(ctx context.Context, userID string, in domain.IdentityInput) (domain.Identity, error)
	UpdateIdentity(ctx context.Context, userID string, id int64, in domain.IdentityInput) (domain.Identity, error)
	DeleteIdentity(ctx context.Context, userID string, id int64) error
}

// UserDirectory summarises per-user activity for administrators.
type UserDirectory interface {
	Users(ctx context.Context) ([]domain.UserSummary, error)
	UserOverview(ctx context.Context, userID string) (domain.UserOverview, error)
}

// DashboardSource computes the admin overview.
type DashboardSource interface {
	Dashboard(ctx context.Context, now time.Time) (domain.Dashboard, error)
}

// TaskNotifier applies the dispatch policy to task writes and broadcasts
// custom notifications.
type TaskNotifier interface {
	TaskCreated(ctx context.Context, task domain.Task) domain.DispatchOutcome
	TaskUpdated(ctx context.Context, before, after domain.Task) domain.DispatchOutcome
	TaskDeleted(ctx context.Context, taskID int64)
	Broadcast(ctx context.Context, msg notify.Message) error
}

// Authenticator is implemented by types able to identify the caller from an
// Authorization header.
type Authenticator interface {
	Authenticate(header string) (Principal, error)
}

// Deduper prevents processing of duplicate submissions.
type Deduper interface {
	// Add records the idempotency key and returns true if it was newly added.
	Add(ctx context.Context, userID, key string) (bool, error)
	// Remove deletes a previously added key, used when downstream processing fails.
	Remove(ctx context.Context, userID, key string) error
}

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Catalog       Catalog
	Ledger        LedgerAdmin
	Progress      ProgressService
	Reflections   ReflectionStore
	Notifications NotificationStore
	Journal       JournalStore
	Identities    IdentityStore
	Users         UserDirectory
	Dashboard     DashboardSource
	Notifier      TaskNotifier
	Auth          Authenticator
	Deduper       Deduper
	Health        []Pinger
	Clock         domain.Clock
	Location      *time.Location
	Logger        *log.Logger
}
