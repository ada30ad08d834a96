package domain

import "time"

// DashboardTotals are engagement counters for the admin dashboard.
type DashboardTotals struct {
	Exercises                int `json:"exercises"`
	Tasks                    int `json:"tasks"`
	TaskCompletions          int `json:"taskCompletions"`
	JournalEntries           int `json:"journalEntries"`
	ActiveUsers7d            int `json:"activeUsers7d"`
	Journalers               int `json:"journalers"`
	TaskCompletionsThisMonth int `json:"taskCompletionsThisMonth"`
	JournalEntriesThisMonth  int `json:"journalEntriesThisMonth"`
}

// UserCount pairs a user with a completion count.
type UserCount struct {
	UserID string `json:"user_id"`
	Count  int    `json:"done_count"`
}

// JournalerCount pairs a user with a journal entry count.
type JournalerCount struct {
	UserID string `json:"user_id"`
	Count  int    `json:"entries_count"`
}

// ExerciseReaders counts distinct users that completed any task of an exercise.
type ExerciseReaders struct {
	ExerciseID int64  `json:"id"`
	Title      string `json:"title"`
	Readers    int    `json:"readers_count"`
}

// Dashboard is the admin overview.
type Dashboard struct {
	Totals               DashboardTotals   `json:"totals"`
	UsersByExerciseReads []ExerciseReaders `json:"usersByExerciseReads"`
	TopJournalers        []JournalerCount  `json:"topJournalers"`
	TopDoers             []UserCount       `json:"topDoers"`
	GeneratedAt          time.Time         `json:"generatedAt"`
}

// UserSummary is one row of the admin user list.
type UserSummary struct {
	UserID    string `json:"user_id"`
	TasksDone int    `json:"tasks_done"`
	Journals  int    `json:"journals"`
}

// UserStats are the counters of a user overview.
type UserStats struct {
	TasksDone int `json:"tasksDone"`
	Journals  int `json:"journals"`
}

// Activity is a ledger entry joined with its task and exercise titles.
type Activity struct {
	TaskID        int64     `json:"task_id"`
	TaskTitle     string    `json:"task_title,omitempty"`
	ExerciseID    int64     `json:"exercise_id,omitempty"`
	ExerciseTitle string    `json:"exercise_title,omitempty"`
	Period        Period    `json:"period"`
	PeriodKey     string    `json:"period_key"`
	DoneAt        time.Time `json:"done_at"`
}

// UserOverview is the admin view of a single user.
type UserOverview struct {
	UserID         string         `json:"user_id"`
	Stats          UserStats      `json:"stats"`
	RecentActivity []Activity     `json:"recentActivity"`
	RecentJournals []JournalEntry `json:"recentJournals"`
}
