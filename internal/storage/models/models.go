package models

import "time"

// LoadRun is the persisted record of one load run: what went in, what
// came out, and how long it took.
type LoadRun struct {
	ID             string
	InputPath      string
	Records        int
	Users          int
	Sessions       int
	Events         int
	NodesCreated   int
	RelsAttempted  int
	RelsCreated    int
	RelsFailed     int
	OutcomesPurged int64
	Status         string
	StartedAt      time.Time
	FinishedAt     time.Time
}

// LoadFailure is one relationship upsert the store rejected during a run.
type LoadFailure struct {
	ID      int
	RunID   string
	RelType string
	FromKey string
	ToKey   string
	Reason  string
}

// Run statuses.
const (
	RunStatusSucceeded = "succeeded"
	RunStatusPartial   = "partial"
	RunStatusFailed    = "failed"
)
