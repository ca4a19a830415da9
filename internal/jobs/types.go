package jobs

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Status is the lifecycle state of a post job.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusQueued     Status = "queued"
	StatusScheduled  Status = "scheduled"
	StatusPublishing Status = "publishing"
	StatusPublished  Status = "published"
	StatusFailed     Status = "failed"
)

// Statuses lists all valid statuses in lifecycle order.
var Statuses = []Status{
	StatusDraft,
	StatusQueued,
	StatusScheduled,
	StatusPublishing,
	StatusPublished,
	StatusFailed,
}

// ParseStatus converts a string into a Status, rejecting unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !slices.Contains(Statuses, st) {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return st, nil
}

// ErrIllegalTransition is returned by UpdateStatus when the requested status
// change is outside the transition table.
var ErrIllegalTransition = errors.New("illegal status transition")

// transitions is the legal transition table. Self-transitions are always
// allowed (idempotent updates); manual re-queueing from the console is the
// only way out of published.
var transitions = map[Status][]Status{
	StatusDraft:      {StatusQueued, StatusScheduled, StatusPublishing, StatusFailed},
	StatusQueued:     {StatusScheduled, StatusPublishing, StatusFailed},
	StatusScheduled:  {StatusQueued, StatusPublishing, StatusFailed},
	StatusPublishing: {StatusPublished, StatusFailed},
	StatusPublished:  {StatusQueued},
	StatusFailed:     {StatusQueued, StatusPublishing},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	return slices.Contains(transitions[from], to)
}

// Level is the severity of a job log entry.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Job is a single social-post work item tracked client-side, independent of
// whether the remote service has acted on it yet. The JSON tags match both
// the persisted document and the wire shape.
type Job struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Channel      string     `json:"channel"`
	ScheduledFor *time.Time `json:"scheduledFor,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	Status       Status     `json:"status"`
	Attempts     int        `json:"attempts"`
	Tags         []string   `json:"tags"`
	Content      string     `json:"content"`
	Prompt       string     `json:"prompt,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
}

// LogEntry is an append-only event attached to exactly one job. Entries are
// never mutated or removed; ordering within a job is insertion order.
type LogEntry struct {
	ID        string    `json:"id"`
	JobID     string    `json:"jobId"`
	Timestamp time.Time `json:"timestamp"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
}

// Patch carries a partial job for Upsert. Nil fields are preserved when the
// id matches an existing record and filled with defaults on insert.
type Patch struct {
	ID           string
	Title        *string
	Channel      *string
	ScheduledFor *time.Time
	Status       *Status
	Attempts     *int
	Tags         []string
	Content      *string
	Prompt       *string
	ErrorMessage *string
}
