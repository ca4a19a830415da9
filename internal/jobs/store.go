package jobs

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// postsDocName and postsDocVersion identify the persisted jobs document.
const (
	postsDocName    = "lap-posts"
	postsDocVersion = 1
)

// DocumentStore is the persistence surface the job store needs.
// Implemented by storage.DB.
type DocumentStore interface {
	SaveDocument(name string, version int, v any) error
	LoadDocument(name string, v any) (int, bool, error)
}

// document is the full persisted jobs document, written in whole on every
// mutation.
type document struct {
	Jobs []Job                 `json:"jobs"`
	Logs map[string][]LogEntry `json:"logs"`
}

// Store is the system of record for jobs and their log histories. All
// mutations go through its operations and write the full document through to
// the database before returning.
type Store struct {
	db     DocumentStore
	logger *slog.Logger

	now   func() time.Time
	newID func() string

	mu   sync.Mutex
	jobs []Job
	logs map[string][]LogEntry
}

// NewStore loads the persisted jobs document (if any) and returns a ready
// store.
func NewStore(db DocumentStore) (*Store, error) {
	s := &Store{
		db:     db,
		logger: slog.Default(),
		now:    time.Now,
		newID:  uuid.NewString,
		logs:   make(map[string][]LogEntry),
	}

	var doc document
	version, found, err := db.LoadDocument(postsDocName, &doc)
	if err != nil {
		return nil, fmt.Errorf("loading jobs document: %w", err)
	}
	if found {
		if version > postsDocVersion {
			s.logger.Warn("jobs document is newer than this build; reading anyway",
				"stored_version", version, "supported_version", postsDocVersion)
		}
		s.jobs = doc.Jobs
		if doc.Logs != nil {
			s.logs = doc.Logs
		}
	}
	return s, nil
}

// persist writes the full document. Callers must hold s.mu.
func (s *Store) persist() error {
	return s.db.SaveDocument(postsDocName, postsDocVersion, document{Jobs: s.jobs, Logs: s.logs})
}

// Upsert merges the patch into the job with a matching id, or inserts a new
// record at the head of the collection with defaults filled. It returns the
// resulting full record.
func (s *Store) Upsert(p Patch) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := p.ID
	if id == "" {
		id = s.newID()
	}

	idx := s.indexOf(id)
	var job Job
	if idx >= 0 {
		job = s.jobs[idx]
	} else {
		job = Job{
			ID:        id,
			Title:     "Untitled Post",
			Channel:   "linkedin",
			CreatedAt: s.now(),
			Status:    StatusDraft,
			Attempts:  0,
			Tags:      []string{},
		}
	}

	applyPatch(&job, p)

	if idx >= 0 {
		s.jobs[idx] = job
	} else {
		s.jobs = append([]Job{job}, s.jobs...)
	}

	if err := s.persist(); err != nil {
		return Job{}, err
	}
	return job, nil
}

func applyPatch(job *Job, p Patch) {
	if p.Title != nil {
		job.Title = *p.Title
	}
	if p.Channel != nil {
		job.Channel = *p.Channel
	}
	if p.ScheduledFor != nil {
		job.ScheduledFor = p.ScheduledFor
	}
	if p.Status != nil {
		job.Status = *p.Status
	}
	if p.Attempts != nil {
		job.Attempts = *p.Attempts
	}
	if p.Tags != nil {
		job.Tags = p.Tags
	}
	if p.Content != nil {
		job.Content = *p.Content
	}
	if p.Prompt != nil {
		job.Prompt = *p.Prompt
	}
	if p.ErrorMessage != nil {
		job.ErrorMessage = *p.ErrorMessage
	}
}

// UpdateStatus sets the job's status and error message (empty clears it).
// Attempts increments exactly when the new status is failed. A missing id is
// a silent no-op: concurrent console actions may race with store resets.
// Transitions outside the table leave the store unchanged and return ErrIllegalTransition.
func (s *Store) UpdateStatus(id string, status Status, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return nil
	}

	job := s.jobs[idx]
	if !CanTransition(job.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, job.Status, status)
	}

	job.Status = status
	job.ErrorMessage = errorMessage
	if status == StatusFailed {
		job.Attempts++
	}
	s.jobs[idx] = job

	return s.persist()
}

// AppendLog assigns a fresh identity to the entry and appends it to the
// job's log sequence, creating the sequence if absent.
func (s *Store) AppendLog(jobID string, entry LogEntry) (LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.ID = s.newID()
	entry.JobID = jobID
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}
	s.logs[jobID] = append(s.logs[jobID], entry)

	if err := s.persist(); err != nil {
		return LogEntry{}, err
	}
	return entry, nil
}

// Logs returns the job's log entries in append order, or an empty slice when
// none exist. The returned slice is a copy.
func (s *Store) Logs(jobID string) []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSlice(s.logs[jobID])
}

// Get returns the job with the given id.
func (s *Store) Get(id string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return Job{}, false
	}
	return s.jobs[idx], true
}

// List returns all jobs, newest first. The returned slice is a copy.
func (s *Store) List() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSlice(s.jobs)
}

// Reset clears all jobs and logs.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs = nil
	s.logs = make(map[string][]LogEntry)
	return s.persist()
}

// indexOf returns the position of the job with the given id, or -1.
// Callers must hold s.mu.
func (s *Store) indexOf(id string) int {
	for i := range s.jobs {
		if s.jobs[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneSlice[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}
