package jobs

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/kantharos-net/LinkedinAutoPost/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestUpsert_InsertFillsDefaults(t *testing.T) {
	s := openTestStore(t)

	job, err := s.Upsert(Patch{Prompt: ptr("write about launches")})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if job.ID == "" {
		t.Error("ID is empty, want generated id")
	}
	if job.Title != "Untitled Post" {
		t.Errorf("Title = %q, want Untitled Post", job.Title)
	}
	if job.Channel != "linkedin" {
		t.Errorf("Channel = %q, want linkedin", job.Channel)
	}
	if job.Status != StatusDraft {
		t.Errorf("Status = %q, want draft", job.Status)
	}
	if job.Attempts != 0 {
		t.Errorf("Attempts = %d, want 0", job.Attempts)
	}
	if job.Tags == nil || len(job.Tags) != 0 {
		t.Errorf("Tags = %v, want empty slice", job.Tags)
	}
	if job.CreatedAt.IsZero() {
		t.Error("CreatedAt is zero, want now")
	}
	if job.Prompt != "write about launches" {
		t.Errorf("Prompt = %q, want provided value", job.Prompt)
	}
}

func TestUpsert_InsertsAtHead(t *testing.T) {
	s := openTestStore(t)

	first, _ := s.Upsert(Patch{Title: ptr("first")})
	second, _ := s.Upsert(Patch{Title: ptr("second")})

	list := s.List()
	if len(list) != 2 {
		t.Fatalf("len(List()) = %d, want 2", len(list))
	}
	if list[0].ID != second.ID || list[1].ID != first.ID {
		t.Errorf("order = [%s %s], want newest first", list[0].Title, list[1].Title)
	}
}

func TestUpsert_MergePreservesOmittedFields(t *testing.T) {
	s := openTestStore(t)

	created, err := s.Upsert(Patch{
		Title:   ptr("Launch recap"),
		Content: ptr("original content"),
		Tags:    []string{"launch"},
		Prompt:  ptr("brief"),
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	updated, err := s.Upsert(Patch{ID: created.ID, Title: ptr("Launch recap v2")})
	if err != nil {
		t.Fatalf("Upsert (merge): %v", err)
	}

	if updated.Title != "Launch recap v2" {
		t.Errorf("Title = %q, want Launch recap v2", updated.Title)
	}
	if updated.Content != "original content" {
		t.Errorf("Content = %q, want preserved original", updated.Content)
	}
	if len(updated.Tags) != 1 || updated.Tags[0] != "launch" {
		t.Errorf("Tags = %v, want preserved [launch]", updated.Tags)
	}
	if updated.Prompt != "brief" {
		t.Errorf("Prompt = %q, want preserved brief", updated.Prompt)
	}
	if updated.CreatedAt != created.CreatedAt {
		t.Errorf("CreatedAt changed: %v -> %v", created.CreatedAt, updated.CreatedAt)
	}
	if len(s.List()) != 1 {
		t.Errorf("len(List()) = %d, want 1 (merge, not insert)", len(s.List()))
	}
}

func TestUpsert_LastWriteWinsPerField(t *testing.T) {
	s := openTestStore(t)

	created, _ := s.Upsert(Patch{Title: ptr("one"), Content: ptr("a")})
	s.Upsert(Patch{ID: created.ID, Content: ptr("b")})
	s.Upsert(Patch{ID: created.ID, Title: ptr("two")})
	final, _ := s.Upsert(Patch{ID: created.ID, Content: ptr("c")})

	if final.Title != "two" {
		t.Errorf("Title = %q, want two", final.Title)
	}
	if final.Content != "c" {
		t.Errorf("Content = %q, want c", final.Content)
	}
}

func TestUpdateStatus_AttemptsTrackFailures(t *testing.T) {
	s := openTestStore(t)

	job, _ := s.Upsert(Patch{Status: ptr(StatusPublishing)})

	steps := []struct {
		status       Status
		wantAttempts int
	}{
		{StatusFailed, 1},
		{StatusQueued, 1},
		{StatusPublishing, 1},
		{StatusFailed, 2},
		{StatusPublishing, 2},
		{StatusPublished, 2},
	}
	for _, step := range steps {
		if err := s.UpdateStatus(job.ID, step.status, ""); err != nil {
			t.Fatalf("UpdateStatus(%s): %v", step.status, err)
		}
		got, _ := s.Get(job.ID)
		if got.Attempts != step.wantAttempts {
			t.Errorf("after -> %s: Attempts = %d, want %d", step.status, got.Attempts, step.wantAttempts)
		}
	}
}

func TestUpdateStatus_SetsAndClearsErrorMessage(t *testing.T) {
	s := openTestStore(t)

	job, _ := s.Upsert(Patch{Status: ptr(StatusPublishing)})

	if err := s.UpdateStatus(job.ID, StatusFailed, "upstream returned 500"); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	got, _ := s.Get(job.ID)
	if got.ErrorMessage != "upstream returned 500" {
		t.Errorf("ErrorMessage = %q, want upstream returned 500", got.ErrorMessage)
	}

	if err := s.UpdateStatus(job.ID, StatusQueued, ""); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	got, _ = s.Get(job.ID)
	if got.ErrorMessage != "" {
		t.Errorf("ErrorMessage = %q, want cleared", got.ErrorMessage)
	}
}

func TestUpdateStatus_MissingIDIsNoOp(t *testing.T) {
	s := openTestStore(t)

	s.Upsert(Patch{Title: ptr("only job")})
	before := s.List()

	if err := s.UpdateStatus("does-not-exist", StatusFailed, "boom"); err != nil {
		t.Fatalf("UpdateStatus on missing id returned error: %v", err)
	}

	after := s.List()
	if !reflect.DeepEqual(before, after) {
		t.Errorf("store changed: %+v -> %+v", before, after)
	}
}

func TestUpdateStatus_IllegalTransition(t *testing.T) {
	s := openTestStore(t)

	job, _ := s.Upsert(Patch{Status: ptr(StatusPublished)})

	err := s.UpdateStatus(job.ID, StatusDraft, "")
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("err = %v, want ErrIllegalTransition", err)
	}

	got, _ := s.Get(job.ID)
	if got.Status != StatusPublished {
		t.Errorf("Status = %q, want unchanged published", got.Status)
	}
	if got.Attempts != 0 {
		t.Errorf("Attempts = %d, want unchanged 0", got.Attempts)
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusDraft, StatusQueued, true},
		{StatusDraft, StatusPublishing, true},
		{StatusDraft, StatusPublished, false},
		{StatusScheduled, StatusQueued, true},
		{StatusPublishing, StatusPublished, true},
		{StatusPublishing, StatusQueued, false},
		{StatusPublished, StatusQueued, true},
		{StatusPublished, StatusDraft, false},
		{StatusFailed, StatusQueued, true},
		{StatusFailed, StatusFailed, true},
		{StatusQueued, StatusQueued, true},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestAppendLog_OrderAndIdentity(t *testing.T) {
	s := openTestStore(t)

	job, _ := s.Upsert(Patch{})

	messages := []string{"first", "second", "third"}
	for _, m := range messages {
		if _, err := s.AppendLog(job.ID, LogEntry{Level: LevelInfo, Message: m}); err != nil {
			t.Fatalf("AppendLog(%q): %v", m, err)
		}
	}

	logs := s.Logs(job.ID)
	if len(logs) != len(messages) {
		t.Fatalf("len(Logs) = %d, want %d", len(logs), len(messages))
	}
	seen := map[string]bool{}
	for i, entry := range logs {
		if entry.Message != messages[i] {
			t.Errorf("logs[%d].Message = %q, want %q (append order)", i, entry.Message, messages[i])
		}
		if entry.ID == "" {
			t.Errorf("logs[%d].ID is empty", i)
		}
		if seen[entry.ID] {
			t.Errorf("duplicate log id %q", entry.ID)
		}
		seen[entry.ID] = true
		if entry.JobID != job.ID {
			t.Errorf("logs[%d].JobID = %q, want %q", i, entry.JobID, job.ID)
		}
	}
}

func TestLogs_UnknownJobReturnsEmpty(t *testing.T) {
	s := openTestStore(t)

	logs := s.Logs("missing")
	if len(logs) != 0 {
		t.Errorf("len(Logs) = %d, want 0", len(logs))
	}
}

func TestAppendLog_CreatesSequenceForUnknownJob(t *testing.T) {
	s := openTestStore(t)

	// Streamed events may reference jobs this session has never seen.
	entry, err := s.AppendLog("remote-only-job", LogEntry{Level: LevelWarn, Message: "late event"})
	if err != nil {
		t.Fatalf("AppendLog: %v", err)
	}
	if entry.JobID != "remote-only-job" {
		t.Errorf("JobID = %q, want remote-only-job", entry.JobID)
	}
	if got := s.Logs("remote-only-job"); len(got) != 1 {
		t.Errorf("len(Logs) = %d, want 1", len(got))
	}
}

func TestReset_ClearsJobsAndLogs(t *testing.T) {
	s := openTestStore(t)

	job, _ := s.Upsert(Patch{})
	s.AppendLog(job.ID, LogEntry{Level: LevelInfo, Message: "hello"})

	if err := s.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if len(s.List()) != 0 {
		t.Errorf("len(List()) = %d, want 0", len(s.List()))
	}
	if len(s.Logs(job.ID)) != 0 {
		t.Errorf("len(Logs) = %d, want 0", len(s.Logs(job.ID)))
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	db, err := storage.Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	job, err := s.Upsert(Patch{Title: ptr("persisted"), Status: ptr(StatusScheduled), ScheduledFor: ptr(time.Now().Add(time.Hour).UTC())})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if _, err := s.AppendLog(job.ID, LogEntry{Level: LevelInfo, Message: "queued for later"}); err != nil {
		t.Fatalf("AppendLog: %v", err)
	}
	db.Close()

	db2, err := storage.Open(dir)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer db2.Close()

	s2, err := NewStore(db2)
	if err != nil {
		t.Fatalf("NewStore after reopen: %v", err)
	}
	got, ok := s2.Get(job.ID)
	if !ok {
		t.Fatal("job missing after reopen")
	}
	if got.Title != "persisted" || got.Status != StatusScheduled {
		t.Errorf("job = %+v, want persisted/scheduled", got)
	}
	if got.ScheduledFor == nil {
		t.Error("ScheduledFor = nil, want preserved timestamp")
	}
	if logs := s2.Logs(job.ID); len(logs) != 1 || logs[0].Message != "queued for later" {
		t.Errorf("logs after reopen = %v, want 1 preserved entry", logs)
	}
}

func TestSeed_PopulatesOnceOnly(t *testing.T) {
	s := openTestStore(t)

	seeded, err := s.Seed()
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if !seeded {
		t.Error("Seed() = false on empty store, want true")
	}
	first := s.List()
	if len(first) != 3 {
		t.Fatalf("len(List()) = %d, want 3", len(first))
	}

	seeded, err = s.Seed()
	if err != nil {
		t.Fatalf("Seed (second): %v", err)
	}
	if seeded {
		t.Error("Seed() = true on populated store, want false")
	}
	if len(s.List()) != 3 {
		t.Errorf("len(List()) after reseed = %d, want 3 (no-op)", len(s.List()))
	}

	var failed *Job
	for i := range first {
		if first[i].Status == StatusFailed {
			failed = &first[i]
		}
	}
	if failed == nil {
		t.Fatal("seed data has no failed job")
	}
	if failed.ErrorMessage == "" {
		t.Error("failed seed job has no error message")
	}
	if failed.Attempts != 2 {
		t.Errorf("failed seed job Attempts = %d, want 2", failed.Attempts)
	}
}
