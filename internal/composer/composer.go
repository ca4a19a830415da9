package composer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/kantharos-net/LinkedinAutoPost/internal/api"
	"github.com/kantharos-net/LinkedinAutoPost/internal/jobs"
)

// ContentAPI is the slice of the API client the composer needs.
type ContentAPI interface {
	GeneratePostContent(ctx context.Context, req api.GenerateRequest) (string, error)
	PublishPost(ctx context.Context, req api.PublishRequest) (*api.PublishResponse, error)
}

// ErrNoContent is returned when a publish is requested for a post with no
// content. The job is marked failed locally; no network call is made.
var ErrNoContent = errors.New("no content provided")

// Composer drives the post flows: generate, draft, schedule, publish, retry.
// It owns the discipline of always following a network call with a status
// transition, success or failure.
type Composer struct {
	client ContentAPI
	store  *jobs.Store
	logger *slog.Logger
}

// New creates a Composer over the given API client and job store.
func New(client ContentAPI, store *jobs.Store) *Composer {
	return &Composer{
		client: client,
		store:  store,
		logger: slog.Default(),
	}
}

// PostParams carries the user-provided fields of a post. A non-empty ID
// targets an existing record; otherwise a new one is created.
type PostParams struct {
	ID      string
	Title   string
	Channel string
	Tags    []string
	Content string
	Prompt  string
}

func (p PostParams) patch(status jobs.Status) jobs.Patch {
	patch := jobs.Patch{
		ID:      p.ID,
		Status:  &status,
		Content: &p.Content,
		Tags:    p.Tags,
	}
	if p.Tags == nil {
		patch.Tags = []string{}
	}
	if p.Title != "" {
		patch.Title = &p.Title
	}
	if p.Channel != "" {
		patch.Channel = &p.Channel
	}
	if p.Prompt != "" {
		patch.Prompt = &p.Prompt
	}
	return patch
}

// Generate asks the remote service for post content from the given brief.
// Tags double as the skills hint for generation.
func (c *Composer) Generate(ctx context.Context, brief string, tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	return c.client.GeneratePostContent(ctx, api.GenerateRequest{
		Description: brief,
		Skills:      tags,
	})
}

// SaveDraft stores the post as a draft job. No network call is made.
func (c *Composer) SaveDraft(p PostParams) (jobs.Job, error) {
	return c.store.Upsert(p.patch(jobs.StatusDraft))
}

// Schedule stores the post as a scheduled job for the given time. No network
// call is made; publishing happens out-of-band when the slot arrives.
func (c *Composer) Schedule(p PostParams, at time.Time) (jobs.Job, error) {
	patch := p.patch(jobs.StatusScheduled)
	patch.ScheduledFor = &at
	return c.store.Upsert(patch)
}

// Publish creates the job in publishing state and submits it. Empty content
// fails the job locally without touching the network; a rejected call marks
// it failed with the normalized error message; success marks it published.
func (c *Composer) Publish(ctx context.Context, p PostParams) (jobs.Job, error) {
	job, err := c.store.Upsert(p.patch(jobs.StatusPublishing))
	if err != nil {
		return jobs.Job{}, err
	}

	if strings.TrimSpace(p.Content) == "" {
		if err := c.store.UpdateStatus(job.ID, jobs.StatusFailed, "No content provided"); err != nil {
			return jobs.Job{}, err
		}
		return c.refresh(job), ErrNoContent
	}

	resp, err := c.client.PublishPost(ctx, api.PublishRequest{Text: p.Content})
	if err != nil {
		if statusErr := c.store.UpdateStatus(job.ID, jobs.StatusFailed, err.Error()); statusErr != nil {
			c.logger.Error("marking job failed", "job_id", job.ID, "error", statusErr)
		}
		return c.refresh(job), err
	}

	if err := c.store.UpdateStatus(job.ID, jobs.StatusPublished, ""); err != nil {
		return jobs.Job{}, err
	}
	c.logger.Info("post published", "job_id", job.ID, "remote_id", resp.ID)
	return c.refresh(job), nil
}

// Retry moves the job back to the queue and annotates its log. A missing id
// is a silent no-op, matching the store's semantics.
func (c *Composer) Retry(id string) error {
	if err := c.store.UpdateStatus(id, jobs.StatusQueued, ""); err != nil {
		return err
	}
	if _, ok := c.store.Get(id); !ok {
		return nil
	}
	_, err := c.store.AppendLog(id, jobs.LogEntry{
		Level:   jobs.LevelInfo,
		Message: "Job manually retried from console",
	})
	return err
}

func (c *Composer) refresh(job jobs.Job) jobs.Job {
	if current, ok := c.store.Get(job.ID); ok {
		return current
	}
	return job
}
