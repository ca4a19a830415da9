package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/kantharos-net/LinkedinAutoPost/internal/api"
	"github.com/kantharos-net/LinkedinAutoPost/internal/jobs"
)

const (
	initialRetryWait = time.Second
	maxRetryWait     = 30 * time.Second

	// disabledPollInterval is how often the bridge re-checks whether live
	// logs were switched back on.
	disabledPollInterval = 2 * time.Second
)

// EventSource is an open connection delivering log events one at a time.
// Satisfied by *api.LogStream.
type EventSource interface {
	Next() (api.LogEvent, error)
	Close() error
}

// Dialer opens a new event source. The bridge calls it once per connection
// attempt.
type Dialer func(ctx context.Context) (EventSource, error)

// Sink receives bridged log entries. Implemented by *jobs.Store.
type Sink interface {
	AppendLog(jobID string, entry jobs.LogEntry) (jobs.LogEntry, error)
}

// Bridge keeps a log stream connection alive and mirrors every event into
// the job store. Connection loss is routine: the bridge reconnects with
// exponential backoff and never surfaces transient failures to callers.
type Bridge struct {
	dial    Dialer
	sink    Sink
	enabled func() bool
	logger  *slog.Logger

	// OnEvent, when set, is invoked for every stored entry. Used by the
	// console to echo events as they arrive.
	OnEvent func(jobs.LogEntry)

	wait func(attempt int) time.Duration
}

// New creates a bridge. enabled is consulted before every connection attempt
// so toggling the live-logs setting takes effect without a restart.
func New(dial Dialer, sink Sink, enabled func() bool) *Bridge {
	return &Bridge{
		dial:    dial,
		sink:    sink,
		enabled: enabled,
		logger:  slog.Default(),
		wait:    defaultWait,
	}
}

func defaultWait(attempt int) time.Duration {
	wait := initialRetryWait << attempt
	if wait > maxRetryWait || wait <= 0 {
		wait = maxRetryWait
	}
	return wait
}

// Run connects, consumes, and reconnects until the context is cancelled.
// It always returns ctx.Err().
func (b *Bridge) Run(ctx context.Context) error {
	failures := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !b.enabled() {
			if err := sleep(ctx, disabledPollInterval); err != nil {
				return err
			}
			continue
		}

		src, err := b.dial(ctx)
		if err != nil {
			b.logger.Warn("log stream connect failed", "error", err, "attempt", failures+1)
			if err := sleep(ctx, b.wait(failures)); err != nil {
				return err
			}
			failures++
			continue
		}

		failures = 0
		b.consume(ctx, src)
	}
}

// consume drains the source until it ends or the context is cancelled.
func (b *Bridge) consume(ctx context.Context, src EventSource) {
	// Next has no context parameter; closing the source is the only way to
	// unblock it when the bridge shuts down.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			src.Close()
		case <-done:
		}
	}()
	defer close(done)
	defer src.Close()

	for {
		event, err := src.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				b.logger.Warn("log stream interrupted", "error", err)
			}
			return
		}
		b.deliver(event)
	}
}

func (b *Bridge) deliver(event api.LogEvent) {
	entry := jobs.LogEntry{
		Timestamp: event.Timestamp,
		Level:     parseLevel(event.Level),
		Message:   event.Message,
	}

	stored, err := b.sink.AppendLog(event.JobID, entry)
	if err != nil {
		b.logger.Error("storing streamed log entry", "job_id", event.JobID, "error", err)
		return
	}
	if b.OnEvent != nil {
		b.OnEvent(stored)
	}
}

// parseLevel maps a wire level onto a known severity, defaulting unknown
// values to info rather than dropping the event.
func parseLevel(s string) jobs.Level {
	switch jobs.Level(s) {
	case jobs.LevelInfo, jobs.LevelWarn, jobs.LevelError:
		return jobs.Level(s)
	default:
		return jobs.LevelInfo
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
