package api

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// logStreamPath is the fixed path of the persistent one-way event stream.
const logStreamPath = "/jobs/logs"

// LogEvent is one message from the job log stream.
type LogEvent struct {
	JobID     string    `json:"jobId"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// LogStream is an open server-sent-events connection to the job log feed.
// The caller owns closing it; Next never returns after Close.
type LogStream struct {
	body    io.ReadCloser
	cancel  context.CancelFunc
	scanner *bufio.Scanner
	logger  *slog.Logger
}

// OpenLogStream connects to the log feed under the configured base URL. The
// returned stream must be closed by the caller.
func (c *Client) OpenLogStream(ctx context.Context) (*LogStream, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, c.buildURL(logStreamPath), nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	if token := c.settings.Settings().APIToken; token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.streamClient.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := normalizeErrorResponse(resp)
		resp.Body.Close()
		cancel()
		return nil, apiErr
	}

	return &LogStream{
		body:    resp.Body,
		cancel:  cancel,
		scanner: bufio.NewScanner(resp.Body),
		logger:  slog.Default(),
	}, nil
}

// Next blocks until the next well-formed log event arrives. Malformed
// payloads are logged locally and dropped; they never end the stream. It
// returns io.EOF when the connection closes.
func (s *LogStream) Next() (LogEvent, error) {
	var data strings.Builder

	for s.scanner.Scan() {
		line := s.scanner.Text()

		switch {
		case strings.HasPrefix(line, "data:"):
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case line == "":
			// Frame boundary: dispatch whatever data accumulated.
			if data.Len() == 0 {
				continue
			}
			var event LogEvent
			if err := json.Unmarshal([]byte(data.String()), &event); err != nil {
				s.logger.Warn("dropping malformed log event", "error", err, "payload", data.String())
				data.Reset()
				continue
			}
			return event, nil
		default:
			// Comments and non-data fields are ignored.
		}
	}

	if err := s.scanner.Err(); err != nil {
		return LogEvent{}, err
	}
	return LogEvent{}, io.EOF
}

// Close tears down the connection. It is safe to call from another goroutine
// while Next is blocked.
func (s *LogStream) Close() error {
	s.cancel()
	return s.body.Close()
}
