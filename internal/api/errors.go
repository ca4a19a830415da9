package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// APIError is the uniform error produced from any failing HTTP response,
// regardless of the upstream's actual error body format.
type APIError struct {
	Message   string
	Status    int
	RequestID string
	Body      []byte
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("api error (status %d, request %s): %s", e.Status, e.RequestID, e.Message)
	}
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}

// normalizeErrorResponse builds an APIError from a non-2xx response. The
// message is extracted, in priority order, from a JSON envelope's nested
// error.message, a top-level error string, a message string, a bare JSON
// string body, the raw text body, or the HTTP status phrase. A body that
// cannot be read falls back to a message derived from the read error.
func normalizeErrorResponse(resp *http.Response) *APIError {
	apiErr := &APIError{
		Status:    resp.StatusCode,
		RequestID: resp.Header.Get("x-request-id"),
		Message:   statusPhrase(resp),
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		apiErr.Message = fmt.Sprintf("failed to read response body: %v", err)
		return apiErr
	}
	apiErr.Body = body

	if msg := extractMessage(body); msg != "" {
		apiErr.Message = msg
	}
	return apiErr
}

// errorEnvelope matches the upstream's error body shapes:
// {"error": "..."}, {"error": {"message": "..."}}, or {"message": "..."}.
type errorEnvelope struct {
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

func extractMessage(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}

	var env errorEnvelope
	if err := json.Unmarshal(trimmed, &env); err == nil {
		if len(env.Error) > 0 {
			var nested struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(env.Error, &nested) == nil && nested.Message != "" {
				return nested.Message
			}
			var errStr string
			if json.Unmarshal(env.Error, &errStr) == nil && errStr != "" {
				return errStr
			}
		}
		if env.Message != "" {
			return env.Message
		}
	}

	var bare string
	if err := json.Unmarshal(trimmed, &bare); err == nil && bare != "" {
		return bare
	}

	return string(trimmed)
}

func statusPhrase(resp *http.Response) string {
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return "Request failed"
}
