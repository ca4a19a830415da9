package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func makeResponse(t *testing.T, status int, contentType, body string, headers map[string]string) *http.Response {
	t.Helper()
	rec := httptest.NewRecorder()
	if contentType != "" {
		rec.Header().Set("Content-Type", contentType)
	}
	for k, v := range headers {
		rec.Header().Set(k, v)
	}
	rec.WriteHeader(status)
	rec.Body.WriteString(body)
	return rec.Result()
}

func TestNormalize_NestedErrorMessage(t *testing.T) {
	resp := makeResponse(t, 400, "application/json",
		`{"error":{"message":"Invalid payload"}}`,
		map[string]string{"x-request-id": "abc-123"})

	got := normalizeErrorResponse(resp)
	if got.Message != "Invalid payload" {
		t.Errorf("Message = %q, want Invalid payload", got.Message)
	}
	if got.Status != 400 {
		t.Errorf("Status = %d, want 400", got.Status)
	}
	if got.RequestID != "abc-123" {
		t.Errorf("RequestID = %q, want abc-123", got.RequestID)
	}
}

func TestNormalize_TopLevelErrorString(t *testing.T) {
	resp := makeResponse(t, 422, "application/json", `{"error":"quota exceeded"}`, nil)

	got := normalizeErrorResponse(resp)
	if got.Message != "quota exceeded" {
		t.Errorf("Message = %q, want quota exceeded", got.Message)
	}
}

func TestNormalize_MessageField(t *testing.T) {
	resp := makeResponse(t, 403, "application/json", `{"message":"forbidden channel"}`, nil)

	got := normalizeErrorResponse(resp)
	if got.Message != "forbidden channel" {
		t.Errorf("Message = %q, want forbidden channel", got.Message)
	}
}

func TestNormalize_BareJSONString(t *testing.T) {
	resp := makeResponse(t, 500, "application/json", `"backend exploded"`, nil)

	got := normalizeErrorResponse(resp)
	if got.Message != "backend exploded" {
		t.Errorf("Message = %q, want backend exploded", got.Message)
	}
}

func TestNormalize_PlainTextBody(t *testing.T) {
	resp := makeResponse(t, 500, "text/plain", "Something went wrong", nil)

	got := normalizeErrorResponse(resp)
	if !strings.Contains(got.Message, "Something went wrong") {
		t.Errorf("Message = %q, want it to contain the text body", got.Message)
	}
	if got.Status != 500 {
		t.Errorf("Status = %d, want 500", got.Status)
	}
}

func TestNormalize_MalformedJSONFallsBackToText(t *testing.T) {
	resp := makeResponse(t, 502, "application/json", `{"error": not-json`, nil)

	got := normalizeErrorResponse(resp)
	if !strings.Contains(got.Message, "not-json") {
		t.Errorf("Message = %q, want raw body fallback", got.Message)
	}
}

func TestNormalize_EmptyBodyUsesStatusPhrase(t *testing.T) {
	resp := makeResponse(t, 503, "", "", nil)

	got := normalizeErrorResponse(resp)
	if got.Message != "Service Unavailable" {
		t.Errorf("Message = %q, want Service Unavailable", got.Message)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }
func (failingReader) Close() error             { return nil }

func TestNormalize_UnreadableBody(t *testing.T) {
	resp := &http.Response{
		StatusCode: 500,
		Header:     http.Header{},
		Body:       failingReader{},
	}

	got := normalizeErrorResponse(resp)
	if got.Status != 500 {
		t.Errorf("Status = %d, want 500", got.Status)
	}
	if !strings.Contains(got.Message, "failed to read response body") {
		t.Errorf("Message = %q, want read-failure fallback", got.Message)
	}
}

func TestNormalize_KeepsRawBody(t *testing.T) {
	resp := makeResponse(t, 400, "application/json", `{"error":"nope","hint":"check fields"}`, nil)

	got := normalizeErrorResponse(resp)
	if !strings.Contains(string(got.Body), "check fields") {
		t.Errorf("Body = %q, want full raw body kept for diagnostics", got.Body)
	}
}

func TestAPIError_ErrorString(t *testing.T) {
	err := &APIError{Message: "boom", Status: 500, RequestID: "req-1"}
	if !strings.Contains(err.Error(), "boom") || !strings.Contains(err.Error(), "500") {
		t.Errorf("Error() = %q, want message and status included", err.Error())
	}
}
