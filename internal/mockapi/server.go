package mockapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kantharos-net/LinkedinAutoPost/internal/api"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Server is a stand-in for the real publishing backend. It answers the
// content-generation and publish endpoints with canned responses and feeds a
// live log stream, so the console can be exercised end to end without
// credentials or a network.
type Server struct {
	hub   *hub
	token string
	newID func() string
	now   func() time.Time
}

// Option configures the mock server.
type Option func(*Server)

// WithToken makes the server require the given bearer token on every
// endpoint except the banner and health check.
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// NewServer creates a mock backend.
func NewServer(opts ...Option) *Server {
	s := &Server{
		hub:   newHub(),
		newID: uuid.NewString,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the server's HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.handleBanner)
	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		if s.token != "" {
			r.Use(s.requireBearer)
		}
		r.Post("/makePostContent", s.handleMakePostContent)
		r.Post("/postPost", s.handlePostPost)
		r.Get("/jobs/logs", s.handleLogStream)
	})

	return r
}

// Emit publishes a log event to every connected stream subscriber. The mock
// command uses it to generate synthetic job activity.
func (s *Server) Emit(jobID, level, message string) {
	s.hub.broadcast(api.LogEvent{
		JobID:     jobID,
		Level:     level,
		Message:   message,
		Timestamp: s.now().UTC(),
	})
}

// Subscribers reports how many log stream connections are open.
func (s *Server) Subscribers() int {
	return s.hub.subscriberCount()
}

func (s *Server) handleBanner(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "LinkedinAutoPost mock backend")
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

type makePostContentRequest struct {
	Description string   `json:"description"`
	Skills      []string `json:"skills"`
}

func (s *Server) handleMakePostContent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	var req makePostContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		httpError(w, http.StatusBadRequest, "description is required")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "Generated post for: %s", req.Description)
}

type postPostRequest struct {
	Text string `json:"text"`
}

func (s *Server) handlePostPost(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	var req postPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		httpError(w, http.StatusBadRequest, "text is required")
		return
	}

	id := s.newID()
	s.Emit(id, "info", "Post accepted by mock backend")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"id":   id,
		"text": req.Text,
	})
}

func (s *Server) handleLogStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	events, cancel := s.hub.subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				slog.Error("marshalling log event", "error", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth != "Bearer "+s.token {
			httpError(w, http.StatusUnauthorized, "missing or invalid bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func httpError(w http.ResponseWriter, code int, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
		},
	})
}
