package mock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/studiowebux/todoload/internal/metrics"
	"github.com/studiowebux/todoload/internal/types"
	"go.uber.org/zap"
)

const maxLogs = 1000

// Server is an in-memory todo API the load test can target
type Server struct {
	config     *Config
	store      *Store
	logger     *zap.Logger
	httpServer *http.Server
	listener   net.Listener
	handler    http.Handler
	metrics    *metrics.ServerRecorder
	logs       []RequestLog
	logsMutex  sync.RWMutex
}

// NewServer creates a reference server and loads any preconfigured todos
func NewServer(config *Config, logger *zap.Logger) *Server {
	if config.Port == 0 {
		config.Port = 8000
	}
	if config.Host == "" {
		config.Host = "localhost"
	}
	if config.ListLimit <= 0 {
		config.ListLimit = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		config:  config,
		store:   NewStore(),
		logger:  logger,
		metrics: metrics.NewServerRecorder(),
		logs:    make([]RequestLog, 0),
	}

	for _, record := range config.Todos {
		s.store.Create(record)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /todos", s.route("list", s.handleList))
	mux.HandleFunc("GET /todos/{$}", s.route("list", s.handleList))
	mux.HandleFunc("POST /todos", s.route("create", s.handleCreate))
	mux.HandleFunc("POST /todos/{$}", s.route("create", s.handleCreate))
	mux.HandleFunc("GET /todos/{id}", s.route("read", s.handleRead))
	mux.HandleFunc("PUT /todos/{id}", s.route("update", s.handleUpdate))
	mux.HandleFunc("DELETE /todos/{id}", s.route("delete", s.handleDelete))
	mux.Handle("GET /metrics", s.metrics.Handler())
	s.handler = mux

	return s
}

// Handler returns the server's HTTP handler, for use with httptest
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Store returns the backing store
func (s *Server) Store() *Store {
	return s.store
}

// Start listens on the configured address and serves in the background
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("todo server stopped", zap.Error(err))
		}
	}()

	s.logger.Info("todo server listening", zap.String("addr", listener.Addr().String()))
	return nil
}

// Stop shuts the server down
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// GetAddress returns the base URL the server is reachable at
func (s *Server) GetAddress() string {
	if s.listener != nil {
		return "http://" + s.listener.Addr().String()
	}
	return fmt.Sprintf("http://%s", net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port)))
}

// statusWriter captures the status code written by a handler
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// route wraps a handler with latency injection, metrics and request logging
func (s *Server) route(name string, h func(w http.ResponseWriter, r *http.Request, body []byte)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		s.metrics.RequestStarted(name, r.Method)
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			s.metrics.RequestFinished(name, r.Method, sw.status, time.Since(start))
		}()

		body, _ := io.ReadAll(r.Body)
		r.Body.Close()

		if s.config.DelayMs > 0 {
			select {
			case <-time.After(time.Duration(s.config.DelayMs) * time.Millisecond):
			case <-r.Context().Done():
				sw.status = 499 // client closed request
				return
			}
		}

		h(sw, r, body)

		if s.config.Logging {
			s.logRequest(RequestLog{
				Timestamp: start,
				Method:    r.Method,
				Path:      r.URL.Path,
				Body:      string(body),
				Route:     name,
				Status:    sw.status,
				Duration:  time.Since(start),
			})
		}
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request, _ []byte) {
	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", s.config.ListLimit)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, s.store.List(skip, limit))
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request, body []byte) {
	var record types.TodoRecord
	if err := json.Unmarshal(body, &record); err != nil {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid todo: %v", err))
		return
	}
	if record.Title == "" {
		writeError(w, http.StatusUnprocessableEntity, "title is required")
		return
	}

	todo := s.store.Create(record)
	s.logger.Debug("created todo", zap.Int("id", todo.ID))
	writeJSON(w, http.StatusOK, todo)
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request, _ []byte) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	todo, found := s.store.Get(id)
	if !found {
		writeError(w, http.StatusNotFound, "Todo not found")
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request, body []byte) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var update types.TodoUpdate
	if err := json.Unmarshal(body, &update); err != nil {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid update: %v", err))
		return
	}

	todo, found := s.store.Update(id, update)
	if !found {
		writeError(w, http.StatusNotFound, "Todo not found")
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, _ []byte) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	todo, found := s.store.Delete(id)
	if !found {
		writeError(w, http.StatusNotFound, "Todo not found")
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

// logRequest adds a request to the log
func (s *Server) logRequest(log RequestLog) {
	s.logsMutex.Lock()
	defer s.logsMutex.Unlock()

	s.logs = append(s.logs, log)

	if len(s.logs) > maxLogs {
		s.logs = s.logs[len(s.logs)-maxLogs:]
	}
}

// GetLogs returns all logged requests
func (s *Server) GetLogs() []RequestLog {
	s.logsMutex.RLock()
	defer s.logsMutex.RUnlock()

	logs := make([]RequestLog, len(s.logs))
	copy(logs, s.logs)
	return logs
}

// ClearLogs clears all logged requests
func (s *Server) ClearLogs() {
	s.logsMutex.Lock()
	defer s.logsMutex.Unlock()

	s.logs = make([]RequestLog, 0)
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "todo id must be an integer")
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}
