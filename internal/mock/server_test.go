package mock

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/studiowebux/todoload/internal/types"
)

func newTestServer(t *testing.T, config *Config) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer(config, nil)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func do(t *testing.T, method, url, body string) (int, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func TestServer_CreateAndRead(t *testing.T) {
	_, ts := newTestServer(t, &Config{})

	status, body := do(t, http.MethodPost, ts.URL+"/todos", `{"title":"a","description":"b","completed":false}`)
	if status != http.StatusOK {
		t.Fatalf("create status = %d, body = %s", status, body)
	}
	var created types.Todo
	json.Unmarshal([]byte(body), &created)
	if created.ID != 1 || created.Title != "a" {
		t.Errorf("created = %+v", created)
	}

	// Trailing-slash variant creates too
	status, _ = do(t, http.MethodPost, ts.URL+"/todos/", `{"title":"c","description":"d"}`)
	if status != http.StatusOK {
		t.Fatalf("create via /todos/ status = %d", status)
	}

	status, body = do(t, http.MethodGet, ts.URL+"/todos/2", "")
	if status != http.StatusOK {
		t.Fatalf("read status = %d", status)
	}
	var read types.Todo
	json.Unmarshal([]byte(body), &read)
	if read.ID != 2 || read.Title != "c" {
		t.Errorf("read = %+v", read)
	}
}

func TestServer_ListBothPaths(t *testing.T) {
	_, ts := newTestServer(t, &Config{Todos: []types.TodoRecord{{Title: "one"}, {Title: "two"}}})

	for _, path := range []string{"/todos", "/todos/"} {
		status, body := do(t, http.MethodGet, ts.URL+path, "")
		if status != http.StatusOK {
			t.Fatalf("GET %s status = %d", path, status)
		}
		var todos []types.Todo
		if err := json.Unmarshal([]byte(body), &todos); err != nil {
			t.Fatalf("GET %s body: %v", path, err)
		}
		if len(todos) != 2 {
			t.Errorf("GET %s returned %d todos", path, len(todos))
		}
	}
}

func TestServer_ListPaging(t *testing.T) {
	var records []types.TodoRecord
	for _, title := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
		records = append(records, types.TodoRecord{Title: title})
	}
	_, ts := newTestServer(t, &Config{Todos: records})

	tests := []struct {
		query     string
		wantCount int
		wantFirst int
	}{
		{"", 10, 1},
		{"?skip=10", 2, 11},
		{"?limit=3", 3, 1},
		{"?skip=2&limit=2", 2, 3},
		{"?limit=100000000000000", 12, 1},
		{"?limit=1000000000000000000", 12, 1},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			_, body := do(t, http.MethodGet, ts.URL+"/todos/"+tt.query, "")
			var todos []types.Todo
			json.Unmarshal([]byte(body), &todos)
			if len(todos) != tt.wantCount {
				t.Fatalf("got %d todos, want %d", len(todos), tt.wantCount)
			}
			if todos[0].ID != tt.wantFirst {
				t.Errorf("first id = %d, want %d", todos[0].ID, tt.wantFirst)
			}
		})
	}

	status, _ := do(t, http.MethodGet, ts.URL+"/todos/?limit=x", "")
	if status != http.StatusUnprocessableEntity {
		t.Errorf("bad limit status = %d, want 422", status)
	}
}

func TestStore_ListHugeLimit(t *testing.T) {
	store := NewStore()
	store.Create(types.TodoRecord{Title: "only"})

	todos := store.List(0, int(^uint(0)>>1))
	if len(todos) != 1 {
		t.Fatalf("got %d todos, want 1", len(todos))
	}
	if got := store.List(5, 1<<40); len(got) != 0 {
		t.Errorf("skip past end returned %d todos", len(got))
	}
}

func TestServer_Update(t *testing.T) {
	s, ts := newTestServer(t, &Config{Todos: []types.TodoRecord{{Title: "a", Description: "keep"}}})

	status, body := do(t, http.MethodPut, ts.URL+"/todos/1", `{"completed":true}`)
	if status != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", status, body)
	}

	todo, _ := s.Store().Get(1)
	if !todo.Completed || todo.Title != "a" || todo.Description != "keep" {
		t.Errorf("after update = %+v", todo)
	}

	status, body = do(t, http.MethodPut, ts.URL+"/todos/42", `{"completed":true}`)
	if status != http.StatusNotFound {
		t.Errorf("update missing status = %d", status)
	}
	if !strings.Contains(body, "Todo not found") {
		t.Errorf("update missing body = %s", body)
	}
}

func TestServer_NotFoundAndBadID(t *testing.T) {
	_, ts := newTestServer(t, &Config{})

	if status, _ := do(t, http.MethodGet, ts.URL+"/todos/7", ""); status != http.StatusNotFound {
		t.Errorf("missing todo status = %d, want 404", status)
	}
	if status, _ := do(t, http.MethodGet, ts.URL+"/todos/abc", ""); status != http.StatusUnprocessableEntity {
		t.Errorf("bad id status = %d, want 422", status)
	}
	if status, _ := do(t, http.MethodPost, ts.URL+"/todos", `{"description":"no title"}`); status != http.StatusUnprocessableEntity {
		t.Errorf("missing title status = %d, want 422", status)
	}
}

func TestServer_Delete(t *testing.T) {
	s, ts := newTestServer(t, &Config{Todos: []types.TodoRecord{{Title: "a"}, {Title: "b"}}})

	if status, _ := do(t, http.MethodDelete, ts.URL+"/todos/1", ""); status != http.StatusOK {
		t.Fatalf("delete status = %d", status)
	}
	if s.Store().Len() != 1 {
		t.Errorf("store has %d todos, want 1", s.Store().Len())
	}
	if status, _ := do(t, http.MethodDelete, ts.URL+"/todos/1", ""); status != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", status)
	}

	// IDs are not reused
	_, body := do(t, http.MethodPost, ts.URL+"/todos", `{"title":"c"}`)
	var created types.Todo
	json.Unmarshal([]byte(body), &created)
	if created.ID != 3 {
		t.Errorf("new id = %d, want 3", created.ID)
	}
}

func TestServer_RequestLog(t *testing.T) {
	s, ts := newTestServer(t, &Config{Logging: true})

	do(t, http.MethodGet, ts.URL+"/todos", "")
	do(t, http.MethodGet, ts.URL+"/todos/1", "")

	logs := s.GetLogs()
	if len(logs) != 2 {
		t.Fatalf("got %d logs, want 2", len(logs))
	}
	if logs[0].Route != "list" || logs[0].Status != http.StatusOK {
		t.Errorf("log 0 = %+v", logs[0])
	}
	if logs[1].Route != "read" || logs[1].Status != http.StatusNotFound {
		t.Errorf("log 1 = %+v", logs[1])
	}

	s.ClearLogs()
	if len(s.GetLogs()) != 0 {
		t.Error("ClearLogs did not clear")
	}
}

func TestServer_Delay(t *testing.T) {
	_, ts := newTestServer(t, &Config{DelayMs: 50})

	start := time.Now()
	do(t, http.MethodGet, ts.URL+"/todos", "")
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("response after %v, want >= 50ms", elapsed)
	}
}

func TestServer_StartStop(t *testing.T) {
	s := NewServer(&Config{Host: "127.0.0.1", Port: freePort(t)}, nil)

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop(context.Background())

	status, _ := do(t, http.MethodGet, s.GetAddress()+"/todos", "")
	if status != http.StatusOK {
		t.Errorf("status = %d", status)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")
	os.WriteFile(path, []byte("port: 9000\ndelay_ms: 5\ntodos:\n  - title: a\n  - title: b\n"), 0644)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if config.Port != 9000 || config.DelayMs != 5 || len(config.Todos) != 2 || !config.Logging {
		t.Errorf("config = %+v", config)
	}

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("delay_ms: -1\n"), 0644)
	if _, err := LoadConfig(bad); err == nil {
		t.Error("expected error for negative delay")
	}
}

func TestServer_Metrics(t *testing.T) {
	_, ts := newTestServer(t, &Config{})

	do(t, http.MethodGet, ts.URL+"/todos/", "")
	do(t, http.MethodGet, ts.URL+"/todos/9", "")
	do(t, http.MethodPut, ts.URL+"/todos/9", `{"completed":true}`)

	status, body := do(t, http.MethodGet, ts.URL+"/metrics", "")
	if status != http.StatusOK {
		t.Fatalf("metrics status = %d", status)
	}

	for _, want := range []string{
		`todoserver_requests_total{code="200",method="GET",route="list"} 1`,
		`todoserver_requests_total{code="404",method="GET",route="read"} 1`,
		`todoserver_requests_total{code="404",method="PUT",route="update"} 1`,
		`todoserver_requests_in_progress{method="GET",route="list"} 0`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
