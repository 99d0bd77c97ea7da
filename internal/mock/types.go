package mock

import (
	"time"

	"github.com/studiowebux/todoload/internal/types"
)

// Config represents the reference server configuration
type Config struct {
	Port      int                `json:"port" yaml:"port"`                     // Server port (default: 8000)
	Host      string             `json:"host" yaml:"host"`                     // Server host (default: localhost)
	DelayMs   int                `json:"delay_ms" yaml:"delay_ms"`             // Artificial latency added to every response
	ListLimit int                `json:"list_limit" yaml:"list_limit"`         // Default page size for listings (default: 10)
	Logging   bool               `json:"logging" yaml:"logging"`               // Keep a request log
	Todos     []types.TodoRecord `json:"todos,omitempty" yaml:"todos,omitempty"` // Preloaded todos
}

// RequestLog represents a logged request
type RequestLog struct {
	Timestamp time.Time     `json:"timestamp"`
	Method    string        `json:"method"`
	Path      string        `json:"path"`
	Body      string        `json:"body"`
	Route     string        `json:"route"`
	Status    int           `json:"status"`
	Duration  time.Duration `json:"duration"`
}

// errorBody is the JSON error payload
type errorBody struct {
	Detail string `json:"detail"`
}
