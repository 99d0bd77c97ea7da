package types

import "time"

// TodoRecord is the payload the seeder sends to create a todo
type TodoRecord struct {
	Title       string `json:"title" yaml:"title" toml:"title"`
	Description string `json:"description" yaml:"description" toml:"description"`
	Completed   bool   `json:"completed" yaml:"completed" toml:"completed"`
}

// Todo is a todo as stored and returned by the server
type Todo struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// TodoUpdate carries a partial update; nil fields are left untouched
type TodoUpdate struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// Apply merges the set fields of u into t
func (u TodoUpdate) Apply(t *Todo) {
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Completed != nil {
		t.Completed = *u.Completed
	}
}

// TLSConfig contains TLS/SSL configuration for outgoing requests
type TLSConfig struct {
	CertFile           string `json:"cert_file,omitempty" yaml:"cert_file,omitempty" toml:"cert_file"`
	KeyFile            string `json:"key_file,omitempty" yaml:"key_file,omitempty" toml:"key_file"`
	CAFile             string `json:"ca_file,omitempty" yaml:"ca_file,omitempty" toml:"ca_file"`
	InsecureSkipVerify bool   `json:"insecure_skip_verify,omitempty" yaml:"insecure_skip_verify,omitempty" toml:"insecure_skip_verify"`
}

// IsZero reports whether no TLS option is set
func (c *TLSConfig) IsZero() bool {
	return c == nil || (c.CertFile == "" && c.KeyFile == "" && c.CAFile == "" && !c.InsecureSkipVerify)
}

// Request is a single HTTP call issued by the seeder or the workload
type Request struct {
	Step    string            // Logical step name, e.g. "query_todo"
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Result contains the outcome of a Request
type Result struct {
	Step         string
	Method       string
	URL          string
	Status       int    // 0 when the request never got a response
	StatusText   string
	Body         string
	Duration     time.Duration
	RequestSize  int
	ResponseSize int
	Error        string
	Timestamp    time.Time
}

// Failed reports whether the call did not produce a successful response
func (r *Result) Failed() bool {
	return r.Error != "" || r.Status == 0 || r.Status >= 400
}
