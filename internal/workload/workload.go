// Package workload implements the per-iteration request sequence run by
// each virtual user.
package workload

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/studiowebux/todoload/internal/executor"
	"github.com/studiowebux/todoload/internal/types"
)

// Step names, in the order they run within an iteration
const (
	StepQueryAll = "query_all_todos"
	StepQueryOne = "query_todo"
	StepUpdate   = "update_todo"
)

// Steps lists the iteration steps in execution order
var Steps = []string{StepQueryAll, StepQueryOne, StepUpdate}

// ID ranges guessed by the iteration. The server assigns IDs; the
// workload does not track them.
const (
	MaxQueryID  = 10
	MaxUpdateID = 5
)

// DefaultThinkTime is the pause at the end of every iteration
const DefaultThinkTime = 500 * time.Millisecond

// Generator runs iterations for a single virtual user. It is not safe for
// concurrent use; give each VU its own Generator.
type Generator struct {
	baseURL   string
	doer      executor.Doer
	rng       *rand.Rand
	thinkTime time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
}

// Option configures a Generator
type Option func(*Generator)

// WithThinkTime overrides the end-of-iteration pause
func WithThinkTime(d time.Duration) Option {
	return func(g *Generator) {
		g.thinkTime = d
	}
}

// WithRand sets the random source used for IDs and update values
func WithRand(rng *rand.Rand) Option {
	return func(g *Generator) {
		g.rng = rng
	}
}

// WithSleep replaces the pause implementation
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(g *Generator) {
		g.sleep = sleep
	}
}

// NewGenerator creates a generator targeting baseURL
func NewGenerator(baseURL string, doer executor.Doer, opts ...Option) *Generator {
	g := &Generator{
		baseURL:   strings.TrimRight(baseURL, "/"),
		doer:      doer,
		thinkTime: DefaultThinkTime,
		sleep:     Sleep,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return g
}

// Iterate runs one iteration: list all todos, fetch one, update one, then
// pause. Responses are discarded and failures do not alter the sequence.
// The only error is ctx's, when the run ends during the pause or before a
// step starts.
func (g *Generator) Iterate(ctx context.Context) error {
	for _, req := range g.NextRequests() {
		if err := ctx.Err(); err != nil {
			return err
		}
		g.doer.Do(ctx, req)
	}
	return g.sleep(ctx, g.thinkTime)
}

// NextRequests draws the random values for one iteration and builds its
// three requests in order.
func (g *Generator) NextRequests() []*types.Request {
	queryID := g.QueryID()
	updateID := g.UpdateID()
	body := updateBody(g.rng.IntN(2) == 1)

	return []*types.Request{
		{
			Step:   StepQueryAll,
			Method: http.MethodGet,
			URL:    g.baseURL + "/todos/",
		},
		{
			Step:   StepQueryOne,
			Method: http.MethodGet,
			URL:    fmt.Sprintf("%s/todos/%d", g.baseURL, queryID),
		},
		{
			Step:    StepUpdate,
			Method:  http.MethodPut,
			URL:     fmt.Sprintf("%s/todos/%d", g.baseURL, updateID),
			Headers: map[string]string{"Content-Type": "application/json"},
			Body:    body,
		},
	}
}

// QueryID returns a uniformly random ID in [1, MaxQueryID]
func (g *Generator) QueryID() int {
	return g.rng.IntN(MaxQueryID) + 1
}

// UpdateID returns a uniformly random ID in [1, MaxUpdateID]
func (g *Generator) UpdateID() int {
	return g.rng.IntN(MaxUpdateID) + 1
}

// updateBody is the only payload sent by the update step
func updateBody(completed bool) []byte {
	return []byte(`{"completed":` + strconv.FormatBool(completed) + `}`)
}

// Sleep pauses for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
