package workload

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/studiowebux/todoload/internal/executor"
	"github.com/studiowebux/todoload/internal/types"
)

func recorder(calls *[]*types.Request) executor.Doer {
	return executor.DoerFunc(func(ctx context.Context, req *types.Request) *types.Result {
		*calls = append(*calls, req)
		return &types.Result{Step: req.Step, Status: http.StatusOK}
	})
}

func TestIterate_Sequence(t *testing.T) {
	var calls []*types.Request
	var slept time.Duration
	callsBeforeSleep := -1

	g := NewGenerator("http://localhost:8000", recorder(&calls),
		WithRand(rand.New(rand.NewPCG(1, 2))),
		WithSleep(func(ctx context.Context, d time.Duration) error {
			slept = d
			callsBeforeSleep = len(calls)
			return nil
		}))

	if err := g.Iterate(context.Background()); err != nil {
		t.Fatalf("Iterate() error = %v", err)
	}

	if len(calls) != 3 {
		t.Fatalf("expected 3 calls, got %d", len(calls))
	}
	if callsBeforeSleep != 3 {
		t.Errorf("sleep happened after %d calls, want 3", callsBeforeSleep)
	}
	if slept != 500*time.Millisecond {
		t.Errorf("slept %v, want 500ms", slept)
	}

	if calls[0].Method != http.MethodGet || calls[0].URL != "http://localhost:8000/todos/" {
		t.Errorf("call 0 = %s %s", calls[0].Method, calls[0].URL)
	}
	if calls[1].Method != http.MethodGet || !regexp.MustCompile(`^http://localhost:8000/todos/\d+$`).MatchString(calls[1].URL) {
		t.Errorf("call 1 = %s %s", calls[1].Method, calls[1].URL)
	}
	if calls[2].Method != http.MethodPut || !regexp.MustCompile(`^http://localhost:8000/todos/\d+$`).MatchString(calls[2].URL) {
		t.Errorf("call 2 = %s %s", calls[2].Method, calls[2].URL)
	}
	if calls[2].Headers["Content-Type"] != "application/json" {
		t.Errorf("update Content-Type = %q", calls[2].Headers["Content-Type"])
	}

	wantSteps := []string{StepQueryAll, StepQueryOne, StepUpdate}
	for i, step := range wantSteps {
		if calls[i].Step != step {
			t.Errorf("call %d step = %q, want %q", i, calls[i].Step, step)
		}
	}
}

func TestNextRequests_IDRanges(t *testing.T) {
	g := NewGenerator("http://h", nil, WithRand(rand.New(rand.NewPCG(42, 7))))
	idPattern := regexp.MustCompile(`/todos/(\d+)$`)

	seenQuery := make(map[int]bool)
	seenUpdate := make(map[int]bool)

	for i := 0; i < 5000; i++ {
		reqs := g.NextRequests()

		q, _ := strconv.Atoi(idPattern.FindStringSubmatch(reqs[1].URL)[1])
		u, _ := strconv.Atoi(idPattern.FindStringSubmatch(reqs[2].URL)[1])

		if q < 1 || q > MaxQueryID {
			t.Fatalf("query id %d out of [1,%d]", q, MaxQueryID)
		}
		if u < 1 || u > MaxUpdateID {
			t.Fatalf("update id %d out of [1,%d]", u, MaxUpdateID)
		}
		seenQuery[q] = true
		seenUpdate[u] = true
	}

	if len(seenQuery) != MaxQueryID {
		t.Errorf("query ids covered %d values, want %d", len(seenQuery), MaxQueryID)
	}
	if len(seenUpdate) != MaxUpdateID {
		t.Errorf("update ids covered %d values, want %d", len(seenUpdate), MaxUpdateID)
	}
}

func TestNextRequests_UpdateBody(t *testing.T) {
	g := NewGenerator("http://h", nil, WithRand(rand.New(rand.NewPCG(3, 4))))

	seen := map[bool]bool{}
	for i := 0; i < 200; i++ {
		body := g.NextRequests()[2].Body

		var fields map[string]any
		if err := json.Unmarshal(body, &fields); err != nil {
			t.Fatalf("update body is not JSON: %v", err)
		}
		if len(fields) != 1 {
			t.Fatalf("update body has %d keys, want 1: %s", len(fields), body)
		}
		completed, ok := fields["completed"].(bool)
		if !ok {
			t.Fatalf("completed is not a boolean: %s", body)
		}
		seen[completed] = true
	}

	if !seen[true] || !seen[false] {
		t.Errorf("expected both true and false over 200 draws, got %v", seen)
	}
}

func TestIterate_FailuresDoNotChangeSequence(t *testing.T) {
	var calls []*types.Request
	doer := executor.DoerFunc(func(ctx context.Context, req *types.Request) *types.Result {
		calls = append(calls, req)
		return &types.Result{Error: "connection refused"}
	})

	g := NewGenerator("http://h", doer, WithThinkTime(0))
	if err := g.Iterate(context.Background()); err != nil {
		t.Fatalf("Iterate() error = %v", err)
	}
	if len(calls) != 3 {
		t.Errorf("expected 3 calls despite failures, got %d", len(calls))
	}
}

func TestIterate_CancelledDuringPause(t *testing.T) {
	var calls []*types.Request
	g := NewGenerator("http://h", recorder(&calls), WithThinkTime(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := g.Iterate(ctx)
	if err == nil {
		t.Fatal("expected context error")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("pause was not interrupted")
	}
	if len(calls) != 3 {
		t.Errorf("expected 3 calls before the pause, got %d", len(calls))
	}
}

func TestSleep(t *testing.T) {
	start := time.Now()
	if err := Sleep(context.Background(), 20*time.Millisecond); err != nil {
		t.Fatalf("Sleep() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("Sleep returned after %v", elapsed)
	}
}

func TestUpdateBody(t *testing.T) {
	if got := string(updateBody(true)); got != `{"completed":true}` {
		t.Errorf("updateBody(true) = %s", got)
	}
	if got := string(updateBody(false)); got != `{"completed":false}` {
		t.Errorf("updateBody(false) = %s", got)
	}
}
