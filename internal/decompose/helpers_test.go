package decompose

import (
	"context"
	"fmt"
	"sync"

	"github.com/rahul/tasksmith/internal/plan"
)

type reply struct {
	text string
	err  error
}

// scriptedOracle replays replies in order and repeats the last one.
type scriptedOracle struct {
	mu       sync.Mutex
	replies  []reply
	requests []string
}

func newScripted(replies ...reply) *scriptedOracle {
	return &scriptedOracle{replies: replies}
}

func (o *scriptedOracle) Generate(ctx context.Context, request string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.requests = append(o.requests, request)
	r := o.replies[len(o.replies)-1]
	if idx := len(o.requests) - 1; idx < len(o.replies) {
		r = o.replies[idx]
	}
	return r.text, r.err
}

func (o *scriptedOracle) calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.requests)
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func titles(steps []plan.Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.Title
	}
	return out
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
