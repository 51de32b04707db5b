package gateway

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rahul/tasksmith/internal/decompose"
	"github.com/rahul/tasksmith/internal/plan"
	"github.com/rahul/tasksmith/internal/resources"
	"github.com/rahul/tasksmith/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDecomposer struct {
	results []decompose.Result
	calls   int
	seen    []plan.TaskContext
	entered chan struct{}
	release chan struct{}
}

func (d *fakeDecomposer) Decompose(ctx context.Context, tc plan.TaskContext) decompose.Result {
	d.seen = append(d.seen, tc)
	if d.entered != nil {
		d.entered <- struct{}{}
		<-d.release
	}
	r := d.results[min(d.calls, len(d.results)-1)]
	d.calls++
	return r
}

func generated(titles ...string) decompose.Result {
	res := decompose.Result{Source: decompose.SourceGenerated, Attempts: 1}
	for _, t := range titles {
		res.Steps = append(res.Steps, plan.Step{ID: "gen-" + t, Title: t, Deadline: "1 hour", Mandatory: true})
	}
	return res
}

type fakeResolver struct{}

func (fakeResolver) Resolve(ctx context.Context, rawURL string) (resources.Preview, error) {
	if strings.Contains(rawURL, "broken") {
		return resources.Preview{}, errors.New("boom")
	}
	return resources.Preview{URL: rawURL, Title: "Preview of " + rawURL}, nil
}

type fakeImprover struct{}

func (fakeImprover) Improve(ctx context.Context, title, description string) (string, string) {
	return "Better " + title, description + " with detail"
}

func newTestHandler(t *testing.T, d Decomposer) *Handler {
	t.Helper()
	h := NewHandler(d, decompose.NewFallbackProvider(), nil)
	ts, err := store.NewTaskStore(filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ts.Close() })
	h.Store = ts
	h.Resolver = fakeResolver{}
	h.Improver = fakeImprover{}
	return h
}

func stepTitles(h *Handler, chatID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, s := range h.sessions[chatID].steps.Steps() {
		out = append(out, s.Title)
	}
	return out
}

func TestHandleWithoutSession(t *testing.T) {
	h := newTestHandler(t, &fakeDecomposer{results: []decompose.Result{generated("a")}})
	ctx := context.Background()

	assert.Contains(t, h.Handle(ctx, "1", "/steps"), "No active task")
	assert.Contains(t, h.Handle(ctx, "1", "/generate"), "No active task")
	assert.Contains(t, h.Handle(ctx, "1", "/help"), "/generate")
	assert.Contains(t, h.Handle(ctx, "1", "/bogus"), "Unknown command /bogus")
	assert.Contains(t, h.Handle(ctx, "1", "/new"), "Usage")
}

func TestGenerateMergesAndSkipsDuplicates(t *testing.T) {
	d := &fakeDecomposer{results: []decompose.Result{
		generated("Research", "Outline"),
		generated("research", "Draft"),
	}}
	h := newTestHandler(t, d)
	ctx := context.Background()

	h.Handle(ctx, "1", "/new Write essay | about rivers | mid term")
	h.Handle(ctx, "1", "/goal Submit by Friday")
	reply := h.Handle(ctx, "1", "/generate")
	assert.Contains(t, reply, "Added 2 new steps.")
	assert.Equal(t, plan.MidTerm, d.seen[0].Category)
	assert.Equal(t, "Submit by Friday", d.seen[0].Goal)

	reply = h.Handle(ctx, "1", "/generate")
	assert.Contains(t, reply, "Added 1 new steps (1 already on the list).")
	assert.Equal(t, []string{"Research", "Outline", "Draft"}, stepTitles(h, "1"))
}

func TestGenerateFallbackReplacesList(t *testing.T) {
	fb := decompose.NewFallbackProvider().FallbackFor(plan.ShortTerm)
	d := &fakeDecomposer{results: []decompose.Result{{Steps: fb, Source: decompose.SourceFallback, Attempts: 2}}}
	h := newTestHandler(t, d)
	ctx := context.Background()

	h.Handle(ctx, "1", "/new Tidy desk")
	h.Handle(ctx, "1", "/add Throw out old papers")
	reply := h.Handle(ctx, "1", "/generate")

	assert.Contains(t, reply, "standard plan")
	got := stepTitles(h, "1")
	require.Len(t, got, len(fb))
	assert.Equal(t, fb[0].Title, got[0])
}

func TestGenerateBusyGuard(t *testing.T) {
	d := &fakeDecomposer{
		results: []decompose.Result{generated("One")},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	h := newTestHandler(t, d)
	ctx := context.Background()
	h.Handle(ctx, "1", "/new Slow task")

	done := make(chan string)
	go func() { done <- h.Handle(ctx, "1", "/generate") }()
	<-d.entered

	assert.Contains(t, h.Handle(ctx, "1", "/generate"), "Still working")
	close(d.release)
	assert.Contains(t, <-done, "Added 1 new steps.")
	assert.Equal(t, 1, d.calls)
}

func TestEditCommands(t *testing.T) {
	h := newTestHandler(t, &fakeDecomposer{results: []decompose.Result{generated("A", "B", "C")}})
	ctx := context.Background()
	h.Handle(ctx, "1", "/new Letters")
	h.Handle(ctx, "1", "/generate")

	h.Handle(ctx, "1", "/up 2")
	assert.Equal(t, []string{"B", "A", "C"}, stepTitles(h, "1"))
	h.Handle(ctx, "1", "/down 3")
	assert.Equal(t, []string{"B", "A", "C"}, stepTitles(h, "1"))
	assert.Contains(t, h.Handle(ctx, "1", "/toggle 1"), "1. B (1 hour, optional)")
	h.Handle(ctx, "1", "/remove 2")
	assert.Equal(t, []string{"B", "C"}, stepTitles(h, "1"))

	assert.Equal(t, "There is no step 9.", h.Handle(ctx, "1", "/remove 9"))
	assert.Contains(t, h.Handle(ctx, "1", "/up x"), "Usage")

	assert.Equal(t, "Added step 3: D", h.Handle(ctx, "1", "/add D | 2 hours | optional"))
	assert.Contains(t, h.Handle(ctx, "1", "/steps"), "3. D (2 hours, optional)")
	assert.Contains(t, h.Handle(ctx, "1", "/add"), "Usage")
}

func TestResetInstallsFallback(t *testing.T) {
	h := newTestHandler(t, &fakeDecomposer{results: []decompose.Result{generated("A")}})
	ctx := context.Background()
	h.Handle(ctx, "1", "/new Big move | | long-term")
	h.Handle(ctx, "1", "/add Pack")

	h.Handle(ctx, "1", "/reset")
	want := decompose.NewFallbackProvider().FallbackFor(plan.LongTerm)
	got := stepTitles(h, "1")
	require.Len(t, got, len(want))
	assert.Equal(t, want[0].Title, got[0])
}

func TestSaveOpenDelete(t *testing.T) {
	h := newTestHandler(t, &fakeDecomposer{results: []decompose.Result{generated("A", "B")}})
	ctx := context.Background()
	h.Handle(ctx, "1", "/new Saved task | details")
	h.Handle(ctx, "1", "/generate")

	assert.Equal(t, "Saved as task #1.", h.Handle(ctx, "1", "/save"))
	assert.Equal(t, "Saved as task #1.", h.Handle(ctx, "1", "/save"))
	assert.Equal(t, "#1 Saved task (short-term, 2 steps)", h.Handle(ctx, "1", "/tasks"))
	assert.Equal(t, "No saved tasks.", h.Handle(ctx, "2", "/tasks"))

	h.Handle(ctx, "1", "/new Other")
	reply := h.Handle(ctx, "1", "/open 1")
	assert.Contains(t, reply, "Opened task #1.")
	assert.Equal(t, []string{"A", "B"}, stepTitles(h, "1"))
	assert.Equal(t, "Task #7 not found.", h.Handle(ctx, "1", "/open 7"))

	assert.Equal(t, "Deleted task #1.", h.Handle(ctx, "1", "/delete #1"))
	assert.Equal(t, "No saved tasks.", h.Handle(ctx, "1", "/tasks"))
	assert.Equal(t, "Saved as task #2.", h.Handle(ctx, "1", "/save"))
}

func TestLinks(t *testing.T) {
	res := generated("Learn")
	res.Steps[0].Links = []plan.Link{
		{Text: "Tour", URL: "https://go.dev/tour"},
		{Text: "Broken", URL: "https://broken.example"},
	}
	h := newTestHandler(t, &fakeDecomposer{results: []decompose.Result{res}})
	ctx := context.Background()
	h.Handle(ctx, "1", "/new Go")
	h.Handle(ctx, "1", "/generate")

	reply := h.Handle(ctx, "1", "/links 1")
	assert.Contains(t, reply, "Preview of https://go.dev/tour")
	assert.Contains(t, reply, "Broken\nhttps://broken.example")
	assert.Equal(t, "There is no step 2.", h.Handle(ctx, "1", "/links 2"))
}

func TestImprove(t *testing.T) {
	h := newTestHandler(t, &fakeDecomposer{results: []decompose.Result{generated("A")}})
	ctx := context.Background()
	h.Handle(ctx, "1", "/new Garage | messy")

	assert.Equal(t, "Title: Better Garage\nDescription: messy with detail", h.Handle(ctx, "1", "/improve"))
	assert.Contains(t, h.Handle(ctx, "1", "/steps"), "Better Garage [short-term]")
}

func TestSplitCommand(t *testing.T) {
	cmd, arg := splitCommand("/Toggle@tasksmith_bot  3 ")
	assert.Equal(t, "/toggle", cmd)
	assert.Equal(t, "3", arg)

	cmd, arg = splitCommand("hello there")
	assert.Empty(t, cmd)
	assert.Equal(t, "hello there", arg)
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))
	assert.Equal(t, []string{"line one", "line two"}, splitMessage("line one\nline two", 10))
	assert.Equal(t, []string{"abcde", "fghij", "k"}, splitMessage("abcdefghijk", 5))
}

// stallingDecomposer waits for the context to end, then degrades like the real engine.
type stallingDecomposer struct{}

func (stallingDecomposer) Decompose(ctx context.Context, tc plan.TaskContext) decompose.Result {
	<-ctx.Done()
	return decompose.Result{
		Steps:    decompose.NewFallbackProvider().FallbackFor(tc.Category),
		Source:   decompose.SourceFallback,
		Attempts: 2,
	}
}

func TestGenerateTimeoutReleasesSession(t *testing.T) {
	h := newTestHandler(t, stallingDecomposer{})
	h.Timeout = 20 * time.Millisecond
	ctx := context.Background()
	h.Handle(ctx, "1", "/new Stuck task")

	assert.Contains(t, h.Handle(ctx, "1", "/generate"), "standard plan")
	assert.NotContains(t, h.Handle(ctx, "1", "/generate"), "Still working")
}
