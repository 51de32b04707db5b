package gateway

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rahul/tasksmith/internal/decompose"
	"github.com/rahul/tasksmith/internal/editor"
	"github.com/rahul/tasksmith/internal/observability"
	"github.com/rahul/tasksmith/internal/plan"
	"github.com/rahul/tasksmith/internal/resources"
	"github.com/rahul/tasksmith/internal/store"
)

// Decomposer produces steps for a task. It never fails.
type Decomposer interface {
	Decompose(ctx context.Context, tc plan.TaskContext) decompose.Result
}

type Improver interface {
	Improve(ctx context.Context, title, description string) (string, string)
}

type FallbackSource interface {
	FallbackFor(c plan.Category) []plan.Step
}

type TaskStore interface {
	SaveTask(chatID string, t store.Task) (int64, error)
	GetTask(chatID string, id int64) (*store.Task, error)
	ListTasks(chatID string) ([]store.TaskSummary, error)
	DeleteTask(chatID string, id int64) error
}

type LinkResolver interface {
	Resolve(ctx context.Context, rawURL string) (resources.Preview, error)
}

const maxPreviews = 3

// session is the task a chat is currently editing.
type session struct {
	task  store.Task
	steps *editor.StepList
	busy  bool
}

// Handler turns chat commands into engine operations. It is shared by all
// gateways and keeps one session per chat.
type Handler struct {
	Decomposer Decomposer
	Improver   Improver
	Fallback   FallbackSource
	Store      TaskStore
	Resolver   LinkResolver
	Logger     *observability.Logger
	Timeout    time.Duration // bounds each oracle-backed command; 0 means none

	mu       sync.Mutex
	sessions map[string]*session
}

func NewHandler(d Decomposer, fallback FallbackSource, logger *observability.Logger) *Handler {
	return &Handler{
		Decomposer: d,
		Fallback:   fallback,
		Logger:     logger,
		sessions:   make(map[string]*session),
	}
}

// Handle processes one incoming message and returns the reply text.
func (h *Handler) Handle(ctx context.Context, chatID, text string) string {
	cmd, arg := splitCommand(text)
	switch cmd {
	case "/start", "/help":
		return helpText
	case "/new":
		return h.newTask(chatID, arg)
	case "/goal":
		return h.setGoal(chatID, arg)
	case "/generate":
		return h.generate(ctx, chatID)
	case "/reset":
		return h.reset(chatID)
	case "/steps":
		return h.withSession(chatID, func(s *session) string { return render(s) })
	case "/add":
		return h.add(chatID, arg)
	case "/toggle", "/up", "/down", "/remove":
		return h.edit(chatID, cmd, arg)
	case "/improve":
		return h.improve(ctx, chatID)
	case "/save":
		return h.save(chatID)
	case "/tasks":
		return h.list(chatID)
	case "/open":
		return h.open(chatID, arg)
	case "/delete":
		return h.remove(chatID, arg)
	case "/links":
		return h.links(ctx, chatID, arg)
	case "/status":
		return observability.FormatStatus(observability.GetStatus())
	case "":
		return "Send /new title | description | category to start a task, or /help."
	}
	return fmt.Sprintf("Unknown command %s. Try /help.", cmd)
}

// splitCommand separates "/cmd@bot rest" into "/cmd" and "rest". Plain
// text yields an empty command.
func splitCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	cmd, arg, _ := strings.Cut(text, " ")
	if at := strings.Index(cmd, "@"); at > 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd), strings.TrimSpace(arg)
}

func splitArgs(arg string) []string {
	parts := strings.Split(arg, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func (h *Handler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.Timeout)
}

func (h *Handler) withSession(chatID string, fn func(s *session) string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[chatID]
	if !ok {
		return "No active task. Start one with /new title | description | category."
	}
	return fn(s)
}

func (h *Handler) newTask(chatID, arg string) string {
	parts := splitArgs(arg)
	if parts[0] == "" {
		return "Usage: /new title | description | category"
	}
	t := store.Task{Title: parts[0], Category: plan.DefaultCategory}
	if len(parts) > 1 {
		t.Description = parts[1]
	}
	if len(parts) > 2 {
		t.Category = plan.ParseCategory(parts[2])
	}

	h.mu.Lock()
	h.sessions[chatID] = &session{task: t, steps: editor.NewStepList(nil)}
	h.mu.Unlock()

	return fmt.Sprintf("New %s task: %s\nUse /generate to build steps or /add to write your own.", t.Category, t.Title)
}

func (h *Handler) setGoal(chatID, arg string) string {
	return h.withSession(chatID, func(s *session) string {
		s.task.Goal = arg
		if arg == "" {
			return "Goal cleared."
		}
		return "Goal set. /generate will plan toward it."
	})
}

func (h *Handler) generate(ctx context.Context, chatID string) string {
	h.mu.Lock()
	s, ok := h.sessions[chatID]
	if !ok {
		h.mu.Unlock()
		return "No active task. Start one with /new title | description | category."
	}
	if s.busy {
		h.mu.Unlock()
		return "Still working on the previous /generate, please wait."
	}
	s.busy = true
	tc := s.task.Context()
	h.mu.Unlock()

	ctx, cancel := h.withTimeout(ctx)
	defer cancel()

	observability.BeginDecomposition(chatID, tc.Title)
	res := h.Decomposer.Decompose(decompose.WithTaskID(ctx, chatID), tc)
	observability.EndDecomposition(chatID, res.Source == decompose.SourceFallback)

	h.mu.Lock()
	defer h.mu.Unlock()
	s.busy = false

	var reply string
	if res.Source == decompose.SourceFallback {
		s.steps.InstallFallback(res.Steps)
		reply = "I couldn't generate steps for this task, so here is a standard plan to start from."
	} else {
		added := s.steps.MergeGenerated(res.Steps)
		reply = fmt.Sprintf("Added %d new steps", added)
		if skipped := len(res.Steps) - added; skipped > 0 {
			reply += fmt.Sprintf(" (%d already on the list)", skipped)
		}
		reply += "."
	}
	h.Logger.LogEdit(chatID, s.task.Title, "generate:"+string(res.Source), s.steps.Len())
	return reply + "\n\n" + render(s)
}

func (h *Handler) reset(chatID string) string {
	return h.withSession(chatID, func(s *session) string {
		s.steps.InstallFallback(h.Fallback.FallbackFor(s.task.Category))
		h.Logger.LogEdit(chatID, s.task.Title, "reset", s.steps.Len())
		return "Replaced the steps with the standard plan.\n\n" + render(s)
	})
}

func (h *Handler) add(chatID, arg string) string {
	parts := splitArgs(arg)
	return h.withSession(chatID, func(s *session) string {
		title := parts[0]
		deadline := ""
		if len(parts) > 1 {
			deadline = parts[1]
		}
		if deadline == "" {
			deadline = s.task.Category.DefaultDeadline()
		}
		mandatory := true
		if len(parts) > 2 && strings.EqualFold(parts[2], "optional") {
			mandatory = false
		}

		step, ok := s.steps.AddManual(title, deadline, mandatory)
		if !ok {
			return "Usage: /add title | deadline | required|optional"
		}
		h.Logger.LogEdit(chatID, s.task.Title, "add", s.steps.Len())
		return fmt.Sprintf("Added step %d: %s", s.steps.Len(), step.Title)
	})
}

func (h *Handler) edit(chatID, cmd, arg string) string {
	pos, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Sprintf("Usage: %s N (the step number from /steps)", cmd)
	}
	return h.withSession(chatID, func(s *session) string {
		id, ok := s.steps.IDAt(pos)
		if !ok {
			return fmt.Sprintf("There is no step %d.", pos)
		}
		switch cmd {
		case "/toggle":
			s.steps.ToggleMandatory(id)
		case "/up":
			s.steps.Move(id, editor.Up)
		case "/down":
			s.steps.Move(id, editor.Down)
		case "/remove":
			s.steps.Remove(id)
		}
		h.Logger.LogEdit(chatID, s.task.Title, strings.TrimPrefix(cmd, "/"), s.steps.Len())
		return render(s)
	})
}

func (h *Handler) improve(ctx context.Context, chatID string) string {
	if h.Improver == nil {
		return "Improving tasks is not available."
	}
	h.mu.Lock()
	s, ok := h.sessions[chatID]
	var title, desc string
	if ok {
		title, desc = s.task.Title, s.task.Description
	}
	h.mu.Unlock()
	if !ok {
		return "No active task. Start one with /new title | description | category."
	}

	ctx, cancel := h.withTimeout(ctx)
	defer cancel()
	newTitle, newDesc := h.Improver.Improve(ctx, title, desc)

	h.mu.Lock()
	defer h.mu.Unlock()
	s.task.Title, s.task.Description = newTitle, newDesc
	return fmt.Sprintf("Title: %s\nDescription: %s", newTitle, newDesc)
}

func (h *Handler) save(chatID string) string {
	if h.Store == nil {
		return "Saving is not available."
	}
	return h.withSession(chatID, func(s *session) string {
		t := s.task
		t.Steps = s.steps.Steps()
		id, err := h.Store.SaveTask(chatID, t)
		if err != nil {
			log.Printf("[Gateway] save failed for %s: %v", chatID, err)
			return "Could not save the task."
		}
		s.task.ID = id
		return fmt.Sprintf("Saved as task #%d.", id)
	})
}

func (h *Handler) list(chatID string) string {
	if h.Store == nil {
		return "Saving is not available."
	}
	tasks, err := h.Store.ListTasks(chatID)
	if err != nil {
		log.Printf("[Gateway] list failed for %s: %v", chatID, err)
		return "Could not load your tasks."
	}
	if len(tasks) == 0 {
		return "No saved tasks."
	}
	var b strings.Builder
	for _, t := range tasks {
		fmt.Fprintf(&b, "#%d %s (%s, %d steps)\n", t.ID, t.Title, t.Category, t.StepCount)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (h *Handler) open(chatID, arg string) string {
	if h.Store == nil {
		return "Saving is not available."
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil {
		return "Usage: /open ID"
	}
	t, err := h.Store.GetTask(chatID, id)
	if err != nil {
		return fmt.Sprintf("Task #%d not found.", id)
	}

	s := &session{task: *t, steps: editor.NewStepList(t.Steps)}
	s.task.Steps = nil
	h.mu.Lock()
	h.sessions[chatID] = s
	h.mu.Unlock()
	return fmt.Sprintf("Opened task #%d.\n\n%s", id, render(s))
}

func (h *Handler) remove(chatID, arg string) string {
	if h.Store == nil {
		return "Saving is not available."
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil {
		return "Usage: /delete ID"
	}
	if err := h.Store.DeleteTask(chatID, id); err != nil {
		return fmt.Sprintf("Task #%d not found.", id)
	}

	h.mu.Lock()
	if s, ok := h.sessions[chatID]; ok && s.task.ID == id {
		s.task.ID = 0
	}
	h.mu.Unlock()
	return fmt.Sprintf("Deleted task #%d.", id)
}

func (h *Handler) links(ctx context.Context, chatID, arg string) string {
	pos, err := strconv.Atoi(arg)
	if err != nil {
		return "Usage: /links N"
	}

	h.mu.Lock()
	var step plan.Step
	s, ok := h.sessions[chatID]
	found := false
	if ok {
		if id, exists := s.steps.IDAt(pos); exists {
			step, found = s.steps.Get(id)
		}
	}
	h.mu.Unlock()

	if !ok {
		return "No active task. Start one with /new title | description | category."
	}
	if !found {
		return fmt.Sprintf("There is no step %d.", pos)
	}
	if len(step.Links) == 0 {
		return fmt.Sprintf("Step %d has no links.", pos)
	}

	var out []string
	for i, l := range step.Links {
		if h.Resolver == nil || i >= maxPreviews {
			out = append(out, fmt.Sprintf("%s\n%s", l.Text, l.URL))
			continue
		}
		p, err := h.Resolver.Resolve(ctx, l.URL)
		if err != nil {
			log.Printf("[Gateway] resolving %s: %v", l.URL, err)
			out = append(out, fmt.Sprintf("%s\n%s", l.Text, l.URL))
			continue
		}
		out = append(out, p.Format())
	}
	return strings.Join(out, "\n\n")
}

// render lists the session's steps with 1-based positions.
func render(s *session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s]\n", s.task.Title, s.task.Category)
	steps := s.steps.Steps()
	if len(steps) == 0 {
		b.WriteString("No steps yet.")
		return b.String()
	}

	pos := make(map[string]int, len(steps))
	for i, st := range steps {
		pos[st.ID] = i + 1
	}
	for i, st := range steps {
		flag := "required"
		if !st.Mandatory {
			flag = "optional"
		}
		fmt.Fprintf(&b, "%d. %s (%s, %s)", i+1, st.Title, st.Deadline, flag)
		var after []string
		for _, dep := range st.Dependencies {
			if p, ok := pos[dep]; ok {
				after = append(after, strconv.Itoa(p))
			}
		}
		if len(after) > 0 {
			fmt.Fprintf(&b, " after %s", strings.Join(after, ", "))
		}
		if len(st.Links) > 0 {
			fmt.Fprintf(&b, " [%d links]", len(st.Links))
		}
		b.WriteString("\n")
		if st.CompletionCriteria != "" {
			fmt.Fprintf(&b, "   done when: %s\n", st.CompletionCriteria)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

const helpText = `Commands:
/new title | description | category - start a task (short-term, mid-term, long-term)
/goal text - plan toward a specific goal
/generate - suggest steps for the task
/reset - replace the steps with the standard plan
/steps - show the steps
/add title | deadline | required|optional - add your own step
/toggle N - switch step N between required and optional
/up N, /down N - move step N
/remove N - delete step N
/improve - sharpen the title and description
/save, /tasks, /open ID, /delete ID - manage saved tasks
/links N - preview the resources of step N
/status - show what the engine is doing`
