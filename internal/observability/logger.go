package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypeAttempt       EventType = "attempt"
	EventTypeOracleError   EventType = "oracle_error"
	EventTypeParse         EventType = "parse"
	EventTypeDecomposition EventType = "decomposition"
	EventTypeFallback      EventType = "fallback"
	EventTypeLLM           EventType = "llm"
	EventTypeCost          EventType = "cost"
	EventTypeEdit          EventType = "edit"
)

// Event represents a structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	ChatID    string    `json:"chat_id,omitempty"`
	TaskID    string    `json:"task_id,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger handles structured logging.
type Logger struct {
	mu         sync.Mutex
	out        io.Writer
	llmLogPath string
	maxSize    int64
}

func NewLogger() *Logger {
	return &Logger{
		out:        os.Stdout,
		llmLogPath: filepath.Join("logs", "llm.jsonl"),
		maxSize:    10 * 1024 * 1024, // 10MB
	}
}

// NewLoggerTo writes events to out and LLM transcripts to llmLogPath.
// An empty llmLogPath disables the transcript file.
func NewLoggerTo(out io.Writer, llmLogPath string) *Logger {
	return &Logger{
		out:        out,
		llmLogPath: llmLogPath,
		maxSize:    10 * 1024 * 1024,
	}
}

// Log emits a structured JSON event.
func (l *Logger) Log(evt Event) {
	if l == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		data = []byte(fmt.Sprintf("{\"error\": \"failed to marshal event: %v\"}", err))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.out, string(data))

	if evt.Type == EventTypeLLM && l.llmLogPath != "" {
		l.writeToFile(data)
	}
}

func (l *Logger) writeToFile(data []byte) {
	if err := os.MkdirAll(filepath.Dir(l.llmLogPath), 0755); err != nil {
		log.Printf("failed to create log directory: %v", err)
		return
	}

	// Check size before writing
	info, err := os.Stat(l.llmLogPath)
	if err == nil && info.Size() > l.maxSize {
		l.rotateLogs()
	}

	f, err := os.OpenFile(l.llmLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file: %v", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		log.Printf("failed to write to log file: %v", err)
	}
}

func (l *Logger) rotateLogs() {
	// Simple rotation: keep one .old file
	oldPath := l.llmLogPath + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(l.llmLogPath, oldPath)
}

// Helper methods for common events

func (l *Logger) LogAttempt(taskID string, attempt, maxAttempts int) {
	l.Log(Event{
		Type:   EventTypeAttempt,
		TaskID: taskID,
		Data: map[string]int{
			"attempt":      attempt,
			"max_attempts": maxAttempts,
		},
	})
}

func (l *Logger) LogOracleError(taskID string, attempt int, err error) {
	l.Log(Event{
		Type:   EventTypeOracleError,
		TaskID: taskID,
		Data: map[string]any{
			"attempt": attempt,
			"error":   err.Error(),
		},
	})
}

func (l *Logger) LogParse(taskID string, attempt int, outcome string, records, dropped int) {
	l.Log(Event{
		Type:   EventTypeParse,
		TaskID: taskID,
		Data: map[string]any{
			"attempt": attempt,
			"outcome": outcome,
			"records": records,
			"dropped": dropped,
		},
	})
}

func (l *Logger) LogDecomposition(taskID, source string, attempts, steps int) {
	l.Log(Event{
		Type:   EventTypeDecomposition,
		TaskID: taskID,
		Data: map[string]any{
			"source":   source,
			"attempts": attempts,
			"steps":    steps,
		},
	})
}

func (l *Logger) LogFallback(taskID, category string, steps int) {
	l.Log(Event{
		Type:   EventTypeFallback,
		TaskID: taskID,
		Data: map[string]any{
			"category": category,
			"steps":    steps,
		},
	})
}

func (l *Logger) LogCost(taskID string, promptTokens, completionTokens int, model string) {
	l.Log(Event{
		Type:   EventTypeCost,
		TaskID: taskID,
		Data: map[string]any{
			"prompt_tokens":     promptTokens,
			"completion_tokens": completionTokens,
			"total_tokens":      promptTokens + completionTokens,
			"model":             model,
		},
	})
}

func (l *Logger) LogEdit(chatID, taskID, op string, steps int) {
	l.Log(Event{
		Type:   EventTypeEdit,
		ChatID: chatID,
		TaskID: taskID,
		Data: map[string]any{
			"op":    op,
			"steps": steps,
		},
	})
}

func (l *Logger) LogLLM(taskID, provider, prompt, response string) {
	l.Log(Event{
		Type:   EventTypeLLM,
		TaskID: taskID,
		Data: map[string]any{
			"provider": provider,
			"prompt":   prompt,
			"response": response,
		},
	})
}
