package observability

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEvents(t *testing.T, buf *bytes.Buffer) []Event {
	t.Helper()
	var events []Event
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var evt Event
		require.NoError(t, json.Unmarshal(sc.Bytes(), &evt))
		events = append(events, evt)
	}
	return events
}

func TestLoggerEmitsOneJSONLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo(&buf, "")

	l.LogAttempt("t1", 1, 2)
	l.LogOracleError("t1", 1, errors.New("boom"))
	l.LogDecomposition("t1", "fallback", 2, 5)

	events := decodeEvents(t, &buf)
	require.Len(t, events, 3)
	assert.Equal(t, EventTypeAttempt, events[0].Type)
	assert.Equal(t, EventTypeOracleError, events[1].Type)
	assert.Equal(t, "t1", events[2].TaskID)
	assert.False(t, events[2].Timestamp.IsZero())
}

func TestLoggerWritesLLMTranscript(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "llm.jsonl")
	l := NewLoggerTo(&buf, path)

	l.LogLLM("t1", "openai", "prompt text", "response text")
	l.LogAttempt("t1", 1, 2)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "prompt text")
	assert.NotContains(t, string(data), "\"attempt\"")
}

func TestNilLoggerIsSilent(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() { l.LogAttempt("t", 1, 1) })
}
