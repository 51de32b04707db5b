package observability

import (
	"sync"
	"time"
)

type Activity string

const (
	ActivityIdle        Activity = "IDLE"
	ActivityDecomposing Activity = "DECOMPOSING"
)

type SystemStatus struct {
	mu          sync.RWMutex
	inFlight    map[string]string // session key -> task title
	LastChange  time.Time
	Completed   int
	FallbackHit int
}

var globalStatus = &SystemStatus{
	inFlight:   make(map[string]string),
	LastChange: time.Now(),
}

// BeginDecomposition marks a decomposition as outstanding for key.
func BeginDecomposition(key, title string) {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	globalStatus.inFlight[key] = title
	globalStatus.LastChange = time.Now()
}

// EndDecomposition clears the outstanding decomposition for key.
func EndDecomposition(key string, fallback bool) {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()
	delete(globalStatus.inFlight, key)
	globalStatus.Completed++
	if fallback {
		globalStatus.FallbackHit++
	}
	globalStatus.LastChange = time.Now()
}

// Snapshot is a point-in-time copy of the system status.
type Snapshot struct {
	Activity    Activity
	ActiveTasks []string
	Completed   int
	FallbackHit int
	Uptime      time.Duration
	LastChange  time.Time
}

// GetStatus retrieves a copy of the global system status.
func GetStatus() Snapshot {
	globalStatus.mu.RLock()
	defer globalStatus.mu.RUnlock()

	snap := Snapshot{
		Activity:    ActivityIdle,
		Completed:   globalStatus.Completed,
		FallbackHit: globalStatus.FallbackHit,
		Uptime:      time.Since(startTime).Round(time.Second),
		LastChange:  globalStatus.LastChange,
	}
	for _, title := range globalStatus.inFlight {
		snap.ActiveTasks = append(snap.ActiveTasks, title)
	}
	if len(snap.ActiveTasks) > 0 {
		snap.Activity = ActivityDecomposing
	}
	return snap
}
