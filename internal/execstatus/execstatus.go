// Package execstatus is the process-wide async execution-handle table
// required by spec §4.4: execution_id -> {status, progress, result,
// error, elapsed_ms}, queried by external pollers. Adapted from the
// teacher's internal/server/registry.go PipelineRegistry/PipelineState
// (same mutex-guarded map, Register/Get/List shape); the HTTP surface
// that served it is out of scope (spec §1) and is not carried over.
package execstatus

import (
	"fmt"
	"sync"
	"time"
)

// Status is the lifecycle state of a tracked execution.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Snapshot is the point-in-time view returned to pollers.
type Snapshot struct {
	ExecutionID string
	Status      Status
	Progress    int // 0..100
	Result      any
	Error       string
	ElapsedMS   int64
}

// Handle tracks one in-flight or completed execution.
type Handle struct {
	id        string
	startedAt time.Time

	mu       sync.Mutex
	status   Status
	progress int
	result   any
	err      error
}

// SetProgress updates the 0..100 progress indicator.
func (h *Handle) SetProgress(p int) {
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	h.mu.Lock()
	h.progress = p
	h.mu.Unlock()
}

// Complete marks the execution finished successfully with the given result.
func (h *Handle) Complete(result any) {
	h.mu.Lock()
	h.status = StatusCompleted
	h.progress = 100
	h.result = result
	h.mu.Unlock()
}

// Fail marks the execution finished with an error.
func (h *Handle) Fail(err error) {
	h.mu.Lock()
	h.status = StatusError
	h.err = err
	h.mu.Unlock()
}

func (h *Handle) snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := Snapshot{
		ExecutionID: h.id,
		Status:      h.status,
		Progress:    h.progress,
		Result:      h.result,
		ElapsedMS:   time.Since(h.startedAt).Milliseconds(),
	}
	if h.err != nil {
		s.Error = h.err.Error()
	}
	return s
}

// Table is the process-wide registry of execution handles.
type Table struct {
	mu      sync.RWMutex
	handles map[string]*Handle
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{handles: map[string]*Handle{}}
}

// Start registers a new running handle under executionID.
func (t *Table) Start(executionID string) (*Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.handles == nil {
		t.handles = map[string]*Handle{}
	}
	if _, exists := t.handles[executionID]; exists {
		return nil, fmt.Errorf("execstatus: execution %s already registered", executionID)
	}
	h := &Handle{id: executionID, startedAt: time.Now(), status: StatusRunning}
	t.handles[executionID] = h
	return h, nil
}

// Get returns the current snapshot for executionID, or false if unknown.
func (t *Table) Get(executionID string) (Snapshot, bool) {
	t.mu.RLock()
	h, ok := t.handles[executionID]
	t.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}
	return h.snapshot(), true
}

// List returns every tracked execution id.
func (t *Table) List() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]string, 0, len(t.handles))
	for id := range t.handles {
		ids = append(ids, id)
	}
	return ids
}
