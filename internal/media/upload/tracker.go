package upload

import (
	"sync"
)

// Task is the caller-visible state of one in-flight or finished upload.
// Tasks are session-scoped and never persisted; callers drop them (or the
// whole Tracker) once the terminal state has been consumed.
type Task struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Size               int64   `json:"size"`
	Percent            float64 `json:"percent"`
	ThroughputKBps     float64 `json:"throughput_kbps"`
	Status             Status  `json:"status"`
	Reference          string  `json:"reference,omitempty"`
	ThumbnailReference string  `json:"thumbnail_reference,omitempty"`
	Error              string  `json:"error,omitempty"`
}

func (t Task) terminal() bool {
	switch t.Status {
	case StatusSucceeded, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Tracker maintains an explicit task map for one batch, updated only through
// the upload callbacks. It is owned by the caller of UploadBatch — there is
// no process-wide upload state. Safe for concurrent use: callbacks fire from
// the per-file transfer goroutines.
type Tracker struct {
	mu    sync.RWMutex
	tasks map[string]*Task
	order []string
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{tasks: make(map[string]*Task)}
}

// Register adds a pending task for f and returns its ID. Call before
// UploadBatch so the UI can render the pending list immediately.
func (tr *Tracker) Register(f RawFile) string {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	tr.tasks[f.FileID] = &Task{
		ID:     f.FileID,
		Name:   f.Name,
		Size:   f.Size,
		Status: StatusPending,
	}
	tr.order = append(tr.order, f.FileID)
	return f.FileID
}

// Callbacks returns the callback pair that feeds this tracker. Progress
// events arriving after a task's terminal event are discarded.
func (tr *Tracker) Callbacks() Callbacks {
	return Callbacks{
		OnProgress: tr.onProgress,
		OnTerminal: tr.onTerminal,
	}
}

func (tr *Tracker) onProgress(e ProgressEvent) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	t, ok := tr.tasks[e.FileID]
	if !ok || t.terminal() {
		return
	}
	t.Status = StatusTransferring
	if e.Percent > t.Percent {
		t.Percent = e.Percent
	}
	t.ThroughputKBps = e.ThroughputKBps
}

func (tr *Tracker) onTerminal(e TerminalEvent) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	t, ok := tr.tasks[e.FileID]
	if !ok || t.terminal() {
		return
	}
	t.Status = e.Status
	t.Reference = e.Reference
	t.ThumbnailReference = e.ThumbnailReference
	t.Error = e.Error
	if e.Status == StatusSucceeded {
		t.Percent = 100
	}
}

// Task returns a snapshot of one task.
func (tr *Tracker) Task(id string) (Task, bool) {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	t, ok := tr.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// Tasks returns snapshots of all tasks in registration order.
func (tr *Tracker) Tasks() []Task {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	out := make([]Task, 0, len(tr.order))
	for _, id := range tr.order {
		if t, ok := tr.tasks[id]; ok {
			out = append(out, *t)
		}
	}
	return out
}

// Remove drops a finished task. Removing an unknown ID is a no-op.
func (tr *Tracker) Remove(id string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	delete(tr.tasks, id)
	for i, v := range tr.order {
		if v == id {
			tr.order = append(tr.order[:i], tr.order[i+1:]...)
			break
		}
	}
}
