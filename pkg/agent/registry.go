package agent

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskEntry describes one in-flight workflow run.
type TaskEntry struct {
	ID        uuid.UUID
	Requester string
	Question  string
	StartedAt time.Time
}

// TaskRegistry tracks in-flight runs for observability and cleanup. It is
// not authoritative: the workflow's returned state is, and losing an entry
// cannot corrupt a run. Entries are keyed by requester plus a hash of the
// question; a duplicate key simply replaces the previous entry.
type TaskRegistry struct {
	mu    sync.RWMutex
	tasks map[string]TaskEntry
}

func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{tasks: make(map[string]TaskEntry)}
}

// Add records a run and returns its key.
func (r *TaskRegistry) Add(requester, question string) string {
	key := taskKey(requester, question)
	r.mu.Lock()
	r.tasks[key] = TaskEntry{
		ID:        uuid.New(),
		Requester: requester,
		Question:  question,
		StartedAt: time.Now(),
	}
	r.mu.Unlock()
	return key
}

// Remove drops a run entry. Removing a missing key is a no-op.
func (r *TaskRegistry) Remove(key string) {
	r.mu.Lock()
	delete(r.tasks, key)
	r.mu.Unlock()
}

// Len reports the number of in-flight runs.
func (r *TaskRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}

// Snapshot returns a copy of the current entries.
func (r *TaskRegistry) Snapshot() []TaskEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make([]TaskEntry, 0, len(r.tasks))
	for _, e := range r.tasks {
		entries = append(entries, e)
	}
	return entries
}

func taskKey(requester, question string) string {
	h := fnv.New64a()
	h.Write([]byte(question))
	return fmt.Sprintf("%s:%x", requester, h.Sum64())
}
