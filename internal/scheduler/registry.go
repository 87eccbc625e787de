package scheduler

import (
	"sort"
	"sync"
)

// Registry maps reminder ids to the trigger ids outstanding for them.
// An id is present only while it has at least one trigger.
type Registry struct {
	mu      sync.RWMutex
	entries map[string][]string
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string][]string)}
}

// Set replaces the entry for reminderID. An empty list removes it.
func (r *Registry) Set(reminderID string, triggerIDs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(triggerIDs) == 0 {
		delete(r.entries, reminderID)
		return
	}
	ids := make([]string, len(triggerIDs))
	copy(ids, triggerIDs)
	r.entries[reminderID] = ids
}

// Take removes and returns the entry for reminderID.
func (r *Registry) Take(reminderID string) ([]string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids, ok := r.entries[reminderID]
	if ok {
		delete(r.entries, reminderID)
	}
	return ids, ok
}

// Get returns a copy of the trigger ids for reminderID.
func (r *Registry) Get(reminderID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.entries[reminderID]
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

func (r *Registry) Clear() {
	r.mu.Lock()
	r.entries = make(map[string][]string)
	r.mu.Unlock()
}

func (r *Registry) Count(reminderID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries[reminderID])
}

// IDs returns the reminder ids with outstanding triggers, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

func (r *Registry) Total() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, ids := range r.entries {
		total += len(ids)
	}
	return total
}
