package engine

import "sync"

// ResourceRegistry is an advisory registry of resources currently being
// mutated by running tasks, keyed by resource identifier (usually an absolute
// path). Scan paths must consult it and skip busy resources. It is
// cooperative, not an OS-level lock.
type ResourceRegistry struct {
	mu   sync.Mutex
	busy map[string]string // resource -> owning task id
}

func NewResourceRegistry() *ResourceRegistry {
	return &ResourceRegistry{busy: make(map[string]string)}
}

// AcquireAll registers every resource for taskID, or none of them if any is
// already held by another task.
func (r *ResourceRegistry) AcquireAll(resources []string, taskID string) bool {
	if len(resources) == 0 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, res := range resources {
		if owner, held := r.busy[res]; held && owner != taskID {
			return false
		}
	}
	for _, res := range resources {
		r.busy[res] = taskID
	}
	return true
}

// ReleaseAll drops registrations owned by taskID.
func (r *ResourceRegistry) ReleaseAll(resources []string, taskID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, res := range resources {
		if r.busy[res] == taskID {
			delete(r.busy, res)
		}
	}
}

func (r *ResourceRegistry) Busy(resource string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, held := r.busy[resource]
	return held
}

// Snapshot returns a copy of the current registrations.
func (r *ResourceRegistry) Snapshot() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]string, len(r.busy))
	for res, task := range r.busy {
		out[res] = task
	}
	return out
}
