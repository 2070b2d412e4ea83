package engine

import (
	"context"
	"fmt"

	"github.com/zonehub/backend/internal/domain"
)

// Result is what a handler returns. A handler must never panic its failure
// out; the pool converts Err (or Success=false) into a failed task row.
type Result struct {
	Success bool
	Message string
	Err     error

	// Stats carries aggregate outcomes for batch operations, e.g.
	// {"success_count": 2, "errors": ["..."]}. Callers must inspect it to know
	// whether every sub-item succeeded.
	Stats domain.Payload
}

// Progress is the narrow surface a handler uses to publish completion status
// and to observe a cooperative cancellation signal.
type Progress interface {
	Update(percent int, info domain.JSONB)
	Cancelled() <-chan struct{}
}

// Handler executes one operation kind. ValidatePayload runs synchronously at
// task creation so malformed metadata is rejected before a row is persisted.
// Scope and Resources derive the task's contention scope and resource
// footprint from the same payload.
type Handler interface {
	Kind() domain.OpKind
	ValidatePayload(raw domain.Payload) error
	Scope(raw domain.Payload) string
	Resources(raw domain.Payload) []string
	Execute(ctx context.Context, task *domain.Task, progress Progress) Result
}

// Registry maps the closed set of operation kinds to their handlers. It is
// populated once at process start and read-only afterwards.
type Registry struct {
	handlers map[domain.OpKind]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[domain.OpKind]Handler)}
}

func (r *Registry) Register(handlers ...Handler) error {
	for _, h := range handlers {
		kind := h.Kind()
		if !kind.Valid() {
			return fmt.Errorf("registry: unknown operation kind %q", kind)
		}
		if _, exists := r.handlers[kind]; exists {
			return fmt.Errorf("registry: duplicate handler for %q", kind)
		}
		r.handlers[kind] = h
	}
	return nil
}

func (r *Registry) Lookup(kind domain.OpKind) (Handler, bool) {
	h, ok := r.handlers[kind]
	return h, ok
}

// Complete verifies every known operation kind has a handler. Called at
// startup so a missing registration is a boot failure, not a runtime surprise.
func (r *Registry) Complete() error {
	for _, kind := range domain.OpKinds() {
		if _, ok := r.handlers[kind]; !ok {
			return fmt.Errorf("registry: no handler registered for %q", kind)
		}
	}
	return nil
}
