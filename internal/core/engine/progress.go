package engine

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/zonehub/backend/internal/core/ports"
	"github.com/zonehub/backend/internal/domain"
	"github.com/zonehub/backend/internal/infrastructure/logger"
)

// reporter is the single per-task update path. Progress writes and the
// terminal write are serialized through its mutex, and the repository guards
// progress writes with a status=running condition, so a late progress update
// can never overwrite a terminal status.
type reporter struct {
	repo        ports.TaskRepository
	log         *logger.Logger
	taskID      string
	minInterval time.Duration

	mu          sync.Mutex
	lastWrite   time.Time
	lastPercent int
	terminal    bool

	cancel     chan struct{}
	cancelOnce sync.Once
}

func newReporter(repo ports.TaskRepository, log *logger.Logger, taskID string, minInterval time.Duration) *reporter {
	return &reporter{
		repo:        repo,
		log:         log,
		taskID:      taskID,
		minInterval: minInterval,
		cancel:      make(chan struct{}),
	}
}

// Update publishes percent/info. Percent is clamped monotone non-decreasing;
// writes are rate limited to minInterval with last write wins, except 100%
// which is always written.
func (r *reporter) Update(percent int, info domain.JSONB) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.terminal {
		return
	}
	if percent < r.lastPercent {
		percent = r.lastPercent
	}
	if percent > 100 {
		percent = 100
	}

	now := time.Now()
	if percent < 100 && !r.lastWrite.IsZero() && now.Sub(r.lastWrite) < r.minInterval {
		return
	}
	r.lastWrite = now
	r.lastPercent = percent

	var raw domain.Payload
	if info != nil {
		encoded, err := json.Marshal(info)
		if err != nil {
			r.log.Warnw("task_progress_encode_failed", "task_id", r.taskID, "error", err)
		} else {
			raw = domain.Payload(encoded)
		}
	}

	// Background context: a cancelled handler context must not block the write.
	if err := r.repo.UpdateProgress(context.Background(), r.taskID, percent, raw); err != nil {
		r.log.Warnw("task_progress_write_failed", "task_id", r.taskID, "error", err)
	}
}

func (r *reporter) Cancelled() <-chan struct{} {
	return r.cancel
}

func (r *reporter) signalCancel() {
	r.cancelOnce.Do(func() {
		close(r.cancel)
	})
}

// markTerminal closes the update path. Any progress write racing with the
// terminal transition is dropped here and rejected by the repository guard.
func (r *reporter) markTerminal() {
	r.mu.Lock()
	r.terminal = true
	r.mu.Unlock()
}
