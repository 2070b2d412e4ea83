package ports

import (
	"context"
	"time"

	"github.com/zonehub/backend/internal/domain"
)

// TaskFilter narrows List results. Zero values mean "any".
type TaskFilter struct {
	Status    domain.TaskStatus
	Operation domain.OpKind
	Scope     string
	Limit     int
	Offset    int
}

// TaskFields is a partial update applied in a single atomic row update.
type TaskFields map[string]interface{}

type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, error)

	// ListPending returns pending tasks ordered (priority desc, created_at asc),
	// the dispatch order.
	ListPending(ctx context.Context) ([]domain.Task, error)

	// UpdateFields applies fields to one row unconditionally.
	UpdateFields(ctx context.Context, id string, fields TaskFields) error

	// CompareAndSwap applies fields only if the row is still in the `from`
	// status. Returns false when another writer got there first.
	CompareAndSwap(ctx context.Context, id string, from domain.TaskStatus, fields TaskFields) (bool, error)

	// UpdateProgress writes progress fields only while the row is running, so a
	// late progress write can never overwrite a terminal status.
	UpdateProgress(ctx context.Context, id string, percent int, info domain.Payload) error

	// FailRunning marks every running task failed. Used once at startup to
	// reconcile rows orphaned by a crash.
	FailRunning(ctx context.Context, message string, completedAt time.Time) (int64, error)
}

type ZoneRepository interface {
	Create(ctx context.Context, zone *domain.Zone) error
	GetByName(ctx context.Context, name string) (*domain.Zone, error)
	GetAll(ctx context.Context) ([]domain.Zone, error)
	Update(ctx context.Context, zone *domain.Zone) error
	UpdateState(ctx context.Context, name string, state domain.ZoneState) error
	Delete(ctx context.Context, name string) error
}

type LinkRepository interface {
	Create(ctx context.Context, link *domain.NetworkLink) error
	GetByName(ctx context.Context, name string) (*domain.NetworkLink, error)
	GetAll(ctx context.Context) ([]domain.NetworkLink, error)
	Update(ctx context.Context, link *domain.NetworkLink) error
	Delete(ctx context.Context, name string) error
}

type ArtifactRepository interface {
	Create(ctx context.Context, artifact *domain.Artifact) error
	GetByID(ctx context.Context, id uint) (*domain.Artifact, error)
	GetByPath(ctx context.Context, dataset, filename string) (*domain.Artifact, error)
	GetAll(ctx context.Context) ([]domain.Artifact, error)
	GetByDataset(ctx context.Context, dataset string) ([]domain.Artifact, error)
	Update(ctx context.Context, artifact *domain.Artifact) error
	Delete(ctx context.Context, id uint) error

	// Move updates an artifact's location and both dataset accounting rows in
	// one transaction that rolls back on failure.
	Move(ctx context.Context, id uint, destDataset string, sizeBytes int64) error
}

type DatasetRepository interface {
	Create(ctx context.Context, dataset *domain.Dataset) error
	GetByPath(ctx context.Context, path string) (*domain.Dataset, error)
	GetAll(ctx context.Context) ([]domain.Dataset, error)
	GetByPurpose(ctx context.Context, purpose domain.DatasetPurpose) ([]domain.Dataset, error)
	Update(ctx context.Context, dataset *domain.Dataset) error
}
