package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// Terminal reports whether the status is final. Terminal rows are never
// updated again.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	}
	return false
}

// OpKind is the closed set of operations the engine knows how to execute.
// Every kind must have a handler registered at startup.
type OpKind string

const (
	OpZoneCreate  OpKind = "zone.create"
	OpZoneDestroy OpKind = "zone.destroy"
	OpZoneStart   OpKind = "zone.start"
	OpZoneStop    OpKind = "zone.stop"

	OpLinkCreate OpKind = "net.link.create"
	OpLinkDelete OpKind = "net.link.delete"

	OpArtifactDownload OpKind = "artifact.download"
	OpArtifactDelete   OpKind = "artifact.delete"

	OpStorageMove OpKind = "storage.move"
	OpStorageCopy OpKind = "storage.copy"
	OpStorageScan OpKind = "storage.scan"
)

// OpKinds lists every known operation kind. Registry completeness is checked
// against this at startup.
func OpKinds() []OpKind {
	return []OpKind{
		OpZoneCreate, OpZoneDestroy, OpZoneStart, OpZoneStop,
		OpLinkCreate, OpLinkDelete,
		OpArtifactDownload, OpArtifactDelete,
		OpStorageMove, OpStorageCopy, OpStorageScan,
	}
}

func (k OpKind) Valid() bool {
	for _, known := range OpKinds() {
		if k == known {
			return true
		}
	}
	return false
}

// Payload is an opaque JSON document stored as jsonb. The engine never
// inspects it; only the producing controller and the consuming handler do.
// Unlike a map type it round-trips byte for byte.
type Payload json.RawMessage

func (p Payload) Value() (driver.Value, error) {
	if len(p) == 0 {
		return nil, nil
	}
	if !json.Valid(p) {
		return nil, errors.New("payload is not valid JSON")
	}
	return []byte(p), nil
}

func (p *Payload) Scan(value interface{}) error {
	if value == nil {
		*p = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan payload: invalid type")
	}
	*p = append((*p)[0:0], bytes...)
	return nil
}

func (p Payload) MarshalJSON() ([]byte, error) {
	if len(p) == 0 {
		return []byte("null"), nil
	}
	return p, nil
}

func (p *Payload) UnmarshalJSON(data []byte) error {
	*p = append((*p)[0:0], data...)
	return nil
}

// Task is one persisted unit of asynchronous work. Rows are retained as an
// audit trail after completion.
type Task struct {
	ID            string     `gorm:"primaryKey;size:36" json:"id"`
	ResourceScope string     `gorm:"size:255;not null;index" json:"resource_scope"`
	Operation     OpKind     `gorm:"size:64;not null;index" json:"operation"`
	Status        TaskStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Priority      int        `gorm:"not null;default:50" json:"priority"`
	CreatedBy     string     `gorm:"size:255" json:"created_by"`
	DependsOn     *string    `gorm:"size:36;index" json:"depends_on,omitempty"`

	Metadata     Payload `gorm:"type:jsonb" json:"metadata,omitempty"`
	ErrorMessage string  `gorm:"type:text" json:"error_message,omitempty"`

	ProgressPercent int     `gorm:"default:0" json:"progress_percent"`
	ProgressInfo    Payload `gorm:"type:jsonb" json:"progress_info,omitempty"`

	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ScopeSystem is the resource scope for tasks that do not target a single
// zone or link.
const ScopeSystem = "system"

// ScopeArtifacts groups all artifact and storage tasks so only one of them
// mutates the artifact datasets at a time.
const ScopeArtifacts = "artifacts"
