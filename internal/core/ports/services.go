package ports

import (
	"context"

	"github.com/zonehub/backend/internal/domain"
)

// SubmitTaskInput is what every mutating controller hands to the task service.
// A nil Priority means "use the default"; zero is a real, lowest priority.
type SubmitTaskInput struct {
	Operation domain.OpKind
	Metadata  domain.Payload
	Priority  *int
	CreatedBy string
	DependsOn *string
}

type TaskService interface {
	Submit(ctx context.Context, input SubmitTaskInput) (*domain.Task, error)
	GetTask(ctx context.Context, id string) (*domain.Task, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	CancelTask(ctx context.Context, id string) (*domain.Task, error)
}

type ZoneService interface {
	GetZones(ctx context.Context) ([]domain.Zone, error)
	GetZoneByName(ctx context.Context, name string) (*domain.Zone, error)
	CreateZoneAsync(ctx context.Context, input CreateZoneInput) (*domain.Task, error)
	DestroyZoneAsync(ctx context.Context, name, createdBy string) (*domain.Task, error)
	StartZoneAsync(ctx context.Context, name, createdBy string) (*domain.Task, error)
	StopZoneAsync(ctx context.Context, name, createdBy string) (*domain.Task, error)
}

type CreateZoneInput struct {
	Name       string
	Brand      domain.ZoneBrand
	IP         string
	VNIC       string
	CPUs       int
	MemoryMB   int
	DiskGB     int
	Autoboot   bool
	Config     domain.JSONB
	ArtifactID uint
	CreatedBy  string

	// DependsOn lets zone creation wait for an in-flight artifact download.
	DependsOn *string
}

type LinkService interface {
	GetLinks(ctx context.Context) ([]domain.NetworkLink, error)
	CreateLinkAsync(ctx context.Context, input CreateLinkInput) (*domain.Task, error)
	DeleteLinkAsync(ctx context.Context, name, createdBy string) (*domain.Task, error)
}

type CreateLinkInput struct {
	Name      string
	Kind      domain.LinkKind
	Over      string
	MAC       string
	VLAN      int
	CreatedBy string
}

type ArtifactService interface {
	GetArtifacts(ctx context.Context) ([]domain.Artifact, error)
	DownloadAsync(ctx context.Context, input DownloadArtifactInput) (*domain.Task, error)
	DeleteAsync(ctx context.Context, ids []uint, createdBy string) (*domain.Task, error)
	ScanAsync(ctx context.Context, createdBy string) (*domain.Task, error)
	MoveAsync(ctx context.Context, id uint, destDataset, createdBy string, copyOnly bool) (*domain.Task, error)
	GetDatasets(ctx context.Context) ([]domain.Dataset, error)
}

type DownloadArtifactInput struct {
	URL       string
	Filename  string
	Dataset   string
	Kind      domain.ArtifactKind
	SHA256    string
	CreatedBy string
}
