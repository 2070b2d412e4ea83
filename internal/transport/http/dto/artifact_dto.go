package dto

import (
	"strings"
	"time"

	"github.com/zonehub/backend/internal/domain"
)

type DownloadArtifactRequest struct {
	URL      string `json:"url" validate:"required"`
	Filename string `json:"filename" validate:"required"`
	Dataset  string `json:"dataset,omitempty"`
	Kind     string `json:"kind,omitempty"`
	SHA256   string `json:"sha256,omitempty"`
}

func (r *DownloadArtifactRequest) Validate() []string {
	var errors []string

	if r.URL == "" {
		errors = append(errors, "url is required")
	} else {
		lower := strings.ToLower(r.URL)
		if !strings.HasPrefix(lower, "http://") &&
			!strings.HasPrefix(lower, "https://") &&
			!strings.HasPrefix(lower, "sftp://") &&
			!strings.HasPrefix(lower, "s3://") {
			errors = append(errors, "url scheme must be one of: http, https, sftp, s3")
		}
	}

	if r.Filename == "" {
		errors = append(errors, "filename is required")
	} else if strings.Contains(r.Filename, "/") || strings.Contains(r.Filename, "..") {
		errors = append(errors, "filename must not contain path separators")
	}

	if r.Kind != "" {
		switch domain.ArtifactKind(r.Kind) {
		case domain.ArtifactKindISO, domain.ArtifactKindImage, domain.ArtifactKindVolume:
		default:
			errors = append(errors, "kind must be one of: iso, image, volume")
		}
	}

	if r.SHA256 != "" && len(r.SHA256) != 64 {
		errors = append(errors, "sha256 must be 64 hex characters")
	}

	return errors
}

func (r *DownloadArtifactRequest) GetKind() domain.ArtifactKind {
	if r.Kind == "" {
		return domain.ArtifactKindISO
	}
	return domain.ArtifactKind(r.Kind)
}

type DeleteArtifactsRequest struct {
	IDs []uint `json:"ids" validate:"required,min=1"`
}

func (r *DeleteArtifactsRequest) Validate() []string {
	if len(r.IDs) == 0 {
		return []string{"ids must not be empty"}
	}
	return nil
}

type MoveArtifactRequest struct {
	DestDataset string `json:"dest_dataset" validate:"required"`
	Copy        bool   `json:"copy,omitempty"`
}

func (r *MoveArtifactRequest) Validate() []string {
	if r.DestDataset == "" {
		return []string{"dest_dataset is required"}
	}
	return nil
}

type ArtifactResponse struct {
	ID         uint                `json:"id"`
	Filename   string              `json:"filename"`
	Dataset    string              `json:"dataset"`
	Kind       domain.ArtifactKind `json:"kind"`
	SizeBytes  int64               `json:"size_bytes"`
	SHA256     string              `json:"sha256,omitempty"`
	SourceURL  string              `json:"source_url,omitempty"`
	Discovered bool                `json:"discovered"`
	CreatedAt  time.Time           `json:"created_at"`
}

func ArtifactToResponse(artifact *domain.Artifact) ArtifactResponse {
	return ArtifactResponse{
		ID:         artifact.ID,
		Filename:   artifact.Filename,
		Dataset:    artifact.Dataset,
		Kind:       artifact.Kind,
		SizeBytes:  artifact.SizeBytes,
		SHA256:     artifact.SHA256,
		SourceURL:  artifact.SourceURL,
		Discovered: artifact.Discovered,
		CreatedAt:  artifact.CreatedAt,
	}
}

func ArtifactsToResponse(artifacts []domain.Artifact) []ArtifactResponse {
	responses := make([]ArtifactResponse, len(artifacts))
	for i := range artifacts {
		responses[i] = ArtifactToResponse(&artifacts[i])
	}
	return responses
}

type DatasetResponse struct {
	ID             uint                  `json:"id"`
	Path           string                `json:"path"`
	Purpose        domain.DatasetPurpose `json:"purpose"`
	UsedBytes      int64                 `json:"used_bytes"`
	AvailableBytes int64                 `json:"available_bytes"`
}

func DatasetsToResponse(datasets []domain.Dataset) []DatasetResponse {
	responses := make([]DatasetResponse, len(datasets))
	for i, dataset := range datasets {
		responses[i] = DatasetResponse{
			ID:             dataset.ID,
			Path:           dataset.Path,
			Purpose:        dataset.Purpose,
			UsedBytes:      dataset.UsedBytes,
			AvailableBytes: dataset.AvailableBytes,
		}
	}
	return responses
}
