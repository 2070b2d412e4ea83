package operations

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/zonehub/backend/internal/domain"
)

// Per-operation payload types. Each is validated synchronously at task
// creation against its declared operation, so malformed metadata is a 400 to
// the caller rather than an asynchronous failure.

func decodeStrict(raw domain.Payload, v interface{}) error {
	if len(raw) == 0 {
		return errors.New("metadata is required")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

type ZoneCreatePayload struct {
	Name       string       `json:"name"`
	Brand      string       `json:"brand"`
	IP         string       `json:"ip,omitempty"`
	VNIC       string       `json:"vnic,omitempty"`
	CPUs       int          `json:"cpus,omitempty"`
	MemoryMB   int          `json:"memory_mb,omitempty"`
	DiskGB     int          `json:"disk_gb,omitempty"`
	Autoboot   bool         `json:"autoboot,omitempty"`
	Config     domain.JSONB `json:"config,omitempty"`
	ArtifactID uint         `json:"artifact_id,omitempty"`
}

func (p *ZoneCreatePayload) Validate() error {
	if p.Name == "" {
		return errors.New("zone name is required")
	}
	if strings.ContainsAny(p.Name, " /") {
		return fmt.Errorf("invalid zone name %q", p.Name)
	}
	switch domain.ZoneBrand(p.Brand) {
	case domain.ZoneBrandNative, domain.ZoneBrandBhyve, domain.ZoneBrandKVM, domain.ZoneBrandLX:
	default:
		return fmt.Errorf("unknown zone brand %q", p.Brand)
	}
	return nil
}

type ZoneActionPayload struct {
	Name string `json:"name"`
}

func (p *ZoneActionPayload) Validate() error {
	if p.Name == "" {
		return errors.New("zone name is required")
	}
	return nil
}

type LinkCreatePayload struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Over string `json:"over,omitempty"`
	MAC  string `json:"mac,omitempty"`
	VLAN int    `json:"vlan,omitempty"`
}

func (p *LinkCreatePayload) Validate() error {
	if p.Name == "" {
		return errors.New("link name is required")
	}
	switch domain.LinkKind(p.Kind) {
	case domain.LinkKindVNIC:
		if p.Over == "" {
			return errors.New("vnic requires a parent link")
		}
	case domain.LinkKindEtherstub:
	default:
		return fmt.Errorf("unknown link kind %q", p.Kind)
	}
	if p.VLAN < 0 || p.VLAN > 4094 {
		return fmt.Errorf("invalid VLAN id %d", p.VLAN)
	}
	return nil
}

type LinkDeletePayload struct {
	Name string `json:"name"`
}

func (p *LinkDeletePayload) Validate() error {
	if p.Name == "" {
		return errors.New("link name is required")
	}
	return nil
}

type ArtifactDownloadPayload struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Dataset  string `json:"dataset"`
	Kind     string `json:"kind,omitempty"`
	SHA256   string `json:"sha256,omitempty"`
}

func (p *ArtifactDownloadPayload) Validate() error {
	if p.URL == "" {
		return errors.New("url is required")
	}
	if p.Filename == "" || p.Filename != filepath.Base(p.Filename) {
		return fmt.Errorf("invalid filename %q", p.Filename)
	}
	if p.Dataset == "" {
		return errors.New("dataset is required")
	}
	if p.SHA256 != "" && len(p.SHA256) != 64 {
		return errors.New("sha256 must be 64 hex characters")
	}
	return nil
}

// DestPath is the resource identifier registered in the conflict registry
// while the download writes it.
func (p *ArtifactDownloadPayload) DestPath() string {
	return filepath.Join(p.Dataset, p.Filename)
}

type ArtifactDeletePayload struct {
	IDs []uint `json:"ids"`
}

func (p *ArtifactDeletePayload) Validate() error {
	if len(p.IDs) == 0 {
		return errors.New("at least one artifact id is required")
	}
	return nil
}

type StorageMovePayload struct {
	ArtifactID  uint   `json:"artifact_id"`
	DestDataset string `json:"dest_dataset"`
}

func (p *StorageMovePayload) Validate() error {
	if p.ArtifactID == 0 {
		return errors.New("artifact_id is required")
	}
	if p.DestDataset == "" {
		return errors.New("dest_dataset is required")
	}
	return nil
}

type StorageScanPayload struct {
	// Datasets to scan; empty means every configured artifact dataset.
	Datasets []string `json:"datasets,omitempty"`
}

func (p *StorageScanPayload) Validate() error {
	return nil
}
