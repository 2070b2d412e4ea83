package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// ==================== ENUMS ====================

type ZoneBrand string

const (
	ZoneBrandNative ZoneBrand = "native"
	ZoneBrandBhyve  ZoneBrand = "bhyve"
	ZoneBrandKVM    ZoneBrand = "kvm"
	ZoneBrandLX     ZoneBrand = "lx"
)

type ZoneState string

const (
	ZoneStateConfigured ZoneState = "configured"
	ZoneStateInstalled  ZoneState = "installed"
	ZoneStateRunning    ZoneState = "running"
	ZoneStateStopped    ZoneState = "stopped"
	ZoneStateError      ZoneState = "error"
)

type LinkKind string

const (
	LinkKindVNIC      LinkKind = "vnic"
	LinkKindEtherstub LinkKind = "etherstub"
)

type ArtifactKind string

const (
	ArtifactKindISO    ArtifactKind = "iso"
	ArtifactKindImage  ArtifactKind = "image"
	ArtifactKindVolume ArtifactKind = "volume"
)

type DatasetPurpose string

const (
	DatasetPurposeZones     DatasetPurpose = "zones"
	DatasetPurposeArtifacts DatasetPurpose = "artifacts"
	DatasetPurposeVolumes   DatasetPurpose = "volumes"
)

// ==================== JSONB TYPES ====================

type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan JSONB: invalid type")
	}
	return json.Unmarshal(bytes, j)
}

// ==================== ENTITIES ====================

type Zone struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Name     string    `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Brand    ZoneBrand `gorm:"size:20;not null;default:'native'" json:"brand"`
	State    ZoneState `gorm:"size:20;not null;default:'configured'" json:"state"`
	IP       string    `gorm:"size:45" json:"ip,omitempty"`
	VNIC     string    `gorm:"size:255" json:"vnic,omitempty"`
	CPUs     int       `gorm:"default:1" json:"cpus"`
	MemoryMB int       `gorm:"default:1024" json:"memory_mb"`
	DiskGB   int       `gorm:"default:10" json:"disk_gb"`
	Autoboot bool      `gorm:"default:false" json:"autoboot"`
	Config   JSONB     `gorm:"type:jsonb" json:"config,omitempty"`

	// Last error from a failed operation, for debugging
	LastError string `gorm:"type:text" json:"last_error,omitempty"`
}

type NetworkLink struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Name     string   `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Kind     LinkKind `gorm:"size:20;not null" json:"kind"`
	Over     string   `gorm:"size:255" json:"over,omitempty"`
	MAC      string   `gorm:"size:17" json:"mac,omitempty"`
	VLAN     int      `gorm:"default:0" json:"vlan,omitempty"`
	ZoneName string   `gorm:"size:255;index" json:"zone_name,omitempty"`
}

type Artifact struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Filename  string       `gorm:"size:512;not null" json:"filename"`
	Dataset   string       `gorm:"size:512;not null;index" json:"dataset"`
	Kind      ArtifactKind `gorm:"size:20;not null;default:'iso'" json:"kind"`
	SizeBytes int64        `gorm:"default:0" json:"size_bytes"`
	SHA256    string       `gorm:"size:64" json:"sha256,omitempty"`
	SourceURL string       `gorm:"type:text" json:"source_url,omitempty"`

	// Discovered marks rows created by the storage scan rather than a download.
	Discovered bool `gorm:"default:false" json:"discovered"`
}

// Path returns the absolute location of the artifact on disk.
func (a *Artifact) Path() string {
	if len(a.Dataset) > 0 && a.Dataset[len(a.Dataset)-1] == '/' {
		return a.Dataset + a.Filename
	}
	return a.Dataset + "/" + a.Filename
}

type Dataset struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Path           string         `gorm:"size:512;uniqueIndex;not null" json:"path"`
	Purpose        DatasetPurpose `gorm:"size:20;not null" json:"purpose"`
	UsedBytes      int64          `gorm:"default:0" json:"used_bytes"`
	AvailableBytes int64          `gorm:"default:0" json:"available_bytes"`
}

func (Zone) TableName() string {
	return "zones"
}

func (NetworkLink) TableName() string {
	return "network_links"
}
