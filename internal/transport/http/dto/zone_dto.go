package dto

import (
	"time"

	"github.com/zonehub/backend/internal/domain"
)

type CreateZoneRequest struct {
	Name       string       `json:"name" validate:"required"`
	Brand      string       `json:"brand"`
	IP         string       `json:"ip,omitempty"`
	VNIC       string       `json:"vnic,omitempty"`
	CPUs       int          `json:"cpus"`
	MemoryMB   int          `json:"memory_mb"`
	DiskGB     int          `json:"disk_gb"`
	Autoboot   bool         `json:"autoboot"`
	Config     domain.JSONB `json:"config,omitempty"`
	ArtifactID uint         `json:"artifact_id,omitempty"`
	DependsOn  *string      `json:"depends_on,omitempty"`
}

func (r *CreateZoneRequest) Validate() []string {
	var errors []string

	if r.Name == "" {
		errors = append(errors, "name is required")
	}

	if r.Brand != "" {
		switch domain.ZoneBrand(r.Brand) {
		case domain.ZoneBrandNative, domain.ZoneBrandBhyve, domain.ZoneBrandKVM, domain.ZoneBrandLX:
		default:
			errors = append(errors, "brand must be one of: native, bhyve, kvm, lx")
		}
	}

	if r.CPUs < 0 {
		errors = append(errors, "cpus must not be negative")
	}
	if r.MemoryMB < 0 {
		errors = append(errors, "memory_mb must not be negative")
	}
	if r.DiskGB < 0 {
		errors = append(errors, "disk_gb must not be negative")
	}

	return errors
}

func (r *CreateZoneRequest) GetBrand() domain.ZoneBrand {
	if r.Brand == "" {
		return domain.ZoneBrandNative
	}
	return domain.ZoneBrand(r.Brand)
}

type ZoneResponse struct {
	ID        uint             `json:"id"`
	Name      string           `json:"name"`
	Brand     domain.ZoneBrand `json:"brand"`
	State     domain.ZoneState `json:"state"`
	IP        string           `json:"ip,omitempty"`
	VNIC      string           `json:"vnic,omitempty"`
	CPUs      int              `json:"cpus"`
	MemoryMB  int              `json:"memory_mb"`
	DiskGB    int              `json:"disk_gb"`
	Autoboot  bool             `json:"autoboot"`
	Config    domain.JSONB     `json:"config,omitempty"`
	LastError string           `json:"last_error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func ZoneToResponse(zone *domain.Zone) ZoneResponse {
	return ZoneResponse{
		ID:        zone.ID,
		Name:      zone.Name,
		Brand:     zone.Brand,
		State:     zone.State,
		IP:        zone.IP,
		VNIC:      zone.VNIC,
		CPUs:      zone.CPUs,
		MemoryMB:  zone.MemoryMB,
		DiskGB:    zone.DiskGB,
		Autoboot:  zone.Autoboot,
		Config:    zone.Config,
		LastError: zone.LastError,
		CreatedAt: zone.CreatedAt,
		UpdatedAt: zone.UpdatedAt,
	}
}

func ZonesToResponse(zones []domain.Zone) []ZoneResponse {
	responses := make([]ZoneResponse, len(zones))
	for i := range zones {
		responses[i] = ZoneToResponse(&zones[i])
	}
	return responses
}
