package dto

import (
	"time"

	"github.com/zonehub/backend/internal/domain"
)

type CreateLinkRequest struct {
	Name string `json:"name" validate:"required"`
	Kind string `json:"kind" validate:"required,oneof=vnic etherstub"`
	Over string `json:"over,omitempty"`
	MAC  string `json:"mac,omitempty"`
	VLAN int    `json:"vlan,omitempty"`
}

func (r *CreateLinkRequest) Validate() []string {
	var errors []string

	if r.Name == "" {
		errors = append(errors, "name is required")
	}

	switch domain.LinkKind(r.Kind) {
	case domain.LinkKindVNIC:
		if r.Over == "" {
			errors = append(errors, "over is required for a vnic")
		}
	case domain.LinkKindEtherstub:
	default:
		errors = append(errors, "kind must be one of: vnic, etherstub")
	}

	if r.VLAN < 0 || r.VLAN > 4094 {
		errors = append(errors, "vlan must be between 0 and 4094")
	}

	return errors
}

type LinkResponse struct {
	ID        uint            `json:"id"`
	Name      string          `json:"name"`
	Kind      domain.LinkKind `json:"kind"`
	Over      string          `json:"over,omitempty"`
	MAC       string          `json:"mac,omitempty"`
	VLAN      int             `json:"vlan,omitempty"`
	ZoneName  string          `json:"zone_name,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func LinkToResponse(link *domain.NetworkLink) LinkResponse {
	return LinkResponse{
		ID:        link.ID,
		Name:      link.Name,
		Kind:      link.Kind,
		Over:      link.Over,
		MAC:       link.MAC,
		VLAN:      link.VLAN,
		ZoneName:  link.ZoneName,
		CreatedAt: link.CreatedAt,
	}
}

func LinksToResponse(links []domain.NetworkLink) []LinkResponse {
	responses := make([]LinkResponse, len(links))
	for i := range links {
		responses[i] = LinkToResponse(&links[i])
	}
	return responses
}
