package operations

import (
	"context"
	"fmt"
	"strconv"

	"github.com/zonehub/backend/internal/core/engine"
	"github.com/zonehub/backend/internal/core/ports"
	"github.com/zonehub/backend/internal/domain"
	"github.com/zonehub/backend/internal/infrastructure/host"
	"github.com/zonehub/backend/internal/infrastructure/logger"
)

// NetworkOps manages VNICs and etherstubs through dladm.
type NetworkOps struct {
	links  ports.LinkRepository
	runner host.Runner
	log    *logger.Logger
}

func NewNetworkOps(links ports.LinkRepository, runner host.Runner, log *logger.Logger) *NetworkOps {
	return &NetworkOps{links: links, runner: runner, log: log}
}

func (o *NetworkOps) Handlers() []engine.Handler {
	return []engine.Handler{
		&linkCreateHandler{o},
		&linkDeleteHandler{o},
	}
}

type linkCreateHandler struct{ ops *NetworkOps }

func (h *linkCreateHandler) Kind() domain.OpKind { return domain.OpLinkCreate }

func (h *linkCreateHandler) ValidatePayload(raw domain.Payload) error {
	var p LinkCreatePayload
	if err := decodeStrict(raw, &p); err != nil {
		return err
	}
	return p.Validate()
}

func (h *linkCreateHandler) Scope(raw domain.Payload) string {
	var p LinkCreatePayload
	if err := decodeStrict(raw, &p); err != nil || p.Name == "" {
		return domain.ScopeSystem
	}
	return p.Name
}

func (h *linkCreateHandler) Resources(raw domain.Payload) []string {
	var p LinkCreatePayload
	if err := decodeStrict(raw, &p); err != nil {
		return nil
	}
	return []string{"link:" + p.Name}
}

func (h *linkCreateHandler) Execute(ctx context.Context, task *domain.Task, progress engine.Progress) engine.Result {
	var p LinkCreatePayload
	if err := decodeStrict(task.Metadata, &p); err != nil {
		return engine.Result{Err: fmt.Errorf("decode payload: %w", err)}
	}

	progress.Update(20, domain.JSONB{"step": "creating link"})

	switch domain.LinkKind(p.Kind) {
	case domain.LinkKindEtherstub:
		if _, err := h.ops.runner.Run(ctx, "dladm", "create-etherstub", p.Name); err != nil {
			return engine.Result{Err: fmt.Errorf("dladm create-etherstub %s: %w", p.Name, err)}
		}
	case domain.LinkKindVNIC:
		args := []string{"create-vnic", "-l", p.Over}
		if p.MAC != "" {
			args = append(args, "-m", p.MAC)
		}
		if p.VLAN > 0 {
			args = append(args, "-v", strconv.Itoa(p.VLAN))
		}
		args = append(args, p.Name)
		if _, err := h.ops.runner.Run(ctx, "dladm", args...); err != nil {
			return engine.Result{Err: fmt.Errorf("dladm create-vnic %s: %w", p.Name, err)}
		}
	}

	link := &domain.NetworkLink{
		Name: p.Name,
		Kind: domain.LinkKind(p.Kind),
		Over: p.Over,
		MAC:  p.MAC,
		VLAN: p.VLAN,
	}
	if err := h.ops.links.Create(ctx, link); err != nil {
		return engine.Result{Err: fmt.Errorf("record link %s: %w", p.Name, err)}
	}
	return engine.Result{Success: true, Message: fmt.Sprintf("link %s created", p.Name)}
}

type linkDeleteHandler struct{ ops *NetworkOps }

func (h *linkDeleteHandler) Kind() domain.OpKind { return domain.OpLinkDelete }

func (h *linkDeleteHandler) ValidatePayload(raw domain.Payload) error {
	var p LinkDeletePayload
	if err := decodeStrict(raw, &p); err != nil {
		return err
	}
	return p.Validate()
}

func (h *linkDeleteHandler) Scope(raw domain.Payload) string {
	var p LinkDeletePayload
	if err := decodeStrict(raw, &p); err != nil || p.Name == "" {
		return domain.ScopeSystem
	}
	return p.Name
}

func (h *linkDeleteHandler) Resources(raw domain.Payload) []string {
	var p LinkDeletePayload
	if err := decodeStrict(raw, &p); err != nil {
		return nil
	}
	return []string{"link:" + p.Name}
}

func (h *linkDeleteHandler) Execute(ctx context.Context, task *domain.Task, progress engine.Progress) engine.Result {
	var p LinkDeletePayload
	if err := decodeStrict(task.Metadata, &p); err != nil {
		return engine.Result{Err: fmt.Errorf("decode payload: %w", err)}
	}

	link, err := h.ops.links.GetByName(ctx, p.Name)
	if err != nil {
		return engine.Result{Err: fmt.Errorf("link %s not found", p.Name)}
	}
	if link.ZoneName != "" {
		return engine.Result{Err: fmt.Errorf("link %s is assigned to zone %s", p.Name, link.ZoneName)}
	}

	progress.Update(30, domain.JSONB{"step": "deleting link"})

	subcmd := "delete-vnic"
	if link.Kind == domain.LinkKindEtherstub {
		subcmd = "delete-etherstub"
	}
	if _, err := h.ops.runner.Run(ctx, "dladm", subcmd, p.Name); err != nil {
		return engine.Result{Err: fmt.Errorf("dladm %s %s: %w", subcmd, p.Name, err)}
	}

	if err := h.ops.links.Delete(ctx, p.Name); err != nil {
		return engine.Result{Err: fmt.Errorf("remove link record %s: %w", p.Name, err)}
	}
	return engine.Result{Success: true, Message: fmt.Sprintf("link %s deleted", p.Name)}
}
