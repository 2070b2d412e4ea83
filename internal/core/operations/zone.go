package operations

import (
	"context"
	"fmt"
	"strings"

	"github.com/zonehub/backend/internal/core/engine"
	"github.com/zonehub/backend/internal/core/ports"
	"github.com/zonehub/backend/internal/domain"
	"github.com/zonehub/backend/internal/infrastructure/host"
	"github.com/zonehub/backend/internal/infrastructure/logger"
)

// ZoneOps executes zone lifecycle operations through zonecfg/zoneadm and
// keeps the zones table in sync.
type ZoneOps struct {
	zones  ports.ZoneRepository
	runner host.Runner
	log    *logger.Logger
}

func NewZoneOps(zones ports.ZoneRepository, runner host.Runner, log *logger.Logger) *ZoneOps {
	return &ZoneOps{zones: zones, runner: runner, log: log}
}

func (o *ZoneOps) Handlers() []engine.Handler {
	return []engine.Handler{
		&zoneCreateHandler{o},
		&zoneDestroyHandler{o},
		&zoneStartHandler{o},
		&zoneStopHandler{o},
	}
}

// ==================== zone.create ====================

type zoneCreateHandler struct{ ops *ZoneOps }

func (h *zoneCreateHandler) Kind() domain.OpKind { return domain.OpZoneCreate }

func (h *zoneCreateHandler) ValidatePayload(raw domain.Payload) error {
	var p ZoneCreatePayload
	if err := decodeStrict(raw, &p); err != nil {
		return err
	}
	return p.Validate()
}

func (h *zoneCreateHandler) Scope(raw domain.Payload) string {
	var p ZoneCreatePayload
	if err := decodeStrict(raw, &p); err != nil {
		return domain.ScopeSystem
	}
	return p.Name
}

func (h *zoneCreateHandler) Resources(raw domain.Payload) []string {
	var p ZoneCreatePayload
	if err := decodeStrict(raw, &p); err != nil || p.VNIC == "" {
		return nil
	}
	// Hold the VNIC so a concurrent link deletion cannot pull it out from
	// under the install.
	return []string{"link:" + p.VNIC}
}

func (h *zoneCreateHandler) Execute(ctx context.Context, task *domain.Task, progress engine.Progress) engine.Result {
	var p ZoneCreatePayload
	if err := decodeStrict(task.Metadata, &p); err != nil {
		return engine.Result{Err: fmt.Errorf("decode payload: %w", err)}
	}

	progress.Update(5, domain.JSONB{"step": "configuring"})

	cfg := []string{"create -b", fmt.Sprintf("set brand=%s", p.Brand), fmt.Sprintf("set zonepath=/zones/%s", p.Name)}
	if p.Autoboot {
		cfg = append(cfg, "set autoboot=true")
	}
	if p.VNIC != "" {
		cfg = append(cfg, fmt.Sprintf("add net; set physical=%s; end", p.VNIC))
	}
	if _, err := h.ops.runner.Run(ctx, "zonecfg", "-z", p.Name, strings.Join(cfg, "; ")); err != nil {
		return engine.Result{Err: fmt.Errorf("zonecfg %s: %w", p.Name, err)}
	}

	select {
	case <-progress.Cancelled():
		// Back out the half-made zone before stopping.
		h.ops.runner.Run(ctx, "zonecfg", "-z", p.Name, "delete", "-F")
		return engine.Result{Err: fmt.Errorf("cancelled before install")}
	default:
	}

	progress.Update(30, domain.JSONB{"step": "installing"})
	if _, err := h.ops.runner.Run(ctx, "zoneadm", "-z", p.Name, "install"); err != nil {
		h.ops.runner.Run(ctx, "zonecfg", "-z", p.Name, "delete", "-F")
		return engine.Result{Err: fmt.Errorf("zoneadm install %s: %w", p.Name, err)}
	}

	zone := &domain.Zone{
		Name:     p.Name,
		Brand:    domain.ZoneBrand(p.Brand),
		State:    domain.ZoneStateInstalled,
		IP:       p.IP,
		VNIC:     p.VNIC,
		CPUs:     orDefault(p.CPUs, 1),
		MemoryMB: orDefault(p.MemoryMB, 1024),
		DiskGB:   orDefault(p.DiskGB, 10),
		Autoboot: p.Autoboot,
		Config:   p.Config,
	}
	if err := h.ops.zones.Create(ctx, zone); err != nil {
		return engine.Result{Err: fmt.Errorf("record zone %s: %w", p.Name, err)}
	}

	if p.Autoboot {
		progress.Update(80, domain.JSONB{"step": "booting"})
		if _, err := h.ops.runner.Run(ctx, "zoneadm", "-z", p.Name, "boot"); err != nil {
			// Installed but not booted; surface it without failing the create.
			h.ops.zones.UpdateState(ctx, p.Name, domain.ZoneStateStopped)
			return engine.Result{Success: true, Message: fmt.Sprintf("zone %s installed, boot failed: %v", p.Name, err)}
		}
		h.ops.zones.UpdateState(ctx, p.Name, domain.ZoneStateRunning)
	}

	return engine.Result{Success: true, Message: fmt.Sprintf("zone %s created", p.Name)}
}

// ==================== zone.destroy ====================

type zoneDestroyHandler struct{ ops *ZoneOps }

func (h *zoneDestroyHandler) Kind() domain.OpKind { return domain.OpZoneDestroy }

func (h *zoneDestroyHandler) ValidatePayload(raw domain.Payload) error {
	var p ZoneActionPayload
	if err := decodeStrict(raw, &p); err != nil {
		return err
	}
	return p.Validate()
}

func (h *zoneDestroyHandler) Scope(raw domain.Payload) string     { return zoneScope(raw) }
func (h *zoneDestroyHandler) Resources(raw domain.Payload) []string { return nil }

func (h *zoneDestroyHandler) Execute(ctx context.Context, task *domain.Task, progress engine.Progress) engine.Result {
	var p ZoneActionPayload
	if err := decodeStrict(task.Metadata, &p); err != nil {
		return engine.Result{Err: fmt.Errorf("decode payload: %w", err)}
	}

	progress.Update(10, domain.JSONB{"step": "halting"})
	// Halt may fail when the zone is already down; uninstall is the arbiter.
	h.ops.runner.Run(ctx, "zoneadm", "-z", p.Name, "halt")

	progress.Update(40, domain.JSONB{"step": "uninstalling"})
	if _, err := h.ops.runner.Run(ctx, "zoneadm", "-z", p.Name, "uninstall", "-F"); err != nil {
		return engine.Result{Err: fmt.Errorf("zoneadm uninstall %s: %w", p.Name, err)}
	}

	progress.Update(70, domain.JSONB{"step": "deleting config"})
	if _, err := h.ops.runner.Run(ctx, "zonecfg", "-z", p.Name, "delete", "-F"); err != nil {
		return engine.Result{Err: fmt.Errorf("zonecfg delete %s: %w", p.Name, err)}
	}

	if err := h.ops.zones.Delete(ctx, p.Name); err != nil {
		return engine.Result{Err: fmt.Errorf("remove zone record %s: %w", p.Name, err)}
	}
	return engine.Result{Success: true, Message: fmt.Sprintf("zone %s destroyed", p.Name)}
}

// ==================== zone.start / zone.stop ====================

type zoneStartHandler struct{ ops *ZoneOps }

func (h *zoneStartHandler) Kind() domain.OpKind { return domain.OpZoneStart }

func (h *zoneStartHandler) ValidatePayload(raw domain.Payload) error {
	var p ZoneActionPayload
	if err := decodeStrict(raw, &p); err != nil {
		return err
	}
	return p.Validate()
}

func (h *zoneStartHandler) Scope(raw domain.Payload) string       { return zoneScope(raw) }
func (h *zoneStartHandler) Resources(raw domain.Payload) []string { return nil }

func (h *zoneStartHandler) Execute(ctx context.Context, task *domain.Task, progress engine.Progress) engine.Result {
	var p ZoneActionPayload
	if err := decodeStrict(task.Metadata, &p); err != nil {
		return engine.Result{Err: fmt.Errorf("decode payload: %w", err)}
	}

	progress.Update(20, domain.JSONB{"step": "booting"})
	if _, err := h.ops.runner.Run(ctx, "zoneadm", "-z", p.Name, "boot"); err != nil {
		h.ops.zones.UpdateState(ctx, p.Name, domain.ZoneStateError)
		return engine.Result{Err: fmt.Errorf("zoneadm boot %s: %w", p.Name, err)}
	}
	if err := h.ops.zones.UpdateState(ctx, p.Name, domain.ZoneStateRunning); err != nil {
		return engine.Result{Err: err}
	}
	return engine.Result{Success: true, Message: fmt.Sprintf("zone %s started", p.Name)}
}

type zoneStopHandler struct{ ops *ZoneOps }

func (h *zoneStopHandler) Kind() domain.OpKind { return domain.OpZoneStop }

func (h *zoneStopHandler) ValidatePayload(raw domain.Payload) error {
	var p ZoneActionPayload
	if err := decodeStrict(raw, &p); err != nil {
		return err
	}
	return p.Validate()
}

func (h *zoneStopHandler) Scope(raw domain.Payload) string       { return zoneScope(raw) }
func (h *zoneStopHandler) Resources(raw domain.Payload) []string { return nil }

func (h *zoneStopHandler) Execute(ctx context.Context, task *domain.Task, progress engine.Progress) engine.Result {
	var p ZoneActionPayload
	if err := decodeStrict(task.Metadata, &p); err != nil {
		return engine.Result{Err: fmt.Errorf("decode payload: %w", err)}
	}

	progress.Update(20, domain.JSONB{"step": "halting"})
	if _, err := h.ops.runner.Run(ctx, "zoneadm", "-z", p.Name, "halt"); err != nil {
		return engine.Result{Err: fmt.Errorf("zoneadm halt %s: %w", p.Name, err)}
	}
	if err := h.ops.zones.UpdateState(ctx, p.Name, domain.ZoneStateStopped); err != nil {
		return engine.Result{Err: err}
	}
	return engine.Result{Success: true, Message: fmt.Sprintf("zone %s stopped", p.Name)}
}

func zoneScope(raw domain.Payload) string {
	var p ZoneActionPayload
	if err := decodeStrict(raw, &p); err != nil || p.Name == "" {
		return domain.ScopeSystem
	}
	return p.Name
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
