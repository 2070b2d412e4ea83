package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/zonehub/backend/internal/core/ports"
	"github.com/zonehub/backend/internal/domain"
	"github.com/zonehub/backend/internal/infrastructure/logger"
)

type stubZoneRepo struct {
	zones map[string]*domain.Zone
}

func (s *stubZoneRepo) Create(context.Context, *domain.Zone) error { return nil }
func (s *stubZoneRepo) GetByName(_ context.Context, name string) (*domain.Zone, error) {
	if zone, ok := s.zones[name]; ok {
		return zone, nil
	}
	return nil, fmt.Errorf("zone %s not found", name)
}
func (s *stubZoneRepo) GetAll(context.Context) ([]domain.Zone, error)               { return nil, nil }
func (s *stubZoneRepo) Update(context.Context, *domain.Zone) error                  { return nil }
func (s *stubZoneRepo) UpdateState(context.Context, string, domain.ZoneState) error { return nil }
func (s *stubZoneRepo) Delete(context.Context, string) error                        { return nil }

func newZoneService(tasks ports.TaskService, existing ...string) *ZoneService {
	repo := &stubZoneRepo{zones: make(map[string]*domain.Zone)}
	for _, name := range existing {
		repo.zones[name] = &domain.Zone{Name: name}
	}
	return NewZoneService(ZoneServiceConfig{Repository: repo, Tasks: tasks, Logger: logger.Nop()})
}

func TestCreateZoneAsyncDuplicateName(t *testing.T) {
	tasks := &recordingTasks{}
	svc := newZoneService(tasks, "web01")

	_, err := svc.CreateZoneAsync(context.Background(), ports.CreateZoneInput{
		Name: "web01", Brand: domain.ZoneBrandNative,
	})
	if !errors.Is(err, ErrZoneAlreadyExists) {
		t.Fatalf("expected ErrZoneAlreadyExists, got %v", err)
	}
	if len(tasks.submitted) != 0 {
		t.Error("duplicate create must not submit a task")
	}
}

func TestCreateZoneAsyncSubmitsPayload(t *testing.T) {
	tasks := &recordingTasks{}
	svc := newZoneService(tasks)

	dep := "download-task"
	_, err := svc.CreateZoneAsync(context.Background(), ports.CreateZoneInput{
		Name:      "web01",
		Brand:     domain.ZoneBrandBhyve,
		VNIC:      "vnic0",
		CPUs:      4,
		CreatedBy: "admin",
		DependsOn: &dep,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	submitted := tasks.last()
	if submitted.Operation != domain.OpZoneCreate {
		t.Errorf("unexpected operation %s", submitted.Operation)
	}
	if submitted.DependsOn == nil || *submitted.DependsOn != dep {
		t.Error("depends_on must pass through to the task")
	}

	var meta map[string]interface{}
	if err := json.Unmarshal(submitted.Metadata, &meta); err != nil {
		t.Fatal(err)
	}
	if meta["name"] != "web01" || meta["brand"] != "bhyve" || meta["vnic"] != "vnic0" {
		t.Errorf("metadata incomplete: %v", meta)
	}
}

func TestZoneActionUnknownZone(t *testing.T) {
	svc := newZoneService(&recordingTasks{})

	if _, err := svc.StartZoneAsync(context.Background(), "ghost", "admin"); !errors.Is(err, ErrZoneNotFound) {
		t.Fatalf("expected ErrZoneNotFound, got %v", err)
	}
}

func TestZoneActionsSubmitRightOperations(t *testing.T) {
	tasks := &recordingTasks{}
	svc := newZoneService(tasks, "web01")

	cases := []struct {
		call func() (*domain.Task, error)
		want domain.OpKind
	}{
		{func() (*domain.Task, error) { return svc.StartZoneAsync(context.Background(), "web01", "a") }, domain.OpZoneStart},
		{func() (*domain.Task, error) { return svc.StopZoneAsync(context.Background(), "web01", "a") }, domain.OpZoneStop},
		{func() (*domain.Task, error) { return svc.DestroyZoneAsync(context.Background(), "web01", "a") }, domain.OpZoneDestroy},
	}
	for _, tc := range cases {
		if _, err := tc.call(); err != nil {
			t.Fatalf("%s failed: %v", tc.want, err)
		}
		if tasks.last().Operation != tc.want {
			t.Errorf("expected %s, got %s", tc.want, tasks.last().Operation)
		}
	}
}

type stubLinkRepo struct {
	links map[string]*domain.NetworkLink
}

func (s *stubLinkRepo) Create(context.Context, *domain.NetworkLink) error { return nil }
func (s *stubLinkRepo) GetByName(_ context.Context, name string) (*domain.NetworkLink, error) {
	if link, ok := s.links[name]; ok {
		return link, nil
	}
	return nil, fmt.Errorf("link %s not found", name)
}
func (s *stubLinkRepo) GetAll(context.Context) ([]domain.NetworkLink, error) { return nil, nil }
func (s *stubLinkRepo) Update(context.Context, *domain.NetworkLink) error    { return nil }
func (s *stubLinkRepo) Delete(context.Context, string) error                 { return nil }

func TestDeleteLinkAsyncInUse(t *testing.T) {
	repo := &stubLinkRepo{links: map[string]*domain.NetworkLink{
		"vnic0": {Name: "vnic0", ZoneName: "web01"},
	}}
	svc := NewLinkService(LinkServiceConfig{Repository: repo, Tasks: &recordingTasks{}, Logger: logger.Nop()})

	if _, err := svc.DeleteLinkAsync(context.Background(), "vnic0", "admin"); !errors.Is(err, ErrLinkInUse) {
		t.Fatalf("expected ErrLinkInUse, got %v", err)
	}
}

func TestDeleteLinkAsyncNotFound(t *testing.T) {
	repo := &stubLinkRepo{links: map[string]*domain.NetworkLink{}}
	svc := NewLinkService(LinkServiceConfig{Repository: repo, Tasks: &recordingTasks{}, Logger: logger.Nop()})

	if _, err := svc.DeleteLinkAsync(context.Background(), "ghost", "admin"); !errors.Is(err, ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound, got %v", err)
	}
}

func TestCreateLinkAsyncDuplicate(t *testing.T) {
	repo := &stubLinkRepo{links: map[string]*domain.NetworkLink{
		"stub0": {Name: "stub0"},
	}}
	svc := NewLinkService(LinkServiceConfig{Repository: repo, Tasks: &recordingTasks{}, Logger: logger.Nop()})

	_, err := svc.CreateLinkAsync(context.Background(), ports.CreateLinkInput{
		Name: "stub0", Kind: domain.LinkKindEtherstub,
	})
	if !errors.Is(err, ErrLinkInvalidInput) {
		t.Fatalf("expected ErrLinkInvalidInput, got %v", err)
	}
}
