package operations

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/zonehub/backend/internal/domain"
	"github.com/zonehub/backend/internal/infrastructure/logger"
)

type fakeLinks struct {
	mu   sync.Mutex
	rows map[string]*domain.NetworkLink
}

func newFakeLinks() *fakeLinks {
	return &fakeLinks{rows: make(map[string]*domain.NetworkLink)}
}

func (f *fakeLinks) Create(_ context.Context, link *domain.NetworkLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.rows[link.Name]; exists {
		return fmt.Errorf("link %s exists", link.Name)
	}
	copied := *link
	f.rows[link.Name] = &copied
	return nil
}

func (f *fakeLinks) GetByName(_ context.Context, name string) (*domain.NetworkLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	link, ok := f.rows[name]
	if !ok {
		return nil, fmt.Errorf("link %s not found", name)
	}
	copied := *link
	return &copied, nil
}

func (f *fakeLinks) GetAll(context.Context) ([]domain.NetworkLink, error) { return nil, nil }

func (f *fakeLinks) Update(_ context.Context, link *domain.NetworkLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *link
	f.rows[link.Name] = &copied
	return nil
}

func (f *fakeLinks) Delete(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[name]; !ok {
		return fmt.Errorf("link %s not found", name)
	}
	delete(f.rows, name)
	return nil
}

func TestLinkCreateEtherstub(t *testing.T) {
	links := newFakeLinks()
	runner := &fakeRunner{}
	ops := NewNetworkOps(links, runner, logger.Nop())
	create := ops.Handlers()[0]

	task := zoneTask(t, LinkCreatePayload{Name: "stub0", Kind: "etherstub"})
	result := create.Execute(context.Background(), task, newFakeProgress())
	if !result.Success {
		t.Fatalf("create failed: %v", result.Err)
	}
	if !runner.ran("dladm create-etherstub stub0") {
		t.Error("expected create-etherstub invocation")
	}
	if _, err := links.GetByName(context.Background(), "stub0"); err != nil {
		t.Error("link row must be recorded")
	}
}

func TestLinkCreateVNICWithOptions(t *testing.T) {
	links := newFakeLinks()
	runner := &fakeRunner{}
	ops := NewNetworkOps(links, runner, logger.Nop())
	create := ops.Handlers()[0]

	task := zoneTask(t, LinkCreatePayload{
		Name: "vnic0", Kind: "vnic", Over: "stub0", MAC: "02:08:20:aa:bb:cc", VLAN: 100,
	})
	result := create.Execute(context.Background(), task, newFakeProgress())
	if !result.Success {
		t.Fatalf("create failed: %v", result.Err)
	}
	if !runner.ran("create-vnic -l stub0 -m 02:08:20:aa:bb:cc -v 100 vnic0") {
		t.Errorf("unexpected dladm invocation: %v", runner.commands)
	}
}

func TestLinkCreateCommandFailure(t *testing.T) {
	links := newFakeLinks()
	runner := &fakeRunner{failOn: "create-etherstub"}
	ops := NewNetworkOps(links, runner, logger.Nop())
	create := ops.Handlers()[0]

	task := zoneTask(t, LinkCreatePayload{Name: "stub0", Kind: "etherstub"})
	result := create.Execute(context.Background(), task, newFakeProgress())
	if result.Success {
		t.Fatal("dladm failure must fail the task")
	}
	if _, err := links.GetByName(context.Background(), "stub0"); err == nil {
		t.Error("no link row must exist after a failed create")
	}
}

func TestLinkDelete(t *testing.T) {
	links := newFakeLinks()
	links.Create(context.Background(), &domain.NetworkLink{Name: "vnic0", Kind: domain.LinkKindVNIC})
	runner := &fakeRunner{}
	ops := NewNetworkOps(links, runner, logger.Nop())
	del := ops.Handlers()[1]

	task := zoneTask(t, LinkDeletePayload{Name: "vnic0"})
	result := del.Execute(context.Background(), task, newFakeProgress())
	if !result.Success {
		t.Fatalf("delete failed: %v", result.Err)
	}
	if !runner.ran("delete-vnic vnic0") {
		t.Error("expected delete-vnic invocation")
	}
	if _, err := links.GetByName(context.Background(), "vnic0"); err == nil {
		t.Error("link row must be removed")
	}
}

func TestLinkDeleteEtherstubUsesRightSubcommand(t *testing.T) {
	links := newFakeLinks()
	links.Create(context.Background(), &domain.NetworkLink{Name: "stub0", Kind: domain.LinkKindEtherstub})
	runner := &fakeRunner{}
	ops := NewNetworkOps(links, runner, logger.Nop())
	del := ops.Handlers()[1]

	task := zoneTask(t, LinkDeletePayload{Name: "stub0"})
	if result := del.Execute(context.Background(), task, newFakeProgress()); !result.Success {
		t.Fatalf("delete failed: %v", result.Err)
	}
	if !runner.ran("delete-etherstub stub0") {
		t.Error("etherstub must be deleted with delete-etherstub")
	}
}

func TestLinkDeleteRefusesAssignedLink(t *testing.T) {
	links := newFakeLinks()
	links.Create(context.Background(), &domain.NetworkLink{
		Name: "vnic0", Kind: domain.LinkKindVNIC, ZoneName: "web01",
	})
	runner := &fakeRunner{}
	ops := NewNetworkOps(links, runner, logger.Nop())
	del := ops.Handlers()[1]

	task := zoneTask(t, LinkDeletePayload{Name: "vnic0"})
	result := del.Execute(context.Background(), task, newFakeProgress())
	if result.Success {
		t.Fatal("deleting an assigned link must fail")
	}
	if runner.ran("delete-vnic") {
		t.Error("dladm must not run for an assigned link")
	}
	if _, err := links.GetByName(context.Background(), "vnic0"); err != nil {
		t.Error("assigned link row must survive")
	}
}

func TestLinkResources(t *testing.T) {
	ops := NewNetworkOps(newFakeLinks(), &fakeRunner{}, logger.Nop())
	create := ops.Handlers()[0]
	del := ops.Handlers()[1]

	raw, _ := json.Marshal(LinkCreatePayload{Name: "vnic0", Kind: "vnic", Over: "stub0"})
	if got := create.Resources(domain.Payload(raw)); len(got) != 1 || got[0] != "link:vnic0" {
		t.Errorf("create footprint = %v, want [link:vnic0]", got)
	}

	rawDel, _ := json.Marshal(LinkDeletePayload{Name: "vnic0"})
	if got := del.Resources(domain.Payload(rawDel)); len(got) != 1 || got[0] != "link:vnic0" {
		t.Errorf("delete footprint = %v, want [link:vnic0]", got)
	}
}
