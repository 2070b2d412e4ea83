package operations

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/zonehub/backend/internal/domain"
	"github.com/zonehub/backend/internal/infrastructure/fetch"
)

// fakeArtifacts is an in-memory ArtifactRepository for handler tests.
type fakeArtifacts struct {
	mu     sync.Mutex
	nextID uint
	rows   map[uint]*domain.Artifact

	moveErr   error
	createErr error
}

func newFakeArtifacts() *fakeArtifacts {
	return &fakeArtifacts{nextID: 1, rows: make(map[uint]*domain.Artifact)}
}

func (f *fakeArtifacts) add(artifact domain.Artifact) uint {
	f.mu.Lock()
	defer f.mu.Unlock()
	artifact.ID = f.nextID
	f.nextID++
	f.rows[artifact.ID] = &artifact
	return artifact.ID
}

func (f *fakeArtifacts) Create(_ context.Context, artifact *domain.Artifact) error {
	if f.createErr != nil {
		return f.createErr
	}
	artifact.ID = f.add(*artifact)
	return nil
}

func (f *fakeArtifacts) GetByID(_ context.Context, id uint) (*domain.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, fmt.Errorf("artifact %d not found", id)
	}
	copied := *row
	return &copied, nil
}

func (f *fakeArtifacts) GetByPath(_ context.Context, dataset, filename string) (*domain.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.Dataset == dataset && row.Filename == filename {
			copied := *row
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("artifact %s/%s not found", dataset, filename)
}

func (f *fakeArtifacts) GetAll(_ context.Context) ([]domain.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Artifact
	for _, row := range f.rows {
		out = append(out, *row)
	}
	return out, nil
}

func (f *fakeArtifacts) GetByDataset(_ context.Context, dataset string) ([]domain.Artifact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Artifact
	for _, row := range f.rows {
		if row.Dataset == dataset {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (f *fakeArtifacts) Update(_ context.Context, artifact *domain.Artifact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[artifact.ID]; !ok {
		return fmt.Errorf("artifact %d not found", artifact.ID)
	}
	copied := *artifact
	f.rows[artifact.ID] = &copied
	return nil
}

func (f *fakeArtifacts) Delete(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return fmt.Errorf("artifact %d not found", id)
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeArtifacts) Move(_ context.Context, id uint, destDataset string, _ int64) error {
	if f.moveErr != nil {
		return f.moveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return fmt.Errorf("artifact %d not found", id)
	}
	row.Dataset = destDataset
	return nil
}

func (f *fakeArtifacts) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

// fakeDatasets satisfies DatasetRepository; dataset accounting is exercised
// through the gorm repository, not here.
type fakeDatasets struct{}

func (fakeDatasets) Create(context.Context, *domain.Dataset) error { return nil }
func (fakeDatasets) GetByPath(context.Context, string) (*domain.Dataset, error) {
	return nil, fmt.Errorf("not found")
}
func (fakeDatasets) GetAll(context.Context) ([]domain.Dataset, error) { return nil, nil }
func (fakeDatasets) GetByPurpose(context.Context, domain.DatasetPurpose) ([]domain.Dataset, error) {
	return nil, nil
}
func (fakeDatasets) Update(context.Context, *domain.Dataset) error { return nil }

// fakeProgress records updates and exposes a controllable cancel channel.
type fakeProgress struct {
	mu      sync.Mutex
	updates []int
	cancel  chan struct{}
}

func newFakeProgress() *fakeProgress {
	return &fakeProgress{cancel: make(chan struct{})}
}

func (p *fakeProgress) Update(percent int, _ domain.JSONB) {
	p.mu.Lock()
	p.updates = append(p.updates, percent)
	p.mu.Unlock()
}

func (p *fakeProgress) Cancelled() <-chan struct{} { return p.cancel }

// fakeFetcher writes fixed content, reporting progress like a real transfer.
type fakeFetcher struct {
	content []byte
	err     error
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string, dest io.Writer, progress fetch.ProgressFunc) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, err := dest.Write(f.content)
	if progress != nil {
		progress(int64(n), int64(len(f.content)))
	}
	return int64(n), err
}
