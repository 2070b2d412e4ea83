package operations

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/zonehub/backend/internal/core/engine"
	"github.com/zonehub/backend/internal/core/ports"
	"github.com/zonehub/backend/internal/domain"
	"github.com/zonehub/backend/internal/infrastructure/logger"
	"golang.org/x/sync/errgroup"
)

const scanFanout = 3

// StorageOps moves/copies artifacts between datasets and reconciles the
// artifact table against what is actually on disk.
type StorageOps struct {
	artifacts ports.ArtifactRepository
	datasets  ports.DatasetRepository
	resources *engine.ResourceRegistry
	defaults  []string // configured artifact datasets
	log       *logger.Logger
}

func NewStorageOps(artifacts ports.ArtifactRepository, datasets ports.DatasetRepository, resources *engine.ResourceRegistry, defaultDatasets []string, log *logger.Logger) *StorageOps {
	return &StorageOps{
		artifacts: artifacts,
		datasets:  datasets,
		resources: resources,
		defaults:  defaultDatasets,
		log:       log,
	}
}

func (o *StorageOps) Handlers() []engine.Handler {
	return []engine.Handler{
		&storageMoveHandler{ops: o, kind: domain.OpStorageMove},
		&storageMoveHandler{ops: o, kind: domain.OpStorageCopy},
		&storageScanHandler{o},
	}
}

// ==================== storage.move / storage.copy ====================

type storageMoveHandler struct {
	ops  *StorageOps
	kind domain.OpKind
}

func (h *storageMoveHandler) Kind() domain.OpKind { return h.kind }

func (h *storageMoveHandler) ValidatePayload(raw domain.Payload) error {
	var p StorageMovePayload
	if err := decodeStrict(raw, &p); err != nil {
		return err
	}
	return p.Validate()
}

func (h *storageMoveHandler) Scope(raw domain.Payload) string       { return domain.ScopeArtifacts }
func (h *storageMoveHandler) Resources(raw domain.Payload) []string { return nil }

// Execute performs the physical step first, then the database accounting in
// one transaction. A failure between the two leaves the file moved with the
// rows rolled back; that gap is reported, not hidden.
func (h *storageMoveHandler) Execute(ctx context.Context, task *domain.Task, progress engine.Progress) engine.Result {
	var p StorageMovePayload
	if err := decodeStrict(task.Metadata, &p); err != nil {
		return engine.Result{Err: fmt.Errorf("decode payload: %w", err)}
	}

	artifact, err := h.ops.artifacts.GetByID(ctx, p.ArtifactID)
	if err != nil {
		return engine.Result{Err: fmt.Errorf("artifact %d not found", p.ArtifactID)}
	}
	if artifact.Dataset == p.DestDataset {
		return engine.Result{Err: fmt.Errorf("artifact %d is already in %s", p.ArtifactID, p.DestDataset)}
	}

	sourcePath := artifact.Path()
	destPath := filepath.Join(p.DestDataset, artifact.Filename)

	if err := os.MkdirAll(p.DestDataset, 0o755); err != nil {
		return engine.Result{Err: fmt.Errorf("create dataset dir: %w", err)}
	}

	progress.Update(20, domain.JSONB{"step": "copying file"})
	if err := copyFile(sourcePath, destPath); err != nil {
		os.Remove(destPath)
		return engine.Result{Err: fmt.Errorf("copy %s: %w", sourcePath, err)}
	}

	if h.kind == domain.OpStorageCopy {
		progress.Update(70, domain.JSONB{"step": "recording copy"})
		clone := &domain.Artifact{
			Filename:  artifact.Filename,
			Dataset:   p.DestDataset,
			Kind:      artifact.Kind,
			SizeBytes: artifact.SizeBytes,
			SHA256:    artifact.SHA256,
			SourceURL: artifact.SourceURL,
		}
		if err := h.ops.artifacts.Create(ctx, clone); err != nil {
			return engine.Result{Err: fmt.Errorf("copied file is on disk at %s but unrecorded: %w", destPath, err)}
		}
		return engine.Result{Success: true, Message: fmt.Sprintf("copied %s to %s", artifact.Filename, p.DestDataset)}
	}

	progress.Update(70, domain.JSONB{"step": "updating accounting"})
	if err := h.ops.artifacts.Move(ctx, p.ArtifactID, p.DestDataset, artifact.SizeBytes); err != nil {
		// The physical move already happened and is not rolled back.
		return engine.Result{Err: fmt.Errorf("file moved to %s but accounting rolled back: %w", destPath, err)}
	}
	if err := os.Remove(sourcePath); err != nil {
		h.ops.log.Warnw("storage_move_source_remove_failed", "path", sourcePath, "error", err)
	}

	return engine.Result{Success: true, Message: fmt.Sprintf("moved %s to %s", artifact.Filename, p.DestDataset)}
}

func copyFile(source, dest string) error {
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// ==================== storage.scan ====================

type storageScanHandler struct{ ops *StorageOps }

func (h *storageScanHandler) Kind() domain.OpKind { return domain.OpStorageScan }

func (h *storageScanHandler) ValidatePayload(raw domain.Payload) error {
	var p StorageScanPayload
	if err := decodeStrict(raw, &p); err != nil {
		return err
	}
	return p.Validate()
}

func (h *storageScanHandler) Scope(raw domain.Payload) string       { return domain.ScopeArtifacts }
func (h *storageScanHandler) Resources(raw domain.Payload) []string { return nil }

// Execute walks the artifact datasets, upserting files not yet recorded and
// pruning rows whose file is gone. Paths registered busy in the conflict
// registry (a download in flight) are excluded from both classifications.
func (h *storageScanHandler) Execute(ctx context.Context, task *domain.Task, progress engine.Progress) engine.Result {
	var p StorageScanPayload
	if err := decodeStrict(task.Metadata, &p); err != nil {
		return engine.Result{Err: fmt.Errorf("decode payload: %w", err)}
	}

	datasets := p.Datasets
	if len(datasets) == 0 {
		datasets = h.ops.defaults
	}
	if len(datasets) == 0 {
		return engine.Result{Err: fmt.Errorf("no datasets to scan")}
	}

	var (
		mu         sync.Mutex
		discovered int
		pruned     int
		skipped    int
		scanErrs   []string
		done       int
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(scanFanout)
	for _, dataset := range datasets {
		dataset := dataset
		group.Go(func() error {
			d, pr, sk, err := h.scanDataset(groupCtx, dataset)
			mu.Lock()
			defer mu.Unlock()
			discovered += d
			pruned += pr
			skipped += sk
			if err != nil {
				scanErrs = append(scanErrs, fmt.Sprintf("%s: %v", dataset, err))
			}
			done++
			progress.Update(done*100/len(datasets), domain.JSONB{
				"datasets_done": done, "discovered": discovered, "pruned": pruned,
			})
			return nil
		})
	}
	group.Wait()

	stats, _ := json.Marshal(map[string]interface{}{
		"discovered": discovered,
		"pruned":     pruned,
		"skipped":    skipped,
		"errors":     scanErrs,
	})

	if len(scanErrs) == len(datasets) {
		return engine.Result{
			Err:   fmt.Errorf("scan failed for all %d datasets", len(datasets)),
			Stats: domain.Payload(stats),
		}
	}
	return engine.Result{
		Success: true,
		Message: fmt.Sprintf("scan complete: %d discovered, %d pruned, %d busy skipped", discovered, pruned, skipped),
		Stats:   domain.Payload(stats),
	}
}

func (h *storageScanHandler) scanDataset(ctx context.Context, dataset string) (discovered, pruned, skipped int, err error) {
	entries, err := os.ReadDir(dataset)
	if err != nil {
		return 0, 0, 0, err
	}

	known, err := h.ops.artifacts.GetByDataset(ctx, dataset)
	if err != nil {
		return 0, 0, 0, err
	}
	knownByName := make(map[string]*domain.Artifact, len(known))
	for i := range known {
		knownByName[known[i].Filename] = &known[i]
	}

	onDisk := make(map[string]bool, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		path := filepath.Join(dataset, name)

		// A busy path is mid-mutation: neither new nor orphaned.
		if h.ops.resources.Busy(path) {
			skipped++
			continue
		}
		// Partial downloads are invisible until renamed into place.
		if filepath.Ext(name) == ".partial" {
			continue
		}
		onDisk[name] = true

		if _, ok := knownByName[name]; ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		artifact := &domain.Artifact{
			Filename:   name,
			Dataset:    dataset,
			Kind:       kindFromName(name),
			SizeBytes:  info.Size(),
			Discovered: true,
		}
		if err := h.ops.artifacts.Create(ctx, artifact); err != nil {
			h.ops.log.Warnw("scan_record_failed", "path", path, "error", err)
			continue
		}
		discovered++
	}

	for name, artifact := range knownByName {
		if onDisk[name] {
			continue
		}
		if h.ops.resources.Busy(artifact.Path()) {
			skipped++
			continue
		}
		if err := h.ops.artifacts.Delete(ctx, artifact.ID); err != nil {
			h.ops.log.Warnw("scan_prune_failed", "path", artifact.Path(), "error", err)
			continue
		}
		pruned++
	}

	return discovered, pruned, skipped, nil
}

func kindFromName(name string) domain.ArtifactKind {
	switch filepath.Ext(name) {
	case ".iso":
		return domain.ArtifactKindISO
	case ".img", ".qcow2", ".raw":
		return domain.ArtifactKindImage
	case ".zvol", ".vol":
		return domain.ArtifactKindVolume
	default:
		return domain.ArtifactKindImage
	}
}
