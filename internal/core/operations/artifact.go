package operations

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/zonehub/backend/internal/core/engine"
	"github.com/zonehub/backend/internal/core/ports"
	"github.com/zonehub/backend/internal/domain"
	"github.com/zonehub/backend/internal/infrastructure/fetch"
	"github.com/zonehub/backend/internal/infrastructure/logger"
	"golang.org/x/sync/errgroup"
)

const deleteFanout = 4

// ArtifactOps downloads and deletes artifacts on the artifact datasets.
type ArtifactOps struct {
	artifacts ports.ArtifactRepository
	fetcher   fetch.Fetcher
	log       *logger.Logger
}

func NewArtifactOps(artifacts ports.ArtifactRepository, fetcher fetch.Fetcher, log *logger.Logger) *ArtifactOps {
	return &ArtifactOps{artifacts: artifacts, fetcher: fetcher, log: log}
}

func (o *ArtifactOps) Handlers() []engine.Handler {
	return []engine.Handler{
		&artifactDownloadHandler{o},
		&artifactDeleteHandler{o},
	}
}

// ==================== artifact.download ====================

type artifactDownloadHandler struct{ ops *ArtifactOps }

func (h *artifactDownloadHandler) Kind() domain.OpKind { return domain.OpArtifactDownload }

func (h *artifactDownloadHandler) ValidatePayload(raw domain.Payload) error {
	var p ArtifactDownloadPayload
	if err := decodeStrict(raw, &p); err != nil {
		return err
	}
	return p.Validate()
}

// Scope is the destination path, so two downloads of the same target
// serialize while scans and other downloads proceed.
func (h *artifactDownloadHandler) Scope(raw domain.Payload) string {
	var p ArtifactDownloadPayload
	if err := decodeStrict(raw, &p); err != nil {
		return domain.ScopeArtifacts
	}
	return p.DestPath()
}

// Resources registers the destination in the conflict registry so a
// concurrent scan skips the half-written file.
func (h *artifactDownloadHandler) Resources(raw domain.Payload) []string {
	var p ArtifactDownloadPayload
	if err := decodeStrict(raw, &p); err != nil {
		return nil
	}
	return []string{p.DestPath()}
}

func (h *artifactDownloadHandler) Execute(ctx context.Context, task *domain.Task, progress engine.Progress) engine.Result {
	var p ArtifactDownloadPayload
	if err := decodeStrict(task.Metadata, &p); err != nil {
		return engine.Result{Err: fmt.Errorf("decode payload: %w", err)}
	}

	destPath := p.DestPath()
	tmpPath := destPath + ".partial"

	if err := os.MkdirAll(p.Dataset, 0o755); err != nil {
		return engine.Result{Err: fmt.Errorf("create dataset dir: %w", err)}
	}

	file, err := os.Create(tmpPath)
	if err != nil {
		return engine.Result{Err: fmt.Errorf("create %s: %w", tmpPath, err)}
	}

	// Cooperative cancellation: abort the transfer when signalled.
	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-progress.Cancelled():
			cancel()
		case <-fetchCtx.Done():
		}
	}()

	hasher := sha256.New()
	size, err := h.ops.fetcher.Fetch(fetchCtx, p.URL, io.MultiWriter(file, hasher), func(done, total int64) {
		percent := 0
		if total > 0 {
			percent = int(done * 90 / total)
		}
		progress.Update(percent, domain.JSONB{"bytes_done": done, "bytes_total": total})
	})
	file.Close()
	if err != nil {
		os.Remove(tmpPath)
		return engine.Result{Err: fmt.Errorf("download %s: %w", p.URL, err)}
	}

	progress.Update(95, domain.JSONB{"step": "verifying"})
	sum := hex.EncodeToString(hasher.Sum(nil))
	if p.SHA256 != "" && sum != p.SHA256 {
		os.Remove(tmpPath)
		return engine.Result{Err: fmt.Errorf("checksum mismatch: expected %s, got %s", p.SHA256, sum)}
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return engine.Result{Err: fmt.Errorf("finalize %s: %w", destPath, err)}
	}

	kind := domain.ArtifactKind(p.Kind)
	if kind == "" {
		kind = domain.ArtifactKindISO
	}

	existing, err := h.ops.artifacts.GetByPath(ctx, p.Dataset, p.Filename)
	if err == nil {
		existing.SizeBytes = size
		existing.SHA256 = sum
		existing.SourceURL = p.URL
		existing.Kind = kind
		existing.Discovered = false
		if err := h.ops.artifacts.Update(ctx, existing); err != nil {
			return engine.Result{Err: fmt.Errorf("update artifact record: %w", err)}
		}
	} else {
		artifact := &domain.Artifact{
			Filename:  p.Filename,
			Dataset:   p.Dataset,
			Kind:      kind,
			SizeBytes: size,
			SHA256:    sum,
			SourceURL: p.URL,
		}
		if err := h.ops.artifacts.Create(ctx, artifact); err != nil {
			return engine.Result{Err: fmt.Errorf("record artifact: %w", err)}
		}
	}

	return engine.Result{
		Success: true,
		Message: fmt.Sprintf("downloaded %s (%d bytes, sha256 %s)", p.Filename, size, sum[:12]),
	}
}

// ==================== artifact.delete ====================

type artifactDeleteHandler struct{ ops *ArtifactOps }

func (h *artifactDeleteHandler) Kind() domain.OpKind { return domain.OpArtifactDelete }

func (h *artifactDeleteHandler) ValidatePayload(raw domain.Payload) error {
	var p ArtifactDeletePayload
	if err := decodeStrict(raw, &p); err != nil {
		return err
	}
	return p.Validate()
}

func (h *artifactDeleteHandler) Scope(raw domain.Payload) string       { return domain.ScopeArtifacts }
func (h *artifactDeleteHandler) Resources(raw domain.Payload) []string { return nil }

// Execute deletes each artifact's file and row. Per-item failures are
// reported through stats; the task fails only when every item failed.
func (h *artifactDeleteHandler) Execute(ctx context.Context, task *domain.Task, progress engine.Progress) engine.Result {
	var p ArtifactDeletePayload
	if err := decodeStrict(task.Metadata, &p); err != nil {
		return engine.Result{Err: fmt.Errorf("decode payload: %w", err)}
	}

	var (
		mu           sync.Mutex
		successCount int
		errs         []string
		processed    int
	)
	record := func(itemErr error) {
		mu.Lock()
		defer mu.Unlock()
		processed++
		if itemErr != nil {
			errs = append(errs, itemErr.Error())
		} else {
			successCount++
		}
		progress.Update(processed*100/len(p.IDs), domain.JSONB{"deleted": successCount, "failed": len(errs)})
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(deleteFanout)
	for _, id := range p.IDs {
		id := id
		group.Go(func() error {
			artifact, err := h.ops.artifacts.GetByID(groupCtx, id)
			if err != nil {
				record(fmt.Errorf("artifact %d not found", id))
				return nil
			}
			if err := os.Remove(artifact.Path()); err != nil {
				// Row stays so the inconsistency remains visible.
				record(fmt.Errorf("%s: %v", artifact.Filename, err))
				return nil
			}
			if err := h.ops.artifacts.Delete(groupCtx, id); err != nil {
				record(fmt.Errorf("%s: remove record: %v", artifact.Filename, err))
				return nil
			}
			record(nil)
			return nil
		})
	}
	group.Wait()

	stats, _ := json.Marshal(map[string]interface{}{
		"success_count": successCount,
		"errors":        errs,
	})

	if successCount == 0 {
		return engine.Result{
			Err:   fmt.Errorf("all %d deletions failed", len(p.IDs)),
			Stats: domain.Payload(stats),
		}
	}
	return engine.Result{
		Success: true,
		Message: fmt.Sprintf("deleted %d of %d artifacts (%d errors)", successCount, len(p.IDs), len(errs)),
		Stats:   domain.Payload(stats),
	}
}
