// Package pipeline implements the remediation sequence for flagged objects:
// download, blur, upload to quarantine, cleanup.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wardenworks/imgwarden/internal/blobstore"
	"github.com/wardenworks/imgwarden/internal/metrics"
	"github.com/wardenworks/imgwarden/internal/models"
	"github.com/wardenworks/imgwarden/internal/transform"
)

// Stage identifies a step of the remediation pipeline.
type Stage string

const (
	StageDownload  Stage = "download"
	StageTransform Stage = "transform"
	StageUpload    Stage = "upload"
	StageCleanup   Stage = "cleanup"
)

// StageError wraps a failure with the stage it occurred in, so callers can
// map stages to their failure policies.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Remediator downloads a flagged object, blurs it and re-publishes it to
// the quarantine bucket. Transient on-disk artifacts are deleted on every
// exit path.
type Remediator struct {
	store            blobstore.Store
	executor         transform.Executor
	quarantineBucket string
	scratchDir       string
	logger           *slog.Logger
}

// New creates a Remediator. scratchDir must exist and may be shared with
// concurrent invocations; artifact names include a per-invocation ID so
// concurrent runs cannot collide.
func New(store blobstore.Store, executor transform.Executor, quarantineBucket, scratchDir string, logger *slog.Logger) *Remediator {
	if scratchDir == "" {
		scratchDir = os.TempDir()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Remediator{
		store:            store,
		executor:         executor,
		quarantineBucket: quarantineBucket,
		scratchDir:       scratchDir,
		logger:           logger,
	}
}

// sanitizeKey flattens an object key into a single path element.
func sanitizeKey(key string) string {
	return strings.NewReplacer("/", "_", string(filepath.Separator), "_").Replace(key)
}

// Remediate runs the four-stage pipeline for one object. The returned error,
// if any, is a *StageError naming the failed stage. Cleanup is attempted
// exactly once per call regardless of which stage failed; cleanup failures
// are logged, never escalated.
func (r *Remediator) Remediate(ctx context.Context, ref models.ObjectReference) error {
	start := time.Now()
	defer func() {
		metrics.RemediationDuration.Observe(time.Since(start).Seconds())
	}()

	base := fmt.Sprintf("%s-%s", uuid.New().String(), sanitizeKey(ref.Key))
	src := filepath.Join(r.scratchDir, base)
	dst := filepath.Join(r.scratchDir, "blurred-"+base)
	defer r.cleanup(src, dst)

	// Download
	data, info, err := r.store.Get(ctx, ref.Bucket, ref.Key)
	if err != nil {
		metrics.RemediationStageErrors.WithLabelValues(string(StageDownload)).Inc()
		return &StageError{Stage: StageDownload, Err: fmt.Errorf("get %s: %w", ref, err)}
	}
	if err := os.WriteFile(src, data, 0o600); err != nil {
		metrics.RemediationStageErrors.WithLabelValues(string(StageDownload)).Inc()
		return &StageError{Stage: StageDownload, Err: fmt.Errorf("write scratch copy: %w", err)}
	}

	// Transform
	if err := r.executor.Apply(ctx, src, dst); err != nil {
		metrics.RemediationStageErrors.WithLabelValues(string(StageTransform)).Inc()
		r.logger.Error("transform failed",
			slog.String("object", ref.String()),
			slog.String("error", err.Error()),
		)
		return &StageError{Stage: StageTransform, Err: err}
	}

	// Upload
	blurred, err := os.ReadFile(dst)
	if err != nil {
		metrics.RemediationStageErrors.WithLabelValues(string(StageUpload)).Inc()
		return &StageError{Stage: StageUpload, Err: fmt.Errorf("read transform output: %w", err)}
	}
	if err := r.store.Put(ctx, r.quarantineBucket, ref.Key, blurred, info.ContentType); err != nil {
		metrics.RemediationStageErrors.WithLabelValues(string(StageUpload)).Inc()
		return &StageError{Stage: StageUpload, Err: fmt.Errorf("put %s/%s: %w", r.quarantineBucket, ref.Key, err)}
	}

	r.logger.Info("blurred image uploaded",
		slog.String("bucket", r.quarantineBucket),
		slog.String("object", ref.Key),
		slog.String("content_type", info.ContentType),
	)
	return nil
}

// cleanup deletes the transient artifacts if present. Missing files are
// expected when an earlier stage failed before producing them.
func (r *Remediator) cleanup(paths ...string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			metrics.RemediationStageErrors.WithLabelValues(string(StageCleanup)).Inc()
			r.logger.Warn("failed to remove transient artifact",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
	}
}
