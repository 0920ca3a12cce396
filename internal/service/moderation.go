// Package service orchestrates one moderation invocation: staleness guard,
// classification, verdict, and remediation, plus the audit records around
// them.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wardenworks/imgwarden/internal/audit"
	"github.com/wardenworks/imgwarden/internal/decision"
	"github.com/wardenworks/imgwarden/internal/guard"
	"github.com/wardenworks/imgwarden/internal/logging"
	"github.com/wardenworks/imgwarden/internal/messaging"
	"github.com/wardenworks/imgwarden/internal/metrics"
	"github.com/wardenworks/imgwarden/internal/models"
	"github.com/wardenworks/imgwarden/internal/pipeline"
	"github.com/wardenworks/imgwarden/internal/repository"
	"github.com/wardenworks/imgwarden/internal/vision"
)

// Remediator runs the blur-and-republish pipeline for one object.
type Remediator interface {
	Remediate(ctx context.Context, ref models.ObjectReference) error
}

// Service processes delivered storage events.
type Service struct {
	guard      *guard.Guard
	annotator  vision.Annotator
	remediator Remediator
	repo       repository.Repository
	sink       audit.Sink
	publisher  messaging.Publisher
	logger     *logging.Logger
}

// New creates a Service. repo and sink must be non-nil; use the memory
// repository and NoopSink to run without persistence.
func New(g *guard.Guard, annotator vision.Annotator, remediator Remediator, repo repository.Repository, sink audit.Sink, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		guard:      g,
		annotator:  annotator,
		remediator: remediator,
		repo:       repo,
		sink:       sink,
		logger:     logger,
	}
}

// SetPublisher configures an optional publisher for outcome events.
func (s *Service) SetPublisher(pub messaging.Publisher) {
	s.publisher = pub
}

// Process handles one delivered event from payload receipt to outcome. The
// returned invocation is always non-nil. A non-nil error means the failure
// is worth a platform-level redelivery (classification transport failure,
// download or upload failure); all other outcomes are final for this
// delivery.
func (s *Service) Process(ctx context.Context, payload []byte, receivedAt time.Time) (*models.Invocation, error) {
	inv := &models.Invocation{
		ID:         newInvocationID(),
		ReceivedAt: receivedAt,
	}

	// Staleness guard runs before anything else: a redelivery that
	// arrives too late is dropped without touching any collaborator.
	inv.AgeMS = s.guard.Age(payload, receivedAt).Milliseconds()
	if !s.guard.ShouldProcess(payload, receivedAt) {
		metrics.StaleEventsDropped.Inc()
		inv.Status = models.StatusDropped
		s.finish(ctx, inv)
		return inv, nil
	}

	var event models.ObjectCreatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.ErrorContext(ctx, "malformed storage event",
			logging.EventID(inv.ID),
			logging.Error(err),
		)
		inv.Status = models.StatusFailed
		inv.Cause = "malformed storage event"
		s.finish(ctx, inv)
		return inv, nil
	}

	ref := event.Ref()
	inv.Bucket, inv.Key = ref.Bucket, ref.Key
	if err := ref.Validate(); err != nil {
		s.logger.ErrorContext(ctx, "malformed storage event",
			logging.EventID(inv.ID),
			logging.Error(err),
		)
		inv.Status = models.StatusFailed
		inv.Cause = err.Error()
		s.finish(ctx, inv)
		return inv, nil
	}

	s.logger.InfoContext(ctx, "analyzing object",
		logging.EventID(inv.ID),
		logging.Bucket(ref.Bucket),
		logging.Object(ref.Key),
	)

	scores, err := s.classify(ctx, ref)
	if err != nil {
		return s.classificationFailed(ctx, inv, ref, err)
	}
	inv.Adult = scores.Adult.String()
	inv.Violence = scores.Violence.String()

	verdict := decision.Decide(*scores)
	metrics.VerdictsTotal.WithLabelValues(verdict.String()).Inc()

	if verdict == decision.Accept {
		s.logger.InfoContext(ctx, "object classified safe",
			logging.EventID(inv.ID),
			logging.Object(ref.Key),
			logging.Verdict(verdict.String()),
		)
		inv.Status = models.StatusAccepted
		s.finish(ctx, inv)
		return inv, nil
	}

	s.logger.InfoContext(ctx, "object flagged for remediation",
		logging.EventID(inv.ID),
		logging.Object(ref.Key),
		slog.String("adult", inv.Adult),
		slog.String("violence", inv.Violence),
	)

	if err := s.remediator.Remediate(ctx, ref); err != nil {
		inv.Status = models.StatusFailed
		inv.Cause = err.Error()
		s.finish(ctx, inv)

		// Transform failures are final for this delivery: the pipeline
		// already cleaned up, and a retry would fail the same way.
		// Download and upload failures are infrastructure trouble worth
		// a redelivery.
		var stageErr *pipeline.StageError
		if errors.As(err, &stageErr) && stageErr.Stage == pipeline.StageTransform {
			return inv, nil
		}
		return inv, fmt.Errorf("remediate %s: %w", ref, err)
	}

	inv.Status = models.StatusRemediated
	s.finish(ctx, inv)
	return inv, nil
}

func (s *Service) classify(ctx context.Context, ref models.ObjectReference) (*vision.SafeSearch, error) {
	start := time.Now()
	scores, err := s.annotator.AnnotateSafeSearch(ctx, ref.URI())
	metrics.ClassificationDuration.Observe(time.Since(start).Seconds())
	return scores, err
}

// classificationFailed maps classifier errors to outcomes. Per-item errors
// and empty results are final; transport failures propagate for
// redelivery.
func (s *Service) classificationFailed(ctx context.Context, inv *models.Invocation, ref models.ObjectReference, err error) (*models.Invocation, error) {
	if errors.Is(err, vision.ErrNoAnnotations) {
		// No positive evidence: do not remediate on a guess.
		s.logger.WarnContext(ctx, "classifier returned no annotations, accepting object",
			logging.EventID(inv.ID),
			logging.Object(ref.Key),
		)
		inv.Status = models.StatusAccepted
		inv.Cause = "no annotations"
		s.finish(ctx, inv)
		return inv, nil
	}

	metrics.ClassificationErrors.Inc()

	var annErr *vision.AnnotationError
	if errors.As(err, &annErr) {
		s.logger.ErrorContext(ctx, "classifier rejected object",
			logging.EventID(inv.ID),
			logging.Object(ref.Key),
			logging.Error(annErr),
		)
		inv.Status = models.StatusFailed
		inv.Cause = annErr.Error()
		s.finish(ctx, inv)
		return inv, nil
	}

	s.logger.ErrorContext(ctx, "classification call failed",
		logging.EventID(inv.ID),
		logging.Object(ref.Key),
		logging.Error(err),
	)
	inv.Status = models.StatusFailed
	inv.Cause = err.Error()
	s.finish(ctx, inv)
	return inv, fmt.Errorf("classify %s: %w", ref, err)
}

// finish stamps the invocation and writes the observability records. None
// of these writes can fail the invocation.
func (s *Service) finish(ctx context.Context, inv *models.Invocation) {
	inv.CompletedAt = time.Now()

	s.logger.InfoContext(ctx, "invocation complete",
		logging.EventID(inv.ID),
		logging.Outcome(string(inv.Status)),
		logging.AgeMS(inv.AgeMS),
		logging.Duration(inv.CompletedAt.Sub(inv.ReceivedAt).Milliseconds()),
	)

	if err := s.repo.RecordInvocation(ctx, inv); err != nil {
		s.logger.ErrorContext(ctx, "failed to record invocation",
			logging.EventID(inv.ID),
			logging.Error(err),
		)
	}

	if err := s.sink.Write(ctx, inv); err != nil {
		metrics.AuditWriteErrors.Inc()
		s.logger.WarnContext(ctx, "failed to write audit document",
			logging.EventID(inv.ID),
			logging.Error(err),
		)
	}

	if s.publisher != nil {
		event := OutcomeRecordedEvent{
			InvocationID: inv.ID,
			Bucket:       inv.Bucket,
			Key:          inv.Key,
			Status:       string(inv.Status),
			Cause:        inv.Cause,
			CompletedAt:  inv.CompletedAt,
		}
		if err := s.publisher.PublishJSON(ctx, messaging.SubjectOutcomesRecorded, event); err != nil {
			s.logger.WarnContext(ctx, "failed to publish outcome event",
				logging.EventID(inv.ID),
				logging.Error(err),
			)
		}
	}
}

func newInvocationID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
