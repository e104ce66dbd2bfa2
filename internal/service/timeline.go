package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Misaka450/baoandkai-sub000/internal/domain"
	"github.com/Misaka450/baoandkai-sub000/internal/event"
	"github.com/Misaka450/baoandkai-sub000/internal/media/reconcile"
	"github.com/Misaka450/baoandkai-sub000/internal/repository"
)

// ReferenceReconciler is the cleanup surface the service calls after a
// relational write that shrinks a record's image set. Implementations never
// return errors; cleanup is advisory.
type ReferenceReconciler interface {
	OnReplace(ctx context.Context, old, new []string) reconcile.Report
	OnDelete(ctx context.Context, set []string) reconcile.Report
}

// TimelineService implements the business logic for timeline events. The
// ordering contract on every mutation is: relational write first, blob
// cleanup second. A cleanup failure never rolls back or fails the mutation.
type TimelineService struct {
	repo       repository.TimelineRepository
	reconciler ReferenceReconciler
	producer   *event.Producer
	logger     *slog.Logger
}

// NewTimelineService creates a new timeline service.
func NewTimelineService(
	repo repository.TimelineRepository,
	reconciler ReferenceReconciler,
	producer *event.Producer,
	logger *slog.Logger,
) *TimelineService {
	return &TimelineService{
		repo:       repo,
		reconciler: reconciler,
		producer:   producer,
		logger:     logger,
	}
}

// CreateEventInput holds the parameters for creating a timeline event.
type CreateEventInput struct {
	Title      string
	Body       string
	OccurredOn time.Time
	Images     []string
}

// UpdateEventInput holds the parameters for updating a timeline event.
// Nil fields are left unchanged; a non-nil Images replaces the whole set.
type UpdateEventInput struct {
	Title      *string
	Body       *string
	OccurredOn *time.Time
	Images     *[]string
}

// CreateEvent persists a new timeline event.
func (s *TimelineService) CreateEvent(ctx context.Context, input *CreateEventInput) (*domain.TimelineEvent, error) {
	e := &domain.TimelineEvent{
		Title:      input.Title,
		Body:       input.Body,
		OccurredOn: input.OccurredOn,
		Images:     input.Images,
	}

	if err := s.repo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("create timeline event: %w", err)
	}

	// Publish event; errors are logged but do not fail the operation.
	if err := s.producer.PublishTimelineChanged(ctx, event.TopicTimelineCreated, e); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish timeline.created event",
			slog.Int64("event_id", e.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "timeline event created",
		slog.Int64("event_id", e.ID),
		slog.Int("images", len(e.Images)),
	)

	return e, nil
}

// GetEvent retrieves a timeline event by its ID.
func (s *TimelineService) GetEvent(ctx context.Context, id int64) (*domain.TimelineEvent, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get timeline event: %w", err)
	}
	return e, nil
}

// ListEvents returns a paginated list of timeline events, newest first.
func (s *TimelineService) ListEvents(ctx context.Context, page, perPage int) ([]domain.TimelineEvent, int, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}

	offset := (page - 1) * perPage

	events, total, err := s.repo.List(ctx, offset, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list timeline events: %w", err)
	}

	return events, total, nil
}

// UpdateEvent applies a partial update. When the image set is replaced, every
// blob the record no longer references is reconciled away after the
// relational update has been committed.
func (s *TimelineService) UpdateEvent(ctx context.Context, id int64, input *UpdateEventInput) (*domain.TimelineEvent, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get timeline event for update: %w", err)
	}

	priorImages := e.Images

	if input.Title != nil {
		e.Title = *input.Title
	}
	if input.Body != nil {
		e.Body = *input.Body
	}
	if input.OccurredOn != nil {
		e.OccurredOn = *input.OccurredOn
	}
	if input.Images != nil {
		e.Images = *input.Images
	}

	if err := s.repo.Update(ctx, e); err != nil {
		return nil, fmt.Errorf("update timeline event: %w", err)
	}

	// Relational write committed; now drop the dereferenced blobs.
	if input.Images != nil {
		s.reconcileAfterWrite(ctx, "update", e.ID, priorImages, e.Images)
	}

	if err := s.producer.PublishTimelineChanged(ctx, event.TopicTimelineUpdated, e); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish timeline.updated event",
			slog.Int64("event_id", e.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "timeline event updated",
		slog.Int64("event_id", e.ID),
	)

	return e, nil
}

// DeleteEvent removes a timeline event and reconciles away its entire image
// set once the row is gone.
func (s *TimelineService) DeleteEvent(ctx context.Context, id int64) error {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get timeline event for delete: %w", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete timeline event: %w", err)
	}

	s.reconcileAfterWrite(ctx, "delete", id, e.Images, nil)

	if err := s.producer.PublishTimelineChanged(ctx, event.TopicTimelineDeleted, e); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish timeline.deleted event",
			slog.Int64("event_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "timeline event deleted",
		slog.Int64("event_id", id),
		slog.Int("images", len(e.Images)),
	)

	return nil
}

// reconcileAfterWrite runs the blob cleanup pass and publishes the report.
// Nothing here can fail the caller's mutation.
func (s *TimelineService) reconcileAfterWrite(ctx context.Context, trigger string, id int64, old, new []string) {
	report := s.reconciler.OnReplace(ctx, old, new)
	if len(report.Succeeded) == 0 && len(report.Failed) == 0 && len(report.Skipped) == 0 {
		return
	}

	aggregateID := fmt.Sprintf("timeline/%d", id)
	if err := s.producer.PublishMediaReconciled(ctx, trigger, aggregateID, report); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish media.reconciled event",
			slog.Int64("event_id", id),
			slog.String("error", err.Error()),
		)
	}
}
