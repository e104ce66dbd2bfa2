package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Misaka450/baoandkai-sub000/internal/domain"
	"github.com/Misaka450/baoandkai-sub000/internal/media/reconcile"
	"github.com/Misaka450/baoandkai-sub000/internal/media/upload"
	pkgkafka "github.com/Misaka450/baoandkai-sub000/pkg/kafka"
)

// Kafka topic constants for domain events.
const (
	TopicMediaUploaded   = "baoandkai.media.uploaded"
	TopicMediaReconciled = "baoandkai.media.reconciled"
	TopicTimelineCreated = "baoandkai.timeline.created"
	TopicTimelineUpdated = "baoandkai.timeline.updated"
	TopicTimelineDeleted = "baoandkai.timeline.deleted"
)

// Aggregate type constants.
const (
	AggregateTypeMedia    = "media"
	AggregateTypeTimeline = "timeline_event"
)

// Source identifier for events originating from this service.
const Source = "baoandkai"

// MediaUploadedData is the payload for a media.uploaded event.
type MediaUploadedData struct {
	FileID             string `json:"file_id"`
	Folder             string `json:"folder"`
	Name               string `json:"name"`
	Size               int64  `json:"size"`
	Reference          string `json:"reference"`
	ThumbnailReference string `json:"thumbnail_reference,omitempty"`
}

// MediaReconciledData is the payload for a media.reconciled event. Failed
// keys are the orphan candidates for out-of-band audit tooling.
type MediaReconciledData struct {
	Trigger   string              `json:"trigger"` // "update" | "delete"
	Succeeded []string            `json:"succeeded"`
	Failed    []reconcile.Failure `json:"failed,omitempty"`
	Skipped   []string            `json:"skipped,omitempty"`
}

// TimelineEventData is the payload for timeline.created/updated/deleted events.
type TimelineEventData struct {
	ID         int64    `json:"id"`
	Title      string   `json:"title"`
	OccurredOn string   `json:"occurred_on"`
	Images     []string `json:"images"`
}

// Producer publishes domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishMediaUploaded publishes a media.uploaded event for one successful
// file transfer.
func (p *Producer) PublishMediaUploaded(ctx context.Context, folder string, res upload.Result) error {
	data := MediaUploadedData{
		FileID:             res.FileID,
		Folder:             folder,
		Name:               res.Name,
		Size:               res.Size,
		Reference:          res.Reference,
		ThumbnailReference: res.ThumbnailReference,
	}

	event, err := pkgkafka.NewEvent(TopicMediaUploaded, res.FileID, AggregateTypeMedia, Source, data)
	if err != nil {
		return fmt.Errorf("create media.uploaded event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicMediaUploaded, event); err != nil {
		return fmt.Errorf("publish media.uploaded event: %w", err)
	}

	p.logger.DebugContext(ctx, "published media.uploaded event",
		slog.String("file_id", res.FileID),
		slog.String("reference", res.Reference),
	)

	return nil
}

// PublishMediaReconciled publishes a media.reconciled event carrying the
// outcome of one reconciliation pass.
func (p *Producer) PublishMediaReconciled(ctx context.Context, trigger string, aggregateID string, report reconcile.Report) error {
	data := MediaReconciledData{
		Trigger:   trigger,
		Succeeded: report.Succeeded,
		Failed:    report.Failed,
		Skipped:   report.Skipped,
	}

	event, err := pkgkafka.NewEvent(TopicMediaReconciled, aggregateID, AggregateTypeMedia, Source, data)
	if err != nil {
		return fmt.Errorf("create media.reconciled event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicMediaReconciled, event); err != nil {
		return fmt.Errorf("publish media.reconciled event: %w", err)
	}

	return nil
}

// PublishTimelineChanged publishes a timeline.created/updated/deleted event.
func (p *Producer) PublishTimelineChanged(ctx context.Context, topic string, e *domain.TimelineEvent) error {
	data := TimelineEventData{
		ID:         e.ID,
		Title:      e.Title,
		OccurredOn: e.OccurredOn.Format("2006-01-02"),
		Images:     e.Images,
	}

	id := strconv.FormatInt(e.ID, 10)
	event, err := pkgkafka.NewEvent(topic, id, AggregateTypeTimeline, Source, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published timeline event",
		slog.String("topic", topic),
		slog.Int64("event_id", e.ID),
	)

	return nil
}
