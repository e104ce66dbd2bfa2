package repository

import (
	"context"

	"github.com/Misaka450/baoandkai-sub000/internal/domain"
)

// TimelineRepository defines the interface for timeline event persistence.
type TimelineRepository interface {
	// Create inserts a new timeline event and fills in its generated ID and
	// timestamps.
	Create(ctx context.Context, event *domain.TimelineEvent) error

	// GetByID retrieves a timeline event by its identifier.
	GetByID(ctx context.Context, id int64) (*domain.TimelineEvent, error)

	// List returns timeline events newest-first with pagination.
	// Returns the list of events and the total count.
	List(ctx context.Context, offset, limit int) ([]domain.TimelineEvent, int, error)

	// Update modifies an existing timeline event, including its image set.
	Update(ctx context.Context, event *domain.TimelineEvent) error

	// Delete removes a timeline event by its identifier.
	Delete(ctx context.Context, id int64) error
}
