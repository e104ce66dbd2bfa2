package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Misaka450/baoandkai-sub000/internal/domain"
	apperrors "github.com/Misaka450/baoandkai-sub000/pkg/errors"
)

// DBTX is the subset of pgxpool.Pool used by the repository. pgxmock
// satisfies it, so tests can run against a mock pool.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TimelineRepository implements repository.TimelineRepository using PostgreSQL.
type TimelineRepository struct {
	db DBTX
}

// NewTimelineRepository creates a new PostgreSQL-backed timeline repository.
func NewTimelineRepository(db DBTX) *TimelineRepository {
	return &TimelineRepository{db: db}
}

// Create inserts a new timeline event record into the database.
func (r *TimelineRepository) Create(ctx context.Context, e *domain.TimelineEvent) error {
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	if e.Images == nil {
		e.Images = []string{}
	}

	query := `
		INSERT INTO timeline_events (title, body, occurred_on, images, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		e.Title,
		e.Body,
		e.OccurredOn,
		e.Images,
		e.CreatedAt,
		e.UpdatedAt,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert timeline event: %w", err)
	}

	return nil
}

// GetByID retrieves a timeline event by its ID.
func (r *TimelineRepository) GetByID(ctx context.Context, id int64) (*domain.TimelineEvent, error) {
	query := `
		SELECT id, title, body, occurred_on, images, created_at, updated_at
		FROM timeline_events
		WHERE id = $1`

	var e domain.TimelineEvent
	err := r.db.QueryRow(ctx, query, id).Scan(
		&e.ID,
		&e.Title,
		&e.Body,
		&e.OccurredOn,
		&e.Images,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan timeline event: %w", err)
	}

	if e.Images == nil {
		e.Images = []string{}
	}

	return &e, nil
}

// List returns timeline events newest-first with pagination.
func (r *TimelineRepository) List(ctx context.Context, offset, limit int) ([]domain.TimelineEvent, int, error) {
	query := `
		SELECT id, title, body, occurred_on, images, created_at, updated_at,
			   count(*) OVER() AS total_count
		FROM timeline_events
		ORDER BY occurred_on DESC, id DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list timeline events: %w", err)
	}
	defer rows.Close()

	var (
		events     []domain.TimelineEvent
		totalCount int
	)

	for rows.Next() {
		var e domain.TimelineEvent
		if err := rows.Scan(
			&e.ID,
			&e.Title,
			&e.Body,
			&e.OccurredOn,
			&e.Images,
			&e.CreatedAt,
			&e.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan timeline event row: %w", err)
		}
		if e.Images == nil {
			e.Images = []string{}
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate timeline event rows: %w", err)
	}

	if events == nil {
		events = []domain.TimelineEvent{}
	}

	return events, totalCount, nil
}

// Update modifies an existing timeline event record, including its image set.
func (r *TimelineRepository) Update(ctx context.Context, e *domain.TimelineEvent) error {
	e.UpdatedAt = time.Now().UTC()
	if e.Images == nil {
		e.Images = []string{}
	}

	query := `
		UPDATE timeline_events
		SET title = $1, body = $2, occurred_on = $3, images = $4, updated_at = $5
		WHERE id = $6`

	ct, err := r.db.Exec(ctx, query,
		e.Title,
		e.Body,
		e.OccurredOn,
		e.Images,
		e.UpdatedAt,
		e.ID,
	)
	if err != nil {
		return fmt.Errorf("update timeline event: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("timeline_event", strconv.FormatInt(e.ID, 10))
	}

	return nil
}

// Delete removes a timeline event record from the database by its ID.
func (r *TimelineRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM timeline_events WHERE id = $1`

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete timeline event: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("timeline_event", strconv.FormatInt(id, 10))
	}

	return nil
}
