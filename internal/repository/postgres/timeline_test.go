package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Misaka450/baoandkai-sub000/internal/domain"
	"github.com/Misaka450/baoandkai-sub000/pkg/database"
	apperrors "github.com/Misaka450/baoandkai-sub000/pkg/errors"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func setupRepo(t *testing.T) (*TimelineRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock := database.NewMockPool(t)
	repo := NewTimelineRepository(mock)
	return repo, mock
}

var timelineColumns = []string{
	"id", "title", "body", "occurred_on", "images", "created_at", "updated_at",
}

var timelineColumnsWithCount = []string{
	"id", "title", "body", "occurred_on", "images", "created_at", "updated_at", "total_count",
}

func sampleEvent() domain.TimelineEvent {
	return domain.TimelineEvent{
		ID:         1,
		Title:      "first bike ride",
		Body:       "we made it to the river",
		OccurredOn: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Images: []string{
			"http://localhost:9000/baoandkai/timeline/1-a-ride.jpg",
			"http://localhost:9000/baoandkai/timeline/2-b-river.jpg",
		},
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestTimelineRepository_Create_Success(t *testing.T) {
	repo, mock := setupRepo(t)

	e := sampleEvent()
	e.ID = 0

	mock.ExpectQuery("INSERT INTO timeline_events").
		WithArgs(e.Title, e.Body, e.OccurredOn, e.Images, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))

	err := repo.Create(context.Background(), &e)
	require.NoError(t, err)
	assert.Equal(t, int64(42), e.ID)
	assert.False(t, e.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimelineRepository_Create_NilImagesNormalized(t *testing.T) {
	repo, mock := setupRepo(t)

	e := domain.TimelineEvent{Title: "no photos", OccurredOn: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}

	mock.ExpectQuery("INSERT INTO timeline_events").
		WithArgs(e.Title, "", e.OccurredOn, []string{}, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))

	err := repo.Create(context.Background(), &e)
	require.NoError(t, err)
	assert.NotNil(t, e.Images)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimelineRepository_Create_QueryError(t *testing.T) {
	repo, mock := setupRepo(t)

	e := sampleEvent()
	mock.ExpectQuery("INSERT INTO timeline_events").
		WithArgs(e.Title, e.Body, e.OccurredOn, e.Images, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection refused"))

	err := repo.Create(context.Background(), &e)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert timeline event")
}

// ---------------------------------------------------------------------------
// GetByID
// ---------------------------------------------------------------------------

func TestTimelineRepository_GetByID_Success(t *testing.T) {
	repo, mock := setupRepo(t)

	e := sampleEvent()
	mock.ExpectQuery("SELECT (.+) FROM timeline_events").
		WithArgs(e.ID).
		WillReturnRows(pgxmock.NewRows(timelineColumns).
			AddRow(e.ID, e.Title, e.Body, e.OccurredOn, e.Images, e.CreatedAt, e.UpdatedAt))

	got, err := repo.GetByID(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.Title, got.Title)
	assert.Equal(t, e.Images, got.Images)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimelineRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := setupRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM timeline_events").
		WithArgs(int64(99)).
		WillReturnRows(pgxmock.NewRows(timelineColumns))

	_, err := repo.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// ---------------------------------------------------------------------------
// List
// ---------------------------------------------------------------------------

func TestTimelineRepository_List_Success(t *testing.T) {
	repo, mock := setupRepo(t)

	e := sampleEvent()
	mock.ExpectQuery("SELECT (.+) FROM timeline_events").
		WithArgs(20, 0).
		WillReturnRows(pgxmock.NewRows(timelineColumnsWithCount).
			AddRow(e.ID, e.Title, e.Body, e.OccurredOn, e.Images, e.CreatedAt, e.UpdatedAt, 35).
			AddRow(int64(2), "picnic", "", e.OccurredOn, []string{}, e.CreatedAt, e.UpdatedAt, 35))

	events, total, err := repo.List(context.Background(), 0, 20)
	require.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, 35, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimelineRepository_List_Empty(t *testing.T) {
	repo, mock := setupRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM timeline_events").
		WithArgs(20, 0).
		WillReturnRows(pgxmock.NewRows(timelineColumnsWithCount))

	events, total, err := repo.List(context.Background(), 0, 20)
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
	assert.Zero(t, total)
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

func TestTimelineRepository_Update_Success(t *testing.T) {
	repo, mock := setupRepo(t)

	e := sampleEvent()
	e.Images = e.Images[:1]

	mock.ExpectExec("UPDATE timeline_events").
		WithArgs(e.Title, e.Body, e.OccurredOn, e.Images, pgxmock.AnyArg(), e.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.Update(context.Background(), &e)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimelineRepository_Update_NotFound(t *testing.T) {
	repo, mock := setupRepo(t)

	e := sampleEvent()
	e.ID = 404

	mock.ExpectExec("UPDATE timeline_events").
		WithArgs(e.Title, e.Body, e.OccurredOn, e.Images, pgxmock.AnyArg(), e.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), &e)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// ---------------------------------------------------------------------------
// Delete
// ---------------------------------------------------------------------------

func TestTimelineRepository_Delete_Success(t *testing.T) {
	repo, mock := setupRepo(t)

	mock.ExpectExec("DELETE FROM timeline_events").
		WithArgs(int64(1)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	assert.NoError(t, repo.Delete(context.Background(), 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimelineRepository_Delete_NotFound(t *testing.T) {
	repo, mock := setupRepo(t)

	mock.ExpectExec("DELETE FROM timeline_events").
		WithArgs(int64(404)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.Delete(context.Background(), 404)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
