package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Misaka450/baoandkai-sub000/internal/domain"
	"github.com/Misaka450/baoandkai-sub000/internal/event"
	"github.com/Misaka450/baoandkai-sub000/internal/media/reconcile"
	apperrors "github.com/Misaka450/baoandkai-sub000/pkg/errors"
	pkgkafka "github.com/Misaka450/baoandkai-sub000/pkg/kafka"
)

// --- Mock Repository ---

type mockTimelineRepository struct {
	mock.Mock
}

func (m *mockTimelineRepository) Create(ctx context.Context, e *domain.TimelineEvent) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *mockTimelineRepository) GetByID(ctx context.Context, id int64) (*domain.TimelineEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TimelineEvent), args.Error(1)
}

func (m *mockTimelineRepository) List(ctx context.Context, offset, limit int) ([]domain.TimelineEvent, int, error) {
	args := m.Called(ctx, offset, limit)
	return args.Get(0).([]domain.TimelineEvent), args.Int(1), args.Error(2)
}

func (m *mockTimelineRepository) Update(ctx context.Context, e *domain.TimelineEvent) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *mockTimelineRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- Fake Reconciler ---

type reconcileCall struct {
	old []string
	new []string
}

type fakeReconciler struct {
	calls  []reconcileCall
	report reconcile.Report
}

func (f *fakeReconciler) OnReplace(ctx context.Context, old, new []string) reconcile.Report {
	f.calls = append(f.calls, reconcileCall{old: old, new: new})
	return f.report
}

func (f *fakeReconciler) OnDelete(ctx context.Context, set []string) reconcile.Report {
	return f.OnReplace(ctx, set, nil)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestService(repo *mockTimelineRepository, rec *fakeReconciler) *TimelineService {
	logger := newTestLogger()
	// A Kafka producer with no reachable broker: publish failures are logged
	// and never surface through the service API.
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	producer := event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
	return NewTimelineService(repo, rec, producer, logger)
}

func strPtr(s string) *string { return &s }

func imgPtr(refs ...string) *[]string { return &refs }

func sampleStoredEvent() *domain.TimelineEvent {
	return &domain.TimelineEvent{
		ID:         1,
		Title:      "first bike ride",
		Body:       "we made it to the river",
		OccurredOn: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Images: []string{
			"http://localhost:9000/baoandkai/timeline/1-a-ride.jpg",
			"http://localhost:9000/baoandkai/timeline/2-b-river.jpg",
		},
	}
}

// --- Tests ---

func TestCreateEvent_Success(t *testing.T) {
	repo := new(mockTimelineRepository)
	rec := &fakeReconciler{}
	svc := newTestService(repo, rec)
	ctx := context.Background()

	repo.On("Create", ctx, mock.AnythingOfType("*domain.TimelineEvent")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.TimelineEvent).ID = 42
		}).
		Return(nil)

	e, err := svc.CreateEvent(ctx, &CreateEventInput{
		Title:      "picnic",
		OccurredOn: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		Images:     []string{"http://localhost:9000/baoandkai/timeline/1-a-p.jpg"},
	})

	require.NoError(t, err)
	assert.Equal(t, int64(42), e.ID)
	assert.Empty(t, rec.calls, "create never reconciles")
	repo.AssertExpectations(t)
}

func TestCreateEvent_RepoError(t *testing.T) {
	repo := new(mockTimelineRepository)
	svc := newTestService(repo, &fakeReconciler{})
	ctx := context.Background()

	repo.On("Create", ctx, mock.Anything).Return(errors.New("insert failed"))

	_, err := svc.CreateEvent(ctx, &CreateEventInput{Title: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create timeline event")
}

func TestGetEvent_NotFound(t *testing.T) {
	repo := new(mockTimelineRepository)
	svc := newTestService(repo, &fakeReconciler{})
	ctx := context.Background()

	repo.On("GetByID", ctx, int64(99)).Return(nil, apperrors.ErrNotFound)

	_, err := svc.GetEvent(ctx, 99)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListEvents_ClampsPagination(t *testing.T) {
	repo := new(mockTimelineRepository)
	svc := newTestService(repo, &fakeReconciler{})
	ctx := context.Background()

	repo.On("List", ctx, 0, 20).Return([]domain.TimelineEvent{}, 0, nil).Once()
	_, _, err := svc.ListEvents(ctx, 0, 0)
	require.NoError(t, err)

	repo.On("List", ctx, 100, 100).Return([]domain.TimelineEvent{}, 0, nil).Once()
	_, _, err = svc.ListEvents(ctx, 2, 500)
	require.NoError(t, err)

	repo.AssertExpectations(t)
}

func TestUpdateEvent_ImageReplacementReconcilesAfterWrite(t *testing.T) {
	repo := new(mockTimelineRepository)
	rec := &fakeReconciler{}
	svc := newTestService(repo, rec)
	ctx := context.Background()

	stored := sampleStoredEvent()
	priorImages := append([]string(nil), stored.Images...)
	kept := stored.Images[1]

	var updated bool
	repo.On("GetByID", ctx, stored.ID).Return(stored, nil)
	repo.On("Update", ctx, mock.AnythingOfType("*domain.TimelineEvent")).
		Run(func(args mock.Arguments) {
			updated = true
			assert.Empty(t, rec.calls, "reconcile must not run before the relational write")
		}).
		Return(nil)

	e, err := svc.UpdateEvent(ctx, stored.ID, &UpdateEventInput{Images: imgPtr(kept)})
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, []string{kept}, e.Images)

	require.Len(t, rec.calls, 1)
	assert.Equal(t, priorImages, rec.calls[0].old)
	assert.Equal(t, []string{kept}, rec.calls[0].new)
}

func TestUpdateEvent_NoImageChangeSkipsReconcile(t *testing.T) {
	repo := new(mockTimelineRepository)
	rec := &fakeReconciler{}
	svc := newTestService(repo, rec)
	ctx := context.Background()

	stored := sampleStoredEvent()
	repo.On("GetByID", ctx, stored.ID).Return(stored, nil)
	repo.On("Update", ctx, mock.Anything).Return(nil)

	_, err := svc.UpdateEvent(ctx, stored.ID, &UpdateEventInput{Title: strPtr("renamed")})
	require.NoError(t, err)
	assert.Empty(t, rec.calls)
}

func TestUpdateEvent_WriteFailureSkipsReconcile(t *testing.T) {
	repo := new(mockTimelineRepository)
	rec := &fakeReconciler{}
	svc := newTestService(repo, rec)
	ctx := context.Background()

	stored := sampleStoredEvent()
	repo.On("GetByID", ctx, stored.ID).Return(stored, nil)
	repo.On("Update", ctx, mock.Anything).Return(errors.New("update failed"))

	_, err := svc.UpdateEvent(ctx, stored.ID, &UpdateEventInput{Images: imgPtr()})
	require.Error(t, err)
	assert.Empty(t, rec.calls, "failed writes must never trigger cleanup")
}

func TestDeleteEvent_ReconcilesWholeImageSet(t *testing.T) {
	repo := new(mockTimelineRepository)
	rec := &fakeReconciler{}
	svc := newTestService(repo, rec)
	ctx := context.Background()

	stored := sampleStoredEvent()
	repo.On("GetByID", ctx, stored.ID).Return(stored, nil)
	repo.On("Delete", ctx, stored.ID).Return(nil)

	require.NoError(t, svc.DeleteEvent(ctx, stored.ID))

	require.Len(t, rec.calls, 1)
	assert.Equal(t, stored.Images, rec.calls[0].old)
	assert.Nil(t, rec.calls[0].new)
}

func TestDeleteEvent_NotFound(t *testing.T) {
	repo := new(mockTimelineRepository)
	rec := &fakeReconciler{}
	svc := newTestService(repo, rec)
	ctx := context.Background()

	repo.On("GetByID", ctx, int64(404)).Return(nil, apperrors.ErrNotFound)

	err := svc.DeleteEvent(ctx, 404)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Empty(t, rec.calls)
}

func TestDeleteEvent_RepoDeleteFailureSkipsReconcile(t *testing.T) {
	repo := new(mockTimelineRepository)
	rec := &fakeReconciler{}
	svc := newTestService(repo, rec)
	ctx := context.Background()

	stored := sampleStoredEvent()
	repo.On("GetByID", ctx, stored.ID).Return(stored, nil)
	repo.On("Delete", ctx, stored.ID).Return(errors.New("delete failed"))

	err := svc.DeleteEvent(ctx, stored.ID)
	require.Error(t, err)
	assert.Empty(t, rec.calls)
}
