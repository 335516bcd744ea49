package bookings

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/photka-support-ai/internal/sessions"
)

func TestIntentValidateAndRedirect(t *testing.T) {
	now := Intent{SessionType: sessions.RawDSLR, Timing: sessions.TimingNow}
	require.NoError(t, now.Validate())
	assert.Equal(t, "/book?session_type=raw_dslr", Redirect(now))
	assert.Equal(t, StatusRequested, now.Status())

	later := Intent{SessionType: sessions.EditedDSLR, Timing: sessions.TimingLater}
	assert.Equal(t, "/schedule?session_type=edited_dslr", Redirect(later))
	assert.Equal(t, StatusScheduled, later.Status())

	assert.ErrorIs(t, Intent{SessionType: "drone", Timing: sessions.TimingNow}.Validate(), ErrInvalidIntent)
	assert.ErrorIs(t, Intent{SessionType: sessions.IPhone}.Validate(), ErrInvalidIntent)
}

func TestRepositoryCreateRequest(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	created := time.Date(2026, 5, 2, 15, 4, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO bookings").
		WithArgs(pgxmock.AnyArg(), "user-1", "iphone", StatusRequested, 60).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(created))
	mock.ExpectExec("INSERT INTO outbox").
		WithArgs(pgxmock.AnyArg(), "user-1", "booking.update.v1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	repo := newRepositoryWithDB(mock)
	row, err := repo.CreateRequest(context.Background(), "user-1", Intent{SessionType: sessions.IPhone, Timing: sessions.TimingNow})
	require.NoError(t, err)
	assert.Equal(t, created, row.CreatedAt)
	assert.Equal(t, 60, row.DurationMin)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryCreateRequestRollsBackOnOutboxFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO bookings").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectExec("INSERT INTO outbox").WillReturnError(errors.New("relation outbox does not exist"))
	mock.ExpectRollback()

	repo := newRepositoryWithDB(mock)
	_, err = repo.CreateRequest(context.Background(), "user-1", Intent{SessionType: sessions.RawDSLR, Timing: sessions.TimingLater})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryHasPendingInstant(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	since := time.Now().Add(-PendingInstantWindow)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("user-1", StatusRequested, since).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	pending, err := newRepositoryWithDB(mock).HasPendingInstant(context.Background(), "user-1", since)
	require.NoError(t, err)
	assert.True(t, pending)
	require.NoError(t, mock.ExpectationsWereMet())
}

type fakeStore struct {
	pending  bool
	created  []Intent
	sinceArg time.Time
}

func (f *fakeStore) CreateRequest(ctx context.Context, userID string, in Intent) (*BookingRequest, error) {
	f.created = append(f.created, in)
	return &BookingRequest{UserID: userID, SessionType: in.SessionType, Status: in.Status(), DurationMin: 60}, nil
}

func (f *fakeStore) HasPendingInstant(ctx context.Context, userID string, since time.Time) (bool, error) {
	f.sinceArg = since
	return f.pending, nil
}

func TestServiceHandoff(t *testing.T) {
	fixed := time.Date(2026, 5, 2, 18, 0, 0, 0, time.UTC)

	t.Run("no repository only redirects", func(t *testing.T) {
		svc := NewService(nil, nil)
		out, err := svc.Handoff(context.Background(), "user-1", Intent{SessionType: sessions.IPhone, Timing: sessions.TimingNow})
		require.NoError(t, err)
		assert.Equal(t, "/book?session_type=iphone", out.Redirect)
		assert.Nil(t, out.Booking)
	})

	t.Run("instant booking blocked while one is pending", func(t *testing.T) {
		store := &fakeStore{pending: true}
		svc := &Service{repo: store, logger: NewService(nil, nil).logger, now: func() time.Time { return fixed }}
		_, err := svc.Handoff(context.Background(), "user-1", Intent{SessionType: sessions.RawDSLR, Timing: sessions.TimingNow})
		assert.ErrorIs(t, err, ErrInstantBookingPending)
		assert.Equal(t, fixed.Add(-2*time.Hour), store.sinceArg)
		assert.Empty(t, store.created)
	})

	t.Run("scheduled booking ignores pending instant", func(t *testing.T) {
		store := &fakeStore{pending: true}
		svc := &Service{repo: store, logger: NewService(nil, nil).logger, now: func() time.Time { return fixed }}
		out, err := svc.Handoff(context.Background(), "user-1", Intent{SessionType: sessions.EditedDSLR, Timing: sessions.TimingLater})
		require.NoError(t, err)
		assert.Equal(t, "/schedule?session_type=edited_dslr", out.Redirect)
		require.NotNil(t, out.Booking)
		assert.Equal(t, StatusScheduled, out.Booking.Status)
	})

	t.Run("invalid intent", func(t *testing.T) {
		_, err := NewService(nil, nil).Handoff(context.Background(), "user-1", Intent{SessionType: sessions.None, Timing: sessions.TimingNow})
		assert.ErrorIs(t, err, ErrInvalidIntent)
	})
}
