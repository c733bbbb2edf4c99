package mysql

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend-booking/internal/models"
	"backend-booking/internal/store"
	"backend-booking/internal/store/memory"
)

var fixedNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

var bookingColumns = []string{
	"id", "name", "phone", "email", "booking_date", "queue_number", "status",
	"window_id", "number", "name", "actual_start_time", "actual_end_time",
	"started_by", "started_by_name", "created_at", "updated_at",
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock, *memory.Serving) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	serving := memory.NewServing()
	s := NewStore(db, memory.NewSequence(), serving, store.Options{
		Location: time.UTC,
		Now:      func() time.Time { return fixedNow },
	})
	return s, mock, serving
}

func bookingRow(id int64, status string, windowID interface{}) *sqlmock.Rows {
	var number, name interface{}
	if windowID != nil {
		number, name = int64(2), "Window B"
	}
	var started interface{}
	if status != models.StatusWaiting {
		started = fixedNow
	}
	return sqlmock.NewRows(bookingColumns).AddRow(
		id, "Noura", "0551234567", nil, time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), int64(4), status,
		windowID, number, name, started, nil,
		nil, nil, fixedNow, fixedNow,
	)
}

func q(sql string) string { return regexp.QuoteMeta(sql) }

func TestCreateBookingInsertsWithSequenceNumber(t *testing.T) {
	s, mock, _ := newMockStore(t)

	mock.ExpectExec(q("INSERT INTO bookings")).
		WithArgs("Noura", "0551234567", sqlmock.AnyArg(), "2026-10-15", 1, models.StatusWaiting, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectQuery(q("WHERE b.id = ?")).WithArgs(int64(11)).WillReturnRows(bookingRow(11, models.StatusWaiting, nil))

	b, err := s.CreateBooking(context.Background(), store.CreateBookingInput{
		Name: "Noura", Phone: "0551234567", BookingDate: fixedNow,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), b.ID)
	assert.Nil(t, b.Email)
	assert.Nil(t, b.WindowID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBookingNotFound(t *testing.T) {
	s, mock, _ := newMockStore(t)
	mock.ExpectQuery(q("WHERE b.id = ?")).WithArgs(int64(5)).WillReturnError(sql.ErrNoRows)

	_, err := s.GetBooking(context.Background(), 5)
	assert.ErrorIs(t, err, store.ErrBookingNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNextWaitingRoutesByStaffWindow(t *testing.T) {
	s, mock, _ := newMockStore(t)
	staff := int64(42)

	mock.ExpectQuery(q("b.window_id IS NULL OR b.window_id = (SELECT id FROM windows WHERE current_user_id = ? LIMIT 1)")).
		WithArgs(models.StatusWaiting, "2026-10-15", staff).
		WillReturnRows(bookingRow(3, models.StatusWaiting, int64(2)))

	b, err := s.NextWaiting(context.Background(), &staff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), b.ID)
	require.NotNil(t, b.WindowName)
	assert.Equal(t, "Window B", *b.WindowName)

	mock.ExpectQuery(q("ORDER BY b.created_at ASC, b.id ASC LIMIT 1")).
		WithArgs(models.StatusWaiting, "2026-10-15").
		WillReturnRows(sqlmock.NewRows(bookingColumns))

	_, err = s.NextWaiting(context.Background(), nil)
	assert.ErrorIs(t, err, store.ErrNoWaitingTickets)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStartProcessingGuardedUpdate(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		current  *sqlmock.Rows
		wantErr  error
	}{
		{
			name:     "waiting booking starts",
			affected: 1,
			current:  bookingRow(8, models.StatusInProgress, int64(2)),
		},
		{
			name:     "already in progress",
			affected: 0,
			current:  bookingRow(8, models.StatusInProgress, int64(2)),
			wantErr:  store.ErrNotInWaitingState,
		},
		{
			name:     "already completed",
			affected: 0,
			current:  bookingRow(8, models.StatusCompleted, nil),
			wantErr:  store.ErrNotInWaitingState,
		},
		{
			name:     "missing booking",
			affected: 0,
			current:  sqlmock.NewRows(bookingColumns),
			wantErr:  store.ErrBookingNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock, _ := newMockStore(t)

			mock.ExpectExec(q("UPDATE bookings SET status = ?, actual_start_time = ?")).
				WithArgs(models.StatusInProgress, sqlmock.AnyArg(), int64(42), int64(42), int64(42), sqlmock.AnyArg(), int64(8), models.StatusWaiting).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))
			mock.ExpectQuery(q("WHERE b.id = ?")).WithArgs(int64(8)).WillReturnRows(tt.current)

			b, err := s.StartProcessing(context.Background(), 8, 42)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, models.StatusInProgress, b.Status)
				require.NotNil(t, b.WindowID)
				assert.Equal(t, int64(2), *b.WindowID)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCompleteAndCancelRejections(t *testing.T) {
	s, mock, _ := newMockStore(t)
	ctx := context.Background()

	mock.ExpectExec(q("SET status = ?, actual_end_time = ?, updated_at = ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("WHERE b.id = ?")).WillReturnRows(bookingRow(8, models.StatusWaiting, nil))

	_, err := s.CompleteBooking(ctx, 8)
	assert.ErrorIs(t, err, store.ErrNotInProgress)

	mock.ExpectExec(q("SET status = ?, actual_end_time = ?, cancelled_by = ?")).
		WithArgs(models.StatusCancelled, sqlmock.AnyArg(), int64(42), sqlmock.AnyArg(), int64(8), models.StatusWaiting, models.StatusInProgress).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("WHERE b.id = ?")).WillReturnRows(bookingRow(8, models.StatusCompleted, nil))

	_, err = s.CancelBooking(ctx, 8, 42)
	assert.ErrorIs(t, err, store.ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBookingWindow(t *testing.T) {
	s, mock, _ := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery(q("SELECT 1 FROM windows WHERE id = ?")).WithArgs(int64(9)).WillReturnError(sql.ErrNoRows)
	_, err := s.UpdateBookingWindow(ctx, 8, 9)
	assert.ErrorIs(t, err, store.ErrWindowNotFound)

	mock.ExpectQuery(q("SELECT 1 FROM windows WHERE id = ?")).WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec(q("SET window_id = ?, updated_at = ?")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("WHERE b.id = ?")).WillReturnRows(bookingRow(8, models.StatusCancelled, nil))
	_, err = s.UpdateBookingWindow(ctx, 8, 2)
	assert.ErrorIs(t, err, store.ErrInvalidTransition)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetStatusSnapshotCombinesCountsAndServing(t *testing.T) {
	s, mock, serving := newMockStore(t)
	ctx := context.Background()

	windowID, number, name := int64(2), 2, "Window B"
	_, err := serving.Publish(ctx, "2026-10-15", models.Serving{
		QueueNumber: 4, WindowID: &windowID, WindowNumber: &number, WindowName: &name,
	}, true, fixedNow)
	require.NoError(t, err)

	mock.ExpectQuery(q("FROM bookings WHERE booking_date = ?")).WithArgs("2026-10-15").
		WillReturnRows(sqlmock.NewRows([]string{"total", "waiting", "completed"}).AddRow(6, 3, 2))

	snap, err := s.GetStatusSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, snap.CurrentServing)
	assert.Equal(t, 3, snap.WaitingCount)
	assert.Equal(t, 2, snap.CompletedCount)
	assert.Equal(t, 6, snap.TotalBookings)
	require.NotNil(t, snap.WindowName)
	assert.Equal(t, "Window B", *snap.WindowName)
	require.NotNil(t, snap.LastRecallTime)
	assert.True(t, snap.LastRecallTime.Equal(fixedNow))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateServingResolvesWindow(t *testing.T) {
	s, mock, serving := newMockStore(t)
	ctx := context.Background()
	windowID := int64(2)

	mock.ExpectQuery(q("WHERE w.id = ?")).WithArgs(windowID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "number", "is_active", "current_user_id", "name"}).
			AddRow(int64(2), "Window B", int64(2), true, int64(42), "Sara"))

	require.NoError(t, s.UpdateServing(ctx, 9, &windowID, false))

	current, err := serving.Current(ctx, "2026-10-15")
	require.NoError(t, err)
	assert.Equal(t, 9, current.QueueNumber)
	require.NotNil(t, current.WindowNumber)
	assert.Equal(t, 2, *current.WindowNumber)
	assert.Nil(t, current.LastRecallTime)

	mock.ExpectQuery(q("WHERE w.id = ?")).WithArgs(int64(77)).WillReturnError(sql.ErrNoRows)
	missing := int64(77)
	assert.ErrorIs(t, s.UpdateServing(ctx, 9, &missing, false), store.ErrWindowNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignWindow(t *testing.T) {
	t.Run("inactive window", func(t *testing.T) {
		s, mock, _ := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q("SELECT is_active FROM windows WHERE id = ? FOR UPDATE")).WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"is_active"}).AddRow(false))
		mock.ExpectRollback()

		_, err := s.AssignWindow(context.Background(), 42, 3)
		assert.ErrorIs(t, err, store.ErrWindowInactive)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("moves staff to new window", func(t *testing.T) {
		s, mock, _ := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q("SELECT is_active FROM windows WHERE id = ? FOR UPDATE")).WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"is_active"}).AddRow(true))
		mock.ExpectQuery(q("SELECT 1 FROM users WHERE id = ?")).WithArgs(int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
		mock.ExpectExec(q("UPDATE windows SET current_user_id = NULL WHERE current_user_id = ?")).
			WithArgs(int64(42)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(q("UPDATE windows SET current_user_id = ? WHERE id = ?")).
			WithArgs(int64(42), int64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
		mock.ExpectQuery(q("WHERE w.id = ?")).WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "number", "is_active", "current_user_id", "name"}).
				AddRow(int64(2), "Window B", int64(2), true, int64(42), "Sara"))

		w, err := s.AssignWindow(context.Background(), 42, 2)
		require.NoError(t, err)
		require.NotNil(t, w.CurrentUserName)
		assert.Equal(t, "Sara", *w.CurrentUserName)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetUserByEmail(t *testing.T) {
	s, mock, _ := newMockStore(t)
	mock.ExpectQuery(q("FROM users WHERE email = ?")).WithArgs("sara@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password", "role", "created_at"}).
			AddRow(int64(42), "Sara", "sara@example.com", "$2a$10$hash", models.RoleEmployee, fixedNow))

	u, err := s.GetUserByEmail(context.Background(), "sara@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(42), u.ID)

	mock.ExpectQuery(q("FROM users WHERE email = ?")).WillReturnRows(
		sqlmock.NewRows([]string{"id", "name", "email", "password", "role", "created_at"}))
	_, err = s.GetUserByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, store.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
