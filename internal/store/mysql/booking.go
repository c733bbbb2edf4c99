package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"backend-booking/internal/helper"
	"backend-booking/internal/models"
	"backend-booking/internal/store"
)

type Store struct {
	db      *sql.DB
	seq     store.QueueSequence
	serving store.ServingState
	opts    store.Options
}

func NewStore(db *sql.DB, seq store.QueueSequence, serving store.ServingState, opts store.Options) *Store {
	return &Store{db: db, seq: seq, serving: serving, opts: opts.WithDefaults()}
}

const bookingSelect = `
	SELECT b.id, b.name, b.phone, b.email, b.booking_date, b.queue_number, b.status,
	       b.window_id, w.number, w.name, b.actual_start_time, b.actual_end_time,
	       b.started_by, b.started_by_name, b.created_at, b.updated_at
	FROM bookings b
	LEFT JOIN windows w ON w.id = b.window_id
`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (models.Booking, error) {
	var (
		b             models.Booking
		email         sql.NullString
		windowID      sql.NullInt64
		windowNumber  sql.NullInt64
		windowName    sql.NullString
		startTime     sql.NullTime
		endTime       sql.NullTime
		startedBy     sql.NullInt64
		startedByName sql.NullString
	)

	err := row.Scan(
		&b.ID,
		&b.Name,
		&b.Phone,
		&email,
		&b.BookingDate,
		&b.QueueNumber,
		&b.Status,
		&windowID,
		&windowNumber,
		&windowName,
		&startTime,
		&endTime,
		&startedBy,
		&startedByName,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return b, err
	}

	if email.Valid {
		b.Email = &email.String
	}
	if windowID.Valid {
		b.WindowID = &windowID.Int64
	}
	if windowNumber.Valid {
		n := int(windowNumber.Int64)
		b.WindowNumber = &n
	}
	if windowName.Valid {
		b.WindowName = &windowName.String
	}
	if startTime.Valid {
		b.ActualStartTime = &startTime.Time
	}
	if endTime.Valid {
		b.ActualEndTime = &endTime.Time
	}
	if startedBy.Valid {
		b.StartedBy = &startedBy.Int64
	}
	if startedByName.Valid {
		b.StartedByName = &startedByName.String
	}

	return b, nil
}

func (s *Store) CreateBooking(ctx context.Context, input store.CreateBookingInput) (models.Booking, error) {
	date := input.BookingDate.Format(store.DateLayout)
	number, err := s.seq.Next(ctx, date)
	if err != nil {
		return models.Booking{}, fmt.Errorf("next queue number: %w", err)
	}

	now := s.opts.Now()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO bookings
		(name, phone, email, booking_date, queue_number, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, input.Name, input.Phone, input.Email, date, number, models.StatusWaiting, now, now)
	if err != nil {
		return models.Booking{}, fmt.Errorf("insert booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return models.Booking{}, fmt.Errorf("insert booking: %w", err)
	}
	return s.GetBooking(ctx, id)
}

func (s *Store) ListBookings(ctx context.Context, filter store.ListFilter) ([]models.Booking, error) {
	query := bookingSelect + " WHERE 1=1"
	args := []interface{}{}

	if filter.Date != nil {
		query += " AND b.booking_date = ?"
		args = append(args, filter.Date.Format(store.DateLayout))
	}
	if filter.Status != "" {
		query += " AND b.status = ?"
		args = append(args, filter.Status)
	}
	query += " ORDER BY b.booking_date ASC, b.queue_number ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	bookings := []models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (s *Store) GetBooking(ctx context.Context, id int64) (models.Booking, error) {
	b, err := scanBooking(s.db.QueryRowContext(ctx, bookingSelect+" WHERE b.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Booking{}, store.ErrBookingNotFound
	}
	if err != nil {
		return models.Booking{}, fmt.Errorf("get booking %d: %w", id, err)
	}
	return b, nil
}

func (s *Store) NextWaiting(ctx context.Context, staffUserID *int64) (models.Booking, error) {
	query := bookingSelect + " WHERE b.status = ? AND b.booking_date = ?"
	args := []interface{}{models.StatusWaiting, s.opts.Today().Format(store.DateLayout)}

	// Bookings routed to a window only go to that window's staff.
	if staffUserID != nil {
		query += " AND (b.window_id IS NULL OR b.window_id = (SELECT id FROM windows WHERE current_user_id = ? LIMIT 1))"
		args = append(args, *staffUserID)
	}
	query += " ORDER BY b.created_at ASC, b.id ASC LIMIT 1"

	b, err := scanBooking(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Booking{}, store.ErrNoWaitingTickets
	}
	if err != nil {
		return models.Booking{}, fmt.Errorf("next waiting: %w", err)
	}
	return b, nil
}

func (s *Store) StartProcessing(ctx context.Context, id, staffUserID int64) (models.Booking, error) {
	now := s.opts.Now()
	result, err := s.db.ExecContext(ctx, `
		UPDATE bookings
		SET status = ?,
		    actual_start_time = ?,
		    started_by = ?,
		    started_by_name = (SELECT name FROM users WHERE id = ?),
		    window_id = COALESCE((SELECT id FROM windows WHERE current_user_id = ? LIMIT 1), window_id),
		    updated_at = ?
		WHERE id = ? AND status = ?
	`, store.TargetStatus(store.ActionStart), now, staffUserID, staffUserID, staffUserID, now,
		id, models.StatusWaiting)
	if err != nil {
		return models.Booking{}, fmt.Errorf("start booking %d: %w", id, err)
	}
	return s.afterTransition(ctx, id, store.ActionStart, result)
}

func (s *Store) CompleteBooking(ctx context.Context, id int64) (models.Booking, error) {
	now := s.opts.Now()
	result, err := s.db.ExecContext(ctx, `
		UPDATE bookings
		SET status = ?, actual_end_time = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, store.TargetStatus(store.ActionComplete), now, now, id, models.StatusInProgress)
	if err != nil {
		return models.Booking{}, fmt.Errorf("complete booking %d: %w", id, err)
	}
	return s.afterTransition(ctx, id, store.ActionComplete, result)
}

func (s *Store) CancelBooking(ctx context.Context, id, staffUserID int64) (models.Booking, error) {
	now := s.opts.Now()
	result, err := s.db.ExecContext(ctx, `
		UPDATE bookings
		SET status = ?, actual_end_time = ?, cancelled_by = ?, updated_at = ?
		WHERE id = ? AND status IN (?, ?)
	`, store.TargetStatus(store.ActionCancel), now, staffUserID, now,
		id, models.StatusWaiting, models.StatusInProgress)
	if err != nil {
		return models.Booking{}, fmt.Errorf("cancel booking %d: %w", id, err)
	}
	return s.afterTransition(ctx, id, store.ActionCancel, result)
}

func (s *Store) UpdateBookingWindow(ctx context.Context, id, windowID int64) (models.Booking, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM windows WHERE id = ?", windowID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Booking{}, store.ErrWindowNotFound
	}
	if err != nil {
		return models.Booking{}, fmt.Errorf("check window %d: %w", windowID, err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE bookings
		SET window_id = ?, updated_at = ?
		WHERE id = ? AND status IN (?, ?)
	`, windowID, s.opts.Now(), id, models.StatusWaiting, models.StatusInProgress)
	if err != nil {
		return models.Booking{}, fmt.Errorf("bind window for booking %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return models.Booking{}, err
	}
	b, err := s.GetBooking(ctx, id)
	if err != nil {
		return models.Booking{}, err
	}
	if affected == 0 && b.IsTerminal() {
		return models.Booking{}, store.ErrInvalidTransition
	}
	return b, nil
}

// afterTransition reloads the booking after a guarded UPDATE. When no row
// changed, the current status decides which rejection to report.
func (s *Store) afterTransition(ctx context.Context, id int64, action string, result sql.Result) (models.Booking, error) {
	affected, err := result.RowsAffected()
	if err != nil {
		return models.Booking{}, err
	}

	b, err := s.GetBooking(ctx, id)
	if err != nil {
		return models.Booking{}, err
	}
	if affected > 0 {
		return b, nil
	}
	if err := store.TransitionError(action, b.Status); err != nil {
		return models.Booking{}, err
	}
	// The row moved back into a legal state between UPDATE and SELECT.
	return models.Booking{}, store.TransitionError(action, store.TargetStatus(action))
}

func (s *Store) GetStatusSnapshot(ctx context.Context) (models.StatusSnapshot, error) {
	date := s.opts.Today().Format(store.DateLayout)

	serving, err := s.serving.Current(ctx, date)
	if err != nil {
		return models.StatusSnapshot{}, fmt.Errorf("serving state: %w", err)
	}

	var counts store.Counts
	err = s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(status = 'waiting'), 0),
			COALESCE(SUM(status = 'completed'), 0)
		FROM bookings
		WHERE booking_date = ?
	`, date).Scan(&counts.Total, &counts.Waiting, &counts.Completed)
	if err != nil {
		return models.StatusSnapshot{}, fmt.Errorf("count bookings: %w", err)
	}

	active := helper.IsQueueOpen(s.opts.Now().In(s.opts.Location), s.opts.OpenAt, s.opts.CloseAt)
	return store.BuildSnapshot(date, serving, counts, active), nil
}

func (s *Store) UpdateServing(ctx context.Context, queueNumber int, windowID *int64, forceRecall bool) error {
	next := models.Serving{QueueNumber: queueNumber}
	if windowID != nil {
		w, err := s.GetWindow(ctx, *windowID)
		if err != nil {
			return err
		}
		next.WindowID, next.WindowNumber, next.WindowName = &w.ID, &w.Number, &w.Name
	}

	date := s.opts.Today().Format(store.DateLayout)
	if _, err := s.serving.Publish(ctx, date, next, forceRecall, s.opts.Now()); err != nil {
		return fmt.Errorf("publish serving: %w", err)
	}
	return nil
}

func (s *Store) DashboardStats(ctx context.Context, date time.Time) (models.DashboardStats, error) {
	bookings, err := s.ListBookings(ctx, store.ListFilter{Date: &date})
	if err != nil {
		return models.DashboardStats{}, err
	}
	return store.ComputeDashboard(date.Format(store.DateLayout), bookings), nil
}

var (
	_ store.BookingStore   = (*Store)(nil)
	_ store.WindowRegistry = (*Store)(nil)
	_ store.UserStore      = (*Store)(nil)
)
