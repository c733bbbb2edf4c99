// Package memory keeps bookings, windows and the serving state in process.
// It enforces the same transition guards as the MySQL store and is safe for
// concurrent use.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"backend-booking/internal/helper"
	"backend-booking/internal/models"
	"backend-booking/internal/store"
)

type Store struct {
	mu       sync.Mutex
	opts     store.Options
	bookings map[int64]*models.Booking
	windows  map[int64]*models.Window
	users    map[int64]models.User
	nextID   int64
	seq      *Sequence
	serving  *Serving
}

func New(opts store.Options) *Store {
	return &Store{
		opts:     opts.WithDefaults(),
		bookings: make(map[int64]*models.Booking),
		windows:  make(map[int64]*models.Window),
		users:    make(map[int64]models.User),
		seq:      NewSequence(),
		serving:  NewServing(),
	}
}

// AddWindow registers a window. Intended for seeding.
func (s *Store) AddWindow(w models.Window) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := w
	s.windows[w.ID] = &cp
}

// AddUser registers a staff account. Intended for seeding.
func (s *Store) AddUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *Store) CreateBooking(ctx context.Context, input store.CreateBookingInput) (models.Booking, error) {
	date := input.BookingDate.Format(store.DateLayout)
	number, err := s.seq.Next(ctx, date)
	if err != nil {
		return models.Booking{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	now := s.opts.Now()
	b := &models.Booking{
		ID:          s.nextID,
		Name:        input.Name,
		Phone:       input.Phone,
		Email:       input.Email,
		BookingDate: input.BookingDate,
		QueueNumber: number,
		Status:      models.StatusWaiting,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.bookings[b.ID] = b
	return s.view(b), nil
}

func (s *Store) ListBookings(ctx context.Context, filter store.ListFilter) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := []models.Booking{}
	for _, b := range s.bookings {
		if filter.Date != nil && !sameDay(b.BookingDate, *filter.Date) {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		result = append(result, s.view(b))
	}
	sort.Slice(result, func(i, j int) bool {
		if !sameDay(result[i].BookingDate, result[j].BookingDate) {
			return result[i].BookingDate.Before(result[j].BookingDate)
		}
		return result[i].QueueNumber < result[j].QueueNumber
	})
	return result, nil
}

func (s *Store) GetBooking(ctx context.Context, id int64) (models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return models.Booking{}, store.ErrBookingNotFound
	}
	return s.view(b), nil
}

func (s *Store) NextWaiting(ctx context.Context, staffUserID *int64) (models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := s.opts.Today()
	var staffWindow *int64
	if staffUserID != nil {
		if w := s.assignedLocked(*staffUserID); w != nil {
			staffWindow = &w.ID
		}
	}

	var next *models.Booking
	for _, b := range s.bookings {
		if b.Status != models.StatusWaiting || !sameDay(b.BookingDate, today) {
			continue
		}
		// Bookings routed to a window only go to that window's staff.
		if staffUserID != nil && b.WindowID != nil && (staffWindow == nil || *b.WindowID != *staffWindow) {
			continue
		}
		if next == nil || b.CreatedAt.Before(next.CreatedAt) ||
			(b.CreatedAt.Equal(next.CreatedAt) && b.ID < next.ID) {
			next = b
		}
	}
	if next == nil {
		return models.Booking{}, store.ErrNoWaitingTickets
	}
	return s.view(next), nil
}

func (s *Store) StartProcessing(ctx context.Context, id, staffUserID int64) (models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return models.Booking{}, store.ErrBookingNotFound
	}
	if err := store.TransitionError(store.ActionStart, b.Status); err != nil {
		return models.Booking{}, err
	}

	now := s.opts.Now()
	b.Status = store.TargetStatus(store.ActionStart)
	b.ActualStartTime = &now
	b.StartedBy = &staffUserID
	if u, ok := s.users[staffUserID]; ok {
		name := u.Name
		b.StartedByName = &name
	}
	if w := s.assignedLocked(staffUserID); w != nil {
		windowID := w.ID
		b.WindowID = &windowID
	}
	b.UpdatedAt = now
	return s.view(b), nil
}

func (s *Store) CompleteBooking(ctx context.Context, id int64) (models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return models.Booking{}, store.ErrBookingNotFound
	}
	if err := store.TransitionError(store.ActionComplete, b.Status); err != nil {
		return models.Booking{}, err
	}

	now := s.opts.Now()
	b.Status = store.TargetStatus(store.ActionComplete)
	b.ActualEndTime = &now
	b.UpdatedAt = now
	return s.view(b), nil
}

func (s *Store) CancelBooking(ctx context.Context, id, staffUserID int64) (models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return models.Booking{}, store.ErrBookingNotFound
	}
	if err := store.TransitionError(store.ActionCancel, b.Status); err != nil {
		return models.Booking{}, err
	}

	now := s.opts.Now()
	b.Status = store.TargetStatus(store.ActionCancel)
	b.ActualEndTime = &now
	b.UpdatedAt = now
	return s.view(b), nil
}

func (s *Store) UpdateBookingWindow(ctx context.Context, id, windowID int64) (models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return models.Booking{}, store.ErrBookingNotFound
	}
	if _, ok := s.windows[windowID]; !ok {
		return models.Booking{}, store.ErrWindowNotFound
	}
	if b.IsTerminal() {
		return models.Booking{}, store.ErrInvalidTransition
	}
	b.WindowID = &windowID
	b.UpdatedAt = s.opts.Now()
	return s.view(b), nil
}

func (s *Store) GetStatusSnapshot(ctx context.Context) (models.StatusSnapshot, error) {
	today := s.opts.Today()
	date := today.Format(store.DateLayout)

	serving, err := s.serving.Current(ctx, date)
	if err != nil {
		return models.StatusSnapshot{}, err
	}

	s.mu.Lock()
	var counts store.Counts
	for _, b := range s.bookings {
		if !sameDay(b.BookingDate, today) {
			continue
		}
		counts.Total++
		switch b.Status {
		case models.StatusWaiting:
			counts.Waiting++
		case models.StatusCompleted:
			counts.Completed++
		}
	}
	s.mu.Unlock()

	active := helper.IsQueueOpen(s.opts.Now().In(s.opts.Location), s.opts.OpenAt, s.opts.CloseAt)
	return store.BuildSnapshot(date, serving, counts, active), nil
}

func (s *Store) UpdateServing(ctx context.Context, queueNumber int, windowID *int64, forceRecall bool) error {
	next := models.Serving{QueueNumber: queueNumber}
	if windowID != nil {
		s.mu.Lock()
		w, ok := s.windows[*windowID]
		if !ok {
			s.mu.Unlock()
			return store.ErrWindowNotFound
		}
		id, number, name := w.ID, w.Number, w.Name
		s.mu.Unlock()
		next.WindowID, next.WindowNumber, next.WindowName = &id, &number, &name
	}

	date := s.opts.Today().Format(store.DateLayout)
	_, err := s.serving.Publish(ctx, date, next, forceRecall, s.opts.Now())
	return err
}

func (s *Store) DashboardStats(ctx context.Context, date time.Time) (models.DashboardStats, error) {
	bookings, err := s.ListBookings(ctx, store.ListFilter{Date: &date})
	if err != nil {
		return models.DashboardStats{}, err
	}
	return store.ComputeDashboard(date.Format(store.DateLayout), bookings), nil
}

func (s *Store) GetAssignedWindow(ctx context.Context, staffUserID int64) (models.Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.assignedLocked(staffUserID)
	if w == nil {
		return models.Window{}, store.ErrWindowNotAssigned
	}
	return s.windowView(w), nil
}

func (s *Store) GetWindow(ctx context.Context, windowID int64) (models.Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[windowID]
	if !ok {
		return models.Window{}, store.ErrWindowNotFound
	}
	return s.windowView(w), nil
}

func (s *Store) AssignWindow(ctx context.Context, staffUserID, windowID int64) (models.Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[windowID]
	if !ok {
		return models.Window{}, store.ErrWindowNotFound
	}
	if !w.IsActive {
		return models.Window{}, store.ErrWindowInactive
	}
	if _, ok := s.users[staffUserID]; !ok {
		return models.Window{}, store.ErrUserNotFound
	}
	for _, other := range s.windows {
		if other.CurrentUserID != nil && *other.CurrentUserID == staffUserID {
			other.CurrentUserID = nil
		}
	}
	uid := staffUserID
	w.CurrentUserID = &uid
	return s.windowView(w), nil
}

func (s *Store) ListWindows(ctx context.Context) ([]models.Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]models.Window, 0, len(s.windows))
	for _, w := range s.windows {
		result = append(result, s.windowView(w))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Number < result[j].Number })
	return result, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return models.User{}, store.ErrUserNotFound
}

func (s *Store) assignedLocked(staffUserID int64) *models.Window {
	for _, w := range s.windows {
		if w.CurrentUserID != nil && *w.CurrentUserID == staffUserID {
			return w
		}
	}
	return nil
}

// view copies b and joins the bound window's number and name.
func (s *Store) view(b *models.Booking) models.Booking {
	cp := *b
	if b.WindowID != nil {
		if w, ok := s.windows[*b.WindowID]; ok {
			number, name := w.Number, w.Name
			cp.WindowNumber, cp.WindowName = &number, &name
		}
	}
	return cp
}

func (s *Store) windowView(w *models.Window) models.Window {
	cp := *w
	if w.CurrentUserID != nil {
		if u, ok := s.users[*w.CurrentUserID]; ok {
			name := u.Name
			cp.CurrentUserName = &name
		}
	}
	return cp
}

func sameDay(a, b time.Time) bool {
	return a.Format(store.DateLayout) == b.Format(store.DateLayout)
}

var (
	_ store.BookingStore   = (*Store)(nil)
	_ store.WindowRegistry = (*Store)(nil)
	_ store.UserStore      = (*Store)(nil)
)
