package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"backend-booking/internal/models"
	"backend-booking/internal/store"
)

const windowSelect = `
	SELECT w.id, w.name, w.number, w.is_active, w.current_user_id, u.name
	FROM windows w
	LEFT JOIN users u ON u.id = w.current_user_id
`

func scanWindow(row rowScanner) (models.Window, error) {
	var (
		w        models.Window
		userID   sql.NullInt64
		userName sql.NullString
	)
	if err := row.Scan(&w.ID, &w.Name, &w.Number, &w.IsActive, &userID, &userName); err != nil {
		return w, err
	}
	if userID.Valid {
		w.CurrentUserID = &userID.Int64
	}
	if userName.Valid {
		w.CurrentUserName = &userName.String
	}
	return w, nil
}

func (s *Store) GetAssignedWindow(ctx context.Context, staffUserID int64) (models.Window, error) {
	w, err := scanWindow(s.db.QueryRowContext(ctx, windowSelect+" WHERE w.current_user_id = ? LIMIT 1", staffUserID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Window{}, store.ErrWindowNotAssigned
	}
	if err != nil {
		return models.Window{}, fmt.Errorf("assigned window for user %d: %w", staffUserID, err)
	}
	return w, nil
}

func (s *Store) GetWindow(ctx context.Context, windowID int64) (models.Window, error) {
	w, err := scanWindow(s.db.QueryRowContext(ctx, windowSelect+" WHERE w.id = ?", windowID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Window{}, store.ErrWindowNotFound
	}
	if err != nil {
		return models.Window{}, fmt.Errorf("get window %d: %w", windowID, err)
	}
	return w, nil
}

// AssignWindow moves the staff user onto windowID, releasing any window they
// held before. Both updates commit together.
func (s *Store) AssignWindow(ctx context.Context, staffUserID, windowID int64) (models.Window, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Window{}, err
	}
	defer tx.Rollback()

	var active bool
	err = tx.QueryRowContext(ctx, "SELECT is_active FROM windows WHERE id = ? FOR UPDATE", windowID).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Window{}, store.ErrWindowNotFound
	}
	if err != nil {
		return models.Window{}, fmt.Errorf("lock window %d: %w", windowID, err)
	}
	if !active {
		return models.Window{}, store.ErrWindowInactive
	}

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id = ?", staffUserID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Window{}, store.ErrUserNotFound
	}
	if err != nil {
		return models.Window{}, fmt.Errorf("check user %d: %w", staffUserID, err)
	}

	if _, err := tx.ExecContext(ctx, "UPDATE windows SET current_user_id = NULL WHERE current_user_id = ?", staffUserID); err != nil {
		return models.Window{}, fmt.Errorf("release windows: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE windows SET current_user_id = ? WHERE id = ?", staffUserID, windowID); err != nil {
		return models.Window{}, fmt.Errorf("assign window %d: %w", windowID, err)
	}
	if err := tx.Commit(); err != nil {
		return models.Window{}, err
	}

	return s.GetWindow(ctx, windowID)
}

func (s *Store) ListWindows(ctx context.Context) ([]models.Window, error) {
	rows, err := s.db.QueryContext(ctx, windowSelect+" ORDER BY w.number ASC")
	if err != nil {
		return nil, fmt.Errorf("list windows: %w", err)
	}
	defer rows.Close()

	windows := []models.Window{}
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return windows, rows.Err()
}
