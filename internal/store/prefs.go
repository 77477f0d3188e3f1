package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// DarkMode returns the stored dark-mode preference for a browser. A nil
// result means "auto" (follow the system), which is also the answer for
// unknown browsers.
func (s *Store) DarkMode(ctx context.Context, browserID string) (*bool, error) {
	var v sql.NullBool
	err := s.db.QueryRowContext(ctx,
		`SELECT dark_mode FROM browser_prefs WHERE browser_id = ?`, browserID,
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read dark mode: %w", err)
	}
	if !v.Valid {
		return nil, nil
	}
	b := v.Bool
	return &b, nil
}

// SetDarkMode stores the preference; nil stores "auto".
func (s *Store) SetDarkMode(ctx context.Context, browserID string, value *bool) error {
	var v sql.NullBool
	if value != nil {
		v = sql.NullBool{Bool: *value, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO browser_prefs (browser_id, dark_mode, updated_at)
		VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		ON CONFLICT(browser_id) DO UPDATE SET
			dark_mode = excluded.dark_mode,
			updated_at = excluded.updated_at`,
		browserID, v,
	)
	if err != nil {
		return fmt.Errorf("store: write dark mode: %w", err)
	}
	return nil
}
