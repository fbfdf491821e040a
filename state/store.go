// Copyright © 2026 Streamlabs Overlay contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: state/store.go
// Summary: SQLite-backed store with named, atomic mutations.

package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS overlay_state (
    name               TEXT PRIMARY KEY,
    is_enabled         INTEGER NOT NULL DEFAULT 0,
    is_showing         INTEGER NOT NULL DEFAULT 0,
    preview_mode       INTEGER NOT NULL DEFAULT 0,
    is_preview_enabled INTEGER NOT NULL DEFAULT 0,
    opacity            INTEGER NOT NULL DEFAULT 100
);

CREATE TABLE IF NOT EXISTS window_properties (
    name       TEXT NOT NULL,
    window_key TEXT NOT NULL,
    pos_x      INTEGER,
    pos_y      INTEGER,
    surface_id INTEGER,
    PRIMARY KEY (name, window_key)
);
`

// Store persists the overlay record under a subsystem name. Every mutation is
// a named operation executed in its own transaction; callers never
// read-modify-write the record themselves.
type Store struct {
	db   *sql.DB
	name string
	mu   sync.Mutex
}

// Open creates or opens the store at dbPath for the named subsystem record,
// seeding the record and one row per window key on first use. An I/O failure
// here is fatal to subsystem initialization.
func Open(dbPath, name string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("state: create dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("state: open %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("state: init schema: %w", err)
	}

	s := &Store{db: db, name: name}
	if err := s.seed(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) seed() error {
	if _, err := s.db.Exec(
		`INSERT OR IGNORE INTO overlay_state (name) VALUES (?)`, s.name); err != nil {
		return fmt.Errorf("state: seed record: %w", err)
	}
	for _, key := range WindowKeys() {
		if _, err := s.db.Exec(
			`INSERT OR IGNORE INTO window_properties (name, window_key) VALUES (?, ?)`,
			s.name, string(key)); err != nil {
			return fmt.Errorf("state: seed window %s: %w", key, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns a copy of the current record. The copy is detached; holding it
// never observes later mutations.
func (s *Store) Get() OverlayState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := OverlayState{Opacity: 100, Windows: make(map[WindowKey]WindowProperties)}
	row := s.db.QueryRow(
		`SELECT is_enabled, is_showing, preview_mode, is_preview_enabled, opacity
		 FROM overlay_state WHERE name = ?`, s.name)
	if err := row.Scan(&out.IsEnabled, &out.IsShowing, &out.PreviewMode, &out.IsPreviewEnabled, &out.Opacity); err != nil {
		for _, key := range WindowKeys() {
			out.Windows[key] = WindowProperties{}
		}
		return out
	}

	rows, err := s.db.Query(
		`SELECT window_key, pos_x, pos_y, surface_id FROM window_properties WHERE name = ?`, s.name)
	if err != nil {
		return out
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var posX, posY, surfaceID sql.NullInt64
		if err := rows.Scan(&key, &posX, &posY, &surfaceID); err != nil {
			continue
		}
		props := WindowProperties{}
		if posX.Valid && posY.Valid {
			props.Position = &Point{X: int(posX.Int64), Y: int(posY.Int64)}
		}
		if surfaceID.Valid {
			id := surfaceID.Int64
			props.SurfaceID = &id
		}
		out.Windows[WindowKey(key)] = props
	}
	for _, key := range WindowKeys() {
		if _, ok := out.Windows[key]; !ok {
			out.Windows[key] = WindowProperties{}
		}
	}
	return out
}

// SetEnabled persists the enabled flag.
func (s *Store) SetEnabled(enabled bool) error {
	return s.setFlag("is_enabled", enabled)
}

// SetShowing persists the showing flag.
func (s *Store) SetShowing(showing bool) error {
	return s.setFlag("is_showing", showing)
}

// ToggleShowing flips the showing flag atomically.
func (s *Store) ToggleShowing() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`UPDATE overlay_state SET is_showing = 1 - is_showing WHERE name = ?`, s.name)
	if err != nil {
		return fmt.Errorf("state: toggle showing: %w", err)
	}
	return nil
}

// SetPreviewMode persists the preview flag. Entering preview clears the
// showing flag in the same transaction: the two are mutually exclusive.
func (s *Store) SetPreviewMode(preview bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !preview {
		_, err := s.db.Exec(
			`UPDATE overlay_state SET preview_mode = 0 WHERE name = ?`, s.name)
		if err != nil {
			return fmt.Errorf("state: set preview mode: %w", err)
		}
		return nil
	}
	_, err := s.db.Exec(
		`UPDATE overlay_state SET preview_mode = 1, is_showing = 0 WHERE name = ?`, s.name)
	if err != nil {
		return fmt.Errorf("state: set preview mode: %w", err)
	}
	return nil
}

// SetPreviewEnabled persists the preview-enabled flag.
func (s *Store) SetPreviewEnabled(enabled bool) error {
	return s.setFlag("is_preview_enabled", enabled)
}

// SetOpacity persists the opacity percentage, clamped to [0,100].
func (s *Store) SetOpacity(opacity int) error {
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 100 {
		opacity = 100
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`UPDATE overlay_state SET opacity = ? WHERE name = ?`, opacity, s.name)
	if err != nil {
		return fmt.Errorf("state: set opacity: %w", err)
	}
	return nil
}

// SetWindowPosition persists the last known good position for a key. A nil
// position means "use default placement".
func (s *Store) SetWindowPosition(key WindowKey, pos *Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if pos == nil {
		_, err = s.db.Exec(
			`UPDATE window_properties SET pos_x = NULL, pos_y = NULL WHERE name = ? AND window_key = ?`,
			s.name, string(key))
	} else {
		_, err = s.db.Exec(
			`UPDATE window_properties SET pos_x = ?, pos_y = ? WHERE name = ? AND window_key = ?`,
			pos.X, pos.Y, s.name, string(key))
	}
	if err != nil {
		return fmt.Errorf("state: set window position %s: %w", key, err)
	}
	return nil
}

// SetWindowSurfaceID persists the compositor surface id for a key. A nil id
// means "not registered". Ids are never trusted across sessions; callers
// clear them on teardown and register fresh on every start.
func (s *Store) SetWindowSurfaceID(key WindowKey, id *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if id == nil {
		_, err = s.db.Exec(
			`UPDATE window_properties SET surface_id = NULL WHERE name = ? AND window_key = ?`,
			s.name, string(key))
	} else {
		_, err = s.db.Exec(
			`UPDATE window_properties SET surface_id = ? WHERE name = ? AND window_key = ?`,
			*id, s.name, string(key))
	}
	if err != nil {
		return fmt.Errorf("state: set surface id %s: %w", key, err)
	}
	return nil
}

func (s *Store) setFlag(column string, value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := 0
	if value {
		v = 1
	}
	// column is always one of our own identifiers, never caller input.
	_, err := s.db.Exec(
		fmt.Sprintf(`UPDATE overlay_state SET %s = ? WHERE name = ?`, column), v, s.name)
	if err != nil {
		return fmt.Errorf("state: set %s: %w", column, err)
	}
	return nil
}
