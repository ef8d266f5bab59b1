package store

import (
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
)

// LoadPreferences returns the stored preference document, or nil if none
// has been saved.
func (db *DB) LoadPreferences() ([]byte, error) {
	var data string
	err := db.conn.QueryRow("SELECT data FROM preferences WHERE id = 1").Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "loading preferences")
	}
	return []byte(data), nil
}

// SavePreferences replaces the stored preference document.
func (db *DB) SavePreferences(data []byte) error {
	_, err := db.conn.Exec(
		`INSERT INTO preferences (id, data, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		string(data), formatTime(time.Now()),
	)
	if err != nil {
		return errors.Wrap(err, "saving preferences")
	}
	return nil
}
