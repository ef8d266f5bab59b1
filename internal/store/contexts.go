package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/blackwell-systems/bip/internal/session"
)

// SaveContext inserts or replaces the context with c.SessionID and stamps
// c.LastUpdated. The caller must have assigned a session ID.
func (db *DB) SaveContext(c *session.Context) error {
	if c == nil {
		return errors.New("session context is nil")
	}
	if c.SessionID == "" {
		return errors.New("session context has no session ID")
	}

	c.LastUpdated = time.Now().UTC()
	data, err := json.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encoding session context")
	}

	_, err = db.conn.Exec(
		`INSERT INTO session_contexts (id, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		c.SessionID, string(data), formatTime(c.LastUpdated),
	)
	if err != nil {
		return errors.Wrapf(err, "saving session context %s", c.SessionID)
	}
	return nil
}

// LoadContext returns the context with the given ID, or the most recently
// updated one when id is empty. It returns nil, nil if there is none.
func (db *DB) LoadContext(id string) (*session.Context, error) {
	var row *sql.Row
	if id == "" {
		row = db.conn.QueryRow("SELECT data FROM session_contexts ORDER BY updated_at DESC, rowid DESC LIMIT 1")
	} else {
		row = db.conn.QueryRow("SELECT data FROM session_contexts WHERE id = ?", id)
	}

	var data string
	err := row.Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "loading session context")
	}

	c, _, err := session.Decode([]byte(data))
	if err != nil {
		return nil, errors.Wrap(err, "decoding stored session context")
	}
	return c, nil
}

// ListContexts returns up to limit contexts, most recently updated first.
// A limit of zero or less returns all of them.
func (db *DB) ListContexts(limit int) ([]*session.Context, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.conn.Query("SELECT data FROM session_contexts ORDER BY updated_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, errors.Wrap(err, "listing session contexts")
	}
	defer rows.Close()

	var out []*session.Context
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, errors.Wrap(err, "scanning session context")
		}
		c, _, err := session.Decode([]byte(data))
		if err != nil {
			return nil, errors.Wrap(err, "decoding stored session context")
		}
		out = append(out, c)
	}
	return out, errors.Wrap(rows.Err(), "listing session contexts")
}

// HasContext reports whether any context has been saved.
func (db *DB) HasContext() (bool, error) {
	var n int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM session_contexts").Scan(&n); err != nil {
		return false, errors.Wrap(err, "counting session contexts")
	}
	return n > 0, nil
}

// ClearContexts deletes every stored context and returns how many there were.
func (db *DB) ClearContexts() (int64, error) {
	res, err := db.conn.Exec("DELETE FROM session_contexts")
	if err != nil {
		return 0, errors.Wrap(err, "clearing session contexts")
	}
	return res.RowsAffected()
}
