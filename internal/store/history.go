package store

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
)

// AddTweet records a published post. A zero PostedAt is set to now.
func (db *DB) AddTweet(rec TweetRecord) error {
	if rec.PostedAt.IsZero() {
		rec.PostedAt = time.Now()
	}
	_, err := db.conn.Exec(
		"INSERT INTO tweets (id, url, message, posted_at) VALUES (?, ?, ?, ?)",
		rec.ID, rec.URL, rec.Message, formatTime(rec.PostedAt),
	)
	if err != nil {
		return errors.Wrapf(err, "recording tweet %s", rec.ID)
	}
	return nil
}

// AddThread records a published thread. A zero PostedAt is set to now.
func (db *DB) AddThread(rec ThreadRecord) error {
	if rec.PostedAt.IsZero() {
		rec.PostedAt = time.Now()
	}
	urls, err := json.Marshal(rec.URLs)
	if err != nil {
		return errors.Wrap(err, "encoding thread urls")
	}
	messages, err := json.Marshal(rec.Messages)
	if err != nil {
		return errors.Wrap(err, "encoding thread messages")
	}
	_, err = db.conn.Exec(
		"INSERT INTO threads (id, urls, messages, posted_at) VALUES (?, ?, ?, ?)",
		rec.ID, string(urls), string(messages), formatTime(rec.PostedAt),
	)
	if err != nil {
		return errors.Wrapf(err, "recording thread %s", rec.ID)
	}
	return nil
}

// RecentTweets returns up to n posts, newest first.
func (db *DB) RecentTweets(n int) ([]TweetRecord, error) {
	rows, err := db.conn.Query(
		"SELECT id, url, message, posted_at FROM tweets ORDER BY posted_at DESC, seq DESC LIMIT ?", n,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying tweets")
	}
	defer rows.Close()

	var out []TweetRecord
	for rows.Next() {
		var rec TweetRecord
		var postedAt string
		if err := rows.Scan(&rec.ID, &rec.URL, &rec.Message, &postedAt); err != nil {
			return nil, errors.Wrap(err, "scanning tweet")
		}
		rec.PostedAt = parseTime(postedAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RecentThreads returns up to n threads, newest first.
func (db *DB) RecentThreads(n int) ([]ThreadRecord, error) {
	rows, err := db.conn.Query(
		"SELECT id, urls, messages, posted_at FROM threads ORDER BY posted_at DESC, seq DESC LIMIT ?", n,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying threads")
	}
	defer rows.Close()

	var out []ThreadRecord
	for rows.Next() {
		var rec ThreadRecord
		var urls, messages, postedAt string
		if err := rows.Scan(&rec.ID, &urls, &messages, &postedAt); err != nil {
			return nil, errors.Wrap(err, "scanning thread")
		}
		if err := json.Unmarshal([]byte(urls), &rec.URLs); err != nil {
			return nil, errors.Wrapf(err, "decoding urls of thread %s", rec.ID)
		}
		if err := json.Unmarshal([]byte(messages), &rec.Messages); err != nil {
			return nil, errors.Wrapf(err, "decoding messages of thread %s", rec.ID)
		}
		rec.PostedAt = parseTime(postedAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}
