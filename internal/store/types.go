// Package store provides SQLite persistence for session contexts,
// preferences, and the history of published posts.
package store

import "time"

// timeLayout is fixed-width so stored timestamps sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

// TweetRecord is a single published post.
type TweetRecord struct {
	ID       string    `json:"id"`
	URL      string    `json:"url"`
	Message  string    `json:"message"`
	PostedAt time.Time `json:"posted_at"`
}

// ThreadRecord is a published reply chain. ID is the first post's ID.
type ThreadRecord struct {
	ID       string    `json:"id"`
	URLs     []string  `json:"urls"`
	Messages []string  `json:"messages"`
	PostedAt time.Time `json:"posted_at"`
}
