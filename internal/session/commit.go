package session

import (
	"encoding/json"
	"strings"
)

// ParseCommit decodes a commit from either a structured JSON object or a
// single git log line in the form "hash|author|timestamp|message|files".
// It reports false when neither shape yields a commit.
func ParseCommit(raw json.RawMessage) (GitCommit, bool) {
	if s, ok := decodeString(raw); ok {
		return ParseLogLine(s)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return GitCommit{}, false
	}

	var c GitCommit
	c.Hash, _ = decodeString(fields["hash"])
	c.Message, _ = decodeString(fields["message"])
	c.Timestamp, _ = decodeString(fields["timestamp"])
	c.FilesChanged, _ = decodeStrings(fields["filesChanged"])
	c.Additions = decodeOptionalInt(fields["additions"])
	c.Deletions = decodeOptionalInt(fields["deletions"])
	return c, true
}

// ParseLogLine parses the first line of "hash|author|timestamp|message|files"
// output. Files are comma separated and optional; fewer than four fields is
// not a commit.
func ParseLogLine(s string) (GitCommit, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return GitCommit{}, false
	}
	first, _, _ := strings.Cut(s, "\n")
	parts := strings.Split(first, "|")
	if len(parts) < 4 {
		return GitCommit{}, false
	}

	c := GitCommit{
		Hash:      strings.TrimSpace(parts[0]),
		Timestamp: strings.TrimSpace(parts[2]),
		Message:   strings.TrimSpace(parts[3]),
	}
	if len(parts) > 4 && strings.TrimSpace(parts[4]) != "" {
		for _, f := range strings.Split(parts[4], ",") {
			if f = strings.TrimSpace(f); f != "" {
				c.FilesChanged = append(c.FilesChanged, f)
			}
		}
	}
	return c, true
}

func decodeOptionalInt(raw json.RawMessage) *int {
	if isNull(raw) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil
	}
	n := int(f)
	return &n
}
