package session

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.yaml.in/yaml/v3"
)

// Decode rebuilds a Context from JSON. Only a non-object document is an
// error: a field with the wrong shape is dropped and reported in ignored,
// and a malformed element inside a sequence is skipped.
func Decode(data []byte) (ctx *Context, ignored []string, err error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil, errors.New("session context is empty")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, nil, errors.Wrap(err, "session context must be a JSON object")
	}

	ctx = &Context{}
	for name, raw := range fields {
		if !decodeField(ctx, name, raw) {
			ignored = append(ignored, name)
		}
	}
	sort.Strings(ignored)
	return ctx, ignored, nil
}

// DecodeYAML rebuilds a Context from a YAML document by converting it to
// JSON and running the same lenient decoder.
func DecodeYAML(data []byte) (*Context, []string, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, errors.Wrap(err, "parsing YAML session context")
	}
	asJSON, err := json.Marshal(normalizeYAML(doc))
	if err != nil {
		return nil, nil, errors.Wrap(err, "converting YAML session context")
	}
	return Decode(asJSON)
}

// normalizeYAML turns map[any]any nodes (possible with non-string keys)
// into map[string]any so encoding/json accepts them.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalizeYAML(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if ks, ok := k.(string); ok {
				out[ks] = normalizeYAML(val)
			}
		}
		return out
	case []any:
		for i, val := range t {
			t[i] = normalizeYAML(val)
		}
		return t
	case time.Time:
		return t.Format(time.RFC3339Nano)
	default:
		return v
	}
}

// decodeField assigns one top-level field. It returns false when the field
// is known but malformed; unknown fields are accepted and ignored.
func decodeField(ctx *Context, name string, raw json.RawMessage) bool {
	if isNull(raw) {
		return true
	}
	var ok bool
	switch name {
	case "sessionId":
		ctx.SessionID, ok = decodeString(raw)
	case "startTime":
		ctx.StartTime, ok = decodeTime(raw)
	case "lastUpdated":
		ctx.LastUpdated, ok = decodeTime(raw)
	case "filesModified":
		ctx.FilesModified, ok = decodeStrings(raw)
	case "commandsRun":
		ctx.CommandsRun, ok = decodeStrings(raw)
	case "toolsUsed":
		ctx.ToolsUsed, ok = decodeStrings(raw)
	case "userMessages":
		ctx.UserMessages, ok = decodeStrings(raw)
	case "achievements":
		ctx.Achievements, ok = decodeStrings(raw)
	case "challenges":
		ctx.Challenges, ok = decodeStrings(raw)
	case "learnings":
		ctx.Learnings, ok = decodeStrings(raw)
	case "commits":
		ctx.Commits, ok = decodeCommits(raw)
	case "shouldTweet":
		ok = json.Unmarshal(raw, &ctx.ShouldTweet) == nil
	case "customMessage":
		ctx.CustomMessage, ok = decodeString(raw)
	case "triggerMessage":
		ctx.TriggerMessage, ok = decodeString(raw)
	default:
		return true
	}
	return ok
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func decodeString(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// decodeStrings keeps the string elements of an array and drops the rest.
func decodeStrings(raw json.RawMessage) ([]string, bool) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, false
	}
	out := make([]string, 0, len(elems))
	for _, e := range elems {
		if isNull(e) {
			continue
		}
		if s, ok := decodeString(e); ok {
			out = append(out, s)
		}
	}
	return out, true
}

// decodeTime accepts an RFC 3339 string or Unix milliseconds.
func decodeTime(raw json.RawMessage) (time.Time, bool) {
	if s, ok := decodeString(raw); ok {
		s = strings.TrimSpace(s)
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	}
	var ms int64
	if err := json.Unmarshal(raw, &ms); err == nil {
		return time.UnixMilli(ms).UTC(), true
	}
	return time.Time{}, false
}

func decodeCommits(raw json.RawMessage) ([]GitCommit, bool) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, false
	}
	out := make([]GitCommit, 0, len(elems))
	for _, e := range elems {
		if isNull(e) {
			continue
		}
		if c, ok := ParseCommit(e); ok {
			out = append(out, c)
		}
	}
	return out, true
}
