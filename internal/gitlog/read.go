package gitlog

import (
	"bufio"
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/blackwell-systems/bip/internal/session"
)

const recordSep = "\x1e"

// logFormat prints one header line per commit in the
// hash|author|timestamp|message layout that session.ParseLogLine reads.
const logFormat = recordSep + "%H|%an|%aI|%s"

// ReadRecent runs git log in dir and returns up to n commits, oldest first,
// with changed files and line counts from --numstat.
func ReadRecent(ctx context.Context, dir string, n int) ([]session.GitCommit, error) {
	if n <= 0 {
		return nil, nil
	}

	cmd := exec.CommandContext(ctx, "git", "log", "-n", strconv.Itoa(n), "--numstat", "--format="+logFormat)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, errors.Newf("git log in %s: %s", dir, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, errors.Wrap(err, "running git log")
	}

	commits := parseLog(string(out))
	for i, j := 0, len(commits)-1; i < j; i, j = i+1, j-1 {
		commits[i], commits[j] = commits[j], commits[i]
	}
	return commits, nil
}

// parseLog reads the output of git log with logFormat and --numstat.
func parseLog(out string) []session.GitCommit {
	var commits []session.GitCommit
	for _, record := range strings.Split(out, recordSep) {
		if strings.TrimSpace(record) == "" {
			continue
		}

		sc := bufio.NewScanner(strings.NewReader(record))
		if !sc.Scan() {
			continue
		}
		// The subject may itself contain "|", so it takes the remainder.
		parts := strings.SplitN(sc.Text(), "|", 4)
		if len(parts) < 4 {
			continue
		}
		c := session.GitCommit{
			Hash:      parts[0],
			Timestamp: parts[2],
			Message:   strings.TrimSpace(parts[3]),
		}

		adds, dels := 0, 0
		counted := false
		for sc.Scan() {
			fields := strings.SplitN(sc.Text(), "\t", 3)
			if len(fields) != 3 {
				continue
			}
			c.FilesChanged = append(c.FilesChanged, fields[2])
			// Binary files report "-" for both counts.
			if a, err := strconv.Atoi(fields[0]); err == nil {
				adds += a
				counted = true
			}
			if d, err := strconv.Atoi(fields[1]); err == nil {
				dels += d
				counted = true
			}
		}
		if counted {
			c.Additions, c.Deletions = &adds, &dels
		}
		commits = append(commits, c)
	}
	return commits
}

// Merge appends the incoming commits not already present by hash.
func Merge(existing, incoming []session.GitCommit) []session.GitCommit {
	seen := make(map[string]bool, len(existing))
	for _, c := range existing {
		if c.Hash != "" {
			seen[c.Hash] = true
		}
	}
	out := append([]session.GitCommit(nil), existing...)
	for _, c := range incoming {
		if c.Hash != "" && seen[c.Hash] {
			continue
		}
		seen[c.Hash] = true
		out = append(out, c)
	}
	return out
}
