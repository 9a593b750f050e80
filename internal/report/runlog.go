package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// RunLog persists one NDJSON line per completed run, sharded into one file
// per calendar day. Lines are append-only; Scan tolerates a torn final line
// from an interrupted writer.
type RunLog struct {
	dir string
}

// NewRunLog creates the log directory if needed.
func NewRunLog(dir string) (*RunLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run log dir: %w", err)
	}
	return &RunLog{dir: dir}, nil
}

func (l *RunLog) fileFor(t time.Time) string {
	return filepath.Join(l.dir, "runs-"+t.UTC().Format("2006-01-02")+".ndjson")
}

// Append writes the summary as one NDJSON line to the current day's file.
func (l *RunLog) Append(summary *RunSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode run entry: %w", err)
	}

	f, err := os.OpenFile(l.fileFor(summary.StartedAt), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open run log: %w", err)
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("append run entry: %w", err)
	}
	return f.Close()
}

// Scan returns all runs started at or after since, oldest first.
func (l *RunLog) Scan(since time.Time) ([]*RunSummary, error) {
	pattern := filepath.Join(l.dir, "runs-*.ndjson")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("list run log: %w", err)
	}
	sort.Strings(files)

	var runs []*RunSummary
	for _, file := range files {
		entries, err := l.scanFile(file, since)
		if err != nil {
			return nil, err
		}
		runs = append(runs, entries...)
	}
	return runs, nil
}

func (l *RunLog) scanFile(path string, since time.Time) ([]*RunSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open run log %s: %w", path, err)
	}
	defer f.Close()

	var runs []*RunSummary
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var s RunSummary
		if err := json.Unmarshal(line, &s); err != nil {
			// A torn final line from a crashed writer is not worth
			// failing the whole scan over.
			continue
		}
		if s.StartedAt.Before(since) {
			continue
		}
		runs = append(runs, &s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read run log %s: %w", path, err)
	}
	return runs, nil
}
