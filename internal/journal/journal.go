// Package journal keeps a plain-text history of workflow runs. One line per
// outcome, append-only, so `rolegate history` can answer "what ran, when, and
// how did it go" without parsing engine state files.
package journal

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileName is the history file kept under the workspace logs directory.
const FileName = "history.log"

// Outcome classifies how a run ended.
type Outcome string

const (
	OutcomeComplete Outcome = "complete"
	OutcomeBlocked  Outcome = "blocked"
	OutcomeFailed   Outcome = "failed"
)

// Journal appends run outcomes to a history file. Safe for concurrent use.
// Recording is best-effort: a run never fails because its history line could
// not be written.
type Journal struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// Open prepares a journal backed by the given file, creating the parent
// directory if needed.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &Journal{path: path, now: time.Now}, nil
}

// Path returns the file backing this journal.
func (j *Journal) Path() string {
	if j == nil {
		return ""
	}
	return j.path
}

// Record appends one outcome line for the named target. Detail is optional
// context such as a failure reason or the gates a blocked run is waiting on.
func (j *Journal) Record(targetID string, outcome Outcome, detail string) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	line := fmt.Sprintf("%s %-8s %s",
		j.now().UTC().Format(time.RFC3339),
		string(outcome),
		strings.TrimSpace(targetID),
	)
	if detail = strings.TrimSpace(detail); detail != "" {
		line += " " + detail
	}
	file, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer file.Close()
	_, _ = file.WriteString(line + "\n")
}

// Recent returns up to maxLines of the most recent history entries, oldest
// first. A missing history file yields nil.
func (j *Journal) Recent(maxLines int) []string {
	if j == nil || maxLines <= 0 {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	file, err := os.Open(j.path)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return lines
}
