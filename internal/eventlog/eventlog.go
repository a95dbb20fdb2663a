// Package eventlog implements component A: a durable, append-only
// newline-delimited JSON journal of every event the pipeline decided on.
// Grounded on the teacher's filestore.AtomicWrite idiom, adapted from a
// single JSON document to a line-oriented append log.
package eventlog

import (
	"bufio"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"

	"betterclaw/internal/devicemodel"
	"betterclaw/internal/filestore"
	"betterclaw/internal/logging"
)

const (
	maxEntries    = 10000
	rotateWindowSeconds = 30 * 24 * 3600
)

// entryOnDisk adds a UUID to each record, a supplemental field for
// host-side deduplication (spec.md is silent on record identity). The ID is
// assigned at Append time; Rotate assigns fresh IDs to the entries it
// rewrites, so an ID does not survive a rotation.
type entryOnDisk struct {
	ID string `json:"id"`
	devicemodel.EventLogEntry
}

// Log is component A. One file path, single-writer from within the process;
// callers are responsible for serializing concurrent Append calls (the
// pipeline's single serialization lane provides this).
type Log struct {
	path   string
	logger logging.Logger

	mu sync.Mutex
}

// New constructs a Log over the given file path.
func New(path string, logger logging.Logger) *Log {
	return &Log{path: path, logger: logging.OrNop(logger)}
}

// Append writes entry as one JSON line, creating the parent directory on
// first call. No ordering guarantee under concurrent appends.
func (l *Log) Append(entry devicemodel.EventLogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := filestore.EnsureParentDir(l.path); err != nil {
		return err
	}
	rec := entryOnDisk{ID: uuid.NewString(), EventLogEntry: entry}
	data, err := marshalLine(rec)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(data)
	return err
}

// ReadSince returns every entry with timestamp >= sinceEpoch, parsing
// tolerantly: blank lines and corrupt lines are skipped, never fatal.
func (l *Log) ReadSince(sinceEpoch float64) ([]devicemodel.EventLogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readAllLocked(sinceEpoch)
}

// ReadAll returns the full log, tolerant of corrupt lines.
func (l *Log) ReadAll() ([]devicemodel.EventLogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.readAllLocked(0)
}

func (l *Log) readAllLocked(sinceEpoch float64) ([]devicemodel.EventLogEntry, error) {
	data, err := filestore.ReadFileOrEmpty(l.path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	var out []devicemodel.EventLogEntry
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec entryOnDisk
		if err := unmarshalLine([]byte(line), &rec); err != nil {
			l.logger.Warn("eventlog: skipping corrupt line: %v", err)
			continue
		}
		if rec.Timestamp >= sinceEpoch {
			out = append(out, rec.EventLogEntry)
		}
	}
	return out, nil
}

// Rotate is a no-op if the log has <= 10,000 entries. Otherwise it keeps
// entries within the last 30 days, truncates to the most recent 10,000, and
// rewrites the file wholesale. Not crash-atomic by requirement (spec.md
// §4.A): a partial rewrite may lose tail entries on crash, acceptable for
// best-effort history. Returns the number of entries dropped.
func (l *Log) Rotate(now float64) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	all, err := l.readAllLocked(0)
	if err != nil {
		return 0, err
	}
	if len(all) <= maxEntries {
		return 0, nil
	}

	cutoff := now - rotateWindowSeconds
	kept := make([]devicemodel.EventLogEntry, 0, len(all))
	for _, e := range all {
		if e.Timestamp >= cutoff {
			kept = append(kept, e)
		}
	}
	if len(kept) > maxEntries {
		kept = kept[len(kept)-maxEntries:]
	}
	dropped := len(all) - len(kept)
	if dropped <= 0 {
		return 0, nil
	}

	var b strings.Builder
	for _, e := range kept {
		rec := entryOnDisk{ID: uuid.NewString(), EventLogEntry: e}
		data, err := marshalLine(rec)
		if err != nil {
			return 0, err
		}
		b.Write(data)
	}
	if err := os.WriteFile(l.path, []byte(b.String()), 0o644); err != nil {
		return 0, err
	}
	return dropped, nil
}
