package eventlog

import (
	"os"
	"path/filepath"
	"testing"

	"betterclaw/internal/devicemodel"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "events.jsonl"), nil)
}

func TestAppendAndReadSince(t *testing.T) {
	l := newTestLog(t)

	entries := []devicemodel.EventLogEntry{
		{Decision: devicemodel.DecisionPush, Reason: "debug", Timestamp: 100},
		{Decision: devicemodel.DecisionDrop, Reason: "dedup", Timestamp: 200},
		{Decision: devicemodel.DecisionDefer, Reason: "outside window", Timestamp: 300},
	}
	for _, e := range entries {
		if err := l.Append(e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := l.ReadSince(150)
	if err != nil {
		t.Fatalf("ReadSince: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries since 150, got %d", len(got))
	}
	if got[0].Timestamp != 200 || got[1].Timestamp != 300 {
		t.Fatalf("unexpected entries: %+v", got)
	}
}

func TestReadSince_ToleratesCorruptLines(t *testing.T) {
	l := newTestLog(t)
	if err := l.Append(devicemodel.EventLogEntry{Timestamp: 1}); err != nil {
		t.Fatal(err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("\nnot json\n\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if err := l.Append(devicemodel.EventLogEntry{Timestamp: 2}); err != nil {
		t.Fatal(err)
	}

	got, err := l.ReadSince(0)
	if err != nil {
		t.Fatalf("ReadSince should tolerate corrupt lines: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 valid entries, got %d", len(got))
	}
}

func TestRotate_NoOpUnderThreshold(t *testing.T) {
	l := newTestLog(t)
	for i := 0; i < 5; i++ {
		if err := l.Append(devicemodel.EventLogEntry{Timestamp: float64(i)}); err != nil {
			t.Fatal(err)
		}
	}
	dropped, err := l.Rotate(1000)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if dropped != 0 {
		t.Fatalf("expected no-op rotate under threshold, dropped %d", dropped)
	}
}

func TestRotate_DropsOldAndExcess(t *testing.T) {
	l := newTestLog(t)
	now := float64(40 * 24 * 3600)

	for i := 0; i < 3; i++ {
		if err := l.Append(devicemodel.EventLogEntry{Timestamp: float64(i)}); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < maxEntries+10; i++ {
		if err := l.Append(devicemodel.EventLogEntry{Timestamp: now}); err != nil {
			t.Fatal(err)
		}
	}

	dropped, err := l.Rotate(now)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if dropped <= 0 {
		t.Fatal("expected entries to be dropped")
	}

	remaining, err := l.ReadSince(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) > maxEntries {
		t.Fatalf("expected at most %d entries after rotate, got %d", maxEntries, len(remaining))
	}
	for _, e := range remaining {
		if e.Timestamp < now-rotateWindowSeconds {
			t.Fatalf("found entry older than rotate window: %v", e.Timestamp)
		}
	}
}
