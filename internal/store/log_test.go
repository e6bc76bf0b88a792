package store

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestLogWriter_WriteAndRead(t *testing.T) {
	tempDir := t.TempDir()

	lw, err := NewLogWriter(tempDir, "run-1")
	if err != nil {
		t.Fatalf("NewLogWriter failed: %v", err)
	}

	lines := []struct{ stream, line string }{
		{"stdout", "gjh 20160310"},
		{"stderr", "warning: fixed variable"},
		{"stdout", "wrote rosen.gjh"},
	}
	for _, l := range lines {
		if err := lw.WriteLine(l.stream, l.line); err != nil {
			t.Fatalf("WriteLine failed: %v", err)
		}
	}
	if err := lw.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	entries, err := ReadLog(tempDir, "run-1")
	if err != nil {
		t.Fatalf("ReadLog failed: %v", err)
	}
	if len(entries) != len(lines) {
		t.Fatalf("Expected %d entries, got %d", len(lines), len(entries))
	}
	for i, l := range lines {
		if entries[i].Stream != l.stream || entries[i].Line != l.line {
			t.Errorf("Entry %d = %+v, want %s/%s", i, entries[i], l.stream, l.line)
		}
		if entries[i].Timestamp.IsZero() {
			t.Errorf("Entry %d has zero timestamp", i)
		}
	}
}

func TestLogWriter_Flush(t *testing.T) {
	tempDir := t.TempDir()
	lw, err := NewLogWriter(tempDir, "run-1")
	if err != nil {
		t.Fatalf("NewLogWriter failed: %v", err)
	}
	defer lw.Close()

	lw.WriteLine("stdout", "hello")
	if err := lw.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	entries, err := ReadLog(tempDir, "run-1")
	if err != nil {
		t.Fatalf("ReadLog failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected flushed entry to be readable, got %d entries", len(entries))
	}
}

func TestReadLog_NotFound(t *testing.T) {
	_, err := ReadLog(t.TempDir(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestNewLogWriter_EmptyRunID(t *testing.T) {
	if _, err := NewLogWriter(t.TempDir(), ""); err == nil {
		t.Error("Expected error for empty runID")
	}
}

func TestLogWriter_ConcurrentWrites(t *testing.T) {
	tempDir := t.TempDir()
	lw, err := NewLogWriter(tempDir, "run-1")
	if err != nil {
		t.Fatalf("NewLogWriter failed: %v", err)
	}

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				lw.WriteLine("stdout", fmt.Sprintf("g%d line %d", g, i))
			}
		}(g)
	}
	wg.Wait()
	if err := lw.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	entries, err := ReadLog(tempDir, "run-1")
	if err != nil {
		t.Fatalf("ReadLog failed: %v", err)
	}
	if len(entries) != 100 {
		t.Errorf("Expected 100 entries, got %d", len(entries))
	}
}
