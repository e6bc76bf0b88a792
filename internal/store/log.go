package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LogEntry is one line of solver output, stored as a JSON line in solver.jsonl.
type LogEntry struct {
	Stream    string    `json:"stream"`
	Line      string    `json:"line"`
	Timestamp time.Time `json:"timestamp"`
}

// LogWriter appends solver output to a JSONL file.
// It uses buffered I/O and is safe for concurrent use.
type LogWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	path   string
}

func logPath(baseDir, runID string) string {
	return filepath.Join(baseDir, "runs", runID, "solver.jsonl")
}

// NewLogWriter creates the log file at <baseDir>/runs/<runID>/solver.jsonl.
func NewLogWriter(baseDir, runID string) (*LogWriter, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}
	path := logPath(baseDir, runID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return &LogWriter{
		file:   file,
		writer: bufio.NewWriterSize(file, 64*1024),
		path:   path,
	}, nil
}

// WriteLine appends one line of solver output.
func (lw *LogWriter) WriteLine(stream, line string) error {
	return lw.Write(LogEntry{Stream: stream, Line: line, Timestamp: time.Now()})
}

// Write appends an entry. It is buffered until Flush or Close.
func (lw *LogWriter) Write(entry LogEntry) error {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}
	if _, err := lw.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write log entry: %w", err)
	}
	if err := lw.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	return nil
}

// Flush writes buffered entries and syncs the file.
func (lw *LogWriter) Flush() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	if err := lw.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush log writer: %w", err)
	}
	if err := lw.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync log file: %w", err)
	}
	return nil
}

// Close flushes buffered data and closes the file.
func (lw *LogWriter) Close() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	if err := lw.writer.Flush(); err != nil {
		lw.file.Close()
		return fmt.Errorf("failed to flush on close: %w", err)
	}
	if err := lw.file.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	return nil
}

// Path returns the filesystem path to the log file.
func (lw *LogWriter) Path() string {
	return lw.path
}

// ReadLog returns every entry logged for runID.
func ReadLog(baseDir, runID string) ([]LogEntry, error) {
	file, err := os.Open(logPath(baseDir, runID))
	if os.IsNotExist(err) {
		return nil, &NotFoundError{RunID: runID}
	} else if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	return decodeLog(file)
}

func decodeLog(r io.Reader) ([]LogEntry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var entries []LogEntry
	for scanner.Scan() {
		var entry LogEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal log entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan log line: %w", err)
	}
	return entries, nil
}
