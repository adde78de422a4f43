// Package calllog records every successful model call in an append-only
// text file. Entries are human-readable blocks; the file is never rotated
// or truncated.
package calllog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/alexleeyt8888/StockFanAI-Bot/internal/ports"
)

var _ ports.CallLogger = (*File)(nil)

// File appends call log entries to a file. It is safe for concurrent use.
type File struct {
	path string
	mu   sync.Mutex
}

// New creates a call log writing to path, creating its directory if needed.
// The file itself is created on the first entry.
func New(path string) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("call log path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create call log directory: %w", err)
	}
	return &File{path: path}, nil
}

// Path returns the file backing this log.
func (f *File) Path() string { return f.path }

// Append writes entry to the file. Write failures are logged and otherwise
// ignored so that a broken log never fails a model call.
func (f *File) Append(ctx context.Context, entry ports.CallLogEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		slog.ErrorContext(ctx, "failed to open call log", "path", f.path, "error", err)
		return
	}
	defer file.Close()

	if err := WriteEntry(file, entry); err != nil {
		slog.ErrorContext(ctx, "failed to write call log entry", "path", f.path, "error", err)
	}
}

// generationConfig is the parameter summary written for each entry. Field
// order is the order they appear in the file.
type generationConfig struct {
	Temperature      *float64 `json:"temperature"`
	TopP             *float64 `json:"top_p"`
	TopK             *int     `json:"top_k"`
	ResponseMIMEType *string  `json:"response_mime_type"`
	ToolsPresent     bool     `json:"tools_present"`
}

// WriteEntry renders one entry in the call log format:
//
//	--- LLM Call Log Entry ---
//	Timestamp: 2025-06-01T10:00:00.000000+02:00
//	Function: draft
//	Model: gemini-2.5-flash
//	Generation Config: {"temperature":0.2,...}
//	--- Prompt ---
//	...
//	--- Response ---
//	...
//	--------------------------
//
// followed by a blank line.
func WriteEntry(w io.Writer, entry ports.CallLogEntry) error {
	config := generationConfig{
		Temperature:  entry.Temperature,
		TopP:         entry.TopP,
		TopK:         entry.TopK,
		ToolsPresent: entry.ToolsPresent,
	}
	if entry.MIMEType != "" {
		config.ResponseMIMEType = &entry.MIMEType
	}
	configJSON, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode generation config: %w", err)
	}

	var b strings.Builder
	b.WriteString("--- LLM Call Log Entry ---\n")
	fmt.Fprintf(&b, "Timestamp: %s\n", entry.Timestamp.Format("2006-01-02T15:04:05.000000Z07:00"))
	fmt.Fprintf(&b, "Function: %s\n", entry.Operation)
	fmt.Fprintf(&b, "Model: %s\n", entry.Model)
	fmt.Fprintf(&b, "Generation Config: %s\n", configJSON)
	fmt.Fprintf(&b, "--- Prompt ---\n%s\n", entry.Prompt)
	fmt.Fprintf(&b, "--- Response ---\n%s\n", entry.Response)
	b.WriteString("--------------------------\n\n")

	_, err = io.WriteString(w, b.String())
	return err
}

// Discard is a ports.CallLogger that drops every entry.
type Discard struct{}

// Append implements ports.CallLogger.
func (Discard) Append(context.Context, ports.CallLogEntry) {}
