// Package report writes run progress as JSON lines, one envelope per event.
package report

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

// Event types.
const (
	TypeTask   = "task"
	TypeScroll = "scroll"
	TypeExport = "export"
	TypeRun    = "run"
)

// Writer writes JSON-lines envelopes to an io.Writer (default os.Stdout).
// Safe for concurrent use.
type Writer struct {
	mu    sync.Mutex
	enc   *json.Encoder
	runID string
}

// New creates a Writer for one run. If w is nil, os.Stdout is used.
func New(w io.Writer, runID string) *Writer {
	if w == nil {
		w = os.Stdout
	}
	return &Writer{enc: json.NewEncoder(w), runID: runID}
}

// Write emits one envelope.
func (r *Writer) Write(typ string, data any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enc.Encode(envelope{
		Type:      typ,
		RunID:     r.runID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	})
}

type envelope struct {
	Type      string `json:"type"`
	RunID     string `json:"run_id"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
	Data      any    `json:"data"`
}

// Export describes the files written for an expanded page.
type Export struct {
	Files   []string `json:"files"`
	Hash    string   `json:"html_hash"`
	Regions int      `json:"regions"`
	Title   string   `json:"title,omitempty"`
}

// Run is the final summary of a run.
type Run struct {
	URL         string        `json:"url"`
	Profile     string        `json:"profile"`
	Tasks       int           `json:"tasks"`
	Activations int           `json:"activations"`
	Hidden      int           `json:"hidden"`
	Duration    time.Duration `json:"duration"`
	Interrupted bool          `json:"interrupted,omitempty"`
}
