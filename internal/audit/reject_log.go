// Package audit persists corpus inputs the engine could not analyze.
package audit

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/guillermoBallester/sqlmine/internal/core/port"
)

// rejectLine is the NDJSON-serializable form of a reject.
type rejectLine struct {
	Timestamp string `json:"ts"`
	Stage     string `json:"stage"`
	Index     int    `json:"index"`
	SQL       string `json:"sql"`
	Error     string `json:"error"`
}

// RejectLog appends rejects as NDJSON (one JSON object per line) to a file.
type RejectLog struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewRejectLog opens (or creates) the file at path for append-only writing.
func NewRejectLog(path string) (*RejectLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &RejectLog{file: f, enc: json.NewEncoder(f)}, nil
}

func (l *RejectLog) Record(_ context.Context, r port.Reject) {
	line := rejectLine{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Stage:     r.Stage,
		Index:     r.Index,
		SQL:       r.SQL,
		Error:     r.Error,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.enc.Encode(line) // best-effort
}

func (l *RejectLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
