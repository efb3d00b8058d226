package port

import "context"

// Reject is a corpus input that could not be analyzed.
type Reject struct {
	Stage string // "rank" or "build"
	Index int
	SQL   string
	Error string
}

// RejectRecorder records skipped corpus inputs.
type RejectRecorder interface {
	Record(ctx context.Context, r Reject)
	Close() error
}

// NoopRejectRecorder discards all rejects.
type NoopRejectRecorder struct{}

func (NoopRejectRecorder) Record(context.Context, Reject) {}
func (NoopRejectRecorder) Close() error                   { return nil }
