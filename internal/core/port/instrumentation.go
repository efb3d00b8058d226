package port

import "context"

// Instrumentation records application-level metrics.
type Instrumentation interface {
	IncrementAnalyzed(ctx context.Context, n int64)
	IncrementSkipped(ctx context.Context, n int64)
	RecordBuildDuration(ctx context.Context, ms float64)
	RecordSampleDuration(ctx context.Context, ms float64)
	RecordToolDuration(ctx context.Context, ms float64)
}

// NoopInstrumentation discards all metrics.
type NoopInstrumentation struct{}

func (NoopInstrumentation) IncrementAnalyzed(context.Context, int64)     {}
func (NoopInstrumentation) IncrementSkipped(context.Context, int64)      {}
func (NoopInstrumentation) RecordBuildDuration(context.Context, float64)  {}
func (NoopInstrumentation) RecordSampleDuration(context.Context, float64) {}
func (NoopInstrumentation) RecordToolDuration(context.Context, float64)   {}
