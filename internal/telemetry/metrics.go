package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/guillermoBallester/sqlmine"

// Instruments holds pre-created OTel metric instruments.
type Instruments struct {
	Analyzed       metric.Int64Counter
	Skipped        metric.Int64Counter
	BuildDuration  metric.Float64Histogram
	SampleDuration metric.Float64Histogram
	ToolDuration   metric.Float64Histogram
}

// NewInstruments creates metric instruments from the global MeterProvider.
func NewInstruments() *Instruments {
	return newInstrumentsFromMeter(otel.Meter(meterName))
}

// NoopInstruments returns instruments that record nothing.
func NoopInstruments() *Instruments {
	return newInstrumentsFromMeter(noop.NewMeterProvider().Meter(meterName))
}

func newInstrumentsFromMeter(meter metric.Meter) *Instruments {
	// OTel SDK returns noop instruments on error; safe to discard.
	analyzed, _ := meter.Int64Counter("sqlmine.queries.analyzed",
		metric.WithDescription("Corpus queries turned into knowledge entries"),
	)
	skipped, _ := meter.Int64Counter("sqlmine.queries.skipped",
		metric.WithDescription("Corpus queries skipped because they could not be tokenized"),
	)
	buildDuration, _ := meter.Float64Histogram("sqlmine.build.duration",
		metric.WithDescription("Knowledge base build duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	sampleDuration, _ := meter.Float64Histogram("sqlmine.sample.duration",
		metric.WithDescription("Column sampling query duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	toolDuration, _ := meter.Float64Histogram("sqlmine.tool.duration",
		metric.WithDescription("MCP tool call duration in milliseconds"),
		metric.WithUnit("ms"),
	)

	return &Instruments{
		Analyzed:       analyzed,
		Skipped:        skipped,
		BuildDuration:  buildDuration,
		SampleDuration: sampleDuration,
		ToolDuration:   toolDuration,
	}
}

func (i *Instruments) IncrementAnalyzed(ctx context.Context, n int64) {
	i.Analyzed.Add(ctx, n)
}

func (i *Instruments) IncrementSkipped(ctx context.Context, n int64) {
	i.Skipped.Add(ctx, n)
}

func (i *Instruments) RecordBuildDuration(ctx context.Context, ms float64) {
	i.BuildDuration.Record(ctx, ms)
}

func (i *Instruments) RecordSampleDuration(ctx context.Context, ms float64) {
	i.SampleDuration.Record(ctx, ms)
}

func (i *Instruments) RecordToolDuration(ctx context.Context, ms float64) {
	i.ToolDuration.Record(ctx, ms)
}
