package service

import (
	"context"
	"errors"
	"testing"

	"github.com/guillermoBallester/sqlmine/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock ColumnSampler ---

type mockSampler struct {
	values    map[string][]string // "table.column" -> samples
	err       error
	lastLimit int
}

func (m *mockSampler) SampleColumn(_ context.Context, table, column string, limit int) ([]string, error) {
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	v, ok := m.values[table+"."+column]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v, nil
}

func TestProfilerService_ProfileColumn(t *testing.T) {
	sampler := &mockSampler{values: map[string][]string{
		"devices.serial": {"AB12", "AB13", "AB14"},
	}}
	svc := NewProfilerService(sampler, 50, testLogger(), nil, nil)

	p, err := svc.ProfileColumn(context.Background(), "devices", "serial")
	require.NoError(t, err)
	assert.Equal(t, 50, sampler.lastLimit)
	assert.Equal(t, 3, p.TotalSamples)
	assert.Equal(t, 3, p.UniqueCount)
	assert.Equal(t, domain.ShapeSerial, p.Shape)
}

func TestProfilerService_ProfileColumn_SamplerError(t *testing.T) {
	sampler := &mockSampler{err: errors.New("connection refused")}
	svc := NewProfilerService(sampler, 10, testLogger(), nil, nil)

	_, err := svc.ProfileColumn(context.Background(), "t", "c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sampling t.c")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestProfilerService_ProfileCandidates(t *testing.T) {
	sampler := &mockSampler{values: map[string][]string{
		"devices.serial": {"SN-001A", "SN-002B"},
	}}
	svc := NewProfilerService(sampler, 10, testLogger(), nil, nil)

	got := svc.ProfileCandidates(context.Background(), map[string]string{
		"serial":  "devices",
		"missing": "devices",
		"ref":     domain.GlobalTable,
	})

	require.Len(t, got, 3)
	assert.Equal(t, "missing", got[0].Column)
	assert.Contains(t, got[0].Error, domain.ErrNotFound.Error())
	assert.Equal(t, "ref", got[1].Column)
	assert.NotEmpty(t, got[1].Error)
	assert.Equal(t, "serial", got[2].Column)
	assert.Empty(t, got[2].Error)
	assert.Equal(t, 2, got[2].Profile.TotalSamples)
}

func TestProfilerService_ProfileValues_Empty(t *testing.T) {
	svc := NewProfilerService(&mockSampler{}, 10, testLogger(), nil, nil)

	p := svc.ProfileValues(nil)
	assert.Zero(t, p.TotalSamples)
	assert.Empty(t, p.CharacterComposition.PositionAnalysis)
}

func TestProfilerService_NoSampler(t *testing.T) {
	svc := NewProfilerService(nil, 10, testLogger(), nil, nil)

	assert.False(t, svc.CanSample())
	_, err := svc.ProfileColumn(context.Background(), "devices", "serial")
	assert.ErrorIs(t, err, errNoSampler)

	got := svc.ProfileCandidates(context.Background(), map[string]string{"serial": "devices"})
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Error, "no database configured")
}

func TestProfilerService_NilLogger(t *testing.T) {
	svc := NewProfilerService(&mockSampler{err: errors.New("connection refused")}, 10, nil, nil, nil)

	_, err := svc.ProfileColumn(context.Background(), "t", "c")
	assert.ErrorContains(t, err, "connection refused")
}
