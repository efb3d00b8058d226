package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/guillermoBallester/sqlmine/internal/core/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectLog_CreatesFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "rejects.jsonl")
	rl, err := NewRejectLog(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, rl.Close()) }()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestNewRejectLog_InvalidPath(t *testing.T) {
	t.Parallel()
	_, err := NewRejectLog("/nonexistent/dir/rejects.jsonl")
	require.Error(t, err)
}

func TestRejectLog_Record_WritesNDJSON(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "rejects.jsonl")
	rl, err := NewRejectLog(path)
	require.NoError(t, err)

	rl.Record(context.Background(), port.Reject{
		Stage: "build",
		Index: 7,
		SQL:   "SELECT 'unterminated",
		Error: "tokenization failed: unterminated quoted string",
	})
	require.NoError(t, rl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var line rejectLine
	require.NoError(t, json.Unmarshal(data, &line))
	assert.Equal(t, "build", line.Stage)
	assert.Equal(t, 7, line.Index)
	assert.Equal(t, "SELECT 'unterminated", line.SQL)
	assert.Contains(t, line.Error, "unterminated")
	assert.NotEmpty(t, line.Timestamp)
}

func TestRejectLog_AppendsAcrossReopen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "rejects.jsonl")

	for i := range 2 {
		rl, err := NewRejectLog(path)
		require.NoError(t, err)
		rl.Record(context.Background(), port.Reject{Stage: "rank", Index: i})
		require.NoError(t, rl.Close())
	}

	assert.Equal(t, 2, countLines(t, path))
}

func TestRejectLog_ConcurrentWrites(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "rejects.jsonl")
	rl, err := NewRejectLog(path)
	require.NoError(t, err)

	const n = 50
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rl.Record(context.Background(), port.Reject{Stage: "build", Index: i, SQL: fmt.Sprintf("SELECT %d", i)})
		}()
	}
	wg.Wait()
	require.NoError(t, rl.Close())

	assert.Equal(t, n, countLines(t, path))
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var line rejectLine
		require.NoError(t, json.Unmarshal(sc.Bytes(), &line))
		n++
	}
	require.NoError(t, sc.Err())
	return n
}
