package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/guillermoBallester/sqlmine/internal/adapter/pgscan"
	"github.com/guillermoBallester/sqlmine/internal/core/domain"
	"github.com/guillermoBallester/sqlmine/internal/core/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- mock RejectRecorder ---

type mockRejects struct {
	mu      sync.Mutex
	rejects []port.Reject
}

func (m *mockRejects) Record(_ context.Context, r port.Reject) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejects = append(m.rejects, r)
}

func (m *mockRejects) Close() error { return nil }

func newMiningService(t *testing.T, workers int) (*MiningService, *mockRejects) {
	t.Helper()
	rejects := &mockRejects{}
	opts := DefaultMiningOptions()
	opts.Workers = workers
	return NewMiningService(pgscan.NewTokenizer(), rejects, testLogger(), nil, nil, opts), rejects
}

// --- Normalize ---

func TestNormalize(t *testing.T) {
	svc, _ := newMiningService(t, 1)

	tests := []struct {
		name string
		sql  string
		want string
	}{
		{"literal replaced", "select * from t where id=2", "SELECT * FROM t WHERE id = ?"},
		{"string literal", "SELECT name FROM users WHERE email = 'a@b.c'", "SELECT name FROM users WHERE email = ?"},
		{"negative number", "SELECT a FROM t WHERE x = -5", "SELECT a FROM t WHERE x = ?"},
		{"in list", "SELECT a FROM t WHERE b IN (1, 2,3)", "SELECT a FROM t WHERE b IN (?, ?, ?)"},
		{"function call", "select count(*) from t", "SELECT count(*) FROM t"},
		{"quoted identifier with digits", `SELECT "col1" FROM t WHERE x = 'a'`, `SELECT "col1" FROM t WHERE x = ?`},
		{"qualified names", "SELECT t.a FROM s.t", "SELECT t.a FROM s.t"},
		{"typecast", "SELECT a::text FROM t", "SELECT a::text FROM t"},
		{"question mark placeholder", "SELECT a FROM t WHERE id=?", "SELECT a FROM t WHERE id = ?"},
		{"dollar placeholder", "SELECT a FROM t WHERE id = $1", "SELECT a FROM t WHERE id = $1"},
		{"comments dropped", "SELECT a -- trailing\nFROM t /* block */", "SELECT a FROM t"},
		{"join keywords collapsed", "select a from t left   outer join u on t.id = u.id", "SELECT a FROM t LEFT OUTER JOIN u ON t.id = u.id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Normalize(tt.sql)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	svc, _ := newMiningService(t, 1)

	queries := []string{
		"SELECT * FROM t WHERE id = 1",
		"select a, b as c from t1 join t2 on t1.id = t2.id where t1.x = 'v' order by a desc",
		"SELECT count(*) FROM orders GROUP BY status HAVING count(*) > 10",
		"INSERT INTO logs (level, msg) VALUES ('info', 'hello')",
		"SELECT `id` FROM `users` WHERE `name` LIKE 'AB12%'",
		"SELECT * FROM {table} WHERE id = %s",
		"UPDATE accounts SET balance = balance - 10.5 WHERE id = 42",
	}

	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			once, err := svc.Normalize(q)
			require.NoError(t, err)
			twice, err := svc.Normalize(once)
			require.NoError(t, err)
			assert.Equal(t, once, twice)
		})
	}
}

func TestNormalize_LiteralInvariance(t *testing.T) {
	svc, _ := newMiningService(t, 1)

	a, err := svc.Normalize("SELECT * FROM t WHERE id = 1 AND name = 'x'")
	require.NoError(t, err)
	b, err := svc.Normalize("select *\n  from t\n where id = 2 and name = 'yyy'")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNormalize_TokenizeError(t *testing.T) {
	svc, _ := newMiningService(t, 1)

	_, err := svc.Normalize("SELECT 'unterminated")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTokenize))
}

// --- Rank ---

func TestRank_Dedup(t *testing.T) {
	svc, _ := newMiningService(t, 1)

	corpus := []string{
		"SELECT * FROM t WHERE id=1",
		"SELECT * FROM t WHERE id=2",
		"SELECT * FROM t WHERE id=2",
	}
	got := svc.Rank(context.Background(), corpus, 10)

	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].OccurrenceCount)
	assert.Equal(t, "SELECT * FROM t WHERE id = ?", got[0].ParameterizedForm)
	assert.Equal(t, "SELECT * FROM t WHERE id=1", got[0].Exemplar)
}

func TestRank_OrderAndTruncation(t *testing.T) {
	svc, _ := newMiningService(t, 1)

	corpus := []string{
		"SELECT a FROM one WHERE x = 1",
		"SELECT b FROM two WHERE x = 1",
		"SELECT b FROM two WHERE x = 2",
		"SELECT c FROM three WHERE x = 1",
		"SELECT c FROM three WHERE x = 2",
	}

	all := svc.Rank(context.Background(), corpus, 0)
	require.Len(t, all, 3)
	assert.Equal(t, "SELECT b FROM two WHERE x = ?", all[0].ParameterizedForm, "ties keep first-seen order")
	assert.Equal(t, "SELECT c FROM three WHERE x = ?", all[1].ParameterizedForm)
	assert.Equal(t, 1, all[2].OccurrenceCount)

	top := svc.Rank(context.Background(), corpus, 2)
	assert.Len(t, top, 2)
}

func TestRank_SkipsUntokenizable(t *testing.T) {
	svc, rejects := newMiningService(t, 1)

	got := svc.Rank(context.Background(), []string{"SELECT 1", "SELECT 'oops"}, 10)
	require.Len(t, got, 1)
	require.Len(t, rejects.rejects, 1)
	assert.Equal(t, "rank", rejects.rejects[0].Stage)
	assert.Equal(t, 1, rejects.rejects[0].Index)
}

func TestRank_EmptyCorpus(t *testing.T) {
	svc, _ := newMiningService(t, 1)

	got := svc.Rank(context.Background(), nil, 5)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

// --- Analyze ---

func TestAnalyze_TablesColumnsJoins(t *testing.T) {
	svc, _ := newMiningService(t, 1)

	sql := "SELECT a, b AS c FROM t1 JOIN t2 ON t1.id = t2.id WHERE t1.x = 'v'"
	e, err := svc.Analyze(sql)
	require.NoError(t, err)

	assert.Equal(t, sql, e.SQL)
	assert.Equal(t, []string{"t1", "t2"}, e.Tables)
	assert.Equal(t, []string{"a", "c", "x"}, e.Columns)
	require.Len(t, e.Joins, 1)
	assert.Contains(t, e.Joins[0].Type, "JOIN")
	assert.Equal(t, "t2", e.Joins[0].Table)
	assert.Equal(t, "t1.id = t2.id", e.Joins[0].On)
	require.Len(t, e.Filters, 1)
	assert.Equal(t, "t1.x = 'v'", e.Filters[0])
}

func TestAnalyze_GroupOrder(t *testing.T) {
	svc, _ := newMiningService(t, 1)

	e, err := svc.Analyze("SELECT a FROM t GROUP BY a ORDER BY a DESC")
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, e.GroupBy)
	assert.Equal(t, []string{"a DESC"}, e.OrderBy)
	assert.Equal(t, []string{"t"}, e.Tables)
	assert.Equal(t, []string{"a"}, e.Columns)
}

func TestAnalyze_Clauses(t *testing.T) {
	svc, _ := newMiningService(t, 1)

	tests := []struct {
		name    string
		sql     string
		tables  []string
		columns []string
		joins   []domain.JoinInfo
		filters []string
		groupBy []string
		orderBy []string
	}{
		{
			name:    "aliased tables with left join",
			sql:     "SELECT u.name, o.total FROM users u LEFT JOIN orders o ON u.id = o.user_id WHERE o.total > 100 ORDER BY o.total DESC",
			tables:  []string{"orders", "users"},
			columns: []string{"name", "total"},
			joins:   []domain.JoinInfo{{Type: "LEFT JOIN", Table: "orders", On: "u.id = o.user_id"}},
			filters: []string{"o.total > 100"},
			groupBy: []string{},
			orderBy: []string{"o.total DESC"},
		},
		{
			name:    "comma separated from list",
			sql:     "SELECT x FROM a, b WHERE a.id = b.id",
			tables:  []string{"a", "b"},
			columns: []string{"id", "x"},
			joins:   []domain.JoinInfo{},
			filters: []string{"a.id = b.id"},
			groupBy: []string{},
			orderBy: []string{},
		},
		{
			name:    "subquery is not a table but its tables are",
			sql:     "SELECT s.a FROM (SELECT a FROM inner_t) s WHERE s.a = 1",
			tables:  []string{"inner_t"},
			columns: []string{"a"},
			joins:   []domain.JoinInfo{},
			filters: []string{"s.a = 1"},
			groupBy: []string{},
			orderBy: []string{},
		},
		{
			name:    "nested boolean groups",
			sql:     "SELECT id FROM items WHERE a = 1 AND (b = 2 OR c LIKE 'x%') LIMIT 5",
			tables:  []string{"items"},
			columns: []string{"a", "b", "c", "id"},
			joins:   []domain.JoinInfo{},
			filters: []string{"a = 1 AND (b = 2 OR c LIKE 'x%')"},
			groupBy: []string{},
			orderBy: []string{},
		},
		{
			name:    "aggregate arguments and aliases",
			sql:     "SELECT status, count(*) AS n, max(price) FROM products GROUP BY status ORDER BY n DESC, status",
			tables:  []string{"products"},
			columns: []string{"n", "price", "status"},
			joins:   []domain.JoinInfo{},
			filters: []string{},
			groupBy: []string{"status"},
			orderBy: []string{"n DESC", "status"},
		},
		{
			name:    "join without on",
			sql:     "SELECT a FROM t1 CROSS JOIN t2",
			tables:  []string{"t1", "t2"},
			columns: []string{"a"},
			joins:   []domain.JoinInfo{{Type: "CROSS JOIN", Table: "t2", On: ""}},
			filters: []string{},
			groupBy: []string{},
			orderBy: []string{},
		},
		{
			name:    "join on stops at next join",
			sql:     "SELECT p.id FROM p JOIN q ON p.id = q.pid JOIN r ON q.id = r.qid",
			tables:  []string{"p", "q", "r"},
			columns: []string{"id"},
			joins: []domain.JoinInfo{
				{Type: "JOIN", Table: "q", On: "p.id = q.pid"},
				{Type: "JOIN", Table: "r", On: "q.id = r.qid"},
			},
			filters: []string{},
			groupBy: []string{},
			orderBy: []string{},
		},
		{
			name:    "insert target",
			sql:     "INSERT INTO logs (level, msg) VALUES ('info', 'hi')",
			tables:  []string{"logs"},
			columns: []string{},
			joins:   []domain.JoinInfo{},
			filters: []string{},
			groupBy: []string{},
			orderBy: []string{},
		},
		{
			name:    "wildcard never a column",
			sql:     "SELECT * FROM t WHERE t.serial = 'AB1234CD'",
			tables:  []string{"t"},
			columns: []string{"serial"},
			joins:   []domain.JoinInfo{},
			filters: []string{"t.serial = 'AB1234CD'"},
			groupBy: []string{},
			orderBy: []string{},
		},
		{
			name:    "mysql backticks",
			sql:     "SELECT `id` FROM `users` WHERE `code` = 'X1Y2Z3'",
			tables:  []string{"users"},
			columns: []string{"code", "id"},
			joins:   []domain.JoinInfo{},
			filters: []string{"`code` = 'X1Y2Z3'"},
			groupBy: []string{},
			orderBy: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := svc.Analyze(tt.sql)
			require.NoError(t, err)
			assert.Equal(t, tt.tables, e.Tables, "tables")
			assert.Equal(t, tt.columns, e.Columns, "columns")
			assert.Equal(t, tt.joins, e.Joins, "joins")
			assert.Equal(t, tt.filters, e.Filters, "filters")
			assert.Equal(t, tt.groupBy, e.GroupBy, "group_by")
			assert.Equal(t, tt.orderBy, e.OrderBy, "order_by")
		})
	}
}

func TestAnalyze_NoStructure(t *testing.T) {
	svc, _ := newMiningService(t, 1)

	e, err := svc.Analyze("SELECT 1")
	require.NoError(t, err)
	assert.Empty(t, e.Tables)
	assert.Empty(t, e.Columns)
	assert.NotNil(t, e.Joins)
	assert.NotNil(t, e.Filters)
}

func TestAnalyze_Errors(t *testing.T) {
	svc, _ := newMiningService(t, 1)

	_, err := svc.Analyze("SELECT \"unterminated FROM t")
	assert.ErrorIs(t, err, domain.ErrTokenize)

	_, err = svc.Analyze("   -- only a comment")
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
}

// --- Build ---

func TestBuild_SkipsFailuresAndKeepsOrder(t *testing.T) {
	svc, rejects := newMiningService(t, 1)

	corpus := []string{
		"SELECT a FROM t1",
		"SELECT 'broken FROM t2",
		"SELECT b FROM t3",
	}
	kb, err := svc.Build(context.Background(), corpus)
	require.NoError(t, err)

	require.Len(t, kb.Entries, 2)
	assert.Equal(t, "SELECT a FROM t1", kb.Entries[0].SQL)
	assert.Equal(t, "SELECT b FROM t3", kb.Entries[1].SQL)
	assert.Equal(t, 1, kb.Skipped)
	require.Len(t, kb.Failures, 1)
	assert.Equal(t, 1, kb.Failures[0].Index)

	require.Len(t, rejects.rejects, 1)
	assert.Equal(t, "build", rejects.rejects[0].Stage)
	assert.Equal(t, "SELECT 'broken FROM t2", rejects.rejects[0].SQL)
}

func TestBuild_ParallelMatchesSequential(t *testing.T) {
	seq, _ := newMiningService(t, 1)
	par, _ := newMiningService(t, 8)

	var corpus []string
	for i := range 60 {
		switch i % 3 {
		case 0:
			corpus = append(corpus, fmt.Sprintf("SELECT c%d FROM t%d WHERE k = %d", i, i, i))
		case 1:
			corpus = append(corpus, fmt.Sprintf("SELECT a FROM x JOIN y%d ON x.id = y%d.id", i, i))
		default:
			corpus = append(corpus, "SELECT 'bad")
		}
	}

	a, err := seq.Build(context.Background(), corpus)
	require.NoError(t, err)
	b, err := par.Build(context.Background(), corpus)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a.Entries, 40)
	assert.Equal(t, 20, a.Skipped)
}

func TestBuild_CancelledContext(t *testing.T) {
	svc, _ := newMiningService(t, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Build(ctx, []string{"SELECT 1", "SELECT 2"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuild_EmptyCorpus(t *testing.T) {
	svc, _ := newMiningService(t, 1)

	kb, err := svc.Build(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, kb.Entries)
	assert.Zero(t, kb.Skipped)
}

func TestBuildWithFrequencies(t *testing.T) {
	svc, _ := newMiningService(t, 1)

	kb, err := svc.BuildWithFrequencies(context.Background(), []string{
		"SELECT a FROM t WHERE id = 1",
		"SELECT a FROM t WHERE id = 2",
	}, 5)
	require.NoError(t, err)
	assert.Len(t, kb.Entries, 2)
	require.Len(t, kb.Frequencies, 1)
	assert.Equal(t, 2, kb.Frequencies[0].OccurrenceCount)
}

// --- Synthesize / Detect ---

func TestSynthesize_FromAnalyzedCorpus(t *testing.T) {
	svc, _ := newMiningService(t, 1)

	kb, err := svc.Build(context.Background(), []string{
		"SELECT x, y FROM t",
		"SELECT name FROM customers WHERE region = 'EU'",
		"SELECT name FROM customers WHERE id = 3",
	})
	require.NoError(t, err)

	stmts := svc.Synthesize(kb.Entries)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE customers (\n  id TEXT,\n  name TEXT,\n  region TEXT\n);", stmts[0])
	assert.Equal(t, "CREATE TABLE t (\n  x TEXT,\n  y TEXT\n);", stmts[1])
}

func TestDetectInKnowledge(t *testing.T) {
	svc, _ := newMiningService(t, 1)

	kb, err := svc.Build(context.Background(), []string{
		"SELECT * FROM devices WHERE serial_no = 'SN12345X'",
		"SELECT * FROM a JOIN b ON a.id = b.id WHERE b.code = 'ZX9900'",
	})
	require.NoError(t, err)

	got := svc.DetectInKnowledge(kb.Entries)
	assert.Equal(t, map[string]string{"serial_no": "devices", "code": "b"}, got)
}

func TestDetect_LastWriteWins(t *testing.T) {
	svc, _ := newMiningService(t, 1)

	records := []domain.QARecord{
		{SQL: "SELECT * FROM a WHERE ref = 'AB1234CD'", TableName: "a"},
		{SQL: "SELECT * FROM b WHERE ref = 'XY9876ZZ'", TableName: "b"},
	}
	assert.Equal(t, map[string]string{"ref": "b"}, svc.Detect(records))

	tally := svc.Tally(records)
	require.Len(t, tally["ref"], 2)
	assert.Equal(t, "a", tally["ref"][0].Table)
}

func TestNewMiningService_NilCollaborators(t *testing.T) {
	svc := NewMiningService(pgscan.NewTokenizer(), nil, nil, nil, nil, DefaultMiningOptions())

	kb, err := svc.Build(context.Background(), []string{"SELECT a FROM t", "SELECT 'broken FROM t2"})
	require.NoError(t, err)
	assert.Len(t, kb.Entries, 1)
	assert.Equal(t, 1, kb.Skipped)

	assert.Len(t, svc.Rank(context.Background(), []string{"SELECT 'broken"}, 0), 0)
}
