package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(tables, columns []string) KnowledgeEntry {
	e := NewKnowledgeEntry("")
	e.Tables = tables
	e.Columns = columns
	return e
}

func TestSynthesizeDDL_SingleTable(t *testing.T) {
	t.Parallel()
	stmts := SynthesizeDDL([]KnowledgeEntry{entry([]string{"t"}, []string{"y", "x"})}, DefaultDDLOptions())

	require.Len(t, stmts, 1)
	assert.Equal(t, "CREATE TABLE t (\n  x TEXT,\n  y TEXT\n);", stmts[0])
}

func TestSynthesizeDDL_UnionsAcrossEntries(t *testing.T) {
	t.Parallel()
	entries := []KnowledgeEntry{
		entry([]string{"orders"}, []string{"total"}),
		entry([]string{"customers", "orders"}, []string{"name"}),
		entry([]string{"orders"}, []string{"total", "status"}),
	}
	stmts := SynthesizeDDL(entries, DefaultDDLOptions())

	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE customers (\n  name TEXT\n);", stmts[0])
	assert.Equal(t, "CREATE TABLE orders (\n  name TEXT,\n  status TEXT,\n  total TEXT\n);", stmts[1])
}

func TestSynthesizeDDL_DropsArtifacts(t *testing.T) {
	t.Parallel()
	entries := []KnowledgeEntry{
		entry([]string{"{table}", "", "ab", "x", "t1", "bad name", "users"}, []string{"id"}),
	}
	stmts := SynthesizeDDL(entries, DefaultDDLOptions())

	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "CREATE TABLE t1 (")
	assert.Contains(t, stmts[1], "CREATE TABLE users (")
}

func TestSynthesizeDDL_Options(t *testing.T) {
	t.Parallel()
	opts := DDLOptions{ColumnType: "VARCHAR(255)", ShortNames: []string{"ab"}}
	stmts := SynthesizeDDL([]KnowledgeEntry{entry([]string{"ab", "t"}, []string{"c"})}, opts)

	require.Len(t, stmts, 1)
	assert.Equal(t, "CREATE TABLE ab (\n  c VARCHAR(255)\n);", stmts[0])
}

func TestSynthesizeDDL_TableWithoutColumns(t *testing.T) {
	t.Parallel()
	stmts := SynthesizeDDL([]KnowledgeEntry{entry([]string{"events"}, []string{})}, DefaultDDLOptions())

	assert.Equal(t, []string{"CREATE TABLE events ();"}, stmts)
}

func TestSynthesizeDDL_Empty(t *testing.T) {
	t.Parallel()
	stmts := SynthesizeDDL(nil, DefaultDDLOptions())

	assert.NotNil(t, stmts)
	assert.Empty(t, stmts)
	assert.Equal(t, "", FormatDDL(stmts))
}

func TestFormatDDL(t *testing.T) {
	t.Parallel()
	got := FormatDDL([]string{"CREATE TABLE a ();", "CREATE TABLE b ();"})

	assert.Equal(t, "CREATE TABLE a ();\n\nCREATE TABLE b ();\n", got)
}

func TestSynthesizeDDL_InferReferences(t *testing.T) {
	t.Parallel()
	entries := []KnowledgeEntry{
		entry([]string{"orders"}, []string{"customer_id", "order_id", "warehouse_id"}),
		entry([]string{"customers"}, []string{"id"}),
	}

	plain := SynthesizeDDL(entries, DefaultDDLOptions())
	assert.NotContains(t, FormatDDL(plain), "REFERENCES")

	opts := DefaultDDLOptions()
	opts.InferReferences = true
	stmts := SynthesizeDDL(entries, opts)

	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE orders (\n  customer_id TEXT REFERENCES customers,\n  order_id TEXT,\n  warehouse_id TEXT\n);", stmts[1])
}

func TestSynthesizeDDL_QuotesNonIdentifierColumns(t *testing.T) {
	t.Parallel()
	entries := []KnowledgeEntry{entry([]string{"orders"}, []string{"Total Amount", "id", `odd"name`, "2nd"})}
	stmts := SynthesizeDDL(entries, DefaultDDLOptions())

	require.Len(t, stmts, 1)
	assert.Equal(t, "CREATE TABLE orders (\n  \"2nd\" TEXT,\n  \"Total Amount\" TEXT,\n  id TEXT,\n  \"odd\"\"name\" TEXT\n);", stmts[0])
}
