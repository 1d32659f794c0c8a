package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() Table {
	return Table{
		RecordOf("model", "CCMI-1_ACCESS_refC2", "tco3", 301.25),
		RecordOf("model", "ERA5", "tco3", nil),
		RecordOf("model", "a|b"),
	}
}

func TestTableFormatter_Render(t *testing.T) {
	table := sampleTable()
	out := NewTableFormatter(Columns(table), table).Render()

	expected := "" +
		"┌─────────────────────┬────────┐\n" +
		"│ model               │ tco3   │\n" +
		"├─────────────────────┼────────┤\n" +
		"│ CCMI-1_ACCESS_refC2 │ 301.25 │\n" +
		"│ ERA5                │ NULL   │\n" +
		"│ a|b                 │        │\n" +
		"└─────────────────────┴────────┘"
	assert.Equal(t, expected, out)
}

func TestTableFormatter_Empty(t *testing.T) {
	assert.Equal(t, "No results", NewTableFormatter(nil, nil).Render())
}

func TestFormatMarkdown(t *testing.T) {
	table := sampleTable()
	expected := "" +
		"| model | tco3 |\n" +
		"| --- | --- |\n" +
		"| CCMI-1_ACCESS_refC2 | 301.25 |\n" +
		"| ERA5 | NULL |\n" +
		"| a\\|b |  |\n"
	assert.Equal(t, expected, FormatMarkdown(Columns(table), table))
	assert.Equal(t, "No results", FormatMarkdown(nil, nil))
}

func TestFormatJSON(t *testing.T) {
	table := Table{RecordOf("b", 1, "a", "x"), RecordOf("a", RawJSON(`[1, 2]`))}
	out, err := FormatJSON(Columns(table), table)
	require.NoError(t, err)

	expected := "[\n" +
		"  {\n    \"b\": 1,\n    \"a\": \"x\"\n  },\n" +
		"  {\n    \"a\": [1,2]\n  }\n" +
		"]"
	assert.Equal(t, expected, out)

	out, err = FormatJSON(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestSelectColumns(t *testing.T) {
	columns := []string{"category", "ERA5", "CCMI", "MEAN"}

	assert.Equal(t, columns, SelectColumns(columns, nil, nil))
	assert.Equal(t, []string{"category", "MEAN"}, SelectColumns(columns, []string{"MEAN", "category", "missing"}, nil))
	assert.Equal(t, []string{"category", "CCMI"}, SelectColumns(columns, nil, []string{"ERA5", "MEAN"}))
	assert.Equal(t, []string{"CCMI"}, SelectColumns(columns, []string{"CCMI", "MEAN"}, []string{"MEAN"}))
}

func TestRecord(t *testing.T) {
	r := NewRecord()
	r.Set("a", 1)
	r.Set("b", 2)
	r.Set("a", 3)

	assert.Equal(t, []string{"a", "b"}, r.Keys())
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, map[string]interface{}{"a": 3, "b": 2}, r.Map())

	_, ok := r.Get("missing")
	assert.False(t, ok)

	var zero Record
	zero.Set("x", "y")
	assert.Equal(t, []string{"x"}, zero.Keys())

	var nilRecord *Record
	assert.Equal(t, 0, nilRecord.Len())
}
