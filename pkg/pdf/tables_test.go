package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowCells(t *testing.T) {
	row := layoutRow{
		{X: 72, S: "Name"},
		{X: 200, S: "DOB"},
		{X: 330, S: "MRN"},
	}
	assert.Equal(t, []string{"Name", "DOB", "MRN"}, row.cells())

	words := layoutRow{
		{X: 72, S: "Patient"},
		{X: 110, S: "Name:"},
	}
	assert.Equal(t, []string{"Patient Name:"}, words.cells())
}

func TestRenderText(t *testing.T) {
	rows := []layoutRow{
		{{X: 72, S: "Patient Name: Jane Doe"}},
		{{X: 72, S: "A"}, {X: 200, S: "B"}},
		{{X: 72, S: "   "}},
	}
	assert.Equal(t, "Patient Name: Jane Doe\nA B", renderText(rows))
	assert.Equal(t, "", renderText(nil))
}

func TestDetectTables(t *testing.T) {
	rows := []layoutRow{
		{{X: 72, S: "Lab report"}},
		{{X: 72, S: "Test"}, {X: 200, S: "Value"}, {X: 330, S: "Unit"}},
		{{X: 72, S: "Glucose"}, {X: 200, S: "5.4"}},
		{{X: 72, S: "Signed"}},
		{{X: 72, S: "lonely"}, {X: 200, S: "row"}},
	}

	tables := detectTables(rows)
	require.Len(t, tables, 1)
	assert.Equal(t, Table{
		{"Test", "Value", "Unit"},
		{"Glucose", "5.4", ""},
	}, tables[0])
}

func TestDetectTablesNone(t *testing.T) {
	tables := detectTables([]layoutRow{{{X: 72, S: "just text"}}})
	assert.NotNil(t, tables)
	assert.Empty(t, tables)
}
