package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVRender(t *testing.T) {
	exporter := NewCSVExporter()
	table := Table{
		Columns: []string{"Student Name", "Subject"},
		Rows: [][]string{
			{"Anil Kumar", "Operating Systems"},
			{"Bhavna, Iyer", "Compiler Design"},
		},
	}

	out, err := exporter.Render(table)
	require.NoError(t, err)
	assert.Equal(t, "Student Name,Subject\nAnil Kumar,Operating Systems\n\"Bhavna, Iyer\",Compiler Design\n", string(out))
}

func TestCSVRenderRequiresColumns(t *testing.T) {
	exporter := NewCSVExporter()
	_, err := exporter.Render(Table{})
	assert.Error(t, err)
}

func TestCSVRenderPadsShortRows(t *testing.T) {
	exporter := NewCSVExporter()
	out, err := exporter.Render(Table{
		Columns: []string{"A", "B", "C"},
		Rows:    [][]string{{"x"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "A,B,C\nx,,\n", string(out))
}
