package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	exporter := NewCSVExporter()
	data := Dataset{
		Headers: []string{"developerName", "grade", "hoCity"},
		Rows: []map[string]string{
			{"developerName": "Skyline Estates", "grade": "A", "hoCity": "Mumbai"},
			{"developerName": "North, West Holdings", "grade": "B", "hoCity": "Pune"},
		},
	}

	out, err := exporter.Render(data)
	require.NoError(t, err)

	lines := strings.Split(string(out), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "developerName,grade,hoCity", lines[0])
	require.Equal(t, "Skyline Estates,A,Mumbai", lines[1])
	require.Equal(t, `"North, West Holdings",B,Pune`, lines[2])
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	exporter := NewCSVExporter()
	_, err := exporter.Render(Dataset{})
	require.Error(t, err)
}

func TestCSVExporterHeadersOnly(t *testing.T) {
	exporter := NewCSVExporter()
	out, err := exporter.Render(Dataset{Headers: []string{"a", "b"}})
	require.NoError(t, err)
	require.Equal(t, "a,b", string(out))
}

func TestCSVExporterMissingCellsRenderEmpty(t *testing.T) {
	exporter := NewCSVExporter()
	out, err := exporter.Render(Dataset{
		Headers: []string{"a", "b"},
		Rows:    []map[string]string{{"a": "1"}},
	})
	require.NoError(t, err)
	require.Equal(t, "a,b\n1,", string(out))
}
