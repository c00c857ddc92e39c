package export

import (
	"bytes"
	"fmt"
	"strings"
)

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// CSVExporter renders Dataset records into CSV bytes.
//
// The quoting rule matches what the console's import side understands: a
// value containing a comma is wrapped in double quotes, nothing else is
// escaped. Embedded quotes and newlines in values are not round-trippable;
// this is a known limitation, kept deliberately rather than fixed one-sided.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the dataset.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	buf.WriteString(strings.Join(data.Headers, ","))
	for _, row := range data.Rows {
		buf.WriteByte('\n')
		cells := make([]string, len(data.Headers))
		for i, header := range data.Headers {
			cells[i] = quoteIfNeeded(row[header])
		}
		buf.WriteString(strings.Join(cells, ","))
	}
	return buf.Bytes(), nil
}

func quoteIfNeeded(value string) string {
	if strings.Contains(value, ",") {
		return `"` + value + `"`
	}
	return value
}
