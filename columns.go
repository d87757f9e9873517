package gtfstables

import (
	"fmt"
	"log/slog"
	"strings"
)

// ColumnMapping pairs a column name in the text table with the internal field
// it populates.
type ColumnMapping struct {
	Column string
	Field  string
}

// ColumnMap is ordered. The order is the serialize order and the order in
// which fields of a row are parsed and reported.
type ColumnMap []ColumnMapping

func (m ColumnMap) Columns() []string {
	out := make([]string, len(m))
	for i, c := range m {
		out[i] = c.Column
	}
	return out
}

const utf8BOM = "\ufeff"

// headerIndex maps each column of a ColumnMap to its position in a data row,
// or -1 when the file does not have that column.
type headerIndex []int

// bindHeader aligns a file's header with the column map by name. Columns not
// in the map are ignored.
func bindHeader(table string, m ColumnMap, fields []*FieldDescriptor, header []string) (headerIndex, []error) {
	positions := make(map[string]int, len(header))
	var issues []error
	for i, raw := range header {
		name := strings.TrimSpace(raw)
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		if _, dup := positions[name]; dup {
			issues = append(issues, &FieldError{Column: name, Value: raw, Reason: "duplicate column in header"})
			continue
		}
		positions[name] = i
	}

	idx := make(headerIndex, len(m))
	known := make(map[string]bool, len(m))
	for i, c := range m {
		known[c.Column] = true
		pos, ok := positions[c.Column]
		if !ok {
			idx[i] = -1
			if fields[i].Required {
				issues = append(issues, &MissingColumnError{Table: table, Column: c.Column})
			}
			continue
		}
		idx[i] = pos
	}

	for name := range positions {
		if !known[name] {
			slog.Info(fmt.Sprintf("Ignoring unknown column %s in %s.txt", name, table))
		}
	}

	return idx, issues
}

// cell returns the raw text for column i of the map and whether the column is
// in the file at all. A row shorter than the header reads as empty cells.
func (idx headerIndex) cell(row []string, i int) (string, bool) {
	pos := idx[i]
	if pos < 0 {
		return "", false
	}
	if pos >= len(row) {
		return "", true
	}
	return row[pos], true
}
