// Package importer turns uploaded spreadsheets into validated transactions.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrEmptyFile = errors.New("file has no header row")

// Table is a header row plus data rows, all as raw cell text.
type Table struct {
	Headers []string
	Rows    [][]string
}

// ReadCSV reads a comma separated file whose first record is the header.
// Ragged rows are accepted; missing cells read as empty.
func ReadCSV(r io.Reader) (Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Table{}, ErrEmptyFile
	}
	if err != nil {
		return Table{}, fmt.Errorf("failed to read CSV header: %w", err)
	}
	records, err := reader.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("failed to read CSV records: %w", err)
	}
	t := Table{Headers: trimAll(header)}
	// drop a UTF-8 BOM left by spreadsheet exports
	if len(t.Headers) > 0 {
		t.Headers[0] = strings.TrimPrefix(t.Headers[0], "\ufeff")
	}
	for _, rec := range records {
		if blank(rec) {
			continue
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// TableFromValues converts a Sheets style values matrix.
func TableFromValues(values [][]any) (Table, error) {
	if len(values) == 0 {
		return Table{}, ErrEmptyFile
	}
	t := Table{Headers: trimAll(toStrings(values[0]))}
	for _, row := range values[1:] {
		rec := toStrings(row)
		if blank(rec) {
			continue
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// Column returns the index of header name, ignoring case, or -1.
func (t Table) Column(name string) int {
	name = strings.TrimSpace(name)
	if name == "" {
		return -1
	}
	for i, h := range t.Headers {
		if strings.EqualFold(h, name) {
			return i
		}
	}
	return -1
}

// Sample returns up to n rows keyed by header, for prompting.
func (t Table) Sample(n int) []map[string]string {
	n = min(n, len(t.Rows))
	out := make([]map[string]string, 0, n)
	for _, row := range t.Rows[:n] {
		m := make(map[string]string, len(t.Headers))
		for i, h := range t.Headers {
			m[h] = cell(row, i)
		}
		out = append(out, m)
	}
	return out
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		if v != nil {
			out[i] = fmt.Sprint(v)
		}
	}
	return out
}

func trimAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}

func blank(rec []string) bool {
	for _, s := range rec {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}
