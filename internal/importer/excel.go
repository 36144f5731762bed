package importer

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// ReadFile picks the reader from the file name, or from the leading bytes
// when the extension says nothing. Legacy .xls workbooks are rejected.
func ReadFile(name string, r io.Reader) (Table, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(len(oleMagic))

	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case ext == ".xls" || bytes.HasPrefix(head, oleMagic):
		return Table{}, fmt.Errorf("%w: legacy .xls workbooks cannot be read, save the file as .xlsx or .csv", ErrUnsupportedFormat)
	case ext == ".xlsx" || ext == ".xlsm" || bytes.HasPrefix(head, zipMagic):
		return ReadExcel(br)
	case ext == "" || ext == ".csv" || ext == ".txt":
		return ReadCSV(br)
	default:
		return Table{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// ReadExcel reads the first worksheet of an .xlsx workbook. Cells come back
// with their number format applied, the way the sheet displays them.
func ReadExcel(r io.Reader) (Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Table{}, fmt.Errorf("%w: failed to open workbook: %v", ErrUnsupportedFormat, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, ErrEmptyFile
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Table{}, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	// skip leading blank rows so the first filled row is the header
	for len(rows) > 0 && blank(rows[0]) {
		rows = rows[1:]
	}
	values := make([][]any, len(rows))
	for i, row := range rows {
		values[i] = make([]any, len(row))
		for j, v := range row {
			values[i][j] = v
		}
	}
	return TableFromValues(values)
}
