package importer

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestReadExcel(t *testing.T) {
	data := workbook(t, [][]any{
		{},
		{"Date", "Description", "Amount"},
		{"2025-01-05", "Grocery store", -42.1},
		{},
		{"2025-01-06", "Payroll", 1500},
	})

	table, err := ReadExcel(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadExcel() error = %v", err)
	}
	if got := strings.Join(table.Headers, ","); got != "Date,Description,Amount" {
		t.Fatalf("headers = %q", got)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("rows = %v, want 2", table.Rows)
	}
	if got := cell(table.Rows[0], 2); got != "-42.1" {
		t.Errorf("amount cell = %q, want -42.1", got)
	}
	if got := cell(table.Rows[1], 1); got != "Payroll" {
		t.Errorf("description cell = %q, want Payroll", got)
	}
}

func TestReadExcelFormattedDate(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	_ = f.SetCellValue("Sheet1", "A1", "Date")
	_ = f.SetCellValue("Sheet1", "B1", "Amount")
	// 45662 is 2025-01-05 as an Excel serial day
	_ = f.SetCellValue("Sheet1", "A2", 45662)
	_ = f.SetCellValue("Sheet1", "B2", -3)
	style, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.SetCellStyle("Sheet1", "A2", "A2", style); err != nil {
		t.Fatal(err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatal(err)
	}

	table, err := ReadExcel(buf)
	if err != nil {
		t.Fatalf("ReadExcel() error = %v", err)
	}
	d, err := ParseDate(cell(table.Rows[0], 0))
	if err != nil {
		t.Fatalf("ParseDate(%q) error = %v", cell(table.Rows[0], 0), err)
	}
	if got := d.Format("2006-01-02"); got != "2025-01-05" {
		t.Errorf("date = %s, want 2025-01-05", got)
	}
}

func TestReadFile(t *testing.T) {
	xlsx := workbook(t, [][]any{{"Date", "Amount"}, {"2025-01-05", -1}})
	csv := []byte("Date,Amount\n2025-01-05,-1\n")
	xls := append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, make([]byte, 32)...)

	tests := []struct {
		name    string
		file    string
		data    []byte
		wantErr error
	}{
		{"csv by extension", "bank.csv", csv, nil},
		{"xlsx by extension", "bank.XLSX", xlsx, nil},
		{"xlsx by magic bytes", "upload", xlsx, nil},
		{"csv without extension", "upload", csv, nil},
		{"legacy xls", "bank.xls", xls, ErrUnsupportedFormat},
		{"legacy xls by magic bytes", "upload", xls, ErrUnsupportedFormat},
		{"unknown extension", "bank.pdf", csv, ErrUnsupportedFormat},
		{"corrupt workbook", "bank.xlsx", []byte("PK\x03\x04garbage"), ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := ReadFile(tt.file, bytes.NewReader(tt.data))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ReadFile() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadFile() error = %v", err)
			}
			if len(table.Rows) != 1 || table.Column("amount") != 1 {
				t.Errorf("table = %+v", table)
			}
		})
	}
}
