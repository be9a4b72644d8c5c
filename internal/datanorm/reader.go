package datanorm

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ReadFile reads a ledger from disk, choosing the format by extension.
// sheet selects a worksheet for .xlsx files; empty means the first one.
func ReadFile(path, sheet string, today time.Time) (*ReadResult, error) {
	header, rows, err := ReadTableFile(path, sheet)
	if err != nil {
		return nil, err
	}
	return ReadRecords(header, rows, today)
}

// ReadCSV reads a ledger exported as CSV. The first record is the header.
func ReadCSV(r io.Reader, today time.Time) (*ReadResult, error) {
	header, rows, err := ReadCSVTable(r)
	if err != nil {
		return nil, err
	}
	return ReadRecords(header, rows, today)
}

// ReadXLSX reads one worksheet of a workbook.
func ReadXLSX(r io.Reader, sheet string, today time.Time) (*ReadResult, error) {
	header, rows, err := ReadXLSXTable(r, sheet)
	if err != nil {
		return nil, err
	}
	return ReadRecords(header, rows, today)
}

// ReadTableFile returns the header and data rows of a CSV or XLSX file.
func ReadTableFile(path, sheet string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ReadXLSXTable(f, sheet)
	default:
		return ReadCSVTable(f)
	}
}

// ReadCSVTable splits a CSV stream into header and rows. An empty stream
// has no date column.
func ReadCSVTable(r io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(stripBOM(r))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, ErrNoDateColumn
	}
	return records[0], records[1:], nil
}

// ReadXLSXTable reads one worksheet. Cells are read raw so that date
// cells arrive as Excel serial numbers rather than locale strings.
func ReadXLSXTable(r io.Reader, sheet string) ([]string, [][]string, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	if sheet == "" {
		sheets := wb.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil, ErrNoDateColumn
		}
		sheet = sheets[0]
	}
	rows, err := wb.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil, ErrNoDateColumn
	}
	return rows[0], rows[1:], nil
}

// ReadRecords maps a header and normalizes every data row. It is shared
// by every tabular source, SQL result sets included.
func ReadRecords(header []string, rows [][]string, today time.Time) (*ReadResult, error) {
	mapping, err := MapColumns(header)
	if err != nil {
		return nil, err
	}

	res := &ReadResult{Rows: make([]OrderRow, 0, len(rows)), Mapping: mapping}
	for _, row := range rows {
		if IsBlank(row) {
			res.Blank++
			continue
		}
		rec, badDate := NormalizeRow(row, mapping, today)
		if badDate {
			res.BadDates++
		}
		res.Rows = append(res.Rows, rec)
	}
	return res, nil
}

// IsBlank reports whether every cell of row is whitespace.
func IsBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// stripBOM wraps a reader to strip a UTF-8 BOM if present.
func stripBOM(r io.Reader) io.Reader {
	buf := make([]byte, 3)
	n, err := io.ReadFull(r, buf)
	if err != nil || n < 3 {
		return io.MultiReader(strings.NewReader(string(buf[:n])), r)
	}
	if buf[0] == 0xEF && buf[1] == 0xBB && buf[2] == 0xBF {
		return r
	}
	return io.MultiReader(strings.NewReader(string(buf)), r)
}
