package tabular

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedType means the file extension is not one we can parse.
var ErrUnsupportedType = errors.New("tabular: unsupported file type")

// Table is a parsed spreadsheet: one header row plus data rows. Every data
// row has exactly len(Headers) cells; short rows are padded with "" and
// long rows truncated.
type Table struct {
	Headers []string
	Rows    [][]string
}

// ReadFile parses the file at path, dispatching on its extension.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(filepath.Base(path), f)
}

// Read parses r, dispatching on the extension of name.
//
// Supported: .csv, .xlsx, .xlsm. The legacy binary .xls format has no
// maintained Go reader and is rejected as unsupported.
func Read(name string, r io.Reader) (*Table, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return readCSV(r)
	case ".xlsx", ".xlsm":
		return readXLSX(r)
	default:
		return nil, ErrUnsupportedType
	}
}

func readCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	// Spreadsheet exports are messy; accept ragged rows and stray quotes.
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	return fromRecords(records), nil
}

func readXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &Table{}, nil
	}

	// First sheet only, matching what the sidebar sends.
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	return fromRecords(records), nil
}

func fromRecords(records [][]string) *Table {
	if len(records) == 0 {
		return &Table{}
	}

	headers := records[0]
	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make([]string, len(headers))
		copy(row, rec)
		rows = append(rows, row)
	}
	return &Table{Headers: headers, Rows: rows}
}
