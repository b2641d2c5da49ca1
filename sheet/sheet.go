// Package sheet reads the input spreadsheet and persists the accumulated
// result table. Input may be .xlsx or .csv; output is always .xlsx.
package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"katom-scraper/internal/types"
)

// ErrUnsupportedFile is returned for input files that are neither .xlsx nor .csv.
var ErrUnsupportedFile = errors.New("unsupported file type")

// Table is an in-memory copy of the input spreadsheet.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Cell returns the value at (row, col), tolerating the ragged rows that
// spreadsheet readers produce when trailing cells are empty.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// ColumnIndex returns the index of the first header accepted by match, or -1.
func (t *Table) ColumnIndex(match func(string) bool) int {
	for i, h := range t.Headers {
		if match(h) {
			return i
		}
	}
	return -1
}

// Load reads the whole input file into memory. The first row is treated as
// the header row.
func Load(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return loadCSV(path)
	case ".xlsx", ".xls":
		return loadXLSX(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
	}
}

func loadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(records) == 0 {
		return &Table{}, nil
	}

	return &Table{Headers: records[0], Rows: records[1:]}, nil
}

func loadXLSX(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &Table{}, nil
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from %s: %w", path, err)
	}
	if len(rows) == 0 {
		return &Table{}, nil
	}

	return &Table{Headers: rows[0], Rows: rows[1:]}, nil
}

// OutputPath derives the output file location: output directory + configured
// prefix + URL prefix + input base name, extension forced to .xlsx. The URL
// prefix is part of the name so runs over the same input with different
// prefixes don't overwrite each other.
func OutputPath(cfg *types.Config, inputPath, urlPrefix string) string {
	base := filepath.Base(inputPath)
	name := strings.TrimSuffix(base, filepath.Ext(base)) + ".xlsx"
	if urlPrefix != "" {
		name = urlPrefix + "_" + name
	}
	return filepath.Join(expandUser(cfg.OutputDir), cfg.OutputPrefix+name)
}

func expandUser(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// Save writes the result table to an .xlsx file, creating missing
// directories and overwriting any previous save. The Description column gets
// wrap-text styling so the HTML blob stays readable in a spreadsheet app.
func Save(path string, table *types.ResultTable) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheetName = "Sheet1"
	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}

	wrapStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return fmt.Errorf("failed to create cell style: %w", err)
	}

	descIdx := -1
	header := make([]interface{}, len(table.Columns))
	for i, col := range table.Columns {
		header[i] = col
		if col == "Description" {
			descIdx = i
		}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	for i, row := range table.Rows {
		cells := make([]interface{}, len(table.Columns))
		for j, col := range table.Columns {
			if j == descIdx {
				cells[j] = excelize.Cell{StyleID: wrapStyle, Value: row[col]}
			} else {
				cells[j] = row[col]
			}
		}
		addr, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to compute cell address: %w", err)
		}
		if err := sw.SetRow(addr, cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush rows: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}

	return nil
}
