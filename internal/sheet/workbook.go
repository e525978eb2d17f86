// Package sheet wraps an xlsx workbook as a 1-based grid of string cells
// with a header row.
package sheet

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Workbook is one open xlsx file bound to a single worksheet. Reads come
// from an in-memory copy of the grid that SetCell keeps in sync.
type Workbook struct {
	f     *excelize.File
	sheet string
	rows  [][]string
}

// Open loads path and selects sheetName, or the active sheet when
// sheetName is empty.
func Open(path, sheetName string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}

	if sheetName == "" {
		sheetName = f.GetSheetName(f.GetActiveSheetIndex())
	} else if idx, err := f.GetSheetIndex(sheetName); err != nil || idx < 0 {
		_ = f.Close()
		return nil, fmt.Errorf("sheet %q not found in %s (available: %s)", sheetName, path, strings.Join(f.GetSheetList(), ", "))
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}
	return &Workbook{f: f, sheet: sheetName, rows: rows}, nil
}

func (w *Workbook) SheetName() string { return w.sheet }

// Headers returns the cells of row 1.
func (w *Workbook) Headers() []string {
	if len(w.rows) == 0 {
		return nil
	}
	out := make([]string, len(w.rows[0]))
	copy(out, w.rows[0])
	return out
}

// MaxRow is the last row index holding any data.
func (w *Workbook) MaxRow() int { return len(w.rows) }

// MaxColumn is the widest used column index over every row.
func (w *Workbook) MaxColumn() int {
	max := 0
	for _, r := range w.rows {
		if len(r) > max {
			max = len(r)
		}
	}
	return max
}

// Cell returns the value at (row, col), both 1-based. Cells outside the
// used range are empty.
func (w *Workbook) Cell(row, col int) string {
	if row < 1 || row > len(w.rows) || col < 1 || col > len(w.rows[row-1]) {
		return ""
	}
	return w.rows[row-1][col-1]
}

// SetCell writes value at (row, col), both 1-based.
func (w *Workbook) SetCell(row, col int, value string) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := w.f.SetCellValue(w.sheet, cell, value); err != nil {
		return fmt.Errorf("set %s: %w", cell, err)
	}
	for len(w.rows) < row {
		w.rows = append(w.rows, nil)
	}
	for len(w.rows[row-1]) < col {
		w.rows[row-1] = append(w.rows[row-1], "")
	}
	w.rows[row-1][col-1] = value
	return nil
}

// SaveAs writes the whole workbook to path.
func (w *Workbook) SaveAs(path string) error {
	if err := w.f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

func (w *Workbook) Close() error {
	return w.f.Close()
}
