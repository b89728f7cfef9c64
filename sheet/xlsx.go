package sheet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrEmptySheet is returned when a workbook's first sheet has no header row.
var ErrEmptySheet = errors.New("sheet has no header row")

// ReadXLSX reads the first sheet of an .xlsx workbook. Cells hold their
// stored values, not the number-formatted display text. The first row with
// any non-blank cell is the header; header names are trimmed. Rows that are
// entirely blank are skipped.
func ReadXLSX(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptySheet)
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return fromRows(rows, path)
}

func fromRows(rows [][]string, name string) (*Table, error) {
	start := -1
	for i, row := range rows {
		if !blank(row) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptySheet)
	}

	header := make([]string, len(rows[start]))
	for i, h := range rows[start] {
		header[i] = strings.TrimSpace(h)
	}

	var body [][]string
	for _, row := range rows[start+1:] {
		if blank(row) {
			continue
		}
		body = append(body, row)
	}
	return New(header, body), nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// WriteXLSX saves t as a single-sheet workbook. Used for fixtures and for
// re-exporting filtered views.
func WriteXLSX(t *Table, path string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	set := func(col, row int, v string) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(sheet, cell, v)
	}
	for i, h := range t.Columns {
		if err := set(i+1, 1, h); err != nil {
			return err
		}
	}
	for r, row := range t.Rows {
		for c, v := range row {
			if v == "" {
				continue
			}
			if err := set(c+1, r+2, v); err != nil {
				return err
			}
		}
	}
	return f.SaveAs(path)
}
