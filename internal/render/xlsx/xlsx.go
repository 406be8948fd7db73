// Package xlsx serializes workbooks to Office Open XML spreadsheets.
package xlsx

import (
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"example.com/timesheet/internal/workbook"
)

// Serializer implements render.Serializer with excelize.
type Serializer struct{}

// New returns an xlsx Serializer.
func New() *Serializer {
	return &Serializer{}
}

// Extension implements render.Serializer.
func (s *Serializer) Extension() string { return ".xlsx" }

// Serialize implements render.Serializer. The last sheet becomes active.
func (s *Serializer) Serialize(wb *workbook.Workbook, w io.Writer) error {
	if len(wb.Sheets) == 0 {
		return fmt.Errorf("workbook has no sheets")
	}
	f := excelize.NewFile()
	defer f.Close()

	enc := &encoder{file: f, styles: make(map[workbook.Style]int)}
	defaultSheet := f.GetSheetName(0)
	for i, sheet := range wb.Sheets {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, sheet.Name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return fmt.Errorf("add sheet %q: %w", sheet.Name, err)
		}
		if err := enc.sheet(sheet); err != nil {
			return fmt.Errorf("sheet %q: %w", sheet.Name, err)
		}
	}
	f.SetActiveSheet(len(wb.Sheets) - 1)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

type encoder struct {
	file   *excelize.File
	styles map[workbook.Style]int
}

func (e *encoder) sheet(ws *workbook.Sheet) error {
	name := ws.Name
	for _, m := range ws.Merges {
		if err := e.file.MergeCell(name, cellName(m.FirstRow, m.FirstCol), cellName(m.LastRow, m.LastCol)); err != nil {
			return fmt.Errorf("merge %s: %w", m.Ref(), err)
		}
	}
	for _, c := range ws.Resolved() {
		if err := e.cell(name, c); err != nil {
			return fmt.Errorf("cell %s: %w", workbook.CellRef(c.Row, c.Col), err)
		}
	}

	cols := make([]int, 0, len(ws.ColWidths))
	for col := range ws.ColWidths {
		cols = append(cols, col)
	}
	sort.Ints(cols)
	for _, col := range cols {
		letter := workbook.ColumnLetter(col)
		if err := e.file.SetColWidth(name, letter, letter, ws.ColWidths[col]); err != nil {
			return fmt.Errorf("column %s width: %w", letter, err)
		}
	}
	rows := make([]int, 0, len(ws.RowHeights))
	for row := range ws.RowHeights {
		rows = append(rows, row)
	}
	sort.Ints(rows)
	for _, row := range rows {
		if err := e.file.SetRowHeight(name, row+1, ws.RowHeights[row]); err != nil {
			return fmt.Errorf("row %d height: %w", row+1, err)
		}
	}
	return nil
}

func (e *encoder) cell(sheet string, c workbook.Cell) error {
	ref := cellName(c.Row, c.Col)
	var err error
	switch c.Kind {
	case workbook.KindBlank:
	case workbook.KindString:
		err = e.file.SetCellStr(sheet, ref, c.Text)
	case workbook.KindNumber:
		err = e.file.SetCellFloat(sheet, ref, c.Value, -1, 64)
	case workbook.KindFormula:
		err = e.file.SetCellFormula(sheet, ref, c.Text)
	case workbook.KindURL:
		if err = e.file.SetCellStr(sheet, ref, c.Text); err == nil {
			err = e.file.SetCellHyperLink(sheet, ref, c.URL, "External")
		}
	case workbook.KindTime:
		err = e.file.SetCellValue(sheet, ref, c.Time)
	default:
		err = fmt.Errorf("unsupported cell kind %s", c.Kind)
	}
	if err != nil {
		return err
	}
	if c.Style == (workbook.Style{}) {
		return nil
	}
	id, err := e.style(c.Style)
	if err != nil {
		return err
	}
	return e.file.SetCellStyle(sheet, ref, ref, id)
}

func (e *encoder) style(s workbook.Style) (int, error) {
	if id, ok := e.styles[s]; ok {
		return id, nil
	}
	id, err := e.file.NewStyle(toExcelize(s))
	if err != nil {
		return 0, fmt.Errorf("new style: %w", err)
	}
	e.styles[s] = id
	return id, nil
}

func toExcelize(s workbook.Style) *excelize.Style {
	out := &excelize.Style{}
	font := &excelize.Font{Bold: s.Bold, Size: s.FontSize, Color: s.FontColor}
	if s.Underline {
		font.Underline = "single"
	}
	out.Font = font
	if s.Fill != "" {
		out.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{s.Fill}}
	}
	if s.Border {
		for _, side := range []string{"left", "top", "right", "bottom"} {
			out.Border = append(out.Border, excelize.Border{Type: side, Color: "000000", Style: 1})
		}
	}
	align := &excelize.Alignment{Vertical: "center", WrapText: s.Wrap, TextRotation: s.Rotation}
	if s.Center {
		align.Horizontal = "center"
	} else {
		align.Horizontal = "left"
	}
	out.Alignment = align
	if s.NumFormat != "" {
		format := s.NumFormat
		out.CustomNumFmt = &format
	}
	return out
}

func cellName(row, col int) string {
	name, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		// Coordinates come from layout code; out of range is a bug there.
		panic(err)
	}
	return name
}
