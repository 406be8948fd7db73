// Package workbook is a format-agnostic spreadsheet model: sheets of cells,
// merges, formulas and sizes, addressed with 0-based row/column indexes.
// Serializers translate it into a concrete file format.
package workbook

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// CellKind discriminates cell payloads.
type CellKind int

const (
	KindBlank CellKind = iota
	KindString
	KindNumber
	KindFormula
	KindURL
	KindTime
)

func (k CellKind) String() string {
	switch k {
	case KindBlank:
		return "blank"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindFormula:
		return "formula"
	case KindURL:
		return "url"
	case KindTime:
		return "time"
	}
	return "unknown"
}

// Style describes cell formatting. The zero value is an unstyled cell.
type Style struct {
	Bold      bool
	Underline bool
	FontSize  float64
	FontColor string
	Fill      string
	Border    bool
	Center    bool
	Wrap      bool
	Rotation  int
	NumFormat string
}

// Cell is a single write. Later writes to the same coordinate replace earlier ones.
type Cell struct {
	Row   int
	Col   int
	Kind  CellKind
	Text  string
	Value float64
	// URL is the hyperlink target of a KindURL cell; Text is its label.
	URL   string
	Time  time.Time
	Style Style
}

// Merge is an inclusive rectangular range. The top-left cell carries the value.
type Merge struct {
	FirstRow, FirstCol int
	LastRow, LastCol   int
}

// Ref renders the merge in A1:B2 notation.
func (m Merge) Ref() string {
	return CellRef(m.FirstRow, m.FirstCol) + ":" + CellRef(m.LastRow, m.LastCol)
}

// Sheet is an ordered list of cell writes plus layout metadata.
type Sheet struct {
	Name       string
	Cells      []Cell
	Merges     []Merge
	ColWidths  map[int]float64
	RowHeights map[int]float64
}

// NewSheet returns an empty sheet.
func NewSheet(name string) *Sheet {
	return &Sheet{
		Name:       name,
		ColWidths:  make(map[int]float64),
		RowHeights: make(map[int]float64),
	}
}

func (s *Sheet) put(c Cell) {
	s.Cells = append(s.Cells, c)
}

// Blank writes an empty styled cell.
func (s *Sheet) Blank(row, col int, style Style) {
	s.put(Cell{Row: row, Col: col, Kind: KindBlank, Style: style})
}

// Text writes a string cell.
func (s *Sheet) Text(row, col int, text string, style Style) {
	s.put(Cell{Row: row, Col: col, Kind: KindString, Text: text, Style: style})
}

// Number writes a numeric value.
func (s *Sheet) Number(row, col int, value float64, style Style) {
	s.put(Cell{Row: row, Col: col, Kind: KindNumber, Value: value, Style: style})
}

// Formula writes a formula; a leading '=' is expected.
func (s *Sheet) Formula(row, col int, formula string, style Style) {
	s.put(Cell{Row: row, Col: col, Kind: KindFormula, Text: formula, Style: style})
}

// URL writes a hyperlink labelled with text.
func (s *Sheet) URL(row, col int, url, text string, style Style) {
	s.put(Cell{Row: row, Col: col, Kind: KindURL, URL: url, Text: text, Style: style})
}

// Time writes a date-time value; the style's NumFormat controls display.
func (s *Sheet) Time(row, col int, t time.Time, style Style) {
	s.put(Cell{Row: row, Col: col, Kind: KindTime, Time: t, Style: style})
}

// Merge records a merged range. Single-cell ranges are ignored.
func (s *Sheet) Merge(firstRow, firstCol, lastRow, lastCol int) {
	if firstRow == lastRow && firstCol == lastCol {
		return
	}
	s.Merges = append(s.Merges, Merge{FirstRow: firstRow, FirstCol: firstCol, LastRow: lastRow, LastCol: lastCol})
}

// MergeWrite merges the range and writes text with style into its top-left cell.
func (s *Sheet) MergeWrite(firstRow, firstCol, lastRow, lastCol int, text string, style Style) {
	s.Merge(firstRow, firstCol, lastRow, lastCol)
	s.Text(firstRow, firstCol, text, style)
}

// SetColWidth sets the width of columns first..last inclusive.
func (s *Sheet) SetColWidth(first, last int, width float64) {
	for c := first; c <= last; c++ {
		s.ColWidths[c] = width
	}
}

// SetRowHeight sets the height of one row.
func (s *Sheet) SetRowHeight(row int, height float64) {
	s.RowHeights[row] = height
}

// At returns the final cell written at (row, col).
func (s *Sheet) At(row, col int) (Cell, bool) {
	for i := len(s.Cells) - 1; i >= 0; i-- {
		if c := s.Cells[i]; c.Row == row && c.Col == col {
			return c, true
		}
	}
	return Cell{}, false
}

// Resolved collapses the write log into the final cell per coordinate,
// ordered by row then column.
func (s *Sheet) Resolved() []Cell {
	index := make(map[[2]int]int, len(s.Cells))
	out := make([]Cell, 0, len(s.Cells))
	for _, c := range s.Cells {
		key := [2]int{c.Row, c.Col}
		if i, ok := index[key]; ok {
			out[i] = c
			continue
		}
		index[key] = len(out)
		out = append(out, c)
	}
	sortCells(out)
	return out
}

// MaxRow returns the highest row index written, or -1.
func (s *Sheet) MaxRow() int {
	last := -1
	for _, c := range s.Cells {
		if c.Row > last {
			last = c.Row
		}
	}
	return last
}

func sortCells(cells []Cell) {
	slices.SortStableFunc(cells, func(a, b Cell) int {
		if a.Row != b.Row {
			return a.Row - b.Row
		}
		return a.Col - b.Col
	})
}

// Workbook is an ordered collection of sheets; the last sheet is active.
type Workbook struct {
	Sheets []*Sheet
}

// AddSheet appends and returns a new sheet.
func (w *Workbook) AddSheet(name string) *Sheet {
	s := NewSheet(name)
	w.Sheets = append(w.Sheets, s)
	return s
}

// Sheet looks a sheet up by name.
func (w *Workbook) Sheet(name string) (*Sheet, bool) {
	for _, s := range w.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// ColumnName converts a 1-based column number to letters: 1 -> A, 27 -> AA.
func ColumnName(n int) (string, error) {
	if n < 1 {
		return "", fmt.Errorf("column number %d must be positive", n)
	}
	var buf [8]byte
	i := len(buf)
	for n > 0 {
		n--
		i--
		buf[i] = byte('A' + n%26)
		n /= 26
	}
	return string(buf[i:]), nil
}

// ColumnNumber converts letters back to a 1-based column number.
func ColumnNumber(name string) (int, error) {
	if name == "" {
		return 0, fmt.Errorf("empty column name")
	}
	n := 0
	for _, r := range strings.ToUpper(name) {
		if r < 'A' || r > 'Z' {
			return 0, fmt.Errorf("invalid column name %q", name)
		}
		n = n*26 + int(r-'A'+1)
	}
	return n, nil
}

// ColumnLetter converts a 0-based column index to letters. It panics on
// negative input, which is always a layout bug.
func ColumnLetter(col int) string {
	name, err := ColumnName(col + 1)
	if err != nil {
		panic(err)
	}
	return name
}

// CellRef renders 0-based coordinates in A1 notation.
func CellRef(row, col int) string {
	return fmt.Sprintf("%s%d", ColumnLetter(col), row+1)
}
