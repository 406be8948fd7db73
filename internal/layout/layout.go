// Package layout turns an aggregated MonthReport into an abstract workbook:
// a calendar grid whose day blocks widen to the number of shifts recorded
// that day, followed by payroll formulas and a row of evidence links.
package layout

import (
	"fmt"

	"example.com/timesheet/internal/aggregation"
	"example.com/timesheet/internal/domain"
	"example.com/timesheet/internal/workbook"
)

const (
	// Row of the first worker, below the two title and two header rows.
	firstWorkerRow = 4
	// Leading columns: number, full name, job.
	leadingColumns = 3
)

// Links supplies hyperlink targets for the evidence row.
type Links interface {
	// Shift returns the evidence URL of a shift, or "" when there is none.
	Shift(ts domain.Timesheet) string
	// DriveRoot returns the link to the evidence storage root.
	DriveRoot() string
}

// Offsets returns offset[0..days] where offset[1] = 0 and
// offset[d] = offset[d-1] + counts[d-2] - 1, counts being the per-day widths.
// offset[0] is unused and zero.
func Offsets(counts []int) []int {
	offsets := make([]int, len(counts)+1)
	for d := 2; d <= len(counts); d++ {
		offsets[d] = offsets[d-1] + counts[d-2] - 1
	}
	return offsets
}

// Columns is the column allocation of the day block.
type Columns struct {
	base    int
	widths  []int
	offsets []int
	total   int
}

// Allocate sizes every day of the month to max(shiftCounts[d-1], 1)
// columns starting at base.
func Allocate(shiftCounts []int, base int) Columns {
	widths := make([]int, len(shiftCounts))
	total := 0
	for i, n := range shiftCounts {
		widths[i] = max(n, 1)
		total += widths[i]
	}
	return Columns{base: base, widths: widths, offsets: Offsets(widths), total: total}
}

// Days is the number of days allocated.
func (c Columns) Days() int { return len(c.widths) }

// DayStart returns the first column of day (1-based).
func (c Columns) DayStart(day int) int {
	return c.base + (day - 1) + c.offsets[day]
}

// DayWidth returns the number of columns of day.
func (c Columns) DayWidth(day int) int { return c.widths[day-1] }

// Width is the total width of the day block.
func (c Columns) Width() int { return c.total }

// First is the first column of the day block.
func (c Columns) First() int { return c.base }

// Last is the last column of the day block.
func (c Columns) Last() int { return c.base + c.total - 1 }

// Shifts, Hours, Rate and Salary are the trailing summary columns.
func (c Columns) Shifts() int { return c.base + c.total }
func (c Columns) Hours() int  { return c.base + c.total + 1 }
func (c Columns) Rate() int   { return c.base + c.total + 2 }
func (c Columns) Salary() int { return c.base + c.total + 3 }

// Builder lays out reports. It holds no per-report state and may be shared.
type Builder struct {
	cfg   Config
	links Links
}

// NewBuilder constructs a Builder.
func NewBuilder(cfg Config, links Links) *Builder {
	return &Builder{cfg: cfg, links: links}
}

// Build lays out the activities, corrections and report sheets, in that
// order. The same report always yields the same workbook.
func (b *Builder) Build(report *aggregation.MonthReport) *workbook.Workbook {
	wb := &workbook.Workbook{}
	b.activitiesSheet(wb.AddSheet(b.cfg.Sheets.Activities), report)
	b.correctionsSheet(wb.AddSheet(b.cfg.Sheets.Corrections), report)
	b.reportSheet(wb.AddSheet(b.cfg.Sheets.Report), report)
	return wb
}

func (b *Builder) activitiesSheet(ws *workbook.Sheet, report *aggregation.MonthReport) {
	l := b.cfg.Labels
	for col, header := range []string{l.ActivityCode, l.ActivityDuration, l.ActivityDescription} {
		ws.Text(0, col, header, styleHeader)
	}
	for i, act := range report.Activities {
		row := i + 1
		ws.Text(row, 0, act.Code, activityStyle(act.Color))
		ws.Number(row, 1, act.Duration.InexactFloat64(), styleBasicCenter)
		ws.Text(row, 2, act.Description, styleBasicBorder)
	}
	w := b.cfg.Widths
	ws.SetColWidth(0, 0, w.ActivityCode)
	ws.SetColWidth(1, 1, w.ActivityDuration)
	ws.SetColWidth(2, 2, w.ActivityDescription)
}

func (b *Builder) correctionsSheet(ws *workbook.Sheet, report *aggregation.MonthReport) {
	l := b.cfg.Labels
	headers := []string{
		l.CorrectionMaster, l.CorrectionWorker, l.CorrectionOldCode, l.CorrectionAssigned,
		l.CorrectionNewCode, l.CorrectionReason, l.CorrectionChanged,
	}
	for col, header := range headers {
		ws.Text(0, col, header, styleHeader)
	}
	for i, c := range report.Corrections {
		row := i + 1
		ws.Text(row, 0, c.MasterName, styleBasicBorder)
		ws.Text(row, 1, c.WorkerName, styleBasicBorder)
		ws.Text(row, 2, c.Original.Code, activityStyle(c.Original.Color))
		ws.Time(row, 3, c.AssignedAt, styleDateTime)
		ws.Text(row, 4, c.New.Code, activityStyle(c.New.Color))
		ws.Text(row, 5, c.Correction.Reason, styleBasicBorder)
		ws.Time(row, 6, c.Correction.At, styleDateTime)
	}
	w := b.cfg.Widths
	ws.SetColWidth(0, 1, w.CorrectionNames)
	ws.SetColWidth(2, 2, w.CorrectionCode)
	ws.SetColWidth(3, 3, w.CorrectionDate)
	ws.SetColWidth(4, 4, w.CorrectionCode)
	ws.SetColWidth(5, 5, w.CorrectionReason)
	ws.SetColWidth(6, 6, w.CorrectionDate)
}

func (b *Builder) reportSheet(ws *workbook.Sheet, report *aggregation.MonthReport) {
	cols := Allocate(report.ShiftCounts, leadingColumns)
	l := b.cfg.Labels

	// Header rows 2 and 3.
	for col, header := range []string{l.Number, l.FullName, l.Job} {
		ws.MergeWrite(2, col, 3, col, header, styleHeaderRpt)
	}
	ws.MergeWrite(2, cols.First(), 2, cols.Last(),
		fmt.Sprintf(l.MonthHeader, report.Period.MonthName(), report.Period.Year), styleHeaderRpt)
	for day := 1; day <= cols.Days(); day++ {
		start := cols.DayStart(day)
		ws.Merge(3, start, 3, start+cols.DayWidth(day)-1)
		ws.Number(3, start, float64(day), styleHeaderRpt)
	}
	for i, header := range []string{l.Shifts, l.Hours, l.Rate, l.Salary} {
		col := cols.Shifts() + i
		ws.MergeWrite(2, col, 3, col, header, styleHeader90)
	}

	// Title rows span the whole table.
	ws.MergeWrite(0, 0, 0, cols.Salary(), report.Factory.CompanyName, styleTitle)
	ws.MergeWrite(1, 0, 1, cols.Salary(), report.Factory.FactoryName, styleTitle)

	lastRow := firstWorkerRow + len(report.Workers) + 1
	for i, worker := range report.Workers {
		b.workerRow(ws, cols, firstWorkerRow+i, i+1, worker, lastRow)
	}

	totalRow := firstWorkerRow + len(report.Workers)
	salary := workbook.ColumnLetter(cols.Salary())
	if len(report.Workers) > 0 {
		ws.Formula(totalRow, cols.Salary(),
			fmt.Sprintf("=SUM(%s%d:%s%d)", salary, firstWorkerRow+1, salary, totalRow), styleTotal)
	} else {
		ws.Number(totalRow, cols.Salary(), 0, styleTotal)
	}

	ws.Merge(lastRow, 0, lastRow, leadingColumns-1)
	if root := b.links.DriveRoot(); root != "" {
		ws.URL(lastRow, 0, root, l.DriveLink, styleLink)
	} else {
		ws.Text(lastRow, 0, l.DriveLink, styleLink)
	}

	w := b.cfg.Widths
	ws.SetColWidth(0, 0, w.Number)
	ws.SetColWidth(1, 1, w.FullName)
	ws.SetColWidth(2, 2, w.Job)
	ws.SetColWidth(cols.First(), cols.Last(), w.Day)
	ws.SetColWidth(cols.Shifts(), cols.Shifts(), w.Shifts)
	ws.SetColWidth(cols.Hours(), cols.Hours(), w.Hours)
	ws.SetColWidth(cols.Rate(), cols.Rate(), w.Rate)
	ws.SetColWidth(cols.Salary(), cols.Salary(), w.Salary)
	for row, height := range b.cfg.RowHeights {
		ws.SetRowHeight(row, height)
	}
}

func (b *Builder) workerRow(ws *workbook.Sheet, cols Columns, row, number int, worker aggregation.WorkerRow, evidenceRow int) {
	ws.Number(row, 0, float64(number), styleBasicReport)
	ws.Text(row, 1, worker.Worker.FullName, styleBoldReport)
	jobStyle := styleBoldReport
	if worker.IsMaster {
		jobStyle = styleMaster
	}
	ws.Text(row, 2, worker.Profile.Job, jobStyle)

	for col := cols.First(); col <= cols.Last(); col++ {
		ws.Blank(row, col, styleBorders)
	}

	used := make(map[int]int)
	for _, e := range worker.Entries {
		slot := used[e.Day]
		used[e.Day]++
		col := cols.DayStart(e.Day) + slot
		ws.Number(row, col, e.Duration.InexactFloat64(), activityStyle(e.Activity.Color))
		b.evidence(ws, evidenceRow, col, e.Timesheet)
	}

	r := row + 1
	first := workbook.ColumnLetter(cols.First())
	last := workbook.ColumnLetter(cols.Last())
	hours := workbook.ColumnLetter(cols.Hours())
	rate := workbook.ColumnLetter(cols.Rate())
	ws.Formula(row, cols.Shifts(), fmt.Sprintf("=COUNT(%s%d:%s%d)", first, r, last, r), styleBasicReport)
	ws.Formula(row, cols.Hours(), fmt.Sprintf("=SUM(%s%d:%s%d)", first, r, last, r), styleBasicReport)
	ws.Number(row, cols.Rate(), worker.Profile.Rate.InexactFloat64(), styleBasicReport)
	ws.Formula(row, cols.Salary(), fmt.Sprintf("=%s%d*%s%d", hours, r, rate, r), styleBoldReport)
}

// evidence writes the photo link for a sub-column. Several workers share a
// sub-column, so the last written link wins.
func (b *Builder) evidence(ws *workbook.Sheet, row, col int, ts domain.Timesheet) {
	link := b.links.Shift(ts)
	if link == "" {
		ws.Blank(row, col, workbook.Style{})
		return
	}
	ws.URL(row, col, link, b.cfg.Labels.ShiftPhoto, styleLink90)
}
