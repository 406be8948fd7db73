// Package aggregation assembles everything a monthly factory report needs:
// the worker set, each worker's resolved entries per day, payroll totals and
// the per-day shift counts that drive column allocation.
package aggregation

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"example.com/timesheet/internal/domain"
	"example.com/timesheet/internal/platform/logger"
	"example.com/timesheet/internal/resolution"
)

// Entry is one resolved position of a worker.
type Entry struct {
	Day          int
	PositionID   int64
	Timesheet    domain.Timesheet
	Activity     domain.Activity
	Duration     decimal.Decimal
	EvidenceLink string
}

// WorkerRow is a worker's line in the report.
type WorkerRow struct {
	Worker          domain.User
	IsMaster        bool
	Profile         domain.WorkerProfile
	ProfileFallback bool
	Entries         []Entry
	ShiftCount      int
	Hours           decimal.Decimal
	Salary          decimal.Decimal
}

// CorrectionRow is one line of the correction audit sheet.
type CorrectionRow struct {
	Correction domain.Correction
	MasterName string
	WorkerName string
	Original   domain.Activity
	New        domain.Activity
	AssignedAt time.Time
}

// MonthReport is the aggregated input of the layout engine.
type MonthReport struct {
	Factory domain.Factory
	Period  domain.Period
	// ShiftCounts[d-1] is the number of sub-columns day d needs; zero when
	// nothing was recorded that day.
	ShiftCounts []int
	Workers     []WorkerRow
	Activities  []domain.Activity
	Corrections []CorrectionRow
	Timesheets  []domain.Timesheet
}

// Days returns the number of calendar days in the report month.
func (r *MonthReport) Days() int {
	return len(r.ShiftCounts)
}

// TotalSalary sums the salary of every row.
func (r *MonthReport) TotalSalary() decimal.Decimal {
	total := decimal.Zero
	for _, w := range r.Workers {
		total = total.Add(w.Salary)
	}
	return total
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger overrides the logger.
func WithLogger(l *logger.Logger) Option {
	return func(a *Aggregator) {
		a.logger = l
	}
}

// Aggregator reads a consistent snapshot of the store and builds MonthReports.
type Aggregator struct {
	store    domain.SnapshotReader
	resolver *resolution.Resolver
	logger   *logger.Logger
}

// New constructs an Aggregator.
func New(store domain.SnapshotReader, resolver *resolution.Resolver, opts ...Option) *Aggregator {
	a := &Aggregator{store: store, resolver: resolver, logger: logger.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate builds the report for one factory and month. Any missing
// factory, activity or profile (after fallback) fails the whole report.
func (a *Aggregator) Aggregate(ctx context.Context, factoryID int64, period domain.Period) (*MonthReport, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	var report *MonthReport
	err := a.store.ReadSnapshot(ctx, func(r domain.Reader) error {
		var err error
		report, err = a.aggregate(ctx, r, factoryID, period)
		return err
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (a *Aggregator) aggregate(ctx context.Context, r domain.Reader, factoryID int64, period domain.Period) (*MonthReport, error) {
	log := a.logger.With("factory_id", factoryID, "period", period.String())

	var (
		factory    domain.Factory
		timesheets []domain.Timesheet
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		factory, err = r.GetFactory(gctx, factoryID)
		return err
	})
	g.Go(func() error {
		var err error
		timesheets, err = r.ListTimesheets(gctx, factoryID, period)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	timesheetIDs := make([]int64, 0, len(timesheets))
	byTimesheet := make(map[int64]domain.Timesheet, len(timesheets))
	for _, ts := range timesheets {
		timesheetIDs = append(timesheetIDs, ts.ID)
		byTimesheet[ts.ID] = ts
	}

	var positions []domain.WorkerPosition
	if len(timesheetIDs) > 0 {
		var err error
		positions, err = r.ListPositions(ctx, timesheetIDs)
		if err != nil {
			return nil, err
		}
	}

	masters := make(map[int64]struct{})
	workerIDs := make([]int64, 0)
	seen := make(map[int64]struct{})
	addWorker := func(id int64) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		workerIDs = append(workerIDs, id)
	}
	for _, ts := range timesheets {
		masters[ts.MasterID] = struct{}{}
		addWorker(ts.MasterID)
	}
	positionIDs := make([]int64, 0, len(positions))
	for _, p := range positions {
		positionIDs = append(positionIDs, p.ID)
		addWorker(p.WorkerID)
	}

	var (
		corrections []domain.Correction
		users       []domain.User
		profiles    []domain.WorkerProfile
		catalog     []domain.Activity
	)
	g, gctx = errgroup.WithContext(ctx)
	if len(positionIDs) > 0 {
		g.Go(func() error {
			var err error
			corrections, err = r.ListCorrections(gctx, positionIDs)
			return err
		})
	}
	if len(workerIDs) > 0 {
		g.Go(func() error {
			var err error
			users, err = r.GetUsers(gctx, workerIDs)
			return err
		})
		g.Go(func() error {
			var err error
			profiles, err = r.ListProfiles(gctx, workerIDs, a.resolver.ProfileBound(period))
			return err
		})
	}
	g.Go(func() error {
		var err error
		catalog, err = r.ListActivities(gctx, domain.ActivitiesAll)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	activities := make(map[int64]domain.Activity, len(catalog))
	for _, act := range catalog {
		activities[act.ID] = act
	}
	lookupActivity := func(id int64) (domain.Activity, error) {
		act, ok := activities[id]
		if !ok {
			return domain.Activity{}, fmt.Errorf("activity %d: %w", id, domain.ErrNotFound)
		}
		return act, nil
	}

	userByID := make(map[int64]domain.User, len(users))
	for _, u := range users {
		userByID[u.ID] = u
	}
	for _, id := range workerIDs {
		if _, ok := userByID[id]; !ok {
			return nil, fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
		}
	}

	resolved := resolution.EffectiveActivities(positions, corrections)

	ordered := slices.Clone(positions)
	slices.SortStableFunc(ordered, func(x, y domain.WorkerPosition) int {
		tx, ty := byTimesheet[x.TimesheetID], byTimesheet[y.TimesheetID]
		if c := tx.At.Compare(ty.At); c != 0 {
			return c
		}
		if tx.ID != ty.ID {
			return compareID(tx.ID, ty.ID)
		}
		return compareID(x.ID, y.ID)
	})

	days := period.Days()
	shiftCounts := make([]int, days)
	for _, ts := range timesheets {
		shiftCounts[ts.At.Day()-1]++
	}

	entries := make(map[int64][]Entry, len(workerIDs))
	perWorkerDay := make(map[[2]int64]int)
	for _, p := range ordered {
		act, err := lookupActivity(resolved[p.ID])
		if err != nil {
			return nil, err
		}
		ts := byTimesheet[p.TimesheetID]
		day := ts.At.Day()
		entries[p.WorkerID] = append(entries[p.WorkerID], Entry{
			Day:          day,
			PositionID:   p.ID,
			Timesheet:    ts,
			Activity:     act,
			Duration:     act.Duration,
			EvidenceLink: ts.EvidenceLink,
		})
		key := [2]int64{p.WorkerID, int64(day)}
		perWorkerDay[key]++
		if n := perWorkerDay[key]; n > shiftCounts[day-1] {
			log.Warn("worker holds more positions than shifts on a day; widening day block",
				"worker_id", p.WorkerID, "day", day, "positions", n)
			shiftCounts[day-1] = n
		}
	}

	histories := resolution.Histories(profiles)
	rows := make([]WorkerRow, 0, len(workerIDs))
	for _, id := range workerIDs {
		user := userByID[id]
		history, ok := histories[id]
		if !ok {
			history = resolution.NewProfileHistory(id, nil)
		}
		profile, fallback, err := a.resolver.Profile(history, period)
		if err != nil {
			return nil, fmt.Errorf("worker %d (%s): %w", id, user.FullName, err)
		}
		if fallback {
			log.Debug("profile missing for period, using current profile", "worker_id", id)
		}
		_, isMaster := masters[id]
		row := WorkerRow{
			Worker:          user,
			IsMaster:        isMaster,
			Profile:         profile,
			ProfileFallback: fallback,
			Entries:         entries[id],
			Hours:           decimal.Zero,
		}
		for _, e := range row.Entries {
			row.Hours = row.Hours.Add(e.Duration)
		}
		row.ShiftCount = len(row.Entries)
		row.Salary = row.Hours.Mul(profile.Rate)
		rows = append(rows, row)
	}
	slices.SortStableFunc(rows, func(x, y WorkerRow) int {
		if c := strings.Compare(x.Worker.FullName, y.Worker.FullName); c != 0 {
			return c
		}
		return compareID(x.Worker.ID, y.Worker.ID)
	})

	referenced := make(map[int64]struct{})
	for _, p := range positions {
		referenced[p.OriginalActivityID] = struct{}{}
	}
	for _, c := range corrections {
		referenced[c.NewActivityID] = struct{}{}
	}
	reportActivities := make([]domain.Activity, 0, len(referenced))
	for id := range referenced {
		act, err := lookupActivity(id)
		if err != nil {
			return nil, err
		}
		reportActivities = append(reportActivities, act)
	}
	slices.SortFunc(reportActivities, func(x, y domain.Activity) int {
		if x.IsDeleted != y.IsDeleted {
			if x.IsDeleted {
				return 1
			}
			return -1
		}
		if c := strings.Compare(x.Code, y.Code); c != 0 {
			return c
		}
		return compareID(x.ID, y.ID)
	})

	positionByID := make(map[int64]domain.WorkerPosition, len(positions))
	for _, p := range positions {
		positionByID[p.ID] = p
	}
	correctionRows := make([]CorrectionRow, 0, len(corrections))
	for _, c := range corrections {
		pos := positionByID[c.PositionID]
		ts := byTimesheet[pos.TimesheetID]
		original, err := lookupActivity(pos.OriginalActivityID)
		if err != nil {
			return nil, err
		}
		updated, err := lookupActivity(c.NewActivityID)
		if err != nil {
			return nil, err
		}
		correctionRows = append(correctionRows, CorrectionRow{
			Correction: c,
			MasterName: userByID[ts.MasterID].FullName,
			WorkerName: userByID[pos.WorkerID].FullName,
			Original:   original,
			New:        updated,
			AssignedAt: ts.At,
		})
	}
	slices.SortStableFunc(correctionRows, func(x, y CorrectionRow) int {
		if c := strings.Compare(x.WorkerName, y.WorkerName); c != 0 {
			return c
		}
		if c := y.Correction.At.Compare(x.Correction.At); c != 0 {
			return c
		}
		return compareID(y.Correction.ID, x.Correction.ID)
	})

	log.Debug("aggregated report", "workers", len(rows), "shifts", len(timesheets), "corrections", len(correctionRows))

	return &MonthReport{
		Factory:     factory,
		Period:      period,
		ShiftCounts: shiftCounts,
		Workers:     rows,
		Activities:  reportActivities,
		Corrections: correctionRows,
		Timesheets:  timesheets,
	}, nil
}

func compareID(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
