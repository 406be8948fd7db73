package aggregation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"example.com/timesheet/internal/domain"
	"example.com/timesheet/internal/persistence/memory"
	"example.com/timesheet/internal/platform/logger"
	"example.com/timesheet/internal/resolution"
)

type fixture struct {
	store   *memory.Store
	factory domain.Factory
	master  domain.User
	acts    map[string]domain.Activity
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	factory, err := store.CreateFactory(ctx, domain.Factory{CompanyName: "Acme", FactoryName: "North"})
	require.NoError(t, err)

	master, err := store.CreateWorker(ctx, domain.User{FullName: "Mila Master", Role: domain.RoleMaster}, domain.WorkerProfile{
		Period: domain.Period{Year: 2025, Month: 1}, Job: "master", Rate: decimal.NewFromInt(20),
	})
	require.NoError(t, err)
	require.NoError(t, store.AssignMaster(ctx, master.ID, factory.ID))

	acts := make(map[string]domain.Activity)
	for _, a := range []domain.Activity{
		{Code: "d8", Duration: decimal.NewFromInt(8), Description: "day", Color: "aaffaa"},
		{Code: "n12", Duration: decimal.NewFromInt(12), Description: "night", Color: "aaaaff"},
		{Code: "h4", Duration: decimal.RequireFromString("4.5"), Description: "half", Color: "ffaaaa"},
	} {
		created, err := store.CreateActivity(ctx, a)
		require.NoError(t, err)
		acts[a.Code] = created
	}

	return &fixture{
		store:   store,
		factory: factory,
		master:  master,
		acts:    acts,
		now:     time.Date(2025, time.May, 20, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) worker(t *testing.T, name, job, rate string, period domain.Period) domain.User {
	t.Helper()
	u, err := f.store.CreateWorker(context.Background(), domain.User{FullName: name, Role: domain.RoleWorker}, domain.WorkerProfile{
		Period: period, Job: job, Rate: decimal.RequireFromString(rate),
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) shift(t *testing.T, at time.Time, assignments map[int64]string) []domain.WorkerPosition {
	t.Helper()
	positions := make([]domain.WorkerPosition, 0, len(assignments))
	for workerID, code := range assignments {
		positions = append(positions, domain.WorkerPosition{WorkerID: workerID, OriginalActivityID: f.acts[code].ID})
	}
	_, stored, err := f.store.CreateShift(context.Background(), domain.Timesheet{
		MasterID:     f.master.ID,
		FactoryID:    f.factory.ID,
		At:           at,
		EvidenceLink: "https://drive.example/" + at.Format("0102-1504"),
	}, positions)
	require.NoError(t, err)
	return stored
}

func (f *fixture) aggregator(t *testing.T) *Aggregator {
	resolver := resolution.NewResolver(func() time.Time { return f.now })
	return New(f.store, resolver, WithLogger(logger.FromZap(zaptest.NewLogger(t))))
}

func rowFor(t *testing.T, report *MonthReport, userID int64) WorkerRow {
	t.Helper()
	for _, r := range report.Workers {
		if r.Worker.ID == userID {
			return r
		}
	}
	t.Fatalf("worker %d missing from report", userID)
	return WorkerRow{}
}

var may = domain.Period{Year: 2025, Month: 5}

func TestAggregateDayCountsAndTotals(t *testing.T) {
	f := newFixture(t)
	anna := f.worker(t, "Anna", "welder", "10", domain.Period{Year: 2025, Month: 1})
	bob := f.worker(t, "Bob", "helper", "7.5", domain.Period{Year: 2025, Month: 1})

	f.shift(t, time.Date(2025, 5, 5, 8, 0, 0, 0, time.UTC), map[int64]string{anna.ID: "d8"})
	f.shift(t, time.Date(2025, 5, 5, 20, 0, 0, 0, time.UTC), map[int64]string{bob.ID: "n12"})
	f.shift(t, time.Date(2025, 5, 6, 8, 0, 0, 0, time.UTC), map[int64]string{anna.ID: "h4", bob.ID: "d8"})
	// Outside the month.
	f.shift(t, time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC), map[int64]string{anna.ID: "d8"})

	report, err := f.aggregator(t).Aggregate(context.Background(), f.factory.ID, may)
	require.NoError(t, err)

	require.Equal(t, 31, report.Days())
	require.Equal(t, 2, report.ShiftCounts[4])
	require.Equal(t, 1, report.ShiftCounts[5])
	require.Equal(t, 0, report.ShiftCounts[0])
	require.Len(t, report.Timesheets, 3)

	annaRow := rowFor(t, report, anna.ID)
	require.Equal(t, 2, annaRow.ShiftCount)
	require.True(t, decimal.RequireFromString("12.5").Equal(annaRow.Hours))
	require.True(t, decimal.RequireFromString("125").Equal(annaRow.Salary))
	require.Equal(t, 5, annaRow.Entries[0].Day)
	require.Equal(t, 6, annaRow.Entries[1].Day)
	require.False(t, annaRow.IsMaster)

	bobRow := rowFor(t, report, bob.ID)
	require.True(t, decimal.NewFromInt(20).Equal(bobRow.Hours))
	require.True(t, decimal.NewFromInt(150).Equal(bobRow.Salary))

	// Master submitted shifts, so appears with no entries of their own.
	masterRow := rowFor(t, report, f.master.ID)
	require.True(t, masterRow.IsMaster)
	require.Empty(t, masterRow.Entries)
	require.True(t, decimal.Zero.Equal(masterRow.Salary))

	names := make([]string, 0, len(report.Workers))
	for _, r := range report.Workers {
		names = append(names, r.Worker.FullName)
	}
	require.Equal(t, []string{"Anna", "Bob", "Mila Master"}, names)

	require.True(t, decimal.RequireFromString("275").Equal(report.TotalSalary()))
}

func TestAggregateProfileChangeAppliesFromNextMonth(t *testing.T) {
	f := newFixture(t)
	anna := f.worker(t, "Anna", "welder", "10", domain.Period{Year: 2025, Month: 1})
	require.NoError(t, f.store.UpsertProfile(context.Background(), domain.WorkerProfile{
		WorkerID: anna.ID, Period: may.Next(), Job: "foreman", Rate: decimal.NewFromInt(15),
	}))

	f.shift(t, time.Date(2025, 5, 2, 8, 0, 0, 0, time.UTC), map[int64]string{anna.ID: "d8"})
	f.shift(t, time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC), map[int64]string{anna.ID: "d8"})

	agg := f.aggregator(t)

	current, err := agg.Aggregate(context.Background(), f.factory.ID, may)
	require.NoError(t, err)
	row := rowFor(t, current, anna.ID)
	require.Equal(t, "welder", row.Profile.Job)
	require.True(t, decimal.NewFromInt(80).Equal(row.Salary))

	next, err := agg.Aggregate(context.Background(), f.factory.ID, may.Next())
	require.NoError(t, err)
	row = rowFor(t, next, anna.ID)
	require.Equal(t, "foreman", row.Profile.Job)
	require.False(t, row.ProfileFallback)
	require.True(t, decimal.NewFromInt(120).Equal(row.Salary))
}

func TestAggregateUsesLatestCorrectionAndListsAuditLog(t *testing.T) {
	f := newFixture(t)
	anna := f.worker(t, "Anna", "welder", "10", domain.Period{Year: 2025, Month: 1})
	positions := f.shift(t, time.Date(2025, 5, 3, 8, 0, 0, 0, time.UTC), map[int64]string{anna.ID: "d8"})
	require.Len(t, positions, 1)

	ctx := context.Background()
	_, err := f.store.AppendCorrection(ctx, domain.Correction{
		PositionID: positions[0].ID, AdminID: f.master.ID, NewActivityID: f.acts["n12"].ID,
		Reason: "night actually", At: time.Date(2025, 5, 4, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	_, err = f.store.AppendCorrection(ctx, domain.Correction{
		PositionID: positions[0].ID, AdminID: f.master.ID, NewActivityID: f.acts["h4"].ID,
		Reason: "left early", At: time.Date(2025, 5, 4, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	report, err := f.aggregator(t).Aggregate(ctx, f.factory.ID, may)
	require.NoError(t, err)

	row := rowFor(t, report, anna.ID)
	require.Len(t, row.Entries, 1)
	require.Equal(t, "h4", row.Entries[0].Activity.Code)
	require.True(t, decimal.RequireFromString("4.5").Equal(row.Hours))

	require.Len(t, report.Corrections, 2)
	require.Equal(t, "h4", report.Corrections[0].New.Code)
	require.Equal(t, "n12", report.Corrections[1].New.Code)
	for _, c := range report.Corrections {
		require.Equal(t, "d8", c.Original.Code)
		require.Equal(t, "Anna", c.WorkerName)
		require.Equal(t, "Mila Master", c.MasterName)
	}

	codes := make([]string, 0, len(report.Activities))
	for _, a := range report.Activities {
		codes = append(codes, a.Code)
	}
	require.Equal(t, []string{"d8", "h4", "n12"}, codes)
}

func TestAggregateResolvesDeletedActivities(t *testing.T) {
	f := newFixture(t)
	anna := f.worker(t, "Anna", "welder", "10", domain.Period{Year: 2025, Month: 1})
	f.shift(t, time.Date(2025, 5, 3, 8, 0, 0, 0, time.UTC), map[int64]string{anna.ID: "n12"})
	require.NoError(t, f.store.SoftDeleteActivity(context.Background(), f.acts["n12"].ID))

	report, err := f.aggregator(t).Aggregate(context.Background(), f.factory.ID, may)
	require.NoError(t, err)
	row := rowFor(t, report, anna.ID)
	require.Equal(t, "n12", row.Entries[0].Activity.Code)
	require.True(t, report.Activities[0].IsDeleted)
}

func TestAggregateWidensDayForRepeatedWorker(t *testing.T) {
	f := newFixture(t)
	anna := f.worker(t, "Anna", "welder", "10", domain.Period{Year: 2025, Month: 1})
	_, _, err := f.store.CreateShift(context.Background(), domain.Timesheet{
		MasterID: f.master.ID, FactoryID: f.factory.ID, At: time.Date(2025, 5, 9, 8, 0, 0, 0, time.UTC),
	}, []domain.WorkerPosition{
		{WorkerID: anna.ID, OriginalActivityID: f.acts["d8"].ID},
		{WorkerID: anna.ID, OriginalActivityID: f.acts["h4"].ID},
	})
	require.NoError(t, err)

	report, err := f.aggregator(t).Aggregate(context.Background(), f.factory.ID, may)
	require.NoError(t, err)
	require.Equal(t, 2, report.ShiftCounts[8])
	require.Len(t, rowFor(t, report, anna.ID).Entries, 2)
}

func TestAggregateFallbackAndMissingProfile(t *testing.T) {
	f := newFixture(t)
	// Only has a profile from May; an April report falls back to it.
	late := f.worker(t, "Late Joiner", "packer", "9", may)
	f.shift(t, time.Date(2025, 4, 10, 8, 0, 0, 0, time.UTC), map[int64]string{late.ID: "d8"})

	agg := f.aggregator(t)
	report, err := agg.Aggregate(context.Background(), f.factory.ID, domain.Period{Year: 2025, Month: 4})
	require.NoError(t, err)
	row := rowFor(t, report, late.ID)
	require.True(t, row.ProfileFallback)
	require.Equal(t, "packer", row.Profile.Job)

	// Profile only in the future: both lookups miss and the report fails.
	future := f.worker(t, "Future", "packer", "9", domain.Period{Year: 2025, Month: 9})
	f.shift(t, time.Date(2025, 4, 11, 8, 0, 0, 0, time.UTC), map[int64]string{future.ID: "d8"})
	_, err = agg.Aggregate(context.Background(), f.factory.ID, domain.Period{Year: 2025, Month: 4})
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.Contains(t, err.Error(), "Future")
}

func TestAggregateNamesWorkerWithoutAnyProfile(t *testing.T) {
	f := newFixture(t)
	ghost, err := f.store.CreateUser(context.Background(), domain.User{FullName: "Ghost", Role: domain.RoleWorker})
	require.NoError(t, err)
	f.shift(t, time.Date(2025, 5, 6, 8, 0, 0, 0, time.UTC), map[int64]string{ghost.ID: "d8"})

	_, err = f.aggregator(t).Aggregate(context.Background(), f.factory.ID, may)
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.Contains(t, err.Error(), fmt.Sprintf("profile for worker %d at", ghost.ID))
}

func TestAggregateEmptyMonthAndUnknownFactory(t *testing.T) {
	f := newFixture(t)
	agg := f.aggregator(t)

	report, err := agg.Aggregate(context.Background(), f.factory.ID, domain.Period{Year: 2024, Month: 2})
	require.NoError(t, err)
	require.Equal(t, 29, report.Days())
	require.Empty(t, report.Workers)
	require.Empty(t, report.Corrections)

	_, err = agg.Aggregate(context.Background(), 999, may)
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = agg.Aggregate(context.Background(), f.factory.ID, domain.Period{Year: 2025, Month: 13})
	require.ErrorIs(t, err, domain.ErrBadFormat)
}

func TestAggregateIgnoresWritesAfterSnapshot(t *testing.T) {
	f := newFixture(t)
	anna := f.worker(t, "Anna", "welder", "10", domain.Period{Year: 2025, Month: 1})
	f.shift(t, time.Date(2025, 5, 3, 8, 0, 0, 0, time.UTC), map[int64]string{anna.ID: "d8"})

	var report *MonthReport
	err := f.store.ReadSnapshot(context.Background(), func(r domain.Reader) error {
		f.shift(t, time.Date(2025, 5, 4, 8, 0, 0, 0, time.UTC), map[int64]string{anna.ID: "d8"})
		var err error
		report, err = f.aggregator(t).aggregate(context.Background(), r, f.factory.ID, may)
		return err
	})
	require.NoError(t, err)
	require.Len(t, report.Timesheets, 1)
}
