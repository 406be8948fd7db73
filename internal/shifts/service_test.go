package shifts

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"example.com/timesheet/internal/domain"
	"example.com/timesheet/internal/evidence"
	"example.com/timesheet/internal/persistence/memory"
	"example.com/timesheet/internal/platform/logger"
)

type env struct {
	svc     *Service
	store   *memory.Store
	now     time.Time
	factory domain.Factory
	master  domain.User
	admin   domain.User
	worker  domain.User
	day     domain.Activity
	night   domain.Activity
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	e := &env{store: memory.NewStore(), now: time.Date(2025, time.May, 20, 9, 0, 0, 0, time.UTC)}
	e.svc = NewService(e.store, evidence.NewLinker("https://drive.example/root", ""),
		WithClock(func() time.Time { return e.now }),
		WithLogger(logger.FromZap(zaptest.NewLogger(t))))

	var err error
	e.factory, err = e.svc.CreateFactory(ctx, "Acme", "North")
	require.NoError(t, err)

	e.master, err = e.store.CreateUser(ctx, domain.User{FullName: "Mila", Role: domain.RoleMaster})
	require.NoError(t, err)
	require.NoError(t, e.svc.AssignMaster(ctx, e.master.ID, e.factory.ID))
	e.admin, err = e.store.CreateUser(ctx, domain.User{FullName: "Ada", Role: domain.RoleAdmin})
	require.NoError(t, err)

	e.worker, _, err = e.svc.CreateWorker(ctx, NewWorker{FullName: "Anna", Job: "welder", Rate: decimal.RequireFromString("10.456")})
	require.NoError(t, err)

	e.day, err = e.svc.CreateActivity(ctx, domain.Activity{Code: "d8", Duration: decimal.NewFromInt(8), Color: "#AAFFAA"})
	require.NoError(t, err)
	e.night, err = e.svc.CreateActivity(ctx, domain.Activity{Code: "n12", Duration: decimal.NewFromInt(12), Color: "aaaaff"})
	require.NoError(t, err)
	return e
}

func TestCreateWorkerProfileStartsThisMonth(t *testing.T) {
	e := newEnv(t)
	profiles, err := e.store.ListProfiles(context.Background(), []int64{e.worker.ID}, domain.Period{Year: 2030, Month: 1})
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	require.Equal(t, domain.Period{Year: 2025, Month: 5}, profiles[0].Period)
	require.Equal(t, "10.46", profiles[0].Rate.StringFixed(2))
	require.Equal(t, domain.RoleWorker, e.worker.Role)

	_, _, err = e.svc.CreateWorker(context.Background(), NewWorker{FullName: "X", Job: "y", Rate: decimal.NewFromInt(-1)})
	require.ErrorIs(t, err, domain.ErrBadFormat)
	_, _, err = e.svc.CreateWorker(context.Background(), NewWorker{FullName: " ", Job: "y"})
	require.ErrorIs(t, err, domain.ErrBadFormat)
}

func TestChangeProfileWritesNextMonth(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	job := "foreman"
	updated, err := e.svc.ChangeProfile(ctx, e.worker.ID, ProfileChange{Job: &job})
	require.NoError(t, err)
	require.Equal(t, domain.Period{Year: 2025, Month: 6}, updated.Period)
	require.Equal(t, "foreman", updated.Job)
	require.Equal(t, "10.46", updated.Rate.StringFixed(2))

	// A second change in the same month keeps the first one's job.
	rate := decimal.NewFromInt(15)
	updated, err = e.svc.ChangeProfile(ctx, e.worker.ID, ProfileChange{Rate: &rate})
	require.NoError(t, err)
	require.Equal(t, "foreman", updated.Job)
	require.True(t, rate.Equal(updated.Rate))

	profiles, err := e.store.ListProfiles(ctx, []int64{e.worker.ID}, domain.Period{Year: 2030, Month: 1})
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	require.Equal(t, "welder", profiles[0].Job)

	_, err = e.svc.ChangeProfile(ctx, e.worker.ID, ProfileChange{})
	require.ErrorIs(t, err, domain.ErrBadFormat)
	_, err = e.svc.ChangeProfile(ctx, 999, ProfileChange{Job: &job})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateActivityValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.Equal(t, "aaffaa", e.day.Color)

	_, err := e.svc.CreateActivity(ctx, domain.Activity{Code: "d8", Duration: decimal.NewFromInt(8), Color: "ffffff"})
	require.ErrorIs(t, err, domain.ErrAlreadyExists)

	_, err = e.svc.CreateActivity(ctx, domain.Activity{Code: "x", Duration: decimal.NewFromInt(1), Color: "red"})
	require.ErrorIs(t, err, domain.ErrBadFormat)
	_, err = e.svc.CreateActivity(ctx, domain.Activity{Code: "x", Duration: decimal.NewFromInt(-1), Color: "ffffff"})
	require.ErrorIs(t, err, domain.ErrBadFormat)

	// Once deleted the code may be reused; history keeps the old one.
	require.NoError(t, e.svc.DeleteActivity(ctx, e.day.ID))
	reused, err := e.svc.CreateActivity(ctx, domain.Activity{Code: "d8", Duration: decimal.NewFromInt(9), Color: "ffffff"})
	require.NoError(t, err)
	require.NotEqual(t, e.day.ID, reused.ID)

	active, err := e.svc.ListActivities(ctx, false)
	require.NoError(t, err)
	require.Len(t, active, 2)
	all, err := e.svc.ListActivities(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestSubmitShift(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	ts, positions, err := e.svc.SubmitShift(ctx, Shift{
		MasterID:    e.master.ID,
		FactoryID:   e.factory.ID,
		Assignments: []Assignment{{WorkerID: e.worker.ID, ActivityID: e.day.ID}},
	})
	require.NoError(t, err)
	require.Equal(t, e.now, ts.At)
	require.Equal(t, "https://drive.example/root", ts.EvidenceLink)
	require.Len(t, positions, 1)
	require.Equal(t, ts.ID, positions[0].TimesheetID)

	latest, err := e.svc.ShiftsByDate(ctx, e.master.ID, e.factory.ID, time.Time{})
	require.NoError(t, err)
	require.Len(t, latest, 1)
	require.Equal(t, ts.ID, latest[0].ID)

	_, _, err = e.svc.SubmitShift(ctx, Shift{
		MasterID: e.worker.ID, FactoryID: e.factory.ID,
		Assignments: []Assignment{{WorkerID: e.worker.ID, ActivityID: e.day.ID}},
	})
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, _, err = e.svc.SubmitShift(ctx, Shift{MasterID: e.master.ID, FactoryID: e.factory.ID})
	require.ErrorIs(t, err, domain.ErrBadFormat)

	_, _, err = e.svc.SubmitShift(ctx, Shift{
		MasterID: e.master.ID, FactoryID: e.factory.ID,
		Assignments: []Assignment{{WorkerID: e.worker.ID, ActivityID: e.day.ID}, {WorkerID: e.worker.ID, ActivityID: e.night.ID}},
	})
	require.ErrorIs(t, err, domain.ErrBadFormat)

	require.NoError(t, e.svc.DeleteActivity(ctx, e.night.ID))
	_, _, err = e.svc.SubmitShift(ctx, Shift{
		MasterID: e.master.ID, FactoryID: e.factory.ID,
		Assignments: []Assignment{{WorkerID: e.worker.ID, ActivityID: e.night.ID}},
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCorrectPositionKeepsAuditLog(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, positions, err := e.svc.SubmitShift(ctx, Shift{
		MasterID: e.master.ID, FactoryID: e.factory.ID, EvidenceLink: "https://drive.example/p.jpg",
		Assignments: []Assignment{{WorkerID: e.worker.ID, ActivityID: e.day.ID}},
	})
	require.NoError(t, err)
	pos := positions[0]

	_, err = e.svc.CorrectPosition(ctx, e.admin.ID, pos.ID, e.night.ID, "was a night shift")
	require.NoError(t, err)
	e.now = e.now.Add(time.Hour)
	_, err = e.svc.CorrectPosition(ctx, e.admin.ID, pos.ID, e.day.ID, "no, it was a day shift")
	require.NoError(t, err)

	history, err := e.svc.PositionHistory(ctx, pos.ID)
	require.NoError(t, err)
	require.Len(t, history.Corrections, 2)
	require.Equal(t, "no, it was a day shift", history.Corrections[0].Reason)
	require.Equal(t, "was a night shift", history.Corrections[1].Reason)
	require.Equal(t, e.day.ID, history.Effective.ID)
	require.Equal(t, e.day.ID, history.Original.ID)

	stored, err := e.store.GetPosition(ctx, pos.ID)
	require.NoError(t, err)
	require.Equal(t, e.day.ID, stored.OriginalActivityID)

	_, err = e.svc.CorrectPosition(ctx, e.master.ID, pos.ID, e.night.ID, "nope")
	require.ErrorIs(t, err, domain.ErrForbidden)
	_, err = e.svc.CorrectPosition(ctx, e.admin.ID, pos.ID, e.night.ID, "  ")
	require.ErrorIs(t, err, domain.ErrBadFormat)
	_, err = e.svc.CorrectPosition(ctx, e.admin.ID, 999, e.night.ID, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteFactoryDemotesMasters(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.svc.DeleteFactory(ctx, e.factory.ID))

	master, err := e.store.GetUser(ctx, e.master.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RoleWorker, master.Role)

	active, err := e.svc.ListFactories(ctx, false)
	require.NoError(t, err)
	require.Empty(t, active)
	all, err := e.svc.ListFactories(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 1)

	_, err = e.svc.CreateFactory(ctx, "Acme", "North")
	require.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestUsersByRoleMask(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	staff, err := e.svc.UsersByRole(ctx, domain.RoleMaster|domain.RoleAdmin)
	require.NoError(t, err)
	require.Len(t, staff, 2)
	require.Equal(t, "Ada", staff[0].FullName)

	require.NoError(t, e.svc.SetRole(ctx, e.worker.ID, domain.RoleAdmin))
	staff, err = e.svc.UsersByRole(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	require.Len(t, staff, 2)
	require.ErrorIs(t, e.svc.SetRole(ctx, e.worker.ID, domain.Role(3)), domain.ErrBadFormat)
}

func TestRequestReport(t *testing.T) {
	e := newEnv(t)
	req, err := e.svc.RequestReport(context.Background(), e.admin.ID, domain.Period{Year: 2025, Month: 4}, []int64{e.factory.ID})
	require.NoError(t, err)
	require.NotEmpty(t, req.RequestID)
	require.Equal(t, []domain.ReportRequest{req}, e.store.ReportRequests())

	_, err = e.svc.RequestReport(context.Background(), e.admin.ID, domain.Period{Year: 2025, Month: 13}, nil)
	require.ErrorIs(t, err, domain.ErrBadFormat)
}
