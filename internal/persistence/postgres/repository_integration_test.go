//go:build integration

package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/timesheet/internal/domain"
	"example.com/timesheet/internal/events"
)

func startDatabase(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("timesheet"),
		postgrescontainer.WithUsername("timesheet"),
		postgrescontainer.WithPassword("timesheet"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	return pool
}

func TestRepositoryShiftLifecycle(t *testing.T) {
	ctx := context.Background()
	pool := startDatabase(t)
	repo := NewRepository(pool)

	factory, err := repo.CreateFactory(ctx, domain.Factory{CompanyName: "Acme", FactoryName: "North"})
	require.NoError(t, err)
	_, err = repo.CreateFactory(ctx, domain.Factory{CompanyName: "Acme", FactoryName: "North"})
	require.ErrorIs(t, err, domain.ErrAlreadyExists)

	master, err := repo.CreateUser(ctx, domain.User{FullName: "Mila", Role: domain.RoleMaster})
	require.NoError(t, err)
	require.NoError(t, repo.AssignMaster(ctx, master.ID, factory.ID))

	worker, err := repo.CreateWorker(ctx, domain.User{FullName: "Anna", Role: domain.RoleWorker}, domain.WorkerProfile{
		Period: domain.Period{Year: 2025, Month: 4}, Job: "welder", Rate: decimal.RequireFromString("10.50"),
	})
	require.NoError(t, err)

	day, err := repo.CreateActivity(ctx, domain.Activity{Code: "d8", Duration: decimal.NewFromInt(8), Color: "aaffaa"})
	require.NoError(t, err)
	_, err = repo.CreateActivity(ctx, domain.Activity{Code: "d8", Duration: decimal.NewFromInt(8), Color: "aaffaa"})
	require.ErrorIs(t, err, domain.ErrAlreadyExists)
	night, err := repo.CreateActivity(ctx, domain.Activity{Code: "n12", Duration: decimal.NewFromInt(12), Color: "aaaaff"})
	require.NoError(t, err)

	at := time.Date(2025, time.May, 5, 8, 0, 0, 0, time.UTC)
	ts, positions, err := repo.CreateShift(ctx, domain.Timesheet{MasterID: master.ID, FactoryID: factory.ID, At: at},
		[]domain.WorkerPosition{{WorkerID: worker.ID, OriginalActivityID: day.ID}})
	require.NoError(t, err)
	require.Len(t, positions, 1)

	_, err = repo.AppendCorrection(ctx, domain.Correction{
		PositionID: positions[0].ID, AdminID: master.ID, NewActivityID: night.ID, Reason: "night", At: at.Add(time.Hour),
	})
	require.NoError(t, err)
	_, err = repo.AppendCorrection(ctx, domain.Correction{PositionID: 999, AdminID: master.ID, NewActivityID: night.ID, Reason: "x", At: at})
	require.ErrorIs(t, err, domain.ErrNotFound)

	may := domain.Period{Year: 2025, Month: 5}
	require.NoError(t, repo.ReadSnapshot(ctx, func(r domain.Reader) error {
		sheets, err := r.ListTimesheets(ctx, factory.ID, may)
		require.NoError(t, err)
		require.Len(t, sheets, 1)
		require.Equal(t, ts.ID, sheets[0].ID)
		require.True(t, at.Equal(sheets[0].At))

		corrections, err := r.ListCorrections(ctx, []int64{positions[0].ID})
		require.NoError(t, err)
		require.Len(t, corrections, 1)
		require.Equal(t, night.ID, corrections[0].NewActivityID)

		profiles, err := r.ListProfiles(ctx, []int64{worker.ID}, may)
		require.NoError(t, err)
		require.Len(t, profiles, 1)
		require.Equal(t, "10.5", profiles[0].Rate.String())
		return nil
	}))

	latest, err := repo.ShiftsByMaster(ctx, master.ID, factory.ID, time.Time{})
	require.NoError(t, err)
	require.Len(t, latest, 1)
	onDay, err := repo.ShiftsByMaster(ctx, master.ID, factory.ID, at)
	require.NoError(t, err)
	require.Len(t, onDay, 1)

	var eventTypes []string
	rows, err := pool.Query(ctx, `SELECT event_type FROM outbox ORDER BY event_id`)
	require.NoError(t, err)
	for rows.Next() {
		var et string
		require.NoError(t, rows.Scan(&et))
		eventTypes = append(eventTypes, et)
	}
	require.NoError(t, rows.Err())
	require.Equal(t, []string{events.TypeProfileChanged, events.TypeShiftSubmitted, events.TypePositionCorrected}, eventTypes)

	require.NoError(t, repo.SoftDeleteFactory(ctx, factory.ID))
	demoted, err := repo.GetUser(ctx, master.ID)
	require.NoError(t, err)
	require.Equal(t, domain.RoleWorker, demoted.Role)
}

func TestReadSnapshotIgnoresLaterWrites(t *testing.T) {
	ctx := context.Background()
	pool := startDatabase(t)
	repo := NewRepository(pool)

	_, err := repo.CreateFactory(ctx, domain.Factory{CompanyName: "Acme", FactoryName: "North"})
	require.NoError(t, err)

	require.NoError(t, repo.ReadSnapshot(ctx, func(r domain.Reader) error {
		before, err := r.ListFactories(ctx, true)
		require.NoError(t, err)

		_, err = repo.CreateFactory(ctx, domain.Factory{CompanyName: "Acme", FactoryName: "South"})
		require.NoError(t, err)

		after, err := r.ListFactories(ctx, true)
		require.NoError(t, err)
		require.Equal(t, before, after)
		return nil
	}))

	all, err := repo.ListFactories(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	files := []string{
		"../../../db/postgres/migrations/0001_init.up.sql",
		"../../../db/postgres/migrations/0002_outbox_dlq.up.sql",
	}

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	for _, rel := range files {
		path := resolvePath(t, rel)
		contents, readErr := os.ReadFile(path)
		require.NoError(t, readErr)

		_, execErr := pool.Exec(ctx, string(contents))
		require.NoError(t, execErr)
	}
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
