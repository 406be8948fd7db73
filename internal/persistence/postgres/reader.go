package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"example.com/timesheet/internal/domain"
)

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// reader implements domain.Reader over a querier. A transaction cannot run
// statements concurrently, so snapshot readers serialize through mu.
type reader struct {
	q   querier
	mu  *sync.Mutex
	loc *time.Location
}

func (r *reader) lock() func() {
	if r.mu == nil {
		return func() {}
	}
	r.mu.Lock()
	return r.mu.Unlock
}

const (
	factoryColumns  = `factory_id, company_name, factory_name, is_deleted`
	activityColumns = `activity_id, code, duration::text, description, color, is_deleted`
	userColumns     = `user_id, external_id, full_name, role, registered_at`
	sheetColumns    = `timesheet_id, master_id, factory_id, shift_at, evidence_link`
)

func scanFactory(row pgx.Row) (domain.Factory, error) {
	var f domain.Factory
	err := row.Scan(&f.ID, &f.CompanyName, &f.FactoryName, &f.IsDeleted)
	return f, err
}

func scanActivity(row pgx.Row) (domain.Activity, error) {
	var (
		a        domain.Activity
		duration string
	)
	if err := row.Scan(&a.ID, &a.Code, &duration, &a.Description, &a.Color, &a.IsDeleted); err != nil {
		return domain.Activity{}, err
	}
	d, err := decimal.NewFromString(duration)
	if err != nil {
		return domain.Activity{}, fmt.Errorf("activity %d duration: %w", a.ID, err)
	}
	a.Duration = d
	return a, nil
}

func (r *reader) scanUser(row pgx.Row) (domain.User, error) {
	var (
		u    domain.User
		role int
	)
	if err := row.Scan(&u.ID, &u.ExternalID, &u.FullName, &role, &u.RegisteredAt); err != nil {
		return domain.User{}, err
	}
	u.Role = domain.Role(role)
	u.RegisteredAt = u.RegisteredAt.In(r.loc)
	return u, nil
}

func (r *reader) scanTimesheet(row pgx.Row) (domain.Timesheet, error) {
	var ts domain.Timesheet
	if err := row.Scan(&ts.ID, &ts.MasterID, &ts.FactoryID, &ts.At, &ts.EvidenceLink); err != nil {
		return domain.Timesheet{}, err
	}
	ts.At = ts.At.In(r.loc)
	return ts, nil
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (T, error)) ([]T, error) {
	defer rows.Close()
	out := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// GetFactory implements domain.Reader.
func (r *reader) GetFactory(ctx context.Context, id int64) (domain.Factory, error) {
	defer r.lock()()
	f, err := scanFactory(r.q.QueryRow(ctx, `SELECT `+factoryColumns+` FROM factories WHERE factory_id=$1`, id))
	if err != nil {
		return domain.Factory{}, translate(err, "factory %d", id)
	}
	return f, nil
}

// ListFactories implements domain.Reader.
func (r *reader) ListFactories(ctx context.Context, includeDeleted bool) ([]domain.Factory, error) {
	defer r.lock()()
	rows, err := r.q.Query(ctx, `SELECT `+factoryColumns+` FROM factories
        WHERE $1 OR NOT is_deleted ORDER BY factory_id`, includeDeleted)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanFactory)
}

// GetActivity implements domain.Reader.
func (r *reader) GetActivity(ctx context.Context, id int64) (domain.Activity, error) {
	defer r.lock()()
	a, err := scanActivity(r.q.QueryRow(ctx, `SELECT `+activityColumns+` FROM activities WHERE activity_id=$1`, id))
	if err != nil {
		return domain.Activity{}, translate(err, "activity %d", id)
	}
	return a, nil
}

// ListActivities implements domain.Reader.
func (r *reader) ListActivities(ctx context.Context, filter domain.ActivityFilter) ([]domain.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities`
	switch filter {
	case domain.ActivitiesActive:
		query += ` WHERE NOT is_deleted`
	case domain.ActivitiesDeleted:
		query += ` WHERE is_deleted`
	}
	query += ` ORDER BY activity_id`

	defer r.lock()()
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanActivity)
}

// ListTimesheets implements domain.Reader.
func (r *reader) ListTimesheets(ctx context.Context, factoryID int64, period domain.Period) ([]domain.Timesheet, error) {
	defer r.lock()()
	rows, err := r.q.Query(ctx, `SELECT `+sheetColumns+` FROM timesheets
        WHERE factory_id=$1 AND shift_at >= $2 AND shift_at < $3
        ORDER BY shift_at, timesheet_id`,
		factoryID, period.Start(r.loc), period.End(r.loc))
	if err != nil {
		return nil, err
	}
	return collect(rows, r.scanTimesheet)
}

// ListPositions implements domain.Reader.
func (r *reader) ListPositions(ctx context.Context, timesheetIDs []int64) ([]domain.WorkerPosition, error) {
	defer r.lock()()
	rows, err := r.q.Query(ctx, `SELECT position_id, timesheet_id, worker_id, original_activity_id
        FROM worker_positions WHERE timesheet_id = ANY($1) ORDER BY position_id`, timesheetIDs)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (domain.WorkerPosition, error) {
		var p domain.WorkerPosition
		err := row.Scan(&p.ID, &p.TimesheetID, &p.WorkerID, &p.OriginalActivityID)
		return p, err
	})
}

// ListCorrections implements domain.Reader.
func (r *reader) ListCorrections(ctx context.Context, positionIDs []int64) ([]domain.Correction, error) {
	defer r.lock()()
	rows, err := r.q.Query(ctx, `SELECT correction_id, position_id, admin_id, new_activity_id, reason, corrected_at
        FROM corrections WHERE position_id = ANY($1)
        ORDER BY corrected_at DESC, correction_id DESC`, positionIDs)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (domain.Correction, error) {
		var c domain.Correction
		if err := row.Scan(&c.ID, &c.PositionID, &c.AdminID, &c.NewActivityID, &c.Reason, &c.At); err != nil {
			return domain.Correction{}, err
		}
		c.At = c.At.In(r.loc)
		return c, nil
	})
}

// ListProfiles implements domain.Reader.
func (r *reader) ListProfiles(ctx context.Context, workerIDs []int64, upTo domain.Period) ([]domain.WorkerProfile, error) {
	defer r.lock()()
	rows, err := r.q.Query(ctx, `SELECT user_id, year, month, job, rate::text
        FROM worker_profiles WHERE user_id = ANY($1) AND (year, month) <= ($2, $3)
        ORDER BY user_id, year, month`, workerIDs, upTo.Year, upTo.Month)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (domain.WorkerProfile, error) {
		var (
			p    domain.WorkerProfile
			rate string
		)
		if err := row.Scan(&p.WorkerID, &p.Period.Year, &p.Period.Month, &p.Job, &rate); err != nil {
			return domain.WorkerProfile{}, err
		}
		d, err := decimal.NewFromString(rate)
		if err != nil {
			return domain.WorkerProfile{}, fmt.Errorf("worker %d rate: %w", p.WorkerID, err)
		}
		p.Rate = d
		return p, nil
	})
}

// GetUsers implements domain.Reader. Unknown ids are skipped.
func (r *reader) GetUsers(ctx context.Context, ids []int64) ([]domain.User, error) {
	defer r.lock()()
	rows, err := r.q.Query(ctx, `SELECT `+userColumns+` FROM users
        WHERE user_id = ANY($1) ORDER BY full_name, user_id`, ids)
	if err != nil {
		return nil, err
	}
	return collect(rows, r.scanUser)
}

// ListUsersByRole implements domain.Reader; role may be an OR-ed mask.
func (r *reader) ListUsersByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	defer r.lock()()
	rows, err := r.q.Query(ctx, `SELECT `+userColumns+` FROM users
        WHERE role & $1 <> 0 ORDER BY full_name, user_id`, int(role))
	if err != nil {
		return nil, err
	}
	return collect(rows, r.scanUser)
}

// translate maps driver errors onto the domain taxonomy.
func translate(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	subject := fmt.Sprintf(format, args...)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", subject, domain.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w", subject, domain.ErrAlreadyExists)
		case "23503":
			return fmt.Errorf("%s references a missing row: %w", subject, domain.ErrNotFound)
		case "23514":
			return fmt.Errorf("%s: %w", subject, domain.ErrBadFormat)
		}
	}
	return fmt.Errorf("%s: %w", subject, err)
}
