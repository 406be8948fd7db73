// Package postgres implements domain.Store on PostgreSQL. Every write that
// other services care about records an outbox row inside its transaction.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/timesheet/internal/domain"
	"example.com/timesheet/internal/events"
	"example.com/timesheet/internal/observability"
)

// Repository provides Postgres-backed persistence for the timesheet domain.
type Repository struct {
	reader
	pool *pgxpool.Pool
}

// Option configures a Repository.
type Option func(*Repository)

// WithLocation sets the zone month and day boundaries are computed in.
func WithLocation(loc *time.Location) Option {
	return func(r *Repository) {
		r.loc = loc
	}
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool, opts ...Option) *Repository {
	r := &Repository{reader: reader{q: pool, loc: time.UTC}, pool: pool}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ domain.Store = (*Repository)(nil)

// ReadSnapshot runs fn inside a read-only REPEATABLE READ transaction.
func (r *Repository) ReadSnapshot(ctx context.Context, fn func(domain.Reader) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(&reader{q: tx, mu: &sync.Mutex{}, loc: r.loc}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// inTx runs fn in a read-committed transaction.
func (r *Repository) inTx(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// CreateFactory implements domain.Store.
func (r *Repository) CreateFactory(ctx context.Context, factory domain.Factory) (domain.Factory, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO factories (company_name, factory_name) VALUES ($1,$2) RETURNING factory_id`,
		factory.CompanyName, factory.FactoryName).Scan(&factory.ID)
	if err != nil {
		return domain.Factory{}, translate(err, "factory %s/%s", factory.CompanyName, factory.FactoryName)
	}
	return factory, nil
}

// SoftDeleteFactory marks the factory deleted and demotes its masters to workers.
func (r *Repository) SoftDeleteFactory(ctx context.Context, id int64) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE factories SET is_deleted = TRUE WHERE factory_id=$1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("factory %d: %w", id, domain.ErrNotFound)
		}
		if _, err := tx.Exec(ctx, `UPDATE users SET role=$2
            WHERE user_id IN (SELECT user_id FROM master_factories WHERE factory_id=$1)`, id, int(domain.RoleWorker)); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `DELETE FROM master_factories WHERE factory_id=$1`, id)
		return err
	})
}

// AssignMaster binds a master to a factory, replacing any previous binding.
func (r *Repository) AssignMaster(ctx context.Context, userID, factoryID int64) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		var role int
		if err := tx.QueryRow(ctx, `SELECT role FROM users WHERE user_id=$1`, userID).Scan(&role); err != nil {
			return translate(err, "user %d", userID)
		}
		if domain.Role(role) != domain.RoleMaster {
			return fmt.Errorf("user %d is not a master: %w", userID, domain.ErrBadFormat)
		}
		_, err := tx.Exec(ctx, `INSERT INTO master_factories (user_id, factory_id) VALUES ($1,$2)
            ON CONFLICT (user_id) DO UPDATE SET factory_id = EXCLUDED.factory_id`, userID, factoryID)
		return translate(err, "factory %d", factoryID)
	})
}

// GetUser implements domain.Store.
func (r *Repository) GetUser(ctx context.Context, id int64) (domain.User, error) {
	u, err := r.scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE user_id=$1`, id))
	if err != nil {
		return domain.User{}, translate(err, "user %d", id)
	}
	return u, nil
}

// CreateUser registers a user without a profile, e.g. an admin.
func (r *Repository) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO users (external_id, full_name, role) VALUES ($1,$2,$3)
        RETURNING user_id, registered_at`, user.ExternalID, user.FullName, int(user.Role)).Scan(&user.ID, &user.RegisteredAt)
	if err != nil {
		return domain.User{}, translate(err, "user %q", user.FullName)
	}
	user.RegisteredAt = user.RegisteredAt.In(r.loc)
	return user, nil
}

// UpdateUserRole implements domain.Store; leaving the master role drops the factory binding.
func (r *Repository) UpdateUserRole(ctx context.Context, id int64, role domain.Role) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE users SET role=$2 WHERE user_id=$1`, id, int(role))
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
		}
		if role == domain.RoleMaster {
			return nil
		}
		_, err = tx.Exec(ctx, `DELETE FROM master_factories WHERE user_id=$1`, id)
		return err
	})
}

// CreateWorker inserts the user and the first profile version together.
func (r *Repository) CreateWorker(ctx context.Context, user domain.User, profile domain.WorkerProfile) (domain.User, error) {
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `INSERT INTO users (external_id, full_name, role) VALUES ($1,$2,$3)
            RETURNING user_id, registered_at`, user.ExternalID, user.FullName, int(user.Role)).Scan(&user.ID, &user.RegisteredAt); err != nil {
			return translate(err, "user %q", user.FullName)
		}
		profile.WorkerID = user.ID
		return r.upsertProfile(ctx, tx, profile)
	})
	if err != nil {
		return domain.User{}, err
	}
	user.RegisteredAt = user.RegisteredAt.In(r.loc)
	return user, nil
}

// UpsertProfile implements domain.Store.
func (r *Repository) UpsertProfile(ctx context.Context, profile domain.WorkerProfile) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		return r.upsertProfile(ctx, tx, profile)
	})
}

func (r *Repository) upsertProfile(ctx context.Context, tx pgx.Tx, profile domain.WorkerProfile) error {
	_, err := tx.Exec(ctx, `INSERT INTO worker_profiles (user_id, year, month, job, rate) VALUES ($1,$2,$3,$4,$5::numeric)
        ON CONFLICT (user_id, year, month) DO UPDATE SET job = EXCLUDED.job, rate = EXCLUDED.rate`,
		profile.WorkerID, profile.Period.Year, profile.Period.Month, profile.Job, profile.Rate.StringFixed(2))
	if err != nil {
		return translate(err, "profile of user %d", profile.WorkerID)
	}
	key := strconv.FormatInt(profile.WorkerID, 10)
	return insertOutbox(ctx, tx, outboxRecord{
		aggregateType: "worker",
		aggregateID:   key,
		eventType:     events.TypeProfileChanged,
		partitionKey:  key,
		dedupeKey:     fmt.Sprintf("%d:%s:%s:%s", profile.WorkerID, profile.Period, profile.Job, profile.Rate.StringFixed(2)),
		payload: events.ProfileChanged{
			WorkerID: profile.WorkerID,
			Year:     profile.Period.Year,
			Month:    profile.Period.Month,
			Job:      profile.Job,
			Rate:     profile.Rate.StringFixed(2),
		},
	})
}

// CreateActivity implements domain.Store.
func (r *Repository) CreateActivity(ctx context.Context, activity domain.Activity) (domain.Activity, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO activities (code, duration, description, color) VALUES ($1,$2::numeric,$3,$4)
        RETURNING activity_id`, activity.Code, activity.Duration.String(), activity.Description, activity.Color).Scan(&activity.ID)
	if err != nil {
		return domain.Activity{}, translate(err, "activity code %q", activity.Code)
	}
	return activity, nil
}

// SoftDeleteActivity implements domain.Store.
func (r *Repository) SoftDeleteActivity(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE activities SET is_deleted = TRUE WHERE activity_id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("activity %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// CreateShift inserts the shift header, its positions and a shift.submitted event.
func (r *Repository) CreateShift(ctx context.Context, timesheet domain.Timesheet, positions []domain.WorkerPosition) (domain.Timesheet, []domain.WorkerPosition, error) {
	stored := make([]domain.WorkerPosition, 0, len(positions))
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `INSERT INTO timesheets (master_id, factory_id, shift_at, evidence_link) VALUES ($1,$2,$3,$4)
            RETURNING timesheet_id`, timesheet.MasterID, timesheet.FactoryID, timesheet.At, timesheet.EvidenceLink).Scan(&timesheet.ID); err != nil {
			return translate(err, "shift of factory %d", timesheet.FactoryID)
		}

		payload := events.ShiftSubmitted{
			TimesheetID:  timesheet.ID,
			MasterID:     timesheet.MasterID,
			FactoryID:    timesheet.FactoryID,
			At:           timesheet.At.UTC(),
			EvidenceLink: timesheet.EvidenceLink,
			Positions:    make([]events.ShiftPosition, 0, len(positions)),
		}
		for _, p := range positions {
			p.TimesheetID = timesheet.ID
			if err := tx.QueryRow(ctx, `INSERT INTO worker_positions (timesheet_id, worker_id, original_activity_id) VALUES ($1,$2,$3)
                RETURNING position_id`, p.TimesheetID, p.WorkerID, p.OriginalActivityID).Scan(&p.ID); err != nil {
				return translate(err, "position of worker %d", p.WorkerID)
			}
			stored = append(stored, p)
			payload.Positions = append(payload.Positions, events.ShiftPosition{
				PositionID: p.ID, WorkerID: p.WorkerID, ActivityID: p.OriginalActivityID,
			})
		}

		key := strconv.FormatInt(timesheet.ID, 10)
		return insertOutbox(ctx, tx, outboxRecord{
			aggregateType: "timesheet",
			aggregateID:   key,
			eventType:     events.TypeShiftSubmitted,
			partitionKey:  strconv.FormatInt(timesheet.FactoryID, 10),
			dedupeKey:     key + ":" + events.TypeShiftSubmitted,
			payload:       payload,
		})
	})
	if err != nil {
		return domain.Timesheet{}, nil, err
	}
	observability.RecordShiftSubmitted(timesheet.At)
	return timesheet, stored, nil
}

// GetPosition implements domain.Store.
func (r *Repository) GetPosition(ctx context.Context, id int64) (domain.WorkerPosition, error) {
	var p domain.WorkerPosition
	err := r.pool.QueryRow(ctx, `SELECT position_id, timesheet_id, worker_id, original_activity_id
        FROM worker_positions WHERE position_id=$1`, id).Scan(&p.ID, &p.TimesheetID, &p.WorkerID, &p.OriginalActivityID)
	if err != nil {
		return domain.WorkerPosition{}, translate(err, "position %d", id)
	}
	return p, nil
}

// AppendCorrection implements domain.Store.
func (r *Repository) AppendCorrection(ctx context.Context, correction domain.Correction) (domain.Correction, error) {
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `INSERT INTO corrections (position_id, admin_id, new_activity_id, reason, corrected_at)
            VALUES ($1,$2,$3,$4,$5) RETURNING correction_id`,
			correction.PositionID, correction.AdminID, correction.NewActivityID, correction.Reason, correction.At).Scan(&correction.ID); err != nil {
			return translate(err, "correction of position %d", correction.PositionID)
		}
		key := strconv.FormatInt(correction.PositionID, 10)
		return insertOutbox(ctx, tx, outboxRecord{
			aggregateType: "position",
			aggregateID:   key,
			eventType:     events.TypePositionCorrected,
			partitionKey:  key,
			dedupeKey:     fmt.Sprintf("%d:%s", correction.ID, events.TypePositionCorrected),
			payload: events.PositionCorrected{
				CorrectionID:  correction.ID,
				PositionID:    correction.PositionID,
				AdminID:       correction.AdminID,
				NewActivityID: correction.NewActivityID,
				Reason:        correction.Reason,
				At:            correction.At.UTC(),
			},
		})
	})
	if err != nil {
		return domain.Correction{}, err
	}
	observability.RecordCorrection()
	return correction, nil
}

// ShiftsByMaster lists the master's shifts on day, newest first; a zero day
// returns only the latest shift.
func (r *Repository) ShiftsByMaster(ctx context.Context, masterID, factoryID int64, day time.Time) ([]domain.Timesheet, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if day.IsZero() {
		rows, err = r.pool.Query(ctx, `SELECT `+sheetColumns+` FROM timesheets
            WHERE master_id=$1 AND factory_id=$2 ORDER BY shift_at DESC, timesheet_id DESC LIMIT 1`, masterID, factoryID)
	} else {
		y, m, d := day.Date()
		from := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
		rows, err = r.pool.Query(ctx, `SELECT `+sheetColumns+` FROM timesheets
            WHERE master_id=$1 AND factory_id=$2 AND shift_at >= $3 AND shift_at < $4
            ORDER BY shift_at DESC, timesheet_id DESC`, masterID, factoryID, from, from.AddDate(0, 0, 1))
	}
	if err != nil {
		return nil, err
	}
	return collect(rows, r.scanTimesheet)
}

// EnqueueReportRequest records a report.requested event; the outbox is the queue.
func (r *Repository) EnqueueReportRequest(ctx context.Context, req domain.ReportRequest) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		return insertOutbox(ctx, tx, outboxRecord{
			aggregateType: "report_request",
			aggregateID:   req.RequestID,
			eventType:     events.TypeReportRequested,
			partitionKey:  req.Period.String(),
			dedupeKey:     req.RequestID,
			payload: events.ReportRequested{
				RequestID:   req.RequestID,
				RequestedBy: req.RequestedBy,
				Year:        req.Period.Year,
				Month:       req.Period.Month,
				FactoryIDs:  req.FactoryIDs,
				RequestedAt: req.RequestedAt.UTC(),
			},
		})
	})
}

type outboxRecord struct {
	aggregateType string
	aggregateID   string
	eventType     string
	partitionKey  string
	dedupeKey     string
	payload       any
}

func insertOutbox(ctx context.Context, tx pgx.Tx, rec outboxRecord) error {
	body, err := json.Marshal(rec.payload)
	if err != nil {
		return err
	}
	route, err := events.RouteFor(rec.eventType)
	if err != nil {
		return err
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (dedupe_key) DO NOTHING`

	_, err = tx.Exec(ctx, stmt,
		rec.aggregateType,
		rec.aggregateID,
		rec.eventType,
		route.Topic,
		route.SchemaSubject,
		rec.partitionKey,
		body,
		nullIfEmpty(rec.dedupeKey),
	)
	return err
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
