// Package shifts implements the write side of the timesheet: catalog and
// staff management, shift submission, corrections and report requests.
package shifts

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"example.com/timesheet/internal/domain"
	"example.com/timesheet/internal/observability"
	"example.com/timesheet/internal/platform/logger"
	"example.com/timesheet/internal/resolution"
)

var colorPattern = regexp.MustCompile(`^#?[0-9a-fA-F]{6}$`)

// Evidence supplies the link stored for shifts submitted without a photo.
type Evidence interface {
	Placeholder() string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger overrides the logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithClock overrides the clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service orchestrates write operations over the store.
type Service struct {
	store    domain.Store
	evidence Evidence
	now      func() time.Time
	logger   *logger.Logger
}

// NewService constructs a Service.
func NewService(store domain.Store, evidence Evidence, opts ...Option) *Service {
	s := &Service{store: store, evidence: evidence, now: time.Now, logger: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) resolver() *resolution.Resolver {
	return resolution.NewResolver(s.now)
}

// CreateFactory registers a factory; the (company, factory) pair is unique.
func (s *Service) CreateFactory(ctx context.Context, companyName, factoryName string) (domain.Factory, error) {
	companyName = strings.TrimSpace(companyName)
	factoryName = strings.TrimSpace(factoryName)
	if companyName == "" || factoryName == "" {
		return domain.Factory{}, fmt.Errorf("%w: company and factory names are required", domain.ErrBadFormat)
	}
	return s.store.CreateFactory(ctx, domain.Factory{CompanyName: companyName, FactoryName: factoryName})
}

// DeleteFactory soft-deletes a factory; its masters lose their assignment.
func (s *Service) DeleteFactory(ctx context.Context, id int64) error {
	return s.store.SoftDeleteFactory(ctx, id)
}

// ListFactories lists factories.
func (s *Service) ListFactories(ctx context.Context, includeDeleted bool) ([]domain.Factory, error) {
	return s.store.ListFactories(ctx, includeDeleted)
}

// AssignMaster attaches a master to a factory.
func (s *Service) AssignMaster(ctx context.Context, userID, factoryID int64) error {
	return s.store.AssignMaster(ctx, userID, factoryID)
}

// SetRole changes a user's role.
func (s *Service) SetRole(ctx context.Context, userID int64, role domain.Role) error {
	if role.String() == "unknown" {
		return fmt.Errorf("%w: role %d", domain.ErrBadFormat, role)
	}
	return s.store.UpdateUserRole(ctx, userID, role)
}

// UsersByRole lists users matching any bit of mask.
func (s *Service) UsersByRole(ctx context.Context, mask domain.Role) ([]domain.User, error) {
	return s.store.ListUsersByRole(ctx, mask)
}

// NewWorker describes a worker to register.
type NewWorker struct {
	FullName   string
	ExternalID *int64
	Job        string
	Rate       decimal.Decimal
}

// CreateWorker registers a worker with a profile effective from the current month.
func (s *Service) CreateWorker(ctx context.Context, in NewWorker) (domain.User, domain.WorkerProfile, error) {
	name := strings.TrimSpace(in.FullName)
	job := strings.TrimSpace(in.Job)
	if name == "" || job == "" {
		return domain.User{}, domain.WorkerProfile{}, fmt.Errorf("%w: full name and job are required", domain.ErrBadFormat)
	}
	rate, err := normalizeRate(in.Rate)
	if err != nil {
		return domain.User{}, domain.WorkerProfile{}, err
	}
	now := s.now()
	profile := domain.WorkerProfile{Period: domain.PeriodOf(now), Job: job, Rate: rate}
	user, err := s.store.CreateWorker(ctx, domain.User{
		ExternalID:   in.ExternalID,
		FullName:     name,
		Role:         domain.RoleWorker,
		RegisteredAt: now,
	}, profile)
	if err != nil {
		return domain.User{}, domain.WorkerProfile{}, err
	}
	profile.WorkerID = user.ID
	s.logger.Info("worker created", "user_id", user.ID, "job", job)
	return user, profile, nil
}

// ProfileChange carries the fields to change; nil keeps the current value.
type ProfileChange struct {
	Job  *string
	Rate *decimal.Decimal
}

// ChangeProfile writes the worker's profile for next month, starting from
// the profile in force now. Reports for the current month are unaffected.
func (s *Service) ChangeProfile(ctx context.Context, workerID int64, change ProfileChange) (domain.WorkerProfile, error) {
	if change.Job == nil && change.Rate == nil {
		return domain.WorkerProfile{}, fmt.Errorf("%w: nothing to change", domain.ErrBadFormat)
	}
	resolver := s.resolver()
	current := resolver.CurrentPeriod()
	next := current.Next()

	// Loading up to next lets a second change in the same month build on the first.
	versions, err := s.store.ListProfiles(ctx, []int64{workerID}, next)
	if err != nil {
		return domain.WorkerProfile{}, err
	}
	base, err := resolution.NewProfileHistory(workerID, versions).At(next)
	if err != nil {
		return domain.WorkerProfile{}, fmt.Errorf("worker %d: %w", workerID, err)
	}

	updated := domain.WorkerProfile{WorkerID: workerID, Period: next, Job: base.Job, Rate: base.Rate}
	if change.Job != nil {
		job := strings.TrimSpace(*change.Job)
		if job == "" {
			return domain.WorkerProfile{}, fmt.Errorf("%w: empty job", domain.ErrBadFormat)
		}
		updated.Job = job
	}
	if change.Rate != nil {
		rate, err := normalizeRate(*change.Rate)
		if err != nil {
			return domain.WorkerProfile{}, err
		}
		updated.Rate = rate
	}
	if err := s.store.UpsertProfile(ctx, updated); err != nil {
		return domain.WorkerProfile{}, err
	}
	s.logger.Info("profile changed", "worker_id", workerID, "period", next.String(), "job", updated.Job, "rate", updated.Rate.String())
	return updated, nil
}

// CreateActivity adds a catalog code; an active duplicate code is rejected.
func (s *Service) CreateActivity(ctx context.Context, activity domain.Activity) (domain.Activity, error) {
	activity.Code = strings.TrimSpace(activity.Code)
	if activity.Code == "" {
		return domain.Activity{}, fmt.Errorf("%w: empty activity code", domain.ErrBadFormat)
	}
	if activity.Duration.IsNegative() {
		return domain.Activity{}, fmt.Errorf("%w: negative duration", domain.ErrBadFormat)
	}
	if !colorPattern.MatchString(activity.Color) {
		return domain.Activity{}, fmt.Errorf("%w: color %q is not a hex RGB value", domain.ErrBadFormat, activity.Color)
	}
	activity.Color = strings.ToLower(strings.TrimPrefix(activity.Color, "#"))
	activity.Description = strings.TrimSpace(activity.Description)
	activity.IsDeleted = false
	return s.store.CreateActivity(ctx, activity)
}

// DeleteActivity soft-deletes a catalog code.
func (s *Service) DeleteActivity(ctx context.Context, id int64) error {
	return s.store.SoftDeleteActivity(ctx, id)
}

// ListActivities lists the catalog.
func (s *Service) ListActivities(ctx context.Context, includeDeleted bool) ([]domain.Activity, error) {
	filter := domain.ActivitiesActive
	if includeDeleted {
		filter = domain.ActivitiesAll
	}
	return s.store.ListActivities(ctx, filter)
}

// Assignment is one worker's activity in a submitted shift.
type Assignment struct {
	WorkerID   int64
	ActivityID int64
}

// Shift is a shift submission.
type Shift struct {
	MasterID     int64
	FactoryID    int64
	At           time.Time
	Assignments  []Assignment
	EvidenceLink string
}

// SubmitShift records a shift. A zero At means now; a missing evidence link
// is replaced with the placeholder.
func (s *Service) SubmitShift(ctx context.Context, in Shift) (domain.Timesheet, []domain.WorkerPosition, error) {
	if len(in.Assignments) == 0 {
		return domain.Timesheet{}, nil, fmt.Errorf("%w: shift has no workers", domain.ErrBadFormat)
	}
	master, err := s.store.GetUser(ctx, in.MasterID)
	if err != nil {
		return domain.Timesheet{}, nil, err
	}
	if !master.Role.Has(domain.RoleMaster) {
		return domain.Timesheet{}, nil, fmt.Errorf("user %d is not a master: %w", in.MasterID, domain.ErrForbidden)
	}
	factory, err := s.store.GetFactory(ctx, in.FactoryID)
	if err != nil {
		return domain.Timesheet{}, nil, err
	}
	if factory.IsDeleted {
		return domain.Timesheet{}, nil, fmt.Errorf("factory %d is deleted: %w", factory.ID, domain.ErrNotFound)
	}

	seen := make(map[int64]struct{}, len(in.Assignments))
	positions := make([]domain.WorkerPosition, 0, len(in.Assignments))
	for _, a := range in.Assignments {
		if _, dup := seen[a.WorkerID]; dup {
			return domain.Timesheet{}, nil, fmt.Errorf("%w: worker %d listed twice", domain.ErrBadFormat, a.WorkerID)
		}
		seen[a.WorkerID] = struct{}{}
		if _, err := s.store.GetUser(ctx, a.WorkerID); err != nil {
			return domain.Timesheet{}, nil, err
		}
		if err := s.activeActivity(ctx, a.ActivityID); err != nil {
			return domain.Timesheet{}, nil, err
		}
		positions = append(positions, domain.WorkerPosition{WorkerID: a.WorkerID, OriginalActivityID: a.ActivityID})
	}

	at := in.At
	if at.IsZero() {
		at = s.now()
	}
	link := strings.TrimSpace(in.EvidenceLink)
	if link == "" && s.evidence != nil {
		link = s.evidence.Placeholder()
	}
	ts, stored, err := s.store.CreateShift(ctx, domain.Timesheet{
		MasterID:     in.MasterID,
		FactoryID:    in.FactoryID,
		At:           at,
		EvidenceLink: link,
	}, positions)
	if err != nil {
		return domain.Timesheet{}, nil, err
	}
	observability.RecordShiftSubmitted(ts.At)
	s.logger.Info("shift submitted", "timesheet_id", ts.ID, "factory_id", ts.FactoryID, "positions", len(stored))
	return ts, stored, nil
}

func (s *Service) activeActivity(ctx context.Context, id int64) error {
	act, err := s.store.GetActivity(ctx, id)
	if err != nil {
		return err
	}
	if act.IsDeleted {
		return fmt.Errorf("activity %d is deleted: %w", id, domain.ErrNotFound)
	}
	return nil
}

// CorrectPosition appends a correction. The original assignment is never touched.
func (s *Service) CorrectPosition(ctx context.Context, adminID, positionID, newActivityID int64, reason string) (domain.Correction, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.Correction{}, fmt.Errorf("%w: a reason is required", domain.ErrBadFormat)
	}
	admin, err := s.store.GetUser(ctx, adminID)
	if err != nil {
		return domain.Correction{}, err
	}
	if !admin.Role.Has(domain.RoleAdmin | domain.RoleOwner) {
		return domain.Correction{}, fmt.Errorf("user %d cannot correct positions: %w", adminID, domain.ErrForbidden)
	}
	if _, err := s.store.GetPosition(ctx, positionID); err != nil {
		return domain.Correction{}, err
	}
	if err := s.activeActivity(ctx, newActivityID); err != nil {
		return domain.Correction{}, err
	}
	c, err := s.store.AppendCorrection(ctx, domain.Correction{
		PositionID:    positionID,
		AdminID:       adminID,
		NewActivityID: newActivityID,
		Reason:        reason,
		At:            s.now(),
	})
	if err != nil {
		return domain.Correction{}, err
	}
	observability.RecordCorrection()
	s.logger.Info("position corrected", "position_id", positionID, "admin_id", adminID, "activity_id", newActivityID)
	return c, nil
}

// History is a position with its audit log.
type History struct {
	Position domain.WorkerPosition
	Original domain.Activity
	// Corrections are newest first.
	Corrections []domain.Correction
	Effective   domain.Activity
}

// PositionHistory returns the audit log of a position and the activity in force.
func (s *Service) PositionHistory(ctx context.Context, positionID int64) (History, error) {
	pos, err := s.store.GetPosition(ctx, positionID)
	if err != nil {
		return History{}, err
	}
	corrections, err := s.store.ListCorrections(ctx, []int64{positionID})
	if err != nil {
		return History{}, err
	}
	original, err := s.store.GetActivity(ctx, pos.OriginalActivityID)
	if err != nil {
		return History{}, err
	}
	effective, err := s.store.GetActivity(ctx, resolution.EffectiveActivity(pos, corrections))
	if err != nil {
		return History{}, err
	}
	return History{Position: pos, Original: original, Corrections: corrections, Effective: effective}, nil
}

// ShiftsByDate lists a master's shifts on day, or only the latest one when day is zero.
func (s *Service) ShiftsByDate(ctx context.Context, masterID, factoryID int64, day time.Time) ([]domain.Timesheet, error) {
	return s.store.ShiftsByMaster(ctx, masterID, factoryID, day)
}

// RequestReport queues asynchronous generation of the period for the
// factories (all active ones when empty).
func (s *Service) RequestReport(ctx context.Context, requestedBy int64, period domain.Period, factoryIDs []int64) (domain.ReportRequest, error) {
	if err := period.Validate(); err != nil {
		return domain.ReportRequest{}, err
	}
	req := domain.ReportRequest{
		RequestID:   uuid.NewString(),
		RequestedBy: requestedBy,
		Period:      period,
		FactoryIDs:  factoryIDs,
		RequestedAt: s.now(),
	}
	if err := s.store.EnqueueReportRequest(ctx, req); err != nil {
		return domain.ReportRequest{}, err
	}
	s.logger.Info("report requested", "request_id", req.RequestID, "period", period.String(), "factories", len(factoryIDs))
	return req, nil
}

func normalizeRate(rate decimal.Decimal) (decimal.Decimal, error) {
	if rate.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("%w: negative rate", domain.ErrBadFormat)
	}
	return rate.Round(2), nil
}
