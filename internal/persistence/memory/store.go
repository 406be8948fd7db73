// Package memory provides an in-process domain.Store for local development and tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"example.com/timesheet/internal/domain"
)

type profileKey struct {
	workerID int64
	period   domain.Period
}

// Store keeps every entity in maps guarded by a single RWMutex.
type Store struct {
	mu          sync.RWMutex
	seq         map[string]int64
	factories   map[int64]domain.Factory
	masters     map[int64]int64
	users       map[int64]domain.User
	activities  map[int64]domain.Activity
	timesheets  map[int64]domain.Timesheet
	positions   map[int64]domain.WorkerPosition
	corrections []domain.Correction
	profiles    map[profileKey]domain.WorkerProfile
	requests    []domain.ReportRequest
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		seq:        make(map[string]int64),
		factories:  make(map[int64]domain.Factory),
		masters:    make(map[int64]int64),
		users:      make(map[int64]domain.User),
		activities: make(map[int64]domain.Activity),
		timesheets: make(map[int64]domain.Timesheet),
		positions:  make(map[int64]domain.WorkerPosition),
		profiles:   make(map[profileKey]domain.WorkerProfile),
	}
}

func (s *Store) nextID(kind string) int64 {
	s.seq[kind]++
	return s.seq[kind]
}

// ReadSnapshot hands fn a deep copy taken under the read lock.
func (s *Store) ReadSnapshot(ctx context.Context, fn func(domain.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(s.clone())
}

func (s *Store) clone() *Store {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := NewStore()
	for k, v := range s.seq {
		c.seq[k] = v
	}
	for k, v := range s.factories {
		c.factories[k] = v
	}
	for k, v := range s.masters {
		c.masters[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.activities {
		c.activities[k] = v
	}
	for k, v := range s.timesheets {
		c.timesheets[k] = v
	}
	for k, v := range s.positions {
		c.positions[k] = v
	}
	for k, v := range s.profiles {
		c.profiles[k] = v
	}
	c.corrections = slices.Clone(s.corrections)
	c.requests = slices.Clone(s.requests)
	return c
}

// GetFactory implements domain.Reader.
func (s *Store) GetFactory(_ context.Context, id int64) (domain.Factory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.factories[id]
	if !ok {
		return domain.Factory{}, fmt.Errorf("factory %d: %w", id, domain.ErrNotFound)
	}
	return f, nil
}

// ListFactories implements domain.Reader.
func (s *Store) ListFactories(_ context.Context, includeDeleted bool) ([]domain.Factory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Factory, 0, len(s.factories))
	for _, f := range s.factories {
		if f.IsDeleted && !includeDeleted {
			continue
		}
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b domain.Factory) int { return cmpInt64(a.ID, b.ID) })
	return out, nil
}

// GetActivity implements domain.Reader.
func (s *Store) GetActivity(_ context.Context, id int64) (domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.activities[id]
	if !ok {
		return domain.Activity{}, fmt.Errorf("activity %d: %w", id, domain.ErrNotFound)
	}
	return a, nil
}

// ListActivities implements domain.Reader.
func (s *Store) ListActivities(_ context.Context, filter domain.ActivityFilter) ([]domain.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Activity, 0, len(s.activities))
	for _, a := range s.activities {
		switch {
		case filter == domain.ActivitiesActive && a.IsDeleted:
			continue
		case filter == domain.ActivitiesDeleted && !a.IsDeleted:
			continue
		}
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b domain.Activity) int { return cmpInt64(a.ID, b.ID) })
	return out, nil
}

// ListTimesheets implements domain.Reader.
func (s *Store) ListTimesheets(_ context.Context, factoryID int64, period domain.Period) ([]domain.Timesheet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Timesheet, 0)
	for _, ts := range s.timesheets {
		if ts.FactoryID == factoryID && period.Contains(ts.At) {
			out = append(out, ts)
		}
	}
	sortTimesheets(out)
	return out, nil
}

// ListPositions implements domain.Reader.
func (s *Store) ListPositions(_ context.Context, timesheetIDs []int64) ([]domain.WorkerPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := toSet(timesheetIDs)
	out := make([]domain.WorkerPosition, 0)
	for _, p := range s.positions {
		if _, ok := wanted[p.TimesheetID]; ok {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b domain.WorkerPosition) int { return cmpInt64(a.ID, b.ID) })
	return out, nil
}

// ListCorrections implements domain.Reader.
func (s *Store) ListCorrections(_ context.Context, positionIDs []int64) ([]domain.Correction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := toSet(positionIDs)
	out := make([]domain.Correction, 0)
	for _, c := range s.corrections {
		if _, ok := wanted[c.PositionID]; ok {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b domain.Correction) int {
		if c := b.At.Compare(a.At); c != 0 {
			return c
		}
		return cmpInt64(b.ID, a.ID)
	})
	return out, nil
}

// ListProfiles implements domain.Reader.
func (s *Store) ListProfiles(_ context.Context, workerIDs []int64, upTo domain.Period) ([]domain.WorkerProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := toSet(workerIDs)
	out := make([]domain.WorkerProfile, 0)
	for key, p := range s.profiles {
		if _, ok := wanted[key.workerID]; !ok {
			continue
		}
		if key.period.Compare(upTo) > 0 {
			continue
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b domain.WorkerProfile) int {
		if c := cmpInt64(a.WorkerID, b.WorkerID); c != 0 {
			return c
		}
		return a.Period.Compare(b.Period)
	})
	return out, nil
}

// GetUsers implements domain.Reader. Unknown ids are skipped.
func (s *Store) GetUsers(_ context.Context, ids []int64) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.User, 0, len(ids))
	for id := range toSet(ids) {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	sortUsers(out)
	return out, nil
}

// ListUsersByRole implements domain.Reader.
func (s *Store) ListUsersByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.User, 0)
	for _, u := range s.users {
		if u.Role.Has(role) {
			out = append(out, u)
		}
	}
	sortUsers(out)
	return out, nil
}

// CreateFactory implements domain.Store.
func (s *Store) CreateFactory(_ context.Context, factory domain.Factory) (domain.Factory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.factories {
		if f.CompanyName == factory.CompanyName && f.FactoryName == factory.FactoryName {
			return domain.Factory{}, fmt.Errorf("factory %s/%s: %w", factory.CompanyName, factory.FactoryName, domain.ErrAlreadyExists)
		}
	}
	factory.ID = s.nextID("factory")
	s.factories[factory.ID] = factory
	return factory, nil
}

// SoftDeleteFactory marks the factory deleted and demotes its masters to workers.
func (s *Store) SoftDeleteFactory(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.factories[id]
	if !ok {
		return fmt.Errorf("factory %d: %w", id, domain.ErrNotFound)
	}
	f.IsDeleted = true
	s.factories[id] = f
	for userID, factoryID := range s.masters {
		if factoryID != id {
			continue
		}
		delete(s.masters, userID)
		if u, ok := s.users[userID]; ok {
			u.Role = domain.RoleWorker
			s.users[userID] = u
		}
	}
	return nil
}

// AssignMaster implements domain.Store.
func (s *Store) AssignMaster(_ context.Context, userID, factoryID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
	}
	if u.Role != domain.RoleMaster {
		return fmt.Errorf("user %d is not a master: %w", userID, domain.ErrBadFormat)
	}
	if _, ok := s.factories[factoryID]; !ok {
		return fmt.Errorf("factory %d: %w", factoryID, domain.ErrNotFound)
	}
	s.masters[userID] = factoryID
	return nil
}

// GetUser implements domain.Store.
func (s *Store) GetUser(_ context.Context, id int64) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	return u, nil
}

// CreateUser adds a user without a profile.
func (s *Store) CreateUser(_ context.Context, user domain.User) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.ID = s.nextID("user")
	s.users[user.ID] = user
	return user, nil
}

// UpdateUserRole implements domain.Store; leaving the master role drops the factory assignment.
func (s *Store) UpdateUserRole(_ context.Context, id int64, role domain.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	u.Role = role
	s.users[id] = u
	if role != domain.RoleMaster {
		delete(s.masters, id)
	}
	return nil
}

// CreateWorker implements domain.Store.
func (s *Store) CreateWorker(_ context.Context, user domain.User, profile domain.WorkerProfile) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.ID = s.nextID("user")
	s.users[user.ID] = user
	profile.WorkerID = user.ID
	s.profiles[profileKey{workerID: user.ID, period: profile.Period}] = profile
	return user, nil
}

// UpsertProfile implements domain.Store.
func (s *Store) UpsertProfile(_ context.Context, profile domain.WorkerProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[profile.WorkerID]; !ok {
		return fmt.Errorf("user %d: %w", profile.WorkerID, domain.ErrNotFound)
	}
	s.profiles[profileKey{workerID: profile.WorkerID, period: profile.Period}] = profile
	return nil
}

// CreateActivity implements domain.Store.
func (s *Store) CreateActivity(_ context.Context, activity domain.Activity) (domain.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.activities {
		if !a.IsDeleted && a.Code == activity.Code {
			return domain.Activity{}, fmt.Errorf("activity code %q: %w", activity.Code, domain.ErrAlreadyExists)
		}
	}
	activity.ID = s.nextID("activity")
	s.activities[activity.ID] = activity
	return activity, nil
}

// SoftDeleteActivity implements domain.Store.
func (s *Store) SoftDeleteActivity(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.activities[id]
	if !ok {
		return fmt.Errorf("activity %d: %w", id, domain.ErrNotFound)
	}
	a.IsDeleted = true
	s.activities[id] = a
	return nil
}

// CreateShift implements domain.Store.
func (s *Store) CreateShift(_ context.Context, timesheet domain.Timesheet, positions []domain.WorkerPosition) (domain.Timesheet, []domain.WorkerPosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.factories[timesheet.FactoryID]; !ok {
		return domain.Timesheet{}, nil, fmt.Errorf("factory %d: %w", timesheet.FactoryID, domain.ErrNotFound)
	}
	timesheet.ID = s.nextID("timesheet")
	s.timesheets[timesheet.ID] = timesheet

	stored := make([]domain.WorkerPosition, 0, len(positions))
	for _, p := range positions {
		p.ID = s.nextID("position")
		p.TimesheetID = timesheet.ID
		s.positions[p.ID] = p
		stored = append(stored, p)
	}
	return timesheet, stored, nil
}

// GetPosition implements domain.Store.
func (s *Store) GetPosition(_ context.Context, id int64) (domain.WorkerPosition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.positions[id]
	if !ok {
		return domain.WorkerPosition{}, fmt.Errorf("position %d: %w", id, domain.ErrNotFound)
	}
	return p, nil
}

// AppendCorrection implements domain.Store.
func (s *Store) AppendCorrection(_ context.Context, correction domain.Correction) (domain.Correction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.positions[correction.PositionID]; !ok {
		return domain.Correction{}, fmt.Errorf("position %d: %w", correction.PositionID, domain.ErrNotFound)
	}
	correction.ID = s.nextID("correction")
	s.corrections = append(s.corrections, correction)
	return correction, nil
}

// ShiftsByMaster implements domain.Store.
func (s *Store) ShiftsByMaster(_ context.Context, masterID, factoryID int64, day time.Time) ([]domain.Timesheet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Timesheet, 0)
	for _, ts := range s.timesheets {
		if ts.MasterID != masterID || ts.FactoryID != factoryID {
			continue
		}
		if !day.IsZero() && !sameDay(ts.At, day) {
			continue
		}
		out = append(out, ts)
	}
	sortTimesheets(out)
	slices.Reverse(out)
	if day.IsZero() && len(out) > 1 {
		out = out[:1]
	}
	return out, nil
}

// EnqueueReportRequest implements domain.Store.
func (s *Store) EnqueueReportRequest(_ context.Context, req domain.ReportRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return nil
}

// ReportRequests returns the enqueued requests.
func (s *Store) ReportRequests() []domain.ReportRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.requests)
}

func sortTimesheets(list []domain.Timesheet) {
	slices.SortFunc(list, func(a, b domain.Timesheet) int {
		if c := a.At.Compare(b.At); c != 0 {
			return c
		}
		return cmpInt64(a.ID, b.ID)
	})
}

func sortUsers(list []domain.User) {
	slices.SortFunc(list, func(a, b domain.User) int {
		if c := strings.Compare(a.FullName, b.FullName); c != 0 {
			return c
		}
		return cmpInt64(a.ID, b.ID)
	})
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func toSet(ids []int64) map[int64]struct{} {
	out := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
