// Package domain defines the entities, error taxonomy and storage contracts
// shared by the timesheet service.
package domain

import (
	"context"
	"time"
)

// Reader is the read surface the report core consumes.
type Reader interface {
	GetFactory(ctx context.Context, id int64) (Factory, error)
	ListFactories(ctx context.Context, includeDeleted bool) ([]Factory, error)
	GetActivity(ctx context.Context, id int64) (Activity, error)
	ListActivities(ctx context.Context, filter ActivityFilter) ([]Activity, error)
	// ListTimesheets returns the factory's shifts within the period ordered by time, then id.
	ListTimesheets(ctx context.Context, factoryID int64, period Period) ([]Timesheet, error)
	// ListPositions returns positions of the given shifts ordered by id.
	ListPositions(ctx context.Context, timesheetIDs []int64) ([]WorkerPosition, error)
	// ListCorrections returns corrections for the positions ordered by time descending, then id descending.
	ListCorrections(ctx context.Context, positionIDs []int64) ([]Correction, error)
	// ListProfiles returns profile versions of the workers not later than upTo.
	ListProfiles(ctx context.Context, workerIDs []int64, upTo Period) ([]WorkerProfile, error)
	GetUsers(ctx context.Context, ids []int64) ([]User, error)
	ListUsersByRole(ctx context.Context, role Role) ([]User, error)
}

// SnapshotReader runs fn against a read view that does not observe writes
// committed after the view was opened.
type SnapshotReader interface {
	ReadSnapshot(ctx context.Context, fn func(Reader) error) error
}

// Store captures persistence operations of the whole service.
type Store interface {
	Reader
	SnapshotReader

	CreateFactory(ctx context.Context, factory Factory) (Factory, error)
	SoftDeleteFactory(ctx context.Context, id int64) error
	AssignMaster(ctx context.Context, userID, factoryID int64) error

	GetUser(ctx context.Context, id int64) (User, error)
	UpdateUserRole(ctx context.Context, id int64, role Role) error
	CreateWorker(ctx context.Context, user User, profile WorkerProfile) (User, error)
	UpsertProfile(ctx context.Context, profile WorkerProfile) error

	CreateActivity(ctx context.Context, activity Activity) (Activity, error)
	SoftDeleteActivity(ctx context.Context, id int64) error

	CreateShift(ctx context.Context, timesheet Timesheet, positions []WorkerPosition) (Timesheet, []WorkerPosition, error)
	GetPosition(ctx context.Context, id int64) (WorkerPosition, error)
	AppendCorrection(ctx context.Context, correction Correction) (Correction, error)
	// ShiftsByMaster lists the master's shifts on day (newest first); a zero day returns only the latest.
	ShiftsByMaster(ctx context.Context, masterID, factoryID int64, day time.Time) ([]Timesheet, error)

	EnqueueReportRequest(ctx context.Context, req ReportRequest) error
}
