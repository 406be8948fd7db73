package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Role is a bit flag; users may be queried with an OR-ed mask.
type Role int

const (
	RoleUser   Role = 1
	RoleWorker Role = 2
	RoleMaster Role = 4
	RoleAdmin  Role = 16
	RoleOwner  Role = 32
)

// Has reports whether r shares at least one bit with mask.
func (r Role) Has(mask Role) bool {
	return r&mask != 0
}

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleWorker:
		return "worker"
	case RoleMaster:
		return "master"
	case RoleAdmin:
		return "admin"
	case RoleOwner:
		return "owner"
	default:
		return "unknown"
	}
}

// ParseRole maps a lower-case role name to its flag.
func ParseRole(name string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "user":
		return RoleUser, true
	case "worker":
		return RoleWorker, true
	case "master":
		return RoleMaster, true
	case "admin":
		return RoleAdmin, true
	case "owner":
		return RoleOwner, true
	}
	return 0, false
}

// User is anyone known to the system: workers, shift masters, admins.
type User struct {
	ID           int64
	ExternalID   *int64
	FullName     string
	Role         Role
	RegisteredAt time.Time
}

// Factory is a production site reports are generated for.
type Factory struct {
	ID          int64
	CompanyName string
	FactoryName string
	IsDeleted   bool
}

// Activity is a catalog code a worker can be assigned for a shift.
// Activities are soft-deleted so historical reports keep resolving them.
type Activity struct {
	ID          int64
	Code        string
	Duration    decimal.Decimal
	Description string
	Color       string
	IsDeleted   bool
}

// Timesheet is the header of one submitted shift.
type Timesheet struct {
	ID           int64
	MasterID     int64
	FactoryID    int64
	At           time.Time
	EvidenceLink string
}

// WorkerPosition assigns a worker to an activity within a shift. It is never
// mutated; corrections are recorded separately.
type WorkerPosition struct {
	ID                 int64
	TimesheetID        int64
	WorkerID           int64
	OriginalActivityID int64
}

// Correction is one append-only entry of a position's audit log.
type Correction struct {
	ID            int64
	PositionID    int64
	AdminID       int64
	NewActivityID int64
	Reason        string
	At            time.Time
}

// WorkerProfile holds a worker's job and hourly rate effective from Period.
type WorkerProfile struct {
	WorkerID int64
	Period   Period
	Job      string
	Rate     decimal.Decimal
}

// ActivityFilter selects catalog entries by deletion state.
type ActivityFilter int

const (
	ActivitiesActive ActivityFilter = iota
	ActivitiesDeleted
	ActivitiesAll
)

// ReportRequest asks the report worker to render a month for some factories.
// An empty FactoryIDs list means every active factory.
type ReportRequest struct {
	RequestID   string
	RequestedBy int64
	Period      Period
	FactoryIDs  []int64
	RequestedAt time.Time
}
