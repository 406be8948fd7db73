// Package events defines the payloads published through the outbox.
package events

import (
	"fmt"
	"time"
)

// Event types recorded in the outbox.
const (
	TypeShiftSubmitted    = "shift.submitted"
	TypePositionCorrected = "position.corrected"
	TypeProfileChanged    = "profile.changed"
	TypeReportRequested   = "report.requested"
)

// Route tells the dispatcher where an event type goes.
type Route struct {
	Topic         string
	SchemaSubject string
}

var routes = map[string]Route{
	TypeShiftSubmitted:    {Topic: "timesheet_shifts", SchemaSubject: "timesheet_shifts-value"},
	TypePositionCorrected: {Topic: "timesheet_corrections", SchemaSubject: "timesheet_corrections-value"},
	TypeProfileChanged:    {Topic: "timesheet_profiles", SchemaSubject: "timesheet_profiles-value"},
	TypeReportRequested:   {Topic: "report_requests", SchemaSubject: "report_requests-value"},
}

// RouteFor returns the route of an event type.
func RouteFor(eventType string) (Route, error) {
	r, ok := routes[eventType]
	if !ok {
		return Route{}, fmt.Errorf("unknown event type: %s", eventType)
	}
	return r, nil
}

// ShiftPosition is one assignment inside ShiftSubmitted.
type ShiftPosition struct {
	PositionID int64 `json:"position_id"`
	WorkerID   int64 `json:"worker_id"`
	ActivityID int64 `json:"activity_id"`
}

// ShiftSubmitted is emitted when a master records a shift.
type ShiftSubmitted struct {
	TimesheetID  int64           `json:"timesheet_id"`
	MasterID     int64           `json:"master_id"`
	FactoryID    int64           `json:"factory_id"`
	At           time.Time       `json:"at"`
	EvidenceLink string          `json:"evidence_link,omitempty"`
	Positions    []ShiftPosition `json:"positions"`
}

// PositionCorrected is emitted for every appended correction.
type PositionCorrected struct {
	CorrectionID  int64     `json:"correction_id"`
	PositionID    int64     `json:"position_id"`
	AdminID       int64     `json:"admin_id"`
	NewActivityID int64     `json:"new_activity_id"`
	Reason        string    `json:"reason"`
	At            time.Time `json:"at"`
}

// ProfileChanged is emitted when a profile version is written.
type ProfileChanged struct {
	WorkerID int64  `json:"worker_id"`
	Year     int    `json:"year"`
	Month    int    `json:"month"`
	Job      string `json:"job"`
	// Rate is a decimal string with two places.
	Rate string `json:"rate"`
}

// ReportRequested asks the report worker to render a month.
type ReportRequested struct {
	RequestID   string    `json:"request_id"`
	RequestedBy int64     `json:"requested_by"`
	Year        int       `json:"year"`
	Month       int       `json:"month"`
	FactoryIDs  []int64   `json:"factory_ids"`
	RequestedAt time.Time `json:"requested_at"`
}
