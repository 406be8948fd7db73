package api

import (
	"time"

	"github.com/shopspring/decimal"

	"example.com/timesheet/internal/domain"
)

// FactoryView is the JSON shape of a factory.
type FactoryView struct {
	ID          int64  `json:"id"`
	CompanyName string `json:"company_name"`
	FactoryName string `json:"factory_name"`
	Deleted     bool   `json:"deleted"`
}

// ActivityView is the JSON shape of a catalog entry.
type ActivityView struct {
	ID          int64           `json:"id"`
	Code        string          `json:"code"`
	Duration    decimal.Decimal `json:"duration"`
	Description string          `json:"description"`
	Color       string          `json:"color"`
	Deleted     bool            `json:"deleted"`
}

// UserView is the JSON shape of a user.
type UserView struct {
	ID           int64     `json:"id"`
	ExternalID   *int64    `json:"external_id,omitempty"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	RegisteredAt time.Time `json:"registered_at"`
}

// ProfileView is the JSON shape of a profile version.
type ProfileView struct {
	WorkerID int64           `json:"worker_id"`
	Year     int             `json:"year"`
	Month    int             `json:"month"`
	Job      string          `json:"job"`
	Rate     decimal.Decimal `json:"rate"`
}

// PositionView is one worker assignment of a shift.
type PositionView struct {
	ID                 int64 `json:"id"`
	WorkerID           int64 `json:"worker_id"`
	OriginalActivityID int64 `json:"original_activity_id"`
}

// ShiftView is a shift header with optional positions.
type ShiftView struct {
	ID           int64          `json:"id"`
	MasterID     int64          `json:"master_id"`
	FactoryID    int64          `json:"factory_id"`
	At           time.Time      `json:"at"`
	EvidenceLink string         `json:"evidence_link"`
	Positions    []PositionView `json:"positions,omitempty"`
}

// CorrectionView is one audit log entry.
type CorrectionView struct {
	ID            int64     `json:"id"`
	PositionID    int64     `json:"position_id"`
	AdminID       int64     `json:"admin_id"`
	NewActivityID int64     `json:"new_activity_id"`
	Reason        string    `json:"reason"`
	At            time.Time `json:"at"`
}

// HistoryView is a position's audit log and its effective activity.
type HistoryView struct {
	Position    PositionView     `json:"position"`
	Original    ActivityView     `json:"original"`
	Effective   ActivityView     `json:"effective"`
	Corrections []CorrectionView `json:"corrections"`
}

func toFactoryView(f domain.Factory) FactoryView {
	return FactoryView{ID: f.ID, CompanyName: f.CompanyName, FactoryName: f.FactoryName, Deleted: f.IsDeleted}
}

func toActivityView(a domain.Activity) ActivityView {
	return ActivityView{
		ID:          a.ID,
		Code:        a.Code,
		Duration:    a.Duration,
		Description: a.Description,
		Color:       a.Color,
		Deleted:     a.IsDeleted,
	}
}

func toUserView(u domain.User) UserView {
	return UserView{
		ID:           u.ID,
		ExternalID:   u.ExternalID,
		FullName:     u.FullName,
		Role:         u.Role.String(),
		RegisteredAt: u.RegisteredAt,
	}
}

func toProfileView(p domain.WorkerProfile) ProfileView {
	return ProfileView{WorkerID: p.WorkerID, Year: p.Period.Year, Month: p.Period.Month, Job: p.Job, Rate: p.Rate}
}

func toPositionView(p domain.WorkerPosition) PositionView {
	return PositionView{ID: p.ID, WorkerID: p.WorkerID, OriginalActivityID: p.OriginalActivityID}
}

func toShiftView(ts domain.Timesheet, positions []domain.WorkerPosition) ShiftView {
	view := ShiftView{
		ID:           ts.ID,
		MasterID:     ts.MasterID,
		FactoryID:    ts.FactoryID,
		At:           ts.At,
		EvidenceLink: ts.EvidenceLink,
	}
	for _, p := range positions {
		view.Positions = append(view.Positions, toPositionView(p))
	}
	return view
}

func toCorrectionView(c domain.Correction) CorrectionView {
	return CorrectionView{
		ID:            c.ID,
		PositionID:    c.PositionID,
		AdminID:       c.AdminID,
		NewActivityID: c.NewActivityID,
		Reason:        c.Reason,
		At:            c.At,
	}
}

func mapSlice[T, V any](in []T, fn func(T) V) []V {
	out := make([]V, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}
