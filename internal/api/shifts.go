package api

import (
	"net/http"
	"strconv"
	"time"

	"example.com/timesheet/internal/auth"
	"example.com/timesheet/internal/shifts"
)

// SubmitShiftRequest is the payload for POST /v1/shifts. The acting user is the master.
type SubmitShiftRequest struct {
	FactoryID    int64        `json:"factory_id"`
	At           *time.Time   `json:"at,omitempty"`
	EvidenceLink string       `json:"evidence_link"`
	Assignments  []Assignment `json:"assignments"`
}

// Assignment is one worker's activity in a submitted shift.
type Assignment struct {
	WorkerID   int64 `json:"worker_id"`
	ActivityID int64 `json:"activity_id"`
}

// CorrectionRequest is the payload for POST /v1/positions/{id}/corrections.
type CorrectionRequest struct {
	ActivityID int64  `json:"activity_id"`
	Reason     string `json:"reason"`
}

func (h *Handler) shifts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.submitShift(w, r)
	case http.MethodGet:
		h.listShifts(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) submitShift(w http.ResponseWriter, r *http.Request) {
	masterID, ok := h.authorize(w, r, auth.ScopeShiftsWrite)
	if !ok {
		return
	}
	var req SubmitShiftRequest
	if !decodeBody(w, r, &req) {
		return
	}

	in := shifts.Shift{
		MasterID:     masterID,
		FactoryID:    req.FactoryID,
		EvidenceLink: req.EvidenceLink,
		Assignments:  make([]shifts.Assignment, 0, len(req.Assignments)),
	}
	if req.At != nil {
		in.At = *req.At
	}
	for _, a := range req.Assignments {
		in.Assignments = append(in.Assignments, shifts.Assignment{WorkerID: a.WorkerID, ActivityID: a.ActivityID})
	}

	ts, positions, err := h.service.SubmitShift(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toShiftView(ts, positions))
}

// listShifts serves GET /v1/shifts?factory_id=&date=YYYY-MM-DD[&master_id=].
// Without a date only the latest shift is returned.
func (h *Handler) listShifts(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authorize(w, r, auth.ScopeShiftsRead)
	if !ok {
		return
	}
	q := r.URL.Query()
	factoryID, err := strconv.ParseInt(q.Get("factory_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "factory_id is required")
		return
	}
	masterID := userID
	if raw := q.Get("master_id"); raw != "" {
		if masterID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "invalid master_id")
			return
		}
	}
	var day time.Time
	if raw := q.Get("date"); raw != "" {
		if day, err = time.Parse(time.DateOnly, raw); err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "date must be YYYY-MM-DD")
			return
		}
	}

	list, err := h.service.ShiftsByDate(r.Context(), masterID, factoryID, day)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	items := make([]ShiftView, 0, len(list))
	for _, ts := range list {
		items = append(items, toShiftView(ts, nil))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) positionByID(w http.ResponseWriter, r *http.Request) {
	id, rest, err := pathID(r.URL.Path, "/v1/positions/")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	switch {
	case rest == "corrections" && r.Method == http.MethodPost:
		h.correctPosition(w, r, id)
	case rest == "history" && r.Method == http.MethodGet:
		h.positionHistory(w, r, id)
	case rest == "corrections" || rest == "history":
		methodNotAllowed(w)
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown position resource")
	}
}

func (h *Handler) correctPosition(w http.ResponseWriter, r *http.Request, positionID int64) {
	adminID, ok := h.authorize(w, r, auth.ScopeCorrectionsWrite)
	if !ok {
		return
	}
	var req CorrectionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c, err := h.service.CorrectPosition(r.Context(), adminID, positionID, req.ActivityID, req.Reason)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCorrectionView(c))
}

func (h *Handler) positionHistory(w http.ResponseWriter, r *http.Request, positionID int64) {
	if _, ok := h.authorize(w, r, auth.ScopeShiftsRead); !ok {
		return
	}
	history, err := h.service.PositionHistory(r.Context(), positionID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryView{
		Position:    toPositionView(history.Position),
		Original:    toActivityView(history.Original),
		Effective:   toActivityView(history.Effective),
		Corrections: mapSlice(history.Corrections, toCorrectionView),
	})
}
