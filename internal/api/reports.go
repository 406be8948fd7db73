package api

import (
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	"example.com/timesheet/internal/auth"
	"example.com/timesheet/internal/domain"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// downloadReport renders GET /v1/reports?factory_id=&year=&month= and streams
// the file; the artifact is removed once the response is written.
func (h *Handler) downloadReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if _, ok := h.authorize(w, r, auth.ScopeReportsRead); !ok {
		return
	}

	q := r.URL.Query()
	factoryID, err := strconv.ParseInt(q.Get("factory_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "factory_id is required")
		return
	}
	period, err := parsePeriod(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	artifact, err := h.reports.Generate(r.Context(), factoryID, period)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	defer artifact.Dispose()

	f, err := artifact.Open()
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(artifact.Name))
	if filepath.Ext(artifact.Name) == ".xlsx" || contentType == "" {
		contentType = xlsxContentType
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": artifact.Name}))
	http.ServeContent(w, r, artifact.Name, time.Time{}, f)
}

// ReportRequest is the payload for POST /v1/report-requests.
type ReportRequest struct {
	Year       int     `json:"year"`
	Month      int     `json:"month"`
	FactoryIDs []int64 `json:"factory_ids"`
}

// ReportRequestResponse acknowledges a queued request.
type ReportRequestResponse struct {
	RequestID  string    `json:"request_id"`
	Year       int       `json:"year"`
	Month      int       `json:"month"`
	FactoryIDs []int64   `json:"factory_ids"`
	QueuedAt   time.Time `json:"queued_at"`
}

func (h *Handler) requestReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	userID, ok := h.authorize(w, r, auth.ScopeReportsRequest)
	if !ok {
		return
	}
	var req ReportRequest
	if !decodeBody(w, r, &req) {
		return
	}

	queued, err := h.service.RequestReport(r.Context(), userID, domain.Period{Year: req.Year, Month: req.Month}, req.FactoryIDs)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ReportRequestResponse{
		RequestID:  queued.RequestID,
		Year:       queued.Period.Year,
		Month:      queued.Period.Month,
		FactoryIDs: queued.FactoryIDs,
		QueuedAt:   queued.RequestedAt,
	})
}

// parsePeriod reads year and month; month may be a number or an English name.
func parsePeriod(q url.Values) (domain.Period, error) {
	year, err := strconv.Atoi(q.Get("year"))
	if err != nil {
		return domain.Period{}, fmt.Errorf("year is required")
	}
	raw := q.Get("month")
	month, err := strconv.Atoi(raw)
	if err != nil {
		var ok bool
		if month, ok = domain.MonthByName(raw); !ok {
			return domain.Period{}, fmt.Errorf("month %q is not a month", raw)
		}
	}
	period := domain.Period{Year: year, Month: month}
	if err := period.Validate(); err != nil {
		return domain.Period{}, err
	}
	return period, nil
}
