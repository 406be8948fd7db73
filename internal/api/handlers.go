// Package api exposes HTTP handlers for the timesheet service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"example.com/timesheet/internal/auth"
	"example.com/timesheet/internal/domain"
	"example.com/timesheet/internal/platform/logger"
	"example.com/timesheet/internal/report"
	"example.com/timesheet/internal/shifts"
)

// ReportGenerator renders one factory month into a disposable file.
type ReportGenerator interface {
	Generate(ctx context.Context, factoryID int64, period domain.Period) (*report.Artifact, error)
}

// Handler coordinates HTTP requests with the shift service and report generator.
type Handler struct {
	service *shifts.Service
	reports ReportGenerator
	logger  *logger.Logger
}

// NewHandler builds a Handler.
func NewHandler(service *shifts.Service, reports ReportGenerator, l *logger.Logger) *Handler {
	if l == nil {
		l = logger.Nop()
	}
	return &Handler{service: service, reports: reports, logger: l}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/reports", h.downloadReport)
	mux.HandleFunc("/v1/report-requests", h.requestReport)
	mux.HandleFunc("/v1/shifts", h.shifts)
	mux.HandleFunc("/v1/positions/", h.positionByID)
	mux.HandleFunc("/v1/workers", h.createWorker)
	mux.HandleFunc("/v1/workers/", h.workerByID)
	mux.HandleFunc("/v1/activities", h.activities)
	mux.HandleFunc("/v1/activities/", h.activityByID)
	mux.HandleFunc("/v1/factories", h.factories)
	mux.HandleFunc("/v1/factories/", h.factoryByID)
	mux.HandleFunc("/v1/users", h.listUsers)
	mux.HandleFunc("/v1/users/", h.userByID)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// authorize checks the bearer claims for scope and returns the acting user id.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, scope string) (int64, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return 0, false
	}
	if !claims.HasScope(scope) {
		writeError(w, http.StatusForbidden, "forbidden", "scope "+scope+" required")
		return 0, false
	}
	userID, err := auth.UserID(claims)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return 0, false
	}
	return userID, true
}

// pathID splits "/prefix/{id}/rest" into id and rest.
func pathID(path, prefix string) (int64, string, error) {
	trimmed := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	raw, rest, _ := strings.Cut(trimmed, "/")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", errors.New("invalid id in path")
	}
	return id, rest, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return false
	}
	return true
}

// writeDomainError maps domain sentinels onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, domain.ErrBadFormat):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "canceled", "request canceled")
	default:
		h.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
