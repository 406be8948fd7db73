package api

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"example.com/timesheet/internal/auth"
	"example.com/timesheet/internal/domain"
	"example.com/timesheet/internal/shifts"
)

// CreateWorkerRequest is the payload for POST /v1/workers.
type CreateWorkerRequest struct {
	FullName   string          `json:"full_name"`
	ExternalID *int64          `json:"external_id,omitempty"`
	Job        string          `json:"job"`
	Rate       decimal.Decimal `json:"rate"`
}

// ProfileChangeRequest is the payload for PATCH /v1/workers/{id}/profile.
type ProfileChangeRequest struct {
	Job  *string          `json:"job,omitempty"`
	Rate *decimal.Decimal `json:"rate,omitempty"`
}

// CreateActivityRequest is the payload for POST /v1/activities.
type CreateActivityRequest struct {
	Code        string          `json:"code"`
	Duration    decimal.Decimal `json:"duration"`
	Description string          `json:"description"`
	Color       string          `json:"color"`
}

// CreateFactoryRequest is the payload for POST /v1/factories.
type CreateFactoryRequest struct {
	CompanyName string `json:"company_name"`
	FactoryName string `json:"factory_name"`
}

type assignMasterRequest struct {
	UserID int64 `json:"user_id"`
}

type setRoleRequest struct {
	Role string `json:"role"`
}

func (h *Handler) createWorker(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if _, ok := h.authorize(w, r, auth.ScopeCatalogWrite); !ok {
		return
	}
	var req CreateWorkerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	user, profile, err := h.service.CreateWorker(r.Context(), shifts.NewWorker{
		FullName:   req.FullName,
		ExternalID: req.ExternalID,
		Job:        req.Job,
		Rate:       req.Rate,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":    toUserView(user),
		"profile": toProfileView(profile),
	})
}

func (h *Handler) workerByID(w http.ResponseWriter, r *http.Request) {
	id, rest, err := pathID(r.URL.Path, "/v1/workers/")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if rest != "profile" {
		writeError(w, http.StatusNotFound, "not_found", "unknown worker resource")
		return
	}
	if r.Method != http.MethodPatch {
		methodNotAllowed(w)
		return
	}
	if _, ok := h.authorize(w, r, auth.ScopeCatalogWrite); !ok {
		return
	}
	var req ProfileChangeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	profile, err := h.service.ChangeProfile(r.Context(), id, shifts.ProfileChange{Job: req.Job, Rate: req.Rate})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileView(profile))
}

func (h *Handler) activities(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := h.authorize(w, r, auth.ScopeCatalogRead); !ok {
			return
		}
		list, err := h.service.ListActivities(r.Context(), r.URL.Query().Get("include_deleted") == "true")
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": mapSlice(list, toActivityView)})
	case http.MethodPost:
		if _, ok := h.authorize(w, r, auth.ScopeCatalogWrite); !ok {
			return
		}
		var req CreateActivityRequest
		if !decodeBody(w, r, &req) {
			return
		}
		created, err := h.service.CreateActivity(r.Context(), domain.Activity{
			Code:        req.Code,
			Duration:    req.Duration,
			Description: req.Description,
			Color:       req.Color,
		})
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toActivityView(created))
	default:
		methodNotAllowed(w)
	}
}

func (h *Handler) activityByID(w http.ResponseWriter, r *http.Request) {
	id, rest, err := pathID(r.URL.Path, "/v1/activities/")
	if err != nil || rest != "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid activity path")
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	if _, ok := h.authorize(w, r, auth.ScopeCatalogWrite); !ok {
		return
	}
	if err := h.service.DeleteActivity(r.Context(), id); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) factories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := h.authorize(w, r, auth.ScopeCatalogRead); !ok {
			return
		}
		list, err := h.service.ListFactories(r.Context(), r.URL.Query().Get("include_deleted") == "true")
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": mapSlice(list, toFactoryView)})
	case http.MethodPost:
		if _, ok := h.authorize(w, r, auth.ScopeCatalogWrite); !ok {
			return
		}
		var req CreateFactoryRequest
		if !decodeBody(w, r, &req) {
			return
		}
		created, err := h.service.CreateFactory(r.Context(), req.CompanyName, req.FactoryName)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toFactoryView(created))
	default:
		methodNotAllowed(w)
	}
}

// factoryByID serves DELETE /v1/factories/{id} and POST /v1/factories/{id}/masters.
func (h *Handler) factoryByID(w http.ResponseWriter, r *http.Request) {
	id, rest, err := pathID(r.URL.Path, "/v1/factories/")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	switch {
	case rest == "" && r.Method == http.MethodDelete:
		if _, ok := h.authorize(w, r, auth.ScopeCatalogWrite); !ok {
			return
		}
		if err := h.service.DeleteFactory(r.Context(), id); err != nil {
			h.writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case rest == "masters" && r.Method == http.MethodPost:
		if _, ok := h.authorize(w, r, auth.ScopeCatalogWrite); !ok {
			return
		}
		var req assignMasterRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if err := h.service.AssignMaster(r.Context(), req.UserID, id); err != nil {
			h.writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case rest == "" || rest == "masters":
		methodNotAllowed(w)
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown factory resource")
	}
}

// listUsers serves GET /v1/users?role=master,admin.
func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if _, ok := h.authorize(w, r, auth.ScopeCatalogRead); !ok {
		return
	}
	var mask domain.Role
	for _, name := range strings.Split(r.URL.Query().Get("role"), ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}
		role, ok := domain.ParseRole(name)
		if !ok {
			writeError(w, http.StatusBadRequest, "validation_failed", "unknown role "+name)
			return
		}
		mask |= role
	}
	if mask == 0 {
		writeError(w, http.StatusBadRequest, "validation_failed", "role is required")
		return
	}
	users, err := h.service.UsersByRole(r.Context(), mask)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": mapSlice(users, toUserView)})
}

// userByID serves PUT /v1/users/{id}/role.
func (h *Handler) userByID(w http.ResponseWriter, r *http.Request) {
	id, rest, err := pathID(r.URL.Path, "/v1/users/")
	if err != nil || rest != "role" {
		writeError(w, http.StatusNotFound, "not_found", "unknown user resource")
		return
	}
	if r.Method != http.MethodPut {
		methodNotAllowed(w)
		return
	}
	if _, ok := h.authorize(w, r, auth.ScopeCatalogWrite); !ok {
		return
	}
	var req setRoleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	role, ok := domain.ParseRole(req.Role)
	if !ok {
		writeError(w, http.StatusBadRequest, "validation_failed", "unknown role "+req.Role)
		return
	}
	if err := h.service.SetRole(r.Context(), id, role); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
