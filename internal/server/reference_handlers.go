package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wilschoy78/school-mis-api/internal/auth"
	authmw "github.com/wilschoy78/school-mis-api/internal/middleware"
	"github.com/wilschoy78/school-mis-api/internal/services/reference"
	"github.com/wilschoy78/school-mis-api/internal/services/validation"
)

// referenceParams are the query parameters of the reference list endpoints.
type referenceParams struct {
	Category string `mapstructure:"category"`
	IsActive *bool  `mapstructure:"isActive"`
}

// ReferenceRequest is the body of reference create and update calls. Update
// leaves absent fields unchanged.
type ReferenceRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	IsActive    *bool   `json:"isActive"`
}

// referenceHandlers serves one reference table.
type referenceHandlers[T any] struct {
	svc       referenceService[T]
	validator *validation.RequestValidator
	logger    *slog.Logger
}

// mountReference registers the list/get/create/update/toggle routes for svc
// on r, guarded by the reference operations.
func mountReference[T any](r chi.Router, svc referenceService[T], policy *auth.Policy, v *validation.RequestValidator, logger *slog.Logger) {
	h := &referenceHandlers[T]{svc: svc, validator: v, logger: logger}
	read := authmw.RequireRoles(policy, auth.ReferenceRead, logger)
	write := authmw.RequireRoles(policy, auth.ReferenceWrite, logger)

	r.With(read).Get("/", h.list)
	r.With(read).Get("/{id}", h.get)
	r.With(write).Post("/", h.create)
	r.With(write).Patch("/{id}", h.update)
	r.With(write).Patch("/{id}/toggle-active", h.toggleActive)
}

func (h *referenceHandlers[T]) list(w http.ResponseWriter, r *http.Request) {
	var params referenceParams
	if err := decodeQuery(r, &params); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	items, err := h.svc.List(r.Context(), reference.Filter{Category: params.Category, IsActive: params.IsActive})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if items == nil {
		items = []T{}
	}
	writeJSON(w, r, http.StatusOK, items)
}

func (h *referenceHandlers[T]) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	item, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, item)
}

func (h *referenceHandlers[T]) create(w http.ResponseWriter, r *http.Request) {
	var req ReferenceRequest
	if err := h.validator.Decode(validation.SchemaReferenceCreate, r.Body, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	in := reference.CreateInput{Description: req.Description, IsActive: req.IsActive}
	if req.Name != nil {
		in.Name = *req.Name
	}
	if req.Category != nil {
		in.Category = *req.Category
	}

	item, err := h.svc.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, item)
}

func (h *referenceHandlers[T]) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	var req ReferenceRequest
	if err := h.validator.Decode(validation.SchemaReferenceUpdate, r.Body, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	item, err := h.svc.Update(r.Context(), id, reference.UpdateInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		IsActive:    req.IsActive,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, item)
}

func (h *referenceHandlers[T]) toggleActive(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	item, err := h.svc.ToggleActive(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, item)
}
