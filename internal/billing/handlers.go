package billing

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-billing/internal/common"
)

// Handler exposes the draft invoice endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// Create handles POST /api/v1/drafts.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var payload CreateInput
	if !h.decode(w, r, &payload) {
		return
	}
	view, err := h.Svc.CreateDraft(r.Context(), payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": view})
}

// Get handles GET /api/v1/drafts/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.GetDraft(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// AddLine handles POST /api/v1/drafts/{id}/lines.
func (h *Handler) AddLine(w http.ResponseWriter, r *http.Request) {
	var payload AddLineInput
	if !h.decode(w, r, &payload) {
		return
	}
	view, err := h.Svc.AddLine(r.Context(), chi.URLParam(r, "id"), payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": view})
}

// UpdateLine handles PATCH /api/v1/drafts/{id}/lines/{productID}.
func (h *Handler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	var payload UpdateLineInput
	if !h.decode(w, r, &payload) {
		return
	}
	view, err := h.Svc.UpdateLine(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "productID"), payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// RemoveLine handles DELETE /api/v1/drafts/{id}/lines/{productID}.
func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.RemoveLine(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "productID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// SetCharges handles PUT /api/v1/drafts/{id}/charges.
func (h *Handler) SetCharges(w http.ResponseWriter, r *http.Request) {
	var payload ChargesInput
	if !h.decode(w, r, &payload) {
		return
	}
	view, err := h.Svc.SetCharges(r.Context(), chi.URLParam(r, "id"), payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Settle handles POST /api/v1/drafts/{id}/settle.
func (h *Handler) Settle(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.Settle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "billing service not configured", nil)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(dst); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", err.Error())
			return false
		}
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if err == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unknown error", nil)
		return
	}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		code := appErr.Code
		if code == "" {
			code = "INTERNAL"
		}
		common.JSONError(w, status, code, appErr.Message, appErr.Details)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}
