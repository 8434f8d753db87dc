package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/famlink/notifier/internal/admin"
	"github.com/famlink/notifier/internal/api/middleware"
	"github.com/famlink/notifier/internal/api/models"
	"github.com/famlink/notifier/internal/api/response"
)

// AdminHandler handles admin access request endpoints.
type AdminHandler struct {
	admin *admin.Service
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(svc *admin.Service) *AdminHandler {
	return &AdminHandler{admin: svc}
}

// ApproveRequest handles POST /v1/admin/requests/approve.
func (h *AdminHandler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	var req models.ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}
	if req.RequestID == "" {
		response.BadRequest(w, r, "requestId is required", []models.FieldError{
			{Field: "requestId", Message: "required", Code: "REQUIRED"},
		})
		return
	}

	approved, err := h.admin.Approve(r.Context(), req.RequestID, middleware.GetUserID(r.Context()))
	switch {
	case errors.Is(err, admin.ErrRequestNotFound):
		response.NotFound(w, r, "admin request not found")
		return
	case errors.Is(err, admin.ErrAlreadyApproved):
		response.Conflict(w, r, "admin request already approved")
		return
	case err != nil:
		response.InternalError(w, r, "admin request could not be approved")
		return
	}

	response.JSON(w, r, http.StatusOK, approved)
}

// ListRequests handles GET /v1/admin/requests.
func (h *AdminHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.BadRequest(w, r, "limit must be a non-negative integer", nil)
			return
		}
		limit = parsed
	}

	requests, err := h.admin.ListPending(r.Context(), limit)
	if err != nil {
		response.InternalError(w, r, "admin requests could not be listed")
		return
	}
	if requests == nil {
		requests = []*admin.Request{}
	}

	response.JSON(w, r, http.StatusOK, map[string]interface{}{"requests": requests})
}
