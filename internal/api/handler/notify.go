package handler

import (
	"encoding/json"
	"net/http"

	"github.com/famlink/notifier/internal/api/models"
	"github.com/famlink/notifier/internal/api/response"
	"github.com/famlink/notifier/internal/directory"
	"github.com/famlink/notifier/internal/dispatch"
	"github.com/famlink/notifier/internal/fanout"
)

// NotifyHandler handles direct notification sends.
type NotifyHandler struct {
	fanout *fanout.Service
}

// NewNotifyHandler creates a new NotifyHandler.
func NewNotifyHandler(svc *fanout.Service) *NotifyHandler {
	return &NotifyHandler{fanout: svc}
}

// Send handles POST /v1/notifications/send.
func (h *NotifyHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req models.NotifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, r, "invalid request body", nil)
		return
	}

	var fieldErrors []models.FieldError
	if len(req.Recipients) == 0 {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "recipients", Message: "must not be empty", Code: "REQUIRED"})
	}
	if req.Title == "" {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "title", Message: "required", Code: "REQUIRED"})
	}
	hint := directory.Tier(req.Tier)
	if req.Tier != "" && !hint.Valid() {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "tier", Message: "unknown tier", Code: "INVALID"})
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid notification request", fieldErrors)
		return
	}

	res, err := h.fanout.Notify(r.Context(), req.Recipients, hint, dispatch.Payload{
		Title: req.Title,
		Body:  req.Body,
		Data:  req.Data,
	})
	if err != nil {
		response.InternalError(w, r, "notification could not be delivered")
		return
	}

	response.JSON(w, r, http.StatusOK, models.NotifyResponse{
		Delivered: res.SuccessCount(),
		Failed:    len(res.FailedTokens()),
	})
}
