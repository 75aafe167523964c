package accountrequest

import (
	"encoding/json"
	"net/http"

	"github.com/reservehq/reserve-personnel/internal/auth"
	"github.com/reservehq/reserve-personnel/internal/transport"
	"github.com/reservehq/reserve-personnel/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger.L()),
		Service:     service,
	}
}

// SubmitRequest handles POST /accounts (public self-registration).
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var dto SubmitRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := h.Service.Submit(r.Context(), dto)
	if err != nil {
		h.Logger.Error("SubmitRequest: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"account": req,
	})
}

// ListRequests handles GET /accounts?status=.
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	requests, err := h.Service.List(r.Context(), status)
	if err != nil {
		h.Logger.Error("ListRequests: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": requests,
	})
}

// ReviewRequest handles PATCH /accounts, approving or rejecting a request.
// Permission and request state are re-verified server-side regardless of
// whatever the client UI believed.
func (h *Handler) ReviewRequest(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto ReviewDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var (
		req *AccountRequest
		err error
	)
	if dto.Status == StatusApproved {
		req, err = h.Service.Approve(r.Context(), user, dto.ID)
	} else {
		req, err = h.Service.Reject(r.Context(), user, dto.ID, dto.RejectionReason)
	}

	if err != nil {
		h.Logger.Error("ReviewRequest: service error",
			"error", err,
			"request_id", dto.ID,
			"actor_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("ReviewRequest: request decided",
		"request_id", req.ID,
		"status", req.Status,
		"actor_id", user.ID)

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"account": req,
	})
}
