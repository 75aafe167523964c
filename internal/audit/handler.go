package audit

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/reservehq/reserve-personnel/internal"
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

type listResponse struct {
	Success bool  `json:"success"`
	Data    *Page `json:"data"`
}

// GetAuditLogs handles GET /audit-logs.
func (h *Handler) GetAuditLogs(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	page, limit, err := parsePaging(r)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	result, err := h.Service.Query(r.Context(), filter, page, limit)
	if err != nil {
		h.Logger.Error("GetAuditLogs: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, listResponse{Success: true, Data: result})
}

// ExportAuditLogs handles GET /audit-logs/export, streaming CSV.
func (h *Handler) ExportAuditLogs(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	actor, _ := internal.ActorFromContext(r.Context())
	h.Logger.Info("ExportAuditLogs: exporting audit trail", "actor_id", actor.ID)

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="audit-logs-%s.csv"`, time.Now().UTC().Format("2006-01-02")))

	if err := h.Service.ExportCSV(r.Context(), filter, w); err != nil {
		// Headers may already be written; log rather than emit a second body.
		h.Logger.Error("ExportAuditLogs: export failed", "error", err)
		return
	}

	h.Service.Record(r.Context(), Entry{
		ActorID:   actor.ID,
		ActorName: actor.Name,
		ActorRole: actor.Role,
		Action:    ActionDownload,
		Resource:  resourceSystem,
		Details:   "exported audit trail to CSV",
	})
}

// PurgeAuditLogs handles DELETE /audit-logs?before=<date>.
func (h *Handler) PurgeAuditLogs(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	cutoff, err := parseDate(r.URL.Query().Get("before"))
	if err != nil || cutoff == nil {
		h.WriteError(w, http.StatusBadRequest, "before must be a valid date")
		return
	}

	deleted, err := h.Service.Purge(r.Context(), actor, *cutoff)
	if err != nil {
		h.Logger.Error("PurgeAuditLogs: service error", "error", err, "actor_id", actor.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"deleted": deleted,
	})
}

func parseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()

	filter := Filter{
		Action:     Action(q.Get("action")),
		Resource:   q.Get("resource"),
		SearchTerm: q.Get("searchTerm"),
	}

	start, err := parseDate(q.Get("startDate"))
	if err != nil {
		return Filter{}, internal.NewValidationError("startDate must be RFC3339 or YYYY-MM-DD", internal.ErrCodeInvalidDateRange)
	}
	end, err := parseDate(q.Get("endDate"))
	if err != nil {
		return Filter{}, internal.NewValidationError("endDate must be RFC3339 or YYYY-MM-DD", internal.ErrCodeInvalidDateRange)
	}

	// A date-only endDate means "through the end of that day".
	if end != nil && q.Get("endDate") != "" && len(q.Get("endDate")) == len("2006-01-02") {
		e := end.AddDate(0, 0, 1).Add(-time.Nanosecond)
		end = &e
	}

	filter.StartDate = start
	filter.EndDate = end
	return filter, nil
}

func parsePaging(r *http.Request) (page, limit int, err error) {
	page, limit = 1, 20
	q := r.URL.Query()

	if raw := q.Get("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil {
			return 0, 0, internal.NewValidationError("page must be a positive integer", internal.ErrCodeInvalidPaging)
		}
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			return 0, 0, internal.NewValidationError("limit must be a positive integer", internal.ErrCodeInvalidPaging)
		}
	}
	return page, limit, nil
}

func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
