package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Misaka450/baoandkai-sub000/internal/service"
	"github.com/Misaka450/baoandkai-sub000/pkg/httputil"
	"github.com/Misaka450/baoandkai-sub000/pkg/validator"
)

const dateLayout = "2006-01-02"

// TimelineHandler handles HTTP requests for timeline endpoints.
type TimelineHandler struct {
	service *service.TimelineService
	logger  *slog.Logger
}

// NewTimelineHandler creates a new timeline HTTP handler.
func NewTimelineHandler(svc *service.TimelineService, logger *slog.Logger) *TimelineHandler {
	return &TimelineHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateEventRequest is the JSON request body for creating a timeline event.
type CreateEventRequest struct {
	Title      string   `json:"title" validate:"required,max=200"`
	Body       string   `json:"body" validate:"max=20000"`
	OccurredOn string   `json:"occurred_on" validate:"required,datetime=2006-01-02"`
	Images     []string `json:"images" validate:"max=50,dive,max=500"`
}

// UpdateEventRequest is the JSON request body for updating a timeline event.
// Absent fields are left unchanged; a present images array replaces the whole
// set (and triggers blob reconciliation for dropped references).
type UpdateEventRequest struct {
	Title      *string   `json:"title" validate:"omitempty,max=200"`
	Body       *string   `json:"body" validate:"omitempty,max=20000"`
	OccurredOn *string   `json:"occurred_on" validate:"omitempty,datetime=2006-01-02"`
	Images     *[]string `json:"images" validate:"omitempty,max=50,dive,max=500"`
}

// --- Response envelope ---

type listResponse struct {
	Data       any `json:"data"`
	TotalCount int `json:"total_count"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
}

// --- Handlers ---

// CreateEvent handles POST /api/v1/timeline.
func (h *TimelineHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateEventRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	occurredOn, err := time.Parse(dateLayout, req.OccurredOn)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "occurred_on must be a YYYY-MM-DD date"},
		})
		return
	}

	e, err := h.service.CreateEvent(r.Context(), &service.CreateEventInput{
		Title:      req.Title,
		Body:       req.Body,
		OccurredOn: occurredOn,
		Images:     req.Images,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: e})
}

// GetEvent handles GET /api/v1/timeline/{id}.
func (h *TimelineHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	e, err := h.service.GetEvent(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: e})
}

// ListEvents handles GET /api/v1/timeline.
func (h *TimelineHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	page := 1
	perPage := 20

	if v := r.URL.Query().Get("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p < 1 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "page must be a valid positive integer"},
			})
			return
		}
		page = p
	}
	if v := r.URL.Query().Get("per_page"); v != "" {
		pp, err := strconv.Atoi(v)
		if err != nil || pp < 1 || pp > 100 {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "per_page must be a valid integer between 1 and 100"},
			})
			return
		}
		perPage = pp
	}

	events, total, err := h.service.ListEvents(r.Context(), page, perPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	totalPages := total / perPage
	if total%perPage > 0 {
		totalPages++
	}

	httputil.WriteJSON(w, http.StatusOK, listResponse{
		Data:       events,
		TotalCount: total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	})
}

// UpdateEvent handles PUT /api/v1/timeline/{id}.
func (h *TimelineHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req UpdateEventRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	input := &service.UpdateEventInput{
		Title:  req.Title,
		Body:   req.Body,
		Images: req.Images,
	}
	if req.OccurredOn != nil {
		occurredOn, err := time.Parse(dateLayout, *req.OccurredOn)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "occurred_on must be a YYYY-MM-DD date"},
			})
			return
		}
		input.OccurredOn = &occurredOn
	}

	e, err := h.service.UpdateEvent(r.Context(), id, input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: e})
}

// DeleteEvent handles DELETE /api/v1/timeline/{id}.
func (h *TimelineHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteEvent(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{
		"id":     strconv.FormatInt(id, 10),
		"status": "deleted",
	}})
}
