package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"carebook/internal/availability/service"
	"carebook/pkg/config"
	apperrors "carebook/pkg/errors"
	httputil "carebook/pkg/http"
	"carebook/pkg/logger"
	"carebook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type AvailabilityHandler struct {
	service service.AvailabilityService
	log     *logger.Logger
}

func NewAvailabilityHandler(service service.AvailabilityService, log *logger.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		service: service,
		log:     log,
	}
}

func (h *AvailabilityHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/availability/search", h.Search)
	router.GET("/api/v1/availability/next-available", h.NextAvailable)
	router.GET("/api/v1/availability/calendar", h.Calendar)
	router.GET("/api/v1/availability/slots/:id", h.GetSlot)
	router.POST("/api/v1/availability/slots/:id/hold", h.HoldSlot)
	router.DELETE("/api/v1/availability/slots/:id/hold", h.ReleaseHold)
}

func (h *AvailabilityHandler) Search(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	startDate, err := httputil.ExtractDate(r, "start_date")
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}
	endDate, err := httputil.ExtractDate(r, "end_date")
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}

	// Default window: today through the next two weeks.
	if startDate == nil {
		today := time.Now().UTC().Truncate(24 * time.Hour)
		startDate = &today
	}
	if endDate == nil {
		end := startDate.AddDate(0, 0, 14)
		endDate = &end
	}

	limit := 0
	if s := query.Get("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil {
			h.writeError(w, "Search", apperrors.InvalidInput("invalid limit parameter: "+s))
			return
		}
	}

	tod := model.TimeOfDay(query.Get("time_of_day"))
	switch tod {
	case "", model.Morning, model.Afternoon, model.Evening:
	default:
		h.writeError(w, "Search", apperrors.InvalidInput("time_of_day must be morning, afternoon or evening"))
		return
	}

	search := model.AvailabilitySearch{
		ProviderID:      query.Get("provider_id"),
		LocationID:      query.Get("location_id"),
		StartDate:       *startDate,
		EndDate:         *endDate,
		TimeOfDay:       tod,
		AppointmentType: query.Get("appointment_type"),
		Limit:           config.NormalizeSearchLimit(limit),
	}

	slots, err := h.service.Search(r.Context(), search)
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"slots": slots,
		"total": len(slots),
	}); err != nil {
		h.log.Error("failed to write search response", "handler", "Search", "error", err)
	}
}

func (h *AvailabilityHandler) NextAvailable(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	slot, err := h.service.NextAvailable(r.Context(),
		query.Get("provider_id"),
		query.Get("location_id"),
		query.Get("appointment_type"),
	)
	if err != nil {
		h.writeError(w, "NextAvailable", err)
		return
	}

	if slot == nil {
		if err := httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"message": "No availability found",
			"slot":    nil,
		}); err != nil {
			h.log.Error("failed to write response", "handler", "NextAvailable", "error", err)
		}
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, map[string]any{"slot": slot}); err != nil {
		h.log.Error("failed to write response", "handler", "NextAvailable", "error", err)
	}
}

func (h *AvailabilityHandler) Calendar(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	providerID := query.Get("provider_id")
	if providerID == "" {
		h.writeError(w, "Calendar", apperrors.InvalidInput("provider_id is required"))
		return
	}

	month, err := strconv.Atoi(query.Get("month"))
	if err != nil || month < 1 || month > 12 {
		h.writeError(w, "Calendar", apperrors.InvalidInput("month must be between 1 and 12"))
		return
	}
	year, err := strconv.Atoi(query.Get("year"))
	if err != nil || year < 2000 || year > 2100 {
		h.writeError(w, "Calendar", apperrors.InvalidInput("year is out of range"))
		return
	}

	calendar, err := h.service.Calendar(r.Context(), providerID, month, year)
	if err != nil {
		h.writeError(w, "Calendar", err)
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"calendar":    calendar,
		"provider_id": providerID,
	}); err != nil {
		h.log.Error("failed to write response", "handler", "Calendar", "error", err)
	}
}

func (h *AvailabilityHandler) GetSlot(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	slot, err := h.service.GetSlot(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetSlot", err)
		return
	}

	if err := httputil.WriteSuccess(w, slot); err != nil {
		h.log.Error("failed to write response", "handler", "GetSlot", "error", err)
	}
}

type holdRequest struct {
	PatientID       string `json:"patient_id"`
	DurationMinutes int    `json:"duration_minutes"`
}

func (h *AvailabilityHandler) HoldSlot(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req holdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "HoldSlot", apperrors.InvalidInput("Invalid request body"))
		return
	}
	if req.PatientID == "" {
		h.writeError(w, "HoldSlot", apperrors.InvalidInput("patient_id is required"))
		return
	}

	hold, err := h.service.HoldSlot(r.Context(), ps.ByName("id"), req.PatientID,
		time.Duration(req.DurationMinutes)*time.Minute)
	if err != nil {
		h.writeError(w, "HoldSlot", err)
		return
	}

	if err := httputil.WriteCreated(w, hold); err != nil {
		h.log.Error("failed to write response", "handler", "HoldSlot", "error", err)
	}
}

func (h *AvailabilityHandler) ReleaseHold(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	patientID := r.URL.Query().Get("patient_id")
	if patientID == "" {
		h.writeError(w, "ReleaseHold", apperrors.InvalidInput("patient_id is required"))
		return
	}

	if err := h.service.ReleaseHold(r.Context(), ps.ByName("id"), patientID); err != nil {
		h.writeError(w, "ReleaseHold", err)
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "released",
		"slot_id": ps.ByName("id"),
	}); err != nil {
		h.log.Error("failed to write response", "handler", "ReleaseHold", "error", err)
	}
}

func (h *AvailabilityHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "error", writeErr)
	}
}
