package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"carebook/internal/waitlist/service"
	apperrors "carebook/pkg/errors"
	httputil "carebook/pkg/http"
	"carebook/pkg/logger"
	"carebook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type WaitlistHandler struct {
	service service.WaitlistService
	log     *logger.Logger
}

func NewWaitlistHandler(service service.WaitlistService, log *logger.Logger) *WaitlistHandler {
	return &WaitlistHandler{
		service: service,
		log:     log,
	}
}

func (h *WaitlistHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/waitlist", h.Join)
	router.GET("/api/v1/waitlist/stats", h.Stats)
	router.GET("/api/v1/waitlist/entries/:id", h.GetByID)
	router.DELETE("/api/v1/waitlist/entries/:id", h.Leave)
	router.POST("/api/v1/waitlist/entries/:id/notify", h.Notify)
	router.GET("/api/v1/providers/:id/waitlist", h.ListForProvider)
	router.GET("/api/v1/patients/:id/waitlist", h.ListForPatient)
}

func (h *WaitlistHandler) Join(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.WaitlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Join", apperrors.InvalidInput("Invalid request body"))
		return
	}

	entry, err := h.service.Join(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Join", err)
		return
	}

	if err := httputil.WriteCreated(w, entry); err != nil {
		h.log.Error("failed to write response", "handler", "Join", "error", err)
	}
}

func (h *WaitlistHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	entry, err := h.service.Get(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, entry); err != nil {
		h.log.Error("failed to write response", "handler", "GetByID", "error", err)
	}
}

func (h *WaitlistHandler) Leave(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Leave(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "Leave", err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *WaitlistHandler) Notify(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body struct {
		SlotID string `json:"slot_id"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	entry, err := h.service.Notify(r.Context(), ps.ByName("id"), body.SlotID)
	if err != nil {
		h.writeError(w, "Notify", err)
		return
	}

	if err := httputil.WriteSuccess(w, entry); err != nil {
		h.log.Error("failed to write response", "handler", "Notify", "error", err)
	}
}

func (h *WaitlistHandler) ListForProvider(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	query := r.URL.Query()

	limit := 0
	if s := query.Get("limit"); s != "" {
		var err error
		limit, err = strconv.Atoi(s)
		if err != nil {
			h.writeError(w, "ListForProvider", apperrors.InvalidInput("invalid limit parameter: "+s))
			return
		}
	}

	entries, err := h.service.ListForProvider(r.Context(), ps.ByName("id"), model.WaitlistStatus(query.Get("status")), limit)
	if err != nil {
		h.writeError(w, "ListForProvider", err)
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"total":   len(entries),
	}); err != nil {
		h.log.Error("failed to write response", "handler", "ListForProvider", "error", err)
	}
}

func (h *WaitlistHandler) ListForPatient(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	entries, err := h.service.ListForPatient(r.Context(), ps.ByName("id"), model.WaitlistStatus(r.URL.Query().Get("status")))
	if err != nil {
		h.writeError(w, "ListForPatient", err)
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"total":   len(entries),
	}); err != nil {
		h.log.Error("failed to write response", "handler", "ListForPatient", "error", err)
	}
}

func (h *WaitlistHandler) Stats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	stats, err := h.service.Stats(r.Context(), model.WaitlistFilter{
		ProviderID: query.Get("provider_id"),
		LocationID: query.Get("location_id"),
	})
	if err != nil {
		h.writeError(w, "Stats", err)
		return
	}

	if err := httputil.WriteSuccess(w, stats); err != nil {
		h.log.Error("failed to write response", "handler", "Stats", "error", err)
	}
}

func (h *WaitlistHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "error", writeErr)
	}
}
