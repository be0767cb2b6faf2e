package handler

import (
	"net/http"
	"strconv"

	"carebook/internal/directory/service"
	apperrors "carebook/pkg/errors"
	httputil "carebook/pkg/http"
	"carebook/pkg/logger"
	"carebook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type ProviderHandler struct {
	service service.DirectoryService
	log     *logger.Logger
}

func NewProviderHandler(service service.DirectoryService, log *logger.Logger) *ProviderHandler {
	return &ProviderHandler{
		service: service,
		log:     log,
	}
}

func (h *ProviderHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/providers", h.Search)
	router.GET("/api/v1/providers/:id", h.GetByID)
	router.GET("/api/v1/locations", h.ListLocations)
}

func (h *ProviderHandler) Search(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	limit := 0
	if s := query.Get("limit"); s != "" {
		var err error
		limit, err = strconv.Atoi(s)
		if err != nil {
			h.writeError(w, "Search", apperrors.InvalidInput("invalid limit parameter: "+s))
			return
		}
	}
	offset := 0
	if s := query.Get("offset"); s != "" {
		var err error
		offset, err = strconv.Atoi(s)
		if err != nil {
			h.writeError(w, "Search", apperrors.InvalidInput("invalid offset parameter: "+s))
			return
		}
	}

	providers, err := h.service.SearchProviders(r.Context(), model.ProviderSearch{
		Specialty:            model.Specialty(query.Get("specialty")),
		Name:                 query.Get("name"),
		AcceptingNewPatients: query.Get("accepting_new_patients") == "true",
		Limit:                limit,
		Offset:               offset,
	})
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"providers": providers,
		"total":     len(providers),
	}); err != nil {
		h.log.Error("failed to write response", "handler", "Search", "error", err)
	}
}

func (h *ProviderHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	provider, err := h.service.GetProvider(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, provider); err != nil {
		h.log.Error("failed to write response", "handler", "GetByID", "error", err)
	}
}

func (h *ProviderHandler) ListLocations(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	locations, err := h.service.ListLocations(r.Context(), query.Get("city"), query.Get("state"))
	if err != nil {
		h.writeError(w, "ListLocations", err)
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"locations": locations,
		"total":     len(locations),
	}); err != nil {
		h.log.Error("failed to write response", "handler", "ListLocations", "error", err)
	}
}

func (h *ProviderHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "error", writeErr)
	}
}
