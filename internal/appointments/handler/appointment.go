package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"carebook/internal/appointments/service"
	apperrors "carebook/pkg/errors"
	httputil "carebook/pkg/http"
	"carebook/pkg/logger"
	"carebook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type AppointmentHandler struct {
	service service.AppointmentService
	log     *logger.Logger
}

func NewAppointmentHandler(service service.AppointmentService, log *logger.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		service: service,
		log:     log,
	}
}

func (h *AppointmentHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/appointments", h.Book)
	router.GET("/api/v1/appointments", h.List)
	router.GET("/api/v1/appointments/:id", h.GetByID)
	router.PATCH("/api/v1/appointments/:id", h.Update)
	router.DELETE("/api/v1/appointments/:id", h.Cancel)
	router.POST("/api/v1/appointments/:id/cancel", h.Cancel)
	router.POST("/api/v1/appointments/:id/remind", h.Remind)
	router.POST("/api/v1/appointments/:id/check-in", h.CheckIn)
	router.POST("/api/v1/appointments/:id/complete", h.Complete)
	router.POST("/api/v1/appointments/:id/no-show", h.MarkNoShow)
	router.GET("/api/v1/patients/:id/appointments", h.ListForPatient)
}

func (h *AppointmentHandler) Book(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.AppointmentCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Book", apperrors.InvalidInput("Invalid request body"))
		return
	}

	appointment, err := h.service.Book(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Book", err)
		return
	}

	if err := httputil.WriteCreated(w, appointment); err != nil {
		h.log.Error("failed to write response", "handler", "Book", "error", err)
	}
}

func (h *AppointmentHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	appointment, err := h.service.Get(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, appointment); err != nil {
		h.log.Error("failed to write response", "handler", "GetByID", "error", err)
	}
}

func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}
	date, err := httputil.ExtractDate(r, "date")
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	filter := model.AppointmentFilter{
		ProviderID: query.Get("provider_id"),
		LocationID: query.Get("location_id"),
		PatientID:  query.Get("patient_id"),
		Date:       date,
		Status:     model.AppointmentStatus(query.Get("status")),
	}

	appointments, total, err := h.service.List(r.Context(), filter, limit, offset)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WritePaginated(w, appointments, int64(total), limit, offset); err != nil {
		h.log.Error("failed to write response", "handler", "List", "error", err)
	}
}

func (h *AppointmentHandler) ListForPatient(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListForPatient", err)
		return
	}

	filter := model.AppointmentFilter{
		PatientID: ps.ByName("id"),
		Status:    model.AppointmentStatus(r.URL.Query().Get("status")),
	}

	appointments, total, err := h.service.List(r.Context(), filter, limit, offset)
	if err != nil {
		h.writeError(w, "ListForPatient", err)
		return
	}

	if err := httputil.WritePaginated(w, appointments, int64(total), limit, offset); err != nil {
		h.log.Error("failed to write response", "handler", "ListForPatient", "error", err)
	}
}

func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var upd model.AppointmentUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		h.writeError(w, "Update", apperrors.InvalidInput("Invalid request body"))
		return
	}

	appointment, err := h.service.Update(r.Context(), ps.ByName("id"), &upd)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, appointment); err != nil {
		h.log.Error("failed to write response", "handler", "Update", "error", err)
	}
}

func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body struct {
		Reason string `json:"reason"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	appointment, err := h.service.Cancel(r.Context(), ps.ByName("id"), body.Reason)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	if err := httputil.WriteSuccess(w, appointment); err != nil {
		h.log.Error("failed to write response", "handler", "Cancel", "error", err)
	}
}

func (h *AppointmentHandler) Remind(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.statusChange(w, r, ps, "Remind", h.service.Remind)
}

func (h *AppointmentHandler) CheckIn(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.statusChange(w, r, ps, "CheckIn", h.service.CheckIn)
}

func (h *AppointmentHandler) Complete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.statusChange(w, r, ps, "Complete", h.service.Complete)
}

func (h *AppointmentHandler) MarkNoShow(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.statusChange(w, r, ps, "MarkNoShow", h.service.MarkNoShow)
}

func (h *AppointmentHandler) statusChange(
	w http.ResponseWriter,
	r *http.Request,
	ps httprouter.Params,
	name string,
	op func(ctx context.Context, appointmentID string) (*model.Appointment, error),
) {
	appointment, err := op(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, name, err)
		return
	}

	if err := httputil.WriteSuccess(w, appointment); err != nil {
		h.log.Error("failed to write response", "handler", name, "error", err)
	}
}

func (h *AppointmentHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "error", writeErr)
	}
}
