package handler

import (
	"context"
	"net/http"

	"pawwalk/internal/bookings/service"
	apperrors "pawwalk/pkg/errors"
	httputil "pawwalk/pkg/http"
	"pawwalk/pkg/logger"
	"pawwalk/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.CreateBookingRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	booking, err := h.service.Create(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) FetchByOwner(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	bookings, err := h.service.FetchByOwner(r.Context(), ps.ByName("owner_id"))
	if err != nil {
		h.writeError(w, "FetchByOwner", err)
		return
	}

	if err := httputil.WriteSuccess(w, bookings); err != nil {
		h.log.Error("failed to write success response", "handler", "FetchByOwner", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.transition(w, r, "Cancel", ps.ByName("id"), h.service.Cancel)
}

func (h *BookingHandler) StartWalk(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.transition(w, r, "StartWalk", ps.ByName("id"), h.service.StartWalk)
}

func (h *BookingHandler) FinishWalk(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.transition(w, r, "FinishWalk", ps.ByName("id"), h.service.FinishWalk)
}

func (h *BookingHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	handler string,
	id string,
	apply func(ctx context.Context, id string) (*model.Booking, error),
) {
	booking, err := apply(r.Context(), id)
	if err != nil {
		h.writeError(w, handler, err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if !apperrors.IsAppError(err) {
		h.log.Error("Unhandled error", "handler", handler, "error", err)
	}
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings/owner/:owner_id", h.FetchByOwner)
	router.GET("/api/v1/bookings/id/:id", h.GetByID)
	router.POST("/api/v1/bookings/id/:id/cancel", h.Cancel)
	router.POST("/api/v1/bookings/id/:id/start", h.StartWalk)
	router.POST("/api/v1/bookings/id/:id/finish", h.FinishWalk)
}
