package handler

import (
	"encoding/json"
	"net/http"

	"pawwalk/internal/payments/service"
	apperrors "pawwalk/pkg/errors"
	httputil "pawwalk/pkg/http"
	"pawwalk/pkg/logger"
	"pawwalk/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

type RefundRequest struct {
	Amount int64 `json:"amount"`
}

// WebhookEvent is the subset of a gateway event needed to find the payment.
type WebhookEvent struct {
	Key  string `json:"key"`
	Data struct {
		ID       string         `json:"id"`
		Metadata map[string]any `json:"metadata"`
	} `json:"data"`
}

type PaymentHandler struct {
	service       service.PaymentService
	webhookSecret string
	log           *logger.Logger
}

func NewPaymentHandler(service service.PaymentService, webhookSecret string, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		service:       service,
		webhookSecret: webhookSecret,
		log:           log,
	}
}

func (h *PaymentHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	payment, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, payment); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req RefundRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		h.writeError(w, "Refund", err)
		return
	}

	payment, err := h.service.Refund(r.Context(), ps.ByName("id"), req.Amount)
	if err != nil {
		h.writeError(w, "Refund", err)
		return
	}

	if err := httputil.WriteSuccess(w, payment); err != nil {
		h.log.Error("failed to write success response", "handler", "Refund", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PaymentHandler) Reconcile(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	payment, err := h.service.Reconcile(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Reconcile", err)
		return
	}

	if err := httputil.WriteSuccess(w, payment); err != nil {
		h.log.Error("failed to write success response", "handler", "Reconcile", "operation", "WriteSuccess", "error", err)
	}
}

// Webhook treats a gateway callback as a hint to reconcile. The payload is not
// trusted beyond the payment id; the outcome is always re-read from the gateway.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var event WebhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		h.writeError(w, "Webhook", apperrors.InvalidInput("invalid webhook payload"))
		return
	}

	paymentID, _ := event.Data.Metadata["payment_id"].(string)
	if paymentID == "" {
		h.log.Info("Ignoring webhook without payment id", "key", event.Key, "charge_id", event.Data.ID)
		w.WriteHeader(http.StatusAccepted)
		return
	}

	if _, err := h.service.Reconcile(r.Context(), paymentID); err != nil {
		if apperrors.HasCode(err, apperrors.CodeGateway) {
			h.log.Warn("Webhook reconciliation deferred", "payment_id", paymentID, "error", err)
			w.WriteHeader(http.StatusAccepted)
			return
		}
		h.writeError(w, "Webhook", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *PaymentHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *PaymentHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/payments/id/:id", h.GetByID)
	router.POST("/api/v1/payments/id/:id/refund", h.Refund)
	router.POST("/api/v1/payments/id/:id/reconcile", h.Reconcile)

	if h.webhookSecret == "" {
		h.log.Warn("GATEWAY_WEBHOOK_SECRET not set, payment webhook disabled")
		return
	}
	webhook := middleware.SignatureVerification(h.webhookSecret, h.log)(adapt(h.Webhook))
	router.Handler(http.MethodPost, "/api/v1/payments/webhook", webhook)
}

func adapt(handle httprouter.Handle) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handle(w, r, httprouter.ParamsFromContext(r.Context()))
	})
}
