package controller

import (
	"errors"
	"io"
	"net/http"

	"github.com/confreg/regpay/internal/application/reconcile"
	domainErrors "github.com/confreg/regpay/internal/domain/errors"
	"github.com/confreg/regpay/internal/gateway"
	"github.com/rs/zerolog"

	"github.com/go-chi/chi/v5"
)

const maxWebhookBodySize = 1 << 20

// WebhookController handles the server-push confirmation channel. The
// response code is a contract with the gateway's retry loop: 200 means
// "processed, stop retrying" and covers duplicates, conflicts and unknown
// references alike, since redelivery cannot fix any of those. Only a bad
// signature or an unreadable payload gets a 400.
type WebhookController struct {
	engine   *reconcile.Engine
	gateways *gateway.Registry
	logger   zerolog.Logger
}

// NewWebhookController creates a new WebhookController.
func NewWebhookController(engine *reconcile.Engine, gateways *gateway.Registry, logger zerolog.Logger) *WebhookController {
	return &WebhookController{
		engine:   engine,
		gateways: gateways,
		logger:   logger,
	}
}

// Handle handles POST /api/v1/webhook/{gateway}
func (h *WebhookController) Handle(w http.ResponseWriter, r *http.Request) {
	gatewayName := chi.URLParam(r, "gateway")

	gw, _, err := h.gateways.Get(gatewayName)
	if err != nil {
		writeError(w, err)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodySize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "unreadable body", Code: "invalid_input"})
		return
	}

	ev, err := gw.ParseWebhook(r.Header, body)
	if err != nil {
		h.logger.Warn().Err(err).Str("gateway", gatewayName).Msg("unparseable webhook")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "malformed webhook payload", Code: "invalid_input"})
		return
	}
	ev.SourceChannel = gateway.ChannelWebhook

	res, err := h.engine.Reconcile(r.Context(), ev)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrSignatureMismatch):
			writeError(w, err)
		case errors.Is(err, domainErrors.ErrUnknownOrderReference):
			// Acknowledged so the gateway stops retrying; the event is
			// already in the manual reconciliation log.
			writeJSON(w, http.StatusOK, WebhookResponse{Status: "unknown_reference"})
		case errors.Is(err, domainErrors.ErrConflictingTransition):
			writeJSON(w, http.StatusOK, WebhookResponse{Status: "conflict"})
		default:
			writeError(w, err)
		}
		return
	}

	status := "applied"
	if res.Duplicate {
		status = "duplicate"
	}
	writeJSON(w, http.StatusOK, WebhookResponse{Status: status})
}
