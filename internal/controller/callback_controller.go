package controller

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/confreg/regpay/internal/application/reconcile"
	domainErrors "github.com/confreg/regpay/internal/domain/errors"
	"github.com/confreg/regpay/internal/domain/order"
	"github.com/confreg/regpay/internal/gateway"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// CallbackController handles the browser-redirect confirmation channel.
// The response is always a 302 to the result page: the payer is standing
// in front of a browser mid-payment, and an error page here would strand
// them even though the webhook will settle the order anyway.
type CallbackController struct {
	engine    *reconcile.Engine
	gateways  *gateway.Registry
	resultURL string
	logger    zerolog.Logger
}

// NewCallbackController creates a new CallbackController.
func NewCallbackController(engine *reconcile.Engine, gateways *gateway.Registry, resultURL string, logger zerolog.Logger) *CallbackController {
	return &CallbackController{
		engine:    engine,
		gateways:  gateways,
		resultURL: resultURL,
		logger:    logger,
	}
}

// Handle handles GET|POST /api/v1/callback/{gateway}. Gateways differ on
// the redirect method, so both are accepted and normalized to url.Values.
func (h *CallbackController) Handle(w http.ResponseWriter, r *http.Request) {
	gatewayName := chi.URLParam(r, "gateway")

	values, err := h.requestValues(r)
	if err != nil {
		h.redirect(w, r, "", "pending", "malformed_callback")
		return
	}

	gw, _, err := h.gateways.Get(gatewayName)
	if err != nil {
		h.redirect(w, r, "", "pending", "unknown_gateway")
		return
	}

	ev, err := gw.ParseCallback(values)
	if err != nil {
		h.logger.Warn().Err(err).Str("gateway", gatewayName).Msg("unparseable callback")
		h.redirect(w, r, "", "pending", "malformed_callback")
		return
	}
	ev.SourceChannel = gateway.ChannelCallback

	res, err := h.engine.Reconcile(r.Context(), ev)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrSignatureMismatch):
			h.redirect(w, r, ev.ExternalRef, "pending", "signature_mismatch")
		case errors.Is(err, domainErrors.ErrUnknownOrderReference):
			h.redirect(w, r, ev.ExternalRef, "pending", "unknown_reference")
		case errors.Is(err, domainErrors.ErrConflictingTransition):
			// The order is settled, just not the way this event claims.
			// Show the payer the stored truth.
			h.redirect(w, r, ev.ExternalRef, redirectStatus(res.FinalStatus), "")
		default:
			h.logger.Error().Err(err).Str("gateway", gatewayName).Msg("callback reconciliation failed")
			h.redirect(w, r, ev.ExternalRef, "pending", "")
		}
		return
	}

	h.redirect(w, r, ev.ExternalRef, redirectStatus(res.FinalStatus), "")
}

// redirectStatus maps an order status to the two-value vocabulary the
// result page speaks. Anything short of success redirects as pending;
// the page polls the order for the authoritative state, so a failed or
// refunded order is never announced from a redirect URL the payer's
// browser carried.
func redirectStatus(s order.Status) string {
	if s == order.StatusSuccess {
		return "success"
	}
	return "pending"
}

func (h *CallbackController) requestValues(r *http.Request) (url.Values, error) {
	if r.Method == http.MethodGet {
		return r.URL.Query(), nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	return r.PostForm, nil
}

func (h *CallbackController) redirect(w http.ResponseWriter, r *http.Request, externalRef, status, errCode string) {
	q := url.Values{}
	if externalRef != "" {
		q.Set("external_ref", externalRef)
	}
	q.Set("status", status)
	if errCode != "" {
		q.Set("error", errCode)
	}
	http.Redirect(w, r, h.resultURL+"?"+q.Encode(), http.StatusFound)
}
