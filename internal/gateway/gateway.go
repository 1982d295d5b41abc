package gateway

import (
	"context"
	"net/http"
	"net/url"
)

// Outcome is the normalized claim a confirmation event carries. Each
// gateway has its own success/failure vocabulary; parsers map it to this
// before anything reaches the reconciliation engine.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
)

// Channel identifies which confirmation path delivered an event.
type Channel string

const (
	ChannelCallback Channel = "callback" // synchronous, browser redirect
	ChannelWebhook  Channel = "webhook"  // asynchronous, server push
)

// VerificationEvent is the canonical shape both confirmation channels
// normalize into. It lives only for the duration of one reconciliation
// call and is never persisted.
type VerificationEvent struct {
	Gateway            string
	SourceChannel      Channel
	ExternalRef        string // gateway order/transaction id used at creation
	PaymentRef         string // gateway payment id, fallback lookup key
	ClaimedOutcome     Outcome
	ClaimedAmountMinor int64
	RawSignature       string
	RawBody            []byte            // webhook events sign the raw body
	Fields             map[string]string // gateway-specific fields used by Verify
}

// CreateOrderRequest is the input for minting a gateway order.
type CreateOrderRequest struct {
	OrderID        string // our order id, sent as the gateway receipt/reference
	RegistrationID string
	AmountMinor    int64 // amount + surcharge, minor units
	Currency       string
	PayerName      string
	PayerEmail     string
	PayerPhone     string
	RedirectURL    string // where the gateway sends the payer back
}

// CreateOrderResponse carries the gateway-assigned reference and whatever
// the browser needs to open the checkout.
type CreateOrderResponse struct {
	ExternalRef     string
	CheckoutPayload map[string]any
}

// RefundRequest is the input for refunding a settled order at the gateway.
type RefundRequest struct {
	ExternalRef string
	PaymentRef  string
	AmountMinor int64
	Currency    string
	Reason      string
}

// RefundResponse reports the gateway refund reference.
type RefundResponse struct {
	RefundRef string
	Status    string
}

// Gateway is one external payment provider. Implementations own their wire
// formats end to end: order creation, refund, and parsing both confirmation
// channels into the canonical VerificationEvent. Verify recomputes the
// gateway's signature over the event and must return false on any missing
// field, malformed input or unconfigured secret - absence of a valid
// signature is always "do not trust this event", never "retry".
type Gateway interface {
	Name() string
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResponse, error)
	Refund(ctx context.Context, req RefundRequest) (*RefundResponse, error)
	ParseCallback(values url.Values) (*VerificationEvent, error)
	ParseWebhook(header http.Header, body []byte) (*VerificationEvent, error)
	Verify(ev *VerificationEvent) bool
}
