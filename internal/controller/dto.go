package controller

import (
	"time"

	"github.com/confreg/regpay/internal/domain/order"
)

// --- Request DTOs ---
// These DTOs handle HTTP/JSON concerns (string IDs, validation tags).
// Controllers convert these to use case inputs before calling business logic.

// CreateOrderRequest holds the input for creating a payment order.
type CreateOrderRequest struct {
	RegistrationID string `json:"registration_id" validate:"required"`
	AmountMinor    int64  `json:"amount_minor" validate:"required,gt=0"`
	Currency       string `json:"currency" validate:"omitempty,len=3"`
	Gateway        string `json:"gateway" validate:"required,oneof=razorpay payu"`
	Name           string `json:"name" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Phone          string `json:"phone" validate:"omitempty"`
	RedirectURL    string `json:"redirect_url" validate:"omitempty,url"`
}

// RefundOrderRequest holds the input for refunding an order. AmountMinor
// is optional; when omitted the full charged total is refunded.
type RefundOrderRequest struct {
	OrderID     string `json:"order_id" validate:"required,uuid"`
	AmountMinor int64  `json:"amount_minor" validate:"omitempty,gt=0"`
	Reason      string `json:"reason" validate:"omitempty,max=255"`
}

// --- Response DTOs ---

// OrderResponse represents a payment order in API responses.
type OrderResponse struct {
	ID             string     `json:"id"`
	RegistrationID string     `json:"registration_id"`
	Gateway        string     `json:"gateway"`
	ExternalRef    string     `json:"external_ref"`
	PaymentRef     string     `json:"payment_ref,omitempty"`
	RefundRef      string     `json:"refund_ref,omitempty"`
	AmountMinor    int64      `json:"amount_minor"`
	SurchargeMinor int64      `json:"surcharge_minor"`
	TotalMinor     int64      `json:"total_minor"`
	Currency       string     `json:"currency"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	VerifiedAt     *time.Time `json:"verified_at,omitempty"`
}

// CreateOrderResponse carries the stored order plus the checkout payload
// the browser uses to open the gateway.
type CreateOrderResponse struct {
	Order    *OrderResponse `json:"order"`
	Checkout map[string]any `json:"checkout"`
}

// WebhookResponse acknowledges a server-push confirmation event.
type WebhookResponse struct {
	Status string `json:"status"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// FromOrder converts a domain order to an API response.
func FromOrder(o *order.Order) *OrderResponse {
	return &OrderResponse{
		ID:             o.ID.String(),
		RegistrationID: o.RegistrationID,
		Gateway:        string(o.Gateway),
		ExternalRef:    o.ExternalRef,
		PaymentRef:     o.PaymentRef,
		RefundRef:      o.RefundRef,
		AmountMinor:    o.AmountMinor,
		SurchargeMinor: o.SurchargeMinor,
		TotalMinor:     o.TotalMinor(),
		Currency:       o.Currency,
		Status:         string(o.Status),
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
		VerifiedAt:     o.VerifiedAt,
	}
}
