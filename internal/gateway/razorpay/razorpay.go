package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	domainErrors "github.com/confreg/regpay/internal/domain/errors"
	"github.com/confreg/regpay/internal/gateway"
)

const defaultBaseURL = "https://api.razorpay.com"

// Config holds the Razorpay credentials and secrets.
type Config struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	BaseURL       string
	Timeout       time.Duration
}

// Client is the Razorpay gateway. Orders are minted server-side through the
// Orders API; the browser then opens the hosted checkout with the returned
// order id.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New creates a Razorpay client with a bounded HTTP timeout.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) Name() string { return "razorpay" }

type orderAPIResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

// CreateOrder mints a Razorpay order and returns the checkout payload for
// the JS widget.
func (c *Client) CreateOrder(ctx context.Context, req gateway.CreateOrderRequest) (*gateway.CreateOrderResponse, error) {
	body, err := json.Marshal(map[string]any{
		"amount":   req.AmountMinor,
		"currency": req.Currency,
		"receipt":  req.OrderID,
		"notes": map[string]string{
			"registration_id": req.RegistrationID,
			"email":           req.PayerEmail,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal order request: %w", err)
	}

	var apiResp orderAPIResponse
	if err := c.do(ctx, http.MethodPost, "/v1/orders", body, &apiResp); err != nil {
		return nil, err
	}
	if apiResp.ID == "" {
		return nil, fmt.Errorf("razorpay order response missing id: %w", domainErrors.ErrGatewayRejected)
	}

	return &gateway.CreateOrderResponse{
		ExternalRef: apiResp.ID,
		CheckoutPayload: map[string]any{
			"key":      c.cfg.KeyID,
			"order_id": apiResp.ID,
			"amount":   req.AmountMinor,
			"currency": req.Currency,
			"name":     req.PayerName,
			"prefill": map[string]string{
				"name":    req.PayerName,
				"email":   req.PayerEmail,
				"contact": req.PayerPhone,
			},
			"callback_url": req.RedirectURL,
		},
	}, nil
}

type refundAPIResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Refund refunds a captured payment.
func (c *Client) Refund(ctx context.Context, req gateway.RefundRequest) (*gateway.RefundResponse, error) {
	if req.PaymentRef == "" {
		return nil, fmt.Errorf("refund requires payment ref: %w", domainErrors.ErrInvalidInput)
	}
	body, err := json.Marshal(map[string]any{"amount": req.AmountMinor})
	if err != nil {
		return nil, fmt.Errorf("marshal refund request: %w", err)
	}

	var apiResp refundAPIResponse
	path := fmt.Sprintf("/v1/payments/%s/refund", url.PathEscape(req.PaymentRef))
	if err := c.do(ctx, http.MethodPost, path, body, &apiResp); err != nil {
		return nil, err
	}
	return &gateway.RefundResponse{RefundRef: apiResp.ID, Status: apiResp.Status}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("razorpay %s %s: %w", method, path, domainErrors.ErrGatewayUnavailable)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("razorpay returned %d: %w", resp.StatusCode, domainErrors.ErrGatewayRejected)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ParseCallback normalizes the browser-redirect fields. Razorpay only
// redirects with a signature on success; error redirects carry error[code]
// and no payment signature.
func (c *Client) ParseCallback(values url.Values) (*gateway.VerificationEvent, error) {
	orderID := values.Get("razorpay_order_id")
	if orderID == "" {
		return nil, fmt.Errorf("callback missing razorpay_order_id: %w", domainErrors.ErrInvalidInput)
	}

	ev := &gateway.VerificationEvent{
		Gateway:       c.Name(),
		SourceChannel: gateway.ChannelCallback,
		ExternalRef:   orderID,
		PaymentRef:    values.Get("razorpay_payment_id"),
		RawSignature:  values.Get("razorpay_signature"),
		Fields: map[string]string{
			"razorpay_order_id":   orderID,
			"razorpay_payment_id": values.Get("razorpay_payment_id"),
		},
	}

	if values.Get("error[code]") != "" || ev.PaymentRef == "" {
		ev.ClaimedOutcome = gateway.OutcomeFailed
	} else {
		ev.ClaimedOutcome = gateway.OutcomeSuccess
	}
	return ev, nil
}

type webhookPayload struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Amount  int64  `json:"amount"`
				Status  string `json:"status"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// ParseWebhook normalizes a server-push event. The signature covers the raw
// request body, so the body is kept on the event for Verify.
func (c *Client) ParseWebhook(header http.Header, body []byte) (*gateway.VerificationEvent, error) {
	var wp webhookPayload
	if err := json.Unmarshal(body, &wp); err != nil {
		return nil, fmt.Errorf("decode webhook body: %w", domainErrors.ErrInvalidInput)
	}

	var outcome gateway.Outcome
	switch wp.Event {
	case "payment.captured":
		outcome = gateway.OutcomeSuccess
	case "payment.failed":
		outcome = gateway.OutcomeFailed
	default:
		return nil, fmt.Errorf("unsupported webhook event %q: %w", wp.Event, domainErrors.ErrInvalidInput)
	}

	entity := wp.Payload.Payment.Entity
	if entity.OrderID == "" && entity.ID == "" {
		return nil, fmt.Errorf("webhook missing payment references: %w", domainErrors.ErrInvalidInput)
	}

	return &gateway.VerificationEvent{
		Gateway:            c.Name(),
		SourceChannel:      gateway.ChannelWebhook,
		ExternalRef:        entity.OrderID,
		PaymentRef:         entity.ID,
		ClaimedOutcome:     outcome,
		ClaimedAmountMinor: entity.Amount,
		RawSignature:       header.Get("X-Razorpay-Signature"),
		RawBody:            body,
	}, nil
}

// Verify recomputes the event signature and compares in constant time.
// Callbacks sign "order_id|payment_id" with the key secret; webhooks sign
// the raw body with the webhook secret.
func (c *Client) Verify(ev *gateway.VerificationEvent) bool {
	if ev == nil || ev.RawSignature == "" {
		return false
	}

	switch ev.SourceChannel {
	case gateway.ChannelCallback:
		if c.cfg.KeySecret == "" {
			return false
		}
		orderID := ev.Fields["razorpay_order_id"]
		paymentID := ev.Fields["razorpay_payment_id"]
		if orderID == "" || paymentID == "" {
			return false
		}
		return hmacEqual(orderID+"|"+paymentID, c.cfg.KeySecret, ev.RawSignature)
	case gateway.ChannelWebhook:
		if c.cfg.WebhookSecret == "" || len(ev.RawBody) == 0 {
			return false
		}
		return hmacEqual(string(ev.RawBody), c.cfg.WebhookSecret, ev.RawSignature)
	default:
		return false
	}
}
