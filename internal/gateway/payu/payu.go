package payu

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	domainErrors "github.com/confreg/regpay/internal/domain/errors"
	"github.com/confreg/regpay/internal/gateway"
	"github.com/google/uuid"
)

const (
	defaultCheckoutURL = "https://secure.payu.in/_payment"
	defaultServiceURL  = "https://info.payu.in/merchant/postservice?form=2"
)

// Config holds the PayU merchant key and salt.
type Config struct {
	Key         string
	Salt        string
	CheckoutURL string
	ServiceURL  string
	Timeout     time.Duration
}

// Client is the PayU gateway. PayU is a hosted-checkout integration: the
// merchant mints the transaction id locally, computes a request hash and
// posts the payer's browser to the checkout page. Confirmation comes back
// as form fields (surl/furl redirect and server-to-server push) carrying a
// response hash over the same fields in reverse order.
type Client struct {
	cfg        Config
	httpClient *http.Client
	newTxnID   func() string
}

// New creates a PayU client.
func New(cfg Config) *Client {
	if cfg.CheckoutURL == "" {
		cfg.CheckoutURL = defaultCheckoutURL
	}
	if cfg.ServiceURL == "" {
		cfg.ServiceURL = defaultServiceURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		newTxnID:   defaultTxnID,
	}
}

func (c *Client) Name() string { return "payu" }

// defaultTxnID mints a merchant transaction id. PayU caps txnid at 25
// alphanumeric characters.
func defaultTxnID() string {
	return "t" + strings.ReplaceAll(uuid.New().String(), "-", "")[:20]
}

// CreateOrder builds the hosted-checkout form payload. No network call is
// made; the externalRef is the locally minted txnid.
func (c *Client) CreateOrder(ctx context.Context, req gateway.CreateOrderRequest) (*gateway.CreateOrderResponse, error) {
	if c.cfg.Key == "" || c.cfg.Salt == "" {
		return nil, fmt.Errorf("payu credentials: %w", domainErrors.ErrMissingSecret)
	}

	txnid := c.newTxnID()
	amount := formatAmount(req.AmountMinor)
	productinfo := "registration:" + req.RegistrationID

	hash := requestHash(c.cfg.Key, c.cfg.Salt, txnid, amount, productinfo, req.PayerName, req.PayerEmail)

	return &gateway.CreateOrderResponse{
		ExternalRef: txnid,
		CheckoutPayload: map[string]any{
			"action":      c.cfg.CheckoutURL,
			"key":         c.cfg.Key,
			"txnid":       txnid,
			"amount":      amount,
			"productinfo": productinfo,
			"firstname":   req.PayerName,
			"email":       req.PayerEmail,
			"phone":       req.PayerPhone,
			"surl":        req.RedirectURL,
			"furl":        req.RedirectURL,
			"hash":        hash,
		},
	}, nil
}

// Refund issues a cancel_refund_transaction command against the merchant
// service endpoint.
func (c *Client) Refund(ctx context.Context, req gateway.RefundRequest) (*gateway.RefundResponse, error) {
	if req.PaymentRef == "" {
		return nil, fmt.Errorf("refund requires mihpayid: %w", domainErrors.ErrInvalidInput)
	}
	if c.cfg.Key == "" || c.cfg.Salt == "" {
		return nil, fmt.Errorf("payu credentials: %w", domainErrors.ErrMissingSecret)
	}

	command := "cancel_refund_transaction"
	form := url.Values{}
	form.Set("key", c.cfg.Key)
	form.Set("command", command)
	form.Set("var1", req.PaymentRef)
	form.Set("var2", req.ExternalRef)
	form.Set("var3", formatAmount(req.AmountMinor))
	form.Set("hash", commandHash(c.cfg.Key, c.cfg.Salt, command, req.PaymentRef))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ServiceURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build refund request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("payu refund: %w", domainErrors.ErrGatewayUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read refund response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("payu returned %d: %w", resp.StatusCode, domainErrors.ErrGatewayRejected)
	}

	return &gateway.RefundResponse{
		RefundRef: "payu_refund_" + req.PaymentRef,
		Status:    strings.TrimSpace(string(body)),
	}, nil
}

// ParseCallback normalizes the redirect form fields.
func (c *Client) ParseCallback(values url.Values) (*gateway.VerificationEvent, error) {
	return c.parseFields(values, gateway.ChannelCallback)
}

// ParseWebhook normalizes the server-to-server push. PayU posts the same
// form fields it sends on the redirect.
func (c *Client) ParseWebhook(header http.Header, body []byte) (*gateway.VerificationEvent, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("decode webhook form: %w", domainErrors.ErrInvalidInput)
	}
	ev, err := c.parseFields(values, gateway.ChannelWebhook)
	if err != nil {
		return nil, err
	}
	ev.RawBody = body
	return ev, nil
}

func (c *Client) parseFields(values url.Values, channel gateway.Channel) (*gateway.VerificationEvent, error) {
	txnid := values.Get("txnid")
	if txnid == "" {
		return nil, fmt.Errorf("missing txnid: %w", domainErrors.ErrInvalidInput)
	}

	outcome := gateway.OutcomeFailed
	if values.Get("status") == "success" {
		outcome = gateway.OutcomeSuccess
	}

	return &gateway.VerificationEvent{
		Gateway:            c.Name(),
		SourceChannel:      channel,
		ExternalRef:        txnid,
		PaymentRef:         values.Get("mihpayid"),
		ClaimedOutcome:     outcome,
		ClaimedAmountMinor: parseAmount(values.Get("amount")),
		RawSignature:       values.Get("hash"),
		Fields: map[string]string{
			"txnid":       txnid,
			"status":      values.Get("status"),
			"amount":      values.Get("amount"),
			"productinfo": values.Get("productinfo"),
			"firstname":   values.Get("firstname"),
			"email":       values.Get("email"),
		},
	}, nil
}

// Verify recomputes the response hash from the event fields and compares
// in constant time. Both channels carry the same salted SHA-512 hash.
func (c *Client) Verify(ev *gateway.VerificationEvent) bool {
	if ev == nil || ev.RawSignature == "" {
		return false
	}
	if c.cfg.Key == "" || c.cfg.Salt == "" {
		return false
	}
	f := ev.Fields
	if f == nil || f["txnid"] == "" || f["status"] == "" {
		return false
	}

	expected := responseHash(c.cfg.Key, c.cfg.Salt,
		f["status"], f["email"], f["firstname"], f["productinfo"], f["amount"], f["txnid"])
	return digestEqual(expected, ev.RawSignature)
}

// formatAmount renders minor units the way PayU hashes them: two decimal
// places of the major unit.
func formatAmount(minor int64) string {
	return fmt.Sprintf("%d.%02d", minor/100, minor%100)
}

func parseAmount(s string) int64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(f*100 + 0.5)
}
