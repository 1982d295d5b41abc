package testutil

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	domainErrors "github.com/confreg/regpay/internal/domain/errors"
	"github.com/confreg/regpay/internal/domain/order"
	"github.com/confreg/regpay/internal/domain/registration"
	"github.com/confreg/regpay/internal/gateway"
	"github.com/google/uuid"
)

// --- Order Repository Mock ---

// MockOrderRepository is an in-memory implementation of order.Repository.
// The conditional update methods reproduce the store's compare-and-set
// semantics under the same mutex, so concurrency tests against the mock
// exercise the same race outcomes as the real repository.
type MockOrderRepository struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*order.Order

	CreateFunc               func(ctx context.Context, o *order.Order) error
	GetByIDFunc              func(ctx context.Context, id uuid.UUID) (*order.Order, error)
	GetByReferenceFunc       func(ctx context.Context, ref string) (*order.Order, error)
	LatestByRegistrationFunc func(ctx context.Context, registrationID string) (*order.Order, error)
	ListByRegistrationFunc   func(ctx context.Context, registrationID string) ([]*order.Order, error)
	ListPendingOlderThanFunc func(ctx context.Context, cutoff time.Time, limit int) ([]*order.Order, error)
	ApplyVerifiedFunc        func(ctx context.Context, id uuid.UUID, target order.Status, paymentRef string, verifiedAt time.Time) (bool, error)
	ApplyRefundFunc          func(ctx context.Context, id uuid.UUID, refundRef string) (bool, error)
}

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[uuid.UUID]*order.Order),
	}
}

// AddOrder pre-populates the mock with an order.
func (m *MockOrderRepository) AddOrder(o *order.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[o.ID] = &cp
}

// GetOrderByID returns the stored order (test helper, no context needed).
func (m *MockOrderRepository) GetOrderByID(id uuid.UUID) *order.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[id]; ok {
		cp := *o
		return &cp
	}
	return nil
}

func (m *MockOrderRepository) Create(ctx context.Context, o *order.Order) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, o)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, domainErrors.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MockOrderRepository) GetByReference(ctx context.Context, ref string) (*order.Order, error) {
	if m.GetByReferenceFunc != nil {
		return m.GetByReferenceFunc(ctx, ref)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ExternalRef == ref || (o.PaymentRef != "" && o.PaymentRef == ref) {
			cp := *o
			return &cp, nil
		}
	}
	return nil, domainErrors.ErrOrderNotFound
}

func (m *MockOrderRepository) LatestByRegistration(ctx context.Context, registrationID string) (*order.Order, error) {
	if m.LatestByRegistrationFunc != nil {
		return m.LatestByRegistrationFunc(ctx, registrationID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *order.Order
	for _, o := range m.orders {
		if o.RegistrationID != registrationID {
			continue
		}
		if latest == nil || o.CreatedAt.After(latest.CreatedAt) {
			latest = o
		}
	}
	if latest == nil {
		return nil, domainErrors.ErrOrderNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *MockOrderRepository) ListByRegistration(ctx context.Context, registrationID string) ([]*order.Order, error) {
	if m.ListByRegistrationFunc != nil {
		return m.ListByRegistrationFunc(ctx, registrationID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*order.Order
	for _, o := range m.orders {
		if o.RegistrationID == registrationID {
			cp := *o
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *MockOrderRepository) ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*order.Order, error) {
	if m.ListPendingOlderThanFunc != nil {
		return m.ListPendingOlderThanFunc(ctx, cutoff, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*order.Order
	for _, o := range m.orders {
		if o.Status == order.StatusPending && o.CreatedAt.Before(cutoff) {
			cp := *o
			result = append(result, &cp)
		}
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (m *MockOrderRepository) ApplyVerified(ctx context.Context, id uuid.UUID, target order.Status, paymentRef string, verifiedAt time.Time) (bool, error) {
	if m.ApplyVerifiedFunc != nil {
		return m.ApplyVerifiedFunc(ctx, id, target, paymentRef, verifiedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != order.StatusPending {
		return false, nil
	}
	o.Status = target
	if paymentRef != "" {
		o.PaymentRef = paymentRef
	}
	v := verifiedAt
	o.VerifiedAt = &v
	o.UpdatedAt = time.Now()
	return true, nil
}

func (m *MockOrderRepository) ApplyRefund(ctx context.Context, id uuid.UUID, refundRef string) (bool, error) {
	if m.ApplyRefundFunc != nil {
		return m.ApplyRefundFunc(ctx, id, refundRef)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || o.Status != order.StatusSuccess {
		return false, nil
	}
	o.Status = order.StatusRefunded
	o.RefundRef = refundRef
	o.UpdatedAt = time.Now()
	return true, nil
}

// --- Registration Repository Mock ---

// MockRegistrationRepository is an in-memory implementation of
// registration.Repository. MarkPaid is monotonic like the real one.
type MockRegistrationRepository struct {
	mu            sync.Mutex
	registrations map[string]*registration.Registration

	GetByIDFunc   func(ctx context.Context, id string) (*registration.Registration, error)
	MarkPaidFunc  func(ctx context.Context, id string) error
	MarkPaidCalls int
}

func NewMockRegistrationRepository() *MockRegistrationRepository {
	return &MockRegistrationRepository{
		registrations: make(map[string]*registration.Registration),
	}
}

// AddRegistration pre-populates the mock with a registration.
func (m *MockRegistrationRepository) AddRegistration(reg *registration.Registration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *reg
	m.registrations[reg.ID] = &cp
}

// GetRegistrationByID returns the stored registration (test helper).
func (m *MockRegistrationRepository) GetRegistrationByID(id string) *registration.Registration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if reg, ok := m.registrations[id]; ok {
		cp := *reg
		return &cp
	}
	return nil
}

func (m *MockRegistrationRepository) GetByID(ctx context.Context, id string) (*registration.Registration, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.registrations[id]
	if !ok {
		return nil, domainErrors.ErrRegistrationNotFound
	}
	cp := *reg
	return &cp, nil
}

func (m *MockRegistrationRepository) MarkPaid(ctx context.Context, id string) error {
	if m.MarkPaidFunc != nil {
		return m.MarkPaidFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.registrations[id]
	if !ok {
		return domainErrors.ErrRegistrationNotFound
	}
	m.MarkPaidCalls++
	reg.PaymentStatus = registration.PaymentPaid
	return nil
}

// --- Gateway Fake ---

// FakeGateway is a configurable gateway.Gateway implementation. Defaults
// create orders with a predictable external ref and verify every event;
// override the Func fields to simulate failures.
type FakeGateway struct {
	GatewayName string

	CreateOrderFunc   func(ctx context.Context, req gateway.CreateOrderRequest) (*gateway.CreateOrderResponse, error)
	RefundFunc        func(ctx context.Context, req gateway.RefundRequest) (*gateway.RefundResponse, error)
	ParseCallbackFunc func(values url.Values) (*gateway.VerificationEvent, error)
	ParseWebhookFunc  func(header http.Header, body []byte) (*gateway.VerificationEvent, error)
	VerifyFunc        func(ev *gateway.VerificationEvent) bool
}

func NewFakeGateway(name string) *FakeGateway {
	return &FakeGateway{GatewayName: name}
}

func (g *FakeGateway) Name() string {
	return g.GatewayName
}

func (g *FakeGateway) CreateOrder(ctx context.Context, req gateway.CreateOrderRequest) (*gateway.CreateOrderResponse, error) {
	if g.CreateOrderFunc != nil {
		return g.CreateOrderFunc(ctx, req)
	}
	return &gateway.CreateOrderResponse{
		ExternalRef:     "ext_" + req.OrderID,
		CheckoutPayload: map[string]any{"order_id": "ext_" + req.OrderID},
	}, nil
}

func (g *FakeGateway) Refund(ctx context.Context, req gateway.RefundRequest) (*gateway.RefundResponse, error) {
	if g.RefundFunc != nil {
		return g.RefundFunc(ctx, req)
	}
	return &gateway.RefundResponse{RefundRef: "rfnd_" + req.PaymentRef, Status: "processed"}, nil
}

func (g *FakeGateway) ParseCallback(values url.Values) (*gateway.VerificationEvent, error) {
	if g.ParseCallbackFunc != nil {
		return g.ParseCallbackFunc(values)
	}
	return &gateway.VerificationEvent{
		Gateway:        g.GatewayName,
		SourceChannel:  gateway.ChannelCallback,
		ExternalRef:    values.Get("external_ref"),
		PaymentRef:     values.Get("payment_ref"),
		ClaimedOutcome: gateway.Outcome(values.Get("outcome")),
	}, nil
}

func (g *FakeGateway) ParseWebhook(header http.Header, body []byte) (*gateway.VerificationEvent, error) {
	if g.ParseWebhookFunc != nil {
		return g.ParseWebhookFunc(header, body)
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, err
	}
	ev, _ := g.ParseCallback(values)
	ev.SourceChannel = gateway.ChannelWebhook
	return ev, nil
}

func (g *FakeGateway) Verify(ev *gateway.VerificationEvent) bool {
	if g.VerifyFunc != nil {
		return g.VerifyFunc(ev)
	}
	return true
}
