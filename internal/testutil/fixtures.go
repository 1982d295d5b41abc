package testutil

import (
	"time"

	"github.com/confreg/regpay/internal/domain/order"
	"github.com/confreg/regpay/internal/domain/registration"
	"github.com/google/uuid"
)

func NewTestRegistration(id string) *registration.Registration {
	return &registration.Registration{
		ID:            id,
		Name:          "Asha Rao",
		Email:         "asha@example.com",
		EventName:     "GopherConf 2026",
		PaymentStatus: registration.PaymentUnpaid,
		CreatedAt:     time.Now(),
	}
}

func NewTestOrder(registrationID string, gw order.Gateway, amountMinor int64) *order.Order {
	now := time.Now()
	id := uuid.New()
	return &order.Order{
		ID:             id,
		RegistrationID: registrationID,
		Gateway:        gw,
		ExternalRef:    "ext_" + id.String(),
		AmountMinor:    amountMinor,
		SurchargeMinor: 0,
		Currency:       "INR",
		Status:         order.StatusPending,
		Payer: order.Payer{
			Name:  "Asha Rao",
			Email: "asha@example.com",
			Phone: "+919999999999",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func NewSuccessOrder(registrationID string, gw order.Gateway, amountMinor int64) *order.Order {
	o := NewTestOrder(registrationID, gw, amountMinor)
	o.Status = order.StatusSuccess
	o.PaymentRef = "pay_" + o.ID.String()
	verifiedAt := time.Now()
	o.VerifiedAt = &verifiedAt
	return o
}
