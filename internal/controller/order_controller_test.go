package controller

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/confreg/regpay/internal/domain/order"
	"github.com/confreg/regpay/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const createOrderBody = `{
	"registration_id": "reg-1",
	"amount_minor": 50000,
	"gateway": "razorpay",
	"name": "Asha Rao",
	"email": "asha@example.com",
	"phone": "+919999999999"
}`

func TestCreateOrderEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.regs.AddRegistration(testutil.NewTestRegistration("reg-1"))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(createOrderBody))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp CreateOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "pending", resp.Order.Status)
	assert.Equal(t, int64(50000), resp.Order.AmountMinor)
	assert.Equal(t, int64(200), resp.Order.SurchargeMinor)
	assert.Equal(t, int64(50200), resp.Order.TotalMinor)
	assert.NotEmpty(t, resp.Order.ExternalRef)
	assert.NotNil(t, resp.Checkout)
}

func TestCreateOrderEndpoint_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{
			"invalid json",
			`{"registration_id":`,
			http.StatusBadRequest, "validation_error",
		},
		{
			"missing email",
			`{"registration_id":"reg-1","amount_minor":50000,"gateway":"razorpay","name":"Asha Rao"}`,
			http.StatusBadRequest, "validation_error",
		},
		{
			"unsupported gateway",
			`{"registration_id":"reg-1","amount_minor":50000,"gateway":"stripe","name":"Asha Rao","email":"asha@example.com"}`,
			http.StatusBadRequest, "validation_error",
		},
		{
			"zero amount",
			`{"registration_id":"reg-1","amount_minor":0,"gateway":"razorpay","name":"Asha Rao","email":"asha@example.com"}`,
			http.StatusBadRequest, "validation_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t)
			f.regs.AddRegistration(testutil.NewTestRegistration("reg-1"))

			req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			f.router.ServeHTTP(rec, req)

			require.Equal(t, tt.wantCode, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantErr, resp.Code)
		})
	}
}

func TestCreateOrderEndpoint_AmountOutOfBounds(t *testing.T) {
	f := newAPIFixture(t)
	f.regs.AddRegistration(testutil.NewTestRegistration("reg-1"))

	body := `{"registration_id":"reg-1","amount_minor":2000000,"gateway":"razorpay","name":"Asha Rao","email":"asha@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "amount_out_of_bounds", resp.Code)
}

func TestCreateOrderEndpoint_DisabledGateway(t *testing.T) {
	f := newAPIFixture(t)
	f.regs.AddRegistration(testutil.NewTestRegistration("reg-1"))
	f.registry.SetEnabled("razorpay", false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(createOrderBody))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "gateway_disabled", resp.Code)
}

func TestGetOrderEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	o := testutil.NewSuccessOrder("reg-1", order.GatewayRazorpay, 50000)
	f.orders.AddOrder(o)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+o.ID.String(), nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, o.ID.String(), resp.ID)
	assert.Equal(t, "success", resp.Status)
	assert.NotNil(t, resp.VerifiedAt)
}

func TestGetOrderEndpoint_NotFound(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOrderEndpoint_BadID(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
