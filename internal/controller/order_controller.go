package controller

import (
	"net/http"

	appOrder "github.com/confreg/regpay/internal/application/order"
	"github.com/confreg/regpay/internal/domain/order"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// OrderController handles payment order HTTP requests.
type OrderController struct {
	createOrder *appOrder.CreateOrderUseCase
	orderRepo   order.Repository
}

// NewOrderController creates a new OrderController.
func NewOrderController(createOrder *appOrder.CreateOrderUseCase, orderRepo order.Repository) *OrderController {
	return &OrderController{
		createOrder: createOrder,
		orderRepo:   orderRepo,
	}
}

// Create handles POST /api/v1/orders
func (h *OrderController) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.createOrder.Execute(r.Context(), appOrder.CreateOrderRequest{
		RegistrationID: req.RegistrationID,
		AmountMinor:    req.AmountMinor,
		Currency:       req.Currency,
		Gateway:        req.Gateway,
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		RedirectURL:    req.RedirectURL,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateOrderResponse{
		Order:    FromOrder(resp.Order),
		Checkout: resp.CheckoutPayload,
	})
}

// Get handles GET /api/v1/orders/{id}
func (h *OrderController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid order id", Code: "invalid_id"})
		return
	}

	o, err := h.orderRepo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromOrder(o))
}
