package controller

import (
	"net/http"

	appRefund "github.com/confreg/regpay/internal/application/refund"
	"github.com/confreg/regpay/internal/middleware"
	"github.com/google/uuid"
)

// RefundController handles refund HTTP requests.
type RefundController struct {
	refund *appRefund.RefundUseCase
}

// NewRefundController creates a new RefundController.
func NewRefundController(refund *appRefund.RefundUseCase) *RefundController {
	return &RefundController{refund: refund}
}

// Refund handles POST /api/v1/refund
func (h *RefundController) Refund(w http.ResponseWriter, r *http.Request) {
	var req RefundOrderRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid order_id", Code: "invalid_id"})
		return
	}

	resp, err := h.refund.Execute(r.Context(), appRefund.RefundRequest{
		OrderID:     orderID,
		AmountMinor: req.AmountMinor,
		Reason:      req.Reason,
		RequestedBy: middleware.GetOperatorID(r.Context()),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromOrder(resp.Order))
}
