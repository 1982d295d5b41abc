package controller

import (
	"net/http"

	appReceipt "github.com/confreg/regpay/internal/application/receipt"
)

// ReceiptController serves rendered payment receipts.
type ReceiptController struct {
	render *appReceipt.RenderUseCase
}

// NewReceiptController creates a new ReceiptController.
func NewReceiptController(render *appReceipt.RenderUseCase) *ReceiptController {
	return &ReceiptController{render: render}
}

// Get handles GET /api/v1/receipt?registration_id=&format=html|pdf
func (h *ReceiptController) Get(w http.ResponseWriter, r *http.Request) {
	registrationID := r.URL.Query().Get("registration_id")
	if registrationID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "registration_id is required", Code: "validation_error"})
		return
	}
	format := appReceipt.Format(r.URL.Query().Get("format"))

	rec, err := h.render.Execute(r.Context(), registrationID, format)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", rec.ContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(rec.Body)
}
