package receipt

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	domainErrors "github.com/confreg/regpay/internal/domain/errors"
	"github.com/confreg/regpay/internal/domain/order"
	"github.com/confreg/regpay/internal/domain/registration"
	"github.com/go-pdf/fpdf"
	"github.com/rs/zerolog"
)

// Format selects the receipt rendering.
type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

// Receipt is the rendered document plus its content type.
type Receipt struct {
	Body        []byte
	ContentType string
}

// data is everything a receipt template sees. All fields are derived from
// the stored order and registration, so rendering the same payment twice
// produces byte-identical output.
type data struct {
	ReceiptNo      string
	RegistrationID string
	Name           string
	Email          string
	EventName      string
	Gateway        string
	PaymentRef     string
	Amount         string
	Surcharge      string
	Total          string
	Currency       string
	PaidAt         string
	Refunded       bool
}

// RenderUseCase renders payment receipts for paid registrations.
type RenderUseCase struct {
	orders order.Repository
	regs   registration.Repository
	logger zerolog.Logger
	tmpl   *template.Template
}

// NewRenderUseCase creates a new RenderUseCase.
func NewRenderUseCase(orders order.Repository, regs registration.Repository, logger zerolog.Logger) *RenderUseCase {
	return &RenderUseCase{
		orders: orders,
		regs:   regs,
		logger: logger,
		tmpl:   template.Must(template.New("receipt").Parse(htmlTemplate)),
	}
}

// Execute renders the receipt for a registration's settled payment.
func (uc *RenderUseCase) Execute(ctx context.Context, registrationID string, format Format) (*Receipt, error) {
	reg, err := uc.regs.GetByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	o, err := uc.settledOrder(ctx, registrationID)
	if err != nil {
		return nil, err
	}

	d := uc.buildData(reg, o)

	switch format {
	case FormatPDF:
		body, err := uc.renderPDF(d)
		if err != nil {
			return nil, err
		}
		return &Receipt{Body: body, ContentType: "application/pdf"}, nil
	case FormatHTML, "":
		var buf bytes.Buffer
		if err := uc.tmpl.Execute(&buf, d); err != nil {
			return nil, fmt.Errorf("render receipt template: %w", err)
		}
		return &Receipt{Body: buf.Bytes(), ContentType: "text/html; charset=utf-8"}, nil
	default:
		return nil, domainErrors.NewValidationError("format", "must be html or pdf")
	}
}

// settledOrder finds the order the receipt documents. Only success and
// refunded orders carry a completed payment; a registration whose latest
// order is still pending or failed has nothing to show.
func (uc *RenderUseCase) settledOrder(ctx context.Context, registrationID string) (*order.Order, error) {
	orders, err := uc.orders.ListByRegistration(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		if o.Status == order.StatusSuccess || o.Status == order.StatusRefunded {
			return o, nil
		}
	}
	return nil, fmt.Errorf("no settled payment for registration %s: %w",
		registrationID, domainErrors.ErrOrderNotFound)
}

func (uc *RenderUseCase) buildData(reg *registration.Registration, o *order.Order) data {
	paidAt := o.UpdatedAt
	if o.VerifiedAt != nil {
		paidAt = *o.VerifiedAt
	}
	return data{
		ReceiptNo:      o.ID.String(),
		RegistrationID: reg.ID,
		Name:           reg.Name,
		Email:          reg.Email,
		EventName:      reg.EventName,
		Gateway:        string(o.Gateway),
		PaymentRef:     o.PaymentRef,
		Amount:         formatMinor(o.AmountMinor),
		Surcharge:      formatMinor(o.SurchargeMinor),
		Total:          formatMinor(o.TotalMinor()),
		Currency:       o.Currency,
		PaidAt:         paidAt.UTC().Format("02 Jan 2006 15:04 MST"),
		Refunded:       o.Status == order.StatusRefunded,
	}
}

func (uc *RenderUseCase) renderPDF(d data) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	// Fix the creation date so identical inputs produce identical bytes.
	pdf.SetCreationDate(time.Unix(0, 0))
	pdf.SetModificationDate(time.Unix(0, 0))
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 12, "Payment Receipt")
	pdf.Ln(16)

	if d.Refunded {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.SetTextColor(180, 0, 0)
		pdf.Cell(0, 8, "REFUNDED")
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(12)
	}

	row := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(50, 8, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 8, value, "", 1, "L", false, 0, "")
	}
	row("Receipt no.", d.ReceiptNo)
	row("Registration", d.RegistrationID)
	row("Name", d.Name)
	row("Email", d.Email)
	row("Event", d.EventName)
	row("Gateway", d.Gateway)
	row("Payment ref", d.PaymentRef)
	row("Paid at", d.PaidAt)
	pdf.Ln(6)
	row("Amount", d.Amount+" "+d.Currency)
	row("Surcharge", d.Surcharge+" "+d.Currency)
	row("Total", d.Total+" "+d.Currency)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// formatMinor renders a minor-unit amount as a decimal string.
func formatMinor(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Payment Receipt {{.ReceiptNo}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; max-width: 640px; margin: 2em auto; }
table { width: 100%; border-collapse: collapse; }
td { padding: 6px 4px; border-bottom: 1px solid #eee; }
td:first-child { font-weight: bold; width: 40%; }
.refunded { color: #b40000; font-weight: bold; }
</style>
</head>
<body>
<h1>Payment Receipt</h1>
{{if .Refunded}}<p class="refunded">REFUNDED</p>{{end}}
<table>
<tr><td>Receipt no.</td><td>{{.ReceiptNo}}</td></tr>
<tr><td>Registration</td><td>{{.RegistrationID}}</td></tr>
<tr><td>Name</td><td>{{.Name}}</td></tr>
<tr><td>Email</td><td>{{.Email}}</td></tr>
<tr><td>Event</td><td>{{.EventName}}</td></tr>
<tr><td>Gateway</td><td>{{.Gateway}}</td></tr>
<tr><td>Payment ref</td><td>{{.PaymentRef}}</td></tr>
<tr><td>Paid at</td><td>{{.PaidAt}}</td></tr>
<tr><td>Amount</td><td>{{.Amount}} {{.Currency}}</td></tr>
<tr><td>Surcharge</td><td>{{.Surcharge}} {{.Currency}}</td></tr>
<tr><td>Total</td><td>{{.Total}} {{.Currency}}</td></tr>
</table>
</body>
</html>
`
