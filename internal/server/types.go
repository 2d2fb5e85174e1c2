package server

import (
	"github.com/rezonia/ksef-cost-sync/internal/model"
)

// verificationRequest bounds a VERIFICATION sync run
type verificationRequest struct {
	DateFrom string `json:"dateFrom" binding:"required"`
	DateTo   string `json:"dateTo" binding:"required"`
}

// bookingRequest is a partial update to an invoice's booking fields.
// Percentages arrive as strings and go through the shared
// parse-and-validate path.
type bookingRequest struct {
	BookingPercentage      *string              `json:"bookingPercentage"`
	VATDeductionPercentage *string              `json:"vatDeductionPercentage"`
	CategoryID             *string              `json:"categoryId"`
	ClearCategory          bool                 `json:"clearCategory"`
	Notes                  *string              `json:"notes"`
	Status                 *model.InvoiceStatus `json:"status"`
}

// itemRequest is a partial update to one line's booking fields
type itemRequest struct {
	Selected               *bool   `json:"selected"`
	BookingPercentage      *string `json:"bookingPercentage"`
	VATDeductionPercentage *string `json:"vatDeductionPercentage"`
	CategoryID             *string `json:"categoryId"`
	ClearCategory          bool    `json:"clearCategory"`
}

// paymentRequest updates the settlement fields. An omitted paidAmount
// leaves the stored amount unchanged.
type paymentRequest struct {
	PaymentStatus string  `json:"paymentStatus" binding:"required"`
	PaidAmount    *string `json:"paidAmount"`
}

// correctionRequest asks for a correction document to be encoded and
// submitted for an imported invoice
type correctionRequest struct {
	Reason     string `json:"reason" binding:"required"`
	EffectType string `json:"effectType"`
	BuyerTaxID string `json:"buyerTaxId"`
	BuyerName  string `json:"buyerName"`
}

// invoiceResponse pairs an invoice with its items
type invoiceResponse struct {
	Invoice *model.CostInvoice      `json:"invoice"`
	Items   []model.CostInvoiceItem `json:"items"`
}

// validationResponse reports a dry-run booking validation
type validationResponse struct {
	Valid      bool     `json:"valid"`
	Violations []string `json:"violations,omitempty"`
}

// correctionResponse returns the exchange's submission reference
type correctionResponse struct {
	ReferenceNumber string `json:"referenceNumber"`
	Status          string `json:"status"`
}
