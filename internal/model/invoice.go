package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is the booking lifecycle state of a cost invoice
type InvoiceStatus string

const (
	StatusNew      InvoiceStatus = "NEW"
	StatusExcluded InvoiceStatus = "EXCLUDED"
	StatusBooked   InvoiceStatus = "BOOKED"
)

// PaymentStatus tracks settlement independently of booking
type PaymentStatus string

const (
	PaymentUnpaid        PaymentStatus = "UNPAID"
	PaymentPartiallyPaid PaymentStatus = "PARTIALLY_PAID"
	PaymentPaid          PaymentStatus = "PAID"
)

// CostInvoice is one inbound purchase invoice imported from KSeF
type CostInvoice struct {
	ID         string    `json:"id"`
	KSeFID     string    `json:"ksefId"`     // exchange document identifier, unique
	AcquiredAt time.Time `json:"acquiredAt"` // exchange acquisition timestamp
	SyncID     string    `json:"syncId"`     // provenance, non-owning

	SupplierTaxID       string `json:"supplierTaxId"`
	SupplierName        string `json:"supplierName"`
	SupplierAddress     string `json:"supplierAddress"`
	SupplierBankAccount string `json:"supplierBankAccount,omitempty"`

	Number    string     `json:"number"` // supplier's internal invoice number
	IssueDate time.Time  `json:"issueDate"`
	SaleDate  *time.Time `json:"saleDate,omitempty"`
	DueDate   *time.Time `json:"dueDate,omitempty"`

	Currency    string          `json:"currency"`
	NetAmount   decimal.Decimal `json:"netAmount"`
	VATAmount   decimal.Decimal `json:"vatAmount"`
	GrossAmount decimal.Decimal `json:"grossAmount"`

	RawXML []byte `json:"-"` // original document, retained for audit/replay

	Status        InvoiceStatus   `json:"status"`
	PaymentStatus PaymentStatus   `json:"paymentStatus"`
	PaidAmount    decimal.Decimal `json:"paidAmount"`

	BookingPercent      decimal.Decimal `json:"bookingPercent"`
	VATDeductionPercent decimal.Decimal `json:"vatDeductionPercent"`
	CategoryID          *string         `json:"categoryId,omitempty"`
	Notes               string          `json:"notes,omitempty"`

	BookedBy *string    `json:"bookedBy,omitempty"`
	BookedAt *time.Time `json:"bookedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Editable reports whether booking-relevant fields may still change.
// Once booked, only the payment fields remain mutable.
func (inv *CostInvoice) Editable() bool {
	return inv.Status != StatusBooked
}

// CostInvoiceItem is one line of a cost invoice
type CostInvoiceItem struct {
	ID        string `json:"id"`
	InvoiceID string `json:"invoiceId"`
	LineNo    int    `json:"lineNo"`

	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit,omitempty"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	NetValue    decimal.Decimal `json:"netValue"`
	VATRate     VATRate         `json:"vatRate"`
	VATValue    decimal.Decimal `json:"vatValue"`
	GrossValue  decimal.Decimal `json:"grossValue"` // always net + vat

	Selected            bool            `json:"selected"` // selected for booking
	BookingPercent      decimal.Decimal `json:"bookingPercent"`
	VATDeductionPercent decimal.Decimal `json:"vatDeductionPercent"`
	CategoryID          *string         `json:"categoryId,omitempty"`
}

// CostCategory is a booking taxonomy node. Read-mostly reference data;
// not created by this service.
type CostCategory struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	ParentID            *string         `json:"parentId,omitempty"`
	Color               string          `json:"color,omitempty"`
	DefaultVATDeduction decimal.Decimal `json:"defaultVatDeduction"`
	Active              bool            `json:"active"`
	SortOrder           int             `json:"sortOrder"`
}
