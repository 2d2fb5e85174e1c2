package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rezonia/ksef-cost-sync/internal/model"
)

// InvoiceFilter narrows invoice listings
type InvoiceFilter struct {
	Status        model.InvoiceStatus
	PaymentStatus model.PaymentStatus
	IssuedFrom    *time.Time
	IssuedTo      *time.Time
	Limit         int
	Offset        int
}

// InvoiceStore persists cost invoices and their items
type InvoiceStore interface {
	// Create inserts an invoice and all of its items in one transaction,
	// so a failure can never leave an invoice without its lines.
	Create(ctx context.Context, inv *model.CostInvoice, items []model.CostInvoiceItem) error

	GetByID(ctx context.Context, id string) (*model.CostInvoice, error)
	GetItems(ctx context.Context, invoiceID string) ([]model.CostInvoiceItem, error)
	List(ctx context.Context, filter InvoiceFilter) ([]model.CostInvoice, error)

	// ExistingKSeFIDs returns which of the given exchange ids are already
	// imported. One query, used for run deduplication.
	ExistingKSeFIDs(ctx context.Context, ksefIDs []string) (map[string]bool, error)

	// UpdateBooking writes booking-relevant fields: status, percentages,
	// category, notes and the booked-by/booked-at stamps, atomically.
	UpdateBooking(ctx context.Context, inv *model.CostInvoice) error

	UpdateItem(ctx context.Context, item *model.CostInvoiceItem) error
	UpdatePayment(ctx context.Context, id string, status model.PaymentStatus, paidAmount decimal.Decimal) error
}

// SyncStore persists synchronization runs
type SyncStore interface {
	Create(ctx context.Context, run *model.CostInvoiceSync) error

	// Finish finalizes a run exactly once, writing status, counts,
	// error list and completion time.
	Finish(ctx context.Context, run *model.CostInvoiceSync) error

	GetByID(ctx context.Context, id string) (*model.CostInvoiceSync, error)

	// LastCompleted returns the most recent COMPLETED run of the type,
	// or nil when none exists.
	LastCompleted(ctx context.Context, t model.SyncType) (*model.CostInvoiceSync, error)

	// ActiveExists reports whether a run of the type is still IN_PROGRESS
	// and started at or after since. Older IN_PROGRESS rows are crashed
	// runs and no longer count as active.
	ActiveExists(ctx context.Context, t model.SyncType, since time.Time) (bool, error)
}

// CategoryStore reads the booking taxonomy. Categories are reference data
// maintained elsewhere.
type CategoryStore interface {
	GetByID(ctx context.Context, id string) (*model.CostCategory, error)
	ListActive(ctx context.Context) ([]model.CostCategory, error)
}
