package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rezonia/ksef-cost-sync/internal/logger"
	"github.com/rezonia/ksef-cost-sync/internal/model"
	"github.com/rezonia/ksef-cost-sync/internal/money"
	"github.com/rezonia/ksef-cost-sync/internal/store"
)

// SettingsUpdate is a partial update to an invoice's booking fields.
// String percentages go through the shared parse-and-validate path; nil
// pointers mean "leave unchanged".
type SettingsUpdate struct {
	BookingPercent      *string
	VATDeductionPercent *string
	CategoryID          *string
	ClearCategory       bool
	Notes               *string
	Status              *model.InvoiceStatus
}

// ItemUpdate is a partial update to one line's booking fields
type ItemUpdate struct {
	Selected            *bool
	BookingPercent      *string
	VATDeductionPercent *string
	CategoryID          *string
	ClearCategory       bool
}

// Engine validates and mutates booking state on invoices and their items
type Engine struct {
	invoices   store.InvoiceStore
	categories store.CategoryStore
	now        func() time.Time
	log        zerolog.Logger
}

// NewEngine wires the booking engine. The clock is overridable for tests
// via WithClock.
func NewEngine(invoices store.InvoiceStore, categories store.CategoryStore, opts ...EngineOption) *Engine {
	e := &Engine{
		invoices:   invoices,
		categories: categories,
		now:        time.Now,
		log:        logger.WithComponent("booking"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EngineOption configures the engine
type EngineOption func(*Engine)

// WithClock replaces the engine's clock
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// UpdateSettings applies a partial booking update. All parsing and range
// checks happen before any persistence write. A transition to BOOKED
// additionally requires an acting user and a passing full validation; the
// booked-by/booked-at stamps land in the same write as the other fields.
func (e *Engine) UpdateSettings(ctx context.Context, invoiceID string, update SettingsUpdate, actor string) (*model.CostInvoice, error) {
	inv, err := e.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !inv.Editable() {
		return nil, model.NewValidationError("status", inv.Status, "booked invoices are immutable")
	}

	if err := applySettings(inv, update); err != nil {
		return nil, err
	}

	if update.Status != nil {
		if err := e.applyTransition(ctx, inv, *update.Status, actor); err != nil {
			return nil, err
		}
	}

	if err := e.invoices.UpdateBooking(ctx, inv); err != nil {
		return nil, err
	}

	e.log.Info().
		Str("invoice_id", inv.ID).
		Str("status", string(inv.Status)).
		Str("actor", actor).
		Msg("booking settings updated")
	return inv, nil
}

func applySettings(inv *model.CostInvoice, update SettingsUpdate) error {
	if update.BookingPercent != nil {
		pct, err := money.ParsePercent(*update.BookingPercent)
		if err != nil {
			return model.NewValidationError("bookingPercentage", *update.BookingPercent, err.Error())
		}
		inv.BookingPercent = pct
	}
	if update.VATDeductionPercent != nil {
		pct, err := money.ParsePercent(*update.VATDeductionPercent)
		if err != nil {
			return model.NewValidationError("vatDeductionPercentage", *update.VATDeductionPercent, err.Error())
		}
		inv.VATDeductionPercent = pct
	}
	if update.ClearCategory {
		inv.CategoryID = nil
	} else if update.CategoryID != nil {
		inv.CategoryID = update.CategoryID
	}
	if update.Notes != nil {
		inv.Notes = *update.Notes
	}
	return nil
}

func (e *Engine) applyTransition(ctx context.Context, inv *model.CostInvoice, target model.InvoiceStatus, actor string) error {
	switch target {
	case model.StatusExcluded:
		if inv.Status != model.StatusNew {
			return model.NewValidationError("status", inv.Status, "only NEW invoices can be excluded")
		}
		inv.Status = model.StatusExcluded
		return nil

	case model.StatusBooked:
		if actor == "" {
			return model.NewValidationError("actor", nil, "booking requires an acting user")
		}
		if inv.Status != model.StatusNew {
			return model.NewValidationError("status", inv.Status, "only NEW invoices can be booked")
		}
		if err := e.validate(ctx, inv); err != nil {
			return err
		}
		now := e.now()
		inv.Status = model.StatusBooked
		inv.BookedBy = &actor
		inv.BookedAt = &now
		return nil

	case model.StatusNew:
		return model.NewValidationError("status", target, "invoices cannot transition back to NEW")

	default:
		return model.NewValidationError("status", target, "unknown status")
	}
}

// Validate runs the full booking validation as a dry run, returning every
// violation at once.
func (e *Engine) Validate(ctx context.Context, invoiceID string) error {
	inv, err := e.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return err
	}
	return e.validate(ctx, inv)
}

func (e *Engine) validate(ctx context.Context, inv *model.CostInvoice) error {
	violations := &model.ValidationErrors{}

	if err := money.CheckPercent(inv.BookingPercent); err != nil {
		violations.Add("invoice booking percentage: %v", err)
	}
	if err := money.CheckPercent(inv.VATDeductionPercent); err != nil {
		violations.Add("invoice VAT-deduction percentage: %v", err)
	}

	items, err := e.invoices.GetItems(ctx, inv.ID)
	if err != nil {
		return err
	}

	if len(items) == 0 {
		if inv.CategoryID == nil {
			violations.Add("invoice without items must carry a category")
		} else if err := e.checkCategory(ctx, *inv.CategoryID); err != nil {
			violations.Add("invoice category: %v", err)
		}
	} else {
		selected := 0
		for _, item := range items {
			if !item.Selected {
				continue
			}
			selected++
			if err := money.CheckPercent(item.BookingPercent); err != nil {
				violations.Add("item %d booking percentage: %v", item.LineNo, err)
			}
			if err := money.CheckPercent(item.VATDeductionPercent); err != nil {
				violations.Add("item %d VAT-deduction percentage: %v", item.LineNo, err)
			}

			categoryID := inv.CategoryID
			if item.CategoryID != nil {
				categoryID = item.CategoryID
			}
			if categoryID == nil {
				violations.Add("item %d has no category and the invoice carries no default", item.LineNo)
			} else if err := e.checkCategory(ctx, *categoryID); err != nil {
				violations.Add("item %d category: %v", item.LineNo, err)
			}
		}
		if selected == 0 {
			violations.Add("at least one item must be selected for booking")
		}
	}

	if violations.Empty() {
		return nil
	}
	return violations
}

func (e *Engine) checkCategory(ctx context.Context, id string) error {
	cat, err := e.categories.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("not resolvable: %w", err)
	}
	if !cat.Active {
		return fmt.Errorf("category %s is inactive", cat.Name)
	}
	return nil
}

// UpdateItem applies a partial update to one line. Rejected outright when
// the owning invoice is no longer editable, regardless of the item's own
// flags.
func (e *Engine) UpdateItem(ctx context.Context, invoiceID, itemID string, update ItemUpdate) (*model.CostInvoiceItem, error) {
	inv, err := e.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if !inv.Editable() {
		return nil, model.NewValidationError("status", inv.Status, "items of a booked invoice are immutable")
	}

	items, err := e.invoices.GetItems(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	var item *model.CostInvoiceItem
	for i := range items {
		if items[i].ID == itemID {
			item = &items[i]
			break
		}
	}
	if item == nil {
		return nil, model.NewNotFoundError("invoice item", itemID)
	}

	if update.Selected != nil {
		item.Selected = *update.Selected
	}
	if update.BookingPercent != nil {
		pct, err := money.ParsePercent(*update.BookingPercent)
		if err != nil {
			return nil, model.NewValidationError("bookingPercentage", *update.BookingPercent, err.Error())
		}
		item.BookingPercent = pct
	}
	if update.VATDeductionPercent != nil {
		pct, err := money.ParsePercent(*update.VATDeductionPercent)
		if err != nil {
			return nil, model.NewValidationError("vatDeductionPercentage", *update.VATDeductionPercent, err.Error())
		}
		item.VATDeductionPercent = pct
	}
	if update.ClearCategory {
		item.CategoryID = nil
	} else if update.CategoryID != nil {
		item.CategoryID = update.CategoryID
	}

	if err := e.invoices.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// UpdatePayment records settlement progress. The payment path stays open
// after booking; it is the only post-booking mutation. A nil paidAmount
// leaves the stored amount unchanged, so a status-only update never
// erases settlement progress.
func (e *Engine) UpdatePayment(ctx context.Context, invoiceID string, status model.PaymentStatus, paidAmount *decimal.Decimal) (*model.CostInvoice, error) {
	switch status {
	case model.PaymentUnpaid, model.PaymentPartiallyPaid, model.PaymentPaid:
	default:
		return nil, model.NewValidationError("paymentStatus", status, "unknown payment status")
	}
	if paidAmount != nil && paidAmount.LessThan(decimal.Zero) {
		return nil, model.NewValidationError("paidAmount", *paidAmount, "must not be negative")
	}

	inv, err := e.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	amount := inv.PaidAmount
	if paidAmount != nil {
		amount = *paidAmount
	}
	if err := e.invoices.UpdatePayment(ctx, invoiceID, status, amount); err != nil {
		return nil, err
	}
	inv.PaymentStatus = status
	inv.PaidAmount = amount
	return inv, nil
}
