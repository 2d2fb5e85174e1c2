package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rezonia/ksef-cost-sync/internal/model"
)

// MySQLInvoiceStore implements InvoiceStore over MySQL
type MySQLInvoiceStore struct {
	db *sql.DB
}

// NewInvoiceStore creates a MySQL-backed invoice store
func NewInvoiceStore(db *sql.DB) *MySQLInvoiceStore {
	return &MySQLInvoiceStore{db: db}
}

const invoiceColumns = `id, ksef_id, acquired_at, sync_id,
	supplier_tax_id, supplier_name, supplier_address, supplier_bank_account,
	number, issue_date, sale_date, due_date,
	currency, net_amount, vat_amount, gross_amount, raw_xml,
	status, payment_status, paid_amount,
	booking_percent, vat_deduction_percent, category_id, notes,
	booked_by, booked_at, created_at, updated_at`

func (s *MySQLInvoiceStore) Create(ctx context.Context, inv *model.CostInvoice, items []model.CostInvoiceItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cost_invoices (
			id, ksef_id, acquired_at, sync_id,
			supplier_tax_id, supplier_name, supplier_address, supplier_bank_account,
			number, issue_date, sale_date, due_date,
			currency, net_amount, vat_amount, gross_amount, raw_xml,
			status, payment_status, paid_amount,
			booking_percent, vat_deduction_percent, category_id, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		inv.ID, inv.KSeFID, inv.AcquiredAt, inv.SyncID,
		inv.SupplierTaxID, inv.SupplierName, inv.SupplierAddress, inv.SupplierBankAccount,
		inv.Number, inv.IssueDate, inv.SaleDate, inv.DueDate,
		inv.Currency, inv.NetAmount, inv.VATAmount, inv.GrossAmount, inv.RawXML,
		inv.Status, inv.PaymentStatus, inv.PaidAmount,
		inv.BookingPercent, inv.VATDeductionPercent, inv.CategoryID, inv.Notes,
	)
	if err != nil {
		return fmt.Errorf("insert invoice %s: %w", inv.KSeFID, err)
	}

	for i := range items {
		item := &items[i]
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		item.InvoiceID = inv.ID

		_, err = tx.ExecContext(ctx, `
			INSERT INTO cost_invoice_items (
				id, invoice_id, line_no, description, quantity, unit,
				unit_price, net_value, vat_rate, vat_value, gross_value,
				selected, booking_percent, vat_deduction_percent, category_id
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			item.ID, item.InvoiceID, item.LineNo, item.Description, item.Quantity, item.Unit,
			item.UnitPrice, item.NetValue, item.VATRate, item.VATValue, item.GrossValue,
			item.Selected, item.BookingPercent, item.VATDeductionPercent, item.CategoryID,
		)
		if err != nil {
			return fmt.Errorf("insert item %d of invoice %s: %w", item.LineNo, inv.KSeFID, err)
		}
	}

	return tx.Commit()
}

func (s *MySQLInvoiceStore) GetByID(ctx context.Context, id string) (*model.CostInvoice, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM cost_invoices WHERE id = ?`, id)
	inv, err := scanInvoice(row)
	if err == sql.ErrNoRows {
		return nil, model.NewNotFoundError("invoice", id)
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *MySQLInvoiceStore) GetItems(ctx context.Context, invoiceID string) ([]model.CostInvoiceItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, invoice_id, line_no, description, quantity, unit,
			unit_price, net_value, vat_rate, vat_value, gross_value,
			selected, booking_percent, vat_deduction_percent, category_id
		FROM cost_invoice_items
		WHERE invoice_id = ?
		ORDER BY line_no
	`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.CostInvoiceItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (s *MySQLInvoiceStore) List(ctx context.Context, filter InvoiceFilter) ([]model.CostInvoice, error) {
	var conds []string
	var args []interface{}

	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.PaymentStatus != "" {
		conds = append(conds, "payment_status = ?")
		args = append(args, filter.PaymentStatus)
	}
	if filter.IssuedFrom != nil {
		conds = append(conds, "issue_date >= ?")
		args = append(args, filter.IssuedFrom)
	}
	if filter.IssuedTo != nil {
		conds = append(conds, "issue_date <= ?")
		args = append(args, filter.IssuedTo)
	}

	query := `SELECT ` + invoiceColumns + ` FROM cost_invoices`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY issue_date DESC, ksef_id"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []model.CostInvoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, *inv)
	}
	return invoices, rows.Err()
}

func (s *MySQLInvoiceStore) ExistingKSeFIDs(ctx context.Context, ksefIDs []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	if len(ksefIDs) == 0 {
		return existing, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ksefIDs)), ",")
	args := make([]interface{}, len(ksefIDs))
	for i, id := range ksefIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT ksef_id FROM cost_invoices WHERE ksef_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		existing[id] = true
	}
	return existing, rows.Err()
}

func (s *MySQLInvoiceStore) UpdateBooking(ctx context.Context, inv *model.CostInvoice) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE cost_invoices
		SET status = ?, booking_percent = ?, vat_deduction_percent = ?,
			category_id = ?, notes = ?, booked_by = ?, booked_at = ?
		WHERE id = ?
	`,
		inv.Status, inv.BookingPercent, inv.VATDeductionPercent,
		inv.CategoryID, inv.Notes, inv.BookedBy, inv.BookedAt,
		inv.ID,
	)
	if err != nil {
		return err
	}
	return checkFound(result, "invoice", inv.ID)
}

func (s *MySQLInvoiceStore) UpdateItem(ctx context.Context, item *model.CostInvoiceItem) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE cost_invoice_items
		SET selected = ?, booking_percent = ?, vat_deduction_percent = ?, category_id = ?
		WHERE id = ? AND invoice_id = ?
	`,
		item.Selected, item.BookingPercent, item.VATDeductionPercent, item.CategoryID,
		item.ID, item.InvoiceID,
	)
	if err != nil {
		return err
	}
	return checkFound(result, "invoice item", item.ID)
}

func (s *MySQLInvoiceStore) UpdatePayment(ctx context.Context, id string, status model.PaymentStatus, paidAmount decimal.Decimal) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE cost_invoices SET payment_status = ?, paid_amount = ? WHERE id = ?
	`, status, paidAmount, id)
	if err != nil {
		return err
	}
	return checkFound(result, "invoice", id)
}

// rowScanner lets the mapping functions work over both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanInvoice is the single place the invoice table's schema maps to the
// domain record.
func scanInvoice(row rowScanner) (*model.CostInvoice, error) {
	var inv model.CostInvoice
	var saleDate, dueDate, bookedAt sql.NullTime
	var categoryID, notes, bookedBy sql.NullString
	var net, vat, gross, paid, bookingPct, vatPct string
	var status, paymentStatus string

	err := row.Scan(
		&inv.ID, &inv.KSeFID, &inv.AcquiredAt, &inv.SyncID,
		&inv.SupplierTaxID, &inv.SupplierName, &inv.SupplierAddress, &inv.SupplierBankAccount,
		&inv.Number, &inv.IssueDate, &saleDate, &dueDate,
		&inv.Currency, &net, &vat, &gross, &inv.RawXML,
		&status, &paymentStatus, &paid,
		&bookingPct, &vatPct, &categoryID, &notes,
		&bookedBy, &bookedAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	inv.Status = model.InvoiceStatus(status)
	inv.PaymentStatus = model.PaymentStatus(paymentStatus)
	if saleDate.Valid {
		inv.SaleDate = &saleDate.Time
	}
	if dueDate.Valid {
		inv.DueDate = &dueDate.Time
	}
	if bookedAt.Valid {
		inv.BookedAt = &bookedAt.Time
	}
	if categoryID.Valid {
		inv.CategoryID = &categoryID.String
	}
	if notes.Valid {
		inv.Notes = notes.String
	}
	if bookedBy.Valid {
		inv.BookedBy = &bookedBy.String
	}

	for _, field := range []struct {
		src string
		dst *decimal.Decimal
	}{
		{net, &inv.NetAmount},
		{vat, &inv.VATAmount},
		{gross, &inv.GrossAmount},
		{paid, &inv.PaidAmount},
		{bookingPct, &inv.BookingPercent},
		{vatPct, &inv.VATDeductionPercent},
	} {
		d, err := decimal.NewFromString(field.src)
		if err != nil {
			return nil, fmt.Errorf("malformed decimal column for invoice %s: %w", inv.ID, err)
		}
		*field.dst = d
	}

	return &inv, nil
}

// scanItem maps one item row to the domain record
func scanItem(row rowScanner) (*model.CostInvoiceItem, error) {
	var item model.CostInvoiceItem
	var categoryID sql.NullString
	var qty, unitPrice, net, vat, gross, bookingPct, vatPct string
	var rate string

	err := row.Scan(
		&item.ID, &item.InvoiceID, &item.LineNo, &item.Description, &qty, &item.Unit,
		&unitPrice, &net, &rate, &vat, &gross,
		&item.Selected, &bookingPct, &vatPct, &categoryID,
	)
	if err != nil {
		return nil, err
	}

	item.VATRate = model.VATRate(rate)
	if categoryID.Valid {
		item.CategoryID = &categoryID.String
	}

	for _, field := range []struct {
		src string
		dst *decimal.Decimal
	}{
		{qty, &item.Quantity},
		{unitPrice, &item.UnitPrice},
		{net, &item.NetValue},
		{vat, &item.VATValue},
		{gross, &item.GrossValue},
		{bookingPct, &item.BookingPercent},
		{vatPct, &item.VATDeductionPercent},
	} {
		d, err := decimal.NewFromString(field.src)
		if err != nil {
			return nil, fmt.Errorf("malformed decimal column for item %s: %w", item.ID, err)
		}
		*field.dst = d
	}

	return &item, nil
}

func checkFound(result sql.Result, entity, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.NewNotFoundError(entity, id)
	}
	return nil
}
