package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rezonia/ksef-cost-sync/internal/model"
)

// MySQLCategoryStore implements CategoryStore over MySQL
type MySQLCategoryStore struct {
	db *sql.DB
}

// NewCategoryStore creates a MySQL-backed category store
func NewCategoryStore(db *sql.DB) *MySQLCategoryStore {
	return &MySQLCategoryStore{db: db}
}

const categoryColumns = `id, name, parent_id, color, default_vat_deduction, active, sort_order`

func (s *MySQLCategoryStore) GetByID(ctx context.Context, id string) (*model.CostCategory, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM cost_categories WHERE id = ?`, id)
	cat, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, model.NewNotFoundError("category", id)
	}
	if err != nil {
		return nil, err
	}
	return cat, nil
}

func (s *MySQLCategoryStore) ListActive(ctx context.Context) ([]model.CostCategory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM cost_categories WHERE active = 1 ORDER BY sort_order, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []model.CostCategory
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *cat)
	}
	return categories, rows.Err()
}

func scanCategory(row rowScanner) (*model.CostCategory, error) {
	var cat model.CostCategory
	var parentID sql.NullString
	var vatDeduction string

	err := row.Scan(&cat.ID, &cat.Name, &parentID, &cat.Color, &vatDeduction, &cat.Active, &cat.SortOrder)
	if err != nil {
		return nil, err
	}

	if parentID.Valid {
		cat.ParentID = &parentID.String
	}
	d, err := decimal.NewFromString(vatDeduction)
	if err != nil {
		return nil, fmt.Errorf("malformed vat deduction for category %s: %w", cat.ID, err)
	}
	cat.DefaultVATDeduction = d
	return &cat, nil
}
