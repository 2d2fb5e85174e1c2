package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rezonia/ksef-cost-sync/internal/model"
)

// MySQLSyncStore implements SyncStore over MySQL
type MySQLSyncStore struct {
	db *sql.DB
}

// NewSyncStore creates a MySQL-backed sync store
func NewSyncStore(db *sql.DB) *MySQLSyncStore {
	return &MySQLSyncStore{db: db}
}

const syncColumns = `id, type, status, date_from, date_to, started_at,
	completed_at, imported, skipped, errored, errors, started_by`

func (s *MySQLSyncStore) Create(ctx context.Context, run *model.CostInvoiceSync) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cost_invoice_syncs (
			id, type, status, date_from, date_to, started_at, started_by
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Type, run.Status, run.DateFrom, run.DateTo, run.StartedAt, run.StartedBy)
	if err != nil {
		return fmt.Errorf("insert sync run: %w", err)
	}
	return nil
}

func (s *MySQLSyncStore) Finish(ctx context.Context, run *model.CostInvoiceSync) error {
	errList, err := json.Marshal(run.Errors)
	if err != nil {
		return fmt.Errorf("serialize error list: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE cost_invoice_syncs
		SET status = ?, completed_at = ?, imported = ?, skipped = ?, errored = ?, errors = ?
		WHERE id = ? AND status = ?
	`,
		run.Status, run.CompletedAt, run.Imported, run.Skipped, run.Errored, errList,
		run.ID, model.SyncInProgress,
	)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// either the run does not exist or it was already finalized
		return model.NewConflictError("sync run %s cannot be finalized", run.ID)
	}
	return nil
}

func (s *MySQLSyncStore) GetByID(ctx context.Context, id string) (*model.CostInvoiceSync, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+syncColumns+` FROM cost_invoice_syncs WHERE id = ?`, id)
	run, err := scanSync(row)
	if err == sql.ErrNoRows {
		return nil, model.NewNotFoundError("sync run", id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (s *MySQLSyncStore) LastCompleted(ctx context.Context, t model.SyncType) (*model.CostInvoiceSync, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+syncColumns+` FROM cost_invoice_syncs
		WHERE type = ? AND status = ?
		ORDER BY completed_at DESC
		LIMIT 1
	`, t, model.SyncCompleted)
	run, err := scanSync(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (s *MySQLSyncStore) ActiveExists(ctx context.Context, t model.SyncType, since time.Time) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM cost_invoice_syncs
		WHERE type = ? AND status = ? AND started_at >= ?
	`, t, model.SyncInProgress, since).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanSync maps one run row to the domain record
func scanSync(row rowScanner) (*model.CostInvoiceSync, error) {
	var run model.CostInvoiceSync
	var runType, status string
	var completedAt sql.NullTime
	var errList []byte

	err := row.Scan(
		&run.ID, &runType, &status, &run.DateFrom, &run.DateTo, &run.StartedAt,
		&completedAt, &run.Imported, &run.Skipped, &run.Errored, &errList, &run.StartedBy,
	)
	if err != nil {
		return nil, err
	}

	run.Type = model.SyncType(runType)
	run.Status = model.SyncStatus(status)
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	if len(errList) > 0 {
		if err := json.Unmarshal(errList, &run.Errors); err != nil {
			return nil, fmt.Errorf("malformed error list for sync run %s: %w", run.ID, err)
		}
	}
	return &run, nil
}
