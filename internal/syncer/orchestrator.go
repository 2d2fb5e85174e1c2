package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rezonia/ksef-cost-sync/internal/ksef"
	"github.com/rezonia/ksef-cost-sync/internal/logger"
	"github.com/rezonia/ksef-cost-sync/internal/model"
	"github.com/rezonia/ksef-cost-sync/internal/store"
)

// Options tune window computation
type Options struct {
	// OverlapBuffer shifts an incremental window's start backwards to
	// tolerate the exchange's publication lag for recent invoices.
	OverlapBuffer time.Duration

	// InitialLookback is the incremental window when no prior completed
	// run exists.
	InitialLookback time.Duration

	// FullLookback is the window of a FULL run
	FullLookback time.Duration

	// StaleRunCutoff bounds how long an IN_PROGRESS run holds the
	// advisory lock. A run that started earlier than this is treated as
	// crashed and no longer blocks new runs of its type.
	StaleRunCutoff time.Duration

	// Now is overridable for tests
	Now func() time.Time
}

// DefaultOptions returns the production window parameters
func DefaultOptions() Options {
	return Options{
		OverlapBuffer:   24 * time.Hour,
		InitialLookback: 30 * 24 * time.Hour,
		FullLookback:    2 * 365 * 24 * time.Hour,
		StaleRunCutoff:  6 * time.Hour,
		Now:             time.Now,
	}
}

// Decoder turns a raw exchange document into a normalized invoice with
// items. Satisfied by the fa package.
type Decoder func(doc []byte) (*model.CostInvoice, []model.CostInvoiceItem, error)

// Orchestrator drives synchronization runs against the exchange
type Orchestrator struct {
	client   ksef.Client
	invoices store.InvoiceStore
	syncs    store.SyncStore
	decode   Decoder
	opts     Options
	log      zerolog.Logger
}

// NewOrchestrator wires the orchestrator. Construct one per process and
// pass it by reference; it holds no hidden global state.
func NewOrchestrator(client ksef.Client, invoices store.InvoiceStore, syncs store.SyncStore, decode Decoder, opts Options) *Orchestrator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.StaleRunCutoff <= 0 {
		opts.StaleRunCutoff = 6 * time.Hour
	}
	return &Orchestrator{
		client:   client,
		invoices: invoices,
		syncs:    syncs,
		decode:   decode,
		opts:     opts,
		log:      logger.WithComponent("syncer"),
	}
}

// SyncIncremental imports invoices published since the last completed
// incremental run, minus the overlap buffer.
func (o *Orchestrator) SyncIncremental(ctx context.Context, startedBy string) (*model.SyncSummary, error) {
	now := o.opts.Now()

	from := now.Add(-o.opts.InitialLookback)
	last, err := o.syncs.LastCompleted(ctx, model.SyncIncremental)
	if err != nil {
		return nil, fmt.Errorf("look up last completed run: %w", err)
	}
	if last != nil {
		from = last.DateTo.Add(-o.opts.OverlapBuffer)
	}

	return o.run(ctx, model.SyncIncremental, from, now, startedBy)
}

// SyncFull imports the configured full lookback window
func (o *Orchestrator) SyncFull(ctx context.Context, startedBy string) (*model.SyncSummary, error) {
	now := o.opts.Now()
	return o.run(ctx, model.SyncFull, now.Add(-o.opts.FullLookback), now, startedBy)
}

// SyncVerification imports an explicit caller-supplied window
func (o *Orchestrator) SyncVerification(ctx context.Context, from, to time.Time, startedBy string) (*model.SyncSummary, error) {
	if !to.After(from) {
		return nil, model.NewValidationError("dateTo", to, "must be after dateFrom")
	}
	return o.run(ctx, model.SyncVerification, from, to, startedBy)
}

func (o *Orchestrator) run(ctx context.Context, runType model.SyncType, from, to time.Time, startedBy string) (*model.SyncSummary, error) {
	// advisory lock: one run of a given type at a time. Runs older than
	// the cutoff are crashed leftovers and do not hold the lock.
	active, err := o.syncs.ActiveExists(ctx, runType, o.opts.Now().Add(-o.opts.StaleRunCutoff))
	if err != nil {
		return nil, fmt.Errorf("check active runs: %w", err)
	}
	if active {
		return nil, model.NewConflictError("a %s sync run is already in progress", runType)
	}

	run := &model.CostInvoiceSync{
		Type:      runType,
		Status:    model.SyncInProgress,
		DateFrom:  from,
		DateTo:    to,
		StartedAt: o.opts.Now(),
		StartedBy: startedBy,
	}
	// persisted before any network call so a crash mid-run leaves
	// discoverable evidence
	if err := o.syncs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create sync run: %w", err)
	}

	o.log.Info().
		Str("sync_id", run.ID).
		Str("type", string(runType)).
		Time("from", from).
		Time("to", to).
		Msg("sync run started")

	headers, err := o.client.ListPurchaseInvoices(ctx, from, to)
	if err != nil {
		// systemic failure: the run fails and the error propagates
		run.Status = model.SyncFailed
		run.Errors = append(run.Errors, err.Error())
		o.finalize(ctx, run)
		return nil, fmt.Errorf("list purchase invoices: %w", err)
	}

	if len(headers) == 0 {
		run.Status = model.SyncCompleted
		if err := o.finalize(ctx, run); err != nil {
			return nil, err
		}
		return summary(run), nil
	}

	ksefIDs := make([]string, len(headers))
	for i, h := range headers {
		ksefIDs[i] = h.KSeFID
	}
	existing, err := o.invoices.ExistingKSeFIDs(ctx, ksefIDs)
	if err != nil {
		run.Status = model.SyncFailed
		run.Errors = append(run.Errors, err.Error())
		o.finalize(ctx, run)
		return nil, fmt.Errorf("deduplicate candidates: %w", err)
	}

	for _, header := range headers {
		if existing[header.KSeFID] {
			run.Skipped++
			continue
		}
		// one bad invoice never aborts the run
		if err := o.importOne(ctx, run, header); err != nil {
			run.Errored++
			run.Errors = append(run.Errors, fmt.Sprintf("%s: %v", header.KSeFID, err))
			o.log.Warn().Str("ksef_id", header.KSeFID).Err(err).Msg("invoice import failed")
			continue
		}
		run.Imported++
	}

	run.Status = model.SyncCompleted
	if err := o.finalize(ctx, run); err != nil {
		return nil, err
	}

	o.log.Info().
		Str("sync_id", run.ID).
		Int("imported", run.Imported).
		Int("skipped", run.Skipped).
		Int("errored", run.Errored).
		Msg("sync run completed")

	return summary(run), nil
}

func (o *Orchestrator) importOne(ctx context.Context, run *model.CostInvoiceSync, header ksef.InvoiceHeader) error {
	doc, err := o.client.FetchInvoice(ctx, header.KSeFID)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	inv, items, err := o.decode(doc)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	inv.KSeFID = header.KSeFID
	inv.AcquiredAt = header.AcquiredAt
	inv.SyncID = run.ID
	if inv.Number == "" {
		inv.Number = header.Number
	}
	if inv.IssueDate.IsZero() {
		inv.IssueDate = header.IssueDate
	}

	if err := o.invoices.Create(ctx, inv, items); err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	return nil
}

// finalize writes the run's terminal state. A finalize failure on an
// otherwise successful run is a failure of the run: the row would stay
// IN_PROGRESS and keep holding the advisory lock, so the caller must not
// be told the sync succeeded.
func (o *Orchestrator) finalize(ctx context.Context, run *model.CostInvoiceSync) error {
	now := o.opts.Now()
	run.CompletedAt = &now
	if err := o.syncs.Finish(ctx, run); err != nil {
		o.log.Error().Str("sync_id", run.ID).Err(err).Msg("failed to finalize sync run")
		return fmt.Errorf("finalize sync run %s: %w", run.ID, err)
	}
	return nil
}

func summary(run *model.CostInvoiceSync) *model.SyncSummary {
	errs := run.Errors
	if errs == nil {
		errs = []string{}
	}
	return &model.SyncSummary{
		SyncID:   run.ID,
		Imported: run.Imported,
		Skipped:  run.Skipped,
		Errors:   errs,
	}
}
