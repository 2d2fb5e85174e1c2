package cmd

import (
	"database/sql"

	"github.com/spf13/cobra"

	"github.com/rezonia/ksef-cost-sync/internal/config"
	"github.com/rezonia/ksef-cost-sync/internal/fa"
	"github.com/rezonia/ksef-cost-sync/internal/ksef"
	"github.com/rezonia/ksef-cost-sync/internal/logger"
	"github.com/rezonia/ksef-cost-sync/internal/store"
	"github.com/rezonia/ksef-cost-sync/internal/syncer"
)

var (
	version = "1.0.0"

	// Global flags
	logLevel     string
	migrationDir string
)

var rootCmd = &cobra.Command{
	Use:   "ksef-cost-sync",
	Short: "Import and book cost invoices from the national e-invoicing exchange",
	Long: `ksef-cost-sync pulls purchase invoices from the KSeF exchange,
normalizes their FA-schema XML into a local cost ledger, and tracks
booking and payment state for each imported invoice.

Examples:
  # Start the HTTP API server
  ksef-cost-sync serve

  # Run an incremental import from the command line
  ksef-cost-sync sync incremental

  # Re-scan a date range without duplicating already-imported invoices
  ksef-cost-sync sync verification --from 2026-01-01 --to 2026-01-31

  # Decode a raw FA document to JSON
  ksef-cost-sync decode invoice.xml`,
	Version: version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&migrationDir, "migrations", "internal/store/migrations", "Path to the SQL migration files")
}

// loadConfig reads configuration and initializes logging
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := logger.Setup(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStores connects the database and builds the persistence layer
func openStores(cfg *config.Config) (*sql.DB, store.InvoiceStore, store.SyncStore, store.CategoryStore, error) {
	db, err := store.Connect(cfg.DSN(), cfg.MigrationURL(), migrationDir)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return db, store.NewInvoiceStore(db), store.NewSyncStore(db), store.NewCategoryStore(db), nil
}

// buildOrchestrator wires the exchange client and the sync orchestrator
func buildOrchestrator(cfg *config.Config, invoices store.InvoiceStore, syncs store.SyncStore) (*ksef.HTTPClient, *syncer.Orchestrator) {
	client := ksef.NewHTTPClient(cfg.KSeF.BaseURL, cfg.KSeF.Token, ksef.WithTimeout(cfg.KSeF.Timeout))

	opts := syncer.DefaultOptions()
	if cfg.Sync.OverlapBuffer > 0 {
		opts.OverlapBuffer = cfg.Sync.OverlapBuffer
	}
	if cfg.Sync.InitialLookback > 0 {
		opts.InitialLookback = cfg.Sync.InitialLookback
	}
	if cfg.Sync.FullLookback > 0 {
		opts.FullLookback = cfg.Sync.FullLookback
	}
	if cfg.Sync.StaleRunCutoff > 0 {
		opts.StaleRunCutoff = cfg.Sync.StaleRunCutoff
	}

	return client, syncer.NewOrchestrator(client, invoices, syncs, fa.Decode, opts)
}
