package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/ksef-cost-sync/internal/booking"
	"github.com/rezonia/ksef-cost-sync/internal/fa"
	"github.com/rezonia/ksef-cost-sync/internal/server"
)

var (
	serverAddr   string
	serverDebug  bool
	readTimeout  time.Duration
	writeTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP API server for synchronization, booking and
payment operations.

The API provides endpoints for:
  - POST  /api/v1/sync/incremental        - Import newly published invoices
  - POST  /api/v1/sync/full               - Full-history import
  - POST  /api/v1/sync/verification       - Bounded re-scan of a date range
  - GET   /api/v1/syncs/:id               - Inspect a sync run
  - GET   /api/v1/invoices                - List imported invoices
  - GET   /api/v1/invoices/:id            - Invoice with its line items
  - PATCH /api/v1/invoices/:id/booking    - Update booking fields / status
  - POST  /api/v1/invoices/:id/validate   - Dry-run booking validation
  - PATCH /api/v1/invoices/:id/items/:itemID - Update one line's booking fields
  - PATCH /api/v1/invoices/:id/payment    - Update settlement state
  - POST  /api/v1/invoices/:id/correction - Encode and submit a correction
  - GET   /api/v1/categories              - Active cost categories
  - POST  /api/v1/decode                  - Decode a raw FA document
  - GET   /health                         - Health check

Examples:
  # Start server on default port
  ksef-cost-sync serve

  # Start on a custom port in debug mode
  ksef-cost-sync serve --address :9090 --debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverAddr, "address", "", "Server listen address (default from SERVER_ADDRESS)")
	serveCmd.Flags().BoolVar(&serverDebug, "debug", false, "Enable debug mode")
	serveCmd.Flags().DurationVar(&readTimeout, "read-timeout", 30*time.Second, "HTTP read timeout")
	serveCmd.Flags().DurationVar(&writeTimeout, "write-timeout", 5*time.Minute, "HTTP write timeout")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, invoices, syncs, categories, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	client, orchestrator := buildOrchestrator(cfg, invoices, syncs)
	engine := booking.NewEngine(invoices, categories)

	addr := serverAddr
	if addr == "" {
		addr = cfg.ServerAddress
	}

	srvConfig := &server.Config{
		Address:      addr,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		Debug:        serverDebug,
		Issuer: fa.Issuer{
			TaxID:   cfg.Issuer.TaxID,
			Name:    cfg.Issuer.Name,
			Address: cfg.Issuer.Address,
		},
	}

	srv := server.NewServer(srvConfig, orchestrator, engine, invoices, syncs, categories, client)

	// Handle graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		fmt.Println("\nShutting down server...")
		db.Close()
		os.Exit(0)
	}()

	fmt.Printf("Starting server on %s\n", addr)
	return srv.Run()
}
