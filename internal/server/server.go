package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/rezonia/ksef-cost-sync/internal/booking"
	"github.com/rezonia/ksef-cost-sync/internal/fa"
	"github.com/rezonia/ksef-cost-sync/internal/ksef"
	"github.com/rezonia/ksef-cost-sync/internal/model"
	"github.com/rezonia/ksef-cost-sync/internal/money"
	"github.com/rezonia/ksef-cost-sync/internal/store"
	"github.com/rezonia/ksef-cost-sync/internal/syncer"
)

// Config holds server configuration
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Debug        bool
	Issuer       fa.Issuer
}

// Server exposes the sync, booking and codec operations over HTTP
type Server struct {
	config       *Config
	router       *gin.Engine
	orchestrator *syncer.Orchestrator
	engine       *booking.Engine
	invoices     store.InvoiceStore
	syncs        store.SyncStore
	categories   store.CategoryStore
	exchange     ksef.Client
}

// NewServer wires the API server
func NewServer(config *Config, orchestrator *syncer.Orchestrator, engine *booking.Engine,
	invoices store.InvoiceStore, syncs store.SyncStore, categories store.CategoryStore,
	exchange ksef.Client) *Server {

	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	if config.Debug {
		router.Use(gin.Logger())
	}

	s := &Server{
		config:       config,
		router:       router,
		orchestrator: orchestrator,
		engine:       engine,
		invoices:     invoices,
		syncs:        syncs,
		categories:   categories,
		exchange:     exchange,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/sync/incremental", s.handleSyncIncremental)
		v1.POST("/sync/full", s.handleSyncFull)
		v1.POST("/sync/verification", s.handleSyncVerification)
		v1.GET("/syncs/:id", s.handleGetSync)

		v1.GET("/invoices", s.handleListInvoices)
		v1.GET("/invoices/:id", s.handleGetInvoice)
		v1.PATCH("/invoices/:id/booking", s.handleUpdateBooking)
		v1.POST("/invoices/:id/validate", s.handleValidate)
		v1.PATCH("/invoices/:id/items/:itemID", s.handleUpdateItem)
		v1.PATCH("/invoices/:id/payment", s.handleUpdatePayment)
		v1.POST("/invoices/:id/correction", s.handleCorrection)

		v1.GET("/categories", s.handleListCategories)

		v1.POST("/decode", s.handleDecode)
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	return srv.ListenAndServe()
}

// Handler returns the router for use in tests and custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// actingUser is resolved by the gateway in front of this service and
// forwarded in a header.
func actingUser(c *gin.Context) string {
	return c.GetHeader("X-Acting-User")
}

func (s *Server) handleSyncIncremental(c *gin.Context) {
	summary, err := s.orchestrator.SyncIncremental(c.Request.Context(), actingUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleSyncFull(c *gin.Context) {
	summary, err := s.orchestrator.SyncFull(c.Request.Context(), actingUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleSyncVerification(c *gin.Context) {
	var req verificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dateFrom and dateTo are required"})
		return
	}
	from, err := time.Parse("2006-01-02", req.DateFrom)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dateFrom must be YYYY-MM-DD"})
		return
	}
	to, err := time.Parse("2006-01-02", req.DateTo)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dateTo must be YYYY-MM-DD"})
		return
	}

	// the verification window covers the whole dateTo day
	summary, err := s.orchestrator.SyncVerification(c.Request.Context(), from, to.Add(24*time.Hour-time.Second), actingUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleGetSync(c *gin.Context) {
	run, err := s.syncs.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *Server) handleListInvoices(c *gin.Context) {
	filter := store.InvoiceFilter{
		Status:        model.InvoiceStatus(c.Query("status")),
		PaymentStatus: model.PaymentStatus(c.Query("paymentStatus")),
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		filter.Limit = n
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative integer"})
			return
		}
		filter.Offset = n
	}

	invoices, err := s.invoices.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}

func (s *Server) handleGetInvoice(c *gin.Context) {
	ctx := c.Request.Context()
	inv, err := s.invoices.GetByID(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	items, err := s.invoices.GetItems(ctx, inv.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoiceResponse{Invoice: inv, Items: items})
}

func (s *Server) handleUpdateBooking(c *gin.Context) {
	var req bookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	update := booking.SettingsUpdate{
		BookingPercent:      req.BookingPercentage,
		VATDeductionPercent: req.VATDeductionPercentage,
		CategoryID:          req.CategoryID,
		ClearCategory:       req.ClearCategory,
		Notes:               req.Notes,
		Status:              req.Status,
	}

	inv, err := s.engine.UpdateSettings(c.Request.Context(), c.Param("id"), update, actingUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (s *Server) handleValidate(c *gin.Context) {
	err := s.engine.Validate(c.Request.Context(), c.Param("id"))
	if err == nil {
		c.JSON(http.StatusOK, validationResponse{Valid: true})
		return
	}

	var violations *model.ValidationErrors
	if errors.As(err, &violations) {
		c.JSON(http.StatusOK, validationResponse{Valid: false, Violations: violations.Violations})
		return
	}
	writeError(c, err)
}

func (s *Server) handleUpdateItem(c *gin.Context) {
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	update := booking.ItemUpdate{
		Selected:            req.Selected,
		BookingPercent:      req.BookingPercentage,
		VATDeductionPercent: req.VATDeductionPercentage,
		CategoryID:          req.CategoryID,
		ClearCategory:       req.ClearCategory,
	}

	item, err := s.engine.UpdateItem(c.Request.Context(), c.Param("id"), c.Param("itemID"), update)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *Server) handleUpdatePayment(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paymentStatus is required"})
		return
	}

	var paid *decimal.Decimal
	if req.PaidAmount != nil {
		amount, err := money.FromString(*req.PaidAmount)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "paidAmount must be a number"})
			return
		}
		paid = &amount
	}

	inv, err := s.engine.UpdatePayment(c.Request.Context(), c.Param("id"), model.PaymentStatus(req.PaymentStatus), paid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (s *Server) handleCorrection(c *gin.Context) {
	var req correctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reason is required"})
		return
	}

	ctx := c.Request.Context()
	inv, err := s.invoices.GetByID(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	items, err := s.invoices.GetItems(ctx, inv.ID)
	if err != nil {
		writeError(c, err)
		return
	}

	corr := fa.Correction{
		Reason:            req.Reason,
		Effect:            fa.CorrectionEffect(req.EffectType),
		OriginalIssueDate: inv.IssueDate,
		OriginalNumber:    inv.Number,
		OriginalKSeFID:    inv.KSeFID,
	}
	buyer := fa.Buyer{TaxID: req.BuyerTaxID, Name: req.BuyerName}

	doc, err := fa.EncodeCorrection(inv, items, s.config.Issuer, buyer, corr)
	if err != nil {
		writeError(c, err)
		return
	}

	result, err := s.exchange.Submit(ctx, doc)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, correctionResponse{
		ReferenceNumber: result.ReferenceNumber,
		Status:          result.Status,
	})
}

func (s *Server) handleListCategories(c *gin.Context) {
	categories, err := s.categories.ListActive(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

func (s *Server) handleDecode(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil || len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty request body"})
		return
	}

	inv, items, err := fa.Decode(body)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, invoiceResponse{Invoice: inv, Items: items})
}

// writeError maps domain errors to HTTP statuses
func writeError(c *gin.Context, err error) {
	var notFound *model.NotFoundError
	if errors.As(err, &notFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var conflict *model.ConflictError
	if errors.As(err, &conflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	var violations *model.ValidationErrors
	if errors.As(err, &violations) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":      "validation failed",
			"violations": violations.Violations,
		})
		return
	}

	var violation *model.ValidationError
	if errors.As(err, &violation) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
