package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"peatracker/internal/core"
	"peatracker/internal/engine"
	"peatracker/internal/log"
	"peatracker/internal/middleware/ratelimit"
	"peatracker/internal/middleware/security"
	"peatracker/internal/middleware/trace"
)

// Tracker is the account state served by the API.
type Tracker interface {
	Today() core.Date
	Config() *core.AccountConfig
	SetConfig(ctx context.Context, cfg core.AccountConfig) error
	ClearConfig(ctx context.Context)

	Entries() []core.Entry
	AddEntry(ctx context.Context, e core.Entry) error
	DeleteEntry(ctx context.Context, date core.Date) bool

	DepositsNewestFirst() []core.Deposit
	AddDeposit(ctx context.Context, date core.Date, amount decimal.Decimal, note string) (core.Deposit, error)
	DeleteDeposit(ctx context.Context, id string) bool

	DCA() core.DCAConfig
	UpdateDCA(ctx context.Context, patch core.DCAPatch) (core.DCAConfig, error)
	DCADates(year, month int) []core.Date

	DayPerformance(date core.Date) (core.DayPerformance, bool)
	PerformancesInRange(start, end core.Date) []core.DayPerformance
	PeriodGain(start, end core.Date) decimal.Decimal
	Summary() engine.Summary
	Stats() core.Stats
	Ceiling() engine.Ceiling
}

type Server struct {
	http.Server
	tracker     Tracker
	logger      *log.Logger
	structured  *log.StructuredLogger
	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware
	started     time.Time

	shutdownOnce sync.Once
}

// NewServer configures the JSON API routes, returning a ready-to-run http.Server.
func NewServer(addr string, tracker Tracker, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		tracker:     tracker,
		logger:      logger,
		structured:  log.NewStructuredLogger(logger),
		rateLimiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:    security.NewDetector(),
		started:     time.Now(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/config", s.handleGetConfig)
	mux.HandleFunc("PUT /api/config", s.handlePutConfig)
	mux.HandleFunc("DELETE /api/config", s.handleDeleteConfig)

	mux.HandleFunc("GET /api/entries", s.handleListEntries)
	mux.HandleFunc("PUT /api/entries/{date}", s.handlePutEntry)
	mux.HandleFunc("DELETE /api/entries/{date}", s.handleDeleteEntry)

	mux.HandleFunc("GET /api/deposits", s.handleListDeposits)
	mux.HandleFunc("POST /api/deposits", s.handleCreateDeposit)
	mux.HandleFunc("DELETE /api/deposits/{id}", s.handleDeleteDeposit)

	mux.HandleFunc("GET /api/dca", s.handleGetDCA)
	mux.HandleFunc("PATCH /api/dca", s.handlePatchDCA)
	mux.HandleFunc("GET /api/dca/dates", s.handleDCADates)

	mux.HandleFunc("GET /api/performance", s.handlePerformanceRange)
	mux.HandleFunc("GET /api/performance/{date}", s.handleDayPerformance)
	mux.HandleFunc("GET /api/gain", s.handlePeriodGain)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/ceiling", s.handleCeiling)

	s.Handler = s.withMiddleware(mux)
	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
