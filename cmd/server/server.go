package main

import (
	"context"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jack-landon/dapper-app/internal/config"
	"github.com/jack-landon/dapper-app/internal/highlight"
	"github.com/jack-landon/dapper-app/internal/indexer"
	"github.com/jack-landon/dapper-app/internal/model"
	"github.com/jack-landon/dapper-app/internal/registry"
	"github.com/jack-landon/dapper-app/internal/wallet"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// startTime records when the service was initialized for uptime reporting
var startTime = time.Now()

// stakeSource is the indexer surface the handlers consume.
type stakeSource interface {
	UserStakes(ctx context.Context, address string) ([]model.Stake, error)
	StakeWall(ctx context.Context) ([]model.Stake, error)
	Treasuries(ctx context.Context, musdToken, btcToken string) (indexer.Treasuries, error)
	WaitForStake(ctx context.Context, address, txHash string, interval time.Duration) ([]model.Stake, *model.Stake, error)
	WaitForWithdrawal(ctx context.Context, address, stakeID string, interval time.Duration) (*model.Stake, error)
}

// chainReader is the read-only contract surface the handlers consume.
type chainReader interface {
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error)
	ShareBalance(ctx context.Context, vault, owner common.Address) (*big.Int, error)
	PreviewDeposit(ctx context.Context, vault common.Address, assets *big.Int) (*big.Int, error)
	PreviewRedeem(ctx context.Context, vault common.Address, shares *big.Int) (*big.Int, error)
	TotalAssets(ctx context.Context, vault common.Address) (*big.Int, error)
}

// chainWriter submits transactions and watches their receipts.
type chainWriter interface {
	Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (common.Hash, error)
	Stake(ctx context.Context, vault common.Address, amount *big.Int, lockSeconds int64) (common.Hash, error)
	Unstake(ctx context.Context, vault common.Address, stakeID *big.Int) (common.Hash, error)
	Deposit(ctx context.Context, vault common.Address, assets *big.Int, receiver common.Address) (common.Hash, error)
	Redeem(ctx context.Context, vault common.Address, shares *big.Int, receiver, owner common.Address) (common.Hash, error)
	WaitMined(ctx context.Context, txHash common.Hash) error
}

// Server is the staking service's HTTP surface.
type Server struct {
	cfg      config.Config
	registry *registry.Registry
	indexer  stakeSource
	reader   chainReader
	writer   chainWriter
	session  *wallet.Session

	highlights *highlight.Tracker
	limiter    *rate.Limiter
	metrics    *serverMetrics
	promReg    *prometheus.Registry
	server     *http.Server

	// One write attempt per action at a time. Distinct actions may be in
	// flight simultaneously.
	actionMu sync.Mutex
	inFlight map[string]bool
}

// serverMetrics holds Prometheus metrics for the server
type serverMetrics struct {
	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	txCounter       *prometheus.CounterVec
}

// registerMetrics sets up Prometheus metrics collection on a per-server
// registry, so tests can build servers side by side.
func registerMetrics(reg *prometheus.Registry) *serverMetrics {
	m := &serverMetrics{
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dapper_requests_total",
				Help: "Total number of API requests processed",
			},
			[]string{"path", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dapper_request_duration_seconds",
				Help:    "Request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path"},
		),
		txCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dapper_transactions_total",
				Help: "Total number of submitted transaction attempts",
			},
			[]string{"action", "outcome"},
		),
	}

	reg.MustRegister(m.requestCounter, m.requestDuration, m.txCounter)
	return m
}

// NewServer wires the HTTP surface over its collaborators.
func NewServer(cfg config.Config, reg *registry.Registry, idx stakeSource, reader chainReader, writer chainWriter, session *wallet.Session) *Server {
	promReg := prometheus.NewRegistry()
	s := &Server{
		cfg:        cfg,
		registry:   reg,
		indexer:    idx,
		reader:     reader,
		writer:     writer,
		session:    session,
		highlights: highlight.NewTracker(cfg.HighlightDuration),
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		metrics:    registerMetrics(promReg),
		promReg:    promReg,
		inFlight:   make(map[string]bool),
	}

	logrus.WithFields(logrus.Fields{
		"port":       cfg.Port,
		"indexer":    cfg.IndexerBaseURL,
		"rpc":        cfg.RPCEndpoint,
		"tokens":     len(reg.Tokens),
		"durations":  len(reg.Durations),
		"rate_limit": cfg.RateLimitRPS,
		"rate_burst": cfg.RateLimitBurst,
	}).Info("Server initialized")

	return s
}

// routes builds the request multiplexer.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/stake-wall", s.instrument("stake-wall", s.requireMethod(http.MethodGet, s.handleStakeWall)))
	mux.HandleFunc("/api/stakes", s.instrument("stakes", s.requireMethod(http.MethodGet, s.handleStakes)))
	mux.HandleFunc("/api/treasuries", s.instrument("treasuries", s.requireMethod(http.MethodGet, s.handleTreasuries)))
	mux.HandleFunc("/api/preview", s.instrument("preview", s.requireMethod(http.MethodGet, s.handlePreview)))

	mux.HandleFunc("/api/stake", s.instrument("stake", s.requireMethod(http.MethodPost, s.handleStake)))
	mux.HandleFunc("/api/withdraw", s.instrument("withdraw", s.requireMethod(http.MethodPost, s.handleWithdraw)))
	mux.HandleFunc("/api/treasury/deposit", s.instrument("treasury-deposit", s.requireMethod(http.MethodPost, s.handleTreasuryDeposit)))
	mux.HandleFunc("/api/treasury/redeem", s.instrument("treasury-redeem", s.requireMethod(http.MethodPost, s.handleTreasuryRedeem)))

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.Handle("/metrics", promhttp.HandlerFor(s.promReg, promhttp.HandlerOpts{}))

	return mux
}

// instrument applies rate limiting and records request metrics.
func (s *Server) instrument(path string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			s.metrics.requestCounter.WithLabelValues(path, "429").Inc()
			errorJSON(w, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(sw, r)

		s.metrics.requestCounter.WithLabelValues(path, strconv.Itoa(sw.status)).Inc()
		s.metrics.requestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	}
}

func (s *Server) beginAction(name string) bool {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()
	if s.inFlight[name] {
		return false
	}
	s.inFlight[name] = true
	return true
}

func (s *Server) endAction(name string) {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()
	delete(s.inFlight, name)
}

func (s *Server) requireMethod(method string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			errorJSON(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		next(w, r)
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Start begins the HTTP server and sets up graceful shutdown
func (s *Server) Start() {
	s.server = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("Server starting on port %s", s.cfg.Port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Error starting server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		logrus.Fatalf("Server shutdown failed: %v", err)
	}
	s.highlights.Stop()

	logrus.Info("Server stopped")
}
