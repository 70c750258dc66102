// Package server exposes the evaluator over HTTP and websockets.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/calc"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/config"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/consts"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/history"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/logger"
	"github.com/stehlfi1/serial-experiment-temperature-sub004/internal/suite"
)

// Options configure a Server
type Options struct {
	Config       config.ServerConfig
	Evaluator    calc.Options
	Precision    int
	Store        *history.Database // nil disables history endpoints and recording
	Suites       *suite.Loader     // nil serves builtin suites only
	SuiteWorkers int
	Logger       *logger.Logger
}

// Server provides the HTTP and websocket interface to the evaluator
type Server struct {
	cfg       config.ServerConfig
	evaluator atomic.Pointer[calc.Evaluator]
	precision atomic.Int64
	store     *history.Database
	suites    *suite.Loader
	workers   int
	limiter   *clientLimiter
	upgrader  websocket.Upgrader
	router    *httprouter.Router
	server    *http.Server
	log       *logger.Logger
	started   time.Time
}

// New creates a server. Call Serve or Start to accept connections.
func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logger.Global().WithPrefix("server")
	}
	suites := opts.Suites
	if suites == nil {
		suites = suite.NewLoader("")
	}
	if opts.Config.MaxBodyBytes <= 0 {
		opts.Config.MaxBodyBytes = consts.MaxRequestBodyBytes
	}

	s := &Server{
		cfg:     opts.Config,
		store:   opts.Store,
		suites:  suites,
		workers: opts.SuiteWorkers,
		limiter: newClientLimiter(opts.Config.RateLimit, opts.Config.Burst, consts.LimiterIdleTTL),
		router:  httprouter.New(),
		log:     log,
		started: time.Now(),
	}
	s.evaluator.Store(calc.New(opts.Evaluator))
	s.precision.Store(int64(opts.Precision))
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.Handler(http.MethodGet, "/metrics", promhttp.Handler())

	s.router.POST("/api/calculate", s.instrument("calculate", s.handleCalculate))
	s.router.GET("/api/history", s.instrument("history", s.handleHistory))
	s.router.GET("/api/suites", s.instrument("suites", s.handleSuites))
	s.router.POST("/api/suites/:id/run", s.instrument("suite_run", s.handleSuiteRun))
	s.router.GET("/api/runs/:run_id", s.instrument("run", s.handleRun))

	s.router.GET("/ws", s.limited(s.handleWebSocket))
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Evaluator returns the evaluator currently serving requests
func (s *Server) Evaluator() *calc.Evaluator {
	return s.evaluator.Load()
}

// ApplyConfig swaps in evaluator settings from a reloaded config. Listen
// address and rate limits only change on restart.
func (s *Server) ApplyConfig(cfg *config.Config) {
	s.evaluator.Store(calc.New(cfg.EvaluatorOptions()))
	s.precision.Store(int64(cfg.Precision))
	s.log.Info("applied config: unary plus %v, max length %d, precision %d",
		cfg.AllowUnaryPlus, cfg.MaxExpressionLength, cfg.Precision)
}

// Start listens on the configured address and serves until ctx is done
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: consts.Timeout10Seconds,
		ErrorLog:          logger.StdLogger(s.log, slog.LevelWarn),
	}

	go s.sweepLimiter(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening on %s", ln.Addr())
		errCh <- s.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		return s.Stop()
	}
}

// Stop stops the HTTP server
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), consts.Timeout5Seconds)
	defer cancel()

	s.log.Info("shutting down")
	return s.server.Shutdown(ctx)
}

func (s *Server) sweepLimiter(ctx context.Context) {
	if s.limiter == nil {
		return
	}
	ticker := time.NewTicker(consts.LimiterIdleTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.limiter.sweep(); n > 0 {
				s.log.Debug("forgot %d idle clients", n)
			}
		}
	}
}

// checkOrigin allows same-host requests, requests without an Origin
// header, and the configured origins ("*" allows any).
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}

// statusRecorder captures the response code for metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// limited rejects requests over the per-client rate
func (s *Server) limited(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !s.limiter.Allow(clientKey(r)) {
			rateLimitedTotal.Inc()
			writeError(w, http.StatusTooManyRequests, "request", "rate_limited", "too many requests")
			return
		}
		next(w, r, ps)
	}
}

// instrument applies rate limiting and counts responses by route and code
func (s *Server) instrument(route string, next httprouter.Handle) httprouter.Handle {
	limited := s.limited(next)
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		limited(rec, r, ps)
		httpRequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	}
}
