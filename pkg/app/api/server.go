// Package api implements app.Runner for the bridge API server process.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	apphttp "github.com/koshlabs/stellar-evm-bridge/pkg/app/http"
	"github.com/koshlabs/stellar-evm-bridge/pkg/attemptstore"
	"github.com/koshlabs/stellar-evm-bridge/pkg/bridge"
	"github.com/koshlabs/stellar-evm-bridge/pkg/config"
	"github.com/koshlabs/stellar-evm-bridge/pkg/custodian"
	"github.com/koshlabs/stellar-evm-bridge/pkg/pgutil"
	"github.com/koshlabs/stellar-evm-bridge/pkg/stellar"
)

// Server holds cfg to init the bridge API server.
type Server struct {
	cfg *config.Config
}

// NewServer initializes new bridge API server.
func NewServer(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

func (s *Server) Run() error {
	if s.cfg == nil {
		return fmt.Errorf("bridge server config is nil")
	}
	cfg := s.cfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting bridge server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)

	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	store := attemptstore.NewStore(db)
	custodianClient := custodian.NewClient(&cfg.Custodian, logger)
	gateway := stellar.NewGateway(&cfg.Bridge, logger)
	builder := stellar.NewBuilder(&cfg.Bridge, logger)

	orchestrator := bridge.NewOrchestrator(
		gateway,
		builder,
		custodianClient,
		store,
		logger,
		cfg.Bridge.SettleDelay,
	)

	handler := newHandler(orchestrator, store, &cfg.Bridge, logger)
	router := s.setupRouter(db, handler, logger)

	return apphttp.ServeAndWait(ctx, router, logger, &cfg.Server)
}

func (s *Server) setupRouter(db *bun.DB, h *handler, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Get("/ready", s.readyHandler(db, logger))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/bridge", apphttp.HandleError(h.bridge))
		r.Get("/attempts", apphttp.HandleError(h.listAttempts))
		r.Get("/attempts/{id}", apphttp.HandleError(h.getAttempt))
		r.Get("/lock-events", apphttp.HandleError(h.lockEvents))
	})

	if s.cfg.Monitoring.Enabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// readyHandler reports readiness: the database must answer a ping and
// the testnet Soroban node must answer getNetwork.
func (s *Server) readyHandler(db *bun.DB, logger *zap.Logger) http.HandlerFunc {
	probe := stellar.NewSorobanClient(
		stellar.Resolve("17000").SorobanURL,
		s.cfg.Bridge.SorobanTimeout,
	)

	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			logger.Warn("Readiness check failed: database", zap.Error(err))
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		if _, err := probe.GetNetwork(r.Context()); err != nil {
			logger.Warn("Readiness check failed: soroban rpc", zap.Error(err))
			http.Error(w, "soroban rpc unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("READY"))
	}
}
