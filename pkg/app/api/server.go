// Package api implements app.Runner for the registry server process.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apphttp "github.com/unordered-set/liquidaccess-nft/pkg/app/http"
	"github.com/unordered-set/liquidaccess-nft/pkg/auditor"
	"github.com/unordered-set/liquidaccess-nft/pkg/bootstrap"
	"github.com/unordered-set/liquidaccess-nft/pkg/config"
	"github.com/unordered-set/liquidaccess-nft/pkg/ethrpc"
	"github.com/unordered-set/liquidaccess-nft/pkg/eventstore"
	"github.com/unordered-set/liquidaccess-nft/pkg/exporter"
	"github.com/unordered-set/liquidaccess-nft/pkg/permit"
	"github.com/unordered-set/liquidaccess-nft/pkg/pgutil"
	"github.com/unordered-set/liquidaccess-nft/pkg/registry"
	"github.com/unordered-set/liquidaccess-nft/pkg/rpc"
)

const defaultRequestTimeout = 60

// Server holds cfg to init the registry server.
type Server struct {
	cfg *config.RegistryConfig
}

// NewServer initializes new registry server.
func NewServer(cfg *config.RegistryConfig) *Server {
	return &Server{cfg: cfg}
}

func (s *Server) Run() error {
	if s.cfg == nil {
		return fmt.Errorf("registry server config is nil")
	}
	cfg := s.cfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting registry server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)

	svc, err := s.buildRegistry(logger)
	if err != nil {
		return err
	}

	// The registry core takes no locks of its own. Every surface that
	// touches it, reads included, serializes through this one gate.
	gate := &sync.Mutex{}

	exp, closeStore, err := s.startExporter(svc, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	aud := auditor.New(svc, gate, logger)
	s.runInitialAudit(aud, logger)

	stopAudit := s.startPeriodicAudit(aud, logger)
	// We will stop background work explicitly after ServeAndWait returns
	// for deterministic shutdown order. Keep this defer as a safety net.
	defer stopAudit()

	rpcServer := rpc.NewServer(svc, gate, cfg.JWKS, logger)

	router := s.setupRouter(svc, gate, rpcServer, logger)

	err = apphttp.ServeAndWait(ctx, router, logger, &cfg.Server)

	// Stop background work before the deferred store close kicks in.
	// The exporter drains its buffer on Stop, so late journal events
	// still reach the store.
	stopAudit()
	if exp != nil {
		exp.Stop()
	}

	return err
}

func (s *Server) buildRegistry(logger *zap.Logger) (*registry.Service, error) {
	g, err := bootstrap.Load(s.cfg.Genesis)
	if err != nil {
		return nil, fmt.Errorf("load genesis: %w", err)
	}
	genesis, err := g.Resolve()
	if err != nil {
		return nil, fmt.Errorf("resolve genesis: %w", err)
	}

	col := s.cfg.Collection
	svc, err := registry.New(
		registry.Params{
			Name:   col.Name,
			Symbol: col.Symbol,
			Domain: permit.Domain{
				Name:              col.Name,
				Version:           col.Version,
				ChainID:           col.ChainID,
				VerifyingContract: common.HexToAddress(col.ContractAddress),
			},
		},
		genesis,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("create registry: %w", err)
	}
	return svc, nil
}

// startExporter connects the journal to the event store. With no
// database configured the registry runs journal-only.
func (s *Server) startExporter(svc *registry.Service, logger *zap.Logger) (*exporter.Exporter, func(), error) {
	if s.cfg.Database.Host == "" {
		logger.Info("Event persistence disabled, journal is in-memory only")
		return nil, func() {}, nil
	}

	db, err := pgutil.ConnectDB(&s.cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect event store: %w", err)
	}

	exp := exporter.NewExporter(svc.Journal(), eventstore.NewStore(db), logger)
	exp.Start()

	return exp, func() { _ = db.Close() }, nil
}

func (s *Server) runInitialAudit(aud *auditor.Auditor, logger *zap.Logger) {
	if s.cfg.Audit.InitialTimeout <= 0 {
		return
	}

	logger.Info("Running startup registry audit",
		zap.Duration("timeout", s.cfg.Audit.InitialTimeout),
	)

	done := make(chan error, 1)
	go func() { done <- aud.RunOnce() }()

	select {
	case err := <-done:
		if err != nil {
			logger.Warn("Startup audit failed (will retry periodically)", zap.Error(err))
			return
		}
		logger.Info("Startup registry audit completed")
	case <-time.After(s.cfg.Audit.InitialTimeout):
		logger.Warn("Startup audit did not finish in time, continuing startup")
	}
}

func (s *Server) startPeriodicAudit(aud *auditor.Auditor, logger *zap.Logger) func() {
	if s.cfg.Audit.Interval <= 0 {
		return func() {}
	}

	logger.Info("Starting periodic audit", zap.Duration("interval", s.cfg.Audit.Interval))
	aud.StartPeriodic(s.cfg.Audit.Interval)

	// Return stopper for deterministic shutdown ordering.
	return func() { aud.Stop() }
}

func (s *Server) setupRouter(
	svc *registry.Service,
	gate *sync.Mutex,
	rpcServer *rpc.Server,
	logger *zap.Logger,
) chi.Router {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Second * defaultRequestTimeout))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Get("/status", apphttp.HandleError(statusHandler(svc, gate)))

	r.Handle("/metrics", promhttp.Handler())

	// Registry JSON-RPC endpoint
	r.Post("/rpc", rpcServer.ServeHTTP)

	// Ethereum JSON-RPC endpoints (if enabled)
	if s.cfg.EthRPC.Enabled {
		ethHandler, err := s.createEthHandler(svc, gate, logger)
		if err != nil {
			logger.Error("Failed to create eth handler", zap.Error(err))
		} else {
			r.Mount("/eth", ethHandler)
		}
	}

	return r
}

func (s *Server) createEthHandler(
	svc *registry.Service,
	gate *sync.Mutex,
	logger *zap.Logger,
) (http.Handler, error) {
	ethSrv, err := ethrpc.NewServer(s.cfg, svc, gate, logger)
	if err != nil {
		return nil, fmt.Errorf("create eth json-rpc server: %w", err)
	}

	logger.Info("Ethereum JSON-RPC endpoint enabled",
		zap.String("path", "/eth"),
		zap.Uint64("chain_id", s.cfg.Collection.ChainID),
		zap.String("contract_address", s.cfg.Collection.ContractAddress),
	)

	var handler http.Handler = ethSrv
	if s.cfg.EthRPC.RequestTimeout > 0 {
		handler = http.TimeoutHandler(handler, s.cfg.EthRPC.RequestTimeout, "request timed out")
	}
	return handler, nil
}

type statusResponse struct {
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	ChainID       uint64 `json:"chain_id"`
	TotalSupply   int    `json:"total_supply"`
	TransferCount uint64 `json:"transfer_count"`
	Cooldown      string `json:"cooldown"`
	Events        int    `json:"events"`
}

// statusHandler reports a snapshot of registry state for operators and
// smoke tests. It reads under the gate like every other surface.
func statusHandler(svc *registry.Service, gate *sync.Mutex) apphttp.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		gate.Lock()
		resp := statusResponse{
			Name:          svc.Name(),
			Symbol:        svc.Symbol(),
			ChainID:       svc.Domain().ChainID,
			TotalSupply:   svc.TotalSupply(),
			TransferCount: svc.TransferCount(),
			Cooldown:      svc.CooldownDuration().String(),
			Events:        svc.Journal().Len(),
		}
		gate.Unlock()

		w.Header().Set("Content-Type", "application/json")
		return json.NewEncoder(w).Encode(&resp)
	}
}
