// Package main runs the marketplace gateway: the HTTP/WebSocket API and the
// ingestion poller that records token snapshots and observed prices.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"pumpcore/internal/api"
	"pumpcore/internal/app"
	"pumpcore/internal/config"
	"pumpcore/internal/ingestion"
	"pumpcore/internal/logging"
)

const shutdownTimeout = 10 * time.Second

// Server holds the running components.
type Server struct {
	app     *app.App
	runner  *ingestion.Runner
	api     *api.Server
	started time.Time
	logger  *zap.Logger
}

func main() {
	fs := pflag.NewFlagSet("server", pflag.ExitOnError)
	configFile := fs.String("config", "", "Optional YAML config file")
	envFile := fs.String("env-file", ".env", "Optional .env file")
	fs.String(config.KeyHTTPAddr, config.DefaultHTTPAddr, "HTTP listen address for API, health and metrics")
	fs.Duration(config.KeyIngestInterval, ingestion.DefaultInterval, "Ingestion polling interval")

	v := viper.New()
	if err := config.BindFlags(v, fs); err != nil {
		fatal(err)
	}
	for _, name := range []string{config.KeyHTTPAddr, config.KeyIngestInterval} {
		if err := v.BindPFlag(name, fs.Lookup(name)); err != nil {
			fatal(err)
		}
	}
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(v, *envFile, *configFile)
	if err != nil {
		fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		fatal(fmt.Errorf("invalid configuration: %w", err))
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	defer a.Close()

	s := &Server{app: a, started: time.Now(), logger: logger}
	s.runner = ingestion.NewRunner(ingestion.RunnerOptions{
		Catalog:   a.Catalog,
		Snapshots: a.Stores.Snapshots,
		Prices:    a.Stores.Prices,
		Cache:     a.Cache,
		Interval:  cfg.IngestInterval,
		Logger:    logger,
	})
	s.api = api.NewServer(api.Options{
		Addr:            cfg.HTTPAddr,
		Catalog:         a.Catalog,
		Session:         a.Conn,
		Pinner:          a.Pinning(),
		RequiredChainID: a.RequiredChainID(),
		Deposit:         a.Deposit,
		Status:          s.status,
		Logger:          logger,
	})

	if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// Run starts the API and the ingestion runner and blocks until ctx is
// cancelled or either fails.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting server",
		zap.String("account", s.app.Conn.CurrentAddress().Hex()),
		zap.String("chain_id", s.app.Conn.CurrentChainID().String()),
		zap.Bool("writable", s.app.Conn.Connected()),
		zap.Bool("pinning", s.app.Pinner != nil))

	errCh := make(chan error, 2)

	go func() {
		if err := s.api.Start(); err != nil {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()

	go func() {
		err := s.runner.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("ingestion: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.api.Stop(shutdownCtx); err != nil {
		s.logger.Warn("http shutdown", zap.Error(err))
	}
	return runErr
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status        string               `json:"status"`
	Uptime        string               `json:"uptime"`
	Started       time.Time            `json:"started"`
	Account       string               `json:"account"`
	ChainID       string               `json:"chainId"`
	Writable      bool                 `json:"writable"`
	Pinning       bool                 `json:"pinning"`
	CacheEntries  int                  `json:"cacheEntries"`
	LastIngestion *ingestion.RunResult `json:"lastIngestion,omitempty"`
}

func (s *Server) status() any {
	resp := StatusResponse{
		Status:       "running",
		Uptime:       time.Since(s.started).Round(time.Second).String(),
		Started:      s.started,
		Account:      s.app.Conn.CurrentAddress().Hex(),
		ChainID:      s.app.Conn.CurrentChainID().String(),
		Writable:     s.app.Conn.Connected(),
		Pinning:      s.app.Pinner != nil,
		CacheEntries: s.app.Cache.Len(),
	}
	if last, ok := s.runner.LastRun(); ok {
		resp.LastIngestion = &last
	}
	return resp
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "server: %v\n", err)
	os.Exit(1)
}
