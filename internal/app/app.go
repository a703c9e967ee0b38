// Package app wires configuration into the running components shared by
// the server and the CLI.
package app

import (
	"context"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"pumpcore/internal/catalog"
	"pumpcore/internal/config"
	"pumpcore/internal/connection"
	"pumpcore/internal/contract"
	"pumpcore/internal/creation"
	"pumpcore/internal/ipfs"
	"pumpcore/internal/normalization"
	"pumpcore/internal/reqcache"
	"pumpcore/internal/storage"
	chstore "pumpcore/internal/storage/clickhouse"
	"pumpcore/internal/storage/memory"
	"pumpcore/internal/storage/migrations"
	pgstore "pumpcore/internal/storage/postgres"
)

// Stores holds the storage implementations.
type Stores struct {
	Snapshots storage.SnapshotStore
	Prices    storage.PriceHistoryStore
}

// OpenStores creates in-memory stores or connects to PostgreSQL and
// ClickHouse, applying migrations first. The returned func releases the
// connections.
func OpenStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Stores, func(), error) {
	if cfg.UseMemory {
		return &Stores{
			Snapshots: memory.NewSnapshotStore(),
			Prices:    memory.NewPriceHistoryStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN,
		pgstore.WithMaxConns(cfg.PGMaxConns),
		pgstore.WithMaxConnIdleTime(cfg.PGMaxConnIdle),
	)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN, logger)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	stores := &Stores{
		Snapshots: pgstore.NewSnapshotStore(pool),
		Prices:    chstore.NewPriceHistoryStore(chConn),
	}
	cleanup := func() {
		_ = chConn.Close()
		pool.Close()
	}
	return stores, cleanup, nil
}

// App is the set of components built from a Config.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Gateway *contract.Gateway
	Cache   *reqcache.Cache
	Conn    *connection.Connection
	Catalog *catalog.Service
	Stores  *Stores
	// Pinner is nil when no Pinata credentials are configured.
	Pinner  *ipfs.PinataClient
	Deposit *big.Int

	closeStores func()
}

// New dials the chain, opens the stores and builds the read and write paths.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	deposit, err := cfg.DepositScaled()
	if err != nil {
		return nil, fmt.Errorf("deposit: %w", err)
	}

	gw, err := contract.Dial(ctx, contract.Options{
		RPCURL:         cfg.RPCURL,
		FactoryAddress: cfg.Factory(),
		PrivateKeyHex:  cfg.PrivateKey,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	stores, closeStores, err := OpenStores(ctx, cfg, logger)
	if err != nil {
		gw.Close()
		return nil, err
	}

	cache := reqcache.New(reqcache.Options{TTL: cfg.CacheTTL, Logger: logger})
	conn := connection.New(connection.Options{
		Account: gw.Account(),
		ChainID: gw.ChainID(),
		Backend: gw,
		Cache:   cache,
		Logger:  logger,
	})

	svc := catalog.New(catalog.Options{
		Reader:          conn,
		Normalizer:      normalization.NewNormalizer(ipfs.NewResolver(cfg.IPFSGateway), cfg.Location()),
		Snapshots:       stores.Snapshots,
		Prices:          stores.Prices,
		Location:        cfg.Location(),
		ListConcurrency: cfg.ListConcurrency,
		Logger:          logger,
	})

	var pinner *ipfs.PinataClient
	if cfg.PinataAPIKey != "" && cfg.PinataSecret != "" {
		pinner = ipfs.NewPinataClient(cfg.PinataAPIKey, cfg.PinataSecret, ipfs.WithPinataEndpoint(cfg.PinataEndpoint))
	}

	return &App{
		Config:      cfg,
		Logger:      logger,
		Gateway:     gw,
		Cache:       cache,
		Conn:        conn,
		Catalog:     svc,
		Stores:      stores,
		Pinner:      pinner,
		Deposit:     deposit,
		closeStores: closeStores,
	}, nil
}

// RequiredChainID is the chain writes must be submitted on.
func (a *App) RequiredChainID() *big.Int {
	return big.NewInt(a.Config.ChainID)
}

// CreationForm returns an empty token creation form bound to the session.
func (a *App) CreationForm() *creation.Form {
	return creation.NewForm(creation.Options{
		Session:         a.Conn,
		Pinner:          a.Pinning(),
		RequiredChainID: a.RequiredChainID(),
		Deposit:         a.Deposit,
		Logger:          a.Logger,
	})
}

// Pinning returns the pinning client as a creation.Pinner, or a nil
// interface when none is configured.
func (a *App) Pinning() creation.Pinner {
	if a.Pinner == nil {
		return nil
	}
	return a.Pinner
}

// Close releases the chain client and the stores.
func (a *App) Close() {
	if a.closeStores != nil {
		a.closeStores()
	}
	a.Gateway.Close()
}
