// Package ingestion periodically re-reads every token from the factory,
// records a snapshot and an observed price per token, and keeps live
// subscribers of the request cache up to date.
package ingestion

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"pumpcore/internal/contract"
	"pumpcore/internal/domain"
	"pumpcore/internal/normalization"
	"pumpcore/internal/observability"
	"pumpcore/internal/storage"
)

// DefaultInterval is the polling period.
const DefaultInterval = 30 * time.Second

// ErrRunInProgress is returned by RunOnce when a previous run has not finished.
var ErrRunInProgress = errors.New("ingestion run already in progress")

// Lister reads every token. *catalog.Service satisfies it.
type Lister interface {
	List(ctx context.Context, query string) ([]*domain.TokenInfo, error)
}

// Invalidator drops cached reads. *reqcache.Cache satisfies it.
type Invalidator interface {
	InvalidatePrefix(prefix string)
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Catalog   Lister
	Snapshots storage.SnapshotStore     // optional
	Prices    storage.PriceHistoryStore // optional
	// Cache, when set, is invalidated before every run so each run reads
	// the chain and fans the results out to subscribers.
	Cache    Invalidator
	Interval time.Duration // Default: 30s
	Now      func() time.Time
	Logger   *zap.Logger
}

// RunResult summarizes one ingestion run.
type RunResult struct {
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Tokens     int       `json:"tokens"`
	Errors     int       `json:"errors"`
	Status     string    `json:"status"` // success, partial or error
}

// Runner polls the factory on a fixed interval.
type Runner struct {
	catalog   Lister
	snapshots storage.SnapshotStore
	prices    storage.PriceHistoryStore
	cache     Invalidator
	interval  time.Duration
	now       func() time.Time
	logger    *zap.Logger

	running atomic.Bool

	mu      sync.Mutex
	last    RunResult
	hasLast bool
}

// NewRunner creates a new ingestion runner.
func NewRunner(opts RunnerOptions) *Runner {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Runner{
		catalog:   opts.Catalog,
		snapshots: opts.Snapshots,
		prices:    opts.Prices,
		cache:     opts.Cache,
		interval:  interval,
		now:       now,
		logger:    logger.Named("ingestion"),
	}
}

// Run performs one run immediately and then one per interval until ctx is
// cancelled. A tick that arrives while a run is still going is skipped.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("starting ingestion runner", zap.Duration("interval", r.interval))

	var wg sync.WaitGroup
	tick := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.logger.Warn("ingestion run failed", zap.Error(err))
			}
		}()
	}

	tick()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			r.logger.Info("ingestion runner stopped")
			return ctx.Err()
		case <-ticker.C:
			tick()
		}
	}
}

// RunOnce reads all tokens and records them. Store failures are logged and
// counted but do not fail the run; only a failure to list tokens does.
func (r *Runner) RunOnce(ctx context.Context) (RunResult, error) {
	if !r.running.CompareAndSwap(false, true) {
		observability.RecordIngestionSkipped()
		r.logger.Debug("skipping tick, previous run still in progress")
		return RunResult{}, ErrRunInProgress
	}
	defer r.running.Store(false)

	res := RunResult{StartedAt: r.now()}

	if r.cache != nil {
		r.cache.InvalidatePrefix(contract.MethodGetAllTokens)
		r.cache.InvalidatePrefix(contract.MethodTokens + ":")
		r.cache.InvalidatePrefix(contract.MethodGetTokenData + ":")
	}

	infos, err := r.catalog.List(ctx, "")
	if err != nil {
		observability.RecordIngestionError("list")
		res.Errors++
		res.Status = "error"
		r.finish(&res)
		return res, err
	}
	res.Tokens = len(infos)

	observedAt := res.StartedAt.UnixMilli()
	snapshots := make([]*domain.TokenSnapshot, 0, len(infos))
	for _, info := range infos {
		snapshots = append(snapshots, &domain.TokenSnapshot{Info: *info, ObservedAt: observedAt})
	}

	if r.snapshots != nil && len(snapshots) > 0 {
		if err := r.snapshots.InsertBulk(ctx, snapshots); err != nil {
			observability.RecordIngestionError("snapshots")
			res.Errors++
			r.logger.Warn("insert snapshots", zap.Int("count", len(snapshots)), zap.Error(err))
		}
	}

	if r.prices != nil {
		points := normalization.ObservedPricePoints(snapshots)
		if len(points) > 0 {
			if err := r.prices.InsertBulk(ctx, points); err != nil {
				observability.RecordIngestionError("prices")
				res.Errors++
				r.logger.Warn("insert observed prices", zap.Int("count", len(points)), zap.Error(err))
			}
		}
	}

	res.Status = "success"
	if res.Errors > 0 {
		res.Status = "partial"
	}
	r.finish(&res)
	return res, nil
}

func (r *Runner) finish(res *RunResult) {
	res.FinishedAt = r.now()
	observability.RecordIngestionRun(res.Status, res.Tokens,
		res.FinishedAt.Sub(res.StartedAt).Seconds(), res.FinishedAt.Unix())

	r.mu.Lock()
	r.last = *res
	r.hasLast = true
	r.mu.Unlock()

	r.logger.Info("ingestion run finished",
		zap.String("status", res.Status),
		zap.Int("tokens", res.Tokens),
		zap.Int("errors", res.Errors),
		zap.Duration("duration", res.FinishedAt.Sub(res.StartedAt)))
}

// LastRun returns the result of the most recent completed run.
func (r *Runner) LastRun() (RunResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.hasLast
}

// Interval returns the polling period.
func (r *Runner) Interval() time.Duration {
	return r.interval
}
