// Package connection holds the account and chain a session acts as and
// routes contract reads and writes for it.
package connection

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"pumpcore/internal/contract"
	"pumpcore/internal/observability"
	"pumpcore/internal/reqcache"
)

var (
	// ErrNotConnected is returned when a write is attempted without an account.
	ErrNotConnected = errors.New("wallet connection required")
	// ErrWrongChain is returned when the session is on a different chain than required.
	ErrWrongChain = errors.New("wrong chain")
)

// Options configures Connection.
type Options struct {
	Account common.Address // zero address means no wallet is connected
	ChainID *big.Int
	Backend contract.Backend
	Cache   *reqcache.Cache // nil creates a cache with no reuse
	Logger  *zap.Logger
}

// Connection is the explicit replacement for ambient wallet state. It is
// passed to every component that reads from or writes to the factory.
type Connection struct {
	account common.Address
	chainID *big.Int
	backend contract.Backend
	cache   *reqcache.Cache
	logger  *zap.Logger
}

// New creates a Connection.
func New(opts Options) *Connection {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Cache == nil {
		opts.Cache = reqcache.New(reqcache.Options{Logger: opts.Logger})
	}
	chainID := new(big.Int)
	if opts.ChainID != nil {
		chainID.Set(opts.ChainID)
	}
	return &Connection{
		account: opts.Account,
		chainID: chainID,
		backend: opts.Backend,
		cache:   opts.Cache,
		logger:  opts.Logger.Named("connection"),
	}
}

// CurrentAddress returns the connected account.
func (c *Connection) CurrentAddress() common.Address {
	return c.account
}

// CurrentChainID returns the chain the session is on.
func (c *Connection) CurrentChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// Connected reports whether an account is available for writes.
func (c *Connection) Connected() bool {
	return c.account != (common.Address{})
}

// RequireChain returns ErrWrongChain unless the session is on required.
func (c *Connection) RequireChain(required *big.Int) error {
	if required == nil || c.chainID.Cmp(required) == 0 {
		return nil
	}
	return fmt.Errorf("%w: on %s, need %s", ErrWrongChain, c.chainID, required)
}

// SubmitRead performs a read through the request cache. Concurrent reads of
// the same call share one backend request.
func (c *Connection) SubmitRead(ctx context.Context, call contract.Call) ([]any, error) {
	v, err := c.cache.Do(ctx, call.Key(), func(ctx context.Context) (any, error) {
		return c.backend.Read(ctx, call)
	})
	if err != nil {
		return nil, err
	}
	out, _ := v.([]any)
	return out, nil
}

// SubmitWrite sends a write once. On success the cached reads the write can
// affect are invalidated so the next read goes back to the chain.
func (c *Connection) SubmitWrite(ctx context.Context, call contract.WriteCall) (common.Hash, error) {
	if !c.Connected() {
		return common.Hash{}, ErrNotConnected
	}

	id := uuid.NewString()
	c.logger.Info("submitting write",
		zap.String("submission_id", id),
		zap.String("call", call.String()),
		zap.String("from", c.account.Hex()))

	hash, err := c.backend.Write(ctx, call)
	if err != nil {
		observability.RecordWrite(call.Method, "error")
		c.logger.Warn("write failed",
			zap.String("submission_id", id),
			zap.String("method", call.Method),
			zap.Error(err))
		return common.Hash{}, err
	}
	observability.RecordWrite(call.Method, "success")

	c.invalidate(call)
	c.logger.Info("write submitted",
		zap.String("submission_id", id),
		zap.String("tx", hash.Hex()))

	return hash, nil
}

// Subscribe delivers every fresh result of call to fn.
func (c *Connection) Subscribe(call contract.Call, fn func([]any)) (unsubscribe func()) {
	return c.cache.Subscribe(call.Key(), func(v any) {
		if out, ok := v.([]any); ok {
			fn(out)
		}
	})
}

func (c *Connection) invalidate(call contract.WriteCall) {
	if token, ok := call.Token(); ok {
		for _, read := range contract.TokenReads(token) {
			c.cache.Invalidate(read.Key())
		}
	}
	c.cache.Invalidate(contract.AllTokensCall().Key())
}
