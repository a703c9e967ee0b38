package stub

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"pumpcore/internal/contract"
	"pumpcore/internal/domain"
)

// ErrUnknownMethod is returned for methods the stub does not model.
var ErrUnknownMethod = errors.New("unknown method")

// Backend implements contract.Backend in memory for testing.
// Unknown tokens read back as zero-valued tuples, like the factory mapping.
type Backend struct {
	mu sync.Mutex

	Tokens  map[common.Address]*domain.RawTokenTuple
	Data    map[common.Address]*domain.TokenData
	History map[common.Address][]domain.RawPricePoint
	Order   []common.Address

	// ReadErr and WriteErr, when set, fail every read or write.
	ReadErr  error
	WriteErr error

	// Release, when set, blocks reads until it is closed.
	Release chan struct{}

	Writes []contract.WriteCall
	reads  map[string]int
	nonce  uint64
}

// NewBackend creates an empty stub backend.
func NewBackend() *Backend {
	return &Backend{
		Tokens:  make(map[common.Address]*domain.RawTokenTuple),
		Data:    make(map[common.Address]*domain.TokenData),
		History: make(map[common.Address][]domain.RawPricePoint),
		reads:   make(map[string]int),
	}
}

// AddToken registers a token tuple and its metadata.
func (b *Backend) AddToken(raw *domain.RawTokenTuple, data *domain.TokenData) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.Tokens[raw.Token]; !ok {
		b.Order = append(b.Order, raw.Token)
	}
	b.Tokens[raw.Token] = raw
	if data != nil {
		b.Data[raw.Token] = data
	}
}

// AddHistory registers getPriceHistory entries for a token.
func (b *Backend) AddHistory(token common.Address, points ...domain.RawPricePoint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.History[token] = append(b.History[token], points...)
}

// Reads returns how many times a call reached the backend.
func (b *Backend) Reads(call contract.Call) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reads[call.Key()]
}

// WriteCalls returns a copy of every submitted write.
func (b *Backend) WriteCalls() []contract.WriteCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]contract.WriteCall(nil), b.Writes...)
}

// Read returns outputs shaped like the factory ABI.
func (b *Backend) Read(ctx context.Context, call contract.Call) ([]any, error) {
	if b.Release != nil {
		select {
		case <-b.Release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.reads[call.Key()]++

	if b.ReadErr != nil {
		return nil, b.ReadErr
	}

	switch call.Method {
	case contract.MethodGetAllTokens:
		return []any{append([]common.Address{}, b.Order...)}, nil
	}

	if len(call.Args) != 1 {
		return nil, fmt.Errorf("%s: expected 1 argument, got %d", call.Method, len(call.Args))
	}
	token, ok := call.Args[0].(common.Address)
	if !ok {
		return nil, fmt.Errorf("%s: argument is %T", call.Method, call.Args[0])
	}

	switch call.Method {
	case contract.MethodTokens:
		raw := b.Tokens[token]
		if raw == nil {
			raw = &domain.RawTokenTuple{}
		}
		return []any{
			raw.Token, raw.Creator, raw.Name, raw.Symbol,
			orZero(raw.Supply), orZero(raw.Reserve), orZero(raw.K), orZero(raw.CreatedAt),
			orZero(raw.TotalBuyVolume), orZero(raw.TotalSellVolume), orZero(raw.HolderCount),
		}, nil
	case contract.MethodGetTokenData:
		data := b.Data[token]
		if data == nil {
			data = &domain.TokenData{}
		}
		return []any{data.Name, data.Symbol, data.Description, data.ImageURI, data.Creator}, nil
	case contract.MethodGetPriceHistory:
		return []any{append([]domain.RawPricePoint{}, b.History[token]...)}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, call.Method)
	}
}

// Write records the call and returns a deterministic hash.
func (b *Backend) Write(_ context.Context, call contract.WriteCall) (common.Hash, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.Writes = append(b.Writes, call)
	if b.WriteErr != nil {
		return common.Hash{}, b.WriteErr
	}

	b.nonce++
	return common.BigToHash(new(big.Int).SetUint64(b.nonce)), nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
