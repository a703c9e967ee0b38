// Package catalog is the read side of the marketplace: token list, token
// detail, chart series and recorded history.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pumpcore/internal/contract"
	"pumpcore/internal/domain"
	"pumpcore/internal/ipfs"
	"pumpcore/internal/normalization"
	"pumpcore/internal/storage"
)

// ErrTokenNotFound is returned when the factory has no token at an address.
var ErrTokenNotFound = errors.New("token not found")

// DefaultListConcurrency bounds parallel per-token reads in List.
const DefaultListConcurrency = 8

// Reader performs contract reads. *connection.Connection satisfies it.
type Reader interface {
	SubmitRead(ctx context.Context, call contract.Call) ([]any, error)
}

// Options configures Service.
type Options struct {
	Reader          Reader
	Normalizer      *normalization.Normalizer // nil resolves images through ipfs.DefaultGateway
	Snapshots       storage.SnapshotStore     // optional
	Prices          storage.PriceHistoryStore // optional
	Location        *time.Location
	ListConcurrency int
	Now             func() time.Time
	Logger          *zap.Logger
}

// Service answers token queries from live contract reads.
type Service struct {
	reader      Reader
	normalizer  *normalization.Normalizer
	snapshots   storage.SnapshotStore
	prices      storage.PriceHistoryStore
	loc         *time.Location
	concurrency int
	now         func() time.Time
	logger      *zap.Logger
}

// New creates a Service.
func New(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Normalizer == nil {
		opts.Normalizer = normalization.NewNormalizer(ipfs.NewResolver(""), opts.Location)
	}
	if opts.ListConcurrency <= 0 {
		opts.ListConcurrency = DefaultListConcurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		reader:      opts.Reader,
		normalizer:  opts.Normalizer,
		snapshots:   opts.Snapshots,
		prices:      opts.Prices,
		loc:         opts.Location,
		concurrency: opts.ListConcurrency,
		now:         opts.Now,
		logger:      opts.Logger.Named("catalog"),
	}
}

// Addresses returns every token the factory has created, in factory order.
func (s *Service) Addresses(ctx context.Context) ([]common.Address, error) {
	out, err := s.reader.SubmitRead(ctx, contract.AllTokensCall())
	if err != nil {
		return nil, fmt.Errorf("read all tokens: %w", err)
	}
	return contract.DecodeAllTokens(out)
}

// List returns every token whose name or symbol contains query, ignoring
// case. An empty query matches all tokens. A token whose read fails is
// logged and left out.
func (s *Service) List(ctx context.Context, query string) ([]*domain.TokenInfo, error) {
	addrs, err := s.Addresses(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]*domain.TokenInfo, len(addrs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, addr := range addrs {
		g.Go(func() error {
			info, err := s.Get(gctx, addr)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Warn("skipping token",
					zap.String("token", addr.Hex()),
					zap.Error(err))
				return nil
			}
			infos[i] = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(query))
	result := make([]*domain.TokenInfo, 0, len(infos))
	for _, info := range infos {
		if info == nil {
			continue
		}
		if needle == "" ||
			strings.Contains(strings.ToLower(info.Name), needle) ||
			strings.Contains(strings.ToLower(info.Symbol), needle) {
			result = append(result, info)
		}
	}
	return result, nil
}

// Get reads and normalizes a single token. Missing descriptive metadata is
// not an error; the token is returned without description or image.
func (s *Service) Get(ctx context.Context, addr common.Address) (*domain.TokenInfo, error) {
	var (
		raw  *domain.RawTokenTuple
		data *domain.TokenData
		mu   sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := s.reader.SubmitRead(gctx, contract.TokensCall(addr))
		if err != nil {
			return fmt.Errorf("read token %s: %w", addr.Hex(), err)
		}
		decoded, err := contract.DecodeTokens(out)
		if err != nil {
			return err
		}
		mu.Lock()
		raw = decoded
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		decoded := s.tokenData(gctx, addr)
		mu.Lock()
		data = decoded
		mu.Unlock()
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if raw.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, addr.Hex())
	}
	return s.normalizer.Normalize(addr.Hex(), raw, data), nil
}

// FromTokensResult builds a token from an already completed tokens() read,
// such as one delivered to a cache subscriber. Only getTokenData is read.
func (s *Service) FromTokensResult(ctx context.Context, addr common.Address, out []any) (*domain.TokenInfo, error) {
	raw, err := contract.DecodeTokens(out)
	if err != nil {
		return nil, err
	}
	if raw.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, addr.Hex())
	}
	return s.normalizer.Normalize(addr.Hex(), raw, s.tokenData(ctx, addr)), nil
}

// tokenData reads the descriptive metadata. Failures yield nil.
func (s *Service) tokenData(ctx context.Context, addr common.Address) *domain.TokenData {
	out, err := s.reader.SubmitRead(ctx, contract.TokenDataCall(addr))
	if err == nil {
		var data *domain.TokenData
		if data, err = contract.DecodeTokenData(out); err == nil {
			return data
		}
	}
	s.logger.Debug("token data unavailable", zap.String("token", addr.Hex()), zap.Error(err))
	return nil
}

// Chart returns the best available price series: contract history, then
// history recorded by ingestion, then a synthetic placeholder derived from
// the current price.
func (s *Service) Chart(ctx context.Context, addr common.Address) (domain.Chart, error) {
	info, err := s.Get(ctx, addr)
	if err != nil {
		return domain.Chart{}, err
	}
	token := addr.Hex()

	out, err := s.reader.SubmitRead(ctx, contract.PriceHistoryCall(addr))
	if err == nil {
		var raw []domain.RawPricePoint
		raw, err = contract.DecodePriceHistory(out)
		if err == nil && len(raw) > 0 {
			return normalization.ContractChart(token, raw, s.loc), nil
		}
	}
	if err != nil {
		s.logger.Debug("contract price history unavailable", zap.String("token", token), zap.Error(err))
	}

	if s.prices != nil {
		points, err := s.prices.GetByToken(ctx, token)
		if err != nil {
			s.logger.Warn("read observed price history", zap.String("token", token), zap.Error(err))
		} else if len(points) > 0 {
			return normalization.ObservedChart(token, points, s.loc), nil
		}
	}

	return normalization.SyntheticChart(token, info.Price, s.now(), s.loc), nil
}

// History returns up to limit snapshots recorded for the token, newest first.
// Without a snapshot store it returns an empty list.
func (s *Service) History(ctx context.Context, addr common.Address, limit int) ([]*domain.TokenSnapshot, error) {
	if s.snapshots == nil {
		return []*domain.TokenSnapshot{}, nil
	}
	snaps, err := s.snapshots.GetByAddress(ctx, addr.Hex(), limit)
	if err != nil {
		return nil, fmt.Errorf("read snapshots: %w", err)
	}
	if snaps == nil {
		snaps = []*domain.TokenSnapshot{}
	}
	return snaps, nil
}
