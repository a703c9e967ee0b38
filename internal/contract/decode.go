package contract

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"pumpcore/internal/domain"
)

// ErrUnexpectedShape is returned when a read result does not have the
// arity or element types the factory interface declares.
var ErrUnexpectedShape = errors.New("unexpected contract result shape")

const (
	tokensArity    = 11
	tokenDataArity = 5
)

// DecodeTokens decodes a tokens() result. Index 0 is the token address,
// indices 1..10 follow the factory's field order.
func DecodeTokens(out []any) (raw *domain.RawTokenTuple, err error) {
	if len(out) != tokensArity {
		return nil, fmt.Errorf("%w: tokens returned %d values", ErrUnexpectedShape, len(out))
	}
	defer recoverShape(&err)

	return &domain.RawTokenTuple{
		Token:           *abi.ConvertType(out[0], new(common.Address)).(*common.Address),
		Creator:         *abi.ConvertType(out[1], new(common.Address)).(*common.Address),
		Name:            *abi.ConvertType(out[2], new(string)).(*string),
		Symbol:          *abi.ConvertType(out[3], new(string)).(*string),
		Supply:          *abi.ConvertType(out[4], new(*big.Int)).(**big.Int),
		Reserve:         *abi.ConvertType(out[5], new(*big.Int)).(**big.Int),
		K:               *abi.ConvertType(out[6], new(*big.Int)).(**big.Int),
		CreatedAt:       *abi.ConvertType(out[7], new(*big.Int)).(**big.Int),
		TotalBuyVolume:  *abi.ConvertType(out[8], new(*big.Int)).(**big.Int),
		TotalSellVolume: *abi.ConvertType(out[9], new(*big.Int)).(**big.Int),
		HolderCount:     *abi.ConvertType(out[10], new(*big.Int)).(**big.Int),
	}, nil
}

// DecodeTokenData decodes getTokenData(): name, symbol, description,
// imageURI, creator.
func DecodeTokenData(out []any) (data *domain.TokenData, err error) {
	if len(out) != tokenDataArity {
		return nil, fmt.Errorf("%w: getTokenData returned %d values", ErrUnexpectedShape, len(out))
	}
	defer recoverShape(&err)

	return &domain.TokenData{
		Name:        *abi.ConvertType(out[0], new(string)).(*string),
		Symbol:      *abi.ConvertType(out[1], new(string)).(*string),
		Description: *abi.ConvertType(out[2], new(string)).(*string),
		ImageURI:    *abi.ConvertType(out[3], new(string)).(*string),
		Creator:     *abi.ConvertType(out[4], new(common.Address)).(*common.Address),
	}, nil
}

// DecodeAllTokens decodes getAllTokens().
func DecodeAllTokens(out []any) (tokens []common.Address, err error) {
	if len(out) != 1 {
		return nil, fmt.Errorf("%w: getAllTokens returned %d values", ErrUnexpectedShape, len(out))
	}
	defer recoverShape(&err)

	return *abi.ConvertType(out[0], new([]common.Address)).(*[]common.Address), nil
}

// DecodePriceHistory decodes getPriceHistory() as (timestamp, price) pairs.
func DecodePriceHistory(out []any) (points []domain.RawPricePoint, err error) {
	if len(out) != 1 {
		return nil, fmt.Errorf("%w: getPriceHistory returned %d values", ErrUnexpectedShape, len(out))
	}
	defer recoverShape(&err)

	return *abi.ConvertType(out[0], new([]domain.RawPricePoint)).(*[]domain.RawPricePoint), nil
}

// abi.ConvertType panics on incompatible values.
func recoverShape(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", ErrUnexpectedShape, r)
	}
}
