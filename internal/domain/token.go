package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// RawTokenTuple is the positional result of the factory's tokens(address) call.
// Scaled fields carry 18 decimal places.
type RawTokenTuple struct {
	Token           common.Address // index 0, echoed token address
	Creator         common.Address // index 1
	Name            string         // index 2
	Symbol          string         // index 3
	Supply          *big.Int       // index 4, scaled
	Reserve         *big.Int       // index 5, scaled
	K               *big.Int       // index 6, curve constant
	CreatedAt       *big.Int       // index 7, unix seconds
	TotalBuyVolume  *big.Int       // index 8, scaled
	TotalSellVolume *big.Int       // index 9, scaled
	HolderCount     *big.Int       // index 10
}

// Empty reports whether the contract returned the zero tuple, which is what
// a mapping lookup yields for an unknown token.
func (r *RawTokenTuple) Empty() bool {
	return r == nil || r.Creator == (common.Address{})
}

// TokenData is the result of getTokenData(address). ImageURI sits at index 3.
type TokenData struct {
	Name        string
	Symbol      string
	Description string
	ImageURI    string
	Creator     common.Address
}

// TokenInfo is the presented token model. It is rebuilt from the latest
// contract reads on every request and never mutated in place.
type TokenInfo struct {
	Address         string  `json:"address"`
	Creator         string  `json:"creator"`
	Name            string  `json:"name"`
	Symbol          string  `json:"symbol"`
	Description     string  `json:"description,omitempty"`
	Supply          float64 `json:"supply"`
	Reserve         float64 `json:"reserve"`
	K               int64   `json:"k"`
	CreatedAt       string  `json:"createdAt"`
	CreatedAtUnix   int64   `json:"createdAtUnix"`
	TotalBuyVolume  float64 `json:"totalBuyVolume"`
	TotalSellVolume float64 `json:"totalSellVolume"`
	HolderCount     int64   `json:"holderCount"`
	Price           float64 `json:"price"`
	ImageURL        string  `json:"imageUrl"`
}

// MarketCap is price times circulating supply.
func (t *TokenInfo) MarketCap() float64 {
	return t.Price * t.Supply
}

// ShortCreator abbreviates the creator address as 0x1234...abcd.
func (t *TokenInfo) ShortCreator() string {
	if len(t.Creator) <= 10 {
		return t.Creator
	}
	return t.Creator[:6] + "..." + t.Creator[len(t.Creator)-4:]
}
