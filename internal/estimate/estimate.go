// Package estimate provides the display-only trade estimate shown next to
// the buy and sell inputs. It is a linear impact heuristic, not the
// bonding-curve math the factory applies.
package estimate

import (
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// ImpactPerUnit is the fractional price impact applied per unit of size.
const ImpactPerUnit = 0.01

// Buy returns price * (1 + size * ImpactPerUnit).
func Buy(price, size float64) float64 {
	return price * (1 + size*ImpactPerUnit)
}

// Sell returns price * (1 - size * ImpactPerUnit). Large sizes may go negative.
func Sell(price, size float64) float64 {
	return price * (1 - size*ImpactPerUnit)
}

// Parse reads a decimal amount. ok is false for anything that is not
// decimal syntax, including the empty string.
func Parse(raw string) (size float64, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, false
	}
	return d.InexactFloat64(), true
}

// Quote holds the last computed buy and sell estimates. Unparseable input
// leaves the previous estimate in place.
type Quote struct {
	mu   sync.Mutex
	buy  float64
	sell float64
}

// NewQuote creates a Quote seeded with prior estimates.
func NewQuote(buy, sell float64) *Quote {
	return &Quote{buy: buy, sell: sell}
}

// UpdateBuy recomputes the buy estimate from raw input. It returns false,
// keeping the prior value, when raw does not parse.
func (q *Quote) UpdateBuy(price float64, raw string) bool {
	size, ok := Parse(raw)
	if !ok {
		return false
	}
	q.mu.Lock()
	q.buy = Buy(price, size)
	q.mu.Unlock()
	return true
}

// UpdateSell is the sell-side counterpart of UpdateBuy.
func (q *Quote) UpdateSell(price float64, raw string) bool {
	size, ok := Parse(raw)
	if !ok {
		return false
	}
	q.mu.Lock()
	q.sell = Sell(price, size)
	q.mu.Unlock()
	return true
}

// Buy returns the current buy estimate.
func (q *Quote) Buy() float64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.buy
}

// Sell returns the current sell estimate.
func (q *Quote) Sell() float64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.sell
}
