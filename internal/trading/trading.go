// Package trading submits buy and sell orders against the factory.
package trading

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"pumpcore/internal/contract"
	"pumpcore/internal/estimate"
	"pumpcore/internal/units"
)

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// FailureMessage is the form error shown when the write call is rejected.
const FailureMessage = "Transaction failed"

var (
	// ErrEmptyAmount is returned when Submit is called with no amount.
	// No write is issued and the form error is left untouched.
	ErrEmptyAmount = errors.New("amount is required")
	// ErrUnknownSide is returned for sides other than buy and sell.
	ErrUnknownSide = errors.New("unknown trade side")
)

// Writer submits write calls. *connection.Connection satisfies it.
type Writer interface {
	SubmitWrite(ctx context.Context, call contract.WriteCall) (common.Hash, error)
}

// ParseSide maps "buy" and "sell" (any case) to a Side.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSide, s)
	}
}

// Form holds the state of one trade input: the entered amount, the
// displayed estimate and the outcome of the last submission.
// A Form is owned by a single request or command and is not safe for
// concurrent use.
type Form struct {
	Side   Side
	Token  common.Address
	Amount string
	Error  string
	LastTx common.Hash

	quote  *estimate.Quote
	writer Writer
	logger *zap.Logger
}

// NewForm creates an empty form for side on token.
func NewForm(writer Writer, side Side, token common.Address, logger *zap.Logger) *Form {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Form{
		Side:   side,
		Token:  token,
		quote:  estimate.NewQuote(0, 0),
		writer: writer,
		logger: logger.Named("trading"),
	}
}

// SetAmount records the entered amount and refreshes the estimate against
// the current price. Unparseable input keeps the previous estimate.
func (f *Form) SetAmount(raw string, price float64) {
	f.Amount = raw
	if f.Side == SideSell {
		f.quote.UpdateSell(price, raw)
		return
	}
	f.quote.UpdateBuy(price, raw)
}

// Estimate returns the displayed price estimate for the form's side.
func (f *Form) Estimate() float64 {
	if f.Side == SideSell {
		return f.quote.Sell()
	}
	return f.quote.Buy()
}

// Call builds the write call for the current amount. Buy attaches the
// amount as value; sell passes it as an argument.
func (f *Form) Call() (contract.WriteCall, error) {
	if strings.TrimSpace(f.Amount) == "" {
		return contract.WriteCall{}, ErrEmptyAmount
	}
	scaled, err := units.ToScaled(f.Amount)
	if err != nil {
		return contract.WriteCall{}, err
	}
	switch f.Side {
	case SideBuy:
		return contract.BuyCall(f.Token, scaled), nil
	case SideSell:
		return contract.SellCall(f.Token, scaled), nil
	default:
		return contract.WriteCall{}, fmt.Errorf("%w: %q", ErrUnknownSide, f.Side)
	}
}

// Submit issues the write call once and waits for its result. On success
// the amount is cleared and the transaction hash recorded. On failure the
// form carries a single flat error. Nothing is retried; two submissions
// produce two calls.
func (f *Form) Submit(ctx context.Context) (common.Hash, error) {
	call, err := f.Call()
	if errors.Is(err, ErrEmptyAmount) {
		return common.Hash{}, err
	}
	if err != nil {
		f.Error = units.ErrInvalidAmount.Error()
		return common.Hash{}, err
	}

	hash, err := f.writer.SubmitWrite(ctx, call)
	if err != nil {
		f.logger.Error(string(f.Side)+" failed",
			zap.String("token", f.Token.Hex()),
			zap.String("amount", f.Amount),
			zap.Error(err))
		f.Error = FailureMessage
		return common.Hash{}, fmt.Errorf("%s %s: %w", f.Side, f.Token.Hex(), err)
	}

	f.Amount = ""
	f.Error = ""
	f.LastTx = hash
	return hash, nil
}
