// Package contract binds the token factory contract: method call
// descriptors, positional result decoders and an EVM gateway.
package contract

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Factory method names.
const (
	MethodTokens          = "tokens"
	MethodGetTokenData    = "getTokenData"
	MethodGetAllTokens    = "getAllTokens"
	MethodGetPriceHistory = "getPriceHistory"
	MethodBuyToken        = "buyToken"
	MethodSell            = "sell"
	MethodCreateToken     = "createToken"
)

// Call is a read-only contract invocation.
type Call struct {
	Method string
	Args   []any
}

// Key identifies the call for caching: method name plus arguments.
// Addresses are lowercased so checksum variants share a key.
func (c Call) Key() string {
	var b strings.Builder
	b.WriteString(c.Method)
	for _, arg := range c.Args {
		b.WriteByte(':')
		b.WriteString(formatArg(arg))
	}
	return b.String()
}

// TokensCall reads the positional token tuple.
func TokensCall(token common.Address) Call {
	return Call{Method: MethodTokens, Args: []any{token}}
}

// TokenDataCall reads the token's descriptive metadata.
func TokenDataCall(token common.Address) Call {
	return Call{Method: MethodGetTokenData, Args: []any{token}}
}

// AllTokensCall lists every token the factory created.
func AllTokensCall() Call {
	return Call{Method: MethodGetAllTokens}
}

// PriceHistoryCall reads the contract-recorded price series.
func PriceHistoryCall(token common.Address) Call {
	return Call{Method: MethodGetPriceHistory, Args: []any{token}}
}

// TokenReads returns every cached read scoped to a single token.
func TokenReads(token common.Address) []Call {
	return []Call{TokensCall(token), TokenDataCall(token), PriceHistoryCall(token)}
}

// WriteCall is a state-changing invocation. Value is the native amount
// attached to payable methods and is nil otherwise.
type WriteCall struct {
	Method string
	Args   []any
	Value  *big.Int
}

// Token returns the token the write affects, if the first argument is one.
func (w WriteCall) Token() (common.Address, bool) {
	if len(w.Args) == 0 {
		return common.Address{}, false
	}
	addr, ok := w.Args[0].(common.Address)
	return addr, ok
}

func (w WriteCall) String() string {
	return Call{Method: w.Method, Args: w.Args}.Key()
}

// BuyCall purchases token with value native units (scaled).
func BuyCall(token common.Address, value *big.Int) WriteCall {
	return WriteCall{Method: MethodBuyToken, Args: []any{token}, Value: value}
}

// SellCall sells amount tokens (scaled). No value is attached.
func SellCall(token common.Address, amount *big.Int) WriteCall {
	return WriteCall{Method: MethodSell, Args: []any{token, amount}}
}

// CreateTokenCall deploys a token with deposit attached as value.
func CreateTokenCall(name, symbol, description, imageURI string, k, deposit *big.Int) WriteCall {
	return WriteCall{
		Method: MethodCreateToken,
		Args:   []any{name, symbol, description, imageURI, k},
		Value:  deposit,
	}
}

func formatArg(arg any) string {
	switch v := arg.(type) {
	case common.Address:
		return strings.ToLower(v.Hex())
	case *big.Int:
		if v == nil {
			return "0"
		}
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
