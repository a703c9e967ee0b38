package trading

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pumpcore/internal/connection"
	"pumpcore/internal/contract"
	"pumpcore/internal/contract/stub"
	"pumpcore/internal/units"
)

var (
	account = common.HexToAddress("0xabc0000000000000000000000000000000000001")
	token   = common.HexToAddress("0x00000000000000000000000000000000000000aa")
)

func newConn(b *stub.Backend) *connection.Connection {
	return connection.New(connection.Options{Account: account, ChainID: big.NewInt(1115), Backend: b})
}

func half() *big.Int {
	return new(big.Int).Div(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil), big.NewInt(2))
}

func TestSubmit_Buy(t *testing.T) {
	b := stub.NewBackend()
	form := NewForm(newConn(b), SideBuy, token, nil)
	form.SetAmount("0.5", 1)

	hash, err := form.Submit(context.Background())
	require.NoError(t, err)

	writes := b.WriteCalls()
	require.Len(t, writes, 1)
	assert.Equal(t, contract.MethodBuyToken, writes[0].Method)
	assert.Equal(t, []any{token}, writes[0].Args)
	assert.Equal(t, 0, half().Cmp(writes[0].Value))

	assert.Empty(t, form.Amount)
	assert.Empty(t, form.Error)
	assert.Equal(t, hash, form.LastTx)
}

func TestSubmit_Sell(t *testing.T) {
	b := stub.NewBackend()
	form := NewForm(newConn(b), SideSell, token, nil)
	form.SetAmount("0.5", 1)

	_, err := form.Submit(context.Background())
	require.NoError(t, err)

	writes := b.WriteCalls()
	require.Len(t, writes, 1)
	assert.Equal(t, contract.MethodSell, writes[0].Method)
	assert.Nil(t, writes[0].Value)
	require.Len(t, writes[0].Args, 2)
	assert.Equal(t, 0, half().Cmp(writes[0].Args[1].(*big.Int)))
}

func TestSubmit_EmptyAmountIssuesNoCall(t *testing.T) {
	b := stub.NewBackend()
	form := NewForm(newConn(b), SideBuy, token, nil)
	form.SetAmount("  ", 1)

	_, err := form.Submit(context.Background())
	assert.ErrorIs(t, err, ErrEmptyAmount)
	assert.Empty(t, form.Error)
	assert.Empty(t, b.WriteCalls())
}

func TestSubmit_MalformedAmount(t *testing.T) {
	b := stub.NewBackend()
	form := NewForm(newConn(b), SideSell, token, nil)
	form.SetAmount("abc", 1)

	_, err := form.Submit(context.Background())
	assert.ErrorIs(t, err, units.ErrInvalidAmount)
	assert.Equal(t, "invalid amount", form.Error)
	assert.Equal(t, "abc", form.Amount)
	assert.Empty(t, b.WriteCalls())
}

func TestSubmit_RejectedWrite(t *testing.T) {
	b := stub.NewBackend()
	b.WriteErr = errors.New("execution reverted")
	form := NewForm(newConn(b), SideBuy, token, nil)
	form.SetAmount("1", 1)

	_, err := form.Submit(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execution reverted")
	assert.Equal(t, FailureMessage, form.Error)
	assert.Equal(t, "1", form.Amount)
	assert.Len(t, b.WriteCalls(), 1)
}

func TestSubmit_NotConnected(t *testing.T) {
	b := stub.NewBackend()
	form := NewForm(connection.New(connection.Options{Backend: b}), SideBuy, token, nil)
	form.SetAmount("1", 1)

	_, err := form.Submit(context.Background())
	assert.ErrorIs(t, err, connection.ErrNotConnected)
	assert.Empty(t, b.WriteCalls())
}

func TestSubmit_TwiceIssuesTwoCalls(t *testing.T) {
	b := stub.NewBackend()
	conn := newConn(b)

	first := NewForm(conn, SideBuy, token, nil)
	first.SetAmount("1", 1)
	second := NewForm(conn, SideBuy, token, nil)
	second.SetAmount("1", 1)

	h1, err := first.Submit(context.Background())
	require.NoError(t, err)
	h2, err := second.Submit(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
	assert.Len(t, b.WriteCalls(), 2)
}

func TestSetAmount_Estimate(t *testing.T) {
	form := NewForm(nil, SideBuy, token, nil)
	form.SetAmount("10", 2)
	assert.InDelta(t, 2.2, form.Estimate(), 1e-9)

	form.SetAmount("abc", 2)
	assert.InDelta(t, 2.2, form.Estimate(), 1e-9)
	assert.Equal(t, "abc", form.Amount)

	sell := NewForm(nil, SideSell, token, nil)
	sell.SetAmount("10", 2)
	assert.InDelta(t, 1.8, sell.Estimate(), 1e-9)
}

func TestParseSide(t *testing.T) {
	side, err := ParseSide(" BUY ")
	require.NoError(t, err)
	assert.Equal(t, SideBuy, side)

	side, err = ParseSide("sell")
	require.NoError(t, err)
	assert.Equal(t, SideSell, side)

	_, err = ParseSide("hold")
	assert.ErrorIs(t, err, ErrUnknownSide)
}
