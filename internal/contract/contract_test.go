package contract

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pumpcore/internal/domain"
)

var (
	tokenAddr   = common.HexToAddress("0x00000000000000000000000000000000000000aA")
	creatorAddr = common.HexToAddress("0x1234567890abcdef1234567890abcdef12345678")
)

func eth(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func TestCallKey(t *testing.T) {
	assert.Equal(t, "getAllTokens", AllTokensCall().Key())
	assert.Equal(t, "tokens:0x00000000000000000000000000000000000000aa", TokensCall(tokenAddr).Key())
	assert.NotEqual(t, TokensCall(tokenAddr).Key(), TokenDataCall(tokenAddr).Key())

	sell := SellCall(tokenAddr, big.NewInt(5))
	assert.Equal(t, "sell:0x00000000000000000000000000000000000000aa:5", sell.String())
	assert.Nil(t, sell.Value)

	token, ok := sell.Token()
	assert.True(t, ok)
	assert.Equal(t, tokenAddr, token)

	_, ok = CreateTokenCall("n", "S", "", "", big.NewInt(2), big.NewInt(1)).Token()
	assert.False(t, ok)
}

func TestDecodeTokens_FromABI(t *testing.T) {
	parsed, err := FactoryMetaData.GetAbi()
	require.NoError(t, err)

	packed, err := parsed.Methods[MethodTokens].Outputs.Pack(
		tokenAddr, creatorAddr, "DogCoin", "DOG",
		eth(1000), eth(500), big.NewInt(2), big.NewInt(1700000000),
		eth(10), eth(3), big.NewInt(42),
	)
	require.NoError(t, err)

	out, err := parsed.Unpack(MethodTokens, packed)
	require.NoError(t, err)

	raw, err := DecodeTokens(out)
	require.NoError(t, err)
	assert.Equal(t, tokenAddr, raw.Token)
	assert.Equal(t, creatorAddr, raw.Creator)
	assert.Equal(t, "DogCoin", raw.Name)
	assert.Equal(t, "DOG", raw.Symbol)
	assert.Equal(t, 0, eth(1000).Cmp(raw.Supply))
	assert.Equal(t, int64(42), raw.HolderCount.Int64())
	assert.False(t, raw.Empty())
}

func TestDecodeTokenData_FromABI(t *testing.T) {
	parsed, err := FactoryMetaData.GetAbi()
	require.NoError(t, err)

	packed, err := parsed.Methods[MethodGetTokenData].Outputs.Pack("DogCoin", "DOG", "much wow", "ipfs://QmHash", creatorAddr)
	require.NoError(t, err)
	out, err := parsed.Unpack(MethodGetTokenData, packed)
	require.NoError(t, err)

	data, err := DecodeTokenData(out)
	require.NoError(t, err)
	assert.Equal(t, "ipfs://QmHash", data.ImageURI)
	assert.Equal(t, "much wow", data.Description)
	assert.Equal(t, creatorAddr, data.Creator)
}

func TestDecodeAllTokens_FromABI(t *testing.T) {
	parsed, err := FactoryMetaData.GetAbi()
	require.NoError(t, err)

	packed, err := parsed.Methods[MethodGetAllTokens].Outputs.Pack([]common.Address{tokenAddr, creatorAddr})
	require.NoError(t, err)
	out, err := parsed.Unpack(MethodGetAllTokens, packed)
	require.NoError(t, err)

	tokens, err := DecodeAllTokens(out)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{tokenAddr, creatorAddr}, tokens)
}

func TestDecodePriceHistory_FromABI(t *testing.T) {
	parsed, err := FactoryMetaData.GetAbi()
	require.NoError(t, err)

	history := []domain.RawPricePoint{
		{Timestamp: big.NewInt(1700000000), Price: big.NewInt(5e17)},
		{Timestamp: big.NewInt(1700003600), Price: big.NewInt(6e17)},
	}
	packed, err := parsed.Methods[MethodGetPriceHistory].Outputs.Pack(history)
	require.NoError(t, err)
	out, err := parsed.Unpack(MethodGetPriceHistory, packed)
	require.NoError(t, err)

	points, err := DecodePriceHistory(out)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, int64(1700003600), points[1].Timestamp.Int64())
	assert.Equal(t, int64(6e17), points[1].Price.Int64())
}

func TestDecode_UnexpectedShape(t *testing.T) {
	_, err := DecodeTokens([]any{tokenAddr})
	assert.ErrorIs(t, err, ErrUnexpectedShape)

	bad := []any{tokenAddr, creatorAddr, "n", "s", "not a number", eth(1), eth(1), eth(1), eth(1), eth(1), eth(1)}
	_, err = DecodeTokens(bad)
	assert.ErrorIs(t, err, ErrUnexpectedShape)

	_, err = DecodeTokenData([]any{"a", "b"})
	assert.ErrorIs(t, err, ErrUnexpectedShape)

	_, err = DecodeAllTokens([]any{"0xnot-a-slice"})
	assert.ErrorIs(t, err, ErrUnexpectedShape)

	_, err = DecodePriceHistory(nil)
	assert.ErrorIs(t, err, ErrUnexpectedShape)
}

func TestNewSigner(t *testing.T) {
	auth, account, err := NewSigner("0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318", big.NewInt(1115))
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"), account)
	assert.Equal(t, account, auth.From)

	_, _, err = NewSigner("not-a-key", big.NewInt(1115))
	assert.Error(t, err)
}
