package creation

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
	"pumpcore/internal/ipfs"
)

var account = common.HexToAddress("0xabc0000000000000000000000000000000000001")

type fakePinner struct {
	cid   string
	err   error
	calls []ipfs.PinRequest
}

func (p *fakePinner) PinFile(_ context.Context, req ipfs.PinRequest) (string, error) {
	p.calls = append(p.calls, req)
	return p.cid, p.err
}

func newForm(b *stub.Backend, pinner Pinner, chainID int64) *Form {
	conn := connection.New(connection.Options{
		Account: account,
		ChainID: big.NewInt(chainID),
		Backend: b,
	})
	return NewForm(Options{
		Session:         conn,
		Pinner:          pinner,
		RequiredChainID: big.NewInt(DefaultChainID),
	})
}

func fill(f *Form) {
	f.Name = "DogCoin"
	f.SetTicker("dog")
	f.K = "2"
	f.Description = "much wow"
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		k     string
		field string
		msg   string
	}{
		{"too large", "5000", FieldK, "Must be a positive number between 1 and 1000"},
		{"zero", "0", FieldK, "Must be a positive number between 1 and 1000"},
		{"negative", "-1", FieldK, "Must be a positive number between 1 and 1000"},
		{"not a number", "abc", FieldK, "Must be a positive number between 1 and 1000"},
		{"empty", " ", FieldK, "Must be a positive number between 1 and 1000"},
		{"fractional", "2.5", FieldK, "Must be a whole number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewForm(Options{})
			fill(f)
			f.K = tt.k
			assert.False(t, f.Validate())
			assert.Equal(t, tt.msg, f.Errors[tt.field])
		})
	}
}

func TestValidate_RequiredFields(t *testing.T) {
	f := NewForm(Options{})
	assert.Equal(t, DefaultK, f.K)
	assert.False(t, f.Validate())
	assert.Equal(t, "Coin name is required", f.Errors[FieldName])
	assert.Equal(t, "Ticker symbol is required", f.Errors[FieldTicker])
	assert.NotContains(t, f.Errors, FieldK)

	fill(f)
	f.K = "1000"
	assert.True(t, f.Validate())
	assert.Empty(t, f.Errors)
}

func TestSubmit_InvalidKIssuesNoWrite(t *testing.T) {
	b := stub.NewBackend()
	f := newForm(b, nil, DefaultChainID)
	fill(f)
	f.K = "5000"

	_, err := f.Submit(context.Background())
	assert.ErrorIs(t, err, ErrInvalidForm)
	assert.Equal(t, "Must be a positive number between 1 and 1000", f.Errors[FieldK])
	assert.Empty(t, b.WriteCalls())
}

func TestSubmit_WithoutImage(t *testing.T) {
	b := stub.NewBackend()
	f := newForm(b, nil, DefaultChainID)
	fill(f)

	hash, err := f.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, hash, f.LastTx)

	writes := b.WriteCalls()
	require.Len(t, writes, 1)
	assert.Equal(t, contract.MethodCreateToken, writes[0].Method)
	assert.Equal(t, "DogCoin", writes[0].Args[0])
	assert.Equal(t, "DOG", writes[0].Args[1])
	assert.Equal(t, "much wow", writes[0].Args[2])
	assert.Equal(t, "", writes[0].Args[3])
	assert.Equal(t, 0, big.NewInt(2).Cmp(writes[0].Args[4].(*big.Int)))
	assert.Equal(t, "10000000000000000", writes[0].Value.String())
}

func TestSubmit_UploadsImage(t *testing.T) {
	b := stub.NewBackend()
	pinner := &fakePinner{cid: "abc123"}
	f := newForm(b, pinner, DefaultChainID)
	fill(f)
	require.True(t, f.SetImage("dog.png", []byte("png")))

	_, err := f.Submit(context.Background())
	require.NoError(t, err)

	require.Len(t, pinner.calls, 1)
	assert.Equal(t, "DogCoin", pinner.calls[0].TokenName)
	assert.Equal(t, "DOG", pinner.calls[0].TokenSymbol)
	assert.Equal(t, StatusUploaded, f.UploadStatus)

	writes := b.WriteCalls()
	require.Len(t, writes, 1)
	assert.Equal(t, "ipfs://abc123", writes[0].Args[3])
}

func TestSubmit_CreateFailsAfterUploadKeepsCID(t *testing.T) {
	b := stub.NewBackend()
	b.WriteErr = errors.New("user rejected the request")
	pinner := &fakePinner{cid: "abc123"}
	f := newForm(b, pinner, DefaultChainID)
	fill(f)
	require.True(t, f.SetImage("dog.png", []byte("png")))

	_, err := f.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, "user rejected the request", f.Errors[FieldSubmit])
	assert.Equal(t, "abc123", f.ImageCID)

	// A retry reuses the pinned identifier.
	b.WriteErr = nil
	_, err = f.Submit(context.Background())
	require.NoError(t, err)
	assert.Len(t, pinner.calls, 1)

	writes := b.WriteCalls()
	require.Len(t, writes, 2)
	assert.Equal(t, "ipfs://abc123", writes[1].Args[3])
}

func TestSubmit_UploadFailure(t *testing.T) {
	b := stub.NewBackend()
	pinner := &fakePinner{err: errors.New("quota exceeded")}
	f := newForm(b, pinner, DefaultChainID)
	fill(f)
	require.True(t, f.SetImage("dog.png", []byte("png")))

	_, err := f.Submit(context.Background())
	assert.ErrorIs(t, err, ErrUploadFailed)
	assert.Equal(t, "Failed to upload image: quota exceeded", f.Errors[FieldImage])
	assert.Equal(t, "Failed to upload image. Please try again.", f.Errors[FieldSubmit])
	assert.Equal(t, StatusFailed, f.UploadStatus)
	assert.Empty(t, b.WriteCalls())
}

func TestSubmit_MissingIdentifier(t *testing.T) {
	b := stub.NewBackend()
	f := newForm(b, &fakePinner{}, DefaultChainID)
	fill(f)
	require.True(t, f.SetImage("dog.png", []byte("png")))

	_, err := f.Submit(context.Background())
	assert.ErrorIs(t, err, ipfs.ErrMissingIdentifier)
	assert.Empty(t, b.WriteCalls())
}

func TestSubmit_NoPinnerConfigured(t *testing.T) {
	b := stub.NewBackend()
	f := newForm(b, nil, DefaultChainID)
	fill(f)
	require.True(t, f.SetImage("dog.png", []byte("png")))

	_, err := f.Submit(context.Background())
	assert.ErrorIs(t, err, ErrNoPinner)
	assert.Empty(t, b.WriteCalls())
}

func TestSubmit_WrongChain(t *testing.T) {
	b := stub.NewBackend()
	f := newForm(b, nil, 1)
	fill(f)

	_, err := f.Submit(context.Background())
	assert.ErrorIs(t, err, connection.ErrWrongChain)
	assert.Equal(t, "Please switch to chain ID 1115", f.Errors[FieldSubmit])
	assert.Empty(t, b.WriteCalls())
}

func TestSubmit_NoRequiredChain(t *testing.T) {
	b := stub.NewBackend()
	f := NewForm(Options{Session: connection.New(connection.Options{
		Account: account,
		ChainID: big.NewInt(1),
		Backend: b,
	})})
	fill(f)

	_, err := f.Submit(context.Background())
	require.NoError(t, err)
	assert.Len(t, b.WriteCalls(), 1)
}

func TestSubmit_NotConnected(t *testing.T) {
	b := stub.NewBackend()
	f := NewForm(Options{Session: connection.New(connection.Options{Backend: b})})
	fill(f)

	_, err := f.Submit(context.Background())
	assert.ErrorIs(t, err, connection.ErrNotConnected)
	assert.Equal(t, "Wallet connection required", f.Errors[FieldSubmit])
	assert.Empty(t, b.WriteCalls())
}

func TestSetImage(t *testing.T) {
	f := NewForm(Options{})
	assert.False(t, f.SetImage("big.png", make([]byte, MaxImageBytes+1)))
	assert.Equal(t, "Image must be less than 5MB", f.Errors[FieldImage])
	assert.Nil(t, f.Image)

	f.ImageCID = "abc123"
	assert.True(t, f.SetImage("ok.png", make([]byte, MaxImageBytes)))
	assert.NotContains(t, f.Errors, FieldImage)
	assert.Empty(t, f.ImageCID)
}

func TestReset(t *testing.T) {
	f := NewForm(Options{})
	fill(f)
	f.SetImage("dog.png", []byte("png"))
	f.ImageCID = "abc123"
	f.Errors[FieldSubmit] = "boom"

	f.Reset()
	assert.Empty(t, f.Name)
	assert.Empty(t, f.Ticker)
	assert.Equal(t, DefaultK, f.K)
	assert.Nil(t, f.Image)
	assert.Empty(t, f.ImageCID)
	assert.Empty(t, f.Errors)
}
