package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pumpcore/internal/catalog"
	"pumpcore/internal/connection"
	"pumpcore/internal/contract"
	"pumpcore/internal/contract/stub"
	"pumpcore/internal/creation"
	"pumpcore/internal/domain"
	"pumpcore/internal/ipfs"
)

var (
	account = common.HexToAddress("0xabc0000000000000000000000000000000000001")
	dogAddr = common.HexToAddress("0x00000000000000000000000000000000000000d0")
)

func scaled(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func dogCoin(reserve int64) *domain.RawTokenTuple {
	return &domain.RawTokenTuple{
		Token:       dogAddr,
		Creator:     common.HexToAddress("0x1234567890abcdef1234567890abcdef12345678"),
		Name:        "DogCoin",
		Symbol:      "DOG",
		Supply:      scaled(1000),
		Reserve:     scaled(reserve),
		K:           big.NewInt(2),
		CreatedAt:   big.NewInt(1700000000),
		HolderCount: big.NewInt(42),
	}
}

type fakePinner struct {
	cid string
	err error
}

func (p *fakePinner) PinFile(context.Context, ipfs.PinRequest) (string, error) {
	return p.cid, p.err
}

type fixture struct {
	backend *stub.Backend
	conn    *connection.Connection
	pinner  *fakePinner
	srv     *httptest.Server
}

func newFixture(t *testing.T, acct common.Address, chainID int64) *fixture {
	t.Helper()
	b := stub.NewBackend()
	b.AddToken(dogCoin(500), &domain.TokenData{Name: "DogCoin", Symbol: "DOG", ImageURI: "ipfs://QmDog"})

	conn := connection.New(connection.Options{Account: acct, ChainID: big.NewInt(chainID), Backend: b})
	pinner := &fakePinner{cid: "abc123"}
	s := NewServer(Options{
		Catalog:         catalog.New(catalog.Options{Reader: conn}),
		Session:         conn,
		Pinner:          pinner,
		RequiredChainID: big.NewInt(creation.DefaultChainID),
	})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &fixture{backend: b, conn: conn, pinner: pinner, srv: srv}
}

func (f *fixture) get(t *testing.T, path string, v any) int {
	t.Helper()
	resp, err := http.Get(f.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func (f *fixture) postJSON(t *testing.T, path, body string, v any) int {
	t.Helper()
	resp, err := http.Post(f.srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func tokenPath(suffix string) string {
	return "/api/v1/tokens/" + dogAddr.Hex() + suffix
}

func TestHealthAndStatus(t *testing.T) {
	f := newFixture(t, account, creation.DefaultChainID)

	resp, err := http.Get(f.srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var status StatusResponse
	assert.Equal(t, http.StatusOK, f.get(t, "/status", &status))
	assert.Equal(t, "running", status.Status)

	resp, err = http.Get(f.srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListTokens(t *testing.T) {
	f := newFixture(t, account, creation.DefaultChainID)

	var tokens []map[string]any
	assert.Equal(t, http.StatusOK, f.get(t, "/api/v1/tokens", &tokens))
	require.Len(t, tokens, 1)
	assert.Equal(t, "DogCoin", tokens[0]["name"])
	assert.Equal(t, 500.0, tokens[0]["marketCap"])
	assert.Equal(t, "0x1234...5678", tokens[0]["shortCreator"])

	assert.Equal(t, http.StatusOK, f.get(t, "/api/v1/tokens?q=cat", &tokens))
	assert.Empty(t, tokens)
}

func TestGetToken(t *testing.T) {
	f := newFixture(t, account, creation.DefaultChainID)

	var token map[string]any
	assert.Equal(t, http.StatusOK, f.get(t, tokenPath(""), &token))
	assert.Equal(t, 0.5, token["price"])
	assert.Equal(t, 42.0, token["holderCount"])
	assert.Equal(t, "11/14/2023", token["createdAt"])
	assert.Equal(t, ipfs.DefaultGateway+"QmDog", token["imageUrl"])

	var errResp ErrorResponse
	assert.Equal(t, http.StatusNotFound, f.get(t, "/api/v1/tokens/"+common.HexToAddress("0x99").Hex(), &errResp))
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/v1/tokens/not-an-address", &errResp))
}

func TestChartAndHistory(t *testing.T) {
	f := newFixture(t, account, creation.DefaultChainID)

	var chart domain.Chart
	assert.Equal(t, http.StatusOK, f.get(t, tokenPath("/chart"), &chart))
	assert.Equal(t, domain.PriceSourceSynthetic, chart.Source)
	assert.Len(t, chart.Points, 30)

	var history []any
	assert.Equal(t, http.StatusOK, f.get(t, tokenPath("/history?limit=5"), &history))
	assert.Empty(t, history)

	assert.Equal(t, http.StatusBadRequest, f.get(t, tokenPath("/history?limit=-1"), nil))
}

func TestEstimate(t *testing.T) {
	f := newFixture(t, account, creation.DefaultChainID)

	var est EstimateResponse
	assert.Equal(t, http.StatusOK, f.get(t, tokenPath("/estimate?side=buy&amount=10"), &est))
	assert.True(t, est.Applied)
	assert.InDelta(t, 0.55, est.Estimate, 1e-9)

	assert.Equal(t, http.StatusOK, f.get(t, tokenPath("/estimate?side=sell&amount=abc&prior=0.7"), &est))
	assert.False(t, est.Applied)
	assert.Equal(t, 0.7, est.Estimate)

	assert.Equal(t, http.StatusBadRequest, f.get(t, tokenPath("/estimate?side=hold&amount=1"), nil))
}

func TestTrade(t *testing.T) {
	f := newFixture(t, account, creation.DefaultChainID)

	var resp WriteResponse
	assert.Equal(t, http.StatusOK, f.postJSON(t, tokenPath("/buy"), `{"amount":"0.5"}`, &resp))
	assert.NotEmpty(t, resp.TxHash)

	assert.Equal(t, http.StatusOK, f.postJSON(t, tokenPath("/sell"), `{"amount":"10"}`, &resp))

	writes := f.backend.WriteCalls()
	require.Len(t, writes, 2)
	assert.Equal(t, contract.MethodBuyToken, writes[0].Method)
	assert.Equal(t, contract.MethodSell, writes[1].Method)
	assert.Equal(t, 0, scaled(10).Cmp(writes[1].Args[1].(*big.Int)))

	var errResp ErrorResponse
	assert.Equal(t, http.StatusBadRequest, f.postJSON(t, tokenPath("/buy"), `{"amount":""}`, &errResp))
	assert.Equal(t, http.StatusBadRequest, f.postJSON(t, tokenPath("/buy"), `{"amount":"abc"}`, &errResp))
	assert.Len(t, f.backend.WriteCalls(), 2)

	f.backend.WriteErr = errors.New("execution reverted")
	assert.Equal(t, http.StatusBadGateway, f.postJSON(t, tokenPath("/buy"), `{"amount":"1"}`, &errResp))
	assert.Equal(t, "Transaction failed", errResp.Error)
}

func TestTrade_NotConnected(t *testing.T) {
	f := newFixture(t, common.Address{}, creation.DefaultChainID)

	var errResp ErrorResponse
	assert.Equal(t, http.StatusForbidden, f.postJSON(t, tokenPath("/buy"), `{"amount":"1"}`, &errResp))
	assert.Equal(t, "wallet connection required", errResp.Error)

	assert.Equal(t, http.StatusForbidden, f.postJSON(t, tokenPath("/sell"), `{"amount":"1"}`, &errResp))
	assert.Empty(t, f.backend.WriteCalls())
}

func TestTrade_ReadOnlyGateway(t *testing.T) {
	f := newFixture(t, account, creation.DefaultChainID)
	f.backend.WriteErr = contract.ErrReadOnly

	var errResp ErrorResponse
	assert.Equal(t, http.StatusForbidden, f.postJSON(t, tokenPath("/buy"), `{"amount":"1"}`, &errResp))
	assert.Equal(t, contract.ErrReadOnly.Error(), errResp.Error)

	assert.Equal(t, http.StatusForbidden, f.postJSON(t, tokenPath("/sell"), `{"amount":"1"}`, &errResp))
	assert.Equal(t, contract.ErrReadOnly.Error(), errResp.Error)
}

func multipartBody(t *testing.T, fields map[string]string, image []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if image != nil {
		part, err := mw.CreateFormFile("image", "dog.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (f *fixture) create(t *testing.T, fields map[string]string, image []byte, v any) int {
	t.Helper()
	body, contentType := multipartBody(t, fields, image)
	resp, err := http.Post(f.srv.URL+"/api/v1/tokens", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp.StatusCode
}

func TestCreateToken(t *testing.T) {
	f := newFixture(t, account, creation.DefaultChainID)

	var resp WriteResponse
	code := f.create(t, map[string]string{"name": "CatCoin", "ticker": "meow", "k": "3"}, []byte("png"), &resp)
	assert.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "abc123", resp.ImageCID)

	writes := f.backend.WriteCalls()
	require.Len(t, writes, 1)
	assert.Equal(t, contract.MethodCreateToken, writes[0].Method)
	assert.Equal(t, "MEOW", writes[0].Args[1])
	assert.Equal(t, "ipfs://abc123", writes[0].Args[3])
}

func TestCreateToken_Validation(t *testing.T) {
	f := newFixture(t, account, creation.DefaultChainID)

	var errResp ErrorResponse
	code := f.create(t, map[string]string{"name": "CatCoin", "ticker": "MEOW", "k": "5000"}, nil, &errResp)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Must be a positive number between 1 and 1000", errResp.Fields[creation.FieldK])
	assert.Empty(t, f.backend.WriteCalls())
}

func TestCreateToken_UploadFailure(t *testing.T) {
	f := newFixture(t, account, creation.DefaultChainID)
	f.pinner.err = errors.New("quota exceeded")

	var errResp ErrorResponse
	code := f.create(t, map[string]string{"name": "CatCoin", "ticker": "MEOW"}, []byte("png"), &errResp)
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, "Failed to upload image. Please try again.", errResp.Error)
	assert.Equal(t, "Failed to upload image: quota exceeded", errResp.Fields[creation.FieldImage])
	assert.Empty(t, f.backend.WriteCalls())
}

func TestCreateToken_WrongChain(t *testing.T) {
	f := newFixture(t, account, 1)

	var errResp ErrorResponse
	code := f.create(t, map[string]string{"name": "CatCoin", "ticker": "MEOW"}, nil, &errResp)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "Please switch to chain ID 1115", errResp.Error)
}

func TestLiveToken(t *testing.T) {
	f := newFixture(t, account, creation.DefaultChainID)

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/tokens/" + dogAddr.Hex()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))

	var first map[string]any
	require.NoError(t, ws.ReadJSON(&first))
	assert.Equal(t, 0.5, first["price"])

	// A fresh tokens() read anywhere in the process reaches the feed.
	f.backend.AddToken(dogCoin(800), nil)
	_, err = f.conn.SubmitRead(context.Background(), contract.TokensCall(dogAddr))
	require.NoError(t, err)

	var update map[string]any
	require.NoError(t, ws.ReadJSON(&update))
	assert.Equal(t, 0.8, update["price"])
}

func TestLiveToken_UnknownToken(t *testing.T) {
	f := newFixture(t, account, creation.DefaultChainID)

	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/tokens/" + common.HexToAddress("0x99").Hex()
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
