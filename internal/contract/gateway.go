package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"pumpcore/internal/observability"
)

// ErrReadOnly is returned by Write when the gateway has no signing key.
var ErrReadOnly = errors.New("gateway has no signing key")

// Backend is the contract surface the rest of the service depends on.
type Backend interface {
	// Read performs a view call and returns the positional outputs.
	Read(ctx context.Context, call Call) ([]any, error)

	// Write submits a transaction and returns its hash once accepted by the node.
	Write(ctx context.Context, call WriteCall) (common.Hash, error)
}

// Options configures Gateway.
type Options struct {
	RPCURL         string
	FactoryAddress common.Address
	PrivateKeyHex  string // optional; enables writes
	Logger         *zap.Logger
}

// Gateway talks to the factory contract over JSON-RPC.
type Gateway struct {
	client   *ethclient.Client
	contract *bind.BoundContract
	auth     *bind.TransactOpts
	account  common.Address
	chainID  *big.Int
	logger   *zap.Logger
}

// NewSigner builds transact options for a hex private key (0x optional)
// and returns the account it signs as.
func NewSigner(privateKeyHex string, chainID *big.Int) (*bind.TransactOpts, common.Address, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("parse private key: %w", err)
	}
	auth, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("create transactor: %w", err)
	}
	return auth, crypto.PubkeyToAddress(key.PublicKey), nil
}

// Dial connects to the node, resolves the chain id and binds the factory.
func Dial(ctx context.Context, opts Options) (*Gateway, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	client, err := ethclient.DialContext(ctx, opts.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("get chain id: %w", err)
	}

	parsed, err := FactoryMetaData.GetAbi()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("parse factory abi: %w", err)
	}

	g := &Gateway{
		client:   client,
		contract: bind.NewBoundContract(opts.FactoryAddress, *parsed, client, client, client),
		chainID:  chainID,
		logger:   opts.Logger.Named("contract"),
	}

	if opts.PrivateKeyHex != "" {
		auth, account, err := NewSigner(opts.PrivateKeyHex, chainID)
		if err != nil {
			client.Close()
			return nil, err
		}
		g.auth = auth
		g.account = account
	}

	g.logger.Info("factory bound",
		zap.String("factory", opts.FactoryAddress.Hex()),
		zap.String("chain_id", chainID.String()),
		zap.Bool("writable", g.auth != nil))

	return g, nil
}

// Read performs a single eth_call. There are no retries.
func (g *Gateway) Read(ctx context.Context, call Call) ([]any, error) {
	start := time.Now()
	var out []any
	err := g.contract.Call(&bind.CallOpts{Context: ctx}, &out, call.Method, call.Args...)
	observability.RecordContractCall(call.Method, statusOf(err), time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", call.Method, err)
	}
	return out, nil
}

// Write signs and submits a transaction with the configured key.
func (g *Gateway) Write(ctx context.Context, call WriteCall) (common.Hash, error) {
	if g.auth == nil {
		return common.Hash{}, ErrReadOnly
	}

	opts := *g.auth
	opts.Context = ctx
	opts.Value = call.Value

	start := time.Now()
	tx, err := g.contract.Transact(&opts, call.Method, call.Args...)
	observability.RecordContractCall(call.Method, statusOf(err), time.Since(start).Seconds())
	if err != nil {
		return common.Hash{}, fmt.Errorf("transact %s: %w", call.Method, err)
	}

	g.logger.Debug("transaction sent",
		zap.String("method", call.Method),
		zap.String("tx", tx.Hash().Hex()))

	return tx.Hash(), nil
}

// Account returns the signing address, or the zero address when read-only.
func (g *Gateway) Account() common.Address {
	return g.account
}

// ChainID returns the chain id reported by the node at dial time.
func (g *Gateway) ChainID() *big.Int {
	return new(big.Int).Set(g.chainID)
}

// Close releases the RPC connection.
func (g *Gateway) Close() {
	g.client.Close()
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
