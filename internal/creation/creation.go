// Package creation validates token launch requests, pins the token image
// and submits createToken.
package creation

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pumpcore/internal/connection"
	"pumpcore/internal/contract"
	"pumpcore/internal/ipfs"
	"pumpcore/internal/units"
)

const (
	// DefaultK is the curve constant a new form starts with.
	DefaultK = "1000"
	// MaxK is the largest accepted curve constant.
	MaxK = 1000
	// MaxImageBytes is the upload size limit.
	MaxImageBytes = 5 << 20
	// DefaultDeposit is the initial liquidity attached to createToken, in native units.
	DefaultDeposit = "0.01"
	// DefaultChainID is Core DAO testnet.
	DefaultChainID = 1115
)

// Form field keys used in Errors.
const (
	FieldName   = "name"
	FieldTicker = "ticker"
	FieldK      = "k"
	FieldImage  = "image"
	FieldSubmit = "submit"
)

// Upload status values.
const (
	StatusUploading = "Uploading to IPFS..."
	StatusUploaded  = "Upload complete!"
	StatusFailed    = "Upload failed!"
)

const (
	msgNameRequired   = "Coin name is required"
	msgTickerRequired = "Ticker symbol is required"
	msgKRange         = "Must be a positive number between 1 and 1000"
	msgKWhole         = "Must be a whole number"
	msgImageTooLarge  = "Image must be less than 5MB"
	msgNotConnected   = "Wallet connection required"
	msgUploadRetry    = "Failed to upload image. Please try again."
	msgTxFailed       = "Transaction failed"
)

var (
	// ErrInvalidForm is returned by Submit when field validation fails.
	ErrInvalidForm = errors.New("invalid token form")
	// ErrUploadFailed is returned when the image could not be pinned.
	ErrUploadFailed = errors.New("image upload failed")
	// ErrNoPinner is returned when an image is attached but no pinning client is configured.
	ErrNoPinner = errors.New("image pinning is not configured")
)

// Pinner uploads an image and returns its content identifier.
type Pinner interface {
	PinFile(ctx context.Context, req ipfs.PinRequest) (string, error)
}

// Session is the connection a form submits through.
// *connection.Connection satisfies it.
type Session interface {
	Connected() bool
	RequireChain(required *big.Int) error
	SubmitWrite(ctx context.Context, call contract.WriteCall) (common.Hash, error)
}

// Options configures a Form.
type Options struct {
	Session         Session
	Pinner          Pinner   // optional; required only when an image is attached
	RequiredChainID *big.Int // nil disables the chain check
	Deposit         *big.Int // scaled; nil uses DefaultDeposit
	Logger          *zap.Logger
}

// Image is an attached image file.
type Image struct {
	FileName string
	Content  []byte
}

// Form is the token creation form. It keeps the pinned image identifier
// across failed submissions so a retry does not upload again. A Form is
// owned by one request or command and is not safe for concurrent use.
type Form struct {
	Name        string
	Ticker      string
	K           string
	Description string
	Image       *Image

	// ImageCID is set once the image is pinned and cleared when a new
	// image is attached or the form is reset.
	ImageCID     string
	UploadStatus string
	Errors       map[string]string
	LastTx       common.Hash

	opts   Options
	logger *zap.Logger
}

// NewForm creates an empty form.
func NewForm(opts Options) *Form {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Deposit == nil {
		opts.Deposit, _ = units.ToScaled(DefaultDeposit)
	}
	f := &Form{opts: opts, logger: opts.Logger.Named("creation")}
	f.Reset()
	return f
}

// Reset clears every field, error and pinned identifier.
func (f *Form) Reset() {
	f.Name = ""
	f.Ticker = ""
	f.K = DefaultK
	f.Description = ""
	f.Image = nil
	f.ImageCID = ""
	f.UploadStatus = ""
	f.Errors = map[string]string{}
	f.LastTx = common.Hash{}
}

// SetTicker stores the ticker upper-cased.
func (f *Form) SetTicker(s string) {
	f.Ticker = strings.ToUpper(s)
}

// SetImage attaches an image. Oversized files are rejected with a field
// error and leave the current image in place. A new image discards any
// previously pinned identifier.
func (f *Form) SetImage(fileName string, content []byte) bool {
	if len(content) > MaxImageBytes {
		f.Errors[FieldImage] = msgImageTooLarge
		return false
	}
	delete(f.Errors, FieldImage)
	f.Image = &Image{FileName: fileName, Content: content}
	f.ImageCID = ""
	return true
}

// Validate checks the fields and replaces Errors with the result.
func (f *Form) Validate() bool {
	errs := map[string]string{}
	if strings.TrimSpace(f.Name) == "" {
		errs[FieldName] = msgNameRequired
	}
	if strings.TrimSpace(f.Ticker) == "" {
		errs[FieldTicker] = msgTickerRequired
	}
	if _, msg := parseK(f.K); msg != "" {
		errs[FieldK] = msg
	}
	f.Errors = errs
	return len(errs) == 0
}

// parseK returns the curve constant or the field error for raw.
func parseK(raw string) (*big.Int, string) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || !d.IsPositive() || d.GreaterThan(decimal.NewFromInt(MaxK)) {
		return nil, msgKRange
	}
	if !d.IsInteger() {
		return nil, msgKWhole
	}
	return d.BigInt(), ""
}

// Upload pins the attached image unless it is already pinned and returns
// the on-chain image reference. With no image it returns "".
func (f *Form) Upload(ctx context.Context) (string, error) {
	if f.Image == nil {
		return "", nil
	}
	if f.ImageCID != "" {
		return ipfs.URI(f.ImageCID), nil
	}
	if f.opts.Pinner == nil {
		return "", f.uploadFailed(ErrNoPinner)
	}

	f.UploadStatus = StatusUploading
	cid, err := f.opts.Pinner.PinFile(ctx, ipfs.PinRequest{
		FileName:    f.Image.FileName,
		Content:     f.Image.Content,
		TokenName:   f.Name,
		TokenSymbol: strings.ToUpper(f.Ticker),
	})
	if err == nil && cid == "" {
		err = ipfs.ErrMissingIdentifier
	}
	if err != nil {
		return "", f.uploadFailed(err)
	}

	f.ImageCID = cid
	f.UploadStatus = StatusUploaded
	f.logger.Info("image pinned", zap.String("cid", cid), zap.String("token_name", f.Name))
	return ipfs.URI(cid), nil
}

func (f *Form) uploadFailed(err error) error {
	f.UploadStatus = StatusFailed
	f.Errors[FieldImage] = "Failed to upload image: " + err.Error()
	f.logger.Warn("image upload failed", zap.String("token_name", f.Name), zap.Error(err))
	return fmt.Errorf("%w: %w", ErrUploadFailed, err)
}

// Submit validates the form, checks the session, pins the image if needed
// and issues createToken with the initial deposit. Upload and creation are
// independent calls: when creation fails after an upload the identifier
// stays on the form and is reused by the next Submit.
func (f *Form) Submit(ctx context.Context) (common.Hash, error) {
	if !f.Validate() {
		return common.Hash{}, ErrInvalidForm
	}

	if !f.opts.Session.Connected() {
		f.Errors[FieldSubmit] = msgNotConnected
		return common.Hash{}, connection.ErrNotConnected
	}
	if err := f.opts.Session.RequireChain(f.opts.RequiredChainID); err != nil {
		f.Errors[FieldSubmit] = fmt.Sprintf("Please switch to chain ID %s", f.opts.RequiredChainID)
		return common.Hash{}, err
	}

	imageURI, err := f.Upload(ctx)
	if err != nil {
		f.Errors[FieldSubmit] = msgUploadRetry
		return common.Hash{}, err
	}

	k, _ := parseK(f.K)
	call := contract.CreateTokenCall(
		strings.TrimSpace(f.Name),
		strings.ToUpper(strings.TrimSpace(f.Ticker)),
		f.Description,
		imageURI,
		k,
		f.opts.Deposit,
	)

	hash, err := f.opts.Session.SubmitWrite(ctx, call)
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = msgTxFailed
		}
		f.Errors[FieldSubmit] = msg
		f.logger.Error("createToken failed",
			zap.String("token_name", f.Name),
			zap.String("image_cid", f.ImageCID),
			zap.Error(err))
		return common.Hash{}, fmt.Errorf("create token %q: %w", f.Name, err)
	}

	f.LastTx = hash
	f.logger.Info("token creation submitted",
		zap.String("token_name", f.Name),
		zap.String("tx", hash.Hex()))
	return hash, nil
}
