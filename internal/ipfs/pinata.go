package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"pumpcore/internal/observability"
)

// Default configuration values.
const (
	DefaultPinataEndpoint = "https://api.pinata.cloud"
	DefaultPinTimeout     = 60 * time.Second

	pinFilePath = "/pinning/pinFileToIPFS"
)

// ErrMissingIdentifier is returned when the pinning service answers without
// a content identifier. The upload step is treated as failed.
var ErrMissingIdentifier = errors.New("pinning response has no content identifier")

// PinRequest describes a file to pin along with the token it illustrates.
type PinRequest struct {
	FileName    string
	Content     []byte
	TokenName   string
	TokenSymbol string
}

// PinataClient uploads files to Pinata's pinFileToIPFS endpoint.
// Uploads are single attempts; callers decide whether to try again.
type PinataClient struct {
	endpoint  string
	apiKey    string
	apiSecret string
	client    *http.Client
}

// PinataOption configures PinataClient.
type PinataOption func(*PinataClient)

// WithPinataEndpoint overrides the API base URL.
func WithPinataEndpoint(endpoint string) PinataOption {
	return func(c *PinataClient) {
		if endpoint != "" {
			c.endpoint = strings.TrimSuffix(endpoint, "/")
		}
	}
}

// WithPinTimeout sets HTTP client timeout.
func WithPinTimeout(d time.Duration) PinataOption {
	return func(c *PinataClient) {
		c.client.Timeout = d
	}
}

// WithPinHTTPClient sets custom http.Client.
func WithPinHTTPClient(client *http.Client) PinataOption {
	return func(c *PinataClient) {
		c.client = client
	}
}

// NewPinataClient creates a Pinata client authenticated with an API key pair.
func NewPinataClient(apiKey, apiSecret string, opts ...PinataOption) *PinataClient {
	c := &PinataClient{
		endpoint:  DefaultPinataEndpoint,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		client:    &http.Client{Timeout: DefaultPinTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type pinataMetadata struct {
	Name      string            `json:"name"`
	KeyValues map[string]string `json:"keyvalues"`
}

type pinataOptions struct {
	CIDVersion int `json:"cidVersion"`
}

type pinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// PinFile uploads the file and returns its content identifier.
func (c *PinataClient) PinFile(ctx context.Context, req PinRequest) (cid string, err error) {
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		observability.RecordUpload(status, time.Since(start).Seconds())
	}()

	if len(req.Content) == 0 {
		return "", fmt.Errorf("pin file: empty content")
	}

	body, contentType, err := encodePinForm(req)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+pinFilePath, body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("pinata_api_key", c.apiKey)
	httpReq.Header.Set("pinata_secret_api_key", c.apiSecret)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var pr pinResponse
	if err := json.Unmarshal(respBody, &pr); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if pr.IpfsHash == "" {
		return "", ErrMissingIdentifier
	}
	if err := ValidateCID(pr.IpfsHash); err != nil {
		return "", err
	}

	return pr.IpfsHash, nil
}

// encodePinForm builds the multipart body: file, pinataMetadata, pinataOptions.
func encodePinForm(req PinRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fileName := req.FileName
	if fileName == "" {
		fileName = "image"
	}
	part, err := w.CreateFormFile("file", fileName)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(req.Content); err != nil {
		return nil, "", fmt.Errorf("write file part: %w", err)
	}

	meta, err := json.Marshal(pinataMetadata{
		Name: req.TokenName + " Token Image",
		KeyValues: map[string]string{
			"tokenName":   req.TokenName,
			"tokenSymbol": req.TokenSymbol,
		},
	})
	if err != nil {
		return nil, "", fmt.Errorf("marshal metadata: %w", err)
	}
	if err := w.WriteField("pinataMetadata", string(meta)); err != nil {
		return nil, "", fmt.Errorf("write metadata: %w", err)
	}

	opts, err := json.Marshal(pinataOptions{CIDVersion: 0})
	if err != nil {
		return nil, "", fmt.Errorf("marshal options: %w", err)
	}
	if err := w.WriteField("pinataOptions", string(opts)); err != nil {
		return nil, "", fmt.Errorf("write options: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
