// Package registry is the HTTP client for the remote contract registry service.
//
// The client performs three idempotent reads: contract metadata by logical name
// and chain id, ABI by id, and deployed address by logical name and chain id.
// It does no caching and no retries; every failure is returned as a
// *sdkerr.RequestError classified from the HTTP status or transport error.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fxnlabs/marketplace-sdk/pkg/metrics"
	"github.com/fxnlabs/marketplace-sdk/pkg/sdkerr"
)

const (
	// APIKeyHeader carries the registry API key.
	APIKeyHeader = "X-API-Key"

	DefaultTimeout = 10 * time.Second

	// maxBodySize bounds how much of a response body is read.
	maxBodySize = 8 << 20
)

// ContractMetadata describes one deployment of a logical contract.
type ContractMetadata struct {
	LogicalName     string `json:"logicalName"`
	Network         uint64 `json:"network"`
	DeployedAddress string `json:"deployedAddress"`
	AbiID           string `json:"abiId"`
}

// AbiDescriptor is an ABI as stored by the registry. ABI is the raw JSON array.
type AbiDescriptor struct {
	ID  string          `json:"id"`
	ABI json.RawMessage `json:"abi"`
}

type addressResponse struct {
	Address string `json:"address"`
}

// Client talks to the registry service rooted at a base URL.
type Client struct {
	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration
	metrics    *metrics.Metrics
	log        *zap.Logger
}

type Option func(*Client)

func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the underlying HTTP client. The client is copied, never mutated.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds each request. Zero leaves requests bounded only by the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log.Named("registry_client")
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a client for the registry at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("registry url %q: %w", baseURL, sdkerr.ErrInvalidParameter)
	}

	c := &Client{
		baseURL:    u,
		httpClient: http.DefaultClient,
		timeout:    DefaultTimeout,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	hc := *c.httpClient
	hc.Transport = c.metrics.InstrumentRoundTripper(hc.Transport)
	c.httpClient = &hc
	return c, nil
}

// GetContractMetadata returns the deployment of name on chainID.
func (c *Client) GetContractMetadata(ctx context.Context, name string, chainID uint64) (*ContractMetadata, error) {
	path := "/v1/contracts/" + url.PathEscape(name)
	var md ContractMetadata
	if err := c.get(ctx, path, networkQuery(chainID), &md); err != nil {
		return nil, err
	}
	if md.AbiID == "" {
		return nil, c.malformed(path, errors.New("metadata without abiId"))
	}
	if md.LogicalName == "" {
		md.LogicalName = name
	}
	if md.Network == 0 {
		md.Network = chainID
	}
	return &md, nil
}

// GetAbiByID returns the ABI registered under id.
func (c *Client) GetAbiByID(ctx context.Context, id string) (*AbiDescriptor, error) {
	path := "/v1/abis/" + url.PathEscape(id)
	var desc AbiDescriptor
	if err := c.get(ctx, path, nil, &desc); err != nil {
		return nil, err
	}
	if trimmed := bytes.TrimSpace(desc.ABI); len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, c.malformed(path, errors.New("abi is not a JSON array"))
	}
	if desc.ID == "" {
		desc.ID = id
	}
	return &desc, nil
}

// GetDeployedAddress returns the address name is deployed at on chainID.
func (c *Client) GetDeployedAddress(ctx context.Context, name string, chainID uint64) (string, error) {
	path := "/v1/contracts/" + url.PathEscape(name) + "/address"
	var resp addressResponse
	if err := c.get(ctx, path, networkQuery(chainID), &resp); err != nil {
		return "", err
	}
	if resp.Address == "" {
		return "", c.malformed(path, errors.New("empty address"))
	}
	return resp.Address, nil
}

func networkQuery(chainID uint64) url.Values {
	return url.Values{"network": []string{strconv.FormatUint(chainID, 10)}}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := http.MethodGet + " " + path
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	target := c.baseURL.String() + path
	rawQuery := query.Encode()
	if rawQuery != "" {
		target += "?" + rawQuery
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &sdkerr.RequestError{Endpoint: endpoint, Kind: sdkerr.ErrRequestFailed, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}

	c.log.Debug("Registry request", zap.String("endpoint", endpoint), zap.String("query", rawQuery))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		reqErr := &sdkerr.RequestError{Endpoint: endpoint, Kind: classifyTransport(err), Err: err}
		c.log.Error("Registry request failed", zap.String("endpoint", endpoint), zap.Error(reqErr))
		return reqErr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		reqErr := &sdkerr.RequestError{Endpoint: endpoint, StatusCode: resp.StatusCode, Kind: classifyTransport(err), Err: err}
		c.log.Error("Failed to read registry response", zap.String("endpoint", endpoint), zap.Error(reqErr))
		return reqErr
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reqErr := &sdkerr.RequestError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Kind:       classifyStatus(resp.StatusCode),
		}
		if msg := strings.TrimSpace(string(body)); msg != "" {
			reqErr.Err = errors.New(msg)
		}
		if reqErr.Kind == sdkerr.ErrNotFound {
			c.log.Debug("Registry entry not found", zap.String("endpoint", endpoint), zap.String("query", rawQuery))
		} else {
			c.log.Error("Registry returned error status", zap.String("endpoint", endpoint), zap.Int("status", resp.StatusCode))
		}
		return reqErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return c.malformed(path, err)
	}
	return nil
}

func (c *Client) malformed(path string, cause error) error {
	err := &sdkerr.RequestError{
		Endpoint: http.MethodGet + " " + path,
		Kind:     sdkerr.ErrRequestFailed,
		Err:      fmt.Errorf("malformed response: %w", cause),
	}
	c.log.Error("Malformed registry response", zap.Error(err))
	return err
}

func classifyStatus(code int) error {
	switch code {
	case http.StatusNotFound:
		return sdkerr.ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return sdkerr.ErrUnauthorized
	case http.StatusTooManyRequests:
		return sdkerr.ErrRateLimited
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return sdkerr.ErrTimeout
	default:
		return sdkerr.ErrRequestFailed
	}
}

func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return sdkerr.ErrTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return sdkerr.ErrTimeout
	}
	return sdkerr.ErrRequestFailed
}
