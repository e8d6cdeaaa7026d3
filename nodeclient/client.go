// Package nodeclient provides a client for a node's HTTP API.
package nodeclient

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	lru "github.com/hashicorp/golang-lru"
	"github.com/lamden/golampy/core/types"
	"github.com/lamden/golampy/params"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout         = 10 * time.Second
	defaultMethodCacheSize = 128
	maxResponseSize        = 8 << 20
)

// Client defines typed wrappers for the node API.
type Client struct {
	base    string
	hc      *http.Client
	limiter *rate.Limiter
	methods *lru.Cache // contract name -> []Method

	mu   sync.Mutex
	vk   types.Processor
	vkOK bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithTimeout sets the per-request timeout of the default http client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.hc = &http.Client{Timeout: d} }
}

// WithRateLimit paces requests to at most r per second with the given burst.
func WithRateLimit(r float64, burst int) Option {
	return func(c *Client) {
		if r > 0 {
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(r), burst)
		}
	}
}

// WithMethodCacheSize sets how many contracts' method lists are cached.
func WithMethodCacheSize(n int) Option {
	return func(c *Client) {
		if cache, err := lru.New(n); err == nil {
			c.methods = cache
		}
	}
}

// NewClient creates a client for the node at rawurl without contacting it.
func NewClient(rawurl string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(rawurl))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawurl)
	}
	c := &Client{
		base: strings.TrimRight(u.String(), "/"),
		hc:   &http.Client{Timeout: defaultTimeout},
	}
	c.methods, _ = lru.New(defaultMethodCacheSize)
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Dial connects a client to the node at rawurl and pings it.
func Dial(ctx context.Context, rawurl string, opts ...Option) (*Client, error) {
	c, err := NewClient(rawurl, opts...)
	if err != nil {
		return nil, err
	}
	if _, err := c.Ping(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// URL returns the node's base url.
func (c *Client) URL() string { return c.base }

// Ping returns the node's reported status. A status other than "online" is
// reported as ErrNodeOffline.
func (c *Client) Ping(ctx context.Context) (string, error) {
	var res struct {
		Status string `json:"status"`
	}
	if err := c.get(ctx, "/ping", nil, &res); err != nil {
		return "", err
	}
	if res.Status != "online" {
		return res.Status, fmt.Errorf("%w: status %q", ErrNodeOffline, res.Status)
	}
	return res.Status, nil
}

// ProcessorID returns the node's verifying key. The first successful answer
// is cached for the lifetime of the client.
func (c *Client) ProcessorID(ctx context.Context) (types.Processor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.vkOK {
		return c.vk, nil
	}
	var res struct {
		VerifyingKey *types.Processor `json:"verifying_key"`
	}
	if err := c.get(ctx, "/id", nil, &res); err != nil {
		return types.Processor{}, err
	}
	if res.VerifyingKey == nil {
		return types.Processor{}, fmt.Errorf("%w: missing verifying_key", ErrBadResponse)
	}
	c.vk, c.vkOK = *res.VerifyingKey, true
	return c.vk, nil
}

// Nonce returns the processor the sender should route to and the nonce the
// node expects next from vk.
func (c *Client) Nonce(ctx context.Context, vk [params.VerifyingKeySize]byte) (types.Processor, uint64, error) {
	var res struct {
		Nonce     *uint64          `json:"nonce"`
		Processor *types.Processor `json:"processor"`
		Sender    string           `json:"sender"`
	}
	vkHex := hex.EncodeToString(vk[:])
	if err := c.get(ctx, "/nonce/"+vkHex, nil, &res); err != nil {
		return types.Processor{}, 0, err
	}
	if res.Nonce == nil {
		return types.Processor{}, 0, fmt.Errorf("%w: missing nonce", ErrBadResponse)
	}
	if res.Processor == nil {
		// Older nodes omit the processor and expect the node's own key.
		p, err := c.ProcessorID(ctx)
		if err != nil {
			return types.Processor{}, 0, err
		}
		res.Processor = &p
	}
	if res.Sender != "" && !strings.EqualFold(res.Sender, vkHex) {
		return types.Processor{}, 0, fmt.Errorf("%w: nonce for sender %s, asked for %s", ErrBadResponse, res.Sender, vkHex)
	}
	return *res.Processor, *res.Nonce, nil
}

// Submit posts a serialized transaction.
func (c *Client) Submit(ctx context.Context, raw []byte) (*types.SubmitResult, error) {
	var res types.SubmitResult
	if err := c.do(ctx, http.MethodPost, "/", nil, raw, &res); err != nil {
		return nil, err
	}
	submitMeter.Mark(1)
	return &res, nil
}

// Contracts lists the names of the contracts deployed on the node.
func (c *Client) Contracts(ctx context.Context) ([]string, error) {
	var res struct {
		Contracts []string `json:"contracts"`
	}
	if err := c.get(ctx, "/contracts", nil, &res); err != nil {
		return nil, err
	}
	return res.Contracts, nil
}

// ContractCode returns the source of a deployed contract.
func (c *Client) ContractCode(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", ErrEmptyContract
	}
	var res struct {
		Name string `json:"name"`
		Code string `json:"code"`
	}
	if err := c.get(ctx, "/contracts/"+url.PathEscape(name), nil, &res); err != nil {
		return "", err
	}
	return res.Code, nil
}

// Method describes an exported contract function.
type Method struct {
	Name      string   `json:"name"`
	Arguments []string `json:"arguments"`
}

// ContractMethods returns the exported functions of a contract. Results are
// cached per contract.
func (c *Client) ContractMethods(ctx context.Context, name string) ([]Method, error) {
	if name == "" {
		return nil, ErrEmptyContract
	}
	if cached, ok := c.methods.Get(name); ok {
		methodCacheHitMeter.Mark(1)
		return cached.([]Method), nil
	}
	methodCacheMissMeter.Mark(1)
	var res struct {
		Methods []Method `json:"methods"`
	}
	if err := c.get(ctx, "/contracts/"+url.PathEscape(name)+"/methods", nil, &res); err != nil {
		return nil, err
	}
	c.methods.Add(name, res.Methods)
	return res.Methods, nil
}

// GetVariable reads a contract variable. Keys address an entry of a hash
// variable and are joined with ':'. The value is returned as raw JSON; a
// missing entry is JSON null.
func (c *Client) GetVariable(ctx context.Context, contract, variable string, keys ...string) (json.RawMessage, error) {
	if contract == "" {
		return nil, ErrEmptyContract
	}
	var query url.Values
	if len(keys) > 0 {
		query = url.Values{"key": {strings.Join(keys, ":")}}
	}
	var res struct {
		Value json.RawMessage `json:"value"`
	}
	path := "/contracts/" + url.PathEscape(contract) + "/" + url.PathEscape(variable)
	if err := c.get(ctx, path, query, &res); err != nil {
		return nil, err
	}
	if len(res.Value) == 0 {
		return json.RawMessage("null"), nil
	}
	return res.Value, nil
}

// Block is the head of the node's chain.
type Block struct {
	Hash   string `json:"hash"`
	Number uint64 `json:"number"`
}

// LatestBlock returns the node's latest block.
func (c *Client) LatestBlock(ctx context.Context) (*Block, error) {
	var res Block
	if err := c.get(ctx, "/latest_block", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, query, nil, result)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, result interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	target := c.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		requestErrorMeter.Mark(1)
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		requestErrorMeter.Mark(1)
		return err
	}
	requestTimer.UpdateSince(start)
	log.Trace("Node request", "method", method, "path", path, "status", resp.StatusCode, "elapsed", time.Since(start))

	var nodeErr struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &nodeErr) == nil && nodeErr.Error != "" {
		nodeErrorMeter.Mark(1)
		return &NodeError{StatusCode: resp.StatusCode, Message: nodeErr.Error}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return nil
}
