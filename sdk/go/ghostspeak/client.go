// Package ghostspeak is the Go client for a marketplace node's HTTP
// gateway: command submission with ed25519 signing, record and balance
// queries, and the dev faucet.
package ghostspeak

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/keys"
)

const APIVersion = "v1"

type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Error is the gateway's error envelope with its HTTP status attached.
type Error struct {
	StatusCode int
	ErrorCode  string
	Message    string
	RequestID  string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("ghostspeak sdk error: status=%d code=%s message=%s", e.StatusCode, e.ErrorCode, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	retry      RetryConfig
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

func WithRetry(cfg RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry:      RetryConfig{MaxAttempts: 3, BaseDelay: 200 * time.Millisecond, MaxDelay: 5 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry.MaxAttempts < 1 {
		c.retry.MaxAttempts = 1
	}
	if c.retry.BaseDelay <= 0 {
		c.retry.BaseDelay = 200 * time.Millisecond
	}
	if c.retry.MaxDelay <= 0 {
		c.retry.MaxDelay = 5 * time.Second
	}
	return c
}

// SubmissionDigest is what each signer signs: the command name bound to
// its exact parameter bytes. Must stay in lockstep with the gateway.
func SubmissionDigest(name string, params []byte) []byte {
	h := sha256.New()
	h.Write([]byte("ghostspeak:command:"))
	h.Write([]byte(name))
	h.Write([]byte{0})
	h.Write(params)
	return h.Sum(nil)
}

type signatureEntry struct {
	Signer    keys.Pubkey `json:"signer"`
	Signature string      `json:"signature,omitempty"`
}

type submitRequest struct {
	Name       string           `json:"name"`
	Params     json.RawMessage  `json:"params"`
	Signatures []signatureEntry `json:"signatures"`
}

// SubmitResult carries the address a record-creating command returns.
type SubmitResult struct {
	Address keys.Pubkey `json:"address"`
}

// Submit signs and sends one command. Params is marshaled once and the
// exact bytes are what the keypairs sign.
func (c *Client) Submit(ctx context.Context, name string, params any, signers ...*keys.Keypair) (*SubmitResult, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	digest := SubmissionDigest(name, raw)
	req := submitRequest{Name: name, Params: raw}
	for _, kp := range signers {
		req.Signatures = append(req.Signatures, signatureEntry{
			Signer:    kp.Public,
			Signature: hex.EncodeToString(kp.Sign(digest)),
		})
	}

	var resp struct {
		Result SubmitResult `json:"result"`
	}
	// Commands are not idempotent; never retried.
	if err := c.do(ctx, http.MethodPost, "/v1/commands", req, &resp, false); err != nil {
		return nil, err
	}
	return &resp.Result, nil
}

// Commands lists the wire names the node accepts.
func (c *Client) Commands(ctx context.Context) ([]string, error) {
	var resp struct {
		Commands []string `json:"commands"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/commands", nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.Commands, nil
}

// Record is one stored record as the gateway renders it.
type Record struct {
	Address keys.Pubkey     `json:"address"`
	Type    string          `json:"type"`
	Raw     string          `json:"raw"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (c *Client) GetRecord(ctx context.Context, addr keys.Pubkey) (*Record, error) {
	var resp struct {
		Record Record `json:"record"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/records/"+addr.String(), nil, &resp, true); err != nil {
		return nil, err
	}
	return &resp.Record, nil
}

func (c *Client) ListRecords(ctx context.Context, recordType string) ([]Record, error) {
	var resp struct {
		Records []Record `json:"records"`
	}
	path := "/v1/records?type=" + url.QueryEscape(recordType)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

func (c *Client) Balance(ctx context.Context, mint, owner keys.Pubkey) (uint64, error) {
	var resp struct {
		Balance uint64 `json:"balance"`
	}
	path := "/v1/balances?mint=" + mint.String() + "&owner=" + owner.String()
	if err := c.do(ctx, http.MethodGet, path, nil, &resp, true); err != nil {
		return 0, err
	}
	return resp.Balance, nil
}

// Faucet mints dev tokens. Only trust_signers nodes expose it.
func (c *Client) Faucet(ctx context.Context, mint, owner keys.Pubkey, amount uint64, decimals uint8) error {
	body := map[string]any{"mint": mint, "owner": owner, "amount": amount, "decimals": decimals}
	return c.do(ctx, http.MethodPost, "/v1/faucet", body, nil, false)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, retryable bool) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}

	attempts := c.retry.MaxAttempts
	if !retryable {
		attempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			sleepWithBackoff(c.retry, attempt)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		if payload != nil {
			req.Header.Set("content-type", "application/json")
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode >= 400 {
			lastErr = parseError(resp.StatusCode, raw)
			if shouldRetryStatus(resp.StatusCode) {
				continue
			}
			return lastErr
		}
		if out != nil {
			if err := json.Unmarshal(raw, out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}
	return lastErr
}

func shouldRetryStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func sleepWithBackoff(cfg RetryConfig, attempt int) {
	delay := cfg.BaseDelay * time.Duration(1<<uint(attempt-1))
	if delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	time.Sleep(delay)
}

func parseError(status int, raw []byte) error {
	var envelope struct {
		RequestID string `json:"request_id"`
		Error     struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Error.Code == "" {
		return &Error{StatusCode: status, ErrorCode: strconv.Itoa(status), Message: strings.TrimSpace(string(raw))}
	}
	return &Error{
		StatusCode: status,
		ErrorCode:  envelope.Error.Code,
		Message:    envelope.Error.Message,
		RequestID:  envelope.RequestID,
	}
}
