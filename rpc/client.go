// Package rpc implements the JSON-RPC client for the chain node. All
// gateway traffic to the network (account lookups, transaction
// submission, confirmation polling, read-only simulation, and the event
// log) goes through this client.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"fundflow/core"
)

const jsonRPCVersion = "2.0"

// Transaction status values reported by getTransaction.
const (
	TxPending = "pending"
	TxSuccess = "success"
	TxFailed  = "failed"
)

// RPCError is a node-reported JSON-RPC error, as opposed to a transport
// failure reaching the node at all.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Config configures the client.
type Config struct {
	URL       string
	AuthToken string
	Timeout   time.Duration
	// RequestsPerSecond caps outbound call rate; zero disables the limiter.
	RequestsPerSecond float64
}

// Client is a thin JSON-RPC wrapper around the node endpoint.
type Client struct {
	url        string
	authToken  string
	httpClient *http.Client
	limiter    *rate.Limiter
	nextID     atomic.Int64
}

// NewClient constructs a client targeting the supplied endpoint.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &Client{
		url:       strings.TrimSpace(cfg.URL),
		authToken: strings.TrimSpace(cfg.AuthToken),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: limiter,
	}
}

// Account is the node's view of an account at lookup time.
type Account struct {
	Address  string `json:"address"`
	Sequence uint64 `json:"sequence"`
	Balance  int64  `json:"balance"`
}

// GetAccount resolves the current account state for address.
func (c *Client) GetAccount(ctx context.Context, address string) (Account, error) {
	var account Account
	if err := c.call(ctx, "getAccount", []interface{}{address}, &account); err != nil {
		return Account{}, err
	}
	return account, nil
}

// SendResult is the synchronous broadcast response. A non-empty
// ErrorResult means the network rejected the envelope inline; Hash is
// still populated so the rejection can be diagnosed.
type SendResult struct {
	Hash        string `json:"hash"`
	ErrorResult string `json:"errorResult,omitempty"`
}

// SendTransaction broadcasts a signed envelope.
func (c *Client) SendTransaction(ctx context.Context, signedEnvelope string) (SendResult, error) {
	var result SendResult
	if err := c.call(ctx, "sendTransaction", []interface{}{signedEnvelope}, &result); err != nil {
		return SendResult{}, err
	}
	return result, nil
}

// TransactionResult reports the confirmation state of a submitted
// transaction. Result carries the raw outcome payload untouched.
type TransactionResult struct {
	Status string          `json:"status"`
	Ledger uint64          `json:"ledger,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// GetTransaction queries the status of a transaction by hash. The call is
// read-only and safe to repeat.
func (c *Client) GetTransaction(ctx context.Context, hash string) (TransactionResult, error) {
	var result TransactionResult
	if err := c.call(ctx, "getTransaction", []interface{}{hash}, &result); err != nil {
		return TransactionResult{}, err
	}
	return result, nil
}

// SimulateCall performs a read-only contract invocation and decodes the
// returned value into out.
func (c *Client) SimulateCall(ctx context.Context, contractID, method string, args []interface{}, out interface{}) error {
	params := map[string]interface{}{
		"contractId": contractID,
		"method":     method,
		"args":       args,
	}
	var result struct {
		ReturnValue json.RawMessage `json:"returnValue"`
	}
	if err := c.call(ctx, "simulateTransaction", []interface{}{params}, &result); err != nil {
		return err
	}
	if out == nil || len(result.ReturnValue) == 0 {
		return nil
	}
	if err := json.Unmarshal(result.ReturnValue, out); err != nil {
		return fmt.Errorf("rpc: decode %s return value: %w", method, err)
	}
	return nil
}

// GetEvents fetches the contract's recent event log, capped at limit.
func (c *Client) GetEvents(ctx context.Context, contractID string, limit int) ([]core.ChainEvent, error) {
	params := map[string]interface{}{
		"startLedger": "0",
		"filters": []map[string]interface{}{
			{
				"type":        "contract",
				"contractIds": []string{contractID},
				"topics":      []interface{}{},
			},
		},
		"limit": limit,
	}
	var result struct {
		Events []core.ChainEvent `json:"events"`
	}
	if err := c.call(ctx, "getEvents", []interface{}{params}, &result); err != nil {
		return nil, err
	}
	return result.Events, nil
}

func (c *Client) call(ctx context.Context, method string, params interface{}, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rpc: rate limit wait: %w", err)
		}
	}
	id := c.nextID.Add(1)
	body := map[string]interface{}{
		"jsonrpc": jsonRPCVersion,
		"id":      id,
		"method":  method,
		"params":  params,
	}
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("rpc: encode %s: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("rpc: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rpc: %s: %w", method, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rpc: %s failed: status=%d", method, resp.StatusCode)
	}
	var rpcResp struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Result  json.RawMessage `json:"result"`
		Error   *RPCError       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("rpc: decode %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if out == nil {
		return nil
	}
	if len(rpcResp.Result) == 0 {
		return fmt.Errorf("rpc: %s returned empty result", method)
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("rpc: decode %s result: %w", method, err)
	}
	return nil
}
