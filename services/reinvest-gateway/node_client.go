package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// NodeClient is the slice of the node RPC surface the gateway drives.
type NodeClient interface {
	ClaimRepayment(ctx context.Context, investor string, poolID uint64) (string, error)
	JoinPool(ctx context.Context, investor string, poolID uint64, amount string) error
}

type rpcClient struct {
	url       string
	authToken string
	client    *http.Client
	nextID    atomic.Int64
}

// NewNodeClient builds a JSON-RPC client for the ledger node.
func NewNodeClient(url, authToken string) NodeClient {
	return &rpcClient{
		url:       url,
		authToken: authToken,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

type rpcEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Method  string          `json:"method"`
	Params  []any           `json:"params"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcErrorBody   `json:"error,omitempty"`
}

type rpcErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *rpcClient) call(ctx context.Context, method string, params any, out any) error {
	payload, err := json.Marshal(rpcEnvelope{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  []any{params},
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("node call %s: %w", method, err)
	}
	defer resp.Body.Close()

	var envelope rpcEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("node call %s: decode response: %w", method, err)
	}
	if envelope.Error != nil {
		return fmt.Errorf("node call %s: %s (code %d)", method, envelope.Error.Message, envelope.Error.Code)
	}
	if out != nil && envelope.Result != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("node call %s: decode result: %w", method, err)
		}
	}
	return nil
}

func (c *rpcClient) ClaimRepayment(ctx context.Context, investor string, poolID uint64) (string, error) {
	var result struct {
		Amount string `json:"amount"`
	}
	err := c.call(ctx, "pool_claim", map[string]any{
		"caller": investor,
		"poolId": poolID,
	}, &result)
	if err != nil {
		return "", err
	}
	return result.Amount, nil
}

func (c *rpcClient) JoinPool(ctx context.Context, investor string, poolID uint64, amount string) error {
	return c.call(ctx, "pool_join", map[string]any{
		"caller": investor,
		"poolId": poolID,
		"amount": amount,
	}, nil)
}
