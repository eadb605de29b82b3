package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"crypto-core/pkg/errs"
	"crypto-core/pkg/model"
)

const lamportsPerSOL = 1e9

// SolanaClient reads SOL balances over the Solana JSON-RPC interface.
type SolanaClient struct {
	rpcURL     string
	httpClient *http.Client
}

// NewSolana builds a client for a Solana RPC endpoint.
func NewSolana(rpcURL string) *SolanaClient {
	return &SolanaClient{
		rpcURL:     rpcURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *SolanaClient) Chain() model.Chain { return model.ChainSolana }

// NativeBalance fetches the SOL balance for a base58 account address.
func (c *SolanaClient) NativeBalance(ctx context.Context, address string) (model.Balance, error) {
	if len(address) < 32 || len(address) > 44 {
		return model.Balance{}, errs.Validation("invalid Solana address: %s", address)
	}

	payload, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "getBalance",
		"params":  []any{address},
	})
	if err != nil {
		return model.Balance{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(payload))
	if err != nil {
		return model.Balance{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return model.Balance{}, errs.Wrap(errs.CategoryNetwork, err, "solana rpc getBalance")
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	if res.StatusCode >= 300 {
		return model.Balance{}, errs.Blockchain("solana rpc status %d: %s", res.StatusCode, string(body))
	}

	var rpcRes struct {
		Result struct {
			Value uint64 `json:"value"`
		} `json:"result"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &rpcRes); err != nil {
		return model.Balance{}, fmt.Errorf("decode rpc response: %w", err)
	}
	if rpcRes.Error != nil {
		return model.Balance{}, errs.Blockchain("solana rpc getBalance: %s (code %d)", rpcRes.Error.Message, rpcRes.Error.Code)
	}

	amount := float64(rpcRes.Result.Value) / lamportsPerSOL
	return model.Balance{
		Currency:  "SOL",
		Total:     amount,
		Available: amount,
		Chain:     model.ChainSolana,
		Address:   address,
		UpdatedAt: time.Now().UTC(),
	}, nil
}
