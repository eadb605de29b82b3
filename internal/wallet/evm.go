// Package wallet reads native-token balances from blockchain RPC nodes.
// Chains are read-only here; signing and transfers stay out of process.
package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"crypto-core/pkg/errs"
	"crypto-core/pkg/model"
)

const weiPerEther = 1e18

// EVMClient reads balances over the Ethereum JSON-RPC interface. One client
// per chain endpoint.
type EVMClient struct {
	chain      model.Chain
	rpcURL     string
	httpClient *http.Client
}

// NewEVM builds a client for an EVM-compatible chain.
func NewEVM(chain model.Chain, rpcURL string) *EVMClient {
	return &EVMClient{
		chain:      chain,
		rpcURL:     rpcURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *EVMClient) Chain() model.Chain { return c.chain }

// NativeBalance fetches the native-token balance for address.
func (c *EVMClient) NativeBalance(ctx context.Context, address string) (model.Balance, error) {
	if !strings.HasPrefix(address, "0x") || len(address) != 42 {
		return model.Balance{}, errs.Validation("invalid EVM address: %s", address)
	}

	var result string
	if err := c.call(ctx, "eth_getBalance", []any{address, "latest"}, &result); err != nil {
		return model.Balance{}, err
	}

	wei, ok := new(big.Int).SetString(strings.TrimPrefix(result, "0x"), 16)
	if !ok {
		return model.Balance{}, errs.Blockchain("%s: malformed balance %q", c.chain, result)
	}
	amount, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(weiPerEther)).Float64()

	return model.Balance{
		Currency:  c.chain.NativeCurrency(),
		Total:     amount,
		Available: amount,
		Chain:     c.chain,
		Address:   address,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// call performs one JSON-RPC 2.0 request.
func (c *EVMClient) call(ctx context.Context, method string, params []any, out any) error {
	payload, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return errs.Wrap(errs.CategoryNetwork, err, "%s rpc %s", c.chain, method)
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	if res.StatusCode >= 300 {
		return errs.Blockchain("%s rpc status %d: %s", c.chain, res.StatusCode, string(body))
	}

	var rpcRes struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &rpcRes); err != nil {
		return fmt.Errorf("decode rpc response: %w", err)
	}
	if rpcRes.Error != nil {
		return errs.Blockchain("%s rpc %s: %s (code %d)", c.chain, method, rpcRes.Error.Message, rpcRes.Error.Code)
	}
	return json.Unmarshal(rpcRes.Result, out)
}
