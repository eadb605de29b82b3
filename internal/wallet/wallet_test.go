package wallet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"crypto-core/pkg/errs"
	"crypto-core/pkg/model"
)

const testEVMAddress = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"

func TestEVMNativeBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			Params []any  `json:"params"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Method != "eth_getBalance" {
			t.Fatalf("method=%s", req.Method)
		}
		if req.Params[0] != testEVMAddress || req.Params[1] != "latest" {
			t.Fatalf("params=%v", req.Params)
		}
		// 1.5 ETH in wei.
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0", "id": 1, "result": "0x14d1120d7b160000",
		})
	}))
	defer srv.Close()

	c := NewEVM(model.ChainEthereum, srv.URL)
	b, err := c.NativeBalance(context.Background(), testEVMAddress)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if b.Total != 1.5 {
		t.Fatalf("total=%v, want 1.5", b.Total)
	}
	if b.Currency != "ETH" || b.Chain != model.ChainEthereum || b.Address != testEVMAddress {
		t.Fatalf("unexpected balance: %+v", b)
	}
}

func TestEVMNativeCurrencyPerChain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": 1, "result": "0x0"})
	}))
	defer srv.Close()

	tests := []struct {
		chain model.Chain
		want  string
	}{
		{model.ChainPolygon, "MATIC"},
		{model.ChainBSC, "BNB"},
		{model.ChainAvalanche, "AVAX"},
		{model.ChainArbitrum, "ETH"},
		{model.ChainBase, "ETH"},
	}
	for _, tt := range tests {
		c := NewEVM(tt.chain, srv.URL)
		b, err := c.NativeBalance(context.Background(), testEVMAddress)
		if err != nil {
			t.Fatalf("%s: %v", tt.chain, err)
		}
		if b.Currency != tt.want {
			t.Fatalf("%s currency=%s, want %s", tt.chain, b.Currency, tt.want)
		}
	}
}

func TestEVMInvalidAddress(t *testing.T) {
	c := NewEVM(model.ChainEthereum, "http://unused")
	_, err := c.NativeBalance(context.Background(), "not-an-address")
	if errs.CategoryOf(err) != errs.CategoryValidation {
		t.Fatalf("category=%s, want validation", errs.CategoryOf(err))
	}
}

func TestEVMRPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0", "id": 1,
			"error": map[string]any{"code": -32602, "message": "invalid params"},
		})
	}))
	defer srv.Close()

	c := NewEVM(model.ChainEthereum, srv.URL)
	_, err := c.NativeBalance(context.Background(), testEVMAddress)
	if errs.CategoryOf(err) != errs.CategoryBlockchain {
		t.Fatalf("category=%s, want blockchain: %v", errs.CategoryOf(err), err)
	}
}

func TestSolanaNativeBalance(t *testing.T) {
	const address = "DYw8jCTfwHNRJhhmFcbXvVDTqWMEVFBX6ZKUmG5CNSKK"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Method != "getBalance" {
			t.Fatalf("method=%s", req.Method)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0", "id": 1,
			"result": map[string]any{"context": map[string]any{"slot": 1}, "value": 2500000000},
		})
	}))
	defer srv.Close()

	c := NewSolana(srv.URL)
	b, err := c.NativeBalance(context.Background(), address)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if b.Total != 2.5 {
		t.Fatalf("total=%v, want 2.5", b.Total)
	}
	if b.Currency != "SOL" || b.Chain != model.ChainSolana {
		t.Fatalf("unexpected balance: %+v", b)
	}
}

func TestSolanaInvalidAddress(t *testing.T) {
	c := NewSolana("http://unused")
	_, err := c.NativeBalance(context.Background(), "short")
	if errs.CategoryOf(err) != errs.CategoryValidation {
		t.Fatalf("category=%s, want validation", errs.CategoryOf(err))
	}
}
