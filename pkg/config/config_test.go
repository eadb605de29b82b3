package config

import "testing"

func TestLiveTradingRequiresBothFlags(t *testing.T) {
	cases := []struct {
		live, sure, want bool
	}{
		{false, false, false},
		{true, false, false},
		{false, true, false},
		{true, true, true},
	}
	for _, tc := range cases {
		c := &Config{Live: tc.live, AmISure: tc.sure}
		if got := c.LiveTrading(); got != tc.want {
			t.Fatalf("LiveTrading(live=%v, sure=%v) = %v, want %v", tc.live, tc.sure, got, tc.want)
		}
	}
}

func TestSandboxForResolvesPerVenue(t *testing.T) {
	c := &Config{BinanceSandbox: false, CoinbaseSandbox: true}

	if c.SandboxFor("binance") {
		t.Fatal("binance should use the binance flag")
	}
	if !c.SandboxFor("coinbase") {
		t.Fatal("coinbase should use the coinbase flag")
	}
	if !c.SandboxFor("Coinbase") {
		t.Fatal("venue match should be case-insensitive")
	}
	// Unknown venues fall back to the binance flag.
	if c.SandboxFor("kraken") {
		t.Fatal("unknown venue should fall back to the binance flag")
	}
}
