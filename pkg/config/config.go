package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the trading core.
type Config struct {
	Port string

	// Live trading gate. Both flags must be true before any real order
	// reaches an exchange; otherwise execution simulates fills.
	Live    bool
	AmISure bool

	// Binance
	BinanceAPIKey    string
	BinanceAPISecret string
	BinanceSandbox   bool
	// Coinbase
	CoinbaseAPIKey     string
	CoinbaseAPISecret  string
	CoinbasePassphrase string
	CoinbaseSandbox    bool

	// Chain RPC endpoints, keyed by chain name (ethereum, polygon, ...).
	ChainRPC map[string]string
	// On-chain addresses to include in portfolio aggregation.
	EVMAddresses    []string
	SolanaAddresses []string

	// Risk
	MaxOrderUSD       float64
	DailyLossLimitUSD float64
	RiskConfigPath    string
	HighVolatility    []string

	// Outbound call tuning
	CacheTTL       time.Duration
	RateLimitCalls int
	RateLimitSpan  time.Duration
	RetryAttempts  int
	RetryBase      time.Duration
	HTTPTimeout    time.Duration

	// Symbols tracked by the live feed and signal scans.
	Symbols []string

	// Sentiment sources
	NewsAPIURL   string
	FearGreedURL string

	// Database
	DBPath string

	// Auth
	JWTSecret   string
	APIPassword string
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	return &Config{
		Port: getEnv("PORT", "8080"),

		Live:    getEnv("LIVE", "false") == "true",
		AmISure: getEnv("AM_I_SURE", "false") == "true",

		BinanceAPIKey:      os.Getenv("BINANCE_API_KEY"),
		BinanceAPISecret:   os.Getenv("BINANCE_API_SECRET"),
		BinanceSandbox:     getEnv("BINANCE_SANDBOX", "true") == "true",
		CoinbaseAPIKey:     os.Getenv("COINBASE_API_KEY"),
		CoinbaseAPISecret:  os.Getenv("COINBASE_API_SECRET"),
		CoinbasePassphrase: os.Getenv("COINBASE_PASSPHRASE"),
		CoinbaseSandbox:    getEnv("COINBASE_SANDBOX", "true") == "true",

		ChainRPC: map[string]string{
			"ethereum": getEnv("ETHEREUM_RPC_URL", "https://eth.llamarpc.com"),
			"polygon":  getEnv("POLYGON_RPC_URL", "https://polygon-rpc.com"),
			"bsc":      getEnv("BSC_RPC_URL", "https://bsc-dataseed.binance.org"),
			"arbitrum": getEnv("ARBITRUM_RPC_URL", "https://arb1.arbitrum.io/rpc"),
			"optimism": getEnv("OPTIMISM_RPC_URL", "https://mainnet.optimism.io"),
			"base":     getEnv("BASE_RPC_URL", "https://mainnet.base.org"),
			"avalanche": getEnv("AVALANCHE_RPC_URL",
				"https://api.avax.network/ext/bc/C/rpc"),
			"solana": getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
		},
		EVMAddresses:    splitAndTrim(getEnv("EVM_ADDRESSES", "")),
		SolanaAddresses: splitAndTrim(getEnv("SOLANA_ADDRESSES", "")),

		MaxOrderUSD:       getEnvFloat("MAX_ORDER_USD", 1000),
		DailyLossLimitUSD: getEnvFloat("DAILY_LOSS_LIMIT_USD", 5000),
		RiskConfigPath:    getEnv("RISK_CONFIG_PATH", ""),
		HighVolatility:    splitAndTrim(getEnv("HIGH_VOLATILITY_ASSETS", "DOGE,SHIB,PEPE,MEME")),

		CacheTTL:       getEnvDuration("CACHE_TTL", 30*time.Second),
		RateLimitCalls: getEnvInt("RATE_LIMIT_CALLS", 10),
		RateLimitSpan:  getEnvDuration("RATE_LIMIT_WINDOW", time.Second),
		RetryAttempts:  getEnvInt("RETRY_ATTEMPTS", 3),
		RetryBase:      getEnvDuration("RETRY_BASE", time.Second),
		HTTPTimeout:    getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		Symbols: splitAndTrim(getEnv("SYMBOLS", "BTCUSDT,ETHUSDT")),

		NewsAPIURL:   getEnv("NEWS_API_URL", ""),
		FearGreedURL: getEnv("FEAR_GREED_URL", "https://api.alternative.me/fng/"),

		DBPath: getEnv("DB_PATH", "./data/trading.db"),

		JWTSecret:   getEnv("JWT_SECRET", "dev-secret"),
		APIPassword: getEnv("API_PASSWORD", ""),
	}, nil
}

// LiveTrading reports whether both confirmation flags are set.
func (c *Config) LiveTrading() bool {
	return c.Live && c.AmISure
}

// SandboxFor resolves the network-mode flag for a venue name.
func (c *Config) SandboxFor(venue string) bool {
	if strings.EqualFold(venue, "coinbase") {
		return c.CoinbaseSandbox
	}
	return c.BinanceSandbox
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitAndTrim(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
