package common

import (
	"fmt"
	"strings"

	"crypto-core/pkg/errs"
)

// insufficientFundsMarkers are the substrings exchanges use when an order
// exceeds the available balance. Matching is case-insensitive.
var insufficientFundsMarkers = []string{
	"insufficient balance",
	"insufficient funds",
	"account has insufficient balance",
}

// IsInsufficientFunds reports whether an exchange error message describes a
// balance shortfall.
func IsInsufficientFunds(msg string) bool {
	lower := strings.ToLower(msg)
	for _, marker := range insufficientFundsMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// ClassifyHTTP converts an exchange HTTP failure into a categorized error.
// venue names the exchange for the message.
func ClassifyHTTP(venue string, status int, body string) error {
	switch {
	case status == 429 || status == 418:
		return errs.RateLimit("%s rate limited (status %d): %s", venue, status, body)
	case status == 401 || status == 403:
		return errs.Authentication("%s rejected credentials (status %d): %s", venue, status, body)
	case IsInsufficientFunds(body):
		return errs.InsufficientFunds("%s: %s", venue, body)
	case status >= 500:
		return errs.Exchange("%s server error (status %d): %s", venue, status, body)
	default:
		return errs.Exchange("%s request failed (status %d): %s", venue, status, body)
	}
}

// RequireCredentials returns an authentication error when key or secret is
// missing.
func RequireCredentials(venue, key, secret string) error {
	if key == "" || secret == "" {
		return errs.Authentication("%s: API key/secret required", venue)
	}
	return nil
}

// FormatSymbolPair joins base and quote in the venue-native form, e.g.
// ("BTC", "USDT", "") for Binance or ("BTC", "USDT", "-") for Coinbase.
func FormatSymbolPair(base, quote, sep string) string {
	return fmt.Sprintf("%s%s%s", strings.ToUpper(base), sep, strings.ToUpper(quote))
}
