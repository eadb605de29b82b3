// Package sentiment fetches aggregate news sentiment and the fear/greed
// index. Both sources are best-effort: failures degrade to neutral values and
// never abort signal generation.
package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"crypto-core/pkg/cache"
	"crypto-core/pkg/config"
	"crypto-core/pkg/errs"
)

// NewsBreakdown is the article count split for one asset over the lookback
// window.
type NewsBreakdown struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
}

// Total returns the article count across all classes.
func (n NewsBreakdown) Total() int { return n.Positive + n.Negative + n.Neutral }

// Score returns the positive-minus-negative fraction in [-1,1], zero when no
// articles were found.
func (n NewsBreakdown) Score() float64 {
	total := n.Total()
	if total == 0 {
		return 0
	}
	return float64(n.Positive-n.Negative) / float64(total)
}

// Client reads the news and fear/greed collaborators.
type Client struct {
	newsURL      string
	fearGreedURL string
	httpClient   *http.Client
	cache        *cache.TTL
	cacheTTL     time.Duration
}

// NewClient wires the sentiment client from config.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		newsURL:      cfg.NewsAPIURL,
		fearGreedURL: cfg.FearGreedURL,
		httpClient:   &http.Client{Timeout: cfg.HTTPTimeout},
		cache:        cache.NewTTL(),
		cacheTTL:     5 * time.Minute,
	}
}

// News returns the sentiment breakdown for an asset over lookbackHours.
// Errors propagate so the caller can decide to degrade.
func (c *Client) News(ctx context.Context, asset string, lookbackHours int) (NewsBreakdown, error) {
	if c.newsURL == "" {
		return NewsBreakdown{}, errs.Network("news source not configured")
	}
	key := cache.Key("news", asset, lookbackHours)
	if v, ok := c.cache.Get(key); ok {
		return v.(NewsBreakdown), nil
	}

	u := fmt.Sprintf("%s?symbols=%s&hours=%d", c.newsURL, url.QueryEscape(asset), lookbackHours)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return NewsBreakdown{}, err
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return NewsBreakdown{}, errs.Wrap(errs.CategoryNetwork, err, "news fetch %s", asset)
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	if res.StatusCode >= 300 {
		return NewsBreakdown{}, errs.Network("news status %d: %s", res.StatusCode, string(body))
	}

	var breakdown NewsBreakdown
	if err := json.Unmarshal(body, &breakdown); err != nil {
		return NewsBreakdown{}, fmt.Errorf("decode news response: %w", err)
	}
	c.cache.Set(key, breakdown, c.cacheTTL)
	return breakdown, nil
}

// FearGreed returns the current index value in [0,100].
func (c *Client) FearGreed(ctx context.Context) (int, error) {
	if v, ok := c.cache.Get("feargreed"); ok {
		return v.(int), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.fearGreedURL, nil)
	if err != nil {
		return 0, err
	}
	res, err := c.httpClient.Do(req)
	if err != nil {
		return 0, errs.Wrap(errs.CategoryNetwork, err, "fear/greed fetch")
	}
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	if res.StatusCode >= 300 {
		return 0, errs.Network("fear/greed status %d: %s", res.StatusCode, string(body))
	}

	// alternative.me shape: {"data":[{"value":"54",...}]}
	var payload struct {
		Data []struct {
			Value string `json:"value"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("decode fear/greed response: %w", err)
	}
	if len(payload.Data) == 0 {
		return 0, errs.Network("fear/greed returned no data")
	}
	value, err := strconv.Atoi(payload.Data[0].Value)
	if err != nil {
		return 0, fmt.Errorf("parse fear/greed value: %w", err)
	}
	c.cache.Set("feargreed", value, c.cacheTTL)
	return value, nil
}

// Score combines news sentiment (weight 0.7) with the normalized fear/greed
// reading (weight 0.3), clamped into [-1,1]. Failed sources contribute their
// neutral value: 0 for news, 50 for the index.
func (c *Client) Score(ctx context.Context, asset string, lookbackHours int) float64 {
	newsScore := 0.0
	if breakdown, err := c.News(ctx, asset, lookbackHours); err == nil {
		newsScore = breakdown.Score()
	}

	index := 50
	if v, err := c.FearGreed(ctx); err == nil {
		index = v
	}
	indexScore := float64(index-50) / 50

	return clamp(0.7*newsScore+0.3*indexScore, -1, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
