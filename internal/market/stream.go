package market

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"crypto-core/pkg/model"
)

// StreamClient manages lightweight streaming from Binance public websockets.
type StreamClient struct {
	StreamURL string
	dialer    *websocket.Dialer
}

// NewStreamClient builds a websocket client; sandbox toggles the host.
func NewStreamClient(sandbox bool) *StreamClient {
	host := "stream.binance.com:9443"
	if sandbox {
		host = "testnet.binance.vision"
	}
	return &StreamClient{
		StreamURL: (&url.URL{Scheme: "wss", Host: host, Path: "/ws"}).String(),
		dialer:    websocket.DefaultDialer,
	}
}

// SubscribeTicker streams miniTicker updates for a symbol. It returns the
// channel and a stop function; stop is safe to call more than once.
func (c *StreamClient) SubscribeTicker(ctx context.Context, symbol string) (<-chan model.Ticker, func(), error) {
	// Binance requires lowercase symbols for websocket streams.
	stream := fmt.Sprintf("%s@miniTicker", strings.ToLower(symbol))
	u := fmt.Sprintf("%s/%s", c.StreamURL, stream)

	conn, _, err := c.dialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("dial binance ws: %w", err)
	}

	out := make(chan model.Ticker, 100)
	var once sync.Once
	stop := func() {
		once.Do(func() {
			// Ignore errors; connection may already be closed.
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = conn.Close()
			close(out)
		})
	}

	go func() {
		defer stop()
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
					strings.Contains(err.Error(), "use of closed network connection") {
					return
				}
				log.Printf("binance ws read error: %v", err)
				return
			}

			parsed, err := parseMiniTicker(msg)
			if err != nil {
				log.Printf("binance ws parse error: %v", err)
				continue
			}
			out <- parsed
		}
	}()

	return out, stop, nil
}

// parseMiniTicker decodes only the fields we need.
func parseMiniTicker(msg []byte) (model.Ticker, error) {
	var raw struct {
		EventTime int64  `json:"E"`
		Symbol    string `json:"s"`
		Close     string `json:"c"`
		Open      string `json:"o"`
		High      string `json:"h"`
		Low       string `json:"l"`
		Volume    string `json:"v"`
		QuoteVol  string `json:"q"`
	}
	if err := json.Unmarshal(msg, &raw); err != nil {
		return model.Ticker{}, err
	}
	last, _ := strconv.ParseFloat(raw.Close, 64)
	open, _ := strconv.ParseFloat(raw.Open, 64)
	high, _ := strconv.ParseFloat(raw.High, 64)
	low, _ := strconv.ParseFloat(raw.Low, 64)
	vol, _ := strconv.ParseFloat(raw.Volume, 64)
	quoteVol, _ := strconv.ParseFloat(raw.QuoteVol, 64)

	change := last - open
	changePct := 0.0
	if open != 0 {
		changePct = change / open * 100
	}
	return model.Ticker{
		Symbol:       raw.Symbol,
		Last:         last,
		Change24h:    change,
		ChangePct24h: changePct,
		High24h:      high,
		Low24h:       low,
		Volume24h:    vol,
		QuoteVolume:  quoteVol,
		Source:       model.VenueBinance,
		Timestamp:    time.UnixMilli(raw.EventTime).UTC(),
	}, nil
}
