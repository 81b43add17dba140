// Package marketdata looks up live equity prices from the NSE public quote
// API. The only error that crosses its boundary is ErrUnavailable; callers
// retry by virtue of their periodic schedule.
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrUnavailable is returned for any lookup failure: network, bad status,
// malformed body. The caller keeps its alert and tries again next tick.
var ErrUnavailable = errors.New("price unavailable")

// Quoter is the lookup capability the alert engine consumes.
type Quoter interface {
	LastPrice(ctx context.Context, symbol string) (float64, error)
}

const (
	defaultBaseURL = "https://www.nseindia.com"
	defaultTimeout = 5 * time.Second
	warmTTL        = 5 * time.Minute
)

type Config struct {
	BaseURL string        // default nseindia.com; override for tests
	Timeout time.Duration // per-call bound, default 5s
}

// NSEClient fetches quotes from the NSE website API. The API requires a
// browser-like session: a warm-up request against the homepage sets the
// cookies the quote endpoint checks.
type NSEClient struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger

	warmMu   sync.Mutex
	warmedAt time.Time
}

func NewNSE(cfg Config, log zerolog.Logger) *NSEClient {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	jar, _ := cookiejar.New(nil)
	return &NSEClient{
		baseURL: base,
		http:    &http.Client{Timeout: timeout, Jar: jar},
		log:     log,
	}
}

func (c *NSEClient) LastPrice(ctx context.Context, symbol string) (float64, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return 0, fmt.Errorf("empty symbol: %w", ErrUnavailable)
	}
	if err := c.warm(ctx); err != nil {
		c.log.Debug().Str("symbol", symbol).Err(err).Msg("session warm-up failed")
		return 0, fmt.Errorf("quote %s: %w", symbol, ErrUnavailable)
	}

	u := c.baseURL + "/api/quote-equity?symbol=" + url.QueryEscape(symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("quote %s: %w", symbol, ErrUnavailable)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Str("symbol", symbol).Err(err).Msg("quote request failed")
		return 0, fmt.Errorf("quote %s: %w", symbol, ErrUnavailable)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.log.Debug().Str("symbol", symbol).Int("status", resp.StatusCode).Msg("quote request rejected")
		return 0, fmt.Errorf("quote %s: %w", symbol, ErrUnavailable)
	}

	// NSE answers unknown symbols and maintenance windows with a 200 and an
	// error-shaped body; a pointer field distinguishes "no priceInfo" from a
	// real quote.
	var body struct {
		PriceInfo *struct {
			LastPrice float64 `json:"lastPrice"`
		} `json:"priceInfo"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.log.Debug().Str("symbol", symbol).Err(err).Msg("quote decode failed")
		return 0, fmt.Errorf("quote %s: %w", symbol, ErrUnavailable)
	}
	if body.PriceInfo == nil || body.PriceInfo.LastPrice <= 0 {
		c.log.Debug().Str("symbol", symbol).Msg("quote response carried no price")
		return 0, fmt.Errorf("quote %s: %w", symbol, ErrUnavailable)
	}
	return body.PriceInfo.LastPrice, nil
}

// warm refreshes the session cookies when stale.
func (c *NSEClient) warm(ctx context.Context) error {
	c.warmMu.Lock()
	defer c.warmMu.Unlock()
	if time.Since(c.warmedAt) < warmTTL {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("warm-up status %d", resp.StatusCode)
	}
	c.warmedAt = time.Now()
	return nil
}

func (c *NSEClient) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
}
