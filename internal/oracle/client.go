package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"mention-radar/internal/domain"
	"mention-radar/internal/extract"
	"mention-radar/internal/observability"
)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.dexscreener.com"
	DefaultTimeout = 10 * time.Second

	// maxBodySize caps the response read; a token with many pairs stays well below it.
	maxBodySize = 4 << 20
)

// Client implements Lookuper against the DexScreener tokens endpoint.
// It never retries; retry policy belongs to the caller.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *log.Logger
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithLogger sets the logger for lookup failures.
func WithLogger(logger *log.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new oracle client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: DefaultTimeout},
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Lookuper = (*Client)(nil)

// tokensResponse is the body of GET /latest/dex/tokens/{address}.
type tokensResponse struct {
	Pairs []pairResponse `json:"pairs"`
}

type pairResponse struct {
	URL      string          `json:"url"`
	PriceUSD decimal.Decimal `json:"priceUsd"`
	FDV      decimal.Decimal `json:"fdv"`

	Liquidity struct {
		USD decimal.Decimal `json:"usd"`
	} `json:"liquidity"`
	Volume struct {
		H24 decimal.Decimal `json:"h24"`
	} `json:"volume"`
	PriceChange struct {
		H24 decimal.Decimal `json:"h24"`
	} `json:"priceChange"`

	BaseToken *struct {
		Address string `json:"address"`
		Name    string `json:"name"`
		Symbol  string `json:"symbol"`
	} `json:"baseToken"`

	Info *struct {
		Websites []struct {
			Label string `json:"label"`
			URL   string `json:"url"`
		} `json:"websites"`
		Socials []struct {
			Platform string `json:"platform"`
			Type     string `json:"type"`
			URL      string `json:"url"`
		} `json:"socials"`
	} `json:"info"`
}

// Lookup fetches the first trading pair for identifier.
// Transport failures, non-200 responses, decode errors and empty pair lists
// all yield ok=false. Identifiers from other chains are still queried.
func (c *Client) Lookup(ctx context.Context, identifier string) (*domain.MarketSnapshot, bool) {
	if !extract.IsPublicKey(identifier) {
		observability.RecordOracleForeignIdentifier()
	}

	start := time.Now()
	snapshot, result, err := c.fetch(ctx, identifier)
	observability.RecordOracleLookup(result, time.Since(start).Seconds())
	if err != nil {
		c.logger.Printf("Oracle lookup for %s failed: %v", identifier, err)
		return nil, false
	}
	return snapshot, snapshot != nil
}

func (c *Client) fetch(ctx context.Context, identifier string) (*domain.MarketSnapshot, string, error) {
	endpoint := c.baseURL + "/latest/dex/tokens/" + url.PathEscape(identifier)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "error", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "error", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, "error", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, "error", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var parsed tokensResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, "error", fmt.Errorf("unmarshal response: %w", err)
	}

	if len(parsed.Pairs) == 0 {
		return nil, "empty", nil
	}
	return toSnapshot(&parsed.Pairs[0]), "found", nil
}

// toSnapshot converts the first pair into a MarketSnapshot.
func toSnapshot(p *pairResponse) *domain.MarketSnapshot {
	s := &domain.MarketSnapshot{
		PriceUSD:                 p.PriceUSD,
		LiquidityUSD:             p.Liquidity.USD,
		FullyDilutedValuationUSD: p.FDV,
		Volume24hUSD:             p.Volume.H24,
		PriceChange24hPct:        p.PriceChange.H24,
		URL:                      p.URL,
	}

	if p.BaseToken != nil {
		s.BaseAsset = &domain.BaseAsset{
			Symbol: p.BaseToken.Symbol,
			Name:   p.BaseToken.Name,
		}
	}

	if p.Info != nil {
		for _, w := range p.Info.Websites {
			if w.URL == "" {
				continue
			}
			label := w.Label
			if label == "" {
				label = "Website"
			}
			s.Websites = append(s.Websites, domain.Link{Label: label, URL: w.URL})
		}
		for _, social := range p.Info.Socials {
			// older responses name the network "platform", newer ones "type"
			platform := social.Platform
			if platform == "" {
				platform = social.Type
			}
			if platform == "" || social.URL == "" {
				continue
			}
			s.Socials = append(s.Socials, domain.Link{Label: capitalize(platform), URL: social.URL})
		}
	}

	return s
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
