// Package pagespeed fetches Lighthouse performance audits from the
// PageSpeed Insights v5 API.
package pagespeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/panbanda/quarterly/internal/cache"
)

// DefaultBaseURL is the public PageSpeed Insights endpoint.
const DefaultBaseURL = "https://www.googleapis.com/pagespeedonline/v5/runPagespeed"

// maxOpportunities caps the opportunities kept per audit.
const maxOpportunities = 10

// ErrUnavailable means the API returned no usable audit.
var ErrUnavailable = errors.New("pagespeed unavailable")

// Strategy selects the Lighthouse device emulation.
type Strategy string

const (
	Mobile  Strategy = "mobile"
	Desktop Strategy = "desktop"
)

// Client calls the PageSpeed API. It is safe for concurrent use; requests
// share one rate limiter.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	cache   *cache.Cache
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the Google Cloud API key sent with each request.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithCache stores parsed results so repeated runs skip the API.
func WithCache(ch *cache.Cache) Option {
	return func(c *Client) {
		c.cache = ch
	}
}

// New creates a client with a 60 second timeout and one request per second.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(1), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analyze runs one audit of pageURL.
func (c *Client) Analyze(ctx context.Context, pageURL string, strategy Strategy) (*Result, error) {
	log := zerolog.Ctx(ctx).With().Str("url", pageURL).Str("strategy", string(strategy)).Logger()

	key := cache.Key("pagespeed", pageURL, string(strategy))
	if c.cache != nil {
		var cached Result
		if c.cache.GetJSON(key, &cached) {
			log.Debug().Msg("pagespeed cache hit")
			return &cached, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	data, err := c.fetch(ctx, pageURL, strategy)
	if err != nil {
		log.Warn().Err(err).Msg("pagespeed request failed")
		return nil, err
	}

	result, err := Parse(data, strategy)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		if err := c.cache.SetJSON(key, result); err != nil {
			log.Warn().Err(err).Msg("failed to cache pagespeed result")
		}
	}
	log.Debug().Int("score", result.Score).Msg("pagespeed audit complete")
	return result, nil
}

func (c *Client) fetch(ctx context.Context, pageURL string, strategy Strategy) ([]byte, error) {
	q := url.Values{}
	q.Set("url", pageURL)
	q.Set("strategy", string(strategy))
	q.Set("category", "performance")
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %d", ErrUnavailable, strategy, resp.StatusCode)
	}
	return body, nil
}

type apiResponse struct {
	ID         string `json:"id"`
	Lighthouse struct {
		Categories struct {
			Performance struct {
				Score *float64 `json:"score"`
			} `json:"performance"`
		} `json:"categories"`
		Audits map[string]apiAudit `json:"audits"`
	} `json:"lighthouseResult"`
}

type apiAudit struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Score        *float64 `json:"score"`
	NumericValue float64  `json:"numericValue"`
	DisplayValue string   `json:"displayValue"`
	Details      struct {
		Type             string  `json:"type"`
		OverallSavingsMs float64 `json:"overallSavingsMs"`
	} `json:"details"`
}

var diagnosticIDs = []string{
	"dom-size",
	"uses-responsive-images",
	"offscreen-images",
	"render-blocking-resources",
	"uses-optimized-images",
	"modern-image-formats",
	"uses-text-compression",
	"uses-rel-preconnect",
	"server-response-time",
}

// Parse converts a raw API response into a Result.
func Parse(data []byte, strategy Strategy) (*Result, error) {
	var raw apiResponse
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	audits := raw.Lighthouse.Audits

	score := 0
	if s := raw.Lighthouse.Categories.Performance.Score; s != nil {
		score = int(*s * 100)
	}

	numeric := func(id string) float64 { return audits[id].NumericValue }
	r := &Result{
		URL:      raw.ID,
		Strategy: strategy,
		Score:    score,
		Metrics: Metrics{
			FCP: numeric("first-contentful-paint") / 1000,
			LCP: numeric("largest-contentful-paint") / 1000,
			TBT: numeric("total-blocking-time"),
			CLS: numeric("cumulative-layout-shift"),
			SI:  numeric("speed-index") / 1000,
			TTI: numeric("interactive") / 1000,
		},
	}

	for id, a := range audits {
		if a.Score != nil {
			if *a.Score == 1 {
				r.PassedAudits++
			} else if *a.Score < 1 {
				r.FailedAudits++
			}
		}
		if a.Details.Type == "opportunity" && a.Score != nil && *a.Score < 1 {
			r.Opportunities = append(r.Opportunities, Opportunity{
				ID:          id,
				Title:       a.Title,
				Description: a.Description,
				SavingsMs:   a.Details.OverallSavingsMs,
				Score:       *a.Score,
			})
		}
	}
	sort.Slice(r.Opportunities, func(i, j int) bool {
		a, b := r.Opportunities[i], r.Opportunities[j]
		if a.SavingsMs != b.SavingsMs {
			return a.SavingsMs > b.SavingsMs
		}
		return a.ID < b.ID
	})
	if len(r.Opportunities) > maxOpportunities {
		r.Opportunities = r.Opportunities[:maxOpportunities]
	}

	for _, id := range diagnosticIDs {
		a, ok := audits[id]
		if !ok {
			continue
		}
		r.Diagnostics = append(r.Diagnostics, Diagnostic{
			ID:           id,
			Title:        a.Title,
			DisplayValue: a.DisplayValue,
			Score:        a.Score,
		})
	}
	return r, nil
}

// PageURL joins a site root and a path.
func PageURL(site, path string) string {
	return strings.TrimRight(site, "/") + path
}
