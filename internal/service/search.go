package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/pageza/datemeal/backend/config"
)

// WebResult is one ranked web search hit
type WebResult struct {
	Title   string `json:"name"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// ImageResult is one ranked image search hit
type ImageResult struct {
	ContentURL string `json:"contentUrl"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

// WebSearcher runs web searches
type WebSearcher interface {
	SearchWeb(ctx context.Context, query string, count int) ([]WebResult, error)
}

// ImageSearcher runs image searches
type ImageSearcher interface {
	SearchImages(ctx context.Context, query string, count int) ([]ImageResult, error)
}

type webSearchResponse struct {
	WebPages struct {
		Value []WebResult `json:"value"`
	} `json:"webPages"`
}

type imageSearchResponse struct {
	Value []ImageResult `json:"value"`
}

// SearchClient talks to the Bing v7 web and image search APIs. Successful
// responses are cached per query.
type SearchClient struct {
	apiKey    string
	webURL    string
	imagesURL string
	market    string
	client    *http.Client
	cache     *cache.Cache
	logger    *zap.Logger
}

// NewSearchClient creates a new SearchClient
func NewSearchClient(cfg *config.Config, logger *zap.Logger) *SearchClient {
	ttl := cfg.SearchCacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SearchClient{
		apiKey:    cfg.BingSearchAPIKey,
		webURL:    cfg.BingSearchURL,
		imagesURL: cfg.BingImagesURL,
		market:    cfg.SearchMarket,
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		cache:  cache.New(ttl, 2*ttl),
		logger: logger.Named("search"),
	}
}

// SearchWeb returns the top web pages for query
func (s *SearchClient) SearchWeb(ctx context.Context, query string, count int) ([]WebResult, error) {
	cacheKey := fmt.Sprintf("web:%d:%s", count, query)
	if cached, found := s.cache.Get(cacheKey); found {
		return cached.([]WebResult), nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(count))
	params.Set("responseFilter", "Webpages")
	params.Set("mkt", s.market)

	var resp webSearchResponse
	if err := s.get(ctx, s.webURL, params, &resp); err != nil {
		return nil, err
	}

	results := resp.WebPages.Value
	s.cache.Set(cacheKey, results, cache.DefaultExpiration)
	return results, nil
}

// SearchImages returns the top images for query
func (s *SearchClient) SearchImages(ctx context.Context, query string, count int) ([]ImageResult, error) {
	cacheKey := fmt.Sprintf("image:%d:%s", count, query)
	if cached, found := s.cache.Get(cacheKey); found {
		return cached.([]ImageResult), nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(count))
	params.Set("mkt", s.market)
	params.Set("safeSearch", "Moderate")

	var resp imageSearchResponse
	if err := s.get(ctx, s.imagesURL, params, &resp); err != nil {
		return nil, err
	}

	results := resp.Value
	s.cache.Set(cacheKey, results, cache.DefaultExpiration)
	return results, nil
}

func (s *SearchClient) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	if s.apiKey == "" {
		return fmt.Errorf("%w: BING_SEARCH_API_KEY not set", ErrSearchUnavailable)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("search request failed",
			zap.String("query", params.Get("q")),
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("%w: status %d", ErrSearchUnavailable, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode search response: %w", err)
	}
	return nil
}
