package skills

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/nextlevelbuilder/jibot/internal/agent"
)

const (
	defaultSearchCount  = 5
	searchSnippetMax    = 200
	braveSearchEndpoint = "https://api.search.brave.com/res/v1/web/search"
	ddgSearchEndpoint   = "https://html.duckduckgo.com/html/"
)

// Searcher runs a web query and returns formatted results.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// SearchProvider is one web search backend.
type SearchProvider interface {
	Name() string
	Search(ctx context.Context, query string, count int) ([]SearchHit, error)
}

type SearchHit struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// --- Brave ---

type braveProvider struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

func NewBraveProvider(apiKey string) SearchProvider {
	return &braveProvider{apiKey: apiKey, endpoint: braveSearchEndpoint, client: &http.Client{Timeout: DefaultTimeout}}
}

func (p *braveProvider) Name() string { return "brave" }

func (p *braveProvider) Search(ctx context.Context, query string, count int) ([]SearchHit, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("count", strconv.Itoa(count))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave API returned %d: %s", resp.StatusCode, truncateRunes(string(body), 200))
	}

	var braveResp struct {
		Web struct {
			Results []SearchHit `json:"results"`
		} `json:"web"`
	}
	if err := json.Unmarshal(body, &braveResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	hits := braveResp.Web.Results
	if len(hits) > count {
		hits = hits[:count]
	}
	return hits, nil
}

// --- DuckDuckGo (HTML endpoint, no key) ---

type ddgProvider struct {
	endpoint string
	client   *http.Client
}

func NewDuckDuckGoProvider() SearchProvider {
	return &ddgProvider{endpoint: ddgSearchEndpoint, client: &http.Client{Timeout: DefaultTimeout}}
}

func (p *ddgProvider) Name() string { return "duckduckgo" }

func (p *ddgProvider) Search(ctx context.Context, query string, count int) ([]SearchHit, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?q="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", webUserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo returned %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse results: %w", err)
	}
	return parseDDGResults(doc, count), nil
}

func parseDDGResults(doc *goquery.Document, count int) []SearchHit {
	var hits []SearchHit
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		link := s.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		hits = append(hits, SearchHit{
			Title:       strings.TrimSpace(link.Text()),
			URL:         unwrapDDGURL(href),
			Description: strings.TrimSpace(s.Find(".result__snippet").First().Text()),
		})
		return len(hits) < count
	})
	return hits
}

// unwrapDDGURL extracts the target from DuckDuckGo's /l/?uddg= redirect links.
func unwrapDDGURL(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return href
}

// --- web_search skill ---

// WebSearch tries providers in order; the first success wins.
type WebSearch struct {
	providers []SearchProvider
	count     int
	cache     *expirable.LRU[string, string]
}

type WebSearchConfig struct {
	BraveAPIKey string
	DDGEnabled  bool
	MaxResults  int
	CacheTTL    time.Duration
}

// NewWebSearch returns nil when no provider is enabled.
func NewWebSearch(cfg WebSearchConfig) *WebSearch {
	var providers []SearchProvider
	if cfg.BraveAPIKey != "" {
		providers = append(providers, NewBraveProvider(cfg.BraveAPIKey))
	}
	if cfg.DDGEnabled {
		providers = append(providers, NewDuckDuckGoProvider())
	}
	if len(providers) == 0 {
		return nil
	}
	return newWebSearch(providers, cfg.MaxResults, cfg.CacheTTL)
}

func newWebSearch(providers []SearchProvider, count int, ttl time.Duration) *WebSearch {
	if count <= 0 || count > 10 {
		count = defaultSearchCount
	}
	return &WebSearch{providers: providers, count: count, cache: newWebCache(ttl)}
}

func (t *WebSearch) Name() string   { return agent.SkillWebSearch }
func (t *WebSearch) Action() string { return "search the web" }

func (t *WebSearch) Execute(ctx context.Context, call agent.SkillCall) *Result {
	c, ok := call.(agent.WebSearch)
	if !ok || strings.TrimSpace(c.Query) == "" {
		return InvalidResult("Search for what?")
	}
	out, err := t.Search(ctx, c.Query)
	if err != nil {
		return ErrorResult(t.Action(), err)
	}
	return NewResult(out)
}

// Search implements Searcher.
func (t *WebSearch) Search(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	key := cacheKey(query, strconv.Itoa(t.count))
	if cached, ok := t.cache.Get(key); ok {
		slog.Debug("web_search cache hit", "query", query)
		return cached, nil
	}

	var lastErr error
	for _, p := range t.providers {
		hits, err := p.Search(ctx, query, t.count)
		if err != nil {
			slog.Warn("web_search provider failed", "provider", p.Name(), "error", err)
			lastErr = err
			continue
		}
		out := formatSearchHits(query, hits)
		t.cache.Add(key, out)
		return out, nil
	}
	return "", fmt.Errorf("all search providers failed: %w", lastErr)
}

func formatSearchHits(query string, hits []SearchHit) string {
	if len(hits) == 0 {
		return fmt.Sprintf("No results found for: %s", query)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Results for %q:\n", query)
	for i, h := range hits {
		fmt.Fprintf(&sb, "%d. %s\n   %s\n", i+1, h.Title, h.URL)
		if h.Description != "" {
			fmt.Fprintf(&sb, "   %s\n", truncateRunes(h.Description, searchSnippetMax))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
