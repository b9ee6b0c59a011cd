package skills

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/nextlevelbuilder/jibot/internal/agent"
)

const (
	defaultFetchMaxChars  = 5000
	defaultFetchRedirects = 3
)

// WebFetch reads a page and returns its title and main text.
type WebFetch struct {
	maxChars int
	client   *http.Client
	cache    *expirable.LRU[string, string]
	checkURL func(string) error
}

type WebFetchConfig struct {
	MaxChars int
	CacheTTL time.Duration
}

func NewWebFetch(cfg WebFetchConfig) *WebFetch {
	maxChars := cfg.MaxChars
	if maxChars <= 0 {
		maxChars = defaultFetchMaxChars
	}
	t := &WebFetch{
		maxChars: maxChars,
		cache:    newWebCache(cfg.CacheTTL),
		checkURL: checkSSRF,
	}
	t.client = &http.Client{
		Timeout: DefaultTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > defaultFetchRedirects {
				return fmt.Errorf("stopped after %d redirects", defaultFetchRedirects)
			}
			if err := t.checkURL(req.URL.String()); err != nil {
				return fmt.Errorf("redirect blocked: %w", err)
			}
			return nil
		},
	}
	return t
}

func (t *WebFetch) Name() string   { return agent.SkillWebFetch }
func (t *WebFetch) Action() string { return "fetch that page" }

func (t *WebFetch) Execute(ctx context.Context, call agent.SkillCall) *Result {
	c, ok := call.(agent.WebFetch)
	if !ok {
		return InvalidResult("Which page?")
	}
	rawURL := strings.Trim(strings.TrimSpace(c.URL), "<>")
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return InvalidResult("I can only read http or https links.")
	}
	if err := t.checkURL(rawURL); err != nil {
		return InvalidResult(fmt.Sprintf("I won't fetch that address (%v).", err))
	}

	key := cacheKey("fetch", rawURL)
	if cached, ok := t.cache.Get(key); ok {
		return NewResult(cached)
	}
	out, err := t.fetch(ctx, rawURL)
	if err != nil {
		return ErrorResult(t.Action(), err)
	}
	t.cache.Add(key, out)
	return NewResult(out)
}

func (t *WebFetch) fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", webUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body := io.LimitReader(resp.Body, int64(t.maxChars)*20)
	contentType := resp.Header.Get("Content-Type")

	var title, text string
	switch {
	case strings.Contains(contentType, "html"):
		doc, err := goquery.NewDocumentFromReader(body)
		if err != nil {
			return "", fmt.Errorf("parse html: %w", err)
		}
		title, text = extractPageText(doc)
	case strings.Contains(contentType, "json"):
		raw, err := io.ReadAll(body)
		if err != nil {
			return "", fmt.Errorf("read body: %w", err)
		}
		var v any
		if json.Unmarshal(raw, &v) == nil {
			pretty, _ := json.MarshalIndent(v, "", "  ")
			raw = pretty
		}
		text = string(raw)
	default:
		raw, err := io.ReadAll(body)
		if err != nil {
			return "", fmt.Errorf("read body: %w", err)
		}
		text = strings.TrimSpace(string(raw))
	}

	var sb strings.Builder
	if title != "" {
		sb.WriteString("*" + title + "*\n")
	}
	sb.WriteString(resp.Request.URL.String() + "\n\n")
	sb.WriteString(truncateRunes(text, t.maxChars))
	return sb.String(), nil
}

// extractPageText returns the page title and readable text, dropping
// scripts, styles and page chrome.
func extractPageText(doc *goquery.Document) (string, string) {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find("script, style, noscript, nav, header, footer, aside, form, svg").Remove()

	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("main").First()
	}
	if root.Length() == 0 {
		root = doc.Find("body")
	}

	var lines []string
	root.Find("h1, h2, h3, h4, p, li, pre, blockquote, td").Each(func(_ int, s *goquery.Selection) {
		if line := strings.Join(strings.Fields(s.Text()), " "); line != "" {
			lines = append(lines, line)
		}
	})
	if len(lines) == 0 {
		return title, strings.Join(strings.Fields(root.Text()), " ")
	}
	return title, strings.Join(lines, "\n")
}

// Title fetches rawURL and returns its HTML title, or "" when the page is
// blocked, unreachable or not HTML.
func (t *WebFetch) Title(ctx context.Context, rawURL string) string {
	if err := t.checkURL(rawURL); err != nil {
		return ""
	}
	key := cacheKey("title", rawURL)
	if cached, ok := t.cache.Get(key); ok {
		return cached
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", webUserAgent)
	resp, err := t.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 || !strings.Contains(resp.Header.Get("Content-Type"), "html") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, 512<<10))
	if err != nil {
		return ""
	}
	title := truncateRunes(strings.Join(strings.Fields(doc.Find("title").First().Text()), " "), 300)
	t.cache.Add(key, title)
	return title
}
