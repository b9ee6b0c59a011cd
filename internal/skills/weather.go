package skills

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nextlevelbuilder/jibot/internal/agent"
)

const (
	wttrEndpoint     = "https://wttr.in/"
	wttrFormat       = "%l:+%c+%t+%h+humidity,+%w+wind,+%p+precip"
	weatherTimeout   = 10 * time.Second
	defaultLocation  = "Tokyo"
	weatherUserAgent = "curl/7.64.1" // wttr.in only returns the one-line format to curl-like agents
)

// Weather reports current conditions from wttr.in.
type Weather struct {
	endpoint        string
	defaultLocation string
	client          *http.Client
}

func NewWeather(defaultLoc string) *Weather {
	if strings.TrimSpace(defaultLoc) == "" {
		defaultLoc = defaultLocation
	}
	return &Weather{
		endpoint:        wttrEndpoint,
		defaultLocation: defaultLoc,
		client:          &http.Client{Timeout: weatherTimeout},
	}
}

func (w *Weather) Name() string   { return agent.SkillWeather }
func (w *Weather) Action() string { return "get the weather" }

func (w *Weather) Execute(ctx context.Context, call agent.SkillCall) *Result {
	loc := w.defaultLocation
	if c, ok := call.(agent.Weather); ok && strings.TrimSpace(c.Location) != "" {
		loc = strings.TrimSpace(c.Location)
	}
	out, err := w.fetch(ctx, loc)
	if err != nil {
		return ErrorResult(w.Action(), err)
	}
	return NewResult(out)
}

func (w *Weather) fetch(ctx context.Context, loc string) (string, error) {
	// wttr.in expects spaces as '+' in the path and a literal format string.
	u := w.endpoint + url.PathEscape(strings.ReplaceAll(loc, " ", "+")) + "?format=" + wttrFormat
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", weatherUserAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("wttr.in returned %d", resp.StatusCode)
	}
	out := strings.TrimSpace(string(body))
	if out == "" || strings.HasPrefix(strings.ToLower(out), "unknown location") {
		return "", fmt.Errorf("location %q not found", loc)
	}
	return out, nil
}
