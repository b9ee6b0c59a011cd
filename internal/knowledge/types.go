// Package knowledge is the local knowledge base behind "explain X",
// "what is X" and organization lookups: topic entries in SQLite with an
// FTS5 index, seeded from YAML or markdown files.
package knowledge

import (
	"strings"
	"time"
)

// Entry kinds.
const (
	KindTerm = "term"
	KindOrg  = "org"
	KindDoc  = "doc"
)

// Entry is one knowledge-base topic.
type Entry struct {
	Topic     string    `json:"topic" yaml:"topic"`
	Kind      string    `json:"kind,omitempty" yaml:"kind,omitempty"`
	Aliases   []string  `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	Summary   string    `json:"summary" yaml:"summary"`
	URL       string    `json:"url,omitempty" yaml:"url,omitempty"`
	Source    string    `json:"source,omitempty" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at,omitempty" yaml:"-"`
}

// Key is the normalized lookup key for a topic or alias.
func Key(topic string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.Trim(topic, " \t?!.\"'"))), " ")
}

// SearchResult is one ranked match.
type SearchResult struct {
	Entry   Entry   `json:"entry"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet"`
}

// SearchOptions configures a search query.
type SearchOptions struct {
	MaxResults int     // top-K results (default 5)
	MinScore   float64 // minimum relevance score (0-1)
	Kind       string  // filter by kind ("" for all)
}
