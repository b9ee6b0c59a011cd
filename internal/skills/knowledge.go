package skills

import (
	"context"
	"fmt"
	"strings"

	"github.com/nextlevelbuilder/jibot/internal/agent"
	"github.com/nextlevelbuilder/jibot/internal/knowledge"
)

// KnowledgeBase is the read side of the knowledge store.
type KnowledgeBase interface {
	Lookup(topic string) (knowledge.Entry, bool)
	Search(query string, opts knowledge.SearchOptions) ([]knowledge.SearchResult, error)
}

// Explainer answers "explain X" and "what is X".
type Explainer struct {
	kb KnowledgeBase
}

func NewExplainer(kb KnowledgeBase) *Explainer {
	return &Explainer{kb: kb}
}

// minExplainScore keeps weak full-text hits out of explain answers.
const minExplainScore = 0.2

// Explain looks the topic up by key or alias, then by full-text search.
func (e *Explainer) Explain(_ context.Context, topic string) string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "Explain what? Try `explain <topic>`."
	}
	if e == nil || e.kb == nil {
		return FailureLine("look that up", "not configured")
	}
	if entry, ok := e.kb.Lookup(topic); ok {
		return formatEntry(entry)
	}
	results, err := e.kb.Search(topic, knowledge.SearchOptions{MaxResults: 3, MinScore: minExplainScore})
	if err != nil {
		return FailureLine("look that up", ShortReason(err))
	}
	if len(results) == 0 {
		return fmt.Sprintf("I don't have anything on %q yet.", topic)
	}
	out := formatEntry(results[0].Entry)
	if len(results) > 1 {
		var also []string
		for _, r := range results[1:] {
			also = append(also, r.Entry.Topic)
		}
		out += "\nSee also: " + strings.Join(also, ", ")
	}
	return out
}

func formatEntry(e knowledge.Entry) string {
	var sb strings.Builder
	sb.WriteString("*" + e.Topic + "*: " + strings.TrimSpace(e.Summary))
	if e.URL != "" {
		sb.WriteString("\n" + e.URL)
	}
	return sb.String()
}

// OrgLookup answers org_lookup from the knowledge base and falls back to web search.
type OrgLookup struct {
	kb  KnowledgeBase
	web Searcher // optional
}

func NewOrgLookup(kb KnowledgeBase, web Searcher) *OrgLookup {
	return &OrgLookup{kb: kb, web: web}
}

func (h *OrgLookup) Name() string   { return agent.SkillOrgLookup }
func (h *OrgLookup) Action() string { return "look up that organization" }

func (h *OrgLookup) Execute(ctx context.Context, call agent.SkillCall) *Result {
	c, ok := call.(agent.OrgLookup)
	if !ok || strings.TrimSpace(c.Org) == "" {
		return InvalidResult("Which organization?")
	}
	org := strings.TrimSpace(c.Org)

	if h.kb != nil {
		if e, ok := h.kb.Lookup(org); ok {
			return NewResult(formatEntry(e))
		}
		results, err := h.kb.Search(org, knowledge.SearchOptions{MaxResults: 1, MinScore: minExplainScore, Kind: knowledge.KindOrg})
		if err == nil && len(results) > 0 {
			return NewResult(formatEntry(results[0].Entry))
		}
	}

	if h.web == nil {
		return NewResult(fmt.Sprintf("I don't have anything on %s.", org))
	}
	out, err := h.web.Search(ctx, org+" organization")
	if err != nil {
		return ErrorResult(h.Action(), err)
	}
	return NewResult(out)
}
