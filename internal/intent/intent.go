// Package intent is the rule-based natural-language classifier that runs
// when no literal command matched. It maps text to a coarse intent and an
// entity bag using an explicit, ordered rule table.
package intent

import (
	"regexp"
	"strings"
)

// Intent names.
const (
	ReminderList   = "reminder_list"
	Remind         = "remind"
	Notify         = "notify"
	CalendarCreate = "calendar_create"
	Calendar       = "calendar"
	EmailSearch    = "email_search"
	Weather        = "weather"
	WebSearch      = "web_search"
	OrgLookup      = "org_lookup"
	PersonLookup   = "person_lookup"
)

// FallbackConfidence is assigned to the short-input person lookup.
const FallbackConfidence = 0.4

// Intent is a successful parse.
type Intent struct {
	Name       string
	Confidence float64
	Entities   map[string]string
}

// rule is one row of the table: a predicate regexp and an extractor that
// turns its submatches into entities. A nil result rejects the match and
// evaluation continues with the next rule.
type rule struct {
	name       string
	confidence float64
	re         *regexp.Regexp
	extract    func(m []string) map[string]string
}

const mention = `(<@[A-Za-z0-9]+(?:\|[^>]+)?>|@?[\w.\-]+)`

// rules is evaluated top to bottom with early exit. Narrow intents come
// first: "what's on my schedule" and "what's in my inbox" would otherwise
// be captured by the generic "what is"/"tell me about" person lookup,
// and org lookups need their suffix checked before the person rule sees
// "what is X".
var rules = []rule{
	// 1. inbox / reminder list
	{
		name: ReminderList, confidence: 0.95,
		re: regexp.MustCompile(`(?i)^(?:(?:what'?s|what\s+is|show|list|check|read)\s+(?:me\s+)?(?:in\s+)?(?:my\s+|the\s+)?(?:inbox|reminders?)|(?:my\s+)?(?:inbox|reminders))(?:\s+please)?\s*[?.!]*$`),
		extract: func([]string) map[string]string { return map[string]string{} },
	},
	// 2. remind-action
	{
		name: Remind, confidence: 0.9,
		re: regexp.MustCompile(`(?i)^(?:please\s+)?remind\s+` + mention + `\s+(?:to|about|that)\s+(.+?)\s*[.!]*$`),
		extract: func(m []string) map[string]string {
			return map[string]string{"owner": strings.TrimPrefix(m[1], "@"), "text": m[2]}
		},
	},
	// 3. notify-action
	{
		name: Notify, confidence: 0.85,
		re: regexp.MustCompile(`(?i)^(?:please\s+)?(?:tell|message|dm|ping)\s+` + mention + `\s+(?:that\s+)?(.+?)\s*$`),
		extract: notifyEntities,
	},
	{
		name: Notify, confidence: 0.85,
		re: regexp.MustCompile(`(?i)^(?:please\s+)?let\s+` + mention + `\s+know\s+(?:that\s+)?(.+?)\s*$`),
		extract: notifyEntities,
	},
	// 4a. calendar create, before the query rule so "schedule a meeting" is not a query
	{
		name: CalendarCreate, confidence: 0.85,
		re: regexp.MustCompile(`(?i)^(?:please\s+)?(?:schedule|book|add|create|set\s+up)\s+(?:a\s+|an\s+)?((?:meeting|event|call|lunch|dinner|appointment)\b.*?)\s*[.!]*$`),
		extract: func(m []string) map[string]string {
			return map[string]string{"text": m[1]}
		},
	},
	// 4b. calendar query
	{
		name: Calendar, confidence: 0.9,
		re: regexp.MustCompile(`(?i)(?:\b(?:schedule|calendar|agenda)\b|\b(?:meetings?|appointments?)\b.*\b(?:today|tomorrow|this\s+week|next\s+week)\b|\bam\s+i\s+(?:free|busy)\b)`),
		extract: func(m []string) map[string]string { return map[string]string{} },
	},
	// 5. email search
	{
		name: EmailSearch, confidence: 0.85,
		re: regexp.MustCompile(`(?i)^(?:search|find|check)\s+(?:my\s+)?(?:e-?mails?|mail|gmail)\s+(?:for|about)\s+(.+?)\s*\??$`),
		extract: func(m []string) map[string]string { return map[string]string{"query": m[1]} },
	},
	{
		name: EmailSearch, confidence: 0.8,
		re: regexp.MustCompile(`(?i)\b(?:e-?mails?|mail|messages)\s+(from|about|regarding)\s+(.+?)\s*\??$`),
		extract: func(m []string) map[string]string {
			q := m[2]
			if strings.EqualFold(m[1], "from") {
				q = "from:" + strings.TrimPrefix(q, "@")
			}
			return map[string]string{"query": q}
		},
	},
	// 6. weather
	{
		name: Weather, confidence: 0.9,
		re: regexp.MustCompile(`(?i)\b(?:weather|forecast)\b(.*)$`),
		extract: func(m []string) map[string]string {
			loc := ""
			if lm := weatherLocationRe.FindStringSubmatch(m[1]); lm != nil {
				loc = lm[1]
			}
			return map[string]string{"location": loc}
		},
	},
	// 7. web search
	{
		name: WebSearch, confidence: 0.75,
		re: regexp.MustCompile(`(?i)^(?:search\s+(?:the\s+)?(?:web|internet)\s+for|search\s+for|google|look\s+up)\s+(.+?)\s*\??$`),
		extract: func(m []string) map[string]string { return map[string]string{"query": m[1]} },
	},
	// 8. organization lookup
	{
		name: OrgLookup, confidence: 0.8,
		re: regexp.MustCompile(`(?i)^(?:what\s+is|what's|tell\s+me\s+about)\s+(?:the\s+)?(.+?)\s+(?:company|corp|corporation|inc|org|organization|startup)\s*\??$`),
		extract: func(m []string) map[string]string { return map[string]string{"org": m[1]} },
	},
	{
		name: OrgLookup, confidence: 0.8,
		re: regexp.MustCompile(`(?i)^(?:tell\s+me\s+about|what\s+is)\s+the\s+(?:company|org|organization)\s+(.+?)\s*\??$`),
		extract: func(m []string) map[string]string { return map[string]string{"org": m[1]} },
	},
	{
		name: OrgLookup, confidence: 0.7,
		re: regexp.MustCompile(`(?i)^who\s+are\s+(.+?)\s*\??$`),
		extract: func(m []string) map[string]string { return map[string]string{"org": m[1]} },
	},
	// 9. person lookup, the generic catch for "who is / tell me about"
	{
		name: PersonLookup, confidence: 0.75,
		re: regexp.MustCompile(`(?i)^(?:who\s+is|who's|tell\s+me\s+about|what\s+do\s+you\s+know\s+about)\s+(.+?)\s*\??$`),
		extract: func(m []string) map[string]string {
			return map[string]string{"name": strings.TrimPrefix(m[1], "@")}
		},
	},
}

// notifyEntities rejects "tell me ..." which is a lookup, not a message.
func notifyEntities(m []string) map[string]string {
	recipient := strings.TrimPrefix(m[1], "@")
	if strings.EqualFold(recipient, "me") {
		return nil
	}
	return map[string]string{"recipient": recipient, "message": m[2]}
}

var weatherLocationRe = regexp.MustCompile(`(?i)\b(?:in|for|at)\s+(.+?)(?:\s+(?:today|tomorrow|now|this\s+week))?\s*[?.!]*$`)

// calendarWindow picks the window named in the text, defaulting to today.
func calendarWindow(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "next week"):
		return "next week"
	case strings.Contains(lower, "this week"), strings.Contains(lower, "week"):
		return "this week"
	case strings.Contains(lower, "tomorrow"):
		return "tomorrow"
	default:
		return "today"
	}
}

// Parse runs the rule table and falls back to a low-confidence person
// lookup for short inputs without a question mark.
func Parse(text string) (Intent, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Intent{}, false
	}
	for _, r := range rules {
		m := r.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		ents := r.extract(m)
		if ents == nil {
			continue
		}
		if r.name == Calendar {
			// the rule only matched a keyword; read the window from the whole text
			ents["when"] = calendarWindow(text)
		}
		return Intent{Name: r.name, Confidence: r.confidence, Entities: ents}, true
	}

	// 10. fallback: bare names like "alice chen"
	if words := strings.Fields(text); len(words) <= 4 && !strings.Contains(text, "?") {
		return Intent{
			Name:       PersonLookup,
			Confidence: FallbackConfidence,
			Entities:   map[string]string{"name": strings.TrimPrefix(text, "@")},
		}, true
	}
	return Intent{}, false
}
