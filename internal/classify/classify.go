// Package classify recognizes the literal command shapes of the bot
// ("X is Y", "who is X", "forget X n", greetings) and extracts typed
// arguments. Matching is case-insensitive, all-or-nothing per pattern and
// free of side effects.
package classify

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DefaultTrigger is the addressee word used when none is configured.
const DefaultTrigger = "jibot"

// Kind identifies which literal command matched.
type Kind int

const (
	KindNone Kind = iota
	KindHelp
	KindForget
	KindRecall
	KindExplain
	KindRemind
	KindLearn
)

func (k Kind) String() string {
	switch k {
	case KindHelp:
		return "help"
	case KindForget:
		return "forget"
	case KindRecall:
		return "recall"
	case KindExplain:
		return "explain"
	case KindRemind:
		return "remind"
	case KindLearn:
		return "learn"
	default:
		return "none"
	}
}

// SelectorMode is the forget argument after parsing.
type SelectorMode int

const (
	SelectList SelectorMode = iota
	SelectIndex
	SelectAll
)

// Selector is the parsed forget argument. Index is 1-based and only set
// for SelectIndex. Raw holds the digits when they overflow int; Index is
// then math.MaxInt so the lookup is always out of range.
type Selector struct {
	Mode  SelectorMode
	Index int
	Raw   string
}

// Result is a successful classification.
type Result struct {
	Kind Kind
	// Addressed reports whether the text started with the trigger or a bot mention.
	Addressed bool

	Subject  Mention  // learn, recall, forget
	FactText string   // learn
	Selector Selector // forget

	Topic string // explain

	Owner        Mention // remind; ID "me" means the caller
	OwnerIsSelf  bool
	ReminderText string
}

// Options configures a Classifier.
type Options struct {
	// Trigger is the word that addresses the bot (default "jibot").
	Trigger string
	// BotUserID is the bot's platform user id; "<@BotUserID>" also addresses the bot.
	BotUserID string
}

// matcher binds one command shape to its extractor.
type matcher struct {
	kind    Kind
	re      *regexp.Regexp
	extract func(m []string) (Result, bool)
}

// Classifier runs the ordered literal matchers.
type Classifier struct {
	trigger   string
	addressRe *regexp.Regexp
	matchers  []matcher
}

// reservedSubjects can never be the subject of a learned fact.
var reservedSubjects = map[string]bool{
	"forget": true, "who": true, "what": true, "whatis": true, "remind": true,
	"explain": true, "help": true, "it": true, "this": true, "that": true,
	"there": true, "here": true,
}

// explainExclusions hand questions about the caller's own data to the
// intent parser instead of the knowledge base.
var explainExclusions = map[string]bool{
	"my": true, "me": true, "i": true, "our": true, "company": true, "org": true,
	"organization": true, "weather": true, "schedule": true, "calendar": true,
	"inbox": true, "email": true, "mail": true,
}

// New builds a classifier for the given trigger and bot id.
func New(opts Options) *Classifier {
	trigger := strings.ToLower(strings.TrimSpace(opts.Trigger))
	if trigger == "" {
		trigger = DefaultTrigger
	}
	addr := `@?` + regexp.QuoteMeta(trigger)
	if opts.BotUserID != "" {
		addr = `<@` + regexp.QuoteMeta(opts.BotUserID) + `(?:\|[^>]*)?>|` + addr
	}
	addr = `(?:` + addr + `)[,:]?`

	c := &Classifier{
		trigger:   trigger,
		addressRe: regexp.MustCompile(`(?i)^` + addr + `(?:\s|$)`),
	}

	// Order is the contract: Forget must precede Learn so
	// "jibot forget @x is broken" never learns a fact, and Recall must
	// precede Explain so "who is" never reaches the knowledge base.
	c.matchers = []matcher{
		{
			kind: KindHelp,
			re: regexp.MustCompile(`(?i)^(?:` + addr + `|(?:` + addr + `\s+)?(?:hi|hello|help|hey|` +
				regexp.QuoteMeta(trigger) + `|\?))[\s!.?]*$`),
			extract: func([]string) (Result, bool) { return Result{Kind: KindHelp}, true },
		},
		{
			kind:    KindForget,
			re:      regexp.MustCompile(`(?i)^` + addr + `\s+forget\s+` + mentionPattern + `(?:\s+(.*?))?\s*$`),
			extract: c.extractForget,
		},
		{
			kind:    KindRecall,
			re:      regexp.MustCompile(`(?i)^(?:` + addr + `\s+)?who\s+is\s+` + mentionPattern + `\s*\??\s*$`),
			extract: c.extractRecall,
		},
		{
			kind:    KindExplain,
			re:      regexp.MustCompile(`(?i)^(?:` + addr + `\s+)?(?:explain|what\s+is|what's|whatis)\s+(.+?)[\s?.!]*$`),
			extract: c.extractExplain,
		},
		{
			kind:    KindRemind,
			re:      regexp.MustCompile(`(?i)^(?:` + addr + `\s+)?remind\s+` + mentionPattern + `\s+to\s+(.+?)\s*$`),
			extract: c.extractRemind,
		},
		{
			kind:    KindLearn,
			re:      regexp.MustCompile(`(?i)^` + addr + `\s+` + mentionPattern + `\s+is\s+(.+?)\s*$`),
			extract: c.extractLearn,
		},
	}
	return c
}

// Trigger returns the configured addressee word.
func (c *Classifier) Trigger() string { return c.trigger }

// Addressed reports whether text starts with the trigger or a bot mention.
func (c *Classifier) Addressed(text string) bool {
	return c.addressRe.MatchString(strings.TrimSpace(text))
}

// StripAddress removes a leading trigger or bot mention.
func (c *Classifier) StripAddress(text string) string {
	text = strings.TrimSpace(text)
	if loc := c.addressRe.FindStringIndex(text); loc != nil {
		return strings.TrimSpace(text[loc[1]:])
	}
	return text
}

// Classify tries each matcher in order. The first full match wins.
func (c *Classifier) Classify(text string) (Result, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, false
	}
	for _, mt := range c.matchers {
		m := mt.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		res, ok := mt.extract(m)
		if !ok {
			continue
		}
		res.Kind = mt.kind
		res.Addressed = c.Addressed(text)
		return res, true
	}
	return Result{}, false
}

func (c *Classifier) extractForget(m []string) (Result, bool) {
	subj, ok := ParseMention(m[1])
	if !ok {
		return Result{}, false
	}
	return Result{Subject: subj, Selector: ParseSelector(m[2])}, true
}

func (c *Classifier) extractRecall(m []string) (Result, bool) {
	subj, ok := ParseMention(m[1])
	if !ok {
		return Result{}, false
	}
	return Result{Subject: subj}, true
}

func (c *Classifier) extractExplain(m []string) (Result, bool) {
	topic := strings.TrimSpace(m[1])
	for _, w := range strings.Fields(strings.ToLower(topic)) {
		if explainExclusions[strings.Trim(w, "?!.,'\"")] {
			return Result{}, false
		}
	}
	if topic == "" {
		return Result{}, false
	}
	return Result{Topic: topic}, true
}

func (c *Classifier) extractRemind(m []string) (Result, bool) {
	owner, ok := ParseMention(m[1])
	if !ok {
		return Result{}, false
	}
	text := strings.TrimSpace(m[2])
	if text == "" {
		return Result{}, false
	}
	return Result{Owner: owner, OwnerIsSelf: owner.ID == "me", ReminderText: text}, true
}

func (c *Classifier) extractLearn(m []string) (Result, bool) {
	subj, ok := ParseMention(m[1])
	if !ok {
		return Result{}, false
	}
	if !subj.PlatformID && (reservedSubjects[subj.ID] || subj.ID == c.trigger) {
		return Result{}, false
	}
	fact := strings.TrimSpace(m[2])
	if fact == "" {
		return Result{}, false
	}
	return Result{Subject: subj, FactText: fact}, true
}

// ParseSelector interprets the forget argument. Only its first token
// counts: none means list, "all"/"everything" clears, a positive integer
// selects a 1-based fact, anything else silently falls back to list.
func ParseSelector(arg string) Selector {
	fields := strings.Fields(arg)
	if len(fields) == 0 {
		return Selector{Mode: SelectList}
	}
	tok := strings.ToLower(strings.Trim(fields[0], "#.,!?"))
	switch tok {
	case "all", "everything":
		return Selector{Mode: SelectAll}
	}
	n, err := strconv.Atoi(tok)
	switch {
	case err == nil && n > 0:
		return Selector{Mode: SelectIndex, Index: n}
	case errors.Is(err, strconv.ErrRange) && tok[0] != '-':
		return Selector{Mode: SelectIndex, Index: math.MaxInt, Raw: tok}
	}
	return Selector{Mode: SelectList}
}
