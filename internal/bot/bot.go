package bot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nextlevelbuilder/jibot/internal/agent"
	"github.com/nextlevelbuilder/jibot/internal/classify"
	"github.com/nextlevelbuilder/jibot/internal/intent"
	"github.com/nextlevelbuilder/jibot/internal/permissions"
	"github.com/nextlevelbuilder/jibot/internal/skills"
)

var tracer = otel.Tracer("github.com/nextlevelbuilder/jibot/internal/bot")

const (
	genericErrorMessage = "Sorry, something went wrong on my side. Please try again."
	blockedMessage      = "I can't help with that one."
	rateLimitedMessage  = "You're sending messages faster than I can keep up. Give me a moment."

	// DefaultMinRuleConfidence is the rule confidence below which the LLM
	// resolver is preferred when it is available.
	DefaultMinRuleConfidence = 0.5
)

// privateSkills touch the owner's own data and need at least admin.
var privateSkills = map[string]bool{
	agent.SkillReminderList:   true,
	agent.SkillCalendarList:   true,
	agent.SkillCalendarCreate: true,
	agent.SkillEmailSearch:    true,
	agent.SkillEmailDraft:     true,
	agent.SkillSlackDM:        true,
}

// IsPrivateSkill reports whether a skill is restricted to the owner and admins.
func IsPrivateSkill(name string) bool { return privateSkills[name] }

// Settings are the hot-reloadable knobs of the pipeline.
type Settings struct {
	Trigger   string
	BotUserID string
	Herald    bool
	// LLM enables the resolver stage in DMs.
	LLM bool
	// AssistantMode also runs the resolver for addressed channel messages.
	AssistantMode     bool
	MinRuleConfidence float64
}

// Config wires the pipeline. Only Dispatcher and Facts are required.
type Config struct {
	Dispatcher  *skills.Dispatcher
	Facts       *skills.Facts
	Reminders   *skills.Reminders
	Explainer   *skills.Explainer
	Gate        *permissions.Gate
	Resolver    *agent.Resolver
	Synthesizer *agent.Synthesizer
	Sessions    *agent.SessionStore
	Guard       *agent.InputGuard
	Limiter     *RateLimiter
	// CommandName is the slash command shown in docs (default "/jibot").
	CommandName string
	Settings    Settings
}

// Bot runs the classification pipeline. It is safe for concurrent use.
type Bot struct {
	dispatcher  *skills.Dispatcher
	facts       *skills.Facts
	reminders   *skills.Reminders
	explainer   *skills.Explainer
	gate        *permissions.Gate
	resolver    *agent.Resolver
	synthesizer *agent.Synthesizer
	sessions    *agent.SessionStore
	guard       *agent.InputGuard
	limiter     *RateLimiter
	commandName string

	mu       sync.RWMutex
	settings Settings
	cls      *classify.Classifier
}

func New(cfg Config) *Bot {
	if cfg.Dispatcher == nil {
		cfg.Dispatcher = skills.NewDispatcher()
	}
	if cfg.Sessions == nil {
		cfg.Sessions = agent.NewSessionStore(agent.DefaultMaxSessions, agent.DefaultHistoryTurns)
	}
	if cfg.CommandName == "" {
		cfg.CommandName = "/jibot"
	}
	b := &Bot{
		dispatcher:  cfg.Dispatcher,
		facts:       cfg.Facts,
		reminders:   cfg.Reminders,
		explainer:   cfg.Explainer,
		gate:        cfg.Gate,
		resolver:    cfg.Resolver,
		synthesizer: cfg.Synthesizer,
		sessions:    cfg.Sessions,
		guard:       cfg.Guard,
		limiter:     cfg.Limiter,
		commandName: cfg.CommandName,
	}
	b.Apply(cfg.Settings)
	return b
}

// Apply swaps the settings in place. Messages already in flight keep the
// snapshot they started with.
func (b *Bot) Apply(s Settings) {
	if s.MinRuleConfidence <= 0 {
		s.MinRuleConfidence = DefaultMinRuleConfidence
	}
	cls := classify.New(classify.Options{Trigger: s.Trigger, BotUserID: s.BotUserID})
	s.Trigger = cls.Trigger()

	b.mu.Lock()
	b.settings = s
	b.cls = cls
	b.mu.Unlock()
	slog.Info("bot settings applied", "trigger", s.Trigger, "herald", s.Herald, "llm", s.LLM, "assistant_mode", s.AssistantMode)
}

// Settings returns the current settings.
func (b *Bot) Settings() Settings {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.settings
}

func (b *Bot) snapshot() (Settings, *classify.Classifier) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.settings, b.cls
}

// Handle runs one message through the pipeline:
//
//	guard -> rate limit -> pattern -> rule -> LLM -> dispatch -> synthesize
//
// Unaddressed channel chatter yields a Silent reply; everything else gets
// a non-empty text, even when every stage fails.
func (b *Bot) Handle(ctx context.Context, msg Message) (reply Reply) {
	ctx, span := tracer.Start(ctx, "bot.handle", trace.WithAttributes(
		attribute.String("platform", msg.Platform),
		attribute.Bool("dm", msg.IsDM),
	))
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("bot: panic while handling message", "panic", r, "user", msg.UserID, "stack", string(debug.Stack()))
			reply = Reply{Text: genericErrorMessage, Stage: "error"}
		}
		span.SetAttributes(attribute.String("stage", reply.Stage))
	}()

	text := strings.TrimSpace(msg.Text)
	if text == "" || msg.UserID == "" {
		return silent()
	}
	ctx = msg.context(ctx)
	settings, cls := b.snapshot()
	addressed := msg.IsDM || cls.Addressed(text)

	if b.guard != nil && b.guard.Check(msg.UserID, text) {
		if !addressed {
			return silent()
		}
		return Reply{Text: blockedMessage, Stage: "guard"}
	}
	if !b.limiter.Allow(msg.Platform + ":" + msg.UserID) {
		if !addressed {
			return silent()
		}
		return Reply{Text: rateLimitedMessage, Stage: "ratelimit"}
	}

	if res, ok := cls.Classify(text); ok {
		if r, handled := b.handlePattern(ctx, cls, res, addressed); handled {
			return r
		}
	}
	if !addressed {
		return silent()
	}

	body := cls.StripAddress(text)
	if body == "" {
		return Reply{Text: HelpText(cls.Trigger()), Stage: "help"}
	}

	useLLM := b.llmEnabled(settings, msg)
	if in, ok := intent.Parse(body); ok && (in.Confidence >= settings.MinRuleConfidence || !useLLM) {
		if call := callForIntent(in); call != nil {
			slog.Debug("bot: rule matched", "intent", in.Name, "confidence", in.Confidence)
			return b.dispatch(ctx, msg, call)
		}
	}
	if useLLM {
		return b.resolve(ctx, msg, body)
	}
	return Reply{Text: HelpText(cls.Trigger()), Stage: "help"}
}

func (b *Bot) llmEnabled(s Settings, msg Message) bool {
	if b.resolver == nil || !s.LLM {
		return false
	}
	return msg.IsDM || s.AssistantMode
}

// handlePattern answers a literal command. It reports false when the
// match should fall through to the later stages.
func (b *Bot) handlePattern(ctx context.Context, cls *classify.Classifier, res classify.Result, addressed bool) (Reply, bool) {
	pattern := func(text string) (Reply, bool) { return Reply{Text: text, Stage: "pattern"}, true }

	switch res.Kind {
	case classify.KindHelp:
		if !addressed {
			return silent(), true
		}
		return Reply{Text: HelpText(cls.Trigger()), Stage: "help"}, true

	case classify.KindLearn:
		return pattern(b.facts.Learn(ctx, res.Subject, res.FactText))

	case classify.KindForget:
		return pattern(b.facts.Forget(ctx, res.Subject, res.Selector))

	case classify.KindRecall:
		if addressed {
			return pattern(b.facts.Recall(ctx, res.Subject))
		}
		// overheard "who is X" only gets an answer when something is known
		if sentence, ok := b.facts.Herald(ctx, res.Subject); ok {
			return pattern(sentence)
		}
		return silent(), true

	case classify.KindExplain:
		if !addressed {
			return silent(), true
		}
		if b.explainer == nil {
			return pattern(skills.FailureLine("look that up", "not configured"))
		}
		return pattern(b.explainer.Explain(ctx, res.Topic))

	case classify.KindRemind:
		if !addressed {
			return silent(), true
		}
		owner := ""
		if !res.OwnerIsSelf {
			owner = res.Owner.Name
			if res.Owner.PlatformID {
				owner = "<@" + res.Owner.ID + ">"
			}
		}
		text, err := b.reminders.Add(ctx, res.ReminderText, owner)
		if err != nil {
			return pattern(skills.FailureLine("add the reminder", skills.ShortReason(err)))
		}
		return pattern(text)
	}
	return Reply{}, false
}

// callForIntent maps a rule-based intent onto the skill that serves it.
func callForIntent(in intent.Intent) agent.SkillCall {
	e := in.Entities
	switch in.Name {
	case intent.ReminderList:
		return agent.ReminderList{}
	case intent.Remind:
		owner := e["owner"]
		if strings.EqualFold(owner, "me") {
			owner = ""
		}
		return agent.ReminderAdd{Text: e["text"], Owner: owner}
	case intent.Notify:
		return agent.SlackDM{Recipient: e["recipient"], Message: e["message"]}
	case intent.CalendarCreate:
		return agent.CalendarCreate{Text: e["text"]}
	case intent.Calendar:
		return agent.CalendarList{When: e["when"]}
	case intent.EmailSearch:
		return agent.EmailSearch{Query: e["query"]}
	case intent.Weather:
		return agent.Weather{Location: e["location"]}
	case intent.WebSearch:
		return agent.WebSearch{Query: e["query"]}
	case intent.OrgLookup:
		return agent.OrgLookup{Org: e["org"]}
	case intent.PersonLookup:
		return agent.PersonLookup{Name: e["name"]}
	}
	return nil
}

// authorize returns a refusal line when the sender may not run call.
func (b *Bot) authorize(msg Message, call agent.SkillCall) (string, bool) {
	name := call.SkillName()
	if !privateSkills[name] || b.gate == nil {
		return "", true
	}
	if b.gate.RequireAtLeast(msg.Identity(), permissions.RoleAdmin) {
		return "", true
	}
	slog.Warn("security.skill_denied", "skill", name, "user", msg.UserID, "workspace", msg.Workspace)
	return fmt.Sprintf("Sorry, only the owner and admins can ask me to %s.", b.dispatcher.Action(name)), false
}

func (b *Bot) dispatch(ctx context.Context, msg Message, call agent.SkillCall) Reply {
	if refusal, ok := b.authorize(msg, call); !ok {
		return Reply{Text: refusal, Stage: "rule"}
	}
	out := b.dispatcher.Dispatch(ctx, call)
	if out == "" {
		out = "Done."
	}
	return Reply{Text: out, Stage: "rule"}
}

func (b *Bot) sessionKey(msg Message) string {
	id := msg.Workspace + "/" + msg.UserID
	if b.gate != nil {
		id = b.gate.CanonicalID(msg.Identity())
	}
	return msg.Platform + ":" + id
}

// resolve asks the LLM which skills answer body, runs them in order and
// merges their outputs.
func (b *Bot) resolve(ctx context.Context, msg Message, body string) Reply {
	hist := b.sessions.Get(b.sessionKey(msg))
	res := b.resolver.Resolve(ctx, hist, body)

	var out string
	if res.Failed || len(res.Skills) == 0 {
		out = res.Reply()
	} else {
		var outputs []string
		direct := true
		for _, call := range res.Skills {
			if call.SkillName() != agent.SkillRespond {
				direct = false
			}
			if refusal, ok := b.authorize(msg, call); !ok {
				outputs = append(outputs, refusal)
				continue
			}
			outputs = append(outputs, b.dispatcher.DispatchAll(ctx, []agent.SkillCall{call})...)
		}
		switch {
		case len(outputs) == 0:
			out = res.Reply()
		case direct:
			out = agent.Concat(outputs)
		default:
			out = b.synthesizer.Synthesize(ctx, body, outputs)
		}
	}
	if out == "" {
		out = agent.FallbackMessage
	}
	b.resolver.Remember(hist, out)
	return Reply{Text: out, Stage: "llm"}
}
