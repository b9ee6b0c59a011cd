// Package skills maps resolved skill calls to handlers and renders every
// outcome, including failures, as display text.
package skills

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nextlevelbuilder/jibot/internal/agent"
	"github.com/nextlevelbuilder/jibot/internal/store"
)

// DefaultTimeout bounds every handler's external calls.
const DefaultTimeout = 30 * time.Second

var tracer = otel.Tracer("github.com/nextlevelbuilder/jibot/internal/skills")

// Dispatcher routes skill calls to registered handlers.
type Dispatcher struct {
	handlers    map[string]Handler
	mu          sync.RWMutex
	rateLimiter *RateLimiter // nil = no rate limiting
	scrubbing   bool
	timeout     time.Duration
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers:  make(map[string]Handler),
		scrubbing: true,
		timeout:   DefaultTimeout,
	}
}

// SetRateLimiter enables per-user skill rate limiting.
func (d *Dispatcher) SetRateLimiter(rl *RateLimiter) {
	d.rateLimiter = rl
}

// SetScrubbing enables or disables credential scrubbing on output.
func (d *Dispatcher) SetScrubbing(enabled bool) {
	d.scrubbing = enabled
}

// SetTimeout overrides DefaultTimeout. Non-positive values are ignored.
func (d *Dispatcher) SetTimeout(t time.Duration) {
	if t > 0 {
		d.timeout = t
	}
}

// Register adds a handler, replacing any handler with the same name.
func (d *Dispatcher) Register(h Handler) {
	if h == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[h.Name()] = h
}

func (d *Dispatcher) Get(name string) (Handler, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	h, ok := d.handlers[name]
	return h, ok
}

// List returns registered handler names, sorted.
func (d *Dispatcher) List() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs exactly one handler and returns its display text.
// It never panics and never returns an error.
func (d *Dispatcher) Dispatch(ctx context.Context, call agent.SkillCall) string {
	return d.run(ctx, call).Text
}

// DispatchAll runs calls strictly in order. Silent results are dropped.
func (d *Dispatcher) DispatchAll(ctx context.Context, calls []agent.SkillCall) []string {
	outputs := make([]string, 0, len(calls))
	for _, call := range calls {
		r := d.run(ctx, call)
		if r.Silent || r.Text == "" {
			continue
		}
		outputs = append(outputs, r.Text)
	}
	return outputs
}

func (d *Dispatcher) run(ctx context.Context, call agent.SkillCall) (result *Result) {
	if call == nil {
		return InvalidResult("I didn't get which skill to run.")
	}
	name := call.SkillName()

	ctx, span := tracer.Start(ctx, "skill."+name, trace.WithAttributes(
		attribute.String("skill.name", name),
		attribute.String("user.id", store.UserIDFromContext(ctx)),
	))
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("skill panicked", "skill", name, "panic", rec)
			span.SetStatus(codes.Error, "panic")
			result = &Result{Text: FailureLine(d.Action(name), "internal error"), IsError: true}
		}
	}()

	if u, ok := call.(agent.UnknownSkill); ok {
		slog.Info("unknown skill requested", "skill", u.Name)
		return &Result{Text: fmt.Sprintf("I don't know how to %s yet.", u.Name), IsError: true}
	}

	h, ok := d.Get(name)
	if !ok {
		return &Result{Text: FailureLine(defaultAction(name), "not configured"), IsError: true}
	}

	if d.rateLimiter != nil {
		if key := store.UserIDFromContext(ctx); key != "" {
			if err := d.rateLimiter.Allow(key); err != nil {
				slog.Warn("security.rate_limited", "skill", name, "user", key)
				return &Result{Text: FailureLine(h.Action(), "rate limited, try again later"), IsError: true}
			}
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	result = h.Execute(runCtx, call)
	if result == nil {
		result = SilentResult()
	}
	duration := time.Since(start)

	if d.scrubbing && result.Text != "" {
		result.Text = ScrubCredentials(result.Text)
	}
	if result.IsError {
		span.SetStatus(codes.Error, "skill failed")
		if result.Err != nil {
			span.RecordError(result.Err)
			slog.Warn("skill failed", "skill", name, "error", result.Err)
		}
	}

	slog.Debug("skill executed",
		"skill", name,
		"duration_ms", duration.Milliseconds(),
		"is_error", result.IsError,
	)
	return result
}

// Action returns the failure-line verb phrase for a skill.
func (d *Dispatcher) Action(name string) string {
	if h, ok := d.Get(name); ok {
		return h.Action()
	}
	return defaultAction(name)
}

var defaultActions = map[string]string{
	agent.SkillPersonLookup:   "look up that person",
	agent.SkillOrgLookup:      "look up that organization",
	agent.SkillCalendarList:   "read your calendar",
	agent.SkillCalendarCreate: "create the event",
	agent.SkillEmailSearch:    "search your mail",
	agent.SkillEmailDraft:     "draft the email",
	agent.SkillReminderList:   "read the reminders",
	agent.SkillReminderAdd:    "add the reminder",
	agent.SkillSlackDM:        "send the message",
	agent.SkillWeather:        "get the weather",
	agent.SkillWebSearch:      "search the web",
	agent.SkillWebFetch:       "fetch that page",
	agent.SkillRespond:        "reply",
}

func defaultAction(name string) string {
	if a, ok := defaultActions[name]; ok {
		return a
	}
	return "run " + name
}
