package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/nextlevelbuilder/jibot/internal/agent"
	"github.com/nextlevelbuilder/jibot/internal/bot"
	"github.com/nextlevelbuilder/jibot/internal/calendar"
	"github.com/nextlevelbuilder/jibot/internal/config"
	"github.com/nextlevelbuilder/jibot/internal/google"
	"github.com/nextlevelbuilder/jibot/internal/knowledge"
	"github.com/nextlevelbuilder/jibot/internal/mail"
	"github.com/nextlevelbuilder/jibot/internal/permissions"
	"github.com/nextlevelbuilder/jibot/internal/providers"
	"github.com/nextlevelbuilder/jibot/internal/skills"
	"github.com/nextlevelbuilder/jibot/internal/store"
	"github.com/nextlevelbuilder/jibot/internal/store/file"
	"github.com/nextlevelbuilder/jibot/internal/store/redis"
)

// app is every long-lived component a command may need.
type app struct {
	cfg        *config.Config
	stores     *store.Stores
	facts      *skills.Facts
	reminders  *skills.Reminders
	explainer  *skills.Explainer
	gate       *permissions.Gate
	kb         *knowledge.Store // nil when the knowledge base failed to open
	webSearch  *skills.WebSearch
	webFetch   *skills.WebFetch
	dispatcher *skills.Dispatcher
	sessions   *agent.SessionStore
	bot        *bot.Bot

	closers []func() error
}

func (rt *app) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			slog.Warn("close failed", "error", err)
		}
	}
}

// openStores builds the file stores and swaps in the redis reminder list
// when configured. The returned closer is never nil.
func openStores(cfg *config.Config) (*store.Stores, func() error, error) {
	noop := func() error { return nil }
	stores, err := file.NewFileStores(store.StoreConfig{
		DataDir:           cfg.ResolvedDataDir(),
		FactsPerWorkspace: cfg.Facts.PerWorkspace,
		ReminderBackend:   cfg.Reminders.Backend,
	})
	if err != nil {
		return nil, noop, err
	}
	if cfg.Reminders.Backend != "redis" {
		return stores, noop, nil
	}
	list, err := redis.NewReminderList(redis.Config{
		Addr:     cfg.Reminders.Redis.Addr,
		Password: cfg.Reminders.Redis.Password,
		DB:       cfg.Reminders.Redis.DB,
		Key:      cfg.Reminders.Redis.Key,
	})
	if err != nil {
		return nil, noop, fmt.Errorf("reminder backend: %w", err)
	}
	stores.Reminders = list
	return stores, list.Close, nil
}

// openKnowledge opens the knowledge base and imports the configured seed files.
func openKnowledge(cfg *config.Config) (*knowledge.Store, error) {
	kb, err := knowledge.Open(cfg.KnowledgePath())
	if err != nil {
		return nil, err
	}
	for _, path := range cfg.Knowledge.Seed {
		res, err := kb.ImportFile(config.ExpandHome(path))
		if err != nil {
			slog.Warn("knowledge seed import failed", "file", path, "error", err)
			continue
		}
		slog.Debug("knowledge seed imported", "file", path, "added", res.Added, "unchanged", res.Unchanged, "failed", res.Failed)
	}
	return kb, nil
}

// googleBackends returns nil backends when Google is not authorized yet.
func googleBackends(ctx context.Context, cfg *config.Config) (calendar.Backend, mail.Backend) {
	if cfg.Google.CredentialsFile == "" {
		return nil, nil
	}
	tokens := google.NewTokenStore(cfg.GoogleTokenPath())
	if _, err := os.Stat(tokens.Path()); errors.Is(err, os.ErrNotExist) {
		slog.Info("google not authorized; run `jibot google auth`")
		return nil, nil
	}
	oauthCfg, err := google.Config(config.ExpandHome(cfg.Google.CredentialsFile))
	if err != nil {
		slog.Warn("google credentials", "error", err)
		return nil, nil
	}
	ts, err := google.TokenSource(ctx, oauthCfg, tokens)
	if err != nil {
		slog.Warn("google token", "error", err)
		return nil, nil
	}

	var cal calendar.Backend
	if b, err := calendar.NewGoogleBackend(ctx, ts, "primary"); err != nil {
		slog.Warn("calendar backend", "error", err)
	} else {
		cal = b
	}
	var gm mail.Backend
	if b, err := mail.NewGmailBackend(ctx, ts); err != nil {
		slog.Warn("gmail backend", "error", err)
	} else {
		gm = b
	}
	return cal, gm
}

func botSettings(cfg *config.Config) bot.Settings {
	return bot.Settings{
		Trigger:           config.NormalizeTrigger(cfg.Bot.Trigger),
		Herald:            cfg.Bot.Herald,
		LLM:               cfg.LLM.Enabled,
		AssistantMode:     cfg.Bot.AssistantMode,
		MinRuleConfidence: cfg.Bot.MinRuleConfidence,
	}
}

// buildRuntime wires stores, skills and the bot. Adapter-backed skills
// (slack_dm) are registered by the caller once the adapter exists.
func buildRuntime(ctx context.Context, cfg *config.Config) (*app, error) {
	rt := &app{cfg: cfg}

	stores, closeStores, err := openStores(cfg)
	if err != nil {
		return nil, err
	}
	rt.stores = stores
	rt.closers = append(rt.closers, closeStores)

	if kb, err := openKnowledge(cfg); err != nil {
		slog.Warn("knowledge base unavailable", "path", cfg.KnowledgePath(), "error", err)
	} else {
		rt.kb = kb
		rt.closers = append(rt.closers, kb.Close)
	}

	rt.facts = skills.NewFacts(stores.Facts, stores.Links)
	rt.reminders = skills.NewReminders(stores.Reminders)
	rt.gate = permissions.New(stores.Identity, stores.Links)
	rt.webSearch = skills.NewWebSearch(skills.WebSearchConfig{
		BraveAPIKey: cfg.Tools.BraveAPIKey,
		DDGEnabled:  cfg.Tools.DuckDuckGo,
	})
	rt.webFetch = skills.NewWebFetch(skills.WebFetchConfig{MaxChars: cfg.Tools.WebFetchMaxChars})

	d := skills.NewDispatcher()
	d.SetTimeout(cfg.Tools.Timeout())
	d.SetScrubbing(cfg.Tools.Scrub)
	if cfg.Tools.RateLimitPerHour > 0 {
		d.SetRateLimiter(skills.NewRateLimiter(cfg.Tools.RateLimitPerHour))
	}

	var kb skills.KnowledgeBase
	if rt.kb != nil {
		kb = rt.kb
	}
	var search skills.Searcher
	if rt.webSearch != nil {
		search = rt.webSearch
		d.Register(rt.webSearch)
	}
	cal, gm := googleBackends(ctx, cfg)

	d.Register(skills.NewPersonLookup(rt.facts))
	d.Register(skills.NewReminderList(rt.reminders))
	d.Register(skills.NewReminderAdd(rt.reminders))
	d.Register(skills.NewRespond())
	d.Register(skills.NewWeather(cfg.Tools.WeatherLocation))
	d.Register(rt.webFetch)
	d.Register(skills.NewOrgLookup(kb, search))
	d.Register(skills.NewCalendarList(cal))
	d.Register(skills.NewCalendarCreate(cal))
	d.Register(skills.NewEmailSearch(gm))
	d.Register(skills.NewEmailDraft(gm))
	rt.dispatcher = d
	rt.explainer = skills.NewExplainer(kb)

	rt.sessions = agent.NewSessionStore(cfg.LLM.MaxSessions, cfg.LLM.HistoryTurns)
	bcfg := bot.Config{
		Dispatcher:  d,
		Facts:       rt.facts,
		Reminders:   rt.reminders,
		Explainer:   rt.explainer,
		Gate:        rt.gate,
		Sessions:    rt.sessions,
		Guard:       agent.NewInputGuard(agent.ParseGuardAction(cfg.Bot.GuardAction)),
		Limiter:     bot.NewRateLimiter(cfg.Bot.RateLimitRPM, cfg.Bot.RateLimitBurst),
		CommandName: cfg.Slack.Command,
		Settings:    botSettings(cfg),
	}
	rt.closers = append(rt.closers, func() error { bcfg.Limiter.Close(); return nil })

	if cfg.LLM.Enabled {
		p, err := providers.New(cfg.LLM.Provider, cfg.LLM.APIKey, cfg.LLM.APIBase, cfg.LLM.Model)
		if err != nil {
			slog.Warn("llm disabled", "provider", cfg.LLM.Provider, "error", err)
		} else {
			bcfg.Resolver = agent.NewResolver(p, cfg.LLM.Model, bcfg.Settings.Trigger)
			if cfg.LLM.Synthesize {
				bcfg.Synthesizer = agent.NewSynthesizer(p, cfg.LLM.Model)
			}
			slog.Info("llm enabled", "provider", p.Name(), "model", p.DefaultModel())
		}
	}

	rt.bot = bot.New(bcfg)
	return rt, nil
}
