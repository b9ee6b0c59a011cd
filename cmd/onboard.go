package cmd

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/jibot/internal/config"
	"github.com/nextlevelbuilder/jibot/internal/providers"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).
			Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 2)
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle  = lipgloss.NewStyle().Faint(true)
)

func onboardCmd() *cobra.Command {
	var defaults bool
	cmd := &cobra.Command{
		Use:   "onboard",
		Short: "Interactive setup wizard: trigger word, channels, LLM and storage",
		Run: func(cmd *cobra.Command, args []string) {
			path := resolveConfigPath()
			if defaults {
				writeDefaultConfig(path)
				return
			}
			if err := runOnboard(cmd.Context(), path); err != nil {
				if errors.Is(err, huh.ErrUserAborted) {
					fmt.Println("Cancelled.")
					return
				}
				fmt.Fprintln(os.Stderr, errStyle.Render("Error: "+err.Error()))
				os.Exit(1)
			}
		},
	}
	cmd.Flags().BoolVar(&defaults, "defaults", false, "write the default config (plus JIBOT_* environment overrides) without prompting")
	return cmd
}

// writeDefaultConfig is the non-interactive path used by containers and CI.
func writeDefaultConfig(path string) {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	if err := config.Save(path, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", path)
}

func runOnboard(ctx context.Context, path string) error {
	fmt.Println(titleStyle.Render("jibot setup"))
	fmt.Println()

	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Found existing config at %s\n", path)
		useExisting, err := promptConfirm("Start from the existing config?", true)
		if err != nil {
			return err
		}
		if useExisting {
			loaded, err := config.Load(path)
			if err != nil {
				fmt.Println(warnStyle.Render(fmt.Sprintf("Could not load it (%v); starting from defaults.", err)))
			} else {
				cfg = loaded
			}
		}
	}

	steps := []func(*config.Config) error{
		onboardBot,
		onboardChannels,
		onboardLLM,
		onboardStorage,
	}
	for _, step := range steps {
		if err := step(cfg); err != nil {
			return err
		}
	}

	if cfg.LLM.Enabled {
		verifyLLM(ctx, cfg)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(okStyle.Render("✓ Saved " + path))
	for _, w := range configWarnings(cfg) {
		fmt.Println(warnStyle.Render("! " + w))
	}
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  jibot doctor              check the setup")
	fmt.Println("  jibot identity claim <id> make yourself the owner")
	fmt.Println("  jibot serve               start the bot")
	return nil
}

func onboardBot(cfg *config.Config) error {
	trigger, err := promptString("Trigger word", "The name people address the bot by", cfg.Bot.Trigger)
	if err != nil {
		return err
	}
	cfg.Bot.Trigger = config.NormalizeTrigger(trigger)

	cfg.Bot.Herald, err = promptConfirm("Greet people who join a channel with what the bot knows about them?", cfg.Bot.Herald)
	return err
}

func onboardChannels(cfg *config.Config) error {
	var current []string
	if cfg.Slack.Enabled {
		current = append(current, "slack")
	}
	if cfg.Discord.Enabled {
		current = append(current, "discord")
	}
	if cfg.MUD.Enabled {
		current = append(current, "mud")
	}
	chosen, err := promptMultiSelect("Channels", "Space toggles, enter confirms", []SelectOption[string]{
		{"Slack (socket mode)", "slack"},
		{"Discord", "discord"},
		{"MUD bridge (HTTP events)", "mud"},
	}, current)
	if err != nil {
		return err
	}
	cfg.Slack.Enabled = slices.Contains(chosen, "slack")
	cfg.Discord.Enabled = slices.Contains(chosen, "discord")
	cfg.MUD.Enabled = slices.Contains(chosen, "mud")

	if cfg.Slack.Enabled {
		if err := keepOrPrompt(&cfg.Slack.BotToken, "Slack bot token", "xoxb-..., from OAuth & Permissions"); err != nil {
			return err
		}
		if err := keepOrPrompt(&cfg.Slack.AppToken, "Slack app token", "xapp-..., with connections:write"); err != nil {
			return err
		}
	}

	if cfg.Discord.Enabled {
		if err := keepOrPrompt(&cfg.Discord.Token, "Discord bot token", "From the Developer Portal; enable the message content intent"); err != nil {
			return err
		}
		archive, err := promptString("Link archive channels", "Comma-separated channel ids; empty archives every channel when postgres is set",
			strings.Join(cfg.Discord.ArchiveChannels, ","))
		if err != nil {
			return err
		}
		cfg.Discord.ArchiveChannels = splitList(archive)
		dsn, err := promptString("Postgres DSN", "Where posted links are archived; empty disables the archive", cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		cfg.Postgres.DSN = strings.TrimSpace(dsn)
	}

	if cfg.MUD.Enabled {
		listen, err := promptString("MUD bridge listen address", "host:port for POST /mud/event", cfg.MUD.Listen)
		if err != nil {
			return err
		}
		cfg.MUD.Listen = listen
		if cfg.MUD.Token == "" {
			cfg.MUD.Token = randomToken()
			fmt.Println(dimStyle.Render("Generated MUD bridge token: " + cfg.MUD.Token))
		}
		if cfg.Slack.Enabled {
			relay, err := promptString("Relay channel", "Slack channel id that receives MUD chatter; empty disables relay", cfg.MUD.RelayChannel)
			if err != nil {
				return err
			}
			cfg.MUD.RelayChannel = strings.TrimSpace(relay)
		}
	}
	return nil
}

func onboardLLM(cfg *config.Config) error {
	enabled, err := promptConfirm("Use an LLM for requests the rules don't understand?", cfg.LLM.Enabled)
	if err != nil {
		return err
	}
	cfg.LLM.Enabled = enabled
	if !enabled {
		return nil
	}

	var options []SelectOption[string]
	defaultIdx := 0
	for i, name := range providers.Names() {
		options = append(options, SelectOption[string]{Label: name, Value: name})
		if name == cfg.LLM.Provider {
			defaultIdx = i
		}
	}
	options = append(options, SelectOption[string]{Label: "custom (any OpenAI-compatible endpoint)", Value: "custom"})
	cfg.LLM.Provider, err = promptSelect("Provider", options, defaultIdx)
	if err != nil {
		return err
	}

	if cfg.LLM.Provider == "custom" {
		cfg.LLM.APIBase, err = promptString("API base URL", "For example http://localhost:8000/v1", cfg.LLM.APIBase)
		if err != nil {
			return err
		}
	}
	if cfg.LLM.Provider != "ollama" {
		if err := keepOrPrompt(&cfg.LLM.APIKey, "API key", "Stored in the config file; JIBOT_LLM_API_KEY overrides it"); err != nil {
			return err
		}
	}
	cfg.LLM.Model, err = promptString("Model", "Empty uses the provider default", cfg.LLM.Model)
	return err
}

func onboardStorage(cfg *config.Config) error {
	idx := 0
	if cfg.Reminders.Backend == "redis" {
		idx = 1
	}
	backend, err := promptSelect("Reminder inbox", []SelectOption[string]{
		{"File (data dir)", "file"},
		{"Redis list (shared with other tools)", "redis"},
	}, idx)
	if err != nil {
		return err
	}
	cfg.Reminders.Backend = backend
	if backend == "redis" {
		addr, err := promptString("Redis address", "host:port", cfg.Reminders.Redis.Addr)
		if err != nil {
			return err
		}
		cfg.Reminders.Redis.Addr = addr
	}
	return nil
}

// keepOrPrompt asks for a secret; an empty answer keeps the current value.
func keepOrPrompt(dst *string, title, description string) error {
	if *dst != "" {
		description += " (leave empty to keep " + config.Mask(*dst) + ")"
	}
	v, err := promptPassword(title, description)
	if err != nil {
		return err
	}
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
	return nil
}

// verifyLLM sends a one-token request so bad keys show up before serve.
func verifyLLM(ctx context.Context, cfg *config.Config) {
	p, err := providers.New(cfg.LLM.Provider, cfg.LLM.APIKey, cfg.LLM.APIBase, cfg.LLM.Model)
	if err != nil {
		fmt.Println(warnStyle.Render("! LLM: " + err.Error()))
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	_, err = p.Chat(ctx, providers.ChatRequest{
		Messages: []providers.Message{{Role: "user", Content: "ping"}},
		Options:  map[string]interface{}{"max_tokens": 1},
	})
	if err != nil {
		fmt.Println(warnStyle.Render("! LLM check failed: " + err.Error()))
		return
	}
	fmt.Println(okStyle.Render(fmt.Sprintf("✓ %s answered (model %s)", p.Name(), p.DefaultModel())))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func randomToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
