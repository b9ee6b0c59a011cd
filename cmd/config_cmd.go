package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/jibot/internal/config"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and check the configuration",
	}
	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configPathCmd())
	cmd.AddCommand(configValidateCmd())
	return cmd
}

func configShowCmd() *cobra.Command {
	var reveal bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (secrets masked)",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			if !reveal {
				cfg = cfg.MaskedCopy()
			}
			data, _ := json.MarshalIndent(cfg, "", "  ")
			fmt.Println(string(data))
		},
	}
	cmd.Flags().BoolVar(&reveal, "reveal", false, "print secrets in full")
	return cmd
}

func configPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the config and report problems",
		Run: func(cmd *cobra.Command, args []string) {
			path := resolveConfigPath()
			cfg, err := config.Load(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Invalid config: %s\n", err)
				os.Exit(1)
			}
			warnings := configWarnings(cfg)
			for _, w := range warnings {
				fmt.Printf("  warning: %s\n", w)
			}
			fmt.Printf("Config at %s is valid", path)
			if len(warnings) > 0 {
				fmt.Printf(" (%d warning(s))", len(warnings))
			}
			fmt.Println(".")
		},
	}
}

// configWarnings lists settings that load but leave a feature dead.
func configWarnings(cfg *config.Config) []string {
	var out []string
	if cfg.Slack.Enabled && (cfg.Slack.BotToken == "" || cfg.Slack.AppToken == "") {
		out = append(out, "slack is enabled but botToken or appToken is empty")
	}
	if cfg.Discord.Enabled && cfg.Discord.Token == "" {
		out = append(out, "discord is enabled but token is empty")
	}
	if cfg.MUD.Enabled && cfg.MUD.Token == "" {
		out = append(out, "mud bridge is enabled without a token; anyone who can reach it can post events")
	}
	if cfg.LLM.Enabled && cfg.LLM.APIKey == "" && cfg.LLM.APIBase == "" {
		out = append(out, "llm is enabled but neither apiKey nor apiBase is set")
	}
	if cfg.Reminders.Backend == "redis" && cfg.Reminders.Redis.Addr == "" {
		out = append(out, "reminders.backend is redis but reminders.redis.addr is empty")
	}
	if len(cfg.Discord.ArchiveChannels) > 0 && cfg.Postgres.DSN == "" {
		out = append(out, "discord.archiveChannels is set but postgres.dsn is empty")
	}
	if !cfg.Slack.Enabled && !cfg.Discord.Enabled && !cfg.MUD.Enabled {
		out = append(out, "no channel is enabled; `jibot serve` will refuse to start")
	}
	return out
}
