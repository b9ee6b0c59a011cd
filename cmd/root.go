package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/jibot/internal/config"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "jibot",
	Short: "Jibot: a team chat bot that remembers people and runs errands",
	Long: `Jibot listens in Slack, Discord and a MUD, learns facts about people,
keeps a reminder inbox and answers requests through skills.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.jibot/config.json, env JIBOT_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(factsCmd())
	rootCmd.AddCommand(remindersCmd())
	rootCmd.AddCommand(identityCmd())
	rootCmd.AddCommand(kbCmd())
	rootCmd.AddCommand(linksCmd())
	rootCmd.AddCommand(backupCmd())
	rootCmd.AddCommand(mcpCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(doctorCmd())
	rootCmd.AddCommand(onboardCmd())
	rootCmd.AddCommand(googleCmd())
	rootCmd.AddCommand(skillsCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("jibot", Version)
		},
	})
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func resolveConfigPath() string {
	if cfgFile != "" {
		return config.ExpandHome(cfgFile)
	}
	if p := os.Getenv("JIBOT_CONFIG"); p != "" {
		return config.ExpandHome(p)
	}
	return config.ExpandHome(config.DefaultPath)
}

// loadConfig loads the config or exits with the error.
func loadConfig() *config.Config {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %s\n", err)
		os.Exit(1)
	}
	return cfg
}

// setupLogging installs the default slog handler. The config file may not
// exist yet, so a load error only falls back to defaults here.
func setupLogging() {
	level := slog.LevelInfo
	format := "text"
	if cfg, err := config.Load(resolveConfigPath()); err == nil {
		level = parseLevel(cfg.Log.Level)
		format = cfg.Log.Format
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
