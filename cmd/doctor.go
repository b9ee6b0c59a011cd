package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/jibot/internal/config"
	"github.com/nextlevelbuilder/jibot/internal/knowledge"
	"github.com/nextlevelbuilder/jibot/internal/store/pg"
)

func doctorCmd() *cobra.Command {
	var probe bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the environment and configuration",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor(cmd.Context(), probe)
		},
	}
	cmd.Flags().BoolVar(&probe, "probe", false, "also connect to redis and postgres")
	return cmd
}

func runDoctor(ctx context.Context, probe bool) {
	fmt.Println("jibot doctor")
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND, using defaults)")
	} else {
		fmt.Println(" (OK)")
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}

	dataDir := cfg.ResolvedDataDir()
	fmt.Printf("  Data dir: %s", dataDir)
	if _, err := os.Stat(dataDir); err != nil {
		fmt.Println(" (NOT FOUND, created on first write)")
	} else {
		fmt.Println(" (OK)")
	}

	fmt.Println()
	fmt.Println("  LLM:")
	if cfg.LLM.Enabled {
		fmt.Printf("    %-12s %s\n", "Provider:", cfg.LLM.Provider)
		if cfg.LLM.Model != "" {
			fmt.Printf("    %-12s %s\n", "Model:", cfg.LLM.Model)
		}
		checkSecret("API key", cfg.LLM.APIKey)
	} else {
		fmt.Printf("    %-12s disabled (pattern and rule stages only)\n", "Status:")
	}

	fmt.Println()
	fmt.Println("  Channels:")
	checkChannel("Slack", cfg.Slack.Enabled, cfg.Slack.BotToken != "" && cfg.Slack.AppToken != "")
	checkChannel("Discord", cfg.Discord.Enabled, cfg.Discord.Token != "")
	checkChannel("MUD", cfg.MUD.Enabled, cfg.MUD.Token != "")

	fmt.Println()
	fmt.Println("  Storage:")
	fmt.Printf("    %-12s %s\n", "Reminders:", cfg.Reminders.Backend)
	kbPath := cfg.KnowledgePath()
	if kb, err := knowledge.Open(kbPath); err != nil {
		fmt.Printf("    %-12s %s (%s)\n", "Knowledge:", kbPath, err)
	} else {
		fmt.Printf("    %-12s %s (%d topics)\n", "Knowledge:", kbPath, kb.Count())
		kb.Close()
	}
	if cfg.Postgres.DSN == "" {
		fmt.Printf("    %-12s (not configured)\n", "Postgres:")
	} else {
		fmt.Printf("    %-12s %s\n", "Postgres:", config.Mask(cfg.Postgres.DSN))
	}
	if cfg.Backup.Bucket == "" {
		fmt.Printf("    %-12s (not configured)\n", "Backup:")
	} else {
		fmt.Printf("    %-12s s3://%s/%s\n", "Backup:", cfg.Backup.Bucket, cfg.Backup.Prefix)
	}

	fmt.Println()
	fmt.Println("  Google:")
	if cfg.Google.CredentialsFile == "" {
		fmt.Printf("    %-12s (not configured)\n", "Credentials:")
	} else {
		checkFile("Credentials:", config.ExpandHome(cfg.Google.CredentialsFile))
		checkFile("Token:", cfg.GoogleTokenPath())
	}

	if probe {
		fmt.Println()
		fmt.Println("  Probes:")
		probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if cfg.Reminders.Backend == "redis" {
			probeReminders(probeCtx, cfg)
		}
		if cfg.Postgres.DSN != "" {
			probePostgres(probeCtx, cfg)
		}
	}

	fmt.Println()
	fmt.Println("  External Tools:")
	checkBinary("curl")
	checkBinary("git")

	if warnings := configWarnings(cfg); len(warnings) > 0 {
		fmt.Println()
		for _, w := range warnings {
			fmt.Printf("  warning: %s\n", w)
		}
	}
	fmt.Println()
	fmt.Println("Doctor check complete.")
}

func probeReminders(ctx context.Context, cfg *config.Config) {
	stores, closer, err := openStores(cfg)
	if err != nil {
		fmt.Printf("    %-12s FAILED: %s\n", "Redis:", err)
		return
	}
	defer closer()
	items, err := stores.Reminders.List(ctx)
	if err != nil {
		fmt.Printf("    %-12s FAILED: %s\n", "Redis:", err)
		return
	}
	fmt.Printf("    %-12s OK (%d reminders)\n", "Redis:", len(items))
}

func probePostgres(ctx context.Context, cfg *config.Config) {
	db, err := pg.OpenDB(ctx, cfg.Postgres.DSN)
	if err != nil {
		fmt.Printf("    %-12s FAILED: %s\n", "Postgres:", err)
		return
	}
	defer db.Close()
	if _, err := pg.NewLinkArchive(db).Recent(ctx, "", 1); err != nil {
		fmt.Printf("    %-12s connected, archive not ready: %s\n", "Postgres:", err)
		return
	}
	fmt.Printf("    %-12s OK (archive ready)\n", "Postgres:")
}

func checkSecret(name, secret string) {
	if secret != "" {
		fmt.Printf("    %-12s %s\n", name+":", config.Mask(secret))
	} else {
		fmt.Printf("    %-12s (not configured)\n", name+":")
	}
}

func checkChannel(name string, enabled, hasCredentials bool) {
	status := "disabled"
	if enabled && hasCredentials {
		status = "enabled"
	} else if enabled {
		status = "enabled (missing credentials)"
	}
	fmt.Printf("    %-12s %s\n", name+":", status)
}

func checkFile(label, path string) {
	if _, err := os.Stat(path); err != nil {
		fmt.Printf("    %-12s %s (NOT FOUND)\n", label, path)
	} else {
		fmt.Printf("    %-12s %s (OK)\n", label, path)
	}
}

func checkBinary(name string) {
	path, err := exec.LookPath(name)
	if err != nil {
		fmt.Printf("    %-12s NOT FOUND\n", name+":")
	} else {
		fmt.Printf("    %-12s %s\n", name+":", path)
	}
}
