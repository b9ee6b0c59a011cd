package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nextlevelbuilder/jibot/internal/backup"
	"github.com/nextlevelbuilder/jibot/internal/channels/discord"
	"github.com/nextlevelbuilder/jibot/internal/channels/mud"
	slackchannel "github.com/nextlevelbuilder/jibot/internal/channels/slack"
	"github.com/nextlevelbuilder/jibot/internal/config"
	"github.com/nextlevelbuilder/jibot/internal/skills"
	"github.com/nextlevelbuilder/jibot/internal/store/pg"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot on every enabled channel",
		Run: func(cmd *cobra.Command, args []string) {
			if err := runServe(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
		},
	}
}

func runServe() error {
	cfgPath := resolveConfigPath()
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flushTraces := initOTelExporter(ctx, cfg)
	defer flushTraces()

	rt, err := buildRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	g, gctx := errgroup.WithContext(ctx)
	adapters := 0

	var slackCh *slackchannel.Channel
	if cfg.Slack.Enabled {
		slackCh, err = slackchannel.New(cfg.Slack, rt.bot)
		if err != nil {
			return fmt.Errorf("slack: %w", err)
		}
		rt.dispatcher.Register(skills.NewSlackDM(slackCh))
		g.Go(func() error { return slackCh.Run(gctx) })
		adapters++
	}

	if cfg.Discord.Enabled {
		var archive discord.Archive
		if cfg.Postgres.DSN != "" {
			links, closeDB, err := openLinkArchive(ctx, cfg)
			if err != nil {
				slog.Warn("link archive unavailable", "error", err)
			} else {
				archive = links
				rt.closers = append(rt.closers, closeDB)
			}
		}
		dc, err := discord.New(cfg.Discord, rt.bot, archive, rt.webFetch)
		if err != nil {
			return fmt.Errorf("discord: %w", err)
		}
		g.Go(func() error { return dc.Run(gctx) })
		adapters++
	}

	if cfg.MUD.Enabled {
		var relay mud.Relay
		if slackCh != nil {
			relay = slackCh
		}
		srv := mud.New(cfg.MUD, rt.bot, relay)
		g.Go(func() error { return srv.Run(gctx) })
		adapters++
	}

	if adapters == 0 {
		return fmt.Errorf("no channels enabled in %s (run `jibot onboard`)", cfgPath)
	}

	if every := cfg.Backup.Every(); every > 0 && cfg.Backup.Bucket != "" {
		up, err := backup.NewS3Uploader(ctx, cfg.Backup)
		if err != nil {
			slog.Warn("scheduled backup disabled", "error", err)
		} else {
			sched := backup.NewScheduler(every, backup.DefaultRetryConfig(), func(ctx context.Context) (backup.Result, error) {
				return backup.Run(ctx, up, cfg.Backup, cfg.ResolvedDataDir(), time.Now())
			})
			g.Go(func() error { return sched.Run(gctx) })
		}
	}

	if w, err := config.NewWatcher(cfgPath); err != nil {
		slog.Warn("config hot reload disabled", "error", err)
	} else {
		w.OnChange(func(next *config.Config) {
			s := botSettings(next)
			// the bot user id comes from the Slack connection, not the file
			s.BotUserID = rt.bot.Settings().BotUserID
			rt.bot.Apply(s)
			slog.Info("config reloaded", "trigger", s.Trigger, "herald", s.Herald, "llm", s.LLM)
		})
		g.Go(func() error {
			if err := w.Run(gctx); err != nil {
				slog.Warn("config watcher stopped", "error", err)
			}
			return nil
		})
	}

	slog.Info("jibot running", "version", Version, "adapters", adapters, "data_dir", cfg.ResolvedDataDir())
	err = g.Wait()
	slog.Info("jibot stopped")
	return err
}

// openLinkArchive connects to Postgres and applies pending migrations.
func openLinkArchive(ctx context.Context, cfg *config.Config) (*pg.LinkArchive, func() error, error) {
	db, err := pg.OpenDB(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, nil, err
	}
	if err := pg.Migrate(db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return pg.NewLinkArchive(db), db.Close, nil
}
