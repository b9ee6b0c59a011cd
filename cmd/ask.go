package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/jibot/internal/bot"
)

func askCmd() *cobra.Command {
	var (
		userID  string
		channel bool
	)
	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Talk to the bot from the terminal (one-shot or interactive)",
		Long: `Run messages through the same pipeline the chat adapters use.
Lines starting with "/" go to the admin commands ("/claim", "/inbox list").

Examples:
  jibot ask "who is @kenji"       # One-shot, as a direct message
  jibot ask --channel "jibot help" # As if said in a channel
  jibot ask                        # Interactive REPL`,
		Run: func(cmd *cobra.Command, args []string) {
			runAsk(strings.Join(args, " "), userID, channel)
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "cli", "user id to speak as")
	cmd.Flags().BoolVar(&channel, "channel", false, "treat messages as channel messages instead of DMs")
	return cmd
}

func runAsk(message, userID string, channel bool) {
	cfg := loadConfig()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	rt, err := buildRuntime(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	defer rt.Close()

	base := bot.Message{
		UserID:    userID,
		UserName:  userID,
		Workspace: bot.PlatformCLI,
		Channel:   bot.PlatformCLI,
		IsDM:      !channel,
		Platform:  bot.PlatformCLI,
	}
	send := func(text string) string {
		msg := base
		if line, ok := adminLine(text); ok {
			return rt.bot.Command(ctx, msg, line).Text
		}
		msg.Text = text
		r := rt.bot.Handle(ctx, msg)
		if r.Silent {
			return "(no reply)"
		}
		return r.Text
	}

	if message != "" {
		fmt.Println(send(message))
		return
	}

	fmt.Fprintf(os.Stderr, "\nJibot interactive session (user %q, trigger %q)\n", userID, rt.bot.Settings().Trigger)
	fmt.Fprintf(os.Stderr, "Type \"exit\" to quit, \"/docs\" for commands\n\n")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "\nGoodbye!")
			return
		default:
		}

		fmt.Fprint(os.Stderr, "You: ")
		if !scanner.Scan() {
			return
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Fprintln(os.Stderr, "Goodbye!")
			return
		}
		fmt.Printf("\n%s\n\n", send(input))
	}
}

// adminLine turns "/jibot inbox list" or "/inbox list" into "inbox list".
func adminLine(text string) (string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	line := strings.TrimPrefix(text, "/")
	if rest, ok := strings.CutPrefix(line, "jibot"); ok && (rest == "" || rest[0] == ' ') {
		line = rest
	}
	return strings.TrimSpace(line), true
}
