package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/jibot/internal/mcp"
)

func mcpCmd() *cobra.Command {
	var (
		workspace string
		withAsk   bool
	)
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve facts, knowledge and reminders as MCP tools over stdio",
		Long: `Starts a Model Context Protocol server on stdin/stdout. Register it with
an MCP client as:

  {"command": "jibot", "args": ["mcp"]}

Logs go to stderr so they never corrupt the protocol stream.`,
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			rt, err := buildRuntime(cmd.Context(), cfg)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
			defer rt.Close()

			deps := mcp.Deps{
				Facts:     rt.facts,
				Explainer: rt.explainer,
				Reminders: rt.reminders,
				Workspace: workspace,
			}
			if withAsk {
				deps.Bot = rt.bot
			}
			s, _ := mcp.New("jibot", Version, deps)
			if err := mcp.ServeStdio(s); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
		},
	}
	cmd.Flags().StringVar(&workspace, "workspace", "", "workspace the tools read and write facts in")
	cmd.Flags().BoolVar(&withAsk, "ask", true, "expose the full bot as an ask tool")
	return cmd
}
