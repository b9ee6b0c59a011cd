package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/jibot/internal/agent"
	"github.com/nextlevelbuilder/jibot/internal/bot"
)

type skillRow struct {
	Name    string `json:"name"`
	Action  string `json:"action"`
	Private bool   `json:"private"`
	Status  string `json:"status"`
}

func skillsCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "skills",
		Short: "List the skills the resolver can call and whether they are wired",
		Run: func(cmd *cobra.Command, args []string) {
			rt, err := buildRuntime(cmd.Context(), loadConfig())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
			defer rt.Close()

			registered := map[string]bool{}
			for _, name := range rt.dispatcher.List() {
				registered[name] = true
			}
			var rows []skillRow
			for _, name := range agent.SkillNames() {
				status := "off"
				switch {
				case registered[name]:
					status = "ready"
				case name == agent.SkillSlackDM:
					status = "serve only"
				}
				rows = append(rows, skillRow{
					Name:    name,
					Action:  rt.dispatcher.Action(name),
					Private: bot.IsPrivateSkill(name),
					Status:  status,
				})
			}

			if jsonOutput {
				data, _ := json.MarshalIndent(rows, "", "  ")
				fmt.Println(string(data))
				return
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "SKILL\tACCESS\tSTATUS\tACTION\n")
			for _, r := range rows {
				access := "everyone"
				if r.Private {
					access = "admin"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Name, access, r.Status, r.Action)
			}
			tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}
