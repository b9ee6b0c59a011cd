package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/jibot/internal/config"
	"github.com/nextlevelbuilder/jibot/internal/store"
)

func factsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "facts",
		Short: "Inspect and edit what the bot knows about people",
	}
	cmd.PersistentFlags().String("workspace", "", "workspace id (only used with facts.perWorkspace)")
	cmd.AddCommand(factsListCmd())
	cmd.AddCommand(factsShowCmd())
	cmd.AddCommand(factsForgetCmd())
	return cmd
}

// mustStores opens the configured stores or exits.
func mustStores(cfg *config.Config) (*store.Stores, func() error) {
	stores, closer, err := openStores(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening stores: %s\n", err)
		os.Exit(1)
	}
	return stores, closer
}

func factsListCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every person with facts",
		Run: func(cmd *cobra.Command, args []string) {
			ws, _ := cmd.Flags().GetString("workspace")
			stores, closer := mustStores(loadConfig())
			defer closer()

			people := stores.Facts.List(ws)
			if jsonOutput {
				data, _ := json.MarshalIndent(people, "", "  ")
				fmt.Println(string(data))
				return
			}
			if len(people) == 0 {
				fmt.Println("No facts recorded.")
				return
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "SUBJECT\tNAME\tFACTS\tLATEST\n")
			for _, p := range people {
				latest := ""
				if n := len(p.Facts); n > 0 {
					latest = p.Facts[n-1].Text
					if len(latest) > 50 {
						latest = latest[:47] + "..."
					}
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", p.SubjectID, p.Label(), len(p.Facts), latest)
			}
			tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

// findPerson looks a subject up by id, then by display name or handle.
func findPerson(facts store.FactStore, ws, subject string) (*store.Person, bool) {
	subject = strings.TrimPrefix(strings.TrimSpace(subject), "@")
	if p, ok := facts.Get(ws, subject); ok {
		return p, true
	}
	if p, ok := facts.Get(ws, strings.ToLower(subject)); ok {
		return p, true
	}
	return facts.FindByName(ws, subject)
}

func factsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [subject]",
		Short: "Show the numbered facts about one person",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ws, _ := cmd.Flags().GetString("workspace")
			stores, closer := mustStores(loadConfig())
			defer closer()

			p, ok := findPerson(stores.Facts, ws, args[0])
			if !ok {
				fmt.Fprintf(os.Stderr, "No facts about %s.\n", args[0])
				os.Exit(1)
			}
			fmt.Printf("%s (%s)\n", p.Label(), p.SubjectID)
			for i, f := range p.Facts {
				fmt.Printf("  %d. %s  [by %s, %s]\n", i+1, f.Text, f.AuthorID, f.CreatedAt.Format("2006-01-02"))
			}
		},
	}
}

func factsForgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget [subject] [n|all]",
		Short: "Remove one fact (1-based) or all facts about a person",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			ws, _ := cmd.Flags().GetString("workspace")
			stores, closer := mustStores(loadConfig())
			defer closer()

			p, ok := findPerson(stores.Facts, ws, args[0])
			if !ok {
				fmt.Fprintf(os.Stderr, "No facts about %s.\n", args[0])
				os.Exit(1)
			}
			if strings.EqualFold(args[1], "all") {
				n := stores.Facts.ClearFacts(ws, p.SubjectID)
				fmt.Printf("Forgot %d fact(s) about %s.\n", n, p.Label())
				return
			}
			idx, err := strconv.Atoi(strings.TrimPrefix(args[1], "#"))
			if err != nil {
				fmt.Fprintf(os.Stderr, "%q is not a fact number.\n", args[1])
				os.Exit(1)
			}
			f, err := stores.Facts.RemoveFact(ws, p.SubjectID, idx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s (there are %d facts)\n", err, len(p.Facts))
				os.Exit(1)
			}
			fmt.Printf("Forgot %q about %s.\n", f.Text, p.Label())
		},
	}
}
