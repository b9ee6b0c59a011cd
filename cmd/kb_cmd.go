package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/jibot/internal/knowledge"
)

func kbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Manage the knowledge base behind explain / what is",
	}
	cmd.AddCommand(kbImportCmd())
	cmd.AddCommand(kbSearchCmd())
	cmd.AddCommand(kbShowCmd())
	cmd.AddCommand(kbDeleteCmd())
	return cmd
}

func mustKnowledge() *knowledge.Store {
	cfg := loadConfig()
	kb, err := knowledge.Open(cfg.KnowledgePath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening knowledge base: %s\n", err)
		os.Exit(1)
	}
	return kb
}

func kbImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [files...]",
		Short: "Import YAML (.yaml/.yml) or markdown (.md) seed files",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			kb := mustKnowledge()
			defer kb.Close()

			failed := false
			for _, path := range args {
				res, err := kb.ImportFile(path)
				if err != nil {
					fmt.Fprintf(os.Stderr, "  %s: %s\n", path, err)
					failed = true
					continue
				}
				fmt.Printf("  %s: %d added, %d unchanged, %d failed\n", path, res.Added, res.Unchanged, res.Failed)
			}
			fmt.Printf("Knowledge base now holds %d topics.\n", kb.Count())
			if failed {
				os.Exit(1)
			}
		},
	}
}

func kbSearchCmd() *cobra.Command {
	var (
		limit      int
		kind       string
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "search [query...]",
		Short: "Full-text search the knowledge base",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			kb := mustKnowledge()
			defer kb.Close()

			results, err := kb.Search(strings.Join(args, " "), knowledge.SearchOptions{MaxResults: limit, Kind: kind})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
			if jsonOutput {
				data, _ := json.MarshalIndent(results, "", "  ")
				fmt.Println(string(data))
				return
			}
			if len(results) == 0 {
				fmt.Println("No matches.")
				return
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "SCORE\tTOPIC\tKIND\tSNIPPET\n")
			for _, r := range results {
				fmt.Fprintf(tw, "%.2f\t%s\t%s\t%s\n", r.Score, r.Entry.Topic, r.Entry.Kind, r.Snippet)
			}
			tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "maximum results")
	cmd.Flags().StringVar(&kind, "kind", "", "filter by kind (term, org, doc)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func kbShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [topic...]",
		Short: "Show one topic by name or alias",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			kb := mustKnowledge()
			defer kb.Close()

			e, ok := kb.Lookup(strings.Join(args, " "))
			if !ok {
				fmt.Fprintf(os.Stderr, "No topic %q.\n", strings.Join(args, " "))
				os.Exit(1)
			}
			fmt.Printf("Topic:   %s\n", e.Topic)
			fmt.Printf("Kind:    %s\n", e.Kind)
			if len(e.Aliases) > 0 {
				fmt.Printf("Aliases: %s\n", strings.Join(e.Aliases, ", "))
			}
			if e.URL != "" {
				fmt.Printf("URL:     %s\n", e.URL)
			}
			if e.Source != "" {
				fmt.Printf("Source:  %s\n", e.Source)
			}
			fmt.Println()
			fmt.Println(e.Summary)
		},
	}
}

func kbDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [topic...]",
		Short: "Delete a topic",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			kb := mustKnowledge()
			defer kb.Close()

			topic := strings.Join(args, " ")
			if err := kb.Delete(topic); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
			fmt.Printf("Deleted %q.\n", topic)
		},
	}
}
