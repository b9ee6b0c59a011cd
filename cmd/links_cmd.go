package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/jibot/internal/store/pg"
)

func linksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "links",
		Short: "Manage the Postgres archive of links posted on Discord",
	}
	cmd.AddCommand(linksMigrateCmd())
	cmd.AddCommand(linksListCmd())
	return cmd
}

func linksMigrateCmd() *cobra.Command {
	var down bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply (or with --down, roll back) the archive schema",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			db, err := pg.OpenDB(cmd.Context(), cfg.Postgres.DSN)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
			defer db.Close()

			if down {
				err = pg.MigrateDown(db)
			} else {
				err = pg.Migrate(db)
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Migration failed: %s\n", err)
				os.Exit(1)
			}
			fmt.Println("Migrations applied.")
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "roll back every migration")
	return cmd
}

func linksListCmd() *cobra.Command {
	var (
		channel    string
		search     string
		limit      int
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent archived links",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			db, err := pg.OpenDB(cmd.Context(), cfg.Postgres.DSN)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
			defer db.Close()
			archive := pg.NewLinkArchive(db)

			var links []pg.Link
			if search != "" {
				links, err = archive.Search(cmd.Context(), search, limit)
			} else {
				links, err = archive.Recent(cmd.Context(), channel, limit)
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
			if jsonOutput {
				data, _ := json.MarshalIndent(links, "", "  ")
				fmt.Println(string(data))
				return
			}
			if len(links) == 0 {
				fmt.Println("No links archived.")
				return
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "POSTED\tBY\tURL\tTITLE\n")
			for _, l := range links {
				title := strings.TrimSpace(l.Title)
				if len(title) > 50 {
					title = title[:47] + "..."
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", l.PostedAt.Local().Format("2006-01-02 15:04"), l.AuthorName, l.URL, title)
			}
			tw.Flush()
		},
	}
	cmd.Flags().StringVar(&channel, "channel", "", "only links from this Discord channel id")
	cmd.Flags().StringVarP(&search, "search", "s", "", "match url or title")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum rows")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}
