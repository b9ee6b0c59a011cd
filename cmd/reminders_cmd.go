package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/jibot/internal/store"
)

func remindersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "Manage the owner's reminder inbox",
	}
	cmd.AddCommand(remindersListCmd())
	cmd.AddCommand(remindersAddCmd())
	cmd.AddCommand(remindersClearCmd())
	return cmd
}

func remindersListCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending reminders",
		Run: func(cmd *cobra.Command, args []string) {
			stores, closer := mustStores(loadConfig())
			defer closer()

			items, err := stores.Reminders.List(cmd.Context())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
			if jsonOutput {
				data, _ := json.MarshalIndent(items, "", "  ")
				fmt.Println(string(data))
				return
			}
			if len(items) == 0 {
				fmt.Printf("The inbox is empty (%s backend).\n", stores.Reminders.Name())
				return
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "#\tFROM\tWHEN\tTEXT\n")
			for i, r := range items {
				from := r.RequesterName
				if from == "" {
					from = r.RequesterID
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, from, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Text)
			}
			tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func remindersAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add [text...]",
		Short: "Add a reminder",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			stores, closer := mustStores(loadConfig())
			defer closer()

			r, err := stores.Reminders.Add(cmd.Context(), store.Reminder{
				Text:        strings.Join(args, " "),
				RequesterID: "cli",
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
			fmt.Printf("Added: %s\n", r.Text)
		},
	}
}

func remindersClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear [n|all]",
		Short: "Remove one reminder (1-based) or all of them",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			stores, closer := mustStores(loadConfig())
			defer closer()
			if err := clearReminders(cmd.Context(), stores.Reminders, args[0]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
		},
	}
}

func clearReminders(ctx context.Context, b store.ReminderBackend, arg string) error {
	if strings.EqualFold(arg, "all") {
		n, err := b.Clear(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Cleared %d reminder(s).\n", n)
		return nil
	}
	idx, err := strconv.Atoi(strings.TrimPrefix(arg, "#"))
	if err != nil {
		return fmt.Errorf("%q is not a reminder number", arg)
	}
	r, err := b.Remove(ctx, idx)
	if err != nil {
		return fmt.Errorf("remove #%d: %w", idx, err)
	}
	fmt.Printf("Removed: %s\n", r.Text)
	return nil
}
