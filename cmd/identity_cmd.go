package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/jibot/internal/permissions"
	"github.com/nextlevelbuilder/jibot/internal/store"
)

func identityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Manage the owner, admins and cross-workspace identity links",
		Long: `The terminal operator acts with the owner's authority. Identities are
written as "workspace/id" (for example T0123/U0456); a bare id uses the
--workspace flag.`,
	}
	cmd.PersistentFlags().String("workspace", "", "default workspace for bare ids")
	cmd.AddCommand(identityListCmd())
	cmd.AddCommand(identityClaimCmd())
	cmd.AddCommand(identityPromoteCmd())
	cmd.AddCommand(identityDemoteCmd())
	cmd.AddCommand(identityLinkCmd())
	return cmd
}

// parseIdentity reads "workspace/id" or a bare id.
func parseIdentity(arg, defaultWorkspace string) store.LinkedIdentity {
	arg = strings.TrimSpace(arg)
	if ws, id, ok := strings.Cut(arg, "/"); ok {
		return store.LinkedIdentity{ID: id, Workspace: ws}
	}
	return store.LinkedIdentity{ID: arg, Workspace: defaultWorkspace}
}

// mustGate opens the identity stores and returns the gate and the owner
// identity the operator acts as.
func mustGate(cmd *cobra.Command, needOwner bool) (*permissions.Gate, store.LinkedIdentity, string, func() error) {
	ws, _ := cmd.Flags().GetString("workspace")
	stores, closer := mustStores(loadConfig())
	gate := permissions.New(stores.Identity, stores.Links)
	owner := store.LinkedIdentity{ID: gate.Owner(), Workspace: ws}
	if needOwner && owner.ID == "" {
		fmt.Fprintln(os.Stderr, "No owner yet. Run `jibot identity claim <id>` first.")
		closer()
		os.Exit(1)
	}
	return gate, owner, ws, closer
}

func identityListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the owner, admins and link groups",
		Run: func(cmd *cobra.Command, args []string) {
			stores, closer := mustStores(loadConfig())
			defer closer()

			doc := stores.Identity.Snapshot()
			if doc.OwnerID == "" {
				fmt.Println("Owner:  (unclaimed)")
			} else {
				fmt.Printf("Owner:  %s", doc.OwnerID)
				if len(doc.OwnerLinkedIDs) > 0 {
					fmt.Printf(" (also %s)", strings.Join(doc.OwnerLinkedIDs, ", "))
				}
				if doc.OwnerClaimedAt != nil {
					fmt.Printf(" since %s", doc.OwnerClaimedAt.Format("2006-01-02"))
				}
				fmt.Println()
			}

			fmt.Println("Admins:")
			if len(doc.Admins) == 0 {
				fmt.Println("  (none)")
			}
			for _, a := range doc.Admins {
				fmt.Printf("  %s", a.ID)
				if len(a.LinkedIDs) > 0 {
					fmt.Printf(" (also %s)", strings.Join(a.LinkedIDs, ", "))
				}
				if a.GrantedBy != "" {
					fmt.Printf(" granted by %s", a.GrantedBy)
				}
				fmt.Println()
			}

			groups := stores.Links.Groups()
			fmt.Println("Link groups:")
			if len(groups) == 0 {
				fmt.Println("  (none)")
			}
			for _, g := range groups {
				var members []string
				for _, l := range g.Linked {
					members = append(members, l.Key())
				}
				fmt.Printf("  %s <- %s\n", g.Canonical().Key(), strings.Join(members, ", "))
			}
		},
	}
}

func identityClaimCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "claim [id]",
		Short: "Make an identity the owner (only when no owner exists)",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			gate, _, ws, closer := mustGate(cmd, false)
			defer closer()
			id := parseIdentity(args[0], ws)
			if err := gate.ClaimOwner(id); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
			fmt.Printf("%s is now the owner.\n", id.ID)
		},
	}
}

func identityPromoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "promote [id]",
		Short: "Grant an identity the admin role",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			gate, owner, ws, closer := mustGate(cmd, true)
			defer closer()
			target := parseIdentity(args[0], ws)
			changed, err := gate.Promote(owner, target)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
			if changed {
				fmt.Printf("%s is now an admin.\n", target.ID)
			} else {
				fmt.Printf("%s is already an admin.\n", target.ID)
			}
		},
	}
}

func identityDemoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demote [id]",
		Short: "Remove an identity's admin role",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			gate, owner, ws, closer := mustGate(cmd, true)
			defer closer()
			target := parseIdentity(args[0], ws)
			changed, err := gate.Demote(owner, target)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
			if changed {
				fmt.Printf("%s is no longer an admin.\n", target.ID)
			} else {
				fmt.Printf("%s is not an admin.\n", target.ID)
			}
		},
	}
}

func identityLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "link [canonical] [other]",
		Short:   "Link another workspace identity to a canonical identity",
		Example: `  jibot identity link T01/U123 T02/W999`,
		Args:    cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			gate, owner, ws, closer := mustGate(cmd, true)
			defer closer()
			target := parseIdentity(args[0], ws)
			other := parseIdentity(args[1], ws)
			group, err := gate.Link(owner, target, other)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
			fmt.Printf("Linked %s to %s (%d linked identities).\n", other.Key(), group.Canonical().Key(), len(group.Linked))
		},
	}
}
