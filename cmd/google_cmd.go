package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/nextlevelbuilder/jibot/internal/config"
	"github.com/nextlevelbuilder/jibot/internal/google"
)

func googleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "google",
		Short: "Authorize calendar and mail access",
	}
	cmd.AddCommand(googleAuthCmd())
	cmd.AddCommand(googleStatusCmd())
	return cmd
}

func googleAuthCmd() *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Run the OAuth consent flow and save the token",
		Long: `Prints a consent URL for the installed-app client in google.credentialsFile.
Open it, approve access, and paste the authorization code back (or pass it
with --code). The token is written to google.tokenFile.`,
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			if cfg.Google.CredentialsFile == "" {
				fmt.Fprintln(os.Stderr, "google.credentialsFile is not set.")
				os.Exit(1)
			}
			oauthCfg, err := google.Config(config.ExpandHome(cfg.Google.CredentialsFile))
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
			if oauthCfg.RedirectURL == "" {
				oauthCfg.RedirectURL = "urn:ietf:wg:oauth:2.0:oob"
			}

			if code == "" {
				url := oauthCfg.AuthCodeURL(randomToken(), oauth2.AccessTypeOffline, oauth2.ApprovalForce)
				fmt.Println("Open this URL and approve access:")
				fmt.Println()
				fmt.Println("  " + url)
				fmt.Println()
				code, err = promptString("Authorization code", "Paste the code shown after approval", "")
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error: %s\n", err)
					os.Exit(1)
				}
			}
			code = strings.TrimSpace(code)
			if code == "" {
				fmt.Fprintln(os.Stderr, "No code entered.")
				os.Exit(1)
			}

			tok, err := oauthCfg.Exchange(cmd.Context(), code)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Token exchange failed: %s\n", err)
				os.Exit(1)
			}
			tokens := google.NewTokenStore(cfg.GoogleTokenPath())
			if err := tokens.Save(tok); err != nil {
				fmt.Fprintf(os.Stderr, "Error saving token: %s\n", err)
				os.Exit(1)
			}
			fmt.Printf("Saved token to %s. Restart `jibot serve` to enable calendar and mail.\n", tokens.Path())
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "authorization code (skips the prompt)")
	return cmd
}

func googleStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a usable token is saved",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			tokens := google.NewTokenStore(cfg.GoogleTokenPath())
			tok, err := tokens.Load()
			if err != nil {
				fmt.Printf("Not authorized: %s\n", err)
				return
			}
			fmt.Printf("Token file: %s\n", tokens.Path())
			if tok.RefreshToken == "" {
				fmt.Println("Refresh:    missing (re-run `jibot google auth`)")
			} else {
				fmt.Println("Refresh:    present")
			}
			if !tok.Expiry.IsZero() {
				fmt.Printf("Expires:    %s\n", tok.Expiry.Local().Format("2006-01-02 15:04"))
			}
		},
	}
}
