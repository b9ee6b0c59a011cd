package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/jibot/internal/backup"
)

func backupCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Upload the data directory's JSON documents to S3",
		Long: `Copies facts, identities, links and file reminders to the bucket in
backup.bucket under backup.prefix/<UTC timestamp>/. Credentials come from
backup.accessKeyId / backup.secretAccessKey or the default AWS chain.`,
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			dir := cfg.ResolvedDataDir()

			if dryRun {
				files, err := backup.Files(dir)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error: %s\n", err)
					os.Exit(1)
				}
				for _, f := range files {
					fmt.Println(f)
				}
				return
			}

			up, err := backup.NewS3Uploader(cmd.Context(), cfg.Backup)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
			res, err := backup.Run(cmd.Context(), up, cfg.Backup, dir, time.Now())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Backup failed: %s\n", err)
				os.Exit(1)
			}
			for _, k := range res.Keys {
				fmt.Printf("  s3://%s/%s\n", res.Bucket, k)
			}
			fmt.Printf("Uploaded %d file(s).\n", len(res.Keys))
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list the files without uploading")
	return cmd
}
