// Package backup copies the bot's JSON documents to S3-compatible storage.
package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/nextlevelbuilder/jibot/internal/config"
)

// Files that never leave the machine.
var skipped = map[string]bool{
	"google-token.json": true,
	"config.json":       true,
}

// Uploader is the subset of *manager.Uploader used here.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Result lists the object keys written by one run.
type Result struct {
	Bucket string
	Keys   []string
}

// NewS3Uploader builds a multipart uploader from the backup config.
func NewS3Uploader(ctx context.Context, cfg config.BackupConfig) (*manager.Uploader, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return manager.NewUploader(client), nil
}

// Files returns the JSON documents under dataDir that belong in a backup,
// sorted by name. Secrets such as the Google token are left out.
func Files(dataDir string) ([]string, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.EqualFold(filepath.Ext(name), ".json") || skipped[name] {
			continue
		}
		out = append(out, filepath.Join(dataDir, name))
	}
	sort.Strings(out)
	return out, nil
}

// Run uploads every backup file under prefix/<timestamp>/.
func Run(ctx context.Context, up Uploader, cfg config.BackupConfig, dataDir string, now time.Time) (Result, error) {
	res := Result{Bucket: cfg.Bucket}
	if cfg.Bucket == "" {
		return res, errors.New("backup.bucket is not set")
	}
	files, err := Files(dataDir)
	if err != nil {
		return res, fmt.Errorf("list data dir: %w", err)
	}
	if len(files) == 0 {
		return res, fmt.Errorf("nothing to back up in %s", dataDir)
	}

	stamp := now.UTC().Format("20060102T150405Z")
	for _, f := range files {
		key := path.Join(cfg.Prefix, stamp, filepath.Base(f))
		if err := uploadFile(ctx, up, cfg.Bucket, key, f); err != nil {
			return res, err
		}
		slog.Debug("backup uploaded", "bucket", cfg.Bucket, "key", key)
		res.Keys = append(res.Keys, key)
	}
	slog.Info("backup complete", "bucket", cfg.Bucket, "objects", len(res.Keys), "stamp", stamp)
	return res, nil
}

func uploadFile(ctx context.Context, up Uploader, bucket, key, file string) error {
	fh, err := os.Open(file)
	if err != nil {
		return err
	}
	defer fh.Close()

	_, err = up.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        fh,
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}
