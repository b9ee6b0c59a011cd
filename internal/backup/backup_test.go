package backup

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/nextlevelbuilder/jibot/internal/config"
)

type fakeUploader struct {
	bodies map[string]string
	fail   bool
}

func (f *fakeUploader) Upload(_ context.Context, in *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if f.fail {
		return nil, errors.New("access denied")
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if f.bodies == nil {
		f.bodies = map[string]string{}
	}
	f.bodies[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = string(data)
	return &manager.UploadOutput{}, nil
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte(`{"name":"`+n+`"}`), 0o600); err != nil {
			t.Fatal(err)
		}
	}
}

func TestFilesSkipsSecrets(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "facts.json", "reminders.json", "google-token.json", "notes.txt")
	if err := os.Mkdir(filepath.Join(dir, "sub.json"), 0o700); err != nil {
		t.Fatal(err)
	}

	files, err := Files(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("files = %v", files)
	}
	if filepath.Base(files[0]) != "facts.json" || filepath.Base(files[1]) != "reminders.json" {
		t.Errorf("files = %v", files)
	}
}

func TestRunUploadsUnderTimestamp(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "facts.json", "identity.json")
	up := &fakeUploader{}
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	res, err := Run(context.Background(), up, config.BackupConfig{Bucket: "b", Prefix: "jibot/"}, dir, now)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"jibot/20260304T050607Z/facts.json", "jibot/20260304T050607Z/identity.json"}
	if len(res.Keys) != len(want) {
		t.Fatalf("keys = %v", res.Keys)
	}
	for i, k := range want {
		if res.Keys[i] != k {
			t.Errorf("key[%d] = %q, want %q", i, res.Keys[i], k)
		}
	}
	if got := up.bodies["b/jibot/20260304T050607Z/facts.json"]; got != `{"name":"facts.json"}` {
		t.Errorf("body = %q", got)
	}
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	if _, err := Run(ctx, &fakeUploader{}, config.BackupConfig{}, dir, time.Now()); err == nil {
		t.Error("expected missing bucket error")
	}
	if _, err := Run(ctx, &fakeUploader{}, config.BackupConfig{Bucket: "b"}, dir, time.Now()); err == nil {
		t.Error("expected empty dir error")
	}

	writeFiles(t, dir, "facts.json")
	if _, err := Run(ctx, &fakeUploader{fail: true}, config.BackupConfig{Bucket: "b"}, dir, time.Now()); err == nil {
		t.Error("expected upload error")
	}
}
