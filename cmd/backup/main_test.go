package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap/zaptest"
)

func object(key string, age time.Duration) types.Object {
	return types.Object{Key: aws.String(key), LastModified: aws.Time(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC).Add(-age))}
}

func TestBackupsToDelete(t *testing.T) {
	t.Parallel()

	objects := []types.Object{
		object("report-desk/backup-c.sql.gz", 2*time.Hour),
		object("report-desk/backup-a.sql.gz", 0),
		object("report-desk/notes.txt", 10*time.Hour),
		object("report-desk/backup-d.sql.gz", 3*time.Hour),
		object("other/backup-x.sql.gz", 9*time.Hour),
		object("report-desk/backup-b.sql.gz", time.Hour),
	}

	testCases := []struct {
		keep int
		want []string
	}{
		{keep: 2, want: []string{"report-desk/backup-c.sql.gz", "report-desk/backup-d.sql.gz"}},
		{keep: 4, want: nil},
		{keep: 0, want: []string{"report-desk/backup-b.sql.gz", "report-desk/backup-c.sql.gz", "report-desk/backup-d.sql.gz"}},
	}
	for _, testCase := range testCases {
		got := backupsToDelete(objects, "report-desk/", testCase.keep)
		if strings.Join(got, ",") != strings.Join(testCase.want, ",") {
			t.Errorf("keep=%d: got %v, want %v", testCase.keep, got, testCase.want)
		}
	}
}

func TestBackupKey(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 6, 1, 13, 4, 5, 0, time.FixedZone("CEST", 2*60*60))
	if got := backupKey("rd/", now); got != "rd/backup-2024-06-01T11-04-05Z.sql.gz" {
		t.Fatalf("unexpected key %q", got)
	}
}

type fakeBucket struct {
	objects []types.Object
	deleted []string
}

func (f *fakeBucket) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.objects = append(f.objects, types.Object{Key: in.Key, LastModified: aws.Time(time.Now())})
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeBucket) ListObjectsV2(_ context.Context, _ *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	return &s3.ListObjectsV2Output{Contents: f.objects, IsTruncated: aws.Bool(false)}, nil
}

func (f *fakeBucket) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleted = append(f.deleted, *in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func TestRotateBackups(t *testing.T) {
	t.Parallel()
	bucket := &fakeBucket{objects: []types.Object{
		object("report-desk/backup-old.sql.gz", 48*time.Hour),
		object("report-desk/backup-mid.sql.gz", 24*time.Hour),
	}}
	ctx := context.Background()
	if err := uploadBackup(ctx, bucket, "b", "report-desk/backup-new.sql.gz", []byte("dump")); err != nil {
		t.Fatalf("upload: %v", err)
	}

	cfg := BackupConfig{BackupBucket: "b", BackupPrefix: "report-desk/", KeepBackups: 2}
	if err := rotateBackups(ctx, bucket, cfg, zaptest.NewLogger(t)); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if len(bucket.deleted) != 1 || bucket.deleted[0] != "report-desk/backup-old.sql.gz" {
		t.Fatalf("unexpected deletions: %v", bucket.deleted)
	}
}

func TestCompressOutput(t *testing.T) {
	t.Parallel()

	cmd := exec.Command("sh", "-c", "printf 'CREATE TABLE articles;'")
	out, err := compressOutput(cmd)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	reader, err := gzip.NewReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	plain, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if string(plain) != "CREATE TABLE articles;" {
		t.Fatalf("unexpected dump %q", plain)
	}
}

func TestCompressOutputReapsFailedProcess(t *testing.T) {
	t.Parallel()

	cmd := exec.Command("sh", "-c", "printf partial; exit 3")
	out, err := compressOutput(cmd)
	if err == nil {
		t.Fatal("expected error for failing dump")
	}
	if out != nil {
		t.Fatalf("failed dump must not return data, got %d bytes", len(out))
	}
	if cmd.ProcessState == nil || cmd.ProcessState.ExitCode() != 3 {
		t.Fatalf("process not reaped: %v", cmd.ProcessState)
	}
}
