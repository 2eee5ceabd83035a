package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func TestLocalImageStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewLocalImageStore(t.TempDir())
	ctx := context.Background()

	if err := store.Put(ctx, "articles/abc.png", []byte("png-bytes"), "image/png"); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := store.Get(ctx, "articles/abc.png")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "png-bytes" {
		t.Fatalf("unexpected content: %q", got)
	}

	if _, err := store.Get(ctx, "articles/missing.png"); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestLocalImageStoreStaysInRoot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewLocalImageStore(root)
	ctx := context.Background()

	// ../ wird auf root gekürzt statt hinauszuführen
	if err := store.Put(ctx, "../../escape.png", []byte("x"), "image/png"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.Get(ctx, "escape.png"); err != nil {
		t.Fatalf("expected file to land inside root: %v", err)
	}
	if err := store.Put(ctx, "", []byte("x"), "image/png"); err == nil {
		t.Fatal("expected empty key to be rejected")
	}
}

type fakeS3 struct {
	objects map[string][]byte
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Bucket+"/"+*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3ImageStore(t *testing.T) {
	t.Parallel()

	client := &fakeS3{objects: map[string][]byte{}}
	store := NewS3ImageStore(client, "reports")
	ctx := context.Background()

	if err := store.Put(ctx, "articles/a.gif", []byte("gif"), "image/gif"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, ok := client.objects["reports/articles/a.gif"]; !ok {
		t.Fatal("expected object in bucket")
	}
	got, err := store.Get(ctx, "articles/a.gif")
	if err != nil || string(got) != "gif" {
		t.Fatalf("get: %q %v", got, err)
	}
	if _, err := store.Get(ctx, "articles/none.gif"); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}
