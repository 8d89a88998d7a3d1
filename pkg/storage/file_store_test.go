package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFileStorePutAndDelete(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir, "/uploads/")
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	ctx := context.Background()

	url, err := fs.Put(ctx, "abc.png", strings.NewReader("png-bytes"), 9, "image/png")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if url != "/uploads/abc.png" {
		t.Fatalf("unexpected url: %q", url)
	}
	data, err := os.ReadFile(filepath.Join(dir, "abc.png"))
	if err != nil || string(data) != "png-bytes" {
		t.Fatalf("unexpected file content %q: %v", data, err)
	}

	if err := fs.Delete(ctx, "abc.png"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := fs.Delete(ctx, "abc.png"); err != nil {
		t.Fatalf("deleting a missing file should be a no-op: %v", err)
	}
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	fs, _ := NewFileStore(dir, "")
	url, err := fs.Put(context.Background(), "../../etc/passwd", strings.NewReader("x"), 1, "")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if url != "/uploads/passwd" {
		t.Fatalf("expected path to be flattened, got %q", url)
	}
	if _, err := os.Stat(filepath.Join(dir, "passwd")); err != nil {
		t.Fatalf("expected file inside base dir: %v", err)
	}
}

func TestNewObjectKeyKeepsExtension(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	a := NewObjectKey("Photo.JPG", now)
	b := NewObjectKey("Photo.JPG", now)
	if !strings.HasPrefix(a, "1700000000000-") || !strings.HasSuffix(a, ".jpg") {
		t.Fatalf("unexpected key: %q", a)
	}
	if a == b {
		t.Fatalf("keys must be unique, got %q twice", a)
	}
}
