package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileStore saves uploads to a local directory served under URLPrefix.
type FileStore struct {
	basePath  string
	urlPrefix string
}

// NewFileStore creates the base directory if missing.
func NewFileStore(basePath, urlPrefix string) (*FileStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("storage base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	urlPrefix = "/" + strings.Trim(strings.TrimSpace(urlPrefix), "/")
	if urlPrefix == "/" {
		urlPrefix = "/uploads"
	}
	return &FileStore{basePath: basePath, urlPrefix: urlPrefix}, nil
}

// Dir returns the directory holding uploaded files.
func (f *FileStore) Dir() string {
	return f.basePath
}

// Put writes the blob to disk and returns its relative URL.
func (f *FileStore) Put(ctx context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := safeFilename(key)
	target := filepath.Join(f.basePath, name)
	out, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		_ = os.Remove(target)
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close file: %w", err)
	}
	return f.urlPrefix + "/" + name, nil
}

// Delete removes a stored blob; a missing file is not an error.
func (f *FileStore) Delete(_ context.Context, key string) error {
	err := os.Remove(filepath.Join(f.basePath, safeFilename(key)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func safeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, string(os.PathSeparator), "_")
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return "upload"
	}
	return name
}
