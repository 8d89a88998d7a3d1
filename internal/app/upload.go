package app

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"theonebook/pkg/storage"
)

// Upload stores an image and returns the URL it is reachable at.
// size is the declared length; the reader is additionally capped so a lying
// client cannot exceed the limit.
func (a *App) Upload(ctx context.Context, filename string, r io.Reader, size int64) (string, error) {
	if r == nil || strings.TrimSpace(filename) == "" {
		return "", ErrFileRequired
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := a.extensions[ext]; !ok {
		return "", ErrUnsupportedFileType
	}
	if size > a.maxUpload {
		return "", ErrFileTooLarge
	}
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := storage.NewObjectKey(filename, a.now())
	url, err := a.objects.Put(ctx, key, io.LimitReader(r, a.maxUpload), size, contentType)
	if err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}
	return url, nil
}
