package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"theonebook/internal/asset"
	"theonebook/internal/export"
	"theonebook/internal/usertoken"
	"theonebook/pkg/storage"
	"theonebook/pkg/store"
)

const (
	defaultMaxUploadBytes = 10 << 20
	defaultExportFilename = "TheOneBook.pdf"
	defaultExportTitle    = "The One Book"
	defaultExportAuthor   = "The One"
)

var defaultAllowedExtensions = []string{".jpg", ".jpeg", ".png", ".gif"}

// ExportConfig controls the generated document.
type ExportConfig struct {
	Filename     string
	Title        string
	Author       string
	FontPath     string
	BoldFontPath string
	Concurrency  int
}

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL string
	// Store overrides DatabaseURL when set.
	Store store.Store

	// Objects overrides the storage settings below when set.
	Objects        storage.ObjectStore
	StorageBackend string
	UploadDir      string
	Minio          storage.MinioConfig

	Tokens *usertoken.Verifier

	// Fetcher overrides the HTTP asset resolver when set.
	Fetcher        export.AssetFetcher
	AssetBaseURL   string
	FetchTimeout   time.Duration
	MaxRedirects   int
	MaxAssetBytes  int64
	Export         ExportConfig
	MaxUploadBytes int64

	AllowedExtensions []string
}

// App is the core application service wiring together storage, auth and export.
type App struct {
	store      store.Store
	objects    storage.ObjectStore
	tokens     *usertoken.Verifier
	pipeline   *export.Pipeline
	exportCfg  ExportConfig
	maxUpload  int64
	extensions map[string]struct{}
	now        func() time.Time
}

// New constructs the application.
func New(cfg Config) (*App, error) {
	if cfg.Tokens == nil {
		return nil, errors.New("token verifier required")
	}
	dataStore := cfg.Store
	if dataStore == nil {
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return nil, errors.New("database URL required")
		}
		gs, err := store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
		dataStore = gs
	}

	objects := cfg.Objects
	if objects == nil {
		var err error
		objects, err = newObjectStore(cfg)
		if err != nil {
			return nil, err
		}
	}

	fetcher := cfg.Fetcher
	if fetcher == nil {
		resolver, err := asset.NewResolver(asset.Config{
			BaseURL:      cfg.AssetBaseURL,
			MaxRedirects: cfg.MaxRedirects,
			MaxBytes:     cfg.MaxAssetBytes,
			Timeout:      cfg.FetchTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("init asset resolver: %w", err)
		}
		fetcher = resolver
	}

	exportCfg := cfg.Export
	if strings.TrimSpace(exportCfg.Filename) == "" {
		exportCfg.Filename = defaultExportFilename
	}
	if strings.TrimSpace(exportCfg.Title) == "" {
		exportCfg.Title = defaultExportTitle
	}
	if strings.TrimSpace(exportCfg.Author) == "" {
		exportCfg.Author = defaultExportAuthor
	}

	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	allowed := cfg.AllowedExtensions
	if len(allowed) == 0 {
		allowed = defaultAllowedExtensions
	}
	extensions := make(map[string]struct{}, len(allowed))
	for _, ext := range allowed {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extensions[ext] = struct{}{}
	}

	return &App{
		store:      dataStore,
		objects:    objects,
		tokens:     cfg.Tokens,
		pipeline:   export.NewPipeline(dataStore, fetcher, exportCfg.Concurrency),
		exportCfg:  exportCfg,
		maxUpload:  maxUpload,
		extensions: extensions,
		now:        time.Now,
	}, nil
}

func newObjectStore(cfg Config) (storage.ObjectStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.StorageBackend)) {
	case "", "local":
		dir := cfg.UploadDir
		if strings.TrimSpace(dir) == "" {
			dir = "uploads"
		}
		fs, err := storage.NewFileStore(dir, "/uploads")
		if err != nil {
			return nil, fmt.Errorf("init file store: %w", err)
		}
		return fs, nil
	case "minio", "s3":
		ms, err := storage.NewMinioStore(context.Background(), cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("init minio store: %w", err)
		}
		return ms, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// Objects exposes the blob store (the server serves local uploads from it).
func (a *App) Objects() storage.ObjectStore {
	return a.objects
}

// MaxUploadBytes is the largest accepted upload.
func (a *App) MaxUploadBytes() int64 {
	return a.maxUpload
}

// Close releases the database connection when the app owns it.
func (a *App) Close() error {
	if c, ok := a.store.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
