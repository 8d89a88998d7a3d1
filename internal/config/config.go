package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"theonebook/internal/app"
)

// ConfigPath is the default config location; CONFIG_PATH overrides it.
// An explicit path passed to Load always wins.
const ConfigPath = "config.yaml"

// ExportConfig controls the PDF export.
type ExportConfig struct {
	RequireAuth  bool   `yaml:"requireAuth"`
	Filename     string `yaml:"filename"`
	Title        string `yaml:"title"`
	Author       string `yaml:"author"`
	FontPath     string `yaml:"fontPath"`
	BoldFontPath string `yaml:"boldFontPath"`
	FetchTimeout string `yaml:"fetchTimeout"`
	MaxRedirects int    `yaml:"maxRedirects"`
	Concurrency  int    `yaml:"concurrency"`
}

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port      string `yaml:"port"`
	Host      string `yaml:"host"`
	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`

	DatabaseURL string `yaml:"databaseURL"`

	JWTSecret   string `yaml:"jwtSecret"`
	JWTTTL      string `yaml:"jwtTTL"`
	JWTIssuer   string `yaml:"jwtIssuer"`
	JWTAudience string `yaml:"jwtAudience"`
	JWTLeeway   string `yaml:"jwtLeeway"`

	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`

	AllowedOrigins          []string `yaml:"allowedOrigins"`
	TrustedProxyCIDRs       []string `yaml:"trustedProxyCidrs"`
	LoginRateLimitPerMinute int      `yaml:"loginRateLimitPerMinute"`

	StorageBackend    string   `yaml:"storageBackend"`
	UploadDir         string   `yaml:"uploadDir"`
	MinioEndpoint     string   `yaml:"minioEndpoint"`
	MinioAccessKey    string   `yaml:"minioAccessKey"`
	MinioSecretKey    string   `yaml:"minioSecretKey"`
	MinioBucket       string   `yaml:"minioBucket"`
	MinioUseSSL       bool     `yaml:"minioUseSSL"`
	MinioPublicURL    string   `yaml:"minioPublicURL"`
	MaxUploadBytes    int64    `yaml:"maxUploadBytes"`
	AllowedExtensions []string `yaml:"allowedExtensions"`

	// PublicBaseURL is where relative image URLs such as /uploads/x.png are fetched from during export.
	PublicBaseURL string `yaml:"publicBaseURL"`

	Export ExportConfig   `yaml:"export"`
	Seed   app.SeedConfig `yaml:"seed"`
}

// Load reads config from path (defaults to config.yaml). A .env file in the
// working directory is loaded first so its values act as env overrides.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	_ = godotenv.Load()
	if path == "" || path == ConfigPath {
		path = ConfigPath
		if v := strings.TrimSpace(os.Getenv("CONFIG_PATH")); v != "" {
			path = v
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = strings.TrimSpace(v)
	}
	if v := os.Getenv("HOST"); v != "" {
		cfg.Host = strings.TrimSpace(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("JWT_TTL"); v != "" {
		cfg.JWTTTL = v
	}
	if v := os.Getenv("JWT_ISSUER"); v != "" {
		cfg.JWTIssuer = v
	}
	if v := os.Getenv("JWT_AUDIENCE"); v != "" {
		cfg.JWTAudience = v
	}
	if v := os.Getenv("JWT_LEEWAY"); v != "" {
		cfg.JWTLeeway = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitCSV(v)
	}
	if v := os.Getenv("TRUSTED_PROXY_CIDRS"); v != "" {
		cfg.TrustedProxyCIDRs = splitCSV(v)
	}
	if v := os.Getenv("LOGIN_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.LoginRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		cfg.StorageBackend = strings.TrimSpace(v)
	}
	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		cfg.UploadDir = v
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		cfg.MinioBucket = v
	}
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.MinioUseSSL = b
		}
	}
	if v := os.Getenv("MINIO_PUBLIC_URL"); v != "" {
		cfg.MinioPublicURL = v
	}
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			cfg.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("ALLOWED_EXTENSIONS"); v != "" {
		cfg.AllowedExtensions = splitCSV(v)
	}
	if v := os.Getenv("PUBLIC_BASE_URL"); v != "" {
		cfg.PublicBaseURL = v
	}
	if v := os.Getenv("EXPORT_REQUIRE_AUTH"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.Export.RequireAuth = b
		}
	}
	if v := os.Getenv("EXPORT_FONT_PATH"); v != "" {
		cfg.Export.FontPath = v
	}
	if v := os.Getenv("EXPORT_BOLD_FONT_PATH"); v != "" {
		cfg.Export.BoldFontPath = v
	}
	if v := os.Getenv("EXPORT_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.Export.Concurrency = n
		}
	}
	if v := os.Getenv("SEED_DEFAULT_PASSWORD"); v != "" {
		cfg.Seed.DefaultPassword = v
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
	}
	if len(strings.TrimSpace(cfg.JWTSecret)) < 16 {
		return errors.New("config: jwtSecret must be at least 16 characters (set in config.yaml or JWT_SECRET)")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.StorageBackend)) {
	case "", "local":
	case "minio", "s3":
		if cfg.MinioEndpoint == "" || cfg.MinioBucket == "" {
			return errors.New("config: minioEndpoint and minioBucket are required for the minio storage backend")
		}
	default:
		return fmt.Errorf("config: unknown storageBackend %q (use local or minio)", cfg.StorageBackend)
	}
	if cfg.LoginRateLimitPerMinute < 0 {
		return errors.New("config: rate limits must be >= 0")
	}
	if cfg.MaxUploadBytes < 0 {
		return errors.New("config: maxUploadBytes must be >= 0")
	}
	if cfg.Export.MaxRedirects < 0 || cfg.Export.Concurrency < 0 {
		return errors.New("config: export.maxRedirects and export.concurrency must be >= 0")
	}
	for name, value := range map[string]string{
		"jwtTTL":              cfg.JWTTTL,
		"jwtLeeway":           cfg.JWTLeeway,
		"export.fetchTimeout": cfg.Export.FetchTimeout,
	} {
		if _, err := ParseDuration(name, value); err != nil {
			return err
		}
	}
	return nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// ParseDuration parses an optional duration string; empty means zero.
func ParseDuration(name, value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s duration: %w", name, err)
	}
	if dur < 0 {
		return 0, fmt.Errorf("config: %s must not be negative", name)
	}
	return dur, nil
}

// Addr is the listen address.
func (c FileConfig) Addr() string {
	return c.Host + ":" + c.Port
}
