// Package bootstrap builds the process-wide dependencies shared by the
// server and the bookctl CLI from a loaded config.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"theonebook/internal/app"
	"theonebook/internal/config"
	"theonebook/internal/ratelimit"
	"theonebook/internal/usertoken"
	"theonebook/internal/util"
	"theonebook/pkg/storage"
	"theonebook/pkg/store"
)

const (
	defaultLoginRateLimit = 10
	redisPingTimeout      = 3 * time.Second
)

// Runtime holds everything a binary needs to serve or run commands.
type Runtime struct {
	App            *app.App
	Redis          *redis.Client
	LoginLimiter   ratelimit.Limiter
	TrustedProxies *util.TrustedProxies
}

// New wires the app from cfg. Redis is optional: without redisAddr, token
// revocation and rate limiting fall back to in-process implementations.
func New(ctx context.Context, cfg config.FileConfig) (*Runtime, error) {
	jwtTTL, err := config.ParseDuration("jwtTTL", cfg.JWTTTL)
	if err != nil {
		return nil, err
	}
	jwtLeeway, err := config.ParseDuration("jwtLeeway", cfg.JWTLeeway)
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := config.ParseDuration("export.fetchTimeout", cfg.Export.FetchTimeout)
	if err != nil {
		return nil, err
	}
	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		return nil, fmt.Errorf("parse trustedProxyCidrs: %w", err)
	}

	rt := &Runtime{TrustedProxies: trusted}
	var revoker store.TokenRevoker = store.NewMemoryTokenRevoker()
	loginLimit := cfg.LoginRateLimitPerMinute
	if loginLimit <= 0 {
		loginLimit = defaultLoginRateLimit
	}

	if addr := strings.TrimSpace(cfg.RedisAddr); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.RedisPassword})
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		rt.Redis = client
		revoker = store.NewRedisTokenRevoker(client, "theonebook:revoked")
		limiter, err := ratelimit.NewFixedWindowLimiter(client, "theonebook:ratelimit:login", loginLimit, time.Minute)
		if err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("init login limiter: %w", err)
		}
		rt.LoginLimiter = limiter
	} else {
		limiter, err := ratelimit.NewMemoryLimiter(loginLimit, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("init login limiter: %w", err)
		}
		rt.LoginLimiter = limiter
	}

	tokens, err := usertoken.NewVerifier(usertoken.Config{
		Secret:   cfg.JWTSecret,
		TTL:      jwtTTL,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		Leeway:   jwtLeeway,
		Revoker:  revoker,
	})
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("init token verifier: %w", err)
	}

	assetBase := strings.TrimSpace(cfg.PublicBaseURL)
	if assetBase == "" {
		host := cfg.Host
		if host == "" || host == "0.0.0.0" {
			host = "127.0.0.1"
		}
		assetBase = "http://" + host + ":" + cfg.Port
	}

	appCore, err := app.New(app.Config{
		DatabaseURL:    cfg.DatabaseURL,
		StorageBackend: cfg.StorageBackend,
		UploadDir:      cfg.UploadDir,
		Minio: storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.MinioPublicURL,
		},
		Tokens:       tokens,
		AssetBaseURL: assetBase,
		FetchTimeout: fetchTimeout,
		MaxRedirects: cfg.Export.MaxRedirects,
		Export: app.ExportConfig{
			Filename:     cfg.Export.Filename,
			Title:        cfg.Export.Title,
			Author:       cfg.Export.Author,
			FontPath:     cfg.Export.FontPath,
			BoldFontPath: cfg.Export.BoldFontPath,
			Concurrency:  cfg.Export.Concurrency,
		},
		MaxUploadBytes:    cfg.MaxUploadBytes,
		AllowedExtensions: cfg.AllowedExtensions,
	})
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("init app: %w", err)
	}
	rt.App = appCore
	return rt, nil
}

// Close releases the database and Redis connections.
func (r *Runtime) Close() error {
	var errs []error
	if r.App != nil {
		errs = append(errs, r.App.Close())
	}
	if r.Redis != nil {
		errs = append(errs, r.Redis.Close())
	}
	return errors.Join(errs...)
}
