package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"theonebook/internal/config"
	"theonebook/internal/ratelimit"
)

func testConfig(t *testing.T) config.FileConfig {
	t.Helper()
	dir := t.TempDir()
	return config.FileConfig{
		Port:        "3100",
		DatabaseURL: filepath.Join(dir, "book.db"),
		JWTSecret:   "bootstrap-test-secret-0123",
		UploadDir:   filepath.Join(dir, "uploads"),
		JWTTTL:      "1h",
	}
}

func TestNewWithoutRedisUsesMemoryLimiter(t *testing.T) {
	rt, err := New(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	if rt.Redis != nil {
		t.Fatalf("expected no redis client")
	}
	if _, ok := rt.LoginLimiter.(*ratelimit.MemoryLimiter); !ok {
		t.Fatalf("expected memory limiter, got %T", rt.LoginLimiter)
	}
	if _, err := rt.App.ListChapters(context.Background()); err != nil {
		t.Fatalf("app not usable: %v", err)
	}
}

func TestNewWithRedisUsesSharedLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.RedisAddr = mr.Addr()

	rt, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	if rt.Redis == nil {
		t.Fatalf("expected redis client")
	}
	if _, ok := rt.LoginLimiter.(*ratelimit.FixedWindowLimiter); !ok {
		t.Fatalf("expected redis limiter, got %T", rt.LoginLimiter)
	}
}

func TestNewFailsOnUnreachableRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.RedisAddr = mr.Addr()
	mr.Close()

	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatalf("expected error for unreachable redis")
	}
}
