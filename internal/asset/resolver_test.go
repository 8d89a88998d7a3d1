package asset

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
)

func TestFetchFollowsRedirectsWithinBound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hop, _ := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/hop/"))
		if hop < 5 {
			http.Redirect(w, r, fmt.Sprintf("/hop/%d", hop+1), http.StatusFound)
			return
		}
		_, _ = w.Write([]byte("image"))
	}))
	defer srv.Close()

	r, err := NewResolver(Config{MaxRedirects: 5})
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	data, err := r.Fetch(context.Background(), srv.URL+"/hop/0")
	if err != nil {
		t.Fatalf("fetch with 5 redirects: %v", err)
	}
	if string(data) != "image" {
		t.Fatalf("unexpected body %q", data)
	}
}

func TestFetchFailsBeyondRedirectBound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.Path+"x", http.StatusMovedPermanently)
	}))
	defer srv.Close()

	r, _ := NewResolver(Config{MaxRedirects: 5})
	_, err := r.Fetch(context.Background(), srv.URL+"/loop")
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %T %v", err, err)
	}
	if !errors.Is(err, ErrTooManyRedirects) {
		t.Fatalf("expected ErrTooManyRedirects, got %v", err)
	}
}

func TestFetchNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	r, _ := NewResolver(Config{})
	_, err := r.Fetch(context.Background(), srv.URL+"/missing.png")
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) || fetchErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 FetchError, got %v", err)
	}
}

func TestFetchResolvesRelativeAgainstBase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/uploads/a.png" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	r, err := NewResolver(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	if _, err := r.Fetch(context.Background(), "/uploads/a.png"); err != nil {
		t.Fatalf("fetch relative: %v", err)
	}

	noBase, _ := NewResolver(Config{})
	if _, err := noBase.Fetch(context.Background(), "/uploads/a.png"); err == nil {
		t.Fatalf("expected relative url without base to fail")
	}
}

func TestFetchRejectsEmptyAndOversized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	r, _ := NewResolver(Config{MaxBytes: 16})
	if _, err := r.Fetch(context.Background(), ""); err == nil {
		t.Fatalf("expected empty url to fail")
	}
	if _, err := r.Fetch(context.Background(), srv.URL); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestFetchHonoursCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("late"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, _ := NewResolver(Config{})
	if _, err := r.Fetch(ctx, srv.URL); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
