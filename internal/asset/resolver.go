// Package asset fetches remote binary objects (page images) for document assembly.
package asset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultMaxRedirects = 5
	DefaultMaxBytes     = 20 << 20
	DefaultTimeout      = 15 * time.Second
)

// ErrTooManyRedirects is wrapped by FetchError when the redirect bound is exceeded.
var ErrTooManyRedirects = errors.New("too many redirects")

// ErrTooLarge is wrapped by FetchError when the body exceeds the size cap.
var ErrTooLarge = errors.New("asset too large")

// FetchError describes why an asset could not be resolved.
// StatusCode is zero for transport failures.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Config configures a Resolver.
type Config struct {
	// BaseURL resolves relative asset URLs such as /uploads/x.png.
	BaseURL      string
	MaxRedirects int
	MaxBytes     int64
	Timeout      time.Duration
	Transport    http.RoundTripper
}

// Resolver downloads assets over HTTP, following a bounded redirect chain.
// It keeps no cache between calls.
type Resolver struct {
	client   *http.Client
	base     *url.URL
	maxBytes int64
}

// NewResolver builds a resolver.
func NewResolver(cfg Config) (*Resolver, error) {
	maxRedirects := cfg.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = DefaultMaxRedirects
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	var base *url.URL
	if raw := strings.TrimSpace(cfg.BaseURL); raw != "" {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse asset base url: %w", err)
		}
		if !u.IsAbs() {
			return nil, fmt.Errorf("asset base url must be absolute: %q", raw)
		}
		base = u
	}
	client := &http.Client{
		Timeout:   timeout,
		Transport: cfg.Transport,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return ErrTooManyRedirects
			}
			return nil
		},
	}
	return &Resolver{client: client, base: base, maxBytes: maxBytes}, nil
}

// Fetch returns the body of the asset at rawURL or a *FetchError.
func (r *Resolver) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	target, err := r.resolve(rawURL)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes+1))
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	if int64(len(data)) > r.maxBytes {
		return nil, &FetchError{URL: rawURL, Err: ErrTooLarge}
	}
	return data, nil
}

func (r *Resolver) resolve(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", errors.New("empty url")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.IsAbs() {
		if u.Scheme != "http" && u.Scheme != "https" {
			return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
		}
		return u.String(), nil
	}
	if r.base == nil {
		return "", errors.New("relative url without base")
	}
	return r.base.ResolveReference(u).String(), nil
}
