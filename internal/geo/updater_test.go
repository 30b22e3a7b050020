package geo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

// releaseServer serves a latest-release document and its assets.
func releaseServer(t *testing.T, releaseStatus func(attempt int32) int) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var attempts atomic.Int32
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/repos/owner/geo/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if code := releaseStatus(n); code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		if got := r.Header.Get("Authorization"); got != "" && got != "Bearer secret" {
			t.Errorf("unexpected authorization header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"tag_name":"2026.10.18","assets":[
			{"name":"GeoLite2-ASN.mmdb","browser_download_url":"%[1]s/dl/asn"},
			{"name":"GeoLite2-City.mmdb","browser_download_url":"%[1]s/dl/city"},
			{"name":"GeoLite2-Country.mmdb","browser_download_url":"%[1]s/dl/country"}
		]}`, srv.URL)
	})
	mux.HandleFunc("/dl/asn", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("asn-data")) //nolint:errcheck // test server
	})
	mux.HandleFunc("/dl/city", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("city-data")) //nolint:errcheck // test server
	})
	mux.HandleFunc("/dl/country", func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("country database must not be downloaded")
	})

	return srv, &attempts
}

// TestUpdaterUpdate tests a successful refresh.
func TestUpdaterUpdate(t *testing.T) {
	t.Parallel()

	srv, _ := releaseServer(t, func(int32) int { return http.StatusOK })
	dir := filepath.Join(t.TempDir(), "geo")

	u := NewUpdater(dir,
		WithAPIBase(srv.URL),
		WithRepository("owner/geo"),
		WithToken("secret"),
		WithHTTPClient(srv.Client()),
		WithUpdaterLogger(quietLogger()),
	)

	paths, err := u.Update(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 files, got %v", paths)
	}

	data, err := os.ReadFile(filepath.Join(dir, ASNDatabase))
	if err != nil {
		t.Fatalf("failed to read asn database: %v", err)
	}
	if string(data) != "asn-data" {
		t.Errorf("unexpected content %q", data)
	}
	if _, err := os.Stat(filepath.Join(dir, CountryDatabase)); !os.IsNotExist(err) {
		t.Error("country database must not be written")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to list dir: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected no leftover temp files, got %d entries", len(entries))
	}
}

// TestUpdaterRetry tests the fixed-delay retry policy.
func TestUpdaterRetry(t *testing.T) {
	t.Parallel()

	t.Run("retries server errors until success", func(t *testing.T) {
		t.Parallel()

		srv, attempts := releaseServer(t, func(n int32) int {
			if n < 3 {
				return http.StatusBadGateway
			}
			return http.StatusOK
		})

		u := NewUpdater(t.TempDir(),
			WithAPIBase(srv.URL),
			WithRepository("owner/geo"),
			WithRetryDelay(time.Millisecond),
			WithUpdaterLogger(quietLogger()),
		)
		if _, err := u.Update(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := attempts.Load(); got != 3 {
			t.Errorf("expected 3 attempts, got %d", got)
		}
	})

	t.Run("retries too many requests", func(t *testing.T) {
		t.Parallel()

		srv, attempts := releaseServer(t, func(n int32) int {
			if n == 1 {
				return http.StatusTooManyRequests
			}
			return http.StatusOK
		})

		u := NewUpdater(t.TempDir(),
			WithAPIBase(srv.URL),
			WithRepository("owner/geo"),
			WithRetryDelay(time.Millisecond),
			WithUpdaterLogger(quietLogger()),
		)
		if _, err := u.Update(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := attempts.Load(); got != 2 {
			t.Errorf("expected 2 attempts, got %d", got)
		}
	})

	t.Run("stops on fatal status", func(t *testing.T) {
		t.Parallel()

		srv, attempts := releaseServer(t, func(int32) int { return http.StatusNotFound })

		u := NewUpdater(t.TempDir(),
			WithAPIBase(srv.URL),
			WithRepository("owner/geo"),
			WithRetryDelay(time.Millisecond),
			WithUpdaterLogger(quietLogger()),
		)
		_, err := u.Update(context.Background())
		if !errors.Is(err, ErrFatalStatus) {
			t.Errorf("expected ErrFatalStatus, got %v", err)
		}
		if got := attempts.Load(); got != 1 {
			t.Errorf("expected a single attempt, got %d", got)
		}
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		t.Parallel()

		srv, attempts := releaseServer(t, func(int32) int { return http.StatusServiceUnavailable })

		u := NewUpdater(t.TempDir(),
			WithAPIBase(srv.URL),
			WithRepository("owner/geo"),
			WithRetryDelay(time.Millisecond),
			WithMaxAttempts(4),
			WithUpdaterLogger(quietLogger()),
		)
		if _, err := u.Update(context.Background()); err == nil {
			t.Error("expected error")
		}
		if got := attempts.Load(); got != 4 {
			t.Errorf("expected 4 attempts, got %d", got)
		}
	})

	t.Run("context ends the retry loop", func(t *testing.T) {
		t.Parallel()

		srv, _ := releaseServer(t, func(int32) int { return http.StatusInternalServerError })

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		u := NewUpdater(t.TempDir(),
			WithAPIBase(srv.URL),
			WithRepository("owner/geo"),
			WithRetryDelay(10*time.Millisecond),
			WithUpdaterLogger(quietLogger()),
		)
		_, err := u.Update(ctx)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})
}

// TestUpdaterNoAssets tests a release without usable assets.
func TestUpdaterNoAssets(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"tag_name":"empty","assets":[{"name":"GeoLite2-Country.mmdb","browser_download_url":"x"}]}`)) //nolint:errcheck // test server
	}))
	t.Cleanup(srv.Close)

	u := NewUpdater(t.TempDir(), WithAPIBase(srv.URL), WithUpdaterLogger(quietLogger()))
	if _, err := u.Update(context.Background()); !errors.Is(err, ErrNoAssets) {
		t.Errorf("expected ErrNoAssets, got %v", err)
	}
}

// TestFatalStatus tests the status classification.
func TestFatalStatus(t *testing.T) {
	t.Parallel()

	tests := map[int]bool{
		http.StatusBadRequest:          true,
		http.StatusUnauthorized:        true,
		http.StatusNotFound:            true,
		http.StatusTooManyRequests:     false,
		http.StatusInternalServerError: false,
		http.StatusBadGateway:          false,
	}
	for code, want := range tests {
		if got := fatalStatus(code); got != want {
			t.Errorf("fatalStatus(%d) = %v, want %v", code, got, want)
		}
	}
}
