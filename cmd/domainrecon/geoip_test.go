package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/domainrecon/internal/config"
	"github.com/nao1215/domainrecon/internal/geo"
)

// geoReleaseServer serves a latest release of owner/geo with two assets.
func geoReleaseServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/repos/owner/geo/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected authorization header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"tag_name":"2026.10.19","assets":[
			{"name":"GeoLite2-ASN.mmdb","browser_download_url":"%[1]s/dl/asn"},
			{"name":"GeoLite2-Country.mmdb","browser_download_url":"%[1]s/dl/country"}
		]}`, srv.URL)
	})
	mux.HandleFunc("/dl/asn", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("asn-data")) //nolint:errcheck // test server
	})
	mux.HandleFunc("/dl/country", func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("country database must not be downloaded")
	})

	return srv
}

// TestUpdateGeoIP tests the refresh used by geoip update and scan --update-geoip.
func TestUpdateGeoIP(t *testing.T) {
	t.Parallel()

	srv := geoReleaseServer(t)

	cfg := config.NewConfig()
	cfg.DataDir = t.TempDir()
	cfg.GeoRepository = "owner/geo"
	cfg.GitHubToken = "secret"

	var out bytes.Buffer
	err := updateGeoIP(t.Context(), cfg, quietLogger(), &out,
		geo.WithAPIBase(srv.URL),
		geo.WithMaxAttempts(1),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := filepath.Join(cfg.DataDir, config.GeoDirName, "GeoLite2-ASN.mmdb")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected %s: %v", path, err)
	}
	if string(data) != "asn-data" {
		t.Errorf("unexpected content %q", data)
	}
	if !strings.Contains(out.String(), path) {
		t.Errorf("expected output to name %s, got %q", path, out.String())
	}
	if strings.Contains(out.String(), "secret") {
		t.Error("token must not be printed")
	}
}

// TestUpdateGeoIPFatalStatus tests that a client error stops the refresh.
func TestUpdateGeoIPFatalStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	cfg := config.NewConfig()
	cfg.DataDir = t.TempDir()
	cfg.GeoRepository = "owner/missing"

	err := updateGeoIP(t.Context(), cfg, quietLogger(), &bytes.Buffer{}, geo.WithAPIBase(srv.URL))
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("expected the status in the error, got %v", err)
	}
}

// TestGeoIPUpdateFlags tests the flags of geoip update.
func TestGeoIPUpdateFlags(t *testing.T) {
	t.Parallel()

	cmd := parseCmd(t, []string{"geoip", "update"},
		"--config", emptyConfigFile(t),
		"--geoip-dir", "/srv/geo",
		"--repository", "owner/geo",
		"--github-token", "tok",
	)

	cfg, err := loadConfig(cmd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := applyGeoFlags(cmd, cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.GeoDatabaseDir() != "/srv/geo" || cfg.GeoRepository != "owner/geo" || cfg.GitHubToken != "tok" {
		t.Errorf("geo flags not applied: %q %q", cfg.GeoDatabaseDir(), cfg.GeoRepository)
	}
}
