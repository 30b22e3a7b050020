package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Updater defaults.
const (
	DefaultRepository  = "P3TERX/GeoLite.mmdb"
	DefaultAPIBase     = "https://api.github.com"
	DefaultRetryDelay  = 10 * time.Second
	DefaultHTTPTimeout = 5 * time.Minute
)

// release is the subset of the GitHub release payload that is used.
type release struct {
	TagName string  `json:"tag_name"`
	Assets  []asset `json:"assets"`
}

type asset struct {
	Name string `json:"name"`
	URL  string `json:"browser_download_url"`
}

// Updater downloads the GeoLite2 databases published as release assets.
//
// Every request is retried with a fixed delay until it succeeds, the context
// is done, the server answers with a fatal status (a 4xx other than 429) or
// the optional attempt limit is reached.
type Updater struct {
	client     *http.Client
	apiBase    string
	repository string
	dir        string
	token      string
	retryDelay time.Duration
	maxTries   int
	skip       []string
	logger     *slog.Logger
}

// UpdaterOption configures an Updater.
type UpdaterOption func(*Updater)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) UpdaterOption {
	return func(u *Updater) {
		u.client = c
	}
}

// WithAPIBase overrides the GitHub API base URL.
func WithAPIBase(base string) UpdaterOption {
	return func(u *Updater) {
		u.apiBase = strings.TrimRight(base, "/")
	}
}

// WithRepository sets the owner/name of the repository to read releases from.
func WithRepository(repo string) UpdaterOption {
	return func(u *Updater) {
		u.repository = repo
	}
}

// WithToken sets a GitHub token sent as a bearer credential.
func WithToken(token string) UpdaterOption {
	return func(u *Updater) {
		u.token = token
	}
}

// WithRetryDelay sets the fixed delay between attempts.
func WithRetryDelay(d time.Duration) UpdaterOption {
	return func(u *Updater) {
		u.retryDelay = d
	}
}

// WithMaxAttempts stops retrying after n attempts. Zero means no limit.
func WithMaxAttempts(n int) UpdaterOption {
	return func(u *Updater) {
		u.maxTries = n
	}
}

// WithUpdaterLogger sets a custom logger.
func WithUpdaterLogger(logger *slog.Logger) UpdaterOption {
	return func(u *Updater) {
		u.logger = logger
	}
}

// NewUpdater creates an Updater that writes into dir.
func NewUpdater(dir string, opts ...UpdaterOption) *Updater {
	u := &Updater{
		client:     &http.Client{Timeout: DefaultHTTPTimeout},
		apiBase:    DefaultAPIBase,
		repository: DefaultRepository,
		dir:        dir,
		retryDelay: DefaultRetryDelay,
		skip:       []string{CountryDatabase},
	}

	for _, opt := range opts {
		opt(u)
	}

	if u.logger == nil {
		u.logger = slog.Default()
	}

	return u
}

// Update fetches the latest release and downloads every asset except the
// Country database, concurrently. It returns the paths written; on error
// the paths of the assets that did complete are still returned.
func (u *Updater) Update(ctx context.Context) ([]string, error) {
	rel, err := u.latestRelease(ctx)
	if err != nil {
		return nil, err
	}

	assets := make([]asset, 0, len(rel.Assets))
	for _, a := range rel.Assets {
		if a.Name == "" || a.URL == "" || slices.Contains(u.skip, a.Name) {
			continue
		}
		assets = append(assets, a)
	}
	if len(assets) == 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrNoAssets, u.repository, rel.TagName)
	}

	if err := os.MkdirAll(u.dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", u.dir, err)
	}

	// The first failure cancels the other downloads.
	written := make([]string, len(assets))
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range assets {
		g.Go(func() error {
			path, err := u.download(gctx, a)
			if err != nil {
				return err
			}
			u.logger.Info("downloaded geo dataset",
				"name", a.Name,
				"release", rel.TagName,
				"path", path,
			)
			written[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return slices.DeleteFunc(written, func(p string) bool { return p == "" }), err
	}
	return written, nil
}

func (u *Updater) latestRelease(ctx context.Context) (release, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", u.apiBase, u.repository)

	var rel release
	err := u.retry(ctx, url, func(body io.Reader) error {
		return json.NewDecoder(body).Decode(&rel)
	})
	if err != nil {
		return release{}, fmt.Errorf("failed to get latest release of %s: %w", u.repository, err)
	}
	return rel, nil
}

// download writes an asset to a temporary file and renames it into place.
func (u *Updater) download(ctx context.Context, a asset) (string, error) {
	dst := filepath.Join(u.dir, filepath.Base(a.Name))

	err := u.retry(ctx, a.URL, func(body io.Reader) error {
		tmp, err := os.CreateTemp(u.dir, "."+filepath.Base(a.Name)+".*")
		if err != nil {
			return err
		}
		defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after rename

		if _, err := io.Copy(tmp, body); err != nil {
			_ = tmp.Close() //nolint:errcheck // already failing
			return err
		}
		if err := tmp.Close(); err != nil {
			return err
		}
		return os.Rename(tmp.Name(), dst)
	})
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", a.Name, err)
	}
	return dst, nil
}

// retry performs GET url until handle succeeds on a 200 response.
func (u *Updater) retry(ctx context.Context, url string, handle func(io.Reader) error) error {
	for attempt := 1; ; attempt++ {
		err := u.get(ctx, url, handle)
		if err == nil {
			return nil
		}
		if isFatal(err) || ctx.Err() != nil {
			return err
		}
		if u.maxTries > 0 && attempt >= u.maxTries {
			return fmt.Errorf("giving up after %d attempts: %w", attempt, err)
		}

		u.logger.Warn("request failed, retrying",
			"url", url,
			"attempt", attempt,
			"delay", u.retryDelay,
			"error", err,
		)

		timer := time.NewTimer(u.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// statusError is a non-200 response.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.code, http.StatusText(e.code))
}

func (e *statusError) Is(target error) bool {
	return target == ErrFatalStatus && fatalStatus(e.code)
}

func isFatal(err error) bool {
	return errors.Is(err, ErrFatalStatus) || errors.Is(err, ErrInvalidURL)
}

// fatalStatus reports whether retrying code cannot help.
func fatalStatus(code int) bool {
	return code >= 400 && code < 500 && code != http.StatusTooManyRequests
}

func (u *Updater) get(ctx context.Context, url string, handle func(io.Reader) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "domainrecon")
	if u.token != "" {
		req.Header.Set("Authorization", "Bearer "+u.token)
	}

	u.logger.Debug("requesting", "url", url, "authenticated", u.token != "")

	resp, err := u.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for reuse
		return &statusError{code: resp.StatusCode}
	}
	return handle(resp.Body)
}
