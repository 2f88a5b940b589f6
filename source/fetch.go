package source

// Remote source resolution.
// Uses hashicorp/go-getter so a report can be passed as:
//   - Local paths: /data/report_2025.pdf, ./inbox/report.pdf
//   - HTTP(S) URLs: https://example.org/reports/report_2025.pdf
//   - Object storage: s3::https://..., gcs::https://...

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-getter"
	"go.uber.org/zap"

	"github.com/teranos/refresh/errors"
	"github.com/teranos/refresh/internal/httpclient"
	"github.com/teranos/refresh/logger"
	"github.com/teranos/refresh/version"
)

// Fetched is a source input resolved to a local file
type Fetched struct {
	// Path is the local file to validate
	Path string
	// Input is the original argument
	Input string
	// Remote reports whether the file was downloaded
	Remote bool

	cleanup func()
}

// Cleanup removes the download directory of a remote source.
// Safe to call multiple times.
func (f *Fetched) Cleanup() {
	if f.cleanup != nil {
		f.cleanup()
		f.cleanup = nil
	}
}

// FetchOptions configures remote downloads
type FetchOptions struct {
	Dir               string // Parent of download directories, "" for the system temp dir
	Timeout           time.Duration
	AllowPrivateHosts bool
}

// Fetcher downloads remote reports to local files
type Fetcher struct {
	dir    string
	http   *httpclient.Client
	logger *zap.SugaredLogger
}

// NewFetcher creates a fetcher. HTTP downloads go through the guarded client.
func NewFetcher(opts FetchOptions, log *zap.SugaredLogger) *Fetcher {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Fetcher{
		dir: opts.Dir,
		http: httpclient.New(httpclient.Options{
			Timeout:           opts.Timeout,
			AllowPrivateHosts: opts.AllowPrivateHosts,
		}),
		logger: log,
	}
}

// IsRemote reports whether go-getter detects input as a non-local source
func IsRemote(input string) bool {
	if _, err := os.Stat(input); err == nil {
		return false
	}
	_, u, err := detect(input)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Scheme != "file"
}

func detect(input string) (string, *url.URL, error) {
	pwd, err := os.Getwd()
	if err != nil {
		pwd = "."
	}
	detected, err := getter.Detect(input, pwd, getter.Detectors)
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to detect source type")
	}
	// Strip a forced getter prefix such as "s3::" before parsing
	raw := detected
	if i := strings.Index(raw, "::"); i > 0 {
		raw = raw[i+2:]
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to parse detected source URL")
	}
	return detected, u, nil
}

// Fetch resolves input to a local file. Local paths are returned as-is.
// Remote inputs are downloaded into a fresh directory; the caller must call
// Cleanup when done.
func (f *Fetcher) Fetch(ctx context.Context, input string) (*Fetched, error) {
	if !IsRemote(input) {
		return &Fetched{Path: input, Input: input}, nil
	}

	detected, u, err := detect(input)
	if err != nil {
		return nil, errors.Mark(err, errors.ErrSourceNotFound)
	}
	plainHTTP := !strings.Contains(detected, "::") && (u.Scheme == "http" || u.Scheme == "https")
	if plainHTTP {
		if _, err := f.http.CheckURL(detected); err != nil {
			return nil, errors.WithHint(
				errors.Mark(errors.Wrapf(err, "refusing to fetch %s", input), errors.ErrSourceNotFound),
				"set source.allow_private_hosts to fetch from an internal server",
			)
		}
	}

	tempDir, err := os.MkdirTemp(f.dir, "refresh-source-*")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create download directory")
	}

	getters := make(map[string]getter.Getter, len(getter.Getters))
	for k, g := range getter.Getters {
		getters[k] = g
	}
	httpGetter := &getter.HttpGetter{
		Client: f.http.Client,
		Netrc:  true,
		Header: http.Header{"User-Agent": []string{version.Get().UserAgent()}},
	}
	getters["http"] = httpGetter
	getters["https"] = httpGetter

	dst := filepath.Join(tempDir, remoteFileName(u))
	client := &getter.Client{
		Ctx:     ctx,
		Src:     detected,
		Dst:     dst,
		Mode:    getter.ClientModeFile,
		Getters: getters,
	}

	f.logger.Infow("Fetching source",
		logger.FieldSource, input,
		"destination", dst,
	)
	if err := client.Get(); err != nil {
		os.RemoveAll(tempDir)
		return nil, errors.WithHint(
			errors.Mark(errors.Wrapf(err, "failed to fetch %s", input), errors.ErrSourceNotFound),
			"check the URL and network access, or download the report manually",
		)
	}

	log := f.logger
	return &Fetched{
		Path:   dst,
		Input:  input,
		Remote: true,
		cleanup: func() {
			log.Debugw("Removing downloaded source", logger.FieldPath, tempDir)
			os.RemoveAll(tempDir)
		},
	}, nil
}

// remoteFileName keeps the URL's base name so the year in it is still found
func remoteFileName(u *url.URL) string {
	name := path.Base(strings.TrimSuffix(u.Path, "/"))
	if name == "" || name == "." || name == "/" {
		return "source"
	}
	return name
}
