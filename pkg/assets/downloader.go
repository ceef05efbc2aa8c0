// Package assets implements the idempotent image download pipeline.
// Remote images are streamed into a staging directory and atomically
// renamed into the persistent download directory, so a destination path
// either holds a complete file or nothing.
package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ajitpratap0/wpbridge/pkg/config"
	"github.com/ajitpratap0/wpbridge/pkg/errors"
	"github.com/ajitpratap0/wpbridge/pkg/metrics"
)

// Downloader ensures exactly one local copy of each requested asset.
// Concurrent requests for the same destination collapse into a single
// in-flight transfer; repeated requests for an existing file are no-ops.
type Downloader struct {
	downloadDir string
	stagingDir  string
	httpClient  *http.Client
	group       singleflight.Group
	seq         atomic.Int64
	logger      *zap.Logger
}

// NewDownloader creates a downloader and provisions both directories.
func NewDownloader(cfg *config.Config, logger *zap.Logger) (*Downloader, error) {
	for _, dir := range []string{cfg.Assets.DownloadDir, cfg.Assets.StagingDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create asset directory").
				WithDetail("dir", dir)
		}
	}

	return &Downloader{
		downloadDir: cfg.Assets.DownloadDir,
		stagingDir:  cfg.Assets.StagingDir,
		httpClient: &http.Client{
			Timeout: cfg.Timeouts.Request,
		},
		logger: logger.With(zap.String("component", "downloader")),
	}, nil
}

// LocalPath returns the deterministic destination path for a file name:
// the slugified base name with the original extension preserved, under
// the download directory. Two remote files whose names slugify to the
// same value share a destination; the last writer wins.
func (d *Downloader) LocalPath(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	return filepath.Join(d.downloadDir, slug.Make(base)+ext)
}

// FileNameFromURL extracts the file name component of a remote URL.
func FileNameFromURL(remoteURL string) string {
	u, err := url.Parse(remoteURL)
	if err != nil {
		return path.Base(remoteURL)
	}
	return path.Base(u.Path)
}

// EnsureDownloaded guarantees the asset exists locally and returns its
// path. An existing destination file satisfies the request without a
// transfer. Failures are surfaced to this caller only; nothing is
// retried and no partial file is left behind.
func (d *Downloader) EnsureDownloaded(ctx context.Context, remoteURL, fileName string) (string, error) {
	dest := d.LocalPath(fileName)

	if _, err := os.Stat(dest); err == nil {
		metrics.AssetDownloads.WithLabelValues("cached").Inc()
		return dest, nil
	}

	// Concurrent callers for the same destination share one transfer.
	_, err, shared := d.group.Do(dest, func() (interface{}, error) {
		// A sibling call may have completed between the outer stat and
		// entering the group.
		if _, err := os.Stat(dest); err == nil {
			return nil, nil
		}
		return nil, d.download(ctx, remoteURL, dest)
	})
	if shared {
		metrics.AssetDownloads.WithLabelValues("deduped").Inc()
	}
	if err != nil {
		return "", err
	}

	return dest, nil
}

// download streams the remote resource through a uniquely named staging
// file and renames it into place on success.
func (d *Downloader) download(ctx context.Context, remoteURL, dest string) error {
	metrics.AssetDownloads.WithLabelValues("started").Inc()
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remoteURL, nil)
	if err != nil {
		metrics.AssetDownloads.WithLabelValues("failed").Inc()
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to create download request").
			WithDetail("url", remoteURL)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		metrics.AssetDownloads.WithLabelValues("failed").Inc()
		return errors.Wrap(err, errors.ErrorTypeConnection, "download request failed").
			WithDetail("url", remoteURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.AssetDownloads.WithLabelValues("failed").Inc()
		return errors.Newf(errors.ErrorTypeConnection, "download returned status %d", resp.StatusCode).
			WithDetail("url", remoteURL)
	}

	staging := filepath.Join(d.stagingDir, fmt.Sprintf("wpbridge-%d.tmp", d.seq.Add(1)))
	file, err := os.Create(staging) //nolint:gosec // G304: staging name is downloader-generated
	if err != nil {
		metrics.AssetDownloads.WithLabelValues("failed").Inc()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create staging file").
			WithDetail("staging", staging)
	}

	written, err := io.Copy(file, resp.Body)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(staging)
		metrics.AssetDownloads.WithLabelValues("failed").Inc()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write staging file").
			WithDetail("url", remoteURL).
			WithDetail("staging", staging)
	}

	// Rename is atomic: concurrent transfers for a colliding destination
	// waste bytes but cannot corrupt the file.
	if err := os.Rename(staging, dest); err != nil {
		os.Remove(staging)
		metrics.AssetDownloads.WithLabelValues("failed").Inc()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to move staging file into place").
			WithDetail("dest", dest)
	}

	metrics.AssetDownloads.WithLabelValues("completed").Inc()
	metrics.AssetBytes.Add(float64(written))

	d.logger.Debug("asset downloaded",
		zap.String("url", remoteURL),
		zap.String("dest", dest),
		zap.Int64("bytes", written),
		zap.Duration("elapsed", time.Since(start)))

	return nil
}
