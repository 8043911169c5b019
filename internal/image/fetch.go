// Package image prefetches base VM images into a local cache so that
// provisioning runs do not block on large downloads.
package image

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"vmforge/internal/logging"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// Fetcher downloads base images into a cache directory. Downloads are
// retried on transient failures and written atomically so an interrupted
// fetch never leaves a partial image behind.
type Fetcher struct {
	cacheDir string
	client   *retryablehttp.Client
	log      *zap.Logger
}

// NewFetcher creates a fetcher caching into the given directory.
func NewFetcher(cacheDir string) *Fetcher {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.Logger = nil

	return &Fetcher{
		cacheDir: cacheDir,
		client:   client,
		log:      logging.Logger(),
	}
}

// CachePath returns the local path the image for the given URL caches to.
func (f *Fetcher) CachePath(imageURL string) (string, error) {
	u, err := url.Parse(imageURL)
	if err != nil {
		return "", fmt.Errorf("invalid image URL %q: %v", imageURL, err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "", fmt.Errorf("image URL %q has no file name", imageURL)
	}
	return filepath.Join(f.cacheDir, name), nil
}

// Fetch ensures the image for the given URL is present in the cache and
// returns its local path. An already cached image is reused without any
// network traffic.
func (f *Fetcher) Fetch(ctx context.Context, imageURL string) (string, error) {
	dest, err := f.CachePath(imageURL)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(dest); err == nil {
		f.log.Info("base image already cached",
			zap.String("url", imageURL),
			zap.String("path", dest))
		return dest, nil
	}

	if err := os.MkdirAll(f.cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create image cache directory: %v", err)
	}

	f.log.Info("downloading base image",
		zap.String("url", imageURL),
		zap.String("path", dest))

	req, err := retryablehttp.NewRequestWithContext(ctx, "GET", imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build image request: %v", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download image %q: %v", imageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return "", fmt.Errorf("failed to download image %q: unexpected status %d", imageURL, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(f.cacheDir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary image file: %v", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write image %q: %v", dest, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close image file: %v", err)
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("failed to move image into cache: %v", err)
	}

	f.log.Info("base image cached",
		zap.String("url", imageURL),
		zap.String("path", dest),
		zap.Int64("size_bytes", n))
	return dest, nil
}
