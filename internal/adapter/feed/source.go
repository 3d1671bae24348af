// Package feed provides the sources the sensor feed is fetched from.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPSource downloads the feed document from a URL.
// It implements pipeline.FeedSource.
type HTTPSource struct {
	client *resty.Client
	url    string
	logger *slog.Logger
}

// NewHTTPSource creates a source for url. Transient failures are retried
// twice before Fetch gives up.
func NewHTTPSource(url string, timeout time.Duration, logger *slog.Logger) *HTTPSource {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "text/csv, text/plain, */*")
	return &HTTPSource{client: client, url: url, logger: logger}
}

// Fetch returns the response body. Non-2xx responses are errors.
func (s *HTTPSource) Fetch(ctx context.Context) (string, error) {
	resp, err := s.client.R().SetContext(ctx).Get(s.url)
	if err != nil {
		return "", fmt.Errorf("get %s: %w", s.url, err)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("get %s: unexpected status %d", s.url, resp.StatusCode())
	}
	s.logger.Debug("feed downloaded", "url", s.url, "bytes", len(resp.Body()), "elapsed", resp.Time())
	return resp.String(), nil
}

// FileSource reads the feed from a local file on every fetch.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Fetch(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("read feed file: %w", err)
	}
	return string(data), nil
}
