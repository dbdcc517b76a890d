// Package fetcher downloads published market-tracker extracts over HTTP
// and FTP, with retry, rate limiting, and conditional requests.
package fetcher

import (
	"context"
	"io"
	"strings"
)

// Fetcher defines the interface for downloading remote extracts.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// HeadETag returns the extract's current ETag, or "" when the server
	// does not publish one.
	HeadETag(ctx context.Context, url string) (string, error)

	// DownloadIfChanged fetches the URL only if the ETag has changed.
	// Returns (body, newETag, changed, error). If not changed, body is nil
	// and changed is false.
	DownloadIfChanged(ctx context.Context, url string, etag string) (io.ReadCloser, string, bool, error)
}

// New returns a fetcher that dispatches by URL scheme: ftp URLs go to the
// FTP fetcher, everything else over HTTP.
func New(opts HTTPOptions) Fetcher {
	return &dispatcher{
		http: NewHTTPFetcher(opts),
		ftp:  NewFTPFetcher(FTPOptions{Timeout: opts.Timeout}),
	}
}

type dispatcher struct {
	http *HTTPFetcher
	ftp  *FTPFetcher
}

func (d *dispatcher) pick(url string) Fetcher {
	if strings.HasPrefix(url, "ftp://") {
		return d.ftp
	}
	return d.http
}

func (d *dispatcher) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	return d.pick(url).Download(ctx, url)
}

func (d *dispatcher) HeadETag(ctx context.Context, url string) (string, error) {
	return d.pick(url).HeadETag(ctx, url)
}

func (d *dispatcher) DownloadIfChanged(ctx context.Context, url string, etag string) (io.ReadCloser, string, bool, error) {
	return d.pick(url).DownloadIfChanged(ctx, url, etag)
}
