// Package local is the local-filesystem object storage backend. It serves
// both bare paths and file:// URIs.
package local

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sells-group/market-etl/internal/objstore"
)

func init() {
	objstore.Register("default", New)
	objstore.Register("file", New)
}

type fs struct{}

// New creates a local filesystem backend.
func New(_ context.Context) (objstore.Interface, error) {
	return &fs{}, nil
}

func (f *fs) Close() error {
	return nil
}

// localPath strips the file:// prefix so both URI and bare-path forms work.
func localPath(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}

func (f *fs) List(_ context.Context, glob string) ([]string, error) {
	matches, err := filepath.Glob(localPath(glob))
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(glob, "file://") {
		for i, m := range matches {
			matches[i] = "file://" + m
		}
	}
	return matches, nil
}

func (f *fs) OpenRead(_ context.Context, uri string) (io.ReadCloser, error) {
	return os.Open(localPath(uri))
}

func (f *fs) OpenWrite(_ context.Context, uri string) (io.WriteCloser, error) {
	path := localPath(uri)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
}

func (f *fs) Size(_ context.Context, uri string) (int64, error) {
	info, err := os.Stat(localPath(uri))
	if err != nil {
		return -1, err
	}
	return info.Size(), nil
}

func (f *fs) Remove(_ context.Context, uri string) error {
	return os.Remove(localPath(uri))
}
