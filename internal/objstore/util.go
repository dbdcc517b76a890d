package objstore

import (
	"context"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// Join appends an object name to a prefix URI, normalizing slashes.
func Join(prefix, name string) string {
	return strings.TrimRight(prefix, "/") + "/" + strings.TrimLeft(name, "/")
}

// GlobPrefix returns the literal prefix of a glob pattern, up to the first
// metacharacter. Backends use it to narrow listing before matching.
func GlobPrefix(pattern string) string {
	if idx := strings.IndexAny(pattern, "*?["); idx >= 0 {
		return pattern[:idx]
	}
	return pattern
}

// ReadAll reads the whole object at uri into memory.
func ReadAll(ctx context.Context, uri string) ([]byte, error) {
	fs, err := New(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer fs.Close()

	rc, err := fs.OpenRead(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, eris.Wrapf(err, "objstore: read %s", uri)
	}
	return data, nil
}

// WriteFrom streams r into the object at uri, replacing any existing content.
// Returns bytes written.
func WriteFrom(ctx context.Context, uri string, r io.Reader) (int64, error) {
	fs, err := New(ctx, uri)
	if err != nil {
		return 0, err
	}
	defer fs.Close()

	wc, err := fs.OpenWrite(ctx, uri)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(wc, r)
	if err != nil {
		wc.Close()
		return n, eris.Wrapf(err, "objstore: write %s", uri)
	}
	if err := wc.Close(); err != nil {
		return n, eris.Wrapf(err, "objstore: close %s", uri)
	}
	return n, nil
}
