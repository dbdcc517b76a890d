// Package etl implements the transformation step for market-tracker
// extracts: load a tab-separated gzip extract, project a fixed column
// subset, drop incomplete rows, derive the period year and month name, and
// write the result as a compressed columnar table. Every step is
// deterministic and each run fully overwrites its destination, so re-running
// on the same input reproduces the same output.
package etl

import (
	"context"
	"io"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-etl/internal/objstore"
)

// Session owns the storage handles for one pipeline execution. It is
// acquired at run start and released with Close on every exit path; nothing
// in this package holds ambient global state.
type Session struct {
	rawPrefix   string
	cleanPrefix string

	mu       sync.Mutex
	backends map[string]objstore.Interface
}

// NewSession validates both storage prefixes and returns a session bound to
// them. The caller must Close it.
func NewSession(rawPrefix, cleanPrefix string) (*Session, error) {
	if err := objstore.ValidateScheme(rawPrefix); err != nil {
		return nil, eris.Wrap(err, "etl: raw storage")
	}
	if err := objstore.ValidateScheme(cleanPrefix); err != nil {
		return nil, eris.Wrap(err, "etl: clean storage")
	}
	return &Session{
		rawPrefix:   rawPrefix,
		cleanPrefix: cleanPrefix,
		backends:    make(map[string]objstore.Interface),
	}, nil
}

// RawURI resolves an object name under the raw storage prefix.
func (s *Session) RawURI(name string) string {
	return objstore.Join(s.rawPrefix, name)
}

// CleanURI resolves an object name under the clean storage prefix.
func (s *Session) CleanURI(name string) string {
	return objstore.Join(s.cleanPrefix, name)
}

// storage returns the backend for the URI's scheme, opening it on first use.
// Backends stay open for the life of the session.
func (s *Session) storage(ctx context.Context, uri string) (objstore.Interface, error) {
	scheme := objstore.Scheme(uri)

	s.mu.Lock()
	defer s.mu.Unlock()
	if fs, ok := s.backends[scheme]; ok {
		return fs, nil
	}

	fs, err := objstore.New(ctx, uri)
	if err != nil {
		return nil, err
	}
	s.backends[scheme] = fs
	return fs, nil
}

// OpenRead opens the object at uri for reading.
func (s *Session) OpenRead(ctx context.Context, uri string) (io.ReadCloser, error) {
	fs, err := s.storage(ctx, uri)
	if err != nil {
		return nil, err
	}
	return fs.OpenRead(ctx, uri)
}

// OpenWrite opens the object at uri for writing, replacing existing content.
func (s *Session) OpenWrite(ctx context.Context, uri string) (io.WriteCloser, error) {
	fs, err := s.storage(ctx, uri)
	if err != nil {
		return nil, err
	}
	return fs.OpenWrite(ctx, uri)
}

// Size returns the size of the object at uri.
func (s *Session) Size(ctx context.Context, uri string) (int64, error) {
	fs, err := s.storage(ctx, uri)
	if err != nil {
		return -1, err
	}
	return fs.Size(ctx, uri)
}

// Close releases every storage handle the session opened.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for scheme, fs := range s.backends {
		if err := fs.Close(); err != nil && firstErr == nil {
			firstErr = eris.Wrapf(err, "etl: close %s storage", scheme)
		}
		delete(s.backends, scheme)
	}
	return firstErr
}
