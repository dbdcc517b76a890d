// Package objstore is an extensible object-storage abstraction. Backends
// register themselves under a URI scheme; callers address objects by URI and
// the right backend is picked transparently. Bare paths resolve to the local
// filesystem.
package objstore

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

var registry = make(map[string]func(context.Context) (Interface, error))

// Register registers a storage backend under the given scheme. Backends call
// this from init; registering the same scheme twice is a programmer error.
func Register(scheme string, factory func(context.Context) (Interface, error)) {
	if _, ok := registry[scheme]; ok {
		panic(fmt.Sprintf("objstore: scheme %q already registered", scheme))
	}
	registry[scheme] = factory
}

// New returns a backend for the given URI's scheme.
func New(ctx context.Context, uri string) (Interface, error) {
	scheme := Scheme(uri)
	factory, ok := registry[scheme]
	if !ok {
		return nil, eris.Errorf("objstore: scheme %q not registered for %s", scheme, uri)
	}
	return factory(ctx)
}

// Interface is the storage abstraction the pipeline reads and writes through.
type Interface interface {
	io.Closer

	// List expands a glob pattern to a list of object URIs.
	List(ctx context.Context, glob string) ([]string, error)

	// OpenRead opens an object for reading.
	OpenRead(ctx context.Context, uri string) (io.ReadCloser, error)

	// OpenWrite opens an object for writing. An existing object at the same
	// URI is overwritten.
	OpenWrite(ctx context.Context, uri string) (io.WriteCloser, error)

	// Size returns the object's size in bytes.
	Size(ctx context.Context, uri string) (int64, error)

	// Remove deletes the object.
	Remove(ctx context.Context, uri string) error
}

// Scheme extracts the URI scheme; URIs without one resolve to "default",
// the local filesystem.
func Scheme(uri string) string {
	if idx := strings.Index(uri, "://"); idx > 0 {
		return uri[:idx]
	}
	return "default"
}

// ValidateScheme reports whether the URI's scheme has a registered backend.
func ValidateScheme(uri string) error {
	if strings.TrimSpace(uri) == "" {
		return eris.New("objstore: empty uri")
	}
	if _, ok := registry[Scheme(uri)]; !ok {
		return eris.Errorf("objstore: scheme %q not registered", Scheme(uri))
	}
	return nil
}
