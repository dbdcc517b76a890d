// Package gcs is the Google Cloud Storage object storage backend.
package gcs

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/rotisserie/eris"
	"google.golang.org/api/iterator"

	"github.com/sells-group/market-etl/internal/objstore"
)

func init() {
	objstore.Register("gs", New)
}

type fs struct {
	client *storage.Client
}

// New creates a GCS backend using application default credentials.
func New(ctx context.Context) (objstore.Interface, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "gcs: create client")
	}
	return &fs{client: client}, nil
}

func (f *fs) Close() error {
	return f.client.Close()
}

func (f *fs) List(ctx context.Context, glob string) ([]string, error) {
	bucket, object, err := parseURI(glob)
	if err != nil {
		return nil, err
	}

	it := f.client.Bucket(bucket).Objects(ctx, &storage.Query{
		Prefix: objstore.GlobPrefix(object),
	})

	var uris []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "gcs: list %s", glob)
		}
		match, err := filepath.Match(object, attrs.Name)
		if err != nil {
			return nil, eris.Wrapf(err, "gcs: bad object pattern %s", object)
		}
		if match {
			uris = append(uris, makeURI(bucket, attrs.Name))
		}
	}
	return uris, nil
}

func (f *fs) OpenRead(ctx context.Context, uri string) (io.ReadCloser, error) {
	bucket, object, err := parseURI(uri)
	if err != nil {
		return nil, err
	}

	r, err := f.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, eris.Wrapf(err, "gcs: open %s", uri)
	}
	return r, nil
}

func (f *fs) OpenWrite(ctx context.Context, uri string) (io.WriteCloser, error) {
	bucket, object, err := parseURI(uri)
	if err != nil {
		return nil, err
	}
	return f.client.Bucket(bucket).Object(object).NewWriter(ctx), nil
}

func (f *fs) Size(ctx context.Context, uri string) (int64, error) {
	bucket, object, err := parseURI(uri)
	if err != nil {
		return -1, err
	}

	attrs, err := f.client.Bucket(bucket).Object(object).Attrs(ctx)
	if err != nil {
		return -1, eris.Wrapf(err, "gcs: attrs %s", uri)
	}
	return attrs.Size, nil
}

func (f *fs) Remove(ctx context.Context, uri string) error {
	bucket, object, err := parseURI(uri)
	if err != nil {
		return err
	}

	if err := f.client.Bucket(bucket).Object(object).Delete(ctx); err != nil {
		return eris.Wrapf(err, "gcs: delete %s", uri)
	}
	return nil
}

// parseURI splits "gs://bucket/object" into (bucket, object).
func parseURI(uri string) (string, string, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return "", "", eris.Wrapf(err, "gcs: parse uri %s", uri)
	}
	if parsed.Scheme != "gs" {
		return "", "", eris.Errorf("gcs: scheme must be gs, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", "", eris.Errorf("gcs: no bucket in %s", uri)
	}
	return parsed.Host, strings.TrimPrefix(parsed.Path, "/"), nil
}

func makeURI(bucket, object string) string {
	return fmt.Sprintf("gs://%s/%s", bucket, object)
}
