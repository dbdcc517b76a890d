package objstore

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFS struct{}

func (f *fakeFS) Close() error                                          { return nil }
func (f *fakeFS) List(context.Context, string) ([]string, error)        { return nil, nil }
func (f *fakeFS) OpenRead(context.Context, string) (io.ReadCloser, error) { return nil, nil }
func (f *fakeFS) OpenWrite(context.Context, string) (io.WriteCloser, error) {
	return nil, nil
}
func (f *fakeFS) Size(context.Context, string) (int64, error) { return 0, nil }
func (f *fakeFS) Remove(context.Context, string) error        { return nil }

func TestRegistry(t *testing.T) {
	Register("fake", func(context.Context) (Interface, error) {
		return &fakeFS{}, nil
	})

	fs, err := New(context.Background(), "fake://bucket/key")
	require.NoError(t, err)
	assert.IsType(t, &fakeFS{}, fs)

	assert.Panics(t, func() {
		Register("fake", func(context.Context) (Interface, error) {
			return &fakeFS{}, nil
		})
	})

	assert.NoError(t, ValidateScheme("fake://bucket/key"))
	assert.Error(t, ValidateScheme("bogus://bucket/key"))
	assert.Error(t, ValidateScheme("   "))
}

func TestNewUnknownScheme(t *testing.T) {
	_, err := New(context.Background(), "bogus://bucket/key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `scheme "bogus" not registered`)
}

func TestScheme(t *testing.T) {
	tests := []struct {
		uri      string
		expected string
	}{
		{"s3://bucket/key", "s3"},
		{"gs://bucket/key", "gs"},
		{"file:///tmp/data.tsv.gz", "file"},
		{"/tmp/data.tsv.gz", "default"},
		{"relative/path.parquet", "default"},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			assert.Equal(t, tt.expected, Scheme(tt.uri))
		})
	}
}

func TestJoin(t *testing.T) {
	tests := []struct {
		prefix   string
		name     string
		expected string
	}{
		{"s3://bucket/raw", "city.tsv.gz", "s3://bucket/raw/city.tsv.gz"},
		{"s3://bucket/raw/", "city.tsv.gz", "s3://bucket/raw/city.tsv.gz"},
		{"file:///data/clean", "/city.parquet", "file:///data/clean/city.parquet"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, Join(tt.prefix, tt.name))
		})
	}
}

func TestGlobPrefix(t *testing.T) {
	tests := []struct {
		pattern  string
		expected string
	}{
		{"raw/city*.tsv.gz", "raw/city"},
		{"raw/?.tsv", "raw/"},
		{"raw/city.tsv.gz", "raw/city.tsv.gz"},
		{"raw/[ab].tsv", "raw/"},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.expected, GlobPrefix(tt.pattern))
		})
	}
}
