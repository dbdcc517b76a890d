package etl

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/sells-group/market-etl/internal/objstore/local"
	_ "github.com/sells-group/market-etl/internal/objstore/s3"
)

func TestNewSessionRejectsUnknownScheme(t *testing.T) {
	_, err := NewSession("bogus://bucket/raw", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "raw storage")

	_, err = NewSession(t.TempDir(), "bogus://bucket/clean")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clean storage")
}

func TestSessionURIs(t *testing.T) {
	sess, err := NewSession("/data/raw/", "s3://warehouse/clean")
	require.NoError(t, err)
	defer sess.Close()

	assert.Equal(t, "/data/raw/city.tsv.gz", sess.RawURI("city.tsv.gz"))
	assert.Equal(t, "s3://warehouse/clean/city.parquet", sess.CleanURI("city.parquet"))
}

func TestSessionReadWriteClose(t *testing.T) {
	dir := t.TempDir()
	sess, err := NewSession(dir, dir)
	require.NoError(t, err)

	ctx := context.Background()
	uri := filepath.Join(dir, "out.txt")

	wc, err := sess.OpenWrite(ctx, uri)
	require.NoError(t, err)
	_, err = wc.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, wc.Close())

	size, err := sess.Size(ctx, uri)
	require.NoError(t, err)
	assert.Equal(t, int64(5), size)

	rc, err := sess.OpenRead(ctx, uri)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello", string(got))

	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close())
}
