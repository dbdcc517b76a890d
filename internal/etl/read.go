package etl

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
	"github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/reader"
)

// ReadParquet reads the whole parquet object at uri into rows of type T.
// Objects are buffered in memory; the clean tables are small enough that
// seekable buffer-backed reads beat staging temp files.
func ReadParquet[T any](ctx context.Context, sess *Session, uri string) ([]T, error) {
	pf, err := bufferFile(ctx, sess, uri)
	if err != nil {
		return nil, err
	}
	defer pf.Close()

	pr, err := reader.NewParquetReader(pf, new(T), 4)
	if err != nil {
		return nil, eris.Wrapf(err, "etl: open parquet %s", uri)
	}
	defer pr.ReadStop()

	rows := make([]T, pr.GetNumRows())
	if err := pr.Read(&rows); err != nil {
		return nil, eris.Wrapf(err, "etl: read parquet %s", uri)
	}
	return rows, nil
}

// ReadParquetSample reads up to n rows from the parquet object at uri
// without a compiled schema. Rows come back as dynamically built structs,
// ready for JSON rendering.
func ReadParquetSample(ctx context.Context, sess *Session, uri string, n int) ([]any, error) {
	pf, err := bufferFile(ctx, sess, uri)
	if err != nil {
		return nil, err
	}
	defer pf.Close()

	pr, err := reader.NewParquetReader(pf, nil, 4)
	if err != nil {
		return nil, eris.Wrapf(err, "etl: open parquet %s", uri)
	}
	defer pr.ReadStop()

	rows, err := pr.ReadByNumber(n)
	if err != nil {
		return nil, eris.Wrapf(err, "etl: sample parquet %s", uri)
	}
	return rows, nil
}

func bufferFile(ctx context.Context, sess *Session, uri string) (*buffer.BufferFile, error) {
	rc, err := sess.OpenRead(ctx, uri)
	if err != nil {
		return nil, eris.Wrapf(err, "etl: open %s", uri)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, eris.Wrapf(err, "etl: read %s", uri)
	}
	return buffer.NewBufferFileFromBytes(data), nil
}
