package etl

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// WriteParquet writes rows to uri as snappy-compressed parquet, replacing
// any existing object. The row type's parquet tags define the output schema,
// which makes the table self-describing.
func WriteParquet[T any](ctx context.Context, sess *Session, uri string, rows []T) error {
	wc, err := sess.OpenWrite(ctx, uri)
	if err != nil {
		return eris.Wrapf(err, "etl: open destination %s", uri)
	}

	pw, err := writer.NewParquetWriterFromWriter(wc, new(T), 4)
	if err != nil {
		wc.Close()
		return eris.Wrapf(err, "etl: create parquet writer for %s", uri)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i := range rows {
		if err := pw.Write(rows[i]); err != nil {
			wc.Close()
			return eris.Wrapf(err, "etl: write parquet row to %s", uri)
		}
	}

	if err := pw.WriteStop(); err != nil {
		wc.Close()
		return eris.Wrapf(err, "etl: finalize parquet %s", uri)
	}
	if err := wc.Close(); err != nil {
		return eris.Wrapf(err, "etl: close destination %s", uri)
	}
	return nil
}
