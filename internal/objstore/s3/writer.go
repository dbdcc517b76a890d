package s3

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// writer streams an object to S3 through a pipe feeding a background
// multipart upload. The object becomes visible only after Close; a re-upload
// to the same key replaces the previous object, which is what gives the
// pipeline its full-overwrite write semantics on S3.
type writer struct {
	ctx      context.Context
	client   *s3.Client
	bucket   string
	key      string
	done     chan struct{}
	isOpened bool
	pw       *io.PipeWriter
	err      error
}

func newWriter(ctx context.Context, client *s3.Client, bucket, key string) *writer {
	return &writer{
		ctx:    ctx,
		client: client,
		bucket: bucket,
		key:    key,
		done:   make(chan struct{}),
	}
}

func (w *writer) Write(p []byte) (int, error) {
	if !w.isOpened {
		w.open()
	}
	return w.pw.Write(p)
}

// Close flushes the pipe and waits for the upload to finish.
func (w *writer) Close() error {
	if !w.isOpened {
		w.open()
	}
	if err := w.pw.Close(); err != nil {
		return err
	}
	<-w.done
	return w.err
}

func (w *writer) open() {
	pr, pw := io.Pipe()
	w.pw = pw

	go func() {
		defer close(w.done)

		uploader := manager.NewUploader(w.client)
		_, err := uploader.Upload(w.ctx, &s3.PutObjectInput{
			Bucket: aws.String(w.bucket),
			Key:    aws.String(w.key),
			Body:   io.Reader(pr),
		})
		if err != nil {
			w.err = err
			pr.CloseWithError(err)
		}
	}()

	w.isOpened = true
}
