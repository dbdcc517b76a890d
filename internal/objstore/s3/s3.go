// Package s3 is the AWS S3 object storage backend.
package s3

import (
	"context"
	"io"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rotisserie/eris"

	"github.com/sells-group/market-etl/internal/objstore"
)

func init() {
	objstore.Register("s3", New)
}

type fs struct {
	client *s3.Client
}

// New creates an S3 backend using the default AWS configuration chain
// (environment, shared config, instance role).
func New(ctx context.Context) (objstore.Interface, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "s3: load aws config")
	}
	return &fs{client: s3.NewFromConfig(cfg)}, nil
}

func (f *fs) Close() error {
	return nil
}

func (f *fs) List(ctx context.Context, glob string) ([]string, error) {
	bucket, keyPattern, err := parseURI(glob)
	if err != nil {
		return nil, err
	}

	params := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(objstore.GlobPrefix(keyPattern)),
	}
	paginator := s3.NewListObjectsV2Paginator(f.client, params)

	var uris []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, eris.Wrapf(err, "s3: list %s", glob)
		}
		for _, object := range page.Contents {
			key := aws.ToString(object.Key)
			match, err := filepath.Match(keyPattern, key)
			if err != nil {
				return nil, eris.Wrapf(err, "s3: bad key pattern %s", keyPattern)
			}
			if match {
				uris = append(uris, makeURI(bucket, key))
			}
		}
	}
	return uris, nil
}

func (f *fs) OpenRead(ctx context.Context, uri string) (io.ReadCloser, error) {
	bucket, key, err := parseURI(uri)
	if err != nil {
		return nil, err
	}

	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, eris.Wrapf(err, "s3: get %s", uri)
	}
	return out.Body, nil
}

func (f *fs) OpenWrite(ctx context.Context, uri string) (io.WriteCloser, error) {
	bucket, key, err := parseURI(uri)
	if err != nil {
		return nil, err
	}
	return newWriter(ctx, f.client, bucket, key), nil
}

func (f *fs) Size(ctx context.Context, uri string) (int64, error) {
	bucket, key, err := parseURI(uri)
	if err != nil {
		return -1, err
	}

	out, err := f.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return -1, eris.Wrapf(err, "s3: head %s", uri)
	}
	if out.ContentLength == nil {
		return -1, eris.Errorf("s3: no content length for %s", uri)
	}
	return *out.ContentLength, nil
}

func (f *fs) Remove(ctx context.Context, uri string) error {
	bucket, key, err := parseURI(uri)
	if err != nil {
		return err
	}

	if _, err := f.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		return eris.Wrapf(err, "s3: delete %s", uri)
	}
	return nil
}
