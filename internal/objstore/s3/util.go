package s3

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

// parseURI splits "s3://bucket/key" into (bucket, key).
func parseURI(uri string) (string, string, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return "", "", eris.Wrapf(err, "s3: parse uri %s", uri)
	}
	if parsed.Scheme != "s3" {
		return "", "", eris.Errorf("s3: scheme must be s3, got %q", parsed.Scheme)
	}

	bucket := parsed.Host
	if bucket == "" {
		return "", "", eris.Errorf("s3: no bucket in %s", uri)
	}

	key := strings.TrimPrefix(parsed.Path, "/")
	return bucket, key, nil
}

// makeURI builds "s3://bucket/key".
func makeURI(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}
