package s3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURI(t *testing.T) {
	tests := []struct {
		name       string
		uri        string
		wantBucket string
		wantKey    string
		wantErr    bool
	}{
		{"bucket and key", "s3://tracker/raw/city.tsv.gz", "tracker", "raw/city.tsv.gz", false},
		{"bucket only", "s3://tracker", "tracker", "", false},
		{"wrong scheme", "gs://tracker/raw", "", "", true},
		{"no bucket", "s3://", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, key, err := parseURI(tt.uri)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBucket, bucket)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func TestMakeURI(t *testing.T) {
	assert.Equal(t, "s3://tracker/clean/city.parquet", makeURI("tracker", "clean/city.parquet"))
}
