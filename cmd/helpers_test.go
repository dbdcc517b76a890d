//go:build !integration

package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-etl/internal/config"
)

func TestNewSession_UsesConfiguredPrefixes(t *testing.T) {
	raw := t.TempDir()
	clean := t.TempDir()
	cfg = &config.Config{Storage: config.StorageConfig{Raw: raw, Clean: clean}}

	sess, err := newSession("", "")
	require.NoError(t, err)
	defer sess.Close() //nolint:errcheck

	assert.Equal(t, raw+"/x", sess.RawURI("x"))
	assert.Equal(t, clean+"/x", sess.CleanURI("x"))
}

func TestNewSession_Overrides(t *testing.T) {
	cfg = &config.Config{Storage: config.StorageConfig{Raw: t.TempDir(), Clean: t.TempDir()}}

	rawOverride := t.TempDir()
	sess, err := newSession(rawOverride, "")
	require.NoError(t, err)
	defer sess.Close() //nolint:errcheck

	assert.Equal(t, rawOverride+"/x", sess.RawURI("x"))
}

func TestNewSession_RejectsUnknownScheme(t *testing.T) {
	cfg = &config.Config{Storage: config.StorageConfig{Raw: "ipfs://bad", Clean: t.TempDir()}}

	_, err := newSession("", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "raw storage")
}

func TestWarehousePool_NoURL(t *testing.T) {
	cfg = &config.Config{}

	_, err := warehousePool(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no database url configured")
}
