package objectstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalProviderRoundTrip(t *testing.T) {
	srcDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(srcDir, "features"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "features", "basic.feature"), []byte("Feature: x"), 0o644))

	fs := afero.NewMemMapFs()
	p := &LocalProvider{}

	require.NoError(t, p.FetchAll(context.Background(), srcDir, fs, "/t1"))
	data, err := afero.ReadFile(fs, "/t1/features/basic.feature")
	require.NoError(t, err)
	assert.Equal(t, "Feature: x", string(data))

	require.NoError(t, afero.WriteFile(fs, "/t1/evidence/result.json", []byte(`{"ok":true}`), 0o644))
	destDir := t.TempDir()
	require.NoError(t, p.UploadAll(context.Background(), destDir, fs, "/t1/evidence"))

	uploaded, err := os.ReadFile(filepath.Join(destDir, "result.json"))
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(uploaded))
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), "unknown")
	assert.Error(t, err)
}
