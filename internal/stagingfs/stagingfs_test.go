package stagingfs

import (
	"path"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testprobe/internal/probetypes"
)

func TestNewRejectsDuplicateTestID(t *testing.T) {
	testID := probetypes.NewTestID()
	s1, err := New(testID)
	require.NoError(t, err)
	defer s1.Cleanup()

	_, err = New(testID)
	assert.Error(t, err)
}

func TestURIRoundTrip(t *testing.T) {
	testID := probetypes.NewTestID()
	s, err := New(testID)
	require.NoError(t, err)
	defer s.Cleanup()

	require.NoError(t, s.Fs().MkdirAll(s.FeaturesDir(), 0o755))
	uri := s.URI(s.FeaturesDir())

	resolved, p, err := ParsePath(uri)
	require.NoError(t, err)
	assert.Equal(t, s.FeaturesDir(), p)

	info, err := resolved.Fs().Stat(p)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestValidateManifestFailsOnEmptyFeatures(t *testing.T) {
	testID := probetypes.NewTestID()
	s, err := New(testID)
	require.NoError(t, err)
	defer s.Cleanup()

	require.NoError(t, s.Fs().MkdirAll(s.FeaturesDir(), 0o755))
	assert.Error(t, s.ValidateManifest())

	require.NoError(t, afero.WriteFile(s.Fs(), path.Join(s.FeaturesDir(), "basic.feature"), []byte("Feature: x"), 0o644))
	assert.NoError(t, s.ValidateManifest())
}
