package gherkin

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeRejectsMissingFeaturesDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	e := NewExecutor()

	err := e.Initialize("/t1", fs)
	assert.Error(t, err)
}

func TestInitializeRejectsEmptyFeaturesDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/t1/features", 0o755))

	e := NewExecutor()
	err := e.Initialize("/t1", fs)
	assert.Error(t, err)
}

func TestInitializeAcceptsStagedFeature(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/t1/features/basic.feature", []byte("Feature: x\n"), 0o644))

	e := NewExecutor()
	err := e.Initialize("/t1", fs)
	assert.NoError(t, err)
}
