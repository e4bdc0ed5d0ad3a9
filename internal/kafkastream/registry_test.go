package kafkastream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryFirstWriteWins(t *testing.T) {
	r := NewRegistry()

	assert.True(t, r.Put("corr-1", RegistryEntry{Value: []byte("first")}))
	assert.False(t, r.Put("corr-1", RegistryEntry{Value: []byte("second")}))

	entry, ok := r.Get("corr-1")
	assert.True(t, ok)
	assert.Equal(t, "first", string(entry.Value))
	assert.Equal(t, 1, r.Len())
}

func TestRegistryGetMiss(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Get("nonexistent")
	assert.False(t, ok)
}
