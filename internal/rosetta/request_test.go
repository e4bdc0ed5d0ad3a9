package rosetta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testprobe/internal/probetypes"
)

func TestRequestBuilderResolvesAllPlaceholderKinds(t *testing.T) {
	b := NewRequestBuilder(map[string]string{"env": "staging"})
	directive := probetypes.TopicDirective{
		Topic:           "orders",
		Role:            probetypes.RoleProducer,
		ClientPrincipal: "svc-orders",
		Metadata:        map[string]string{"region": "us-east-1"},
	}

	out, err := b.Build(`{"topic":"{{topic}}","principal":"{{clientPrincipal}}","region":"{{'region'}}","env":"{{$^request-params.env}}"}`, directive)
	require.NoError(t, err)
	assert.Contains(t, out, `"topic":"orders"`)
	assert.Contains(t, out, `"principal":"svc-orders"`)
	assert.Contains(t, out, `"region":"us-east-1"`)
	assert.Contains(t, out, `"env":"staging"`)
}

func TestRequestBuilderRejectsPathOutsideRequestParamsNamespace(t *testing.T) {
	b := NewRequestBuilder(map[string]string{"env": "staging"})
	directive := probetypes.TopicDirective{Topic: "orders"}

	_, err := b.Build(`{"x":"{{$^other.env}}"}`, directive)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "request-params")
}

func TestRequestBuilderAccumulatesMultipleMissingMetadataKeys(t *testing.T) {
	b := NewRequestBuilder(nil)
	directive := probetypes.TopicDirective{Topic: "orders", Metadata: map[string]string{}}

	_, err := b.Build(`{"a":"{{'foo'}}","b":"{{'bar'}}"}`, directive)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "foo")
	assert.Contains(t, err.Error(), "bar")
}

func TestRequestBuilderRejectsUnknownBuiltinField(t *testing.T) {
	b := NewRequestBuilder(nil)
	directive := probetypes.TopicDirective{Topic: "orders"}

	_, err := b.Build(`{"a":"{{bootstrapServers}}"}`, directive)
	require.Error(t, err)
}
