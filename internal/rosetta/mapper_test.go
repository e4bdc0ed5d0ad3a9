package rosetta

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testprobe/internal/probetypes"
)

func TestApplySimpleMapping(t *testing.T) {
	resp := []byte(`{"data":{"id":"abc123","secret":"shh"}}`)
	mappings := []Mapping{
		{TargetField: "clientId", SourcePath: "$.data.id"},
		{TargetField: "clientSecret", SourcePath: "$.data.secret"},
	}

	creds, err := Apply(resp, mappings, "orders", probetypes.RoleProducer)
	require.NoError(t, err)
	assert.Equal(t, "abc123", creds.ClientID)
	assert.Equal(t, "shh", creds.ClientSecret)
}

func TestApplyChainedTransformations(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("topsecret"))
	resp := []byte(`{"secret":"` + encoded + `"}`)
	mappings := []Mapping{
		{TargetField: "clientSecret", SourcePath: "$.secret", Transformations: []Transformation{
			{Type: TransformBase64Decode},
			{Type: TransformToUpper},
		}},
	}

	creds, err := Apply(resp, mappings, "orders", probetypes.RoleProducer)
	require.NoError(t, err)
	assert.Equal(t, "TOPSECRET", creds.ClientSecret)
}

func TestApplyMissingPathReturnsMappingError(t *testing.T) {
	resp := []byte(`{"data":{}}`)
	mappings := []Mapping{{TargetField: "clientId", SourcePath: "$.data.missing"}}

	_, err := Apply(resp, mappings, "orders", probetypes.RoleProducer)
	assert.Error(t, err)
}

func TestBuildJAASIncludesScopeWhenPresent(t *testing.T) {
	creds := probetypes.VaultCredentials{ClientID: "id", ClientSecret: "secret"}
	jaas := BuildJAAS(creds, "https://token.example.com", "kafka.read")
	assert.Contains(t, jaas, `oauth.client.id="id"`)
	assert.Contains(t, jaas, `oauth.scope="kafka.read"`)
}
