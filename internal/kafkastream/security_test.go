package kafkastream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testprobe/internal/probetypes"
)

func TestParseJAASExtractsFields(t *testing.T) {
	jaas := `org.apache.kafka.common.security.oauthbearer.OAuthBearerLoginModule required oauth.client.id="abc" oauth.client.secret="xyz" oauth.token.endpoint.uri="https://auth.example.com/token" oauth.scope="kafka.read";`

	fields, err := parseJAAS(jaas)
	require.NoError(t, err)
	assert.Equal(t, "abc", fields["client.id"])
	assert.Equal(t, "xyz", fields["client.secret"])
	assert.Equal(t, "https://auth.example.com/token", fields["token.endpoint.uri"])
	assert.Equal(t, "kafka.read", fields["scope"])
}

func TestParseJAASRejectsIncomplete(t *testing.T) {
	_, err := parseJAAS(`oauth.client.id="abc";`)
	assert.Error(t, err)
}

func TestBuildClientOptsPlaintextNoop(t *testing.T) {
	opts, err := BuildClientOpts(probetypes.SecurityDirective{SecurityProtocol: probetypes.SecurityPlaintext})
	require.NoError(t, err)
	assert.Empty(t, opts)
}

func TestBuildClientOptsUnknownProtocol(t *testing.T) {
	_, err := BuildClientOpts(probetypes.SecurityDirective{SecurityProtocol: "bogus"})
	assert.Error(t, err)
}
