package vault

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testprobe/internal/config"
	"testprobe/internal/probetypes"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestPipelineFetchSecurityEndToEnd(t *testing.T) {
	dir := t.TempDir()

	var gotRequestBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := make([]byte, r.ContentLength)
		_, _ = r.Body.Read(body)
		gotRequestBody = string(body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"credentials":{"id":"QWxhZGRpbg==","secret":"c2VzYW1l"}}`))
	}))
	defer srv.Close()

	templatePath := writeFile(t, dir, "request.yaml", `
request-template:
  topic: "{{topic}}"
  role: "{{role}}"
  env: "{{$^request-params.env}}"
`)
	mappingPath := writeFile(t, dir, "mapping.yaml", `
mappings:
  - targetField: clientId
    sourcePath: $.credentials.id
    transformations:
      - type: base64Decode
  - targetField: clientSecret
    sourcePath: $.credentials.secret
    transformations:
      - type: base64Decode
`)

	cfg := config.ProbeConfig{
		Kafka: config.KafkaConfig{
			OAuthTokenEndpoint: "https://auth.example.com/token",
			OAuthClientScope:   "kafka.read",
			SecurityProtocol:   "SASL_SSL",
		},
		Vault: config.VaultConfig{
			Provider:      "gcp",
			RequestParams: map[string]string{"env": "staging"},
			Providers: map[string]config.VaultProviderConfig{
				"gcp": {
					FunctionURL:         srv.URL,
					RequestTemplatePath: templatePath,
					ResponseMappingPath: mappingPath,
				},
			},
		},
	}

	p, err := NewPipeline(context.Background(), cfg)
	require.NoError(t, err)

	directive := probetypes.TopicDirective{Topic: "orders", Role: probetypes.RoleProducer}
	sec, err := p.FetchSecurity(context.Background(), directive)
	require.NoError(t, err)

	assert.Contains(t, gotRequestBody, `"topic":"orders"`)
	assert.Contains(t, gotRequestBody, `"env":"staging"`)
	assert.Equal(t, probetypes.SecuritySASLSSL, sec.SecurityProtocol)
	assert.Contains(t, sec.JaasConfig, `oauth.client.id="Aladdin"`)
	assert.Contains(t, sec.JaasConfig, `oauth.client.secret="sesame"`)
	assert.Contains(t, sec.JaasConfig, `oauth.scope="kafka.read"`)
}

func TestNewPipelineMissingProviderEntry(t *testing.T) {
	cfg := config.ProbeConfig{Vault: config.VaultConfig{Provider: "aws"}}
	_, err := NewPipeline(context.Background(), cfg)
	assert.Error(t, err)
}
