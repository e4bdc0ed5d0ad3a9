package rosetta

import (
	"fmt"

	"testprobe/internal/probetypes"
)

// BuildJAAS constructs the OAUTHBEARER login-module JAAS string from
// resolved VaultCredentials and the framework's token-endpoint/scope
// config. tokenEndpoint and scope always come from configuration, never
// from the vault response (spec.md §4.4 step 3).
func BuildJAAS(creds probetypes.VaultCredentials, tokenEndpoint, scope string) string {
	scopeClause := ""
	if scope != "" {
		scopeClause = fmt.Sprintf(` oauth.scope="%s"`, scope)
	}
	return fmt.Sprintf(
		`org.apache.kafka.common.security.oauthbearer.OAuthBearerLoginModule required oauth.client.id="%s" oauth.client.secret="%s" oauth.token.endpoint.uri="%s"%s;`,
		creds.ClientID, creds.ClientSecret, tokenEndpoint, scopeClause,
	)
}

// BuildSecurityDirective combines a resolved JAAS string with the fixed
// protocol for the given topic/role into a SecurityDirective.
func BuildSecurityDirective(creds probetypes.VaultCredentials, protocol probetypes.SecurityProtocol, tokenEndpoint, scope string) probetypes.SecurityDirective {
	return probetypes.SecurityDirective{
		Topic:            creds.Topic,
		Role:             creds.Role,
		SecurityProtocol: protocol,
		JaasConfig:       BuildJAAS(creds, tokenEndpoint, scope),
	}
}
