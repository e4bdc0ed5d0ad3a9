package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Vault.Providers = map[string]VaultProviderConfig{"aws": {LambdaARN: "arn:aws:lambda:us-east-1:1:function:vault"}}
	assert.NoError(t, Validate(cfg))
}

func TestValidateRejectsBadSchemaRegistryScheme(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Vault.Providers = map[string]VaultProviderConfig{"aws": {}}
	cfg.Kafka.SchemaRegistryURL = "ftp://example.com"

	err := Validate(cfg)
	require := assert.New(t)
	require.Error(err)
	cec, ok := err.(*ConfigurationErrorCollection)
	require.True(ok)
	found := false
	for _, e := range cec.Errors {
		if e.Field == "kafka.schemaRegistryUrl" {
			found = true
		}
	}
	require.True(found)
}

func TestValidateRequiresTokenEndpointForSASL(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Vault.Providers = map[string]VaultProviderConfig{"aws": {}}
	cfg.Kafka.SecurityProtocol = "SASL_SSL"

	err := Validate(cfg)
	assert.Error(t, err)
}

func TestValidateCrossFieldContradiction(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Vault.Providers = map[string]VaultProviderConfig{"aws": {}}
	cfg.ActorSystem.InitTimeout = cfg.TestExecution.LoadingStateTimeout + 1
	assert.Error(t, Validate(cfg))
}
