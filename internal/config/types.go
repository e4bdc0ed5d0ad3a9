// Package config loads and validates the probe's configuration: actor
// timeouts, supervision policy, per-state lifecycle timeouts, Kafka
// defaults, storage provider selection and vault invocation settings.
package config

import "time"

// ActorSystemConfig controls controller lifecycle timings.
type ActorSystemConfig struct {
	StartupTimeout  time.Duration `yaml:"startupTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	InitTimeout     time.Duration `yaml:"initTimeout"`
}

// SupervisionConfig controls child restart policy.
type SupervisionConfig struct {
	MaxRestarts      int           `yaml:"maxRestarts"`
	RestartTimeRange time.Duration `yaml:"restartTimeRange"`
}

// TestExecutionConfig holds the per-state poison-pill timer durations.
type TestExecutionConfig struct {
	SetupStateTimeout     time.Duration `yaml:"setupStateTimeout"`
	LoadingStateTimeout   time.Duration `yaml:"loadingStateTimeout"`
	CompletedStateTimeout time.Duration `yaml:"completedStateTimeout"`
	ExceptionStateTimeout time.Duration `yaml:"exceptionStateTimeout"`
}

// KafkaConfig holds the defaults the streaming layer falls back to when a
// TopicDirective omits them.
type KafkaConfig struct {
	BootstrapServers   string `yaml:"bootstrapServers"`
	SchemaRegistryURL  string `yaml:"schemaRegistryUrl"`
	OAuthTokenEndpoint string `yaml:"oauthTokenEndpoint"`
	OAuthClientScope   string `yaml:"oauthClientScope"`
	SecurityProtocol   string `yaml:"securityProtocol"` // SASL_SSL or PLAINTEXT
}

// StorageConfig selects the object storage provider and the manifest
// filename staged alongside the Gherkin features.
type StorageConfig struct {
	Provider               string `yaml:"provider"` // local | aws | azure | gcp
	TopicDirectiveFileName string `yaml:"topicDirectiveFileName"`
}

// CucumberConfig names the glue-package roots the Gherkin bridge binds
// step definitions from.
type CucumberConfig struct {
	GluePackages []string `yaml:"gluePackages"`
}

// VaultProviderConfig is the per-provider invocation endpoint plus the
// Rosetta request-building and response-mapping config for that provider.
type VaultProviderConfig struct {
	LambdaARN           string `yaml:"lambdaArn,omitempty"`
	FunctionURL         string `yaml:"functionUrl,omitempty"`
	FunctionKeyEnv      string `yaml:"functionKeyEnv,omitempty"`
	RequestTemplatePath string `yaml:"requestTemplatePath"`
	ResponseMappingPath string `yaml:"responseMappingPath"`
}

// VaultConfig groups every vault provider's settings plus the
// request-params namespace consumed by Rosetta templates.
type VaultConfig struct {
	Provider      string                         `yaml:"provider"` // aws | azure | gcp
	RequestParams map[string]string              `yaml:"requestParams"`
	Providers     map[string]VaultProviderConfig `yaml:"providers"`
}

// ProbeConfig is the root configuration object loaded from config.yaml.
type ProbeConfig struct {
	ActorSystem   ActorSystemConfig   `yaml:"actorSystem"`
	Supervision   SupervisionConfig   `yaml:"supervision"`
	TestExecution TestExecutionConfig `yaml:"testExecution"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Storage       StorageConfig       `yaml:"storage"`
	Cucumber      CucumberConfig      `yaml:"cucumber"`
	Vault         VaultConfig         `yaml:"vault"`
}
