package config

import "time"

// GetDefaultConfig returns the probe's default configuration. Every
// per-state lifecycle timer defaults to 60s; the actor-system timeouts
// are shorter (10s startup, 15s shutdown, 5s init).
func GetDefaultConfig() ProbeConfig {
	return ProbeConfig{
		ActorSystem: ActorSystemConfig{
			StartupTimeout:  10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			InitTimeout:     5 * time.Second,
		},
		Supervision: SupervisionConfig{
			MaxRestarts:      3,
			RestartTimeRange: time.Minute,
		},
		TestExecution: TestExecutionConfig{
			SetupStateTimeout:     60 * time.Second,
			LoadingStateTimeout:   60 * time.Second,
			CompletedStateTimeout: 60 * time.Second,
			ExceptionStateTimeout: 60 * time.Second,
		},
		Kafka: KafkaConfig{
			SecurityProtocol: "PLAINTEXT",
		},
		Storage: StorageConfig{
			Provider:               "local",
			TopicDirectiveFileName: "test-config.yaml",
		},
		Cucumber: CucumberConfig{
			GluePackages: []string{"features/steps"},
		},
		Vault: VaultConfig{
			Provider:      "aws",
			RequestParams: map[string]string{},
			Providers:     map[string]VaultProviderConfig{},
		},
	}
}
