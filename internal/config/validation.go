package config

import (
	"net"
	"net/url"
	"strconv"
	"strings"
)

var validStorageProviders = map[string]bool{"local": true, "aws": true, "azure": true, "gcp": true}
var validVaultProviders = map[string]bool{"aws": true, "azure": true, "gcp": true}
var validSecurityProtocols = map[string]bool{"SASL_SSL": true, "PLAINTEXT": true}

// Validate fails fast on missing required keys, invalid durations,
// out-of-range bootstrap-server ports, bad schema-registry URL schemes and
// cross-field contradictions. Every
// violation is accumulated before returning, per the probe's
// error-accumulation convention.
func Validate(cfg ProbeConfig) error {
	errs := NewConfigurationErrorCollection()

	if cfg.ActorSystem.StartupTimeout <= 0 {
		errs.AddError("", "actorSystem.startupTimeout", "invalid", "must be a positive duration")
	}
	if cfg.ActorSystem.ShutdownTimeout <= 0 {
		errs.AddError("", "actorSystem.shutdownTimeout", "invalid", "must be a positive duration")
	}
	if cfg.ActorSystem.InitTimeout <= 0 {
		errs.AddError("", "actorSystem.initTimeout", "invalid", "must be a positive duration")
	}

	if cfg.Supervision.MaxRestarts < 0 {
		errs.AddError("", "supervision.maxRestarts", "range", "must be >= 0")
	}
	if cfg.Supervision.RestartTimeRange <= 0 {
		errs.AddError("", "supervision.restartTimeRange", "invalid", "must be a positive duration")
	}

	if cfg.TestExecution.SetupStateTimeout <= 0 {
		errs.AddError("", "testExecution.setupStateTimeout", "invalid", "must be a positive duration")
	}
	if cfg.TestExecution.LoadingStateTimeout <= 0 {
		errs.AddError("", "testExecution.loadingStateTimeout", "invalid", "must be a positive duration")
	}
	if cfg.TestExecution.CompletedStateTimeout <= 0 {
		errs.AddError("", "testExecution.completedStateTimeout", "invalid", "must be a positive duration")
	}
	if cfg.TestExecution.ExceptionStateTimeout <= 0 {
		errs.AddError("", "testExecution.exceptionStateTimeout", "invalid", "must be a positive duration")
	}

	if cfg.Kafka.SchemaRegistryURL != "" {
		u, err := url.Parse(cfg.Kafka.SchemaRegistryURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs.AddError("", "kafka.schemaRegistryUrl", "invalid", "must be an http(s):// URL")
		}
	}
	for _, server := range strings.Split(cfg.Kafka.BootstrapServers, ",") {
		if server = strings.TrimSpace(server); server == "" {
			continue
		}
		_, portStr, err := net.SplitHostPort(server)
		port, perr := strconv.Atoi(portStr)
		if err != nil || perr != nil || port < 1 || port > 65535 {
			errs.AddError("", "kafka.bootstrapServers", "range", "port must be 1-65535 in host:port entry "+server)
		}
	}
	if !validSecurityProtocols[cfg.Kafka.SecurityProtocol] {
		errs.AddError("", "kafka.securityProtocol", "invalid", "must be SASL_SSL or PLAINTEXT")
	}
	if cfg.Kafka.SecurityProtocol == "SASL_SSL" {
		if cfg.Kafka.OAuthTokenEndpoint == "" {
			errs.AddError("", "kafka.oauthTokenEndpoint", "missing", "required when securityProtocol is SASL_SSL")
		}
	}

	if !validStorageProviders[cfg.Storage.Provider] {
		errs.AddError("", "storage.provider", "invalid", "must be one of local, aws, azure, gcp")
	}
	if strings.TrimSpace(cfg.Storage.TopicDirectiveFileName) == "" {
		errs.AddError("", "storage.topicDirectiveFileName", "missing", "must not be empty")
	}

	if !validVaultProviders[cfg.Vault.Provider] {
		errs.AddError("", "vault.provider", "invalid", "must be one of aws, azure, gcp")
	} else if _, ok := cfg.Vault.Providers[cfg.Vault.Provider]; !ok {
		errs.AddError("", "vault.providers", "missing", "no provider config for vault.provider="+cfg.Vault.Provider)
	}

	// Cross-field contradiction: the loading-state timeout must not be
	// shorter than the controller's own init window, or a test could be
	// torn down before it ever finishes spawning its children. The other
	// state timeouts are not compared against it.
	if cfg.TestExecution.LoadingStateTimeout > 0 && cfg.ActorSystem.InitTimeout > 0 &&
		cfg.TestExecution.LoadingStateTimeout < cfg.ActorSystem.InitTimeout {
		errs.AddError("", "testExecution.loadingStateTimeout", "contradiction",
			"must not be less than actorSystem.initTimeout")
	}

	return errs.AsError()
}
