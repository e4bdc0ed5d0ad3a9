package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"testprobe/internal/config"
	"testprobe/internal/probeerrors"
	"testprobe/internal/probetypes"
	"testprobe/internal/rosetta"
)

// Pipeline runs the three-stage credential pipeline (spec.md §4.4) for a
// single configured vault provider: build the request from a
// TopicDirective, invoke the vault function, then map its response into a
// SecurityDirective.
type Pipeline struct {
	provider       string
	invoker        Invoker
	requestBuilder *rosetta.RequestBuilder
	templateJSON   string
	mappings       []rosetta.Mapping
	tokenEndpoint  string
	scope          string
	protocol       probetypes.SecurityProtocol
}

// NewPipeline loads the provider's request template and response mapping
// files and constructs an Invoker, producing a ready-to-run Pipeline.
func NewPipeline(ctx context.Context, cfg config.ProbeConfig) (*Pipeline, error) {
	providerName := cfg.Vault.Provider
	providerCfg, ok := cfg.Vault.Providers[providerName]
	if !ok {
		return nil, probeerrors.New(probeerrors.KindConfiguration, "vault.providers has no entry for provider %q", providerName)
	}

	invoker, err := NewInvoker(ctx, providerName, providerCfg)
	if err != nil {
		return nil, err
	}

	templateJSON, err := loadRequestTemplate(providerCfg.RequestTemplatePath)
	if err != nil {
		return nil, err
	}

	mappings, err := loadMappings(providerCfg.ResponseMappingPath)
	if err != nil {
		return nil, err
	}

	protocol := probetypes.SecurityProtocol(cfg.Kafka.SecurityProtocol)

	return &Pipeline{
		provider:       providerName,
		invoker:        invoker,
		requestBuilder: rosetta.NewRequestBuilder(cfg.Vault.RequestParams),
		templateJSON:   templateJSON,
		mappings:       mappings,
		tokenEndpoint:  cfg.Kafka.OAuthTokenEndpoint,
		scope:          cfg.Kafka.OAuthClientScope,
		protocol:       protocol,
	}, nil
}

// FetchSecurity runs the pipeline end to end for one TopicDirective,
// matching the probectx.FetchSecurityFunc shape.
func (p *Pipeline) FetchSecurity(ctx context.Context, directive probetypes.TopicDirective) (probetypes.SecurityDirective, error) {
	requestBody, err := p.requestBuilder.Build(p.templateJSON, directive)
	if err != nil {
		return probetypes.SecurityDirective{}, err
	}

	responseJSON, err := p.invoker.Invoke(ctx, requestBody)
	if err != nil {
		return probetypes.SecurityDirective{}, err
	}

	creds, err := rosetta.Apply(responseJSON, p.mappings, directive.Topic, directive.Role)
	if err != nil {
		return probetypes.SecurityDirective{}, err
	}

	return rosetta.BuildSecurityDirective(creds, p.protocol, p.tokenEndpoint, p.scope), nil
}

// loadRequestTemplate reads a YAML request-template file and renders it
// back out as JSON text, preserving any {{...}} placeholders embedded in
// its string values for RequestBuilder.Build to resolve.
func loadRequestTemplate(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", probeerrors.Wrap(probeerrors.KindConfiguration, fmt.Errorf("reading request template %s: %w", path, err))
	}

	var mf rosetta.MappingFile
	if err := yaml.Unmarshal(raw, &mf); err != nil {
		return "", probeerrors.Wrap(probeerrors.KindConfiguration, fmt.Errorf("parsing request template %s: %w", path, err))
	}

	body, err := json.Marshal(mf.RequestTemplate)
	if err != nil {
		return "", probeerrors.Wrap(probeerrors.KindInternal, err)
	}
	return string(body), nil
}

func loadMappings(path string) ([]rosetta.Mapping, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, probeerrors.Wrap(probeerrors.KindConfiguration, fmt.Errorf("reading response mapping %s: %w", path, err))
	}

	var mf rosetta.MappingFile
	if err := yaml.Unmarshal(raw, &mf); err != nil {
		return nil, probeerrors.Wrap(probeerrors.KindConfiguration, fmt.Errorf("parsing response mapping %s: %w", path, err))
	}
	return mf.Mappings, nil
}
