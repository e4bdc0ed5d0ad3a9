package kafkastream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"testprobe/internal/probeerrors"
)

// schemaRegistryResponse is the confluent-compatible schema-registry
// "get schema by id" response shape: GET /schemas/ids/{id}.
type schemaRegistryResponse struct {
	Schema string `json:"schema"`
}

// SchemaRegistryClient fetches and caches schemas by id from a
// confluent-compatible schema registry (spec.md §4.3.2 step 2). Lookups
// are cached for the client's lifetime since a schema id is immutable
// once registered.
type SchemaRegistryClient struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.Mutex
	cache map[uint32]string
}

// NewSchemaRegistryClient builds a client against baseURL (kafka.schema-registry-url).
func NewSchemaRegistryClient(baseURL string) *SchemaRegistryClient {
	return &SchemaRegistryClient{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		cache:      map[uint32]string{},
	}
}

// Schema returns the registered schema text for id, fetching it over HTTP
// on first use and serving every later call from cache. A context
// deadline exceeded while waiting on the registry is reported as
// probeerrors.KindTimeout, distinct from every other registry failure
// (probeerrors.KindConsumer), per spec.md §4.3.2 step 2's "all subclasses
// of decoder exceptions ... are mapped to Failure".
func (c *SchemaRegistryClient) Schema(ctx context.Context, id uint32) (string, error) {
	c.mu.Lock()
	if schema, ok := c.cache[id]; ok {
		c.mu.Unlock()
		return schema, nil
	}
	c.mu.Unlock()

	url := fmt.Sprintf("%s/schemas/ids/%d", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", probeerrors.Wrap(probeerrors.KindConsumer, fmt.Errorf("building schema-registry request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", probeerrors.Wrap(probeerrors.KindTimeout, fmt.Errorf("schema-registry lookup for schema id %d: %w", id, ctx.Err()))
		}
		return "", probeerrors.Wrap(probeerrors.KindConsumer, fmt.Errorf("schema-registry lookup for schema id %d: %w", id, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", probeerrors.New(probeerrors.KindConsumer, "schema-registry returned status %d for schema id %d", resp.StatusCode, id)
	}

	var body schemaRegistryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", probeerrors.Wrap(probeerrors.KindConsumer, fmt.Errorf("decoding schema-registry response for schema id %d: %w", id, err))
	}

	c.mu.Lock()
	c.cache[id] = body.Schema
	c.mu.Unlock()
	return body.Schema, nil
}
