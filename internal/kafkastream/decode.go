// Package kafkastream implements the Kafka streaming layer (spec.md §4.3):
// a producer stream with bounded-queue backpressure, an at-least-once
// consumer stream with poison-pill tolerance and event filtering, and the
// per-consumer event registry the Gherkin DSL reads from.
package kafkastream

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"testprobe/internal/probeerrors"
	"testprobe/internal/probetypes"
)

// confluentPrefixLen is the schema-registry wire-format framing every
// record key carries: one magic byte plus a 4-byte big-endian schema ID.
const (
	confluentMagicByte = 0x0
	confluentPrefixLen = 5
)

// cloudEventOrErr bundles a decode attempt's outcome for passage through
// the dedicated decode pool's reply channel.
type cloudEventOrErr struct {
	event probetypes.CloudEvent
	err   error
}

// schemaID extracts the big-endian schema id from a confluent-framed key.
func schemaIDOf(key []byte) (uint32, error) {
	if len(key) < confluentPrefixLen || key[0] != confluentMagicByte {
		return 0, probeerrors.New(probeerrors.KindConsumer,
			"key is not schema-registry framed: missing magic byte or schema id prefix")
	}
	return binary.BigEndian.Uint32(key[1:confluentPrefixLen]), nil
}

// decodeCloudEventKey is the full deserialize stage (spec.md §4.3.2 step
// 2): resolve the record key's schema id against the schema registry
// (blocking, hence run only on the dedicated decodePool worker), then
// unmarshal the framed payload into a CloudEvent. Every failure subclass
// - framing, registry timeout, registry error, malformed payload - is
// returned as an error rather than panicking, so the caller can treat the
// record as a poison pill.
func decodeCloudEventKey(ctx context.Context, key []byte, registry *SchemaRegistryClient, timeout time.Duration) (probetypes.CloudEvent, error) {
	id, err := schemaIDOf(key)
	if err != nil {
		return probetypes.CloudEvent{}, err
	}

	lookupCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if _, err := registry.Schema(lookupCtx, id); err != nil {
		return probetypes.CloudEvent{}, err
	}

	return DecodeCloudEventKey(key)
}

// DecodeCloudEventKey decodes a schema-registry-framed Kafka record key's
// payload into a CloudEvent, without itself contacting the registry (the
// registry round-trip lives in decodeCloudEventKey, run on the dedicated
// decode pool). Any framing or unmarshal failure is returned as an error
// so the caller can treat the record as a poison pill (spec.md §4.3.2
// step 2) instead of crashing the stream.
func DecodeCloudEventKey(key []byte) (probetypes.CloudEvent, error) {
	if len(key) < confluentPrefixLen || key[0] != confluentMagicByte {
		return probetypes.CloudEvent{}, probeerrors.New(probeerrors.KindConsumer,
			"key is not schema-registry framed: missing magic byte or schema id prefix")
	}

	var ce probetypes.CloudEvent
	if err := json.Unmarshal(key[confluentPrefixLen:], &ce); err != nil {
		return probetypes.CloudEvent{}, probeerrors.Wrap(probeerrors.KindConsumer,
			fmt.Errorf("decoding CloudEvent key: %w", err))
	}
	if ce.CorrelationID == "" {
		return probetypes.CloudEvent{}, probeerrors.New(probeerrors.KindConsumer,
			"decoded CloudEvent key missing correlationid")
	}
	return ce, nil
}

// EncodeCloudEventKey frames a CloudEvent with the same wire-format prefix
// convention schema-registry-aware consumers expect, so per-correlationid
// ordering holds across producer and consumer (spec.md §5).
func EncodeCloudEventKey(ce probetypes.CloudEvent, schemaID uint32) ([]byte, error) {
	body, err := json.Marshal(ce)
	if err != nil {
		return nil, probeerrors.Wrap(probeerrors.KindProducer, err)
	}
	out := make([]byte, confluentPrefixLen+len(body))
	out[0] = confluentMagicByte
	out[1] = byte(schemaID >> 24)
	out[2] = byte(schemaID >> 16)
	out[3] = byte(schemaID >> 8)
	out[4] = byte(schemaID)
	copy(out[confluentPrefixLen:], body)
	return out, nil
}
