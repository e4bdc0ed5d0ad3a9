package kafkastream

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testprobe/internal/probetypes"
)

func TestDecodeCloudEventKeyRoundTrip(t *testing.T) {
	ce := probetypes.CloudEvent{
		ID:             "evt-1",
		Source:         "orders-service",
		Type:           "OrderCreated",
		PayloadVersion: "v1",
		CorrelationID:  "corr-1",
	}

	encoded, err := EncodeCloudEventKey(ce, 42)
	require.NoError(t, err)

	decoded, err := DecodeCloudEventKey(encoded)
	require.NoError(t, err)
	assert.Equal(t, ce, decoded)
}

func TestDecodeCloudEventKeyRejectsMissingPrefix(t *testing.T) {
	_, err := DecodeCloudEventKey([]byte("x"))
	assert.Error(t, err)
}

func TestDecodeCloudEventKeyRejectsMalformedPayload(t *testing.T) {
	key := append([]byte{confluentMagicByte, 0, 0, 0, 1}, []byte("not json")...)
	_, err := DecodeCloudEventKey(key)
	assert.Error(t, err)
}

func TestDecodeCloudEventKeyRejectsMissingCorrelationID(t *testing.T) {
	body, err := json.Marshal(probetypes.CloudEvent{ID: "evt-1"})
	require.NoError(t, err)
	key := append([]byte{confluentMagicByte, 0, 0, 0, 1}, body...)

	_, err = DecodeCloudEventKey(key)
	assert.Error(t, err)
}
