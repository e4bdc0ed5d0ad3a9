package kafkastream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnqueueReportsQueueFullThenDropped(t *testing.T) {
	p := &ProducerStream{topic: "orders", queue: make(chan produceRequest, 1)}

	assert.Equal(t, Enqueued, p.Enqueue([]byte("k1"), []byte("v1"), nil, nil))
	assert.Equal(t, QueueFull, p.Enqueue([]byte("k2"), []byte("v2"), nil, nil))

	p.closed.Store(true)
	assert.Equal(t, Dropped, p.Enqueue([]byte("k3"), []byte("v3"), nil, nil))
}

func TestEnqueueQueueFullNacksReplyChannel(t *testing.T) {
	p := &ProducerStream{topic: "orders", queue: make(chan produceRequest, 1)}
	reply := make(chan ProduceReply, 1)

	p.Enqueue([]byte("k1"), []byte("v1"), nil, nil)
	result := p.Enqueue([]byte("k2"), []byte("v2"), nil, reply)

	assert.Equal(t, QueueFull, result)
	nack := <-reply
	assert.False(t, nack.Ack)
	assert.Error(t, nack.Err)
}
