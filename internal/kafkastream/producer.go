package kafkastream

import (
	"context"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kgo"

	"testprobe/internal/probeerrors"
	"testprobe/internal/probetypes"
	"testprobe/pkg/logging"
)

// producerQueueCapacity is the bounded internal queue size recommended by
// spec.md §4.3.1 step 1.
const producerQueueCapacity = 100

// EnqueueResult is the tri-state outcome of placing a record onto a
// producer stream's bounded queue.
type EnqueueResult string

const (
	Enqueued  EnqueueResult = "Enqueued"
	Dropped   EnqueueResult = "Dropped"
	QueueFull EnqueueResult = "QueueFull"
)

// ProduceReply carries the ProducedAck/ProducedNack outcome for one
// enqueued record (spec.md §8 invariant 6).
type ProduceReply struct {
	Ack bool
	Err error
}

type produceRequest struct {
	record  *kgo.Record
	replyTo chan ProduceReply
}

// ProducerStream is one topic's producer: a bounded internal queue drained
// by a single goroutine into a franz-go client.
type ProducerStream struct {
	client         *kgo.Client
	topic          string
	queue          chan produceRequest
	closed         atomic.Bool
	brokerFailures prometheus.Counter
}

// NewProducerStream constructs and starts a producer stream for topic,
// with idempotent production, acks=all and the security options derived
// from directive (spec.md §4.3.1).
func NewProducerStream(ctx context.Context, bootstrapServers []string, directive probetypes.SecurityDirective, reg prometheus.Registerer) (*ProducerStream, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(bootstrapServers...),
		kgo.DefaultProduceTopic(directive.Topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.RecordRetries(1 << 20),
		kgo.WithHooks(newMetricsHook("producer", directive.Topic, reg)),
	}

	secOpts, err := BuildClientOpts(directive)
	if err != nil {
		return nil, err
	}
	opts = append(opts, secOpts...)

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, probeerrors.Wrap(probeerrors.KindProducer, err)
	}

	p := &ProducerStream{
		client:         client,
		topic:          directive.Topic,
		queue:          make(chan produceRequest, producerQueueCapacity),
		brokerFailures: newBrokerConfirmFailureCounter(directive.Topic, reg),
	}
	go p.loop(ctx)
	return p, nil
}

// loop drains the bounded queue and hands each record to the client's
// asynchronous produce call. The ack is per-enqueue, not
// per-broker-confirmation (spec.md §4.3.1): replyTo is signalled as soon
// as the record has been handed off, not when the broker confirms it.
// Broker-confirmation failures are only observable afterwards, through
// brokerFailures and a log line.
func (p *ProducerStream) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-p.queue:
			p.client.Produce(ctx, req.record, func(_ *kgo.Record, err error) {
				if err != nil {
					p.brokerFailures.Inc()
					logging.Warn("KafkaProducer", "broker confirmation failed for topic %s: %v", p.topic, err)
				}
			})
			if req.replyTo != nil {
				req.replyTo <- ProduceReply{Ack: true}
			}
		}
	}
}

// Enqueue places a record onto the bounded internal queue without
// blocking the caller, reporting Enqueued, Dropped or QueueFull
// (spec.md §4.3.1 step 1). replyTo, if non-nil, receives exactly one
// ProduceReply.
func (p *ProducerStream) Enqueue(key, value []byte, headers map[string]string, replyTo chan ProduceReply) EnqueueResult {
	if p.closed.Load() {
		if replyTo != nil {
			replyTo <- ProduceReply{Ack: false, Err: probeerrors.New(probeerrors.KindProducer, "producer stream for topic %s is closed", p.topic)}
		}
		return Dropped
	}

	record := &kgo.Record{Topic: p.topic, Key: key, Value: value}
	for k, v := range headers {
		record.Headers = append(record.Headers, kgo.RecordHeader{Key: k, Value: []byte(v)})
	}

	select {
	case p.queue <- produceRequest{record: record, replyTo: replyTo}:
		return Enqueued
	default:
		if replyTo != nil {
			replyTo <- ProduceReply{Ack: false, Err: probeerrors.New(probeerrors.KindProducer, "producer queue full for topic %s", p.topic)}
		}
		return QueueFull
	}
}

// Close stops accepting new records and shuts down the underlying client.
func (p *ProducerStream) Close() {
	p.closed.Store(true)
	p.client.Close()
}
