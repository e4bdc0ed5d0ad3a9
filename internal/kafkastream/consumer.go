package kafkastream

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kgo"

	"testprobe/internal/probeerrors"
	"testprobe/internal/probetypes"
	"testprobe/pkg/logging"
)

// commitBatchSize is the batched-committer size from spec.md §4.3.2
// step 4.
const commitBatchSize = 20

// registryAskTimeout bounds the ask-pattern request to the registry; on
// timeout the offset is released anyway and a warning logged (spec.md
// §4.3.2 step 3, §10 "ask-pattern timeout").
const registryAskTimeout = 5 * time.Second

// decodeLookupTimeout bounds a single schema-registry round-trip inside
// the dedicated decode pool (spec.md §4.3.2 step 2, §5).
const decodeLookupTimeout = 5 * time.Second

// ConsumerStream is one topic's at-least-once consumer: a single
// committable pipeline with parallelism 1 at every stage (spec.md §4.3.2,
// §5 ordering guarantees).
type ConsumerStream struct {
	client   *kgo.Client
	topic    string
	testID   probetypes.TestID
	filters  []probetypes.EventFilter
	registry *Registry
	decode   *decodePool
}

// NewConsumerStream constructs a consumer stream subscribed to topic under
// group id test-<testID>, earliest reset, auto-commit disabled, read
// committed isolation.
func NewConsumerStream(
	bootstrapServers []string,
	testID probetypes.TestID,
	directive probetypes.SecurityDirective,
	filters []probetypes.EventFilter,
	schemaRegistry *SchemaRegistryClient,
	reg prometheus.Registerer,
) (*ConsumerStream, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(bootstrapServers...),
		kgo.ConsumeTopics(directive.Topic),
		kgo.ConsumerGroup(fmt.Sprintf("test-%s", testID)),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
		kgo.DisableAutoCommit(),
		kgo.FetchIsolationLevel(kgo.ReadCommitted()),
		kgo.WithHooks(newMetricsHook("consumer", directive.Topic, reg)),
	}

	secOpts, err := BuildClientOpts(directive)
	if err != nil {
		return nil, err
	}
	opts = append(opts, secOpts...)

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, probeerrors.Wrap(probeerrors.KindConsumer, err)
	}

	return &ConsumerStream{
		client:   client,
		topic:    directive.Topic,
		testID:   testID,
		filters:  filters,
		registry: NewRegistry(),
		decode:   newDecodePool(schemaRegistry, decodeLookupTimeout),
	}, nil
}

// Registry returns the stream's owned event registry.
func (c *ConsumerStream) Registry() *Registry { return c.registry }

// Run polls the stream until ctx is cancelled, decoding, filtering and
// committing records per spec.md §4.3.2. It returns nil on clean
// cancellation.
func (c *ConsumerStream) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if ctx.Err() != nil {
			return nil
		}

		for _, fetchErr := range fetches.Errors() {
			logging.Error("KafkaConsumer", fetchErr.Err,
				"fetch error on topic %s partition %d", fetchErr.Topic, fetchErr.Partition)
		}

		var toCommit []*kgo.Record
		fetches.EachRecord(func(rec *kgo.Record) {
			toCommit = append(toCommit, c.handleRecord(ctx, rec))
		})

		if len(toCommit) > 0 {
			c.commitBatched(ctx, toCommit)
		}
	}
}

// handleRecord decodes and, on a filter match, asks the registry to store
// the record. It always returns rec: every record's offset commits,
// whether it is a poison pill, a filtered-out event, or a stored one
// (spec.md §4.3.2 steps 2-3).
func (c *ConsumerStream) handleRecord(ctx context.Context, rec *kgo.Record) *kgo.Record {
	outcome, ok := c.decode.Submit(ctx, rec.Key)
	if !ok {
		logging.Warn("KafkaConsumer", "decode pool unavailable on topic %s offset %d, skipping poison pill", c.topic, rec.Offset)
		return rec
	}
	ce, err := outcome.event, outcome.err
	if err != nil {
		logging.Warn("KafkaConsumer", "skipping poison pill on topic %s offset %d: %v", c.topic, rec.Offset, err)
		return rec
	}

	directive := probetypes.TopicDirective{EventFilters: c.filters}
	if !directive.MatchesFilter(ce.Type, ce.PayloadVersion) {
		logging.Debug("KafkaConsumer", "filtered out event type=%s version=%s on topic %s", ce.Type, ce.PayloadVersion, c.topic)
		return rec
	}

	c.registryAsk(ctx, ce.CorrelationID, RegistryEntry{
		Key:     rec.Key,
		Value:   rec.Value,
		Headers: headersOf(rec),
	})
	return rec
}

// registryAsk stores entry in the registry, releasing the caller after
// either the store completes or registryAskTimeout elapses.
func (c *ConsumerStream) registryAsk(ctx context.Context, correlationID string, entry RegistryEntry) {
	done := make(chan struct{})
	go func() {
		c.registry.Put(correlationID, entry)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(registryAskTimeout):
		logging.Warn("KafkaConsumer", "registry ask timed out for correlationid %s on topic %s; releasing offset anyway", correlationID, c.topic)
	case <-ctx.Done():
	}
}

func (c *ConsumerStream) commitBatched(ctx context.Context, records []*kgo.Record) {
	for i := 0; i < len(records); i += commitBatchSize {
		end := i + commitBatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := c.client.CommitRecords(ctx, records[i:end]...); err != nil {
			logging.Error("KafkaConsumer", err, "committing offsets on topic %s", c.topic)
		}
	}
}

func headersOf(rec *kgo.Record) map[string]string {
	if len(rec.Headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(rec.Headers))
	for _, h := range rec.Headers {
		out[h.Key] = string(h.Value)
	}
	return out
}

// Close shuts down the underlying client and the stream's decode pool.
func (c *ConsumerStream) Close() {
	c.client.Close()
	c.decode.Close()
}
