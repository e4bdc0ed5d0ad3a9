package kafkastream

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"testprobe/internal/probetypes"
	"testprobe/pkg/logging"
)

const streamStartAttempts = 3

// startWithRetry retries fn on failure with linear backoff, restarting a
// stream's underlying client construction the way the teacher's
// supervision discipline restarts a failed child (spec.md §4 "isolates
// child failures via supervision").
func startWithRetry[T any](ctx context.Context, attempts int, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for i := 0; i < attempts; i++ {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(time.Duration(i+1) * 200 * time.Millisecond):
		}
	}
	return zero, lastErr
}

// ProducerSupervisor owns every producer stream for one test, indexed by
// topic.
type ProducerSupervisor struct {
	mu      sync.Mutex
	streams map[string]*ProducerStream
}

func NewProducerSupervisor() *ProducerSupervisor {
	return &ProducerSupervisor{streams: map[string]*ProducerStream{}}
}

// Start constructs (with restart-on-failure) and registers a producer
// stream for directive.Topic.
func (s *ProducerSupervisor) Start(ctx context.Context, bootstrapServers []string, directive probetypes.SecurityDirective, reg prometheus.Registerer) (*ProducerStream, error) {
	stream, err := startWithRetry(ctx, streamStartAttempts, func() (*ProducerStream, error) {
		return NewProducerStream(ctx, bootstrapServers, directive, reg)
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.streams[directive.Topic] = stream
	s.mu.Unlock()
	return stream, nil
}

// Get returns the producer stream for topic, if one has been started.
func (s *ProducerSupervisor) Get(topic string) (*ProducerStream, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.streams[topic]
	return st, ok
}

// CloseAll shuts down every producer stream this supervisor owns.
func (s *ProducerSupervisor) CloseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.streams {
		st.Close()
	}
}

// ConsumerSupervisor mirrors ProducerSupervisor for consumer streams, and
// additionally drives each stream's poll loop in its own goroutine. It
// owns the schema-registry client every consumer stream decodes against,
// since schema lookups are cacheable across topics within one test.
type ConsumerSupervisor struct {
	mu       sync.Mutex
	streams  map[string]*ConsumerStream
	cancel   map[string]context.CancelFunc
	registry *SchemaRegistryClient
}

// NewConsumerSupervisor builds a supervisor whose consumer streams decode
// record keys against the schema registry at schemaRegistryURL
// (kafka.schema-registry-url, spec.md §8 "kafka.schema-registry-url").
func NewConsumerSupervisor(schemaRegistryURL string) *ConsumerSupervisor {
	return &ConsumerSupervisor{
		streams:  map[string]*ConsumerStream{},
		cancel:   map[string]context.CancelFunc{},
		registry: NewSchemaRegistryClient(schemaRegistryURL),
	}
}

// Start constructs (with restart-on-failure) a consumer stream for
// directive.Topic and runs its poll loop until ctx or the supervisor's
// CloseAll cancels it.
func (s *ConsumerSupervisor) Start(
	ctx context.Context,
	bootstrapServers []string,
	testID probetypes.TestID,
	directive probetypes.SecurityDirective,
	filters []probetypes.EventFilter,
	reg prometheus.Registerer,
) (*ConsumerStream, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	stream, err := startWithRetry(ctx, streamStartAttempts, func() (*ConsumerStream, error) {
		return NewConsumerStream(bootstrapServers, testID, directive, filters, s.registry, reg)
	})
	if err != nil {
		cancel()
		return nil, err
	}

	s.mu.Lock()
	s.streams[directive.Topic] = stream
	s.cancel[directive.Topic] = cancel
	s.mu.Unlock()

	go func() {
		if err := stream.Run(streamCtx); err != nil && streamCtx.Err() == nil {
			logging.Error("KafkaConsumer", err, "consumer stream for topic %s exited", directive.Topic)
		}
	}()

	return stream, nil
}

// Get returns the consumer stream for topic, if one has been started.
func (s *ConsumerSupervisor) Get(topic string) (*ConsumerStream, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.streams[topic]
	return st, ok
}

// CloseAll cancels every consumer stream's poll loop and closes its
// client.
func (s *ConsumerSupervisor) CloseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for topic, cancel := range s.cancel {
		cancel()
		s.streams[topic].Close()
	}
}
