package kafkastream

import (
	"context"
	"time"
)

// decodeJob is one record key awaiting decode on the dedicated pool.
type decodeJob struct {
	ctx   context.Context
	key   []byte
	reply chan decodeOutcome
}

type decodeOutcome struct {
	event cloudEventOrErr
}

// decodePool runs every key decode on a single dedicated goroutine,
// separate from the consumer stream's poll loop, because schema-registry
// lookups block (spec.md §4.3.2 step 2, §5 "a blocking-I/O pool for
// schema-registry lookups during message decode/encode"). Parallelism is
// fixed at 1 per spec.md's deserialize-stage requirement.
type decodePool struct {
	registry *SchemaRegistryClient
	timeout  time.Duration
	jobs     chan decodeJob
}

// newDecodePool starts the pool's worker goroutine. Callers must Close it
// once the owning consumer stream shuts down.
func newDecodePool(registry *SchemaRegistryClient, timeout time.Duration) *decodePool {
	p := &decodePool{
		registry: registry,
		timeout:  timeout,
		jobs:     make(chan decodeJob),
	}
	go p.run()
	return p
}

func (p *decodePool) run() {
	for job := range p.jobs {
		ce, err := decodeCloudEventKey(job.ctx, job.key, p.registry, p.timeout)
		select {
		case job.reply <- decodeOutcome{event: cloudEventOrErr{event: ce, err: err}}:
		case <-job.ctx.Done():
		}
	}
}

// Submit hands key to the dedicated decode worker and blocks for its
// result, or until ctx is cancelled.
func (p *decodePool) Submit(ctx context.Context, key []byte) (cloudEventOrErr, bool) {
	reply := make(chan decodeOutcome, 1)
	select {
	case p.jobs <- decodeJob{ctx: ctx, key: key, reply: reply}:
	case <-ctx.Done():
		return cloudEventOrErr{}, false
	}

	select {
	case out := <-reply:
		return out.event, true
	case <-ctx.Done():
		return cloudEventOrErr{}, false
	}
}

// Close stops the worker goroutine. Safe to call once.
func (p *decodePool) Close() {
	close(p.jobs)
}
