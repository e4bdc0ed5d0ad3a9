package queuecontroller

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"

	"testprobe/internal/config"
	"testprobe/internal/gherkin"
	"testprobe/internal/kafkastream"
	"testprobe/internal/lifecycle"
	"testprobe/internal/objectstore"
	"testprobe/internal/probectx"
	"testprobe/internal/probeerrors"
	"testprobe/internal/probetypes"
	"testprobe/pkg/logging"
)

// entry is everything the queue controller tracks for one spawned test.
type entry struct {
	controller *lifecycle.Controller
	breaker    *gobreaker.CircuitBreaker[any]
	cancel     context.CancelFunc

	mu      sync.Mutex
	state   lifecycle.State
	lastErr error
	alive   bool
}

func (e *entry) observe(testID probetypes.TestID, event lifecycle.QueueEvent, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch event {
	case lifecycle.EventTestInitialized:
		e.state = lifecycle.StateSetup
	case lifecycle.EventTestLoading:
		e.state = lifecycle.StateLoading
	case lifecycle.EventTestLoaded:
		e.state = lifecycle.StateLoaded
	case lifecycle.EventTestStarted:
		e.state = lifecycle.StateTesting
	case lifecycle.EventTestCompleted:
		e.state = lifecycle.StateCompleted
	case lifecycle.EventTestException:
		e.state = lifecycle.StateException
		e.lastErr = err
	case lifecycle.EventTestStopping:
		e.state = lifecycle.StateShuttingDown
	}
}

func (e *entry) snapshot() (lifecycle.State, error, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, e.lastErr, e.alive
}

// Controller is the probe's external front door (spec.md §4.2): it mints
// test IDs, spawns one lifecycle controller per test, watches each for
// death, and dispatches every request through a per-test circuit breaker.
// Each lifecycle controller reports its queue events through a callback
// that runs on the lifecycle controller's goroutine and updates that test's
// entry under the entry's own mutex; the test map itself is guarded by mu.
type Controller struct {
	mu    sync.Mutex
	tests map[probetypes.TestID]*entry

	baseCtx       context.Context
	cfg           config.ProbeConfig
	provider      objectstore.Provider
	fetchSecurity probectx.FetchSecurityFunc
	reg           prometheus.Registerer
}

// New constructs a queue controller. baseCtx bounds the lifetime of every
// lifecycle controller it spawns; it must outlive any individual request
// made against this queue controller.
func New(baseCtx context.Context, cfg config.ProbeConfig, provider objectstore.Provider, fetchSecurity probectx.FetchSecurityFunc, reg prometheus.Registerer) *Controller {
	return &Controller{
		tests:         map[probetypes.TestID]*entry{},
		baseCtx:       baseCtx,
		cfg:           cfg,
		provider:      provider,
		fetchSecurity: fetchSecurity,
		reg:           reg,
	}
}

func (c *Controller) bootstrapServers() []string {
	return strings.Split(c.cfg.Kafka.BootstrapServers, ",")
}

// InitializeTest mints a test ID, spawns its lifecycle controller and
// drives it through Initialize (spec.md §4.2).
func (c *Controller) InitializeTest(ctx context.Context) (InitializeTestResponse, error) {
	testID := probetypes.NewTestID()

	producers := kafkastream.NewProducerSupervisor()
	consumers := kafkastream.NewConsumerSupervisor(c.cfg.Kafka.SchemaRegistryURL)
	dsl := &gherkin.KafkaDSL{Producers: producers, Consumers: consumers}
	executor := gherkin.NewExecutor(dsl.Register)

	bundle := buildBundle(c.cfg, c.provider, c.fetchSecurity)

	e := &entry{breaker: newBreaker(string(testID)), alive: true}
	e.controller = lifecycle.NewController(testID, c.cfg.TestExecution, bundle, e.observe, c.bootstrapServers(), executor, producers, consumers, c.reg)

	childCtx, cancel := context.WithCancel(c.baseCtx)
	e.cancel = cancel

	c.mu.Lock()
	c.tests[testID] = e
	c.mu.Unlock()

	go func() {
		e.controller.Run(childCtx)
		c.markDead(testID)
	}()

	cctx, cancelCall := c.callCtx(ctx)
	defer cancelCall()
	resp, err := dispatch(e.breaker, func() (lifecycle.InitializeResponse, error) {
		return e.controller.Initialize(cctx)
	})
	if err != nil {
		return InitializeTestResponse{}, translateBreakerErr(err)
	}
	if resp.Err != nil {
		return InitializeTestResponse{}, resp.Err
	}
	return InitializeTestResponse{TestID: resp.TestID}, nil
}

// StartTest supplies the source bucket and begins test loading.
func (c *Controller) StartTest(ctx context.Context, testID probetypes.TestID, bucket, testType string) (lifecycle.StartResponse, error) {
	e, err := c.lookup(testID)
	if err != nil {
		return lifecycle.StartResponse{}, err
	}
	cctx, cancelCall := c.callCtx(ctx)
	defer cancelCall()
	resp, err := dispatch(e.breaker, func() (lifecycle.StartResponse, error) {
		return e.controller.Start(cctx, bucket, testType)
	})
	if err != nil {
		return lifecycle.StartResponse{}, translateBreakerErr(err)
	}
	return resp, nil
}

// StartTesting signals a loaded test to begin scenario execution.
func (c *Controller) StartTesting(ctx context.Context, testID probetypes.TestID) error {
	e, err := c.lookup(testID)
	if err != nil {
		return err
	}
	cctx, cancelCall := c.callCtx(ctx)
	defer cancelCall()
	_, err = dispatch(e.breaker, func() (struct{}, error) {
		return struct{}{}, e.controller.StartTesting(cctx)
	})
	if err != nil {
		return translateBreakerErr(err)
	}
	return nil
}

// Status reports one test's last-observed state.
func (c *Controller) Status(ctx context.Context, testID probetypes.TestID) (TestStatus, error) {
	e, err := c.lookup(testID)
	if err != nil {
		return TestStatus{}, err
	}
	cctx, cancelCall := c.callCtx(ctx)
	defer cancelCall()
	resp, err := dispatch(e.breaker, func() (lifecycle.StatusResponse, error) {
		return e.controller.GetStatus(cctx)
	})
	if err != nil {
		return TestStatus{}, translateBreakerErr(err)
	}
	return TestStatus{TestID: resp.TestID, State: resp.State, LastError: resp.LastError}, nil
}

// Cancel requests that a test stop, if it is in a cancellable state.
func (c *Controller) Cancel(ctx context.Context, testID probetypes.TestID) (lifecycle.CancelResponse, error) {
	e, err := c.lookup(testID)
	if err != nil {
		return lifecycle.CancelResponse{}, err
	}
	cctx, cancelCall := c.callCtx(ctx)
	defer cancelCall()
	resp, err := dispatch(e.breaker, func() (lifecycle.CancelResponse, error) {
		return e.controller.Cancel(cctx)
	})
	if err != nil {
		return lifecycle.CancelResponse{}, translateBreakerErr(err)
	}
	return resp, nil
}

// QueueStatus reports every test the queue controller still knows about.
// It never dispatches through a breaker: this is a read of locally cached
// state populated by queue notifications, not a call into any controller.
func (c *Controller) QueueStatus() QueueStatus {
	c.mu.Lock()
	ids := make([]probetypes.TestID, 0, len(c.tests))
	entries := make([]*entry, 0, len(c.tests))
	for id, e := range c.tests {
		ids = append(ids, id)
		entries = append(entries, e)
	}
	c.mu.Unlock()

	out := QueueStatus{Tests: make([]TestStatus, 0, len(ids))}
	for i, id := range ids {
		state, lastErr, _ := entries[i].snapshot()
		out.Tests = append(out.Tests, TestStatus{TestID: id, State: state, LastError: lastErr})
	}
	return out
}

func (c *Controller) lookup(testID probetypes.TestID) (*entry, error) {
	c.mu.Lock()
	e, ok := c.tests[testID]
	c.mu.Unlock()
	if !ok {
		return nil, probeerrors.New(probeerrors.KindNotFound, "unknown test %s", testID)
	}
	if _, _, alive := e.snapshot(); !alive {
		return nil, probeerrors.New(probeerrors.KindGone, "test %s controller has terminated", testID)
	}
	return e, nil
}

func (c *Controller) markDead(testID probetypes.TestID) {
	c.mu.Lock()
	e, ok := c.tests[testID]
	c.mu.Unlock()
	if !ok {
		return
	}
	e.mu.Lock()
	e.alive = false
	e.mu.Unlock()
	e.cancel()
	logging.Info("QueueController", "test %s controller terminated", logging.TruncateID(string(testID)))
}

// Shutdown cancels every spawned lifecycle controller. Callers use this on
// process shutdown; it does not wait for the controllers to finish.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.tests {
		e.cancel()
	}
}

// callCtx bounds one dispatch with the breaker's call-timeout, so a
// wedged lifecycle controller trips the breaker via ConsecutiveFailures
// instead of hanging the caller indefinitely.
func (c *Controller) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, breakerCallTimeout)
}

// translateBreakerErr maps gobreaker's sentinel errors onto the probe's
// error taxonomy (spec.md §4.2 failure semantics).
func translateBreakerErr(err error) error {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return probeerrors.New(probeerrors.KindServiceUnavailable, "circuit breaker open: %v", err)
	case errors.Is(err, context.DeadlineExceeded):
		return probeerrors.New(probeerrors.KindServiceTimeout, "dispatch timed out: %v", err)
	default:
		return err
	}
}
