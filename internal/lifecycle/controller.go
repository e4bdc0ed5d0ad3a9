package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/semaphore"

	"testprobe/internal/config"
	"testprobe/internal/gherkin"
	"testprobe/internal/kafkastream"
	"testprobe/internal/probectx"
	"testprobe/internal/probeerrors"
	"testprobe/internal/probetypes"
	"testprobe/internal/stagingfs"
	"testprobe/pkg/logging"
)

type timerExpiredMsg struct{ gen int }
type producerStartedMsg struct{ topic string }
type consumerStartedMsg struct{ topic string }

// Controller is one test's lifecycle controller: a single goroutine
// mailbox loop driving the seven-state FSM from spec.md §4.1.
type Controller struct {
	mailbox chan interface{}
	stopped chan struct{}

	state State
	data  *Data

	cfg              config.TestExecutionConfig
	bundle           probectx.Bundle
	notify           QueueNotifier
	bootstrapServers []string
	reg              prometheus.Registerer

	executor  *gherkin.Executor
	producers *kafkastream.ProducerSupervisor
	consumers *kafkastream.ConsumerSupervisor
	staging   *stagingfs.Staging

	workspaceRoot string

	timer    *time.Timer
	timerGen int

	filtersByTopic          map[string][]probetypes.EventFilter
	bootstrapServersByTopic map[string][]string
	expectedProducers       int
	expectedConsumers       int
	startedProducers        int
	startedConsumers        int
	loadedSignaled          bool
	terminated              bool

	childSem *semaphore.Weighted
}

// maxConcurrentChildWork bounds how many blocking child operations
// (gherkin init, vault fetch, per-topic stream start) a single
// controller runs at once, matching spec.md §5's "blocking-I/O pool ...
// grow on demand" sizing without going fully unbounded per topic.
const maxConcurrentChildWork = 8

// NewController constructs a controller for testID. The mailbox loop does
// not run until Run is called.
func NewController(
	testID probetypes.TestID,
	cfg config.TestExecutionConfig,
	bundle probectx.Bundle,
	notify QueueNotifier,
	bootstrapServers []string,
	executor *gherkin.Executor,
	producers *kafkastream.ProducerSupervisor,
	consumers *kafkastream.ConsumerSupervisor,
	reg prometheus.Registerer,
) *Controller {
	return &Controller{
		mailbox:                 make(chan interface{}, 64),
		stopped:                 make(chan struct{}),
		data:                    newData(testID),
		cfg:                     cfg,
		bundle:                  bundle,
		notify:                  notify,
		bootstrapServers:        bootstrapServers,
		executor:                executor,
		producers:               producers,
		consumers:               consumers,
		reg:                     reg,
		filtersByTopic:          map[string][]probetypes.EventFilter{},
		bootstrapServersByTopic: map[string][]string{},
		childSem:                semaphore.NewWeighted(maxConcurrentChildWork),
	}
}

// spawnBounded launches fn on its own goroutine once a childSem slot is
// free, capping the fan-out of per-topic stream starts and other blocking
// child work a single controller can have in flight at once. Acquire
// blocks on ctx, so a cancelled controller never leaks a waiting spawn.
func (c *Controller) spawnBounded(ctx context.Context, fn func()) {
	go func() {
		if err := c.childSem.Acquire(ctx, 1); err != nil {
			return
		}
		defer c.childSem.Release(1)
		fn()
	}()
}

// Run drives the mailbox loop until the controller reaches ShuttingDown or
// ctx is cancelled. Callers run this in its own goroutine.
func (c *Controller) Run(ctx context.Context) {
	defer close(c.stopped)
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.mailbox:
			c.handle(ctx, msg)
			if c.terminated {
				return
			}
		}
	}
}

// --- external, blocking public API ---

func (c *Controller) Initialize(ctx context.Context) (InitializeResponse, error) {
	reply := make(chan InitializeResponse, 1)
	if err := c.sendExternal(ctx, initializeMsg{replyTo: reply}); err != nil {
		return InitializeResponse{}, err
	}
	select {
	case resp := <-reply:
		return resp, nil
	case <-ctx.Done():
		return InitializeResponse{}, ctx.Err()
	}
}

func (c *Controller) Start(ctx context.Context, bucket, testType string) (StartResponse, error) {
	reply := make(chan StartResponse, 1)
	if err := c.sendExternal(ctx, startMsg{bucket: bucket, testType: testType, replyTo: reply}); err != nil {
		return StartResponse{}, err
	}
	select {
	case resp := <-reply:
		return resp, nil
	case <-ctx.Done():
		return StartResponse{}, ctx.Err()
	}
}

func (c *Controller) StartTesting(ctx context.Context) error {
	return c.sendExternal(ctx, startTestingMsg{})
}

func (c *Controller) Cancel(ctx context.Context) (CancelResponse, error) {
	reply := make(chan CancelResponse, 1)
	if err := c.sendExternal(ctx, cancelMsg{replyTo: reply}); err != nil {
		return CancelResponse{}, err
	}
	select {
	case resp := <-reply:
		return resp, nil
	case <-ctx.Done():
		return CancelResponse{}, ctx.Err()
	}
}

func (c *Controller) GetStatus(ctx context.Context) (StatusResponse, error) {
	reply := make(chan StatusResponse, 1)
	if err := c.sendExternal(ctx, getStatusMsg{replyTo: reply}); err != nil {
		return StatusResponse{}, err
	}
	select {
	case resp := <-reply:
		return resp, nil
	case <-ctx.Done():
		return StatusResponse{}, ctx.Err()
	}
}

func (c *Controller) sendExternal(ctx context.Context, msg interface{}) error {
	select {
	case c.mailbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stopped:
		return probeerrors.New(probeerrors.KindNotFound, "controller for test %s is no longer running", c.data.TestID)
	}
}

// send is used by the controller's own child goroutines; it never blocks
// past the controller's own shutdown.
func (c *Controller) send(msg interface{}) {
	select {
	case c.mailbox <- msg:
	case <-c.stopped:
	}
}

// enqueueSelf is only ever called from inside handle, i.e. from the
// mailbox goroutine itself (spec.md §4.1 "self-message continuation
// discipline").
func (c *Controller) enqueueSelf(msg interface{}) {
	c.mailbox <- msg
}

func (c *Controller) notifyQueue(event QueueEvent, err error) {
	if c.notify != nil {
		c.notify(c.data.TestID, event, err)
	}
}

// --- mailbox dispatch ---

func (c *Controller) handle(ctx context.Context, msg interface{}) {
	switch m := msg.(type) {
	case initializeMsg:
		c.handleInitialize(m)
	case startMsg:
		c.handleStart(m)
	case startTestingMsg:
		c.handleStartTesting()
	case cancelMsg:
		c.handleCancel(m)
	case getStatusMsg:
		c.handleGetStatus(m)
	case storageFetchedMsg:
		c.handleStorageFetched(ctx, m)
	case securityFetchedMsg:
		c.handleSecurityFetched(ctx, m)
	case childReadyMsg:
		c.handleChildReady(m)
	case producerStartedMsg:
		c.startedProducers++
		if c.startedProducers >= c.expectedProducers {
			c.childBecomesReady("producer")
		}
	case consumerStartedMsg:
		c.startedConsumers++
		if c.startedConsumers >= c.expectedConsumers {
			c.childBecomesReady("consumer")
		}
	case testCompleteMsg:
		c.handleTestComplete(ctx, m)
	case uploadCompleteMsg:
		c.handleUploadComplete()
	case exceptionMsg:
		c.handleException(m)
	case timerExpiredMsg:
		c.handleTimerExpired(m)
	case trnLoading:
		c.enterLoading(ctx)
	case trnLoaded:
		c.enterLoaded()
	case trnTesting:
		c.enterTesting(ctx)
	case trnCompleted:
		c.enterCompleted()
	case trnException:
		c.enterException(m.err)
	case trnShuttingDown:
		c.enterShuttingDown()
	}
}

func (c *Controller) handleInitialize(m initializeMsg) {
	if c.state != "" {
		if m.replyTo != nil {
			m.replyTo <- InitializeResponse{Err: probeerrors.New(probeerrors.KindInternal, "test %s already initialized", c.data.TestID)}
		}
		return
	}
	c.state = StateSetup
	c.armTimer(c.cfg.SetupStateTimeout)
	c.notifyQueue(EventTestInitialized, nil)
	if m.replyTo != nil {
		m.replyTo <- InitializeResponse{TestID: c.data.TestID}
	}
}

func (c *Controller) handleStart(m startMsg) {
	if c.state != StateSetup {
		if m.replyTo != nil {
			m.replyTo <- StartResponse{Accepted: false, Err: probeerrors.New(probeerrors.KindValidation, "start not legal in state %s", c.state)}
		}
		return
	}
	c.data.Bucket = m.bucket
	c.data.TestType = m.testType
	c.state = StateLoading
	if m.replyTo != nil {
		m.replyTo <- StartResponse{Accepted: true}
	}
	c.enqueueSelf(trnLoading{})
}

func (c *Controller) handleStartTesting() {
	if c.state != StateLoaded {
		return
	}
	c.state = StateTesting
	c.enqueueSelf(trnTesting{})
}

func (c *Controller) handleCancel(m cancelMsg) {
	switch c.state {
	case StateTesting:
		if m.replyTo != nil {
			m.replyTo <- CancelResponse{Cancelled: false, Reason: "executing"}
		}
	case StateCompleted, StateException, StateShuttingDown:
		if m.replyTo != nil {
			m.replyTo <- CancelResponse{Cancelled: false, Reason: fmt.Sprintf("state %s does not accept cancel", c.state)}
		}
	default:
		c.state = StateShuttingDown
		if m.replyTo != nil {
			m.replyTo <- CancelResponse{Cancelled: true}
		}
		c.enqueueSelf(trnShuttingDown{})
	}
}

func (c *Controller) handleGetStatus(m getStatusMsg) {
	if m.replyTo != nil {
		m.replyTo <- StatusResponse{State: c.state, TestID: c.data.TestID, LastError: c.data.LastError}
	}
}

func (c *Controller) handleStorageFetched(ctx context.Context, m storageFetchedMsg) {
	if c.state != StateLoading {
		return
	}
	c.data.StorageDirective = m.directive

	staging, root, err := stagingfs.ParsePath(m.directive.WorkspaceRoot)
	if err != nil {
		c.state = StateException
		c.enqueueSelf(trnException{err: probeerrors.Wrap(probeerrors.KindInternal, err)})
		return
	}
	c.staging = staging
	c.workspaceRoot = root

	c.countExpectedStreams(m.directive.TopicDirectives)
	c.childBecomesReady("storage")

	c.spawnBounded(ctx, func() { c.initializeGherkin(ctx) })
	c.spawnBounded(ctx, func() { c.fetchSecurity(ctx, m.directive) })
}

func (c *Controller) countExpectedStreams(directives []probetypes.TopicDirective) {
	for _, td := range directives {
		c.filtersByTopic[td.Topic] = td.EventFilters
		if td.BootstrapServers != "" {
			c.bootstrapServersByTopic[td.Topic] = strings.Split(td.BootstrapServers, ",")
		}
		switch td.Role {
		case probetypes.RoleProducer:
			c.expectedProducers++
		case probetypes.RoleConsumer:
			c.expectedConsumers++
		}
	}
	if c.expectedProducers == 0 {
		c.childBecomesReady("producer")
	}
	if c.expectedConsumers == 0 {
		c.childBecomesReady("consumer")
	}
}

func (c *Controller) initializeGherkin(ctx context.Context) {
	if err := c.executor.Initialize(c.workspaceRoot, c.staging.Fs()); err != nil {
		c.send(exceptionMsg{child: "gherkin", err: err})
		return
	}
	c.send(childReadyMsg{child: "gherkin"})
}

func (c *Controller) fetchSecurity(ctx context.Context, directive probetypes.StorageDirective) {
	for _, td := range directive.TopicDirectives {
		sec, err := c.bundle.FetchSecurity(ctx, td)
		if err != nil {
			c.send(exceptionMsg{child: "vault", err: err})
			return
		}
		c.send(securityFetchedMsg{directive: sec})
	}
	c.send(childReadyMsg{child: "vault"})
}

func (c *Controller) handleSecurityFetched(ctx context.Context, m securityFetchedMsg) {
	if c.state != StateLoading {
		return
	}
	c.data.SecurityDirectives[m.directive.Key()] = m.directive
	c.spawnBounded(ctx, func() { c.startStream(ctx, m.directive) })
}

// resolveBootstrapServers returns the per-topic bootstrapServers override
// from the topic directive if one was supplied, falling back to the
// controller's global default (spec.md §4.5 TopicDirective invariant:
// "bootstrapServers, when absent, the system default is used").
func (c *Controller) resolveBootstrapServers(topic string) []string {
	if override, ok := c.bootstrapServersByTopic[topic]; ok {
		return override
	}
	return c.bootstrapServers
}

func (c *Controller) startStream(ctx context.Context, directive probetypes.SecurityDirective) {
	servers := c.resolveBootstrapServers(directive.Topic)
	switch directive.Role {
	case probetypes.RoleProducer:
		if _, err := c.producers.Start(ctx, servers, directive, c.reg); err != nil {
			c.send(exceptionMsg{child: "producer", err: err})
			return
		}
		c.send(producerStartedMsg{topic: directive.Topic})
	case probetypes.RoleConsumer:
		filters := c.filtersByTopic[directive.Topic]
		if _, err := c.consumers.Start(ctx, servers, c.data.TestID, directive, filters, c.reg); err != nil {
			c.send(exceptionMsg{child: "consumer", err: err})
			return
		}
		c.send(consumerStartedMsg{topic: directive.Topic})
	}
}

func (c *Controller) handleChildReady(m childReadyMsg) {
	if c.state != StateLoading {
		return
	}
	c.childBecomesReady(m.child)
}

// childBecomesReady records that one of the five children is ready and,
// on the fifth, switches state and enqueues the Loaded continuation
// (spec.md §4.1 "Loading -> ChildReady x5 -> Loaded").
func (c *Controller) childBecomesReady(name string) {
	if c.loadedSignaled {
		return
	}
	if c.data.markChildReady(name) {
		c.loadedSignaled = true
		c.state = StateLoaded
		c.enqueueSelf(trnLoaded{})
	}
}

func (c *Controller) handleTestComplete(ctx context.Context, m testCompleteMsg) {
	if c.state != StateTesting {
		return
	}
	c.data.Result = m.result
	go c.uploadEvidence(ctx)
}

// uploadEvidence uploads evidence and cleans up the staging subtree
// regardless of upload outcome (spec.md §4.5 "cleanup is best-effort").
func (c *Controller) uploadEvidence(ctx context.Context) {
	err := c.bundle.UploadEvidence(ctx, c.data.TestID, c.data.Bucket, c.data.StorageDirective.EvidenceDir)
	if err != nil {
		logging.Warn("Lifecycle", "evidence upload failed for test %s: %v", c.data.TestID, err)
	}
	if cerr := c.staging.Cleanup(); cerr != nil {
		logging.Warn("Lifecycle", "staging cleanup failed for test %s: %v", c.data.TestID, cerr)
	}
	c.send(uploadCompleteMsg{})
}

func (c *Controller) handleUploadComplete() {
	if c.state != StateTesting {
		return
	}
	c.state = StateCompleted
	c.enqueueSelf(trnCompleted{})
}

func (c *Controller) handleException(m exceptionMsg) {
	if c.state == StateException || c.state == StateShuttingDown {
		return
	}
	c.state = StateException
	c.enqueueSelf(trnException{err: m.err})
}

func (c *Controller) handleTimerExpired(m timerExpiredMsg) {
	if m.gen != c.timerGen {
		return
	}
	c.state = StateShuttingDown
	c.enqueueSelf(trnShuttingDown{})
}

// --- state-entry side effects (step 2 of every transition) ---

func (c *Controller) enterLoading(ctx context.Context) {
	c.armTimer(c.cfg.LoadingStateTimeout)
	c.notifyQueue(EventTestLoading, nil)
	go c.fetchStorage(ctx)
}

// fetchStorage is the "storage" child: it stages the test's artifacts and
// reports back with a storageFetchedMsg or an exceptionMsg.
func (c *Controller) fetchStorage(ctx context.Context) {
	directive, err := c.bundle.FetchStorage(ctx, c.data.TestID, c.data.Bucket)
	if err != nil {
		c.send(exceptionMsg{child: "storage", err: err})
		return
	}
	c.send(storageFetchedMsg{directive: directive})
}

func (c *Controller) enterLoaded() {
	c.cancelTimer()
	c.notifyQueue(EventTestLoaded, nil)
}

func (c *Controller) enterTesting(ctx context.Context) {
	c.notifyQueue(EventTestStarted, nil)
	go c.runGherkin(ctx)
}

func (c *Controller) runGherkin(ctx context.Context) {
	result, err := c.executor.Run(ctx, c.workspaceRoot, c.staging.Fs())
	if err != nil {
		c.send(exceptionMsg{child: "gherkin", err: err})
		return
	}
	c.send(testCompleteMsg{result: result})
}

func (c *Controller) enterCompleted() {
	c.armTimer(c.cfg.CompletedStateTimeout)
	c.notifyQueue(EventTestCompleted, nil)
}

func (c *Controller) enterException(err error) {
	c.data.LastError = err
	c.cancelTimer()
	c.armTimer(c.cfg.ExceptionStateTimeout)
	c.notifyQueue(EventTestException, err)
}

func (c *Controller) enterShuttingDown() {
	c.cancelTimer()
	c.notifyQueue(EventTestStopping, nil)
	if c.producers != nil {
		c.producers.CloseAll()
	}
	if c.consumers != nil {
		c.consumers.CloseAll()
	}
	c.terminated = true
}

// --- poison-pill timers ---

func (c *Controller) armTimer(d time.Duration) {
	c.cancelTimer()
	c.timerGen++
	gen := c.timerGen
	c.timer = time.AfterFunc(d, func() {
		c.send(timerExpiredMsg{gen: gen})
	})
}

func (c *Controller) cancelTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.timerGen++
}
