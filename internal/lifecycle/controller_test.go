package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testprobe/internal/config"
	"testprobe/internal/gherkin"
	"testprobe/internal/kafkastream"
	"testprobe/internal/probectx"
	"testprobe/internal/probetypes"
	"testprobe/internal/stagingfs"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []QueueEvent
}

func (r *eventRecorder) notify(_ probetypes.TestID, event QueueEvent, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) has(event QueueEvent) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == event {
			return true
		}
	}
	return false
}

func testTimeouts() config.TestExecutionConfig {
	return config.TestExecutionConfig{
		SetupStateTimeout:     time.Minute,
		LoadingStateTimeout:   time.Minute,
		CompletedStateTimeout: time.Minute,
		ExceptionStateTimeout: time.Minute,
	}
}

func stageTrivialFeature(t *testing.T, testID probetypes.TestID) (*stagingfs.Staging, string) {
	t.Helper()
	staging, err := stagingfs.New(testID)
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(staging.Fs(), staging.FeaturesDir()+"/basic.feature",
		[]byte("Feature: smoke\n  Scenario: trivial\n    Given a trivial step\n"), 0o644))
	evidenceDir, err := staging.EvidenceDir()
	require.NoError(t, err)
	return staging, evidenceDir
}

func TestControllerReachesCompletedWithNoTopics(t *testing.T) {
	testID := probetypes.NewTestID()
	staging, evidenceDir := stageTrivialFeature(t, testID)

	bundle := probectx.Bundle{
		FetchStorage: func(ctx context.Context, id probetypes.TestID, bucket string) (probetypes.StorageDirective, error) {
			return probetypes.StorageDirective{
				WorkspaceRoot: staging.URI(staging.Root()),
				EvidenceDir:   staging.URI(evidenceDir),
				SourceBucket:  bucket,
			}, nil
		},
		FetchSecurity: func(ctx context.Context, d probetypes.TopicDirective) (probetypes.SecurityDirective, error) {
			return probetypes.SecurityDirective{}, nil
		},
		UploadEvidence: func(ctx context.Context, id probetypes.TestID, bucket, dir string) error {
			return nil
		},
	}

	rec := &eventRecorder{}
	executor := gherkin.NewExecutor(func(sc *godog.ScenarioContext) {
		sc.Step(`^a trivial step$`, func() error { return nil })
	})

	c := NewController(testID, testTimeouts(), bundle, rec.notify, nil,
		executor, kafkastream.NewProducerSupervisor(), kafkastream.NewConsumerSupervisor("http://localhost:8081"), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	go c.Run(ctx)

	initResp, err := c.Initialize(ctx)
	require.NoError(t, err)
	assert.Equal(t, testID, initResp.TestID)

	startResp, err := c.Start(ctx, "bucket://src", "smoke")
	require.NoError(t, err)
	assert.True(t, startResp.Accepted)

	require.Eventually(t, func() bool {
		status, err := c.GetStatus(ctx)
		return err == nil && status.State == StateLoaded
	}, 3*time.Second, 20*time.Millisecond)
	assert.True(t, rec.has(EventTestLoaded))

	require.NoError(t, c.StartTesting(ctx))

	require.Eventually(t, func() bool {
		status, err := c.GetStatus(ctx)
		return err == nil && status.State == StateCompleted
	}, 5*time.Second, 20*time.Millisecond)
	assert.True(t, rec.has(EventTestCompleted))
}

func TestControllerCancelDuringSetupShutsDown(t *testing.T) {
	testID := probetypes.NewTestID()
	bundle := probectx.Bundle{}
	rec := &eventRecorder{}
	executor := gherkin.NewExecutor()

	c := NewController(testID, testTimeouts(), bundle, rec.notify, nil,
		executor, kafkastream.NewProducerSupervisor(), kafkastream.NewConsumerSupervisor("http://localhost:8081"), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	go c.Run(ctx)

	_, err := c.Initialize(ctx)
	require.NoError(t, err)

	cancelResp, err := c.Cancel(ctx)
	require.NoError(t, err)
	assert.True(t, cancelResp.Cancelled)

	require.Eventually(t, func() bool {
		_, err := c.GetStatus(ctx)
		return err != nil
	}, 2*time.Second, 10*time.Millisecond, "controller should have stopped after ShuttingDown")
}

func TestControllerStorageFetchFailureGoesToException(t *testing.T) {
	testID := probetypes.NewTestID()
	bundle := probectx.Bundle{
		FetchStorage: func(ctx context.Context, id probetypes.TestID, bucket string) (probetypes.StorageDirective, error) {
			return probetypes.StorageDirective{}, fmt.Errorf("bucket unreachable")
		},
	}
	rec := &eventRecorder{}
	executor := gherkin.NewExecutor()

	c := NewController(testID, testTimeouts(), bundle, rec.notify, nil,
		executor, kafkastream.NewProducerSupervisor(), kafkastream.NewConsumerSupervisor("http://localhost:8081"), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	go c.Run(ctx)

	_, err := c.Initialize(ctx)
	require.NoError(t, err)

	_, err = c.Start(ctx, "bucket://src", "smoke")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return rec.has(EventTestException)
	}, 2*time.Second, 10*time.Millisecond)
}
