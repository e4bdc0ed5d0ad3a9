package queuecontroller

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"testprobe/internal/config"
	"testprobe/internal/lifecycle"
	"testprobe/internal/probetypes"
)

// fakeProvider stages a trivial passing feature and an empty topic
// directive manifest, so a test reaches Completed without needing a real
// Kafka broker.
type fakeProvider struct{}

func (fakeProvider) FetchAll(_ context.Context, _ string, fs afero.Fs, destRoot string) error {
	if err := fs.MkdirAll(destRoot+"/features", 0o755); err != nil {
		return err
	}
	feature := "Feature: smoke\n  Scenario: trivial\n    Given a trivial step\n"
	if err := afero.WriteFile(fs, destRoot+"/features/smoke.feature", []byte(feature), 0o644); err != nil {
		return err
	}
	return afero.WriteFile(fs, destRoot+"/test-config.yaml", []byte("topics: []\n"), 0o644)
}

func (fakeProvider) UploadAll(_ context.Context, _ string, _ afero.Fs, _ string) error {
	return nil
}

func noopFetchSecurity(_ context.Context, directive probetypes.TopicDirective) (probetypes.SecurityDirective, error) {
	return probetypes.SecurityDirective{Topic: directive.Topic, Role: directive.Role}, nil
}

func newTestController(t *testing.T) *Controller {
	t.Helper()
	cfg := config.GetDefaultConfig()
	cfg.Kafka.BootstrapServers = "localhost:9092"
	return New(context.Background(), cfg, fakeProvider{}, noopFetchSecurity, prometheus.NewRegistry())
}

func TestInitializeTestMintsAndRunsController(t *testing.T) {
	qc := newTestController(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := qc.InitializeTest(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, resp.TestID)

	status, err := qc.Status(ctx, resp.TestID)
	require.NoError(t, err)
	require.Equal(t, lifecycle.StateSetup, status.State)
}

func TestStartTestDrivesToCompleted(t *testing.T) {
	qc := newTestController(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := qc.InitializeTest(ctx)
	require.NoError(t, err)

	startResp, err := qc.StartTest(ctx, resp.TestID, "local://bucket", "smoke")
	require.NoError(t, err)
	require.True(t, startResp.Accepted)

	require.Eventually(t, func() bool {
		s, err := qc.Status(ctx, resp.TestID)
		return err == nil && s.State == lifecycle.StateLoaded
	}, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, qc.StartTesting(ctx, resp.TestID))

	require.Eventually(t, func() bool {
		s, err := qc.Status(ctx, resp.TestID)
		return err == nil && s.State == lifecycle.StateCompleted
	}, 3*time.Second, 10*time.Millisecond)
}

func TestStatusUnknownTestReturnsNotFound(t *testing.T) {
	qc := newTestController(t)
	_, err := qc.Status(context.Background(), probetypes.TestID("does-not-exist"))
	require.Error(t, err)
}

func TestQueueStatusReflectsKnownTests(t *testing.T) {
	qc := newTestController(t)
	ctx := context.Background()

	resp, err := qc.InitializeTest(ctx)
	require.NoError(t, err)

	qs := qc.QueueStatus()
	require.Len(t, qs.Tests, 1)
	require.Equal(t, resp.TestID, qs.Tests[0].TestID)
}

func TestCancelDuringSetupStopsController(t *testing.T) {
	qc := newTestController(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := qc.InitializeTest(ctx)
	require.NoError(t, err)

	cancelResp, err := qc.Cancel(ctx, resp.TestID)
	require.NoError(t, err)
	require.True(t, cancelResp.Cancelled)

	require.Eventually(t, func() bool {
		_, err := qc.Status(ctx, resp.TestID)
		return err != nil
	}, 3*time.Second, 10*time.Millisecond)
}
