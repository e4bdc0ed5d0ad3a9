package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"testprobe/internal/config"
	"testprobe/internal/probetypes"
	"testprobe/internal/queuecontroller"
)

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

func (fakeProvider) UploadAll(_ context.Context, _ string, _ afero.Fs, _ string) error { return nil }

func noopFetchSecurity(_ context.Context, directive probetypes.TopicDirective) (probetypes.SecurityDirective, error) {
	return probetypes.SecurityDirective{Topic: directive.Topic, Role: directive.Role}, nil
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	cfg := config.GetDefaultConfig()
	cfg.Kafka.BootstrapServers = "localhost:9092"
	qc := queuecontroller.New(context.Background(), cfg, fakeProvider{}, noopFetchSecurity, prometheus.NewRegistry())
	return NewRouter(qc)
}

func TestInitializeAndStatusRoundTrip(t *testing.T) {
	handler := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/tests/", nil)
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	testID := created["testId"]
	require.NotEmpty(t, testID)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/tests/"+testID, nil)
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusUnknownTestReturnsNotFound(t *testing.T) {
	handler := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/tests/does-not-exist", nil)
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQueueStatusListsInitializedTests(t *testing.T) {
	handler := newTestServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tests/", nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tests/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"count"`)
}

func TestCancelDuringSetup(t *testing.T) {
	handler := newTestServer(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tests/", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/tests/"+created["testId"], nil)
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tests/"+created["testId"], nil))
		return rec.Code == http.StatusGone || rec.Code == http.StatusNotFound
	}, 3*time.Second, 10*time.Millisecond)
}
