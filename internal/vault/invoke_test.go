package vault

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testprobe/internal/config"
)

func TestHTTPInvokerSendsFunctionKeyHeader(t *testing.T) {
	t.Setenv("TEST_VAULT_KEY", "super-secret-key")

	var gotHeader string
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("x-functions-key")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"clientId":"abc"}`))
	}))
	defer srv.Close()

	inv, err := newHTTPInvoker(srv.URL, "TEST_VAULT_KEY", "x-functions-key")
	require.NoError(t, err)

	resp, err := inv.Invoke(context.Background(), `{"topic":"orders"}`)
	require.NoError(t, err)

	assert.Equal(t, "super-secret-key", gotHeader)
	assert.Equal(t, `{"topic":"orders"}`, gotBody)
	assert.JSONEq(t, `{"clientId":"abc"}`, string(resp))
}

func TestHTTPInvokerErrorsOnNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	inv, err := newHTTPInvoker(srv.URL, "", "")
	require.NoError(t, err)

	_, err = inv.Invoke(context.Background(), `{}`)
	assert.Error(t, err)
}

func TestNewInvokerRejectsUnknownProvider(t *testing.T) {
	_, err := NewInvoker(context.Background(), "unknown", config.VaultProviderConfig{})
	assert.Error(t, err)
}

func TestNewInvokerRequiresFunctionURL(t *testing.T) {
	_, err := NewInvoker(context.Background(), "gcp", config.VaultProviderConfig{})
	assert.Error(t, err)
}
