package notify_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alejandrodnm/ethcast/internal/adapters/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlack_Notify_PostsText(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	require.NoError(t, notify.NewSlack(srv.URL).Notify(context.Background(), makeReport()))
	assert.Contains(t, got["text"], "ETHUSDT $3000.00 (Bull Low Vol)")
	assert.Contains(t, got["text"], "15min: $3015.00 (+0.50%) [adaptive]")
	assert.Contains(t, got["text"], "Validated this run: 2")
}

func TestSlack_Notify_BadRequestNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("no_service"))
	}))
	defer srv.Close()

	err := notify.NewSlack(srv.URL).Notify(context.Background(), makeReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no_service")
	assert.Equal(t, int32(1), calls.Load())
}
