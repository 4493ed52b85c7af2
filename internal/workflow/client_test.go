package workflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoke(t *testing.T) {
	var (
		gotPath, gotAuth string
		gotPayload       map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		_, _ = w.Write([]byte(`{"batch_id":"b-1","claims":3}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/functions/v1", "service-key", srv.Client(), nil, nil)
	resp, err := client.Invoke(context.Background(), "ndia-payment-processor", map[string]string{
		"action":          "auto_process_monthly",
		"organization_id": "homelander",
	})
	require.NoError(t, err)

	assert.Equal(t, "/functions/v1/ndia-payment-processor", gotPath)
	assert.Equal(t, "Bearer service-key", gotAuth)
	assert.Equal(t, "auto_process_monthly", gotPayload["action"])
	assert.Equal(t, "homelander", gotPayload["organization_id"])

	assert.True(t, resp.OK)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"batch_id": "b-1", "claims": float64(3)}, resp.Data)
}

func TestInvoke_FailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"no eligible tenancies"}`))
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL, "", srv.Client(), nil, nil).Invoke(context.Background(), "fn", nil)
	require.NoError(t, err)
	assert.False(t, resp.OK)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, map[string]any{"error": "no eligible tenancies"}, resp.Data)
}

func TestInvoke_TextBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("accepted"))
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL, "", srv.Client(), nil, nil).Invoke(context.Background(), "fn", struct{}{})
	require.NoError(t, err)
	assert.Equal(t, "accepted", resp.Data)
}

func TestInvoke_NotConfigured(t *testing.T) {
	_, err := NewClient("", "", nil, nil, nil).Invoke(context.Background(), "fn", nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestInvoke_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, "", nil, nil, nil).Invoke(context.Background(), "fn", nil)
	assert.Error(t, err)
}
