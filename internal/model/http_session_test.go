package model

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInferenceServer(t *testing.T, loaded bool, outputs []Tensor) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/models/face-detect/load", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /v1/models/face-detect/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(healthResponse{Status: "healthy", ModelLoaded: loaded})
	})
	mux.HandleFunc("POST /v1/models/face-detect/infer", func(w http.ResponseWriter, r *http.Request) {
		var req inferRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "face-detect", req.Model)
		json.NewEncoder(w).Encode(inferResponse{Outputs: outputs})
	})
	return httptest.NewServer(mux)
}

func TestHTTPSessionLifecycle(t *testing.T) {
	outputs := []Tensor{{Shape: []int64{1, 2}, Data: []float32{0.1, 0.9}}}
	srv := newInferenceServer(t, true, outputs)
	defer srv.Close()

	s := NewHTTPSession(HTTPSessionConfig{Endpoint: srv.URL, Name: "face-detect"})
	assert.False(t, s.IsReady())

	_, err := s.Run(context.Background(), Tensor{})
	assert.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, s.Initialize(context.Background()))
	assert.True(t, s.IsReady())

	got, err := s.Run(context.Background(), Tensor{Shape: []int64{1}, Data: []float32{1}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, outputs[0].Data, got[0].Data)
}

func TestHTTPSessionUnhealthyModel(t *testing.T) {
	srv := newInferenceServer(t, false, nil)
	defer srv.Close()

	s := NewHTTPSession(HTTPSessionConfig{Endpoint: srv.URL, Name: "face-detect"})
	err := s.Initialize(context.Background())
	require.Error(t, err)
	assert.False(t, s.IsReady())
}

func TestHTTPSessionCloseIsIdempotent(t *testing.T) {
	srv := newInferenceServer(t, true, nil)
	defer srv.Close()

	s := NewHTTPSession(HTTPSessionConfig{Endpoint: srv.URL, Name: "face-detect"})
	require.NoError(t, s.Initialize(context.Background()))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.False(t, s.IsReady())

	_, err := s.Run(context.Background(), Tensor{})
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestTensorElements(t *testing.T) {
	assert.Equal(t, int64(0), Tensor{}.Elements())
	assert.Equal(t, int64(6), Tensor{Shape: []int64{1, 2, 3}}.Elements())
}
