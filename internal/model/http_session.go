package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// HTTPSession runs inference against a remote tensor-serving sidecar.
// The sidecar owns the model weights and runtime; this client only ships
// input tensors and receives output tensors, so the numeric contract
// stays identical regardless of where the model executes.
type HTTPSession struct {
	endpoint string
	name     string
	client   *http.Client

	mu     sync.RWMutex
	ready  bool
	closed bool
}

// HTTPSessionConfig holds configuration for a remote model session.
type HTTPSessionConfig struct {
	// Endpoint is the base URL of the inference service.
	Endpoint string
	// Name identifies the model on the service (e.g. "face-detect").
	Name string
	// Timeout bounds a single inference round trip.
	Timeout time.Duration
}

type healthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Device      string `json:"device"`
}

type inferRequest struct {
	Model string `json:"model"`
	Input Tensor `json:"input"`
}

type inferResponse struct {
	Outputs         []Tensor `json:"outputs"`
	InferenceTimeMs float32  `json:"inference_time_ms"`
}

// NewHTTPSession creates a session client for a remote model.
func NewHTTPSession(cfg HTTPSessionConfig) *HTTPSession {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPSession{
		endpoint: cfg.Endpoint,
		name:     cfg.Name,
		client:   &http.Client{Timeout: timeout},
	}
}

// Initialize asks the service to load the model and verifies readiness.
func (s *HTTPSession) Initialize(ctx context.Context) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrSessionClosed
	}
	s.mu.RUnlock()

	url := fmt.Sprintf("%s/v1/models/%s/load", s.endpoint, s.name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create load request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to load model %s: %w", s.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("model %s load returned status %d: %s", s.name, resp.StatusCode, string(body))
	}

	return s.checkHealth(ctx)
}

// IsReady reports whether the remote model is loaded.
func (s *HTTPSession) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready && !s.closed
}

// Run executes one inference pass against the remote model.
func (s *HTTPSession) Run(ctx context.Context, input Tensor) ([]Tensor, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrSessionClosed
	}
	if !s.ready {
		s.mu.RUnlock()
		return nil, ErrNotInitialized
	}
	s.mu.RUnlock()

	payload, err := json.Marshal(inferRequest{Model: s.name, Input: input})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal inference request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/models/%s/infer", s.endpoint, s.name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create inference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("inference for model %s returned status %d: %s", s.name, resp.StatusCode, string(body))
	}

	var result inferResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode inference response: %w", err)
	}
	return result.Outputs, nil
}

// Close marks the session closed. It never fails and is safe to call twice.
func (s *HTTPSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.ready = false
	return nil
}

func (s *HTTPSession) checkHealth(ctx context.Context) error {
	url := fmt.Sprintf("%s/v1/models/%s/health", s.endpoint, s.name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.setReady(false)
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.setReady(false)
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		s.setReady(false)
		return fmt.Errorf("failed to decode health response: %w", err)
	}

	loaded := health.Status == "healthy" && health.ModelLoaded
	s.setReady(loaded)
	if !loaded {
		return fmt.Errorf("model %s unhealthy: status=%s, model_loaded=%v", s.name, health.Status, health.ModelLoaded)
	}
	return nil
}

func (s *HTTPSession) setReady(ready bool) {
	s.mu.Lock()
	s.ready = ready
	s.mu.Unlock()
}

var _ Session = (*HTTPSession)(nil)
