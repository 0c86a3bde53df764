package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HealthChecker probes the selected backend with a read-only listing call so
// readiness checks never spend tokens.
type HealthChecker struct {
	name    string
	url     string
	headers map[string]string
	client  *http.Client
}

// NewHealthChecker returns a probe for cfg's backend. Ark exposes no
// token-free endpoint, so it gets a checker that always reports healthy.
func NewHealthChecker(cfg *Config) *HealthChecker {
	h := &HealthChecker{
		name:    string(cfg.Backend),
		headers: map[string]string{},
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	switch cfg.Backend {
	case BackendOllama:
		h.url = strings.TrimRight(cfg.Ollama.Host, "/") + "/api/tags"
	case BackendOpenAI:
		h.url = "https://api.openai.com/v1/models"
		h.headers["Authorization"] = "Bearer " + cfg.OpenAI.APIKey
	case BackendAzure:
		h.url = strings.TrimRight(cfg.AzureOpenAI.Endpoint, "/") +
			"/openai/models?api-version=" + url.QueryEscape(cfg.AzureOpenAI.APIVersion)
		h.headers["api-key"] = cfg.AzureOpenAI.APIKey
	case BackendGemini:
		h.url = "https://generativelanguage.googleapis.com/v1beta/models"
		h.headers["x-goog-api-key"] = cfg.Gemini.APIKey
	}
	return h
}

// Name returns the backend label used in readiness responses.
func (h *HealthChecker) Name() string { return h.name }

// Ping issues the probe request and treats any 2xx as healthy.
func (h *HealthChecker) Ping(ctx context.Context) error {
	if h.url == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return fmt.Errorf("provider: build health request: %w", err)
	}
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("provider: %s unreachable: %w", h.name, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("provider: %s health check returned HTTP %d", h.name, resp.StatusCode)
	}
	return nil
}
