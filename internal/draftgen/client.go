package draftgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/talenthub/performance-management/internal"
)

// TextClient is the boundary to the external text-generation service. The
// service is treated as unreliable; callers must be prepared for any error.
type TextClient interface {
	Generate(ctx context.Context, category string, bundle *ContextBundle) (string, error)
}

// HTTPTextClient calls the configured text-generation API with a bounded
// timeout. No transaction or lock is ever held across this call.
type HTTPTextClient struct {
	apiURL  string
	apiKey  string
	model   string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

func NewHTTPTextClient(cfg internal.DraftGenConfig, logger *slog.Logger) *HTTPTextClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPTextClient{
		apiURL:  cfg.APIURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *HTTPTextClient) Generate(ctx context.Context, category string, bundle *ContextBundle) (string, error) {
	if c.apiURL == "" {
		return "", fmt.Errorf("text service not configured")
	}

	payload := map[string]interface{}{
		"model":    c.model,
		"category": category,
		"context":  bundle,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal draft request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.apiURL+"/v1/drafts", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create draft request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("draft request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("text service returned status %d", resp.StatusCode)
	}

	var apiResponse struct {
		Data struct {
			Content string `json:"content"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return "", fmt.Errorf("failed to decode draft response: %w", err)
	}
	if apiResponse.Data.Content == "" {
		return "", ErrEmptyDraft
	}

	c.logger.Debug("draft generated by text service", "category", category, "model", c.model)
	return apiResponse.Data.Content, nil
}
