package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/finbound/defi-assistant/pkg/config"
)

// Notifier pushes status messages into the user-facing chat stream. Delivery
// is best effort: failures are logged and never propagate into the caller's
// control flow.
type Notifier interface {
	StreamUpdate(ctx context.Context, userID, message string)
}

// StreamClient posts stream updates to the chat application's internal API
type StreamClient struct {
	appURL string
	apiKey string
	http   *http.Client
	logger *zap.Logger
}

// NewStreamClient creates a stream update client. An empty app URL disables
// delivery; updates are logged and dropped.
func NewStreamClient(cfg *config.StreamConfig, logger *zap.Logger) *StreamClient {
	return &StreamClient{
		appURL: cfg.AppURL,
		apiKey: cfg.APIKey,
		http:   &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

// StreamUpdate sends one message for a user, fire-and-forget
func (c *StreamClient) StreamUpdate(ctx context.Context, userID, message string) {
	if c.appURL == "" {
		c.logger.Debug("Stream updates disabled, dropping message",
			zap.String("user_id", userID))
		return
	}

	if err := c.send(ctx, userID, message); err != nil {
		c.logger.Error("Failed to deliver stream update",
			zap.String("user_id", userID),
			zap.Error(err))
	}
}

func (c *StreamClient) send(ctx context.Context, userID, message string) error {
	payload, err := json.Marshal(map[string]string{
		"userId":  userID,
		"message": message,
	})
	if err != nil {
		return fmt.Errorf("failed to encode update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.appURL+"/api/stream-update", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("stream endpoint returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
