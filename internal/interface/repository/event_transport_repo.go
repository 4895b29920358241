package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"flightops-service/internal/domain/entity"
	"flightops-service/internal/domain/repository"
	"flightops-service/pkg/logger"
)

// WebhookEventPublisher pushes domain events to the external transport over
// HTTP. The partition key travels in a header; the transport is assumed to
// deliver at least once, in order per key.
type WebhookEventPublisher struct {
	logger      logger.Logger
	baseURL     string
	bearerToken string
	client      *http.Client
}

// NewWebhookEventPublisher creates a new webhook event publisher
func NewWebhookEventPublisher(baseURL, bearerToken string, logger logger.Logger) repository.EventPublisher {
	return &WebhookEventPublisher{
		logger:      logger,
		baseURL:     baseURL,
		bearerToken: bearerToken,
		client:      &http.Client{Timeout: 30 * time.Second},
	}
}

// Publish sends one event to the transport, keyed for partitioning
func (p *WebhookEventPublisher) Publish(ctx context.Context, key string, event entity.DomainEvent) error {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/events", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+p.bearerToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Partition-Key", key)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusAccepted {
		var errorBody map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errorBody)
		return fmt.Errorf("event transport returned status %d: %v", resp.StatusCode, errorBody)
	}

	p.logger.Debug("Event published", "type", event.Type, "key", key, "sequence", event.Sequence)
	return nil
}

// LogEventPublisher writes events to the log instead of a transport; used
// when no EVENT_ENDPOINT is configured
type LogEventPublisher struct {
	logger logger.Logger
}

// NewLogEventPublisher creates a publisher that only logs events
func NewLogEventPublisher(logger logger.Logger) repository.EventPublisher {
	return &LogEventPublisher{logger: logger}
}

// Publish logs the event
func (p *LogEventPublisher) Publish(ctx context.Context, key string, event entity.DomainEvent) error {
	p.logger.Info("Event emitted", "type", event.Type, "key", key, "sequence", event.Sequence)
	return nil
}
