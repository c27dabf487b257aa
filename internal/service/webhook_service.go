package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/harmonia-studio/harmonia-api/internal/dto"
	"github.com/harmonia-studio/harmonia-api/internal/models"
	"github.com/harmonia-studio/harmonia-api/pkg/config"
	appErrors "github.com/harmonia-studio/harmonia-api/pkg/errors"
	"github.com/harmonia-studio/harmonia-api/pkg/jobs"
	"github.com/harmonia-studio/harmonia-api/pkg/retry"
)

type deliveryRepository interface {
	Create(ctx context.Context, delivery *models.WebhookDelivery) error
	RecordOutcome(ctx context.Context, id string, status models.DeliveryStatus, attempts int, lastError *string) error
	List(ctx context.Context, status *models.DeliveryStatus, page, pageSize int) ([]models.WebhookDelivery, int, error)
}

type webhookSettingsReader interface {
	WebhookURL(ctx context.Context) (string, error)
	NotificationsEnabled(ctx context.Context) (bool, error)
}

type deliveryMetricsRecorder interface {
	RecordWebhookDelivery(status models.DeliveryStatus)
}

type deliveryJob struct {
	DeliveryID string
	URL        string
	Body       []byte
}

// WebhookService dispatches outbound event notifications. Events are queued
// and posted by background workers; each delivery's fate is persisted so
// operators can see exactly what reached the destination.
type WebhookService struct {
	deliveries deliveryRepository
	settings   webhookSettingsReader
	httpClient *http.Client
	queue      *jobs.Queue
	metrics    deliveryMetricsRecorder
	logger     *zap.Logger
	cfg        config.WebhookConfig
	policy     retry.Policy
}

// SetMetrics attaches an optional metrics recorder.
func (s *WebhookService) SetMetrics(m deliveryMetricsRecorder) {
	s.metrics = m
}

// NewWebhookService constructs a WebhookService with its own worker queue.
func NewWebhookService(deliveries deliveryRepository, settings webhookSettingsReader, logger *zap.Logger, cfg config.WebhookConfig) *WebhookService {
	if logger == nil {
		logger = zap.NewNop()
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 10 * time.Second
	}

	s := &WebhookService{
		deliveries: deliveries,
		settings:   settings,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
		cfg:        cfg,
		policy: retry.Policy{
			MaxAttempts: cfg.MaxAttempts,
			BaseDelay:   cfg.BaseDelay,
			MaxDelay:    cfg.MaxDelay,
		},
	}
	s.queue = jobs.NewQueue("webhook-dispatch", s.process, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.QueueSize,
		Logger:     logger,
	})
	return s
}

// Start launches the delivery workers.
func (s *WebhookService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop waits for queued deliveries to drain, then stops the workers.
func (s *WebhookService) Stop() {
	s.queue.Stop()
}

// Emit records and queues an event for delivery. Emission never blocks the
// business operation that triggered it: failures are logged and persisted,
// not returned to the caller's client.
func (s *WebhookService) Emit(ctx context.Context, eventType string, data map[string]interface{}) {
	if !s.cfg.Enabled {
		return
	}
	enabled, err := s.settings.NotificationsEnabled(ctx)
	if err != nil {
		s.logger.Warn("failed to read notification toggle", zap.Error(err))
		return
	}
	if !enabled {
		return
	}
	url, err := s.settings.WebhookURL(ctx)
	if err != nil {
		s.logger.Warn("failed to read webhook url", zap.Error(err))
		return
	}
	if url == "" {
		return
	}

	body, err := json.Marshal(normalizeEvent(models.WebhookEvent{
		Type: eventType,
		Data: data,
	}))
	if err != nil {
		s.logger.Error("failed to encode webhook event", zap.String("event", eventType), zap.Error(err))
		return
	}

	delivery := &models.WebhookDelivery{
		EventType: eventType,
		URL:       url,
		Payload:   body,
	}
	if err := s.deliveries.Create(ctx, delivery); err != nil {
		s.logger.Error("failed to persist webhook delivery", zap.String("event", eventType), zap.Error(err))
		return
	}

	job := jobs.Job{
		ID:   uuid.NewString(),
		Type: eventType,
		Payload: deliveryJob{
			DeliveryID: delivery.ID,
			URL:        url,
			Body:       body,
		},
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Error("failed to enqueue webhook delivery",
			zap.String("event", eventType),
			zap.String("delivery_id", delivery.ID),
			zap.Error(err))
		s.recordOutcome(context.WithoutCancel(ctx), delivery.ID, models.DeliveryFailed, 0, err)
	}
}

// SendTest posts a probe event synchronously and reports the outcome.
func (s *WebhookService) SendTest(ctx context.Context, url string) (*dto.TestWebhookResponse, error) {
	if !s.cfg.Enabled {
		return nil, appErrors.ErrWebhookDisabled
	}

	body, err := json.Marshal(normalizeEvent(models.WebhookEvent{
		Type: models.EventTest,
		Data: map[string]interface{}{"message": "Harmonia webhook test"},
	}))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode test event")
	}

	delivery := &models.WebhookDelivery{
		EventType: models.EventTest,
		URL:       url,
		Payload:   body,
	}
	if err := s.deliveries.Create(ctx, delivery); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist test delivery")
	}

	status, attempts, sendErr := s.send(ctx, url, body)
	s.recordOutcome(ctx, delivery.ID, status, attempts, sendErr)

	resp := &dto.TestWebhookResponse{Status: string(status), Attempts: attempts}
	if sendErr != nil {
		resp.Error = sendErr.Error()
	}
	return resp, nil
}

// ListDeliveries exposes the delivery log to the back office.
func (s *WebhookService) ListDeliveries(ctx context.Context, status *models.DeliveryStatus, page, pageSize int) ([]models.WebhookDelivery, int, error) {
	deliveries, total, err := s.deliveries.List(ctx, status, page, pageSize)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list webhook deliveries")
	}
	return deliveries, total, nil
}

func (s *WebhookService) process(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(deliveryJob)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}

	status, attempts, err := s.send(ctx, payload.URL, payload.Body)
	s.recordOutcome(ctx, payload.DeliveryID, status, attempts, err)
	if err != nil {
		return fmt.Errorf("deliver %s: %w", job.Type, err)
	}
	return nil
}

// send posts the payload with backoff and classifies the result. A response
// in the 2xx range confirms receipt; when confirmation is disabled any
// completed POST counts as sent without confirmation.
func (s *WebhookService) send(ctx context.Context, url string, body []byte) (models.DeliveryStatus, int, error) {
	result := retry.Do(ctx, func(ctx context.Context) error {
		return s.post(ctx, url, body)
	}, s.policy)

	if result.Succeeded() {
		if s.cfg.ConfirmDelivery {
			return models.DeliveryConfirmed, result.Attempts, nil
		}
		return models.DeliverySentUnconfirmed, result.Attempts, nil
	}
	return models.DeliveryFailed, result.Attempts, result.Err
}

func (s *WebhookService) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "harmonia-webhook/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	// Without delivery confirmation the response status is not interpreted:
	// a completed POST counts as sent regardless of what came back.
	if s.cfg.ConfirmDelivery && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		return fmt.Errorf("webhook destination returned %d", resp.StatusCode)
	}
	return nil
}

func (s *WebhookService) recordOutcome(ctx context.Context, deliveryID string, status models.DeliveryStatus, attempts int, sendErr error) {
	if s.metrics != nil {
		s.metrics.RecordWebhookDelivery(status)
	}
	var lastError *string
	if sendErr != nil {
		msg := sendErr.Error()
		lastError = &msg
	}
	if err := s.deliveries.RecordOutcome(ctx, deliveryID, status, attempts, lastError); err != nil {
		s.logger.Error("failed to record webhook outcome",
			zap.String("delivery_id", deliveryID),
			zap.Error(err))
	}
}

// normalizeEvent fills the fields every receiver can rely on: a payload
// always carries a type, an RFC3339 UTC timestamp and a data object.
func normalizeEvent(event models.WebhookEvent) models.WebhookEvent {
	if event.Type == "" {
		event.Type = models.EventGeneric
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Data == nil {
		event.Data = map[string]interface{}{}
	}
	return event
}
