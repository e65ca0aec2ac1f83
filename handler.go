package pusher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dawitel/pusher-auth/cache"
	"github.com/rs/zerolog"
)

// EventProcessor handles the events of a validated webhook
type EventProcessor interface {
	ProcessEvent(ctx context.Context, event WebhookEvent) error
}

// EventProcessorFunc adapts a function to EventProcessor
type EventProcessorFunc func(ctx context.Context, event WebhookEvent) error

// ProcessEvent calls f
func (f EventProcessorFunc) ProcessEvent(ctx context.Context, event WebhookEvent) error {
	return f(ctx, event)
}

// HandlerConfig configures a webhook Handler
type HandlerConfig struct {
	Credential          Credential
	ExtraCredentials    []Credential
	Replay              cache.Cache
	ReplayTTL           time.Duration
	EncryptionMasterKey []byte
	MaxBodySize         int64
}

// Handler handles HTTP webhook requests
type Handler struct {
	cfg       HandlerConfig
	processor EventProcessor
	logger    zerolog.Logger
}

// NewHandler creates a new webhook handler
func NewHandler(cfg HandlerConfig, processor EventProcessor, logger zerolog.Logger) *Handler {
	if cfg.Replay == nil {
		cfg.Replay = cache.NewNoOpCache()
	}
	if cfg.ReplayTTL <= 0 {
		cfg.ReplayTTL = DefaultReplayTTL
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultMaxRequestBodySize
	}

	return &Handler{
		cfg:       cfg,
		processor: processor,
		logger:    logger,
	}
}

// HandleWebhook handles incoming webhook requests
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error().
				Interface("panic", rec).
				Msg("Panic recovered in webhook handler")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
	}()

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limitedBody := http.MaxBytesReader(w, r.Body, h.cfg.MaxBodySize)
	body, err := io.ReadAll(limitedBody)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.logger.Warn().
				Int64("max_size", h.cfg.MaxBodySize).
				Msg("Webhook request body exceeds maximum size")
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		h.logger.Error().Err(err).Msg("Failed to read webhook body")
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	if len(body) == 0 {
		h.logger.Warn().Msg("Empty webhook body received")
		http.Error(w, "Empty body", http.StatusBadRequest)
		return
	}

	webhook := NewWebhookFromHTTP(r.Header, body, h.cfg.Credential)

	if !webhook.IsContentTypeValid() {
		h.logger.Warn().
			Str("content_type", webhook.ContentType()).
			Msg("Invalid webhook content type")
		http.Error(w, "Unsupported content type", http.StatusUnsupportedMediaType)
		return
	}

	if !webhook.IsValid(h.cfg.ExtraCredentials...) {
		h.logger.Warn().
			Str("key", webhook.Key()).
			Bool("body_valid", webhook.IsBodyValid()).
			Msg("Invalid webhook signature")
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	ctx := r.Context()
	deliveryID := webhook.Signature()

	processed, err := h.cfg.Replay.IsProcessed(ctx, deliveryID)
	if err != nil {
		h.logger.Warn().
			Err(err).
			Msg("Failed to check if webhook is processed, continuing")
	} else if processed {
		h.logger.Debug().Msg("Webhook already processed, skipping")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
		return
	}

	if err := h.processWebhook(ctx, webhook); err != nil {
		h.logger.Error().Err(err).Msg("Failed to process webhook")
		http.Error(w, "Failed to process webhook", http.StatusInternalServerError)
		return
	}

	if err := h.cfg.Replay.MarkProcessed(ctx, deliveryID, h.cfg.ReplayTTL); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to mark webhook as processed")
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// processWebhook hands each event to the processor. Failures of individual
// events are logged and do not fail the delivery.
func (h *Handler) processWebhook(ctx context.Context, webhook *Webhook) error {
	if h.processor == nil {
		return fmt.Errorf("event processor not configured")
	}

	events, err := webhook.Events()
	if err != nil {
		return err
	}

	if len(events) == 0 {
		h.logger.Debug().Msg("Webhook received with no events")
		return nil
	}

	h.logger.Debug().
		Int("event_count", len(events)).
		Msg("Processing webhook events")

	for _, event := range events {
		event, err := decryptEvent(event, h.cfg.EncryptionMasterKey)
		if err != nil {
			h.logger.Error().Err(err).
				Str("channel", event.Channel).
				Msg("Failed to decrypt event")
			continue
		}

		if err := h.processor.ProcessEvent(ctx, event); err != nil {
			h.logger.Error().Err(err).
				Str("name", event.Name).
				Str("channel", event.Channel).
				Msg("Failed to process event")
		}
	}

	return nil
}

// decryptEvents opens the data of every event on an encrypted channel
func decryptEvents(events []WebhookEvent, masterKey []byte) ([]WebhookEvent, error) {
	out := make([]WebhookEvent, 0, len(events))
	for _, event := range events {
		decrypted, err := decryptEvent(event, masterKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt event on %s: %w", event.Channel, err)
		}
		out = append(out, decrypted)
	}
	return out, nil
}

// decryptEvent opens event.Data when the event is on an encrypted channel
// and a master key is available; other events pass through unchanged.
func decryptEvent(event WebhookEvent, masterKey []byte) (WebhookEvent, error) {
	if !IsEncryptedChannel(event.Channel) || event.Data == "" || masterKey == nil {
		return event, nil
	}
	plain, err := DecryptPayload(event.Channel, []byte(event.Data), masterKey)
	if err != nil {
		return event, err
	}
	event.Data = string(plain)
	return event, nil
}
