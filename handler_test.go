package pusher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dawitel/pusher-auth/cache"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProcessor struct {
	mu     sync.Mutex
	events []WebhookEvent
	err    error
}

func (p *recordingProcessor) ProcessEvent(ctx context.Context, event WebhookEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingProcessor) received() []WebhookEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]WebhookEvent(nil), p.events...)
}

func newWebhookRequest(body, key, signature, contentType string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("X-Pusher-Key", key)
	req.Header.Set("X-Pusher-Signature", signature)
	req.Header.Set("Content-Type", contentType)
	return req
}

func TestHandler_HandleWebhook(t *testing.T) {
	validSig := Sign(testSecret, testWebhookBody)

	newHandler := func(processor EventProcessor, replay cache.Cache) *Handler {
		return NewHandler(HandlerConfig{
			Credential:       testCredential,
			ExtraCredentials: []Credential{{Key: "rotated-key", Secret: "rotated-secret"}},
			Replay:           replay,
			MaxBodySize:      1024,
		}, processor, zerolog.Nop())
	}

	t.Run("dispatches events of a valid webhook", func(t *testing.T) {
		processor := &recordingProcessor{}
		rec := httptest.NewRecorder()

		newHandler(processor, nil).HandleWebhook(rec, newWebhookRequest(testWebhookBody, testKey, validSig, "application/json"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []WebhookEvent{{Name: "channel_occupied", Channel: "test_channel"}}, processor.received())
	})

	t.Run("accepts rotated credential", func(t *testing.T) {
		processor := &recordingProcessor{}
		rec := httptest.NewRecorder()
		sig := Sign("rotated-secret", testWebhookBody)

		newHandler(processor, nil).HandleWebhook(rec, newWebhookRequest(testWebhookBody, "rotated-key", sig, "application/json"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, processor.received(), 1)
	})

	t.Run("rejects bad signature", func(t *testing.T) {
		processor := &recordingProcessor{}
		rec := httptest.NewRecorder()

		newHandler(processor, nil).HandleWebhook(rec, newWebhookRequest(testWebhookBody, testKey, Sign("nope", testWebhookBody), "application/json"))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, processor.received())
	})

	t.Run("rejects wrong content type", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newHandler(&recordingProcessor{}, nil).HandleWebhook(rec, newWebhookRequest(testWebhookBody, testKey, validSig, "text/plain"))
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})

	t.Run("rejects non-POST", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newHandler(&recordingProcessor{}, nil).HandleWebhook(rec, httptest.NewRequest(http.MethodGet, "/webhook", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("rejects empty body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newHandler(&recordingProcessor{}, nil).HandleWebhook(rec, newWebhookRequest("", testKey, validSig, "application/json"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects oversize body", func(t *testing.T) {
		body := `{"pad":"` + strings.Repeat("x", 2048) + `"}`
		rec := httptest.NewRecorder()
		newHandler(&recordingProcessor{}, nil).HandleWebhook(rec, newWebhookRequest(body, testKey, Sign(testSecret, body), "application/json"))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("replayed delivery is processed once", func(t *testing.T) {
		processor := &recordingProcessor{}
		replay := cache.NewMemoryCache(100, time.Minute, false)
		defer replay.Close()
		handler := newHandler(processor, replay)

		for i := 0; i < 3; i++ {
			rec := httptest.NewRecorder()
			handler.HandleWebhook(rec, newWebhookRequest(testWebhookBody, testKey, validSig, "application/json"))
			assert.Equal(t, http.StatusOK, rec.Code)
		}

		assert.Len(t, processor.received(), 1)
	})

	t.Run("processor errors do not fail the delivery", func(t *testing.T) {
		processor := &recordingProcessor{err: errors.New("boom")}
		rec := httptest.NewRecorder()

		newHandler(processor, nil).HandleWebhook(rec, newWebhookRequest(testWebhookBody, testKey, validSig, "application/json"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, processor.received(), 1)
	})

	t.Run("missing processor", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newHandler(nil, nil).HandleWebhook(rec, newWebhookRequest(testWebhookBody, testKey, validSig, "application/json"))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("recovers from panics", func(t *testing.T) {
		processor := EventProcessorFunc(func(ctx context.Context, event WebhookEvent) error {
			panic("processor exploded")
		})
		rec := httptest.NewRecorder()

		newHandler(processor, nil).HandleWebhook(rec, newWebhookRequest(testWebhookBody, testKey, validSig, "application/json"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHandler_DecryptsEncryptedEvents(t *testing.T) {
	channel := "private-encrypted-room"
	sealed, err := EncryptPayload(channel, []byte(`{"secret":"value"}`), testMasterKey)
	require.NoError(t, err)

	body, err := jsonString(map[string]any{
		"time_ms": 1327078148132,
		"events": []map[string]string{
			{"name": "client_event", "channel": channel, "event": "client-msg", "data": string(sealed), "socket_id": "1.1"},
		},
	})
	require.NoError(t, err)

	processor := &recordingProcessor{}
	handler := NewHandler(HandlerConfig{
		Credential:          testCredential,
		EncryptionMasterKey: testMasterKey,
	}, processor, zerolog.Nop())

	rec := httptest.NewRecorder()
	handler.HandleWebhook(rec, newWebhookRequest(body, testKey, Sign(testSecret, body), "application/json"))

	require.Equal(t, http.StatusOK, rec.Code)
	events := processor.received()
	require.Len(t, events, 1)
	assert.Equal(t, `{"secret":"value"}`, events[0].Data)
	assert.Equal(t, "client-msg", events[0].Event)
}

func jsonString(v any) (string, error) {
	return serializeJSON(v)
}
