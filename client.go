package pusher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/dawitel/pusher-auth/cache"
	"github.com/rs/zerolog"
)

// Client is the SDK entry point: it triggers events over the REST API,
// authorizes socket subscriptions and validates inbound webhooks.
type Client struct {
	cfg        *Config
	logger     zerolog.Logger
	credential Credential
	masterKey  []byte
	rest       *restClient
	cache      cache.Cache
	mu         sync.RWMutex
	handler    *Handler
}

// NewClient creates a new client
func NewClient(cfg *Config, logger zerolog.Logger) (*Client, error) {
	return newClient(cfg, logger, nil)
}

// NewClientWithHTTPClient creates a new client that sends REST calls
// through httpClient
func NewClientWithHTTPClient(cfg *Config, logger zerolog.Logger, httpClient *http.Client) (*Client, error) {
	return newClient(cfg, logger, httpClient)
}

func newClient(cfg *Config, logger zerolog.Logger, httpClient *http.Client) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cacheInstance, err := newCache(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	c := &Client{
		cfg:        cfg,
		logger:     logger,
		credential: cfg.Credential(),
		masterKey:  cfg.masterKey(),
		rest:       newRESTClient(cfg, logger, httpClient),
		cache:      cacheInstance,
	}
	c.handler = c.newHandler(nil)

	logger.Info().
		Str("app_id", cfg.AppID).
		Object("credential", c.credential).
		Int("extra_credentials", len(cfg.ExtraCredentials)).
		Str("base_url", cfg.BaseURL()).
		Msg("Pusher client created")

	return c, nil
}

// Trigger publishes an event on one channel
func (c *Client) Trigger(ctx context.Context, channel, event string, data any) error {
	return c.trigger(ctx, []string{channel}, event, data, "")
}

// TriggerMulti publishes an event on several channels
func (c *Client) TriggerMulti(ctx context.Context, channels []string, event string, data any) error {
	return c.trigger(ctx, channels, event, data, "")
}

// TriggerExclusive publishes an event on one channel, excluding socketID
// from the recipients
func (c *Client) TriggerExclusive(ctx context.Context, channel, event string, data any, socketID string) error {
	return c.trigger(ctx, []string{channel}, event, data, socketID)
}

// TriggerMultiExclusive publishes an event on several channels, excluding
// socketID from the recipients
func (c *Client) TriggerMultiExclusive(ctx context.Context, channels []string, event string, data any, socketID string) error {
	return c.trigger(ctx, channels, event, data, socketID)
}

func (c *Client) trigger(ctx context.Context, channels []string, event string, data any, socketID string) error {
	if err := validateTrigger(channels, event, socketID); err != nil {
		return err
	}

	payload, err := c.encodeData(channels[0], data)
	if err != nil {
		return err
	}

	body, err := json.Marshal(triggerBody{
		Name:     event,
		Channels: channels,
		Data:     payload,
		SocketID: socketID,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal trigger request: %w", err)
	}

	_, err = c.rest.do(ctx, "trigger", MethodPost, c.appPath("/events"), nil, body)
	return err
}

// TriggerBatch publishes up to 10 events in one request
func (c *Client) TriggerBatch(ctx context.Context, events []Event) error {
	if len(events) > maxBatchEvents {
		return newValidationError(ErrTooManyBatchEvents, fmt.Sprint(len(events)))
	}

	batch := make([]batchEvent, 0, len(events))
	for _, e := range events {
		if err := validateTrigger([]string{e.Channel}, e.Name, e.SocketID); err != nil {
			return err
		}
		payload, err := c.encodeData(e.Channel, e.Data)
		if err != nil {
			return err
		}
		batch = append(batch, batchEvent{
			Channel:  e.Channel,
			Name:     e.Name,
			Data:     payload,
			SocketID: e.SocketID,
		})
	}

	body, err := json.Marshal(batchBody{Batch: batch})
	if err != nil {
		return fmt.Errorf("failed to marshal batch request: %w", err)
	}

	_, err = c.rest.do(ctx, "trigger_batch", MethodPost, c.appPath("/batch_events"), nil, body)
	return err
}

// Channels lists occupied channels
func (c *Client) Channels(ctx context.Context, params ChannelsParams) (*ChannelsList, error) {
	query := map[string]string{}
	if params.FilterByPrefix != "" {
		query["filter_by_prefix"] = params.FilterByPrefix
	}
	if len(params.Info) > 0 {
		query["info"] = strings.Join(params.Info, ",")
	}

	respBody, err := c.rest.do(ctx, "channels", MethodGet, c.appPath("/channels"), query, nil)
	if err != nil {
		return nil, err
	}

	var list ChannelsList
	if err := json.Unmarshal(respBody, &list); err != nil {
		return nil, fmt.Errorf("failed to decode channels response: %w", err)
	}
	return &list, nil
}

// Channel fetches the state of one channel
func (c *Client) Channel(ctx context.Context, name string, params ChannelParams) (*Channel, error) {
	if err := ValidateChannelName(name); err != nil {
		return nil, err
	}

	query := map[string]string{}
	if len(params.Info) > 0 {
		query["info"] = strings.Join(params.Info, ",")
	}

	respBody, err := c.rest.do(ctx, "channel", MethodGet, c.appPath("/channels/"+name), query, nil)
	if err != nil {
		return nil, err
	}

	channel := Channel{Name: name}
	if err := json.Unmarshal(respBody, &channel); err != nil {
		return nil, fmt.Errorf("failed to decode channel response: %w", err)
	}
	return &channel, nil
}

// GetChannelUsers lists the members of a presence channel
func (c *Client) GetChannelUsers(ctx context.Context, name string) (*Users, error) {
	if err := ValidateChannelName(name); err != nil {
		return nil, err
	}

	respBody, err := c.rest.do(ctx, "channel_users", MethodGet, c.appPath("/channels/"+name+"/users"), nil, nil)
	if err != nil {
		return nil, err
	}

	var users Users
	if err := json.Unmarshal(respBody, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users response: %w", err)
	}
	return &users, nil
}

// AuthorizeChannel answers a client's subscription request. params is the
// form-encoded request body; member is required for presence channels.
func (c *Client) AuthorizeChannel(params []byte, member *MemberData) ([]byte, error) {
	socketID, channel, err := ParseAuthParams(params)
	if err != nil {
		return nil, err
	}

	req := SocketAuthRequest{
		SocketID:            socketID,
		Channel:             channel,
		EncryptionMasterKey: c.masterKey,
	}
	if member != nil {
		req.ChannelData = member
	}

	auth, err := AuthenticateSocket(c.credential, req)
	if err != nil {
		return nil, err
	}
	return json.Marshal(auth)
}

// AuthenticateUser answers a client's user sign-in request. params is the
// form-encoded request body.
func (c *Client) AuthenticateUser(params []byte, userData map[string]any) ([]byte, error) {
	socketID, _, err := ParseAuthParams(params)
	if err != nil {
		return nil, err
	}

	auth, err := AuthenticateUser(c.credential, socketID, userData)
	if err != nil {
		return nil, err
	}
	return json.Marshal(auth)
}

// Webhook builds a Webhook from an inbound request and returns it only if
// it is signed by the primary or an extra credential
func (c *Client) Webhook(header http.Header, body []byte) (*Webhook, error) {
	webhook := NewWebhookFromHTTP(header, body, c.credential)
	if !webhook.IsValid(c.cfg.ExtraCredentials...) {
		return nil, ErrInvalidWebhook
	}
	return webhook, nil
}

// DecryptedEvents returns the webhook's events with encrypted channel data
// opened using the configured master key
func (c *Client) DecryptedEvents(webhook *Webhook) ([]WebhookEvent, error) {
	events, err := webhook.Events()
	if err != nil {
		return nil, err
	}
	return decryptEvents(events, c.masterKey)
}

// SetEventProcessor installs the processor used by HandleWebhook
func (c *Client) SetEventProcessor(processor EventProcessor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = c.newHandler(processor)
}

// HandleWebhook returns the HTTP handler for webhook endpoints
func (c *Client) HandleWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.mu.RLock()
		handler := c.handler
		c.mu.RUnlock()
		handler.HandleWebhook(w, r)
	}
}

// GetCache returns the replay cache instance
func (c *Client) GetCache() cache.Cache {
	return c.cache
}

// Close releases the replay cache
func (c *Client) Close() error {
	if c.cache != nil {
		if err := c.cache.Close(); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to close cache")
			return err
		}
	}
	c.logger.Info().Msg("Pusher client closed")
	return nil
}

func (c *Client) newHandler(processor EventProcessor) *Handler {
	return NewHandler(HandlerConfig{
		Credential:          c.credential,
		ExtraCredentials:    c.cfg.ExtraCredentials,
		Replay:              c.cache,
		ReplayTTL:           c.cfg.Webhook.ReplayTTL,
		EncryptionMasterKey: c.masterKey,
		MaxBodySize:         c.cfg.Webhook.MaxRequestBodySize,
	}, processor, c.logger)
}

func (c *Client) appPath(suffix string) string {
	return "/apps/" + c.cfg.AppID + suffix
}

// encodeData serializes data for channel, encrypting it for encrypted
// channels, and checks the size limit
func (c *Client) encodeData(channel string, data any) (string, error) {
	payload, err := serializeJSON(data)
	if err != nil {
		return "", fmt.Errorf("failed to serialize event data: %w", err)
	}

	if IsEncryptedChannel(channel) {
		if c.masterKey == nil {
			return "", ErrInvalidMasterKey
		}
		sealed, err := EncryptPayload(channel, []byte(payload), c.masterKey)
		if err != nil {
			return "", err
		}
		payload = string(sealed)
	}

	if err := ValidateData([]byte(payload), c.cfg.MaxMessagePayloadKB); err != nil {
		return "", err
	}
	return payload, nil
}
