package pusher

import (
	"crypto/tls"
	"errors"
	"fmt"
	"time"
)

const (
	// Default values
	DefaultHost                = "api.pusherapp.com"
	DefaultMaxMessagePayloadKB = 10
	DefaultMaxRequestBodySize  = 1 * 1024 * 1024 // 1MB
	DefaultReplayTTL           = 5 * time.Minute

	// Circuit breaker defaults
	DefaultCircuitBreakerMaxRequests = 5
	DefaultCircuitBreakerInterval    = 60 * time.Second
	DefaultCircuitBreakerTimeout     = 30 * time.Second
	DefaultCircuitBreakerThreshold   = 0.7

	// Retry defaults
	DefaultRetryInitialDelay = 1 * time.Second
	DefaultRetryMaxDelay     = 30 * time.Second
	DefaultRetryMaxAttempts  = 3
	DefaultRetryMultiplier   = 2.0

	// HTTP client defaults
	DefaultHTTPTimeout = 5 * time.Second

	// Redis defaults
	DefaultRedisPoolSize     = 10
	DefaultRedisMinIdleConns = 5
	DefaultRedisDialTimeout  = 5 * time.Second
	DefaultRedisReadTimeout  = 3 * time.Second
	DefaultRedisWriteTimeout = 3 * time.Second

	// Memory cache defaults
	DefaultMemoryCacheMaxSize         = 10000
	DefaultMemoryCacheCleanupInterval = 1 * time.Minute
)

// Config represents the main configuration for the SDK
type Config struct {
	AppID  string
	Key    string
	Secret string

	// ExtraCredentials are accepted on inbound webhooks in addition to
	// Key/Secret, for key rollover.
	ExtraCredentials []Credential

	Host    string
	Cluster string
	Secure  bool

	// EncryptionMasterKey is the base64 encoded 32 byte key for
	// private-encrypted- channels.
	EncryptionMasterKey string

	MaxMessagePayloadKB int

	Cache CacheConfig

	Webhook WebhookConfig

	CircuitBreaker CircuitBreakerConfig

	Retry RetryConfig

	HTTPClient HTTPClientConfig

	Logging LoggingConfig
}

// CacheConfig configures the webhook replay cache
type CacheConfig struct {
	Enabled bool
	Type    string // "redis" or "memory"
	Redis   RedisConfig
	Memory  MemoryConfig
}

// RedisConfig configures Redis connection
type RedisConfig struct {
	Address       string
	Password      string
	DB            int
	PoolSize      int
	MinIdleConns  int
	DialTimeout   time.Duration
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	EnableTLS     bool
	TLSSkipVerify bool
	TLSConfig     *tls.Config
}

// MemoryConfig configures in-memory cache
type MemoryConfig struct {
	MaxSize         int
	CleanupInterval time.Duration
	EnableLRU       bool
}

// WebhookConfig configures inbound webhook handling
type WebhookConfig struct {
	MaxRequestBodySize int64
	ReplayTTL          time.Duration
}

// CircuitBreakerConfig configures circuit breaker
type CircuitBreakerConfig struct {
	MaxRequests int
	Interval    time.Duration
	Timeout     time.Duration
	Threshold   float64 // Failure ratio threshold (0.0-1.0)
}

// RetryConfig configures retry strategy
type RetryConfig struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
	Multiplier   float64
}

// HTTPClientConfig configures HTTP client
type HTTPClientConfig struct {
	Timeout time.Duration
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "json", "console"
}

// ConfigBuilder provides a fluent interface for building Config
type ConfigBuilder struct {
	config *Config
}

// NewConfig creates a new ConfigBuilder with defaults
func NewConfig() *ConfigBuilder {
	return &ConfigBuilder{
		config: &Config{
			Secure:              true,
			MaxMessagePayloadKB: DefaultMaxMessagePayloadKB,
			Cache: CacheConfig{
				Enabled: false,
				Type:    "memory",
				Redis: RedisConfig{
					PoolSize:     DefaultRedisPoolSize,
					MinIdleConns: DefaultRedisMinIdleConns,
					DialTimeout:  DefaultRedisDialTimeout,
					ReadTimeout:  DefaultRedisReadTimeout,
					WriteTimeout: DefaultRedisWriteTimeout,
				},
				Memory: MemoryConfig{
					MaxSize:         DefaultMemoryCacheMaxSize,
					CleanupInterval: DefaultMemoryCacheCleanupInterval,
					EnableLRU:       false,
				},
			},
			Webhook: WebhookConfig{
				MaxRequestBodySize: DefaultMaxRequestBodySize,
				ReplayTTL:          DefaultReplayTTL,
			},
			CircuitBreaker: CircuitBreakerConfig{
				MaxRequests: DefaultCircuitBreakerMaxRequests,
				Interval:    DefaultCircuitBreakerInterval,
				Timeout:     DefaultCircuitBreakerTimeout,
				Threshold:   DefaultCircuitBreakerThreshold,
			},
			Retry: RetryConfig{
				InitialDelay: DefaultRetryInitialDelay,
				MaxDelay:     DefaultRetryMaxDelay,
				MaxAttempts:  DefaultRetryMaxAttempts,
				Multiplier:   DefaultRetryMultiplier,
			},
			HTTPClient: HTTPClientConfig{
				Timeout: DefaultHTTPTimeout,
			},
			Logging: LoggingConfig{
				Level:  "info",
				Format: "json",
			},
		},
	}
}

// WithAppID sets the application id
func (b *ConfigBuilder) WithAppID(appID string) *ConfigBuilder {
	b.config.AppID = appID
	return b
}

// WithCredentials sets the primary key and secret
func (b *ConfigBuilder) WithCredentials(key, secret string) *ConfigBuilder {
	b.config.Key = key
	b.config.Secret = secret
	return b
}

// WithExtraCredential adds a key/secret pair accepted on inbound webhooks
func (b *ConfigBuilder) WithExtraCredential(key, secret string) *ConfigBuilder {
	b.config.ExtraCredentials = append(b.config.ExtraCredentials, Credential{Key: key, Secret: secret})
	return b
}

// WithHost sets the API host, overriding the cluster
func (b *ConfigBuilder) WithHost(host string) *ConfigBuilder {
	b.config.Host = host
	return b
}

// WithCluster sets the cluster name used to derive the API host
func (b *ConfigBuilder) WithCluster(cluster string) *ConfigBuilder {
	b.config.Cluster = cluster
	return b
}

// WithSecure selects https (true) or http (false)
func (b *ConfigBuilder) WithSecure(secure bool) *ConfigBuilder {
	b.config.Secure = secure
	return b
}

// WithEncryptionMasterKey sets the base64 encoded encryption master key
func (b *ConfigBuilder) WithEncryptionMasterKey(key string) *ConfigBuilder {
	b.config.EncryptionMasterKey = key
	return b
}

// WithMaxMessagePayloadKB sets the event data size limit
func (b *ConfigBuilder) WithMaxMessagePayloadKB(kb int) *ConfigBuilder {
	b.config.MaxMessagePayloadKB = kb
	return b
}

// WithCache sets the cache configuration
func (b *ConfigBuilder) WithCache(cache CacheConfig) *ConfigBuilder {
	b.config.Cache = cache
	return b
}

// WithWebhook sets the webhook configuration
func (b *ConfigBuilder) WithWebhook(webhook WebhookConfig) *ConfigBuilder {
	b.config.Webhook = webhook
	return b
}

// WithCircuitBreaker sets the circuit breaker configuration
func (b *ConfigBuilder) WithCircuitBreaker(cb CircuitBreakerConfig) *ConfigBuilder {
	b.config.CircuitBreaker = cb
	return b
}

// WithRetry sets the retry configuration
func (b *ConfigBuilder) WithRetry(retry RetryConfig) *ConfigBuilder {
	b.config.Retry = retry
	return b
}

// WithHTTPClient sets the HTTP client configuration
func (b *ConfigBuilder) WithHTTPClient(hc HTTPClientConfig) *ConfigBuilder {
	b.config.HTTPClient = hc
	return b
}

// WithLogging sets the logging configuration
func (b *ConfigBuilder) WithLogging(logging LoggingConfig) *ConfigBuilder {
	b.config.Logging = logging
	return b
}

// Build validates and returns the Config
func (b *ConfigBuilder) Build() (*Config, error) {
	if err := b.config.Validate(); err != nil {
		return nil, err
	}
	return b.config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.AppID == "" {
		return errors.New("AppID is required")
	}

	if c.Key == "" || c.Secret == "" {
		return errors.New("Key and Secret are required")
	}

	for i, cred := range c.ExtraCredentials {
		if cred.Key == "" || cred.Secret == "" {
			return fmt.Errorf("extra credential %d must have a key and secret", i)
		}
	}

	if c.EncryptionMasterKey != "" {
		if _, err := DecodeMasterKey(c.EncryptionMasterKey); err != nil {
			return err
		}
	}

	if c.MaxMessagePayloadKB < 0 {
		return errors.New("max message payload must not be negative")
	}

	if c.Cache.Enabled {
		if c.Cache.Type != "redis" && c.Cache.Type != "memory" {
			return fmt.Errorf("invalid cache type: %s (must be 'redis' or 'memory')", c.Cache.Type)
		}

		if c.Cache.Type == "redis" {
			if c.Cache.Redis.Address == "" {
				return errors.New("Redis address is required when using Redis cache")
			}
		}
	}

	if c.Webhook.MaxRequestBodySize <= 0 {
		return errors.New("max request body size must be greater than 0")
	}

	if c.CircuitBreaker.Threshold < 0 || c.CircuitBreaker.Threshold > 1 {
		return errors.New("circuit breaker threshold must be between 0 and 1")
	}

	if c.Retry.MaxAttempts <= 0 {
		return errors.New("retry max attempts must be greater than 0")
	}

	if c.Retry.Multiplier <= 0 {
		return errors.New("retry multiplier must be greater than 0")
	}

	return nil
}

// Credential returns the primary credential
func (c *Config) Credential() Credential {
	return Credential{Key: c.Key, Secret: c.Secret}
}

// BaseURL returns the scheme and host REST calls are sent to
func (c *Config) BaseURL() string {
	scheme := "http"
	if c.Secure {
		scheme = "https"
	}

	host := c.Host
	if host == "" && c.Cluster != "" {
		host = fmt.Sprintf("api-%s.pusher.com", c.Cluster)
	}
	if host == "" {
		host = DefaultHost
	}

	return scheme + "://" + host
}

// masterKey returns the decoded encryption master key, or nil when unset
func (c *Config) masterKey() []byte {
	if c.EncryptionMasterKey == "" {
		return nil
	}
	key, err := DecodeMasterKey(c.EncryptionMasterKey)
	if err != nil {
		return nil
	}
	return key
}
