package pusher

import (
	"errors"
	"fmt"
)

// Input validation errors. They are returned wrapped in a *ValidationError
// that carries the offending value.
var (
	// ErrInvalidChannelName is returned when a channel name is empty, longer
	// than 200 characters or contains characters outside [A-Za-z0-9_\-=@,.;].
	ErrInvalidChannelName = errors.New("pusher: invalid channel name")

	// ErrInvalidSocketID is returned when a socket id does not match
	// <digits>.<digits>.
	ErrInvalidSocketID = errors.New("pusher: invalid socket id")

	// ErrEmptyEventName is returned when an event name is empty.
	ErrEmptyEventName = errors.New("pusher: event name must not be empty")

	// ErrEventNameTooLong is returned when an event name exceeds 200 characters.
	ErrEventNameTooLong = errors.New("pusher: event name too long")

	// ErrNoChannels is returned when a trigger names no channel at all.
	ErrNoChannels = errors.New("pusher: at least one channel is required")

	// ErrTooManyChannels is returned when a trigger names more than 100 channels.
	ErrTooManyChannels = errors.New("pusher: too many channels")

	// ErrDataTooLarge is returned when event data exceeds the configured
	// payload limit.
	ErrDataTooLarge = errors.New("pusher: event data too large")

	// ErrTooManyBatchEvents is returned when a batch holds more than 10 events.
	ErrTooManyBatchEvents = errors.New("pusher: too many events in batch")

	// ErrPresenceUserID is returned when presence channel data has no user id.
	ErrPresenceUserID = errors.New("pusher: presence channel data requires a user_id")

	// ErrUserID is returned when user authentication data has no id.
	ErrUserID = errors.New("pusher: user data requires an id")
)

// Request signing errors.
var (
	// ErrInvalidCredential is returned when a credential has an empty key or secret.
	ErrInvalidCredential = errors.New("pusher: credential key and secret must not be empty")

	// ErrReservedParam is returned when request parameters already contain
	// one of the fields synthesized by the signer.
	ErrReservedParam = errors.New("pusher: reserved query parameter")

	// ErrInvalidMethod is returned for methods other than GET and POST.
	ErrInvalidMethod = errors.New("pusher: method must be GET or POST")

	// ErrInvalidPath is returned when a request path does not begin with "/".
	ErrInvalidPath = errors.New("pusher: path must begin with /")
)

// Webhook errors.
var (
	// ErrWebhookBody is matched by *WebhookBodyError, returned when data is
	// requested from a webhook whose body is not valid JSON.
	ErrWebhookBody = errors.New("pusher: invalid webhook body")

	// ErrInvalidWebhook is returned by the client when a webhook does not
	// carry a valid signature for any configured credential.
	ErrInvalidWebhook = errors.New("pusher: invalid webhook")
)

// Encryption errors.
var (
	// ErrInvalidMasterKey is returned when the encryption master key is not
	// exactly 32 bytes.
	ErrInvalidMasterKey = errors.New("pusher: encryption master key must be 32 bytes")

	// ErrEncryptedMultiChannel is returned when an encrypted channel is
	// triggered together with other channels.
	ErrEncryptedMultiChannel = errors.New("pusher: cannot trigger to multiple channels when using encrypted channels")

	// ErrDecryption is returned when an encrypted payload cannot be opened.
	ErrDecryption = errors.New("pusher: failed to decrypt payload")
)

// ValidationError reports an input that failed validation before any
// signing took place.
type ValidationError struct {
	Kind  error
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %q", e.Kind, e.Value)
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

func newValidationError(kind error, value string) *ValidationError {
	return &ValidationError{Kind: kind, Value: value}
}

// WebhookBodyError is returned when parsed data is requested from a webhook
// whose body could not be parsed. It carries the request as received.
type WebhookBodyError struct {
	ContentType string
	Body        []byte
	Signature   string
	Err         error
}

func (e *WebhookBodyError) Error() string {
	return fmt.Sprintf("%v (content-type %q, signature %q): %v", ErrWebhookBody, e.ContentType, e.Signature, e.Err)
}

func (e *WebhookBodyError) Is(target error) bool {
	return target == ErrWebhookBody
}

func (e *WebhookBodyError) Unwrap() error {
	return e.Err
}

// APIError is returned by the REST client for non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pusher: status %d, body: %s", e.StatusCode, e.Body)
}

// retryable reports whether the request may succeed if sent again.
func (e *APIError) retryable() bool {
	return e.StatusCode >= 500
}
