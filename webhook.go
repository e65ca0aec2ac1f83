package pusher

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

const (
	headerKey         = "x-pusher-key"
	headerSignature   = "x-pusher-signature"
	headerContentType = "content-type"

	jsonContentType = "application/json"
)

// WebhookEvent is one entry of a webhook's "events" list.
type WebhookEvent struct {
	Name     string `json:"name"`
	Channel  string `json:"channel"`
	Event    string `json:"event,omitempty"`
	Data     string `json:"data,omitempty"`
	SocketID string `json:"socket_id,omitempty"`
	UserID   string `json:"user_id,omitempty"`
}

type webhookPayload struct {
	TimeMs int64          `json:"time_ms"`
	Events []WebhookEvent `json:"events"`
}

// Webhook is an inbound callback as received. The body is parsed once when
// the Webhook is built; after that it is read-only and safe to share.
//
// Data, Events and Time do not check the signature. Call IsValid first.
type Webhook struct {
	primary     Credential
	key         string
	signature   string
	contentType string
	rawBody     []byte

	data       any
	bodyErr    error
	payload    webhookPayload
	payloadErr error
}

// NewWebhook builds a Webhook from lower-cased headers and the raw body.
// primary is the credential the signature is checked against first.
func NewWebhook(headers map[string]string, body []byte, primary Credential) *Webhook {
	w := &Webhook{
		primary:     primary,
		key:         headers[headerKey],
		signature:   headers[headerSignature],
		contentType: headers[headerContentType],
		rawBody:     body,
	}

	if err := json.Unmarshal(body, &w.data); err != nil {
		w.bodyErr = err
		w.data = nil
		return w
	}
	w.payloadErr = json.Unmarshal(body, &w.payload)
	return w
}

// NewWebhookFromHTTP builds a Webhook from a net/http header. The first value
// of each header is used.
func NewWebhookFromHTTP(header http.Header, body []byte, primary Credential) *Webhook {
	headers := make(map[string]string, len(header))
	for name, values := range header {
		if len(values) > 0 {
			headers[strings.ToLower(name)] = values[0]
		}
	}
	return NewWebhook(headers, body, primary)
}

// Key returns the credential key claimed by the sender.
func (w *Webhook) Key() string { return w.key }

// Signature returns the signature claimed by the sender.
func (w *Webhook) Signature() string { return w.signature }

// ContentType returns the content-type header as received.
func (w *Webhook) ContentType() string { return w.contentType }

// Body returns the raw body.
func (w *Webhook) Body() []byte { return w.rawBody }

// IsContentTypeValid reports whether the content type is exactly
// application/json. Parameters such as charset make it invalid.
func (w *Webhook) IsContentTypeValid() bool {
	return w.contentType == jsonContentType
}

// IsBodyValid reports whether the body is valid JSON.
func (w *Webhook) IsBodyValid() bool {
	return w.bodyErr == nil
}

// IsValid reports whether the body is valid JSON signed by the primary
// credential or any of extra. Candidates are tried in order.
func (w *Webhook) IsValid(extra ...Credential) bool {
	if !w.IsBodyValid() {
		return false
	}

	body := string(w.rawBody)
	if w.matches(w.primary, body) {
		return true
	}
	for _, cred := range extra {
		if w.matches(cred, body) {
			return true
		}
	}
	return false
}

func (w *Webhook) matches(cred Credential, body string) bool {
	if cred.Key == "" || w.key != cred.Key {
		return false
	}
	return Verify(cred.Secret, body, w.signature)
}

// Data returns the parsed body.
func (w *Webhook) Data() (any, error) {
	if w.bodyErr != nil {
		return nil, w.bodyError(w.bodyErr)
	}
	return w.data, nil
}

// Events returns the "events" field of the body.
func (w *Webhook) Events() ([]WebhookEvent, error) {
	if err := w.payloadError(); err != nil {
		return nil, err
	}
	events := make([]WebhookEvent, len(w.payload.Events))
	copy(events, w.payload.Events)
	return events, nil
}

// Time returns the "time_ms" field of the body.
func (w *Webhook) Time() (time.Time, error) {
	if err := w.payloadError(); err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(w.payload.TimeMs), nil
}

func (w *Webhook) payloadError() error {
	if w.bodyErr != nil {
		return w.bodyError(w.bodyErr)
	}
	if w.payloadErr != nil {
		return w.bodyError(w.payloadErr)
	}
	return nil
}

func (w *Webhook) bodyError(cause error) error {
	return &WebhookBodyError{
		ContentType: w.contentType,
		Body:        w.rawBody,
		Signature:   w.signature,
		Err:         cause,
	}
}
