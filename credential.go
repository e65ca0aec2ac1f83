package pusher

import "github.com/rs/zerolog"

// Credential is an application key and secret pair. It is a plain value and
// may be shared between goroutines.
type Credential struct {
	Key    string
	Secret string
}

// NewCredential returns a Credential, rejecting an empty key or secret.
func NewCredential(key, secret string) (Credential, error) {
	if key == "" || secret == "" {
		return Credential{}, ErrInvalidCredential
	}
	return Credential{Key: key, Secret: secret}, nil
}

// String prints the key only.
func (c Credential) String() string {
	return c.Key
}

// MarshalZerologObject logs the key only.
func (c Credential) MarshalZerologObject(e *zerolog.Event) {
	e.Str("key", c.Key)
}
