package pusher

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	encryptedChannelPrefix = "private-encrypted-"
	masterKeyLength        = 32
	nonceLength            = 24
)

// encryptedPayload is the wire form of data sent on an encrypted channel.
type encryptedPayload struct {
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// IsEncryptedChannel reports whether channel is an end-to-end encrypted channel.
func IsEncryptedChannel(channel string) bool {
	return strings.HasPrefix(channel, encryptedChannelPrefix)
}

// DecodeMasterKey decodes a base64 encryption master key and checks its length.
func DecodeMasterKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMasterKey, err)
	}
	if len(key) != masterKeyLength {
		return nil, ErrInvalidMasterKey
	}
	return key, nil
}

// SharedSecret derives the per-channel secretbox key: SHA256(channel || masterKey).
func SharedSecret(channel string, masterKey []byte) ([]byte, error) {
	if len(masterKey) != masterKeyLength {
		return nil, ErrInvalidMasterKey
	}
	h := sha256.New()
	h.Write([]byte(channel))
	h.Write(masterKey)
	return h.Sum(nil), nil
}

// EncryptPayload seals data for channel and returns the JSON envelope
// {"nonce": ..., "ciphertext": ...}.
func EncryptPayload(channel string, data []byte, masterKey []byte) ([]byte, error) {
	key, err := sharedSecretKey(channel, masterKey)
	if err != nil {
		return nil, err
	}

	var nonce [nonceLength]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := secretbox.Seal(nil, data, &nonce, key)
	return json.Marshal(encryptedPayload{
		Nonce:      base64.StdEncoding.EncodeToString(nonce[:]),
		Ciphertext: base64.StdEncoding.EncodeToString(sealed),
	})
}

// DecryptPayload opens a JSON envelope produced by EncryptPayload.
func DecryptPayload(channel string, payload []byte, masterKey []byte) ([]byte, error) {
	key, err := sharedSecretKey(channel, masterKey)
	if err != nil {
		return nil, err
	}

	var env encryptedPayload
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}

	nonceBytes, err := base64.StdEncoding.DecodeString(env.Nonce)
	if err != nil || len(nonceBytes) != nonceLength {
		return nil, fmt.Errorf("%w: bad nonce", ErrDecryption)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: bad ciphertext", ErrDecryption)
	}

	var nonce [nonceLength]byte
	copy(nonce[:], nonceBytes)

	plain, ok := secretbox.Open(nil, ciphertext, &nonce, key)
	if !ok {
		return nil, ErrDecryption
	}
	return plain, nil
}

func sharedSecretKey(channel string, masterKey []byte) (*[32]byte, error) {
	secret, err := SharedSecret(channel, masterKey)
	if err != nil {
		return nil, err
	}
	var key [32]byte
	copy(key[:], secret)
	return &key, nil
}
