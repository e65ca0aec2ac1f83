package pusher

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

const presenceChannelPrefix = "presence-"

// SocketAuthRequest asks for a subscription token for one socket on one
// channel. ChannelData is only meaningful for presence channels; a string,
// []byte or json.RawMessage is taken as already serialized JSON. Encrypted
// channels need EncryptionMasterKey.
type SocketAuthRequest struct {
	SocketID            string
	Channel             string
	ChannelData         any
	EncryptionMasterKey []byte
}

// SocketAuth is the token handed to the subscribing client verbatim.
type SocketAuth struct {
	Auth         string `json:"auth"`
	ChannelData  string `json:"channel_data,omitempty"`
	SharedSecret string `json:"shared_secret,omitempty"`
}

// UserAuth is the token handed to a client signing in as a user.
type UserAuth struct {
	Auth     string `json:"auth"`
	UserData string `json:"user_data"`
}

// MemberData describes a presence channel subscriber.
type MemberData struct {
	UserID   string            `json:"user_id"`
	UserInfo map[string]string `json:"user_info,omitempty"`
}

// AuthenticateSocket validates the socket id and channel, then signs
// "socket_id:channel[:channel_data]" with the credential's secret.
func AuthenticateSocket(cred Credential, req SocketAuthRequest) (*SocketAuth, error) {
	if err := ValidateSocketID(req.SocketID); err != nil {
		return nil, err
	}
	if err := ValidateChannelName(req.Channel); err != nil {
		return nil, err
	}

	var channelData string
	if req.ChannelData != nil {
		data, err := serializeJSON(req.ChannelData)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize channel data: %w", err)
		}
		channelData = data
	}

	if strings.HasPrefix(req.Channel, presenceChannelPrefix) && !hasNonEmptyField(channelData, "user_id") {
		return nil, newValidationError(ErrPresenceUserID, channelData)
	}

	stringToSign := req.SocketID + ":" + req.Channel
	if channelData != "" {
		stringToSign += ":" + channelData
	}

	result := &SocketAuth{
		Auth:        cred.Key + ":" + Sign(cred.Secret, stringToSign),
		ChannelData: channelData,
	}

	if IsEncryptedChannel(req.Channel) {
		secret, err := SharedSecret(req.Channel, req.EncryptionMasterKey)
		if err != nil {
			return nil, err
		}
		result.SharedSecret = base64.StdEncoding.EncodeToString(secret)
	}

	return result, nil
}

// AuthenticateUser signs "socket_id::user::user_data" for user sign-in.
// userData must carry a non-empty "id".
func AuthenticateUser(cred Credential, socketID string, userData any) (*UserAuth, error) {
	if err := ValidateSocketID(socketID); err != nil {
		return nil, err
	}
	if userData == nil {
		return nil, newValidationError(ErrUserID, "")
	}

	data, err := serializeJSON(userData)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize user data: %w", err)
	}
	if !hasNonEmptyField(data, "id") {
		return nil, newValidationError(ErrUserID, data)
	}

	stringToSign := socketID + "::user::" + data
	return &UserAuth{
		Auth:     cred.Key + ":" + Sign(cred.Secret, stringToSign),
		UserData: data,
	}, nil
}

// ParseAuthParams reads socket_id and channel_name from a form-encoded
// authorization request body.
func ParseAuthParams(body []byte) (socketID, channel string, err error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse auth params: %w", err)
	}
	return values.Get("socket_id"), values.Get("channel_name"), nil
}

// serializeJSON returns v as JSON text. Strings and byte slices are taken
// as already serialized.
func serializeJSON(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	case json.RawMessage:
		return string(t), nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// hasNonEmptyField reports whether the JSON object in data has field set to
// something other than null or "".
func hasNonEmptyField(data, field string) bool {
	if data == "" {
		return false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return false
	}
	raw, ok := obj[field]
	if !ok {
		return false
	}
	value := string(bytes.TrimSpace(raw))
	return value != "" && value != "null" && value != `""`
}
