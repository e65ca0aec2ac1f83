package pusher

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	MethodGet  = "GET"
	MethodPost = "POST"

	authVersion = "1.0"
)

const (
	paramAuthKey       = "auth_key"
	paramAuthTimestamp = "auth_timestamp"
	paramAuthVersion   = "auth_version"
	paramAuthSignature = "auth_signature"
	paramBodyMD5       = "body_md5"
)

var reservedParams = []string{
	paramAuthKey,
	paramAuthTimestamp,
	paramAuthVersion,
	paramAuthSignature,
	paramBodyMD5,
}

// SignableRequest describes a REST call before signing. Params must not
// contain any auth_* or body_md5 field. A nil Body means the request has no
// body.
type SignableRequest struct {
	Method string
	Path   string
	Params map[string]string
	Body   []byte
}

// SignedRequest is the outcome of signing a SignableRequest.
type SignedRequest struct {
	// Message is the exact string that was signed.
	Message string

	// Signature is the hex HMAC-SHA256 of Message.
	Signature string

	// Query is the query string to send, auth_signature last.
	Query string
}

// Sign signs the request with the current time as auth_timestamp.
func (r SignableRequest) Sign(cred Credential) (SignedRequest, error) {
	return r.SignAt(cred, time.Now())
}

// SignAt signs the request using ts as auth_timestamp.
func (r SignableRequest) SignAt(cred Credential, ts time.Time) (SignedRequest, error) {
	if r.Method != MethodGet && r.Method != MethodPost {
		return SignedRequest{}, newValidationError(ErrInvalidMethod, r.Method)
	}
	if !strings.HasPrefix(r.Path, "/") {
		return SignedRequest{}, newValidationError(ErrInvalidPath, r.Path)
	}
	for _, name := range reservedParams {
		if _, ok := r.Params[name]; ok {
			return SignedRequest{}, newValidationError(ErrReservedParam, name)
		}
	}

	params := make(map[string]string, len(r.Params)+4)
	for k, v := range r.Params {
		params[k] = v
	}
	params[paramAuthKey] = cred.Key
	params[paramAuthTimestamp] = strconv.FormatInt(ts.Unix(), 10)
	params[paramAuthVersion] = authVersion
	if r.Body != nil {
		params[paramBodyMD5] = md5Hex(r.Body)
	}

	query := canonicalQuery(params)
	message := r.Method + "\n" + r.Path + "\n" + query
	signature := Sign(cred.Secret, message)

	return SignedRequest{
		Message:   message,
		Signature: signature,
		Query:     query + "&" + paramAuthSignature + "=" + signature,
	}, nil
}

// canonicalQuery joins params as k=v pairs sorted by byte value of the key.
func canonicalQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(escape(k))
		b.WriteByte('=')
		b.WriteString(escape(params[k]))
	}
	return b.String()
}

// escape percent-encodes s with space as %20.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func md5Hex(body []byte) string {
	sum := md5.Sum(body)
	return hex.EncodeToString(sum[:])
}
