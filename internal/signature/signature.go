package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Header names checked, in order, for an inbound webhook signature
var signatureHeaders = []string{
	"X-Webhook-Signature",
	"X-Signature",
	"X-Hub-Signature-256",
}

// secretHeader is the shared-secret header variant: integrations that
// cannot compute an HMAC send the raw secret instead
const secretHeader = "X-Webhook-Secret"

// Sign computes the hex HMAC-SHA256 digest of payload under secret.
// The payload must be the exact request bytes: re-serializing JSON can
// reorder keys and break verification on the receiving side.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the expected digest and compares it to the received
// hex signature in constant time. A short-circuiting string compare
// would leak the mismatch position through response timing.
func Verify(payload []byte, receivedHex, secret string) bool {
	received, err := hex.DecodeString(strings.TrimSpace(receivedHex))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(received, mac.Sum(nil))
}

// FromHeader extracts the signature from the first recognized header,
// stripping the GitHub-style "sha256=" prefix if present. Returns an
// empty string when no signature header is set.
func FromHeader(h http.Header) string {
	for _, name := range signatureHeaders {
		v := strings.TrimSpace(h.Get(name))
		if v == "" {
			continue
		}
		return strings.TrimPrefix(v, "sha256=")
	}
	return ""
}

// SecretFromHeader extracts the shared-secret header variant, or an
// empty string when the caller did not send one
func SecretFromHeader(h http.Header) string {
	return strings.TrimSpace(h.Get(secretHeader))
}

// VerifySecret compares a caller-supplied shared secret against the
// configured one in constant time
func VerifySecret(provided, secret string) bool {
	return subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) == 1
}

// VerifyTimestamp reports whether ts is within maxAge of the server
// clock. Timestamps in the future are rejected too: a replayed capture
// with a doctored timestamp should not pass. ts is unix seconds or
// RFC 3339. Only meaningful when the signed payload covers the
// timestamp itself.
func VerifyTimestamp(ts string, maxAge time.Duration) bool {
	parsed, ok := parseTimestamp(ts)
	if !ok {
		return false
	}

	age := time.Since(parsed)
	if age < 0 {
		return false
	}
	return age <= maxAge
}

func parseTimestamp(ts string) (time.Time, bool) {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return time.Time{}, false
	}
	if secs, err := strconv.ParseInt(ts, 10, 64); err == nil {
		return time.Unix(secs, 0), true
	}
	if t, err := time.Parse(time.RFC3339, ts); err == nil {
		return t, true
	}
	return time.Time{}, false
}
