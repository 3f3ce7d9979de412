// Package setuptoken issues and verifies the signed tokens that authorize
// the public begin-setup redirect for a specific user. Tokens are stateless:
// the wire form is "<unixSeconds>:<lowercase hex HMAC-SHA256>" where the MAC
// covers "<userID>:<unixSeconds>". A token is valid for at most MaxAge after
// issuance, which matches the longest enrollment-link lifespan the identity
// provider will honor.
package setuptoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"
)

// MaxAge is the validity window of an issued token.
const MaxAge = 7 * 24 * time.Hour

// hkdfInfo binds derived keys to this purpose so a key derived from the
// session secret can never be confused with the session secret itself.
const hkdfInfo = "mothertree/begin-setup-token/v1"

var ErrNoSecret = errors.New("setuptoken: no signing secret configured")

// Codec signs and verifies begin-setup tokens.
type Codec struct {
	secret []byte
	maxAge time.Duration

	now func() time.Time // test hook
}

// New returns a Codec signing with the given dedicated secret.
func New(secret []byte) (*Codec, error) {
	if len(secret) == 0 {
		return nil, ErrNoSecret
	}
	return &Codec{secret: secret, maxAge: MaxAge, now: time.Now}, nil
}

// NewFromConfig builds a Codec from operator configuration. When a dedicated
// secret is set it is used as-is; otherwise a purpose-bound key is derived
// from the general session secret via HKDF-SHA256.
func NewFromConfig(dedicated, sessionSecret string) (*Codec, error) {
	if dedicated != "" {
		return New([]byte(dedicated))
	}
	if sessionSecret == "" {
		return nil, ErrNoSecret
	}

	derived := make([]byte, sha256.Size)
	r := hkdf.New(sha256.New, []byte(sessionSecret), nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(r, derived); err != nil {
		return nil, err
	}
	return New(derived)
}

// Issue mints a token bound to userID at the current time.
func (c *Codec) Issue(userID string) string {
	ts := strconv.FormatInt(c.now().Unix(), 10)
	return ts + ":" + hex.EncodeToString(c.sign(userID, ts))
}

// Verify reports whether token is a well-formed, unexpired token for userID.
// The signature comparison is constant-time.
func (c *Codec) Verify(userID, token string) bool {
	if token == "" {
		return false
	}

	parts := strings.Split(token, ":")
	if len(parts) != 2 {
		return false
	}
	ts, providedHex := parts[0], parts[1]

	issued, err := strconv.ParseInt(ts, 10, 64)
	if err != nil || issued < 0 {
		return false
	}

	age := c.now().Unix() - issued
	if age < 0 || time.Duration(age)*time.Second > c.maxAge {
		return false
	}

	provided, err := hex.DecodeString(providedHex)
	if err != nil {
		return false
	}

	return hmac.Equal(provided, c.sign(userID, ts))
}

func (c *Codec) sign(userID, ts string) []byte {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(userID + ":" + ts))
	return mac.Sum(nil)
}
