// Package signer computes the COS request signature carried in the
// Authorization header of hand-built requests.
package signer

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

// DefaultExpiry is how long a signature stays valid.
const DefaultExpiry = 60 * time.Second

const algorithm = "sha1"

// ErrMissingCredentials is returned when the secret id or key is empty.
var ErrMissingCredentials = errors.New("cos secret id and secret key are required")

// Signer signs single requests with a secret id/key pair.
type Signer struct {
	secretID  string
	secretKey string

	// Now returns the signing time. Defaults to time.Now.
	Now func() time.Time
	// Expiry is the validity window of a signature.
	Expiry time.Duration
}

// New constructs a Signer.
func New(secretID, secretKey string) (*Signer, error) {
	if strings.TrimSpace(secretID) == "" || strings.TrimSpace(secretKey) == "" {
		return nil, ErrMissingCredentials
	}
	return &Signer{
		secretID:  secretID,
		secretKey: secretKey,
		Now:       time.Now,
		Expiry:    DefaultExpiry,
	}, nil
}

// SecretID returns the access key id embedded in signatures.
func (s *Signer) SecretID() string {
	return s.secretID
}

// Sign returns the Authorization value for a request with the given method,
// path and headers. Every header passed in is signed.
func (s *Signer) Sign(method, urlPath string, headers map[string]string) string {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	expiry := s.Expiry
	if expiry <= 0 {
		expiry = DefaultExpiry
	}

	start := now().Unix()
	signTime := fmt.Sprintf("%d;%d", start, start+int64(expiry/time.Second))

	names, canonicalHeaders := canonicalize(headers)

	signKey := hmacSHA1Hex([]byte(s.secretKey), signTime)
	httpString := strings.ToLower(method) + "\n" + urlPath + "\n\n" + canonicalHeaders + "\n"
	hashed := sha1.Sum([]byte(httpString))
	stringToSign := algorithm + "\n" + signTime + "\n" + hex.EncodeToString(hashed[:]) + "\n"
	signature := hmacSHA1Hex([]byte(signKey), stringToSign)

	// Field order is fixed; the server rejects reordered tokens.
	var b strings.Builder
	b.WriteString("q-sign-algorithm=" + algorithm)
	b.WriteString("&q-ak=" + s.secretID)
	b.WriteString("&q-sign-time=" + signTime)
	b.WriteString("&q-key-time=" + signTime)
	b.WriteString("&q-header-list=" + strings.Join(names, ";"))
	b.WriteString("&q-url-param-list=")
	b.WriteString("&q-signature=" + signature)
	return b.String()
}

// canonicalize lower-cases names, encodes values and sorts by name.
func canonicalize(headers map[string]string) ([]string, string) {
	encoded := make(map[string]string, len(headers))
	names := make([]string, 0, len(headers))
	for name, value := range headers {
		lower := strings.ToLower(name)
		if _, seen := encoded[lower]; !seen {
			names = append(names, lower)
		}
		encoded[lower] = Escape(value)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+encoded[name])
	}
	return names, strings.Join(pairs, "&")
}

// Escape percent-encodes s per RFC 3986: unreserved characters are kept and
// space becomes %20.
func Escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func hmacSHA1Hex(key []byte, message string) string {
	mac := hmac.New(sha1.New, key)
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}
