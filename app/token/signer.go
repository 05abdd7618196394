// Package token mints and verifies the signed pass tokens embedded in QR codes.
//
// A token has the form "passId:expiryMillis.signature" where signature is the
// first 16 hex characters of HMAC-SHA256(secret, "passId:expiryMillis").
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultExpiryDays = 30

	signatureLength = 16
	dayMillis       = int64(86400000)
)

var (
	ErrMissingSecret     = errors.New("token signing secret is not configured")
	ErrMalformedToken    = errors.New("malformed token")
	ErrTokenExpired      = errors.New("token expired")
	ErrSignatureMismatch = errors.New("token signature mismatch")
)

type Signer struct {
	secret []byte
	now    func() time.Time
}

func NewSigner(secret string) (*Signer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrMissingSecret
	}
	return &Signer{secret: []byte(secret), now: time.Now}, nil
}

// WithClock returns a copy of the signer reading time from now.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	return &Signer{secret: s.secret, now: now}
}

func (s *Signer) Sign(passID string, expiryDays int) string {
	expiry := s.now().UnixMilli() + int64(expiryDays)*dayMillis
	payload := passID + ":" + strconv.FormatInt(expiry, 10)
	return payload + "." + s.signature(payload)
}

// Verify returns the pass id embedded in a valid token.
func (s *Signer) Verify(token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 {
		return "", ErrMalformedToken
	}
	payload, signature := parts[0], parts[1]

	fields := strings.Split(payload, ":")
	if len(fields) != 2 {
		return "", ErrMalformedToken
	}
	passID := fields[0]

	expiry, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return "", ErrTokenExpired
	}
	if s.now().UnixMilli() > expiry {
		return "", ErrTokenExpired
	}

	if !hmac.Equal([]byte(s.signature(payload)), []byte(signature)) {
		return "", ErrSignatureMismatch
	}

	return passID, nil
}

func (s *Signer) signature(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))[:signatureLength]
}
