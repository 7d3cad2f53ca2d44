// Package auth provides JWT verification for run submission.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Modes
const (
	ModeOff  = "off"
	ModeHMAC = "hmac"
)

var (
	ErrMissingToken = errors.New("auth: missing bearer token")
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Verifier validates HS256 bearer tokens. In ModeOff every request passes.
type Verifier struct {
	Mode         string
	HMACSecret   []byte
	SubjectClaim string
}

// Principal identifies the caller that submitted a run.
type Principal struct {
	Subject string
}

// NewVerifierFromEnv reads AUTH_MODE, AUTH_HMAC_SECRET and AUTH_SUBJECT_CLAIM.
func NewVerifierFromEnv() (*Verifier, error) {
	return newVerifier(os.Getenv)
}

func newVerifier(getenv func(string) string) (*Verifier, error) {
	mode := strings.ToLower(strings.TrimSpace(getenv("AUTH_MODE")))
	if mode == "" {
		mode = ModeOff
	}
	v := &Verifier{
		Mode:         mode,
		HMACSecret:   []byte(getenv("AUTH_HMAC_SECRET")),
		SubjectClaim: getenv("AUTH_SUBJECT_CLAIM"),
	}
	if v.SubjectClaim == "" {
		v.SubjectClaim = "sub"
	}
	switch mode {
	case ModeOff:
	case ModeHMAC:
		if len(v.HMACSecret) < 32 {
			return nil, errors.New("auth: AUTH_HMAC_SECRET must be at least 32 bytes")
		}
	default:
		return nil, fmt.Errorf("auth: unsupported mode %q", mode)
	}
	return v, nil
}

// Enabled reports whether requests must carry a token.
func (v *Verifier) Enabled() bool { return v != nil && v.Mode != ModeOff }

// Verify parses token and returns its principal.
func (v *Verifier) Verify(token string) (Principal, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return v.HMACSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	sub, _ := claims[v.SubjectClaim].(string)
	if sub == "" {
		return Principal{}, fmt.Errorf("%w: missing %s claim", ErrInvalidToken, v.SubjectClaim)
	}
	return Principal{Subject: sub}, nil
}

// FromRequest verifies the request's Authorization header.
func (v *Verifier) FromRequest(r *http.Request) (Principal, error) {
	h := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return Principal{}, ErrMissingToken
	}
	return v.Verify(strings.TrimSpace(token))
}
