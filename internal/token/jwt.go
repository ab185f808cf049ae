// Package token signs and verifies the session tokens handed out at login.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalid is returned for any token that fails to parse or verify.
var ErrInvalid = errors.New("invalid token")

// JWT signs and verifies JSON Web Tokens whose subject is the user name.
type JWT struct {
	method    jwt.SigningMethod
	signKey   any
	verifyKey any
	now       func() time.Time
}

// Option configures a JWT.
type Option func(*JWT)

// WithClock overrides the time source used to check expiry.
func WithClock(now func() time.Time) Option {
	return func(j *JWT) { j.now = now }
}

// NewHMAC returns an HS256 signer/verifier using a shared secret.
func NewHMAC(secret []byte, opts ...Option) (*JWT, error) {
	if len(secret) == 0 {
		return nil, errors.New("hmac secret is empty")
	}
	return newJWT(jwt.SigningMethodHS256, secret, secret, opts), nil
}

// NewRSA returns an RS256 signer/verifier from PEM-encoded keys.
// privatePEM may be nil for a verify-only instance.
func NewRSA(privatePEM, publicPEM []byte, opts ...Option) (*JWT, error) {
	pub, err := jwt.ParseRSAPublicKeyFromPEM(publicPEM)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	var priv any
	if privatePEM != nil {
		key, err := jwt.ParseRSAPrivateKeyFromPEM(privatePEM)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		priv = key
	}
	return newJWT(jwt.SigningMethodRS256, priv, pub, opts), nil
}

func newJWT(method jwt.SigningMethod, signKey, verifyKey any, opts []Option) *JWT {
	j := &JWT{method: method, signKey: signKey, verifyKey: verifyKey, now: time.Now}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Sign issues a token for subject that expires at expiresAt.
func (j *JWT) Sign(subject string, expiresAt time.Time) (string, error) {
	if j.signKey == nil {
		return "", errors.New("token signer has no private key")
	}
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(j.now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(j.method, claims).SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the token subject.
func (j *JWT) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return j.verifyKey, nil },
		jwt.WithValidMethods([]string{j.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalid)
	}
	return claims.Subject, nil
}
