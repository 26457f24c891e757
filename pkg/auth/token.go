package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// TokenSigner issues and verifies HMAC-SHA256 bearer tokens. The signing
// secret is loaded once at process start and immutable thereafter; it is
// passed in at construction, never read from ambient state.
type TokenSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenSigner creates a signer with the given process-wide secret and
// token lifetime.
func NewTokenSigner(secret string, ttl time.Duration) *TokenSigner {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &TokenSigner{secret: []byte(secret), ttl: ttl}
}

// Sign issues a token for the given identity id with an expiry claim.
func (s *TokenSigner) Sign(identityID int64) (string, error) {
	now := time.Now()
	claims := jwtlib.RegisteredClaims{
		Subject:   strconv.FormatInt(identityID, 10),
		IssuedAt:  jwtlib.NewNumericDate(now),
		ExpiresAt: jwtlib.NewNumericDate(now.Add(s.ttl)),
	}

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify checks the token's structure, signature, and expiry, and returns
// the subject identity id. Failures map onto the verification sub-reasons.
func (s *TokenSigner) Verify(tokenStr string) (int64, error) {
	// A signed token is always header.payload.signature.
	if strings.Count(tokenStr, ".") != 2 {
		return 0, ErrMalformedToken
	}

	token, err := jwtlib.Parse(tokenStr, func(token *jwtlib.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))

	if err != nil {
		switch {
		case errors.Is(err, jwtlib.ErrTokenExpired):
			return 0, ErrExpired
		case errors.Is(err, jwtlib.ErrTokenSignatureInvalid):
			return 0, ErrBadSignature
		case errors.Is(err, jwtlib.ErrTokenMalformed):
			return 0, ErrMalformedToken
		default:
			return 0, ErrBadSignature
		}
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok || !token.Valid {
		return 0, ErrMalformedToken
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return 0, ErrMalformedToken
	}

	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, ErrMalformedToken
	}
	return id, nil
}
