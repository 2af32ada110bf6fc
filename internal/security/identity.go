package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is what the external identity provider asserts about a caller:
// a stable opaque user id and a display name. Nothing else is trusted or
// validated here; issuing tokens is the provider's job, not ours.
type Identity struct {
	UserID      string
	DisplayName string
}

// Claims represents the identity token claims.
type Claims struct {
	DisplayName string `json:"name"`
	jwt.RegisteredClaims
}

// TokenVerifier validates bearer tokens issued by the identity provider.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier creates a new token verifier for the shared secret.
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify validates the token and returns the asserted identity.
func (v *TokenVerifier) Verify(tokenString string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token missing subject")
	}

	name := claims.DisplayName
	if name == "" {
		name = claims.Subject
	}
	return &Identity{UserID: claims.Subject, DisplayName: name}, nil
}

// Sign issues a token for an identity. Exists for tests and local
// development where no real provider is running.
func (v *TokenVerifier) Sign(identity Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		DisplayName: identity.DisplayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "studyhub",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
