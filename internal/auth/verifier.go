// Package auth verifies identity-provider JWTs and extracts the caller's
// user id from them.
package auth

import (
	"crypto/rsa"
	"fmt"
	"log/slog"
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier checks RS256 tokens against the identity provider's public key
// and an allowlist of authorized parties.
type Verifier struct {
	publicKey         *rsa.PublicKey
	authorizedParties []string
}

func NewVerifier(publicKeyPEM string, authorizedParties []string) (*Verifier, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(publicKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("parse identity public key: %w", err)
	}
	return &Verifier{publicKey: key, authorizedParties: authorizedParties}, nil
}

// Verify reports whether the token is valid, unexpired and issued to an
// authorized party.
func (v *Verifier) Verify(token string) bool {
	claims, err := v.parse(token)
	if err != nil {
		slog.Error("token rejected", "error", err)
		return false
	}
	azp, _ := claims["azp"].(string)
	if !slices.Contains(v.authorizedParties, azp) {
		slog.Error("token rejected", "error", "unauthorized party", "azp", azp)
		return false
	}
	return true
}

// UserID extracts the subject from a valid token.
func (v *Verifier) UserID(token string) (string, error) {
	claims, err := v.parse(token)
	if err != nil {
		return "", err
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return sub, nil
}

func (v *Verifier) parse(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return v.publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return claims, nil
}
