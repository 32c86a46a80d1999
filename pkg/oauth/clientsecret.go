package oauth

import (
	"crypto/ecdsa"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// parseSigningKey accepts a PKCS#8 or SEC1 PEM key. Escaped newlines are
// expanded so the key can live in a single-line environment variable.
func parseSigningKey(pemKey string) (*ecdsa.PrivateKey, error) {
	pemKey = strings.ReplaceAll(strings.TrimSpace(pemKey), `\n`, "\n")
	key, err := jwt.ParseECPrivateKeyFromPEM([]byte(pemKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSigningKey, err)
	}
	return key, nil
}

// clientAssertion signs a short-lived ES256 token used as client_secret.
// It is regenerated for every exchange and never cached.
func (e *Exchanger) clientAssertion(p Provider, c Capability) (string, error) {
	key, ok := e.signingKeys[p]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingSigningKey, p)
	}
	pc := e.cfg.Provider(p)
	now := e.now()

	claims := jwt.RegisteredClaims{
		Issuer:    pc.TeamID,
		Subject:   pc.ClientID,
		Audience:  jwt.ClaimStrings{c.AssertionAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(e.assertionTTL())),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	tok.Header["kid"] = pc.KeyID

	signed, err := tok.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign client assertion: %w", err)
	}
	return signed, nil
}

func (e *Exchanger) assertionTTL() time.Duration {
	if e.cfg.ClientAssertionTTL > 0 {
		return e.cfg.ClientAssertionTTL
	}
	return 5 * time.Minute
}
