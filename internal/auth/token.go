// internal/auth/token.go
package auth

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Verifier checks token signatures against the server's ed25519 public key.
// Clients use it only to reject forged or expired tokens; identity always comes
// from the server's login response.
type Verifier struct {
	key ed25519.PublicKey
}

// NewVerifier wraps a public key.
func NewVerifier(key ed25519.PublicKey) *Verifier {
	return &Verifier{key: key}
}

// LoadVerifier reads a raw ed25519 public key from path.
func LoadVerifier(path string) (*Verifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(data) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key file %s has %d bytes, want %d", path, len(data), ed25519.PublicKeySize)
	}
	return NewVerifier(ed25519.PublicKey(data)), nil
}

// Verify returns nil if token carries a valid signature and has not expired.
func (v *Verifier) Verify(tokenString string) error {
	_, err := v.parse(tokenString)
	return err
}

// Subject verifies token and returns its "sub" claim.
func (v *Verifier) Subject(tokenString string) (string, error) {
	claims, err := v.parse(tokenString)
	if err != nil {
		return "", err
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return "", fmt.Errorf("missing sub in jwt")
	}
	return sub, nil
}

func (v *Verifier) parse(tokenString string) (jwt.MapClaims, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid jwt claims")
	}
	return claims, nil
}

// Issuer signs tokens. It is used by the development server.
type Issuer struct {
	*Verifier
	privateKey ed25519.PrivateKey
	ttl        time.Duration
}

// NewIssuer generates a fresh ed25519 key pair. A zero ttl issues tokens without exp.
func NewIssuer(ttl time.Duration) (*Issuer, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &Issuer{Verifier: NewVerifier(pub), privateKey: priv, ttl: ttl}, nil
}

// PublicKey returns the key clients need to verify issued tokens.
func (i *Issuer) PublicKey() ed25519.PublicKey {
	return i.key
}

// CreateJWT signs a token with "sub" = subject, a unique "jti", and exp = now + ttl unless ttl is zero.
func (i *Issuer) CreateJWT(subject string) (string, error) {
	claims := jwt.MapClaims{
		"sub": subject,
		"jti": uuid.NewString(),
		"iat": time.Now().Unix(),
	}
	if i.ttl != 0 {
		claims["exp"] = time.Now().Add(i.ttl).Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(i.privateKey)
}

// ParseTokenTTL parses a TOKEN_EXPIRE_TIME style value; "never", "0" and "" mean no expiry.
func ParseTokenTTL(s string) (time.Duration, error) {
	if s == "never" || s == "0" || s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token expire time: %w", err)
	}
	return d, nil
}
