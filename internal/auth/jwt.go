package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type TokenConfig struct {
	// Secret verifies HS256 tokens.
	Secret string
	// PublicKey verifies EdDSA tokens.
	PublicKey ed25519.PublicKey
	Expiry    time.Duration
	Issuer    string
}

func DefaultTokenConfig(secret string) TokenConfig {
	return TokenConfig{
		Secret: secret,
		Expiry: 7 * 24 * time.Hour,
	}
}

// CreateToken mints an HS256 token. The hub itself never issues tokens; this
// exists for tests and cmd/devtoken.
func CreateToken(id Identity, cfg TokenConfig) (string, error) {
	if cfg.Secret == "" {
		return "", errors.New("missing secret")
	}
	claims, err := newClaims(id, cfg)
	if err != nil {
		return "", err
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.Secret))
}

// CreateSignedToken mints an EdDSA token with key.
func CreateSignedToken(id Identity, cfg TokenConfig, key ed25519.PrivateKey) (string, error) {
	if len(key) != ed25519.PrivateKeySize {
		return "", errors.New("invalid private key")
	}
	claims, err := newClaims(id, cfg)
	if err != nil {
		return "", err
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(key)
}

func newClaims(id Identity, cfg TokenConfig) (Claims, error) {
	if id.UserID == "" {
		return Claims{}, errors.New("missing userID")
	}
	if cfg.Expiry == 0 {
		return Claims{}, errors.New("invalid expiry")
	}

	jtiBytes := make([]byte, 16)
	if _, err := rand.Read(jtiBytes); err != nil {
		return Claims{}, err
	}

	now := time.Now()
	return Claims{
		UserID: id.UserID,
		Email:  id.Email,
		Role:   id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.Expiry)),
			ID:        hex.EncodeToString(jtiBytes),
			Subject:   id.UserID,
		},
	}, nil
}
