package auth

import (
	"crypto/ed25519"
	"encoding/base64"
)

// ParsePublicKey decodes a standard base64 Ed25519 public key as it appears in
// the TOKEN_PUBLIC_KEY setting.
func ParsePublicKey(publicKeyB64 string) (ed25519.PublicKey, error) {
	publicKey, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil || len(publicKey) != ed25519.PublicKeySize {
		return nil, ErrInvalidPublicKey
	}
	return ed25519.PublicKey(publicKey), nil
}

// ParsePrivateKey accepts a base64 Ed25519 seed (32 bytes) or full private
// key (64 bytes).
func ParsePrivateKey(privateKeyB64 string) (ed25519.PrivateKey, error) {
	raw, err := base64.StdEncoding.DecodeString(privateKeyB64)
	if err != nil {
		return nil, ErrInvalidPrivateKey
	}
	switch len(raw) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(raw), nil
	default:
		return nil, ErrInvalidPrivateKey
	}
}
