package auth

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier checks bearer tokens presented at handshake. It holds no mutable
// state and is safe for concurrent use.
type Verifier struct {
	cfg     TokenConfig
	methods []string
}

func NewVerifier(cfg TokenConfig) (*Verifier, error) {
	var methods []string
	if cfg.Secret != "" {
		methods = append(methods, jwt.SigningMethodHS256.Alg())
	}
	if len(cfg.PublicKey) != 0 {
		methods = append(methods, jwt.SigningMethodEdDSA.Alg())
	}
	if len(methods) == 0 {
		return nil, ErrMissingKeyMaterial
	}
	return &Verifier{cfg: cfg, methods: methods}, nil
}

func (v *Verifier) Verify(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if len(token) >= 6 && strings.EqualFold(token[:6], "Bearer") && (len(token) == 6 || token[6] == ' ') {
		token = strings.TrimSpace(token[6:])
	}
	if token == "" {
		return Identity{}, &AuthError{Kind: KindMissing}
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods(v.methods), jwt.WithExpirationRequired()}
	if v.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.cfg.Issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, v.key, opts...)
	if err != nil {
		return Identity{}, classify(err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Identity{}, &AuthError{Kind: KindInvalid, Err: jwt.ErrSignatureInvalid}
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return Identity{}, &AuthError{Kind: KindInvalid, Err: ErrMissingUserID}
	}
	return Identity{UserID: userID, Email: claims.Email, Role: claims.Role}, nil
}

func (v *Verifier) key(t *jwt.Token) (interface{}, error) {
	switch t.Method.(type) {
	case *jwt.SigningMethodHMAC:
		return []byte(v.cfg.Secret), nil
	case *jwt.SigningMethodEd25519:
		return v.cfg.PublicKey, nil
	default:
		return nil, jwt.ErrSignatureInvalid
	}
}

func classify(err error) *AuthError {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return &AuthError{Kind: KindMalformed, Err: err}
	case errors.Is(err, jwt.ErrTokenExpired):
		return &AuthError{Kind: KindExpired, Err: err}
	default:
		return &AuthError{Kind: KindInvalid, Err: err}
	}
}
