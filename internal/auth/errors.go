package auth

import "errors"

type ErrorKind int

const (
	KindMissing ErrorKind = iota + 1
	KindMalformed
	KindInvalid
	KindExpired
)

func (k ErrorKind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindMalformed:
		return "malformed"
	case KindInvalid:
		return "invalid"
	case KindExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// AuthError rejects a handshake. Err carries the underlying jwt error when
// there is one.
type AuthError struct {
	Kind ErrorKind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return "auth: " + e.Kind.String() + " token"
	}
	return "auth: " + e.Kind.String() + " token: " + e.Err.Error()
}

func (e *AuthError) Unwrap() error { return e.Err }

// Reason is the message shown to the client whose handshake was rejected.
func (e *AuthError) Reason() string {
	switch e.Kind {
	case KindMissing:
		return "Missing token"
	case KindMalformed:
		return "Malformed token"
	case KindExpired:
		return "Token expired"
	default:
		return "Invalid authentication token"
	}
}

func IsKind(err error, kind ErrorKind) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Kind == kind
}

var (
	ErrMissingKeyMaterial = errors.New("auth: a shared secret or a public key is required")
	ErrInvalidPublicKey   = errors.New("auth: invalid public key")
	ErrInvalidPrivateKey  = errors.New("auth: invalid private key")
	ErrMissingUserID      = errors.New("auth: token has no user id")
)
