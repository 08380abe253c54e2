package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"realtime-hub/internal/auth"
)

const identityContextKey = "identity"

func IdentityFromContext(c *gin.Context) (auth.Identity, bool) {
	value, ok := c.Get(identityContextKey)
	if !ok {
		return auth.Identity{}, false
	}
	identity, ok := value.(auth.Identity)
	return identity, ok && identity.UserID != ""
}

// RequireAuth accepts the same bearer tokens as the socket handshake.
func RequireAuth(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := verifier.Verify(c.GetHeader("Authorization"))
		if err != nil {
			reason := "Invalid authentication token"
			var ae *auth.AuthError
			if errors.As(err, &ae) {
				reason = ae.Reason()
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": reason})
			return
		}

		c.Set(identityContextKey, identity)
		c.Next()
	}
}
