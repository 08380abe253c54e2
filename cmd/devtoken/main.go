// Command devtoken mints development tokens for the hub.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"realtime-hub/internal/auth"
)

func main() {
	var (
		userID     = pflag.StringP("user", "u", "", "user id (required)")
		email      = pflag.String("email", "", "email claim")
		role       = pflag.String("role", "", "role claim")
		secret     = pflag.String("secret", os.Getenv("MASTER_SECRET"), "HS256 secret")
		privateKey = pflag.String("private-key", "", "base64 Ed25519 seed or private key; signs with EdDSA instead of HS256")
		issuer     = pflag.String("issuer", os.Getenv("TOKEN_ISSUER"), "issuer claim")
		expiry     = pflag.Duration("expiry", 24*time.Hour, "token lifetime")
	)
	pflag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "devtoken: --user is required")
		pflag.Usage()
		os.Exit(2)
	}

	id := auth.Identity{UserID: *userID, Email: *email, Role: *role}
	cfg := auth.TokenConfig{Secret: *secret, Issuer: *issuer, Expiry: *expiry}

	var (
		token string
		err   error
	)
	if *privateKey != "" {
		key, keyErr := auth.ParsePrivateKey(*privateKey)
		if keyErr != nil {
			fmt.Fprintln(os.Stderr, "devtoken:", keyErr)
			os.Exit(1)
		}
		token, err = auth.CreateSignedToken(id, cfg, key)
	} else {
		token, err = auth.CreateToken(id, cfg)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "devtoken:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
