// Command tokengen generates test token pairs for local development.
// Tokens are signed with the dev secret and will NOT verify against a
// production deployment.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"authgate/internal/auth/models"
	"authgate/internal/auth/tokens"
	"authgate/internal/platform/config"
)

type output struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	AccessExpiresAt  string `json:"access_expires_at"`
	RefreshExpiresAt string `json:"refresh_expires_at"`
	UserID           string `json:"user_id"`
	Role             string `json:"role"`
}

func main() {
	userID := flag.String("user-id", "", "user id (UUID, generated if empty)")
	role := flag.String("role", "user", "role claim (user|premium|pro|moderator|admin)")
	accessTTL := flag.Duration("access-ttl", 24*time.Hour, "access token time-to-live")
	asJSON := flag.Bool("json", false, "output as JSON")
	flag.Parse()

	id := uuid.New()
	if *userID != "" {
		parsed, err := uuid.Parse(*userID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -user-id: %v\n", err)
			os.Exit(1)
		}
		id = parsed
	}

	r := models.Role(*role)
	if !r.IsValid() {
		fmt.Fprintf(os.Stderr, "invalid -role: %q\n", *role)
		os.Exit(1)
	}

	cfg := config.FromEnv()
	codec := tokens.NewCodec(cfg.Tokens.SigningSecret, cfg.Tokens.Issuer, *accessTTL, cfg.Tokens.RefreshTTL)

	pair, err := codec.Issue(id, r, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "issue tokens: %v\n", err)
		os.Exit(1)
	}

	out := output{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessExpiresAt.Format(time.RFC3339),
		RefreshExpiresAt: pair.RefreshExpiresAt.Format(time.RFC3339),
		UserID:           id.String(),
		Role:             r.String(),
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
		return
	}

	fmt.Printf("user_id:       %s\n", out.UserID)
	fmt.Printf("role:          %s\n", out.Role)
	fmt.Printf("access_token:  %s\n", out.AccessToken)
	fmt.Printf("refresh_token: %s\n", out.RefreshToken)
	fmt.Printf("expires:       %s\n", out.AccessExpiresAt)
	fmt.Println()
	fmt.Println(`Usage: curl -H "Authorization: Bearer <access_token>" http://localhost:8080/auth/me`)
}
