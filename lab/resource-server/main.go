// Command resource-server is a lab harness: a minimal downstream
// service that accepts authgate access tokens. It shows what a
// consuming API needs to verify locally (signature, expiry, token
// kind) and what it cannot know without calling back (revocation).
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"authgate/internal/auth/tokens"
)

type apiResponse struct {
	Message string `json:"message"`
	UserID  string `json:"user_id,omitempty"`
	Role    string `json:"role,omitempty"`
	Warning string `json:"warning,omitempty"`
}

func main() {
	port := getenv("PORT", "9000")
	signingKey := getenv("AUTHGATE_JWT_SECRET", "dev-secret-change-in-production")
	issuer := getenv("AUTHGATE_JWT_ISSUER", "authgate")

	codec := tokens.NewCodec(signingKey, issuer, 24*time.Hour, 7*24*time.Hour)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, apiResponse{Message: "ok"})
	})
	mux.HandleFunc("/api/data", func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, apiResponse{Message: "missing bearer token"})
			return
		}

		claims, err := codec.VerifyAccess(token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, apiResponse{Message: "token rejected", Warning: err.Error()})
			return
		}

		writeJSON(w, http.StatusOK, apiResponse{
			Message: "token accepted",
			UserID:  claims.UserID,
			Role:    claims.Role,
			Warning: "revocation not checked; a logged-out token still verifies here",
		})
	})

	addr := fmt.Sprintf(":%s", port)
	log.Printf("lab resource server listening on %s", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Fatal(srv.ListenAndServe())
}

func writeJSON(w http.ResponseWriter, status int, payload apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func bearerToken(value string) string {
	scheme, token, found := strings.Cut(value, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
