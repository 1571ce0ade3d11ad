package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"authgate/internal/auth/guard"
	authMW "authgate/internal/auth/middleware"
	"authgate/internal/auth/models"
	"authgate/internal/platform/middleware"
	dErrors "authgate/pkg/domain-errors"
	"authgate/pkg/httputil"
)

// Service defines the authentication operations the transport layer needs.
type Service interface {
	Login(ctx context.Context, req *models.LoginRequest) (*models.TokenResult, error)
	Refresh(ctx context.Context, req *models.RefreshRequest) (*models.TokenResult, error)
	Logout(ctx context.Context, accessToken string) error
	LogoutAll(ctx context.Context, identity *models.Identity) (*models.LogoutAllResult, error)
	UserInfo(ctx context.Context, identity *models.Identity) (*models.UserInfoResult, error)
	Sessions(ctx context.Context, identity *models.Identity) (*models.SessionsResult, error)
}

// Handler exposes the session lifecycle over HTTP. It delegates to the
// auth service and keeps transport concerns (decoding, headers, status
// mapping) out of the domain.
type Handler struct {
	auth   Service
	logger *slog.Logger
}

func New(auth Service, logger *slog.Logger) *Handler {
	return &Handler{
		auth:   auth,
		logger: logger,
	}
}

// Register wires the public auth routes. Protected routes must be
// mounted behind the auth middleware by the parent router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/login", h.HandleLogin)
	r.Post("/auth/refresh", h.HandleRefresh)
	r.Post("/auth/logout", h.HandleLogout)
}

// RegisterProtected wires the routes that require a verified identity.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Get("/auth/me", h.HandleUserInfo)
	r.Get("/auth/sessions", h.HandleListSessions)
	r.Post("/auth/logout-all", h.HandleLogoutAll)
}

// HandleLogin implements POST /auth/login.
//
// Input: { "email": "user@example.com", "password": "..." }
// Output: { "access_token": "...", "refresh_token": "...", "expires_in": ..., "token_type": "Bearer", "session_id": "..." }
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	req.IPAddress = middleware.GetClientIP(ctx)
	req.UserAgent = r.UserAgent()

	res, err := h.auth.Login(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "login failed",
			"error", err,
			"request_id", requestID,
		)
		writeAuthError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "login successful",
		"request_id", requestID,
		"session_id", res.SessionID,
	)
	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleRefresh implements POST /auth/refresh.
//
// Input: { "refresh_token": "..." }
// Output: same shape as login; the session keeps its id but both
// tokens are replaced.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.RefreshRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	req.IPAddress = middleware.GetClientIP(ctx)
	req.UserAgent = r.UserAgent()

	res, err := h.auth.Refresh(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "token refresh failed",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleLogout implements POST /auth/logout. The token to revoke is
// the bearer token itself; logout of an unknown or already revoked
// token succeeds so retries are harmless.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	token := authMW.BearerToken(r)
	if err := h.auth.Logout(ctx, token); err != nil {
		h.logger.WarnContext(ctx, "logout failed",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// HandleLogoutAll implements POST /auth/logout-all.
func (h *Handler) HandleLogoutAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity := authMW.GetIdentity(ctx)
	if identity == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	res, err := h.auth.LogoutAll(ctx, identity)
	if err != nil {
		h.logger.ErrorContext(ctx, "logout-all failed",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
			"user_id", identity.UserID,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleUserInfo implements GET /auth/me.
func (h *Handler) HandleUserInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity := authMW.GetIdentity(ctx)
	if identity == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	res, err := h.auth.UserInfo(ctx, identity)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleListSessions implements GET /auth/sessions.
func (h *Handler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity := authMW.GetIdentity(ctx)
	if identity == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	res, err := h.auth.Sessions(ctx, identity)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}

// writeAuthError adds the Retry-After hint when the account is locked,
// then falls through to the shared error envelope.
func writeAuthError(w http.ResponseWriter, err error) {
	var lockout *guard.LockoutError
	if errors.As(err, &lockout) {
		if seconds := int(time.Until(lockout.Until).Seconds()); seconds > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
		}
	}
	httputil.WriteError(w, err)
}
