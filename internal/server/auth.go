package server

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunegate/internal/services"
	"github.com/desertthunder/tunegate/internal/session"
	"github.com/desertthunder/tunegate/internal/shared"
)

// Callback failure flags appended to the post-login redirect as ?error=<flag>.
const (
	flagMissingParams = "missing_params"
	flagStateMismatch = "state_mismatch"
	flagAccessDenied  = "access_denied"
	flagAuthFailed    = "auth_failed"
)

// AuthHandler serves the browser side of the authorization flow.
// Implements the [Handler] interface for registration with a [Router].
type AuthHandler struct {
	store   session.Store
	auth    *services.AuthService
	tokens  *services.TokenManager
	cookies session.Cookies
	logger  *log.Logger
}

// NewAuthHandler creates an [AuthHandler].
func NewAuthHandler(store session.Store, auth *services.AuthService, tokens *services.TokenManager, cookies session.Cookies, logger *log.Logger) *AuthHandler {
	return &AuthHandler{store: store, auth: auth, tokens: tokens, cookies: cookies, logger: logger}
}

// Routes returns the HTTP routes this handler serves, including the legacy aliases.
func (h *AuthHandler) Routes() []string {
	return []string{
		"/auth/start", "/auth/spotify",
		"/auth/callback", "/callback",
		"/auth/refresh", "/refresh_token",
		"/auth/logout",
	}
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}

	switch r.URL.Path {
	case "/auth/start", "/auth/spotify":
		h.start(w, r)
	case "/auth/callback", "/callback":
		h.callback(w, r)
	case "/auth/refresh", "/refresh_token":
		h.refresh(w, r)
	case "/auth/logout":
		h.logout(w, r)
	default:
		http.NotFound(w, r)
	}
}

// start reuses a live session or creates one, then redirects to the provider.
func (h *AuthHandler) start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := h.cookies.Read(r)

	live := false
	if id != "" {
		ok, err := h.store.Touch(ctx, id)
		if err != nil {
			h.logger.Error("session lookup failed", "error", err, "request_id", RequestID(ctx))
			writeError(w, http.StatusInternalServerError, "Failed to start authorization")
			return
		}
		live = ok
	}

	if !live {
		created, err := h.store.Create(ctx)
		if err != nil {
			h.logger.Error("session create failed", "error", err, "request_id", RequestID(ctx))
			writeError(w, http.StatusInternalServerError, "Failed to start authorization")
			return
		}
		id = created
	}
	h.cookies.Write(w, id)

	_, redirect, err := h.auth.Start(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrConfig) {
			h.logger.Error("authorization unavailable", "error", err, "request_id", RequestID(ctx))
			writeError(w, http.StatusInternalServerError, "Server is missing OAuth configuration")
			return
		}
		h.logger.Error("authorization start failed", "error", err, "request_id", RequestID(ctx))
		writeError(w, http.StatusInternalServerError, "Failed to start authorization")
		return
	}

	http.Redirect(w, r, redirect, http.StatusFound)
}

func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := services.CallbackParams{
		Code:  q.Get("code"),
		State: q.Get("state"),
		Error: q.Get("error"),
	}

	flow, err := h.auth.Callback(r.Context(), h.cookies.Read(r), params)
	if err != nil {
		h.logger.Warn("callback failed",
			"status", flow.Status(),
			"flag", callbackFlag(err),
			"request_id", RequestID(r.Context()),
		)
		http.Redirect(w, r, "/?error="+url.QueryEscape(callbackFlag(err)), http.StatusFound)
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

func callbackFlag(err error) string {
	switch {
	case errors.Is(err, shared.ErrMissingParams):
		return flagMissingParams
	case errors.Is(err, shared.ErrCSRFMismatch):
		return flagStateMismatch
	case errors.Is(err, shared.ErrAuthorizationDenied):
		return flagAccessDenied
	default:
		return flagAuthFailed
	}
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
}

// refresh forces a token refresh for the session and returns the new access token.
func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.tokens.Refresh(r.Context(), h.cookies.Read(r))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, refreshResponse{AccessToken: tokens.AccessToken})
	case errors.Is(err, shared.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "Not authenticated")
	default:
		h.logger.Error("token refresh failed", "status", shared.StatusOf(err), "error", err, "request_id", RequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "Failed to refresh token")
	}
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	if id := h.cookies.Read(r); id != "" {
		if err := h.store.Destroy(r.Context(), id); err != nil {
			h.logger.Error("session destroy failed", "error", err, "request_id", RequestID(r.Context()))
		}
	}
	h.cookies.Clear(w)
	http.Redirect(w, r, "/", http.StatusFound)
}
