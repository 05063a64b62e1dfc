package http

import (
	"encoding/json"
	"net/http"

	"github.com/openballot/votegate/internal/vote/domain"
	"github.com/openballot/votegate/internal/vote/service"
	"github.com/openballot/votegate/pkg/httpx"
	"github.com/openballot/votegate/pkg/slogx"
	"github.com/openballot/votegate/pkg/votesdk"
)

// AuthHandler handles registration, login, logout and session introspection.
type AuthHandler struct {
	Users    *service.UserService
	Sessions *service.SessionService

	// SecureCookies sets the Secure attribute; disabled only in local
	// development over plain HTTP.
	SecureCookies bool
}

func sessionResponse(u domain.User) votesdk.SessionResponse {
	return votesdk.SessionResponse{
		UserID:        u.ID,
		Username:      u.Username,
		Verified:      u.Verified,
		BiometricType: string(u.BiometricType),
		IsAdmin:       u.IsAdmin,
	}
}

// HandleRegister handles POST /v1/auth/register.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req votesdk.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		votesdk.ErrInvalidRequest.WriteError(w)
		return
	}

	user, err := h.Users.Register(r.Context(), service.RegisterParams{
		Username:       req.Username,
		Password:       req.Password,
		DocumentNumber: req.DocumentNumber,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slogx.FromContext(r.Context()).Info("voter registered", "user_id", user.ID)
	httpx.WriteJSON(w, http.StatusCreated, sessionResponse(user))
}

// HandleLogin handles POST /v1/auth/login. On success the session and
// CSRF cookies are set; the CSRF cookie is readable so the client can
// echo it in the double-submit header.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req votesdk.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		votesdk.ErrInvalidRequest.WriteError(w)
		return
	}

	user, err := h.Users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	token, csrfToken, err := h.Sessions.Create(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.setSessionCookies(w, token, csrfToken)
	slogx.FromContext(r.Context()).Info("voter logged in", "user_id", user.ID)
	httpx.WriteJSON(w, http.StatusOK, sessionResponse(user))
}

// HandleLogout handles POST /v1/auth/logout. Revokes the session row and
// expires both cookies. Always succeeds.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(votesdk.SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.Sessions.Clear(r.Context(), cookie.Value); err != nil {
			slogx.FromContext(r.Context()).Warn("failed to revoke session", "err", err)
		}
	}

	h.clearSessionCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleSession handles GET /v1/auth/session. Runs behind
// SessionMiddleware.
func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	userID := httpx.UserIDFromContext(r.Context())

	user, err := h.Users.GetUserByID(r.Context(), userID)
	if err != nil {
		votesdk.ErrInvalidSession.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, sessionResponse(user))
}

func (h *AuthHandler) setSessionCookies(w http.ResponseWriter, token, csrfToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     votesdk.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(domain.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     votesdk.CSRFCookieName,
		Value:    csrfToken,
		Path:     "/",
		MaxAge:   int(domain.SessionTTL.Seconds()),
		HttpOnly: false,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{votesdk.SessionCookieName, votesdk.CSRFCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: name == votesdk.SessionCookieName,
			Secure:   h.SecureCookies,
			SameSite: http.SameSiteStrictMode,
		})
	}
}
