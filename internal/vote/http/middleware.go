package http

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/openballot/votegate/internal/vote/service"
	"github.com/openballot/votegate/pkg/httpx"
	"github.com/openballot/votegate/pkg/votesdk"
)

// SessionMiddleware authenticates requests from the session cookie. The
// user and session IDs are injected into the request context; requests
// without a valid session are rejected before the handler runs.
func SessionMiddleware(sessions *service.SessionService) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(votesdk.SessionCookieName)
			if err != nil || cookie.Value == "" {
				votesdk.ErrInvalidSession.WriteError(w)
				return
			}

			sess, err := sessions.Parse(r.Context(), cookie.Value)
			if err != nil {
				votesdk.ErrInvalidSession.WriteError(w)
				return
			}

			ctx := context.WithValue(r.Context(), httpx.CtxKeyUserID, sess.UserID)
			ctx = context.WithValue(ctx, httpx.CtxKeySessionID, sess.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CSRFMiddleware enforces the double-submit check on mutations: the
// X-CSRF-Token header must match the CSRF cookie byte for byte. Safe
// methods pass through.
func CSRFMiddleware() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(votesdk.CSRFCookieName)
			if err != nil || cookie.Value == "" {
				votesdk.ErrInvalidCSRF.WriteError(w)
				return
			}
			header := r.Header.Get(votesdk.CSRFHeaderName)
			if header == "" ||
				subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(header)) != 1 {
				votesdk.ErrInvalidCSRF.WriteError(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AdminMiddleware restricts a route to admin users: the stored is_admin
// flag or membership of the configured username allow-list. Must run
// after SessionMiddleware.
func AdminMiddleware(users *service.UserService, allowList []string) httpx.Middleware {
	allowed := make(map[string]struct{}, len(allowList))
	for _, name := range allowList {
		allowed[name] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := httpx.UserIDFromContext(r.Context())
			if userID == "" {
				votesdk.ErrInvalidSession.WriteError(w)
				return
			}

			user, err := users.GetUserByID(r.Context(), userID)
			if err != nil {
				votesdk.ErrInvalidSession.WriteError(w)
				return
			}

			_, listed := allowed[user.Username]
			if !user.IsAdmin && !listed {
				votesdk.ErrForbidden.WriteError(w)
				return
			}

			ctx := context.WithValue(r.Context(), httpx.CtxKeyIsAdmin, true)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
