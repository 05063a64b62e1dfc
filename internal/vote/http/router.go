package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/openballot/votegate/internal/vote/service"
	"github.com/openballot/votegate/internal/vote/store"
	"github.com/openballot/votegate/pkg/httpx"
	"github.com/openballot/votegate/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	resolver     *httpx.ClientIPResolver

	store store.Store

	// CachePing reports shared-cache health for readiness; nil when the
	// deployment runs on in-memory stores.
	CachePing func() error

	// SecureCookies is forwarded to the auth handler.
	SecureCookies bool
	// AdminUsers is the username allow-list granted the admin surface.
	AdminUsers []string

	UserService      *service.UserService
	SessionService   *service.SessionService
	BiometricService *service.BiometricService
	ChallengeService *service.ChallengeService
	WebAuthnService  *service.WebAuthnService
	FaceMatchService *service.FaceMatchService
	FaceProofSigner  *service.FaceProofSigner
	VoteService      *service.VoteService
	ElectionService  *service.ElectionService
}

func NewRouter(
	buildVersion string,
	st store.Store,
	resolver *httpx.ClientIPResolver,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		resolver:     resolver,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerBiometric()
	r.registerVoting()
	r.registerAdmin()
	r.registerSystem()
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// secured wraps a handler with session authentication, CSRF enforcement
// and a per-user rate limit.
func (r *Router) secured(h http.Handler, limit httpx.RateLimitConfig) http.Handler {
	return httpx.Chain(h,
		SessionMiddleware(r.SessionService),
		CSRFMiddleware(),
		httpx.RateLimitMiddleware(limit, httpx.UserIDKeyExtractor),
	)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		Users:         r.UserService,
		Sessions:      r.SessionService,
		SecureCookies: r.SecureCookies,
	}

	// Public credential endpoints get the strict brute-force limit by IP.
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitMiddleware(httpx.StrictLimit, httpx.IPKeyExtractor(r.resolver)),
		),
	)
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitMiddleware(httpx.StrictLimit, httpx.IPKeyExtractor(r.resolver)),
		),
	)

	// Logout is best-effort and deliberately unauthenticated: an expired
	// session must still be able to clear its cookies.
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitMiddleware(httpx.ModerateLimit, httpx.IPKeyExtractor(r.resolver)),
		),
	)

	r.Mux.Handle("GET /v1/auth/session",
		httpx.Chain(http.HandlerFunc(h.HandleSession),
			SessionMiddleware(r.SessionService),
			httpx.RateLimitMiddleware(httpx.LenientLimit, httpx.UserIDKeyExtractor),
		),
	)
}

func (r *Router) registerBiometric() {
	h := &BiometricHandler{
		Users:      r.UserService,
		Biometrics: r.BiometricService,
		Challenges: r.ChallengeService,
		WebAuthn:   r.WebAuthnService,
		FaceMatch:  r.FaceMatchService,
		FaceProofs: r.FaceProofSigner,
	}

	r.Mux.Handle("POST /v1/biometric/face/enroll",
		r.secured(http.HandlerFunc(h.HandleFaceEnroll), httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/biometric/fingerprint/enroll",
		r.secured(http.HandlerFunc(h.HandleCredentialEnroll), httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/biometric/fingerprint/challenge",
		r.secured(http.HandlerFunc(h.HandleChallenge), httpx.ModerateLimit))

	// Verification attempts carry the strict limit: each one burns a
	// challenge or hits the comparison provider.
	r.Mux.Handle("POST /v1/biometric/fingerprint/verify",
		r.secured(http.HandlerFunc(h.HandleFingerprintVerify), httpx.StrictLimit))
	r.Mux.Handle("POST /v1/biometric/face/verify",
		r.secured(http.HandlerFunc(h.HandleFaceVerify), httpx.StrictLimit))
	r.Mux.Handle("POST /v1/identity/confirm",
		r.secured(http.HandlerFunc(h.HandleIdentityConfirm), httpx.StrictLimit))
}

func (r *Router) registerVoting() {
	voteHandler := &VoteHandler{
		Users:    r.UserService,
		Votes:    r.VoteService,
		Resolver: r.resolver,
	}
	r.Mux.Handle("POST /v1/votes",
		r.secured(http.HandlerFunc(voteHandler.HandleCast), httpx.StrictLimit))

	electionHandler := &ElectionHandler{Elections: r.ElectionService}
	r.Mux.Handle("GET /v1/elections/{id}",
		httpx.Chain(http.HandlerFunc(electionHandler.HandleGet),
			SessionMiddleware(r.SessionService),
			httpx.RateLimitMiddleware(httpx.LenientLimit, httpx.UserIDKeyExtractor),
		),
	)
}

func (r *Router) registerAdmin() {
	h := &ElectionHandler{Elections: r.ElectionService}

	admin := func(handler http.Handler) http.Handler {
		return httpx.Chain(handler,
			SessionMiddleware(r.SessionService),
			AdminMiddleware(r.UserService, r.AdminUsers),
			CSRFMiddleware(),
			httpx.RateLimitMiddleware(httpx.ModerateLimit, httpx.UserIDKeyExtractor),
		)
	}

	r.Mux.Handle("POST /v1/admin/elections",
		admin(http.HandlerFunc(h.HandleCreate)))
	r.Mux.Handle("POST /v1/admin/elections/{id}/candidates",
		admin(http.HandlerFunc(h.HandleAddCandidate)))
	r.Mux.Handle("POST /v1/admin/elections/{id}/activate",
		admin(http.HandlerFunc(h.HandleActivate)))
	r.Mux.Handle("POST /v1/admin/elections/{id}/deactivate",
		admin(http.HandlerFunc(h.HandleDeactivate)))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.CachePing))
}
