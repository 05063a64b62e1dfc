package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openballot/votegate/internal/vote/service"
	"github.com/openballot/votegate/internal/vote/store"
	"github.com/openballot/votegate/pkg/slogx"
	"github.com/openballot/votegate/pkg/votesdk"
)

// writeServiceError maps the service failure taxonomy onto the API error
// envelope. Unmapped errors are logged and collapse to a generic 500; raw
// store or provider errors never reach the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var rl *service.RateLimitedError
	if errors.As(err, &rl) {
		retryAfter := max(int(time.Until(rl.ResetAt).Seconds()), 1)
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
		apiErr := &votesdk.APIError{
			StatusCode:  http.StatusTooManyRequests,
			Code:        votesdk.ErrorCodeRateLimited,
			Description: "Too many requests. Please try again later.",
		}
		apiErr.WriteError(w)
		return
	}

	switch {
	case errors.Is(err, service.ErrMalformedRequest):
		votesdk.ErrInvalidRequest.WriteError(w)
	case errors.Is(err, service.ErrInvalidCredentials):
		votesdk.ErrInvalidCredentials.WriteError(w)
	case errors.Is(err, service.ErrInvalidSession):
		votesdk.ErrInvalidSession.WriteError(w)
	case errors.Is(err, service.ErrUserExists):
		votesdk.ErrRegistrationConflict.WriteError(w)
	case errors.Is(err, service.ErrUnverifiedIdentity):
		votesdk.ErrIdentityUnverified.WriteError(w)
	case errors.Is(err, service.ErrElectionNotActive):
		votesdk.ErrElectionNotActive.WriteError(w)
	case errors.Is(err, service.ErrInvalidCandidate):
		votesdk.ErrInvalidCandidate.WriteError(w)
	case errors.Is(err, service.ErrAlreadyVoted):
		votesdk.ErrAlreadyVoted.WriteError(w)
	case errors.Is(err, service.ErrDuplicateDevice):
		votesdk.ErrDuplicateDevice.WriteError(w)
	case errors.Is(err, service.ErrBiometricRequired):
		votesdk.ErrBiometricRequired.WriteError(w)
	case errors.Is(err, service.ErrBiometricMismatch):
		votesdk.ErrBiometricMismatch.WriteError(w)
	case errors.Is(err, service.ErrBiometricService):
		votesdk.ErrBiometricUnavailable.WriteError(w)
	case errors.Is(err, service.ErrReenrollRequired):
		votesdk.ErrReenrollRequired.WriteError(w)

	// WebAuthn categories all surface as a biometric failure; the
	// category name is included as the code for client guidance.
	case errors.Is(err, service.ErrAssertionMalformed):
		votesdk.ErrInvalidRequest.WriteError(w)
	case errors.Is(err, service.ErrChallengeExpired):
		(&votesdk.APIError{
			StatusCode:  http.StatusForbidden,
			Code:        "challenge_expired",
			Description: "the challenge has expired or does not match",
		}).WriteError(w)
	case errors.Is(err, service.ErrCredentialMismatch):
		(&votesdk.APIError{
			StatusCode:  http.StatusForbidden,
			Code:        "credential_mismatch",
			Description: "the credential is not registered for this account",
		}).WriteError(w)
	case errors.Is(err, service.ErrDomainBindingMismatch):
		(&votesdk.APIError{
			StatusCode:  http.StatusForbidden,
			Code:        "domain_mismatch",
			Description: "the assertion is bound to a different domain",
		}).WriteError(w)
	case errors.Is(err, service.ErrUserVerificationMissing):
		(&votesdk.APIError{
			StatusCode:  http.StatusForbidden,
			Code:        "user_verification_missing",
			Description: "the authenticator did not verify the user",
		}).WriteError(w)
	case errors.Is(err, service.ErrSignatureInvalid):
		(&votesdk.APIError{
			StatusCode:  http.StatusForbidden,
			Code:        "signature_invalid",
			Description: "the assertion signature is invalid",
		}).WriteError(w)

	case errors.Is(err, store.ErrNotFound):
		votesdk.ErrNotFound.WriteError(w)

	default:
		slogx.FromContext(r.Context()).Error("unhandled service error", "err", err)
		votesdk.ErrServerError.WriteError(w)
	}
}
