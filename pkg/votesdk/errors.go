package votesdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/openballot/votegate/pkg/httpx"
)

// Stable error codes returned in the "error" field of failure responses.
const (
	ErrorCodeInvalidRequest       = "invalid_request"
	ErrorCodeInvalidCredentials   = "invalid_credentials"
	ErrorCodeInvalidSession       = "invalid_session"
	ErrorCodeInvalidCSRF          = "invalid_csrf"
	ErrorCodeRegistrationConflict = "registration_conflict"
	ErrorCodeIdentityUnverified   = "identity_unverified"
	ErrorCodeForbidden            = "forbidden"
	ErrorCodeNotFound             = "not_found"
	ErrorCodeElectionNotActive    = "election_not_active"
	ErrorCodeInvalidCandidate     = "invalid_candidate"
	ErrorCodeAlreadyVoted         = "already_voted"
	ErrorCodeDuplicateDevice      = "duplicate_device"
	ErrorCodeBiometricRequired    = "biometric_required"
	ErrorCodeBiometricMismatch    = "biometric_mismatch"
	ErrorCodeBiometricUnavailable = "biometric_unavailable"
	ErrorCodeReenrollRequired     = "reenroll_required"
	ErrorCodeRateLimited          = "rate_limit_exceeded"
	ErrorCodeServerError          = "server_error"
)

// APIError is the service's error envelope. It implements error and is
// shared between handlers (writing responses) and the SDK client
// (representing parsed failures).
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// WriteError writes the envelope to an HTTP response.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             e.Code,
		"error_description": e.Description,
	})
}

// Predefined errors. Descriptions are deliberately generic where the
// underlying cause must not be disclosed (credentials, session,
// registration conflicts, biometric sub-checks).
var (
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	ErrInvalidCredentials = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidCredentials,
		Description: "invalid username or password",
	}

	ErrInvalidSession = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidSession,
		Description: "authentication required",
	}

	ErrInvalidCSRF = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeInvalidCSRF,
		Description: "missing or invalid CSRF token",
	}

	ErrRegistrationConflict = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeRegistrationConflict,
		Description: "an account with these details already exists",
	}

	ErrIdentityUnverified = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeIdentityUnverified,
		Description: "identity verification required before voting",
	}

	ErrForbidden = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeForbidden,
		Description: "insufficient privileges",
	}

	ErrNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNotFound,
		Description: "resource not found",
	}

	ErrElectionNotActive = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeElectionNotActive,
		Description: "the election is not open for voting",
	}

	ErrInvalidCandidate = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidCandidate,
		Description: "the candidate does not belong to this election",
	}

	ErrAlreadyVoted = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeAlreadyVoted,
		Description: "a vote has already been recorded for this election",
	}

	ErrDuplicateDevice = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeDuplicateDevice,
		Description: "a vote from this device or address has already been recorded",
	}

	ErrBiometricRequired = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeBiometricRequired,
		Description: "biometric verification required",
	}

	ErrBiometricMismatch = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeBiometricMismatch,
		Description: "biometric verification failed",
	}

	ErrBiometricUnavailable = &APIError{
		StatusCode:  http.StatusBadGateway,
		Code:        ErrorCodeBiometricUnavailable,
		Description: "biometric verification is temporarily unavailable",
	}

	ErrReenrollRequired = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeReenrollRequired,
		Description: "biometric re-enrollment required",
	}

	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "an internal error occurred",
	}
)
