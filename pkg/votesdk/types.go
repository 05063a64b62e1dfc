package votesdk

import "time"

// ErrorResponse is the wire shape of failure envelopes, used by the SDK
// client when parsing responses.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// RegisterRequest creates a voter account.
type RegisterRequest struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	DocumentNumber string `json:"document_number"`
}

// LoginRequest is a password login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SessionResponse describes the authenticated identity.
type SessionResponse struct {
	UserID        string `json:"user_id"`
	Username      string `json:"username"`
	Verified      bool   `json:"verified"`
	BiometricType string `json:"biometric_type"`
	IsAdmin       bool   `json:"is_admin,omitempty"`
}

// FaceEnrollRequest stores a reference capture.
type FaceEnrollRequest struct {
	Image string `json:"image"`
}

// CredentialEnrollRequest stores a WebAuthn credential.
type CredentialEnrollRequest struct {
	CredentialID string `json:"credential_id"`
	PublicKey    string `json:"public_key"`
	Algorithm    string `json:"algorithm"`
}

// ChallengeResponse carries a freshly issued assertion challenge.
type ChallengeResponse struct {
	Challenge string `json:"challenge"`
	ExpiresIn int    `json:"expires_in"`
}

// AssertionRequest is a WebAuthn authentication response. Byte fields are
// base64url; UserHandle is optional.
type AssertionRequest struct {
	CredentialID      string `json:"credential_id"`
	RawID             string `json:"raw_id"`
	Type              string `json:"type"`
	ClientDataJSON    string `json:"client_data_json"`
	AuthenticatorData string `json:"authenticator_data"`
	Signature         string `json:"signature"`
	UserHandle        string `json:"user_handle,omitempty"`
}

// FaceVerifyRequest submits a fresh capture for comparison.
type FaceVerifyRequest struct {
	Image string `json:"image"`
}

// FaceVerifyResponse reports the coarse outcome of a comparison. The
// band never carries the raw confidence on failure; the proof is present
// only on a match.
type FaceVerifyResponse struct {
	Matched bool   `json:"matched"`
	Band    string `json:"band"`
	Proof   string `json:"proof,omitempty"`
}

// IdentityConfirmRequest redeems a face proof.
type IdentityConfirmRequest struct {
	Proof string `json:"proof"`
}

// CastVoteRequest casts a ballot. FaceImage is required for face-gated
// voters and ignored otherwise.
type CastVoteRequest struct {
	ElectionID  string `json:"election_id"`
	CandidateID string `json:"candidate_id"`
	FaceImage   string `json:"face_image,omitempty"`
}

// CastVoteResponse acknowledges a recorded ballot.
type CastVoteResponse struct {
	VoteID     string    `json:"vote_id"`
	ElectionID string    `json:"election_id"`
	VotedAt    time.Time `json:"voted_at"`
}

// Candidate is one option within an election.
type Candidate struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ElectionResponse is an election with its derived state.
type ElectionResponse struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	State      string      `json:"state"`
	StartDate  time.Time   `json:"start_date"`
	EndDate    time.Time   `json:"end_date"`
	Candidates []Candidate `json:"candidates"`
}

// CreateElectionRequest defines a new election window (admin).
type CreateElectionRequest struct {
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// CreateCandidateRequest registers a candidate (admin).
type CreateCandidateRequest struct {
	Name string `json:"name"`
}

// HealthResponse is the liveness/readiness payload.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports per-dependency readiness.
type HealthChecks struct {
	Database string `json:"database"`
	Cache    string `json:"cache,omitempty"`
}
