package votesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// Cookie names set by the service. The CSRF cookie is readable by the
// client and echoed back in the header on every mutation.
const (
	SessionCookieName = "votegate_session"
	CSRFCookieName    = "votegate_csrf"
	CSRFHeaderName    = "X-CSRF-Token"
)

// Client is an HTTP client for the vote service. Authentication is
// cookie-based; the client keeps a jar and replays the CSRF double-submit
// header automatically.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	csrfToken string
}

// NewClient creates a client with a fresh cookie jar.
func NewClient(baseURL string) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
		},
	}
}

func (c *Client) url(path string) string {
	return c.BaseURL + path
}

// do performs a JSON request and decodes the response into out (when
// non-nil). Non-2xx responses are parsed into *APIError.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if method != http.MethodGet && c.csrfToken != "" {
		req.Header.Set(CSRFHeaderName, c.csrfToken)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	// Track the CSRF cookie for the double-submit header.
	for _, cookie := range resp.Cookies() {
		if cookie.Name == CSRFCookieName {
			c.csrfToken = cookie.Value
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
			return &APIError{
				StatusCode:  resp.StatusCode,
				Code:        ErrorCodeServerError,
				Description: fmt.Sprintf("unexpected status %d", resp.StatusCode),
			}
		}
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        e.Error,
			Description: e.ErrorDescription,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Register creates a voter account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (SessionResponse, error) {
	var out SessionResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/register", req, &out)
	return out, err
}

// Login authenticates and stores the session cookies in the jar.
func (c *Client) Login(ctx context.Context, username, password string) (SessionResponse, error) {
	var out SessionResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/login", LoginRequest{
		Username: username,
		Password: password,
	}, &out)
	return out, err
}

// Logout revokes the current session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/v1/auth/logout", nil, nil)
}

// Session returns the current authenticated identity.
func (c *Client) Session(ctx context.Context) (SessionResponse, error) {
	var out SessionResponse
	err := c.do(ctx, http.MethodGet, "/v1/auth/session", nil, &out)
	return out, err
}

// EnrollFace stores a reference capture.
func (c *Client) EnrollFace(ctx context.Context, image string) error {
	return c.do(ctx, http.MethodPost, "/v1/biometric/face/enroll", FaceEnrollRequest{Image: image}, nil)
}

// EnrollCredential stores a WebAuthn credential.
func (c *Client) EnrollCredential(ctx context.Context, req CredentialEnrollRequest) error {
	return c.do(ctx, http.MethodPost, "/v1/biometric/fingerprint/enroll", req, nil)
}

// FingerprintChallenge issues a fresh assertion challenge.
func (c *Client) FingerprintChallenge(ctx context.Context) (ChallengeResponse, error) {
	var out ChallengeResponse
	err := c.do(ctx, http.MethodPost, "/v1/biometric/fingerprint/challenge", nil, &out)
	return out, err
}

// FingerprintVerify submits an assertion for verification.
func (c *Client) FingerprintVerify(ctx context.Context, req AssertionRequest) error {
	return c.do(ctx, http.MethodPost, "/v1/biometric/fingerprint/verify", req, nil)
}

// FaceVerify submits a fresh capture for comparison.
func (c *Client) FaceVerify(ctx context.Context, image string) (FaceVerifyResponse, error) {
	var out FaceVerifyResponse
	err := c.do(ctx, http.MethodPost, "/v1/biometric/face/verify", FaceVerifyRequest{Image: image}, &out)
	return out, err
}

// ConfirmIdentity redeems a face proof for the verified flag.
func (c *Client) ConfirmIdentity(ctx context.Context, proof string) error {
	return c.do(ctx, http.MethodPost, "/v1/identity/confirm", IdentityConfirmRequest{Proof: proof}, nil)
}

// CastVote submits a ballot.
func (c *Client) CastVote(ctx context.Context, req CastVoteRequest) (CastVoteResponse, error) {
	var out CastVoteResponse
	err := c.do(ctx, http.MethodPost, "/v1/votes", req, &out)
	return out, err
}

// GetElection fetches an election with its derived state and candidates.
func (c *Client) GetElection(ctx context.Context, id string) (ElectionResponse, error) {
	var out ElectionResponse
	err := c.do(ctx, http.MethodGet, "/v1/elections/"+id, nil, &out)
	return out, err
}

// CreateElection creates an election (admin).
func (c *Client) CreateElection(ctx context.Context, req CreateElectionRequest) (ElectionResponse, error) {
	var out ElectionResponse
	err := c.do(ctx, http.MethodPost, "/v1/admin/elections", req, &out)
	return out, err
}

// AddCandidate registers a candidate (admin).
func (c *Client) AddCandidate(ctx context.Context, electionID, name string) (Candidate, error) {
	var out Candidate
	err := c.do(ctx, http.MethodPost, "/v1/admin/elections/"+electionID+"/candidates",
		CreateCandidateRequest{Name: name}, &out)
	return out, err
}

// ActivateElection flips the stored active flag on (admin).
func (c *Client) ActivateElection(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/v1/admin/elections/"+id+"/activate", nil, nil)
}

// DeactivateElection flips the stored active flag off (admin).
func (c *Client) DeactivateElection(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/v1/admin/elections/"+id+"/deactivate", nil, nil)
}

// Livez checks liveness.
func (c *Client) Livez(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.do(ctx, http.MethodGet, "/livez", nil, &out)
	return out, err
}

// Readyz checks readiness.
func (c *Client) Readyz(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.do(ctx, http.MethodGet, "/readyz", nil, &out)
	return out, err
}
