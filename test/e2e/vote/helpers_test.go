package vote_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openballot/votegate/internal/vote/challenge"
	"github.com/openballot/votegate/internal/vote/faceapi"
	votehttp "github.com/openballot/votegate/internal/vote/http"
	"github.com/openballot/votegate/internal/vote/ratelimit"
	"github.com/openballot/votegate/internal/vote/service"
	"github.com/openballot/votegate/internal/vote/store/drivers/sqlite"
	"github.com/openballot/votegate/pkg/cryptox"
	"github.com/openballot/votegate/pkg/httpx"
	"github.com/openballot/votegate/pkg/slogx"
	"github.com/openballot/votegate/pkg/votesdk"
)

const (
	adminUsername = "returning-officer"
	testPassword  = "a perfectly fine passphrase"

	// Valid base64 stand-ins for captured images.
	enrollImage = "ZW5yb2xsLWNhcHR1cmU="
	liveImage   = "bGl2ZS1jYXB0dXJl"

	// rpID the test deployment binds credentials to; httptest servers
	// listen on this host.
	rpID = "127.0.0.1"
)

// startServer boots the full HTTP surface on in-memory storage with a
// stub face provider reporting the given confidence for every compare.
func startServer(t *testing.T, confidence float64) string {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(faceapi.CompareResult{Confidence: confidence})
	}))
	t.Cleanup(provider.Close)

	box, err := cryptox.NewSessionBox("e2e-session-secret")
	require.NoError(t, err)

	challenges := &service.ChallengeService{Store: challenge.NewMemoryStore()}
	faceMatch := &service.FaceMatchService{
		Comparer: faceapi.NewClient(provider.URL),
		Floor:    70,
		Margin:   5,
	}

	logger := slogx.New(slogx.Config{Service: "votegate-e2e", Level: "error", Format: "text"})
	router := votehttp.NewRouter("e2e", st, &httpx.ClientIPResolver{}, logger)
	router.AdminUsers = []string{adminUsername}
	router.UserService = &service.UserService{Store: st}
	router.SessionService = &service.SessionService{Store: st, Box: box}
	router.BiometricService = &service.BiometricService{Store: st}
	router.ChallengeService = challenges
	router.WebAuthnService = &service.WebAuthnService{
		RPID:          rpID,
		AllowLoopback: true,
		Challenges:    challenges,
	}
	router.FaceMatchService = faceMatch
	router.FaceProofSigner = &service.FaceProofSigner{Secret: []byte("e2e-session-secret")}
	router.VoteService = &service.VoteService{
		Store:      st,
		Limiter:    ratelimit.New(ratelimit.NewMemoryStore()),
		Face:       faceMatch,
		Challenges: challenges,
		// Every client in the suite shares the test host's address and
		// user agent, which would trip the duplicate-device heuristic.
		EnforceDeviceChecks: false,
		TrackVoterIP:        false,
	}
	router.ElectionService = &service.ElectionService{Store: st}
	router.ApplyRoutes()

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server.URL
}

// signUp registers and logs a fresh account in, returning its client.
func signUp(t *testing.T, ctx context.Context, baseURL, username string) *votesdk.Client {
	t.Helper()

	client := votesdk.NewClient(baseURL)
	_, err := client.Register(ctx, votesdk.RegisterRequest{
		Username:       username,
		Password:       testPassword,
		DocumentNumber: "DOC-" + username,
	})
	require.NoError(t, err)

	_, err = client.Login(ctx, username, testPassword)
	require.NoError(t, err)
	return client
}

// verifyIdentity walks enrollment, comparison and proof redemption.
func verifyIdentity(t *testing.T, ctx context.Context, client *votesdk.Client) {
	t.Helper()

	require.NoError(t, client.EnrollFace(ctx, enrollImage))

	result, err := client.FaceVerify(ctx, liveImage)
	require.NoError(t, err)
	require.True(t, result.Matched)
	require.NotEmpty(t, result.Proof)

	require.NoError(t, client.ConfirmIdentity(ctx, result.Proof))
}

// authenticator is a software stand-in for a platform authenticator
// holding one ES256 credential.
type authenticator struct {
	priv         *ecdsa.PrivateKey
	credentialID string
}

func newAuthenticator(t *testing.T) *authenticator {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return &authenticator{priv: priv, credentialID: "voter-credential"}
}

// publicKey returns the credential key as base64 SPKI DER for enrollment.
func (a *authenticator) publicKey(t *testing.T) string {
	t.Helper()

	der, err := x509.MarshalPKIXPublicKey(&a.priv.PublicKey)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(der)
}

// assertion signs the challenge the way a browser get() ceremony would,
// with user presence and user verification flags set.
func (a *authenticator) assertion(t *testing.T, challengeValue, origin string) votesdk.AssertionRequest {
	t.Helper()

	clientDataRaw, err := json.Marshal(map[string]string{
		"type":      "webauthn.get",
		"challenge": challengeValue,
		"origin":    origin,
	})
	require.NoError(t, err)

	rpIDHash := sha256.Sum256([]byte(rpID))
	authData := append(append([]byte{}, rpIDHash[:]...), 0x05, 0, 0, 0, 1)

	clientDataHash := sha256.Sum256(clientDataRaw)
	signed := append(append([]byte{}, authData...), clientDataHash[:]...)
	digest := sha256.Sum256(signed)
	sig, err := ecdsa.SignASN1(rand.Reader, a.priv, digest[:])
	require.NoError(t, err)

	return votesdk.AssertionRequest{
		CredentialID:      a.credentialID,
		RawID:             a.credentialID,
		Type:              "public-key",
		ClientDataJSON:    base64.RawURLEncoding.EncodeToString(clientDataRaw),
		AuthenticatorData: base64.RawURLEncoding.EncodeToString(authData),
		Signature:         base64.RawURLEncoding.EncodeToString(sig),
	}
}

// requireAPIError asserts err is an *votesdk.APIError with the given code.
func requireAPIError(t *testing.T, err error, status int, code string) {
	t.Helper()

	var apiErr *votesdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, status, apiErr.StatusCode)
	require.Equal(t, code, apiErr.Code)
}
