package vote_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openballot/votegate/pkg/votesdk"
)

// TestFingerprintVoteFlow walks the WebAuthn modality end to end: enroll
// a credential, pass the assertion ceremony and cast a ballot with the
// one-shot verified flag.
func TestFingerprintVoteFlow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	baseURL := startServer(t, 92)

	admin := signUp(t, ctx, baseURL, adminUsername)
	election, err := admin.CreateElection(ctx, votesdk.CreateElectionRequest{
		Name:      "Board Election",
		StartDate: time.Now().Add(-time.Hour),
		EndDate:   time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)
	candidate, err := admin.AddCandidate(ctx, election.ID, "Candidate P")
	require.NoError(t, err)
	require.NoError(t, admin.ActivateElection(ctx, election.ID))

	voter := signUp(t, ctx, baseURL, "print-voter")
	auth := newAuthenticator(t)

	require.NoError(t, voter.EnrollCredential(ctx, votesdk.CredentialEnrollRequest{
		CredentialID: auth.credentialID,
		PublicKey:    auth.publicKey(t),
		Algorithm:    "ES256",
	}))

	t.Run("assertion ceremony confirms the identity", func(t *testing.T) {
		ch, err := voter.FingerprintChallenge(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, ch.Challenge)

		require.NoError(t, voter.FingerprintVerify(ctx, auth.assertion(t, ch.Challenge, baseURL)))

		sess, err := voter.Session(ctx)
		require.NoError(t, err)
		require.True(t, sess.Verified)
		require.Equal(t, "fingerprint", sess.BiometricType)
	})

	t.Run("verified assertion authorizes exactly one ballot", func(t *testing.T) {
		receipt, err := voter.CastVote(ctx, votesdk.CastVoteRequest{
			ElectionID:  election.ID,
			CandidateID: candidate.ID,
		})
		require.NoError(t, err)
		require.NotEmpty(t, receipt.VoteID)

		// The one-shot flag went with the first ballot; another cast
		// needs a fresh ceremony before any duplicate check is reached.
		_, err = voter.CastVote(ctx, votesdk.CastVoteRequest{
			ElectionID:  election.ID,
			CandidateID: candidate.ID,
		})
		requireAPIError(t, err, http.StatusForbidden, votesdk.ErrorCodeBiometricRequired)
	})

	t.Run("fresh ceremony still cannot double vote", func(t *testing.T) {
		ch, err := voter.FingerprintChallenge(ctx)
		require.NoError(t, err)
		require.NoError(t, voter.FingerprintVerify(ctx, auth.assertion(t, ch.Challenge, baseURL)))

		_, err = voter.CastVote(ctx, votesdk.CastVoteRequest{
			ElectionID:  election.ID,
			CandidateID: candidate.ID,
		})
		requireAPIError(t, err, http.StatusConflict, votesdk.ErrorCodeAlreadyVoted)
	})
}
