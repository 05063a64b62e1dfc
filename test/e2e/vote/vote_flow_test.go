package vote_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openballot/votegate/pkg/votesdk"
)

// TestVoteFlow drives the whole surface through the SDK: account setup,
// election administration, identity verification and ballot casting.
func TestVoteFlow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	baseURL := startServer(t, 92)

	admin := signUp(t, ctx, baseURL, adminUsername)

	election, err := admin.CreateElection(ctx, votesdk.CreateElectionRequest{
		Name:      "Municipal Election 2026",
		StartDate: time.Now().Add(-time.Hour),
		EndDate:   time.Now().Add(48 * time.Hour),
	})
	require.NoError(t, err)

	first, err := admin.AddCandidate(ctx, election.ID, "Candidate A")
	require.NoError(t, err)
	_, err = admin.AddCandidate(ctx, election.ID, "Candidate B")
	require.NoError(t, err)

	require.NoError(t, admin.ActivateElection(ctx, election.ID))

	voter := signUp(t, ctx, baseURL, "first-voter")

	t.Run("fresh account starts unverified", func(t *testing.T) {
		sess, err := voter.Session(ctx)
		require.NoError(t, err)
		require.Equal(t, "first-voter", sess.Username)
		require.False(t, sess.Verified)
	})

	t.Run("casting before verification is refused", func(t *testing.T) {
		_, err := voter.CastVote(ctx, votesdk.CastVoteRequest{
			ElectionID:  election.ID,
			CandidateID: first.ID,
			FaceImage:   liveImage,
		})
		requireAPIError(t, err, http.StatusForbidden, votesdk.ErrorCodeIdentityUnverified)
	})

	verifyIdentity(t, ctx, voter)

	t.Run("verification flips the session flag", func(t *testing.T) {
		sess, err := voter.Session(ctx)
		require.NoError(t, err)
		require.True(t, sess.Verified)
		require.Equal(t, "face", sess.BiometricType)
	})

	t.Run("election is visible to voters", func(t *testing.T) {
		view, err := voter.GetElection(ctx, election.ID)
		require.NoError(t, err)
		require.Equal(t, "active", view.State)
		require.Len(t, view.Candidates, 2)
	})

	t.Run("verified voter casts a ballot", func(t *testing.T) {
		receipt, err := voter.CastVote(ctx, votesdk.CastVoteRequest{
			ElectionID:  election.ID,
			CandidateID: first.ID,
			FaceImage:   liveImage,
		})
		require.NoError(t, err)
		require.NotEmpty(t, receipt.VoteID)
		require.Equal(t, election.ID, receipt.ElectionID)
		require.False(t, receipt.VotedAt.IsZero())
	})

	t.Run("second ballot in the same election is refused", func(t *testing.T) {
		_, err := voter.CastVote(ctx, votesdk.CastVoteRequest{
			ElectionID:  election.ID,
			CandidateID: first.ID,
			FaceImage:   liveImage,
		})
		requireAPIError(t, err, http.StatusConflict, votesdk.ErrorCodeAlreadyVoted)
	})

	t.Run("another verified voter still gets through", func(t *testing.T) {
		second := signUp(t, ctx, baseURL, "second-voter")
		verifyIdentity(t, ctx, second)

		receipt, err := second.CastVote(ctx, votesdk.CastVoteRequest{
			ElectionID:  election.ID,
			CandidateID: first.ID,
			FaceImage:   liveImage,
		})
		require.NoError(t, err)
		require.NotEmpty(t, receipt.VoteID)
	})

	t.Run("logout invalidates the session", func(t *testing.T) {
		require.NoError(t, voter.Logout(ctx))

		_, err := voter.Session(ctx)
		requireAPIError(t, err, http.StatusUnauthorized, votesdk.ErrorCodeInvalidSession)
	})
}

// TestVoteFlowMismatch covers the rejection path: the provider reports a
// score below the threshold, so no proof and no ballot.
func TestVoteFlowMismatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	baseURL := startServer(t, 40)

	admin := signUp(t, ctx, baseURL, adminUsername)
	election, err := admin.CreateElection(ctx, votesdk.CreateElectionRequest{
		Name:      "Contested Election",
		StartDate: time.Now().Add(-time.Hour),
		EndDate:   time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	candidate, err := admin.AddCandidate(ctx, election.ID, "Only Candidate")
	require.NoError(t, err)
	require.NoError(t, admin.ActivateElection(ctx, election.ID))

	voter := signUp(t, ctx, baseURL, "impostor")
	require.NoError(t, voter.EnrollFace(ctx, enrollImage))

	t.Run("mismatch yields a band and nothing else", func(t *testing.T) {
		result, err := voter.FaceVerify(ctx, liveImage)
		require.NoError(t, err)
		require.False(t, result.Matched)
		require.Equal(t, "mismatch", result.Band)
		require.Empty(t, result.Proof)
	})

	t.Run("casting stays gated", func(t *testing.T) {
		_, err := voter.CastVote(ctx, votesdk.CastVoteRequest{
			ElectionID:  election.ID,
			CandidateID: candidate.ID,
			FaceImage:   liveImage,
		})
		requireAPIError(t, err, http.StatusForbidden, votesdk.ErrorCodeIdentityUnverified)
	})
}

// TestElectionClosed verifies the inactive-election refusal end to end.
func TestElectionClosed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	baseURL := startServer(t, 92)

	admin := signUp(t, ctx, baseURL, adminUsername)
	election, err := admin.CreateElection(ctx, votesdk.CreateElectionRequest{
		Name:      "Dormant Election",
		StartDate: time.Now().Add(-time.Hour),
		EndDate:   time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	candidate, err := admin.AddCandidate(ctx, election.ID, "Waiting Candidate")
	require.NoError(t, err)

	voter := signUp(t, ctx, baseURL, "eager-voter")
	verifyIdentity(t, ctx, voter)

	t.Run("never activated", func(t *testing.T) {
		_, err := voter.CastVote(ctx, votesdk.CastVoteRequest{
			ElectionID:  election.ID,
			CandidateID: candidate.ID,
			FaceImage:   liveImage,
		})
		requireAPIError(t, err, http.StatusConflict, votesdk.ErrorCodeElectionNotActive)
	})

	t.Run("deactivated after activation", func(t *testing.T) {
		require.NoError(t, admin.ActivateElection(ctx, election.ID))
		require.NoError(t, admin.DeactivateElection(ctx, election.ID))

		_, err := voter.CastVote(ctx, votesdk.CastVoteRequest{
			ElectionID:  election.ID,
			CandidateID: candidate.ID,
			FaceImage:   liveImage,
		})
		requireAPIError(t, err, http.StatusConflict, votesdk.ErrorCodeElectionNotActive)
	})
}

// TestHealthSurface checks both probes through the SDK.
func TestHealthSurface(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	baseURL := startServer(t, 92)
	client := votesdk.NewClient(baseURL)

	live, err := client.Livez(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)

	ready, err := client.Readyz(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.Equal(t, "ok", ready.Checks.Database)
}
