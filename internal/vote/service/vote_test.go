package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openballot/votegate/internal/vote/challenge"
	"github.com/openballot/votegate/internal/vote/domain"
	"github.com/openballot/votegate/internal/vote/faceapi"
	"github.com/openballot/votegate/internal/vote/ratelimit"
	"github.com/openballot/votegate/internal/vote/store"
	"github.com/openballot/votegate/pkg/idx"
)

// voteFixture wires a coordinator against real in-memory storage with a
// fake face provider.
type voteFixture struct {
	store      store.Store
	comparer   *fakeComparer
	challenges *ChallengeService
	votes      *VoteService

	election  domain.Election
	candidate domain.Candidate
	now       time.Time
}

func newVoteFixture(t *testing.T) *voteFixture {
	t.Helper()
	ctx := context.Background()

	f := &voteFixture{
		store:    newTestStore(t),
		comparer: &fakeComparer{result: faceapi.CompareResult{Confidence: 90}},
		now:      time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC),
	}

	f.challenges = &ChallengeService{
		Store: challenge.NewMemoryStore(),
		Now:   func() time.Time { return f.now },
	}

	f.election = domain.Election{
		ID:        idx.New().String(),
		Name:      "Board Election 2026",
		IsActive:  true,
		StartDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 2, 28, 23, 59, 59, 0, time.UTC),
		CreatedAt: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, f.store.Elections().CreateElection(ctx, f.election))

	f.candidate = domain.Candidate{
		ID:         idx.New().String(),
		ElectionID: f.election.ID,
		Name:       "Candidate A",
	}
	require.NoError(t, f.store.Candidates().CreateCandidate(ctx, f.candidate))

	f.votes = &VoteService{
		Store:   f.store,
		Limiter: ratelimit.New(ratelimit.NewMemoryStore()),
		Face: &FaceMatchService{
			Comparer: f.comparer,
			Floor:    70,
			Margin:   5,
		},
		Challenges:          f.challenges,
		EnforceDeviceChecks: true,
		TrackVoterIP:        true,
		Now:                 func() time.Time { return f.now },
	}
	return f
}

func (f *voteFixture) faceVoter(t *testing.T) domain.User {
	t.Helper()
	return createTestUser(t, f.store, func(u *domain.User) {
		u.BiometricType = domain.BiometricFace
		u.FaceEnrollment = &domain.FaceEnrollment{
			Version: domain.FaceEnrollmentToken,
			Data:    "enrollment-data",
		}
		u.Verified = true
	})
}

func (f *voteFixture) fingerprintVoter(t *testing.T) domain.User {
	t.Helper()
	return createTestUser(t, f.store, func(u *domain.User) {
		u.BiometricType = domain.BiometricFingerprint
		u.Credential = &domain.Credential{
			ID:        "cred",
			PublicKey: []byte{0x30},
			Algorithm: "ES256",
		}
		u.Verified = true
	})
}

func (f *voteFixture) params(user domain.User) CastParams {
	return CastParams{
		UserID:            user.ID,
		ElectionID:        f.election.ID,
		CandidateID:       f.candidate.ID,
		FaceImage:         "fresh-capture",
		ClientIP:          "203.0.113.10",
		DeviceFingerprint: "device-" + user.ID,
	}
}

func TestCastHappyPathFace(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newVoteFixture(t)
	user := f.faceVoter(t)

	vote, err := f.votes.Cast(ctx, user, f.params(user))
	require.NoError(t, err)
	require.Equal(t, f.election.ID, vote.ElectionID)
	require.Equal(t, "203.0.113.10", vote.IPAddress)
	require.Equal(t, 1, f.comparer.calls, "face mode compares freshly on cast")

	voted, err := f.store.Votes().HasVoted(ctx, user.ID, f.election.ID)
	require.NoError(t, err)
	require.True(t, voted)
}

func TestCastHappyPathFingerprint(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newVoteFixture(t)
	user := f.fingerprintVoter(t)

	require.NoError(t, f.challenges.MarkVerified(ctx, user.ID))

	_, err := f.votes.Cast(ctx, user, f.params(user))
	require.NoError(t, err)
	require.Zero(t, f.comparer.calls, "fingerprint mode never calls the face provider")
}

func TestCastFingerprintFlagIsOneShot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newVoteFixture(t)
	user := f.fingerprintVoter(t)

	require.NoError(t, f.challenges.MarkVerified(ctx, user.ID))
	_, err := f.votes.Cast(ctx, user, f.params(user))
	require.NoError(t, err)

	// A second election cannot ride the consumed flag.
	other := domain.Election{
		ID:        idx.New().String(),
		Name:      "Second Election",
		IsActive:  true,
		StartDate: f.election.StartDate,
		EndDate:   f.election.EndDate,
		CreatedAt: f.election.CreatedAt,
	}
	require.NoError(t, f.store.Elections().CreateElection(ctx, other))
	cand := domain.Candidate{ID: idx.New().String(), ElectionID: other.ID, Name: "B"}
	require.NoError(t, f.store.Candidates().CreateCandidate(ctx, cand))

	p := f.params(user)
	p.ElectionID = other.ID
	p.CandidateID = cand.ID
	_, err = f.votes.Cast(ctx, user, p)
	require.ErrorIs(t, err, ErrBiometricRequired)
}

func TestCastRejections(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("unverified identity", func(t *testing.T) {
		f := newVoteFixture(t)
		user := f.faceVoter(t)
		user.Verified = false

		_, err := f.votes.Cast(ctx, user, f.params(user))
		require.ErrorIs(t, err, ErrUnverifiedIdentity)
	})

	t.Run("election not yet started", func(t *testing.T) {
		f := newVoteFixture(t)
		user := f.faceVoter(t)
		f.now = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

		_, err := f.votes.Cast(ctx, user, f.params(user))
		require.ErrorIs(t, err, ErrElectionNotActive)
	})

	t.Run("election window over", func(t *testing.T) {
		f := newVoteFixture(t)
		user := f.faceVoter(t)
		f.now = time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)

		_, err := f.votes.Cast(ctx, user, f.params(user))
		require.ErrorIs(t, err, ErrElectionNotActive)
	})

	t.Run("flag cleared mid-window", func(t *testing.T) {
		f := newVoteFixture(t)
		user := f.faceVoter(t)
		require.NoError(t, f.store.Elections().SetElectionActive(ctx, f.election.ID, false))

		_, err := f.votes.Cast(ctx, user, f.params(user))
		require.ErrorIs(t, err, ErrElectionNotActive)
	})

	t.Run("unknown election", func(t *testing.T) {
		f := newVoteFixture(t)
		user := f.faceVoter(t)

		p := f.params(user)
		p.ElectionID = idx.New().String()
		_, err := f.votes.Cast(ctx, user, p)
		require.ErrorIs(t, err, ErrElectionNotActive)
	})

	t.Run("candidate from another election", func(t *testing.T) {
		f := newVoteFixture(t)
		user := f.faceVoter(t)

		other := domain.Election{
			ID:        idx.New().String(),
			Name:      "Other",
			IsActive:  true,
			StartDate: f.election.StartDate,
			EndDate:   f.election.EndDate,
			CreatedAt: f.election.CreatedAt,
		}
		require.NoError(t, f.store.Elections().CreateElection(ctx, other))
		foreign := domain.Candidate{ID: idx.New().String(), ElectionID: other.ID, Name: "X"}
		require.NoError(t, f.store.Candidates().CreateCandidate(ctx, foreign))

		p := f.params(user)
		p.CandidateID = foreign.ID
		_, err := f.votes.Cast(ctx, user, p)
		require.ErrorIs(t, err, ErrInvalidCandidate)
	})

	t.Run("malformed identifiers", func(t *testing.T) {
		f := newVoteFixture(t)
		user := f.faceVoter(t)

		p := f.params(user)
		p.CandidateID = "'; DROP TABLE votes;--"
		_, err := f.votes.Cast(ctx, user, p)
		require.ErrorIs(t, err, ErrMalformedRequest)
	})

	t.Run("face mismatch", func(t *testing.T) {
		f := newVoteFixture(t)
		user := f.faceVoter(t)
		f.comparer.result = faceapi.CompareResult{Confidence: 40}

		_, err := f.votes.Cast(ctx, user, f.params(user))
		require.ErrorIs(t, err, ErrBiometricMismatch)

		voted, err := f.store.Votes().HasVoted(ctx, user.ID, f.election.ID)
		require.NoError(t, err)
		require.False(t, voted, "no vote may be recorded on a mismatch")
	})

	t.Run("fingerprint without prior verification", func(t *testing.T) {
		f := newVoteFixture(t)
		user := f.fingerprintVoter(t)

		_, err := f.votes.Cast(ctx, user, f.params(user))
		require.ErrorIs(t, err, ErrBiometricRequired)
	})

	t.Run("no biometric enrolled", func(t *testing.T) {
		f := newVoteFixture(t)
		user := createTestUser(t, f.store, func(u *domain.User) { u.Verified = true })

		_, err := f.votes.Cast(ctx, user, f.params(user))
		require.ErrorIs(t, err, ErrBiometricRequired)
	})
}

func TestCastDuplicateEnforcement(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("second cast by the same voter conflicts", func(t *testing.T) {
		f := newVoteFixture(t)
		user := f.faceVoter(t)

		_, err := f.votes.Cast(ctx, user, f.params(user))
		require.NoError(t, err)

		_, err = f.votes.Cast(ctx, user, f.params(user))
		require.ErrorIs(t, err, ErrAlreadyVoted)
	})

	t.Run("storage constraint backstops a raced pre-check", func(t *testing.T) {
		f := newVoteFixture(t)
		user := f.faceVoter(t)

		// Insert behind the coordinator's back, as a concurrent request
		// that won the race would.
		require.NoError(t, f.store.Votes().CreateVote(ctx, domain.Vote{
			ID:                idx.New().String(),
			UserID:            user.ID,
			CandidateID:       f.candidate.ID,
			ElectionID:        f.election.ID,
			IPAddress:         "198.51.100.1",
			DeviceFingerprint: "elsewhere",
			VotedAt:           f.now,
		}))

		_, err := f.votes.Cast(ctx, user, f.params(user))
		require.ErrorIs(t, err, ErrAlreadyVoted)
	})

	t.Run("constraint fires on direct double insert", func(t *testing.T) {
		f := newVoteFixture(t)
		user := f.faceVoter(t)

		v := domain.Vote{
			ID:                idx.New().String(),
			UserID:            user.ID,
			CandidateID:       f.candidate.ID,
			ElectionID:        f.election.ID,
			IPAddress:         "198.51.100.1",
			DeviceFingerprint: "d",
			VotedAt:           f.now,
		}
		require.NoError(t, f.store.Votes().CreateVote(ctx, v))

		v.ID = idx.New().String()
		err := f.store.Votes().CreateVote(ctx, v)
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})
}

func TestCastDeviceHeuristic(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("same device in the same election is rejected", func(t *testing.T) {
		f := newVoteFixture(t)
		first := f.faceVoter(t)
		second := f.faceVoter(t)

		p1 := f.params(first)
		p1.DeviceFingerprint = "shared-device"
		_, err := f.votes.Cast(ctx, first, p1)
		require.NoError(t, err)

		p2 := f.params(second)
		p2.DeviceFingerprint = "shared-device"
		p2.ClientIP = "203.0.113.99"
		_, err = f.votes.Cast(ctx, second, p2)
		require.ErrorIs(t, err, ErrDuplicateDevice)
	})

	t.Run("same address is rejected when tracking", func(t *testing.T) {
		f := newVoteFixture(t)
		first := f.faceVoter(t)
		second := f.faceVoter(t)

		_, err := f.votes.Cast(ctx, first, f.params(first))
		require.NoError(t, err)

		p := f.params(second)
		// Same IP as f.params(first), different device.
		_, err = f.votes.Cast(ctx, second, p)
		require.ErrorIs(t, err, ErrDuplicateDevice)
	})

	t.Run("heuristic off lets shared devices through", func(t *testing.T) {
		f := newVoteFixture(t)
		f.votes.EnforceDeviceChecks = false
		first := f.faceVoter(t)
		second := f.faceVoter(t)

		p1 := f.params(first)
		p1.DeviceFingerprint = "shared-device"
		_, err := f.votes.Cast(ctx, first, p1)
		require.NoError(t, err)

		p2 := f.params(second)
		p2.DeviceFingerprint = "shared-device"
		_, err = f.votes.Cast(ctx, second, p2)
		require.NoError(t, err)
	})

	t.Run("ip tracking off stores the sentinel and skips ip matching", func(t *testing.T) {
		f := newVoteFixture(t)
		f.votes.TrackVoterIP = false
		first := f.faceVoter(t)
		second := f.faceVoter(t)

		v, err := f.votes.Cast(ctx, first, f.params(first))
		require.NoError(t, err)
		require.Equal(t, domain.IPDisabledSentinel, v.IPAddress)

		// Same IP but different device: the sentinel never matches.
		_, err = f.votes.Cast(ctx, second, f.params(second))
		require.NoError(t, err)
	})
}

func TestCastRateLimited(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newVoteFixture(t)
	f.comparer.result = faceapi.CompareResult{Confidence: 40} // every attempt fails the gate
	user := f.faceVoter(t)

	for i := 0; i < 10; i++ {
		_, err := f.votes.Cast(ctx, user, f.params(user))
		require.ErrorIs(t, err, ErrBiometricMismatch, "attempt %d", i+1)
	}

	_, err := f.votes.Cast(ctx, user, f.params(user))
	var rl *RateLimitedError
	require.ErrorAs(t, err, &rl)
	require.True(t, rl.ResetAt.After(f.now))
}
