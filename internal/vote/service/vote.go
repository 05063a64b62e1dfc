package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/openballot/votegate/internal/vote/domain"
	"github.com/openballot/votegate/internal/vote/ratelimit"
	"github.com/openballot/votegate/internal/vote/store"
	"github.com/openballot/votegate/pkg/httpx"
	"github.com/openballot/votegate/pkg/idx"
	"github.com/openballot/votegate/pkg/slogx"
)

// Vote casting rate limit: a fixed window per client identifier.
const (
	voteWindow      = time.Minute
	voteMaxRequests = 10
)

var idRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// CastParams are the inputs for one vote attempt.
type CastParams struct {
	UserID      string
	ElectionID  string
	CandidateID string

	// FaceImage is the freshly captured image for face-gated users.
	// Ignored for fingerprint-gated users, who must have completed the
	// assertion ceremony beforehand.
	FaceImage string

	// ClientIP is the resolved client address, or httpx.UnknownIP.
	ClientIP string
	// DeviceFingerprint is the request-derived device hash.
	DeviceFingerprint string
}

// VoteService coordinates the full casting pipeline. Check order is
// fixed: cheap request-shaped checks run before expensive biometric work,
// and the storage uniqueness constraint has the final word on duplicates.
type VoteService struct {
	Store      store.Store
	Limiter    *ratelimit.Limiter
	Face       *FaceMatchService
	Challenges *ChallengeService

	// EnforceDeviceChecks enables the device/IP duplicate heuristic.
	EnforceDeviceChecks bool
	// TrackVoterIP controls whether the client address is recorded;
	// when off the sentinel is stored and the IP half of the heuristic
	// goes dormant.
	TrackVoterIP bool

	// RateWindow and RateMax override the casting limit; zero values
	// fall back to the defaults above.
	RateWindow time.Duration
	RateMax    int

	Now func() time.Time
}

func (s *VoteService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Cast runs the casting pipeline and commits the ballot. The returned
// vote carries the stored IP value, which is the sentinel when tracking
// is off.
func (s *VoteService) Cast(ctx context.Context, user domain.User, p CastParams) (domain.Vote, error) {
	log := slogx.FromContext(ctx)

	if !user.Verified {
		return domain.Vote{}, ErrUnverifiedIdentity
	}

	// Rate limit before anything that touches the biometric provider.
	// Keyed by client address in device-enforcement mode, by user
	// otherwise or when the address could not be resolved. Advisory
	// only; a limiter store failure is logged and the request proceeds.
	key := "user:" + p.UserID
	if s.EnforceDeviceChecks && p.ClientIP != "" && p.ClientIP != httpx.UnknownIP {
		key = p.ClientIP
	}
	window, maxRequests := s.RateWindow, s.RateMax
	if window <= 0 {
		window = voteWindow
	}
	if maxRequests <= 0 {
		maxRequests = voteMaxRequests
	}
	decision, err := s.Limiter.Check(ctx, key, window, maxRequests)
	if err != nil {
		log.Warn("rate limiter unavailable, allowing request", "err", err)
	} else if !decision.Allowed {
		return domain.Vote{}, &RateLimitedError{ResetAt: decision.ResetAt}
	}

	if !idRe.MatchString(p.ElectionID) || !idRe.MatchString(p.CandidateID) {
		return domain.Vote{}, ErrMalformedRequest
	}

	election, err := s.Store.Elections().GetElectionByID(ctx, p.ElectionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Vote{}, ErrElectionNotActive
		}
		return domain.Vote{}, fmt.Errorf("failed to load election: %w", err)
	}
	if !election.OpenAt(s.now()) {
		return domain.Vote{}, ErrElectionNotActive
	}

	candidate, err := s.Store.Candidates().GetCandidateByID(ctx, p.CandidateID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Vote{}, ErrInvalidCandidate
		}
		return domain.Vote{}, fmt.Errorf("failed to load candidate: %w", err)
	}
	if candidate.ElectionID != election.ID {
		return domain.Vote{}, ErrInvalidCandidate
	}

	if err := s.verifyBiometric(ctx, user, p); err != nil {
		return domain.Vote{}, err
	}

	// Advisory duplicate pre-check. The unique constraint re-asserts this
	// on insert, so a race here cannot produce a second ballot.
	voted, err := s.Store.Votes().HasVoted(ctx, user.ID, election.ID)
	if err != nil {
		return domain.Vote{}, fmt.Errorf("failed to check prior vote: %w", err)
	}
	if voted {
		return domain.Vote{}, ErrAlreadyVoted
	}

	ip := domain.IPDisabledSentinel
	if s.TrackVoterIP {
		ip = p.ClientIP
		if ip == "" {
			ip = httpx.UnknownIP
		}
	}

	if s.EnforceDeviceChecks {
		dup, err := s.Store.Votes().HasDeviceOrIPVoted(ctx, election.ID, p.DeviceFingerprint, ip)
		if err != nil {
			return domain.Vote{}, fmt.Errorf("failed to check device history: %w", err)
		}
		if dup {
			return domain.Vote{}, ErrDuplicateDevice
		}
	}

	vote := domain.Vote{
		ID:                idx.New().String(),
		UserID:            user.ID,
		CandidateID:       candidate.ID,
		ElectionID:        election.ID,
		IPAddress:         ip,
		DeviceFingerprint: p.DeviceFingerprint,
		VotedAt:           s.now(),
	}

	if err := s.Store.Votes().CreateVote(ctx, vote); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Vote{}, ErrAlreadyVoted
		}
		return domain.Vote{}, fmt.Errorf("failed to record vote: %w", err)
	}

	log.Info("vote recorded",
		"election_id", election.ID,
		"vote_id", vote.ID,
	)
	return vote, nil
}

// verifyBiometric applies the per-user gate. Face users get a fresh
// provider comparison on every cast; fingerprint users consume the
// one-shot verified flag set by a successful assertion ceremony.
func (s *VoteService) verifyBiometric(ctx context.Context, user domain.User, p CastParams) error {
	switch user.BiometricType {
	case domain.BiometricFace:
		outcome, err := s.Face.Verify(ctx, user, p.FaceImage)
		if err != nil {
			return err
		}
		if !outcome.Matched {
			return ErrBiometricMismatch
		}
		return nil

	case domain.BiometricFingerprint:
		return s.Challenges.ConsumeVerified(ctx, user.ID)

	default:
		return ErrBiometricRequired
	}
}
