package service

import (
	"context"
	"math"

	"github.com/openballot/votegate/internal/vote/domain"
	"github.com/openballot/votegate/internal/vote/faceapi"
	"github.com/openballot/votegate/pkg/slogx"
)

// MatchBand is the coarse classification shared with callers. The exact
// confidence never leaves the service on a failed comparison.
type MatchBand string

const (
	BandStrong     MatchBand = "strong"
	BandAcceptable MatchBand = "acceptable"
	BandNearMiss   MatchBand = "near_miss"
	BandMismatch   MatchBand = "mismatch"
)

// Band deltas relative to the effective threshold.
const (
	strongDelta   = 10
	nearMissDelta = 5
)

// MatchOutcome is a completed comparison decision.
type MatchOutcome struct {
	Matched    bool
	Band       MatchBand
	Confidence float64
	Threshold  int
}

// FaceMatchService decides face comparisons against a floor-and-margin
// threshold policy. The effective threshold per comparison is the maximum
// of the configured floor and the provider's strictest suggested
// threshold plus a safety margin, so a provider can tighten the policy
// but never loosen it below the floor.
type FaceMatchService struct {
	Comparer faceapi.Comparer

	// Floor is the minimum acceptable confidence regardless of provider
	// suggestions.
	Floor int
	// Margin is added on top of the provider's strictest suggestion.
	Margin int
}

// effectiveThreshold resolves the threshold for one comparison from the
// provider's suggestions. Non-finite or out-of-range suggestions are
// ignored.
func (s *FaceMatchService) effectiveThreshold(thresholds map[string]float64) int {
	threshold := s.Floor
	strictest := 0.0
	for _, v := range thresholds {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 100 {
			continue
		}
		if v > strictest {
			strictest = v
		}
	}
	if strictest > 0 {
		if suggested := int(math.Ceil(strictest)) + s.Margin; suggested > threshold {
			threshold = suggested
		}
	}
	if threshold > 100 {
		threshold = 100
	}
	return threshold
}

// Verify compares a freshly captured image against the user's enrollment.
// Legacy-format enrollments are rejected up front, never sent to the
// provider. The threshold boundary is inclusive: confidence == threshold
// matches.
func (s *FaceMatchService) Verify(ctx context.Context, user domain.User, image string) (MatchOutcome, error) {
	if user.FaceEnrollment == nil {
		return MatchOutcome{}, ErrBiometricRequired
	}
	switch user.FaceEnrollment.Version {
	case domain.FaceEnrollmentToken:
	case domain.FaceEnrollmentLegacy:
		return MatchOutcome{}, ErrReenrollRequired
	default:
		return MatchOutcome{}, ErrReenrollRequired
	}
	if image == "" {
		return MatchOutcome{}, ErrMalformedRequest
	}

	result, err := s.Comparer.Compare(ctx, user.FaceEnrollment.Data, image)
	if err != nil {
		slogx.FromContext(ctx).Error("face comparison provider failed", "err", err)
		return MatchOutcome{}, ErrBiometricService
	}
	if math.IsNaN(result.Confidence) || result.Confidence < 0 || result.Confidence > 100 {
		slogx.FromContext(ctx).Error("face comparison provider returned out-of-range confidence")
		return MatchOutcome{}, ErrBiometricService
	}

	threshold := s.effectiveThreshold(result.Thresholds)
	outcome := MatchOutcome{
		Confidence: result.Confidence,
		Threshold:  threshold,
		Band:       classify(result.Confidence, threshold),
	}
	outcome.Matched = outcome.Band == BandStrong || outcome.Band == BandAcceptable
	return outcome, nil
}

func classify(confidence float64, threshold int) MatchBand {
	t := float64(threshold)
	switch {
	case confidence >= t+strongDelta:
		return BandStrong
	case confidence >= t:
		return BandAcceptable
	case confidence >= t-nearMissDelta:
		return BandNearMiss
	default:
		return BandMismatch
	}
}
