package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openballot/votegate/internal/vote/domain"
	"github.com/openballot/votegate/internal/vote/store"
	"github.com/openballot/votegate/pkg/idx"
)

// ElectionService serves election reads plus the admin write surface.
type ElectionService struct {
	Store store.Store

	Now func() time.Time
}

func (s *ElectionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ElectionView is an election with its derived state and candidates.
type ElectionView struct {
	Election   domain.Election
	State      domain.ElectionState
	Candidates []domain.Candidate
}

// Get returns the election, its state at the current time, and its
// candidate list.
func (s *ElectionService) Get(ctx context.Context, id string) (ElectionView, error) {
	if !idRe.MatchString(id) {
		return ElectionView{}, ErrMalformedRequest
	}

	e, err := s.Store.Elections().GetElectionByID(ctx, id)
	if err != nil {
		return ElectionView{}, err
	}

	candidates, err := s.Store.Candidates().ListByElection(ctx, id)
	if err != nil {
		return ElectionView{}, fmt.Errorf("failed to list candidates: %w", err)
	}

	return ElectionView{
		Election:   e,
		State:      e.StateAt(s.now()),
		Candidates: candidates,
	}, nil
}

// CreateParams defines a new election window.
type CreateElectionParams struct {
	Name      string
	StartDate time.Time
	EndDate   time.Time
}

// Create inserts a new election in the inactive state.
func (s *ElectionService) Create(ctx context.Context, p CreateElectionParams) (domain.Election, error) {
	if p.Name == "" || p.EndDate.Before(p.StartDate) {
		return domain.Election{}, ErrMalformedRequest
	}

	e := domain.Election{
		ID:        idx.New().String(),
		Name:      p.Name,
		IsActive:  false,
		StartDate: p.StartDate,
		EndDate:   p.EndDate,
		CreatedAt: s.now(),
	}
	if err := s.Store.Elections().CreateElection(ctx, e); err != nil {
		return domain.Election{}, fmt.Errorf("failed to create election: %w", err)
	}
	return e, nil
}

// AddCandidate registers a candidate for an existing election.
func (s *ElectionService) AddCandidate(ctx context.Context, electionID, name string) (domain.Candidate, error) {
	if !idRe.MatchString(electionID) || name == "" {
		return domain.Candidate{}, ErrMalformedRequest
	}

	if _, err := s.Store.Elections().GetElectionByID(ctx, electionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Candidate{}, ErrMalformedRequest
		}
		return domain.Candidate{}, err
	}

	c := domain.Candidate{
		ID:         idx.New().String(),
		ElectionID: electionID,
		Name:       name,
	}
	if err := s.Store.Candidates().CreateCandidate(ctx, c); err != nil {
		return domain.Candidate{}, fmt.Errorf("failed to create candidate: %w", err)
	}
	return c, nil
}

// SetActive flips the election's stored active flag. The flag alone does
// not open voting; the window still applies.
func (s *ElectionService) SetActive(ctx context.Context, id string, active bool) error {
	if !idRe.MatchString(id) {
		return ErrMalformedRequest
	}
	return s.Store.Elections().SetElectionActive(ctx, id, active)
}
