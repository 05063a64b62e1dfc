package domain

import "time"

// ElectionState is derived from the stored active flag and the current
// time. It is never persisted.
type ElectionState string

const (
	ElectionScheduled ElectionState = "scheduled"
	ElectionActive    ElectionState = "active"
	ElectionEnded     ElectionState = "ended"
)

// Election is the voting window definition. Read-only to the core.
type Election struct {
	ID        string
	Name      string
	IsActive  bool
	StartDate time.Time
	EndDate   time.Time
	CreatedAt time.Time
}

// StateAt computes the derived election state. Active requires the stored
// flag AND now within [StartDate, EndDate]; an in-window election with the
// flag cleared is not open.
func (e Election) StateAt(now time.Time) ElectionState {
	if now.Before(e.StartDate) {
		return ElectionScheduled
	}
	if now.After(e.EndDate) {
		return ElectionEnded
	}
	if !e.IsActive {
		return ElectionEnded
	}
	return ElectionActive
}

// OpenAt reports whether votes may be cast at the given time.
func (e Election) OpenAt(now time.Time) bool {
	return e.StateAt(now) == ElectionActive
}

// Candidate is an option within an election. Read-only to the core.
type Candidate struct {
	ID         string
	ElectionID string
	Name       string
}
