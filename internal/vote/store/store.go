package store

import (
	"context"
	"errors"

	"github.com/openballot/votegate/internal/vote/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for
// now) implement this. Sub-repositories keep concerns tidy and testable.
type Store interface {
	Users() Users
	Sessions() Sessions
	Elections() Elections
	Candidates() Candidates
	Votes() Votes

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos plus Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is used during password login.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by the app via ULID).
	// Returns ErrAlreadyExists when the username or document number is
	// taken; callers must not reveal which.
	CreateUser(ctx context.Context, u domain.User) error

	// SetVerified flips the identity-verified flag.
	SetVerified(ctx context.Context, userID string, verified bool) error

	// UpdateFaceEnrollment replaces the versioned face enrollment record.
	UpdateFaceEnrollment(ctx context.Context, userID string, enrollment domain.FaceEnrollment) error

	// UpdateCredential replaces the fingerprint credential.
	UpdateCredential(ctx context.Context, userID string, cred domain.Credential) error
}

type Sessions interface {
	// CreateSession persists a new login session row.
	CreateSession(ctx context.Context, s domain.Session) error

	// GetSessionByID returns a session row regardless of expiry; expiry is
	// the caller's decision so expired rows can be deleted opportunistically.
	GetSessionByID(ctx context.Context, id string) (domain.Session, error)

	// DeleteSession revokes a session.
	DeleteSession(ctx context.Context, id string) error

	// DeleteExpiredSessions is housekeeping.
	DeleteExpiredSessions(ctx context.Context) error
}

type Elections interface {
	// GetElectionByID fetches an election definition.
	GetElectionByID(ctx context.Context, id string) (domain.Election, error)

	// CreateElection inserts a new election (admin surface).
	CreateElection(ctx context.Context, e domain.Election) error

	// SetElectionActive flips the stored active flag.
	SetElectionActive(ctx context.Context, id string, active bool) error
}

type Candidates interface {
	// GetCandidateByID fetches a candidate with its election binding.
	GetCandidateByID(ctx context.Context, id string) (domain.Candidate, error)

	// CreateCandidate inserts a candidate (admin surface).
	CreateCandidate(ctx context.Context, c domain.Candidate) error

	// ListByElection returns candidates for an election.
	ListByElection(ctx context.Context, electionID string) ([]domain.Candidate, error)
}

type Votes interface {
	// CreateVote inserts a ballot. The UNIQUE(user_id, election_id)
	// constraint is the race-safe arbiter: a second insert for the same
	// pair returns ErrAlreadyExists.
	CreateVote(ctx context.Context, v domain.Vote) error

	// HasVoted reports whether a vote exists for (userID, electionID).
	// Advisory pre-check only; CreateVote re-asserts it.
	HasVoted(ctx context.Context, userID, electionID string) (bool, error)

	// HasDeviceOrIPVoted reports whether any vote in the election carries
	// the same device fingerprint or client IP. Backs the toggleable
	// secondary duplicate heuristic.
	HasDeviceOrIPVoted(ctx context.Context, electionID, deviceFingerprint, ipAddress string) (bool, error)
}
