package sqlite

import (
	"context"

	"github.com/openballot/votegate/internal/vote/domain"
)

type votesRepo struct {
	q queryer
}

func (r *votesRepo) CreateVote(ctx context.Context, v domain.Vote) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO votes (id, user_id, candidate_id, election_id, ip_address, device_fingerprint, voted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.UserID, v.CandidateID, v.ElectionID,
		v.IPAddress, v.DeviceFingerprint, v.VotedAt.UTC())
	return mapConstraint(err)
}

func (r *votesRepo) HasVoted(ctx context.Context, userID, electionID string) (bool, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM votes WHERE user_id = ? AND election_id = ?`,
		userID, electionID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *votesRepo) HasDeviceOrIPVoted(ctx context.Context, electionID, deviceFingerprint, ipAddress string) (bool, error) {
	// The IP clause ignores the disabled sentinel so deployments without
	// IP tracking don't collapse all votes into one "device".
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM votes
		 WHERE election_id = ?
		   AND (device_fingerprint = ? OR (ip_address = ? AND ip_address != ?))`,
		electionID, deviceFingerprint, ipAddress, domain.IPDisabledSentinel).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
