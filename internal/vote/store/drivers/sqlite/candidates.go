package sqlite

import (
	"context"

	"github.com/openballot/votegate/internal/vote/domain"
)

type candidatesRepo struct {
	q queryer
}

func (r *candidatesRepo) GetCandidateByID(ctx context.Context, id string) (domain.Candidate, error) {
	var c domain.Candidate
	err := r.q.QueryRowContext(ctx,
		`SELECT id, election_id, name FROM candidates WHERE id = ?`, id).
		Scan(&c.ID, &c.ElectionID, &c.Name)
	if err != nil {
		return domain.Candidate{}, mapNotFound(err)
	}
	return c, nil
}

func (r *candidatesRepo) CreateCandidate(ctx context.Context, c domain.Candidate) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO candidates (id, election_id, name) VALUES (?, ?, ?)`,
		c.ID, c.ElectionID, c.Name)
	return mapConstraint(err)
}

func (r *candidatesRepo) ListByElection(ctx context.Context, electionID string) ([]domain.Candidate, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, election_id, name FROM candidates WHERE election_id = ? ORDER BY id`,
		electionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Candidate
	for rows.Next() {
		var c domain.Candidate
		if err := rows.Scan(&c.ID, &c.ElectionID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
