package sqlite

import (
	"context"
	"time"

	"github.com/openballot/votegate/internal/vote/domain"
)

type electionsRepo struct {
	q queryer
}

func (r *electionsRepo) GetElectionByID(ctx context.Context, id string) (domain.Election, error) {
	var e domain.Election
	err := r.q.QueryRowContext(ctx,
		`SELECT id, name, is_active, start_date, end_date, created_at
		 FROM elections WHERE id = ?`, id).
		Scan(&e.ID, &e.Name, &e.IsActive, &e.StartDate, &e.EndDate, &e.CreatedAt)
	if err != nil {
		return domain.Election{}, mapNotFound(err)
	}
	return e, nil
}

func (r *electionsRepo) CreateElection(ctx context.Context, e domain.Election) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO elections (id, name, is_active, start_date, end_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Name, e.IsActive, e.StartDate.UTC(), e.EndDate.UTC(), time.Now().UTC())
	return mapConstraint(err)
}

func (r *electionsRepo) SetElectionActive(ctx context.Context, id string, active bool) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE elections SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}
