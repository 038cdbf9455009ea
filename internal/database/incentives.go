package database

import (
	"context"
	"time"

	apperrors "github.com/khrees2412/talentflow/internal/errors"
	"github.com/khrees2412/talentflow/pkg/models"
)

// GetIncentive returns the freelancer's incentive with its linked jobs
func (s *Store) GetIncentive(ctx context.Context, freelancerID string) (*models.Incentive, error) {
	inc := &models.Incentive{FreelancerID: freelancerID}
	err := s.db.QueryRowContext(ctx,
		`SELECT incentive_amount, updated_at FROM incentives WHERE freelancer_id=?`, freelancerID).
		Scan(&inc.IncentiveAmount, &inc.UpdatedAt)
	if err != nil {
		return nil, translate(err, "incentive")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT job_id FROM incentive_jobs WHERE freelancer_id=? ORDER BY added_at, job_id`, freelancerID)
	if err != nil {
		return nil, apperrors.Internal("list incentive jobs", err)
	}
	defer rows.Close()

	inc.JobIDs = []string{}
	for rows.Next() {
		var jobID string
		if err := rows.Scan(&jobID); err != nil {
			return nil, apperrors.Internal("scan incentive job", err)
		}
		inc.JobIDs = append(inc.JobIDs, jobID)
	}
	return inc, rows.Err()
}

// LinkIncentiveJob links jobID to the freelancer, creating the incentive
// record on first use, then recomputes the amount as the sum of the
// referral amounts of every linked job. linked is false when the job was
// already present; the amount is still recomputed in that case.
func (s *Store) LinkIncentiveJob(ctx context.Context, freelancerID, jobID string, now time.Time) (linked bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, apperrors.Internal("begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO incentives (freelancer_id, incentive_amount, updated_at) VALUES (?, 0, ?)
		 ON CONFLICT(freelancer_id) DO NOTHING`, freelancerID, now.UTC()); err != nil {
		return false, apperrors.Internal("create incentive", err)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO incentive_jobs (freelancer_id, job_id, added_at) VALUES (?, ?, ?)
		 ON CONFLICT(freelancer_id, job_id) DO NOTHING`, freelancerID, jobID, now.UTC())
	if err != nil {
		return false, translate(err, "incentive job")
	}
	n, _ := result.RowsAffected()

	if _, err := tx.ExecContext(ctx,
		`UPDATE incentives SET incentive_amount = (
			SELECT COALESCE(SUM(j.referral_amount), 0)
			FROM incentive_jobs ij JOIN jobs j ON j.id = ij.job_id
			WHERE ij.freelancer_id = incentives.freelancer_id
		 ), updated_at=? WHERE freelancer_id=?`, now.UTC(), freelancerID); err != nil {
		return false, apperrors.Internal("recompute incentive", err)
	}

	if err := tx.Commit(); err != nil {
		return false, apperrors.Internal("commit incentive", err)
	}
	return n > 0, nil
}
