package database

import (
	"context"
	"encoding/json"
	"strings"

	apperrors "github.com/khrees2412/talentflow/internal/errors"
	"github.com/khrees2412/talentflow/pkg/models"
)

// CreateOnboardingForm stores the form; a second form for the same candidate
// or email is a Conflict.
func (s *Store) CreateOnboardingForm(ctx context.Context, f *models.OnboardingForm) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return apperrors.Internal("encode onboarding form", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO onboarding_forms (id, candidate_id, email, payload, submitted_at) VALUES (?, ?, ?, ?, ?)`,
		f.ID, f.CandidateID, strings.ToLower(f.Email), string(payload), f.SubmittedAt.UTC())
	return translate(err, "onboarding form")
}

func (s *Store) GetOnboardingForm(ctx context.Context, candidateID string) (*models.OnboardingForm, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM onboarding_forms WHERE candidate_id=?`, candidateID).Scan(&payload)
	if err != nil {
		return nil, translate(err, "onboarding form")
	}
	f := &models.OnboardingForm{}
	if err := json.Unmarshal([]byte(payload), f); err != nil {
		return nil, apperrors.Internal("decode onboarding form", err)
	}
	return f, nil
}

// DeleteOnboardingForm removes the candidate's form, if any. deleted reports
// whether a form existed.
func (s *Store) DeleteOnboardingForm(ctx context.Context, candidateID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM onboarding_forms WHERE candidate_id=?`, candidateID)
	if err != nil {
		return false, apperrors.Internal("delete onboarding form", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}
