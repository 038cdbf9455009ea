package database

import (
	"context"
	"strings"

	apperrors "github.com/khrees2412/talentflow/internal/errors"
	"github.com/khrees2412/talentflow/pkg/models"
)

// User operations

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	query := `INSERT INTO users (id, first_name, last_name, email, role, created_at)
			  VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, u.ID, u.FirstName, u.LastName,
		strings.ToLower(u.Email), string(u.Role), u.CreatedAt.UTC())
	return translate(err, "user")
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT id, first_name, last_name, email, role, created_at FROM users WHERE id=?`
	u := &models.User{}
	var role string
	err := s.db.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &role, &u.CreatedAt)
	if err != nil {
		return nil, translate(err, "user")
	}
	u.Role = models.Role(role)
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, first_name, last_name, email, role, created_at FROM users ORDER BY created_at`)
	if err != nil {
		return nil, apperrors.Internal("list users", err)
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		u := &models.User{}
		var role string
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &role, &u.CreatedAt); err != nil {
			return nil, apperrors.Internal("scan user", err)
		}
		u.Role = models.Role(role)
		users = append(users, u)
	}
	return users, rows.Err()
}

// Organization operations

func (s *Store) CreateOrganization(ctx context.Context, o *models.Organization) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO organizations (id, name, created_at) VALUES (?, ?, ?)`,
		o.ID, o.Name, o.CreatedAt.UTC())
	return translate(err, "organization")
}

// GetOrganizationByName matches names case-insensitively
func (s *Store) GetOrganizationByName(ctx context.Context, name string) (*models.Organization, error) {
	o := &models.Organization{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM organizations WHERE lower(name)=lower(?)`, strings.TrimSpace(name)).
		Scan(&o.ID, &o.Name, &o.CreatedAt)
	if err != nil {
		return nil, translate(err, "organization")
	}
	return o, nil
}

func (s *Store) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	o := &models.Organization{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM organizations WHERE id=?`, id).
		Scan(&o.ID, &o.Name, &o.CreatedAt)
	if err != nil {
		return nil, translate(err, "organization")
	}
	return o, nil
}

func (s *Store) ListOrganizations(ctx context.Context) ([]*models.Organization, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM organizations ORDER BY name`)
	if err != nil {
		return nil, apperrors.Internal("list organizations", err)
	}
	defer rows.Close()

	orgs := []*models.Organization{}
	for rows.Next() {
		o := &models.Organization{}
		if err := rows.Scan(&o.ID, &o.Name, &o.CreatedAt); err != nil {
			return nil, apperrors.Internal("scan organization", err)
		}
		orgs = append(orgs, o)
	}
	return orgs, rows.Err()
}
