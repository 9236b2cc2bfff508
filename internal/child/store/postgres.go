package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"daycareplanner/internal/child"
	"daycareplanner/pkg/domain"
	"daycareplanner/pkg/platform/sentinel"
)

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres persists children.
type Postgres struct {
	q queryer
}

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{q: db} }

const childColumns = `
	id, parent_id, first_name, last_name, date_of_birth,
	has_special_needs, special_needs_description,
	languages_spoken_at_home, siblings_in_care, is_inuk, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, c *child.Child) error {
	query := `
		INSERT INTO children (
			id, parent_id, first_name, last_name, date_of_birth,
			has_special_needs, special_needs_description,
			languages_spoken_at_home, siblings_in_care, is_inuk, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.q.ExecContext(ctx, query,
		uuid.UUID(c.ID), uuid.UUID(c.ParentID), c.FirstName, c.LastName, c.DateOfBirth,
		c.HasSpecialNeeds, c.SpecialNeedsDescription,
		pq.Array(c.LanguagesSpokenAtHome), pq.Array(c.SiblingsInCare), c.IsInuk,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert child: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.ChildID) (*child.Child, error) {
	query := `SELECT` + childColumns + ` FROM children WHERE id = $1`
	c, err := scanChild(s.q.QueryRowContext(ctx, query, uuid.UUID(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find child: %w", err)
	}
	return c, nil
}

// ListByParent returns the parent's children, youngest first.
func (s *Postgres) ListByParent(ctx context.Context, parentID domain.UserID) ([]*child.Child, error) {
	query := `SELECT` + childColumns + ` FROM children WHERE parent_id = $1 ORDER BY date_of_birth DESC`
	rows, err := s.q.QueryContext(ctx, query, uuid.UUID(parentID))
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	var children []*child.Child
	for rows.Next() {
		c, err := scanChild(rows)
		if err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		children = append(children, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate children: %w", err)
	}
	return children, nil
}

// UpdatePatch carries the mutable child fields; nil pointers leave the stored
// value untouched.
type UpdatePatch struct {
	FirstName               *string
	LastName                *string
	HasSpecialNeeds         *bool
	SpecialNeedsDescription *string
	LanguagesSpokenAtHome   *[]string
	IsInuk                  *bool
}

func (s *Postgres) Update(ctx context.Context, id domain.ChildID, patch UpdatePatch) error {
	var languages any
	if patch.LanguagesSpokenAtHome != nil {
		languages = pq.Array(*patch.LanguagesSpokenAtHome)
	}

	query := `
		UPDATE children
		SET first_name = COALESCE($1, first_name),
			last_name = COALESCE($2, last_name),
			has_special_needs = COALESCE($3, has_special_needs),
			special_needs_description = COALESCE($4, special_needs_description),
			languages_spoken_at_home = COALESCE($5, languages_spoken_at_home),
			is_inuk = COALESCE($6, is_inuk),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $7
	`
	res, err := s.q.ExecContext(ctx, query,
		patch.FirstName, patch.LastName, patch.HasSpecialNeeds,
		patch.SpecialNeedsDescription, languages, patch.IsInuk, uuid.UUID(id),
	)
	if err != nil {
		return fmt.Errorf("update child: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update child rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanChild(row interface{ Scan(dest ...any) error }) (*child.Child, error) {
	var (
		c           child.Child
		id          uuid.UUID
		parentID    uuid.UUID
		description sql.NullString
		languages   pq.StringArray
		siblings    pq.StringArray
	)
	err := row.Scan(
		&id, &parentID, &c.FirstName, &c.LastName, &c.DateOfBirth,
		&c.HasSpecialNeeds, &description,
		&languages, &siblings, &c.IsInuk, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.ID = domain.ChildID(id)
	c.ParentID = domain.UserID(parentID)
	c.SpecialNeedsDescription = description.String
	c.LanguagesSpokenAtHome = languages
	c.SiblingsInCare = siblings
	return &c, nil
}
