package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"daycareplanner/internal/daycare"
	"daycareplanner/internal/waitlist"
	"daycareplanner/pkg/domain"
	"daycareplanner/pkg/platform/sentinel"
)

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres persists daycares and admin memberships.
type Postgres struct {
	q queryer
}

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{q: db} }

// NewPostgresTx returns a store scoped to an open transaction.
func NewPostgresTx(tx *sql.Tx) *Postgres { return &Postgres{q: tx} }

const daycareColumns = `
	id, name, address, city, province, postal_code, phone, email,
	capacity, current_enrollment, waitlist_policy,
	age_range_min, age_range_max, languages,
	has_subsidy_program, description, is_active, created_at, updated_at`

func (s *Postgres) FindByID(ctx context.Context, id domain.DaycareID) (*daycare.Daycare, error) {
	query := `SELECT` + daycareColumns + ` FROM daycares WHERE id = $1`
	row := s.q.QueryRowContext(ctx, query, uuid.UUID(id))
	dc, err := scanDaycare(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find daycare: %w", err)
	}
	return dc, nil
}

// ListActive returns the public directory, ordered by name.
func (s *Postgres) ListActive(ctx context.Context) ([]*daycare.Daycare, error) {
	query := `SELECT` + daycareColumns + ` FROM daycares WHERE is_active = true ORDER BY name`
	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list daycares: %w", err)
	}
	defer rows.Close()

	var daycares []*daycare.Daycare
	for rows.Next() {
		dc, err := scanDaycare(rows)
		if err != nil {
			return nil, fmt.Errorf("scan daycare: %w", err)
		}
		daycares = append(daycares, dc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daycares: %w", err)
	}
	return daycares, nil
}

func (s *Postgres) Create(ctx context.Context, dc *daycare.Daycare) error {
	query := `
		INSERT INTO daycares (
			id, name, address, city, province, postal_code, phone, email,
			capacity, current_enrollment, waitlist_policy,
			age_range_min, age_range_max, languages,
			has_subsidy_program, description, is_active, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err := s.q.ExecContext(ctx, query,
		uuid.UUID(dc.ID), dc.Name, dc.Address, dc.City, dc.Province, dc.PostalCode,
		dc.Phone, dc.Email, dc.Capacity, dc.CurrentEnrollment, string(dc.WaitlistPolicy),
		dc.AgeRangeMin, dc.AgeRangeMax, pq.Array(dc.Languages),
		dc.HasSubsidyProgram, dc.Description, dc.IsActive, dc.CreatedAt, dc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert daycare: %w", err)
	}
	return nil
}

// UpdatePatch carries the mutable daycare fields; nil pointers leave the
// stored value untouched.
type UpdatePatch struct {
	Name              *string
	Address           *string
	City              *string
	Province          *string
	PostalCode        *string
	Phone             *string
	Email             *string
	Capacity          *int
	WaitlistPolicy    *waitlist.Policy
	Languages         *[]string
	HasSubsidyProgram *bool
	Description       *string
	IsActive          *bool
}

func (s *Postgres) Update(ctx context.Context, id domain.DaycareID, patch UpdatePatch) error {
	var policy *string
	if patch.WaitlistPolicy != nil {
		raw := string(*patch.WaitlistPolicy)
		policy = &raw
	}
	var languages any
	if patch.Languages != nil {
		languages = pq.Array(*patch.Languages)
	}

	query := `
		UPDATE daycares
		SET name = COALESCE($1, name),
			address = COALESCE($2, address),
			city = COALESCE($3, city),
			province = COALESCE($4, province),
			postal_code = COALESCE($5, postal_code),
			phone = COALESCE($6, phone),
			email = COALESCE($7, email),
			capacity = COALESCE($8, capacity),
			waitlist_policy = COALESCE($9, waitlist_policy),
			languages = COALESCE($10, languages),
			has_subsidy_program = COALESCE($11, has_subsidy_program),
			description = COALESCE($12, description),
			is_active = COALESCE($13, is_active),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $14
	`
	res, err := s.q.ExecContext(ctx, query,
		patch.Name, patch.Address, patch.City, patch.Province, patch.PostalCode,
		patch.Phone, patch.Email, patch.Capacity, policy, languages,
		patch.HasSubsidyProgram, patch.Description, patch.IsActive, uuid.UUID(id),
	)
	if err != nil {
		return fmt.Errorf("update daycare: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update daycare rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) AddAdministrator(ctx context.Context, userID domain.UserID, daycareID domain.DaycareID) error {
	query := `
		INSERT INTO daycare_administrators (user_id, daycare_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, daycare_id) DO NOTHING
	`
	_, err := s.q.ExecContext(ctx, query, uuid.UUID(userID), uuid.UUID(daycareID))
	if err != nil {
		return fmt.Errorf("insert daycare administrator: %w", err)
	}
	return nil
}

// IsAdmin reports whether the user administers the daycare.
func (s *Postgres) IsAdmin(ctx context.Context, userID domain.UserID, daycareID domain.DaycareID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM daycare_administrators
			WHERE user_id = $1 AND daycare_id = $2
		)
	`
	var isAdmin bool
	if err := s.q.QueryRowContext(ctx, query, uuid.UUID(userID), uuid.UUID(daycareID)).Scan(&isAdmin); err != nil {
		return false, fmt.Errorf("check daycare administrator: %w", err)
	}
	return isAdmin, nil
}

// IncrementEnrollment bumps the cached enrollment counter by one. Must only
// run inside the transaction that creates the matching placement.
func (s *Postgres) IncrementEnrollment(ctx context.Context, id domain.DaycareID) error {
	query := `UPDATE daycares SET current_enrollment = current_enrollment + 1 WHERE id = $1`
	res, err := s.q.ExecContext(ctx, query, uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("increment enrollment: %w", err)
	}
	return requireAffected(res)
}

// DecrementEnrollment lowers the cached enrollment counter by one, floored
// at zero. Must only run inside the transaction that ends the matching
// placement.
func (s *Postgres) DecrementEnrollment(ctx context.Context, id domain.DaycareID) error {
	query := `UPDATE daycares SET current_enrollment = GREATEST(current_enrollment - 1, 0) WHERE id = $1`
	res, err := s.q.ExecContext(ctx, query, uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("decrement enrollment: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanDaycare(row interface{ Scan(dest ...any) error }) (*daycare.Daycare, error) {
	var (
		dc        daycare.Daycare
		id        uuid.UUID
		policy    string
		languages pq.StringArray
	)
	err := row.Scan(
		&id, &dc.Name, &dc.Address, &dc.City, &dc.Province, &dc.PostalCode,
		&dc.Phone, &dc.Email, &dc.Capacity, &dc.CurrentEnrollment, &policy,
		&dc.AgeRangeMin, &dc.AgeRangeMax, &languages,
		&dc.HasSubsidyProgram, &dc.Description, &dc.IsActive, &dc.CreatedAt, &dc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	dc.ID = domain.DaycareID(id)
	dc.WaitlistPolicy = waitlist.ParsePolicy(policy)
	dc.Languages = languages
	return &dc, nil
}
