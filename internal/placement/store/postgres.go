package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"daycareplanner/internal/placement"
	"daycareplanner/pkg/domain"
	"daycareplanner/pkg/platform/sentinel"
)

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres persists placements.
type Postgres struct {
	q queryer
}

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{q: db} }

// NewPostgresTx returns a store scoped to an open transaction.
func NewPostgresTx(tx *sql.Tx) *Postgres { return &Postgres{q: tx} }

const placementColumns = `id, child_id, daycare_id, application_choice_id, start_date, end_date, created_at`

func (s *Postgres) Create(ctx context.Context, p *placement.Placement) error {
	query := `
		INSERT INTO placements (id, child_id, daycare_id, application_choice_id, start_date, end_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.q.ExecContext(ctx, query,
		uuid.UUID(p.ID), uuid.UUID(p.ChildID), uuid.UUID(p.DaycareID),
		uuid.UUID(p.ChoiceID), p.StartDate, p.EndDate, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert placement: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.PlacementID) (*placement.Placement, error) {
	query := `SELECT ` + placementColumns + ` FROM placements WHERE id = $1`
	p, err := scanPlacement(s.q.QueryRowContext(ctx, query, uuid.UUID(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find placement: %w", err)
	}
	return p, nil
}

// FindActiveByChoice returns the active placement created from the given
// application choice, or sentinel.ErrNotFound. This is the idempotence probe
// for the accept transition.
func (s *Postgres) FindActiveByChoice(ctx context.Context, choiceID domain.ChoiceID) (*placement.Placement, error) {
	query := `
		SELECT ` + placementColumns + `
		FROM placements
		WHERE application_choice_id = $1 AND end_date IS NULL
		LIMIT 1
	`
	p, err := scanPlacement(s.q.QueryRowContext(ctx, query, uuid.UUID(choiceID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find active placement by choice: %w", err)
	}
	return p, nil
}

// End stamps the placement's end date. The update only matches placements
// that are still active, so two transactions racing to end the same
// placement cannot both succeed; the loser gets sentinel.ErrConflict.
func (s *Postgres) End(ctx context.Context, id domain.PlacementID, endDate time.Time) error {
	query := `UPDATE placements SET end_date = $1 WHERE id = $2 AND end_date IS NULL`
	res, err := s.q.ExecContext(ctx, query, endDate, uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("end placement: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("end placement rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}

	var exists bool
	err = s.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM placements WHERE id = $1)`, uuid.UUID(id)).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check placement exists: %w", err)
	}
	if exists {
		return sentinel.ErrConflict
	}
	return sentinel.ErrNotFound
}

func scanPlacement(row *sql.Row) (*placement.Placement, error) {
	var (
		p         placement.Placement
		id        uuid.UUID
		childID   uuid.UUID
		daycareID uuid.UUID
		choiceID  uuid.UUID
		endDate   sql.NullTime
	)
	err := row.Scan(&id, &childID, &daycareID, &choiceID, &p.StartDate, &endDate, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.ID = domain.PlacementID(id)
	p.ChildID = domain.ChildID(childID)
	p.DaycareID = domain.DaycareID(daycareID)
	p.ChoiceID = domain.ChoiceID(choiceID)
	if endDate.Valid {
		p.EndDate = &endDate.Time
	}
	return &p, nil
}
