package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"daycareplanner/internal/application"
	"daycareplanner/pkg/domain"
	"daycareplanner/pkg/platform/sentinel"
)

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres persists applications and their ranked choices.
type Postgres struct {
	q queryer
}

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{q: db} }

// NewPostgresTx returns a store scoped to an open transaction.
func NewPostgresTx(tx *sql.Tx) *Postgres { return &Postgres{q: tx} }

func (s *Postgres) CreateApplication(ctx context.Context, app *application.Application) error {
	query := `
		INSERT INTO applications (id, child_id, parent_id, application_date, desired_start_date, notes, opt_in_parent_network)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.q.ExecContext(ctx, query,
		uuid.UUID(app.ID), uuid.UUID(app.ChildID), uuid.UUID(app.ParentID),
		app.ApplicationDate, app.DesiredStartDate, app.Notes, app.OptInParentNetwork,
	)
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (s *Postgres) CreateChoice(ctx context.Context, choice *application.Choice) error {
	query := `
		INSERT INTO application_choices (id, application_id, daycare_id, preference_rank, status, status_notes, status_updated_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.q.ExecContext(ctx, query,
		uuid.UUID(choice.ID), uuid.UUID(choice.ApplicationID), uuid.UUID(choice.DaycareID),
		choice.PreferenceRank, string(choice.Status), choice.StatusNotes,
		choice.StatusUpdatedAt, choice.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert application choice: %w", err)
	}
	return nil
}

func (s *Postgres) FindApplicationByID(ctx context.Context, id domain.ApplicationID) (*application.Application, error) {
	query := `
		SELECT id, child_id, parent_id, application_date, desired_start_date, notes, opt_in_parent_network
		FROM applications
		WHERE id = $1
	`
	var (
		app      application.Application
		appID    uuid.UUID
		childID  uuid.UUID
		parentID uuid.UUID
	)
	err := s.q.QueryRowContext(ctx, query, uuid.UUID(id)).Scan(
		&appID, &childID, &parentID, &app.ApplicationDate,
		&app.DesiredStartDate, &app.Notes, &app.OptInParentNetwork,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find application: %w", err)
	}
	app.ID = domain.ApplicationID(appID)
	app.ChildID = domain.ChildID(childID)
	app.ParentID = domain.UserID(parentID)
	return &app, nil
}

func (s *Postgres) FindChoiceByID(ctx context.Context, id domain.ChoiceID) (*application.Choice, error) {
	query := `
		SELECT id, application_id, daycare_id, preference_rank, status, status_notes, status_updated_at, created_at
		FROM application_choices
		WHERE id = $1
	`
	var (
		choice    application.Choice
		choiceID  uuid.UUID
		appID     uuid.UUID
		daycareID uuid.UUID
		status    string
		notes     sql.NullString
	)
	err := s.q.QueryRowContext(ctx, query, uuid.UUID(id)).Scan(
		&choiceID, &appID, &daycareID, &choice.PreferenceRank,
		&status, &notes, &choice.StatusUpdatedAt, &choice.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find application choice: %w", err)
	}
	choice.ID = domain.ChoiceID(choiceID)
	choice.ApplicationID = domain.ApplicationID(appID)
	choice.DaycareID = domain.DaycareID(daycareID)
	choice.Status = application.ChoiceStatus(status)
	choice.StatusNotes = notes.String
	return &choice, nil
}

// UpdateChoiceStatus stamps the new status, notes, and update time.
func (s *Postgres) UpdateChoiceStatus(ctx context.Context, id domain.ChoiceID, status application.ChoiceStatus, notes string, at time.Time) error {
	query := `
		UPDATE application_choices
		SET status = $1, status_notes = $2, status_updated_at = $3
		WHERE id = $4
	`
	res, err := s.q.ExecContext(ctx, query, string(status), notes, at, uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("update choice status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update choice status rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// ChildHasActiveApplication reports whether any of the child's applications
// still has a pending or waitlisted choice. Enforces the one-active-
// application rule at submission time.
func (s *Postgres) ChildHasActiveApplication(ctx context.Context, childID domain.ChildID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM applications a
			JOIN application_choices ac ON ac.application_id = a.id
			WHERE a.child_id = $1 AND ac.status IN ('pending', 'waitlisted')
		)
	`
	var exists bool
	if err := s.q.QueryRowContext(ctx, query, uuid.UUID(childID)).Scan(&exists); err != nil {
		return false, fmt.Errorf("check active application: %w", err)
	}
	return exists, nil
}

// WithdrawAll marks every choice of the application withdrawn.
func (s *Postgres) WithdrawAll(ctx context.Context, id domain.ApplicationID, at time.Time) error {
	query := `
		UPDATE application_choices
		SET status = $1, status_updated_at = $2
		WHERE application_id = $3
	`
	_, err := s.q.ExecContext(ctx, query, string(application.StatusWithdrawn), at, uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("withdraw application choices: %w", err)
	}
	return nil
}

// ListByParent returns the parent's applications with their choices, newest
// application first, choices in preference order.
func (s *Postgres) ListByParent(ctx context.Context, parentID domain.UserID) ([]*application.Summary, error) {
	query := `
		SELECT
			a.id, a.application_date, a.desired_start_date, a.notes,
			c.first_name, c.last_name, c.date_of_birth,
			ac.id, ac.daycare_id, d.name, ac.preference_rank, ac.status, ac.status_updated_at
		FROM applications a
		JOIN children c ON a.child_id = c.id
		LEFT JOIN application_choices ac ON ac.application_id = a.id
		LEFT JOIN daycares d ON ac.daycare_id = d.id
		WHERE a.parent_id = $1
		ORDER BY a.application_date DESC, ac.preference_rank ASC
	`
	rows, err := s.q.QueryContext(ctx, query, uuid.UUID(parentID))
	if err != nil {
		return nil, fmt.Errorf("query applications: %w", err)
	}
	defer rows.Close()

	var (
		summaries []*application.Summary
		byID      = make(map[domain.ApplicationID]*application.Summary)
	)
	for rows.Next() {
		var (
			appID      uuid.UUID
			appDate    time.Time
			startDate  time.Time
			notes      sql.NullString
			firstName  string
			lastName   string
			birthDate  time.Time
			choiceID   *uuid.UUID
			daycareID  *uuid.UUID
			daycare    sql.NullString
			rank       sql.NullInt64
			status     sql.NullString
			statusTime sql.NullTime
		)
		err := rows.Scan(
			&appID, &appDate, &startDate, &notes,
			&firstName, &lastName, &birthDate,
			&choiceID, &daycareID, &daycare, &rank, &status, &statusTime,
		)
		if err != nil {
			return nil, fmt.Errorf("scan application row: %w", err)
		}

		id := domain.ApplicationID(appID)
		summary, ok := byID[id]
		if !ok {
			summary = &application.Summary{
				ID:               id,
				ApplicationDate:  appDate,
				DesiredStartDate: startDate,
				Notes:            notes.String,
				ChildFirstName:   firstName,
				ChildLastName:    lastName,
				DateOfBirth:      birthDate,
			}
			byID[id] = summary
			summaries = append(summaries, summary)
		}
		if choiceID != nil && daycareID != nil {
			summary.Choices = append(summary.Choices, application.ChoiceSummary{
				ChoiceID:        domain.ChoiceID(*choiceID),
				DaycareID:       domain.DaycareID(*daycareID),
				DaycareName:     daycare.String,
				PreferenceRank:  int(rank.Int64),
				Status:          application.ChoiceStatus(status.String),
				StatusUpdatedAt: statusTime.Time,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applications: %w", err)
	}
	return summaries, nil
}
