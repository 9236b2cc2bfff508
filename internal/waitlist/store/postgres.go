package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"daycareplanner/internal/application"
	"daycareplanner/internal/waitlist"
	"daycareplanner/pkg/domain"
)

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Postgres assembles waitlist candidates. It only reads; ordering happens in
// memory in the waitlist package.
type Postgres struct {
	q queryer
}

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{q: db} }

// ListByDaycare returns every pending or waitlisted choice for the daycare,
// enriched with application, child, and parent data. Rows come back in
// application date order so ties under any policy resolve the same way on
// every request.
func (s *Postgres) ListByDaycare(ctx context.Context, daycareID domain.DaycareID) ([]waitlist.Candidate, error) {
	query := `
		SELECT
			ac.id, ac.preference_rank, ac.status,
			a.id, a.application_date, a.desired_start_date,
			c.id, c.first_name, c.last_name, c.date_of_birth,
			c.is_inuk, c.has_special_needs,
			c.languages_spoken_at_home, c.siblings_in_care,
			u.email, u.phone, u.first_name, u.last_name,
			cur.daycare_id, cur.name
		FROM application_choices ac
		JOIN applications a ON ac.application_id = a.id
		JOIN children c ON a.child_id = c.id
		JOIN users u ON a.parent_id = u.id
		LEFT JOIN LATERAL (
			SELECT p.daycare_id, d.name
			FROM placements p
			JOIN daycares d ON p.daycare_id = d.id
			WHERE p.child_id = c.id AND p.end_date IS NULL
			ORDER BY p.start_date DESC
			LIMIT 1
		) cur ON TRUE
		WHERE ac.daycare_id = $1 AND ac.status IN ('pending', 'waitlisted')
		ORDER BY a.application_date ASC, ac.created_at ASC
	`
	rows, err := s.q.QueryContext(ctx, query, uuid.UUID(daycareID))
	if err != nil {
		return nil, fmt.Errorf("query waitlist candidates: %w", err)
	}
	defer rows.Close()

	var candidates []waitlist.Candidate
	for rows.Next() {
		var (
			cand           waitlist.Candidate
			choiceID       uuid.UUID
			appID          uuid.UUID
			childID        uuid.UUID
			status         string
			birthDate      time.Time
			languages      pq.StringArray
			siblings       pq.StringArray
			phone          sql.NullString
			curDaycareID   uuid.NullUUID
			curDaycareName sql.NullString
		)
		err := rows.Scan(
			&choiceID, &cand.PreferenceRank, &status,
			&appID, &cand.ApplicationDate, &cand.DesiredStartDate,
			&childID, &cand.ChildFirstName, &cand.ChildLastName, &birthDate,
			&cand.IsInuk, &cand.HasSpecialNeeds,
			&languages, &siblings,
			&cand.ParentEmail, &phone, &cand.ParentFirstName, &cand.ParentLastName,
			&curDaycareID, &curDaycareName,
		)
		if err != nil {
			return nil, fmt.Errorf("scan waitlist candidate: %w", err)
		}
		cand.ChoiceID = domain.ChoiceID(choiceID)
		cand.ApplicationID = domain.ApplicationID(appID)
		cand.ChildID = domain.ChildID(childID)
		cand.Status = application.ChoiceStatus(status)
		cand.DateOfBirth = birthDate
		cand.LanguagesSpokenAtHome = languages
		cand.SiblingsInCare = siblings
		cand.ParentPhone = phone.String
		if curDaycareID.Valid {
			current := domain.DaycareID(curDaycareID.UUID)
			cand.HasCurrentPlacement = true
			cand.CurrentDaycareID = &current
			cand.CurrentDaycareName = curDaycareName.String
		}
		candidates = append(candidates, cand)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate waitlist candidates: %w", err)
	}
	return candidates, nil
}
