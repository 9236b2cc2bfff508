package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"daycareplanner/internal/audit"
)

// Postgres appends audit events to the audit_log table. Appends arrive from
// the worker, outside any request transaction.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

func (s *Postgres) Append(ctx context.Context, event audit.Event) error {
	var changes []byte
	if event.Changes != nil {
		var err error
		changes, err = json.Marshal(event.Changes)
		if err != nil {
			return fmt.Errorf("marshal audit changes: %w", err)
		}
	}

	var actorID *uuid.UUID
	if !event.ActorID.IsNil() {
		raw := uuid.UUID(event.ActorID)
		actorID = &raw
	}

	query := `
		INSERT INTO audit_log (id, user_id, action, entity_type, entity_id, changes, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.New(), actorID, event.Action, event.EntityType, event.EntityID,
		changes, event.RequestID, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit log entry: %w", err)
	}
	return nil
}
