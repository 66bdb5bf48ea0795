package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

type EventRepository struct {
	db DBTX
}

var _ ports.EventRepository = (*EventRepository)(nil)

func NewEventRepository(db DBTX) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) InsertEvent(ctx context.Context, event *domain.AuthEvent) error {
	query :=
		`INSERT INTO auth_events (kind, outcome, user_id, subject, reason, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`

	userID := sql.NullInt64{Int64: event.UserID, Valid: event.UserID > 0}
	_, err := r.db.ExecContext(ctx, query,
		string(event.Kind), event.Outcome, userID, event.Subject, event.Reason, event.OccurredAt.UTC())
	if err != nil {
		return fmt.Errorf("insert auth event: %w", err)
	}
	return nil
}
