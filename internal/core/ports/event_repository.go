package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// EventRepository persists the authentication audit trail.
type EventRepository interface {
	InsertEvent(ctx context.Context, event *domain.AuthEvent) error
}

// EventService processes audit events pulled off the dispatcher queue.
type EventService interface {
	Process(ctx context.Context, event domain.AuthEvent) error
}

// EventRecorder accepts audit events without blocking the caller.
type EventRecorder interface {
	Record(event domain.AuthEvent)
}
