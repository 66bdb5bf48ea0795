package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/internal/pkg/metrics"
)

type eventService struct {
	repo ports.EventRepository
	log  zerolog.Logger
}

// NewEventService returns an EventService that persists audit events.
func NewEventService(repo ports.EventRepository, log zerolog.Logger) ports.EventService {
	return &eventService{repo: repo, log: log}
}

// Process normalises and persists a single audit event.
func (s *eventService) Process(ctx context.Context, ev domain.AuthEvent) error {
	start := time.Now()

	if ev.Kind == "" || ev.Outcome == "" {
		metrics.AuditEventsTotal.WithLabelValues("unknown", "rejected").Inc()
		return fmt.Errorf("process audit event: missing kind or outcome")
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = start.UTC()
	}

	if err := s.repo.InsertEvent(ctx, &ev); err != nil {
		metrics.AuditEventsTotal.WithLabelValues(string(ev.Kind), "error").Inc()
		return fmt.Errorf("process audit event: %w", err)
	}

	metrics.AuditEventsTotal.WithLabelValues(string(ev.Kind), "stored").Inc()
	metrics.AuditProcessingDuration.Observe(time.Since(start).Seconds())

	s.log.Debug().
		Str("kind", string(ev.Kind)).
		Str("outcome", ev.Outcome).
		Int64("user_id", ev.UserID).
		Str("reason", ev.Reason).
		Msg("audit event stored")

	return nil
}
