package event

import (
	"context"
	"encoding/json"

	"github.com/nidahp/portal-api/internal/model"
	"github.com/nidahp/portal-api/internal/repository"
	"github.com/nidahp/portal-api/pkg/logger"
)

// Emitter records domain events. Emission never fails the caller's
// operation; problems are logged.
type Emitter interface {
	Emit(ctx context.Context, eventType string, payload interface{})
}

type EventService struct {
	outboxRepo repository.OutboxRepository
	log        *logger.Logger
}

func NewEventService(outboxRepo repository.OutboxRepository, log *logger.Logger) *EventService {
	if log == nil {
		log = logger.Nop()
	}
	return &EventService{
		outboxRepo: outboxRepo,
		log:        log,
	}
}

func (s *EventService) Emit(ctx context.Context, eventType string, payload interface{}) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		s.log.WithContext(ctx).Error(err, "failed to marshal event payload", "event_type", eventType)
		return
	}

	event := &model.OutboxEvent{
		EventType: eventType,
		Payload:   payloadJSON,
	}
	if err := s.outboxRepo.Create(ctx, event); err != nil {
		s.log.WithContext(ctx).Error(err, "failed to write outbox event", "event_type", eventType)
		return
	}
	s.log.WithContext(ctx).Debug("event emitted", "event_type", eventType, "event_id", event.ID.String())
}

// Nop discards every event.
type Nop struct{}

func (Nop) Emit(context.Context, string, interface{}) {}
