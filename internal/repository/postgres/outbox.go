package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nidahp/portal-api/internal/model"
	"github.com/nidahp/portal-api/internal/repository"
)

type outboxRepository struct {
	BaseRepository
}

// outboxRow scans the payload as text; drivers return jsonb and TEXT columns
// in different Go types.
type outboxRow struct {
	ID           uuid.UUID          `db:"id"`
	EventType    string             `db:"event_type"`
	Payload      string             `db:"payload"`
	Status       model.OutboxStatus `db:"status"`
	ErrorMessage *string            `db:"error_message"`
	RetryCount   int                `db:"retry_count"`
	RetryAt      *time.Time         `db:"retry_at"`
	CreatedAt    time.Time          `db:"created_at"`
	ProcessedAt  *time.Time         `db:"processed_at"`
	UpdatedAt    time.Time          `db:"updated_at"`
}

func (row outboxRow) event() *model.OutboxEvent {
	return &model.OutboxEvent{
		ID:           row.ID,
		EventType:    row.EventType,
		Payload:      json.RawMessage(row.Payload),
		Status:       row.Status,
		ErrorMessage: row.ErrorMessage,
		RetryCount:   row.RetryCount,
		RetryAt:      row.RetryAt,
		CreatedAt:    row.CreatedAt,
		ProcessedAt:  row.ProcessedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func NewOutboxRepository(base BaseRepository) repository.OutboxRepository {
	return &outboxRepository{base}
}

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}

	query := `
		INSERT INTO outbox_events (
			id, event_type, payload, status, retry_count, created_at, updated_at
		) VALUES (
			?, ?, ?, ?, 0, ?, ?
		)
	`
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	now := model.SystemClock()
	event.CreatedAt = now
	event.UpdatedAt = now
	event.Status = model.OutboxStatusPending

	_, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		event.ID.String(),
		event.EventType,
		string(event.Payload),
		string(event.Status),
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

// GetPendingEvents returns events that are new or whose retry delay has passed,
// oldest first.
func (r *outboxRepository) GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	query := `
		SELECT id, event_type, payload, status, error_message, retry_count, retry_at,
			created_at, processed_at, updated_at
		FROM outbox_events
		WHERE status IN (?, ?)
		AND (retry_at IS NULL OR retry_at <= ?)
		ORDER BY created_at ASC
		LIMIT ?
	`
	var rows []outboxRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query),
		string(model.OutboxStatusPending),
		string(model.OutboxStatusRetry),
		model.SystemClock(),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending events: %w", err)
	}

	events := make([]*model.OutboxEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.event())
	}
	return events, nil
}

// UpdateStatus records the outcome of a delivery attempt. Retry and failed
// outcomes count as an attempt.
func (r *outboxRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error {
	now := model.SystemClock()

	attempt := 0
	if status == model.OutboxStatusRetry || status == model.OutboxStatusFailed {
		attempt = 1
	}
	var processedAt *time.Time
	if status == model.OutboxStatusProcessed {
		processedAt = &now
	}

	query := `
		UPDATE outbox_events
		SET status = ?,
			error_message = ?,
			retry_at = ?,
			retry_count = retry_count + ?,
			processed_at = ?,
			updated_at = ?
		WHERE id = ?
	`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		string(status), errorMessage, retryAt, attempt, processedAt, now, id.String())
	if err != nil {
		return fmt.Errorf("failed to update outbox event: %w", err)
	}
	return nil
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM outbox_events
		WHERE status = ?
		AND processed_at < ?
	`
	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), string(model.OutboxStatusProcessed), before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete processed events: %w", err)
	}

	return result.RowsAffected()
}
