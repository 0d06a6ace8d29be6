package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nidahp/portal-api/internal/model"
	"github.com/nidahp/portal-api/internal/repository"
	apperrors "github.com/nidahp/portal-api/pkg/errors"
)

const assignmentColumns = "professional_id, facility_id, score, proposed_at, status, decided_at"

type assignmentRepository struct {
	BaseRepository
}

func NewAssignmentRepository(base BaseRepository) repository.AssignmentRepository {
	return &assignmentRepository{base}
}

// Upsert plans the command against the current row and runs it as a single
// INSERT ... ON CONFLICT so concurrent runs cannot produce two rows.
func (r *assignmentRepository) Upsert(ctx context.Context, proposal model.ProposedAssignment, at time.Time) (model.AssignmentCommand, error) {
	var cmd model.AssignmentCommand
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var existing *model.Assignment
		var current model.Assignment
		query := "SELECT " + assignmentColumns + " FROM assignments WHERE professional_id = ?" + r.forUpdate()
		err := tx.GetContext(ctx, &current, tx.Rebind(query), proposal.ProfessionalID)
		switch {
		case err == nil:
			existing = &current
		case isNoRows(err):
		default:
			return fmt.Errorf("failed to read assignment: %w", err)
		}

		cmd = model.PlanAssignment(existing, proposal, at)
		row := cmd.Row()

		upsert := `
			INSERT INTO assignments (
				professional_id, facility_id, score, proposed_at, status, decided_at
			) VALUES (
				?, ?, ?, ?, ?, NULL
			)
			ON CONFLICT (professional_id) DO UPDATE SET
				facility_id = excluded.facility_id,
				score = excluded.score,
				proposed_at = excluded.proposed_at,
				status = excluded.status,
				decided_at = NULL
		`
		if _, err := tx.ExecContext(ctx, tx.Rebind(upsert),
			row.ProfessionalID,
			row.FacilityID,
			row.Score,
			row.ProposedAt,
			string(row.Status),
		); err != nil {
			return fmt.Errorf("failed to upsert assignment: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.AssignmentCommand{}, err
	}
	return cmd, nil
}

func (r *assignmentRepository) Get(ctx context.Context, professionalID int64) (*model.Assignment, error) {
	query := "SELECT " + assignmentColumns + " FROM assignments WHERE professional_id = ?"
	var a model.Assignment
	if err := r.db.GetContext(ctx, &a, r.db.Rebind(query), professionalID); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("assignment", err)
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return &a, nil
}

func (r *assignmentRepository) Transition(ctx context.Context, professionalID int64, from, to model.Status, at time.Time) (bool, error) {
	query := `
		UPDATE assignments
		SET status = ?, decided_at = ?
		WHERE professional_id = ? AND status = ?
	`
	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), string(to), at, professionalID, string(from))
	if err != nil {
		return false, fmt.Errorf("failed to update assignment status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows == 1, nil
}

func (r *assignmentRepository) ListByStatus(ctx context.Context, status model.Status) ([]*model.AssignmentView, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown assignment status %q", status)
	}
	query := `
		SELECT
			a.professional_id, a.facility_id, a.score, a.proposed_at, a.status, a.decided_at,
			p.full_name AS professional_name, f.name AS facility_name
		FROM assignments a
		JOIN professionals p ON p.id = a.professional_id
		JOIN facilities f ON f.id = a.facility_id
		WHERE a.status = ?
		ORDER BY a.proposed_at DESC, a.professional_id ASC
	`
	var out []*model.AssignmentView
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(query), string(status)); err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return out, nil
}
