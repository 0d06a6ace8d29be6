package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/nidahp/portal-api/internal/model"
	"github.com/nidahp/portal-api/internal/repository"
	apperrors "github.com/nidahp/portal-api/pkg/errors"
)

const interestColumns = "id, professional_id, need_id, status, training_title, training_status, created_at, decided_at"

type interestRepository struct {
	BaseRepository
}

func NewInterestRepository(base BaseRepository) repository.InterestRepository {
	return &interestRepository{base}
}

// CreatePending inserts the interest only when no Pending row exists for the
// same pair. The partial unique index on Pending rows is the arbiter.
func (r *interestRepository) CreatePending(ctx context.Context, interest *model.Interest) (bool, error) {
	query := `
		INSERT INTO interests (professional_id, need_id, status, created_at)
		VALUES (?, ?, 'Pending', ?)
		ON CONFLICT (professional_id, need_id) WHERE status = 'Pending' DO NOTHING
		RETURNING id
	`
	err := r.db.QueryRowxContext(ctx, r.db.Rebind(query),
		interest.ProfessionalID,
		interest.NeedID,
		interest.CreatedAt,
	).Scan(&interest.ID)
	switch {
	case err == nil:
		interest.Status = model.StatusPending
		return true, nil
	case isNoRows(err), isUniqueViolation(err):
		return false, nil
	default:
		return false, fmt.Errorf("failed to create interest: %w", err)
	}
}

func (r *interestRepository) Get(ctx context.Context, id int64) (*model.Interest, error) {
	query := "SELECT " + interestColumns + " FROM interests WHERE id = ?"
	var i model.Interest
	if err := r.db.GetContext(ctx, &i, r.db.Rebind(query), id); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("interest", err)
		}
		return nil, fmt.Errorf("failed to get interest: %w", err)
	}
	return &i, nil
}

func (r *interestRepository) Transition(ctx context.Context, id int64, from, to model.Status, at time.Time) (bool, error) {
	query := `
		UPDATE interests
		SET status = ?, decided_at = ?
		WHERE id = ? AND status = ?
	`
	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), string(to), at, id, string(from))
	if err != nil {
		return false, fmt.Errorf("failed to update interest status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows == 1, nil
}

func (r *interestRepository) List(ctx context.Context, filters *model.InterestFilters) ([]*model.InterestView, error) {
	qb := r.builder().
		Select(
			"i.id", "i.professional_id", "i.need_id", "i.status", "i.training_title",
			"i.training_status", "i.created_at", "i.decided_at",
			"p.full_name AS professional_name", "n.facility_id", "f.name AS facility_name",
			"n.description AS need_description", "n.program_type",
		).
		From("interests i").
		Join("professionals p ON p.id = i.professional_id").
		Join("needs n ON n.id = i.need_id").
		Join("facilities f ON f.id = n.facility_id").
		OrderBy("p.full_name", "f.name", "i.id")

	if filters != nil {
		if filters.Status != "" {
			if !filters.Status.Valid() {
				return nil, fmt.Errorf("unknown interest status %q", filters.Status)
			}
			qb = qb.Where(sq.Eq{"i.status": string(filters.Status)})
		}
		if filters.ProfessionalID != 0 {
			qb = qb.Where(sq.Eq{"i.professional_id": filters.ProfessionalID})
		}
		if filters.ProgramType != "" {
			qb = qb.Where(sq.Eq{"n.program_type": string(filters.ProgramType)})
		}
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build interest query: %w", err)
	}

	var out []*model.InterestView
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list interests: %w", err)
	}
	return out, nil
}

// UpdateTraining records progress on an approved interest. ok is false when
// the interest is not Approved.
func (r *interestRepository) UpdateTraining(ctx context.Context, id int64, title string, status model.TrainingStatus) (bool, error) {
	query := `
		UPDATE interests
		SET training_title = ?, training_status = ?
		WHERE id = ? AND status = ?
	`
	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), title, string(status), id, string(model.StatusApproved))
	if err != nil {
		return false, fmt.Errorf("failed to update training: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows == 1, nil
}
