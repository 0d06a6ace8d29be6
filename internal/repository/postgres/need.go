package postgres

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/nidahp/portal-api/internal/model"
	"github.com/nidahp/portal-api/internal/repository"
	apperrors "github.com/nidahp/portal-api/pkg/errors"
)

const needColumns = "id, facility_id, description, quantity, program_type, tags, created_at, updated_at"

type needRepository struct {
	BaseRepository
}

func NewNeedRepository(base BaseRepository) repository.NeedRepository {
	return &needRepository{base}
}

func (r *needRepository) Create(ctx context.Context, need *model.Need) error {
	query := `
		INSERT INTO needs (
			facility_id, description, quantity, program_type, tags, created_at, updated_at
		) VALUES (
			?, ?, ?, ?, ?, ?, ?
		)
		RETURNING id
	`
	err := r.db.QueryRowxContext(ctx, r.db.Rebind(query),
		need.FacilityID,
		need.Description,
		need.Quantity,
		string(need.ProgramType),
		need.Tags,
		need.CreatedAt,
		need.UpdatedAt,
	).Scan(&need.ID)
	if err != nil {
		return fmt.Errorf("failed to create need: %w", err)
	}
	return nil
}

func (r *needRepository) Get(ctx context.Context, id int64) (*model.Need, error) {
	return r.get(ctx, r.db, id, "")
}

func (r *needRepository) get(ctx context.Context, q sqlx.QueryerContext, id int64, lock string) (*model.Need, error) {
	query := "SELECT " + needColumns + " FROM needs WHERE id = ?" + lock
	var need model.Need
	if err := sqlx.GetContext(ctx, q, &need, r.db.Rebind(query), id); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("need", err)
		}
		return nil, fmt.Errorf("failed to get need: %w", err)
	}
	return &need, nil
}

func (r *needRepository) List(ctx context.Context, filters *model.NeedFilters) ([]*model.NeedWithFacility, error) {
	qb := r.builder().
		Select(
			"n.id", "n.facility_id", "n.description", "n.quantity", "n.program_type",
			"n.tags", "n.created_at", "n.updated_at", "f.name AS facility_name",
		).
		From("needs n").
		Join("facilities f ON f.id = n.facility_id").
		OrderBy("n.created_at DESC", "n.id DESC")

	if filters != nil {
		if filters.FacilityID != 0 {
			qb = qb.Where(sq.Eq{"n.facility_id": filters.FacilityID})
		}
		if filters.ProgramType != "" {
			qb = qb.Where(sq.Eq{"n.program_type": string(filters.ProgramType)})
		}
		if s := strings.TrimSpace(filters.Search); s != "" {
			qb = qb.Where(sq.Like{"LOWER(n.description)": "%" + strings.ToLower(s) + "%"})
		}
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build need query: %w", err)
	}

	var needs []*model.NeedWithFacility
	if err := r.db.SelectContext(ctx, &needs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list needs: %w", err)
	}
	return needs, nil
}

func (r *needRepository) Mutate(ctx context.Context, id int64, fn func(current *model.Need) (*model.Need, error)) (*model.Need, error) {
	var result *model.Need
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		current, err := r.get(ctx, tx, id, r.forUpdate())
		if err != nil {
			return err
		}

		updated, err := fn(current)
		if err != nil {
			return err
		}
		if updated == nil {
			result = current
			return nil
		}

		query := `
			UPDATE needs
			SET description = ?, quantity = ?, tags = ?, updated_at = ?
			WHERE id = ?
		`
		if _, err := tx.ExecContext(ctx, tx.Rebind(query),
			updated.Description,
			updated.Quantity,
			updated.Tags,
			updated.UpdatedAt,
			id,
		); err != nil {
			return fmt.Errorf("failed to update need: %w", err)
		}
		result = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *needRepository) Remove(ctx context.Context, id int64, check func(current *model.Need) error) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		current, err := r.get(ctx, tx, id, r.forUpdate())
		if err != nil {
			return err
		}
		if err := check(current); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM needs WHERE id = ?"), id); err != nil {
			return fmt.Errorf("failed to delete need: %w", err)
		}
		return nil
	})
}

// UpdateProgramTypes re-runs classify over every stored description and
// rewrites the rows whose program type changes.
func (r *needRepository) UpdateProgramTypes(ctx context.Context, classify func(description string) model.ProgramType) (int, error) {
	changed := 0
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var needs []model.Need
		if err := tx.SelectContext(ctx, &needs, "SELECT "+needColumns+" FROM needs ORDER BY id"); err != nil {
			return fmt.Errorf("failed to list needs: %w", err)
		}

		for _, n := range needs {
			pt := classify(n.Description)
			if pt == n.ProgramType {
				continue
			}
			if _, err := tx.ExecContext(ctx, tx.Rebind("UPDATE needs SET program_type = ? WHERE id = ?"), string(pt), n.ID); err != nil {
				return fmt.Errorf("failed to reclassify need %d: %w", n.ID, err)
			}
			changed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return changed, nil
}
