package postgres

import (
	"context"
	"fmt"

	"github.com/nidahp/portal-api/internal/model"
	"github.com/nidahp/portal-api/internal/repository"
	apperrors "github.com/nidahp/portal-api/pkg/errors"
)

type identityRepository struct {
	BaseRepository
}

func NewIdentityRepository(base BaseRepository) repository.IdentityRepository {
	return &identityRepository{base}
}

func (r *identityRepository) GetProfessional(ctx context.Context, id int64) (*model.Professional, error) {
	query := `
		SELECT id, full_name, role, skills, created_at
		FROM professionals
		WHERE id = ?
	`
	var p model.Professional
	if err := r.db.GetContext(ctx, &p, r.db.Rebind(query), id); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("professional", err)
		}
		return nil, fmt.Errorf("failed to get professional: %w", err)
	}
	return &p, nil
}

func (r *identityRepository) GetFacility(ctx context.Context, id int64) (*model.Facility, error) {
	query := `
		SELECT id, name, code, state, is_active, created_at
		FROM facilities
		WHERE id = ?
	`
	var f model.Facility
	if err := r.db.GetContext(ctx, &f, r.db.Rebind(query), id); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("facility", err)
		}
		return nil, fmt.Errorf("failed to get facility: %w", err)
	}
	return &f, nil
}

func (r *identityRepository) ListMatchableProfessionals(ctx context.Context) ([]*model.Professional, error) {
	query := `
		SELECT id, full_name, role, skills, created_at
		FROM professionals
		WHERE role IN (?, ?)
		ORDER BY id
	`
	var out []*model.Professional
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(query), model.RoleIndividual, model.RoleAssociation)
	if err != nil {
		return nil, fmt.Errorf("failed to list professionals: %w", err)
	}
	return out, nil
}

type facilityNeedRow struct {
	FacilityID int64   `db:"facility_id"`
	NeedID     *int64  `db:"need_id"`
	Tags       *string `db:"tags"`
}

// ListFacilityNeedTags returns every facility in ascending id with the raw
// tag column of each of its needs. Facilities without needs carry no tags.
func (r *identityRepository) ListFacilityNeedTags(ctx context.Context) ([]*model.FacilityNeedTags, error) {
	query := `
		SELECT f.id AS facility_id, n.id AS need_id, n.tags
		FROM facilities f
		LEFT JOIN needs n ON n.facility_id = f.id
		ORDER BY f.id, n.id
	`
	var rows []facilityNeedRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list facility needs: %w", err)
	}

	var out []*model.FacilityNeedTags
	var cur *model.FacilityNeedTags
	for _, row := range rows {
		if cur == nil || cur.FacilityID != row.FacilityID {
			cur = &model.FacilityNeedTags{FacilityID: row.FacilityID}
			out = append(out, cur)
		}
		if row.NeedID == nil {
			continue
		}
		cur.Tags = append(cur.Tags, row.Tags)
	}
	return out, nil
}
