package need

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nidahp/portal-api/internal/model"
	"github.com/nidahp/portal-api/internal/repository"
	"github.com/nidahp/portal-api/internal/service/event"
	apperrors "github.com/nidahp/portal-api/pkg/errors"
)

type NeedServicer interface {
	Submit(ctx context.Context, facilityID int64, description string, quantity int, tags []string) (*model.Need, error)
	Update(ctx context.Context, needID, facilityID int64, description string, quantity int) (*model.Need, error)
	Delete(ctx context.Context, needID, facilityID int64) error
	Get(ctx context.Context, needID int64) (*model.Need, error)
	ListByFacility(ctx context.Context, facilityID int64) ([]*FacilityNeed, error)
	ListByProgram(ctx context.Context, programType model.ProgramType, search string) ([]*model.NeedWithFacility, error)
	Reclassify(ctx context.Context) (int, error)
}

// FacilityNeed is a need as its owning facility sees it.
type FacilityNeed struct {
	*model.NeedWithFacility
	Editable bool      `json:"editable"`
	LocksAt  time.Time `json:"locks_at"`
}

type Service struct {
	repo     repository.NeedRepository
	identity repository.IdentityRepository
	events   event.Emitter
	clock    model.Clock
}

func NewService(repo repository.NeedRepository, identity repository.IdentityRepository, events event.Emitter, clock model.Clock) *Service {
	if clock == nil {
		clock = model.SystemClock
	}
	if events == nil {
		events = event.Nop{}
	}
	return &Service{
		repo:     repo,
		identity: identity,
		events:   events,
		clock:    clock,
	}
}

func (s *Service) Submit(ctx context.Context, facilityID int64, description string, quantity int, tags []string) (*model.Need, error) {
	description = strings.TrimSpace(description)
	if err := validate(description, quantity); err != nil {
		return nil, err
	}

	facility, err := s.identity.GetFacility(ctx, facilityID)
	if err != nil {
		return nil, err
	}
	if !facility.IsActive {
		return nil, apperrors.Validation("facility is not active")
	}

	now := s.clock()
	need := &model.Need{
		FacilityID:  facilityID,
		Description: description,
		Quantity:    quantity,
		ProgramType: Classify(description),
		Tags:        model.NewTagSet(tags...).String(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, need); err != nil {
		return nil, fmt.Errorf("failed to submit need: %w", err)
	}

	s.events.Emit(ctx, model.EventNeedSubmitted, event.NeedPayload{
		NeedID:      need.ID,
		FacilityID:  need.FacilityID,
		ProgramType: need.ProgramType,
		At:          now,
	})
	return need, nil
}

// Update replaces description and quantity. The program type recorded at
// submission is kept. Ownership and the lock window are checked before the
// new values.
func (s *Service) Update(ctx context.Context, needID, facilityID int64, description string, quantity int) (*model.Need, error) {
	description = strings.TrimSpace(description)

	var at time.Time
	updated, err := s.repo.Mutate(ctx, needID, func(current *model.Need) (*model.Need, error) {
		at = s.clock()
		if err := checkMutable(current, facilityID, at); err != nil {
			return nil, err
		}
		if err := validate(description, quantity); err != nil {
			return nil, err
		}
		next := *current
		next.Description = description
		next.Quantity = quantity
		next.UpdatedAt = at
		return &next, nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Emit(ctx, model.EventNeedUpdated, event.NeedPayload{
		NeedID:     updated.ID,
		FacilityID: updated.FacilityID,
		At:         at,
	})
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, needID, facilityID int64) error {
	var at time.Time
	err := s.repo.Remove(ctx, needID, func(current *model.Need) error {
		at = s.clock()
		return checkMutable(current, facilityID, at)
	})
	if err != nil {
		return err
	}

	s.events.Emit(ctx, model.EventNeedDeleted, event.NeedPayload{
		NeedID:     needID,
		FacilityID: facilityID,
		At:         at,
	})
	return nil
}

func (s *Service) Get(ctx context.Context, needID int64) (*model.Need, error) {
	return s.repo.Get(ctx, needID)
}

// ListByFacility returns the facility's needs, newest first, with the edit
// window evaluated against the current clock.
func (s *Service) ListByFacility(ctx context.Context, facilityID int64) ([]*FacilityNeed, error) {
	needs, err := s.repo.List(ctx, &model.NeedFilters{FacilityID: facilityID})
	if err != nil {
		return nil, err
	}

	now := s.clock()
	out := make([]*FacilityNeed, 0, len(needs))
	for _, n := range needs {
		out = append(out, &FacilityNeed{
			NeedWithFacility: n,
			Editable:         !n.Locked(now),
			LocksAt:          n.LocksAt(),
		})
	}
	return out, nil
}

// ListByProgram lists needs of one program type across all facilities. An
// empty program type lists everything; search keeps needs whose description
// contains it, ignoring case.
func (s *Service) ListByProgram(ctx context.Context, programType model.ProgramType, search string) ([]*model.NeedWithFacility, error) {
	if programType != "" && !programType.Valid() {
		return nil, apperrors.Validation(fmt.Sprintf("unknown program type %q", programType))
	}
	return s.repo.List(ctx, &model.NeedFilters{ProgramType: programType, Search: search})
}

// Reclassify recomputes the program type of every stored need, for use after
// the keyword list changes. It returns the number of needs that changed.
func (s *Service) Reclassify(ctx context.Context) (int, error) {
	return s.repo.UpdateProgramTypes(ctx, Classify)
}

func validate(description string, quantity int) error {
	if description == "" {
		return apperrors.Validation("description is required")
	}
	if quantity < 1 {
		return apperrors.Validation("quantity must be a positive integer")
	}
	return nil
}

func checkMutable(n *model.Need, facilityID int64, now time.Time) error {
	if n.FacilityID != facilityID {
		return apperrors.Permission("need belongs to another facility")
	}
	if n.Locked(now) {
		return apperrors.Locked(fmt.Sprintf("need %d locked since %s", n.ID, n.LocksAt().Format(time.RFC3339)))
	}
	return nil
}
