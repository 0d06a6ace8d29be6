package interest

import (
	"context"
	"fmt"
	"strings"

	"github.com/nidahp/portal-api/internal/model"
	"github.com/nidahp/portal-api/internal/repository"
	"github.com/nidahp/portal-api/internal/service/event"
	apperrors "github.com/nidahp/portal-api/pkg/errors"
)

type InterestServicer interface {
	Express(ctx context.Context, professionalID, needID int64) (*model.Interest, error)
	Approve(ctx context.Context, interestID int64) (*model.Interest, error)
	Reject(ctx context.Context, interestID int64) (*model.Interest, error)
	ListPending(ctx context.Context) ([]*model.InterestView, error)
	ListApprovedFor(ctx context.Context, professionalID int64) ([]*model.InterestView, error)
	ListTrainingsFor(ctx context.Context, professionalID int64) ([]*model.InterestView, error)
	RecordTrainingProgress(ctx context.Context, interestID int64, title string, status model.TrainingStatus) (*model.Interest, error)
}

type Service struct {
	repo     repository.InterestRepository
	needs    repository.NeedRepository
	identity repository.IdentityRepository
	events   event.Emitter
	clock    model.Clock
}

func NewService(
	repo repository.InterestRepository,
	needs repository.NeedRepository,
	identity repository.IdentityRepository,
	events event.Emitter,
	clock model.Clock,
) *Service {
	if clock == nil {
		clock = model.SystemClock
	}
	if events == nil {
		events = event.Nop{}
	}
	return &Service{
		repo:     repo,
		needs:    needs,
		identity: identity,
		events:   events,
		clock:    clock,
	}
}

// Express records a Pending interest of a professional in a need. A second
// request while one is still Pending is a duplicate; after a decision the
// professional may ask again.
func (s *Service) Express(ctx context.Context, professionalID, needID int64) (*model.Interest, error) {
	pro, err := s.identity.GetProfessional(ctx, professionalID)
	if err != nil {
		return nil, err
	}
	if !pro.Role.Matchable() {
		return nil, apperrors.Validation(fmt.Sprintf("role %s cannot express interest", pro.Role))
	}
	if _, err := s.needs.Get(ctx, needID); err != nil {
		return nil, err
	}

	interest := &model.Interest{
		ProfessionalID: professionalID,
		NeedID:         needID,
		Status:         model.StatusPending,
		CreatedAt:      s.clock(),
	}
	created, err := s.repo.CreatePending(ctx, interest)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, apperrors.Duplicate(fmt.Sprintf("interest of professional %d in need %d is already pending", professionalID, needID), nil)
	}

	s.events.Emit(ctx, model.EventInterestExpressed, event.InterestPayload{
		InterestID:     interest.ID,
		ProfessionalID: professionalID,
		NeedID:         needID,
		Status:         interest.Status,
		At:             interest.CreatedAt,
	})
	return interest, nil
}

func (s *Service) Approve(ctx context.Context, interestID int64) (*model.Interest, error) {
	return s.transition(ctx, interestID, model.StatusApproved)
}

// Reject is the moderation counterpart of Approve.
func (s *Service) Reject(ctx context.Context, interestID int64) (*model.Interest, error) {
	return s.transition(ctx, interestID, model.StatusRejected)
}

func (s *Service) transition(ctx context.Context, interestID int64, to model.Status) (*model.Interest, error) {
	ok, err := s.repo.Transition(ctx, interestID, model.StatusPending, to, s.clock())
	if err != nil {
		return nil, err
	}

	current, err := s.repo.Get(ctx, interestID)
	if err != nil {
		return nil, err
	}
	if !ok {
		if current.Status.Terminal() {
			return nil, apperrors.State(fmt.Sprintf("interest %d was already %s", interestID, current.Status))
		}
		return nil, apperrors.State(fmt.Sprintf("interest %d is %s, not %s", interestID, current.Status, model.StatusPending))
	}
	return current, nil
}

func (s *Service) ListPending(ctx context.Context) ([]*model.InterestView, error) {
	return s.repo.List(ctx, &model.InterestFilters{Status: model.StatusPending})
}

// ListApprovedFor returns the professional's active engagements.
func (s *Service) ListApprovedFor(ctx context.Context, professionalID int64) ([]*model.InterestView, error) {
	return s.repo.List(ctx, &model.InterestFilters{
		Status:         model.StatusApproved,
		ProfessionalID: professionalID,
	})
}

// ListTrainingsFor returns approved engagements on Training needs.
func (s *Service) ListTrainingsFor(ctx context.Context, professionalID int64) ([]*model.InterestView, error) {
	return s.repo.List(ctx, &model.InterestFilters{
		Status:         model.StatusApproved,
		ProfessionalID: professionalID,
		ProgramType:    model.ProgramTraining,
	})
}

// RecordTrainingProgress sets the title and progress of an approved
// engagement on a Training need.
func (s *Service) RecordTrainingProgress(ctx context.Context, interestID int64, title string, status model.TrainingStatus) (*model.Interest, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperrors.Validation("training title is required")
	}
	if !status.Valid() {
		return nil, apperrors.Validation(fmt.Sprintf("unknown training status %q", status))
	}

	current, err := s.repo.Get(ctx, interestID)
	if err != nil {
		return nil, err
	}
	need, err := s.needs.Get(ctx, current.NeedID)
	if err != nil {
		return nil, err
	}
	if need.ProgramType != model.ProgramTraining {
		return nil, apperrors.State(fmt.Sprintf("need %d is not a training programme", need.ID))
	}

	ok, err := s.repo.UpdateTraining(ctx, interestID, title, status)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.State(fmt.Sprintf("interest %d is not %s", interestID, model.StatusApproved))
	}
	return s.repo.Get(ctx, interestID)
}
