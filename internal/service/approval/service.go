// Package approval is the single entry point for reviewing pending work on
// both tracks: system-proposed assignments and professional-initiated
// interests. Each call touches exactly one track.
package approval

import (
	"context"

	"github.com/nidahp/portal-api/internal/model"
	"github.com/nidahp/portal-api/internal/service/assignment"
	"github.com/nidahp/portal-api/internal/service/event"
	"github.com/nidahp/portal-api/internal/service/interest"
	apperrors "github.com/nidahp/portal-api/pkg/errors"
	"github.com/nidahp/portal-api/pkg/logger"
	"github.com/nidahp/portal-api/pkg/metrics"
)

const (
	trackAssignment = "assignment"
	trackInterest   = "interest"
)

type ApprovalServicer interface {
	PendingItems(ctx context.Context) (*PendingItems, error)
	ApproveAssignment(ctx context.Context, professionalID int64) (*model.Assignment, error)
	RejectAssignment(ctx context.Context, professionalID int64) (*model.Assignment, error)
	ApproveInterest(ctx context.Context, interestID int64) (*model.Interest, error)
	RejectInterest(ctx context.Context, interestID int64) (*model.Interest, error)
}

// PendingItems is everything awaiting review.
type PendingItems struct {
	Assignments []*model.AssignmentView `json:"assignments"`
	Interests   []*model.InterestView   `json:"interests"`
}

type Service struct {
	assignments assignment.AssignmentServicer
	interests   interest.InterestServicer
	events      event.Emitter
	metrics     *metrics.Metrics
	log         *logger.Logger
	clock       model.Clock
}

func NewService(
	assignments assignment.AssignmentServicer,
	interests interest.InterestServicer,
	events event.Emitter,
	m *metrics.Metrics,
	log *logger.Logger,
	clock model.Clock,
) *Service {
	if events == nil {
		events = event.Nop{}
	}
	if log == nil {
		log = logger.Nop()
	}
	if clock == nil {
		clock = model.SystemClock
	}
	return &Service{
		assignments: assignments,
		interests:   interests,
		events:      events,
		metrics:     m,
		log:         log,
		clock:       clock,
	}
}

func (s *Service) PendingItems(ctx context.Context) (*PendingItems, error) {
	assignments, err := s.assignments.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	interests, err := s.interests.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	if assignments == nil {
		assignments = []*model.AssignmentView{}
	}
	if interests == nil {
		interests = []*model.InterestView{}
	}
	return &PendingItems{Assignments: assignments, Interests: interests}, nil
}

func (s *Service) ApproveAssignment(ctx context.Context, professionalID int64) (*model.Assignment, error) {
	return s.decideAssignment(ctx, professionalID, model.StatusApproved)
}

func (s *Service) RejectAssignment(ctx context.Context, professionalID int64) (*model.Assignment, error) {
	return s.decideAssignment(ctx, professionalID, model.StatusRejected)
}

func (s *Service) ApproveInterest(ctx context.Context, interestID int64) (*model.Interest, error) {
	return s.decideInterest(ctx, interestID, model.StatusApproved)
}

func (s *Service) RejectInterest(ctx context.Context, interestID int64) (*model.Interest, error) {
	return s.decideInterest(ctx, interestID, model.StatusRejected)
}

func (s *Service) decideAssignment(ctx context.Context, professionalID int64, to model.Status) (*model.Assignment, error) {
	var (
		a   *model.Assignment
		err error
	)
	if to == model.StatusApproved {
		a, err = s.assignments.Approve(ctx, professionalID)
	} else {
		a, err = s.assignments.Reject(ctx, professionalID)
	}
	s.observe(trackAssignment, to, err, "professional_id", professionalID)
	if err != nil {
		return nil, err
	}

	eventType := model.EventAssignmentApproved
	if to == model.StatusRejected {
		eventType = model.EventAssignmentRejected
	}
	s.events.Emit(ctx, eventType, event.AssignmentPayload{
		ProfessionalID: a.ProfessionalID,
		FacilityID:     a.FacilityID,
		Status:         a.Status,
		At:             s.clock(),
	})
	return a, nil
}

func (s *Service) decideInterest(ctx context.Context, interestID int64, to model.Status) (*model.Interest, error) {
	var (
		i   *model.Interest
		err error
	)
	if to == model.StatusApproved {
		i, err = s.interests.Approve(ctx, interestID)
	} else {
		i, err = s.interests.Reject(ctx, interestID)
	}
	s.observe(trackInterest, to, err, "interest_id", interestID)
	if err != nil {
		return nil, err
	}

	eventType := model.EventInterestApproved
	if to == model.StatusRejected {
		eventType = model.EventInterestRejected
	}
	s.events.Emit(ctx, eventType, event.InterestPayload{
		InterestID:     i.ID,
		ProfessionalID: i.ProfessionalID,
		NeedID:         i.NeedID,
		Status:         i.Status,
		At:             s.clock(),
	})
	return i, nil
}

// observe counts the attempt and logs rejected transitions, which point at a
// race or a caller bug.
func (s *Service) observe(track string, to model.Status, err error, key string, id int64) {
	result := "ok"
	switch {
	case err == nil:
	case apperrors.Is(err, apperrors.ErrState):
		result = "conflict"
		s.log.Warn("illegal status transition", "track", track, "to", string(to), key, id, "error", err.Error())
	case apperrors.Is(err, apperrors.ErrNotFound):
		result = "not_found"
	default:
		result = "error"
	}

	if s.metrics != nil {
		s.metrics.Transitions.WithLabelValues(track, string(to), result).Inc()
	}
}
