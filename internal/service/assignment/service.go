package assignment

import (
	"context"
	"fmt"

	"github.com/nidahp/portal-api/internal/model"
	"github.com/nidahp/portal-api/internal/repository"
	apperrors "github.com/nidahp/portal-api/pkg/errors"
)

type AssignmentServicer interface {
	Apply(ctx context.Context, proposals []model.ProposedAssignment) (*ApplyReport, error)
	Approve(ctx context.Context, professionalID int64) (*model.Assignment, error)
	Reject(ctx context.Context, professionalID int64) (*model.Assignment, error)
	ListPending(ctx context.Context) ([]*model.AssignmentView, error)
}

// Failure is a proposal that could not be stored. Reason is Err's message
// for JSON reports.
type Failure struct {
	Proposal model.ProposedAssignment `json:"proposal"`
	Reason   string                   `json:"reason"`
	Err      error                    `json:"-"`
}

// ApplyReport summarises one Apply call. Proposals that succeeded stay
// committed even when later ones fail.
type ApplyReport struct {
	Inserted    int       `json:"inserted"`
	Overwritten int       `json:"overwritten"`
	Failed      []Failure `json:"failed,omitempty"`
}

func (r *ApplyReport) Applied() int {
	return r.Inserted + r.Overwritten
}

type Service struct {
	repo  repository.AssignmentRepository
	clock model.Clock
}

func NewService(repo repository.AssignmentRepository, clock model.Clock) *Service {
	if clock == nil {
		clock = model.SystemClock
	}
	return &Service{repo: repo, clock: clock}
}

// Apply upserts each proposal in its own transaction. An existing row is
// overwritten and reset to Pending.
func (s *Service) Apply(ctx context.Context, proposals []model.ProposedAssignment) (*ApplyReport, error) {
	report := &ApplyReport{}
	for _, p := range proposals {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		cmd, err := s.repo.Upsert(ctx, p, s.clock())
		if err != nil {
			report.Failed = append(report.Failed, Failure{Proposal: p, Reason: err.Error(), Err: err})
			continue
		}
		switch cmd.Kind {
		case model.CommandInsert:
			report.Inserted++
		case model.CommandOverwrite:
			report.Overwritten++
		}
	}
	return report, nil
}

func (s *Service) Approve(ctx context.Context, professionalID int64) (*model.Assignment, error) {
	return s.transition(ctx, professionalID, model.StatusApproved)
}

// Reject is the moderation counterpart of Approve.
func (s *Service) Reject(ctx context.Context, professionalID int64) (*model.Assignment, error) {
	return s.transition(ctx, professionalID, model.StatusRejected)
}

func (s *Service) transition(ctx context.Context, professionalID int64, to model.Status) (*model.Assignment, error) {
	ok, err := s.repo.Transition(ctx, professionalID, model.StatusPending, to, s.clock())
	if err != nil {
		return nil, err
	}

	current, err := s.repo.Get(ctx, professionalID)
	if err != nil {
		return nil, err
	}
	if !ok {
		if current.Status.Terminal() {
			return nil, apperrors.State(fmt.Sprintf("assignment for professional %d was already %s", professionalID, current.Status))
		}
		return nil, apperrors.State(fmt.Sprintf("assignment for professional %d is %s, not %s", professionalID, current.Status, model.StatusPending))
	}
	return current, nil
}

// ListPending returns pending assignments, most recently proposed first.
func (s *Service) ListPending(ctx context.Context) ([]*model.AssignmentView, error) {
	return s.repo.ListByStatus(ctx, model.StatusPending)
}
