package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nidahp/portal-api/internal/model"
)

// All repository interfaces in one file
type (
	// IdentityRepository reads professionals and facilities registered by the
	// external identity flow. The core never writes them.
	IdentityRepository interface {
		GetProfessional(ctx context.Context, id int64) (*model.Professional, error)
		GetFacility(ctx context.Context, id int64) (*model.Facility, error)
		ListMatchableProfessionals(ctx context.Context) ([]*model.Professional, error)
		ListFacilityNeedTags(ctx context.Context) ([]*model.FacilityNeedTags, error)
	}

	NeedRepository interface {
		Create(ctx context.Context, need *model.Need) error
		Get(ctx context.Context, id int64) (*model.Need, error)
		List(ctx context.Context, filters *model.NeedFilters) ([]*model.NeedWithFacility, error)
		// Mutate loads the need, lets fn decide on the current row and, when fn
		// returns a non-nil need, writes it back; all inside one transaction.
		Mutate(ctx context.Context, id int64, fn func(current *model.Need) (*model.Need, error)) (*model.Need, error)
		// Remove deletes the need after check approves the current row, inside one transaction.
		Remove(ctx context.Context, id int64, check func(current *model.Need) error) error
		UpdateProgramTypes(ctx context.Context, classify func(description string) model.ProgramType) (int, error)
	}

	AssignmentRepository interface {
		// Upsert executes the command planned from the current row and
		// returns which variant ran.
		Upsert(ctx context.Context, proposal model.ProposedAssignment, at time.Time) (model.AssignmentCommand, error)
		Get(ctx context.Context, professionalID int64) (*model.Assignment, error)
		// Transition moves the row from one status to another only if it is
		// currently in from. ok is false when the guard did not match.
		Transition(ctx context.Context, professionalID int64, from, to model.Status, at time.Time) (bool, error)
		ListByStatus(ctx context.Context, status model.Status) ([]*model.AssignmentView, error)
	}

	InterestRepository interface {
		// CreatePending inserts a Pending interest unless one is already
		// pending for the pair, in which case created is false.
		CreatePending(ctx context.Context, interest *model.Interest) (created bool, err error)
		Get(ctx context.Context, id int64) (*model.Interest, error)
		Transition(ctx context.Context, id int64, from, to model.Status, at time.Time) (bool, error)
		List(ctx context.Context, filters *model.InterestFilters) ([]*model.InterestView, error)
		UpdateTraining(ctx context.Context, id int64, title string, status model.TrainingStatus) (bool, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
