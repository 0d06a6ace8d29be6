// Package app wires repositories and services over one database handle.
package app

import (
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nidahp/portal-api/internal/model"
	"github.com/nidahp/portal-api/internal/repository"
	"github.com/nidahp/portal-api/internal/repository/postgres"
	"github.com/nidahp/portal-api/internal/service/approval"
	"github.com/nidahp/portal-api/internal/service/assignment"
	"github.com/nidahp/portal-api/internal/service/event"
	"github.com/nidahp/portal-api/internal/service/identity"
	"github.com/nidahp/portal-api/internal/service/interest"
	"github.com/nidahp/portal-api/internal/service/matching"
	"github.com/nidahp/portal-api/internal/service/need"
	"github.com/nidahp/portal-api/pkg/logger"
	"github.com/nidahp/portal-api/pkg/metrics"
)

type Options struct {
	IdentityCacheTTL time.Duration
	Metrics          *metrics.Metrics
	Logger           *logger.Logger
	Clock            model.Clock
}

type Services struct {
	DB          *sqlx.DB
	Outbox      repository.OutboxRepository
	Identity    *identity.Service
	Events      *event.EventService
	Needs       *need.Service
	Assignments *assignment.Service
	Interests   *interest.Service
	Matching    *matching.Service
	Approvals   *approval.Service
}

func NewServices(db *sqlx.DB, opts Options) *Services {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Clock == nil {
		opts.Clock = model.SystemClock
	}

	base := postgres.NewBaseRepository(db)
	outbox := postgres.NewOutboxRepository(base)
	needRepo := postgres.NewNeedRepository(base)
	identityRepo := postgres.NewIdentityRepository(base)

	ids := identity.NewService(identityRepo, opts.IdentityCacheTTL)
	events := event.NewEventService(outbox, opts.Logger)
	assignments := assignment.NewService(postgres.NewAssignmentRepository(base), opts.Clock)
	// Needs reads the facility's active flag uncached so a deactivation
	// applies to the next submission.
	needs := need.NewService(needRepo, identityRepo, events, opts.Clock)
	interests := interest.NewService(postgres.NewInterestRepository(base), needRepo, ids, events, opts.Clock)

	return &Services{
		DB:          db,
		Outbox:      outbox,
		Identity:    ids,
		Events:      events,
		Needs:       needs,
		Assignments: assignments,
		Interests:   interests,
		Matching:    matching.NewService(ids, assignments, events, opts.Metrics, opts.Logger, opts.Clock),
		Approvals:   approval.NewService(assignments, interests, events, opts.Metrics, opts.Logger, opts.Clock),
	}
}
