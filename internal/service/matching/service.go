package matching

import (
	"context"
	"fmt"
	"time"

	"github.com/nidahp/portal-api/internal/model"
	"github.com/nidahp/portal-api/internal/repository"
	"github.com/nidahp/portal-api/internal/service/assignment"
	"github.com/nidahp/portal-api/internal/service/event"
	"github.com/nidahp/portal-api/pkg/logger"
	"github.com/nidahp/portal-api/pkg/metrics"
)

// Applier stores proposals.
type Applier interface {
	Apply(ctx context.Context, proposals []model.ProposedAssignment) (*assignment.ApplyReport, error)
}

type MatchingServicer interface {
	Compute(ctx context.Context) (*Result, error)
	Run(ctx context.Context) (*RunReport, error)
}

// RunReport is what a matching run computed and what it stored.
type RunReport struct {
	Result
	Applied *assignment.ApplyReport `json:"applied"`
}

type Service struct {
	identity repository.IdentityRepository
	applier  Applier
	events   event.Emitter
	metrics  *metrics.Metrics
	log      *logger.Logger
	clock    model.Clock
}

func NewService(
	identity repository.IdentityRepository,
	applier Applier,
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
		identity: identity,
		applier:  applier,
		events:   events,
		metrics:  m,
		log:      log,
		clock:    clock,
	}
}

// Compute loads the current snapshot and returns the proposals without
// storing them.
func (s *Service) Compute(ctx context.Context) (*Result, error) {
	professionals, err := s.identity.ListMatchableProfessionals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load professionals: %w", err)
	}
	facilities, err := s.identity.ListFacilityNeedTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load facility needs: %w", err)
	}

	res := Compute(professionals, facilities)
	return &res, nil
}

// Run computes proposals and applies them.
func (s *Service) Run(ctx context.Context) (*RunReport, error) {
	start := time.Now()

	res, err := s.Compute(ctx)
	if err != nil {
		return nil, err
	}
	if res.SkippedProfessionals > 0 || res.SkippedFacilities > 0 {
		s.log.Warn("matching skipped malformed records",
			"professionals", res.SkippedProfessionals,
			"facilities", res.SkippedFacilities,
		)
	}

	applied, err := s.applier.Apply(ctx, res.Proposals)
	if err != nil {
		return nil, fmt.Errorf("failed to apply proposals: %w", err)
	}
	for _, f := range applied.Failed {
		s.log.Error(f.Err, "failed to store proposal",
			"professional_id", f.Proposal.ProfessionalID,
			"facility_id", f.Proposal.FacilityID,
		)
	}

	s.record(res, applied, time.Since(start))
	s.log.Info("matching run completed",
		"proposed", len(res.Proposals),
		"inserted", applied.Inserted,
		"overwritten", applied.Overwritten,
		"failed", len(applied.Failed),
	)

	s.events.Emit(ctx, model.EventMatchingCompleted, event.MatchingPayload{
		Proposed:             len(res.Proposals),
		Inserted:             applied.Inserted,
		Overwritten:          applied.Overwritten,
		Failed:               len(applied.Failed),
		SkippedProfessionals: res.SkippedProfessionals,
		SkippedFacilities:    res.SkippedFacilities,
		At:                   s.clock(),
	})

	return &RunReport{Result: *res, Applied: applied}, nil
}

func (s *Service) record(res *Result, applied *assignment.ApplyReport, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.MatchRuns.Inc()
	s.metrics.MatchProposals.Add(float64(len(res.Proposals)))
	s.metrics.MatchSkipped.WithLabelValues("professional").Add(float64(res.SkippedProfessionals))
	s.metrics.MatchSkipped.WithLabelValues("facility").Add(float64(res.SkippedFacilities))
	s.metrics.MatchApplyFailures.Add(float64(len(applied.Failed)))
	s.metrics.MatchDuration.Observe(elapsed.Seconds())
}
