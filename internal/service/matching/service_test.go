package matching

import (
	"context"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nidahp/portal-api/internal/model"
	"github.com/nidahp/portal-api/internal/repository/postgres"
	"github.com/nidahp/portal-api/internal/service/assignment"
	"github.com/nidahp/portal-api/internal/service/event"
	"github.com/nidahp/portal-api/internal/testutil"
	"github.com/nidahp/portal-api/pkg/logger"
	"github.com/nidahp/portal-api/pkg/metrics"
)

func TestRunAppliesProposals(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	base := testutil.Base(db)
	m := metrics.New("test")

	assignments := assignment.NewService(postgres.NewAssignmentRepository(base), nil)
	events := event.NewEventService(postgres.NewOutboxRepository(base), logger.Nop())
	svc := NewService(postgres.NewIdentityRepository(base), assignments, events, m, logger.Nop(), nil)

	fa := testutil.InsertFacility(t, db, "Alpha")
	fb := testutil.InsertFacility(t, db, "Beta")
	testutil.InsertNeed(t, db, fa, "ER cover", "cardiology,radiology", model.ProgramServices, model.SystemClock())
	testutil.InsertNeed(t, db, fb, "Theatre", "cardiology,surgery", model.ProgramServices, model.SystemClock())
	testutil.InsertNeed(t, db, fb, "Ward", "nursing", model.ProgramServices, model.SystemClock())

	ada := testutil.InsertProfessional(t, db, "Ada", model.RoleIndividual, testutil.Str("cardiology,surgery"))
	testutil.InsertProfessional(t, db, "Bola", model.RoleIndividual, testutil.Str("dentistry"))
	testutil.InsertProfessional(t, db, "Chi", model.RoleIndividual, nil)
	testutil.InsertProfessional(t, db, "Root", model.RoleAdmin, testutil.Str("cardiology"))

	report, err := svc.Run(ctx)
	require.NoError(t, err)

	require.Len(t, report.Proposals, 1)
	assert.Equal(t, model.ProposedAssignment{ProfessionalID: ada, FacilityID: fb, Score: 2}, report.Proposals[0])
	assert.Equal(t, 1, report.SkippedProfessionals)
	assert.Equal(t, 1, report.Applied.Inserted)

	assert.Equal(t, float64(1), promtest.ToFloat64(m.MatchRuns))
	assert.Equal(t, float64(1), promtest.ToFloat64(m.MatchProposals))
	assert.Equal(t, float64(1), promtest.ToFloat64(m.MatchSkipped.WithLabelValues("professional")))

	var emitted int
	require.NoError(t, db.Get(&emitted, "SELECT COUNT(*) FROM outbox_events WHERE event_type = ?", model.EventMatchingCompleted))
	assert.Equal(t, 1, emitted)
}

func TestRunTwiceResetsApprovedAssignment(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	base := testutil.Base(db)

	assignments := assignment.NewService(postgres.NewAssignmentRepository(base), nil)
	svc := NewService(postgres.NewIdentityRepository(base), assignments, nil, nil, nil, nil)

	fa := testutil.InsertFacility(t, db, "Alpha")
	testutil.InsertNeed(t, db, fa, "Ward", "nursing", model.ProgramServices, model.SystemClock())
	ada := testutil.InsertProfessional(t, db, "Ada", model.RoleIndividual, testutil.Str("nursing"))

	_, err := svc.Run(ctx)
	require.NoError(t, err)
	_, err = assignments.Approve(ctx, ada)
	require.NoError(t, err)

	report, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Applied.Overwritten)

	pending, err := assignments.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, ada, pending[0].ProfessionalID)
	assert.Equal(t, model.StatusPending, pending[0].Status)
}

func TestComputeDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	base := testutil.Base(db)

	assignments := assignment.NewService(postgres.NewAssignmentRepository(base), nil)
	svc := NewService(postgres.NewIdentityRepository(base), assignments, nil, nil, nil, nil)

	fa := testutil.InsertFacility(t, db, "Alpha")
	testutil.InsertNeed(t, db, fa, "Ward", "nursing", model.ProgramServices, model.SystemClock())
	testutil.InsertProfessional(t, db, "Ada", model.RoleIndividual, testutil.Str("nursing"))

	res, err := svc.Compute(ctx)
	require.NoError(t, err)
	assert.Len(t, res.Proposals, 1)

	pending, err := assignments.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
